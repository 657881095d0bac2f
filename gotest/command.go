package gotest

import (
	"context"
	"io"
	"os"
	"os/exec"
	"strings"

	"github.com/alessio/shellescape"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
)

const (
	DefaultGoBinary = "go"
	testCommand     = "test"
	jsonFlag        = "-json"
)

// Command is a "go test -json" invocation.
type Command struct {
	GoBinary string
	Dir      string
	Packages []string
	// Args are passed to go test before the packages, for instance "-run" or "-count=1".
	Args []string
	// Env is added to the environment of the current process.
	Env []string
}

func (c Command) argv() []string {
	binary := c.GoBinary
	if binary == "" {
		binary = DefaultGoBinary
	}
	argv := []string{binary, testCommand, jsonFlag}
	argv = append(argv, c.Args...)
	packages := c.Packages
	if len(packages) == 0 {
		packages = []string{allPackagesPattern}
	}
	return append(argv, packages...)
}

// String returns the command line, quoted for a POSIX shell.
func (c Command) String() string {
	var b commandBuilder
	b.add(c.argv()...)
	return b.String()
}

// Run starts the command, passes its standard output to consume and copies its standard error to
// stderr. It returns the exit code of the command; a non-zero exit code is not an error. If consume
// returns an error, the rest of the output is discarded and the error is returned once the command
// exits.
func (c Command) Run(ctx context.Context, stderr io.Writer, consume func(io.Reader) error) (int, error) {
	argv := c.argv()
	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	cmd.Dir = c.Dir
	cmd.Env = append(os.Environ(), c.Env...)
	stdoutPipe, err := cmd.StdoutPipe()
	if err != nil {
		return 0, err
	}
	stderrPipe, err := cmd.StderrPipe()
	if err != nil {
		return 0, err
	}
	if err := cmd.Start(); err != nil {
		return 0, errors.Wrapf(err, "could not start %s", c)
	}

	var g errgroup.Group
	g.Go(func() error {
		_, err := io.Copy(stderr, stderrPipe)
		return err
	})
	g.Go(func() error {
		err := consume(stdoutPipe)
		_, _ = io.Copy(io.Discard, stdoutPipe)
		return err
	})
	groupErr := g.Wait()

	waitErr := cmd.Wait()
	if groupErr != nil {
		return exitCode(waitErr), groupErr
	}
	var exitErr *exec.ExitError
	if waitErr != nil && !errors.As(waitErr, &exitErr) {
		return 0, errors.Wrapf(waitErr, "%s failed", c)
	}
	return exitCode(waitErr), nil
}

func exitCode(err error) int {
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode()
	}
	return 0
}

type commandBuilder []string

func (b *commandBuilder) add(args ...string) {
	for _, a := range args {
		*b = append(*b, shellescape.Quote(a))
	}
}

func (b commandBuilder) String() string {
	return strings.Join(b, " ")
}
