package gotest

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/launchdarkly/go-sdk-common.v2/ldlog"
)

const (
	fakeGoEnv     = "TESTRAIL_REPORTER_FAKE_GO"
	fakeGoExitEnv = "TESTRAIL_REPORTER_FAKE_GO_EXIT"
)

// TestMain lets the test binary stand in for the go command when fakeGoEnv is set.
func TestMain(m *testing.M) {
	if os.Getenv(fakeGoEnv) == "1" {
		fakeGo()
	}
	os.Exit(m.Run())
}

func fakeGo() {
	fmt.Fprintln(os.Stderr, "args: "+strings.Join(os.Args[1:], " "))
	fmt.Println(`{"Action":"run","Package":"example.com/sample/login","Test":"TestLogin"}`)
	fmt.Println(`{"Action":"pass","Package":"example.com/sample/login","Test":"TestLogin"}`)
	code, _ := strconv.Atoi(os.Getenv(fakeGoExitEnv))
	os.Exit(code)
}

func fakeGoCommand(exitCode int) Command {
	return Command{
		GoBinary: os.Args[0],
		Packages: []string{"./login"},
		Args:     []string{"-count=1"},
		Env:      []string{fakeGoEnv + "=1", fakeGoExitEnv + "=" + strconv.Itoa(exitCode)},
	}
}

func TestCommandString(t *testing.T) {
	c := Command{Packages: []string{"./..."}, Args: []string{"-run", "TestLogin|TestLogout"}}
	assert.Equal(t, `go test -json -run 'TestLogin|TestLogout' ./...`, c.String())
	assert.Equal(t, "go test -json ./...", Command{}.String())
}

func TestCommandRun(t *testing.T) {
	var stderr bytes.Buffer
	var events []TestEvent
	code, err := fakeGoCommand(0).Run(context.Background(), &stderr, func(r io.Reader) error {
		return DecodeEvents(r, ldlog.NewDisabledLoggers(), func(e TestEvent) error {
			events = append(events, e)
			return nil
		})
	})
	require.NoError(t, err)
	assert.Equal(t, 0, code)
	require.Len(t, events, 2)
	assert.Equal(t, ActionPass, events[1].Action)
	assert.Equal(t, "args: test -json -count=1 ./login\n", stderr.String())
}

func TestCommandRunReturnsExitCode(t *testing.T) {
	code, err := fakeGoCommand(3).Run(context.Background(), io.Discard, func(r io.Reader) error {
		_, err := io.Copy(io.Discard, r)
		return err
	})
	require.NoError(t, err)
	assert.Equal(t, 3, code)
}

func TestCommandRunReturnsConsumerError(t *testing.T) {
	boom := errors.New("boom")
	code, err := fakeGoCommand(1).Run(context.Background(), io.Discard, func(io.Reader) error {
		return boom
	})
	assert.Equal(t, boom, err)
	assert.Equal(t, 1, code)
}

func TestCommandRunWithMissingBinary(t *testing.T) {
	c := Command{GoBinary: "/nonexistent/go"}
	_, err := c.Run(context.Background(), io.Discard, func(io.Reader) error { return nil })
	require.Error(t, err)
	assert.Contains(t, err.Error(), "could not start")
}
