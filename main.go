package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/launchdarkly/testrail-reporter/config"
	"github.com/launchdarkly/testrail-reporter/framework"
	"github.com/launchdarkly/testrail-reporter/gotest"
	"github.com/launchdarkly/testrail-reporter/metrics"
	"github.com/launchdarkly/testrail-reporter/testrail"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"
	"gopkg.in/launchdarkly/go-sdk-common.v2/ldlog"
)

const (
	appName    = "testrail-reporter"
	logPrefix  = "[testrail]"
	metricsJob = "testrail_reporter"
	stdinInput = "-"

	exitTestsFailed    = 1
	exitReportingError = 2
)

func main() {
	app := newApp(os.Stdin, os.Stdout, os.Stderr)
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(exitReportingError)
	}
}

func newApp(stdin io.Reader, stdout, stderr io.Writer) *cli.App {
	return &cli.App{
		Name:      appName,
		Usage:     "Report go test results to TestRail",
		Reader:    stdin,
		Writer:    stdout,
		ErrWriter: stderr,
		Commands: []*cli.Command{
			runCommand(),
			reportCommand(),
			checkCommand(),
		},
	}
}

func concatFlags(groups ...[]cli.Flag) []cli.Flag {
	var ret []cli.Flag
	for _, g := range groups {
		ret = append(ret, g...)
	}
	return ret
}

// executeFunc feeds the test events of a session and returns the exit code of the tests.
type executeFunc func(ctx context.Context, session *gotest.Session, loggers ldlog.Loggers) (int, error)

func runCommand() *cli.Command {
	var p commandParams
	return &cli.Command{
		Name:      "run",
		Usage:     "Run go test -json on the packages and report the results",
		ArgsUsage: "[packages]",
		Flags: concatFlags(p.testRailFlags(), p.sessionFlags(), p.outputFlags(), []cli.Flag{
			&cli.StringFlag{
				Name:        "go-binary",
				Value:       gotest.DefaultGoBinary,
				Usage:       "Path to the go command",
				EnvVars:     prefixEnvVar("GO_BINARY"),
				Destination: &p.goBinary,
			},
			&cli.StringSliceFlag{
				Name:  "test-arg",
				Usage: "Argument passed to go test before the packages, such as -count=1 (repeatable)",
			},
		}),
		Action: func(c *cli.Context) error {
			cmd := p.goCommand(c)
			return runSession(c, &p, func(ctx context.Context, session *gotest.Session, loggers ldlog.Loggers) (int, error) {
				loggers.Infof("Running %s", cmd)
				return cmd.Run(ctx, c.App.ErrWriter, func(r io.Reader) error {
					return session.Consume(ctx, r)
				})
			})
		},
	}
}

func reportCommand() *cli.Command {
	var p commandParams
	return &cli.Command{
		Name:      "report",
		Usage:     "Report the results of a recorded go test -json stream",
		ArgsUsage: "[packages]",
		Flags: concatFlags(p.testRailFlags(), p.sessionFlags(), p.outputFlags(), []cli.Flag{
			&cli.StringFlag{
				Name:        "input",
				Value:       stdinInput,
				Usage:       `File holding the output of "go test -json", or "-" for standard input`,
				EnvVars:     prefixEnvVar("INPUT"),
				Destination: &p.input,
				TakesFile:   true,
			},
		}),
		Action: func(c *cli.Context) error {
			return runSession(c, &p, func(ctx context.Context, session *gotest.Session, loggers ldlog.Loggers) (int, error) {
				in := c.App.Reader
				if p.input != stdinInput {
					f, err := os.Open(p.input)
					if err != nil {
						return 0, errors.Wrap(err, "could not open test output")
					}
					defer f.Close()
					in = f
				}
				return 0, session.Consume(ctx, in)
			})
		},
	}
}

func checkCommand() *cli.Command {
	var p commandParams
	return &cli.Command{
		Name:      "check",
		Usage:     "List the tests marked with TestRail case ids and check the ids against the suite",
		ArgsUsage: "[packages]",
		Flags:     concatFlags(p.testRailFlags(), p.sessionFlags()),
		Action: func(c *cli.Context) error {
			return check(c, &p)
		},
	}
}

func newLoggers(w io.Writer, level ldlog.LogLevel) ldlog.Loggers {
	var loggers ldlog.Loggers
	loggers.SetBaseLogger(log.New(w, "", log.LstdFlags))
	loggers.SetMinLevel(level)
	loggers.SetPrefix(logPrefix)
	return loggers
}

func reportingError(err error) error {
	return cli.Exit(err.Error(), exitReportingError)
}

func newController(p *commandParams, loggers ldlog.Loggers, m *metrics.Metrics) (*testrail.RunController, error) {
	cfg, err := config.Load(p.configPath)
	if err != nil {
		return nil, err
	}
	lookup, err := config.EnvLookup(p.envFile)
	if err != nil {
		return nil, err
	}
	if err := cfg.ApplyEnv(lookup); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	client := testrail.NewAPIClient(cfg.API.URL, cfg.API.Email, cfg.API.Password, loggers, m)
	loggers.Infof("Reporting to %s (project %d, suite %d)", client.URL(), cfg.TestRun.ProjectID, cfg.TestRun.SuiteID)
	return testrail.NewRunController(client, testrail.Options{
		ProjectID:       cfg.TestRun.ProjectID,
		SuiteID:         cfg.TestRun.SuiteID,
		AssignedToID:    cfg.TestRun.AssignedToID,
		RunName:         p.runName,
		VerifyCert:      !p.noSSLCertCheck,
		UpdateExisting:  p.updateExisting,
		CloseOnComplete: p.closeOnComplete,
	}, loggers, m), nil
}

// collect validates the parameters and returns the loggers and the collected tests.
func collect(c *cli.Context, p *commandParams) (ldlog.Loggers, []*gotest.Case, error) {
	if err := p.Validate(); err != nil {
		return ldlog.Loggers{}, nil, err
	}
	loggers := newLoggers(c.App.ErrWriter, p.minLevel())
	if p.runFlagsIgnored() {
		loggers.Warn("TestRail run options have no effect without --testrail")
	}
	cases, err := gotest.Collect(p.dir, c.Args().Slice())
	if err != nil {
		return loggers, nil, err
	}
	loggers.Infof("Collected %d tests, %d with TestRail case ids", len(cases), len(gotest.Marked(cases)))
	return loggers, cases, nil
}

func runSession(c *cli.Context, p *commandParams, execute executeFunc) error {
	ctx := c.Context
	loggers, cases, err := collect(c, p)
	if err != nil {
		return reportingError(err)
	}
	sessionID := uuid.NewString()
	loggers.Infof("Starting session %s", sessionID)

	m := metrics.New()
	var plugin testrail.Plugin
	if p.configPath != "" {
		controller, err := newController(p, loggers, m)
		if err != nil {
			return reportingError(err)
		}
		plugin = controller
	}

	framework.PrintFilterDescription(c.App.Writer, p.filters)
	testLogger := &ConsoleTestLogger{
		Out:                  c.App.Writer,
		DebugOutputOnFailure: p.debug || p.debugAll,
		DebugOutputOnSuccess: p.debugAll,
	}
	session := gotest.NewSession(cases, plugin, p.filters.AsFilter, testLogger, loggers)
	if err := session.Start(ctx); err != nil {
		return reportingError(err)
	}

	code, executeErr := execute(ctx, session, loggers)
	results, finishErr := session.Finish(ctx)

	fmt.Fprintln(c.App.Writer)
	framework.PrintResults(c.App.Writer, results)
	pushMetrics(ctx, p, m, sessionID, loggers)

	if executeErr != nil {
		return reportingError(executeErr)
	}
	if finishErr != nil {
		return reportingError(finishErr)
	}
	if code == 0 && (!results.OK() || len(session.FailedPackages()) > 0) {
		code = exitTestsFailed
	}
	if code != 0 {
		return cli.Exit("", code)
	}
	return nil
}

func pushMetrics(ctx context.Context, p *commandParams, m *metrics.Metrics, sessionID string, loggers ldlog.Loggers) {
	if p.metricsPushURL == "" {
		return
	}
	if err := m.Push(ctx, p.metricsPushURL, metricsJob, sessionID); err != nil {
		loggers.Warnf("Could not push metrics to %s: %s", p.metricsPushURL, err)
	}
}

func check(c *cli.Context, p *commandParams) error {
	loggers, cases, err := collect(c, p)
	if err != nil {
		return reportingError(err)
	}
	var items []testrail.Item
	for _, tc := range cases {
		if !p.filters.AsFilter(tc.ID()) {
			continue
		}
		items = append(items, tc)
		if len(tc.IDs) > 0 {
			fmt.Fprintf(c.App.Writer, "%s %s:%d %v\n", tc.ID(), tc.File, tc.Line, tc.IDs)
		}
	}
	caseIDs, err := testrail.CaseIDsFromItems(items)
	if err != nil {
		return reportingError(err)
	}
	if p.configPath == "" {
		return nil
	}
	controller, err := newController(p, loggers, nil)
	if err != nil {
		return reportingError(err)
	}
	if err := controller.ValidateCases(c.Context, caseIDs); err != nil {
		return reportingError(err)
	}
	loggers.Infof("All %d case ids are part of the suite", len(caseIDs))
	return nil
}
