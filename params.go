package main

import (
	"strings"

	"github.com/launchdarkly/testrail-reporter/framework"
	"github.com/launchdarkly/testrail-reporter/gotest"

	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"
	"gopkg.in/launchdarkly/go-sdk-common.v2/ldlog"
)

const envVarPrefix = "TESTRAIL_REPORTER"

var logLevels = map[string]ldlog.LogLevel{
	"debug": ldlog.Debug,
	"info":  ldlog.Info,
	"warn":  ldlog.Warn,
	"error": ldlog.Error,
	"none":  ldlog.None,
}

type commandParams struct {
	configPath      string
	envFile         string
	runName         string
	noSSLCertCheck  bool
	updateExisting  bool
	closeOnComplete bool
	filters         framework.RegexFilters
	logLevel        string
	debug           bool
	debugAll        bool
	metricsPushURL  string
	dir             string
	goBinary        string
	input           string
}

func prefixEnvVar(name string) []string {
	return []string{envVarPrefix + "_" + name}
}

// testRailFlags are the flags of every command that can talk to TestRail.
func (p *commandParams) testRailFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "testrail",
			Usage:       "Enable TestRail reporting with the given config file (.cfg/.ini, .toml or .yaml)",
			EnvVars:     prefixEnvVar("CONFIG"),
			Destination: &p.configPath,
		},
		&cli.StringFlag{
			Name:        "env-file",
			Usage:       "Dotenv file with TESTRAIL_* variables that override the config file",
			EnvVars:     prefixEnvVar("ENV_FILE"),
			Destination: &p.envFile,
		},
		&cli.BoolFlag{
			Name:        "no-ssl-cert-check",
			Usage:       "Do not check the TLS certificate of the TestRail server",
			EnvVars:     prefixEnvVar("NO_SSL_CERT_CHECK"),
			Destination: &p.noSSLCertCheck,
		},
		&cli.StringFlag{
			Name:        "tr-name",
			Usage:       "Name of the test run; an open run whose name contains it is reused",
			EnvVars:     prefixEnvVar("RUN_NAME"),
			Destination: &p.runName,
		},
		&cli.BoolFlag{
			Name:        "update-existing-run",
			Usage:       "Add the collected cases to the open run found by --tr-name instead of creating a run",
			EnvVars:     prefixEnvVar("UPDATE_EXISTING_RUN"),
			Destination: &p.updateExisting,
		},
		&cli.BoolFlag{
			Name:        "close-on-complete",
			Usage:       "Close the run when no case is failed or untested",
			EnvVars:     prefixEnvVar("CLOSE_ON_COMPLETE"),
			Destination: &p.closeOnComplete,
		},
	}
}

// sessionFlags are the flags of the commands that collect tests.
func (p *commandParams) sessionFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "dir",
			Value:       ".",
			Usage:       "Directory that package patterns are relative to",
			EnvVars:     prefixEnvVar("DIR"),
			Destination: &p.dir,
		},
		&cli.GenericFlag{
			Name:  "include",
			Usage: "Regex pattern(s) selecting the tests to report, matched against package/TestName",
			Value: &p.filters.MustMatch,
		},
		&cli.GenericFlag{
			Name:  "exclude",
			Usage: "Regex pattern(s) selecting tests not to report",
			Value: &p.filters.MustNotMatch,
		},
		&cli.StringFlag{
			Name:        "log-level",
			Value:       "info",
			Usage:       "Log level: debug, info, warn, error or none",
			EnvVars:     prefixEnvVar("LOG_LEVEL"),
			Destination: &p.logLevel,
		},
		&cli.StringFlag{
			Name:        "metrics-push-url",
			Usage:       "Prometheus Pushgateway URL that session metrics are pushed to",
			EnvVars:     prefixEnvVar("METRICS_PUSH_URL"),
			Destination: &p.metricsPushURL,
		},
	}
}

// outputFlags are the flags of the commands that print test progress.
func (p *commandParams) outputFlags() []cli.Flag {
	return []cli.Flag{
		&cli.BoolFlag{
			Name:        "debug",
			Usage:       "Print the output of failed tests",
			Destination: &p.debug,
		},
		&cli.BoolFlag{
			Name:        "debug-all",
			Usage:       "Print the output of all tests",
			Destination: &p.debugAll,
		},
	}
}

func (p *commandParams) Validate() error {
	if _, ok := logLevels[strings.ToLower(p.logLevel)]; !ok {
		return errors.Errorf("invalid log level %q", p.logLevel)
	}
	return nil
}

// runFlagsIgnored returns true if run options were given without enabling TestRail reporting.
func (p *commandParams) runFlagsIgnored() bool {
	return p.configPath == "" && (p.runName != "" || p.updateExisting || p.closeOnComplete || p.noSSLCertCheck)
}

func (p *commandParams) minLevel() ldlog.LogLevel {
	return logLevels[strings.ToLower(p.logLevel)]
}

func (p *commandParams) goCommand(c *cli.Context) gotest.Command {
	return gotest.Command{
		GoBinary: p.goBinary,
		Dir:      p.dir,
		Packages: c.Args().Slice(),
		Args:     c.StringSlice("test-arg"),
	}
}
