// Package config loads the TestRail connection settings.
package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"gopkg.in/ini.v1"
	"gopkg.in/yaml.v3"
)

// Environment variables that override values from the config file.
const (
	EnvAPIURL       = "TESTRAIL_API_URL"
	EnvAPIEmail     = "TESTRAIL_API_EMAIL"
	EnvAPIPassword  = "TESTRAIL_API_PASSWORD"
	EnvProjectID    = "TESTRAIL_PROJECT_ID"
	EnvSuiteID      = "TESTRAIL_SUITE_ID"
	EnvAssignedToID = "TESTRAIL_ASSIGNEDTO_ID"
)

type Config struct {
	API     APIConfig     `ini:"API" toml:"API" yaml:"api"`
	TestRun TestRunConfig `ini:"TESTRUN" toml:"TESTRUN" yaml:"testrun"`
}

type APIConfig struct {
	URL      string `ini:"url" toml:"url" yaml:"url"`
	Email    string `ini:"email" toml:"email" yaml:"email"`
	Password string `ini:"password" toml:"password" yaml:"password"`
}

type TestRunConfig struct {
	AssignedToID int `ini:"assignedto_id" toml:"assignedto_id" yaml:"assignedto_id"`
	ProjectID    int `ini:"project_id" toml:"project_id" yaml:"project_id"`
	SuiteID      int `ini:"suite_id" toml:"suite_id" yaml:"suite_id"`
}

// LookupFunc has the signature of os.LookupEnv.
type LookupFunc func(key string) (string, bool)

// Load reads a config file. The format is chosen by extension: .toml, .yaml/.yml, and otherwise
// INI with [API] and [TESTRUN] sections.
func Load(path string) (Config, error) {
	var c Config
	var err error
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		_, err = toml.DecodeFile(path, &c)
	case ".yaml", ".yml":
		var data []byte
		if data, err = os.ReadFile(path); err == nil {
			err = yaml.Unmarshal(data, &c)
		}
	default:
		err = loadINI(path, &c)
	}
	if err != nil {
		return Config{}, errors.Wrapf(err, "could not read TestRail config %s", path)
	}
	return c, nil
}

func loadINI(path string, c *Config) error {
	// Passwords may contain "#" or ";".
	f, err := ini.LoadSources(ini.LoadOptions{IgnoreInlineComment: true}, path)
	if err != nil {
		return err
	}
	return f.MapTo(c)
}

// EnvLookup returns a LookupFunc over the process environment and, if envFile is not empty, the
// variables of that dotenv file. Process variables take precedence.
func EnvLookup(envFile string) (LookupFunc, error) {
	if envFile == "" {
		return os.LookupEnv, nil
	}
	fileVars, err := godotenv.Read(envFile)
	if err != nil {
		return nil, errors.Wrapf(err, "could not read env file %s", envFile)
	}
	return func(key string) (string, bool) {
		if v, ok := os.LookupEnv(key); ok {
			return v, true
		}
		v, ok := fileVars[key]
		return v, ok
	}, nil
}

// ApplyEnv overrides fields with any of the TESTRAIL_* variables that are set.
func (c *Config) ApplyEnv(lookup LookupFunc) error {
	for name, field := range map[string]*string{
		EnvAPIURL:      &c.API.URL,
		EnvAPIEmail:    &c.API.Email,
		EnvAPIPassword: &c.API.Password,
	} {
		if v, ok := lookup(name); ok {
			*field = v
		}
	}
	for name, field := range map[string]*int{
		EnvProjectID:    &c.TestRun.ProjectID,
		EnvSuiteID:      &c.TestRun.SuiteID,
		EnvAssignedToID: &c.TestRun.AssignedToID,
	} {
		v, ok := lookup(name)
		if !ok {
			continue
		}
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return errors.Errorf("%s must be an integer, got %q", name, v)
		}
		*field = n
	}
	return nil
}

// Validate returns an error if a setting needed to reach the suite is missing.
func (c Config) Validate() error {
	var missing []string
	if c.API.URL == "" {
		missing = append(missing, "API url")
	}
	if c.TestRun.ProjectID <= 0 {
		missing = append(missing, "TESTRUN project_id")
	}
	if c.TestRun.SuiteID <= 0 {
		missing = append(missing, "TESTRUN suite_id")
	}
	if len(missing) > 0 {
		return errors.Errorf("TestRail config is missing %s", strings.Join(missing, ", "))
	}
	return nil
}
