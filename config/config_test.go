package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var expectedConfig = Config{
	API:     APIConfig{URL: "https://example.testrail.io/", Email: "qa@example.com", Password: "p#ss;word"},
	TestRun: TestRunConfig{AssignedToID: 7, ProjectID: 1, SuiteID: 3},
}

func writeFile(t *testing.T, name, content string) string {
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadINI(t *testing.T) {
	path := writeFile(t, "testrail.cfg", `
[API]
url = https://example.testrail.io/
email = qa@example.com
password = p#ss;word

[TESTRUN]
assignedto_id = 7
project_id = 1
suite_id = 3
`)
	c, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, expectedConfig, c)
	assert.NoError(t, c.Validate())
}

func TestLoadTOML(t *testing.T) {
	path := writeFile(t, "testrail.toml", `
[API]
url = "https://example.testrail.io/"
email = "qa@example.com"
password = "p#ss;word"

[TESTRUN]
assignedto_id = 7
project_id = 1
suite_id = 3
`)
	c, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, expectedConfig, c)
}

func TestLoadYAML(t *testing.T) {
	path := writeFile(t, "testrail.yml", `
api:
  url: https://example.testrail.io/
  email: qa@example.com
  password: "p#ss;word"
testrun:
  assignedto_id: 7
  project_id: 1
  suite_id: 3
`)
	c, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, expectedConfig, c)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "could not read TestRail config")
}

func TestLoadMalformedFile(t *testing.T) {
	path := writeFile(t, "testrail.yaml", "api: [unclosed")
	_, err := Load(path)
	require.Error(t, err)
}

func lookupFrom(vars map[string]string) LookupFunc {
	return func(key string) (string, bool) {
		v, ok := vars[key]
		return v, ok
	}
}

func TestApplyEnv(t *testing.T) {
	c := expectedConfig
	require.NoError(t, c.ApplyEnv(lookupFrom(map[string]string{
		EnvAPIPassword: "other",
		EnvSuiteID:     " 9 ",
	})))
	assert.Equal(t, "other", c.API.Password)
	assert.Equal(t, 9, c.TestRun.SuiteID)
	assert.Equal(t, expectedConfig.API.URL, c.API.URL)
	assert.Equal(t, expectedConfig.TestRun.ProjectID, c.TestRun.ProjectID)
}

func TestApplyEnvRejectsNonIntegers(t *testing.T) {
	c := expectedConfig
	err := c.ApplyEnv(lookupFrom(map[string]string{EnvProjectID: "one"}))
	require.Error(t, err)
	assert.Contains(t, err.Error(), EnvProjectID)
}

func TestEnvLookupReadsEnvFile(t *testing.T) {
	path := writeFile(t, ".env", "TESTRAIL_REPORTER_TEST_ONLY_A=from-file\nTESTRAIL_REPORTER_TEST_ONLY_B=from-file\n")
	t.Setenv("TESTRAIL_REPORTER_TEST_ONLY_B", "from-process")

	lookup, err := EnvLookup(path)
	require.NoError(t, err)
	v, ok := lookup("TESTRAIL_REPORTER_TEST_ONLY_A")
	assert.True(t, ok)
	assert.Equal(t, "from-file", v)
	v, _ = lookup("TESTRAIL_REPORTER_TEST_ONLY_B")
	assert.Equal(t, "from-process", v)
	_, ok = lookup("TESTRAIL_REPORTER_TEST_ONLY_C")
	assert.False(t, ok)
}

func TestEnvLookupMissingFile(t *testing.T) {
	_, err := EnvLookup(filepath.Join(t.TempDir(), "missing.env"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	err := Config{API: APIConfig{Email: "x"}}.Validate()
	require.Error(t, err)
	assert.Equal(t, "TestRail config is missing API url, TESTRUN project_id, TESTRUN suite_id", err.Error())
}
