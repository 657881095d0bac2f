package framework

import (
	"bytes"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestPrintResults(t *testing.T) {
	results := Results{
		Tests: []TestResult{
			{TestID: testID("pkg", "TestA"), Outcome: OutcomePassed, CaseIDs: []string{"C1", "C2"}, Elapsed: 20 * time.Millisecond},
			{TestID: testID("pkg", "TestB"), Outcome: OutcomeFailed, Errors: []error{errors.New("x")}, Elapsed: 2 * time.Second},
		},
	}
	results.Failures = results.Tests[1:]

	var buf bytes.Buffer
	PrintResults(&buf, results)
	out := buf.String()
	assert.Contains(t, out, "Test Results")
	assert.Contains(t, out, "pkg/TestA")
	assert.Contains(t, out, "C1, C2")
	assert.Contains(t, out, "PASSED")
	assert.Contains(t, out, "FAILED")
	assert.Contains(t, out, "2 tests")
	assert.Contains(t, out, "1 passed, 1 failed, 0 skipped")
	assert.Contains(t, out, "FAIL")
	assert.Contains(t, out, "2.02s")
}

func TestFormatDuration(t *testing.T) {
	assert.Equal(t, "250ms", formatDuration(250*time.Millisecond))
	assert.Equal(t, "1.5s", formatDuration(1500*time.Millisecond))
}
