package framework

import (
	"strings"
	"time"
)

type Results struct {
	Tests    []TestResult
	Failures []TestResult
}

type TestResult struct {
	TestID  TestID
	Outcome string
	CaseIDs []string
	Errors  []error
	Skipped bool
	Elapsed time.Duration
}

func (r Results) OK() bool {
	return len(r.Failures) == 0
}

// Count returns the number of tests that ended with the given outcome.
func (r Results) Count(outcome string) int {
	n := 0
	for _, t := range r.Tests {
		if t.Outcome == outcome {
			n++
		}
	}
	return n
}

type TestID struct {
	Path []string
}

func (t TestID) String() string {
	return strings.Join(t.Path, "/")
}
