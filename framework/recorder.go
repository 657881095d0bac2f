package framework

import (
	"errors"
	"time"
)

// Outcomes passed to Recorder.Finished.
const (
	OutcomePassed  = "passed"
	OutcomeFailed  = "failed"
	OutcomeSkipped = "skipped"
)

type testRecord struct {
	id          TestID
	debugLogger CapturingLogger
	started     time.Time
}

// Recorder accumulates the results of the tests of one session. It is not safe for concurrent use.
type Recorder struct {
	filter     Filter
	testLogger TestLogger
	results    Results
	running    map[string]*testRecord
	excluded   map[string]bool
}

func NewRecorder(filter Filter, testLogger TestLogger) *Recorder {
	if testLogger == nil {
		testLogger = nullTestLogger{}
	}
	return &Recorder{
		filter:     filter,
		testLogger: testLogger,
		running:    make(map[string]*testRecord),
		excluded:   make(map[string]bool),
	}
}

// Selected returns true if the filter allows the test.
func (r *Recorder) Selected(id TestID) bool {
	return r.filter == nil || r.filter(id)
}

// Started marks the beginning of a test. It returns false if the test is excluded by the filter, in
// which case every later call for the same test is ignored.
func (r *Recorder) Started(id TestID, t time.Time) bool {
	key := id.String()
	if r.excluded[key] {
		return false
	}
	r.testLogger.TestStarted(id)
	if !r.Selected(id) {
		r.excluded[key] = true
		r.testLogger.TestSkipped(id, "excluded by filter parameters")
		return false
	}
	r.running[key] = &testRecord{id: id, started: t}
	return true
}

// Output adds a line printed by a running test.
func (r *Recorder) Output(id TestID, t time.Time, line string) {
	if rec := r.running[id.String()]; rec != nil {
		rec.debugLogger.Append(t, line)
	}
}

// Finished records the outcome of a test. A test that finishes without having been started is
// treated as if it started at t.
func (r *Recorder) Finished(id TestID, t time.Time, outcome string, caseIDs []string) {
	key := id.String()
	if r.excluded[key] {
		return
	}
	rec := r.running[key]
	if rec == nil {
		if !r.Started(id, t) {
			return
		}
		rec = r.running[key]
	}
	delete(r.running, key)

	result := TestResult{
		TestID:  id,
		Outcome: outcome,
		CaseIDs: caseIDs,
		Skipped: outcome == OutcomeSkipped,
		Elapsed: t.Sub(rec.started),
	}
	output := rec.debugLogger.Output()
	if outcome == OutcomeFailed {
		err := errors.New("test failed with no output")
		if len(output) > 0 {
			err = errors.New(output.String())
		}
		result.Errors = append(result.Errors, err)
		r.testLogger.TestError(id, err)
	}
	r.results.Tests = append(r.results.Tests, result)
	if outcome == OutcomeFailed {
		r.results.Failures = append(r.results.Failures, result)
	}

	if result.Skipped {
		r.testLogger.TestSkipped(id, "")
	} else {
		r.testLogger.TestFinished(id, outcome == OutcomeFailed, output)
	}
}

// Results returns the results recorded so far.
func (r *Recorder) Results() Results {
	return r.results
}
