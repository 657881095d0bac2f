package framework

import (
	"bytes"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type loggedEvent struct {
	kind   string
	id     string
	detail string
}

type recordingTestLogger struct {
	events []loggedEvent
}

func (l *recordingTestLogger) TestStarted(id TestID) {
	l.events = append(l.events, loggedEvent{"started", id.String(), ""})
}

func (l *recordingTestLogger) TestError(id TestID, err error) {
	l.events = append(l.events, loggedEvent{"error", id.String(), err.Error()})
}

func (l *recordingTestLogger) TestFinished(id TestID, failed bool, debugOutput CapturedOutput) {
	l.events = append(l.events, loggedEvent{"finished", id.String(), fmt.Sprintf("failed=%t output=%q", failed, debugOutput.String())})
}

func (l *recordingTestLogger) TestSkipped(id TestID, reason string) {
	l.events = append(l.events, loggedEvent{"skipped", id.String(), reason})
}

var t0 = time.Date(2024, time.March, 1, 12, 0, 0, 0, time.UTC)

func testID(path ...string) TestID {
	return TestID{Path: path}
}

func TestRecorderPassedTest(t *testing.T) {
	logger := &recordingTestLogger{}
	r := NewRecorder(nil, logger)
	id := testID("example.com/pkg", "TestA")

	require.True(t, r.Started(id, t0))
	r.Output(id, t0, "=== RUN   TestA\n")
	r.Finished(id, t0.Add(1500*time.Millisecond), OutcomePassed, []string{"C1"})

	results := r.Results()
	assert.True(t, results.OK())
	require.Len(t, results.Tests, 1)
	assert.Equal(t, TestResult{
		TestID:  id,
		Outcome: OutcomePassed,
		CaseIDs: []string{"C1"},
		Elapsed: 1500 * time.Millisecond,
	}, results.Tests[0])
	assert.Equal(t, []loggedEvent{
		{"started", "example.com/pkg/TestA", ""},
		{"finished", "example.com/pkg/TestA", `failed=false output="=== RUN   TestA"`},
	}, logger.events)
}

func TestRecorderFailedTest(t *testing.T) {
	logger := &recordingTestLogger{}
	r := NewRecorder(nil, logger)
	id := testID("pkg", "TestA")

	r.Started(id, t0)
	r.Output(id, t0, "    a_test.go:10: oops\n")
	r.Output(id, t0, "--- FAIL: TestA (0.00s)\n")
	r.Finished(id, t0, OutcomeFailed, nil)

	results := r.Results()
	assert.False(t, results.OK())
	require.Len(t, results.Failures, 1)
	require.Len(t, results.Failures[0].Errors, 1)
	assert.Equal(t, "    a_test.go:10: oops\n--- FAIL: TestA (0.00s)", results.Failures[0].Errors[0].Error())
	assert.Equal(t, "error", logger.events[1].kind)
	assert.Equal(t, "finished", logger.events[2].kind)
	assert.Contains(t, logger.events[2].detail, "failed=true")
}

func TestRecorderFailedTestWithoutOutput(t *testing.T) {
	r := NewRecorder(nil, nil)
	id := testID("pkg", "TestA")
	r.Started(id, t0)
	r.Finished(id, t0, OutcomeFailed, nil)
	assert.Equal(t, "test failed with no output", r.Results().Failures[0].Errors[0].Error())
}

func TestRecorderSkippedTest(t *testing.T) {
	logger := &recordingTestLogger{}
	r := NewRecorder(nil, logger)
	id := testID("pkg", "TestA")
	r.Started(id, t0)
	r.Finished(id, t0, OutcomeSkipped, nil)

	results := r.Results()
	assert.True(t, results.OK())
	assert.True(t, results.Tests[0].Skipped)
	assert.Equal(t, 1, results.Count(OutcomeSkipped))
	assert.Equal(t, loggedEvent{"skipped", "pkg/TestA", ""}, logger.events[1])
}

func TestRecorderFinishWithoutStart(t *testing.T) {
	r := NewRecorder(nil, nil)
	r.Finished(testID("pkg", "TestA"), t0, OutcomePassed, nil)
	require.Len(t, r.Results().Tests, 1)
	assert.Equal(t, time.Duration(0), r.Results().Tests[0].Elapsed)
}

func TestRecorderExcludedTest(t *testing.T) {
	var filters RegexFilters
	require.NoError(t, filters.MustNotMatch.Set("TestB$"))
	logger := &recordingTestLogger{}
	r := NewRecorder(filters.AsFilter, logger)
	id := testID("pkg", "TestB")

	assert.False(t, r.Selected(id))
	assert.False(t, r.Started(id, t0))
	assert.False(t, r.Started(id, t0))
	r.Output(id, t0, "ignored")
	r.Finished(id, t0, OutcomeFailed, nil)

	assert.Len(t, r.Results().Tests, 0)
	assert.Equal(t, []loggedEvent{
		{"started", "pkg/TestB", ""},
		{"skipped", "pkg/TestB", "excluded by filter parameters"},
	}, logger.events)
}

func TestCapturedOutputDump(t *testing.T) {
	var l CapturingLogger
	l.Append(t0, "first\n")
	l.Append(t0.Add(time.Millisecond), "second")
	var buf bytes.Buffer
	l.Output().Dump(&buf, "  DEBUG ")
	assert.Equal(t,
		"  DEBUG [2024-03-01 12:00:00.000] first\n  DEBUG [2024-03-01 12:00:00.001] second\n",
		buf.String())
}
