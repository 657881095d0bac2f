package gotest

import (
	"bufio"
	"bytes"
	"encoding/json"
	"io"
	"time"

	"github.com/launchdarkly/testrail-reporter/framework"

	"github.com/pkg/errors"
	"gopkg.in/launchdarkly/go-sdk-common.v2/ldlog"
)

// Actions of a TestEvent, as written by test2json.
const (
	ActionStart  = "start"
	ActionRun    = "run"
	ActionPause  = "pause"
	ActionCont   = "cont"
	ActionPass   = "pass"
	ActionBench  = "bench"
	ActionFail   = "fail"
	ActionOutput = "output"
	ActionSkip   = "skip"
)

// TestEvent is one line of "go test -json" output.
type TestEvent struct {
	Time    time.Time
	Action  string
	Package string
	Test    string
	Elapsed float64
	Output  string
}

// Outcome returns the outcome of a terminal action, or "" if the action is not terminal.
func (e TestEvent) Outcome() string {
	switch e.Action {
	case ActionPass:
		return framework.OutcomePassed
	case ActionFail:
		return framework.OutcomeFailed
	case ActionSkip:
		return framework.OutcomeSkipped
	}
	return ""
}

// DecodeEvents calls handle for each event read from r until EOF or until handle returns an error.
// Lines that are not JSON objects, such as build errors, are logged at debug level and skipped.
func DecodeEvents(r io.Reader, loggers ldlog.Loggers, handle func(TestEvent) error) error {
	reader := bufio.NewReader(r)
	for {
		line, readErr := reader.ReadBytes('\n')
		if trimmed := bytes.TrimSpace(line); len(trimmed) > 0 {
			var event TestEvent
			if trimmed[0] != '{' {
				loggers.Debugf("Ignoring non-JSON test output: %s", trimmed)
			} else if err := json.Unmarshal(trimmed, &event); err != nil {
				loggers.Debugf("Ignoring malformed test event: %s", trimmed)
			} else if err := handle(event); err != nil {
				return err
			}
		}
		if readErr == io.EOF {
			return nil
		}
		if readErr != nil {
			return errors.Wrap(readErr, "could not read test events")
		}
	}
}
