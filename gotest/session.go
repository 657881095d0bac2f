package gotest

import (
	"context"
	"io"
	"strings"

	"github.com/launchdarkly/testrail-reporter/framework"
	"github.com/launchdarkly/testrail-reporter/testrail"

	"gopkg.in/launchdarkly/go-sdk-common.v2/ldlog"
)

// Session feeds the events of one "go test -json" run to a testrail.Plugin and a
// framework.Recorder. Events for subtests are attributed to their top-level test. It is not safe
// for concurrent use.
type Session struct {
	plugin         testrail.Plugin
	recorder       *framework.Recorder
	loggers        ldlog.Loggers
	cases          map[string]*Case
	selected       []*Case
	failedPackages []string
}

// NewSession creates a Session for the collected cases. The plugin may be nil, in which case the
// session only records results.
func NewSession(
	cases []*Case,
	plugin testrail.Plugin,
	filter framework.Filter,
	testLogger framework.TestLogger,
	loggers ldlog.Loggers,
) *Session {
	s := &Session{
		plugin:   plugin,
		recorder: framework.NewRecorder(filter, testLogger),
		loggers:  loggers,
		cases:    make(map[string]*Case, len(cases)),
	}
	for _, c := range cases {
		s.cases[c.ID().String()] = c
		if s.recorder.Selected(c.ID()) {
			s.selected = append(s.selected, c)
		}
	}
	return s
}

// Selected returns the collected cases that pass the filter.
func (s *Session) Selected() []*Case {
	return s.selected
}

// Start passes the selected cases to the plugin's CollectionFinished hook.
func (s *Session) Start(ctx context.Context) error {
	if s.plugin == nil {
		return nil
	}
	items := make([]testrail.Item, 0, len(s.selected))
	for _, c := range s.selected {
		items = append(items, c)
	}
	return s.plugin.CollectionFinished(ctx, items)
}

// Handle processes one event. It returns an error only if the plugin does.
func (s *Session) Handle(ctx context.Context, event TestEvent) error {
	if event.Test == "" {
		if event.Action == ActionFail {
			s.loggers.Warnf("Package %s failed", event.Package)
			s.failedPackages = append(s.failedPackages, event.Package)
		}
		return nil
	}

	name, subtest := event.Test, false
	if i := strings.Index(name, "/"); i >= 0 {
		name, subtest = name[:i], true
	}
	id := testID(event.Package, name)

	switch {
	case event.Action == ActionRun && !subtest:
		s.recorder.Started(id, event.Time)
	case event.Action == ActionOutput:
		s.recorder.Output(id, event.Time, event.Output)
	case !subtest && event.Outcome() != "":
		return s.finish(ctx, id, event)
	}
	return nil
}

func (s *Session) finish(ctx context.Context, id framework.TestID, event TestEvent) error {
	if !s.recorder.Selected(id) {
		s.recorder.Finished(id, event.Time, event.Outcome(), nil)
		return nil
	}
	var item testrail.Item
	var caseIDs []string
	if c := s.cases[id.String()]; c != nil {
		item = c
		caseIDs = c.IDs
	} else {
		s.loggers.Debugf("Test %s was not found in the collected sources", id)
	}
	s.recorder.Finished(id, event.Time, event.Outcome(), caseIDs)
	if s.plugin == nil {
		return nil
	}
	return s.plugin.TestReported(ctx, testrail.Report{Item: item, Phase: testrail.PhaseCall, Outcome: event.Outcome()})
}

// Consume reads events from r until EOF, stopping at the first error returned by the plugin.
func (s *Session) Consume(ctx context.Context, r io.Reader) error {
	return DecodeEvents(r, s.loggers, func(event TestEvent) error {
		return s.Handle(ctx, event)
	})
}

// Finish calls the plugin's SessionFinished hook and returns the recorded results.
func (s *Session) Finish(ctx context.Context) (framework.Results, error) {
	results := s.recorder.Results()
	if s.plugin == nil {
		return results, nil
	}
	return results, s.plugin.SessionFinished(ctx)
}

// FailedPackages returns the packages that reported a failure, either from failed tests or because
// the package did not build.
func (s *Session) FailedPackages() []string {
	return s.failedPackages
}
