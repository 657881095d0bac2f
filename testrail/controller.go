package testrail

import (
	"context"
	"fmt"
	"time"

	"github.com/launchdarkly/testrail-reporter/metrics"

	"github.com/pkg/errors"
	"gopkg.in/launchdarkly/go-sdk-common.v2/ldlog"
	"gopkg.in/launchdarkly/go-sdk-common.v2/ldvalue"
)

const runNameTimeFormat = "02-01-2006 15:04:05"

// Plugin is the set of lifecycle hooks that a host test runner calls. The host guarantees the
// order: CollectionFinished once, then TestReported any number of times, then SessionFinished once.
// None of the methods may be called concurrently.
type Plugin interface {
	CollectionFinished(ctx context.Context, items []Item) error
	TestReported(ctx context.Context, report Report) error
	SessionFinished(ctx context.Context) error
}

// Options configures a RunController.
type Options struct {
	ProjectID    int
	SuiteID      int
	AssignedToID int
	// RunName is the name used to look up an existing open run, and the name of a created run. If
	// empty, no lookup is done and created runs get a timestamped name.
	RunName         string
	VerifyCert      bool
	UpdateExisting  bool
	CloseOnComplete bool
}

// RunController owns the TestRail test run of one session.
type RunController struct {
	client  Client
	options Options
	loggers ldlog.Loggers
	metrics *metrics.Metrics
	now     func() time.Time
	runID   int
	runName string
	results []PendingResult
}

// NewRunController creates a RunController. No requests are made until CollectionFinished.
func NewRunController(client Client, options Options, loggers ldlog.Loggers, m *metrics.Metrics) *RunController {
	return &RunController{
		client:  client,
		options: options,
		loggers: loggers,
		metrics: m,
		now:     time.Now,
	}
}

// RunID returns the id of the resolved run, or 0 if there is none.
func (c *RunController) RunID() int {
	return c.runID
}

// RunName returns the name of the resolved run.
func (c *RunController) RunName() string {
	return c.runName
}

// Results returns a copy of the results recorded so far.
func (c *RunController) Results() []PendingResult {
	return append([]PendingResult(nil), c.results...)
}

// CollectionFinished validates the marked case ids and resolves the session's test run.
func (c *RunController) CollectionFinished(ctx context.Context, items []Item) error {
	caseIDs, err := CaseIDsFromItems(items)
	if err != nil {
		return err
	}
	if err := c.ValidateCases(ctx, caseIDs); err != nil {
		return err
	}

	if c.options.RunName != "" {
		c.runID, c.runName, err = c.findOpenRun(ctx, c.options.RunName)
		if err != nil {
			return err
		}
	}

	if c.runID != 0 && c.options.UpdateExisting {
		return c.updateRun(ctx, c.runID, caseIDs)
	}

	name := c.options.RunName
	if name == "" {
		name = DefaultRunName(c.now())
	}
	return c.createRun(ctx, name, caseIDs)
}

// ValidateCases returns a *CasesNotInSuiteError if any of the case ids is not a case of the
// configured suite.
func (c *RunController) ValidateCases(ctx context.Context, caseIDs []CaseID) error {
	resp, err := c.client.Get(ctx, getCasesPath(c.options.ProjectID, c.options.SuiteID), c.options.VerifyCert)
	if err != nil {
		return errors.Wrapf(err, "could not get cases of suite %d", c.options.SuiteID)
	}
	cases, err := listOf(resp, "cases")
	if err != nil {
		return err
	}
	inSuite := make(map[CaseID]bool, cases.Count())
	for i := 0; i < cases.Count(); i++ {
		inSuite[CaseID(cases.GetByIndex(i).GetByKey("id").IntValue())] = true
	}

	var missing []CaseID
	reported := make(map[CaseID]bool)
	for _, id := range caseIDs {
		if !inSuite[id] && !reported[id] {
			missing = append(missing, id)
			reported[id] = true
		}
	}
	if len(missing) > 0 {
		return &CasesNotInSuiteError{SuiteID: c.options.SuiteID, CaseIDs: missing}
	}
	return nil
}

// findOpenRun returns the first run of the project that is not completed and whose name contains
// name. It returns a zero id if there is none.
func (c *RunController) findOpenRun(ctx context.Context, name string) (int, string, error) {
	resp, err := c.client.Get(ctx, getRunsPath(c.options.ProjectID), c.options.VerifyCert)
	if err != nil {
		return 0, "", errors.Wrapf(err, "could not get runs of project %d", c.options.ProjectID)
	}
	runs, err := listOf(resp, "runs")
	if err != nil {
		return 0, "", err
	}
	for i := 0; i < runs.Count(); i++ {
		run := runFromValue(runs.GetByIndex(i))
		if containsName(run.Name, name) && !run.IsCompleted {
			c.loggers.Infof("Found open test run %d (%s)", run.ID, run.Name)
			c.metrics.RecordRun(metrics.RunFound)
			return run.ID, run.Name, nil
		}
	}
	c.loggers.Infof("No open test run matches %q", name)
	return 0, "", nil
}

// updateRun adds any case ids that the run does not have yet.
func (c *RunController) updateRun(ctx context.Context, runID int, caseIDs []CaseID) error {
	resp, err := c.client.Get(ctx, getTestsInRunPath(runID), c.options.VerifyCert)
	if err != nil {
		return errors.Wrapf(err, "could not get tests of run %d", runID)
	}
	tests, err := listOf(resp, "tests")
	if err != nil {
		return err
	}
	existing := make([]CaseID, 0, tests.Count())
	for i := 0; i < tests.Count(); i++ {
		existing = append(existing, CaseID(tests.GetByIndex(i).GetByKey("case_id").IntValue()))
	}

	merged := MergeCaseIDs(existing, caseIDs)
	data := ldvalue.ObjectBuild().
		Set("include_all", ldvalue.Bool(false)).
		Set("case_ids", caseIDsValue(merged)).
		Build()
	if _, err := c.client.Post(ctx, updateRunPath(runID), data, c.options.VerifyCert); err != nil {
		return errors.Wrapf(err, "could not update run %d", runID)
	}
	c.loggers.Infof("Updated test run %d with %d cases", runID, len(merged))
	c.metrics.RecordRun(metrics.RunUpdated)
	return nil
}

// createRun creates a run with the given cases. A rejection carrying an error message, either as
// an error status or in a success response, is logged and leaves the run unresolved.
func (c *RunController) createRun(ctx context.Context, name string, caseIDs []CaseID) error {
	data := ldvalue.ObjectBuild().
		Set("suite_id", ldvalue.Int(c.options.SuiteID)).
		Set("name", ldvalue.String(name)).
		Set("assignedto_id", ldvalue.Int(c.options.AssignedToID)).
		Set("include_all", ldvalue.Bool(false)).
		Set("case_ids", caseIDsValue(caseIDs)).
		Build()
	resp, err := c.client.Post(ctx, addRunPath(c.options.ProjectID), data, c.options.VerifyCert)
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		c.createRunFailed(apiErr.Message)
		return nil
	}
	if err != nil {
		return errors.Wrapf(err, "could not create run %q", name)
	}
	if hasKey(resp, "error") {
		c.createRunFailed(resp.JSONString())
		return nil
	}
	c.runID = resp.GetByKey("id").IntValue()
	c.runName = name
	c.loggers.Infof("Created test run %d (%s) with %d cases", c.runID, name, len(caseIDs))
	c.metrics.RecordRun(metrics.RunCreated)
	return nil
}

func (c *RunController) createRunFailed(message string) {
	c.loggers.Errorf("Failed to create test run: %s", message)
	c.metrics.RecordRun(metrics.RunCreateFailed)
	c.runID, c.runName = 0, ""
}

// TestReported records a pending result for every case id of a marked item. Only PhaseCall reports
// are recorded.
func (c *RunController) TestReported(ctx context.Context, report Report) error {
	if report.Phase != PhaseCall || report.Item == nil {
		return nil
	}
	m := report.Item.Marker(MarkerName)
	if m == nil || len(m.IDs) == 0 {
		return nil
	}
	status, err := StatusFromOutcome(report.Outcome)
	if err != nil {
		return err
	}
	caseIDs, err := CleanCaseIDs(m.IDs)
	if err != nil {
		return err
	}
	for _, id := range caseIDs {
		c.results = append(c.results, PendingResult{CaseID: id, Status: status})
		c.metrics.RecordResult(status.String())
	}
	return nil
}

// SessionFinished submits the pending results and closes the run if configured to.
func (c *RunController) SessionFinished(ctx context.Context) error {
	if len(c.results) > 0 {
		if c.runID == 0 {
			return errors.Wrapf(ErrNoRun, "could not submit %d results", len(c.results))
		}
		data := ldvalue.ObjectBuild().Set("results", resultsValue(c.results)).Build()
		if _, err := c.client.Post(ctx, addResultsPath(c.runID), data, c.options.VerifyCert); err != nil {
			return errors.Wrapf(err, "could not submit results to run %d", c.runID)
		}
		c.loggers.Infof("Submitted %d results to test run %d", len(c.results), c.runID)
	}
	if c.options.CloseOnComplete {
		if c.runID == 0 {
			return errors.Wrap(ErrNoRun, "could not close run")
		}
		return c.closeRunOnComplete(ctx, c.runID)
	}
	return nil
}

// closeRunOnComplete closes the run if it has no failed or untested cases. The check and the close
// are separate requests.
func (c *RunController) closeRunOnComplete(ctx context.Context, runID int) error {
	resp, err := c.client.Get(ctx, getRunPath(runID), c.options.VerifyCert)
	if err != nil {
		return errors.Wrapf(err, "could not get run %d", runID)
	}
	run := runFromValue(resp)
	if run.FailedCount != 0 || run.UntestedCount != 0 {
		c.loggers.Infof("Leaving run %d open: %d failed, %d untested", runID, run.FailedCount, run.UntestedCount)
		return nil
	}
	c.loggers.Infof("Closing run %d", runID)
	if _, err := c.client.Post(ctx, closeRunPath(runID), ldvalue.ObjectBuild().Build(), c.options.VerifyCert); err != nil {
		return errors.Wrapf(err, "could not close run %d", runID)
	}
	c.metrics.RecordRun(metrics.RunClosed)
	return nil
}

// DefaultRunName returns the name given to created runs when no name is configured.
func DefaultRunName(t time.Time) string {
	return fmt.Sprintf("Automated Run %s", t.UTC().Format(runNameTimeFormat))
}

// MergeCaseIDs returns existing followed by every id of added that is not already present.
func MergeCaseIDs(existing, added []CaseID) []CaseID {
	ret := append([]CaseID(nil), existing...)
	seen := make(map[CaseID]bool, len(existing)+len(added))
	for _, id := range existing {
		seen[id] = true
	}
	for _, id := range added {
		if !seen[id] {
			ret = append(ret, id)
			seen[id] = true
		}
	}
	return ret
}
