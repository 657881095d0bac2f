// Package testrail links a test session to a TestRail instance.
//
// The general model is:
//
// 1. The host test runner collects test items. Each item may carry a "testrail" marker listing one
// or more TestRail case ids, such as "C123".
//
// 2. When collection is complete, the RunController validates the ids against the configured suite
// and resolves a test run: an existing open run found by name, or a newly created one.
//
// 3. As each test finishes, the host reports its outcome and the RunController records a pending
// result for every case id of that test.
//
// 4. When the session ends, the pending results are submitted as one batch and, if requested, the
// run is closed once TestRail shows no failed or untested cases.
//
// The host drives these steps through the Plugin interface; the gotest package is the host used by
// the command-line tool.
package testrail
