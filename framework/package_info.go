// Package framework contains the test-session bookkeeping that is independent of TestRail: test
// identifiers, per-test results and captured output, include/exclude filters, progress logging and
// the final summary.
//
// The general model is:
//
// 1. A host (such as the gotest package) tells a Recorder when each test starts, what it prints
// and how it ends.
//
// 2. The Recorder applies the filters, forwards progress to a TestLogger and accumulates Results.
//
// 3. At the end of the session, PrintResults renders the Results as a table.
package framework
