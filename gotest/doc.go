// Package gotest makes "go test -json" the host of a testrail.Plugin.
//
// Test functions are marked with a directive comment naming one or more TestRail case ids:
//
//	//testrail:C123,C456
//	func TestLogin(t *testing.T) { ... }
//
// Collect finds the test functions and their markers by parsing source files. A Session then
// calls the plugin hooks as the events of the test run arrive, either live from a Command or
// replayed from a file.
package gotest
