package testrail

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrNoRun is returned when results must be submitted to, or a run closed on, a session whose test
// run could not be resolved.
var ErrNoRun = errors.New("no TestRail test run was resolved for this session")

// CaseIDError means that a marker contains an identifier that is not a valid case id.
type CaseIDError struct {
	Value string
	Err   error
}

func (e *CaseIDError) Error() string {
	return fmt.Sprintf("malformed TestRail case id %q: %s", e.Value, e.Err)
}

func (e *CaseIDError) Unwrap() error {
	return e.Err
}

// CasesNotInSuiteError means that some marked case ids do not belong to the configured suite.
type CasesNotInSuiteError struct {
	SuiteID int
	CaseIDs []CaseID
}

func (e *CasesNotInSuiteError) Error() string {
	ids := make([]string, 0, len(e.CaseIDs))
	for _, id := range e.CaseIDs {
		ids = append(ids, strconv.Itoa(int(id)))
	}
	return fmt.Sprintf("the following cases were not part of suite %d: [%s]", e.SuiteID, strings.Join(ids, ", "))
}

// UnknownOutcomeError means that the host reported an outcome with no TestRail status.
type UnknownOutcomeError struct {
	Outcome string
}

func (e *UnknownOutcomeError) Error() string {
	return fmt.Sprintf("unrecognized test outcome %q", e.Outcome)
}

// IsConfigurationError returns true if err means the marked ids or the suite configuration are
// wrong, as opposed to a transport or service failure.
func IsConfigurationError(err error) bool {
	var caseErr *CaseIDError
	var suiteErr *CasesNotInSuiteError
	return errors.As(err, &caseErr) || errors.As(err, &suiteErr)
}
