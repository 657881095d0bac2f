package testrail

// StatusCode is a TestRail result status id.
type StatusCode int

const (
	StatusPassed  StatusCode = 1
	StatusSkipped StatusCode = 2
	StatusFailed  StatusCode = 5
)

// Outcomes reported by the host.
const (
	OutcomePassed  = "passed"
	OutcomeFailed  = "failed"
	OutcomeSkipped = "skipped"
)

var outcomeStatuses = map[string]StatusCode{
	OutcomePassed:  StatusPassed,
	OutcomeFailed:  StatusFailed,
	OutcomeSkipped: StatusSkipped,
}

// StatusFromOutcome maps a host outcome to a TestRail status.
func StatusFromOutcome(outcome string) (StatusCode, error) {
	if s, ok := outcomeStatuses[outcome]; ok {
		return s, nil
	}
	return 0, &UnknownOutcomeError{Outcome: outcome}
}

func (s StatusCode) String() string {
	switch s {
	case StatusPassed:
		return OutcomePassed
	case StatusFailed:
		return OutcomeFailed
	case StatusSkipped:
		return OutcomeSkipped
	default:
		return "unknown"
	}
}

// Phase is the part of a test's execution that a report describes.
type Phase string

const (
	PhaseSetup    Phase = "setup"
	PhaseCall     Phase = "call"
	PhaseTeardown Phase = "teardown"
)

// Report is the outcome of one phase of one collected item.
type Report struct {
	Item    Item
	Phase   Phase
	Outcome string
}

// PendingResult is a result waiting to be submitted at the end of the session.
type PendingResult struct {
	CaseID CaseID     `json:"case_id"`
	Status StatusCode `json:"status_id"`
}
