package testrail

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatusFromOutcome(t *testing.T) {
	for outcome, expected := range map[string]StatusCode{
		"passed":  1,
		"failed":  5,
		"skipped": 2,
	} {
		t.Run(outcome, func(t *testing.T) {
			s, err := StatusFromOutcome(outcome)
			require.NoError(t, err)
			assert.Equal(t, expected, s)
			assert.Equal(t, outcome, s.String())
		})
	}
}

func TestStatusFromUnknownOutcome(t *testing.T) {
	for _, outcome := range []string{"", "error", "PASSED", "xfailed"} {
		t.Run(outcome, func(t *testing.T) {
			_, err := StatusFromOutcome(outcome)
			var outcomeErr *UnknownOutcomeError
			require.True(t, errors.As(err, &outcomeErr))
			assert.Equal(t, outcome, outcomeErr.Outcome)
		})
	}
}

func TestPendingResultJSON(t *testing.T) {
	data, err := json.Marshal(PendingResult{CaseID: 2, Status: StatusFailed})
	require.NoError(t, err)
	assert.JSONEq(t, `{"case_id": 2, "status_id": 5}`, string(data))
}
