package testrail

import (
	"fmt"
	"strings"

	"gopkg.in/launchdarkly/go-sdk-common.v2/ldvalue"
)

// Run is the part of a TestRail test run that the RunController reads.
type Run struct {
	ID            int
	Name          string
	IsCompleted   bool
	FailedCount   int
	UntestedCount int
}

func runFromValue(v ldvalue.Value) Run {
	return Run{
		ID:            v.GetByKey("id").IntValue(),
		Name:          v.GetByKey("name").StringValue(),
		IsCompleted:   v.GetByKey("is_completed").BoolValue(),
		FailedCount:   v.GetByKey("failed_count").IntValue(),
		UntestedCount: v.GetByKey("untested_count").IntValue(),
	}
}

// containsName is the run lookup rule: a run matches if its name contains the configured name.
func containsName(runName, name string) bool {
	return strings.Contains(runName, name)
}

// listOf returns the array in a list response. Older TestRail versions return a bare array, newer
// ones wrap it in an object under key along with pagination fields. Only the first page is read;
// _links.next is not followed, so lists longer than one page (250 entries) are truncated.
func listOf(resp ldvalue.Value, key string) (ldvalue.Value, error) {
	switch resp.Type() {
	case ldvalue.ArrayType:
		return resp, nil
	case ldvalue.ObjectType:
		if list := resp.GetByKey(key); list.Type() == ldvalue.ArrayType {
			return list, nil
		}
	}
	return ldvalue.Null(), fmt.Errorf("unexpected TestRail response, expected a list of %s: %s", key, resp.JSONString())
}

func hasKey(v ldvalue.Value, key string) bool {
	for _, k := range v.Keys() {
		if k == key {
			return true
		}
	}
	return false
}

func caseIDsValue(caseIDs []CaseID) ldvalue.Value {
	b := ldvalue.ArrayBuild()
	for _, id := range caseIDs {
		b.Add(ldvalue.Int(int(id)))
	}
	return b.Build()
}

func resultsValue(results []PendingResult) ldvalue.Value {
	b := ldvalue.ArrayBuild()
	for _, r := range results {
		b.Add(ldvalue.ObjectBuild().
			Set("case_id", ldvalue.Int(int(r.CaseID))).
			Set("status_id", ldvalue.Int(int(r.Status))).
			Build())
	}
	return b.Build()
}
