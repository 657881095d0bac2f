package testrail

import (
	"errors"
	"strconv"
	"strings"
)

// MarkerName is the name of the marker that attaches case ids to a test item.
const MarkerName = "testrail"

// casePrefix is removed from every identifier after upper-casing it.
const casePrefix = "C"

// CaseID is the numeric id of a TestRail case.
type CaseID int

// Marker is the metadata attached to a test item that associates it with TestRail cases.
type Marker struct {
	IDs []string
}

// Item is a collected test as seen by the RunController. Marker returns nil if the item has no
// marker with the given name.
type Item interface {
	Marker(name string) *Marker
}

// ParseCaseID normalizes an identifier such as "C123" or "c123" to its numeric case id.
func ParseCaseID(value string) (CaseID, error) {
	cleaned := strings.TrimSpace(strings.ReplaceAll(strings.ToUpper(value), casePrefix, ""))
	n, err := strconv.Atoi(cleaned)
	if err != nil {
		if numErr, ok := err.(*strconv.NumError); ok {
			err = numErr.Err
		}
		return 0, &CaseIDError{Value: value, Err: err}
	}
	if n < 0 {
		return 0, &CaseIDError{Value: value, Err: errors.New("case ids cannot be negative")}
	}
	return CaseID(n), nil
}

// CleanCaseIDs normalizes every identifier of a marker, preserving order.
func CleanCaseIDs(values []string) ([]CaseID, error) {
	ret := make([]CaseID, 0, len(values))
	for _, v := range values {
		id, err := ParseCaseID(v)
		if err != nil {
			return nil, err
		}
		ret = append(ret, id)
	}
	return ret, nil
}

// CaseIDsFromItems returns the case ids of all marked items in collection order. Duplicates are
// kept; items without a marker contribute nothing.
func CaseIDsFromItems(items []Item) ([]CaseID, error) {
	var ret []CaseID
	for _, item := range items {
		m := item.Marker(MarkerName)
		if m == nil {
			continue
		}
		ids, err := CleanCaseIDs(m.IDs)
		if err != nil {
			return nil, err
		}
		ret = append(ret, ids...)
	}
	return ret, nil
}

func (id CaseID) String() string {
	return casePrefix + strconv.Itoa(int(id))
}
