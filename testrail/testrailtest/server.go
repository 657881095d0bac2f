// Package testrailtest provides an in-memory TestRail API for tests.
package testrailtest

import (
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync"

	"gopkg.in/launchdarkly/go-sdk-common.v2/ldvalue"
)

const apiPath = "/index.php"
const apiQueryPrefix = "/api/v2/"

// Run is a test run held by the Server.
type Run struct {
	ID          int
	Name        string
	SuiteID     int
	IsCompleted bool
	CaseIDs     []int
	// Statuses holds the latest status submitted for each case.
	Statuses map[int]int
}

// Request is a request received by the Server.
type Request struct {
	Method   string
	Endpoint string
	Args     []string
	Body     ldvalue.Value
}

// Server emulates the parts of the TestRail API v2 that the reporter uses. Use it as the handler of
// an httptest.Server.
type Server struct {
	// Suites maps a suite id to the ids of its cases.
	Suites map[int][]int
	// Paginated makes list endpoints return objects such as {"runs": [...]} instead of arrays.
	Paginated bool
	// CreateRunError, if set, makes add_run fail with this message in the "error" field.
	CreateRunError string
	// CreateRunErrorStatus is the status of failed add_run responses. The default is 400, which is
	// what TestRail answers for an invalid suite or assignee.
	CreateRunErrorStatus int

	runs      []*Run
	lastRunID int
	requests  []Request
	lock      sync.Mutex
}

// NewServer creates a Server with one suite.
func NewServer(suiteID int, caseIDs ...int) *Server {
	return &Server{Suites: map[int][]int{suiteID: caseIDs}}
}

// AddRun adds an existing run and returns it.
func (s *Server) AddRun(name string, suiteID int, isCompleted bool, caseIDs ...int) *Run {
	s.lock.Lock()
	defer s.lock.Unlock()
	return s.addRun(name, suiteID, isCompleted, caseIDs)
}

func (s *Server) addRun(name string, suiteID int, isCompleted bool, caseIDs []int) *Run {
	s.lastRunID++
	r := &Run{
		ID:          s.lastRunID,
		Name:        name,
		SuiteID:     suiteID,
		IsCompleted: isCompleted,
		CaseIDs:     append([]int(nil), caseIDs...),
		Statuses:    make(map[int]int),
	}
	s.runs = append(s.runs, r)
	return r
}

// Runs returns copies of all runs.
func (s *Server) Runs() []Run {
	s.lock.Lock()
	defer s.lock.Unlock()
	ret := make([]Run, 0, len(s.runs))
	for _, r := range s.runs {
		c := *r
		c.CaseIDs = append([]int(nil), r.CaseIDs...)
		c.Statuses = make(map[int]int, len(r.Statuses))
		for k, v := range r.Statuses {
			c.Statuses[k] = v
		}
		ret = append(ret, c)
	}
	return ret
}

// Requests returns all requests received so far.
func (s *Server) Requests() []Request {
	s.lock.Lock()
	defer s.lock.Unlock()
	return append([]Request(nil), s.requests...)
}

// RequestsTo returns the requests received for one endpoint, such as "add_run".
func (s *Server) RequestsTo(endpoint string) []Request {
	var ret []Request
	for _, r := range s.Requests() {
		if r.Endpoint == endpoint {
			ret = append(ret, r)
		}
	}
	return ret
}

func (s *Server) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	if req.URL.Path != apiPath || !strings.HasPrefix(req.URL.RawQuery, apiQueryPrefix) {
		writeError(w, http.StatusNotFound, "unknown path "+req.URL.String())
		return
	}
	if _, _, ok := req.BasicAuth(); !ok {
		writeError(w, http.StatusUnauthorized, "authentication failed: missing credentials")
		return
	}
	route := strings.TrimPrefix(req.URL.RawQuery, apiQueryPrefix)
	var params []string
	if i := strings.Index(route, "&"); i >= 0 {
		params = strings.Split(route[i+1:], "&")
		route = route[:i]
	}
	parts := strings.Split(strings.TrimSuffix(route, "/"), "/")
	endpoint, args := parts[0], append(parts[1:], params...)

	body := ldvalue.Null()
	if req.Body != nil {
		data, _ := io.ReadAll(req.Body)
		_ = req.Body.Close()
		if len(data) > 0 {
			if err := json.Unmarshal(data, &body); err != nil {
				writeError(w, http.StatusBadRequest, "invalid JSON body")
				return
			}
		}
	}

	s.lock.Lock()
	defer s.lock.Unlock()
	s.requests = append(s.requests, Request{Method: req.Method, Endpoint: endpoint, Args: args, Body: body})

	id := 0
	if len(args) > 0 {
		id, _ = strconv.Atoi(args[0])
	}
	switch {
	case req.Method == http.MethodGet && endpoint == "get_cases":
		s.getCases(w, params)
	case req.Method == http.MethodGet && endpoint == "get_runs":
		s.getRuns(w)
	case req.Method == http.MethodGet && endpoint == "get_run":
		s.withRun(w, id, func(r *Run) { writeJSON(w, runValue(r)) })
	case req.Method == http.MethodGet && endpoint == "get_tests":
		s.withRun(w, id, func(r *Run) { s.getTests(w, r) })
	case req.Method == http.MethodPost && endpoint == "add_run":
		s.createRun(w, body)
	case req.Method == http.MethodPost && endpoint == "update_run":
		s.withRun(w, id, func(r *Run) { s.updateRun(w, r, body) })
	case req.Method == http.MethodPost && endpoint == "add_results_for_cases":
		s.withRun(w, id, func(r *Run) { s.addResults(w, r, body) })
	case req.Method == http.MethodPost && endpoint == "close_run":
		s.withRun(w, id, func(r *Run) {
			r.IsCompleted = true
			writeJSON(w, runValue(r))
		})
	default:
		writeError(w, http.StatusBadRequest, "unknown method "+endpoint)
	}
}

func (s *Server) getCases(w http.ResponseWriter, params []string) {
	suiteID := 0
	for _, p := range params {
		if v := strings.TrimPrefix(p, "suite_id="); v != p {
			suiteID, _ = strconv.Atoi(v)
		}
	}
	caseIDs, ok := s.Suites[suiteID]
	if !ok {
		writeError(w, http.StatusBadRequest, "Field :suite_id is not a valid test suite.")
		return
	}
	b := ldvalue.ArrayBuild()
	for _, id := range caseIDs {
		b.Add(ldvalue.ObjectBuild().Set("id", ldvalue.Int(id)).Set("suite_id", ldvalue.Int(suiteID)).Build())
	}
	s.writeList(w, "cases", b.Build())
}

func (s *Server) getRuns(w http.ResponseWriter) {
	b := ldvalue.ArrayBuild()
	for _, r := range s.runs {
		b.Add(runValue(r))
	}
	s.writeList(w, "runs", b.Build())
}

func (s *Server) getTests(w http.ResponseWriter, r *Run) {
	b := ldvalue.ArrayBuild()
	for i, caseID := range r.CaseIDs {
		b.Add(ldvalue.ObjectBuild().
			Set("id", ldvalue.Int(r.ID*1000+i)).
			Set("case_id", ldvalue.Int(caseID)).
			Set("run_id", ldvalue.Int(r.ID)).
			Build())
	}
	s.writeList(w, "tests", b.Build())
}

func (s *Server) createRun(w http.ResponseWriter, body ldvalue.Value) {
	if s.CreateRunError != "" {
		status := s.CreateRunErrorStatus
		if status == 0 {
			status = http.StatusBadRequest
		}
		writeError(w, status, s.CreateRunError)
		return
	}
	r := s.addRun(body.GetByKey("name").StringValue(), body.GetByKey("suite_id").IntValue(), false,
		intsOf(body.GetByKey("case_ids")))
	writeJSON(w, runValue(r))
}

func (s *Server) updateRun(w http.ResponseWriter, r *Run, body ldvalue.Value) {
	if r.IsCompleted {
		writeError(w, http.StatusBadRequest, "Field :run_id refers to a completed test run.")
		return
	}
	if ids := body.GetByKey("case_ids"); !ids.IsNull() {
		r.CaseIDs = intsOf(ids)
	}
	writeJSON(w, runValue(r))
}

func (s *Server) addResults(w http.ResponseWriter, r *Run, body ldvalue.Value) {
	results := body.GetByKey("results")
	b := ldvalue.ArrayBuild()
	for i := 0; i < results.Count(); i++ {
		result := results.GetByIndex(i)
		caseID := result.GetByKey("case_id").IntValue()
		if !containsInt(r.CaseIDs, caseID) {
			writeError(w, http.StatusBadRequest, "Field :results contains a case that is not part of the run.")
			return
		}
		r.Statuses[caseID] = result.GetByKey("status_id").IntValue()
		b.Add(result)
	}
	writeJSON(w, b.Build())
}

func (s *Server) withRun(w http.ResponseWriter, id int, action func(*Run)) {
	for _, r := range s.runs {
		if r.ID == id {
			action(r)
			return
		}
	}
	writeError(w, http.StatusBadRequest, "Field :run_id is not a valid test run.")
}

func (s *Server) writeList(w http.ResponseWriter, key string, list ldvalue.Value) {
	if !s.Paginated {
		writeJSON(w, list)
		return
	}
	writeJSON(w, ldvalue.ObjectBuild().
		Set("offset", ldvalue.Int(0)).
		Set("size", ldvalue.Int(list.Count())).
		Set(key, list).
		Build())
}

func runValue(r *Run) ldvalue.Value {
	var passed, failed, untested int
	for _, caseID := range r.CaseIDs {
		switch r.Statuses[caseID] {
		case 0:
			untested++
		case 5:
			failed++
		case 1:
			passed++
		}
	}
	return ldvalue.ObjectBuild().
		Set("id", ldvalue.Int(r.ID)).
		Set("name", ldvalue.String(r.Name)).
		Set("suite_id", ldvalue.Int(r.SuiteID)).
		Set("is_completed", ldvalue.Bool(r.IsCompleted)).
		Set("passed_count", ldvalue.Int(passed)).
		Set("failed_count", ldvalue.Int(failed)).
		Set("untested_count", ldvalue.Int(untested)).
		Build()
}

func intsOf(v ldvalue.Value) []int {
	ret := make([]int, 0, v.Count())
	for i := 0; i < v.Count(); i++ {
		ret = append(ret, v.GetByIndex(i).IntValue())
	}
	return ret
}

func containsInt(values []int, n int) bool {
	for _, v := range values {
		if v == n {
			return true
		}
	}
	return false
}

func writeJSON(w http.ResponseWriter, v ldvalue.Value) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(v.JSONString()))
}

func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(ldvalue.ObjectBuild().Set("error", ldvalue.String(message)).Build().JSONString()))
}
