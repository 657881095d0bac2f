package testrail

import (
	"context"
	"errors"
	"net/http/httptest"
	"testing"

	"github.com/launchdarkly/testrail-reporter/metrics"

	"github.com/launchdarkly/go-test-helpers/v2/httphelpers"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/launchdarkly/go-sdk-common.v2/ldlog"
	"gopkg.in/launchdarkly/go-sdk-common.v2/ldvalue"
)

func newTestAPIClient(url string) *APIClient {
	return NewAPIClient(url, "user@example.com", "secret", ldlog.NewDisabledLoggers(), nil)
}

func TestAPIClientURL(t *testing.T) {
	assert.Equal(t, "http://testrail/index.php?/api/v2/", newTestAPIClient("http://testrail").URL())
	assert.Equal(t, "http://testrail/index.php?/api/v2/", newTestAPIClient("http://testrail/").URL())
}

func TestAPIClientGet(t *testing.T) {
	handler, requestsCh := httphelpers.RecordingHandler(
		httphelpers.HandlerWithJSONResponse([]interface{}{map[string]interface{}{"id": 1}}, nil))
	httphelpers.WithServer(handler, func(server *httptest.Server) {
		resp, err := newTestAPIClient(server.URL).Get(context.Background(), "get_cases/1&suite_id=2", true)
		require.NoError(t, err)
		assert.Equal(t, 1, resp.GetByIndex(0).GetByKey("id").IntValue())

		r := <-requestsCh
		assert.Equal(t, "GET", r.Request.Method)
		assert.Equal(t, "/index.php", r.Request.URL.Path)
		assert.Equal(t, "/api/v2/get_cases/1&suite_id=2", r.Request.URL.RawQuery)
		assert.Equal(t, "application/json", r.Request.Header.Get("Content-Type"))
		user, password, ok := r.Request.BasicAuth()
		require.True(t, ok)
		assert.Equal(t, "user@example.com", user)
		assert.Equal(t, "secret", password)
	})
}

func TestAPIClientPost(t *testing.T) {
	handler, requestsCh := httphelpers.RecordingHandler(
		httphelpers.HandlerWithJSONResponse(map[string]interface{}{"id": 9}, nil))
	httphelpers.WithServer(handler, func(server *httptest.Server) {
		body := ldvalue.ObjectBuild().Set("name", ldvalue.String("x")).Build()
		resp, err := newTestAPIClient(server.URL).Post(context.Background(), "add_run/1", body, true)
		require.NoError(t, err)
		assert.Equal(t, 9, resp.GetByKey("id").IntValue())

		r := <-requestsCh
		assert.Equal(t, "POST", r.Request.Method)
		assert.JSONEq(t, `{"name": "x"}`, string(r.Body))
	})
}

func TestAPIClientEmptyResponseIsEmptyObject(t *testing.T) {
	httphelpers.WithServer(httphelpers.HandlerWithStatus(200), func(server *httptest.Server) {
		resp, err := newTestAPIClient(server.URL).Post(context.Background(), "close_run/1", ldvalue.Null(), true)
		require.NoError(t, err)
		assert.Equal(t, ldvalue.ObjectType, resp.Type())
	})
}

func TestAPIClientErrorStatus(t *testing.T) {
	handler := httphelpers.HandlerWithResponse(400, nil, []byte(`{"error": "Field :run_id is not a valid test run."}`))
	httphelpers.WithServer(handler, func(server *httptest.Server) {
		_, err := newTestAPIClient(server.URL).Get(context.Background(), "get_run/5", true)
		var apiErr *APIError
		require.True(t, errors.As(err, &apiErr))
		assert.Equal(t, 400, apiErr.StatusCode)
		assert.Equal(t, "GET", apiErr.Method)
		assert.Equal(t, "get_run/5", apiErr.Path)
		assert.Equal(t, "Field :run_id is not a valid test run.", apiErr.Message)
		assert.Contains(t, err.Error(), "HTTP 400")
	})
}

func TestAPIClientErrorStatusWithoutJSON(t *testing.T) {
	handler := httphelpers.HandlerWithResponse(502, nil, []byte("bad gateway"))
	httphelpers.WithServer(handler, func(server *httptest.Server) {
		_, err := newTestAPIClient(server.URL).Get(context.Background(), "get_runs/1", true)
		var apiErr *APIError
		require.True(t, errors.As(err, &apiErr))
		assert.Equal(t, 502, apiErr.StatusCode)
		assert.Equal(t, "", apiErr.Message)
	})
}

func TestAPIClientMalformedJSON(t *testing.T) {
	handler := httphelpers.HandlerWithResponse(200, nil, []byte("{not json"))
	httphelpers.WithServer(handler, func(server *httptest.Server) {
		_, err := newTestAPIClient(server.URL).Get(context.Background(), "get_runs/1", true)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "malformed JSON response to GET get_runs/1")
	})
}

func TestAPIClientNetworkError(t *testing.T) {
	server := httptest.NewServer(httphelpers.HandlerWithStatus(200))
	url := server.URL
	server.Close()
	_, err := newTestAPIClient(url).Get(context.Background(), "get_runs/1", true)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "GET get_runs/1 failed")
}

func TestAPIClientCertificateVerification(t *testing.T) {
	server := httptest.NewTLSServer(httphelpers.HandlerWithJSONResponse([]interface{}{}, nil))
	defer server.Close()
	client := newTestAPIClient(server.URL)

	_, err := client.Get(context.Background(), "get_runs/1", true)
	assert.Error(t, err, "self-signed certificate should be rejected when verifying")

	_, err = client.Get(context.Background(), "get_runs/1", false)
	assert.NoError(t, err)
}

func TestAPIClientRecordsRequestMetrics(t *testing.T) {
	m := metrics.New()
	handler := httphelpers.HandlerWithJSONResponse([]interface{}{}, nil)
	httphelpers.WithServer(handler, func(server *httptest.Server) {
		client := NewAPIClient(server.URL, "u", "p", ldlog.NewDisabledLoggers(), m)
		_, err := client.Get(context.Background(), "get_runs/1", true)
		require.NoError(t, err)
		_, err = client.Get(context.Background(), "get_runs/2", true)
		require.NoError(t, err)

		count, err := testutil.GatherAndCount(m.Registry(), "testrail_reporter_api_requests_total")
		require.NoError(t, err)
		assert.Equal(t, 1, count)
	})
}

func TestEndpointName(t *testing.T) {
	assert.Equal(t, "get_runs", endpointName("get_runs/1"))
	assert.Equal(t, "add_results_for_cases", endpointName("add_results_for_cases/4/"))
	assert.Equal(t, "get_cases", endpointName("get_cases/1&suite_id=2"))
	assert.Equal(t, "get_case_fields", endpointName("get_case_fields"))
}
