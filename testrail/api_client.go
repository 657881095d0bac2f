package testrail

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/launchdarkly/testrail-reporter/metrics"

	"github.com/pkg/errors"
	"gopkg.in/launchdarkly/go-sdk-common.v2/ldlog"
	"gopkg.in/launchdarkly/go-sdk-common.v2/ldvalue"
)

const apiPathPrefix = "index.php?/api/v2/"

// Client is the transport used by the RunController. Paths are TestRail API v2 resources such as
// "get_runs/1". If verifyCert is false, the server's TLS certificate is not verified.
type Client interface {
	Get(ctx context.Context, path string, verifyCert bool) (ldvalue.Value, error)
	Post(ctx context.Context, path string, body ldvalue.Value, verifyCert bool) (ldvalue.Value, error)
}

// APIError is returned when TestRail responds with a non-success status.
type APIError struct {
	Method     string
	Path       string
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("TestRail API returned HTTP %d for %s %s", e.StatusCode, e.Method, e.Path)
	}
	return fmt.Sprintf("TestRail API returned HTTP %d for %s %s (%s)", e.StatusCode, e.Method, e.Path, e.Message)
}

// APIClient is a Client for the TestRail API v2, authenticating with HTTP basic auth. Requests are
// made once; there is no retry.
type APIClient struct {
	apiURL       string
	user         string
	password     string
	verifying    *http.Client
	nonVerifying *http.Client
	loggers      ldlog.Loggers
	metrics      *metrics.Metrics
}

// NewAPIClient creates an APIClient for the TestRail instance at baseURL, such as
// "https://example.testrail.io/".
func NewAPIClient(
	baseURL string,
	user string,
	password string,
	loggers ldlog.Loggers,
	m *metrics.Metrics,
) *APIClient {
	if !strings.HasSuffix(baseURL, "/") {
		baseURL += "/"
	}
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}
	return &APIClient{
		apiURL:       baseURL + apiPathPrefix,
		user:         user,
		password:     password,
		verifying:    &http.Client{},
		nonVerifying: &http.Client{Transport: transport},
		loggers:      loggers,
		metrics:      m,
	}
}

// URL returns the API root that paths are appended to.
func (c *APIClient) URL() string {
	return c.apiURL
}

func (c *APIClient) Get(ctx context.Context, path string, verifyCert bool) (ldvalue.Value, error) {
	return c.send(ctx, http.MethodGet, path, nil, verifyCert)
}

func (c *APIClient) Post(ctx context.Context, path string, body ldvalue.Value, verifyCert bool) (ldvalue.Value, error) {
	data, err := json.Marshal(body)
	if err != nil {
		return ldvalue.Null(), err
	}
	return c.send(ctx, http.MethodPost, path, data, verifyCert)
}

func (c *APIClient) send(ctx context.Context, method, path string, data []byte, verifyCert bool) (ldvalue.Value, error) {
	ret, err := c.doSend(ctx, method, path, data, verifyCert)
	c.metrics.RecordRequest(method, endpointName(path), err)
	return ret, err
}

func (c *APIClient) doSend(ctx context.Context, method, path string, data []byte, verifyCert bool) (ldvalue.Value, error) {
	var body io.Reader
	if data != nil {
		body = bytes.NewBuffer(data)
		c.loggers.Debugf("%s %s: %s", method, path, string(data))
	} else {
		c.loggers.Debugf("%s %s", method, path)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.apiURL+path, body)
	if err != nil {
		return ldvalue.Null(), err
	}
	req.SetBasicAuth(c.user, c.password)
	req.Header.Set("Content-Type", "application/json")

	client := c.verifying
	if !verifyCert {
		client = c.nonVerifying
	}
	resp, err := client.Do(req)
	if err != nil {
		return ldvalue.Null(), errors.Wrapf(err, "%s %s failed", method, path)
	}
	respData, err := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	if err != nil {
		return ldvalue.Null(), errors.Wrapf(err, "error reading response to %s %s", method, path)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := &APIError{Method: method, Path: path, StatusCode: resp.StatusCode}
		var errorBody ldvalue.Value
		if json.Unmarshal(respData, &errorBody) == nil {
			apiErr.Message = errorBody.GetByKey("error").StringValue()
		}
		return ldvalue.Null(), apiErr
	}

	if len(bytes.TrimSpace(respData)) == 0 {
		return ldvalue.ObjectBuild().Build(), nil
	}
	var ret ldvalue.Value
	if err := json.Unmarshal(respData, &ret); err != nil {
		return ldvalue.Null(), errors.Wrapf(err, "malformed JSON response to %s %s", method, path)
	}
	return ret, nil
}

// endpointName returns the resource name of a path, such as "get_runs" for "get_runs/1".
func endpointName(path string) string {
	if i := strings.IndexAny(path, "/&"); i >= 0 {
		return path[:i]
	}
	return path
}
