package metrics

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/push"
)

const (
	MetricsNamespace = "testrail_reporter"

	// Values of the "action" label of the runs_total counter.
	RunFound        = "found"
	RunCreated      = "created"
	RunCreateFailed = "create_failed"
	RunUpdated      = "updated"
	RunClosed       = "closed"
)

// Metrics counts what a reporting session did. A nil *Metrics is valid and records nothing, so
// components can be used without metrics.
//
// The reporter is a short-lived batch job, so metrics are pushed to a Pushgateway at the end of the
// session rather than scraped.
type Metrics struct {
	registry *prometheus.Registry
	requests *prometheus.CounterVec
	results  *prometheus.CounterVec
	runs     *prometheus.CounterVec
}

func New() *Metrics {
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)
	return &Metrics{
		registry: registry,
		requests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: MetricsNamespace,
			Name:      "api_requests_total",
			Help:      "Count of TestRail API requests",
		}, []string{
			"method",
			"endpoint",
			"result",
		}),
		results: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: MetricsNamespace,
			Name:      "results_total",
			Help:      "Count of case results recorded for submission",
		}, []string{
			"status",
		}),
		runs: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: MetricsNamespace,
			Name:      "runs_total",
			Help:      "Count of test run lifecycle actions",
		}, []string{
			"action",
		}),
	}
}

// Registry returns the registry holding the reporter's metrics.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

func (m *Metrics) RecordRequest(method, endpoint string, err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.requests.WithLabelValues(method, endpoint, result).Inc()
}

func (m *Metrics) RecordResult(status string) {
	if m == nil {
		return
	}
	m.results.WithLabelValues(status).Inc()
}

func (m *Metrics) RecordRun(action string) {
	if m == nil {
		return
	}
	m.runs.WithLabelValues(action).Inc()
}

// Push sends all metrics to the Pushgateway at url, grouped by job and session id.
func (m *Metrics) Push(ctx context.Context, url, job, sessionID string) error {
	if m == nil {
		return nil
	}
	return push.New(url, job).
		Gatherer(m.registry).
		Grouping("session", sessionID).
		PushContext(ctx)
}
