package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "agency_proxy"

// Outcome labels for quota decisions
const (
	OutcomeAllowed       = "allowed"
	OutcomeMaster        = "master"
	OutcomeDenied        = "denied"
	OutcomeMissing       = "missing_credential"
	OutcomeInvalid       = "invalid_credential"
	OutcomeStorageFailed = "storage_error"
)

var (
	quotaDecisions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "quota_decisions_total",
			Help:      "Authorization decisions taken by the quota middleware",
		},
		[]string{"endpoint", "outcome"},
	)

	quotaCheckDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "quota_check_duration_seconds",
			Help:      "Latency of credential validation plus quota decision",
			Buckets:   []float64{.001, .0025, .005, .01, .025, .05, .1, .25, .5, 1, 3},
		},
		[]string{"mode"},
	)

	ledgerCommitFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ledger_commit_failures_total",
			Help:      "Post-response ledger writes that failed",
		},
		[]string{"operation"},
	)

	recorderDropped = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "request_log_dropped_total",
			Help:      "Request log entries dropped because the buffer was full",
		},
	)

	recorderWritten = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "request_log_writes_total",
			Help:      "Request log writes by result",
		},
		[]string{"result"},
	)

	datasetRefreshes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "dataset_refreshes_total",
			Help:      "Upstream dataset refresh attempts by result",
		},
		[]string{"result"},
	)

	datasetRecords = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "dataset_records",
			Help:      "Records in the snapshot currently served",
		},
	)

	httpRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by route and status",
		},
		[]string{"method", "route", "status"},
	)

	httpDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)
)

// QuotaDecision counts one middleware outcome for endpoint
func QuotaDecision(endpoint, outcome string) {
	quotaDecisions.WithLabelValues(endpoint, outcome).Inc()
}

// ObserveQuotaCheck records how long authorization took
func ObserveQuotaCheck(mode string, d time.Duration) {
	quotaCheckDuration.WithLabelValues(mode).Observe(d.Seconds())
}

// LedgerCommitFailed counts a failed post-response ledger write
func LedgerCommitFailed(operation string) {
	ledgerCommitFailures.WithLabelValues(operation).Inc()
}

// RequestLogDropped counts an entry the recorder could not buffer
func RequestLogDropped() {
	recorderDropped.Inc()
}

// RequestLogWritten counts a recorder write by result
func RequestLogWritten(ok bool) {
	result := "ok"
	if !ok {
		result = "error"
	}
	recorderWritten.WithLabelValues(result).Inc()
}

// DatasetRefreshed counts a refresh attempt and tracks the record count on success
func DatasetRefreshed(records int, err error) {
	if err != nil {
		datasetRefreshes.WithLabelValues("error").Inc()
		return
	}
	datasetRefreshes.WithLabelValues("ok").Inc()
	datasetRecords.Set(float64(records))
}

// DatasetLoaded updates the served record gauge
func DatasetLoaded(records int) {
	datasetRecords.Set(float64(records))
}

// ObserveHTTP records one served request
func ObserveHTTP(method, route string, status int, d time.Duration) {
	if route == "" {
		route = "unmatched"
	}
	httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	httpDuration.WithLabelValues(method, route).Observe(d.Seconds())
}

// Handler exposes the default registry
func Handler() http.Handler {
	return promhttp.Handler()
}
