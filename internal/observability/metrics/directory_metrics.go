package metrics

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	directorydomain "github.com/Cookseyyyyyy/ntadmindashboard/internal/directory/domain"
	"github.com/prometheus/client_golang/prometheus"
)

const (
	DirectoryResultOK    = "ok"
	DirectoryResultError = "error"
)

const (
	DirectoryErrorUnauthorized     = "unauthorized"
	DirectoryErrorNotFound         = "not_found"
	DirectoryErrorValidation       = "validation"
	DirectoryErrorNetwork          = "network"
	DirectoryErrorServer           = "server"
	DirectoryErrorDeadlineExceeded = "deadline_exceeded"
	DirectoryErrorUnknown          = "unknown"
)

// DirectoryMetrics captures user-management API health signals.
type DirectoryMetrics struct {
	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
	errors   *prometheus.CounterVec
}

var (
	directoryMetricsOnce sync.Once
	directoryMetrics     *DirectoryMetrics
)

// DirectoryWithConfig returns the singleton directory metrics registry using config labels.
func DirectoryWithConfig(cfg Config) *DirectoryMetrics {
	directoryMetricsOnce.Do(func() {
		directoryMetrics = newDirectoryMetrics(prometheus.DefaultRegisterer, cfg)
	})
	return directoryMetrics
}

func newDirectoryMetrics(registerer prometheus.Registerer, cfg Config) *DirectoryMetrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}
	constLabels := constLabels(cfg)

	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name:        "ntadmin_directory_requests_total",
		Help:        "User-management API calls by operation and result.",
		ConstLabels: constLabels,
	}, []string{"op", "result"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:        "ntadmin_directory_request_duration_seconds",
		Help:        "User-management API latency by operation.",
		Buckets:     []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		ConstLabels: constLabels,
	}, []string{"op"})
	errorsTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name:        "ntadmin_directory_errors_total",
		Help:        "User-management API failures by low-cardinality kind.",
		ConstLabels: constLabels,
	}, []string{"op", "kind"})

	registerer.MustRegister(requests, duration, errorsTotal)

	return &DirectoryMetrics{
		requests: requests,
		duration: duration,
		errors:   errorsTotal,
	}
}

// ObserveRequest records one API call.
func (m *DirectoryMetrics) ObserveRequest(op string, duration time.Duration, err error) {
	if m == nil {
		return
	}
	result := DirectoryResultOK
	if err != nil {
		result = DirectoryResultError
		m.errors.WithLabelValues(op, ClassifyDirectoryError(err)).Inc()
	}
	m.requests.WithLabelValues(op, result).Inc()
	m.duration.WithLabelValues(op).Observe(duration.Seconds())
}

// ClassifyDirectoryError maps directory client errors to metric labels.
func ClassifyDirectoryError(err error) string {
	switch {
	case err == nil:
		return DirectoryErrorUnknown
	case errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled):
		return DirectoryErrorDeadlineExceeded
	case errors.Is(err, directorydomain.ErrUnauthorized):
		return DirectoryErrorUnauthorized
	case errors.Is(err, directorydomain.ErrNotFound):
		return DirectoryErrorNotFound
	case errors.Is(err, directorydomain.ErrValidationFailure):
		return DirectoryErrorValidation
	case errors.Is(err, directorydomain.ErrNetworkFailure):
		return DirectoryErrorNetwork
	case errors.Is(err, directorydomain.ErrServerError):
		return DirectoryErrorServer
	default:
		return DirectoryErrorUnknown
	}
}

// DirectoryObserver fans directory call outcomes out to Prometheus and the
// OTel meter.
type DirectoryObserver struct {
	prom *DirectoryMetrics
	otel *Metrics
}

func NewDirectoryObserver(cfg Config, m *Metrics) *DirectoryObserver {
	return &DirectoryObserver{prom: DirectoryWithConfig(cfg), otel: m}
}

func (o *DirectoryObserver) ObserveRequest(ctx context.Context, op string, duration time.Duration, err error) {
	if o == nil {
		return
	}
	o.prom.ObserveRequest(op, duration, err)
	result := DirectoryResultOK
	if err != nil {
		result = DirectoryResultError
	}
	o.otel.RecordDirectoryRequest(ctx, op, result)
}

func constLabels(cfg Config) prometheus.Labels {
	serviceName := strings.TrimSpace(cfg.ServiceName)
	if serviceName == "" {
		serviceName = "ntadmin"
	}
	environment := strings.TrimSpace(cfg.Environment)
	if environment == "" {
		environment = "unknown"
	}
	return prometheus.Labels{
		"service": serviceName,
		"env":     environment,
	}
}
