package httpapi

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/jmylchreest/toaster/internal/model"
	"github.com/jmylchreest/toaster/internal/store"
	"github.com/jmylchreest/toaster/internal/toast"
)

// Submission sources.
const (
	SourceHTTP = "http"
	SourceDBus = "dbus"
)

// Metrics holds the Prometheus metrics for toast traffic.
type Metrics struct {
	registry *prometheus.Registry

	submitted     *prometheus.CounterVec
	hidden        *prometheus.CounterVec
	displayErrors prometheus.Counter
}

// NewMetrics registers the toast metrics on a fresh registry.
// The active gauge reads the queue length at scrape time.
func NewMetrics(queue *store.Queue) *Metrics {
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)

	m := &Metrics{
		registry: registry,

		submitted: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "toaster",
			Name:      "toasts_submitted_total",
			Help:      "Total number of toasts submitted, by source and style",
		}, []string{"source", "class"}),

		hidden: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "toaster",
			Name:      "toasts_hidden_total",
			Help:      "Total number of toasts hidden, by reason",
		}, []string{"reason"}),

		displayErrors: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "toaster",
			Name:      "display_errors_total",
			Help:      "Total number of toasts that could not be displayed",
		}),
	}

	factory.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: "toaster",
		Name:      "toasts_active",
		Help:      "Number of toasts currently queued",
	}, func() float64 {
		return float64(queue.Len())
	})

	return m
}

// Registry returns the registry the metrics are registered on.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// ObserveSubmit records a submission and, when err is a display failure, a display error.
func (m *Metrics) ObserveSubmit(source, class string, err error) {
	if class == "" {
		class = "none"
	}
	m.submitted.WithLabelValues(source, class).Inc()

	var displayErr *toast.DisplayError
	if errors.As(err, &displayErr) {
		m.displayErrors.Inc()
	}
}

// ObserveHidden records a hidden toast. It matches toast.HiddenHook.
func (m *Metrics) ObserveHidden(_ *model.Toast, reason string) {
	m.hidden.WithLabelValues(reason).Inc()
}
