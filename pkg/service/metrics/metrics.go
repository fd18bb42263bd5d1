package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/secmon-lab/grcore/pkg/domain/model"
)

const namespace = "grcore"

// Metrics holds the rule engine collectors registered on one registry
type Metrics struct {
	registry *prometheus.Registry

	sweepRuns      *prometheus.CounterVec
	sweepDuration  *prometheus.HistogramVec
	sweepEntities  *prometheus.CounterVec
	notifications  *prometheus.CounterVec
	httpRequests   *prometheus.CounterVec
	cascadeOutcome *prometheus.CounterVec
}

// New creates a registry with process collectors and the rule engine metrics
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	f := promauto.With(reg)

	return &Metrics{
		registry: reg,

		// Labels: kind (sweep kind), status (success, error)
		sweepRuns: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "sweep",
			Name:      "runs_total",
			Help:      "Scheduled sweep runs by kind and status",
		}, []string{"kind", "status"}),

		sweepDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "sweep",
			Name:      "duration_seconds",
			Help:      "Scheduled sweep duration in seconds",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30, 60},
		}, []string{"kind"}),

		// Labels: kind, outcome (updated, skipped, errored)
		sweepEntities: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "sweep",
			Name:      "entities_total",
			Help:      "Entities handled by scheduled sweeps by outcome",
		}, []string{"kind", "outcome"}),

		notifications: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notifications_total",
			Help:      "Outbound notifications by event",
		}, []string{"event"}),

		httpRequests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP trigger requests by route and status code",
		}, []string{"route", "code"}),

		// Labels: event (risk_change, control_state, bulk_remap, bulk_close), outcome
		cascadeOutcome: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cascade",
			Name:      "entities_total",
			Help:      "Entities touched by event cascades by outcome",
		}, []string{"event", "outcome"}),
	}
}

// Registry returns the underlying registry
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// ObserveSweep records one sweep run and its per-entity outcomes
func (m *Metrics) ObserveSweep(kind string, summary model.Summary, elapsed time.Duration, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	m.sweepRuns.WithLabelValues(kind, status).Inc()
	m.sweepDuration.WithLabelValues(kind).Observe(elapsed.Seconds())
	m.addSummary(m.sweepEntities, kind, summary)
}

// ObserveCascade records per-entity outcomes of an event cascade
func (m *Metrics) ObserveCascade(event string, summary model.Summary) {
	m.addSummary(m.cascadeOutcome, event, summary)
}

func (m *Metrics) addSummary(vec *prometheus.CounterVec, label string, s model.Summary) {
	vec.WithLabelValues(label, "updated").Add(float64(s.Updated))
	vec.WithLabelValues(label, "skipped").Add(float64(s.Skipped))
	vec.WithLabelValues(label, "errored").Add(float64(s.Errored))
}

// CountNotification records an emitted notification
func (m *Metrics) CountNotification(event string) {
	m.notifications.WithLabelValues(event).Inc()
}

// CountRequest records a served HTTP request
func (m *Metrics) CountRequest(route string, code int) {
	m.httpRequests.WithLabelValues(route, strconv.Itoa(code)).Inc()
}
