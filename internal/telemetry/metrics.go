// Package telemetry exposes Prometheus metrics for the locomotion runtime.
package telemetry

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Config controls metric collection.
type Config struct {
	// Enabled turns collection on. When false every recorder is a no-op
	// and Handler serves an empty registry.
	Enabled bool

	// Namespace prefixes every metric name. Defaults to "locomotion".
	Namespace string

	// TickBuckets overrides the tick duration histogram buckets (seconds).
	TickBuckets []float64
}

// Metrics is the set of collectors for one locomotion process. The zero
// value and the disabled instance are safe no-ops.
type Metrics struct {
	ticks        *prometheus.CounterVec
	tickDuration prometheus.Histogram
	tickErrors   *prometheus.CounterVec
	phase        prometheus.Gauge
	planShift    *prometheus.GaugeVec
	swingEvents  *prometheus.CounterVec

	published  prometheus.Counter
	dropped    prometheus.Counter
	sendErrors prometheus.Counter

	registry *prometheus.Registry
}

// NewMetrics builds a metrics collector on a private registry.
func NewMetrics(cfg Config) *Metrics {
	if !cfg.Enabled {
		return &Metrics{}
	}

	namespace := cfg.Namespace
	if namespace == "" {
		namespace = "locomotion"
	}
	buckets := cfg.TickBuckets
	if len(buckets) == 0 {
		// A control tick should land well under a millisecond.
		buckets = []float64{1e-5, 5e-5, 1e-4, 5e-4, 1e-3, 5e-3, 1e-2}
	}

	registry := prometheus.NewRegistry()
	m := &Metrics{
		registry: registry,

		ticks: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "ticks_total",
				Help:      "Total number of control ticks evaluated",
			},
			[]string{"state"},
		),
		tickDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "tick_duration_seconds",
				Help:      "Wall time spent evaluating one control tick",
				Buckets:   buckets,
			},
		),
		tickErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "tick_errors_total",
				Help:      "Total number of control ticks that failed",
			},
			[]string{"kind"},
		),
		phase: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "gait_phase",
				Help:      "Index of the active support phase",
			},
		),
		planShift: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "plan_shift_meters",
				Help:      "World-frame plan shift correction per axis",
			},
			[]string{"axis"},
		),
		swingEvents: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "swing_events_total",
				Help:      "Swing re-timing events by kind",
			},
			[]string{"kind"},
		),

		published: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "messages_published_total",
				Help:      "Total number of QP input messages sent",
			},
		),
		dropped: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "messages_dropped_total",
				Help:      "Total number of QP input messages dropped on a full queue",
			},
		),
		sendErrors: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "send_errors_total",
				Help:      "Total number of failed UDP sends",
			},
		),
	}

	registry.MustRegister(
		m.ticks,
		m.tickDuration,
		m.tickErrors,
		m.phase,
		m.planShift,
		m.swingEvents,
		m.published,
		m.dropped,
		m.sendErrors,
	)
	return m
}

// RecordTick records one completed tick with the execution state name and
// its evaluation time.
func (m *Metrics) RecordTick(state string, phase int, duration time.Duration) {
	if m.ticks == nil {
		return
	}
	m.ticks.WithLabelValues(state).Inc()
	m.tickDuration.Observe(duration.Seconds())
	m.phase.Set(float64(phase))
}

// RecordTickError records a failed tick by failure kind ("kinematics",
// "transport", "input").
func (m *Metrics) RecordTickError(kind string) {
	if m.tickErrors == nil {
		return
	}
	m.tickErrors.WithLabelValues(kind).Inc()
}

// SetPlanShift publishes the current drift correction.
func (m *Metrics) SetPlanShift(shift [3]float64) {
	if m.planShift == nil {
		return
	}
	for i, axis := range []string{"x", "y", "z"} {
		m.planShift.WithLabelValues(axis).Set(shift[i])
	}
}

// RecordSwingEvent counts a swing re-timing event ("early_touchdown",
// "late_touchdown").
func (m *Metrics) RecordSwingEvent(kind string) {
	if m.swingEvents == nil {
		return
	}
	m.swingEvents.WithLabelValues(kind).Inc()
}

// AddPublished implements transport.Stats.
func (m *Metrics) AddPublished() {
	if m.published != nil {
		m.published.Inc()
	}
}

// AddDropped implements transport.Stats.
func (m *Metrics) AddDropped() {
	if m.dropped != nil {
		m.dropped.Inc()
	}
}

// AddSendError implements transport.Stats.
func (m *Metrics) AddSendError() {
	if m.sendErrors != nil {
		m.sendErrors.Inc()
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m.registry == nil {
		return promhttp.HandlerFor(prometheus.NewRegistry(), promhttp.HandlerOpts{})
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
