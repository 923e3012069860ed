// Package metrics provides measurement recording for the delegation
// subsystem with a Prometheus-backed implementation and a no-op default.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder receives delegation measurements. Implementations must be safe
// for concurrent use; all methods are called from delegation goroutines.
type Recorder interface {
	// ObserveDelegation records a terminal delegation outcome.
	ObserveDelegation(agentType, status string, dur time.Duration)

	// ObserveSlotWait records time spent queued for an admission slot.
	ObserveSlotWait(agentType string, dur time.Duration)

	// SetInFlight records the current number of executing delegations for
	// an agent type.
	SetInFlight(agentType string, n int)

	// IncCacheAccess records a shared cache lookup.
	IncCacheAccess(hit bool)
}

// NoopRecorder discards all measurements. It is the default so callers
// without a metrics pipeline pay nothing.
type NoopRecorder struct{}

// ObserveDelegation implements Recorder.
func (NoopRecorder) ObserveDelegation(string, string, time.Duration) {}

// ObserveSlotWait implements Recorder.
func (NoopRecorder) ObserveSlotWait(string, time.Duration) {}

// SetInFlight implements Recorder.
func (NoopRecorder) SetInFlight(string, int) {}

// IncCacheAccess implements Recorder.
func (NoopRecorder) IncCacheAccess(bool) {}

// PrometheusRecorder implements Recorder using Prometheus collectors.
type PrometheusRecorder struct {
	delegationsTotal   *prometheus.CounterVec
	delegationDuration *prometheus.HistogramVec
	slotWaitDuration   *prometheus.HistogramVec
	tasksInFlight      *prometheus.GaugeVec
	cacheRequestsTotal *prometheus.CounterVec
}

// NewPrometheusRecorder creates a Prometheus-backed recorder registered on
// reg (the default registerer when nil).
func NewPrometheusRecorder(reg prometheus.Registerer) *PrometheusRecorder {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &PrometheusRecorder{
		delegationsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "taskmesh_delegations_total",
				Help: "Total number of delegations by agent type and terminal status",
			},
			[]string{"agent_type", "status"},
		),
		delegationDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "taskmesh_delegation_duration_seconds",
				Help:    "Wall-clock duration of delegations in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"agent_type"},
		),
		slotWaitDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "taskmesh_slot_wait_duration_seconds",
				Help:    "Time spent waiting for an admission slot",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"agent_type"},
		),
		tasksInFlight: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "taskmesh_tasks_in_flight",
				Help: "Delegations currently executing per agent type",
			},
			[]string{"agent_type"},
		),
		cacheRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "taskmesh_cache_requests_total",
				Help: "Shared cache lookups by outcome",
			},
			[]string{"outcome"},
		),
	}
}

// ObserveDelegation implements Recorder.
func (p *PrometheusRecorder) ObserveDelegation(agentType, status string, dur time.Duration) {
	p.delegationsTotal.WithLabelValues(agentType, status).Inc()
	p.delegationDuration.WithLabelValues(agentType).Observe(dur.Seconds())
}

// ObserveSlotWait implements Recorder.
func (p *PrometheusRecorder) ObserveSlotWait(agentType string, dur time.Duration) {
	p.slotWaitDuration.WithLabelValues(agentType).Observe(dur.Seconds())
}

// SetInFlight implements Recorder.
func (p *PrometheusRecorder) SetInFlight(agentType string, n int) {
	p.tasksInFlight.WithLabelValues(agentType).Set(float64(n))
}

// IncCacheAccess implements Recorder.
func (p *PrometheusRecorder) IncCacheAccess(hit bool) {
	outcome := "miss"
	if hit {
		outcome = "hit"
	}
	p.cacheRequestsTotal.WithLabelValues(outcome).Inc()
}
