// Package metrics exposes admission and event lifecycle counters to Prometheus.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"eventparticipation/internal/domain"
)

// Recorder implements domain.AdmissionRecorder and domain.LifecycleRecorder.
type Recorder struct {
	resolved      *prometheus.CounterVec
	limitReached  prometheus.Counter
	batchDuration *prometheus.HistogramVec
	eventStates   *prometheus.CounterVec
}

// NewRecorder registers the collectors on reg.
func NewRecorder(reg prometheus.Registerer) *Recorder {
	f := promauto.With(reg)
	return &Recorder{
		resolved: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "participation_requests_resolved_total",
				Help: "Participation requests moved to a final status",
			},
			[]string{"status"},
		),
		limitReached: f.NewCounter(
			prometheus.CounterOpts{
				Name: "participant_limit_reached_total",
				Help: "Admissions refused because the event was full",
			},
		),
		batchDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "admission_batch_duration_seconds",
				Help:    "Time spent resolving one batch of requests",
				Buckets: prometheus.ExponentialBuckets(0.001, 2, 12),
			},
			[]string{"status"},
		),
		eventStates: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "event_state_transitions_total",
				Help: "Events entering each state",
			},
			[]string{"state"},
		),
	}
}

func (r *Recorder) RequestResolved(status domain.RequestStatus) {
	r.resolved.WithLabelValues(string(status)).Inc()
}

func (r *Recorder) LimitReached() {
	r.limitReached.Inc()
}

func (r *Recorder) BatchDuration(status domain.RequestStatus, d time.Duration) {
	r.batchDuration.WithLabelValues(string(status)).Observe(d.Seconds())
}

func (r *Recorder) EventStateChanged(to domain.EventState) {
	r.eventStates.WithLabelValues(string(to)).Inc()
}
