// Package metrics provides a Prometheus-backed pipeline observer.
package metrics

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/petrijr/copilot/pkg/api"
)

// Observer exports pipeline lifecycle events as Prometheus metrics. It
// implements api.Observer and is safe for concurrent use.
type Observer struct {
	jobsSubmitted prometheus.Counter
	jobsCompleted prometheus.Counter
	jobsFailed    prometheus.Counter
	stageAttempts *prometheus.CounterVec
	stageDuration *prometheus.HistogramVec
}

var _ api.Observer = (*Observer)(nil)

// NewObserver creates the observer and registers its collectors with reg.
func NewObserver(reg prometheus.Registerer) *Observer {
	o := &Observer{
		jobsSubmitted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "copilot",
			Name:      "jobs_submitted_total",
			Help:      "Total number of jobs accepted for processing.",
		}),
		jobsCompleted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "copilot",
			Name:      "jobs_completed_total",
			Help:      "Total number of jobs that finished successfully.",
		}),
		jobsFailed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "copilot",
			Name:      "jobs_failed_total",
			Help:      "Total number of jobs that ended in the failed state.",
		}),
		stageAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "copilot",
			Name:      "stage_attempts_total",
			Help:      "Generation attempts per pipeline stage, including repairs.",
		}, []string{"stage"}),
		stageDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "copilot",
			Name:      "stage_duration_seconds",
			Help:      "Wall-clock time spent per pipeline stage.",
			Buckets:   prometheus.ExponentialBuckets(0.05, 2, 12),
		}, []string{"stage", "outcome"}),
	}
	reg.MustRegister(o.jobsSubmitted, o.jobsCompleted, o.jobsFailed, o.stageAttempts, o.stageDuration)
	return o
}

func (o *Observer) OnJobSubmitted(ctx context.Context, job *api.Job) {
	o.jobsSubmitted.Inc()
}

func (o *Observer) OnStageStart(ctx context.Context, jobID string, stage api.StageTag) {}

func (o *Observer) OnAttempt(ctx context.Context, jobID string, stage api.StageTag, attempt, max int) {
	o.stageAttempts.WithLabelValues(string(stage)).Inc()
}

func (o *Observer) OnStageCompleted(ctx context.Context, jobID string, stage api.StageTag, err error, d time.Duration) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	o.stageDuration.WithLabelValues(string(stage), outcome).Observe(d.Seconds())
}

func (o *Observer) OnJobCompleted(ctx context.Context, job *api.Job) {
	o.jobsCompleted.Inc()
}

func (o *Observer) OnJobFailed(ctx context.Context, job *api.Job, err error) {
	o.jobsFailed.Inc()
}
