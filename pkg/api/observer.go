package api

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"
)

// Observer receives callbacks from the orchestrator for logging and metrics.
//
// Implementations should be fast and non-blocking; heavy work should be done
// asynchronously so as not to delay job execution.
type Observer interface {
	// OnJobSubmitted is called once when a job has been created and its
	// first stage task enqueued.
	OnJobSubmitted(ctx context.Context, job *Job)

	// OnStageStart is called before a stage begins executing for a job.
	OnStageStart(ctx context.Context, jobID string, stage StageTag)

	// OnAttempt is called before each transform/repair (or downstream
	// generate) attempt. attempt is 1-based; max is the retry ceiling.
	OnAttempt(ctx context.Context, jobID string, stage StageTag, attempt, max int)

	// OnStageCompleted is called after a stage finishes, for both successes
	// and failures (err != nil).
	OnStageCompleted(ctx context.Context, jobID string, stage StageTag, err error, duration time.Duration)

	// OnJobCompleted is called when a job reaches COMPLETED.
	OnJobCompleted(ctx context.Context, job *Job)

	// OnJobFailed is called when a job reaches FAILED.
	OnJobFailed(ctx context.Context, job *Job, err error)
}

// NoopObserver is an Observer that does nothing.
// It is used as the default when no observer is configured.
type NoopObserver struct{}

func (NoopObserver) OnJobSubmitted(ctx context.Context, job *Job)                         {}
func (NoopObserver) OnStageStart(ctx context.Context, jobID string, stage StageTag)       {}
func (NoopObserver) OnAttempt(ctx context.Context, jobID string, stage StageTag, a, m int) {}
func (NoopObserver) OnStageCompleted(ctx context.Context, jobID string, stage StageTag, err error, d time.Duration) {
}
func (NoopObserver) OnJobCompleted(ctx context.Context, job *Job)            {}
func (NoopObserver) OnJobFailed(ctx context.Context, job *Job, err error)    {}

// CompositeObserver fans out events to multiple observers.
type CompositeObserver struct {
	observers []Observer
}

// NewCompositeObserver creates an Observer that forwards events to each
// non-nil observer in obs.
func NewCompositeObserver(obs ...Observer) Observer {
	filtered := make([]Observer, 0, len(obs))
	for _, o := range obs {
		if o != nil {
			filtered = append(filtered, o)
		}
	}
	if len(filtered) == 0 {
		return NoopObserver{}
	}
	if len(filtered) == 1 {
		return filtered[0]
	}
	return &CompositeObserver{observers: filtered}
}

func (c *CompositeObserver) OnJobSubmitted(ctx context.Context, job *Job) {
	for _, o := range c.observers {
		o.OnJobSubmitted(ctx, job)
	}
}

func (c *CompositeObserver) OnStageStart(ctx context.Context, jobID string, stage StageTag) {
	for _, o := range c.observers {
		o.OnStageStart(ctx, jobID, stage)
	}
}

func (c *CompositeObserver) OnAttempt(ctx context.Context, jobID string, stage StageTag, attempt, max int) {
	for _, o := range c.observers {
		o.OnAttempt(ctx, jobID, stage, attempt, max)
	}
}

func (c *CompositeObserver) OnStageCompleted(ctx context.Context, jobID string, stage StageTag, err error, d time.Duration) {
	for _, o := range c.observers {
		o.OnStageCompleted(ctx, jobID, stage, err, d)
	}
}

func (c *CompositeObserver) OnJobCompleted(ctx context.Context, job *Job) {
	for _, o := range c.observers {
		o.OnJobCompleted(ctx, job)
	}
}

func (c *CompositeObserver) OnJobFailed(ctx context.Context, job *Job, err error) {
	for _, o := range c.observers {
		o.OnJobFailed(ctx, job, err)
	}
}

// LoggingObserver writes structured logs using log/slog.
type LoggingObserver struct {
	Logger *slog.Logger
}

// NewLoggingObserver creates an Observer that logs job / stage lifecycle
// events using the provided slog.Logger. If logger is nil, slog.Default()
// is used.
func NewLoggingObserver(logger *slog.Logger) Observer {
	if logger == nil {
		logger = slog.Default()
	}
	return &LoggingObserver{Logger: logger}
}

func (o *LoggingObserver) OnJobSubmitted(ctx context.Context, job *Job) {
	o.Logger.InfoContext(ctx, "job_submitted",
		slog.String("job_id", job.ID),
	)
}

func (o *LoggingObserver) OnStageStart(ctx context.Context, jobID string, stage StageTag) {
	o.Logger.DebugContext(ctx, "stage_start",
		slog.String("job_id", jobID),
		slog.String("stage", string(stage)),
	)
}

func (o *LoggingObserver) OnAttempt(ctx context.Context, jobID string, stage StageTag, attempt, max int) {
	o.Logger.DebugContext(ctx, "stage_attempt",
		slog.String("job_id", jobID),
		slog.String("stage", string(stage)),
		slog.Int("attempt", attempt),
		slog.Int("max_attempts", max),
	)
}

func (o *LoggingObserver) OnStageCompleted(ctx context.Context, jobID string, stage StageTag, err error, d time.Duration) {
	level := slog.LevelDebug
	if err != nil {
		level = slog.LevelError
	}
	o.Logger.Log(ctx, level, "stage_completed",
		slog.String("job_id", jobID),
		slog.String("stage", string(stage)),
		slog.Duration("duration", d),
		slog.Any("error", err),
	)
}

func (o *LoggingObserver) OnJobCompleted(ctx context.Context, job *Job) {
	o.Logger.InfoContext(ctx, "job_completed",
		slog.String("job_id", job.ID),
		slog.Int64("version", job.Version),
	)
}

func (o *LoggingObserver) OnJobFailed(ctx context.Context, job *Job, err error) {
	o.Logger.ErrorContext(ctx, "job_failed",
		slog.String("job_id", job.ID),
		slog.Any("error", err),
	)
}

// BasicMetrics collects simple counters and aggregate stage durations.
// It implements Observer, and can be combined with LoggingObserver via
// NewCompositeObserver.
type BasicMetrics struct {
	NoopObserver

	jobsSubmitted      atomic.Int64
	jobsCompleted      atomic.Int64
	jobsFailed         atomic.Int64
	attempts           atomic.Int64
	stagesCompleted    atomic.Int64
	totalStageDuration atomic.Int64 // nanoseconds
}

// BasicMetricsSnapshot is an immutable snapshot of BasicMetrics.
type BasicMetricsSnapshot struct {
	JobsSubmitted int64
	JobsCompleted int64
	JobsFailed    int64
	JobsInFlight  int64

	Attempts         int64
	StagesCompleted  int64
	AvgStageDuration time.Duration
}

func (m *BasicMetrics) OnJobSubmitted(ctx context.Context, job *Job) {
	m.jobsSubmitted.Add(1)
}

func (m *BasicMetrics) OnAttempt(ctx context.Context, jobID string, stage StageTag, attempt, max int) {
	m.attempts.Add(1)
}

func (m *BasicMetrics) OnStageCompleted(ctx context.Context, jobID string, stage StageTag, err error, d time.Duration) {
	// Only count successful stages for average duration.
	if err == nil {
		m.stagesCompleted.Add(1)
		m.totalStageDuration.Add(d.Nanoseconds())
	}
}

func (m *BasicMetrics) OnJobCompleted(ctx context.Context, job *Job) {
	m.jobsCompleted.Add(1)
}

func (m *BasicMetrics) OnJobFailed(ctx context.Context, job *Job, err error) {
	m.jobsFailed.Add(1)
}

// Snapshot returns a snapshot of the current metrics.
func (m *BasicMetrics) Snapshot() BasicMetricsSnapshot {
	submitted := m.jobsSubmitted.Load()
	completed := m.jobsCompleted.Load()
	failed := m.jobsFailed.Load()
	stages := m.stagesCompleted.Load()
	totalNs := m.totalStageDuration.Load()

	var avg time.Duration
	if stages > 0 {
		avg = time.Duration(totalNs / stages)
	}

	return BasicMetricsSnapshot{
		JobsSubmitted:    submitted,
		JobsCompleted:    completed,
		JobsFailed:       failed,
		JobsInFlight:     submitted - completed - failed,
		Attempts:         m.attempts.Load(),
		StagesCompleted:  stages,
		AvgStageDuration: avg,
	}
}
