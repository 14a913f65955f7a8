package copilot

import (
	"context"
	"database/sql"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/petrijr/copilot/internal/engine"
	"github.com/petrijr/copilot/internal/jobstore"
	"github.com/petrijr/copilot/internal/provider/rulebased"
	"github.com/petrijr/copilot/internal/taskqueue"
	"github.com/petrijr/copilot/pkg/api"
	"github.com/petrijr/copilot/pkg/worker"
)

// Re-export key types so users don't need to dig into pkg/api.

type (
	Job                  = api.Job
	JobState             = api.JobState
	StageTag             = api.StageTag
	ProcessDefinition    = api.ProcessDefinition
	ProcessStep          = api.ProcessStep
	ProcessGraph         = api.ProcessGraph
	Activity             = api.Activity
	DataModel            = api.DataModel
	FormModel            = api.FormModel
	VariableRef          = api.VariableRef
	Suggestion           = api.Suggestion
	SuggestionResponse   = api.SuggestionResponse
	SuggestRequest       = api.SuggestRequest
	Providers            = api.Providers
	Orchestrator         = api.Orchestrator
	Observer             = api.Observer
	LoggingObserver      = api.LoggingObserver
	BasicMetrics         = api.BasicMetrics
	BasicMetricsSnapshot = api.BasicMetricsSnapshot
	CompositeObserver    = api.CompositeObserver
	NoopObserver         = api.NoopObserver
)

// Re-export common observer helpers.

var (
	NewLoggingObserver   = api.NewLoggingObserver
	NewCompositeObserver = api.NewCompositeObserver
)

// Re-export job states and stage tags for convenience.

const (
	StatePending    = api.StatePending
	StateProcessing = api.StateProcessing
	StateCompleted  = api.StateCompleted
	StateFailed     = api.StateFailed

	StageInit    = api.StageInit
	StageProcess = api.StageProcess
	StageData    = api.StageData
	StageForm    = api.StageForm

	StepAction   = api.StepAction
	StepDecision = api.StepDecision
)

// DefaultQueueCapacity is used by the Service constructors.
const DefaultQueueCapacity = 1024

// Service bundles an orchestrator with its task queue so external callers
// never need to import internal packages. The Service accepts submissions
// and answers queries; attach one or more Workers to drive generation.
type Service struct {
	orch  *engine.Orchestrator
	queue taskqueue.Queue
}

var _ api.Orchestrator = (*Service)(nil)

func newService(store jobstore.Store, providers api.Providers, obs api.Observer) (*Service, error) {
	queue := taskqueue.NewInMemoryQueue(DefaultQueueCapacity)
	orch, err := engine.New(engine.Config{
		Store:     store,
		Queue:     queue,
		Providers: providers,
		Observer:  obs,
	})
	if err != nil {
		return nil, err
	}
	return &Service{orch: orch, queue: queue}, nil
}

// NewInMemoryService returns a Service backed by an in-memory job store.
func NewInMemoryService(providers api.Providers) (*Service, error) {
	return newService(jobstore.NewMemoryStore(), providers, nil)
}

// NewInMemoryServiceWithObserver returns an in-memory Service with the given Observer.
func NewInMemoryServiceWithObserver(providers api.Providers, obs api.Observer) (*Service, error) {
	return newService(jobstore.NewMemoryStore(), providers, obs)
}

// NewSQLiteService returns a Service that persists jobs in a SQLite database.
func NewSQLiteService(db *sql.DB, providers api.Providers) (*Service, error) {
	store, err := jobstore.NewSQLiteStore(db)
	if err != nil {
		return nil, err
	}
	return newService(store, providers, nil)
}

// NewSQLiteServiceWithObserver returns a SQLite-backed Service with the given Observer.
func NewSQLiteServiceWithObserver(db *sql.DB, providers api.Providers, obs api.Observer) (*Service, error) {
	store, err := jobstore.NewSQLiteStore(db)
	if err != nil {
		return nil, err
	}
	return newService(store, providers, obs)
}

// NewRedisService returns a Service that persists jobs in Redis.
func NewRedisService(client *redis.Client, providers api.Providers) (*Service, error) {
	return newService(jobstore.NewRedisStore(client, ""), providers, nil)
}

// NewRedisServiceWithObserver returns a Redis-backed Service with the given Observer.
func NewRedisServiceWithObserver(client *redis.Client, providers api.Providers, obs api.Observer) (*Service, error) {
	return newService(jobstore.NewRedisStore(client, ""), providers, obs)
}

// NewRuleBasedProviders returns the built-in deterministic capability
// providers. They are useful for tests and for running the pipeline
// without any external generation backend.
func NewRuleBasedProviders() api.Providers {
	return rulebased.New()
}

// Worker returns a worker bound to this Service's queue. Run it in a
// goroutine, or call ProcessOne from your own loop.
func (s *Service) Worker(logger *slog.Logger) *worker.Worker {
	return worker.New(s.orch, s.queue, logger)
}

// Orchestrator methods, delegated.

func (s *Service) SubmitPrompt(ctx context.Context, freeText string) (string, error) {
	return s.orch.SubmitPrompt(ctx, freeText)
}

func (s *Service) SubmitDefinition(ctx context.Context, def *api.ProcessDefinition) (string, error) {
	return s.orch.SubmitDefinition(ctx, def)
}

func (s *Service) GetJob(ctx context.Context, jobID string) (*api.Job, error) {
	return s.orch.GetJob(ctx, jobID)
}

func (s *Service) SuggestNextSteps(ctx context.Context, req api.SuggestRequest) (*api.SuggestionResponse, error) {
	return s.orch.SuggestNextSteps(ctx, req)
}

func (s *Service) SuggestOutline(ctx context.Context, topic, description string) (*api.ProcessDefinition, error) {
	return s.orch.SuggestOutline(ctx, topic, description)
}
