package jobstore

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/petrijr/copilot/pkg/api"
)

// RedisStore is a Store backed by Redis. It uses a simple key structure:
//
//	<prefix>job:<id>       => JSON-encoded redisJobPayload
//	<prefix>idx:all        => SET of all job IDs
//
// Per-id read-modify-write is serialized with optimistic WATCH/MULTI
// transactions: a concurrent writer invalidates the transaction and the
// mutation retries against the fresh snapshot, so versions never skip
// backward and no update is lost.
type RedisStore struct {
	client *redis.Client
	prefix string
}

var _ Store = (*RedisStore)(nil)

// maxTxRetries bounds the optimistic-lock retry loop; contention on a single
// job id is orchestrator-sequential, so collisions are rare.
const maxTxRetries = 16

var errTxRetriesExhausted = errors.New("jobstore: redis transaction retries exhausted")

type redisJobPayload struct {
	ID        string `json:"id"`
	State     string `json:"state"`
	Message   string `json:"message"`
	LastStage string `json:"lastStage"`
	Version   int64  `json:"version"`

	Process []byte `json:"process,omitempty"`
	Data    []byte `json:"data,omitempty"`
	Form    []byte `json:"form,omitempty"`
}

// NewRedisStore creates a RedisStore.
// prefix is optional but recommended (e.g. "copilot:").
func NewRedisStore(client *redis.Client, prefix string) *RedisStore {
	if prefix == "" {
		prefix = "copilot:"
	}
	return &RedisStore{
		client: client,
		prefix: prefix,
	}
}

func (s *RedisStore) keyJob(id string) string {
	return s.prefix + "job:" + id
}

func (s *RedisStore) keyAll() string {
	return s.prefix + "idx:all"
}

func encodeRedisJob(job *api.Job) ([]byte, error) {
	process, err := encodeArtifact(job.Process)
	if err != nil {
		return nil, err
	}
	data, err := encodeArtifact(job.Data)
	if err != nil {
		return nil, err
	}
	form, err := encodeArtifact(job.Form)
	if err != nil {
		return nil, err
	}

	payload := redisJobPayload{
		ID:        job.ID,
		State:     string(job.State),
		Message:   job.Message,
		LastStage: string(job.LastUpdatedStage),
		Version:   job.Version,
		Process:   process,
		Data:      data,
		Form:      form,
	}
	return json.Marshal(&payload)
}

func decodeRedisJob(data []byte) (*api.Job, error) {
	if len(data) == 0 {
		return nil, api.ErrJobNotFound
	}
	var payload redisJobPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, err
	}

	job := &api.Job{
		ID:               payload.ID,
		State:            api.JobState(payload.State),
		Message:          payload.Message,
		LastUpdatedStage: api.StageTag(payload.LastStage),
		Version:          payload.Version,
	}

	var err error
	if job.Process, err = decodeArtifact[api.ProcessGraph](payload.Process); err != nil {
		return nil, err
	}
	if job.Data, err = decodeArtifact[api.DataModel](payload.Data); err != nil {
		return nil, err
	}
	if job.Form, err = decodeArtifact[api.FormModel](payload.Form); err != nil {
		return nil, err
	}
	return job, nil
}

func (s *RedisStore) Create(ctx context.Context) (*api.Job, error) {
	job := newJob(uuid.NewString())

	blob, err := encodeRedisJob(job)
	if err != nil {
		return nil, err
	}

	pipe := s.client.TxPipeline()
	pipe.Set(ctx, s.keyJob(job.ID), blob, 0)
	pipe.SAdd(ctx, s.keyAll(), job.ID)
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, err
	}
	return job, nil
}

func (s *RedisStore) Get(ctx context.Context, jobID string) (*api.Job, error) {
	data, err := s.client.Get(ctx, s.keyJob(jobID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, api.ErrJobNotFound
	}
	if err != nil {
		return nil, err
	}
	return decodeRedisJob(data)
}

func (s *RedisStore) TransitionState(ctx context.Context, jobID string, state api.JobState, message string) (*api.Job, error) {
	return s.mutate(ctx, jobID, func(cur *api.Job) (*api.Job, error) {
		next := cur.Clone()
		next.State = state
		next.Message = message
		next.Version = cur.Version + 1
		return next, nil
	})
}

func (s *RedisStore) CommitArtifact(ctx context.Context, jobID string, stage api.StageTag, artifact any) (*api.Job, error) {
	return s.mutate(ctx, jobID, func(cur *api.Job) (*api.Job, error) {
		return applyArtifact(cur, stage, artifact)
	})
}

// mutate runs a WATCH-guarded read-modify-write of one job key.
func (s *RedisStore) mutate(ctx context.Context, jobID string, apply func(*api.Job) (*api.Job, error)) (*api.Job, error) {
	key := s.keyJob(jobID)
	var result *api.Job

	txn := func(tx *redis.Tx) error {
		data, err := tx.Get(ctx, key).Bytes()
		if errors.Is(err, redis.Nil) {
			return api.ErrJobNotFound
		}
		if err != nil {
			return err
		}

		cur, err := decodeRedisJob(data)
		if err != nil {
			return err
		}
		if cur.State.Terminal() {
			return api.ErrJobTerminal
		}

		next, err := apply(cur)
		if err != nil {
			return err
		}

		blob, err := encodeRedisJob(next)
		if err != nil {
			return err
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, blob, 0)
			return nil
		})
		if err != nil {
			return err
		}

		result = next
		return nil
	}

	for i := 0; i < maxTxRetries; i++ {
		err := s.client.Watch(ctx, txn, key)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		if err != nil {
			return nil, err
		}
		return result, nil
	}
	return nil, errTxRetriesExhausted
}

func (s *RedisStore) List(ctx context.Context, filter Filter) ([]*api.Job, error) {
	ids, err := s.client.SMembers(ctx, s.keyAll()).Result()
	if err != nil {
		return nil, err
	}

	var jobs []*api.Job
	for _, id := range ids {
		job, err := s.Get(ctx, id)
		if errors.Is(err, api.ErrJobNotFound) {
			// Index entries are best-effort; skip stale IDs.
			continue
		}
		if err != nil {
			return nil, err
		}
		if matches(job, filter) {
			jobs = append(jobs, job)
		}
	}
	return jobs, nil
}
