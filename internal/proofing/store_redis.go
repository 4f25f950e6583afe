package proofing

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"proofing/internal/docauth"
	"proofing/pkg/domainerrors"
	"proofing/pkg/requestcontext"
)

const jobKeyPrefix = "idv:resolution:"

// retention keeps settled jobs visible past their deadline so pollers see
// the expired state instead of a vanished key.
const retention = time.Hour

// RedisStore persists jobs as JSON. Lifecycle transitions run under WATCH so
// a vendor completion and a poller expiry racing on one job settle exactly
// once.
type RedisStore struct {
	client *redis.Client
}

func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func (s *RedisStore) Create(ctx context.Context, job Job) error {
	payload, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("marshal resolution job: %w", err)
	}
	ttl := job.Deadline.Sub(requestcontext.Now(ctx)) + retention
	ok, err := s.client.SetNX(ctx, jobKeyPrefix+job.CorrelationID, payload, ttl).Result()
	if err != nil {
		return fmt.Errorf("create resolution job: %w", err)
	}
	if !ok {
		return domainerrors.Newf(domainerrors.CodeConflict, "resolution job %s already exists", job.CorrelationID)
	}
	return nil
}

func (s *RedisStore) Find(ctx context.Context, correlationID string) (Job, error) {
	payload, err := s.client.Get(ctx, jobKeyPrefix+correlationID).Bytes()
	if errors.Is(err, redis.Nil) {
		return Job{}, domainerrors.Newf(domainerrors.CodeNotFound, "resolution job %s not found", correlationID)
	}
	if err != nil {
		return Job{}, fmt.Errorf("find resolution job: %w", err)
	}
	var job Job
	if err := json.Unmarshal(payload, &job); err != nil {
		return Job{}, fmt.Errorf("unmarshal resolution job: %w", err)
	}
	return job, nil
}

func (s *RedisStore) Complete(ctx context.Context, correlationID string, result docauth.Result) error {
	return s.settle(ctx, correlationID, func(job *Job) error {
		switch {
		case job.Status == StatusDone:
			return domainerrors.Newf(domainerrors.CodeConflict, "resolution job %s already completed", correlationID)
		case job.Status == StatusExpired:
			return domainerrors.Newf(domainerrors.CodeAsyncExpired, "resolution job %s expired", correlationID)
		case requestcontext.Now(ctx).After(job.Deadline):
			job.Status = StatusExpired
			return domainerrors.Newf(domainerrors.CodeAsyncExpired, "resolution job %s past deadline", correlationID)
		}
		job.Status = StatusDone
		job.Result = &result
		return nil
	})
}

func (s *RedisStore) Expire(ctx context.Context, correlationID string) error {
	return s.settle(ctx, correlationID, func(job *Job) error {
		if job.Settled() {
			return domainerrors.Newf(domainerrors.CodeConflict, "resolution job %s already settled", correlationID)
		}
		job.Status = StatusExpired
		return nil
	})
}

// settle loads, mutates, and rewrites one job transactionally. mutate may
// both change the job and return an error; the change is still persisted, so
// a past-deadline completion lands the expired state it reports.
func (s *RedisStore) settle(ctx context.Context, correlationID string, mutate func(job *Job) error) error {
	key := jobKeyPrefix + correlationID
	var outcome error

	txn := func(tx *redis.Tx) error {
		payload, err := tx.Get(ctx, key).Bytes()
		if errors.Is(err, redis.Nil) {
			outcome = domainerrors.Newf(domainerrors.CodeNotFound, "resolution job %s not found", correlationID)
			return nil
		}
		if err != nil {
			return fmt.Errorf("find resolution job: %w", err)
		}
		var job Job
		if err := json.Unmarshal(payload, &job); err != nil {
			return fmt.Errorf("unmarshal resolution job: %w", err)
		}

		before := job.Status
		outcome = mutate(&job)
		if job.Status == before && outcome != nil {
			return nil
		}

		updated, err := json.Marshal(job)
		if err != nil {
			return fmt.Errorf("marshal resolution job: %w", err)
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, updated, redis.KeepTTL)
			return nil
		})
		return err
	}

	for attempt := 0; attempt < 3; attempt++ {
		err := s.client.Watch(ctx, txn, key)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		if err != nil {
			return fmt.Errorf("settle resolution job: %w", err)
		}
		return outcome
	}
	return domainerrors.Newf(domainerrors.CodeConflict, "resolution job %s contended", correlationID)
}
