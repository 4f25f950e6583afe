package throttle

import (
	"context"
	"sync"
	"time"

	"proofing/pkg/requestcontext"
)

// InMemoryStore implements Store with fixed windows under a single mutex.
// Used in tests and single-instance development; production uses RedisStore.
type InMemoryStore struct {
	mu      sync.Mutex
	records map[string]*Record
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{records: make(map[string]*Record)}
}

func key(subjectID string, category Category) string {
	return string(category) + ":" + subjectID
}

func (s *InMemoryStore) Increment(ctx context.Context, subjectID string, category Category, limit Limit) (Record, error) {
	now := requestcontext.Now(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()

	k := key(subjectID, category)
	rec := s.records[k]
	if rec == nil || windowElapsed(*rec, limit, now) {
		rec = &Record{WindowStart: now}
		s.records[k] = rec
	}
	rec.AttemptCount++
	return *rec, nil
}

func (s *InMemoryStore) Get(ctx context.Context, subjectID string, category Category, limit Limit) (Record, error) {
	now := requestcontext.Now(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()

	rec := s.records[key(subjectID, category)]
	if rec == nil || windowElapsed(*rec, limit, now) {
		return Record{}, nil
	}
	return *rec, nil
}

func windowElapsed(rec Record, limit Limit, now time.Time) bool {
	return !now.Before(rec.WindowStart.Add(limit.Window))
}
