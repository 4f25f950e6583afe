package proofing

import (
	"context"
	"sync"

	"proofing/internal/docauth"
	"proofing/pkg/domainerrors"
	"proofing/pkg/requestcontext"
)

// InMemoryStore keeps jobs in a map, for tests and single-instance runs.
type InMemoryStore struct {
	mu   sync.RWMutex
	jobs map[string]Job
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{jobs: make(map[string]Job)}
}

func (s *InMemoryStore) Create(_ context.Context, job Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.jobs[job.CorrelationID]; ok {
		return domainerrors.Newf(domainerrors.CodeConflict, "resolution job %s already exists", job.CorrelationID)
	}
	s.jobs[job.CorrelationID] = cloneJob(job)
	return nil
}

func (s *InMemoryStore) Find(_ context.Context, correlationID string) (Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	job, ok := s.jobs[correlationID]
	if !ok {
		return Job{}, domainerrors.Newf(domainerrors.CodeNotFound, "resolution job %s not found", correlationID)
	}
	return cloneJob(job), nil
}

func (s *InMemoryStore) Complete(ctx context.Context, correlationID string, result docauth.Result) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[correlationID]
	if !ok {
		return domainerrors.Newf(domainerrors.CodeNotFound, "resolution job %s not found", correlationID)
	}
	switch {
	case job.Status == StatusDone:
		return domainerrors.Newf(domainerrors.CodeConflict, "resolution job %s already completed", correlationID)
	case job.Status == StatusExpired:
		return domainerrors.Newf(domainerrors.CodeAsyncExpired, "resolution job %s expired", correlationID)
	case requestcontext.Now(ctx).After(job.Deadline):
		job.Status = StatusExpired
		s.jobs[correlationID] = job
		return domainerrors.Newf(domainerrors.CodeAsyncExpired, "resolution job %s past deadline", correlationID)
	}
	job.Status = StatusDone
	job.Result = cloneResult(&result)
	s.jobs[correlationID] = job
	return nil
}

func (s *InMemoryStore) Expire(_ context.Context, correlationID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[correlationID]
	if !ok {
		return domainerrors.Newf(domainerrors.CodeNotFound, "resolution job %s not found", correlationID)
	}
	if job.Settled() {
		return domainerrors.Newf(domainerrors.CodeConflict, "resolution job %s already settled", correlationID)
	}
	job.Status = StatusExpired
	s.jobs[correlationID] = job
	return nil
}

func cloneJob(job Job) Job {
	job.Result = cloneResult(job.Result)
	return job
}

func cloneResult(r *docauth.Result) *docauth.Result {
	if r == nil {
		return nil
	}
	out := docauth.Result{Success: r.Success}
	if r.FieldErrors != nil {
		out.FieldErrors = make(map[docauth.Field][]string, len(r.FieldErrors))
		for field, msgs := range r.FieldErrors {
			out.FieldErrors[field] = append([]string(nil), msgs...)
		}
	}
	return &out
}
