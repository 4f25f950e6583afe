package profile

import (
	"context"
	"sync"
	"time"

	"proofing/pkg/domainerrors"
)

// InMemoryStore keeps profiles in maps with a per-user lock around the
// multi-record activation write.
type InMemoryStore struct {
	mu       sync.RWMutex
	profiles map[string]*Profile
	byUser   map[string][]string

	userMu sync.Mutex
	locks  map[string]*sync.Mutex
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		profiles: make(map[string]*Profile),
		byUser:   make(map[string][]string),
		locks:    make(map[string]*sync.Mutex),
	}
}

func (s *InMemoryStore) userLock(userID string) *sync.Mutex {
	s.userMu.Lock()
	defer s.userMu.Unlock()
	l, ok := s.locks[userID]
	if !ok {
		l = &sync.Mutex{}
		s.locks[userID] = l
	}
	return l
}

func (s *InMemoryStore) Create(_ context.Context, p *Profile) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.profiles[p.ID]; ok {
		return domainerrors.Newf(domainerrors.CodeConflict, "profile %s already exists", p.ID)
	}
	cp := *p
	s.profiles[p.ID] = &cp
	s.byUser[p.UserID] = append(s.byUser[p.UserID], p.ID)
	return nil
}

func (s *InMemoryStore) Find(_ context.Context, id string) (*Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.profiles[id]
	if !ok {
		return nil, domainerrors.Newf(domainerrors.CodeNotFound, "profile %s not found", id)
	}
	cp := *p
	return &cp, nil
}

func (s *InMemoryStore) Update(_ context.Context, p *Profile) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.profiles[p.ID]; !ok {
		return domainerrors.Newf(domainerrors.CodeNotFound, "profile %s not found", p.ID)
	}
	cp := *p
	s.profiles[p.ID] = &cp
	return nil
}

func (s *InMemoryStore) ActivateExclusive(ctx context.Context, id string, now time.Time) (bool, error) {
	target, err := s.Find(ctx, id)
	if err != nil {
		return false, err
	}

	lock := s.userLock(target.UserID)
	lock.Lock()
	defer lock.Unlock()

	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.profiles[id]
	if !ok {
		return false, domainerrors.Newf(domainerrors.CodeNotFound, "profile %s not found", id)
	}
	// Re-read under the user lock: a fraud adjudication racing the caller's
	// own check must not end up with an active profile.
	if p.ActivationBlocked() {
		return false, domainerrors.Newf(domainerrors.CodeFraudBlocked, "profile %s blocked by fraud review (%s)", id, p.FraudState)
	}

	hadActive := false
	for _, otherID := range s.byUser[p.UserID] {
		other := s.profiles[otherID]
		if other.Active {
			hadActive = true
			other.Active = false
		}
	}

	p.Active = true
	p.ActivatedAt = &now
	p.VerifiedAt = &now
	p.DeactivationReason = ""
	return hadActive, nil
}

func (s *InMemoryStore) HasActivated(_ context.Context, userID string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, id := range s.byUser[userID] {
		if s.profiles[id].ActivatedAt != nil {
			return true, nil
		}
	}
	return false, nil
}
