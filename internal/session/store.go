package session

import "context"

// Store persists verification sessions. Sessions are single-writer per
// browsing session; last write wins is acceptable, so no compare-and-swap is
// required here.
type Store interface {
	Save(ctx context.Context, s *Session) error
	Find(ctx context.Context, id string) (*Session, error)
	Delete(ctx context.Context, id string) error
}
