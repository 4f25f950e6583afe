package profile

import (
	"context"
	"time"
)

// Store persists profiles. ActivateExclusive is the only multi-record write;
// implementations must serialize it per user so concurrent activations still
// leave exactly one active profile.
type Store interface {
	Create(ctx context.Context, p *Profile) error
	Find(ctx context.Context, id string) (*Profile, error)
	Update(ctx context.Context, p *Profile) error
	// ActivateExclusive atomically deactivates every profile of the owning
	// user and activates the given one, stamping ActivatedAt/VerifiedAt and
	// clearing DeactivationReason. It reports whether the user had an
	// active profile before this call.
	ActivateExclusive(ctx context.Context, id string, now time.Time) (hadActive bool, err error)
	// HasActivated reports whether any profile of the user was ever
	// activated, active or not.
	HasActivated(ctx context.Context, userID string) (bool, error)
}
