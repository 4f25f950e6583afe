package profile

import (
	"context"
	"log/slog"

	"proofing/internal/analytics"
	"proofing/internal/notification"
	"proofing/internal/platform/metrics"
	"proofing/pkg/domainerrors"
	"proofing/pkg/requestcontext"
)

// Lifecycle applies activation, deactivation, and fraud-review adjudication
// to profiles.
type Lifecycle struct {
	store    Store
	notifier notification.Notifier
	tracker  analytics.Tracker
	metrics  *metrics.Metrics
	logger   *slog.Logger
}

// Option configures a Lifecycle.
type Option func(*Lifecycle)

func WithLogger(logger *slog.Logger) Option {
	return func(l *Lifecycle) { l.logger = logger }
}

func NewLifecycle(store Store, notifier notification.Notifier, tracker analytics.Tracker, m *metrics.Metrics, opts ...Option) *Lifecycle {
	l := &Lifecycle{
		store:    store,
		notifier: notifier,
		tracker:  tracker,
		metrics:  m,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Activate makes the profile the user's single active one. Refused while the
// profile sits in fraud review or was rejected by it. When the activation
// replaces a previously active profile the user is notified that re-proofing
// completed, strictly after the store commit.
func (l *Lifecycle) Activate(ctx context.Context, profileID string) error {
	p, err := l.store.Find(ctx, profileID)
	if err != nil {
		return err
	}
	if p.ActivationBlocked() {
		return domainerrors.Newf(domainerrors.CodeFraudBlocked, "profile %s blocked by fraud review (%s)", profileID, p.FraudState)
	}

	hadActive, err := l.store.ActivateExclusive(ctx, profileID, requestcontext.Now(ctx))
	if err != nil {
		return err
	}

	l.metrics.ProfilesActivated.Inc()
	l.logger.InfoContext(ctx, "profile activated",
		"profile_id", profileID,
		"reproof", hadActive,
	)

	if hadActive {
		// The activation is already durable; a failed notification is
		// logged, never surfaced.
		if err := l.notifier.ReproofCompleted(ctx, p.UserID); err != nil {
			l.logger.ErrorContext(ctx, "reproof notification failed",
				"profile_id", profileID,
				"error", err,
			)
		}
		l.tracker.Track(ctx, analytics.EventReproofCompleted, map[string]any{
			"profile_id": profileID,
		})
	}
	return nil
}

// Deactivate takes the profile out of use for the given reason.
func (l *Lifecycle) Deactivate(ctx context.Context, profileID string, reason DeactivationReason) error {
	p, err := l.store.Find(ctx, profileID)
	if err != nil {
		return err
	}
	p.Active = false
	p.DeactivationReason = reason
	if err := l.store.Update(ctx, p); err != nil {
		return err
	}
	l.logger.InfoContext(ctx, "profile deactivated",
		"profile_id", profileID,
		"reason", string(reason),
	)
	return nil
}

// DeactivateForFraudReview parks the profile pending manual review.
func (l *Lifecycle) DeactivateForFraudReview(ctx context.Context, profileID string) error {
	p, err := l.store.Find(ctx, profileID)
	if err != nil {
		return err
	}
	if err := p.FraudReview(); err != nil {
		return err
	}
	p.Active = false
	if err := l.store.Update(ctx, p); err != nil {
		return err
	}
	l.logger.InfoContext(ctx, "profile held for fraud review", "profile_id", profileID)
	return nil
}

// RejectForFraud settles a review as fraudulent: the profile stays
// permanently inactive.
func (l *Lifecycle) RejectForFraud(ctx context.Context, profileID string) error {
	p, err := l.store.Find(ctx, profileID)
	if err != nil {
		return err
	}
	if err := p.FraudReject(); err != nil {
		return err
	}
	p.Active = false
	if err := l.store.Update(ctx, p); err != nil {
		return err
	}
	l.tracker.Track(ctx, analytics.EventFraudReviewAdjudicated, map[string]any{
		"profile_id": profileID,
		"decision":   "rejected",
	})
	return nil
}

// ActivateAfterPassingReview settles a review in the user's favor and
// activates the profile.
func (l *Lifecycle) ActivateAfterPassingReview(ctx context.Context, profileID string) error {
	p, err := l.store.Find(ctx, profileID)
	if err != nil {
		return err
	}
	if err := p.FraudPass(); err != nil {
		return err
	}
	if err := l.store.Update(ctx, p); err != nil {
		return err
	}
	l.tracker.Track(ctx, analytics.EventFraudReviewAdjudicated, map[string]any{
		"profile_id": profileID,
		"decision":   "passed",
	})
	return l.Activate(ctx, profileID)
}

// HasProofedBefore reports whether the user ever completed proofing, even if
// no profile is currently active.
func (l *Lifecycle) HasProofedBefore(ctx context.Context, userID string) (bool, error) {
	return l.store.HasActivated(ctx, userID)
}
