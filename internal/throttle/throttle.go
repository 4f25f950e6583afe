// Package throttle guards expensive and sensitive operations with
// per-(subject, category) attempt counters over fixed windows. Callers check
// the relevant category before performing the gated action and increment only
// when the action is actually attempted.
package throttle

import (
	"context"
	"time"

	"proofing/internal/platform/config"
	"proofing/pkg/requestcontext"
)

// Category names a class of rate-limited action. Categories have independent
// counters and independently configured limits.
type Category string

const (
	// CategoryProofSSN limits SSN proofing submissions.
	CategoryProofSSN Category = "proof_ssn"
	// CategoryResolution limits vendor identity-resolution dispatches.
	CategoryResolution Category = "idv_resolution"
	// CategoryOTPConfirmation limits one-time-code confirmation attempts.
	CategoryOTPConfirmation Category = "otp_confirmation"
)

// Limit is one category's configuration.
type Limit struct {
	MaxAttempts int
	Window      time.Duration
}

// Record is the persisted counter state for one (subject, category) key.
type Record struct {
	AttemptCount int
	WindowStart  time.Time
}

// Store persists attempt counters. Increment must be race-free for
// concurrent calls on the same key; distinct keys are independent.
type Store interface {
	// Increment bumps the counter, resetting it first when the previous
	// window has elapsed, and returns the resulting record.
	Increment(ctx context.Context, subjectID string, category Category, limit Limit) (Record, error)
	// Get returns the current record without mutating it. A subject with no
	// attempts (or an elapsed window) reads as a zero record.
	Get(ctx context.Context, subjectID string, category Category, limit Limit) (Record, error)
}

// Status is the outcome of a throttle consultation.
type Status struct {
	Throttled bool
	Attempts  int
	// RetryAfter is how long until the window resets. Zero when not
	// throttled.
	RetryAfter time.Duration
}

// Throttle is the service facade over a Store plus per-category limits.
type Throttle struct {
	store  Store
	limits map[Category]Limit
}

// LimitsFromConfig maps the application config onto category limits.
func LimitsFromConfig(cfg config.Throttle) map[Category]Limit {
	return map[Category]Limit{
		CategoryProofSSN:        {MaxAttempts: cfg.ProofSSNMaxAttempts, Window: cfg.ProofSSNWindow},
		CategoryResolution:      {MaxAttempts: cfg.ResolutionMaxAttempts, Window: cfg.ResolutionWindow},
		CategoryOTPConfirmation: {MaxAttempts: cfg.OTPMaxAttempts, Window: cfg.OTPWindow},
	}
}

func New(store Store, limits map[Category]Limit) *Throttle {
	return &Throttle{store: store, limits: limits}
}

// Increment records an attempt and returns the resulting status.
func (t *Throttle) Increment(ctx context.Context, subjectID string, category Category) (Status, error) {
	limit := t.limits[category]
	rec, err := t.store.Increment(ctx, subjectID, category, limit)
	if err != nil {
		return Status{}, err
	}
	return t.status(ctx, rec, limit), nil
}

// Status reports whether the subject is currently throttled for the category
// without consuming an attempt.
func (t *Throttle) Status(ctx context.Context, subjectID string, category Category) (Status, error) {
	limit := t.limits[category]
	rec, err := t.store.Get(ctx, subjectID, category, limit)
	if err != nil {
		return Status{}, err
	}
	return t.status(ctx, rec, limit), nil
}

func (t *Throttle) status(ctx context.Context, rec Record, limit Limit) Status {
	st := Status{Attempts: rec.AttemptCount}
	if limit.MaxAttempts <= 0 || rec.AttemptCount < limit.MaxAttempts {
		return st
	}
	st.Throttled = true
	if remaining := rec.WindowStart.Add(limit.Window).Sub(requestcontext.Now(ctx)); remaining > 0 {
		st.RetryAfter = remaining
	}
	return st
}
