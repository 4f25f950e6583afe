// Package profile owns the verified-identity records produced by a completed
// proofing flow and their activation and fraud-review lifecycle.
package profile

import (
	"time"

	"github.com/google/uuid"

	"proofing/pkg/domainerrors"
)

// FraudState tracks a profile through manual fraud review. States only move
// forward; a profile never returns to "none".
type FraudState string

const (
	FraudStateNone      FraudState = "none"
	FraudStateReviewing FraudState = "reviewing"
	FraudStateRejected  FraudState = "rejected"
	FraudStatePassed    FraudState = "passed"
)

// DeactivationReason explains why an inactive profile was taken out of use.
type DeactivationReason string

const (
	ReasonPasswordReset               DeactivationReason = "password_reset"
	ReasonEncryptionError             DeactivationReason = "encryption_error"
	ReasonGPOVerificationPending      DeactivationReason = "gpo_verification_pending"
	ReasonVerificationCancelled       DeactivationReason = "verification_cancelled"
	ReasonInPersonVerificationPending DeactivationReason = "in_person_verification_pending"
)

// Profile is one verified identity for a user. A user accumulates profiles
// over re-proofing; at most one is active at a time. Profiles are never
// deleted.
type Profile struct {
	ID         string
	UserID     string
	Active     bool
	FraudState FraudState
	// PasswordDigest is the bcrypt hash of the password the user sealed the
	// verification with.
	PasswordDigest     string
	ActivatedAt        *time.Time
	VerifiedAt         *time.Time
	DeactivationReason DeactivationReason
	CreatedAt          time.Time
}

// New builds an inactive, unreviewed profile for a user.
func New(userID string, now time.Time) *Profile {
	return &Profile{
		ID:         uuid.NewString(),
		UserID:     userID,
		FraudState: FraudStateNone,
		CreatedAt:  now,
	}
}

// FraudReview moves the profile into manual review.
func (p *Profile) FraudReview() error {
	if p.FraudState != FraudStateNone {
		return invalidTransition(p.FraudState, FraudStateReviewing)
	}
	p.FraudState = FraudStateReviewing
	return nil
}

// FraudReject marks the profile rejected by review.
func (p *Profile) FraudReject() error {
	if p.FraudState != FraudStateNone && p.FraudState != FraudStateReviewing {
		return invalidTransition(p.FraudState, FraudStateRejected)
	}
	p.FraudState = FraudStateRejected
	return nil
}

// FraudPass clears the profile through review. A rejection may be overturned.
func (p *Profile) FraudPass() error {
	if p.FraudState == FraudStatePassed {
		return invalidTransition(p.FraudState, FraudStatePassed)
	}
	p.FraudState = FraudStatePassed
	return nil
}

// ActivationBlocked reports whether fraud review currently forbids
// activating this profile.
func (p *Profile) ActivationBlocked() bool {
	return p.FraudState == FraudStateReviewing || p.FraudState == FraudStateRejected
}

func invalidTransition(from, to FraudState) error {
	return domainerrors.Newf(domainerrors.CodeFraudBlocked, "invalid fraud state transition %s -> %s", from, to)
}
