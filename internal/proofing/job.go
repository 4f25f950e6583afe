// Package proofing runs identity-resolution vendor calls asynchronously: a
// dispatch records a pending job and fires the vendor call in the
// background; the browser polls for the outcome by correlation ID.
package proofing

import (
	"context"
	"time"

	"proofing/internal/docauth"
)

// Status is the lifecycle state of one resolution job.
type Status string

const (
	StatusPending Status = "pending"
	StatusDone    Status = "done"
	StatusExpired Status = "expired"
)

// Job is one in-flight or settled resolution attempt.
type Job struct {
	CorrelationID string          `json:"correlation_id"`
	UserID        string          `json:"user_id"`
	Status        Status          `json:"status"`
	Result        *docauth.Result `json:"result,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
	// Deadline is fixed at creation. A result arriving after it is discarded
	// and the job settles as expired; a job observed past it while still
	// pending settles as expired too. Settled states never change again.
	Deadline time.Time `json:"deadline"`
}

// Settled reports whether the job reached a terminal state.
func (j Job) Settled() bool {
	return j.Status == StatusDone || j.Status == StatusExpired
}

// Store persists jobs and enforces their one-way lifecycle. Implementations
// must make Complete and Expire mutually exclusive once either lands.
type Store interface {
	Create(ctx context.Context, job Job) error
	Find(ctx context.Context, correlationID string) (Job, error)
	// Complete records the vendor result. It fails with CodeAsyncExpired,
	// marking the job expired, when called past the deadline or on an
	// already-expired job, and with CodeConflict on an already-done job.
	Complete(ctx context.Context, correlationID string, result docauth.Result) error
	// Expire settles a pending job as expired. Fails with CodeConflict if
	// the job already settled.
	Expire(ctx context.Context, correlationID string) error
}
