// Package analytics emits fire-and-forget structured events for funnel and
// fraud observability. Emission never returns errors and never blocks the
// request path; a failing or saturated sink affects nothing but the events
// themselves.
package analytics

import (
	"context"
	"log/slog"
	"time"

	"proofing/pkg/requestcontext"
)

// Event names. Keep them stable; downstream dashboards key on them.
const (
	EventStepVisited             = "idv_step_visited"
	EventStepSubmitted           = "idv_step_submitted"
	EventThrottleTriggered       = "idv_throttle_triggered"
	EventVendorSelected          = "idv_vendor_selected"
	EventRandomizerDefaulted     = "idv_doc_auth_randomizer_defaulted"
	EventUnknownVendorCode       = "idv_unknown_vendor_code"
	EventResolutionResultMissing = "idv_resolution_result_missing"
	EventFraudReviewAdjudicated  = "idv_fraud_review_adjudicated"
	EventReproofCompleted        = "idv_reproof_completed"
	EventVerificationSubmitted   = "idv_verification_submitted"
)

// Event is one analytics record.
type Event struct {
	Name       string
	Timestamp  time.Time
	UserID     string
	RequestID  string
	Properties map[string]any
}

// Tracker is what services depend on. The production emitter and the test
// fake both satisfy it.
type Tracker interface {
	Track(ctx context.Context, name string, properties map[string]any)
}

// Sink receives drained events. Failures are logged and dropped.
type Sink interface {
	Append(ctx context.Context, event Event) error
}

// SlogSink writes events as structured log lines, the default sink when no
// external pipeline is configured.
type SlogSink struct {
	Logger *slog.Logger
}

func (s SlogSink) Append(ctx context.Context, event Event) error {
	attrs := []any{
		"event", event.Name,
		"user_id", event.UserID,
		"request_id", event.RequestID,
	}
	for k, v := range event.Properties {
		attrs = append(attrs, k, v)
	}
	s.Logger.InfoContext(ctx, "analytics", attrs...)
	return nil
}

// Emitter buffers events on a channel for a background worker. A full buffer
// drops the event rather than blocking orchestration.
type Emitter struct {
	inbox  chan Event
	logger *slog.Logger
}

const defaultBuffer = 1024

func NewEmitter(logger *slog.Logger) *Emitter {
	return &Emitter{
		inbox:  make(chan Event, defaultBuffer),
		logger: logger,
	}
}

// Track enqueues an event, capturing user/request identity from context.
func (e *Emitter) Track(ctx context.Context, name string, properties map[string]any) {
	event := Event{
		Name:       name,
		Timestamp:  requestcontext.Now(ctx),
		UserID:     requestcontext.UserID(ctx),
		RequestID:  requestcontext.RequestID(ctx),
		Properties: properties,
	}
	select {
	case e.inbox <- event:
	default:
		e.logger.Warn("analytics buffer full, dropping event", "event", name)
	}
}

// Run drains the inbox into the sink until ctx is cancelled.
func (e *Emitter) Run(ctx context.Context, sink Sink) {
	for {
		select {
		case <-ctx.Done():
			return
		case event := <-e.inbox:
			if err := sink.Append(ctx, event); err != nil {
				e.logger.Warn("analytics sink append failed",
					"event", event.Name,
					"error", err.Error(),
				)
			}
		}
	}
}
