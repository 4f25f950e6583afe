package proofing

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"proofing/internal/analytics"
	"proofing/internal/docauth"
	"proofing/internal/platform/metrics"
	"proofing/pkg/domainerrors"
	"proofing/pkg/requestcontext"
)

// Orchestrator dispatches resolution jobs to the selected vendor and serves
// poll requests against the job store.
type Orchestrator struct {
	router  *docauth.Router
	jobs    Store
	tracker analytics.Tracker
	metrics *metrics.Metrics
	logger  *slog.Logger

	jobTTL        time.Duration
	vendorTimeout time.Duration
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

func WithLogger(logger *slog.Logger) Option {
	return func(o *Orchestrator) { o.logger = logger }
}

func NewOrchestrator(router *docauth.Router, jobs Store, tracker analytics.Tracker, m *metrics.Metrics, jobTTL, vendorTimeout time.Duration, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		router:        router,
		jobs:          jobs,
		tracker:       tracker,
		metrics:       m,
		logger:        slog.Default(),
		jobTTL:        jobTTL,
		vendorTimeout: vendorTimeout,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Dispatch selects a vendor, records a pending job, and fires the vendor
// call in the background. It returns immediately with the correlation ID the
// caller stores in the session and polls with.
func (o *Orchestrator) Dispatch(ctx context.Context, req docauth.ResolutionRequest) (string, error) {
	client, err := o.router.Client(ctx, req.Discriminator)
	if err != nil {
		return "", err
	}

	correlationID := uuid.NewString()
	now := requestcontext.Now(ctx)
	job := Job{
		CorrelationID: correlationID,
		UserID:        req.UserID,
		Status:        StatusPending,
		CreatedAt:     now,
		Deadline:      now.Add(o.jobTTL),
	}
	if err := o.jobs.Create(ctx, job); err != nil {
		return "", err
	}

	req.TraceID = correlationID
	// Detached from the request: the vendor call outlives the dispatching
	// HTTP request but keeps its values for logging.
	bg := context.WithoutCancel(ctx)
	go o.run(bg, client, req, correlationID)

	o.logger.InfoContext(ctx, "resolution job dispatched",
		"correlation_id", correlationID,
		"vendor", string(client.Vendor()),
	)
	return correlationID, nil
}

func (o *Orchestrator) run(ctx context.Context, client docauth.Client, req docauth.ResolutionRequest, correlationID string) {
	ctx, cancel := context.WithTimeout(ctx, o.vendorTimeout)
	defer cancel()

	resp, err := client.ProofResolution(ctx, req)
	result := docauth.Normalize(resp, err, func(code string) {
		o.metrics.UnknownVendorCodes.Inc()
		o.tracker.Track(ctx, analytics.EventUnknownVendorCode, map[string]any{
			"vendor": string(client.Vendor()),
			"code":   code,
		})
	})

	// The completion write runs outside the vendor timeout, and the deadline
	// check in Complete must see the clock as of the reply, not the pinned
	// time the dispatch request carried in.
	ctx = requestcontext.WithTime(context.WithoutCancel(ctx), time.Now())

	if err := o.jobs.Complete(ctx, correlationID, result); err != nil {
		if domainerrors.Is(err, domainerrors.CodeAsyncExpired) {
			// The poller gave up on this job; the late result is discarded.
			o.logger.WarnContext(ctx, "late resolution result discarded",
				"correlation_id", correlationID,
				"vendor", string(client.Vendor()),
			)
			return
		}
		o.logger.ErrorContext(ctx, "recording resolution result failed",
			"correlation_id", correlationID,
			"error", err,
		)
	}
}

// Poll reports the state of one job. A pending job past its deadline is
// settled as expired here, so expiry is observed identically by every
// subsequent poll.
func (o *Orchestrator) Poll(ctx context.Context, correlationID string) (Job, error) {
	job, err := o.jobs.Find(ctx, correlationID)
	if err != nil {
		return Job{}, err
	}
	if job.Status != StatusPending || !requestcontext.Now(ctx).After(job.Deadline) {
		return job, nil
	}

	if err := o.jobs.Expire(ctx, correlationID); err != nil {
		if domainerrors.Is(err, domainerrors.CodeConflict) {
			// Lost the race to a vendor completion; report what settled.
			return o.jobs.Find(ctx, correlationID)
		}
		return Job{}, err
	}

	o.metrics.ResolutionTimeouts.Inc()
	o.tracker.Track(ctx, analytics.EventResolutionResultMissing, map[string]any{
		"correlation_id": correlationID,
	})
	o.logger.WarnContext(ctx, "resolution job expired without result",
		"correlation_id", correlationID,
	)
	job.Status = StatusExpired
	return job, nil
}
