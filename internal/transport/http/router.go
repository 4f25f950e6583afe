// Package httptransport is the thin HTTP layer over the verification flow.
// Handlers gate access through the step policy, delegate to domain services,
// and translate outcomes; they hold no business logic of their own.
package httptransport

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"proofing/internal/analytics"
	"proofing/internal/docauth"
	"proofing/internal/flow"
	"proofing/internal/notification"
	"proofing/internal/platform/metrics"
	"proofing/internal/platform/middleware"
	"proofing/internal/profile"
	"proofing/internal/proofing"
	"proofing/internal/session"
	"proofing/internal/throttle"
)

// Handler carries the domain services the endpoints delegate to.
type Handler struct {
	sessions     session.Store
	snapshot     func() flow.Snapshot
	throttles    *throttle.Throttle
	docRouter    *docauth.Router
	orchestrator *proofing.Orchestrator
	profiles     profile.Store
	lifecycle    *profile.Lifecycle
	notifier     notification.Notifier
	tracker      analytics.Tracker
	metrics      *metrics.Metrics
	logger       *slog.Logger
	validate     *validator.Validate
}

// HandlerDeps names the collaborators; all are required.
type HandlerDeps struct {
	Sessions     session.Store
	Snapshot     func() flow.Snapshot
	Throttles    *throttle.Throttle
	DocRouter    *docauth.Router
	Orchestrator *proofing.Orchestrator
	Profiles     profile.Store
	Lifecycle    *profile.Lifecycle
	Notifier     notification.Notifier
	Tracker      analytics.Tracker
	Metrics      *metrics.Metrics
	Logger       *slog.Logger
}

func NewHandler(deps HandlerDeps) *Handler {
	return &Handler{
		sessions:     deps.Sessions,
		snapshot:     deps.Snapshot,
		throttles:    deps.Throttles,
		docRouter:    deps.DocRouter,
		orchestrator: deps.Orchestrator,
		profiles:     deps.Profiles,
		lifecycle:    deps.Lifecycle,
		notifier:     deps.Notifier,
		tracker:      deps.Tracker,
		metrics:      deps.Metrics,
		logger:       deps.Logger,
		validate:     validator.New(validator.WithRequiredStructEnabled()),
	}
}

// NewRouter wires all endpoints behind the platform middleware stack.
func NewRouter(h *Handler) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RequestTime)
	r.Use(middleware.Recovery(h.logger))
	r.Use(middleware.Logger(h.logger))
	r.Use(middleware.Timeout(30 * time.Second))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/verify", func(r chi.Router) {
		r.Post("/sessions", h.handleStartSession)
		r.Get("/resolution/poll", h.handlePollResolution)
		r.Get("/{step}", h.handleShowStep)
		r.Post("/{step}", h.handleSubmitStep)
	})
	return r
}
