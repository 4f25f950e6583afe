package httptransport

import (
	"net/http"

	"proofing/internal/flow"
	"proofing/internal/proofing"
	"proofing/pkg/domainerrors"
)

// handlePollResolution reports the state of the session's in-flight
// resolution job. The browser polls here after verify_info returns 202.
func (h *Handler) handlePollResolution(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	if s.ResolutionCorrelationID == "" {
		respondJSON(w, http.StatusNotFound, map[string]string{"error": "no_resolution_in_flight"})
		return
	}

	ctx := r.Context()
	job, err := h.orchestrator.Poll(ctx, s.ResolutionCorrelationID)
	if err != nil {
		if domainerrors.Is(err, domainerrors.CodeNotFound) {
			// The job record aged out from under the session reference;
			// clear it so the user can retry.
			s.ResolutionCorrelationID = ""
			if err := h.sessions.Save(ctx, s); err != nil {
				respondError(w, err)
				return
			}
			respondJSON(w, http.StatusNotFound, map[string]string{"error": "no_resolution_in_flight"})
			return
		}
		respondError(w, err)
		return
	}

	cfg := h.snapshot()
	switch job.Status {
	case proofing.StatusPending:
		respondJSON(w, http.StatusAccepted, map[string]string{"status": "pending"})

	case proofing.StatusDone:
		s.SetResolutionOutcome(job.Result.Success)
		if err := h.sessions.Save(ctx, s); err != nil {
			respondError(w, err)
			return
		}
		payload := map[string]any{
			"status":       "done",
			"success":      job.Result.Success,
			"current_step": string(flow.CurrentStep(cfg, s)),
		}
		if !job.Result.Success {
			payload["field_errors"] = job.Result.FieldErrors
		}
		respondJSON(w, http.StatusOK, payload)

	case proofing.StatusExpired:
		// Give up on this job; the user may retry, still subject to the
		// resolution throttle.
		s.SetResolutionOutcome(false)
		s.ResolutionCorrelationID = ""
		if err := h.sessions.Save(ctx, s); err != nil {
			respondError(w, err)
			return
		}
		respondJSON(w, http.StatusOK, map[string]any{
			"status":       "expired",
			"message":      "verification_timed_out",
			"current_step": string(flow.CurrentStep(cfg, s)),
		})
	}
}
