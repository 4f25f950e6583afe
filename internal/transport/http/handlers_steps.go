package httptransport

import (
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"proofing/internal/analytics"
	"proofing/internal/docauth"
	"proofing/internal/flow"
	"proofing/internal/platform/secrets"
	"proofing/internal/profile"
	"proofing/internal/session"
	"proofing/internal/throttle"
	"proofing/pkg/requestcontext"
)

const sessionHeader = "X-Session-ID"

type startSessionRequest struct {
	UserID string `json:"user_id" validate:"required"`
}

func (h *Handler) handleStartSession(w http.ResponseWriter, r *http.Request) {
	var req startSessionRequest
	if !h.decode(w, r, &req) {
		return
	}

	s := session.New(req.UserID)
	if err := h.sessions.Save(r.Context(), s); err != nil {
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, map[string]string{
		"session_id":   s.ID,
		"current_step": string(flow.CurrentStep(h.snapshot(), s)),
	})
}

func (h *Handler) handleShowStep(w http.ResponseWriter, r *http.Request) {
	key := flow.StepKey(chi.URLParam(r, "step"))
	if !flow.Known(key) {
		respondJSON(w, http.StatusNotFound, map[string]string{"error": "unknown_step"})
		return
	}

	s, ok := h.session(w, r)
	if !ok {
		return
	}
	cfg := h.snapshot()
	if !flow.AccessAllowed(cfg, s, key) {
		redirectToStep(w, r, string(flow.CurrentStep(cfg, s)))
		return
	}

	h.metrics.StepsVisited.WithLabelValues(string(key)).Inc()
	h.tracker.Track(r.Context(), analytics.EventStepVisited, map[string]any{
		"step": string(key),
	})
	respondJSON(w, http.StatusOK, map[string]string{
		"step":         string(key),
		"current_step": string(flow.CurrentStep(cfg, s)),
	})
}

func (h *Handler) handleSubmitStep(w http.ResponseWriter, r *http.Request) {
	key := flow.StepKey(chi.URLParam(r, "step"))
	if !flow.Known(key) {
		respondJSON(w, http.StatusNotFound, map[string]string{"error": "unknown_step"})
		return
	}

	s, ok := h.session(w, r)
	if !ok {
		return
	}
	cfg := h.snapshot()
	if !flow.AccessAllowed(cfg, s, key) {
		redirectToStep(w, r, string(flow.CurrentStep(cfg, s)))
		return
	}

	h.metrics.StepsSubmitted.WithLabelValues(string(key)).Inc()
	h.tracker.Track(r.Context(), analytics.EventStepSubmitted, map[string]any{
		"step": string(key),
	})

	switch key {
	case flow.StepWelcome:
		h.submitWelcome(w, r, cfg, s)
	case flow.StepAgreement:
		h.submitAgreement(w, r, cfg, s)
	case flow.StepHybridHandoff:
		h.submitHybridHandoff(w, r, cfg, s)
	case flow.StepDocumentCapture, flow.StepLinkSent:
		h.submitDocumentCapture(w, r, cfg, s, key)
	case flow.StepSSN:
		h.submitSSN(w, r, cfg, s)
	case flow.StepVerifyInfo:
		h.submitVerifyInfo(w, r, cfg, s)
	case flow.StepPhone:
		h.submitPhone(w, r, cfg, s)
	case flow.StepOTPVerification:
		h.submitOTP(w, r, cfg, s)
	case flow.StepEnterPassword:
		h.submitEnterPassword(w, r, cfg, s)
	}
}

func (h *Handler) submitWelcome(w http.ResponseWriter, r *http.Request, cfg flow.Snapshot, s *session.Session) {
	flow.ClearFrom(s, flow.StepWelcome)
	s.WelcomeVisited = true
	h.advance(w, r, cfg, s)
}

type agreementRequest struct {
	Consent bool `json:"consent" validate:"eq=true"`
}

func (h *Handler) submitAgreement(w http.ResponseWriter, r *http.Request, cfg flow.Snapshot, s *session.Session) {
	var req agreementRequest
	if !h.decode(w, r, &req) {
		return
	}
	flow.ClearFrom(s, flow.StepAgreement)
	s.ConsentGiven = true
	h.advance(w, r, cfg, s)
}

type hybridHandoffRequest struct {
	FlowPath string `json:"flow_path" validate:"required,oneof=standard hybrid"`
}

func (h *Handler) submitHybridHandoff(w http.ResponseWriter, r *http.Request, cfg flow.Snapshot, s *session.Session) {
	var req hybridHandoffRequest
	if !h.decode(w, r, &req) {
		return
	}
	path := session.FlowPath(req.FlowPath)
	if path == session.FlowPathHybrid && !cfg.HybridFlowEnabled {
		respondJSON(w, http.StatusUnprocessableEntity, map[string]string{
			"error": "hybrid_flow_disabled",
		})
		return
	}
	// Re-submitting with the other branch wipes any capture state from the
	// abandoned one.
	flow.ClearFrom(s, flow.StepHybridHandoff)
	s.FlowPath = path
	h.advance(w, r, cfg, s)
}

type documentCaptureRequest struct {
	FrontImage  string            `json:"front_image" validate:"required,base64"`
	BackImage   string            `json:"back_image" validate:"required,base64"`
	SelfieImage string            `json:"selfie_image" validate:"omitempty,base64"`
	Applicant   map[string]string `json:"applicant" validate:"required"`
}

func (h *Handler) submitDocumentCapture(w http.ResponseWriter, r *http.Request, cfg flow.Snapshot, s *session.Session, key flow.StepKey) {
	var req documentCaptureRequest
	if !h.decode(w, r, &req) {
		return
	}

	client, err := h.docRouter.Client(r.Context(), s.ID)
	if err != nil {
		respondError(w, err)
		return
	}

	captureID := s.DocumentCaptureSessionID
	if captureID == "" {
		captureID = uuid.NewString()
	}
	front, _ := base64.StdEncoding.DecodeString(req.FrontImage)
	back, _ := base64.StdEncoding.DecodeString(req.BackImage)
	selfie, _ := base64.StdEncoding.DecodeString(req.SelfieImage)

	resp, err := client.SubmitImages(r.Context(), docauth.ImageRequest{
		CaptureSessionID: captureID,
		FrontImage:       front,
		BackImage:        back,
		SelfieImage:      selfie,
	})
	result := docauth.Normalize(resp, err, h.warnUnknownCode(r, client.Vendor()))
	if !result.Success {
		respondFieldErrors(w, result.FieldErrors)
		return
	}

	flow.ClearFrom(s, key)
	s.DocumentCaptureSessionID = captureID
	s.ApplicantAttributes = req.Applicant
	h.advance(w, r, cfg, s)
}

type ssnRequest struct {
	SSN string `json:"ssn" validate:"required,len=9,numeric"`
}

func (h *Handler) submitSSN(w http.ResponseWriter, r *http.Request, cfg flow.Snapshot, s *session.Session) {
	var req ssnRequest
	if !h.decode(w, r, &req) {
		return
	}

	st, err := h.throttles.Status(r.Context(), s.UserID, throttle.CategoryProofSSN)
	if err != nil {
		respondError(w, err)
		return
	}
	if st.Throttled {
		h.throttled(w, r, throttle.CategoryProofSSN, st)
		return
	}
	if _, err := h.throttles.Increment(r.Context(), s.UserID, throttle.CategoryProofSSN); err != nil {
		respondError(w, err)
		return
	}

	flow.ClearFrom(s, flow.StepSSN)
	s.SSNProvided = true
	s.SSNLastFour = req.SSN[len(req.SSN)-4:]
	h.advance(w, r, cfg, s)
}

// submitVerifyInfo kicks off the async vendor resolution: both throttles are
// consulted before the attempt is counted, and the counter bumps only when a
// dispatch actually happens.
func (h *Handler) submitVerifyInfo(w http.ResponseWriter, r *http.Request, cfg flow.Snapshot, s *session.Session) {
	ctx := r.Context()

	for _, category := range []throttle.Category{throttle.CategoryProofSSN, throttle.CategoryResolution} {
		st, err := h.throttles.Status(ctx, s.UserID, category)
		if err != nil {
			respondError(w, err)
			return
		}
		if st.Throttled {
			h.throttled(w, r, category, st)
			return
		}
	}
	if _, err := h.throttles.Increment(ctx, s.UserID, throttle.CategoryResolution); err != nil {
		respondError(w, err)
		return
	}

	correlationID, err := h.orchestrator.Dispatch(ctx, docauth.ResolutionRequest{
		Discriminator: s.DocumentCaptureSessionID,
		UserID:        s.UserID,
		Attributes:    s.ApplicantAttributes,
		SSNLastFour:   s.SSNLastFour,
	})
	if err != nil {
		respondError(w, err)
		return
	}

	flow.ClearFrom(s, flow.StepVerifyInfo)
	s.ResolutionCorrelationID = correlationID
	if err := h.sessions.Save(ctx, s); err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusAccepted, map[string]string{
		"status":   "pending",
		"poll_url": "/verify/resolution/poll",
	})
}

type phoneRequest struct {
	Mechanism string `json:"mechanism" validate:"required,oneof=phone gpo"`
	Phone     string `json:"phone" validate:"required_if=Mechanism phone,omitempty,e164"`
}

func (h *Handler) submitPhone(w http.ResponseWriter, r *http.Request, cfg flow.Snapshot, s *session.Session) {
	var req phoneRequest
	if !h.decode(w, r, &req) {
		return
	}

	flow.ClearFrom(s, flow.StepPhone)
	if req.Mechanism == string(session.AddressVerificationGPO) {
		// Verification completes by mail; the letter is queued out of band
		// and the profile stays pending until its code comes back.
		s.AddressVerificationMechanism = session.AddressVerificationGPO
		h.advance(w, r, cfg, s)
		return
	}

	code, err := otpCode()
	if err != nil {
		respondError(w, err)
		return
	}
	if err := h.notifier.OTPCode(r.Context(), req.Phone, code); err != nil {
		respondError(w, err)
		return
	}

	s.AddressVerificationMechanism = session.AddressVerificationPhone
	s.PhoneConfirmation = &session.PhoneConfirmation{
		Number:          req.Phone,
		VendorConfirmed: true,
	}
	s.PendingOTPCode = code
	h.advance(w, r, cfg, s)
}

type otpRequest struct {
	Code string `json:"code" validate:"required,len=6,numeric"`
}

func (h *Handler) submitOTP(w http.ResponseWriter, r *http.Request, cfg flow.Snapshot, s *session.Session) {
	var req otpRequest
	if !h.decode(w, r, &req) {
		return
	}

	st, err := h.throttles.Status(r.Context(), s.UserID, throttle.CategoryOTPConfirmation)
	if err != nil {
		respondError(w, err)
		return
	}
	if st.Throttled {
		h.throttled(w, r, throttle.CategoryOTPConfirmation, st)
		return
	}
	if _, err := h.throttles.Increment(r.Context(), s.UserID, throttle.CategoryOTPConfirmation); err != nil {
		respondError(w, err)
		return
	}

	if s.PendingOTPCode == "" || req.Code != s.PendingOTPCode {
		respondJSON(w, http.StatusUnprocessableEntity, map[string]string{
			"error": "incorrect_code",
		})
		return
	}

	s.PhoneConfirmation.UserConfirmed = true
	s.PendingOTPCode = ""
	h.advance(w, r, cfg, s)
}

type enterPasswordRequest struct {
	Password string `json:"password" validate:"required,min=12"`
}

func (h *Handler) submitEnterPassword(w http.ResponseWriter, r *http.Request, cfg flow.Snapshot, s *session.Session) {
	var req enterPasswordRequest
	if !h.decode(w, r, &req) {
		return
	}
	ctx := r.Context()

	digest, err := secrets.Hash(req.Password)
	if err != nil {
		respondError(w, err)
		return
	}

	p := profile.New(s.UserID, requestcontext.Now(ctx))
	p.PasswordDigest = digest
	if err := h.profiles.Create(ctx, p); err != nil {
		respondError(w, err)
		return
	}

	status := "active"
	if s.AddressVerificationMechanism == session.AddressVerificationGPO {
		if err := h.lifecycle.Deactivate(ctx, p.ID, profile.ReasonGPOVerificationPending); err != nil {
			respondError(w, err)
			return
		}
		status = "pending_verification"
	} else {
		if err := h.lifecycle.Activate(ctx, p.ID); err != nil {
			respondError(w, err)
			return
		}
	}

	h.tracker.Track(ctx, analytics.EventVerificationSubmitted, map[string]any{
		"profile_id": p.ID,
		"status":     status,
	})

	// The flow is complete; the session has no further use.
	if err := h.sessions.Delete(ctx, s.ID); err != nil {
		h.logger.WarnContext(ctx, "deleting completed session failed",
			"session_id", s.ID,
			"error", err,
		)
	}

	respondJSON(w, http.StatusOK, map[string]string{
		"profile_id": p.ID,
		"status":     status,
	})
}

// advance saves the session and reports where the flow now stands.
func (h *Handler) advance(w http.ResponseWriter, r *http.Request, cfg flow.Snapshot, s *session.Session) {
	if err := h.sessions.Save(r.Context(), s); err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{
		"current_step": string(flow.CurrentStep(cfg, s)),
	})
}

func (h *Handler) session(w http.ResponseWriter, r *http.Request) (*session.Session, bool) {
	id := r.Header.Get(sessionHeader)
	if id == "" {
		respondJSON(w, http.StatusUnauthorized, map[string]string{"error": "missing_session"})
		return nil, false
	}
	s, err := h.sessions.Find(r.Context(), id)
	if err != nil {
		respondError(w, err)
		return nil, false
	}
	return s, true
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		respondJSON(w, http.StatusBadRequest, map[string]string{"error": "malformed_body"})
		return false
	}
	if err := h.validate.Struct(dst); err != nil {
		respondValidation(w, err)
		return false
	}
	return true
}

func (h *Handler) throttled(w http.ResponseWriter, r *http.Request, category throttle.Category, st throttle.Status) {
	h.metrics.ThrottleTriggered.WithLabelValues(string(category)).Inc()
	h.tracker.Track(r.Context(), analytics.EventThrottleTriggered, map[string]any{
		"category": string(category),
	})
	respondThrottled(w, st)
}

func (h *Handler) warnUnknownCode(r *http.Request, vendor docauth.Vendor) func(string) {
	return func(code string) {
		h.metrics.UnknownVendorCodes.Inc()
		h.tracker.Track(r.Context(), analytics.EventUnknownVendorCode, map[string]any{
			"vendor": string(vendor),
			"code":   code,
		})
	}
}

// otpCode draws a random six digit confirmation code.
func otpCode() (string, error) {
	var buf [4]byte
	if _, err := rand.Read(buf[:]); err != nil {
		return "", fmt.Errorf("generating otp code: %w", err)
	}
	n := uint32(buf[0])<<24 | uint32(buf[1])<<16 | uint32(buf[2])<<8 | uint32(buf[3])
	return fmt.Sprintf("%06d", n%1000000), nil
}
