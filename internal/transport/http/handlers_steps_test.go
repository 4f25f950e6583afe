package httptransport

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"proofing/internal/analytics"
	"proofing/internal/docauth"
	"proofing/internal/flow"
	"proofing/internal/platform/metrics"
	"proofing/internal/platform/secrets"
	"proofing/internal/profile"
	"proofing/internal/proofing"
	"proofing/internal/session"
	"proofing/internal/throttle"
)

type capturingNotifier struct {
	mu       sync.Mutex
	otpCodes []string
	reproofs []string
}

func (n *capturingNotifier) ReproofCompleted(_ context.Context, userID string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.reproofs = append(n.reproofs, userID)
	return nil
}

func (n *capturingNotifier) OTPCode(_ context.Context, _, code string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.otpCodes = append(n.otpCodes, code)
	return nil
}

func (n *capturingNotifier) lastOTP() string {
	n.mu.Lock()
	defer n.mu.Unlock()
	if len(n.otpCodes) == 0 {
		return ""
	}
	return n.otpCodes[len(n.otpCodes)-1]
}

type testEnv struct {
	server    http.Handler
	flags     flow.Snapshot
	vendor    *docauth.MockClient
	sessions  *session.InMemoryStore
	profiles  *profile.InMemoryStore
	notifier  *capturingNotifier
	fake      *analytics.Fake
	sessionID string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	env := &testEnv{
		flags:    flow.Snapshot{HybridFlowEnabled: true},
		vendor:   docauth.NewMockClient(),
		sessions: session.NewInMemoryStore(),
		profiles: profile.NewInMemoryStore(),
		notifier: &capturingNotifier{},
		fake:     analytics.NewFake(),
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	m := metrics.NewWith(prometheus.NewRegistry())
	docRouter, err := docauth.NewRouter(docauth.RouterConfig{Primary: docauth.VendorMock},
		[]docauth.Client{env.vendor}, env.fake, m)
	require.NoError(t, err)

	orchestrator := proofing.NewOrchestrator(docRouter, proofing.NewInMemoryStore(),
		env.fake, m, time.Minute, time.Second, proofing.WithLogger(logger))
	lifecycle := profile.NewLifecycle(env.profiles, env.notifier, env.fake, m,
		profile.WithLogger(logger))
	throttles := throttle.New(throttle.NewInMemoryStore(), map[throttle.Category]throttle.Limit{
		throttle.CategoryProofSSN:        {MaxAttempts: 5, Window: time.Hour},
		throttle.CategoryResolution:      {MaxAttempts: 5, Window: time.Hour},
		throttle.CategoryOTPConfirmation: {MaxAttempts: 3, Window: time.Hour},
	})

	handler := NewHandler(HandlerDeps{
		Sessions:     env.sessions,
		Snapshot:     func() flow.Snapshot { return env.flags },
		Throttles:    throttles,
		DocRouter:    docRouter,
		Orchestrator: orchestrator,
		Profiles:     env.profiles,
		Lifecycle:    lifecycle,
		Notifier:     env.notifier,
		Tracker:      env.fake,
		Metrics:      m,
		Logger:       logger,
	})
	env.server = NewRouter(handler)
	return env
}

func (e *testEnv) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	}
	req := httptest.NewRequest(method, path, reader)
	if e.sessionID != "" {
		req.Header.Set(sessionHeader, e.sessionID)
	}
	rec := httptest.NewRecorder()
	e.server.ServeHTTP(rec, req)
	return rec
}

func (e *testEnv) decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func (e *testEnv) start(t *testing.T) {
	t.Helper()
	rec := e.do(t, http.MethodPost, "/verify/sessions", map[string]string{"user_id": "user-1"})
	require.Equal(t, http.StatusCreated, rec.Code)
	e.sessionID = e.decode(t, rec)["session_id"].(string)
}

func (e *testEnv) submit(t *testing.T, step string, body any) *httptest.ResponseRecorder {
	t.Helper()
	return e.do(t, http.MethodPost, "/verify/"+step, body)
}

func (e *testEnv) mustSubmit(t *testing.T, step string, body any) map[string]any {
	t.Helper()
	rec := e.submit(t, step, body)
	require.Equalf(t, http.StatusOK, rec.Code, "submitting %s: %s", step, rec.Body.String())
	return e.decode(t, rec)
}

const tinyPNG = "iVBORw0KGgo="

func (e *testEnv) completeThroughCapture(t *testing.T) {
	t.Helper()
	e.mustSubmit(t, "welcome", nil)
	e.mustSubmit(t, "agreement", map[string]any{"consent": true})
	e.mustSubmit(t, "hybrid_handoff", map[string]string{"flow_path": "standard"})
	e.mustSubmit(t, "document_capture", map[string]any{
		"front_image": tinyPNG,
		"back_image":  tinyPNG,
		"applicant":   map[string]string{"first_name": "Ada", "last_name": "Lovelace"},
	})
}

func (e *testEnv) completeThroughResolution(t *testing.T) {
	t.Helper()
	e.completeThroughCapture(t)
	e.mustSubmit(t, "ssn", map[string]string{"ssn": "900123456"})

	rec := e.submit(t, "verify_info", nil)
	require.Equal(t, http.StatusAccepted, rec.Code)
	require.Eventually(t, func() bool {
		rec := e.do(t, http.MethodGet, "/verify/resolution/poll", nil)
		return rec.Code == http.StatusOK
	}, time.Second, 5*time.Millisecond)
}

func (e *testEnv) completeThroughOTP(t *testing.T) {
	t.Helper()
	e.completeThroughResolution(t)
	e.mustSubmit(t, "phone", map[string]string{"mechanism": "phone", "phone": "+12025550123"})
	e.mustSubmit(t, "otp_verification", map[string]string{"code": e.notifier.lastOTP()})
}

func TestStartSessionBeginsAtWelcome(t *testing.T) {
	env := newTestEnv(t)
	env.start(t)

	rec := env.do(t, http.MethodGet, "/verify/welcome", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "welcome", env.decode(t, rec)["current_step"])
}

func TestStepAccessGateRedirectsToCurrentStep(t *testing.T) {
	env := newTestEnv(t)
	env.start(t)

	rec := env.do(t, http.MethodGet, "/verify/ssn", nil)
	require.Equal(t, http.StatusSeeOther, rec.Code)
	require.Equal(t, "/verify/welcome", rec.Header().Get("Location"))

	rec = env.submit(t, "enter_password", map[string]string{"password": "correct horse battery"})
	require.Equal(t, http.StatusSeeOther, rec.Code)
	require.Equal(t, "/verify/welcome", rec.Header().Get("Location"))
}

func TestUnknownStepIs404(t *testing.T) {
	env := newTestEnv(t)
	env.start(t)

	rec := env.do(t, http.MethodGet, "/verify/no_such_step", nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestMissingSessionIs401(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(t, http.MethodGet, "/verify/welcome", nil)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAgreementRequiresConsent(t *testing.T) {
	env := newTestEnv(t)
	env.start(t)
	env.mustSubmit(t, "welcome", nil)

	rec := env.submit(t, "agreement", map[string]any{"consent": false})
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	got := env.mustSubmit(t, "agreement", map[string]any{"consent": true})
	require.Equal(t, "hybrid_handoff", got["current_step"])
}

func TestHybridHandoffRejectedWhenDisabled(t *testing.T) {
	env := newTestEnv(t)
	env.flags.HybridFlowEnabled = false
	env.start(t)
	env.mustSubmit(t, "welcome", nil)
	env.mustSubmit(t, "agreement", map[string]any{"consent": true})

	rec := env.submit(t, "hybrid_handoff", map[string]string{"flow_path": "hybrid"})
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestDocumentCaptureVendorFailureIs422(t *testing.T) {
	env := newTestEnv(t)
	env.vendor.SetImageResponse(docauth.Response{
		Errors: map[docauth.Field][]string{
			docauth.FieldFront: {"visible_photo_check"},
		},
	}, nil)
	env.start(t)
	env.mustSubmit(t, "welcome", nil)
	env.mustSubmit(t, "agreement", map[string]any{"consent": true})
	env.mustSubmit(t, "hybrid_handoff", map[string]string{"flow_path": "standard"})

	rec := env.submit(t, "document_capture", map[string]any{
		"front_image": tinyPNG,
		"back_image":  tinyPNG,
		"applicant":   map[string]string{"first_name": "Ada"},
	})
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	got := env.decode(t, rec)
	fieldErrors := got["field_errors"].(map[string]any)
	require.Contains(t, fieldErrors, "front")
	// Still on the capture step.
	rec = env.do(t, http.MethodGet, "/verify/document_capture", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "document_capture", env.decode(t, rec)["current_step"])
}

func TestBranchSwitchClearsCaptureState(t *testing.T) {
	env := newTestEnv(t)
	env.start(t)
	env.completeThroughCapture(t)

	got := env.mustSubmit(t, "hybrid_handoff", map[string]string{"flow_path": "hybrid"})
	require.Equal(t, "link_sent", got["current_step"])
}

func TestVerifyInfoDispatchesAndPollsToDone(t *testing.T) {
	env := newTestEnv(t)
	env.start(t)
	env.completeThroughCapture(t)
	env.mustSubmit(t, "ssn", map[string]string{"ssn": "900123456"})

	rec := env.submit(t, "verify_info", nil)
	require.Equal(t, http.StatusAccepted, rec.Code)
	require.Equal(t, "pending", env.decode(t, rec)["status"])

	require.Eventually(t, func() bool {
		rec := env.do(t, http.MethodGet, "/verify/resolution/poll", nil)
		if rec.Code != http.StatusOK {
			return false
		}
		got := env.decode(t, rec)
		return got["status"] == "done" && got["success"] == true && got["current_step"] == "phone"
	}, time.Second, 5*time.Millisecond)
}

func TestVerifyInfoThrottledAfterMaxDispatches(t *testing.T) {
	env := newTestEnv(t)
	env.start(t)
	env.completeThroughCapture(t)
	env.mustSubmit(t, "ssn", map[string]string{"ssn": "900123456"})

	for i := 0; i < 5; i++ {
		rec := env.submit(t, "verify_info", nil)
		require.Equal(t, http.StatusAccepted, rec.Code, "dispatch %d", i)
	}

	rec := env.submit(t, "verify_info", nil)
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	require.NotEmpty(t, rec.Header().Get("Retry-After"))
	require.True(t, env.fake.Tracked(analytics.EventThrottleTriggered))
}

func TestOTPWrongCodeThenThrottle(t *testing.T) {
	env := newTestEnv(t)
	env.start(t)
	env.completeThroughResolution(t)
	env.mustSubmit(t, "phone", map[string]string{"mechanism": "phone", "phone": "+12025550123"})

	for i := 0; i < 3; i++ {
		rec := env.submit(t, "otp_verification", map[string]string{"code": "000000"})
		require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	}

	// The right code no longer helps once the category is exhausted.
	rec := env.submit(t, "otp_verification", map[string]string{"code": env.notifier.lastOTP()})
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
}

func TestFullFlowActivatesProfileAndEndsSession(t *testing.T) {
	env := newTestEnv(t)
	env.start(t)
	env.completeThroughOTP(t)

	rec := env.submit(t, "enter_password", map[string]string{"password": "correct horse battery"})
	require.Equal(t, http.StatusOK, rec.Code)
	got := env.decode(t, rec)
	require.Equal(t, "active", got["status"])

	p, err := env.profiles.Find(context.Background(), got["profile_id"].(string))
	require.NoError(t, err)
	require.True(t, p.Active)
	require.NoError(t, secrets.Verify("correct horse battery", p.PasswordDigest),
		"the profile stores a digest of the submitted password")
	require.True(t, env.fake.Tracked(analytics.EventVerificationSubmitted))

	// The session is gone; further requests start over.
	rec = env.do(t, http.MethodGet, "/verify/welcome", nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGPOPathLeavesProfilePendingVerification(t *testing.T) {
	env := newTestEnv(t)
	env.start(t)
	env.completeThroughResolution(t)
	env.mustSubmit(t, "phone", map[string]string{"mechanism": "gpo"})

	rec := env.submit(t, "enter_password", map[string]string{"password": "correct horse battery"})
	require.Equal(t, http.StatusOK, rec.Code)
	got := env.decode(t, rec)
	require.Equal(t, "pending_verification", got["status"])

	p, err := env.profiles.Find(context.Background(), got["profile_id"].(string))
	require.NoError(t, err)
	require.False(t, p.Active)
	require.Equal(t, profile.ReasonGPOVerificationPending, p.DeactivationReason)
}

func TestSSNStoredInItsOwnSessionField(t *testing.T) {
	env := newTestEnv(t)
	env.start(t)
	env.completeThroughCapture(t)
	env.mustSubmit(t, "ssn", map[string]string{"ssn": "900123456"})

	s, err := env.sessions.Find(context.Background(), env.sessionID)
	require.NoError(t, err)
	require.Equal(t, "3456", s.SSNLastFour)
	require.NotContains(t, s.ApplicantAttributes, "ssn_last_four",
		"applicant attributes belong to the capture step")
}

func TestValidationErrorsListOffendingFields(t *testing.T) {
	env := newTestEnv(t)
	env.start(t)
	env.completeThroughCapture(t)

	rec := env.submit(t, "ssn", map[string]string{"ssn": "12"})
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	got := env.decode(t, rec)
	require.Contains(t, got["fields"].(map[string]any), "SSN")
}

func TestHealthz(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(t, http.MethodGet, "/healthz", nil)
	require.Equal(t, http.StatusOK, rec.Code)
}
