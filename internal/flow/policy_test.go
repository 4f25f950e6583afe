package flow

import (
	"testing"

	"github.com/stretchr/testify/require"

	"proofing/internal/session"
)

func snapshot() Snapshot {
	return Snapshot{HybridFlowEnabled: true}
}

func boolPtr(b bool) *bool { return &b }

// completeThrough fills in step outputs up to and including the given step
// for a standard-flow session.
func completeThrough(s *session.Session, key StepKey) {
	steps := []StepKey{
		StepWelcome, StepAgreement, StepHybridHandoff, StepDocumentCapture,
		StepSSN, StepVerifyInfo, StepPhone, StepOTPVerification, StepEnterPassword,
	}
	for _, k := range steps {
		switch k {
		case StepWelcome:
			s.WelcomeVisited = true
		case StepAgreement:
			s.ConsentGiven = true
		case StepHybridHandoff:
			s.FlowPath = session.FlowPathStandard
		case StepDocumentCapture:
			s.DocumentCaptureSessionID = "dcs-123"
			s.ApplicantAttributes = map[string]string{"first_name": "Jane"}
		case StepSSN:
			s.SSNProvided = true
		case StepVerifyInfo:
			s.ResolutionSuccessful = boolPtr(true)
		case StepPhone:
			s.PhoneConfirmation = &session.PhoneConfirmation{VendorConfirmed: true}
		case StepOTPVerification:
			s.PhoneConfirmation.UserConfirmed = true
		case StepEnterPassword:
			s.ProfileConfirmed = true
		}
		if k == key {
			return
		}
	}
}

func TestCurrentStepWalksTheFlowInOrder(t *testing.T) {
	cases := []struct {
		name     string
		through  StepKey
		expected StepKey
	}{
		{"empty session", "", StepWelcome},
		{"welcome visited", StepWelcome, StepAgreement},
		{"consent given", StepAgreement, StepHybridHandoff},
		{"flow path chosen", StepHybridHandoff, StepDocumentCapture},
		{"document captured", StepDocumentCapture, StepSSN},
		{"ssn provided", StepSSN, StepVerifyInfo},
		{"resolution passed", StepVerifyInfo, StepPhone},
		{"phone vendor confirmed", StepPhone, StepOTPVerification},
		{"otp confirmed", StepOTPVerification, StepEnterPassword},
		{"everything satisfied", StepEnterPassword, TerminalStep},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s := session.New("user-1")
			if tc.through != "" {
				completeThrough(s, tc.through)
			}
			require.Equal(t, tc.expected, CurrentStep(snapshot(), s))
			// Idempotent: no mutation between calls.
			require.Equal(t, tc.expected, CurrentStep(snapshot(), s))
		})
	}
}

func TestCurrentStepHybridBranch(t *testing.T) {
	s := session.New("user-1")
	completeThrough(s, StepHybridHandoff)
	s.FlowPath = session.FlowPathHybrid

	require.Equal(t, StepLinkSent, CurrentStep(snapshot(), s))

	s.DocumentCaptureSessionID = "dcs-456"
	require.Equal(t, StepSSN, CurrentStep(snapshot(), s))
}

func TestCurrentStepHybridFlowDisabled(t *testing.T) {
	s := session.New("user-1")
	completeThrough(s, StepHybridHandoff)
	s.FlowPath = session.FlowPathHybrid

	// The flag flip makes link_sent inapplicable; the scan skips it and
	// the session bounces forward to ssn's precondition chain.
	cfg := Snapshot{HybridFlowEnabled: false}
	require.Equal(t, StepSSN, CurrentStep(cfg, s))
	require.False(t, AccessAllowed(cfg, s, StepLinkSent))
}

func TestAccessAllowed(t *testing.T) {
	s := session.New("user-1")
	completeThrough(s, StepAgreement)

	require.True(t, AccessAllowed(snapshot(), s, StepWelcome), "backward to completed step")
	require.True(t, AccessAllowed(snapshot(), s, StepAgreement))
	require.True(t, AccessAllowed(snapshot(), s, StepHybridHandoff), "forward to current step")
	require.False(t, AccessAllowed(snapshot(), s, StepDocumentCapture), "branch not chosen yet")
	require.False(t, AccessAllowed(snapshot(), s, StepLinkSent), "branch not chosen yet")
	require.False(t, AccessAllowed(snapshot(), s, StepSSN), "beyond current step")
	require.False(t, AccessAllowed(snapshot(), s, StepKey("bogus")))
}

func TestAccessAllowedBranchSelection(t *testing.T) {
	s := session.New("user-1")
	completeThrough(s, StepHybridHandoff)
	s.FlowPath = session.FlowPathStandard

	require.True(t, AccessAllowed(snapshot(), s, StepDocumentCapture))
	require.False(t, AccessAllowed(snapshot(), s, StepLinkSent), "other branch stays unreachable")

	s.FlowPath = session.FlowPathHybrid
	require.True(t, AccessAllowed(snapshot(), s, StepLinkSent))
	require.False(t, AccessAllowed(snapshot(), s, StepDocumentCapture))
}

func TestClearFromWipesDownstreamFields(t *testing.T) {
	s := session.New("user-1")
	completeThrough(s, StepEnterPassword)

	ClearFrom(s, StepSSN)

	require.False(t, s.SSNProvided)
	require.Empty(t, s.ResolutionCorrelationID)
	require.Nil(t, s.ResolutionSuccessful)
	require.Empty(t, s.AddressVerificationMechanism)
	require.Nil(t, s.PhoneConfirmation)
	require.False(t, s.ProfileConfirmed)

	// Upstream fields untouched.
	require.True(t, s.ConsentGiven)
	require.Equal(t, session.FlowPathStandard, s.FlowPath)
	require.NotEmpty(t, s.DocumentCaptureSessionID)

	require.Equal(t, StepSSN, CurrentStep(snapshot(), s))
}

func TestClearFromBranchSwitchLeavesNoStaleCapture(t *testing.T) {
	s := session.New("user-1")
	completeThrough(s, StepAgreement)

	// User goes down the hybrid branch and captures a document.
	s.FlowPath = session.FlowPathHybrid
	s.DocumentCaptureSessionID = "dcs-hybrid"
	s.ApplicantAttributes = map[string]string{"first_name": "Jane"}

	// Re-entering hybrid_handoff clears everything it and later steps own,
	// then the handler applies the new branch choice.
	ClearFrom(s, StepHybridHandoff)
	s.FlowPath = session.FlowPathStandard

	require.Empty(t, s.DocumentCaptureSessionID, "abandoned branch capture must not leak")
	require.Nil(t, s.ApplicantAttributes)
	require.Equal(t, StepDocumentCapture, CurrentStep(snapshot(), s))
}
