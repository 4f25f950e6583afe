// Package flow decides which verification step a session may currently
// access. The step table is static configuration; all decisions are pure
// functions of the session plus a config snapshot, safe to recompute on every
// request.
package flow

import (
	"proofing/internal/session"
)

// StepKey identifies one unit of the verification flow.
type StepKey string

const (
	StepWelcome         StepKey = "welcome"
	StepAgreement       StepKey = "agreement"
	StepHybridHandoff   StepKey = "hybrid_handoff"
	StepDocumentCapture StepKey = "document_capture"
	StepLinkSent        StepKey = "link_sent"
	StepSSN             StepKey = "ssn"
	StepVerifyInfo      StepKey = "verify_info"
	StepPhone           StepKey = "phone"
	StepOTPVerification StepKey = "otp_verification"
	StepEnterPassword   StepKey = "enter_password"
)

// Snapshot carries the feature flags preconditions consult. Callers take one
// snapshot per request; the policy never reads ambient configuration, so a
// flag flip mid-session simply changes what the next recomputation returns.
type Snapshot struct {
	HybridFlowEnabled bool
	SelfieRequired    bool
}

// Definition describes one step: when it applies, when its outputs exist, and
// which session fields it owns.
type Definition struct {
	Key StepKey

	// Applicable reports whether the step participates in the session's
	// branch. Inapplicable steps are skipped by the scan and unreachable.
	Applicable func(cfg Snapshot, s *session.Session) bool

	// Satisfied reports whether the step's outputs exist, i.e. the
	// precondition of every later step that needs them.
	Satisfied func(cfg Snapshot, s *session.Session) bool

	// Clear resets every session field this step owns.
	Clear func(s *session.Session)
}

func always(Snapshot, *session.Session) bool { return true }

// Steps is the ordered flow. The two capture branches sit between
// hybrid_handoff and ssn and rejoin at ssn.
var Steps = []Definition{
	{
		Key:        StepWelcome,
		Applicable: always,
		Satisfied: func(_ Snapshot, s *session.Session) bool {
			return s.WelcomeVisited
		},
		Clear: func(s *session.Session) {
			s.WelcomeVisited = false
		},
	},
	{
		Key:        StepAgreement,
		Applicable: always,
		Satisfied: func(_ Snapshot, s *session.Session) bool {
			return s.ConsentGiven
		},
		Clear: func(s *session.Session) {
			s.ConsentGiven = false
		},
	},
	{
		Key:        StepHybridHandoff,
		Applicable: always,
		Satisfied: func(_ Snapshot, s *session.Session) bool {
			return s.FlowPath != ""
		},
		Clear: func(s *session.Session) {
			s.FlowPath = ""
		},
	},
	{
		Key: StepDocumentCapture,
		Applicable: func(_ Snapshot, s *session.Session) bool {
			return s.FlowPath == session.FlowPathStandard
		},
		Satisfied: func(_ Snapshot, s *session.Session) bool {
			return s.DocumentCaptureSessionID != ""
		},
		Clear: clearCapture,
	},
	{
		Key: StepLinkSent,
		Applicable: func(cfg Snapshot, s *session.Session) bool {
			return cfg.HybridFlowEnabled && s.FlowPath == session.FlowPathHybrid
		},
		Satisfied: func(_ Snapshot, s *session.Session) bool {
			return s.DocumentCaptureSessionID != ""
		},
		Clear: clearCapture,
	},
	{
		Key:        StepSSN,
		Applicable: always,
		Satisfied: func(_ Snapshot, s *session.Session) bool {
			return s.SSNProvided
		},
		Clear: func(s *session.Session) {
			s.SSNProvided = false
			s.SSNLastFour = ""
		},
	},
	{
		Key:        StepVerifyInfo,
		Applicable: always,
		Satisfied: func(_ Snapshot, s *session.Session) bool {
			return s.ResolutionPassed()
		},
		Clear: func(s *session.Session) {
			s.ResolutionCorrelationID = ""
			s.ResolutionSuccessful = nil
		},
	},
	{
		Key:        StepPhone,
		Applicable: always,
		Satisfied: func(_ Snapshot, s *session.Session) bool {
			if s.AddressVerificationMechanism == session.AddressVerificationGPO {
				return true
			}
			return s.PhoneConfirmation != nil && s.PhoneConfirmation.VendorConfirmed
		},
		Clear: func(s *session.Session) {
			s.AddressVerificationMechanism = ""
			s.PhoneConfirmation = nil
			s.PendingOTPCode = ""
		},
	},
	{
		Key: StepOTPVerification,
		Applicable: func(_ Snapshot, s *session.Session) bool {
			// GPO verification skips phone possession entirely.
			return s.AddressVerificationMechanism != session.AddressVerificationGPO
		},
		Satisfied: func(_ Snapshot, s *session.Session) bool {
			return s.PhoneConfirmation != nil && s.PhoneConfirmation.UserConfirmed
		},
		Clear: func(s *session.Session) {
			if s.PhoneConfirmation != nil {
				s.PhoneConfirmation.UserConfirmed = false
			}
		},
	},
	{
		Key:        StepEnterPassword,
		Applicable: always,
		Satisfied: func(_ Snapshot, s *session.Session) bool {
			return s.ProfileConfirmed
		},
		Clear: func(s *session.Session) {
			s.ProfileConfirmed = false
		},
	},
}

func clearCapture(s *session.Session) {
	s.DocumentCaptureSessionID = ""
	s.ApplicantAttributes = nil
}

// TerminalStep is where a fully satisfied session lands.
const TerminalStep = StepEnterPassword

func indexOf(key StepKey) int {
	for i, def := range Steps {
		if def.Key == key {
			return i
		}
	}
	return -1
}

// Known reports whether key names a step in the flow.
func Known(key StepKey) bool {
	return indexOf(key) >= 0
}
