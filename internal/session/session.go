// Package session holds the per-browsing-session verification state. Each
// field is owned by exactly one flow step; ownership (and the clearing of
// downstream fields on re-entry) is encoded in the step table in
// internal/flow, not here.
package session

import (
	"time"

	"github.com/google/uuid"
)

// FlowPath selects the document-capture branch of the flow.
type FlowPath string

const (
	FlowPathStandard FlowPath = "standard"
	FlowPathHybrid   FlowPath = "hybrid"
)

// AddressVerification selects how address/possession is confirmed.
type AddressVerification string

const (
	AddressVerificationPhone AddressVerification = "phone"
	AddressVerificationGPO   AddressVerification = "gpo"
)

// PhoneConfirmation tracks the two halves of phone possession proof.
type PhoneConfirmation struct {
	Number          string `json:"number"`
	VendorConfirmed bool   `json:"vendor_confirmed"`
	UserConfirmed   bool   `json:"user_confirmed"`
}

// Session aggregates step outputs for one verification attempt. Missing
// fields read as unset; a bool pointer distinguishes "not attempted" from a
// definite failure.
type Session struct {
	ID     string `json:"id"`
	UserID string `json:"user_id"`

	WelcomeVisited bool     `json:"welcome_visited"`
	ConsentGiven   bool     `json:"consent_given"`
	FlowPath       FlowPath `json:"flow_path,omitempty"`

	DocumentCaptureSessionID string            `json:"document_capture_session_id,omitempty"`
	ApplicantAttributes      map[string]string `json:"applicant_attributes,omitempty"`

	SSNProvided bool   `json:"ssn_provided"`
	SSNLastFour string `json:"ssn_last_four,omitempty"`

	ResolutionCorrelationID string `json:"resolution_correlation_id,omitempty"`
	ResolutionSuccessful    *bool  `json:"resolution_successful,omitempty"`

	AddressVerificationMechanism AddressVerification `json:"address_verification_mechanism,omitempty"`
	PhoneConfirmation            *PhoneConfirmation  `json:"phone_confirmation,omitempty"`
	// PendingOTPCode is the code texted to the user, awaiting confirmation.
	PendingOTPCode string `json:"pending_otp_code,omitempty"`

	ProfileConfirmed bool `json:"profile_confirmed"`

	CreatedAt time.Time `json:"created_at"`
}

// New creates an empty session for a user entering the flow.
func New(userID string) *Session {
	return &Session{
		ID:        uuid.NewString(),
		UserID:    userID,
		CreatedAt: time.Now(),
	}
}

// SetResolutionOutcome records a definite resolution result.
func (s *Session) SetResolutionOutcome(ok bool) {
	s.ResolutionSuccessful = &ok
}

// ResolutionPassed reports whether resolution completed successfully.
func (s *Session) ResolutionPassed() bool {
	return s.ResolutionSuccessful != nil && *s.ResolutionSuccessful
}

// Clone returns a deep copy so stores never hand out aliased state.
func (s *Session) Clone() *Session {
	out := *s
	if s.ApplicantAttributes != nil {
		out.ApplicantAttributes = make(map[string]string, len(s.ApplicantAttributes))
		for k, v := range s.ApplicantAttributes {
			out.ApplicantAttributes[k] = v
		}
	}
	if s.ResolutionSuccessful != nil {
		v := *s.ResolutionSuccessful
		out.ResolutionSuccessful = &v
	}
	if s.PhoneConfirmation != nil {
		v := *s.PhoneConfirmation
		out.PhoneConfirmation = &v
	}
	return &out
}
