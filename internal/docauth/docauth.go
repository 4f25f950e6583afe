// Package docauth wraps the document-authentication and identity-resolution
// vendors behind one client interface. The vendor is selected once at
// dispatch time by the Router; downstream code never branches on it again.
package docauth

import (
	"context"

	"proofing/pkg/domainerrors"
)

// Vendor names a configured vendor integration.
type Vendor string

const (
	VendorAcuant     Vendor = "acuant"
	VendorLexisNexis Vendor = "lexisnexis"
	VendorMock       Vendor = "mock"
)

// ParseVendor validates a configured vendor name. Unknown names are a
// deployment misconfiguration and fatal.
func ParseVendor(s string) (Vendor, error) {
	v := Vendor(s)
	switch v {
	case VendorAcuant, VendorLexisNexis, VendorMock:
		return v, nil
	}
	return "", domainerrors.Newf(domainerrors.CodeConfiguration, "unknown doc auth vendor %q", s)
}

// Field addresses one part of a vendor error map.
type Field string

const (
	FieldGeneral Field = "general"
	FieldFront   Field = "front"
	FieldBack    Field = "back"
	FieldID      Field = "id"
	FieldSelfie  Field = "selfie"
)

// ImageRequest carries captured document images for submission.
type ImageRequest struct {
	CaptureSessionID string
	FrontImage       []byte
	BackImage        []byte
	SelfieImage      []byte
}

// ResolutionRequest carries applicant attributes for identity resolution.
type ResolutionRequest struct {
	// Discriminator is the stable per-session value hashed for vendor
	// selection; retries within one session land on the same vendor.
	Discriminator string
	UserID        string
	TraceID       string
	Attributes    map[string]string
	SSNLastFour   string
}

// Response is a raw vendor response before normalization. Errors hold
// vendor-specific codes; they never reach callers unnormalized.
type Response struct {
	Success bool
	Errors  map[Field][]string
	// HTTPStatus is set when the vendor rejected the request with a coded
	// HTTP failure (e.g. image too small), zero otherwise.
	HTTPStatus int
}

// Result is a normalized vendor outcome: canonical message keys only.
type Result struct {
	Success     bool               `json:"success"`
	FieldErrors map[Field][]string `json:"field_errors,omitempty"`
}

//go:generate mockgen -source=docauth.go -destination=mocks/mocks.go -package=mocks Client

// Client is one vendor integration. Transport failures surface as errors;
// vendor-reported failures come back as an unsuccessful Response.
type Client interface {
	Vendor() Vendor
	SubmitImages(ctx context.Context, req ImageRequest) (Response, error)
	ProofResolution(ctx context.Context, req ResolutionRequest) (Response, error)
}
