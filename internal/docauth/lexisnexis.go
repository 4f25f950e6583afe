package docauth

import (
	"context"
	"encoding/base64"
	"net/http"
	"time"
)

// LexisNexisClient talks to the LexisNexis TrueID/InstantVerify APIs. It is
// the only vendor supporting selfie comparison, so the router forces it
// whenever liveness is required.
type LexisNexisClient struct {
	baseURL string
	hc      *http.Client
}

func NewLexisNexisClient(baseURL string, timeout time.Duration) *LexisNexisClient {
	return &LexisNexisClient{
		baseURL: baseURL,
		hc:      &http.Client{Timeout: timeout},
	}
}

func (c *LexisNexisClient) Vendor() Vendor { return VendorLexisNexis }

func (c *LexisNexisClient) SubmitImages(ctx context.Context, req ImageRequest) (Response, error) {
	payload := map[string]any{
		"reference": req.CaptureSessionID,
		"document": map[string]string{
			"front": base64.StdEncoding.EncodeToString(req.FrontImage),
			"back":  base64.StdEncoding.EncodeToString(req.BackImage),
		},
	}
	if len(req.SelfieImage) > 0 {
		payload["selfie"] = base64.StdEncoding.EncodeToString(req.SelfieImage)
	}
	return postJSON(ctx, c.hc, c.baseURL+"/restws/identity/v3/trueid", payload)
}

func (c *LexisNexisClient) ProofResolution(ctx context.Context, req ResolutionRequest) (Response, error) {
	payload := map[string]any{
		"reference":     req.TraceID,
		"applicant":     req.Attributes,
		"ssn_last_four": req.SSNLastFour,
	}
	return postJSON(ctx, c.hc, c.baseURL+"/restws/identity/v3/instantverify", payload)
}
