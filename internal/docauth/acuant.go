package docauth

import (
	"context"
	"encoding/base64"
	"net/http"
	"time"
)

// AcuantClient talks to the Acuant document-authentication API.
type AcuantClient struct {
	baseURL string
	hc      *http.Client
}

func NewAcuantClient(baseURL string, timeout time.Duration) *AcuantClient {
	return &AcuantClient{
		baseURL: baseURL,
		hc:      &http.Client{Timeout: timeout},
	}
}

func (c *AcuantClient) Vendor() Vendor { return VendorAcuant }

func (c *AcuantClient) SubmitImages(ctx context.Context, req ImageRequest) (Response, error) {
	payload := map[string]any{
		"capture_session_id": req.CaptureSessionID,
		"front_image":        base64.StdEncoding.EncodeToString(req.FrontImage),
		"back_image":         base64.StdEncoding.EncodeToString(req.BackImage),
	}
	if len(req.SelfieImage) > 0 {
		payload["selfie_image"] = base64.StdEncoding.EncodeToString(req.SelfieImage)
	}
	return postJSON(ctx, c.hc, c.baseURL+"/api/v1/documents", payload)
}

func (c *AcuantClient) ProofResolution(ctx context.Context, req ResolutionRequest) (Response, error) {
	payload := map[string]any{
		"trace_id":      req.TraceID,
		"applicant":     req.Attributes,
		"ssn_last_four": req.SSNLastFour,
	}
	return postJSON(ctx, c.hc, c.baseURL+"/api/v1/resolution", payload)
}
