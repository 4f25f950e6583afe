package docauth

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// vendorResponseBody is the shared wire shape both HTTP vendors respond with.
type vendorResponseBody struct {
	Success bool               `json:"success"`
	Errors  map[Field][]string `json:"errors,omitempty"`
}

// postJSON performs a vendor call and decodes the response. A non-2xx status
// with a decodable body becomes an unsuccessful Response carrying the status;
// transport-level failures return an error.
func postJSON(ctx context.Context, hc *http.Client, url string, payload any) (Response, error) {
	buf, err := json.Marshal(payload)
	if err != nil {
		return Response{}, fmt.Errorf("encoding vendor request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(buf))
	if err != nil {
		return Response{}, fmt.Errorf("building vendor request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := hc.Do(req)
	if err != nil {
		return Response{}, fmt.Errorf("calling vendor: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return Response{}, fmt.Errorf("reading vendor response: %w", err)
	}

	var decoded vendorResponseBody
	if len(body) > 0 {
		// Coded rejections often carry no body or a non-JSON one; the
		// status alone is enough for normalization in that case.
		_ = json.Unmarshal(body, &decoded)
	}

	out := Response{Success: decoded.Success, Errors: decoded.Errors}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		out.Success = false
		out.HTTPStatus = resp.StatusCode
	}
	return out, nil
}
