package docauth

import (
	"context"
	"sync"
)

// MockClient is the canned-response vendor used in lower environments. When
// configured explicitly it is always honored as-is: the router never
// substitutes another vendor for it, selfie or not.
type MockClient struct {
	mu             sync.Mutex
	imageResp      Response
	imageErr       error
	resolutionResp Response
	resolutionErr  error
}

func NewMockClient() *MockClient {
	return &MockClient{
		imageResp:      Response{Success: true},
		resolutionResp: Response{Success: true},
	}
}

func (c *MockClient) Vendor() Vendor { return VendorMock }

// SetImageResponse overrides the canned document-submission outcome.
func (c *MockClient) SetImageResponse(resp Response, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.imageResp, c.imageErr = resp, err
}

// SetResolutionResponse overrides the canned resolution outcome.
func (c *MockClient) SetResolutionResponse(resp Response, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.resolutionResp, c.resolutionErr = resp, err
}

func (c *MockClient) SubmitImages(ctx context.Context, _ ImageRequest) (Response, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.imageResp, c.imageErr
}

func (c *MockClient) ProofResolution(ctx context.Context, _ ResolutionRequest) (Response, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.resolutionResp, c.resolutionErr
}
