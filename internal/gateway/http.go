package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

const DefaultTimeout = 10 * time.Second

// HTTPClient is the production Client backed by the settlement API.
type HTTPClient struct {
	baseURL string
	token   string
	http    *http.Client
}

// NewHTTPClient creates a settlement client. The bearer token comes from the
// identity/session provider and authorizes scan and wallet calls.
func NewHTTPClient(baseURL, bearerToken string, timeout time.Duration) *HTTPClient {
	if baseURL == "" {
		panic("gateway base URL is required")
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &HTTPClient{
		baseURL: baseURL,
		token:   bearerToken,
		http:    &http.Client{Timeout: timeout},
	}
}

func (c *HTTPClient) SubmitScan(ctx context.Context, req ScanRequest) (*ScanResponse, error) {
	var resp ScanResponse
	if err := c.post(ctx, "/v1/scans", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *HTTPClient) SubmitTransfer(ctx context.Context, req TransferRequest) (*TransferResponse, error) {
	var resp TransferResponse
	if err := c.post(ctx, "/v1/transfers", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *HTTPClient) FetchWallet(ctx context.Context, subjectID string) (*WalletResponse, error) {
	var resp WalletResponse
	path := "/v1/wallets/" + url.PathEscape(subjectID)
	if err := c.get(ctx, path, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *HTTPClient) Health(ctx context.Context) error {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return classifyTransport(err)
	}
	resp, err := c.http.Do(httpReq)
	if err != nil {
		return classifyTransport(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return &TransportError{Err: fmt.Errorf("health check returned %d", resp.StatusCode)}
	}
	return nil
}

func (c *HTTPClient) post(ctx context.Context, path string, body, dest interface{}) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to encode request: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return classifyTransport(err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	return c.do(httpReq, dest)
}

func (c *HTTPClient) get(ctx context.Context, path string, dest interface{}) error {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return classifyTransport(err)
	}
	return c.do(httpReq, dest)
}

func (c *HTTPClient) do(req *http.Request, dest interface{}) error {
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return classifyTransport(err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return classifyTransport(err)
	}

	switch {
	case resp.StatusCode >= 500:
		return &TransportError{Err: fmt.Errorf("endpoint returned %d", resp.StatusCode)}
	case resp.StatusCode >= 400:
		return decodeRejection(data, resp.StatusCode)
	}

	if err := json.Unmarshal(data, dest); err != nil {
		return &TransportError{Err: fmt.Errorf("invalid response body: %w", err)}
	}
	return nil
}

// decodeRejection turns a 4xx body into a RejectionError, preserving the
// server-supplied message verbatim.
func decodeRejection(data []byte, status int) error {
	var body struct {
		ErrorKind string `json:"error_kind"`
		Message   string `json:"message"`
	}
	if err := json.Unmarshal(data, &body); err != nil || body.Message == "" {
		return &RejectionError{Kind: "rejected", Message: fmt.Sprintf("request rejected with status %d", status)}
	}
	if body.ErrorKind == "" {
		body.ErrorKind = "rejected"
	}
	return &RejectionError{Kind: body.ErrorKind, Message: body.Message}
}
