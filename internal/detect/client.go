// Package detect is the HTTP client for the object-detection service.
package detect

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/hammamikhairi/foodlens/internal/domain"
	"github.com/hammamikhairi/foodlens/internal/logger"
)

// DefaultURL is where the detection service listens in development.
const DefaultURL = "http://127.0.0.1:8000/api/detect/"

// request is the body sent to the detection endpoint. Image is the
// base64 payload without a data-URL prefix.
type request struct {
	Image string `json:"image"`
}

// ClientOption configures the Client.
type ClientOption func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(h *http.Client) ClientOption {
	return func(c *Client) { c.http = h }
}

// WithHTTPTimeout sets the HTTP client timeout.
func WithHTTPTimeout(d time.Duration) ClientOption {
	return func(c *Client) { c.http.Timeout = d }
}

// Client posts frames to the detection service.
type Client struct {
	url  string
	http *http.Client
	log  *logger.Logger
}

var _ domain.Detector = (*Client)(nil)

// NewClient creates a detection client for url.
func NewClient(url string, log *logger.Logger, opts ...ClientOption) *Client {
	if url == "" {
		url = DefaultURL
	}
	c := &Client{
		url:  url,
		http: &http.Client{Timeout: 10 * time.Second},
		log:  log,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Detect sends one frame and returns the raw detections.
func (c *Client) Detect(ctx context.Context, frame domain.Frame) ([]domain.RawDetection, error) {
	if len(frame.Data) == 0 {
		return nil, domain.ErrNoFrame
	}

	body, err := json.Marshal(request{Image: base64.StdEncoding.EncodeToString(frame.Data)})
	if err != nil {
		return nil, fmt.Errorf("detect: marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("detect: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("detect: request failed: %w: %w", domain.ErrDetectionService, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("detect: read response: %w: %w", domain.ErrDetectionService, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("detect: %w: %s: %s", domain.ErrDetectionService, resp.Status, truncate(string(respBody), 200))
	}

	var raw []domain.RawDetection
	if err := json.Unmarshal(respBody, &raw); err != nil {
		return nil, fmt.Errorf("detect: unmarshal response: %w: %w", domain.ErrDetectionService, err)
	}

	c.log.Debug("detect: frame %d (%d bytes) -> %d objects", frame.ID, len(frame.Data), len(raw))
	return raw, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-3] + "..."
}
