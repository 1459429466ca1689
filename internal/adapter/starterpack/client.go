// Package starterpack delegates whole runs to a remote orchestration backend.
package starterpack

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/roshaninfordham/safebiteai/internal/adapter/httpx"
	"github.com/roshaninfordham/safebiteai/internal/domain"
)

// Client posts run requests to a remote backend's /run endpoint.
type Client struct {
	baseURL string
	http    *httpx.Client
}

// NewClient creates a new backend client.
func NewClient(baseURL string, httpClient *httpx.Client) *Client {
	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		http:    httpClient,
	}
}

// Endpoint returns the run URL.
func (c *Client) Endpoint() string {
	return c.baseURL + "/run"
}

// Run delegates the request and returns the backend's report as-is, stamped
// with sessionID when the backend left it empty.
func (c *Client) Run(ctx context.Context, sessionID string, req *domain.RunRequest) (*domain.SafetyReport, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	resp, err := c.http.Do(ctx, func(ctx context.Context) (*http.Request, error) {
		httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.Endpoint(), bytes.NewReader(body))
		if err != nil {
			return nil, fmt.Errorf("failed to create request: %w", err)
		}
		httpReq.Header.Set("Content-Type", "application/json")
		httpReq.Header.Set("X-Session-ID", sessionID)
		return httpReq, nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to call starter pack: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		bodyBytes, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("starter pack returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(bodyBytes)))
	}

	var report domain.SafetyReport
	if err := json.NewDecoder(resp.Body).Decode(&report); err != nil {
		return nil, fmt.Errorf("failed to decode starter pack response: %w", err)
	}
	if report.SessionID == "" {
		report.SessionID = sessionID
	}
	return &report, nil
}
