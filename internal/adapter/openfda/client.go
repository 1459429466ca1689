// Package openfda queries the openFDA food enforcement (recall) dataset.
package openfda

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strings"

	"github.com/roshaninfordham/safebiteai/internal/adapter/httpx"
	"github.com/roshaninfordham/safebiteai/internal/logging"
)

const (
	// DefaultBaseURL is the public openFDA endpoint.
	DefaultBaseURL = "https://api.fda.gov"
	// SourceURL is the human-facing dataset page cited in reports.
	SourceURL = "https://open.fda.gov/apis/food/recall/"
	// ErrorCode is reported in RecallResult.Error when the provider fails.
	ErrorCode = "openfda_error"
)

// RecallResult is the recall lookup outcome.
type RecallResult struct {
	HasRecall bool   `json:"has_recall"`
	Details   string `json:"details,omitempty"`
	Error     string `json:"error,omitempty"`
}

type enforcementResponse struct {
	Results []struct {
		ReasonForRecall    string `json:"reason_for_recall"`
		ProductDescription string `json:"product_description"`
		RecallingFirm      string `json:"recalling_firm"`
		Classification     string `json:"classification"`
		Status             string `json:"status"`
	} `json:"results"`
}

// Client is the openFDA client.
type Client struct {
	baseURL string
	apiKey  string
	http    *httpx.Client
	logger  logging.Logger
}

// NewClient creates a new openFDA client. apiKey may be empty.
func NewClient(baseURL, apiKey string, httpClient *httpx.Client, logger logging.Logger) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		apiKey:  apiKey,
		http:    httpClient,
		logger:  logging.OrNop(logger),
	}
}

// CheckRecalls searches enforcement reports whose product description matches
// query and returns the most relevant one. Failures are folded into the result.
func (c *Client) CheckRecalls(ctx context.Context, query string) RecallResult {
	query = strings.TrimSpace(query)
	if query == "" {
		return RecallResult{HasRecall: false}
	}

	params := url.Values{}
	params.Set("search", "product_description:"+query)
	params.Set("limit", "1")
	if c.apiKey != "" {
		params.Set("api_key", c.apiKey)
	}
	endpoint := c.baseURL + "/food/enforcement.json?" + params.Encode()

	resp, err := c.http.Do(ctx, func(ctx context.Context) (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Accept", "application/json")
		return req, nil
	})
	if err != nil {
		c.logger.WithError(err).WithField("query", query).Warn("openfda recall lookup failed")
		return RecallResult{HasRecall: false, Error: ErrorCode}
	}
	defer resp.Body.Close()

	// openFDA answers 404 when the search has no matches.
	if resp.StatusCode != http.StatusOK {
		return RecallResult{HasRecall: false}
	}

	var body enforcementResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		c.logger.WithError(err).WithField("query", query).Warn("failed to decode openfda response")
		return RecallResult{HasRecall: false, Error: ErrorCode}
	}
	if len(body.Results) == 0 {
		return RecallResult{HasRecall: false}
	}

	r := body.Results[0]
	details := strings.TrimSpace(r.ReasonForRecall)
	if details == "" {
		details = strings.TrimSpace(r.ProductDescription)
	}
	return RecallResult{HasRecall: true, Details: details}
}
