// Package tts converts report text to speech through ElevenLabs.
package tts

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/roshaninfordham/safebiteai/internal/adapter/httpx"
)

// DefaultBaseURL is the public ElevenLabs API.
const DefaultBaseURL = "https://api.elevenlabs.io"

const defaultModelID = "eleven_multilingual_v2"

// ErrNotConfigured is returned by Synthesize when no credentials are set.
var ErrNotConfigured = errors.New("voice not configured")

type voiceSettings struct {
	Stability       float64 `json:"stability"`
	SimilarityBoost float64 `json:"similarity_boost"`
}

type synthesizeRequest struct {
	Text          string        `json:"text"`
	ModelID       string        `json:"model_id"`
	VoiceSettings voiceSettings `json:"voice_settings"`
}

// Client is the ElevenLabs text-to-speech client.
type Client struct {
	baseURL string
	apiKey  string
	voiceID string
	http    *httpx.Client
}

// NewClient creates a new client. Missing credentials leave it unavailable.
func NewClient(baseURL, apiKey, voiceID string, httpClient *httpx.Client) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		apiKey:  apiKey,
		voiceID: voiceID,
		http:    httpClient,
	}
}

// Available reports whether both the API key and voice are configured.
func (c *Client) Available() bool {
	return c != nil && c.apiKey != "" && c.voiceID != ""
}

// Synthesize returns MPEG audio for text.
func (c *Client) Synthesize(ctx context.Context, text string) ([]byte, error) {
	if !c.Available() {
		return nil, ErrNotConfigured
	}

	body, err := json.Marshal(synthesizeRequest{
		Text:          text,
		ModelID:       defaultModelID,
		VoiceSettings: voiceSettings{Stability: 0.4, SimilarityBoost: 0.7},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	endpoint := c.baseURL + "/v1/text-to-speech/" + url.PathEscape(c.voiceID)
	resp, err := c.http.Do(ctx, func(ctx context.Context) (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Accept", "audio/mpeg")
		req.Header.Set("xi-api-key", c.apiKey)
		return req, nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to call voice synthesis: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read audio: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("voice synthesis failed [%d]: %s", resp.StatusCode, strings.TrimSpace(string(data)))
	}
	return data, nil
}
