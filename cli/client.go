package main

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/gorilla/websocket"

	"github.com/roshaninfordham/safebiteai/internal/domain"
)

// errNoFinal is returned when a stream ends without a final report.
var errNoFinal = errors.New("final event not seen")

// Frame is one decoded stream event.
type Frame struct {
	Event string
	Data  json.RawMessage
}

// Client talks to a SafeBite API.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient creates a client for the API at baseURL.
func NewClient(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{baseURL: strings.TrimSuffix(baseURL, "/"), http: httpClient}
}

// StartRun posts a run request and returns its session id.
func (c *Client) StartRun(ctx context.Context, req domain.RunRequest) (string, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/agent/run", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("start run: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", fmt.Errorf("start run: status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	var out domain.RunResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decode run response: %w", err)
	}
	return out.SessionID, nil
}

// StreamSSE reads the SSE stream for a session, calling fn for each frame,
// and returns the final report.
func (c *Client) StreamSSE(ctx context.Context, sessionID string, fn func(Frame)) (*domain.SafetyReport, error) {
	target := c.baseURL + "/api/agent/stream?session_id=" + url.QueryEscape(sessionID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "text/event-stream")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("open stream: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("open stream: status %d", resp.StatusCode)
	}

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	var cur Frame
	for scanner.Scan() {
		line := scanner.Text()
		switch {
		case strings.HasPrefix(line, "event: "):
			cur.Event = strings.TrimPrefix(line, "event: ")
		case strings.HasPrefix(line, "data: "):
			cur.Data = json.RawMessage(strings.TrimPrefix(line, "data: "))
		case line == "" && cur.Event != "":
			report, done, err := handleFrame(cur, fn)
			if done || err != nil {
				return report, err
			}
			cur = Frame{}
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read stream: %w", err)
	}
	return nil, errNoFinal
}

// StreamWS reads the WebSocket stream for a session.
func (c *Client) StreamWS(ctx context.Context, sessionID string, fn func(Frame)) (*domain.SafetyReport, error) {
	u, err := url.Parse(c.baseURL + "/api/agent/ws")
	if err != nil {
		return nil, err
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}
	u.RawQuery = url.Values{"session_id": {sessionID}}.Encode()

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("dial: %w", err)
	}
	defer conn.Close()

	for {
		var env struct {
			Type string          `json:"type"`
			Data json.RawMessage `json:"data"`
		}
		if err := conn.ReadJSON(&env); err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure) {
				return nil, errNoFinal
			}
			return nil, fmt.Errorf("read stream: %w", err)
		}
		report, done, err := handleFrame(Frame{Event: env.Type, Data: env.Data}, fn)
		if done || err != nil {
			return report, err
		}
	}
}

func handleFrame(f Frame, fn func(Frame)) (*domain.SafetyReport, bool, error) {
	if fn != nil {
		fn(f)
	}
	switch f.Event {
	case string(domain.MessageTypeFinal):
		var report domain.SafetyReport
		if err := json.Unmarshal(f.Data, &report); err != nil {
			return nil, true, fmt.Errorf("decode final report: %w", err)
		}
		return &report, true, nil
	case string(domain.MessageTypeError):
		var payload domain.ErrorPayload
		_ = json.Unmarshal(f.Data, &payload)
		return nil, true, fmt.Errorf("run failed: %s", payload.Message)
	}
	return nil, false, nil
}
