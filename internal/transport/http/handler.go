package http

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/roshaninfordham/safebiteai/internal/adapter/tts"
	"github.com/roshaninfordham/safebiteai/internal/domain"
	"github.com/roshaninfordham/safebiteai/internal/logging"
	"github.com/roshaninfordham/safebiteai/internal/metrics"
	"github.com/roshaninfordham/safebiteai/internal/service"
	"github.com/roshaninfordham/safebiteai/internal/session"
)

// ServiceName is reported by the health endpoint.
const ServiceName = "safebite-api"

// RunStarter starts runs in the background.
type RunStarter interface {
	StartRun(ctx context.Context, req domain.RunRequest) (*service.RunHandle, error)
}

// Synthesizer renders text to audio.
type Synthesizer interface {
	Available() bool
	Synthesize(ctx context.Context, text string) ([]byte, error)
}

// Handler handles HTTP requests.
type Handler struct {
	runs    RunStarter
	store   *session.Store
	voice   Synthesizer
	metrics *metrics.Collector
	logger  logging.Logger

	heartbeat time.Duration
	now       func() time.Time
}

// HandlerOption customizes a Handler.
type HandlerOption func(*Handler)

// WithVoice enables the voice endpoints.
func WithVoice(voice Synthesizer) HandlerOption {
	return func(h *Handler) { h.voice = voice }
}

// WithMetrics exposes /metrics and counts attached streams.
func WithMetrics(m *metrics.Collector) HandlerOption {
	return func(h *Handler) { h.metrics = m }
}

// WithLogger sets the handler logger.
func WithLogger(logger logging.Logger) HandlerOption {
	return func(h *Handler) { h.logger = logger }
}

// WithHeartbeat sets the SSE keep-alive interval.
func WithHeartbeat(d time.Duration) HandlerOption {
	return func(h *Handler) { h.heartbeat = d }
}

// NewHandler creates a new handler.
func NewHandler(runs RunStarter, store *session.Store, opts ...HandlerOption) *Handler {
	h := &Handler{
		runs:      runs,
		store:     store,
		heartbeat: 30 * time.Second,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(h)
	}
	h.logger = logging.OrNop(h.logger)
	return h
}

// RegisterRoutes registers routes with the echo server.
func (h *Handler) RegisterRoutes(e *echo.Echo) {
	// Run API
	e.POST("/api/agent/run", h.StartRun)
	e.GET("/api/agent/stream", h.StreamSSE)
	e.GET("/api/agent/ws", h.StreamWebSocket)
	e.GET("/api/agent/sessions/:session_id", h.GetSession)

	// Voice
	e.GET("/api/voice/status", h.VoiceStatus)
	e.POST("/api/voice", h.Synthesize)

	e.GET("/health", h.Health)
	if h.metrics != nil {
		e.GET("/metrics", echo.WrapHandler(h.metrics.Handler()))
	}
}

// StartRun accepts a run request and returns its session id immediately.
func (h *Handler) StartRun(c echo.Context) error {
	var req domain.RunRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}

	// Runs outlive the request that started them.
	handle, err := h.runs.StartRun(context.WithoutCancel(c.Request().Context()), req)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidRequest) {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
		}
		h.logger.WithError(err).Error("failed to start run")
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to start run"})
	}

	return c.JSON(http.StatusOK, domain.RunResponse{SessionID: handle.SessionID})
}

// sessionView is the JSON shape of GET /api/agent/sessions/:session_id.
type sessionView struct {
	SessionID string               `json:"session_id"`
	CreatedAt time.Time            `json:"created_at"`
	Steps     []domain.StepEvent   `json:"steps"`
	Result    *domain.SafetyReport `json:"result,omitempty"`
	Error     string               `json:"error,omitempty"`
	Done      bool                 `json:"done"`
}

// GetSession returns the current state of a session with steps reduced by id.
func (h *Handler) GetSession(c echo.Context) error {
	snap, err := h.store.Get(c.Param("session_id"))
	if err != nil {
		if errors.Is(err, session.ErrSessionNotFound) {
			return c.JSON(http.StatusNotFound, map[string]string{"error": "session not found"})
		}
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}

	return c.JSON(http.StatusOK, sessionView{
		SessionID: snap.SessionID,
		CreatedAt: snap.CreatedAt,
		Steps:     domain.ReduceSteps(snap.Events),
		Result:    snap.Result,
		Error:     snap.Error,
		Done:      snap.Done,
	})
}

// VoiceStatus reports whether speech synthesis is configured.
func (h *Handler) VoiceStatus(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]bool{"available": h.voiceAvailable()})
}

type synthesizeRequest struct {
	Text string `json:"text"`
}

// Synthesize renders text to MPEG audio.
func (h *Handler) Synthesize(c echo.Context) error {
	if !h.voiceAvailable() {
		return c.JSON(http.StatusServiceUnavailable, map[string]string{"error": tts.ErrNotConfigured.Error()})
	}

	var req synthesizeRequest
	if err := c.Bind(&req); err != nil || strings.TrimSpace(req.Text) == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "text is required"})
	}

	audio, err := h.voice.Synthesize(c.Request().Context(), req.Text)
	if err != nil {
		if errors.Is(err, tts.ErrNotConfigured) {
			return c.JSON(http.StatusServiceUnavailable, map[string]string{"error": err.Error()})
		}
		h.logger.WithError(err).Warn("speech synthesis failed")
		return c.JSON(http.StatusBadGateway, map[string]string{"error": "speech synthesis failed"})
	}

	return c.Blob(http.StatusOK, "audio/mpeg", audio)
}

func (h *Handler) voiceAvailable() bool {
	return h.voice != nil && h.voice.Available()
}

// Health returns health status.
func (h *Handler) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"status":  "ok",
		"service": ServiceName,
		"time":    h.now().UTC().Format(time.RFC3339),
	})
}
