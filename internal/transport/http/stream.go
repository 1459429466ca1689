package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"github.com/roshaninfordham/safebiteai/internal/domain"
	"github.com/roshaninfordham/safebiteai/internal/logging"
	"github.com/roshaninfordham/safebiteai/internal/session"
)

const (
	sessionNotFound = "session not found"
	writeWait       = 10 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Streams are read-only; any origin may attach.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// envelope is the WebSocket frame: {"type": "step|final|error", "data": ...}.
type envelope struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

// frame maps a session message to its wire event name and payload.
func frame(msg domain.Message) (string, interface{}) {
	switch msg.Type {
	case domain.MessageTypeStep:
		return string(domain.MessageTypeStep), msg.Step
	case domain.MessageTypeFinal:
		return string(domain.MessageTypeFinal), msg.Report
	default:
		return string(domain.MessageTypeError), domain.ErrorPayload{Message: msg.Error}
	}
}

// next waits for the next message. When nothing arrives within the heartbeat
// interval it returns idle=true so the caller can keep the connection alive.
func (h *Handler) next(ctx context.Context, stream *session.Stream) (msg domain.Message, idle bool, err error) {
	waitCtx, cancel := context.WithTimeout(ctx, h.heartbeat)
	defer cancel()

	msg, err = stream.Next(waitCtx)
	if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
		return domain.Message{}, true, nil
	}
	return msg, false, err
}

// StreamSSE delivers a session's history, live steps and terminal message as
// Server-Sent Events.
func (h *Handler) StreamSSE(c echo.Context) error {
	sessionID := c.QueryParam("session_id")
	if sessionID == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "session_id required"})
	}

	w := c.Response()
	w.Header().Set(echo.HeaderContentType, "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	w.Flush()

	stream, err := h.store.Attach(sessionID)
	if err != nil {
		return writeSSE(w, string(domain.MessageTypeError), domain.ErrorPayload{Message: sessionNotFound})
	}
	defer stream.Close()

	h.metrics.StreamOpened()
	defer h.metrics.StreamClosed()

	logger := h.logger.WithFields(logging.Fields{"session_id": sessionID, "transport": "sse"})
	ctx := c.Request().Context()
	for {
		msg, idle, err := h.next(ctx, stream)
		if idle {
			if _, err := fmt.Fprint(w, ": heartbeat\n\n"); err != nil {
				return nil
			}
			w.Flush()
			continue
		}
		if err != nil {
			// io.EOF after the terminal message, or the client went away.
			return nil
		}

		event, data := frame(msg)
		if err := writeSSE(w, event, data); err != nil {
			logger.WithError(err).Debug("sse client write failed")
			return nil
		}
	}
}

func writeSSE(w *echo.Response, event string, data interface{}) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to marshal %s frame: %w", event, err)
	}
	if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, payload); err != nil {
		return err
	}
	w.Flush()
	return nil
}

// StreamWebSocket delivers the same sequence as StreamSSE as JSON envelopes
// and closes the socket after the terminal message.
func (h *Handler) StreamWebSocket(c echo.Context) error {
	sessionID := c.QueryParam("session_id")
	if sessionID == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "session_id required"})
	}

	conn, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		h.logger.WithError(err).Warn("failed to upgrade websocket")
		return nil
	}
	defer conn.Close()

	stream, err := h.store.Attach(sessionID)
	if err != nil {
		_ = writeWS(conn, string(domain.MessageTypeError), domain.ErrorPayload{Message: sessionNotFound})
		closeWS(conn)
		return nil
	}
	defer stream.Close()

	h.metrics.StreamOpened()
	defer h.metrics.StreamClosed()

	ctx, cancel := context.WithCancel(c.Request().Context())
	defer cancel()

	// Clients never send data frames; a read error means they left.
	go func() {
		defer cancel()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	logger := h.logger.WithFields(logging.Fields{"session_id": sessionID, "transport": "ws"})
	for {
		msg, idle, err := h.next(ctx, stream)
		if idle {
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return nil
			}
			continue
		}
		if err != nil {
			break
		}

		event, data := frame(msg)
		if err := writeWS(conn, event, data); err != nil {
			logger.WithError(err).Debug("websocket client write failed")
			return nil
		}
		if msg.IsTerminal() {
			break
		}
	}

	closeWS(conn)
	return nil
}

func writeWS(conn *websocket.Conn, event string, data interface{}) error {
	if err := conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	return conn.WriteJSON(envelope{Type: event, Data: data})
}

func closeWS(conn *websocket.Conn) {
	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
	_ = conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(writeWait))
}
