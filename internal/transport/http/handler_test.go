package http

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roshaninfordham/safebiteai/internal/domain"
	"github.com/roshaninfordham/safebiteai/internal/metrics"
	"github.com/roshaninfordham/safebiteai/internal/service"
	"github.com/roshaninfordham/safebiteai/internal/session"
)

type fakeRuns struct {
	store *session.Store
	err   error
	got   []domain.RunRequest
}

func (f *fakeRuns) StartRun(_ context.Context, req domain.RunRequest) (*service.RunHandle, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if f.err != nil {
		return nil, f.err
	}
	f.got = append(f.got, req)
	id := fmt.Sprintf("run-%d", len(f.got))
	f.store.Create(id)
	return &service.RunHandle{SessionID: id}, nil
}

type fakeVoice struct {
	available bool
	audio     []byte
	err       error
}

func (f *fakeVoice) Available() bool { return f.available }

func (f *fakeVoice) Synthesize(context.Context, string) ([]byte, error) {
	return f.audio, f.err
}

type testEnv struct {
	store *session.Store
	runs  *fakeRuns
	e     *echo.Echo
}

func newTestEnv(t *testing.T, opts ...HandlerOption) *testEnv {
	t.Helper()
	store := session.NewStore(session.DefaultStoreConfig(), nil)
	runs := &fakeRuns{store: store}
	h := NewHandler(runs, store, opts...)
	h.now = func() time.Time { return time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC) }
	return &testEnv{store: store, runs: runs, e: NewServer(ServerConfig{}, h)}
}

func (env *testEnv) do(method, target, body string) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	env.e.ServeHTTP(rec, req)
	return rec
}

func step(id string, status domain.StepStatus) domain.StepEvent {
	return domain.NewStepEvent(id, id, status, "")
}

type sseFrame struct {
	Event string
	Data  string
}

func parseSSE(t *testing.T, body string) []sseFrame {
	t.Helper()
	var frames []sseFrame
	for _, block := range strings.Split(body, "\n\n") {
		var f sseFrame
		for _, line := range strings.Split(block, "\n") {
			switch {
			case strings.HasPrefix(line, "event: "):
				f.Event = strings.TrimPrefix(line, "event: ")
			case strings.HasPrefix(line, "data: "):
				f.Data = strings.TrimPrefix(line, "data: ")
			}
		}
		if f.Event != "" {
			frames = append(frames, f)
		}
	}
	return frames
}

func TestStartRun(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(http.MethodPost, "/api/agent/run", `{"input_type":"barcode","barcode":"0123456789"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp domain.RunResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "run-1", resp.SessionID)
	require.Len(t, env.runs.got, 1)
	assert.Equal(t, "0123456789", env.runs.got[0].Barcode)
	assert.True(t, env.store.Exists("run-1"))
}

func TestStartRunInvalidRequest(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(http.MethodPost, "/api/agent/run", `{"input_type":"barcode"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "error")

	rec = env.do(http.MethodPost, "/api/agent/run", `{not json`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Empty(t, env.runs.got)
}

func TestStartRunServiceFailure(t *testing.T) {
	env := newTestEnv(t)
	env.runs.err = fmt.Errorf("boom")

	rec := env.do(http.MethodPost, "/api/agent/run", `{"input_type":"text","raw_text":"milk"}`)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestStreamSSERequiresSessionID(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(http.MethodGet, "/api/agent/stream", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"error":"session_id required"}`, rec.Body.String())
}

func TestStreamSSEUnknownSession(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(http.MethodGet, "/api/agent/stream?session_id=missing", "")
	assert.Equal(t, "text/event-stream", rec.Header().Get(echo.HeaderContentType))

	frames := parseSSE(t, rec.Body.String())
	require.Len(t, frames, 1)
	assert.Equal(t, "error", frames[0].Event)
	assert.JSONEq(t, `{"message":"session not found"}`, frames[0].Data)
}

func TestStreamSSEReplaysFinishedSession(t *testing.T) {
	env := newTestEnv(t)
	env.store.Create("s1")
	env.store.AppendEvent("s1", step("intent", domain.StepStatusRunning))
	env.store.AppendEvent("s1", step("intent", domain.StepStatusCompleted))
	env.store.SetFinal("s1", &domain.SafetyReport{SessionID: "s1", ProductName: "Broccoli", SafetyScore: 100})

	rec := env.do(http.MethodGet, "/api/agent/stream?session_id=s1", "")
	frames := parseSSE(t, rec.Body.String())
	require.Len(t, frames, 3)
	assert.Equal(t, []string{"step", "step", "final"}, []string{frames[0].Event, frames[1].Event, frames[2].Event})

	var first domain.StepEvent
	require.NoError(t, json.Unmarshal([]byte(frames[0].Data), &first))
	assert.Equal(t, domain.StepStatusRunning, first.Status)

	var report domain.SafetyReport
	require.NoError(t, json.Unmarshal([]byte(frames[2].Data), &report))
	assert.Equal(t, "Broccoli", report.ProductName)
}

func TestStreamSSEErrorSession(t *testing.T) {
	env := newTestEnv(t)
	env.store.Create("s1")
	env.store.SetError("s1", "agent failed to generate report")

	frames := parseSSE(t, env.do(http.MethodGet, "/api/agent/stream?session_id=s1", "").Body.String())
	require.Len(t, frames, 1)
	assert.Equal(t, "error", frames[0].Event)
	assert.JSONEq(t, `{"message":"agent failed to generate report"}`, frames[0].Data)
}

func TestStreamSSELiveDelivery(t *testing.T) {
	env := newTestEnv(t, WithHeartbeat(20*time.Millisecond))
	env.store.Create("s1")
	env.store.AppendEvent("s1", step("intent", domain.StepStatusRunning))

	srv := httptest.NewServer(env.e)
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/api/agent/stream?session_id=s1")
	require.NoError(t, err)
	defer resp.Body.Close()

	reader := bufio.NewReader(resp.Body)
	readLine := func() string {
		line, err := reader.ReadString('\n')
		require.NoError(t, err)
		return strings.TrimSuffix(line, "\n")
	}

	assert.Equal(t, "event: step", readLine())
	readLine()
	readLine()

	// Idle streams are kept alive until the run produces something.
	assert.Equal(t, ": heartbeat", readLine())

	env.store.AppendEvent("s1", step("intent", domain.StepStatusCompleted))
	env.store.SetFinal("s1", &domain.SafetyReport{SessionID: "s1", ProductName: "Milk"})

	rest, err := io.ReadAll(reader)
	require.NoError(t, err)
	frames := parseSSE(t, string(rest))
	require.Len(t, frames, 2)
	assert.Equal(t, "step", frames[0].Event)
	assert.Equal(t, "final", frames[1].Event)
	assert.Zero(t, env.store.ObserverCount("s1"))
}

func dialWS(t *testing.T, srv *httptest.Server, sessionID string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/agent/ws?session_id=" + sessionID
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	return conn
}

type wireEnvelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

func TestStreamWebSocket(t *testing.T) {
	env := newTestEnv(t)
	env.store.Create("s1")
	env.store.AppendEvent("s1", step("intent", domain.StepStatusRunning))

	srv := httptest.NewServer(env.e)
	defer srv.Close()

	conn := dialWS(t, srv, "s1")
	defer conn.Close()

	var first wireEnvelope
	require.NoError(t, conn.ReadJSON(&first))
	assert.Equal(t, "step", first.Type)

	env.store.AppendEvent("s1", step("intent", domain.StepStatusCompleted))
	env.store.SetFinal("s1", &domain.SafetyReport{SessionID: "s1", ProductName: "Eggs"})

	var types []string
	var last wireEnvelope
	for {
		var msg wireEnvelope
		if err := conn.ReadJSON(&msg); err != nil {
			assert.True(t, websocket.IsCloseError(err, websocket.CloseNormalClosure), "unexpected error: %v", err)
			break
		}
		types = append(types, msg.Type)
		last = msg
	}
	assert.Equal(t, []string{"step", "final"}, types)

	var report domain.SafetyReport
	require.NoError(t, json.Unmarshal(last.Data, &report))
	assert.Equal(t, "Eggs", report.ProductName)
}

func TestStreamWebSocketUnknownSession(t *testing.T) {
	env := newTestEnv(t)
	srv := httptest.NewServer(env.e)
	defer srv.Close()

	conn := dialWS(t, srv, "missing")
	defer conn.Close()

	var msg wireEnvelope
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, "error", msg.Type)
	assert.JSONEq(t, `{"message":"session not found"}`, string(msg.Data))

	_, _, err := conn.ReadMessage()
	assert.True(t, websocket.IsCloseError(err, websocket.CloseNormalClosure))
}

func TestGetSessionReducesSteps(t *testing.T) {
	env := newTestEnv(t)
	env.store.Create("s1")
	env.store.AppendEvent("s1", step("intent", domain.StepStatusRunning))
	env.store.AppendEvent("s1", step("recall", domain.StepStatusRunning))
	env.store.AppendEvent("s1", step("intent", domain.StepStatusCompleted))

	rec := env.do(http.MethodGet, "/api/agent/sessions/s1", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var view sessionView
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &view))
	require.Len(t, view.Steps, 2)
	assert.Equal(t, "intent", view.Steps[0].ID)
	assert.Equal(t, domain.StepStatusCompleted, view.Steps[0].Status)
	assert.Equal(t, "recall", view.Steps[1].ID)
	assert.False(t, view.Done)

	assert.Equal(t, http.StatusNotFound, env.do(http.MethodGet, "/api/agent/sessions/missing", "").Code)
}

func TestVoiceNotConfigured(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(http.MethodGet, "/api/voice/status", "")
	assert.JSONEq(t, `{"available":false}`, rec.Body.String())

	rec = env.do(http.MethodPost, "/api/voice", `{"text":"hello"}`)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestVoiceSynthesize(t *testing.T) {
	env := newTestEnv(t, WithVoice(&fakeVoice{available: true, audio: []byte("ID3")}))

	rec := env.do(http.MethodGet, "/api/voice/status", "")
	assert.JSONEq(t, `{"available":true}`, rec.Body.String())

	rec = env.do(http.MethodPost, "/api/voice", `{"text":"Low risk"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "audio/mpeg", rec.Header().Get(echo.HeaderContentType))
	assert.Equal(t, "ID3", rec.Body.String())

	rec = env.do(http.MethodPost, "/api/voice", `{"text":"  "}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestVoiceUpstreamFailure(t *testing.T) {
	env := newTestEnv(t, WithVoice(&fakeVoice{available: true, err: fmt.Errorf("status 500")}))

	rec := env.do(http.MethodPost, "/api/voice", `{"text":"hi"}`)
	assert.Equal(t, http.StatusBadGateway, rec.Code)
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(http.MethodGet, "/health", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok","service":"safebite-api","time":"2026-01-02T03:04:05Z"}`, rec.Body.String())
}

func TestMetricsEndpoint(t *testing.T) {
	store := session.NewStore(session.DefaultStoreConfig(), nil)
	m := metrics.New(store.Len)
	e := NewServer(ServerConfig{}, NewHandler(&fakeRuns{store: store}, store, WithMetrics(m)))

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "safebite_active_streams")
}

func TestMockStarterPackRoute(t *testing.T) {
	store := session.NewStore(session.DefaultStoreConfig(), nil)
	h := NewHandler(&fakeRuns{store: store}, store)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/mock/starter-pack/run", strings.NewReader(`{"raw_text":"milk"}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	NewServer(ServerConfig{}, h).ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	store2 := session.NewStore(session.DefaultStoreConfig(), nil)
	e := NewServer(ServerConfig{MockStarterPack: true}, NewHandler(&fakeRuns{store: store2}, store2))
	rec = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodPost, "/mock/starter-pack/run", strings.NewReader(`{"raw_text":"milk"}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	e.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var report domain.SafetyReport
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &report))
	assert.Equal(t, 78, report.SafetyScore)
}
