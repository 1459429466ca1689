package starterpack

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roshaninfordham/safebiteai/internal/adapter/httpx"
	"github.com/roshaninfordham/safebiteai/internal/domain"
)

func newTestClient(url string) *Client {
	return NewClient(url, httpx.NewClient(httpx.Config{Timeout: time.Second, MaxRetries: 0}))
}

func TestRunAgainstMockBackend(t *testing.T) {
	e := echo.New()
	e.POST("/run", MockRunHandler)
	server := httptest.NewServer(e)
	defer server.Close()

	report, err := newTestClient(server.URL+"/").Run(context.Background(), "sess-1", &domain.RunRequest{
		InputType: domain.InputTypeText,
		RawText:   "peanut butter",
	})
	require.NoError(t, err)

	assert.Equal(t, "peanut butter", report.ProductName)
	assert.Equal(t, 78, report.SafetyScore)
	assert.Equal(t, domain.SafetyFlagLowRisk, report.SafetyFlag)
	// Adopted verbatim, including alternatives on a low-risk report.
	assert.Len(t, report.Alternatives, 2)
	assert.Contains(t, report.SessionID, "mock-")
}

func TestRunStampsMissingSessionID(t *testing.T) {
	var gotHeader string
	var gotReq domain.RunRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotHeader = r.Header.Get("X-Session-ID")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))
		fmt.Fprint(w, `{"product_name":"Eggs","safety_score":90,"safety_flag":"Low risk"}`)
	}))
	defer server.Close()

	report, err := newTestClient(server.URL).Run(context.Background(), "sess-2", &domain.RunRequest{
		InputType: domain.InputTypeBarcode,
		Barcode:   "123",
	})
	require.NoError(t, err)

	assert.Equal(t, "sess-2", report.SessionID)
	assert.Equal(t, "sess-2", gotHeader)
	assert.Equal(t, "123", gotReq.Barcode)
}

func TestRunFailures(t *testing.T) {
	t.Run("status", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
		}))
		defer server.Close()

		_, err := newTestClient(server.URL).Run(context.Background(), "s", &domain.RunRequest{})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "502")
	})

	t.Run("undecodable", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, "<html>")
		}))
		defer server.Close()

		_, err := newTestClient(server.URL).Run(context.Background(), "s", &domain.RunRequest{})
		assert.Error(t, err)
	})

	t.Run("unreachable", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
		url := server.URL
		server.Close()

		_, err := newTestClient(url).Run(context.Background(), "s", &domain.RunRequest{})
		assert.Error(t, err)
	})
}
