package openfda

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roshaninfordham/safebiteai/internal/adapter/httpx"
)

func newTestClient(url, key string) *Client {
	return NewClient(url, key, httpx.NewClient(httpx.Config{Timeout: time.Second, MaxRetries: 0}), nil)
}

func TestCheckRecallsMatch(t *testing.T) {
	var gotQuery, gotKey string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/food/enforcement.json", r.URL.Path)
		gotQuery = r.URL.Query().Get("search")
		gotKey = r.URL.Query().Get("api_key")
		fmt.Fprint(w, `{"results":[{"reason_for_recall":"E. coli risk","product_description":"Romaine Hearts"}]}`)
	}))
	defer server.Close()

	res := newTestClient(server.URL, "secret").CheckRecalls(context.Background(), "romaine")

	assert.True(t, res.HasRecall)
	assert.Equal(t, "E. coli risk", res.Details)
	assert.Empty(t, res.Error)
	assert.Equal(t, "product_description:romaine", gotQuery)
	assert.Equal(t, "secret", gotKey)
}

func TestCheckRecallsNoMatch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Empty(t, r.URL.Query().Get("api_key"))
		w.WriteHeader(http.StatusNotFound)
		fmt.Fprint(w, `{"error":{"code":"NOT_FOUND"}}`)
	}))
	defer server.Close()

	res := newTestClient(server.URL, "").CheckRecalls(context.Background(), "broccoli")
	assert.False(t, res.HasRecall)
	assert.Empty(t, res.Error)
}

func TestCheckRecallsUnreachable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	res := newTestClient(url, "").CheckRecalls(context.Background(), "broccoli")
	assert.False(t, res.HasRecall)
	assert.Equal(t, ErrorCode, res.Error)
}

func TestCheckRecallsEmptyQuery(t *testing.T) {
	res := newTestClient("http://unused.invalid", "").CheckRecalls(context.Background(), " ")
	assert.False(t, res.HasRecall)
	assert.Empty(t, res.Error)
}
