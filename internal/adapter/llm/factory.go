package llm

import (
	"os"

	"github.com/roshaninfordham/safebiteai/internal/adapter/httpx"
	"github.com/roshaninfordham/safebiteai/internal/logging"
)

const (
	// EnvLLMMode is the environment variable name for mode selection.
	EnvLLMMode = "SAFEBITE_LLM_MODE"
	// ModeMock indicates mock mode should be used.
	ModeMock = "MOCK"
)

// NewLLMClient returns a MockClient when SAFEBITE_LLM_MODE=MOCK, a real
// Client when apiKey is set, and nil when no LLM is configured.
func NewLLMClient(baseURL, apiKey string, httpClient *httpx.Client, logger logging.Logger) LLMClient {
	if os.Getenv(EnvLLMMode) == ModeMock {
		logging.OrNop(logger).Info("SAFEBITE_LLM_MODE=MOCK detected, using mock LLM client")
		return NewMockClient()
	}
	if apiKey == "" {
		return nil
	}
	return NewClient(baseURL, apiKey, httpClient)
}
