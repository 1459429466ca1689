package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/roshaninfordham/safebiteai/internal/logging"
)

const (
	summaryMaxTokens   = 180
	summaryTemperature = 0.4
)

// Summarizer produces short narrative summaries. A nil client selects the
// deterministic fallback.
type Summarizer struct {
	client LLMClient
	model  string
	logger logging.Logger
}

// NewSummarizer creates a summarizer. client may be nil.
func NewSummarizer(client LLMClient, model string, logger logging.Logger) *Summarizer {
	return &Summarizer{client: client, model: model, logger: logging.OrNop(logger)}
}

// Available reports whether summaries come from a model.
func (s *Summarizer) Available() bool {
	return s != nil && s.client != nil
}

// Summarize condenses text into a few sentences in the requested language.
// It never fails; provider problems produce a truncated echo of the input.
func (s *Summarizer) Summarize(ctx context.Context, text, language string) string {
	if !s.Available() {
		return "Summary unavailable (no API key). Input: " + prefix(text, 120)
	}
	if language == "" {
		language = "English"
	}

	maxTokens := summaryMaxTokens
	temperature := summaryTemperature
	resp, err := s.client.CreateChatCompletion(ctx, &ChatCompletionRequest{
		Model: s.model,
		Messages: []ChatMessage{
			{Role: RoleSystem, Content: fmt.Sprintf("You summarize food safety findings for consumers in two or three plain sentences. Respond in %s.", language)},
			{Role: RoleUser, Content: text},
		},
		MaxTokens:   &maxTokens,
		Temperature: &temperature,
	})
	if err != nil {
		s.logger.WithError(err).Warn("summary generation failed")
		return "Summary unavailable. Input: " + prefix(text, 120)
	}

	if msg := resp.FirstMessage(); msg != nil {
		if out := strings.TrimSpace(msg.Content); out != "" {
			return out
		}
	}
	return prefix(text, 160)
}

// prefix returns at most n runes of s.
func prefix(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
