// Package news scans recent food safety reporting through a search-enabled model.
package news

import (
	"context"
	"fmt"
	"strings"

	"github.com/roshaninfordham/safebiteai/internal/adapter/llm"
	"github.com/roshaninfordham/safebiteai/internal/logging"
)

// Error codes reported in Result.Error.
const (
	ErrorUnavailable = "news_unavailable"
	ErrorFailed      = "news_error"
)

// Source is a cited web page.
type Source struct {
	Title string `json:"title"`
	URI   string `json:"uri"`
}

// Result is the news scan outcome.
type Result struct {
	NewsSummary string   `json:"news_summary,omitempty"`
	Sources     []Source `json:"sources"`
	Error       string   `json:"error,omitempty"`
}

// Scanner queries a search model for outbreak and recall chatter.
type Scanner struct {
	client llm.LLMClient
	model  string
	logger logging.Logger
}

// NewScanner creates a scanner. client may be nil, in which case every scan
// reports ErrorUnavailable.
func NewScanner(client llm.LLMClient, model string, logger logging.Logger) *Scanner {
	return &Scanner{client: client, model: model, logger: logging.OrNop(logger)}
}

// Scan summarizes recent outbreak reports about query.
func (s *Scanner) Scan(ctx context.Context, query string) Result {
	if s.client == nil {
		return Result{Sources: []Source{}, Error: ErrorUnavailable}
	}

	prompt := fmt.Sprintf("Search for recent food safety alerts, bacterial outbreaks (E. coli, Salmonella, Listeria), "+
		"and virus reports on news sites and social media regarding: %s. Summarize any active threats.", strings.TrimSpace(query))
	resp, err := s.client.CreateChatCompletion(ctx, &llm.ChatCompletionRequest{
		Model:    s.model,
		Messages: []llm.ChatMessage{{Role: llm.RoleUser, Content: prompt}},
	})
	if err != nil {
		s.logger.WithError(err).WithField("query", query).Warn("news scan failed")
		return Result{Sources: []Source{}, Error: ErrorFailed}
	}

	msg := resp.FirstMessage()
	if msg == nil {
		return Result{Sources: []Source{}, Error: ErrorFailed}
	}
	return Result{
		NewsSummary: strings.TrimSpace(msg.Content),
		Sources:     citations(msg.Annotations),
	}
}

func citations(annotations []llm.Annotation) []Source {
	seen := make(map[string]bool, len(annotations))
	out := make([]Source, 0, len(annotations))
	for _, a := range annotations {
		if a.URLCitation == nil || a.URLCitation.URL == "" || seen[a.URLCitation.URL] {
			continue
		}
		seen[a.URLCitation.URL] = true
		out = append(out, Source{Title: a.URLCitation.Title, URI: a.URLCitation.URL})
	}
	return out
}
