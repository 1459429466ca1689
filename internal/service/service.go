// Package service drives SafeBite runs from intake to a terminal report.
package service

import (
	"context"
	"encoding/json"
	"time"

	"github.com/roshaninfordham/safebiteai/internal/adapter/llm"
	"github.com/roshaninfordham/safebiteai/internal/domain"
	"github.com/roshaninfordham/safebiteai/internal/logging"
	"github.com/roshaninfordham/safebiteai/internal/metrics"
	"github.com/roshaninfordham/safebiteai/internal/session"
	"github.com/roshaninfordham/safebiteai/internal/tools"
)

// ToolRouter executes model tool calls.
type ToolRouter interface {
	Execute(ctx context.Context, name string, args json.RawMessage) json.RawMessage
	Definitions() []llm.Tool
}

// Summarizer turns findings into a short narrative.
type Summarizer interface {
	Summarize(ctx context.Context, text, language string) string
}

// Delegate runs a whole request on a remote backend.
type Delegate interface {
	Run(ctx context.Context, sessionID string, req *domain.RunRequest) (*domain.SafetyReport, error)
}

// Options tune run behavior.
type Options struct {
	RunMode      domain.RunMode
	Model        string
	MaxToolTurns int
	RunTimeout   time.Duration
}

// Deps are the collaborators a Service needs. LLM and StarterPack may be nil.
type Deps struct {
	Store       *session.Store
	Router      ToolRouter
	Providers   tools.Providers
	Summarizer  Summarizer
	LLM         llm.LLMClient
	StarterPack Delegate
	Metrics     *metrics.Collector
	Logger      logging.Logger
}

type Service struct {
	store       *session.Store
	router      ToolRouter
	providers   tools.Providers
	summarizer  Summarizer
	llmClient   llm.LLMClient
	starterPack Delegate
	metrics     *metrics.Collector
	logger      logging.Logger
	opts        Options
}

func New(deps Deps, opts Options) *Service {
	if opts.RunMode == "" {
		opts.RunMode = domain.RunModeLocal
	}
	if opts.MaxToolTurns <= 0 {
		opts.MaxToolTurns = 7
	}
	if opts.RunTimeout <= 0 {
		opts.RunTimeout = 3 * time.Minute
	}
	logger := logging.OrNop(deps.Logger)
	if deps.Summarizer == nil {
		deps.Summarizer = llm.NewSummarizer(nil, "", logger)
	}
	return &Service{
		store:       deps.Store,
		router:      deps.Router,
		providers:   deps.Providers,
		summarizer:  deps.Summarizer,
		llmClient:   deps.LLM,
		starterPack: deps.StarterPack,
		metrics:     deps.Metrics,
		logger:      logger,
		opts:        opts,
	}
}

// Store returns the session store runs report into.
func (s *Service) Store() *session.Store {
	return s.store
}
