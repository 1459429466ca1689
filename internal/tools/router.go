// Package tools dispatches model tool calls to provider adapters.
package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/roshaninfordham/safebiteai/internal/adapter/llm"
	"github.com/roshaninfordham/safebiteai/internal/logging"
	"github.com/roshaninfordham/safebiteai/internal/metrics"
	"github.com/roshaninfordham/safebiteai/internal/policy"
)

// ErrInvalidArguments marks argument validation failures inside executors.
var ErrInvalidArguments = errors.New("invalid arguments")

// Call outcomes reported to metrics.
const (
	outcomeOK      = "ok"
	outcomeError   = "error"
	outcomeInvalid = "invalid"
	outcomeBlocked = "blocked"
	outcomeUnknown = "unknown"
)

// ExecutorFunc defines a server-side tool executor.
type ExecutorFunc func(ctx context.Context, args json.RawMessage) (json.RawMessage, error)

// Tool is a named executor plus the schema the model sees.
type Tool struct {
	Name        string
	Description string
	Parameters  json.RawMessage
	Exec        ExecutorFunc
}

// Guard decides whether a tool call may run.
type Guard interface {
	Evaluate(ctx context.Context, input policy.Input) (policy.Decision, error)
}

// Router stores tools keyed by name. Execute never fails: every problem is
// reported as an {"error": ...} result the model can read.
type Router struct {
	mu      sync.RWMutex
	tools   map[string]Tool
	guard   Guard
	metrics *metrics.Collector
	logger  logging.Logger
}

// Option configures a Router.
type Option func(*Router)

// WithGuard gates every call through g.
func WithGuard(g Guard) Option {
	return func(r *Router) { r.guard = g }
}

// WithMetrics records call outcomes.
func WithMetrics(m *metrics.Collector) Option {
	return func(r *Router) { r.metrics = m }
}

// WithLogger sets the router logger.
func WithLogger(l logging.Logger) Option {
	return func(r *Router) { r.logger = l }
}

// NewRouter creates an empty router.
func NewRouter(opts ...Option) *Router {
	r := &Router{tools: make(map[string]Tool)}
	for _, opt := range opts {
		opt(r)
	}
	r.logger = logging.OrNop(r.logger)
	return r
}

// Register adds a tool.
func (r *Router) Register(tool Tool) error {
	if tool.Name == "" {
		return fmt.Errorf("tool name is required")
	}
	if tool.Exec == nil {
		return fmt.Errorf("executor is required")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.tools[tool.Name]; exists {
		return fmt.Errorf("executor already registered for %s", tool.Name)
	}
	r.tools[tool.Name] = tool
	return nil
}

// Names returns the registered tool names in sorted order.
func (r *Router) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.tools))
	for name := range r.tools {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Definitions returns function schemas for every registered tool.
func (r *Router) Definitions() []llm.Tool {
	names := r.Names()
	r.mu.RLock()
	defer r.mu.RUnlock()
	defs := make([]llm.Tool, 0, len(names))
	for _, name := range names {
		t := r.tools[name]
		defs = append(defs, llm.FunctionTool(t.Name, t.Description, t.Parameters))
	}
	return defs
}

// Execute runs the named tool and returns its JSON result.
func (r *Router) Execute(ctx context.Context, name string, args json.RawMessage) json.RawMessage {
	r.mu.RLock()
	tool, ok := r.tools[name]
	r.mu.RUnlock()
	if !ok {
		r.record(outcomeUnknown, outcomeUnknown)
		return errorResult(fmt.Sprintf("unknown tool: %s", name))
	}

	if len(args) == 0 {
		args = json.RawMessage(`{}`)
	}
	var argMap map[string]interface{}
	if err := json.Unmarshal(args, &argMap); err != nil {
		r.record(name, outcomeInvalid)
		return errorResult(fmt.Sprintf("%s: %v", ErrInvalidArguments, err))
	}

	if r.guard != nil {
		decision, err := r.guard.Evaluate(ctx, policy.Input{ToolName: name, Args: argMap})
		if err != nil {
			r.logger.WithError(err).WithField("tool", name).Error("tool policy evaluation failed")
			r.record(name, outcomeBlocked)
			return errorResult("blocked: policy evaluation failed")
		}
		if !decision.Allow {
			r.record(name, outcomeBlocked)
			return errorResult("blocked: " + decision.Reason)
		}
	}

	result, err := r.run(ctx, tool, args)
	switch {
	case errors.Is(err, ErrInvalidArguments):
		r.record(name, outcomeInvalid)
		return errorResult(err.Error())
	case err != nil:
		r.logger.WithError(err).WithField("tool", name).Warn("tool execution failed")
		r.record(name, outcomeError)
		return errorResult(err.Error())
	}
	r.record(name, outcomeOK)
	return result
}

func (r *Router) run(ctx context.Context, tool Tool, args json.RawMessage) (result json.RawMessage, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("tool %s panicked: %v", tool.Name, p)
		}
	}()
	result, err = tool.Exec(ctx, args)
	if err == nil && len(result) == 0 {
		result = json.RawMessage(`{}`)
	}
	return result, err
}

func (r *Router) record(name, outcome string) {
	r.metrics.ToolCall(name, outcome)
}

func errorResult(msg string) json.RawMessage {
	data, _ := json.Marshal(map[string]string{"error": msg})
	return data
}

// ErrorOf returns the error message carried by a tool result, if any.
func ErrorOf(result json.RawMessage) string {
	var probe struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(result, &probe); err != nil {
		return ""
	}
	return probe.Error
}
