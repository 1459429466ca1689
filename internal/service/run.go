package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/roshaninfordham/safebiteai/internal/domain"
	"github.com/roshaninfordham/safebiteai/internal/logging"
)

// ErrReportGeneration is the fatal failure of the agent's final report step.
var ErrReportGeneration = errors.New("agent failed to generate report")

// Run outcomes reported to metrics.
const (
	outcomeFinal = "final"
	outcomeError = "error"
)

// RunHandle lets callers optionally await a run. Runs cannot be cancelled.
type RunHandle struct {
	SessionID string
	done      chan struct{}
}

// Done is closed once the run has reached its terminal state.
func (h *RunHandle) Done() <-chan struct{} {
	return h.done
}

// Wait blocks until the run finishes or ctx ends.
func (h *RunHandle) Wait(ctx context.Context) error {
	select {
	case <-h.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// StartRun validates req, registers a session and runs it in the background.
func (s *Service) StartRun(ctx context.Context, req domain.RunRequest) (*RunHandle, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	sessionID := uuid.New().String()
	if !s.store.Create(sessionID) {
		return nil, fmt.Errorf("failed to create session %s", sessionID)
	}

	mode := s.selectMode(req.Mode)
	s.metrics.RunStarted(string(mode))
	s.logger.WithFields(logging.Fields{
		"session_id": sessionID,
		"input_type": req.InputType,
		"mode":       mode,
	}).Info("run started")

	handle := &RunHandle{SessionID: sessionID, done: make(chan struct{})}
	go s.processRun(handle, req, mode)
	return handle, nil
}

// selectMode resolves the pipeline; agent mode needs a configured LLM.
func (s *Service) selectMode(requested domain.RunMode) domain.RunMode {
	mode := requested
	if mode == "" {
		mode = s.opts.RunMode
	}
	if mode == domain.RunModeAgent && s.llmClient == nil {
		return domain.RunModeLocal
	}
	return mode
}

func (s *Service) processRun(h *RunHandle, req domain.RunRequest, mode domain.RunMode) {
	defer close(h.done)

	sessionID := h.SessionID
	start := time.Now()
	outcome := outcomeError
	defer func() {
		s.metrics.RunFinished(outcome, time.Since(start))
	}()
	defer func() {
		if p := recover(); p != nil {
			s.logger.WithField("session_id", sessionID).Errorf("run panicked: %v", p)
			s.fail(sessionID, fmt.Errorf("internal error: %v", p))
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), s.opts.RunTimeout)
	defer cancel()

	report, err := s.run(ctx, sessionID, &req, mode)
	if err != nil {
		s.fail(sessionID, err)
		return
	}

	if !s.store.SetFinal(sessionID, report) {
		s.logger.WithField("session_id", sessionID).Warn("final report dropped")
		return
	}
	outcome = outcomeFinal
	s.logger.WithFields(logging.Fields{
		"session_id":   sessionID,
		"safety_score": report.SafetyScore,
		"safety_flag":  report.SafetyFlag,
		"elapsed_ms":   time.Since(start).Milliseconds(),
	}).Info("run completed")
}

func (s *Service) run(ctx context.Context, sessionID string, req *domain.RunRequest, mode domain.RunMode) (*domain.SafetyReport, error) {
	s.running(sessionID, domain.StepIntent, "Understanding request")
	s.completed(sessionID, domain.StepIntent, "Understanding request")

	if s.starterPack != nil {
		if report, ok := s.runProxy(ctx, sessionID, req); ok {
			return report, nil
		}
	}

	if mode == domain.RunModeAgent {
		return s.runAgent(ctx, sessionID, req)
	}
	return s.runLocal(ctx, sessionID, req)
}

// fail records a fatal run error: an error step followed by the terminal error.
func (s *Service) fail(sessionID string, err error) {
	reason := err.Error()
	if errors.Is(err, ErrReportGeneration) {
		reason = ErrReportGeneration.Error()
	}
	s.logger.WithError(err).WithField("session_id", sessionID).Error("run failed")
	s.emit(sessionID, domain.StepError, "Run failed", domain.StepStatusError, err.Error())
	s.store.SetError(sessionID, reason)
}
