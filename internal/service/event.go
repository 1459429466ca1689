package service

import (
	"github.com/roshaninfordham/safebiteai/internal/domain"
	"github.com/roshaninfordham/safebiteai/internal/logging"
)

// emit appends a step event to the session timeline.
func (s *Service) emit(sessionID, stepID, label string, status domain.StepStatus, details string) {
	if !s.store.AppendEvent(sessionID, domain.NewStepEvent(stepID, label, status, details)) {
		s.logger.WithFields(logging.Fields{
			"session_id": sessionID,
			"step":       stepID,
		}).Warn("step event dropped")
	}
}

func (s *Service) running(sessionID, stepID, label string) {
	s.emit(sessionID, stepID, label, domain.StepStatusRunning, "")
}

func (s *Service) completed(sessionID, stepID, label string) {
	s.emit(sessionID, stepID, label, domain.StepStatusCompleted, "")
}
