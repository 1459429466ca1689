package service

import (
	"context"

	"github.com/roshaninfordham/safebiteai/internal/domain"
)

// runProxy delegates the run to the remote backend. A false result means the
// caller must fall back to a local pipeline.
func (s *Service) runProxy(ctx context.Context, sessionID string, req *domain.RunRequest) (*domain.SafetyReport, bool) {
	s.running(sessionID, domain.StepProxy, "Proxying to Agent Starter Pack")

	report, err := s.starterPack.Run(ctx, sessionID, req)
	if err != nil {
		s.logger.WithError(err).WithField("session_id", sessionID).Warn("starter pack proxy failed, falling back")
		s.metrics.ProxyFallback()
		s.emit(sessionID, domain.StepProxy, "Starter Pack proxy failed, falling back to local runner", domain.StepStatusError, err.Error())
		return nil, false
	}

	if report.SessionID == "" {
		report.SessionID = sessionID
	}
	s.completed(sessionID, domain.StepProxy, "Starter Pack response received")
	return report, true
}
