package application

import (
	"context"
	"fmt"
	"log/slog"
)

// AuditStore reads the append-only decision ledger.
type AuditStore interface {
	ListDecisions(ctx context.Context) ([]AuditDecision, error)
}

// AuditService exposes the decision ledger to principals who can decide
// reservations.
type AuditService struct {
	decisions AuditStore
	logger    *slog.Logger
}

// NewAuditService constructs an audit service with the provided dependencies.
func NewAuditService(decisions AuditStore) *AuditService {
	return NewAuditServiceWithLogger(decisions, nil)
}

// NewAuditServiceWithLogger constructs an audit service with a specified logger.
func NewAuditServiceWithLogger(decisions AuditStore, logger *slog.Logger) *AuditService {
	return &AuditService{decisions: decisions, logger: defaultLogger(logger)}
}

// ListDecisions returns the full ledger, oldest first. Only principals with
// the approve capability may read it.
func (s *AuditService) ListDecisions(ctx context.Context, principal Principal) (decisions []AuditDecision, err error) {
	if s == nil {
		err = fmt.Errorf("AuditService is nil")
		return
	}

	logger := serviceLogger(ctx, s.logger, "AuditService", "ListDecisions",
		"principal_id", principal.UserID,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to list decisions", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("result_count", len(decisions)).InfoContext(ctx, "decisions listed")
	}()

	if !principal.Role.Has(CapabilityApprove) {
		err = ErrForbidden
		return
	}

	decisions, err = s.decisions.ListDecisions(ctx)
	if err != nil {
		return
	}

	return
}
