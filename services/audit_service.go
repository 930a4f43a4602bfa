package services

import (
	"context"
	"fmt"

	"github.com/arenalink/tournament-platform/models"
	"github.com/arenalink/tournament-platform/repositories"
)

type AuditService interface {
	List(ctx context.Context, actor Actor, filter repositories.ListAuditLogsFilter) ([]*models.AuditLog, error)
}

type auditService struct {
	auditRepo repositories.AuditRepository
}

func NewAuditService(auditRepo repositories.AuditRepository) AuditService {
	return &auditService{auditRepo: auditRepo}
}

func (s *auditService) List(ctx context.Context, actor Actor, filter repositories.ListAuditLogsFilter) ([]*models.AuditLog, error) {
	if !CanAdministrate(actor.Role) {
		return nil, ErrForbiddenOperation
	}
	if filter.Limit <= 0 || filter.Limit > 200 {
		filter.Limit = 50
	}
	entries, err := s.auditRepo.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list audit log: %w", err)
	}
	return entries, nil
}
