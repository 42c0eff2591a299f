package services

import (
	"context"
	"time"

	"furnistore/internal/common"
	"furnistore/internal/models"
	"furnistore/internal/repositories"

	"go.uber.org/zap"
)

const (
	defaultAuditLimit = 50
	maxAuditLimit     = 500
	maxAuditRange     = 366 * 24 * time.Hour
)

type AuditLogsService interface {
	Record(ctx context.Context, entry *models.AuditLog) error
	ListAuditLogs(ctx context.Context, filters models.AuditLogFilters) ([]*models.AuditLog, error)
	GetAuditSummary(ctx context.Context, startDate, endDate time.Time) (*models.AuditLogSummary, error)
}

type auditLogsService struct {
	repo   repositories.AuditLogsRepository
	logger *zap.Logger
}

func NewAuditLogsService(repo repositories.AuditLogsRepository, logger *zap.Logger) AuditLogsService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &auditLogsService{repo: repo, logger: logger}
}

// Record stores one entry. Entries without a resource or action are rejected.
func (s *auditLogsService) Record(ctx context.Context, entry *models.AuditLog) error {
	if entry.Resource == "" || entry.Action == "" {
		return common.Invalid("auditLogs.Record", "resource and action are required")
	}
	if err := s.repo.Create(ctx, entry); err != nil {
		return common.Wrap("auditLogs.Record", "failed to record audit log", err)
	}
	return nil
}

func (s *auditLogsService) ListAuditLogs(ctx context.Context, filters models.AuditLogFilters) ([]*models.AuditLog, error) {
	const op = "auditLogs.List"
	if err := validateAuditFilters(op, &filters); err != nil {
		return nil, err
	}
	entries, err := s.repo.List(ctx, filters)
	if err != nil {
		return nil, common.Wrap(op, "failed to list audit logs", err)
	}
	if entries == nil {
		entries = []*models.AuditLog{}
	}
	return entries, nil
}

func (s *auditLogsService) GetAuditSummary(ctx context.Context, startDate, endDate time.Time) (*models.AuditLogSummary, error) {
	const op = "auditLogs.Summary"
	if endDate.Before(startDate) {
		return nil, common.Invalid(op, "end_date must not be before start_date")
	}
	if endDate.Sub(startDate) > maxAuditRange {
		return nil, common.Invalid(op, "date range cannot exceed one year")
	}
	summary, err := s.repo.GetSummary(ctx, startDate, endDate)
	if err != nil {
		return nil, common.Wrap(op, "failed to summarize audit logs", err)
	}
	return summary, nil
}

// validateAuditFilters defaults the page size and rejects unbounded or
// inverted ranges.
func validateAuditFilters(op string, f *models.AuditLogFilters) error {
	switch {
	case f.Limit < 0 || f.Offset < 0:
		return common.Invalid(op, "limit and offset must not be negative")
	case f.Limit == 0:
		f.Limit = defaultAuditLimit
	case f.Limit > maxAuditLimit:
		f.Limit = maxAuditLimit
	}
	if f.StartDate != nil && f.EndDate != nil {
		if f.EndDate.Before(*f.StartDate) {
			return common.Invalid(op, "end_date must not be before start_date")
		}
		if f.EndDate.Sub(*f.StartDate) > maxAuditRange {
			return common.Invalid(op, "date range cannot exceed one year")
		}
	}
	return nil
}
