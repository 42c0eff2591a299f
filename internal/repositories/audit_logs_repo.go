package repositories

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"furnistore/internal/models"

	"github.com/google/uuid"
)

type AuditLogsRepository interface {
	Create(ctx context.Context, entry *models.AuditLog) error
	List(ctx context.Context, filters models.AuditLogFilters) ([]*models.AuditLog, error)
	GetSummary(ctx context.Context, startDate, endDate time.Time) (*models.AuditLogSummary, error)
}

type auditLogsRepo struct {
	db DBTX
}

func NewAuditLogsRepo(db DBTX) AuditLogsRepository {
	return &auditLogsRepo{db: db}
}

func (r *auditLogsRepo) Create(ctx context.Context, entry *models.AuditLog) error {
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	var details []byte
	if entry.Details != nil {
		var err error
		if details, err = json.Marshal(entry.Details); err != nil {
			return fmt.Errorf("failed to marshal details: %w", err)
		}
	}

	query := `
		INSERT INTO audit_logs (id, resource, record_id, action, actor_id, method, path, status, details, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NOW())
		RETURNING created_at
	`
	err := r.db.QueryRow(ctx, query,
		entry.ID, entry.Resource, entry.RecordID, entry.Action, entry.ActorID,
		entry.Method, entry.Path, entry.Status, details,
	).Scan(&entry.CreatedAt)
	return translate("auditLogs.Create", "audit log", err)
}

// List returns entries newest first.
func (r *auditLogsRepo) List(ctx context.Context, filters models.AuditLogFilters) ([]*models.AuditLog, error) {
	query := `
		SELECT id, resource, record_id, action, actor_id, method, path, status, details, created_at
		FROM audit_logs
		WHERE TRUE`
	var args []any
	add := func(clause string, v any) {
		args = append(args, v)
		query += fmt.Sprintf(" AND "+clause, len(args))
	}
	if filters.Resource != nil {
		add("resource = $%d", *filters.Resource)
	}
	if filters.RecordID != nil {
		add("record_id = $%d", *filters.RecordID)
	}
	if filters.Action != nil {
		add("action = $%d", *filters.Action)
	}
	if filters.ActorID != nil {
		add("actor_id = $%d", *filters.ActorID)
	}
	if filters.StartDate != nil {
		add("created_at >= $%d", *filters.StartDate)
	}
	if filters.EndDate != nil {
		add("created_at <= $%d", *filters.EndDate)
	}

	query += " ORDER BY created_at DESC, id DESC"
	if filters.Limit > 0 {
		args = append(args, filters.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}
	if filters.Offset > 0 {
		args = append(args, filters.Offset)
		query += fmt.Sprintf(" OFFSET $%d", len(args))
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []*models.AuditLog
	for rows.Next() {
		e := &models.AuditLog{}
		var details []byte
		if err := rows.Scan(&e.ID, &e.Resource, &e.RecordID, &e.Action, &e.ActorID,
			&e.Method, &e.Path, &e.Status, &details, &e.CreatedAt); err != nil {
			return nil, err
		}
		if len(details) > 0 {
			if err := json.Unmarshal(details, &e.Details); err != nil {
				return nil, fmt.Errorf("failed to unmarshal details: %w", err)
			}
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// GetSummary counts entries in [startDate, endDate] per resource, action and
// actor in one round trip.
func (r *auditLogsRepo) GetSummary(ctx context.Context, startDate, endDate time.Time) (*models.AuditLogSummary, error) {
	query := `
		WITH period AS (
			SELECT resource, action, actor_id FROM audit_logs
			WHERE created_at BETWEEN $1 AND $2
		)
		SELECT 'resource', resource, COUNT(*) FROM period GROUP BY resource
		UNION ALL
		SELECT 'action', action, COUNT(*) FROM period GROUP BY action
		UNION ALL
		SELECT 'actor', COALESCE(NULLIF(actor_id, ''), 'unknown'), COUNT(*) FROM period GROUP BY 2
	`
	rows, err := r.db.Query(ctx, query, startDate, endDate)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	summary := &models.AuditLogSummary{
		ResourceBreakdown: make(map[string]int),
		ActionBreakdown:   make(map[string]int),
		ActorActivity:     make(map[string]int),
		PeriodStart:       startDate,
		PeriodEnd:         endDate,
	}
	for rows.Next() {
		var dimension, key string
		var count int
		if err := rows.Scan(&dimension, &key, &count); err != nil {
			return nil, err
		}
		switch dimension {
		case "resource":
			summary.ResourceBreakdown[key] = count
			summary.TotalLogs += count
		case "action":
			summary.ActionBreakdown[key] = count
		case "actor":
			summary.ActorActivity[key] = count
		}
	}
	return summary, rows.Err()
}
