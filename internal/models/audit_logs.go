package models

import (
	"time"

	"github.com/google/uuid"
)

// JSONB is a free-form object stored in a Postgres jsonb column.
type JSONB map[string]interface{}

// AuditLog is one successful admin write against the catalog.
type AuditLog struct {
	ID        uuid.UUID `json:"id" db:"id"`
	Resource  string    `json:"resource" db:"resource"`
	RecordID  *string   `json:"record_id,omitempty" db:"record_id"`
	Action    string    `json:"action" db:"action"`
	ActorID   string    `json:"actor_id" db:"actor_id"`
	Method    string    `json:"method" db:"method"`
	Path      string    `json:"path" db:"path"`
	Status    int       `json:"status" db:"status"`
	Details   JSONB     `json:"details,omitempty" db:"details"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// Audit actions
const (
	ActionCreate     = "create"
	ActionUpdate     = "update"
	ActionDelete     = "delete"
	ActionBulkUpdate = "bulk_update"
	ActionBulkDelete = "bulk_delete"
	ActionReorder    = "reorder"
	ActionRun        = "run"
)

// AuditLogFilters narrows an audit log listing. Nil fields are not applied.
type AuditLogFilters struct {
	Resource  *string    `json:"resource"`
	RecordID  *string    `json:"record_id"`
	Action    *string    `json:"action"`
	ActorID   *string    `json:"actor_id"`
	StartDate *time.Time `json:"start_date"`
	EndDate   *time.Time `json:"end_date"`
	Limit     int        `json:"limit"`
	Offset    int        `json:"offset"`
}

// AuditLogSummary counts audit entries over a period.
type AuditLogSummary struct {
	TotalLogs         int            `json:"total_logs"`
	ResourceBreakdown map[string]int `json:"resource_breakdown"`
	ActionBreakdown   map[string]int `json:"action_breakdown"`
	ActorActivity     map[string]int `json:"actor_activity"`
	PeriodStart       time.Time      `json:"period_start"`
	PeriodEnd         time.Time      `json:"period_end"`
}
