package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"furnistore/internal/common"
	"furnistore/internal/models"
	"furnistore/internal/services"

	"github.com/labstack/echo/v4"
)

var (
	errMustBeRFC3339 = errors.New("must be an RFC 3339 timestamp")
	errMustBeInteger = errors.New("must be an integer")
)

// AuditLogsHandlers serves the admin write trail
type AuditLogsHandlers struct {
	auditLogsService services.AuditLogsService
}

// NewAuditLogsHandlers creates a new audit logs handlers instance
func NewAuditLogsHandlers(auditLogsService services.AuditLogsService) *AuditLogsHandlers {
	return &AuditLogsHandlers{auditLogsService: auditLogsService}
}

// ListAuditLogs returns recorded writes, newest first
func (h *AuditLogsHandlers) ListAuditLogs(c echo.Context) error {
	filters := models.AuditLogFilters{}
	for name, dst := range map[string]**string{
		"resource":  &filters.Resource,
		"record_id": &filters.RecordID,
		"action":    &filters.Action,
		"actor_id":  &filters.ActorID,
	} {
		if v := c.QueryParam(name); v != "" {
			*dst = &v
		}
	}

	var err error
	if filters.StartDate, err = parseTimeParam(c, "start_date"); err != nil {
		return common.SendValidationError(c, "start_date", err.Error())
	}
	if filters.EndDate, err = parseTimeParam(c, "end_date"); err != nil {
		return common.SendValidationError(c, "end_date", err.Error())
	}
	if filters.Limit, err = parseIntParam(c, "limit"); err != nil {
		return common.SendValidationError(c, "limit", err.Error())
	}
	if filters.Offset, err = parseIntParam(c, "offset"); err != nil {
		return common.SendValidationError(c, "offset", err.Error())
	}

	logs, err := h.auditLogsService.ListAuditLogs(c.Request().Context(), filters)
	if err != nil {
		return common.SendServiceError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"audit_logs": logs,
		"count":      len(logs),
	})
}

// GetAuditSummary counts writes per resource, action and actor. The period
// defaults to the last 30 days.
func (h *AuditLogsHandlers) GetAuditSummary(c echo.Context) error {
	end := time.Now().UTC()
	start := end.AddDate(0, 0, -30)

	if t, err := parseTimeParam(c, "start_date"); err != nil {
		return common.SendValidationError(c, "start_date", err.Error())
	} else if t != nil {
		start = *t
	}
	if t, err := parseTimeParam(c, "end_date"); err != nil {
		return common.SendValidationError(c, "end_date", err.Error())
	} else if t != nil {
		end = *t
	}

	summary, err := h.auditLogsService.GetAuditSummary(c.Request().Context(), start, end)
	if err != nil {
		return common.SendServiceError(c, err)
	}
	return c.JSON(http.StatusOK, summary)
}

func parseTimeParam(c echo.Context, name string) (*time.Time, error) {
	raw := c.QueryParam(name)
	if raw == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return nil, errMustBeRFC3339
	}
	return &t, nil
}

func parseIntParam(c echo.Context, name string) (int, error) {
	raw := c.QueryParam(name)
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, errMustBeInteger
	}
	return n, nil
}
