package middleware

import (
	"context"
	"net/http"
	"strings"
	"time"

	"furnistore/internal/common"
	"furnistore/internal/models"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// AuditRecorder persists audit entries.
type AuditRecorder interface {
	Record(ctx context.Context, entry *models.AuditLog) error
}

// AuditMiddleware records every catalog write made through the admin API.
type AuditMiddleware struct {
	logger   *zap.Logger
	recorder AuditRecorder
}

// NewAuditMiddleware logs writes through logger and, when recorder is not
// nil, stores the successful ones.
func NewAuditMiddleware(logger *zap.Logger, recorder AuditRecorder) *AuditMiddleware {
	return &AuditMiddleware{logger: logger.Named("audit"), recorder: recorder}
}

// AuditWrites logs mutating requests after they complete. Reads are not
// recorded. A failure to store an entry never fails the request.
func (m *AuditMiddleware) AuditWrites() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if !isWrite(c.Request().Method) {
				return next(c)
			}
			start := time.Now()
			err := next(c)

			userID, _ := common.GetUserIDFromContext(c.Request().Context())
			status := c.Response().Status
			fields := []zap.Field{
				zap.String("action", c.Request().Method+" "+c.Path()),
				zap.String("uri", c.Request().RequestURI),
				zap.String("user_id", userID),
				zap.String("ip", c.RealIP()),
				zap.Int("status", status),
				zap.Duration("latency", time.Since(start)),
			}
			recordID := auditRecordID(c)
			if recordID != "" {
				fields = append(fields, zap.String("resource_id", recordID))
			}
			if err != nil || status >= http.StatusBadRequest {
				if err != nil {
					fields = append(fields, zap.Error(err))
				}
				m.logger.Warn("admin write failed", fields...)
				return err
			}
			m.logger.Info("admin write", fields...)

			if m.recorder != nil {
				m.record(c, userID, recordID, status)
			}
			return nil
		}
	}
}

func (m *AuditMiddleware) record(c echo.Context, userID, recordID string, status int) {
	resource, action := classifyWrite(c.Request().Method, c.Path())
	entry := &models.AuditLog{
		Resource: resource,
		Action:   action,
		ActorID:  userID,
		Method:   c.Request().Method,
		Path:     c.Path(),
		Status:   status,
		Details: models.JSONB{
			"ip":         c.RealIP(),
			"request_id": c.Response().Header().Get(echo.HeaderXRequestID),
		},
	}
	if recordID != "" {
		entry.RecordID = &recordID
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(c.Request().Context()), 2*time.Second)
	defer cancel()
	if err := m.recorder.Record(ctx, entry); err != nil {
		m.logger.Error("failed to store audit entry",
			zap.String("resource", resource), zap.String("action", action), zap.Error(err))
	}
}

func auditRecordID(c echo.Context) string {
	for _, name := range []string{"imageId", "id", "name"} {
		if v := c.Param(name); v != "" {
			return v
		}
	}
	return ""
}

// classifyWrite maps a route template such as
// /v1/admin/products/:id/images/:imageId onto (product_image, delete).
func classifyWrite(method, route string) (resource, action string) {
	_, rest, found := strings.Cut(route, "/admin/")
	if !found {
		rest = strings.TrimPrefix(route, "/")
	}
	segments := strings.Split(rest, "/")
	resource = singular(segments[0])
	if len(segments) >= 3 && segments[2] == "images" {
		resource = "product_image"
	}

	last := segments[len(segments)-1]
	switch {
	case last == "update" && strings.Contains(rest, "/bulk/"):
		return resource, models.ActionBulkUpdate
	case last == "delete" && strings.Contains(rest, "/bulk/"):
		return resource, models.ActionBulkDelete
	case last == "hierarchy":
		return resource, models.ActionReorder
	case last == "run":
		return resource, models.ActionRun
	}
	switch method {
	case http.MethodPost:
		return resource, models.ActionCreate
	case http.MethodDelete:
		return resource, models.ActionDelete
	default:
		return resource, models.ActionUpdate
	}
}

func singular(s string) string {
	switch s {
	case "categories":
		return "category"
	case "":
		return "unknown"
	}
	return strings.TrimSuffix(s, "s")
}

func isWrite(method string) bool {
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
		return true
	}
	return false
}
