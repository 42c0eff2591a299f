package middleware

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"furnistore/internal/common"
	"furnistore/internal/models"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type recorderStub struct {
	entries []*models.AuditLog
	err     error
}

func (r *recorderStub) Record(_ context.Context, entry *models.AuditLog) error {
	r.entries = append(r.entries, entry)
	return r.err
}

func auditServer(rec AuditRecorder) *echo.Echo {
	e := echo.New()
	g := e.Group("/v1/admin", func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ctx := context.WithValue(c.Request().Context(), common.UserIDKey, "user-7")
			c.SetRequest(c.Request().WithContext(ctx))
			return next(c)
		}
	}, NewAuditMiddleware(zap.NewNop(), rec).AuditWrites())
	ok := func(c echo.Context) error { return c.NoContent(http.StatusOK) }
	g.GET("/products", ok)
	g.PUT("/products/:id", ok)
	g.POST("/products/bulk/delete", ok)
	g.POST("/brands", func(c echo.Context) error {
		return common.SendConflictError(c, "brand already exists")
	})
	return e
}

func TestAuditWrites_RecordsSuccessfulWrites(t *testing.T) {
	rec := &recorderStub{}
	e := auditServer(rec)

	assert.Equal(t, http.StatusOK, doRequest(e, http.MethodGet, "/v1/admin/products", "").Code)
	assert.Empty(t, rec.entries)

	assert.Equal(t, http.StatusOK, doRequest(e, http.MethodPut, "/v1/admin/products/abc", "").Code)
	require.Len(t, rec.entries, 1)
	entry := rec.entries[0]
	assert.Equal(t, "product", entry.Resource)
	assert.Equal(t, models.ActionUpdate, entry.Action)
	assert.Equal(t, "user-7", entry.ActorID)
	require.NotNil(t, entry.RecordID)
	assert.Equal(t, "abc", *entry.RecordID)
	assert.Equal(t, "/v1/admin/products/:id", entry.Path)
	assert.Equal(t, http.StatusOK, entry.Status)
}

func TestAuditWrites_SkipsFailedWrites(t *testing.T) {
	rec := &recorderStub{}
	e := auditServer(rec)

	assert.Equal(t, http.StatusConflict, doRequest(e, http.MethodPost, "/v1/admin/brands", "").Code)
	assert.Empty(t, rec.entries)
}

func TestAuditWrites_StoreFailureKeepsResponse(t *testing.T) {
	rec := &recorderStub{err: errors.New("db down")}
	e := auditServer(rec)

	assert.Equal(t, http.StatusOK, doRequest(e, http.MethodPost, "/v1/admin/products/bulk/delete", "").Code)
	require.Len(t, rec.entries, 1)
	assert.Equal(t, models.ActionBulkDelete, rec.entries[0].Action)
	assert.Nil(t, rec.entries[0].RecordID)
}

func TestClassifyWrite(t *testing.T) {
	tests := []struct {
		method, route    string
		resource, action string
	}{
		{http.MethodPost, "/v1/admin/categories", "category", models.ActionCreate},
		{http.MethodPut, "/v1/admin/categories/hierarchy", "category", models.ActionReorder},
		{http.MethodPut, "/v1/admin/categories/:id", "category", models.ActionUpdate},
		{http.MethodDelete, "/v1/admin/brands/:id", "brand", models.ActionDelete},
		{http.MethodPost, "/v1/admin/products/bulk/update", "product", models.ActionBulkUpdate},
		{http.MethodPost, "/v1/admin/products/:id/images", "product_image", models.ActionCreate},
		{http.MethodDelete, "/v1/admin/products/:id/images/:imageId", "product_image", models.ActionDelete},
		{http.MethodPost, "/v1/admin/jobs/:name/run", "job", models.ActionRun},
	}
	for _, tt := range tests {
		t.Run(tt.method+" "+tt.route, func(t *testing.T) {
			resource, action := classifyWrite(tt.method, tt.route)
			assert.Equal(t, tt.resource, resource)
			assert.Equal(t, tt.action, action)
		})
	}
}
