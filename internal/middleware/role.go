package middleware

import (
	"context"
	"net/http"

	"furnistore/internal/common"

	"github.com/labstack/echo/v4"
)

// RequireRole lets a request through only when the verified token grants
// role. The token subject is copied into the request context.
func RequireRole(role string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			claims, ok := ClaimsFromContext(c)
			if !ok {
				return common.SendUnauthorizedError(c)
			}
			if !claims.HasRole(role) {
				return c.JSON(http.StatusForbidden,
					common.CreateErrorResponse("FORBIDDEN", "Insufficient permissions", nil))
			}

			ctx := context.WithValue(c.Request().Context(), common.UserIDKey, claims.Subject)
			c.SetRequest(c.Request().WithContext(ctx))
			return next(c)
		}
	}
}
