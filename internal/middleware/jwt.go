package middleware

import (
	"context"
	"errors"
	"slices"
	"time"

	"furnistore/internal/common"
	"furnistore/internal/config"

	"github.com/MicahParks/keyfunc/v2"
	"github.com/golang-jwt/jwt/v5"
	echojwt "github.com/labstack/echo-jwt/v4"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// AdminClaims are the claims read from admin bearer tokens.
type AdminClaims struct {
	Role  string   `json:"role,omitempty"`
	Roles []string `json:"roles,omitempty"`
	jwt.RegisteredClaims
}

// HasRole reports whether the token grants role, through either claim.
func (c *AdminClaims) HasRole(role string) bool {
	return c.Role == role || slices.Contains(c.Roles, role)
}

// AdminAuth verifies bearer tokens on admin routes. Keys come from a JWKS
// endpoint when one is configured, otherwise from a shared HMAC secret.
type AdminAuth struct {
	jwks      *keyfunc.JWKS
	secret    []byte
	adminRole string
	logger    *zap.Logger
}

func NewAdminAuth(ctx context.Context, cfg config.AuthConfig, logger *zap.Logger) (*AdminAuth, error) {
	a := &AdminAuth{adminRole: cfg.AdminRole, logger: logger}
	if a.adminRole == "" {
		a.adminRole = "admin"
	}
	switch {
	case cfg.JWKSURL != "":
		jwks, err := keyfunc.Get(cfg.JWKSURL, keyfunc.Options{
			Ctx:               ctx,
			RefreshInterval:   time.Hour,
			RefreshRateLimit:  5 * time.Minute,
			RefreshTimeout:    10 * time.Second,
			RefreshUnknownKID: true,
			RefreshErrorHandler: func(err error) {
				logger.Warn("jwks refresh failed", zap.Error(err))
			},
		})
		if err != nil {
			return nil, err
		}
		a.jwks = jwks
	case cfg.JWTSecret != "":
		a.secret = []byte(cfg.JWTSecret)
	default:
		return nil, errors.New("admin auth needs AUTH_JWKS_URL or JWT_SECRET")
	}
	return a, nil
}

// Middleware rejects requests without a valid token carrying the admin role.
func (a *AdminAuth) Middleware() echo.MiddlewareFunc {
	cfg := echojwt.Config{
		NewClaimsFunc: func(c echo.Context) jwt.Claims {
			return new(AdminClaims)
		},
		ErrorHandler: func(c echo.Context, err error) error {
			a.logger.Debug("admin token rejected", zap.String("path", c.Path()), zap.Error(err))
			return common.SendUnauthorizedError(c)
		},
	}
	if a.jwks != nil {
		cfg.KeyFunc = a.jwks.Keyfunc
	} else {
		cfg.SigningKey = a.secret
	}
	verify := echojwt.WithConfig(cfg)
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return verify(RequireRole(a.adminRole)(next))
	}
}

// Close stops the background JWKS refresh.
func (a *AdminAuth) Close() {
	if a.jwks != nil {
		a.jwks.EndBackground()
	}
}

// ClaimsFromContext returns the claims of the verified token, if any.
func ClaimsFromContext(c echo.Context) (*AdminClaims, bool) {
	token, ok := c.Get("user").(*jwt.Token)
	if !ok || token == nil {
		return nil, false
	}
	claims, ok := token.Claims.(*AdminClaims)
	return claims, ok
}
