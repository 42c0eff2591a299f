package middleware

import (
	"net/http"
	"strings"
	"time"

	"furnistore/internal/common"

	"github.com/labstack/echo/v4"
)

// APIVersion describes one published version of the HTTP API.
type APIVersion struct {
	Version    string     `json:"version"`
	Status     string     `json:"status"` // "active" or "deprecated"
	SunsetDate *time.Time `json:"sunset_date,omitempty"`
	Message    string     `json:"message,omitempty"`
}

type VersionMiddleware struct {
	versions       map[string]APIVersion
	defaultVersion string
}

func NewVersionMiddleware() *VersionMiddleware {
	return &VersionMiddleware{
		versions: map[string]APIVersion{
			"v1": {Version: "v1", Status: "active", Message: "Catalog API"},
		},
		defaultVersion: "v1",
	}
}

// VersionHeader stamps responses with the API version and, for deprecated
// versions, the sunset date.
func (vm *VersionMiddleware) VersionHeader(version string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			h := c.Response().Header()
			h.Set("X-API-Version", version)
			if ver, ok := vm.versions[version]; ok && ver.Status == "deprecated" {
				h.Set("X-API-Deprecated", "true")
				if ver.SunsetDate != nil {
					h.Set("X-API-Sunset", ver.SunsetDate.Format(time.RFC3339))
				}
			}
			return next(c)
		}
	}
}

// APIVersionResolver rejects paths under an unknown /vN prefix and stores the
// resolved version as "api_version".
func (vm *VersionMiddleware) APIVersionResolver() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			version := versionFromPath(c.Request().URL.Path)
			if version == "" {
				c.Set("api_version", vm.defaultVersion)
				return next(c)
			}
			if _, ok := vm.versions[version]; !ok {
				return c.JSON(http.StatusNotFound,
					common.CreateErrorResponse("NOT_FOUND", "Unsupported API version "+version, nil))
			}
			c.Set("api_version", version)
			return next(c)
		}
	}
}

// Deprecate marks version deprecated with an optional sunset date.
func (vm *VersionMiddleware) Deprecate(version string, sunset *time.Time) {
	ver, ok := vm.versions[version]
	if !ok {
		return
	}
	ver.Status = "deprecated"
	ver.SunsetDate = sunset
	vm.versions[version] = ver
}

func versionFromPath(path string) string {
	seg, _, _ := strings.Cut(strings.TrimPrefix(path, "/"), "/")
	if len(seg) < 2 || seg[0] != 'v' {
		return ""
	}
	for _, r := range seg[1:] {
		if r < '0' || r > '9' {
			return ""
		}
	}
	return seg
}
