package handlers

import (
	"context"
	"net/http"
	"runtime"
	"time"

	"furnistore/internal/caching"
	"furnistore/internal/services"

	"github.com/labstack/echo/v4"
)

// Pinger is satisfied by *pgxpool.Pool.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandlers handles health check and monitoring endpoints
type HealthHandlers struct {
	db      Pinger
	cache   caching.CacheService
	storage services.ImageStorage
	version string
	started time.Time
}

// NewHealthHandlers creates a new health handlers instance
func NewHealthHandlers(db Pinger, cache caching.CacheService, storage services.ImageStorage, version string) *HealthHandlers {
	return &HealthHandlers{db: db, cache: cache, storage: storage, version: version, started: time.Now()}
}

// HealthStatus represents the overall health status
type HealthStatus struct {
	Status     string                 `json:"status"`
	Timestamp  string                 `json:"timestamp"`
	Version    string                 `json:"version"`
	Uptime     string                 `json:"uptime"`
	Goroutines int                    `json:"goroutines"`
	Checks     map[string]CheckResult `json:"checks"`
}

type CheckResult struct {
	Status    string `json:"status"`
	Message   string `json:"message,omitempty"`
	LatencyMS int64  `json:"latency_ms"`
}

// LivenessCheck reports that the process is serving requests.
func (h *HealthHandlers) LivenessCheck(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"status":    "alive",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// ReadinessCheck fails only when the database is unreachable. Cache and
// storage outages degrade the service without taking it out of rotation.
func (h *HealthHandlers) ReadinessCheck(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
	defer cancel()

	if err := h.db.Ping(ctx); err != nil {
		return c.JSON(http.StatusServiceUnavailable, map[string]string{
			"status":  "not_ready",
			"message": "database unavailable",
		})
	}
	return c.JSON(http.StatusOK, map[string]string{
		"status":  "ready",
		"message": "All systems operational",
	})
}

// DetailedHealthCheck pings every dependency and reports each one.
func (h *HealthHandlers) DetailedHealthCheck(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 3*time.Second)
	defer cancel()

	health := &HealthStatus{
		Status:     "healthy",
		Timestamp:  time.Now().UTC().Format(time.RFC3339),
		Version:    h.version,
		Uptime:     time.Since(h.started).Truncate(time.Second).String(),
		Goroutines: runtime.NumGoroutine(),
		Checks: map[string]CheckResult{
			"database": check(ctx, h.db),
			"redis":    check(ctx, h.cache),
		},
	}
	if h.storage != nil {
		health.Checks["storage"] = check(ctx, h.storage)
	}
	for name, res := range health.Checks {
		if res.Status == "healthy" {
			continue
		}
		if name == "database" {
			health.Status = "unhealthy"
			break
		}
		health.Status = "degraded"
	}

	status := http.StatusOK
	if health.Status == "unhealthy" {
		status = http.StatusServiceUnavailable
	}
	return c.JSON(status, health)
}

func check(ctx context.Context, p Pinger) CheckResult {
	start := time.Now()
	err := p.Ping(ctx)
	res := CheckResult{Status: "healthy", LatencyMS: time.Since(start).Milliseconds()}
	if err != nil {
		res.Status = "unhealthy"
		res.Message = err.Error()
	}
	return res
}
