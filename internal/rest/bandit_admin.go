package rest

import (
	"context"
	"net/http"
	"time"

	"priceSense/pkg/logger"

	"github.com/AMFarhan21/fres"
	"github.com/labstack/echo/v4"
)

type (
	// OpsHandler serves cache statistics and health checks.
	OpsHandler struct {
		cache   CacheStats
		checks  map[string]HealthCheck
		version string
	}

	CacheStats interface {
		Stats(ctx context.Context) (map[string]any, error)
	}

	HealthCheck func(ctx context.Context) error
)

func NewOpsHandler(cache CacheStats, checks map[string]HealthCheck, version string) *OpsHandler {
	return &OpsHandler{
		cache:   cache,
		checks:  checks,
		version: version,
	}
}

// GET /api/cache/stats
func (h *OpsHandler) CacheStats(c echo.Context) error {
	stats, err := h.cache.Stats(c.Request().Context())
	if err != nil {
		return c.JSON(http.StatusServiceUnavailable, ResponseError{Message: err.Error()})
	}

	return c.JSON(http.StatusOK, fres.Response.StatusOK(stats))
}

// GET /api/health
// Reports "degraded" when any dependency check fails. The service keeps
// answering in that state, so the status code stays 200.
func (h *OpsHandler) Health(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
	defer cancel()

	status := "healthy"
	checks := make(map[string]string, len(h.checks))
	for name, check := range h.checks {
		if err := check(ctx); err != nil {
			logger.Warn("health_check_failed", "check", name, "error", err)
			checks[name] = "down"
			status = "degraded"
			continue
		}
		checks[name] = "up"
	}

	return c.JSON(http.StatusOK, echo.Map{
		"status":  status,
		"version": h.version,
		"checks":  checks,
	})
}
