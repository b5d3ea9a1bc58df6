package router

import (
	"priceSense/internal/rest"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func SetupSearchRoutes(api *echo.Group, handler *rest.SearchHandler) {
	api.POST("/search", handler.Search)
}

func SetupBanditRoutes(api *echo.Group, handler *rest.BanditHandler, optionalAuth echo.MiddlewareFunc) {
	api.POST("/feedback", handler.Feedback, optionalAuth)

	bandit := api.Group("/bandit")
	bandit.GET("/stats", handler.Stats)
}

func SetupOpsRoutes(api *echo.Group, handler *rest.OpsHandler) {
	api.GET("/cache/stats", handler.CacheStats)
	api.GET("/health", handler.Health)
}

func SetupMetricsRoute(e *echo.Echo) {
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
}
