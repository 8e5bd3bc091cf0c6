package http

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/bogzak/search-engine-ua-checker/internal/api/http/middleware"
)

// NewRouter wires the health endpoints and, when given, the metrics handler.
func NewRouter(healthController *HealthController, metricsHandler http.Handler, log *slog.Logger) *gin.Engine {
	router := gin.New()
	router.Use(middleware.Recovery(log), middleware.Logger(log))

	router.GET("/health", healthController.Health)
	router.GET("/status", healthController.Status)
	router.GET("/ready", healthController.Ready)
	router.GET("/info", healthController.Info)

	if metricsHandler != nil {
		router.GET("/metrics", gin.WrapH(metricsHandler))
	}

	return router
}
