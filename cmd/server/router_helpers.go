package main

import (
	"github.com/gin-gonic/gin"

	"agency-proxy.backend/internal/interfaces/http/handlers"
	"agency-proxy.backend/internal/interfaces/http/middleware"
	"agency-proxy.backend/pkg/metrics"
)

func applyCORSMiddleware(r *gin.Engine, allowedOrigins []string) {
	r.Use(middleware.CORSMiddleware(allowedOrigins))
}

func registerHealthRoute(r *gin.Engine, h *handlers.HealthHandler) {
	r.GET("/health", h.Health)
}

func registerMetricsRoute(r *gin.Engine) {
	r.GET("/metrics", gin.WrapH(metrics.Handler()))
}
