package main

import (
	"github.com/gin-gonic/gin"

	"agency-proxy.backend/internal/config"
	"agency-proxy.backend/internal/interfaces/http/handlers"
	"agency-proxy.backend/internal/interfaces/http/middleware"
)

type routeDeps struct {
	healthHandler *handlers.HealthHandler
	agencyHandler *handlers.AgencyHandler
	trackHandler  *handlers.TrackHandler
	syncHandler   *handlers.SyncHandler
	adminHandler  *handlers.AdminHandler
	quotaAuth     gin.HandlerFunc
	masterOnly    gin.HandlerFunc
	publicLimit   gin.HandlerFunc
	frontGuard    gin.HandlerFunc
}

func newRouter(cfg *config.Config, d routeDeps) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestIDMiddleware())
	r.Use(middleware.LoggerMiddleware())
	r.Use(middleware.MetricsMiddleware())

	applyCORSMiddleware(r, cfg.Server.AllowedOrigins)
	registerHealthRoute(r, d.healthHandler)
	registerMetricsRoute(r)
	registerAPIRoutes(r, d)
	return r
}

func registerAPIRoutes(r *gin.Engine, d routeDeps) {
	api := r.Group("/api")
	{
		// Metered by the caller's monthly quota
		api.GET("/agencia", d.quotaAuth, d.agencyHandler.SearchByName)
		api.GET("/listar", d.quotaAuth, d.agencyHandler.List)
		api.POST("/track", d.quotaAuth, middleware.IdempotencyMiddleware(), d.trackHandler.Track)

		// Public
		api.GET("/buscar", d.publicLimit, d.agencyHandler.Search)
		api.GET("/front", d.frontGuard, d.agencyHandler.Front)

		sync := api.Group("/sync")
		sync.Use(d.masterOnly)
		{
			sync.POST("", d.syncHandler.Sync)
			sync.GET("", d.syncHandler.Info)
		}

		admin := api.Group("/admin")
		admin.Use(d.masterOnly)
		{
			users := admin.Group("/users")
			{
				users.POST("", d.adminHandler.CreateUser)
				users.GET("", d.adminHandler.ListUsers)
				users.GET("/:id", d.adminHandler.GetUser)
				users.PATCH("/:id", d.adminHandler.UpdateUser)
				users.DELETE("/:id", d.adminHandler.DeleteUser)
				users.POST("/:id/reset-usage", d.adminHandler.ResetUsage)
				users.GET("/:id/usage", d.adminHandler.GetUsage)
				users.GET("/:id/logs", d.adminHandler.ListLogs)
				users.POST("/:id/keys", d.adminHandler.CreateKey)
				users.GET("/:id/keys", d.adminHandler.ListKeys)
			}

			keys := admin.Group("/keys")
			{
				keys.PATCH("/:keyId", d.adminHandler.UpdateKey)
				keys.DELETE("/:keyId", d.adminHandler.DeleteKey)
				keys.POST("/:keyId/activate", d.adminHandler.ActivateKey)
				keys.POST("/:keyId/deactivate", d.adminHandler.DeactivateKey)
			}
		}
	}
}
