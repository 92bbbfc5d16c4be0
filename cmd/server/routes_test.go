package main

import (
	"net/http"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"agency-proxy.backend/internal/config"
	"agency-proxy.backend/internal/interfaces/http/handlers"
)

func passthrough(c *gin.Context) { c.Next() }

func TestNewRouter_RegistersRoutes(t *testing.T) {
	gin.SetMode(gin.TestMode)
	cfg := &config.Config{Server: config.ServerConfig{AllowedOrigins: []string{"http://localhost:3000"}}}

	r := newRouter(cfg, routeDeps{
		healthHandler: handlers.NewHealthHandler(time.Now()),
		agencyHandler: &handlers.AgencyHandler{},
		trackHandler:  &handlers.TrackHandler{},
		syncHandler:   &handlers.SyncHandler{},
		adminHandler:  &handlers.AdminHandler{},
		quotaAuth:     passthrough,
		masterOnly:    passthrough,
		publicLimit:   passthrough,
		frontGuard:    passthrough,
	})

	registered := make(map[string]bool)
	for _, route := range r.Routes() {
		registered[route.Method+" "+route.Path] = true
	}

	expects := []struct {
		method string
		path   string
	}{
		{http.MethodGet, "/health"},
		{http.MethodGet, "/metrics"},
		{http.MethodGet, "/api/agencia"},
		{http.MethodGet, "/api/listar"},
		{http.MethodPost, "/api/track"},
		{http.MethodGet, "/api/buscar"},
		{http.MethodGet, "/api/front"},
		{http.MethodPost, "/api/sync"},
		{http.MethodGet, "/api/sync"},
		{http.MethodPost, "/api/admin/users"},
		{http.MethodGet, "/api/admin/users"},
		{http.MethodGet, "/api/admin/users/:id"},
		{http.MethodPatch, "/api/admin/users/:id"},
		{http.MethodDelete, "/api/admin/users/:id"},
		{http.MethodPost, "/api/admin/users/:id/reset-usage"},
		{http.MethodGet, "/api/admin/users/:id/usage"},
		{http.MethodGet, "/api/admin/users/:id/logs"},
		{http.MethodPost, "/api/admin/users/:id/keys"},
		{http.MethodGet, "/api/admin/users/:id/keys"},
		{http.MethodPatch, "/api/admin/keys/:keyId"},
		{http.MethodDelete, "/api/admin/keys/:keyId"},
		{http.MethodPost, "/api/admin/keys/:keyId/activate"},
		{http.MethodPost, "/api/admin/keys/:keyId/deactivate"},
	}
	for _, e := range expects {
		if !registered[e.method+" "+e.path] {
			t.Fatalf("missing route %s %s", e.method, e.path)
		}
	}
}
