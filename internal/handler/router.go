/*
Package handler provides the relay's HTTP handlers and routing.

This file defines the Router, applying logging, CORS and per-IP rate limiting before
delegating to the registration, health and WebSocket handlers.
*/
package handler

import (
	"net/http"
	"slices"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"
	"github.com/rs/cors"

	"chatrelay/internal/pkg/logx"
	"chatrelay/internal/pkg/resp"
)

const serviceName = "Chat Relay"

// Router builds the application's routing table. deps must come from NewAppDeps.
func Router(deps *AppDeps) http.Handler {
	cfg := deps.Config

	r := chi.NewRouter()

	wsUpgrader := websocket.Upgrader{
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			if cfg.IsDevelopment() || origin == "" || originAllowed(cfg.AllowedOrigins, origin) {
				return true
			}

			logx.Warn("WebSocket connection rejected: Origin not allowed.", "origin", origin)
			return false
		},
	}

	corsAllowedOrigins := []string{}
	if cfg.IsDevelopment() {
		corsAllowedOrigins = []string{"*"}
	} else if len(cfg.AllowedOrigins) > 0 {
		corsAllowedOrigins = cfg.AllowedOrigins
	}

	c := cors.New(cors.Options{
		AllowedOrigins: corsAllowedOrigins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	})
	r.Use(c.Handler)

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(logx.RequestLogger())
	r.Use(middleware.Recoverer)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		resp.RespondSuccess(w, r, map[string]any{
			"service": serviceName,
			"users":   deps.Registry.Len(),
			"clients": deps.Hub.ClientCount(),
		})
	})

	r.With(deps.RegisterLimiter.Middleware).Post("/new-user", HandleNewUser(deps))

	wsHandler := HandleWebSocket(deps.Hub, wsUpgrader, deps.ConnectLimiter)
	r.Get("/ws", wsHandler)
	r.Get("/", wsHandler)

	return r
}

func originAllowed(allowed []string, origin string) bool {
	return slices.Contains(allowed, "*") || slices.Contains(allowed, origin)
}
