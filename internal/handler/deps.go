package handler

import (
	"golang.org/x/time/rate"

	"chatrelay/internal/app/chat"
	"chatrelay/internal/app/session"
	"chatrelay/internal/configs"
	"chatrelay/internal/pkg/limiter"
)

// AppDeps carries the shared services handed to every HTTP handler.
type AppDeps struct {
	Hub      *chat.Hub
	Registry *session.Registry
	Config   *configs.AppConfig

	// RegisterLimiter guards POST /new-user, ConnectLimiter guards socket upgrades.
	RegisterLimiter *limiter.IPRateLimiter
	ConnectLimiter  *limiter.IPRateLimiter
}

// NewAppDeps builds the handler dependencies, including the per-IP limiters sized
// from cfg. Call Close on shutdown to stop the limiters' eviction goroutines.
func NewAppDeps(hub *chat.Hub, registry *session.Registry, cfg *configs.AppConfig) *AppDeps {
	return &AppDeps{
		Hub:             hub,
		Registry:        registry,
		Config:          cfg,
		RegisterLimiter: limiter.NewIPRateLimiter(rate.Limit(cfg.RegisterRate), cfg.RegisterBurst),
		ConnectLimiter:  limiter.NewIPRateLimiter(rate.Limit(cfg.ConnectRate), cfg.ConnectBurst),
	}
}

// Close stops the rate limiters. It is safe to call more than once.
func (d *AppDeps) Close() {
	d.RegisterLimiter.Close()
	d.ConnectLimiter.Close()
}
