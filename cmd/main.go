/*
Package main is the entry point for the chat relay.

It loads configuration, initializes the global logger, optionally connects the
presence journal, starts the broadcast hub and the HTTP server, and shuts
everything down in order on SIGINT or SIGTERM.
*/
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"chatrelay/internal/app/chat"
	"chatrelay/internal/app/db"
	"chatrelay/internal/app/session"
	"chatrelay/internal/configs"
	"chatrelay/internal/handler"
	"chatrelay/internal/pkg/logx"
)

func main() {
	cfg, err := configs.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logx.InitGlobalLogger(cfg.IsDevelopment())
	logx.Logger().Info().
		Str("environment", cfg.Environment).
		Int("port", cfg.Port).
		Strs("allowed_origins", cfg.AllowedOrigins).
		Int("max_message_bytes", cfg.MaxMessageBytes).
		Bool("presence_journal", cfg.DatabaseDSN != "").
		Msg("Configuration loaded successfully")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var opts []session.Option
	var journal *db.Journal

	if cfg.DatabaseDSN != "" {
		pool, err := db.NewPool(ctx, cfg.DatabaseDSN)
		if err != nil {
			logx.Fatal(err, "Failed to connect presence journal database")
		}
		defer pool.Close()

		journal = db.NewJournal(pool, db.DefaultQueueSize)
		opts = append(opts, session.WithRecorder(journal))
	}

	registry := session.NewRegistry(opts...)

	hub := chat.NewHub(registry, cfg.MaxMessageBytes)
	go hub.Run()

	deps := handler.NewAppDeps(hub, registry, cfg)
	defer deps.Close()

	router := handler.Router(deps)

	serverAddr := fmt.Sprintf(":%d", cfg.Port)
	server := &http.Server{
		Addr:         serverAddr,
		Handler:      router,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		logx.Info(fmt.Sprintf("Chat relay starting on http://localhost%s", serverAddr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logx.Fatal(err, "Server failed to start")
		}
	}()

	<-ctx.Done()
	logx.Info("Received shutdown signal. Starting graceful shutdown...")

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelShutdown()

	// Hijacked WebSocket connections are not tracked by Shutdown; stopping the hub
	// closes their send queues so the write pumps send close frames.
	hub.Shutdown()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logx.Error(err, "Server forced to shutdown")
	}

	if journal != nil {
		if err := journal.Close(shutdownCtx); err != nil {
			logx.Error(err, "Presence journal did not drain before shutdown", "dropped", journal.Dropped())
		}
	}

	logx.Info("Server gracefully stopped.")
}
