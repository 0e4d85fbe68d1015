package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/safetytechsc/radar360-api/internal/api"
	"github.com/safetytechsc/radar360-api/internal/config"
	"github.com/safetytechsc/radar360-api/internal/notify"
	"github.com/safetytechsc/radar360-api/internal/plan"
	"github.com/safetytechsc/radar360-api/internal/record"
)

func main() {
	cfgPath := flag.String("config", "", "Optional YAML config file (env vars take precedence)")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	// ── Load config ──────────────────────────────────────────────────────────
	loader, err := config.NewLoader(*cfgPath)
	if err != nil {
		slog.Error("failed to load config", "err", err)
		os.Exit(1)
	}
	cfg := loader.Config()

	// ── Storage ──────────────────────────────────────────────────────────────
	store, err := record.NewStore(cfg.DataDir)
	if err != nil {
		slog.Error("failed to open record store", "err", err)
		os.Exit(1)
	}
	index := plan.NewIndex(store.Root())
	slog.Info("record store ready", "dir", store.Root())

	// ── Plan lifecycle + notification ─────────────────────────────────────────
	mailer := notify.NewMailer(loader, logger)
	plans := plan.NewManager(store, index, mailer, loader, logger)
	slog.Info("email transport", "configured", cfg.SMTP.Configured())

	// ── Hot-reload watcher ────────────────────────────────────────────────────
	loader.OnChange(func(newCfg *config.Config) {
		slog.Info("config reloaded", "email_configured", newCfg.SMTP.Configured())
	})
	stopWatch, err := loader.Watch()
	if err != nil {
		slog.Warn("config watcher unavailable (hot-reload disabled)", "err", err)
	} else {
		defer stopWatch()
	}

	// ── HTTP server ───────────────────────────────────────────────────────────
	handler := api.New(store, index, plans, loader)
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      handler,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		slog.Info("server starting", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "err", err)
			os.Exit(1)
		}
	}()

	// ── Graceful shutdown ─────────────────────────────────────────────────────
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	slog.Info("shutting down…")

	shutCtx, shutCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutCancel()
	_ = srv.Shutdown(shutCtx)
	slog.Info("goodbye")
}
