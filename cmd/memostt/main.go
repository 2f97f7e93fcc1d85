package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	archiveimpl "github.com/oliverbhull/memo-stt/external/archive"
	audioimpl "github.com/oliverbhull/memo-stt/external/audio"
	bleimpl "github.com/oliverbhull/memo-stt/external/ble"
	captureimpl "github.com/oliverbhull/memo-stt/external/capture"
	configloader "github.com/oliverbhull/memo-stt/external/config"
	hotkeyimpl "github.com/oliverbhull/memo-stt/external/hotkey"
	notifyimpl "github.com/oliverbhull/memo-stt/external/notify"
	repositoryimpl "github.com/oliverbhull/memo-stt/external/repository"
	transcriberimpl "github.com/oliverbhull/memo-stt/external/transcriber"
	webhookimpl "github.com/oliverbhull/memo-stt/external/webhook"
	"github.com/oliverbhull/memo-stt/internal/config"
	"github.com/oliverbhull/memo-stt/internal/repository"
	"github.com/oliverbhull/memo-stt/internal/session"
	"github.com/samber/do/v2"
)

func main() {
	slog.Info("startup: loading configuration")
	cfg := mustLoadConfig()
	initLogger(cfg)
	slog.Info("startup: configuration loaded", "env", cfg.Env, "input_source", string(cfg.InputMode))

	slog.Info("startup: building dependency graph")
	injector := setupDI(cfg)

	if cfg.HistoryEnabled() {
		repo, err := do.Invoke[repository.Repository](injector)
		if err != nil {
			slog.Error("failed to resolve recording history store", "error", err)
			os.Exit(1)
		}
		logRecentHistory(context.Background(), repo)
	}

	slog.Info("startup: launching recorder")
	runRecorder(injector)
}

const recentHistoryLimit = 5

// logRecentHistory summarizes the latest stored memos so a restart shows
// where the history left off.
func logRecentHistory(ctx context.Context, repo repository.Repository) {
	recent, err := repo.ListRecentRecordings(ctx, recentHistoryLimit)
	if err != nil {
		slog.Warn("failed to list recent recordings", "error", err)
		return
	}
	if len(recent) == 0 {
		slog.Info("recording history is empty")
		return
	}
	last := recent[0]
	slog.Info("recording history loaded",
		"recent", len(recent),
		"last_id", last.ID,
		"last_started_at", last.StartedAt.Format(time.RFC3339),
		"last_status", string(last.Status))
}

func mustLoadConfig() *config.Config {
	cfg, err := configloader.Load()
	if err != nil {
		slog.Error("config validation failed", "error", err)
		os.Exit(1)
	}
	return cfg
}

func initLogger(cfg *config.Config) {
	logLevel := slog.LevelInfo
	if cfg.IsDevelopment() {
		logLevel = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel})))
}

func setupDI(cfg *config.Config) do.Injector {
	injector := do.New()

	do.ProvideValue(injector, cfg)
	repositoryimpl.RegisterDI(injector)
	audioimpl.RegisterDI(injector)
	bleimpl.RegisterDI(injector)
	captureimpl.RegisterDI(injector)
	hotkeyimpl.RegisterDI(injector)
	transcriberimpl.RegisterDI(injector)
	webhookimpl.RegisterDI(injector)
	archiveimpl.RegisterDI(injector)
	notifyimpl.RegisterDI(injector)
	session.RegisterDI(injector)

	return injector
}

func runRecorder(injector do.Injector) {
	recorder, err := do.Invoke[*session.Recorder](injector)
	if err != nil {
		slog.Error("failed to resolve recorder", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- recorder.Run(ctx)
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-sigCh:
		slog.Info("shutting down")
		cancel()
		if err := <-done; err != nil {
			slog.Error("recorder shutdown failed", "error", err)
		}
	case err := <-done:
		if err != nil {
			slog.Error("recorder stopped", "error", err)
			os.Exit(1)
		}
	}
}
