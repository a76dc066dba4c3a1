package main

import (
	"context"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gyaneshwarpardhi/mrmlscene/internal/api"
	"github.com/gyaneshwarpardhi/mrmlscene/internal/config"
	"github.com/gyaneshwarpardhi/mrmlscene/internal/engine"
	"github.com/gyaneshwarpardhi/mrmlscene/internal/mrml"
)

func main() {
	addr := flag.String("addr", "", "HTTP listen address (overrides server.addr)")
	cfgPath := flag.String("config", "configs/mrml.yaml", "Path to the YAML config")
	debug := flag.Bool("debug", false, "Log scene diagnostics at debug level")
	flag.Parse()

	level := slog.LevelInfo
	if *debug {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	// ── Load config ──────────────────────────────────────────────────────────
	loader, err := config.NewLoader(*cfgPath)
	if err != nil {
		slog.Error("failed to load config", "err", err)
		os.Exit(1)
	}
	loader.SetLogger(logger)
	cfg := loader.Config()
	if *addr != "" {
		cfg.Server.Addr = *addr
	}

	// ── Scene ────────────────────────────────────────────────────────────────
	scene := engine.NewScene()
	scene.SetLogger(logger)
	if err := engine.Configure(scene, cfg.Scene); err != nil {
		slog.Error("failed to configure scene", "err", err)
		os.Exit(1)
	}
	if err := engine.Preload(scene, cfg.Scene.Preload); err != nil {
		slog.Error("failed to preload scene", "err", err)
		os.Exit(1)
	}
	slog.Info("scene ready", "nodes", scene.NumberOfNodes(), "classes", len(scene.Registry().ClassNames()))

	// ── Engine ────────────────────────────────────────────────────────────────
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	eng := engine.New(ctx, scene, engine.DefaultQueueDepth)

	// ── Hot-reload watcher ────────────────────────────────────────────────────
	loader.OnChange(func(newCfg *config.Config) {
		err := eng.Do(ctx, func(s *mrml.Scene) error {
			return engine.Configure(s, newCfg.Scene)
		})
		if err != nil {
			slog.Warn("hot-reload partially applied", "err", err)
			return
		}
		slog.Info("scene config hot-reloaded", "classes", len(newCfg.Scene.Classes))
	})
	stopWatch, err := loader.Watch()
	if err != nil {
		slog.Warn("config watcher unavailable (hot-reload disabled)", "err", err)
	} else {
		defer stopWatch()
	}

	// ── HTTP server ───────────────────────────────────────────────────────────
	handler := api.New(eng, loader)
	srv := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      handler,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeoutMs) * time.Millisecond,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeoutMs) * time.Millisecond,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		slog.Info("server starting", "addr", cfg.Server.Addr)
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
	eng.Close()
	cancel()
	slog.Info("goodbye")
}
