package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/Spok95/batch-trace/internal/app"
	"github.com/Spok95/batch-trace/internal/config"
	httpx "github.com/Spok95/batch-trace/internal/infra/http"
	"github.com/Spok95/batch-trace/internal/infra/logger"
)

func main() {
	cfgPath := flag.String("config", "config/example.yaml", "path to YAML config")
	flag.Parse()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		panic(err)
	}

	log := logger.New(cfg.App.Env)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// os.Exit не вызываем: отложенные stop и Close должны отработать
	if err := serve(ctx, cfg, log); err != nil {
		log.Error("traced stopped", "err", err)
		return
	}
	log.Info("graceful shutdown complete")
}

// serve держит хранилище, аудит и HTTP до отмены ctx; всё открытое закрывает сам.
func serve(ctx context.Context, cfg config.Config, log *slog.Logger) error {
	ctx, stop := context.WithCancel(ctx)
	defer stop()

	a, err := app.Open(ctx, cfg, log)
	if err != nil {
		return fmt.Errorf("storage init: %w", err)
	}
	defer a.Close()

	if cfg.Audit.Enabled {
		if err := a.Auditor.Start(cfg.Audit.Schedule); err != nil {
			return err
		}
	}

	srv := httpx.New(cfg.HTTP.Addr, cfg.Metrics.Enabled, a)
	srvErr := make(chan error, 1)
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			srvErr <- err
			stop()
		}
	}()
	log.Info("HTTP server started", "addr", cfg.HTTP.Addr)

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)

	select {
	case err := <-srvErr:
		return fmt.Errorf("http server: %w", err)
	default:
		return nil
	}
}
