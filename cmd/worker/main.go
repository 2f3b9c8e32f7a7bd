package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/feichai0017/pdf-converter/config"
	"github.com/feichai0017/pdf-converter/internal/app"
	"github.com/feichai0017/pdf-converter/internal/metrics"
	"github.com/feichai0017/pdf-converter/internal/service/conversion"
	"github.com/feichai0017/pdf-converter/pkg/logger"
	"github.com/feichai0017/pdf-converter/pkg/worker"
)

func main() {
	cfg, err := config.Get()
	if err != nil {
		panic(err)
	}

	log, err := app.NewLogger(cfg, "worker")
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	if !cfg.Queue.Enabled {
		log.Error("Worker requires QUEUE_ENABLED=true")
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	metrics.Init()

	a, err := app.New(ctx, cfg, log)
	if err != nil {
		log.Error("Failed to initialize conversion service", logger.Error(err))
		os.Exit(1)
	}
	defer a.Close()

	w := worker.NewConversionWorker(cfg.Queue, a.Service, conversion.Permanent, log)
	if err := w.Start(ctx); err != nil {
		log.Error("Failed to start worker", logger.Error(err))
		os.Exit(1)
	}

	go a.Service.RunCleanup(ctx, cfg.Queue.CleanupInterval)

	// metrics only; the worker serves no API
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	metricsSrv := &http.Server{Addr: cfg.Queue.MetricsAddr, Handler: mux}
	go func() {
		if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Warn("Metrics server error", logger.Error(err))
		}
	}()

	<-ctx.Done()
	log.Info("Shutting down worker...")
	w.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := metricsSrv.Shutdown(shutdownCtx); err != nil {
		log.Warn("Metrics server forced to shutdown", logger.Error(err))
	}
	log.Info("Worker stopped")
}

