package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"

	"github.com/feichai0017/pdf-converter/api/handlers"
	"github.com/feichai0017/pdf-converter/api/middleware"
	"github.com/feichai0017/pdf-converter/api/routes"
	"github.com/feichai0017/pdf-converter/config"
	"github.com/feichai0017/pdf-converter/internal/app"
	"github.com/feichai0017/pdf-converter/internal/metrics"
	"github.com/feichai0017/pdf-converter/pkg/logger"
)

func main() {
	cfg, err := config.Get()
	if err != nil {
		panic(err)
	}

	// init logger
	log, err := app.NewLogger(cfg, "server")
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	metrics.Init()

	a, err := app.New(ctx, cfg, log)
	if err != nil {
		log.Fatal("Failed to initialize conversion service", logger.Error(err))
	}
	defer a.Close()

	// init handlers
	h := handlers.NewHandlers(a.Service, a.Info, log)
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(middleware.RequestID(), middleware.AccessLog(log), middleware.Recovery(log), middleware.BodyLimit(cfg.Server.MaxBodyBytes))
	routes.SetupRoutes(r, h, metrics.Handler(), a.Service.JobsEnabled())

	srv := &http.Server{
		Addr:    cfg.Server.Addr,
		Handler: r,
	}

	go func() {
		log.Info("Server starting", logger.String("addr", cfg.Server.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("Server error", logger.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	log.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", logger.Error(err))
		os.Exit(1)
	}
	log.Info("Server stopped")
}
