package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ErlanBelekov/docgate/config"
	"github.com/ErlanBelekov/docgate/internal/gate"
	ctxlog "github.com/ErlanBelekov/docgate/internal/log"
	"github.com/ErlanBelekov/docgate/internal/metrics"
	httptransport "github.com/ErlanBelekov/docgate/internal/transport/http"
	"github.com/gin-gonic/gin"
)

func main() {
	cfg, err := config.LoadEdge()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	logger := ctxlog.New(os.Stdout, cfg.Env, cfg.SlogLevel())

	if cfg.Env != "local" {
		gin.SetMode(gin.ReleaseMode)
	}

	upstream, err := url.Parse(cfg.UpstreamURL)
	if err != nil {
		log.Fatalf("upstream url: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	metrics.Register()

	srv := http.Server{
		Addr:    ":" + cfg.Port,
		Handler: httptransport.NewEdgeRouter(logger, gate.New([]byte(cfg.AuthSecret), nil), upstream),
	}
	// No database behind the edge: readiness has nothing to ping.
	metricsSrv := metrics.NewServer(":"+cfg.MetricsPort, nil)

	go func() {
		logger.Info("edge started", "port", cfg.Port, "upstream", upstream.String())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("edge: %v", err)
		}
	}()

	go func() {
		logger.Info("metrics server started", "port", cfg.MetricsPort)
		if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server", "error", err)
		}
	}()

	<-ctx.Done()
	stop()
	logger.Info("shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("edge shutdown", "error", err)
	}
	if err := metricsSrv.Shutdown(shutdownCtx); err != nil {
		logger.Error("metrics server shutdown", "error", err)
	}
}
