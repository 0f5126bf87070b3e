package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ErlanBelekov/docgate/config"
	"github.com/ErlanBelekov/docgate/internal/health"
	"github.com/ErlanBelekov/docgate/internal/infrastructure/store"
	ctxlog "github.com/ErlanBelekov/docgate/internal/log"
	"github.com/ErlanBelekov/docgate/internal/metrics"
	"github.com/ErlanBelekov/docgate/internal/scheduler"
	"github.com/prometheus/client_golang/prometheus"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger := ctxlog.New(os.Stdout, cfg.Env, cfg.SlogLevel())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	st, err := store.Open(ctx, cfg.DBDriver, cfg.DatabaseURL, cfg.DBSchema)
	if err != nil {
		stop()
		log.Fatalf("db: %v", err)
	}
	defer st.Close()

	logger.Info("db connected", "driver", st.Driver)

	checker := health.NewChecker(st.DB, st.Driver, logger, prometheus.DefaultRegisterer)

	reporter, err := scheduler.NewReporter(st.Stats, cfg.ReportSchedule, logger, prometheus.DefaultRegisterer)
	if err != nil {
		stop()
		log.Fatalf("reporter: %v", err)
	}
	go reporter.Start(ctx)

	reaper := scheduler.NewReaper(st.Tokens, logger, cfg.ReapInterval, cfg.TokenRetention, prometheus.DefaultRegisterer)
	go reaper.Start(ctx)

	metricsSrv := metrics.NewServer(":"+cfg.MetricsPort, checker)
	go func() {
		logger.Info("metrics server started", "port", cfg.MetricsPort)
		if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server", "error", err)
		}
	}()

	<-ctx.Done()
	stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := metricsSrv.Shutdown(shutdownCtx); err != nil {
		logger.Error("metrics server shutdown", "error", err)
	}

	logger.Info("reporter shut down")
}
