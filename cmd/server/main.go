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
	"github.com/ErlanBelekov/docgate/internal/email"
	"github.com/ErlanBelekov/docgate/internal/gate"
	"github.com/ErlanBelekov/docgate/internal/health"
	"github.com/ErlanBelekov/docgate/internal/infrastructure/store"
	ctxlog "github.com/ErlanBelekov/docgate/internal/log"
	"github.com/ErlanBelekov/docgate/internal/metrics"
	"github.com/ErlanBelekov/docgate/internal/session"
	httptransport "github.com/ErlanBelekov/docgate/internal/transport/http"
	"github.com/ErlanBelekov/docgate/internal/transport/http/handler"
	"github.com/ErlanBelekov/docgate/internal/usecase"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	logger := ctxlog.New(os.Stdout, cfg.Env, cfg.SlogLevel())

	if cfg.Env != "local" {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	st, err := store.Open(ctx, cfg.DBDriver, cfg.DatabaseURL, cfg.DBSchema)
	if err != nil {
		stop()
		log.Fatalf("db: %v", err)
	}
	defer st.Close()

	if err := st.Migrate(ctx); err != nil {
		stop()
		log.Fatalf("migrate: %v", err)
	}
	logger.Info("db ready", "driver", st.Driver)

	sender, err := email.NewSender(email.Config{
		Provider:     cfg.MailProvider,
		From:         cfg.MailFrom,
		ResendAPIKey: cfg.ResendAPIKey,
		SMTPHost:     cfg.SMTPHost,
		SMTPPort:     cfg.SMTPPort,
		SMTPUser:     cfg.SMTPUser,
		SMTPPass:     cfg.SMTPPass,
		SMTPTimeout:  cfg.SMTPTimeout,
	}, logger)
	if err != nil {
		stop()
		log.Fatalf("email: %v", err)
	}

	secret := []byte(cfg.AuthSecret)
	authUsecase := usecase.NewAuthUsecase(st.Users, st.Tokens, st.Domains, sender, usecase.AuthConfig{
		Secret:    secret,
		BaseURL:   cfg.BaseURL,
		SiteTitle: cfg.SiteTitle,
	})
	authHandler := handler.NewAuthHandler(authUsecase, cfg.IsProduction(), logger)
	pageHandler := handler.NewPageHandler(cfg.SiteTitle)

	metrics.Register()
	checker := health.NewChecker(st.DB, st.Driver, logger, prometheus.DefaultRegisterer)

	srv := http.Server{
		Addr: ":" + cfg.Port,
		Handler: httptransport.NewRouter(logger, authHandler, pageHandler, httptransport.RouterConfig{
			Gate:   gate.New(secret, nil),
			Codec:  session.NewCodec(secret),
			Secure: cfg.IsProduction(),
		}),
	}

	metricsSrv := metrics.NewServer(":"+cfg.MetricsPort, checker)

	go func() {
		logger.Info("server started", "port", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("server: %v", err)
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
		logger.Error("server shutdown", "error", err)
	}
	if err := metricsSrv.Shutdown(shutdownCtx); err != nil {
		logger.Error("metrics server shutdown", "error", err)
	}
}
