package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/kelseyhightower/envconfig"
	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	"github.com/carelink/visit-api/internal/email"
	"github.com/carelink/visit-api/internal/repository/postgres"
	auditService "github.com/carelink/visit-api/internal/service/audit"
	notificationService "github.com/carelink/visit-api/internal/service/notification"
	"github.com/carelink/visit-api/pkg/logger"
	"github.com/carelink/visit-api/pkg/messaging"
	redisbroker "github.com/carelink/visit-api/pkg/messaging/redis"
	"github.com/carelink/visit-api/pkg/metrics"
	"github.com/carelink/visit-api/pkg/worker"
)

type workerConfig struct {
	DatabaseURL         string `envconfig:"DATABASE_URL" required:"true"`
	RedisURL            string `envconfig:"REDIS_URL"`
	MetricsAddr         string `envconfig:"METRICS_ADDR" default:":9091"`
	BatchSize           int    `envconfig:"BATCH_SIZE" default:"50"`
	PollIntervalSeconds int    `envconfig:"POLL_INTERVAL_SECONDS" default:"10"`
	RetryBackoffSeconds int    `envconfig:"RETRY_BACKOFF_SECONDS" default:"30"`
}

func main() {
	var cfg workerConfig
	if err := envconfig.Process("VISITAPI_WORKER", &cfg); err != nil {
		log.Fatal().Err(err).Msg("failed to load worker configuration")
	}

	appLogger := logger.NewLogger(nil)

	db, err := sqlx.Connect("postgres", cfg.DatabaseURL)
	if err != nil {
		appLogger.Fatal(err, "failed to connect to database")
	}
	defer db.Close()

	broker := messaging.NewNoop()
	if cfg.RedisURL != "" {
		broker, err = redisbroker.NewRedisBroker(cfg.RedisURL, appLogger.Zerolog())
		if err != nil {
			appLogger.Fatal(err, "failed to connect to redis")
		}
		defer broker.Close()
	}

	base := postgres.NewBaseRepository(db)
	outboxRepo := postgres.NewOutboxRepository(base)
	auditRepo := postgres.NewAuditRepository(base)
	notificationRepo := postgres.NewNotificationRepository(base)
	userRepo := postgres.NewUserRepository(base)

	m := metrics.NewMetrics("visitworker")
	auditSvc := auditService.NewService(auditRepo)
	notifSvc := notificationService.NewService(notificationRepo, userRepo, email.NewDisabled(), broker, appLogger)

	reconciler := worker.NewReconciler(outboxRepo, auditSvc, notifSvc, worker.ReconcilerConfig{
		BatchSize:    cfg.BatchSize,
		PollInterval: time.Duration(cfg.PollIntervalSeconds) * time.Second,
		RetryBackoff: time.Duration(cfg.RetryBackoffSeconds) * time.Second,
	}, appLogger, m)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		http.Handle("/metrics", promhttp.Handler())
		if err := http.ListenAndServe(cfg.MetricsAddr, nil); err != nil && err != http.ErrServerClosed {
			appLogger.Error(err, "metrics server failed")
		}
	}()

	go reconciler.Run(ctx)
	appLogger.Info("reconciliation worker started")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	appLogger.Info("shutting down worker")
	cancel()
}
