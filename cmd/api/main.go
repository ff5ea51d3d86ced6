package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"github.com/carelink/visit-api/internal/config"
	auditHandler "github.com/carelink/visit-api/internal/handler/audit"
	visitHandler "github.com/carelink/visit-api/internal/handler/visit"
	"github.com/carelink/visit-api/internal/middleware"
	"github.com/carelink/visit-api/internal/repository/cached"
	"github.com/carelink/visit-api/internal/repository/postgres"
	"github.com/carelink/visit-api/internal/router"
	auditService "github.com/carelink/visit-api/internal/service/audit"
	"github.com/carelink/visit-api/internal/service/authz"
	notificationService "github.com/carelink/visit-api/internal/service/notification"
	visitService "github.com/carelink/visit-api/internal/service/visit"

	"github.com/carelink/visit-api/internal/email"
	"github.com/carelink/visit-api/pkg/auth"
	"github.com/carelink/visit-api/pkg/logger"
	"github.com/carelink/visit-api/pkg/messaging"
	redisbroker "github.com/carelink/visit-api/pkg/messaging/redis"
	"github.com/carelink/visit-api/pkg/metrics"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	level, err := zerolog.ParseLevel(cfg.Logging.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}
	appLogger := logger.NewLogger(&logger.Config{
		Level:      level,
		TimeFormat: time.RFC3339,
		Output:     os.Stdout,
		Pretty:     cfg.Logging.Pretty,
	})

	db, err := postgres.NewDB(cfg.Database)
	if err != nil {
		appLogger.Fatal(err, "failed to connect to database")
	}
	defer db.Close()

	broker := messaging.NewNoop()
	if cfg.Redis.URL != "" {
		broker, err = redisbroker.NewRedisBroker(cfg.Redis.URL, appLogger.Zerolog())
		if err != nil {
			appLogger.Fatal(err, "failed to connect to redis")
		}
		defer broker.Close()
	}

	emailSvc := email.NewDisabled()
	if cfg.SMTP.Host != "" {
		emailSvc = email.NewSMTPService(cfg.SMTP)
	}

	// Repositories
	base := postgres.NewBaseRepository(db)
	shiftRepo := postgres.NewShiftRepository(base)
	visitRepo := postgres.NewVisitRepository(base)
	patientRepo := postgres.NewPatientRepository(base)
	auditRepo := postgres.NewAuditRepository(base)
	notificationRepo := postgres.NewNotificationRepository(base)
	outboxRepo := postgres.NewOutboxRepository(base)
	userRepo := cached.NewUserRepository(
		postgres.NewUserRepository(base),
		time.Duration(cfg.Notifications.UserCacheTTL)*time.Second,
	)

	// Services
	m := metrics.NewMetrics("visitapi")
	guard := authz.NewGuard()
	auditSvc := auditService.NewService(auditRepo)
	notifSvc := notificationService.NewService(notificationRepo, userRepo, emailSvc, broker, appLogger)
	visitSvc := visitService.NewService(
		shiftRepo, visitRepo, userRepo, patientRepo, outboxRepo,
		guard, auditSvc, notifSvc, appLogger, m,
		visitService.Options{MaxFamilyFanout: cfg.Notifications.MaxFamilyFanout},
	)

	// HTTP
	authMiddleware := middleware.NewAuthMiddleware(auth.NewValidator(cfg.JWT.Secret))
	r := router.NewRouter(
		authMiddleware,
		appLogger.Zerolog(),
		m,
		router.Config{
			RateLimit: rate.Limit(cfg.Server.RateLimit),
			RateBurst: cfg.Server.RateBurst,
		},
		visitHandler.NewHandler(visitSvc),
		auditHandler.NewHandler(auditSvc, userRepo, guard),
	)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      r.Engine(),
		ReadTimeout:  time.Duration(cfg.Server.TimeoutSeconds) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.TimeoutSeconds) * time.Second,
	}

	go func() {
		appLogger.Info("starting server", "port", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			appLogger.Fatal(err, "server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	appLogger.Info("shutting down server")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		appLogger.Error(err, "forced shutdown")
	}
}
