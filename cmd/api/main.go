package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/time/rate"

	"github.com/careloop/recovery-api/internal/config"
	healthHandler "github.com/careloop/recovery-api/internal/handler/health"
	patientHandler "github.com/careloop/recovery-api/internal/handler/patient"
	providerHandler "github.com/careloop/recovery-api/internal/handler/provider"
	triggerHandler "github.com/careloop/recovery-api/internal/handler/trigger"
	"github.com/careloop/recovery-api/internal/middleware"
	"github.com/careloop/recovery-api/internal/repository/postgres"
	"github.com/careloop/recovery-api/internal/router"
	"github.com/careloop/recovery-api/internal/service/escalation"
	"github.com/careloop/recovery-api/internal/service/frequency"
	"github.com/careloop/recovery-api/internal/service/notifier"
	patientService "github.com/careloop/recovery-api/internal/service/patient"
	providerService "github.com/careloop/recovery-api/internal/service/provider"
	"github.com/careloop/recovery-api/internal/service/ruleplan"
	"github.com/careloop/recovery-api/internal/service/scheduler"
	"github.com/careloop/recovery-api/pkg/clock"
	"github.com/careloop/recovery-api/pkg/gateway/fcm"
	"github.com/careloop/recovery-api/pkg/gateway/twilio"
	"github.com/careloop/recovery-api/pkg/logger"
	messagingRedis "github.com/careloop/recovery-api/pkg/messaging/redis"
	"github.com/careloop/recovery-api/pkg/metrics"
	"github.com/careloop/recovery-api/pkg/validator"
)

func main() {
	appLogger := logger.NewLogger(nil)

	cfg, err := config.LoadConfig()
	if err != nil {
		appLogger.Fatal(err, "failed to load configuration")
	}

	db, err := postgres.NewDB(cfg.Database)
	if err != nil {
		appLogger.Fatal(err, "failed to connect to database")
	}
	defer db.Close()

	patientRepo := postgres.NewPatientRepository(db)
	ruleRepo := postgres.NewRuleRepository(db)
	vitalRepo := postgres.NewVitalRepository(db)
	medicationRepo := postgres.NewMedicationLogRepository(db)
	escalationRepo := postgres.NewEscalationRepository(db)
	notificationRepo := postgres.NewNotificationRepository(db)
	complianceRepo := postgres.NewComplianceRepository(db)

	clk := clock.New(cfg.Engine.TimezoneOffsetMinutes)
	m := metrics.New("careloop")

	pushClient := fcm.NewClient(fcm.Config{ServerKey: cfg.FCM.ServerKey}, appLogger)
	smsClient := twilio.NewClient(twilio.Config{
		AccountSID: cfg.Twilio.AccountSID,
		AuthToken:  cfg.Twilio.AuthToken,
		FromNumber: cfg.Twilio.FromNumber,
	}, appLogger)

	broker, err := messagingRedis.NewRedisBroker(messagingRedis.Config{
		URL:          cfg.Redis.URL,
		MaxRetries:   cfg.Redis.MaxRetries,
		RetryBackoff: cfg.Redis.RetryBackoff,
		PoolSize:     cfg.Redis.PoolSize,
		MinIdleConns: cfg.Redis.MinIdleConns,
	}, appLogger.Zerolog())
	if err != nil {
		appLogger.Warn("Redis unavailable, escalation events will not be published", "error", err.Error())
		broker = nil
	}

	notifierSvc := notifier.NewService(notificationRepo, pushClient, smsClient, clk, appLogger, m)
	freq := frequency.NewNormalizer(appLogger)
	ruleplanSvc := ruleplan.NewService(patientRepo, ruleRepo, vitalRepo, medicationRepo, complianceRepo, freq, appLogger)
	escalationEngine := escalation.NewEngine(
		escalation.DefaultConfig(),
		patientRepo, ruleRepo, vitalRepo, medicationRepo, escalationRepo,
		notifierSvc, broker, clk, appLogger, m,
	)
	patientSvc := patientService.NewService(
		patientRepo, ruleRepo, vitalRepo, medicationRepo, complianceRepo,
		ruleplanSvc, escalationEngine, clk, appLogger,
	)
	providerSvc := providerService.NewService(
		patientRepo, vitalRepo, escalationRepo, complianceRepo,
		escalationEngine, clk, appLogger,
	)
	sched := scheduler.New(patientRepo, ruleRepo, notificationRepo, notifierSvc, clk, appLogger, m)

	validator.Register()

	r := router.New(
		healthHandler.NewHandler(db, pushClient, smsClient),
		patientHandler.NewHandler(patientSvc, ruleplanSvc),
		providerHandler.NewHandler(providerSvc),
		triggerHandler.NewHandler(sched, escalationEngine, ruleplanSvc, clk),
		router.Config{
			RateLimit:  rate.Limit(cfg.RateLimit.RequestsPerSecond),
			RateBurst:  cfg.RateLimit.Burst,
			CORSConfig: middleware.DefaultCORSConfig(),
		},
	)
	r.Setup()

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      r.Engine(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		appLogger.Info("Starting API server", "port", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			appLogger.Fatal(err, "failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	appLogger.Info("Shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		appLogger.Fatal(err, "server forced to shutdown")
	}

	appLogger.Info("Server exited")
}
