package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/careloop/recovery-api/internal/config"
	"github.com/careloop/recovery-api/internal/repository/postgres"
	"github.com/careloop/recovery-api/internal/service/escalation"
	"github.com/careloop/recovery-api/internal/service/frequency"
	"github.com/careloop/recovery-api/internal/service/notifier"
	"github.com/careloop/recovery-api/internal/service/ruleplan"
	"github.com/careloop/recovery-api/internal/service/scheduler"
	"github.com/careloop/recovery-api/internal/worker"
	"github.com/careloop/recovery-api/pkg/clock"
	"github.com/careloop/recovery-api/pkg/gateway/fcm"
	"github.com/careloop/recovery-api/pkg/gateway/twilio"
	"github.com/careloop/recovery-api/pkg/logger"
	messagingRedis "github.com/careloop/recovery-api/pkg/messaging/redis"
	"github.com/careloop/recovery-api/pkg/metrics"
)

func setupHealthCheck(appLogger *logger.Logger) {
	mux := http.NewServeMux()
	mux.HandleFunc("/health/live", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	go func() {
		if err := http.ListenAndServe(":8081", mux); err != nil {
			appLogger.Fatal(err, "health check server failed")
		}
	}()
}

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
	m := metrics.New("careloop_worker")

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
	sched := scheduler.New(patientRepo, ruleRepo, notificationRepo, notifierSvc, clk, appLogger, m)

	w := worker.New(sched, escalationEngine, ruleplanSvc, worker.Config{
		SchedulerInterval:  cfg.Engine.SchedulerInterval,
		EscalationInterval: cfg.Engine.EscalationInterval,
		RollupTime:         cfg.Engine.ComplianceRollupTime,
	}, clk, appLogger)

	setupHealthCheck(appLogger)

	ctx, cancel := context.WithCancel(context.Background())
	go w.Start(ctx)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	appLogger.Info("Shutting down worker")
	cancel()
}
