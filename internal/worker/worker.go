// Package worker runs the engine passes on timers: reminder
// evaluation, escalation sweeps, and a nightly compliance rollup.
package worker

import (
	"context"
	"time"

	"github.com/careloop/recovery-api/internal/service/escalation"
	"github.com/careloop/recovery-api/internal/service/ruleplan"
	"github.com/careloop/recovery-api/internal/service/scheduler"
	"github.com/careloop/recovery-api/pkg/clock"
	"github.com/careloop/recovery-api/pkg/logger"
)

type Config struct {
	SchedulerInterval  time.Duration
	EscalationInterval time.Duration
	RollupTime         string
}

type Worker struct {
	scheduler  *scheduler.Scheduler
	escalation *escalation.Engine
	compliance *ruleplan.Service
	config     Config
	clock      clock.Clock
	logger     *logger.Logger

	lastRollupDate string
}

func New(
	sched *scheduler.Scheduler,
	esc *escalation.Engine,
	compliance *ruleplan.Service,
	config Config,
	clk clock.Clock,
	logger *logger.Logger,
) *Worker {
	if config.SchedulerInterval <= 0 {
		config.SchedulerInterval = time.Minute
	}
	if config.EscalationInterval <= 0 {
		config.EscalationInterval = 15 * time.Minute
	}
	if config.RollupTime == "" {
		config.RollupTime = "23:55"
	}

	return &Worker{
		scheduler:  sched,
		escalation: esc,
		compliance: compliance,
		config:     config,
		clock:      clk,
		logger:     logger,
	}
}

// Start blocks until ctx is cancelled. Each pass runs on its own
// ticker so a slow escalation sweep never delays reminders.
func (w *Worker) Start(ctx context.Context) {
	schedulerTicker := time.NewTicker(w.config.SchedulerInterval)
	defer schedulerTicker.Stop()
	escalationTicker := time.NewTicker(w.config.EscalationInterval)
	defer escalationTicker.Stop()
	rollupTicker := time.NewTicker(time.Minute)
	defer rollupTicker.Stop()

	w.logger.Info("Starting engine worker",
		"scheduler_interval", w.config.SchedulerInterval.String(),
		"escalation_interval", w.config.EscalationInterval.String(),
		"rollup_time", w.config.RollupTime)

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("Shutting down engine worker")
			return
		case <-schedulerTicker.C:
			w.runScheduler(ctx)
		case <-escalationTicker.C:
			w.runEscalation(ctx)
		case <-rollupTicker.C:
			w.maybeRollup(ctx)
		}
	}
}

func (w *Worker) runScheduler(ctx context.Context) {
	summary, err := w.scheduler.EvaluateDueReminders(ctx)
	if err != nil {
		w.logger.Error(err, "Reminder evaluation failed")
		return
	}
	if summary.Sent > 0 || summary.Failed > 0 {
		w.logger.Info("Reminder pass complete",
			"evaluated", summary.Evaluated,
			"sent", summary.Sent,
			"skipped", summary.Skipped,
			"failed", summary.Failed)
	}
}

func (w *Worker) runEscalation(ctx context.Context) {
	summary, err := w.escalation.CheckMissedActions(ctx)
	if err != nil {
		w.logger.Error(err, "Escalation sweep failed")
		return
	}
	if summary.NewEscalations > 0 || summary.LevelUps > 0 {
		w.logger.Info("Escalation sweep complete",
			"checked", summary.Checked,
			"new_escalations", summary.NewEscalations,
			"level_ups", summary.LevelUps)
	}
}

// maybeRollup computes the day's compliance once, at or after the
// configured local time.
func (w *Worker) maybeRollup(ctx context.Context) {
	local := w.clock.Local()
	today := clock.Date(local)
	if w.lastRollupDate == today {
		return
	}

	nowMin, ok := clock.MinuteOfDay(clock.HHMM(local))
	if !ok {
		return
	}
	rollupMin, ok := clock.MinuteOfDay(w.config.RollupTime)
	if !ok {
		w.logger.Warn("Invalid rollup time, using 23:55", "configured", w.config.RollupTime)
		rollupMin = 23*60 + 55
	}
	if nowMin < rollupMin {
		return
	}

	computed, err := w.compliance.ComputeAllDailyCompliance(ctx, today)
	if err != nil {
		w.logger.Error(err, "Compliance rollup failed", "date", today)
		return
	}
	w.lastRollupDate = today
	w.logger.Info("Compliance rollup complete", "date", today, "patients", computed)
}
