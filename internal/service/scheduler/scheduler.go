// Package scheduler evaluates every active patient's reminder rules
// against the current local time and dispatches the ones that are due.
// A pass is idempotent: the notification log caps each rule at one
// delivery per patient-local day.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/careloop/recovery-api/internal/model"
	"github.com/careloop/recovery-api/internal/repository"
	"github.com/careloop/recovery-api/pkg/clock"
	"github.com/careloop/recovery-api/pkg/logger"
	"github.com/careloop/recovery-api/pkg/metrics"
)

// dueWindowMinutes is the tolerance around a scheduled time; it must
// cover the cron cadence so no slot is straddled and missed.
const dueWindowMinutes = 2

// Notifier dispatches a reminder and reports the channel used.
type Notifier interface {
	Send(ctx context.Context, patient *model.Patient, title, body, notificationType string, ruleID *uuid.UUID) string
}

// Summary is the outcome of one evaluation pass.
type Summary struct {
	Evaluated int `json:"evaluated"`
	Sent      int `json:"sent"`
	Skipped   int `json:"skipped"`
	Failed    int `json:"failed"`
}

type Scheduler struct {
	patients      repository.PatientRepository
	rules         repository.RuleRepository
	notifications repository.NotificationRepository
	notifier      Notifier
	clock         clock.Clock
	logger        *logger.Logger
	metrics       *metrics.Metrics
}

func New(
	patients repository.PatientRepository,
	rules repository.RuleRepository,
	notifications repository.NotificationRepository,
	notifier Notifier,
	clk clock.Clock,
	logger *logger.Logger,
	metrics *metrics.Metrics,
) *Scheduler {
	return &Scheduler{
		patients:      patients,
		rules:         rules,
		notifications: notifications,
		notifier:      notifier,
		clock:         clk,
		logger:        logger,
		metrics:       metrics,
	}
}

// EvaluateDueReminders runs one pass over all active patients.
func (s *Scheduler) EvaluateDueReminders(ctx context.Context) (*Summary, error) {
	start := time.Now()
	local := s.clock.Local()
	nowMinutes := local.Hour()*60 + local.Minute()
	today := clock.Date(local)

	summary := &Summary{}

	patients, err := s.patients.ListActive(ctx)
	if err != nil {
		return nil, fmt.Errorf("list active patients: %w", err)
	}

	for _, patient := range patients {
		rules, err := s.rules.ListForPatient(ctx, patient.ID, true)
		if err != nil {
			return nil, fmt.Errorf("list rules for patient %s: %w", patient.ID, err)
		}

		for _, rule := range rules {
			summary.Evaluated++

			if !s.isDue(rule, nowMinutes, today) {
				continue
			}

			ruleID := rule.ID
			existing, err := s.notifications.ListForDate(ctx, patient.ID, today, &ruleID)
			if err != nil {
				return nil, fmt.Errorf("check notification log: %w", err)
			}
			if len(existing) > 0 {
				summary.Skipped++
				continue
			}

			if rule.Target == model.TargetNurse {
				// Nurse check-ins have no patient-facing delivery yet.
				summary.Skipped++
				continue
			}

			title, body := buildContent(rule)
			channel := s.notifier.Send(ctx, patient, title, body, string(rule.Type), &ruleID)
			if channel != model.ChannelFailed {
				summary.Sent++
			} else {
				summary.Failed++
			}
		}
	}

	if s.metrics != nil {
		s.metrics.RulesEvaluated.Add(float64(summary.Evaluated))
		s.metrics.RemindersSent.Add(float64(summary.Sent))
		s.metrics.RemindersSkipped.Add(float64(summary.Skipped))
		s.metrics.RemindersFailed.Add(float64(summary.Failed))
		s.metrics.SchedulerDuration.Observe(time.Since(start).Seconds())
	}

	s.logger.Info("reminder evaluation complete",
		"evaluated", summary.Evaluated,
		"sent", summary.Sent,
		"skipped", summary.Skipped,
		"failed", summary.Failed,
	)
	return summary, nil
}

func (s *Scheduler) isDue(rule *model.ReminderRule, nowMinutes int, today string) bool {
	match := false
	for _, t := range rule.Schedule.Times {
		scheduled, ok := clock.MinuteOfDay(t)
		if !ok {
			continue
		}
		diff := nowMinutes - scheduled
		if diff < 0 {
			diff = -diff
		}
		if diff <= dueWindowMinutes {
			match = true
			break
		}
	}
	if !match {
		return false
	}
	return rule.Schedule.DueToday(today)
}

func buildContent(rule *model.ReminderRule) (title, body string) {
	payload := rule.Payload

	switch rule.Type {
	case model.RuleTypeMedication:
		name := payload.MedicationName
		if name == "" {
			name = "your medication"
		}
		body = "Time to take " + name
		if payload.Dose != "" && payload.Dose != "unknown" {
			body += " (" + payload.Dose + ")"
		}
		if payload.Indication != "" && payload.Indication != "unknown" {
			body += " — " + payload.Indication
		}
		return "Medication Reminder", body

	case model.RuleTypeWeight:
		return "Weight Check", messageOr(payload, "Please log your weight.")

	case model.RuleTypeBP:
		return "BP Check", messageOr(payload, "Please log your blood pressure.")

	case model.RuleTypeSymptomCheck:
		return "Evening Check-in", messageOr(payload, "How are you feeling today?")

	case model.RuleTypeAppointment:
		return "Appointment Reminder", messageOr(payload, "You have an upcoming appointment.")

	case model.RuleTypeNurseCheckin:
		return "Nurse Check-in", messageOr(payload, "Nurse check-in scheduled for today.")
	}

	return "CareLoop Reminder", messageOr(payload, "You have a pending task.")
}

func messageOr(payload model.RulePayload, fallback string) string {
	if payload.Message != "" {
		return payload.Message
	}
	return fallback
}
