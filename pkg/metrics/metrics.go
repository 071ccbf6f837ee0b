package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all engine metrics
type Metrics struct {
	// Reminder scheduler pass
	RulesEvaluated    prometheus.Counter
	RemindersSent     prometheus.Counter
	RemindersSkipped  prometheus.Counter
	RemindersFailed   prometheus.Counter
	SchedulerDuration prometheus.Histogram

	// Escalation pass
	PatientsChecked    prometheus.Counter
	EscalationsCreated *prometheus.CounterVec
	EscalationLevelUps prometheus.Counter
	EscalationDuration prometheus.Histogram

	// Notification dispatch
	NotificationsByChannel *prometheus.CounterVec
}

// New creates and registers all engine metrics
func New(namespace string) *Metrics {
	return &Metrics{
		RulesEvaluated: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reminder_rules_evaluated_total",
			Help:      "Total number of reminder rules evaluated",
		}),
		RemindersSent: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reminders_sent_total",
			Help:      "Total number of reminders dispatched successfully",
		}),
		RemindersSkipped: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reminders_skipped_total",
			Help:      "Total number of due reminders skipped (already sent or nurse targeted)",
		}),
		RemindersFailed: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reminders_failed_total",
			Help:      "Total number of reminders that failed on every channel",
		}),
		SchedulerDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "scheduler_pass_duration_seconds",
			Help:      "Time spent evaluating due reminders",
			Buckets:   []float64{.01, .05, .1, .25, .5, 1, 2.5, 5, 10},
		}),
		PatientsChecked: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "escalation_patients_checked_total",
			Help:      "Total number of patients evaluated for missed actions",
		}),
		EscalationsCreated: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "escalations_created_total",
			Help:      "Total number of escalations created",
		}, []string{"trigger_type"}),
		EscalationLevelUps: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "escalation_level_ups_total",
			Help:      "Total number of escalation level promotions",
		}),
		EscalationDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "escalation_pass_duration_seconds",
			Help:      "Time spent checking missed actions",
			Buckets:   []float64{.01, .05, .1, .25, .5, 1, 2.5, 5, 10},
		}),
		NotificationsByChannel: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notifications_dispatched_total",
			Help:      "Notification dispatch outcomes by resolved channel",
		}, []string{"channel"}),
	}
}
