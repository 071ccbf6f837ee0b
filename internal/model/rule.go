package model

import (
	"database/sql/driver"

	"github.com/google/uuid"
)

type RuleType string

const (
	RuleTypeMedication   RuleType = "medication"
	RuleTypeWeight       RuleType = "weight"
	RuleTypeBP           RuleType = "bp"
	RuleTypeSymptomCheck RuleType = "symptom_check"
	RuleTypeAppointment  RuleType = "appointment"
	RuleTypeNurseCheckin RuleType = "nurse_checkin"
)

type DeliveryTarget string

const (
	TargetPatient DeliveryTarget = "patient"
	TargetNurse   DeliveryTarget = "nurse"
)

// Day selectors for a rule schedule.
const (
	DaysDaily = "daily"
	DaysDates = "dates"
	// DaysWeekly is carried over from the care-plan source; weekday
	// matching was never finished there, so it evaluates as always due.
	DaysWeekly = "weekly"
)

// Schedule describes when a rule fires: an ordered set of daily clock
// times plus either a recurring day selector or explicit dates.
type Schedule struct {
	Times []string `json:"times"`
	Days  string   `json:"days"`
	Dates []string `json:"dates,omitempty"`
}

func (s Schedule) Value() (driver.Value, error) {
	return jsonbValue(s)
}

func (s *Schedule) Scan(src interface{}) error {
	return jsonbScan(src, s)
}

// DueToday reports whether the day selector matches the given date.
func (s Schedule) DueToday(date string) bool {
	switch s.Days {
	case DaysDaily:
		return true
	case DaysDates:
		for _, d := range s.Dates {
			if d == date {
				return true
			}
		}
		return false
	default:
		return true
	}
}

// RulePayload carries the type-specific reminder content.
type RulePayload struct {
	MedicationName string   `json:"medication_name,omitempty"`
	Dose           string   `json:"dose,omitempty"`
	Route          string   `json:"route,omitempty"`
	Frequency      string   `json:"frequency,omitempty"`
	Indication     string   `json:"indication,omitempty"`
	Message        string   `json:"message,omitempty"`
	TargetWeightKg *float64 `json:"target_weight_kg,omitempty"`
	AppointmentAt  string   `json:"appointment_datetime,omitempty"`
	Provider       string   `json:"provider,omitempty"`
}

func (p RulePayload) Value() (driver.Value, error) {
	return jsonbValue(p)
}

func (p *RulePayload) Scan(src interface{}) error {
	return jsonbScan(src, p)
}

// EscalationPolicy is the per-rule overdue policy: how many minutes
// after the scheduled time the action counts as missed.
type EscalationPolicy struct {
	AfterMinutes int      `json:"after_minutes"`
	Notify       []string `json:"notify"`
}

func (p EscalationPolicy) Value() (driver.Value, error) {
	return jsonbValue(p)
}

func (p *EscalationPolicy) Scan(src interface{}) error {
	return jsonbScan(src, p)
}

// ReminderRule is immutable once created except for the active flag.
type ReminderRule struct {
	Base
	PatientID  uuid.UUID         `db:"patient_id" json:"patient_id"`
	Type       RuleType          `db:"type" json:"type"`
	Schedule   Schedule          `db:"schedule" json:"schedule"`
	Payload    RulePayload       `db:"payload" json:"payload"`
	Escalation *EscalationPolicy `db:"escalation" json:"escalation,omitempty"`
	Target     DeliveryTarget    `db:"target" json:"target"`
	Active     bool              `db:"active" json:"active"`
}

// OverdueGraceMinutes returns the rule's overdue grace, falling back to
// the medication default when the rule carries no policy.
func (r *ReminderRule) OverdueGraceMinutes() int {
	if r.Escalation == nil || r.Escalation.AfterMinutes <= 0 {
		return 60
	}
	return r.Escalation.AfterMinutes
}
