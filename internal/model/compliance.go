package model

import (
	"time"

	"github.com/google/uuid"
)

// Care-programme phases by day since care-plan start.
const (
	PhaseEarly  = "0-7"
	PhaseMiddle = "8-30"
	PhaseLate   = "31-90"
)

// DailyComplianceRecord is derived per (patient, date) and overwritten
// on recompute, never appended.
type DailyComplianceRecord struct {
	PatientID           uuid.UUID `db:"patient_id" json:"patient_id"`
	Date                string    `db:"date" json:"date"`
	CarePlanDay         int       `db:"care_plan_day" json:"care_plan_day"`
	Phase               string    `db:"phase" json:"phase"`
	WeightLogged        bool      `db:"weight_logged" json:"weight_logged"`
	BPLogged            bool      `db:"bp_logged" json:"bp_logged"`
	SymptomCheckDone    bool      `db:"symptom_check_done" json:"symptom_check_done"`
	MedicationsExpected int       `db:"medications_expected" json:"medications_expected"`
	MedicationsTaken    int       `db:"medications_taken" json:"medications_taken"`
	MedicationsSkipped  int       `db:"medications_skipped" json:"medications_skipped"`
	ComplianceScore     float64   `db:"compliance_score" json:"compliance_score"`
	ComputedAt          time.Time `db:"computed_at" json:"computed_at"`
}

// PhaseForDay maps a care-plan day to its programme phase.
func PhaseForDay(day int) string {
	switch {
	case day <= 7:
		return PhaseEarly
	case day <= 30:
		return PhaseMiddle
	default:
		return PhaseLate
	}
}
