package model

import (
	"database/sql/driver"
	"time"

	"github.com/google/uuid"
)

type VitalType string

const (
	VitalTypeWeight       VitalType = "weight"
	VitalTypeBP           VitalType = "bp"
	VitalTypeHeartRate    VitalType = "heart_rate"
	VitalTypeSpO2         VitalType = "spo2"
	VitalTypeSymptomCheck VitalType = "symptom_check"
)

// VitalValue holds one reading. Exactly one shape is populated per
// vital type: Number for weight/heart_rate/spo2, Systolic+Diastolic
// for bp, Symptoms for symptom_check.
type VitalValue struct {
	Number    *float64 `json:"number,omitempty"`
	Systolic  *int     `json:"systolic,omitempty"`
	Diastolic *int     `json:"diastolic,omitempty"`
	Symptoms  []string `json:"symptoms,omitempty"`
}

func (v VitalValue) Value() (driver.Value, error) {
	return jsonbValue(v)
}

func (v *VitalValue) Scan(src interface{}) error {
	return jsonbScan(src, v)
}

// VitalLog is an append-only timestamped reading, bucketed by the
// patient-local calendar date it belongs to.
type VitalLog struct {
	ID        uuid.UUID  `db:"id" json:"id"`
	PatientID uuid.UUID  `db:"patient_id" json:"patient_id"`
	Type      VitalType  `db:"type" json:"type"`
	Value     VitalValue `db:"value" json:"value"`
	Source    string     `db:"source" json:"source"`
	Date      string     `db:"date" json:"date"`
	LoggedAt  time.Time  `db:"logged_at" json:"logged_at"`
}

type MedicationStatus string

const (
	MedicationStatusTaken   MedicationStatus = "taken"
	MedicationStatusSkipped MedicationStatus = "skipped"
)

// MedicationLog is an append-only acknowledgment of one scheduled dose.
type MedicationLog struct {
	ID             uuid.UUID        `db:"id" json:"id"`
	PatientID      uuid.UUID        `db:"patient_id" json:"patient_id"`
	MedicationName string           `db:"medication_name" json:"medication_name"`
	ScheduledTime  string           `db:"scheduled_time" json:"scheduled_time"`
	Status         MedicationStatus `db:"status" json:"status"`
	SkipReason     *string          `db:"skip_reason" json:"skip_reason,omitempty"`
	Date           string           `db:"date" json:"date"`
	AcknowledgedAt *time.Time       `db:"acknowledged_at" json:"acknowledged_at,omitempty"`
}

type LogVitalRequest struct {
	Type  VitalType  `json:"type" binding:"required"`
	Value VitalValue `json:"value"`
}

type AcknowledgeMedicationRequest struct {
	MedicationName string  `json:"medication_name" binding:"required"`
	ScheduledTime  string  `json:"scheduled_time" binding:"required,hhmm"`
	Status         string  `json:"status" binding:"omitempty,oneof=taken skipped"`
	SkipReason     *string `json:"skip_reason"`
}
