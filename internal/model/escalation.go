package model

import (
	"database/sql/driver"
	"time"

	"github.com/google/uuid"
)

type TriggerType string

const (
	TriggerMissedWeight            TriggerType = "missed_weight"
	TriggerMissedMedication        TriggerType = "missed_medication"
	TriggerMissedSymptomCheck      TriggerType = "missed_symptom_check"
	TriggerConsecutiveMissedWeight TriggerType = "consecutive_missed_weight"
	TriggerWeightSpike24h          TriggerType = "weight_spike_24h"
	TriggerWeightSpike7d           TriggerType = "weight_spike_7d"
	TriggerRedFlag                 TriggerType = "red_flag"
)

// IsImmediate reports whether the trigger type is always created at
// the nurse level, skipping patient and caregiver tiers.
func (t TriggerType) IsImmediate() bool {
	switch t {
	case TriggerWeightSpike24h, TriggerWeightSpike7d, TriggerRedFlag, TriggerConsecutiveMissedWeight:
		return true
	}
	return false
}

// Escalation severity levels.
const (
	LevelPatient   = 0
	LevelCaregiver = 1
	LevelNurse     = 2
)

type EscalationStatus string

const (
	EscalationStatusOpen     EscalationStatus = "open"
	EscalationStatusResolved EscalationStatus = "resolved"
)

// EscalationPayload disambiguates escalations of the same trigger type,
// e.g. which medication dose was missed.
type EscalationPayload struct {
	MedicationName string `json:"medication_name,omitempty"`
	ScheduledTime  string `json:"scheduled_time,omitempty"`
}

func (p EscalationPayload) Value() (driver.Value, error) {
	return jsonbValue(p)
}

func (p *EscalationPayload) Scan(src interface{}) error {
	return jsonbScan(src, p)
}

// Escalation tracks one unresolved risk or missed action. Levels only
// ever increase; resolution is terminal and records who resolved it.
type Escalation struct {
	Base
	PatientID    uuid.UUID         `db:"patient_id" json:"patient_id"`
	TriggerType  TriggerType       `db:"trigger_type" json:"trigger_type"`
	TriggerValue string            `db:"trigger_value" json:"trigger_value,omitempty"`
	Threshold    string            `db:"threshold" json:"threshold,omitempty"`
	Level        int               `db:"level" json:"level"`
	Status       EscalationStatus  `db:"status" json:"status"`
	Date         string            `db:"date" json:"date"`
	Payload      EscalationPayload `db:"payload" json:"payload"`
	ResolvedBy   *string           `db:"resolved_by" json:"resolved_by,omitempty"`
	ResolvedAt   *time.Time        `db:"resolved_at" json:"resolved_at,omitempty"`
}

// Escalation lifecycle events published to the provider event stream.
const (
	EscalationEventCreated  = "escalation.created"
	EscalationEventPromoted = "escalation.promoted"
	EscalationEventResolved = "escalation.resolved"
)

type EscalationEvent struct {
	Type       string      `json:"type"`
	Escalation *Escalation `json:"escalation"`
	OccurredAt time.Time   `json:"occurred_at"`
}
