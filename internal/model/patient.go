package model

import (
	"database/sql/driver"

	"github.com/lib/pq"
)

type PatientStatus string

const (
	PatientStatusActive   PatientStatus = "active"
	PatientStatusInactive PatientStatus = "inactive"
)

// Thresholds holds the per-patient red-flag triggers denormalized from
// the care plan so escalation checks never re-read the full plan.
type Thresholds struct {
	WeightGainTrigger24hKg float64  `json:"weight_gain_trigger_24h_kg"`
	WeightGainTrigger7dKg  float64  `json:"weight_gain_trigger_7d_kg"`
	YellowZone             []string `json:"yellow_zone"`
	RedZone                []string `json:"red_zone"`
}

func (t Thresholds) Value() (driver.Value, error) {
	return jsonbValue(t)
}

func (t *Thresholds) Scan(src interface{}) error {
	return jsonbScan(src, t)
}

type Patient struct {
	Base
	FullName          string         `db:"full_name" json:"full_name"`
	DOB               string         `db:"dob" json:"dob,omitempty"`
	Sex               string         `db:"sex" json:"sex,omitempty"`
	MRN               string         `db:"mrn" json:"mrn,omitempty"`
	Phone             string         `db:"phone" json:"phone"`
	CaregiverPhone    string         `db:"caregiver_phone" json:"caregiver_phone,omitempty"`
	NursePhone        string         `db:"nurse_phone" json:"nurse_phone,omitempty"`
	PrimaryDiagnosis  string         `db:"primary_diagnosis" json:"primary_diagnosis,omitempty"`
	CarePlanRef       string         `db:"care_plan_ref" json:"care_plan_ref"`
	CarePlanStartDate string         `db:"care_plan_start_date" json:"care_plan_start_date,omitempty"`
	CarePlanEndDate   string         `db:"care_plan_end_date" json:"care_plan_end_date,omitempty"`
	NotifyPush        bool           `db:"notify_push" json:"notify_push"`
	NotifySMS         bool           `db:"notify_sms" json:"notify_sms"`
	DeviceTokens      pq.StringArray `db:"device_tokens" json:"device_tokens"`
	Thresholds        Thresholds     `db:"thresholds" json:"thresholds"`
	Status            string         `db:"status" json:"status"`
}

type RegisterPatientRequest struct {
	CarePlan       CarePlan `json:"care_plan" binding:"required"`
	Phone          string   `json:"phone" binding:"required"`
	CaregiverPhone string   `json:"caregiver_phone"`
	NursePhone     string   `json:"nurse_phone"`
	DeviceTokens   []string `json:"device_tokens"`
}
