package model

// CarePlan is the structured output of the discharge-document
// extraction pipeline, consumed by rule generation.
type CarePlan struct {
	Reference        string          `json:"reference" binding:"required"`
	Patient          CarePlanPatient `json:"patient"`
	PrimaryDiagnosis string          `json:"primary_diagnosis"`
	Medications      []Medication    `json:"medications"`
	Monitoring       Monitoring      `json:"monitoring"`
	FollowUp         FollowUp        `json:"follow_up"`
	StartDate        string          `json:"care_plan_start_date"`
	EndDate          string          `json:"care_plan_end_date"`
	RedFlags         RedFlags        `json:"red_flags"`
}

type CarePlanPatient struct {
	FullName string `json:"full_name"`
	DOB      string `json:"dob"`
	Sex      string `json:"sex_at_birth"`
	MRN      string `json:"mrn"`
}

type Medication struct {
	Name       string `json:"name"`
	Dose       string `json:"dose"`
	Route      string `json:"route"`
	Frequency  string `json:"frequency"`
	Indication string `json:"indication"`
}

// Monitoring flags default to required when the extraction omits them.
type Monitoring struct {
	DailyWeightRequired  *bool    `json:"daily_weight_required"`
	BPRequired           *bool    `json:"bp_required"`
	SymptomCheckRequired *bool    `json:"symptom_check_required"`
	TargetDryWeightKg    *float64 `json:"target_dry_weight_kg"`
}

func (m Monitoring) WeightRequired() bool {
	return m.DailyWeightRequired == nil || *m.DailyWeightRequired
}

func (m Monitoring) BloodPressureRequired() bool {
	return m.BPRequired == nil || *m.BPRequired
}

func (m Monitoring) SymptomsRequired() bool {
	return m.SymptomCheckRequired == nil || *m.SymptomCheckRequired
}

type FollowUp struct {
	Appointments []CarePlanAppointment `json:"appointments"`
}

type CarePlanAppointment struct {
	ScheduledDatetime string `json:"scheduled_datetime"`
	ProviderName      string `json:"provider_name"`
	AppointmentType   string `json:"appointment_type"`
}

type RedFlags struct {
	WeightGainTrigger24hKg float64  `json:"weight_gain_trigger_24h_kg"`
	WeightGainTrigger7dKg  float64  `json:"weight_gain_trigger_7d_kg"`
	YellowZone             []string `json:"yellow_zone"`
	RedZone                []string `json:"red_zone"`
}

// Thresholds converts the red flags to the denormalized patient form,
// applying the clinical defaults for missing triggers.
func (rf RedFlags) Thresholds() Thresholds {
	t := Thresholds{
		WeightGainTrigger24hKg: rf.WeightGainTrigger24hKg,
		WeightGainTrigger7dKg:  rf.WeightGainTrigger7dKg,
		YellowZone:             rf.YellowZone,
		RedZone:                rf.RedZone,
	}
	if t.WeightGainTrigger24hKg <= 0 {
		t.WeightGainTrigger24hKg = 1.0
	}
	if t.WeightGainTrigger7dKg <= 0 {
		t.WeightGainTrigger7dKg = 2.0
	}
	return t
}
