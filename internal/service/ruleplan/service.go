// Package ruleplan turns a structured care plan into the patient's
// reminder rule set and derives the daily compliance record from what
// was actually logged against those rules.
package ruleplan

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/careloop/recovery-api/internal/model"
	"github.com/careloop/recovery-api/internal/repository"
	"github.com/careloop/recovery-api/internal/service/frequency"
	"github.com/careloop/recovery-api/pkg/clock"
	"github.com/careloop/recovery-api/pkg/logger"
)

// Fixed clinical schedule for non-medication rules.
const (
	weightTime       = "07:30"
	bpTime           = "08:30"
	symptomTime      = "19:00"
	appointmentTime  = "09:00"
	sameDayApptTime  = "07:00"
	nurseCheckinTime = "10:00"

	weightMessage  = "Time to log your weight. Please weigh yourself before eating or drinking."
	bpMessage      = "Please log your blood pressure reading."
	symptomMessage = "Evening check-in: How are you feeling today?"
	nurseMessage   = "Nurse check-in and symptom review scheduled for today."
)

type Service struct {
	patients   repository.PatientRepository
	rules      repository.RuleRepository
	vitals     repository.VitalRepository
	meds       repository.MedicationLogRepository
	compliance repository.ComplianceRepository
	freq       *frequency.Normalizer
	logger     *logger.Logger
}

func NewService(
	patients repository.PatientRepository,
	rules repository.RuleRepository,
	vitals repository.VitalRepository,
	meds repository.MedicationLogRepository,
	compliance repository.ComplianceRepository,
	freq *frequency.Normalizer,
	logger *logger.Logger,
) *Service {
	return &Service{
		patients:   patients,
		rules:      rules,
		vitals:     vitals,
		meds:       meds,
		compliance: compliance,
		freq:       freq,
		logger:     logger,
	}
}

func isUnknown(value string) bool {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "", "unknown", "n/a", "none":
		return true
	}
	return false
}

// GenerateRules creates the full reminder rule set for a patient from
// their care plan and denormalizes the red-flag thresholds onto the
// patient record. It returns created-rule counts per type.
func (s *Service) GenerateRules(ctx context.Context, patientID uuid.UUID, plan *model.CarePlan) (map[string]int, error) {
	counts := map[string]int{}

	for _, med := range plan.Medications {
		if isUnknown(med.Name) {
			continue
		}
		times := s.freq.Normalize(med.Frequency)
		if len(times) == 0 {
			// SOS/PRN dosing, nothing to schedule.
			continue
		}
		rule := &model.ReminderRule{
			Base:      model.Base{ID: uuid.New()},
			PatientID: patientID,
			Type:      model.RuleTypeMedication,
			Schedule:  model.Schedule{Times: times, Days: model.DaysDaily},
			Payload: model.RulePayload{
				MedicationName: med.Name,
				Dose:           med.Dose,
				Route:          med.Route,
				Frequency:      med.Frequency,
				Indication:     med.Indication,
			},
			Escalation: &model.EscalationPolicy{AfterMinutes: 60, Notify: []string{"caregiver"}},
			Target:     model.TargetPatient,
			Active:     true,
		}
		if err := s.rules.Create(ctx, rule); err != nil {
			return nil, fmt.Errorf("create medication rule: %w", err)
		}
		counts["medication"]++
	}

	if plan.Monitoring.WeightRequired() {
		rule := &model.ReminderRule{
			Base:      model.Base{ID: uuid.New()},
			PatientID: patientID,
			Type:      model.RuleTypeWeight,
			Schedule:  model.Schedule{Times: []string{weightTime}, Days: model.DaysDaily},
			Payload: model.RulePayload{
				Message:        weightMessage,
				TargetWeightKg: plan.Monitoring.TargetDryWeightKg,
			},
			Escalation: &model.EscalationPolicy{AfterMinutes: 270, Notify: []string{"caregiver", "nurse"}},
			Target:     model.TargetPatient,
			Active:     true,
		}
		if err := s.rules.Create(ctx, rule); err != nil {
			return nil, fmt.Errorf("create weight rule: %w", err)
		}
		counts["weight"] = 1
	}

	if plan.Monitoring.BloodPressureRequired() {
		rule := &model.ReminderRule{
			Base:       model.Base{ID: uuid.New()},
			PatientID:  patientID,
			Type:       model.RuleTypeBP,
			Schedule:   model.Schedule{Times: []string{bpTime}, Days: model.DaysDaily},
			Payload:    model.RulePayload{Message: bpMessage},
			Escalation: &model.EscalationPolicy{AfterMinutes: 480, Notify: []string{"caregiver"}},
			Target:     model.TargetPatient,
			Active:     true,
		}
		if err := s.rules.Create(ctx, rule); err != nil {
			return nil, fmt.Errorf("create bp rule: %w", err)
		}
		counts["bp"] = 1
	}

	if plan.Monitoring.SymptomsRequired() {
		rule := &model.ReminderRule{
			Base:       model.Base{ID: uuid.New()},
			PatientID:  patientID,
			Type:       model.RuleTypeSymptomCheck,
			Schedule:   model.Schedule{Times: []string{symptomTime}, Days: model.DaysDaily},
			Payload:    model.RulePayload{Message: symptomMessage},
			Escalation: &model.EscalationPolicy{AfterMinutes: 180, Notify: []string{"caregiver"}},
			Target:     model.TargetPatient,
			Active:     true,
		}
		if err := s.rules.Create(ctx, rule); err != nil {
			return nil, fmt.Errorf("create symptom rule: %w", err)
		}
		counts["symptom_check"] = 1
	}

	for _, appt := range plan.FollowUp.Appointments {
		apptAt, err := parseAppointment(appt.ScheduledDatetime)
		if err != nil {
			s.logger.Warn("skipping appointment with unparseable datetime",
				"patient_id", patientID, "scheduled_datetime", appt.ScheduledDatetime)
			continue
		}
		provider := appt.ProviderName
		if provider == "" {
			provider = "your doctor"
		}
		apptType := appt.AppointmentType
		if apptType == "" {
			apptType = "follow-up"
		}

		reminders := []struct {
			date    string
			at      string
			message string
		}{
			{clock.Date(apptAt.AddDate(0, 0, -2)), appointmentTime,
				fmt.Sprintf("Reminder: Your %s appointment with %s is in 2 days.", apptType, provider)},
			{clock.Date(apptAt.AddDate(0, 0, -1)), appointmentTime,
				fmt.Sprintf("Reminder: Your %s appointment with %s is tomorrow.", apptType, provider)},
			{clock.Date(apptAt), sameDayApptTime,
				fmt.Sprintf("Today: %s appointment with %s. Please be on time.", apptType, provider)},
		}
		for _, r := range reminders {
			rule := &model.ReminderRule{
				Base:      model.Base{ID: uuid.New()},
				PatientID: patientID,
				Type:      model.RuleTypeAppointment,
				Schedule:  model.Schedule{Times: []string{r.at}, Days: model.DaysDates, Dates: []string{r.date}},
				Payload: model.RulePayload{
					Message:       r.message,
					AppointmentAt: appt.ScheduledDatetime,
					Provider:      provider,
				},
				Target: model.TargetPatient,
				Active: true,
			}
			if err := s.rules.Create(ctx, rule); err != nil {
				return nil, fmt.Errorf("create appointment rule: %w", err)
			}
			counts["appointment"]++
		}
	}

	if plan.StartDate != "" {
		if start, err := time.Parse(clock.DateLayout, plan.StartDate); err == nil {
			rule := &model.ReminderRule{
				Base:      model.Base{ID: uuid.New()},
				PatientID: patientID,
				Type:      model.RuleTypeNurseCheckin,
				Schedule: model.Schedule{
					Times: []string{nurseCheckinTime},
					Days:  model.DaysDates,
					Dates: nurseCheckinDates(start),
				},
				Payload: model.RulePayload{Message: nurseMessage},
				Target:  model.TargetNurse,
				Active:  true,
			}
			if err := s.rules.Create(ctx, rule); err != nil {
				return nil, fmt.Errorf("create nurse check-in rule: %w", err)
			}
			counts["nurse_checkin"] = 1
		}
	}

	if err := s.patients.UpdateThresholds(ctx, patientID, plan.RedFlags.Thresholds()); err != nil {
		return nil, fmt.Errorf("update thresholds: %w", err)
	}

	s.logger.Info("generated reminder rules", "patient_id", patientID, "counts", counts)
	return counts, nil
}

// nurseCheckinDates are days 0, 2, 6 after care-plan start, then every
// 7 days from day 13 through day 90.
func nurseCheckinDates(start time.Time) []string {
	days := []int{0, 2, 6}
	for d := 13; d <= 90; d += 7 {
		days = append(days, d)
	}
	dates := make([]string, 0, len(days))
	for _, d := range days {
		dates = append(dates, clock.Date(start.AddDate(0, 0, d)))
	}
	return dates
}

func parseAppointment(value string) (time.Time, error) {
	for _, layout := range []string{time.RFC3339, "2006-01-02T15:04:05", "2006-01-02T15:04", clock.DateLayout} {
		if t, err := time.Parse(layout, value); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unparseable datetime %q", value)
}

// ComputeDailyCompliance recomputes and stores the compliance record
// for one patient-local date. Expected medication doses come from the
// active medication rules, so the score stays in step with the
// schedule actually in force.
func (s *Service) ComputeDailyCompliance(ctx context.Context, patientID uuid.UUID, date string) (*model.DailyComplianceRecord, error) {
	patient, err := s.patients.Get(ctx, patientID)
	if err != nil {
		return nil, err
	}

	rules, err := s.rules.ListForPatient(ctx, patientID, true)
	if err != nil {
		return nil, fmt.Errorf("list rules: %w", err)
	}
	expectedMeds := 0
	for _, r := range rules {
		if r.Type == model.RuleTypeMedication {
			expectedMeds += len(r.Schedule.Times)
		}
	}

	medLogs, err := s.meds.ListForDate(ctx, patientID, date)
	if err != nil {
		return nil, fmt.Errorf("list medication logs: %w", err)
	}
	taken, skipped := 0, 0
	for _, m := range medLogs {
		switch m.Status {
		case model.MedicationStatusTaken:
			taken++
		case model.MedicationStatusSkipped:
			skipped++
		}
	}

	weightLogged, err := s.vitalLogged(ctx, patientID, date, model.VitalTypeWeight)
	if err != nil {
		return nil, err
	}
	bpLogged, err := s.vitalLogged(ctx, patientID, date, model.VitalTypeBP)
	if err != nil {
		return nil, err
	}
	symptomDone, err := s.vitalLogged(ctx, patientID, date, model.VitalTypeSymptomCheck)
	if err != nil {
		return nil, err
	}

	expected := expectedMeds + 3
	completed := taken
	for _, done := range []bool{weightLogged, bpLogged, symptomDone} {
		if done {
			completed++
		}
	}
	score := math.Round(float64(completed)/math.Max(float64(expected), 1)*100) / 100

	day := 0
	if patient.CarePlanStartDate != "" {
		if start, err := time.Parse(clock.DateLayout, patient.CarePlanStartDate); err == nil {
			if current, err := time.Parse(clock.DateLayout, date); err == nil {
				day = int(current.Sub(start).Hours() / 24)
			}
		}
	}

	record := &model.DailyComplianceRecord{
		PatientID:           patientID,
		Date:                date,
		CarePlanDay:         day,
		Phase:               model.PhaseForDay(day),
		WeightLogged:        weightLogged,
		BPLogged:            bpLogged,
		SymptomCheckDone:    symptomDone,
		MedicationsExpected: expectedMeds,
		MedicationsTaken:    taken,
		MedicationsSkipped:  skipped,
		ComplianceScore:     score,
		ComputedAt:          time.Now(),
	}
	if err := s.compliance.Upsert(ctx, record); err != nil {
		return nil, fmt.Errorf("store compliance: %w", err)
	}
	return record, nil
}

// ComputeAllDailyCompliance recomputes the given date's compliance
// record for every active patient and returns the number processed.
func (s *Service) ComputeAllDailyCompliance(ctx context.Context, date string) (int, error) {
	patients, err := s.patients.ListActive(ctx)
	if err != nil {
		return 0, fmt.Errorf("list active patients: %w", err)
	}
	for i, p := range patients {
		if _, err := s.ComputeDailyCompliance(ctx, p.ID, date); err != nil {
			return i, fmt.Errorf("compliance for patient %s: %w", p.ID, err)
		}
	}
	return len(patients), nil
}

func (s *Service) vitalLogged(ctx context.Context, patientID uuid.UUID, date string, vitalType model.VitalType) (bool, error) {
	logs, err := s.vitals.ListForDate(ctx, patientID, date, vitalType)
	if err != nil {
		return false, fmt.Errorf("list %s logs: %w", vitalType, err)
	}
	return len(logs) > 0, nil
}
