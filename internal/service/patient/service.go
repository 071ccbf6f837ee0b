// Package patient implements registration and the patient app
// operations: the today view, vital and medication logging with
// immediate escalation hooks, and history queries.
package patient

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/careloop/recovery-api/internal/model"
	"github.com/careloop/recovery-api/internal/repository"
	"github.com/careloop/recovery-api/pkg/clock"
	apperrors "github.com/careloop/recovery-api/pkg/errors"
	"github.com/careloop/recovery-api/pkg/logger"
)

const maxHistoryDays = 90

// RuleGenerator builds the reminder rule set for a new patient.
type RuleGenerator interface {
	GenerateRules(ctx context.Context, patientID uuid.UUID, plan *model.CarePlan) (map[string]int, error)
}

// Escalator covers the immediate escalation hooks run on patient
// actions.
type Escalator interface {
	CheckWeightThresholds(ctx context.Context, patientID uuid.UUID, newWeight float64) (*model.Escalation, error)
	CheckSymptomRedFlags(ctx context.Context, patientID uuid.UUID, symptoms []string) (*model.Escalation, error)
	ResolveForAction(ctx context.Context, patientID uuid.UUID, actionType string, payload *model.EscalationPayload) (int, error)
}

type Service struct {
	patients   repository.PatientRepository
	rules      repository.RuleRepository
	vitals     repository.VitalRepository
	meds       repository.MedicationLogRepository
	compliance repository.ComplianceRepository
	generator  RuleGenerator
	escalator  Escalator
	clock      clock.Clock
	logger     *logger.Logger
}

func NewService(
	patients repository.PatientRepository,
	rules repository.RuleRepository,
	vitals repository.VitalRepository,
	meds repository.MedicationLogRepository,
	compliance repository.ComplianceRepository,
	generator RuleGenerator,
	escalator Escalator,
	clk clock.Clock,
	logger *logger.Logger,
) *Service {
	return &Service{
		patients:   patients,
		rules:      rules,
		vitals:     vitals,
		meds:       meds,
		compliance: compliance,
		generator:  generator,
		escalator:  escalator,
		clock:      clk,
		logger:     logger,
	}
}

// RegistrationResult is returned after onboarding a patient.
type RegistrationResult struct {
	Patient              *model.Patient `json:"patient"`
	ReminderRulesCreated map[string]int `json:"reminder_rules_created"`
}

// Register onboards a patient from their care plan and generates the
// reminder rule set. A care plan reference can only be registered once.
func (s *Service) Register(ctx context.Context, req *model.RegisterPatientRequest) (*RegistrationResult, error) {
	plan := &req.CarePlan

	existing, err := s.patients.GetByCarePlanRef(ctx, plan.Reference)
	if err != nil && !apperrors.IsNotFound(err) {
		return nil, err
	}
	if existing != nil {
		return nil, apperrors.Conflict(fmt.Sprintf("patient already registered for care plan %s", plan.Reference), nil)
	}

	fullName := plan.Patient.FullName
	if fullName == "" {
		fullName = "Unknown"
	}

	patient := &model.Patient{
		Base:              model.Base{ID: uuid.New()},
		FullName:          fullName,
		DOB:               plan.Patient.DOB,
		Sex:               plan.Patient.Sex,
		MRN:               plan.Patient.MRN,
		Phone:             req.Phone,
		CaregiverPhone:    req.CaregiverPhone,
		NursePhone:        req.NursePhone,
		PrimaryDiagnosis:  plan.PrimaryDiagnosis,
		CarePlanRef:       plan.Reference,
		CarePlanStartDate: plan.StartDate,
		CarePlanEndDate:   plan.EndDate,
		NotifyPush:        true,
		NotifySMS:         true,
		DeviceTokens:      req.DeviceTokens,
		Status:            string(model.PatientStatusActive),
	}
	if err := s.patients.Create(ctx, patient); err != nil {
		return nil, fmt.Errorf("create patient: %w", err)
	}

	counts, err := s.generator.GenerateRules(ctx, patient.ID, plan)
	if err != nil {
		return nil, fmt.Errorf("generate rules: %w", err)
	}

	// Thresholds were denormalized during rule generation.
	patient, err = s.patients.Get(ctx, patient.ID)
	if err != nil {
		return nil, err
	}

	s.logger.Info("patient registered", "patient_id", patient.ID, "care_plan_ref", plan.Reference)
	return &RegistrationResult{Patient: patient, ReminderRulesCreated: counts}, nil
}

// Get returns one patient.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*model.Patient, error) {
	return s.patients.Get(ctx, id)
}

// Deactivate takes a patient out of all scheduler and escalation
// passes.
func (s *Service) Deactivate(ctx context.Context, id uuid.UUID) error {
	if _, err := s.patients.Get(ctx, id); err != nil {
		return err
	}
	return s.patients.UpdateStatus(ctx, id, model.PatientStatusInactive)
}

// VitalLogResult reports a logged vital plus any escalation activity
// it triggered.
type VitalLogResult struct {
	LogID               uuid.UUID         `json:"log_id"`
	Type                model.VitalType   `json:"type"`
	EscalationsResolved int               `json:"escalations_resolved,omitempty"`
	Alert               *model.Escalation `json:"alert,omitempty"`
}

// LogVital persists a reading, auto-resolves matching missed-action
// escalations and runs the threshold checks for the vital type.
func (s *Service) LogVital(ctx context.Context, patientID uuid.UUID, req *model.LogVitalRequest) (*VitalLogResult, error) {
	if _, err := s.patients.Get(ctx, patientID); err != nil {
		return nil, err
	}
	if err := validateVitalValue(req); err != nil {
		return nil, err
	}

	log := &model.VitalLog{
		ID:        uuid.New(),
		PatientID: patientID,
		Type:      req.Type,
		Value:     req.Value,
		Source:    "patient",
		Date:      clock.Date(s.clock.Local()),
		LoggedAt:  s.clock.Now(),
	}
	if err := s.vitals.Create(ctx, log); err != nil {
		return nil, fmt.Errorf("log vital: %w", err)
	}

	result := &VitalLogResult{LogID: log.ID, Type: req.Type}

	resolved, err := s.escalator.ResolveForAction(ctx, patientID, string(req.Type), nil)
	if err != nil {
		return nil, err
	}
	result.EscalationsResolved = resolved

	switch req.Type {
	case model.VitalTypeWeight:
		alert, err := s.escalator.CheckWeightThresholds(ctx, patientID, *req.Value.Number)
		if err != nil {
			return nil, err
		}
		result.Alert = alert
	case model.VitalTypeSymptomCheck:
		if len(req.Value.Symptoms) > 0 {
			alert, err := s.escalator.CheckSymptomRedFlags(ctx, patientID, req.Value.Symptoms)
			if err != nil {
				return nil, err
			}
			result.Alert = alert
		}
	}

	return result, nil
}

func validateVitalValue(req *model.LogVitalRequest) error {
	switch req.Type {
	case model.VitalTypeWeight, model.VitalTypeHeartRate, model.VitalTypeSpO2:
		if req.Value.Number == nil {
			return apperrors.BadRequest(fmt.Sprintf("%s reading requires a numeric value", req.Type), nil)
		}
	case model.VitalTypeBP:
		if req.Value.Systolic == nil || req.Value.Diastolic == nil {
			return apperrors.BadRequest("bp reading requires systolic and diastolic values", nil)
		}
	case model.VitalTypeSymptomCheck:
		// An empty symptom list is a valid "feeling fine" check-in.
	default:
		return apperrors.BadRequest(fmt.Sprintf("unsupported vital type %q", req.Type), nil)
	}
	return nil
}

// MedicationAckResult reports an acknowledged dose.
type MedicationAckResult struct {
	LogID               uuid.UUID              `json:"log_id"`
	Status              model.MedicationStatus `json:"status"`
	EscalationsResolved int                    `json:"escalations_resolved,omitempty"`
}

// AcknowledgeMedication records a dose as taken or skipped. Taking a
// dose auto-resolves that medication's open escalations.
func (s *Service) AcknowledgeMedication(ctx context.Context, patientID uuid.UUID, req *model.AcknowledgeMedicationRequest) (*MedicationAckResult, error) {
	if _, err := s.patients.Get(ctx, patientID); err != nil {
		return nil, err
	}

	status := model.MedicationStatus(req.Status)
	if status == "" {
		status = model.MedicationStatusTaken
	}

	now := s.clock.Now()
	log := &model.MedicationLog{
		ID:             uuid.New(),
		PatientID:      patientID,
		MedicationName: req.MedicationName,
		ScheduledTime:  req.ScheduledTime,
		Status:         status,
		SkipReason:     req.SkipReason,
		Date:           clock.Date(s.clock.Local()),
		AcknowledgedAt: &now,
	}
	if err := s.meds.Create(ctx, log); err != nil {
		return nil, fmt.Errorf("log medication: %w", err)
	}

	result := &MedicationAckResult{LogID: log.ID, Status: status}

	if status == model.MedicationStatusTaken {
		resolved, err := s.escalator.ResolveForAction(ctx, patientID, "medication",
			&model.EscalationPayload{MedicationName: req.MedicationName})
		if err != nil {
			return nil, err
		}
		result.EscalationsResolved = resolved
	}

	return result, nil
}

// TodayVitals summarizes today's logged readings.
type TodayVitals struct {
	WeightLogged     bool              `json:"weight_logged"`
	WeightValue      *model.VitalValue `json:"weight_value,omitempty"`
	BPLogged         bool              `json:"bp_logged"`
	BPValue          *model.VitalValue `json:"bp_value,omitempty"`
	SymptomCheckDone bool              `json:"symptom_check_done"`
}

// MedicationSlot is one scheduled dose with its acknowledgment status.
type MedicationSlot struct {
	MedicationName string `json:"medication_name"`
	Dose           string `json:"dose,omitempty"`
	Route          string `json:"route,omitempty"`
	Frequency      string `json:"frequency,omitempty"`
	Indication     string `json:"indication,omitempty"`
	ScheduledTime  string `json:"scheduled_time"`
	Status         string `json:"status"`
}

type Appointment struct {
	Datetime string `json:"datetime"`
	Provider string `json:"provider,omitempty"`
}

// TodayView is the patient app home screen payload.
type TodayView struct {
	PatientID       uuid.UUID        `json:"patient_id"`
	FullName        string           `json:"full_name"`
	CarePlanDay     int              `json:"care_plan_day"`
	Phase           string           `json:"phase"`
	Date            string           `json:"date"`
	Vitals          TodayVitals      `json:"vitals"`
	Medications     []MedicationSlot `json:"medications"`
	NextAppointment *Appointment     `json:"next_appointment,omitempty"`
	Thresholds      model.Thresholds `json:"thresholds"`
}

// Today assembles the patient's current-day status: care-plan
// position, vitals progress, the medication schedule with per-dose
// status, and the next appointment.
func (s *Service) Today(ctx context.Context, patientID uuid.UUID) (*TodayView, error) {
	patient, err := s.patients.Get(ctx, patientID)
	if err != nil {
		return nil, err
	}

	local := s.clock.Local()
	today := clock.Date(local)
	day := s.carePlanDay(patient, local)

	view := &TodayView{
		PatientID:   patientID,
		FullName:    patient.FullName,
		CarePlanDay: day,
		Phase:       model.PhaseForDay(day),
		Date:        today,
		Thresholds:  patient.Thresholds,
		Medications: []MedicationSlot{},
	}

	weightLogs, err := s.vitals.ListForDate(ctx, patientID, today, model.VitalTypeWeight)
	if err != nil {
		return nil, err
	}
	if len(weightLogs) > 0 {
		view.Vitals.WeightLogged = true
		view.Vitals.WeightValue = &weightLogs[len(weightLogs)-1].Value
	}
	bpLogs, err := s.vitals.ListForDate(ctx, patientID, today, model.VitalTypeBP)
	if err != nil {
		return nil, err
	}
	if len(bpLogs) > 0 {
		view.Vitals.BPLogged = true
		view.Vitals.BPValue = &bpLogs[len(bpLogs)-1].Value
	}
	symptomLogs, err := s.vitals.ListForDate(ctx, patientID, today, model.VitalTypeSymptomCheck)
	if err != nil {
		return nil, err
	}
	view.Vitals.SymptomCheckDone = len(symptomLogs) > 0

	medLogs, err := s.meds.ListForDate(ctx, patientID, today)
	if err != nil {
		return nil, err
	}
	type doseKey struct{ name, at string }
	logged := make(map[doseKey]model.MedicationStatus, len(medLogs))
	for _, ml := range medLogs {
		logged[doseKey{ml.MedicationName, ml.ScheduledTime}] = ml.Status
	}

	rules, err := s.rules.ListForPatient(ctx, patientID, true)
	if err != nil {
		return nil, err
	}
	for _, rule := range rules {
		if rule.Type != model.RuleTypeMedication {
			continue
		}
		for _, at := range rule.Schedule.Times {
			status := "pending"
			if st, ok := logged[doseKey{rule.Payload.MedicationName, at}]; ok {
				status = string(st)
			}
			view.Medications = append(view.Medications, MedicationSlot{
				MedicationName: rule.Payload.MedicationName,
				Dose:           rule.Payload.Dose,
				Route:          rule.Payload.Route,
				Frequency:      rule.Payload.Frequency,
				Indication:     rule.Payload.Indication,
				ScheduledTime:  at,
				Status:         status,
			})
		}
	}
	sort.SliceStable(view.Medications, func(i, j int) bool {
		return view.Medications[i].ScheduledTime < view.Medications[j].ScheduledTime
	})

	for _, rule := range rules {
		if rule.Type == model.RuleTypeAppointment && rule.Payload.AppointmentAt != "" {
			view.NextAppointment = &Appointment{
				Datetime: rule.Payload.AppointmentAt,
				Provider: rule.Payload.Provider,
			}
			break
		}
	}

	return view, nil
}

func (s *Service) carePlanDay(patient *model.Patient, local time.Time) int {
	if patient.CarePlanStartDate == "" {
		return 0
	}
	start, err := time.Parse(clock.DateLayout, patient.CarePlanStartDate)
	if err != nil {
		return 0
	}
	current, err := time.Parse(clock.DateLayout, clock.Date(local))
	if err != nil {
		return 0
	}
	return int(current.Sub(start).Hours() / 24)
}

// VitalHistory returns readings for trend charts, capped at 90 days.
func (s *Service) VitalHistory(ctx context.Context, patientID uuid.UUID, vitalType model.VitalType, days int) ([]*model.VitalLog, error) {
	if _, err := s.patients.Get(ctx, patientID); err != nil {
		return nil, err
	}
	if days <= 0 {
		days = 7
	}
	if days > maxHistoryDays {
		days = maxHistoryDays
	}
	since := clock.Date(s.clock.Local().AddDate(0, 0, -days))
	return s.vitals.ListSince(ctx, patientID, vitalType, since)
}

// ComplianceHistory returns the stored daily compliance records,
// capped at 90 days.
func (s *Service) ComplianceHistory(ctx context.Context, patientID uuid.UUID, days int) ([]*model.DailyComplianceRecord, error) {
	if _, err := s.patients.Get(ctx, patientID); err != nil {
		return nil, err
	}
	if days <= 0 {
		days = 7
	}
	if days > maxHistoryDays {
		days = maxHistoryDays
	}
	since := clock.Date(s.clock.Local().AddDate(0, 0, -days))
	return s.compliance.ListSince(ctx, patientID, since)
}

// TodayDate returns the current date in the engine's local timezone.
func (s *Service) TodayDate() string {
	return clock.Date(s.clock.Local())
}
