// Package escalation detects missed patient actions and vital
// threshold breaches, and walks unresolved escalations up the
// patient, caregiver, nurse ladder.
package escalation

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/careloop/recovery-api/internal/model"
	"github.com/careloop/recovery-api/internal/repository"
	"github.com/careloop/recovery-api/pkg/clock"
	"github.com/careloop/recovery-api/pkg/logger"
	"github.com/careloop/recovery-api/pkg/messaging"
	"github.com/careloop/recovery-api/pkg/metrics"
)

// EventChannel is the broker channel carrying escalation lifecycle
// events for provider-facing consumers.
const EventChannel = "careloop.escalations"

// ResolvedByPatientAction marks auto-resolution by a logged action.
const ResolvedByPatientAction = "patient_action"

// Config holds the escalation timing policy.
type Config struct {
	// WeightCutoff is the local time after which a missing weight log
	// counts as missed.
	WeightCutoff string
	// Level1AfterMin and Level2AfterMin are the minimum open-escalation
	// ages before promotion to the caregiver and nurse tiers.
	Level1AfterMin int
	Level2AfterMin int
	// ConsecutiveMissedDays is the run of weight-less days that goes
	// straight to the nurse.
	ConsecutiveMissedDays int
}

func DefaultConfig() Config {
	return Config{
		WeightCutoff:          "12:00",
		Level1AfterMin:        120,
		Level2AfterMin:        240,
		ConsecutiveMissedDays: 3,
	}
}

// Notifier delivers patient re-nudges and caregiver/nurse alerts.
type Notifier interface {
	Send(ctx context.Context, patient *model.Patient, title, body, notificationType string, ruleID *uuid.UUID) string
	NotifyCaregiver(ctx context.Context, patient *model.Patient, message string)
	NotifyNurse(ctx context.Context, patient *model.Patient, message string)
}

// Summary is the outcome of one missed-action pass.
type Summary struct {
	Checked        int `json:"checked"`
	NewEscalations int `json:"new_escalations"`
	LevelUps       int `json:"level_ups"`
}

type Engine struct {
	config      Config
	patients    repository.PatientRepository
	rules       repository.RuleRepository
	vitals      repository.VitalRepository
	meds        repository.MedicationLogRepository
	escalations repository.EscalationRepository
	notifier    Notifier
	broker      messaging.Broker
	clock       clock.Clock
	logger      *logger.Logger
	metrics     *metrics.Metrics
}

func NewEngine(
	config Config,
	patients repository.PatientRepository,
	rules repository.RuleRepository,
	vitals repository.VitalRepository,
	meds repository.MedicationLogRepository,
	escalations repository.EscalationRepository,
	notifier Notifier,
	broker messaging.Broker,
	clk clock.Clock,
	logger *logger.Logger,
	metrics *metrics.Metrics,
) *Engine {
	return &Engine{
		config:      config,
		patients:    patients,
		rules:       rules,
		vitals:      vitals,
		meds:        meds,
		escalations: escalations,
		notifier:    notifier,
		broker:      broker,
		clock:       clk,
		logger:      logger,
		metrics:     metrics,
	}
}

// CheckWeightThresholds compares a newly logged weight against the
// patient's red-flag triggers. A breach creates a nurse-level
// escalation immediately.
func (e *Engine) CheckWeightThresholds(ctx context.Context, patientID uuid.UUID, newWeight float64) (*model.Escalation, error) {
	patient, err := e.patients.Get(ctx, patientID)
	if err != nil {
		return nil, err
	}
	trigger24h := patient.Thresholds.WeightGainTrigger24hKg
	trigger7d := patient.Thresholds.WeightGainTrigger7dKg
	if trigger24h <= 0 {
		trigger24h = 1.0
	}
	if trigger7d <= 0 {
		trigger7d = 2.0
	}

	local := e.clock.Local()

	if prev, ok, err := e.lastWeightOn(ctx, patientID, clock.Date(local.AddDate(0, 0, -1)), true); err != nil {
		return nil, err
	} else if ok {
		gain := newWeight - prev
		if gain >= trigger24h {
			msg := fmt.Sprintf("Weight gain of %.1fkg in 24 hours (threshold: %gkg)", gain, trigger24h)
			return e.createWeightSpike(ctx, patient, model.TriggerWeightSpike24h, msg, newWeight, trigger24h)
		}
	}

	if prev, ok, err := e.lastWeightOn(ctx, patientID, clock.Date(local.AddDate(0, 0, -7)), false); err != nil {
		return nil, err
	} else if ok {
		gain := newWeight - prev
		if gain >= trigger7d {
			msg := fmt.Sprintf("Weight gain of %.1fkg in 7 days (threshold: %gkg)", gain, trigger7d)
			return e.createWeightSpike(ctx, patient, model.TriggerWeightSpike7d, msg, newWeight, trigger7d)
		}
	}

	return nil, nil
}

// lastWeightOn returns the day's weight reading; last is preferred for
// the 24h baseline, first for the 7-day one.
func (e *Engine) lastWeightOn(ctx context.Context, patientID uuid.UUID, date string, latest bool) (float64, bool, error) {
	logs, err := e.vitals.ListForDate(ctx, patientID, date, model.VitalTypeWeight)
	if err != nil {
		return 0, false, fmt.Errorf("list weight logs: %w", err)
	}
	if len(logs) == 0 {
		return 0, false, nil
	}
	log := logs[0]
	if latest {
		log = logs[len(logs)-1]
	}
	if log.Value.Number == nil {
		return 0, false, nil
	}
	return *log.Value.Number, true, nil
}

func (e *Engine) createWeightSpike(ctx context.Context, patient *model.Patient, trigger model.TriggerType, message string, value, threshold float64) (*model.Escalation, error) {
	esc := &model.Escalation{
		Base:         model.Base{ID: uuid.New()},
		PatientID:    patient.ID,
		TriggerType:  trigger,
		TriggerValue: strconv.FormatFloat(value, 'f', 1, 64),
		Threshold:    strconv.FormatFloat(threshold, 'f', -1, 64),
		Level:        model.LevelNurse,
		Status:       model.EscalationStatusOpen,
		Date:         clock.Date(e.clock.Local()),
	}
	if err := e.escalations.Create(ctx, esc); err != nil {
		return nil, fmt.Errorf("create escalation: %w", err)
	}

	name := patientName(patient)
	e.notifier.NotifyNurse(ctx, patient, fmt.Sprintf("WEIGHT ALERT: %s — %s", name, message))
	e.notifier.NotifyCaregiver(ctx, patient, fmt.Sprintf("Weight alert for %s: %s. Please ensure they contact their care team.", name, message))

	e.countCreated(esc.TriggerType)
	e.publish(ctx, model.EscalationEventCreated, esc)
	return esc, nil
}

// CheckSymptomRedFlags matches reported symptoms against the patient's
// red zone and escalates straight to the nurse on any match. Matching
// is case-insensitive substring containment in either direction.
func (e *Engine) CheckSymptomRedFlags(ctx context.Context, patientID uuid.UUID, symptoms []string) (*model.Escalation, error) {
	patient, err := e.patients.Get(ctx, patientID)
	if err != nil {
		return nil, err
	}

	var matches []string
	for _, reported := range symptoms {
		rl := strings.ToLower(reported)
		for _, redZone := range patient.Thresholds.RedZone {
			rz := strings.ToLower(redZone)
			if strings.Contains(rl, rz) || strings.Contains(rz, rl) {
				matches = append(matches, rl)
				break
			}
		}
	}
	if len(matches) == 0 {
		return nil, nil
	}

	esc := &model.Escalation{
		Base:         model.Base{ID: uuid.New()},
		PatientID:    patient.ID,
		TriggerType:  model.TriggerRedFlag,
		TriggerValue: strings.Join(matches, ", "),
		Threshold:    "red zone symptoms",
		Level:        model.LevelNurse,
		Status:       model.EscalationStatusOpen,
		Date:         clock.Date(e.clock.Local()),
	}
	if err := e.escalations.Create(ctx, esc); err != nil {
		return nil, fmt.Errorf("create escalation: %w", err)
	}

	name := patientName(patient)
	joined := strings.Join(matches, ", ")
	e.notifier.NotifyNurse(ctx, patient, fmt.Sprintf("RED FLAG: %s reported: %s. Immediate attention required.", name, joined))
	e.notifier.NotifyCaregiver(ctx, patient, fmt.Sprintf("Alert: %s reported concerning symptoms: %s. Please check on them.", name, joined))

	e.countCreated(esc.TriggerType)
	e.publish(ctx, model.EscalationEventCreated, esc)
	return esc, nil
}

// CheckMissedActions runs one pass over all active patients: missed
// weight after the cutoff, medication doses past their grace window,
// and runs of weight-less days.
func (e *Engine) CheckMissedActions(ctx context.Context) (*Summary, error) {
	start := time.Now()
	local := e.clock.Local()
	today := clock.Date(local)
	nowMinutes := local.Hour()*60 + local.Minute()

	summary := &Summary{}

	patients, err := e.patients.ListActive(ctx)
	if err != nil {
		return nil, fmt.Errorf("list active patients: %w", err)
	}

	cutoff, _ := clock.MinuteOfDay(e.config.WeightCutoff)

	for _, patient := range patients {
		summary.Checked++

		if nowMinutes >= cutoff {
			logs, err := e.vitals.ListForDate(ctx, patient.ID, today, model.VitalTypeWeight)
			if err != nil {
				return nil, fmt.Errorf("list weight logs: %w", err)
			}
			if len(logs) == 0 {
				if err := e.handleMissedAction(ctx, patient, model.TriggerMissedWeight, today, nowMinutes-cutoff, nil, summary); err != nil {
					return nil, err
				}
			}
		}

		if err := e.checkMissedMedications(ctx, patient, today, nowMinutes, summary); err != nil {
			return nil, err
		}

		if err := e.checkConsecutiveMissedWeight(ctx, patient, local, summary); err != nil {
			return nil, err
		}
	}

	if e.metrics != nil {
		e.metrics.PatientsChecked.Add(float64(summary.Checked))
		e.metrics.EscalationDuration.Observe(time.Since(start).Seconds())
	}

	e.logger.Info("missed action check complete",
		"checked", summary.Checked,
		"new_escalations", summary.NewEscalations,
		"level_ups", summary.LevelUps,
	)
	return summary, nil
}

func (e *Engine) checkMissedMedications(ctx context.Context, patient *model.Patient, today string, nowMinutes int, summary *Summary) error {
	rules, err := e.rules.ListForPatient(ctx, patient.ID, true)
	if err != nil {
		return fmt.Errorf("list rules: %w", err)
	}
	medLogs, err := e.meds.ListForDate(ctx, patient.ID, today)
	if err != nil {
		return fmt.Errorf("list medication logs: %w", err)
	}

	for _, rule := range rules {
		if rule.Type != model.RuleTypeMedication {
			continue
		}
		grace := rule.OverdueGraceMinutes()
		for _, scheduled := range rule.Schedule.Times {
			minute, ok := clock.MinuteOfDay(scheduled)
			if !ok {
				continue
			}
			if nowMinutes < minute+grace {
				continue
			}

			logged := false
			for _, ml := range medLogs {
				if ml.MedicationName == rule.Payload.MedicationName && ml.ScheduledTime == scheduled {
					logged = true
					break
				}
			}
			if logged {
				continue
			}

			payload := &model.EscalationPayload{
				MedicationName: rule.Payload.MedicationName,
				ScheduledTime:  scheduled,
			}
			if err := e.handleMissedAction(ctx, patient, model.TriggerMissedMedication, today, nowMinutes-minute, payload, summary); err != nil {
				return err
			}
		}
	}
	return nil
}

// checkConsecutiveMissedWeight walks back from yesterday, stopping at
// the first day with a reading.
func (e *Engine) checkConsecutiveMissedWeight(ctx context.Context, patient *model.Patient, local time.Time, summary *Summary) error {
	missed := 0
	for daysAgo := 1; daysAgo <= e.config.ConsecutiveMissedDays; daysAgo++ {
		date := clock.Date(local.AddDate(0, 0, -daysAgo))
		logs, err := e.vitals.ListForDate(ctx, patient.ID, date, model.VitalTypeWeight)
		if err != nil {
			return fmt.Errorf("list weight logs: %w", err)
		}
		if len(logs) > 0 {
			break
		}
		missed++
	}
	if missed < e.config.ConsecutiveMissedDays {
		return nil
	}

	open, err := e.escalations.ListOpenForPatient(ctx, patient.ID)
	if err != nil {
		return fmt.Errorf("list open escalations: %w", err)
	}
	for _, esc := range open {
		if esc.TriggerType == model.TriggerConsecutiveMissedWeight {
			return nil
		}
	}

	esc := &model.Escalation{
		Base:         model.Base{ID: uuid.New()},
		PatientID:    patient.ID,
		TriggerType:  model.TriggerConsecutiveMissedWeight,
		TriggerValue: strconv.Itoa(missed),
		Threshold:    strconv.Itoa(e.config.ConsecutiveMissedDays),
		Level:        model.LevelNurse,
		Status:       model.EscalationStatusOpen,
		Date:         clock.Date(local),
	}
	if err := e.escalations.Create(ctx, esc); err != nil {
		return fmt.Errorf("create escalation: %w", err)
	}

	e.notifier.NotifyNurse(ctx, patient,
		fmt.Sprintf("ALERT: %s has not logged weight for %d consecutive days.", patientName(patient), missed))

	summary.NewEscalations++
	e.countCreated(esc.TriggerType)
	e.publish(ctx, model.EscalationEventCreated, esc)
	return nil
}

// handleMissedAction creates a new level-0 escalation with a patient
// re-nudge, or promotes an existing one at most one level per pass.
// ageMinutes is how long the action has been due: minutes since the
// scheduled dose time for medications, since the cutoff for weight.
// The level thresholds compare against it, so a dose missed since
// morning escalates on the next pass rather than waiting two more
// hours from when the escalation row happened to be created.
func (e *Engine) handleMissedAction(ctx context.Context, patient *model.Patient, trigger model.TriggerType, today string, ageMinutes int, payload *model.EscalationPayload, summary *Summary) error {
	open, err := e.escalations.ListOpenForPatient(ctx, patient.ID)
	if err != nil {
		return fmt.Errorf("list open escalations: %w", err)
	}

	var existing *model.Escalation
	for _, esc := range open {
		if esc.TriggerType != trigger || esc.Date != today {
			continue
		}
		if payload != nil && esc.Payload.MedicationName != payload.MedicationName {
			continue
		}
		existing = esc
		break
	}

	if existing == nil {
		esc := &model.Escalation{
			Base:        model.Base{ID: uuid.New()},
			PatientID:   patient.ID,
			TriggerType: trigger,
			Level:       model.LevelPatient,
			Status:      model.EscalationStatusOpen,
			Date:        today,
		}
		if payload != nil {
			esc.Payload = *payload
		}
		if err := e.escalations.Create(ctx, esc); err != nil {
			return fmt.Errorf("create escalation: %w", err)
		}

		e.notifier.Send(ctx, patient, "Reminder", patientReminderText(trigger, payload), string(trigger), nil)

		summary.NewEscalations++
		e.countCreated(trigger)
		e.publish(ctx, model.EscalationEventCreated, esc)
		return nil
	}

	switch {
	case existing.Level == model.LevelPatient && ageMinutes >= e.config.Level1AfterMin:
		if err := e.promote(ctx, existing, model.LevelCaregiver); err != nil {
			return err
		}
		e.notifier.NotifyCaregiver(ctx, patient,
			fmt.Sprintf("%s hasn't %s. Please remind them.", patientName(patient), actionVerb(trigger)))
		summary.LevelUps++

	case existing.Level == model.LevelCaregiver && ageMinutes >= e.config.Level2AfterMin:
		if err := e.promote(ctx, existing, model.LevelNurse); err != nil {
			return err
		}
		e.notifier.NotifyNurse(ctx, patient,
			fmt.Sprintf("%s — %s. No response from caregiver.", patientName(patient), actionDescription(trigger)))
		summary.LevelUps++
	}
	return nil
}

func (e *Engine) promote(ctx context.Context, esc *model.Escalation, level int) error {
	if err := e.escalations.UpdateLevel(ctx, esc.ID, level); err != nil {
		return fmt.Errorf("update escalation level: %w", err)
	}
	esc.Level = level
	if e.metrics != nil {
		e.metrics.EscalationLevelUps.Inc()
	}
	e.publish(ctx, model.EscalationEventPromoted, esc)
	return nil
}

// ResolveForAction closes open escalations satisfied by a patient
// action. Medication escalations only resolve for the matching
// medication.
func (e *Engine) ResolveForAction(ctx context.Context, patientID uuid.UUID, actionType string, payload *model.EscalationPayload) (int, error) {
	var triggers []model.TriggerType
	switch actionType {
	case "weight":
		triggers = []model.TriggerType{model.TriggerMissedWeight, model.TriggerConsecutiveMissedWeight}
	case "medication":
		triggers = []model.TriggerType{model.TriggerMissedMedication}
	case "symptom_check":
		triggers = []model.TriggerType{model.TriggerMissedSymptomCheck}
	default:
		return 0, nil
	}

	open, err := e.escalations.ListOpenForPatient(ctx, patientID)
	if err != nil {
		return 0, fmt.Errorf("list open escalations: %w", err)
	}

	resolved := 0
	for _, esc := range open {
		match := false
		for _, t := range triggers {
			if esc.TriggerType == t {
				match = true
				break
			}
		}
		if !match {
			continue
		}
		if actionType == "medication" && payload != nil && esc.Payload.MedicationName != payload.MedicationName {
			continue
		}
		if err := e.escalations.Resolve(ctx, esc.ID, ResolvedByPatientAction); err != nil {
			return resolved, fmt.Errorf("resolve escalation: %w", err)
		}
		resolved++
		e.publishResolved(ctx, esc, ResolvedByPatientAction)
	}
	return resolved, nil
}

// ResolveByOperator closes one escalation on behalf of a provider.
func (e *Engine) ResolveByOperator(ctx context.Context, escalationID uuid.UUID, resolvedBy string) (*model.Escalation, error) {
	esc, err := e.escalations.Get(ctx, escalationID)
	if err != nil {
		return nil, err
	}
	if esc.Status == model.EscalationStatusResolved {
		return esc, nil
	}
	if resolvedBy == "" {
		resolvedBy = "provider"
	}
	if err := e.escalations.Resolve(ctx, escalationID, resolvedBy); err != nil {
		return nil, fmt.Errorf("resolve escalation: %w", err)
	}
	e.publishResolved(ctx, esc, resolvedBy)
	return e.escalations.Get(ctx, escalationID)
}

func (e *Engine) publishResolved(ctx context.Context, esc *model.Escalation, resolvedBy string) {
	cp := *esc
	cp.Status = model.EscalationStatusResolved
	cp.ResolvedBy = &resolvedBy
	e.publish(ctx, model.EscalationEventResolved, &cp)
}

func (e *Engine) publish(ctx context.Context, eventType string, esc *model.Escalation) {
	if e.broker == nil {
		return
	}
	event := model.EscalationEvent{
		Type:       eventType,
		Escalation: esc,
		OccurredAt: e.clock.Now(),
	}
	if err := e.broker.Publish(ctx, EventChannel, event); err != nil {
		e.logger.Warn("failed to publish escalation event", "type", eventType, "error", err.Error())
	}
}

func (e *Engine) countCreated(trigger model.TriggerType) {
	if e.metrics != nil {
		e.metrics.EscalationsCreated.WithLabelValues(string(trigger)).Inc()
	}
}

func patientName(p *model.Patient) string {
	if p.FullName != "" {
		return p.FullName
	}
	return "Patient"
}

func actionVerb(trigger model.TriggerType) string {
	switch trigger {
	case model.TriggerMissedWeight:
		return "logged their weight today"
	case model.TriggerMissedMedication:
		return "taken their medication"
	case model.TriggerMissedSymptomCheck:
		return "completed their symptom check"
	}
	return "completed a required action"
}

func actionDescription(trigger model.TriggerType) string {
	switch trigger {
	case model.TriggerMissedWeight:
		return "Missed weight log today"
	case model.TriggerMissedMedication:
		return "Missed medication dose"
	case model.TriggerMissedSymptomCheck:
		return "Missed evening symptom check"
	}
	return "Missed required action"
}

func patientReminderText(trigger model.TriggerType, payload *model.EscalationPayload) string {
	switch trigger {
	case model.TriggerMissedWeight:
		return "You haven't logged your weight yet today. Please weigh yourself and log it in the app."
	case model.TriggerMissedMedication:
		name := "your medication"
		if payload != nil && payload.MedicationName != "" {
			name = payload.MedicationName
		}
		return fmt.Sprintf("Reminder: You haven't taken %s yet. Please take it now if appropriate.", name)
	case model.TriggerMissedSymptomCheck:
		return "Please complete your evening symptom check-in."
	}
	return "You have a pending health task. Please check the CareLoop app."
}
