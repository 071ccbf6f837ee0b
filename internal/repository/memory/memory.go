// Package memory provides in-memory implementations of the repository
// interfaces. They back the engine's unit tests and local development
// without a database.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/careloop/recovery-api/internal/model"
	"github.com/careloop/recovery-api/internal/repository"
	apperrors "github.com/careloop/recovery-api/pkg/errors"
)

// Store bundles all in-memory repositories over one mutex.
type Store struct {
	mu             sync.RWMutex
	patients       map[uuid.UUID]*model.Patient
	rules          map[uuid.UUID]*model.ReminderRule
	vitals         []*model.VitalLog
	medicationLogs []*model.MedicationLog
	escalations    map[uuid.UUID]*model.Escalation
	notifications  []*model.NotificationRecord
	compliance     map[string]*model.DailyComplianceRecord
}

func NewStore() *Store {
	return &Store{
		patients:    make(map[uuid.UUID]*model.Patient),
		rules:       make(map[uuid.UUID]*model.ReminderRule),
		escalations: make(map[uuid.UUID]*model.Escalation),
		compliance:  make(map[string]*model.DailyComplianceRecord),
	}
}

func (s *Store) Patients() repository.PatientRepository             { return (*patientStore)(s) }
func (s *Store) Rules() repository.RuleRepository                   { return (*ruleStore)(s) }
func (s *Store) Vitals() repository.VitalRepository                 { return (*vitalStore)(s) }
func (s *Store) MedicationLogs() repository.MedicationLogRepository { return (*medicationStore)(s) }
func (s *Store) Escalations() repository.EscalationRepository       { return (*escalationStore)(s) }
func (s *Store) Notifications() repository.NotificationRepository   { return (*notificationStore)(s) }
func (s *Store) Compliance() repository.ComplianceRepository        { return (*complianceStore)(s) }

type patientStore Store

func (s *patientStore) Create(_ context.Context, patient *model.Patient) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	patient.CreatedAt = time.Now()
	patient.UpdatedAt = time.Now()
	cp := *patient
	s.patients[patient.ID] = &cp
	return nil
}

func (s *patientStore) Get(_ context.Context, id uuid.UUID) (*model.Patient, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.patients[id]
	if !ok {
		return nil, apperrors.NotFound("patient", nil)
	}
	cp := *p
	return &cp, nil
}

func (s *patientStore) GetByCarePlanRef(_ context.Context, ref string) (*model.Patient, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, p := range s.patients {
		if p.CarePlanRef == ref {
			cp := *p
			return &cp, nil
		}
	}
	return nil, apperrors.NotFound("patient", nil)
}

func (s *patientStore) Update(_ context.Context, patient *model.Patient) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.patients[patient.ID]
	if !ok {
		return apperrors.NotFound("patient", nil)
	}
	patient.CreatedAt = existing.CreatedAt
	patient.UpdatedAt = time.Now()
	cp := *patient
	s.patients[patient.ID] = &cp
	return nil
}

func (s *patientStore) UpdateThresholds(_ context.Context, id uuid.UUID, thresholds model.Thresholds) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.patients[id]
	if !ok {
		return apperrors.NotFound("patient", nil)
	}
	p.Thresholds = thresholds
	p.UpdatedAt = time.Now()
	return nil
}

func (s *patientStore) UpdateStatus(_ context.Context, id uuid.UUID, status model.PatientStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.patients[id]
	if !ok {
		return apperrors.NotFound("patient", nil)
	}
	p.Status = string(status)
	p.UpdatedAt = time.Now()
	return nil
}

func (s *patientStore) ListActive(_ context.Context) ([]*model.Patient, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*model.Patient
	for _, p := range s.patients {
		if p.Status == string(model.PatientStatusActive) {
			cp := *p
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

type ruleStore Store

func (s *ruleStore) Create(_ context.Context, rule *model.ReminderRule) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rule.CreatedAt = time.Now()
	rule.UpdatedAt = time.Now()
	cp := *rule
	s.rules[rule.ID] = &cp
	return nil
}

func (s *ruleStore) Get(_ context.Context, id uuid.UUID) (*model.ReminderRule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.rules[id]
	if !ok {
		return nil, apperrors.NotFound("reminder rule", nil)
	}
	cp := *r
	return &cp, nil
}

func (s *ruleStore) ListForPatient(_ context.Context, patientID uuid.UUID, activeOnly bool) ([]*model.ReminderRule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*model.ReminderRule
	for _, r := range s.rules {
		if r.PatientID != patientID {
			continue
		}
		if activeOnly && !r.Active {
			continue
		}
		cp := *r
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *ruleStore) SetActive(_ context.Context, id uuid.UUID, active bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.rules[id]
	if !ok {
		return apperrors.NotFound("reminder rule", nil)
	}
	r.Active = active
	r.UpdatedAt = time.Now()
	return nil
}

type vitalStore Store

func (s *vitalStore) Create(_ context.Context, log *model.VitalLog) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *log
	s.vitals = append(s.vitals, &cp)
	return nil
}

func (s *vitalStore) ListForDate(_ context.Context, patientID uuid.UUID, date string, vitalType model.VitalType) ([]*model.VitalLog, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*model.VitalLog
	for _, l := range s.vitals {
		if l.PatientID == patientID && l.Date == date && l.Type == vitalType {
			cp := *l
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (s *vitalStore) ListSince(_ context.Context, patientID uuid.UUID, vitalType model.VitalType, sinceDate string) ([]*model.VitalLog, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*model.VitalLog
	for _, l := range s.vitals {
		if l.PatientID == patientID && l.Type == vitalType && l.Date >= sinceDate {
			cp := *l
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date < out[j].Date })
	return out, nil
}

type medicationStore Store

func (s *medicationStore) Create(_ context.Context, log *model.MedicationLog) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *log
	s.medicationLogs = append(s.medicationLogs, &cp)
	return nil
}

func (s *medicationStore) ListForDate(_ context.Context, patientID uuid.UUID, date string) ([]*model.MedicationLog, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*model.MedicationLog
	for _, l := range s.medicationLogs {
		if l.PatientID == patientID && l.Date == date {
			cp := *l
			out = append(out, &cp)
		}
	}
	return out, nil
}

type escalationStore Store

func (s *escalationStore) Create(_ context.Context, escalation *model.Escalation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if escalation.CreatedAt.IsZero() {
		escalation.CreatedAt = time.Now()
	}
	escalation.UpdatedAt = time.Now()
	cp := *escalation
	s.escalations[escalation.ID] = &cp
	return nil
}

func (s *escalationStore) Get(_ context.Context, id uuid.UUID) (*model.Escalation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.escalations[id]
	if !ok {
		return nil, apperrors.NotFound("escalation", nil)
	}
	cp := *e
	return &cp, nil
}

func (s *escalationStore) UpdateLevel(_ context.Context, id uuid.UUID, level int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.escalations[id]
	if !ok {
		return apperrors.NotFound("escalation", nil)
	}
	if level > e.Level {
		e.Level = level
		e.UpdatedAt = time.Now()
	}
	return nil
}

func (s *escalationStore) Resolve(_ context.Context, id uuid.UUID, resolvedBy string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.escalations[id]
	if !ok {
		return apperrors.NotFound("escalation", nil)
	}
	if e.Status != model.EscalationStatusOpen {
		return nil
	}
	now := time.Now()
	e.Status = model.EscalationStatusResolved
	e.ResolvedBy = &resolvedBy
	e.ResolvedAt = &now
	e.UpdatedAt = now
	return nil
}

func (s *escalationStore) ListOpen(_ context.Context) ([]*model.Escalation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*model.Escalation
	for _, e := range s.escalations {
		if e.Status == model.EscalationStatusOpen {
			cp := *e
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (s *escalationStore) ListOpenForPatient(_ context.Context, patientID uuid.UUID) ([]*model.Escalation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*model.Escalation
	for _, e := range s.escalations {
		if e.Status == model.EscalationStatusOpen && e.PatientID == patientID {
			cp := *e
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

type notificationStore Store

func (s *notificationStore) Create(_ context.Context, record *model.NotificationRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *record
	s.notifications = append(s.notifications, &cp)
	return nil
}

func (s *notificationStore) ListForDate(_ context.Context, patientID uuid.UUID, date string, ruleID *uuid.UUID) ([]*model.NotificationRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*model.NotificationRecord
	for _, n := range s.notifications {
		if n.PatientID != patientID || n.Date != date {
			continue
		}
		if ruleID != nil && (n.RuleID == nil || *n.RuleID != *ruleID) {
			continue
		}
		cp := *n
		out = append(out, &cp)
	}
	return out, nil
}

type complianceStore Store

func complianceKey(patientID uuid.UUID, date string) string {
	return patientID.String() + "/" + date
}

func (s *complianceStore) Upsert(_ context.Context, record *model.DailyComplianceRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	record.ComputedAt = time.Now()
	cp := *record
	s.compliance[complianceKey(record.PatientID, record.Date)] = &cp
	return nil
}

func (s *complianceStore) Get(_ context.Context, patientID uuid.UUID, date string) (*model.DailyComplianceRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.compliance[complianceKey(patientID, date)]
	if !ok {
		return nil, apperrors.NotFound("compliance record", nil)
	}
	cp := *r
	return &cp, nil
}

func (s *complianceStore) ListSince(_ context.Context, patientID uuid.UUID, sinceDate string) ([]*model.DailyComplianceRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*model.DailyComplianceRecord
	for _, r := range s.compliance {
		if r.PatientID == patientID && r.Date >= sinceDate {
			cp := *r
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date < out[j].Date })
	return out, nil
}
