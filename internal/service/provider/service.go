// Package provider serves the care-team dashboard: the patient roster
// with risk status, the open alert queue, and per-patient drill-downs.
package provider

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/careloop/recovery-api/internal/model"
	"github.com/careloop/recovery-api/internal/repository"
	"github.com/careloop/recovery-api/pkg/clock"
	apperrors "github.com/careloop/recovery-api/pkg/errors"
	"github.com/careloop/recovery-api/pkg/logger"
)

// Roster risk tiers, ordered worst first.
const (
	StatusCritical = "critical"
	StatusAtRisk   = "at_risk"
	StatusGood     = "good"
)

const maxHistoryDays = 90

// Resolver closes escalations on a provider's behalf.
type Resolver interface {
	ResolveByOperator(ctx context.Context, escalationID uuid.UUID, resolvedBy string) (*model.Escalation, error)
}

type Service struct {
	patients    repository.PatientRepository
	vitals      repository.VitalRepository
	escalations repository.EscalationRepository
	compliance  repository.ComplianceRepository
	resolver    Resolver
	clock       clock.Clock
	logger      *logger.Logger
}

func NewService(
	patients repository.PatientRepository,
	vitals repository.VitalRepository,
	escalations repository.EscalationRepository,
	compliance repository.ComplianceRepository,
	resolver Resolver,
	clk clock.Clock,
	logger *logger.Logger,
) *Service {
	return &Service{
		patients:    patients,
		vitals:      vitals,
		escalations: escalations,
		compliance:  compliance,
		resolver:    resolver,
		clock:       clk,
		logger:      logger,
	}
}

// RosterEntry is one patient row on the dashboard.
type RosterEntry struct {
	PatientID        uuid.UUID                    `json:"patient_id"`
	FullName         string                       `json:"full_name"`
	PrimaryDiagnosis string                       `json:"primary_diagnosis,omitempty"`
	Phone            string                       `json:"phone"`
	CarePlanDay      int                          `json:"care_plan_day"`
	TodayCompliance  *model.DailyComplianceRecord `json:"today_compliance,omitempty"`
	OpenAlerts       int                          `json:"open_alerts"`
	Status           string                       `json:"status"`
}

// Roster lists active patients with today's compliance and open alert
// counts, worst risk tier first.
func (s *Service) Roster(ctx context.Context) ([]*RosterEntry, error) {
	patients, err := s.patients.ListActive(ctx)
	if err != nil {
		return nil, err
	}

	local := s.clock.Local()
	today := clock.Date(local)

	entries := make([]*RosterEntry, 0, len(patients))
	for _, p := range patients {
		compliance, err := s.compliance.Get(ctx, p.ID, today)
		if err != nil && !apperrors.IsNotFound(err) {
			return nil, err
		}

		open, err := s.escalations.ListOpenForPatient(ctx, p.ID)
		if err != nil {
			return nil, err
		}

		entries = append(entries, &RosterEntry{
			PatientID:        p.ID,
			FullName:         p.FullName,
			PrimaryDiagnosis: p.PrimaryDiagnosis,
			Phone:            p.Phone,
			CarePlanDay:      carePlanDay(p, local),
			TodayCompliance:  compliance,
			OpenAlerts:       len(open),
			Status:           riskStatus(compliance, len(open)),
		})
	}

	order := map[string]int{StatusCritical: 0, StatusAtRisk: 1, StatusGood: 2}
	sort.SliceStable(entries, func(i, j int) bool {
		return order[entries[i].Status] < order[entries[j].Status]
	})
	return entries, nil
}

func riskStatus(compliance *model.DailyComplianceRecord, openAlerts int) string {
	score := 0.0
	if compliance != nil {
		score = compliance.ComplianceScore
	}
	switch {
	case openAlerts >= 3 || score < 0.3:
		return StatusCritical
	case openAlerts >= 1 || score < 0.6:
		return StatusAtRisk
	default:
		return StatusGood
	}
}

func carePlanDay(p *model.Patient, local time.Time) int {
	if p.CarePlanStartDate == "" {
		return 0
	}
	start, err := time.Parse(clock.DateLayout, p.CarePlanStartDate)
	if err != nil {
		return 0
	}
	current, err := time.Parse(clock.DateLayout, clock.Date(local))
	if err != nil {
		return 0
	}
	return int(current.Sub(start).Hours() / 24)
}

// Alert is an open escalation enriched with the patient's name.
type Alert struct {
	*model.Escalation
	PatientName string `json:"patient_name"`
}

// OpenAlerts returns all open escalations across patients, newest
// first.
func (s *Service) OpenAlerts(ctx context.Context) ([]*Alert, error) {
	escalations, err := s.escalations.ListOpen(ctx)
	if err != nil {
		return nil, err
	}

	names := map[uuid.UUID]string{}
	alerts := make([]*Alert, 0, len(escalations))
	for _, esc := range escalations {
		name, ok := names[esc.PatientID]
		if !ok {
			name = "Unknown"
			if p, err := s.patients.Get(ctx, esc.PatientID); err == nil {
				name = p.FullName
			}
			names[esc.PatientID] = name
		}
		alerts = append(alerts, &Alert{Escalation: esc, PatientName: name})
	}
	return alerts, nil
}

// AcknowledgeAlert resolves one escalation as acknowledged by the care
// team.
func (s *Service) AcknowledgeAlert(ctx context.Context, escalationID uuid.UUID, resolvedBy string) (*model.Escalation, error) {
	if resolvedBy == "" {
		resolvedBy = "nurse_ack"
	}
	esc, err := s.resolver.ResolveByOperator(ctx, escalationID, resolvedBy)
	if err != nil {
		return nil, err
	}
	s.logger.Info("alert acknowledged", "escalation_id", escalationID, "resolved_by", resolvedBy)
	return esc, nil
}

// PatientTrends is the provider drill-down payload.
type PatientTrends struct {
	PatientID  uuid.UUID                      `json:"patient_id"`
	Weight     []*model.VitalLog              `json:"weight"`
	BP         []*model.VitalLog              `json:"bp"`
	Compliance []*model.DailyComplianceRecord `json:"compliance"`
}

// PatientVitals returns weight, BP and compliance trends for one
// patient, capped at 90 days.
func (s *Service) PatientVitals(ctx context.Context, patientID uuid.UUID, days int) (*PatientTrends, error) {
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

	weight, err := s.vitals.ListSince(ctx, patientID, model.VitalTypeWeight, since)
	if err != nil {
		return nil, err
	}
	bp, err := s.vitals.ListSince(ctx, patientID, model.VitalTypeBP, since)
	if err != nil {
		return nil, err
	}
	compliance, err := s.compliance.ListSince(ctx, patientID, since)
	if err != nil {
		return nil, err
	}

	return &PatientTrends{PatientID: patientID, Weight: weight, BP: bp, Compliance: compliance}, nil
}
