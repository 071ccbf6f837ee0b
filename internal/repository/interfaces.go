package repository

import (
	"context"

	"github.com/google/uuid"

	"github.com/careloop/recovery-api/internal/model"
)

// All repository interfaces in one file
type (
	// PatientRepository handles patient records and their denormalized
	// red-flag thresholds.
	PatientRepository interface {
		Create(ctx context.Context, patient *model.Patient) error
		Get(ctx context.Context, id uuid.UUID) (*model.Patient, error)
		GetByCarePlanRef(ctx context.Context, ref string) (*model.Patient, error)
		Update(ctx context.Context, patient *model.Patient) error
		UpdateThresholds(ctx context.Context, id uuid.UUID, thresholds model.Thresholds) error
		UpdateStatus(ctx context.Context, id uuid.UUID, status model.PatientStatus) error
		ListActive(ctx context.Context) ([]*model.Patient, error)
	}

	RuleRepository interface {
		Create(ctx context.Context, rule *model.ReminderRule) error
		Get(ctx context.Context, id uuid.UUID) (*model.ReminderRule, error)
		ListForPatient(ctx context.Context, patientID uuid.UUID, activeOnly bool) ([]*model.ReminderRule, error)
		SetActive(ctx context.Context, id uuid.UUID, active bool) error
	}

	VitalRepository interface {
		Create(ctx context.Context, log *model.VitalLog) error
		ListForDate(ctx context.Context, patientID uuid.UUID, date string, vitalType model.VitalType) ([]*model.VitalLog, error)
		ListSince(ctx context.Context, patientID uuid.UUID, vitalType model.VitalType, sinceDate string) ([]*model.VitalLog, error)
	}

	MedicationLogRepository interface {
		Create(ctx context.Context, log *model.MedicationLog) error
		ListForDate(ctx context.Context, patientID uuid.UUID, date string) ([]*model.MedicationLog, error)
	}

	EscalationRepository interface {
		Create(ctx context.Context, escalation *model.Escalation) error
		Get(ctx context.Context, id uuid.UUID) (*model.Escalation, error)
		UpdateLevel(ctx context.Context, id uuid.UUID, level int) error
		Resolve(ctx context.Context, id uuid.UUID, resolvedBy string) error
		ListOpen(ctx context.Context) ([]*model.Escalation, error)
		ListOpenForPatient(ctx context.Context, patientID uuid.UUID) ([]*model.Escalation, error)
	}

	NotificationRepository interface {
		Create(ctx context.Context, record *model.NotificationRecord) error
		ListForDate(ctx context.Context, patientID uuid.UUID, date string, ruleID *uuid.UUID) ([]*model.NotificationRecord, error)
	}

	ComplianceRepository interface {
		Upsert(ctx context.Context, record *model.DailyComplianceRecord) error
		Get(ctx context.Context, patientID uuid.UUID, date string) (*model.DailyComplianceRecord, error)
		ListSince(ctx context.Context, patientID uuid.UUID, sinceDate string) ([]*model.DailyComplianceRecord, error)
	}
)
