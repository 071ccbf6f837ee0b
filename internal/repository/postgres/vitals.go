package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/careloop/recovery-api/internal/model"
	"github.com/careloop/recovery-api/internal/repository"
)

type vitalRepository struct {
	db *sqlx.DB
}

func NewVitalRepository(db *sqlx.DB) repository.VitalRepository {
	return &vitalRepository{db: db}
}

func (r *vitalRepository) Create(ctx context.Context, log *model.VitalLog) error {
	query := `
		INSERT INTO vital_logs (id, patient_id, type, value, source, date, logged_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err := r.db.ExecContext(ctx, query,
		log.ID,
		log.PatientID,
		log.Type,
		log.Value,
		log.Source,
		log.Date,
		log.LoggedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create vital log: %w", err)
	}
	return nil
}

func (r *vitalRepository) ListForDate(ctx context.Context, patientID uuid.UUID, date string, vitalType model.VitalType) ([]*model.VitalLog, error) {
	query := `
		SELECT * FROM vital_logs
		WHERE patient_id = $1 AND date = $2 AND type = $3
		ORDER BY logged_at
	`
	var logs []*model.VitalLog
	err := r.db.SelectContext(ctx, &logs, query, patientID, date, vitalType)
	if err != nil {
		return nil, fmt.Errorf("failed to list vital logs: %w", err)
	}
	return logs, nil
}

func (r *vitalRepository) ListSince(ctx context.Context, patientID uuid.UUID, vitalType model.VitalType, sinceDate string) ([]*model.VitalLog, error) {
	query := `
		SELECT * FROM vital_logs
		WHERE patient_id = $1 AND type = $2 AND date >= $3
		ORDER BY date, logged_at
	`
	var logs []*model.VitalLog
	err := r.db.SelectContext(ctx, &logs, query, patientID, vitalType, sinceDate)
	if err != nil {
		return nil, fmt.Errorf("failed to list vital logs: %w", err)
	}
	return logs, nil
}

type medicationLogRepository struct {
	db *sqlx.DB
}

func NewMedicationLogRepository(db *sqlx.DB) repository.MedicationLogRepository {
	return &medicationLogRepository{db: db}
}

func (r *medicationLogRepository) Create(ctx context.Context, log *model.MedicationLog) error {
	query := `
		INSERT INTO medication_logs (id, patient_id, medication_name, scheduled_time, status, skip_reason, date, acknowledged_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err := r.db.ExecContext(ctx, query,
		log.ID,
		log.PatientID,
		log.MedicationName,
		log.ScheduledTime,
		log.Status,
		log.SkipReason,
		log.Date,
		log.AcknowledgedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create medication log: %w", err)
	}
	return nil
}

func (r *medicationLogRepository) ListForDate(ctx context.Context, patientID uuid.UUID, date string) ([]*model.MedicationLog, error) {
	query := `
		SELECT * FROM medication_logs
		WHERE patient_id = $1 AND date = $2
		ORDER BY scheduled_time
	`
	var logs []*model.MedicationLog
	err := r.db.SelectContext(ctx, &logs, query, patientID, date)
	if err != nil {
		return nil, fmt.Errorf("failed to list medication logs: %w", err)
	}
	return logs, nil
}
