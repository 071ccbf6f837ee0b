package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/careloop/recovery-api/internal/model"
	"github.com/careloop/recovery-api/internal/repository"
	apperrors "github.com/careloop/recovery-api/pkg/errors"
)

type patientRepository struct {
	db *sqlx.DB
}

func NewPatientRepository(db *sqlx.DB) repository.PatientRepository {
	return &patientRepository{db: db}
}

func (r *patientRepository) Create(ctx context.Context, patient *model.Patient) error {
	query := `
		INSERT INTO patients (
			id, full_name, dob, sex, mrn, phone, caregiver_phone, nurse_phone,
			primary_diagnosis, care_plan_ref, care_plan_start_date, care_plan_end_date,
			notify_push, notify_sms, device_tokens, thresholds, status, created_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)
	`
	patient.CreatedAt = time.Now()
	patient.UpdatedAt = time.Now()

	_, err := r.db.ExecContext(ctx, query,
		patient.ID,
		patient.FullName,
		patient.DOB,
		patient.Sex,
		patient.MRN,
		patient.Phone,
		patient.CaregiverPhone,
		patient.NursePhone,
		patient.PrimaryDiagnosis,
		patient.CarePlanRef,
		patient.CarePlanStartDate,
		patient.CarePlanEndDate,
		patient.NotifyPush,
		patient.NotifySMS,
		patient.DeviceTokens,
		patient.Thresholds,
		patient.Status,
		patient.CreatedAt,
		patient.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create patient: %w", err)
	}
	return nil
}

func (r *patientRepository) Get(ctx context.Context, id uuid.UUID) (*model.Patient, error) {
	query := `SELECT * FROM patients WHERE id = $1`
	var patient model.Patient
	err := r.db.GetContext(ctx, &patient, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NotFound("patient", err)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get patient: %w", err)
	}
	return &patient, nil
}

func (r *patientRepository) GetByCarePlanRef(ctx context.Context, ref string) (*model.Patient, error) {
	query := `SELECT * FROM patients WHERE care_plan_ref = $1`
	var patient model.Patient
	err := r.db.GetContext(ctx, &patient, query, ref)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NotFound("patient", err)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get patient by care plan ref: %w", err)
	}
	return &patient, nil
}

func (r *patientRepository) Update(ctx context.Context, patient *model.Patient) error {
	query := `
		UPDATE patients SET
			full_name = $1, phone = $2, caregiver_phone = $3, nurse_phone = $4,
			notify_push = $5, notify_sms = $6, device_tokens = $7, status = $8, updated_at = $9
		WHERE id = $10
	`
	_, err := r.db.ExecContext(ctx, query,
		patient.FullName,
		patient.Phone,
		patient.CaregiverPhone,
		patient.NursePhone,
		patient.NotifyPush,
		patient.NotifySMS,
		patient.DeviceTokens,
		patient.Status,
		time.Now(),
		patient.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update patient: %w", err)
	}
	return nil
}

func (r *patientRepository) UpdateThresholds(ctx context.Context, id uuid.UUID, thresholds model.Thresholds) error {
	query := `UPDATE patients SET thresholds = $1, updated_at = $2 WHERE id = $3`
	_, err := r.db.ExecContext(ctx, query, thresholds, time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to update patient thresholds: %w", err)
	}
	return nil
}

func (r *patientRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status model.PatientStatus) error {
	query := `UPDATE patients SET status = $1, updated_at = $2 WHERE id = $3`
	_, err := r.db.ExecContext(ctx, query, status, time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to update patient status: %w", err)
	}
	return nil
}

func (r *patientRepository) ListActive(ctx context.Context) ([]*model.Patient, error) {
	query := `SELECT * FROM patients WHERE status = $1 ORDER BY created_at`
	var patients []*model.Patient
	err := r.db.SelectContext(ctx, &patients, query, model.PatientStatusActive)
	if err != nil {
		return nil, fmt.Errorf("failed to list active patients: %w", err)
	}
	return patients, nil
}
