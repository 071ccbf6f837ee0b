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

type escalationRepository struct {
	db *sqlx.DB
}

func NewEscalationRepository(db *sqlx.DB) repository.EscalationRepository {
	return &escalationRepository{db: db}
}

func (r *escalationRepository) Create(ctx context.Context, escalation *model.Escalation) error {
	query := `
		INSERT INTO escalations (id, patient_id, trigger_type, trigger_value, threshold, level, status, date, payload, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`
	escalation.CreatedAt = time.Now()
	escalation.UpdatedAt = time.Now()

	_, err := r.db.ExecContext(ctx, query,
		escalation.ID,
		escalation.PatientID,
		escalation.TriggerType,
		escalation.TriggerValue,
		escalation.Threshold,
		escalation.Level,
		escalation.Status,
		escalation.Date,
		escalation.Payload,
		escalation.CreatedAt,
		escalation.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create escalation: %w", err)
	}
	return nil
}

func (r *escalationRepository) Get(ctx context.Context, id uuid.UUID) (*model.Escalation, error) {
	query := `SELECT * FROM escalations WHERE id = $1`
	var escalation model.Escalation
	err := r.db.GetContext(ctx, &escalation, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NotFound("escalation", err)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get escalation: %w", err)
	}
	return &escalation, nil
}

func (r *escalationRepository) UpdateLevel(ctx context.Context, id uuid.UUID, level int) error {
	// Levels only ever increase.
	query := `UPDATE escalations SET level = $1, updated_at = $2 WHERE id = $3 AND level < $1`
	_, err := r.db.ExecContext(ctx, query, level, time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to update escalation level: %w", err)
	}
	return nil
}

func (r *escalationRepository) Resolve(ctx context.Context, id uuid.UUID, resolvedBy string) error {
	query := `
		UPDATE escalations
		SET status = $1, resolved_by = $2, resolved_at = $3, updated_at = $3
		WHERE id = $4 AND status = $5
	`
	_, err := r.db.ExecContext(ctx, query,
		model.EscalationStatusResolved,
		resolvedBy,
		time.Now(),
		id,
		model.EscalationStatusOpen,
	)
	if err != nil {
		return fmt.Errorf("failed to resolve escalation: %w", err)
	}
	return nil
}

func (r *escalationRepository) ListOpen(ctx context.Context) ([]*model.Escalation, error) {
	query := `SELECT * FROM escalations WHERE status = $1 ORDER BY created_at DESC`
	var escalations []*model.Escalation
	err := r.db.SelectContext(ctx, &escalations, query, model.EscalationStatusOpen)
	if err != nil {
		return nil, fmt.Errorf("failed to list open escalations: %w", err)
	}
	return escalations, nil
}

func (r *escalationRepository) ListOpenForPatient(ctx context.Context, patientID uuid.UUID) ([]*model.Escalation, error) {
	query := `SELECT * FROM escalations WHERE status = $1 AND patient_id = $2 ORDER BY created_at DESC`
	var escalations []*model.Escalation
	err := r.db.SelectContext(ctx, &escalations, query, model.EscalationStatusOpen, patientID)
	if err != nil {
		return nil, fmt.Errorf("failed to list open escalations: %w", err)
	}
	return escalations, nil
}
