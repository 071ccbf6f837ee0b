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

type ruleRepository struct {
	db *sqlx.DB
}

func NewRuleRepository(db *sqlx.DB) repository.RuleRepository {
	return &ruleRepository{db: db}
}

func (r *ruleRepository) Create(ctx context.Context, rule *model.ReminderRule) error {
	query := `
		INSERT INTO reminder_rules (id, patient_id, type, schedule, payload, escalation, target, active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	rule.CreatedAt = time.Now()
	rule.UpdatedAt = time.Now()

	_, err := r.db.ExecContext(ctx, query,
		rule.ID,
		rule.PatientID,
		rule.Type,
		rule.Schedule,
		rule.Payload,
		rule.Escalation,
		rule.Target,
		rule.Active,
		rule.CreatedAt,
		rule.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create reminder rule: %w", err)
	}
	return nil
}

func (r *ruleRepository) Get(ctx context.Context, id uuid.UUID) (*model.ReminderRule, error) {
	query := `SELECT * FROM reminder_rules WHERE id = $1`
	var rule model.ReminderRule
	err := r.db.GetContext(ctx, &rule, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NotFound("reminder rule", err)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get reminder rule: %w", err)
	}
	return &rule, nil
}

func (r *ruleRepository) ListForPatient(ctx context.Context, patientID uuid.UUID, activeOnly bool) ([]*model.ReminderRule, error) {
	query := `SELECT * FROM reminder_rules WHERE patient_id = $1 ORDER BY created_at`
	if activeOnly {
		query = `SELECT * FROM reminder_rules WHERE patient_id = $1 AND active = true ORDER BY created_at`
	}
	var rules []*model.ReminderRule
	err := r.db.SelectContext(ctx, &rules, query, patientID)
	if err != nil {
		return nil, fmt.Errorf("failed to list reminder rules: %w", err)
	}
	return rules, nil
}

func (r *ruleRepository) SetActive(ctx context.Context, id uuid.UUID, active bool) error {
	query := `UPDATE reminder_rules SET active = $1, updated_at = $2 WHERE id = $3`
	_, err := r.db.ExecContext(ctx, query, active, time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to update reminder rule: %w", err)
	}
	return nil
}
