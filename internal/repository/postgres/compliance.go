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

type complianceRepository struct {
	db *sqlx.DB
}

func NewComplianceRepository(db *sqlx.DB) repository.ComplianceRepository {
	return &complianceRepository{db: db}
}

func (r *complianceRepository) Upsert(ctx context.Context, record *model.DailyComplianceRecord) error {
	query := `
		INSERT INTO daily_compliance (
			patient_id, date, care_plan_day, phase, weight_logged, bp_logged, symptom_check_done,
			medications_expected, medications_taken, medications_skipped, compliance_score, computed_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (patient_id, date) DO UPDATE SET
			care_plan_day = EXCLUDED.care_plan_day,
			phase = EXCLUDED.phase,
			weight_logged = EXCLUDED.weight_logged,
			bp_logged = EXCLUDED.bp_logged,
			symptom_check_done = EXCLUDED.symptom_check_done,
			medications_expected = EXCLUDED.medications_expected,
			medications_taken = EXCLUDED.medications_taken,
			medications_skipped = EXCLUDED.medications_skipped,
			compliance_score = EXCLUDED.compliance_score,
			computed_at = EXCLUDED.computed_at
	`
	record.ComputedAt = time.Now()

	_, err := r.db.ExecContext(ctx, query,
		record.PatientID,
		record.Date,
		record.CarePlanDay,
		record.Phase,
		record.WeightLogged,
		record.BPLogged,
		record.SymptomCheckDone,
		record.MedicationsExpected,
		record.MedicationsTaken,
		record.MedicationsSkipped,
		record.ComplianceScore,
		record.ComputedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert compliance record: %w", err)
	}
	return nil
}

func (r *complianceRepository) Get(ctx context.Context, patientID uuid.UUID, date string) (*model.DailyComplianceRecord, error) {
	query := `SELECT * FROM daily_compliance WHERE patient_id = $1 AND date = $2`
	var record model.DailyComplianceRecord
	err := r.db.GetContext(ctx, &record, query, patientID, date)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NotFound("compliance record", err)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get compliance record: %w", err)
	}
	return &record, nil
}

func (r *complianceRepository) ListSince(ctx context.Context, patientID uuid.UUID, sinceDate string) ([]*model.DailyComplianceRecord, error) {
	query := `SELECT * FROM daily_compliance WHERE patient_id = $1 AND date >= $2 ORDER BY date`
	var records []*model.DailyComplianceRecord
	err := r.db.SelectContext(ctx, &records, query, patientID, sinceDate)
	if err != nil {
		return nil, fmt.Errorf("failed to list compliance records: %w", err)
	}
	return records, nil
}
