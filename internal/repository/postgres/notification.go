package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/careloop/recovery-api/internal/model"
	"github.com/careloop/recovery-api/internal/repository"
)

type notificationRepository struct {
	db *sqlx.DB
}

func NewNotificationRepository(db *sqlx.DB) repository.NotificationRepository {
	return &notificationRepository{db: db}
}

func (r *notificationRepository) Create(ctx context.Context, record *model.NotificationRecord) error {
	query := `
		INSERT INTO notification_log (id, patient_id, rule_id, type, channel, title, body, status, date, sent_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	_, err := r.db.ExecContext(ctx, query,
		record.ID,
		record.PatientID,
		record.RuleID,
		record.Type,
		record.Channel,
		record.Title,
		record.Body,
		record.Status,
		record.Date,
		record.SentAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create notification record: %w", err)
	}
	return nil
}

func (r *notificationRepository) ListForDate(ctx context.Context, patientID uuid.UUID, date string, ruleID *uuid.UUID) ([]*model.NotificationRecord, error) {
	query := `SELECT * FROM notification_log WHERE patient_id = $1 AND date = $2`
	args := []interface{}{patientID, date}
	if ruleID != nil {
		query += ` AND rule_id = $3`
		args = append(args, *ruleID)
	}
	query += ` ORDER BY sent_at`

	var records []*model.NotificationRecord
	err := r.db.SelectContext(ctx, &records, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list notification records: %w", err)
	}
	return records, nil
}
