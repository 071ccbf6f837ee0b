package model

import (
	"time"

	"github.com/google/uuid"
)

// Notification channels in dispatch order.
const (
	ChannelPush   = "push"
	ChannelSMS    = "sms"
	ChannelFailed = "failed"
)

type NotificationStatus string

const (
	NotificationStatusSent   NotificationStatus = "sent"
	NotificationStatusFailed NotificationStatus = "failed"
)

// NotificationRecord is written for every dispatch attempt, successful
// or not. (patient, rule, date) is the scheduler's once-per-day
// dedupe key.
type NotificationRecord struct {
	ID        uuid.UUID          `db:"id" json:"id"`
	PatientID uuid.UUID          `db:"patient_id" json:"patient_id"`
	RuleID    *uuid.UUID         `db:"rule_id" json:"rule_id,omitempty"`
	Type      string             `db:"type" json:"type"`
	Channel   string             `db:"channel" json:"channel"`
	Title     string             `db:"title" json:"title"`
	Body      string             `db:"body" json:"body"`
	Status    NotificationStatus `db:"status" json:"status"`
	Date      string             `db:"date" json:"date"`
	SentAt    time.Time          `db:"sent_at" json:"sent_at"`
}
