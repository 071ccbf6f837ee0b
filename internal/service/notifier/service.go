// Package notifier dispatches patient-facing messages through a ranked
// channel list (push, then SMS) and records every attempt for the
// scheduler's once-per-day dedupe.
package notifier

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/careloop/recovery-api/internal/model"
	"github.com/careloop/recovery-api/internal/repository"
	"github.com/careloop/recovery-api/pkg/clock"
	"github.com/careloop/recovery-api/pkg/logger"
	"github.com/careloop/recovery-api/pkg/metrics"
)

const (
	smsPrefix           = "CareLoop: "
	alertPrefix         = "CareLoop Alert: "
	providerAlertPrefix = "CareLoop Provider Alert: "
)

// PushSender is the push-notification gateway contract.
type PushSender interface {
	Enabled() bool
	Send(ctx context.Context, title, body string, data map[string]string, tokens []string) (success, failure int, err error)
}

// SMSSender is the SMS gateway contract.
type SMSSender interface {
	Enabled() bool
	Send(ctx context.Context, to, body string) error
}

type Service struct {
	records repository.NotificationRepository
	push    PushSender
	sms     SMSSender
	clock   clock.Clock
	logger  *logger.Logger
	metrics *metrics.Metrics
}

func NewService(
	records repository.NotificationRepository,
	push PushSender,
	sms SMSSender,
	clk clock.Clock,
	logger *logger.Logger,
	metrics *metrics.Metrics,
) *Service {
	return &Service{
		records: records,
		push:    push,
		sms:     sms,
		clock:   clk,
		logger:  logger,
		metrics: metrics,
	}
}

// Send attempts channels in order until one succeeds and records the
// outcome. It returns the channel used, or "failed" when every channel
// failed; gateway errors never propagate to the caller.
func (s *Service) Send(ctx context.Context, patient *model.Patient, title, body, notificationType string, ruleID *uuid.UUID) string {
	channel := model.ChannelFailed

	if patient.NotifyPush && s.push.Enabled() && len(patient.DeviceTokens) > 0 {
		success, _, err := s.push.Send(ctx, title, body, map[string]string{"type": notificationType}, patient.DeviceTokens)
		if err != nil {
			s.logger.Warn("push send failed, falling back", "patient_id", patient.ID, "error", err.Error())
		} else if success > 0 {
			channel = model.ChannelPush
		}
	}

	if channel == model.ChannelFailed && patient.NotifySMS && s.sms.Enabled() && patient.Phone != "" {
		if err := s.sms.Send(ctx, patient.Phone, smsPrefix+body); err != nil {
			s.logger.Warn("SMS send failed", "patient_id", patient.ID, "error", err.Error())
		} else {
			channel = model.ChannelSMS
		}
	}

	s.record(ctx, patient.ID, ruleID, notificationType, channel, title, body)

	if channel == model.ChannelFailed {
		s.logger.Error(nil, "all notification channels failed", "patient_id", patient.ID, "title", title)
	} else {
		s.logger.Info("notification sent", "patient_id", patient.ID, "channel", channel, "title", title)
	}
	return channel
}

// NotifyCaregiver sends an alert SMS to the patient's caregiver.
func (s *Service) NotifyCaregiver(ctx context.Context, patient *model.Patient, message string) {
	if patient.CaregiverPhone == "" {
		s.logger.Warn("no caregiver phone on record", "patient_id", patient.ID)
		return
	}
	if !s.sms.Enabled() {
		s.logger.Warn("SMS unavailable for caregiver alert", "patient_id", patient.ID)
		return
	}
	if err := s.sms.Send(ctx, patient.CaregiverPhone, alertPrefix+message); err != nil {
		s.logger.Error(err, "caregiver alert failed", "patient_id", patient.ID)
	}
}

// NotifyNurse sends an alert SMS to the patient's assigned nurse.
func (s *Service) NotifyNurse(ctx context.Context, patient *model.Patient, message string) {
	if patient.NursePhone == "" {
		s.logger.Warn("no nurse phone on record", "patient_id", patient.ID)
		return
	}
	if !s.sms.Enabled() {
		s.logger.Warn("SMS unavailable for nurse alert", "patient_id", patient.ID)
		return
	}
	if err := s.sms.Send(ctx, patient.NursePhone, providerAlertPrefix+message); err != nil {
		s.logger.Error(err, "nurse alert failed", "patient_id", patient.ID)
	}
}

func (s *Service) record(ctx context.Context, patientID uuid.UUID, ruleID *uuid.UUID, notificationType, channel, title, body string) {
	status := model.NotificationStatusSent
	if channel == model.ChannelFailed {
		status = model.NotificationStatusFailed
	}
	rec := &model.NotificationRecord{
		ID:        uuid.New(),
		PatientID: patientID,
		RuleID:    ruleID,
		Type:      notificationType,
		Channel:   channel,
		Title:     title,
		Body:      body,
		Status:    status,
		Date:      clock.Date(s.clock.Local()),
		SentAt:    time.Now(),
	}
	if err := s.records.Create(ctx, rec); err != nil {
		s.logger.Error(err, "failed to record notification", "patient_id", patientID)
	}
	if s.metrics != nil {
		s.metrics.NotificationsByChannel.WithLabelValues(channel).Inc()
	}
}
