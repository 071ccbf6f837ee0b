package provider

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/careloop/recovery-api/internal/model"
	"github.com/careloop/recovery-api/internal/repository/memory"
	"github.com/careloop/recovery-api/internal/service/escalation"
	"github.com/careloop/recovery-api/pkg/clock"
	"github.com/careloop/recovery-api/pkg/logger"
)

type noopNotifier struct{}

func (noopNotifier) Send(context.Context, *model.Patient, string, string, string, *uuid.UUID) string {
	return model.ChannelPush
}
func (noopNotifier) NotifyCaregiver(context.Context, *model.Patient, string) {}
func (noopNotifier) NotifyNurse(context.Context, *model.Patient, string)     {}

type fixture struct {
	store *memory.Store
	clk   *clock.Fixed
	svc   *Service
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := memory.NewStore()
	clk := clock.NewFixed(time.Date(2026, 3, 10, 4, 30, 0, 0, time.UTC), 330)
	log := logger.NewLogger(nil)
	engine := escalation.NewEngine(escalation.DefaultConfig(),
		store.Patients(), store.Rules(), store.Vitals(), store.MedicationLogs(), store.Escalations(),
		noopNotifier{}, nil, clk, log, nil)
	svc := NewService(store.Patients(), store.Vitals(), store.Escalations(), store.Compliance(),
		engine, clk, log)
	return &fixture{store: store, clk: clk, svc: svc}
}

func (f *fixture) addPatient(t *testing.T, name string) *model.Patient {
	t.Helper()
	p := &model.Patient{
		Base:              model.Base{ID: uuid.New()},
		FullName:          name,
		Phone:             "+919876543210",
		CarePlanRef:       "cp-" + uuid.NewString(),
		CarePlanStartDate: "2026-03-01",
		Status:            string(model.PatientStatusActive),
	}
	require.NoError(t, f.store.Patients().Create(context.Background(), p))
	return p
}

func (f *fixture) addCompliance(t *testing.T, patientID uuid.UUID, score float64) {
	t.Helper()
	require.NoError(t, f.store.Compliance().Upsert(context.Background(), &model.DailyComplianceRecord{
		PatientID: patientID, Date: "2026-03-10", ComplianceScore: score,
	}))
}

func (f *fixture) addOpenEscalation(t *testing.T, patientID uuid.UUID, trigger model.TriggerType) *model.Escalation {
	t.Helper()
	esc := &model.Escalation{
		Base:        model.Base{ID: uuid.New()},
		PatientID:   patientID,
		TriggerType: trigger,
		Level:       model.LevelNurse,
		Status:      model.EscalationStatusOpen,
		Date:        "2026-03-10",
	}
	require.NoError(t, f.store.Escalations().Create(context.Background(), esc))
	return esc
}

func TestRosterOrdersWorstFirst(t *testing.T) {
	f := newFixture(t)
	healthy := f.addPatient(t, "Healthy Patient")
	f.addCompliance(t, healthy.ID, 0.9)
	atRisk := f.addPatient(t, "At Risk Patient")
	f.addCompliance(t, atRisk.ID, 0.5)
	critical := f.addPatient(t, "Critical Patient")
	f.addCompliance(t, critical.ID, 0.8)
	f.addOpenEscalation(t, critical.ID, model.TriggerRedFlag)
	f.addOpenEscalation(t, critical.ID, model.TriggerMissedWeight)
	f.addOpenEscalation(t, critical.ID, model.TriggerMissedMedication)

	roster, err := f.svc.Roster(context.Background())
	require.NoError(t, err)

	require.Len(t, roster, 3)
	assert.Equal(t, "Critical Patient", roster[0].FullName)
	assert.Equal(t, StatusCritical, roster[0].Status)
	assert.Equal(t, 3, roster[0].OpenAlerts)
	assert.Equal(t, "At Risk Patient", roster[1].FullName)
	assert.Equal(t, StatusAtRisk, roster[1].Status)
	assert.Equal(t, "Healthy Patient", roster[2].FullName)
	assert.Equal(t, StatusGood, roster[2].Status)
	assert.Equal(t, 9, roster[2].CarePlanDay)
}

func TestRosterMissingComplianceIsCritical(t *testing.T) {
	f := newFixture(t)
	f.addPatient(t, "New Patient")

	roster, err := f.svc.Roster(context.Background())
	require.NoError(t, err)

	require.Len(t, roster, 1)
	assert.Nil(t, roster[0].TodayCompliance)
	assert.Equal(t, StatusCritical, roster[0].Status)
}

func TestOpenAlertsEnrichesPatientName(t *testing.T) {
	f := newFixture(t)
	patient := f.addPatient(t, "Rajesh Kumar")
	f.addOpenEscalation(t, patient.ID, model.TriggerWeightSpike24h)
	f.addOpenEscalation(t, uuid.New(), model.TriggerRedFlag)

	alerts, err := f.svc.OpenAlerts(context.Background())
	require.NoError(t, err)

	require.Len(t, alerts, 2)
	names := map[model.TriggerType]string{}
	for _, a := range alerts {
		names[a.TriggerType] = a.PatientName
	}
	assert.Equal(t, "Rajesh Kumar", names[model.TriggerWeightSpike24h])
	assert.Equal(t, "Unknown", names[model.TriggerRedFlag])
}

func TestAcknowledgeAlert(t *testing.T) {
	f := newFixture(t)
	patient := f.addPatient(t, "Rajesh Kumar")
	esc := f.addOpenEscalation(t, patient.ID, model.TriggerRedFlag)

	resolved, err := f.svc.AcknowledgeAlert(context.Background(), esc.ID, "")
	require.NoError(t, err)

	assert.Equal(t, model.EscalationStatusResolved, resolved.Status)
	require.NotNil(t, resolved.ResolvedBy)
	assert.Equal(t, "nurse_ack", *resolved.ResolvedBy)

	open, err := f.store.Escalations().ListOpen(context.Background())
	require.NoError(t, err)
	assert.Empty(t, open)
}

func TestPatientVitalsTrends(t *testing.T) {
	f := newFixture(t)
	patient := f.addPatient(t, "Rajesh Kumar")
	ctx := context.Background()

	w := 70.5
	require.NoError(t, f.store.Vitals().Create(ctx, &model.VitalLog{
		ID: uuid.New(), PatientID: patient.ID, Type: model.VitalTypeWeight,
		Value: model.VitalValue{Number: &w}, Date: "2026-03-08", LoggedAt: time.Now(),
	}))
	sys, dia := 130, 85
	require.NoError(t, f.store.Vitals().Create(ctx, &model.VitalLog{
		ID: uuid.New(), PatientID: patient.ID, Type: model.VitalTypeBP,
		Value: model.VitalValue{Systolic: &sys, Diastolic: &dia}, Date: "2026-03-09", LoggedAt: time.Now(),
	}))
	f.addCompliance(t, patient.ID, 0.7)

	trends, err := f.svc.PatientVitals(ctx, patient.ID, 7)
	require.NoError(t, err)

	require.Len(t, trends.Weight, 1)
	require.Len(t, trends.BP, 1)
	require.Len(t, trends.Compliance, 1)
	assert.Equal(t, 130, *trends.BP[0].Value.Systolic)
}
