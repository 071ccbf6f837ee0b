package scheduler

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/careloop/recovery-api/internal/model"
	"github.com/careloop/recovery-api/internal/repository/memory"
	"github.com/careloop/recovery-api/internal/service/notifier"
	"github.com/careloop/recovery-api/pkg/clock"
	"github.com/careloop/recovery-api/pkg/logger"
)

type fakePush struct{}

func (fakePush) Enabled() bool { return false }

func (fakePush) Send(context.Context, string, string, map[string]string, []string) (int, int, error) {
	return 0, 0, nil
}

type fakeSMS struct {
	fail   bool
	bodies []string
}

func (f *fakeSMS) Enabled() bool { return true }

func (f *fakeSMS) Send(_ context.Context, _, body string) error {
	if f.fail {
		return assert.AnError
	}
	f.bodies = append(f.bodies, body)
	return nil
}

type fixture struct {
	store *memory.Store
	sms   *fakeSMS
	clk   *clock.Fixed
	sched *Scheduler
}

// newFixture pins local time to 08:00 IST on 2026-03-10.
func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := memory.NewStore()
	sms := &fakeSMS{}
	clk := clock.NewFixed(time.Date(2026, 3, 10, 2, 30, 0, 0, time.UTC), 330)
	log := logger.NewLogger(nil)
	dispatch := notifier.NewService(store.Notifications(), fakePush{}, sms, clk, log, nil)
	return &fixture{
		store: store,
		sms:   sms,
		clk:   clk,
		sched: New(store.Patients(), store.Rules(), store.Notifications(), dispatch, clk, log, nil),
	}
}

func (f *fixture) addPatient(t *testing.T) *model.Patient {
	t.Helper()
	p := &model.Patient{
		Base:        model.Base{ID: uuid.New()},
		FullName:    "Rajesh Kumar",
		Phone:       "+919876543210",
		CarePlanRef: "cp-" + uuid.NewString(),
		NotifySMS:   true,
		Status:      string(model.PatientStatusActive),
	}
	require.NoError(t, f.store.Patients().Create(context.Background(), p))
	return p
}

func (f *fixture) addRule(t *testing.T, patientID uuid.UUID, ruleType model.RuleType, schedule model.Schedule, payload model.RulePayload, target model.DeliveryTarget) *model.ReminderRule {
	t.Helper()
	rule := &model.ReminderRule{
		Base:      model.Base{ID: uuid.New()},
		PatientID: patientID,
		Type:      ruleType,
		Schedule:  schedule,
		Payload:   payload,
		Target:    target,
		Active:    true,
	}
	require.NoError(t, f.store.Rules().Create(context.Background(), rule))
	return rule
}

func TestEvaluateSendsDueMedicationReminder(t *testing.T) {
	f := newFixture(t)
	patient := f.addPatient(t)
	f.addRule(t, patient.ID, model.RuleTypeMedication,
		model.Schedule{Times: []string{"08:00", "21:00"}, Days: model.DaysDaily},
		model.RulePayload{MedicationName: "Furosemide", Dose: "40mg", Indication: "fluid overload"},
		model.TargetPatient)

	summary, err := f.sched.EvaluateDueReminders(context.Background())
	require.NoError(t, err)

	assert.Equal(t, &Summary{Evaluated: 1, Sent: 1}, summary)
	require.Len(t, f.sms.bodies, 1)
	assert.Equal(t, "CareLoop: Time to take Furosemide (40mg) — fluid overload", f.sms.bodies[0])
}

func TestEvaluateOutsideWindow(t *testing.T) {
	f := newFixture(t)
	patient := f.addPatient(t)
	f.addRule(t, patient.ID, model.RuleTypeMedication,
		model.Schedule{Times: []string{"08:03"}, Days: model.DaysDaily},
		model.RulePayload{MedicationName: "Metoprolol"},
		model.TargetPatient)

	summary, err := f.sched.EvaluateDueReminders(context.Background())
	require.NoError(t, err)

	assert.Equal(t, &Summary{Evaluated: 1}, summary)
	assert.Empty(t, f.sms.bodies)
}

func TestEvaluateWindowEdge(t *testing.T) {
	f := newFixture(t)
	patient := f.addPatient(t)
	f.addRule(t, patient.ID, model.RuleTypeWeight,
		model.Schedule{Times: []string{"07:58"}, Days: model.DaysDaily},
		model.RulePayload{Message: "Time to log your weight."},
		model.TargetPatient)

	summary, err := f.sched.EvaluateDueReminders(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, summary.Sent)
}

func TestEvaluateSecondPassDedupes(t *testing.T) {
	f := newFixture(t)
	patient := f.addPatient(t)
	f.addRule(t, patient.ID, model.RuleTypeMedication,
		model.Schedule{Times: []string{"08:00"}, Days: model.DaysDaily},
		model.RulePayload{MedicationName: "Furosemide"},
		model.TargetPatient)

	ctx := context.Background()
	first, err := f.sched.EvaluateDueReminders(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, first.Sent)

	second, err := f.sched.EvaluateDueReminders(ctx)
	require.NoError(t, err)
	assert.Equal(t, &Summary{Evaluated: 1, Skipped: 1}, second)
	assert.Len(t, f.sms.bodies, 1)
}

func TestEvaluateDateScopedRule(t *testing.T) {
	f := newFixture(t)
	patient := f.addPatient(t)
	f.addRule(t, patient.ID, model.RuleTypeAppointment,
		model.Schedule{Times: []string{"08:00"}, Days: model.DaysDates, Dates: []string{"2026-03-11"}},
		model.RulePayload{Message: "Your appointment is tomorrow."},
		model.TargetPatient)
	f.addRule(t, patient.ID, model.RuleTypeAppointment,
		model.Schedule{Times: []string{"08:00"}, Days: model.DaysDates, Dates: []string{"2026-03-10"}},
		model.RulePayload{Message: "Your appointment is in 2 days."},
		model.TargetPatient)

	summary, err := f.sched.EvaluateDueReminders(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, summary.Evaluated)
	assert.Equal(t, 1, summary.Sent)
	require.Len(t, f.sms.bodies, 1)
	assert.Equal(t, "CareLoop: Your appointment is in 2 days.", f.sms.bodies[0])
}

func TestEvaluateNurseTargetSkipped(t *testing.T) {
	f := newFixture(t)
	patient := f.addPatient(t)
	f.addRule(t, patient.ID, model.RuleTypeNurseCheckin,
		model.Schedule{Times: []string{"08:00"}, Days: model.DaysDaily},
		model.RulePayload{Message: "Nurse check-in scheduled for today."},
		model.TargetNurse)

	summary, err := f.sched.EvaluateDueReminders(context.Background())
	require.NoError(t, err)

	assert.Equal(t, &Summary{Evaluated: 1, Skipped: 1}, summary)
	assert.Empty(t, f.sms.bodies)
}

func TestEvaluateInactiveRuleIgnored(t *testing.T) {
	f := newFixture(t)
	patient := f.addPatient(t)
	rule := f.addRule(t, patient.ID, model.RuleTypeMedication,
		model.Schedule{Times: []string{"08:00"}, Days: model.DaysDaily},
		model.RulePayload{MedicationName: "Furosemide"},
		model.TargetPatient)
	require.NoError(t, f.store.Rules().SetActive(context.Background(), rule.ID, false))

	summary, err := f.sched.EvaluateDueReminders(context.Background())
	require.NoError(t, err)

	assert.Equal(t, &Summary{}, summary)
}

func TestEvaluateFailedDelivery(t *testing.T) {
	f := newFixture(t)
	f.sms.fail = true
	patient := f.addPatient(t)
	f.addRule(t, patient.ID, model.RuleTypeMedication,
		model.Schedule{Times: []string{"08:00"}, Days: model.DaysDaily},
		model.RulePayload{MedicationName: "Furosemide"},
		model.TargetPatient)

	summary, err := f.sched.EvaluateDueReminders(context.Background())
	require.NoError(t, err)
	assert.Equal(t, &Summary{Evaluated: 1, Failed: 1}, summary)

	// The failed attempt is still logged, so the next pass skips it.
	second, err := f.sched.EvaluateDueReminders(context.Background())
	require.NoError(t, err)
	assert.Equal(t, &Summary{Evaluated: 1, Skipped: 1}, second)
}
