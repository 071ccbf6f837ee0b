package worker

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
	"github.com/careloop/recovery-api/internal/service/frequency"
	"github.com/careloop/recovery-api/internal/service/notifier"
	"github.com/careloop/recovery-api/internal/service/ruleplan"
	"github.com/careloop/recovery-api/internal/service/scheduler"
	"github.com/careloop/recovery-api/pkg/clock"
	"github.com/careloop/recovery-api/pkg/logger"
)

type silentPush struct{}

func (silentPush) Enabled() bool { return false }

func (silentPush) Send(context.Context, string, string, map[string]string, []string) (int, int, error) {
	return 0, 0, nil
}

type silentSMS struct{}

func (silentSMS) Enabled() bool { return false }

func (silentSMS) Send(context.Context, string, string) error { return nil }

func newTestWorker(t *testing.T, clk *clock.Fixed, rollupTime string) (*Worker, *memory.Store) {
	t.Helper()
	store := memory.NewStore()
	log := logger.NewLogger(nil)
	dispatch := notifier.NewService(store.Notifications(), silentPush{}, silentSMS{}, clk, log, nil)
	sched := scheduler.New(store.Patients(), store.Rules(), store.Notifications(), dispatch, clk, log, nil)
	engine := escalation.NewEngine(escalation.DefaultConfig(),
		store.Patients(), store.Rules(), store.Vitals(), store.MedicationLogs(), store.Escalations(),
		dispatch, nil, clk, log, nil)
	compliance := ruleplan.NewService(
		store.Patients(), store.Rules(), store.Vitals(), store.MedicationLogs(), store.Compliance(),
		frequency.NewNormalizer(log), log)

	w := New(sched, engine, compliance, Config{RollupTime: rollupTime}, clk, log)
	return w, store
}

func addActivePatient(t *testing.T, store *memory.Store) *model.Patient {
	t.Helper()
	p := &model.Patient{
		Base:              model.Base{ID: uuid.New()},
		FullName:          "Rajesh Kumar",
		Phone:             "+919876543210",
		CarePlanRef:       "cp-" + uuid.NewString(),
		CarePlanStartDate: "2026-03-01",
		Status:            string(model.PatientStatusActive),
	}
	require.NoError(t, store.Patients().Create(context.Background(), p))
	return p
}

func TestRollupRunsOncePerDay(t *testing.T) {
	// 23:56 IST on 2026-03-10, past the 23:55 rollup time.
	clk := clock.NewFixed(time.Date(2026, 3, 10, 18, 26, 0, 0, time.UTC), 330)
	w, store := newTestWorker(t, clk, "23:55")
	p := addActivePatient(t, store)

	w.maybeRollup(context.Background())
	assert.Equal(t, "2026-03-10", w.lastRollupDate)

	rec, err := store.Compliance().Get(context.Background(), p.ID, "2026-03-10")
	require.NoError(t, err)
	assert.Equal(t, "2026-03-10", rec.Date)

	// Same day again is a no-op.
	w.maybeRollup(context.Background())
	assert.Equal(t, "2026-03-10", w.lastRollupDate)
}

func TestRollupWaitsForConfiguredTime(t *testing.T) {
	// 10:00 IST, well before the rollup time.
	clk := clock.NewFixed(time.Date(2026, 3, 10, 4, 30, 0, 0, time.UTC), 330)
	w, store := newTestWorker(t, clk, "23:55")
	addActivePatient(t, store)

	w.maybeRollup(context.Background())

	assert.Empty(t, w.lastRollupDate)
}

func TestRollupRunsNextDay(t *testing.T) {
	clk := clock.NewFixed(time.Date(2026, 3, 10, 18, 26, 0, 0, time.UTC), 330)
	w, store := newTestWorker(t, clk, "23:55")
	addActivePatient(t, store)

	w.maybeRollup(context.Background())
	require.Equal(t, "2026-03-10", w.lastRollupDate)

	clk.UTC = clk.UTC.Add(24 * time.Hour)
	w.maybeRollup(context.Background())
	assert.Equal(t, "2026-03-11", w.lastRollupDate)
}
