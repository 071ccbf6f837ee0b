package trigger

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/careloop/recovery-api/internal/handler"
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

type fakePush struct{}

func (fakePush) Enabled() bool { return false }

func (fakePush) Send(context.Context, string, string, map[string]string, []string) (int, int, error) {
	return 0, 0, nil
}

type fakeSMS struct {
	bodies []string
}

func (f *fakeSMS) Enabled() bool { return true }

func (f *fakeSMS) Send(_ context.Context, _, body string) error {
	f.bodies = append(f.bodies, body)
	return nil
}

type fixture struct {
	store  *memory.Store
	sms    *fakeSMS
	router *gin.Engine
}

// newFixture pins local time to 08:00 IST on 2026-03-10.
func newFixture(t *testing.T) *fixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	store := memory.NewStore()
	sms := &fakeSMS{}
	clk := clock.NewFixed(time.Date(2026, 3, 10, 2, 30, 0, 0, time.UTC), 330)
	log := logger.NewLogger(nil)
	dispatch := notifier.NewService(store.Notifications(), fakePush{}, sms, clk, log, nil)
	sched := scheduler.New(store.Patients(), store.Rules(), store.Notifications(), dispatch, clk, log, nil)
	engine := escalation.NewEngine(escalation.DefaultConfig(),
		store.Patients(), store.Rules(), store.Vitals(), store.MedicationLogs(), store.Escalations(),
		dispatch, nil, clk, log, nil)
	compliance := ruleplan.NewService(
		store.Patients(), store.Rules(), store.Vitals(), store.MedicationLogs(), store.Compliance(),
		frequency.NewNormalizer(log), log)

	r := gin.New()
	NewHandler(sched, engine, compliance, clk).RegisterRoutes(r.Group("/api/v1"))
	return &fixture{store: store, sms: sms, router: r}
}

func (f *fixture) addPatient(t *testing.T) *model.Patient {
	t.Helper()
	p := &model.Patient{
		Base:              model.Base{ID: uuid.New()},
		FullName:          "Rajesh Kumar",
		Phone:             "+919876543210",
		CarePlanRef:       "cp-" + uuid.NewString(),
		CarePlanStartDate: "2026-03-01",
		NotifySMS:         true,
		Status:            string(model.PatientStatusActive),
	}
	require.NoError(t, f.store.Patients().Create(context.Background(), p))
	return p
}

func (f *fixture) post(t *testing.T, path string) (*httptest.ResponseRecorder, *handler.Response) {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, nil)
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)

	var resp handler.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return w, &resp
}

func TestEvaluateEndpoint(t *testing.T) {
	f := newFixture(t)
	p := f.addPatient(t)
	rule := &model.ReminderRule{
		Base:      model.Base{ID: uuid.New()},
		PatientID: p.ID,
		Type:      model.RuleTypeMedication,
		Schedule:  model.Schedule{Times: []string{"08:00"}, Days: model.DaysDaily},
		Payload:   model.RulePayload{MedicationName: "Furosemide", Dose: "40mg"},
		Target:    model.TargetPatient,
		Active:    true,
	}
	require.NoError(t, f.store.Rules().Create(context.Background(), rule))

	w, resp := f.post(t, "/api/v1/cron/evaluate")

	require.Equal(t, http.StatusOK, w.Code)
	data := resp.Data.(map[string]interface{})
	assert.Equal(t, float64(1), data["evaluated"])
	assert.Equal(t, float64(1), data["sent"])
	assert.Len(t, f.sms.bodies, 1)
}

func TestEscalationCheckEndpoint(t *testing.T) {
	f := newFixture(t)
	f.addPatient(t)

	w, resp := f.post(t, "/api/v1/cron/escalation-check")

	require.Equal(t, http.StatusOK, w.Code)
	data := resp.Data.(map[string]interface{})
	assert.Equal(t, float64(1), data["checked"])
}

func TestComplianceRollupEndpoint(t *testing.T) {
	f := newFixture(t)
	f.addPatient(t)

	w, resp := f.post(t, "/api/v1/cron/compliance-rollup")

	require.Equal(t, http.StatusOK, w.Code)
	data := resp.Data.(map[string]interface{})
	assert.Equal(t, "2026-03-10", data["date"])
	assert.Equal(t, float64(1), data["computed"])
}

func TestComplianceRollupExplicitDate(t *testing.T) {
	f := newFixture(t)
	f.addPatient(t)

	w, resp := f.post(t, "/api/v1/cron/compliance-rollup?date=2026-03-09")

	require.Equal(t, http.StatusOK, w.Code)
	data := resp.Data.(map[string]interface{})
	assert.Equal(t, "2026-03-09", data["date"])
}
