package provider

import (
	"bytes"
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
	providerservice "github.com/careloop/recovery-api/internal/service/provider"
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
	store  *memory.Store
	router *gin.Engine
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	store := memory.NewStore()
	clk := clock.NewFixed(time.Date(2026, 3, 10, 4, 30, 0, 0, time.UTC), 330)
	log := logger.NewLogger(nil)
	engine := escalation.NewEngine(escalation.DefaultConfig(),
		store.Patients(), store.Rules(), store.Vitals(), store.MedicationLogs(), store.Escalations(),
		noopNotifier{}, nil, clk, log, nil)
	svc := providerservice.NewService(store.Patients(), store.Vitals(), store.Escalations(), store.Compliance(),
		engine, clk, log)

	r := gin.New()
	NewHandler(svc).RegisterRoutes(r.Group("/api/v1"))
	return &fixture{store: store, router: r}
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

func (f *fixture) addOpenEscalation(t *testing.T, patientID uuid.UUID) *model.Escalation {
	t.Helper()
	esc := &model.Escalation{
		Base:        model.Base{ID: uuid.New()},
		PatientID:   patientID,
		TriggerType: model.TriggerMissedWeight,
		Level:       model.LevelNurse,
		Status:      model.EscalationStatusOpen,
		Date:        "2026-03-10",
	}
	require.NoError(t, f.store.Escalations().Create(context.Background(), esc))
	return esc
}

func (f *fixture) doJSON(t *testing.T, method, path string, body interface{}) (*httptest.ResponseRecorder, *handler.Response) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)

	var resp handler.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return w, &resp
}

func TestRosterEndpoint(t *testing.T) {
	f := newFixture(t)
	f.addPatient(t, "Rajesh Kumar")

	w, resp := f.doJSON(t, http.MethodGet, "/api/v1/provider/patients", nil)

	require.Equal(t, http.StatusOK, w.Code)
	data := resp.Data.(map[string]interface{})
	assert.Equal(t, float64(1), data["count"])
	patients := data["patients"].([]interface{})
	entry := patients[0].(map[string]interface{})
	assert.Equal(t, "Rajesh Kumar", entry["full_name"])
	assert.Equal(t, providerservice.StatusCritical, entry["status"])
}

func TestOpenAlertsEndpoint(t *testing.T) {
	f := newFixture(t)
	p := f.addPatient(t, "Rajesh Kumar")
	f.addOpenEscalation(t, p.ID)

	w, resp := f.doJSON(t, http.MethodGet, "/api/v1/provider/alerts", nil)

	require.Equal(t, http.StatusOK, w.Code)
	data := resp.Data.(map[string]interface{})
	assert.Equal(t, float64(1), data["count"])
	alerts := data["alerts"].([]interface{})
	alert := alerts[0].(map[string]interface{})
	assert.Equal(t, "Rajesh Kumar", alert["patient_name"])
	assert.Equal(t, string(model.TriggerMissedWeight), alert["trigger_type"])
}

func TestAcknowledgeAlertEndpoint(t *testing.T) {
	f := newFixture(t)
	p := f.addPatient(t, "Rajesh Kumar")
	esc := f.addOpenEscalation(t, p.ID)

	w, resp := f.doJSON(t, http.MethodPost, "/api/v1/provider/alerts/"+esc.ID.String()+"/ack", map[string]interface{}{
		"resolved_by": "nurse_priya",
	})

	require.Equal(t, http.StatusOK, w.Code)
	data := resp.Data.(map[string]interface{})
	assert.Equal(t, string(model.EscalationStatusResolved), data["status"])
	assert.Equal(t, "nurse_priya", data["resolved_by"])
}

func TestAcknowledgeAlertEmptyBodyDefaults(t *testing.T) {
	f := newFixture(t)
	p := f.addPatient(t, "Rajesh Kumar")
	esc := f.addOpenEscalation(t, p.ID)

	w, resp := f.doJSON(t, http.MethodPost, "/api/v1/provider/alerts/"+esc.ID.String()+"/ack", nil)

	require.Equal(t, http.StatusOK, w.Code)
	data := resp.Data.(map[string]interface{})
	assert.Equal(t, "nurse_ack", data["resolved_by"])
}

func TestAcknowledgeAlertInvalidID(t *testing.T) {
	f := newFixture(t)

	w, _ := f.doJSON(t, http.MethodPost, "/api/v1/provider/alerts/nope/ack", nil)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestPatientVitalsEndpoint(t *testing.T) {
	f := newFixture(t)
	p := f.addPatient(t, "Rajesh Kumar")

	w, resp := f.doJSON(t, http.MethodGet, "/api/v1/provider/patients/"+p.ID.String()+"/vitals?days=14", nil)

	require.Equal(t, http.StatusOK, w.Code)
	data := resp.Data.(map[string]interface{})
	assert.Equal(t, p.ID.String(), data["patient_id"])
	assert.Contains(t, data, "weight")
	assert.Contains(t, data, "compliance")
}
