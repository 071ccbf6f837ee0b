package health

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubChannel bool

func (s stubChannel) Enabled() bool { return bool(s) }

func newTestRouter(push, sms Channel) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	NewHandler(nil, push, sms).RegisterRoutes(r.Group("/api/v1"))
	return r
}

func get(t *testing.T, r *gin.Engine, path string) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return w, body
}

func TestLivenessCheck(t *testing.T) {
	r := newTestRouter(stubChannel(true), stubChannel(true))

	w, body := get(t, r, "/api/v1/health/live")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "UP", body["status"])
}

func TestReadinessReportsChannelAvailability(t *testing.T) {
	r := newTestRouter(stubChannel(false), stubChannel(true))

	w, body := get(t, r, "/api/v1/health/ready")

	require.Equal(t, http.StatusOK, w.Code)
	channels := body["channels"].(map[string]interface{})
	assert.Equal(t, "unavailable", channels["push"])
	assert.Equal(t, "available", channels["sms"])
}

func TestReadinessToleratesMissingChannels(t *testing.T) {
	r := newTestRouter(nil, nil)

	w, body := get(t, r, "/api/v1/health/ready")

	require.Equal(t, http.StatusOK, w.Code)
	channels := body["channels"].(map[string]interface{})
	assert.Equal(t, "unavailable", channels["push"])
}
