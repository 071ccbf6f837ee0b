package patient

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/careloop/recovery-api/internal/handler"
	"github.com/careloop/recovery-api/internal/model"
	"github.com/careloop/recovery-api/internal/service/patient"
	"github.com/careloop/recovery-api/internal/service/ruleplan"
)

type Handler struct {
	service    *patient.Service
	compliance *ruleplan.Service
}

func NewHandler(service *patient.Service, compliance *ruleplan.Service) *Handler {
	return &Handler{
		service:    service,
		compliance: compliance,
	}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	patients := r.Group("/patients")
	{
		patients.POST("/register", h.Register)
		patients.GET("/:id", h.GetPatient)
		patients.GET("/:id/today", h.Today)
		patients.POST("/:id/vitals", h.LogVital)
		patients.GET("/:id/vitals/history", h.VitalHistory)
		patients.POST("/:id/medications/ack", h.AcknowledgeMedication)
		patients.GET("/:id/compliance", h.Compliance)
		patients.POST("/:id/deactivate", h.Deactivate)
	}
}

func (h *Handler) Register(c *gin.Context) {
	var req model.RegisterPatientRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return
	}

	result, err := h.service.Register(c.Request.Context(), &req)
	if err != nil {
		handler.RespondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, handler.NewSuccessResponse(result))
}

func (h *Handler) GetPatient(c *gin.Context) {
	id, ok := h.patientID(c)
	if !ok {
		return
	}
	p, err := h.service.Get(c.Request.Context(), id)
	if err != nil {
		handler.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(p))
}

func (h *Handler) Today(c *gin.Context) {
	id, ok := h.patientID(c)
	if !ok {
		return
	}
	view, err := h.service.Today(c.Request.Context(), id)
	if err != nil {
		handler.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(view))
}

func (h *Handler) LogVital(c *gin.Context) {
	id, ok := h.patientID(c)
	if !ok {
		return
	}

	var req model.LogVitalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return
	}

	result, err := h.service.LogVital(c.Request.Context(), id, &req)
	if err != nil {
		handler.RespondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, handler.NewSuccessResponse(result))
}

func (h *Handler) VitalHistory(c *gin.Context) {
	id, ok := h.patientID(c)
	if !ok {
		return
	}

	vitalType := model.VitalType(c.DefaultQuery("type", string(model.VitalTypeWeight)))
	days := queryInt(c, "days", 7)

	logs, err := h.service.VitalHistory(c.Request.Context(), id, vitalType, days)
	if err != nil {
		handler.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(gin.H{
		"type": vitalType,
		"days": days,
		"logs": logs,
	}))
}

func (h *Handler) AcknowledgeMedication(c *gin.Context) {
	id, ok := h.patientID(c)
	if !ok {
		return
	}

	var req model.AcknowledgeMedicationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return
	}

	result, err := h.service.AcknowledgeMedication(c.Request.Context(), id, &req)
	if err != nil {
		handler.RespondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, handler.NewSuccessResponse(result))
}

// Compliance returns the stored compliance history, recomputing
// today's record first so the response is never stale.
func (h *Handler) Compliance(c *gin.Context) {
	id, ok := h.patientID(c)
	if !ok {
		return
	}
	days := queryInt(c, "days", 7)

	ctx := c.Request.Context()
	date := c.Query("date")
	if date == "" {
		date = h.service.TodayDate()
	}
	today, err := h.compliance.ComputeDailyCompliance(ctx, id, date)
	if err != nil {
		handler.RespondError(c, err)
		return
	}

	history, err := h.service.ComplianceHistory(ctx, id, days)
	if err != nil {
		handler.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(gin.H{
		"today":   today,
		"history": history,
	}))
}

func (h *Handler) Deactivate(c *gin.Context) {
	id, ok := h.patientID(c)
	if !ok {
		return
	}
	if err := h.service.Deactivate(c.Request.Context(), id); err != nil {
		handler.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(gin.H{"status": "deactivated"}))
}

func (h *Handler) patientID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid patient ID"))
		return uuid.Nil, false
	}
	return id, true
}

func queryInt(c *gin.Context, name string, fallback int) int {
	v, err := strconv.Atoi(c.DefaultQuery(name, strconv.Itoa(fallback)))
	if err != nil {
		return fallback
	}
	return v
}
