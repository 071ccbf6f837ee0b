package provider

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/careloop/recovery-api/internal/handler"
	"github.com/careloop/recovery-api/internal/service/provider"
)

type Handler struct {
	service *provider.Service
}

func NewHandler(service *provider.Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	prov := r.Group("/provider")
	{
		prov.GET("/patients", h.Roster)
		prov.GET("/patients/:id/vitals", h.PatientVitals)
		prov.GET("/alerts", h.OpenAlerts)
		prov.POST("/alerts/:id/ack", h.AcknowledgeAlert)
	}
}

// Roster lists all active patients ordered worst-first so the
// dashboard surfaces whoever needs attention at the top.
func (h *Handler) Roster(c *gin.Context) {
	entries, err := h.service.Roster(c.Request.Context())
	if err != nil {
		handler.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(gin.H{
		"count":    len(entries),
		"patients": entries,
	}))
}

func (h *Handler) OpenAlerts(c *gin.Context) {
	alerts, err := h.service.OpenAlerts(c.Request.Context())
	if err != nil {
		handler.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(gin.H{
		"count":  len(alerts),
		"alerts": alerts,
	}))
}

func (h *Handler) AcknowledgeAlert(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid alert ID"))
		return
	}

	var req struct {
		ResolvedBy string `json:"resolved_by"`
	}
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
			return
		}
	}

	esc, err := h.service.AcknowledgeAlert(c.Request.Context(), id, req.ResolvedBy)
	if err != nil {
		handler.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(esc))
}

func (h *Handler) PatientVitals(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid patient ID"))
		return
	}
	days, err := strconv.Atoi(c.DefaultQuery("days", "7"))
	if err != nil {
		days = 7
	}

	trends, err := h.service.PatientVitals(c.Request.Context(), id, days)
	if err != nil {
		handler.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(trends))
}
