package trigger

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/careloop/recovery-api/internal/handler"
	"github.com/careloop/recovery-api/internal/service/escalation"
	"github.com/careloop/recovery-api/internal/service/ruleplan"
	"github.com/careloop/recovery-api/internal/service/scheduler"
	"github.com/careloop/recovery-api/pkg/clock"
)

// Handler exposes the engine passes as HTTP endpoints so an external
// cron (or an operator) can drive them without the background worker.
type Handler struct {
	scheduler  *scheduler.Scheduler
	escalation *escalation.Engine
	compliance *ruleplan.Service
	clock      clock.Clock
}

func NewHandler(sched *scheduler.Scheduler, esc *escalation.Engine, compliance *ruleplan.Service, clk clock.Clock) *Handler {
	return &Handler{
		scheduler:  sched,
		escalation: esc,
		compliance: compliance,
		clock:      clk,
	}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	cron := r.Group("/cron")
	{
		cron.POST("/evaluate", h.Evaluate)
		cron.POST("/escalation-check", h.EscalationCheck)
		cron.POST("/compliance-rollup", h.ComplianceRollup)
	}
}

func (h *Handler) Evaluate(c *gin.Context) {
	summary, err := h.scheduler.EvaluateDueReminders(c.Request.Context())
	if err != nil {
		handler.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(summary))
}

func (h *Handler) EscalationCheck(c *gin.Context) {
	summary, err := h.escalation.CheckMissedActions(c.Request.Context())
	if err != nil {
		handler.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(summary))
}

func (h *Handler) ComplianceRollup(c *gin.Context) {
	date := c.Query("date")
	if date == "" {
		date = clock.Date(h.clock.Local())
	}
	computed, err := h.compliance.ComputeAllDailyCompliance(c.Request.Context(), date)
	if err != nil {
		handler.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(gin.H{
		"date":     date,
		"computed": computed,
	}))
}
