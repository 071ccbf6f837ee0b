package health

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
)

// Channel is a delivery gateway whose configuration may be absent.
type Channel interface {
	Enabled() bool
}

type Handler struct {
	db   *sqlx.DB
	push Channel
	sms  Channel
}

func NewHandler(db *sqlx.DB, push, sms Channel) *Handler {
	return &Handler{
		db:   db,
		push: push,
		sms:  sms,
	}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	health := r.Group("/health")
	{
		health.GET("/live", h.LivenessCheck)
		health.GET("/ready", h.ReadinessCheck)
	}
}

func (h *Handler) LivenessCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "UP"})
}

// ReadinessCheck fails only on database loss. Missing delivery
// credentials degrade channels but do not take the service down.
func (h *Handler) ReadinessCheck(c *gin.Context) {
	if h.db != nil {
		if err := h.db.Ping(); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status": "DOWN",
				"reason": "Database connection failed",
			})
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{
		"status": "UP",
		"channels": gin.H{
			"push": h.channelStatus(h.push),
			"sms":  h.channelStatus(h.sms),
		},
	})
}

func (h *Handler) channelStatus(ch Channel) string {
	if ch == nil || !ch.Enabled() {
		return "unavailable"
	}
	return "available"
}
