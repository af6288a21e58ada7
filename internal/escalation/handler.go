package escalation

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"callqa_backend/platform/httpkit"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func parseWindow(c *gin.Context) (time.Duration, bool) {
	raw := c.Query("window")
	if raw == "" {
		return 0, true
	}
	window, err := time.ParseDuration(raw)
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid window duration", nil)
		return 0, false
	}
	return window, true
}

// Recent lists escalation-flagged calls in the window.
// GET /api/v1/escalations/recent?window=5m
func (h *Handler) Recent(c *gin.Context) {
	window, ok := parseWindow(c)
	if !ok {
		return
	}

	calls, err := h.svc.Recent(c.Request.Context(), window)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, toResponses(calls))
}

// ByScore lists calls at or above a coaching priority threshold.
// GET /api/v1/escalations/by-score?minScore=0.7&window=1h
func (h *Handler) ByScore(c *gin.Context) {
	minScore, err := strconv.ParseFloat(c.DefaultQuery("minScore", "0.7"), 64)
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid minScore", nil)
		return
	}
	window, ok := parseWindow(c)
	if !ok {
		return
	}

	calls, err := h.svc.ByScoreThreshold(c.Request.Context(), minScore, window)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, toResponses(calls))
}

// WorstCall returns the agent's highest-priority call in the window.
// GET /api/v1/agents/:id/worst-call?window=168h
func (h *Handler) WorstCall(c *gin.Context) {
	agentID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid agent id", nil)
		return
	}
	window, ok := parseWindow(c)
	if !ok {
		return
	}

	call, err := h.svc.WorstCallForAgent(c.Request.Context(), agentID, window)
	if httpkit.HandleError(c, err) {
		return
	}
	resp := toResponse(call)
	httpkit.OK(c, resp)
}
