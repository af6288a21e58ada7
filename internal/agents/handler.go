package agents

import (
	"net/http"
	"strconv"

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

func limitQuery(c *gin.Context) int {
	limit, _ := strconv.Atoi(c.Query("limit"))
	return limit
}

// List returns agents, optionally filtered by ?q= (name or employee id).
// GET /api/v1/agents
func (h *Handler) List(c *gin.Context) {
	agents, err := h.svc.Find(c.Request.Context(), c.Query("q"), limitQuery(c))
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, toSummaries(agents))
}

// Search finds agents by name or employee id.
// GET /api/v1/agents/search?query=priya
func (h *Handler) Search(c *gin.Context) {
	agents, err := h.svc.Find(c.Request.Context(), c.Query("query"), limitQuery(c))
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, toSummaries(agents))
}

// Leaderboard returns agents ranked by current quality.
// GET /api/v1/agents/leaderboard
func (h *Handler) Leaderboard(c *gin.Context) {
	agents, err := h.svc.Leaderboard(c.Request.Context(), limitQuery(c))
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, toSummaries(agents))
}

// Stats returns an agent's metrics with month-over-month comparison.
// GET /api/v1/agents/:id/stats
func (h *Handler) Stats(c *gin.Context) {
	agentID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid agent id", nil)
		return
	}

	agent, err := h.svc.Stats(c.Request.Context(), agentID)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, toStats(agent))
}
