package insights

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

// AgentInsights returns (and refreshes when stale) an agent's insights.
// POST /api/v1/agents/:id/insights
func (h *Handler) AgentInsights(c *gin.Context) {
	agentID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid agent id", nil)
		return
	}

	st, refreshed, err := h.svc.AgentInsights(c.Request.Context(), agentID)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, toAgentResponse(st, refreshed))
}

// CityInsights returns (and refreshes when stale) a city's insights.
// POST /api/v1/cities/:id/insights
func (h *Handler) CityInsights(c *gin.Context) {
	cityID, err := strconv.ParseInt(c.Param("id"), 10, 32)
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid city id", nil)
		return
	}

	st, refreshed, err := h.svc.CityInsights(c.Request.Context(), int32(cityID))
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, toCityResponse(st, refreshed))
}
