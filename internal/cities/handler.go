package cities

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"callqa_backend/platform/httpkit"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// List returns all cities with their aggregates.
// GET /api/v1/cities
func (h *Handler) List(c *gin.Context) {
	cities, err := h.svc.List(c.Request.Context())
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, toSummaries(cities))
}

// Detail returns one city's full operational view.
// GET /api/v1/cities/:id
func (h *Handler) Detail(c *gin.Context) {
	cityID, err := strconv.ParseInt(c.Param("id"), 10, 32)
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid city id", nil)
		return
	}

	city, err := h.svc.Detail(c.Request.Context(), int32(cityID))
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, toDetail(city))
}

// RiskMap returns cities grouped by state for the dashboard.
// GET /api/v1/dashboard/risk-map
func (h *Handler) RiskMap(c *gin.Context) {
	groups, err := h.svc.RiskMap(c.Request.Context())
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, toRiskMap(groups))
}
