package escalation

import (
	"github.com/jackc/pgx/v5/pgxpool"

	apphttp "callqa_backend/internal/http"
)

// Module is the escalation monitor module implementing http.Module.
type Module struct {
	handler *Handler
}

// NewModule creates and initializes the escalation module.
func NewModule(pool *pgxpool.Pool) *Module {
	repo := NewRepository(pool)
	svc := NewService(repo)
	return &Module{handler: NewHandler(svc)}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "escalation"
}

// RegisterRoutes mounts the monitor routes.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	escalations := ctx.V1.Group("/escalations")
	escalations.GET("/recent", m.handler.Recent)
	escalations.GET("/by-score", m.handler.ByScore)

	ctx.V1.GET("/agents/:id/worst-call", m.handler.WorstCall)
}
