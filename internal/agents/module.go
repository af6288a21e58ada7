package agents

import (
	"github.com/jackc/pgx/v5/pgxpool"

	apphttp "callqa_backend/internal/http"
)

// Module is the agents read-model module implementing http.Module.
type Module struct {
	handler *Handler
}

// NewModule creates and initializes the agents module.
func NewModule(pool *pgxpool.Pool) *Module {
	repo := NewRepository(pool)
	svc := NewService(repo)
	return &Module{handler: NewHandler(svc)}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "agents"
}

// RegisterRoutes mounts the agent views.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	agents := ctx.V1.Group("/agents")
	agents.GET("", m.handler.List)
	agents.GET("/search", m.handler.Search)
	agents.GET("/leaderboard", m.handler.Leaderboard)
	agents.GET("/:id/stats", m.handler.Stats)
}
