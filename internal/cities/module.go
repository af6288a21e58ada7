package cities

import (
	"github.com/jackc/pgx/v5/pgxpool"

	apphttp "callqa_backend/internal/http"
)

// Module is the cities read-model module implementing http.Module.
type Module struct {
	handler *Handler
}

// NewModule creates and initializes the cities module.
func NewModule(pool *pgxpool.Pool) *Module {
	repo := NewRepository(pool)
	svc := NewService(repo)
	return &Module{handler: NewHandler(svc)}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "cities"
}

// RegisterRoutes mounts the city views.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	cities := ctx.V1.Group("/cities")
	cities.GET("", m.handler.List)
	cities.GET("/:id", m.handler.Detail)

	ctx.V1.GET("/dashboard/risk-map", m.handler.RiskMap)
}
