// Package insights generates and caches LLM-written agent and city insights.
package insights

import (
	"github.com/jackc/pgx/v5/pgxpool"

	apphttp "callqa_backend/internal/http"
	"callqa_backend/platform/ai/openrouter"
	"callqa_backend/platform/config"
	"callqa_backend/platform/logger"
)

// Module is the insights bounded context module implementing http.Module.
type Module struct {
	handler *Handler
}

// NewModule creates and initializes the insights module.
func NewModule(pool *pgxpool.Pool, llm *openrouter.Client, cfg config.InsightCacheConfig, log *logger.Logger) *Module {
	repo := NewRepository(pool)
	gen := NewGenerator(llm)
	cache := NewCache(cfg)
	svc := NewService(repo, gen, cache, log)

	return &Module{handler: NewHandler(svc)}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "insights"
}

// RegisterRoutes mounts the insight generation routes.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	ctx.V1.POST("/agents/:id/insights", m.handler.AgentInsights)
	ctx.V1.POST("/cities/:id/insights", m.handler.CityInsights)
}
