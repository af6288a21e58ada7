// Package calls provides the call processing bounded context module.
package calls

import (
	"github.com/jackc/pgx/v5/pgxpool"

	"callqa_backend/internal/adapters/storage"
	"callqa_backend/internal/calls/handler"
	"callqa_backend/internal/calls/lifecycle"
	"callqa_backend/internal/calls/repository"
	"callqa_backend/internal/calls/service"
	"callqa_backend/internal/events"
	apphttp "callqa_backend/internal/http"
	"callqa_backend/internal/metrics"
	"callqa_backend/internal/pipeline"
	"callqa_backend/platform/logger"
	"callqa_backend/platform/validator"
)

// Module is the calls bounded context module implementing http.Module.
type Module struct {
	handler    *handler.Handler
	service    *service.Service
	controller *lifecycle.Controller
	repo       *repository.Repository
}

// NewModule creates and initializes the calls module.
func NewModule(
	pool *pgxpool.Pool,
	store storage.RecordingStore,
	bucket string,
	enqueuer pipeline.Enqueuer,
	bus events.Bus,
	val *validator.Validator,
	log *logger.Logger,
) *Module {
	repo := repository.New(pool)
	engine := metrics.NewEngine(log)
	ctrl := lifecycle.NewController(repo, engine, bus, val, log)
	svc := service.New(repo, store, bucket, enqueuer, bus, log)
	h := handler.New(svc, val)

	return &Module{
		handler:    h,
		service:    svc,
		controller: ctrl,
		repo:       repo,
	}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "calls"
}

// Controller returns the lifecycle controller for the pipeline worker.
func (m *Module) Controller() *lifecycle.Controller {
	return m.controller
}

// Repository returns the repository for the pipeline worker.
func (m *Module) Repository() *repository.Repository {
	return m.repo
}

// RegisterRoutes mounts the calls routes.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	calls := ctx.V1.Group("/calls")
	calls.POST("", ctx.IngestRateLimiter.RateLimit(), m.handler.Ingest)
	calls.GET("", m.handler.List)
	calls.GET("/:id", m.handler.Detail)
	calls.GET("/:id/status", m.handler.Status)
	calls.POST("/:id/process", m.handler.Reprocess)
	calls.PATCH("/:id/remarks", m.handler.UpdateRemarks)
}
