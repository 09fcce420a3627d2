// Package reclamations provides the reclamation lifecycle bounded context:
// intake, assignment, SLA monitoring, escalation and the corbeille views.
package reclamations

import (
	"reclamation_backend/internal/events"
	"reclamation_backend/internal/http"
	"reclamation_backend/internal/reclamations/handler"
	"reclamation_backend/internal/reclamations/ports"
	"reclamation_backend/internal/reclamations/repository"
	"reclamation_backend/internal/reclamations/service"
	"reclamation_backend/platform/config"
	"reclamation_backend/platform/httpkit"
	"reclamation_backend/platform/logger"
	"reclamation_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module is the reclamations bounded context module implementing http.Module.
type Module struct {
	handler *handler.Handler
	service *service.Service
	repo    *repository.Repository
}

// NewModule creates and initializes the reclamations module.
func NewModule(pool *pgxpool.Pool, workers ports.WorkerDirectory, bus events.Bus, cfg config.SLAConfig, val *validator.Validator, log *logger.Logger) *Module {
	repo := repository.New(pool)
	svc := service.New(repo, workers, bus, cfg, log)
	h := handler.New(svc, val)

	return &Module{
		handler: h,
		service: svc,
		repo:    repo,
	}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "reclamations"
}

// Service returns the service layer for external use (scheduler worker).
func (m *Module) Service() *service.Service {
	return m.service
}

// RegisterRoutes mounts reclamation routes on the provided router context.
func (m *Module) RegisterRoutes(ctx *http.RouterContext) {
	group := ctx.Protected.Group("/reclamations")

	group.GET("", m.handler.List)
	group.POST("", m.handler.Create)
	group.GET("/corbeille", m.handler.Corbeille)
	group.GET("/corbeille/personal", m.handler.PersonalCorbeille)
	group.GET("/:id", m.handler.Get)
	group.GET("/:id/history", m.handler.History)
	group.GET("/:id/sla", m.handler.SLAStatus)
	group.GET("/:id/alerts", m.handler.Alerts)
	group.POST("/:id/transition", m.handler.Transition)
	group.POST("/:id/assign", m.handler.Assign)

	supervisor := httpkit.RequireRole(handler.RoleSupervisor)
	group.POST("/bulk-reassign", supervisor, m.handler.BulkReassign)
	group.POST("/monitor/tick", supervisor, m.handler.RunMonitorTick)
}

var _ http.Module = (*Module)(nil)
