// Package workers provides the back-office worker bounded context module.
// Workers are the assignable population the reclamations module routes
// work to; this module owns their storage and read endpoints.
package workers

import (
	"reclamation_backend/internal/http"
	"reclamation_backend/internal/reclamations/ports"
	"reclamation_backend/internal/workers/adapter"
	"reclamation_backend/internal/workers/handler"
	"reclamation_backend/internal/workers/repository"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module is the workers bounded context module implementing http.Module.
type Module struct {
	handler   *handler.Handler
	repo      *repository.Repository
	directory *adapter.Directory
}

// NewModule creates and initializes the workers module.
func NewModule(pool *pgxpool.Pool) *Module {
	repo := repository.New(pool)

	return &Module{
		handler:   handler.New(repo),
		repo:      repo,
		directory: adapter.NewDirectory(repo),
	}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "workers"
}

// Directory returns the worker lookup interface consumed by the
// reclamations module.
func (m *Module) Directory() ports.WorkerDirectory {
	return m.directory
}

// RegisterRoutes mounts worker routes on the provided router context.
func (m *Module) RegisterRoutes(ctx *http.RouterContext) {
	group := ctx.Protected.Group("/workers")
	group.GET("", m.handler.List)
	group.GET("/:id", m.handler.GetByID)
}

var _ http.Module = (*Module)(nil)
