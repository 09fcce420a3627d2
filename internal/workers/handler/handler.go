package handler

import (
	"net/http"

	"reclamation_backend/internal/workers/repository"
	"reclamation_backend/internal/workers/transport"
	"reclamation_backend/platform/httpkit"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// Handler handles HTTP requests for workers.
type Handler struct {
	repo *repository.Repository
}

const msgInvalidID = "invalid worker ID"

// New creates a new workers handler.
func New(repo *repository.Repository) *Handler {
	return &Handler{repo: repo}
}

// List retrieves workers, optionally filtered by role and department.
// GET /api/v1/workers
func (h *Handler) List(c *gin.Context) {
	var req transport.ListWorkersRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid request", nil)
		return
	}

	var (
		items []repository.Worker
		err   error
	)
	if req.Role != "" {
		items, err = h.repo.ListActive(c.Request.Context(), req.Role, req.Department)
	} else {
		items, err = h.repo.ListAll(c.Request.Context())
	}
	if httpkit.HandleError(c, err) {
		return
	}

	out := make([]transport.WorkerResponse, 0, len(items))
	for i := range items {
		out = append(out, toResponse(&items[i]))
	}
	httpkit.OK(c, out)
}

// GetByID retrieves a worker by ID.
// GET /api/v1/workers/:id
func (h *Handler) GetByID(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidID, nil)
		return
	}

	worker, err := h.repo.GetByID(c.Request.Context(), id)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, toResponse(worker))
}

func toResponse(w *repository.Worker) transport.WorkerResponse {
	return transport.WorkerResponse{
		ID:         w.ID,
		FullName:   w.FullName,
		Email:      w.Email,
		Role:       w.Role,
		Department: w.Department,
		Active:     w.Active,
		CreatedAt:  w.CreatedAt,
	}
}
