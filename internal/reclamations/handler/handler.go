package handler

import (
	"net/http"
	"time"

	"reclamation_backend/internal/reclamations/domain"
	"reclamation_backend/internal/reclamations/service"
	"reclamation_backend/internal/reclamations/transport"
	"reclamation_backend/platform/httpkit"
	"reclamation_backend/platform/validator"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// RoleSupervisor gates closing operations and bulk reassignment.
const RoleSupervisor = "superviseur"

// Handler handles HTTP requests for reclamations.
type Handler struct {
	svc *service.Service
	val *validator.Validator
}

const (
	msgInvalidRequest   = "invalid request"
	msgValidationFailed = "validation failed"
	msgInvalidID        = "invalid reclamation ID"
)

// New creates a new reclamations handler.
func New(svc *service.Service, val *validator.Validator) *Handler {
	return &Handler{svc: svc, val: val}
}

// Create registers a new reclamation.
// POST /api/v1/reclamations
func (h *Handler) Create(c *gin.Context) {
	var req transport.CreateReclamationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}

	result, err := h.svc.Create(c.Request.Context(), identity.UserID().String(), req)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.Created(c, result)
}

// List retrieves reclamations with optional filters.
// GET /api/v1/reclamations
func (h *Handler) List(c *gin.Context) {
	var req transport.ListReclamationsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	result, err := h.svc.List(c.Request.Context(), req)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

// Get retrieves a reclamation with its SLA standing.
// GET /api/v1/reclamations/:id
func (h *Handler) Get(c *gin.Context) {
	id, ok := h.parseID(c)
	if !ok {
		return
	}

	result, err := h.svc.Get(c.Request.Context(), id)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

// History retrieves the audit trail of a reclamation.
// GET /api/v1/reclamations/:id/history
func (h *Handler) History(c *gin.Context) {
	id, ok := h.parseID(c)
	if !ok {
		return
	}

	result, err := h.svc.History(c.Request.Context(), id)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

// Alerts retrieves the SLA alerts raised for a reclamation.
// GET /api/v1/reclamations/:id/alerts
func (h *Handler) Alerts(c *gin.Context) {
	id, ok := h.parseID(c)
	if !ok {
		return
	}

	result, err := h.svc.Alerts(c.Request.Context(), id)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

// SLAStatus retrieves the current SLA standing of a reclamation.
// GET /api/v1/reclamations/:id/sla
func (h *Handler) SLAStatus(c *gin.Context) {
	id, ok := h.parseID(c)
	if !ok {
		return
	}

	result, err := h.svc.SLAStatus(c.Request.Context(), id)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

// Transition applies a lifecycle transition. Closing a reclamation is a
// supervisory action.
// POST /api/v1/reclamations/:id/transition
func (h *Handler) Transition(c *gin.Context) {
	id, ok := h.parseID(c)
	if !ok {
		return
	}

	var req transport.TransitionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}

	if target, ok := domain.Normalize(req.TargetStatus); ok && target == domain.StatusClosed {
		if !identity.HasRole(RoleSupervisor) {
			httpkit.Error(c, http.StatusForbidden, "closing a reclamation requires supervisor role", nil)
			return
		}
	}

	result, err := h.svc.Transition(c.Request.Context(), id, identity.UserID().String(), req)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

// Assign routes a reclamation to a worker.
// POST /api/v1/reclamations/:id/assign
func (h *Handler) Assign(c *gin.Context) {
	id, ok := h.parseID(c)
	if !ok {
		return
	}

	var req transport.AssignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}

	result, err := h.svc.Assign(c.Request.Context(), id, identity.UserID().String(), req)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

// BulkReassign moves all open items of one worker.
// POST /api/v1/reclamations/bulk-reassign
func (h *Handler) BulkReassign(c *gin.Context) {
	var req transport.BulkReassignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}

	result, err := h.svc.BulkReassign(c.Request.Context(), identity.UserID().String(), req)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

// Corbeille returns the team-wide dashboard view.
// GET /api/v1/reclamations/corbeille
func (h *Handler) Corbeille(c *gin.Context) {
	result, err := h.svc.Corbeille(c.Request.Context())
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

// PersonalCorbeille returns the calling worker's view.
// GET /api/v1/reclamations/corbeille/personal
func (h *Handler) PersonalCorbeille(c *gin.Context) {
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}

	result, err := h.svc.PersonalCorbeille(c.Request.Context(), identity.UserID())
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

// RunMonitorTick triggers an SLA monitoring pass outside the schedule,
// evaluated at the current instant.
// POST /api/v1/reclamations/monitor/tick
func (h *Handler) RunMonitorTick(c *gin.Context) {
	result, err := h.svc.RunMonitorTick(c.Request.Context(), time.Time{})
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

func (h *Handler) parseID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidID, nil)
		return uuid.Nil, false
	}
	return id, true
}
