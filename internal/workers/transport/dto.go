// Package transport defines the request/response DTOs for the workers module.
package transport

import (
	"time"

	"github.com/google/uuid"
)

// ListWorkersRequest is the query parameters for listing workers.
type ListWorkersRequest struct {
	Role       string  `form:"role"`
	Department *string `form:"department"`
}

// WorkerResponse is the response body for a worker.
type WorkerResponse struct {
	ID         uuid.UUID `json:"id"`
	FullName   string    `json:"fullName"`
	Email      string    `json:"email"`
	Role       string    `json:"role"`
	Department *string   `json:"department,omitempty"`
	Active     bool      `json:"active"`
	CreatedAt  time.Time `json:"createdAt"`
}
