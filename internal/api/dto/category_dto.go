package dto

import (
	"time"

	"github.com/helpdesk-br/helpdesk-service/internal/domain"
)

// CategoryRequest is the create/update payload.
type CategoryRequest struct {
	Name        string                `json:"name"`
	Description string                `json:"description"`
	IsActive    *bool                 `json:"is_active"`
	Priority    domain.TicketPriority `json:"priority"`
	SLAHours    int                   `json:"sla_hours"`
}

// CategoryResponse shape.
type CategoryResponse struct {
	ID          string                `json:"id"`
	Name        string                `json:"name"`
	Description string                `json:"description"`
	IsActive    bool                  `json:"is_active"`
	Priority    domain.TicketPriority `json:"priority"`
	SLAHours    int                   `json:"sla_hours"`
	CreatedAt   time.Time             `json:"created_at"`
	UpdatedAt   time.Time             `json:"updated_at"`
}
