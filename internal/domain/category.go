package domain

import "time"

// DefaultSLAHours applies when a category does not specify an SLA window.
const DefaultSLAHours = 24

// Category classifies tickets and carries the defaults inherited at
// ticket creation: priority and the SLA window used for the due date.
type Category struct {
	ID          string
	Name        string
	Description string
	IsActive    bool
	Priority    TicketPriority
	SLAHours    int
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
