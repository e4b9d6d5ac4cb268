package domain

import "time"

// TicketStatus enumerates lifecycle states for tickets.
type TicketStatus string

const (
	TicketStatusNew        TicketStatus = "novo"
	TicketStatusOpen       TicketStatus = "aberto"
	TicketStatusInProgress TicketStatus = "em andamento"
	TicketStatusPending    TicketStatus = "pendente"
	TicketStatusResolved   TicketStatus = "resolvido"
	TicketStatusClosed     TicketStatus = "fechado"
	TicketStatusCancelled  TicketStatus = "cancelado"
)

// Valid reports whether the status is a known lifecycle state.
func (s TicketStatus) Valid() bool {
	switch s {
	case TicketStatusNew, TicketStatusOpen, TicketStatusInProgress,
		TicketStatusPending, TicketStatusResolved, TicketStatusClosed,
		TicketStatusCancelled:
		return true
	}
	return false
}

// IsComplete reports whether the status counts as done for the
// completedAt derivation rule.
func (s TicketStatus) IsComplete() bool {
	return s == TicketStatusResolved || s == TicketStatusClosed
}

// TicketPriority enumerates urgency levels shared by tickets and categories.
type TicketPriority string

const (
	TicketPriorityLow      TicketPriority = "baixa"
	TicketPriorityMedium   TicketPriority = "média"
	TicketPriorityHigh     TicketPriority = "alta"
	TicketPriorityCritical TicketPriority = "crítica"
)

// Valid reports whether the priority is a known level.
func (p TicketPriority) Valid() bool {
	switch p {
	case TicketPriorityLow, TicketPriorityMedium, TicketPriorityHigh, TicketPriorityCritical:
		return true
	}
	return false
}

// Ticket is the aggregate for support requests.
//
// Invariant maintained by the lifecycle engine: CompletedAt is set exactly
// when Status is resolvido or fechado, and cleared whenever the status
// leaves that set.
type Ticket struct {
	ID          string
	Title       string
	Description string
	Status      TicketStatus
	Priority    TicketPriority
	RequesterID string
	AssigneeID  *string
	CategoryID  string
	DueDate     time.Time
	CompletedAt *time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Comment captures a thread entry on a ticket. Private comments are
// visible to staff only.
type Comment struct {
	ID        string
	TicketID  string
	AuthorID  string
	Content   string
	IsPrivate bool
	CreatedAt time.Time
}
