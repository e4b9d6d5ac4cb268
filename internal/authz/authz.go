// Package authz centralizes the permission matrix for ticket operations.
// Every lifecycle decision of role × action × ownership × status lives in
// one table so it can be tested in isolation instead of being scattered
// across handlers.
package authz

import (
	"github.com/helpdesk-br/helpdesk-service/internal/domain"
)

// Action identifies a ticket operation subject to authorization.
type Action string

const (
	ActionView           Action = "view"
	ActionUpdate         Action = "update"
	ActionComment        Action = "comment"
	ActionPrivateComment Action = "private_comment"
	ActionClose          Action = "close"
	ActionReopen         Action = "reopen"
	ActionDelete         Action = "delete"
	ActionAssign         Action = "assign"
	ActionSetStatus      Action = "set_status"
	ActionListAll        Action = "list_all"
	ActionViewMetrics    Action = "view_metrics"
)

// rule describes the conditions under which a role may perform an action.
type rule struct {
	ownerOnly bool
	statuses  []domain.TicketStatus // nil means any status
}

var anyTicket = rule{}

var ownTicket = rule{ownerOnly: true}

// userEditableStatuses are the states in which a requester may still edit
// their own ticket.
var userEditableStatuses = []domain.TicketStatus{
	domain.TicketStatusNew,
	domain.TicketStatusOpen,
	domain.TicketStatusPending,
}

var matrix = map[Action]map[domain.Role]rule{
	ActionView: {
		domain.RoleAdmin:   anyTicket,
		domain.RoleSupport: anyTicket,
		domain.RoleUser:    ownTicket,
	},
	ActionUpdate: {
		domain.RoleAdmin:   anyTicket,
		domain.RoleSupport: anyTicket,
		domain.RoleUser:    {ownerOnly: true, statuses: userEditableStatuses},
	},
	ActionComment: {
		domain.RoleAdmin:   anyTicket,
		domain.RoleSupport: anyTicket,
		domain.RoleUser:    ownTicket,
	},
	ActionPrivateComment: {
		domain.RoleAdmin:   anyTicket,
		domain.RoleSupport: anyTicket,
	},
	ActionClose: {
		domain.RoleAdmin:   anyTicket,
		domain.RoleSupport: anyTicket,
		domain.RoleUser:    ownTicket,
	},
	// State legality for reopen (fechado/resolvido only) is the lifecycle
	// engine's concern; the matrix only answers who may attempt it.
	ActionReopen: {
		domain.RoleAdmin:   anyTicket,
		domain.RoleSupport: anyTicket,
		domain.RoleUser:    ownTicket,
	},
	ActionDelete: {
		domain.RoleAdmin:   anyTicket,
		domain.RoleSupport: anyTicket,
	},
	ActionAssign: {
		domain.RoleAdmin:   anyTicket,
		domain.RoleSupport: anyTicket,
	},
	ActionSetStatus: {
		domain.RoleAdmin:   anyTicket,
		domain.RoleSupport: anyTicket,
	},
	ActionListAll: {
		domain.RoleAdmin:   anyTicket,
		domain.RoleSupport: anyTicket,
	},
	ActionViewMetrics: {
		domain.RoleAdmin:   anyTicket,
		domain.RoleSupport: anyTicket,
	},
}

// Allowed reports whether the role may perform the action on a ticket in
// the given status. isRequester states whether the actor owns the ticket.
func Allowed(role domain.Role, action Action, isRequester bool, status domain.TicketStatus) bool {
	roles, ok := matrix[action]
	if !ok {
		return false
	}
	r, ok := roles[role]
	if !ok {
		return false
	}
	if r.ownerOnly && !isRequester {
		return false
	}
	if r.statuses != nil {
		found := false
		for _, s := range r.statuses {
			if s == status {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

// AllowedForRole answers ticket-independent actions (listing scope,
// metrics access).
func AllowedForRole(role domain.Role, action Action) bool {
	roles, ok := matrix[action]
	if !ok {
		return false
	}
	r, ok := roles[role]
	if !ok {
		return false
	}
	return !r.ownerOnly
}
