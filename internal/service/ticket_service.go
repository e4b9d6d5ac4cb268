package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/helpdesk-br/helpdesk-service/internal/authz"
	"github.com/helpdesk-br/helpdesk-service/internal/domain"
	"github.com/helpdesk-br/helpdesk-service/internal/events"
	"github.com/helpdesk-br/helpdesk-service/internal/repository"
	apperrors "github.com/helpdesk-br/helpdesk-service/pkg/util"
)

// TicketService is the ticket lifecycle engine: it decides which
// transitions and field mutations each actor may perform and keeps the
// completedAt invariant on every status-changing write.
type TicketService struct {
	tickets    repository.TicketRepository
	comments   repository.CommentRepository
	categories repository.CategoryRepository
	users      repository.UserRepository
	history    repository.TicketHistoryRepository
	dispatcher events.Dispatcher
	now        func() time.Time
}

// TicketDependencies bundles collaborators for the ticket service.
type TicketDependencies struct {
	TicketRepo   repository.TicketRepository
	CommentRepo  repository.CommentRepository
	CategoryRepo repository.CategoryRepository
	UserRepo     repository.UserRepository
	HistoryRepo  repository.TicketHistoryRepository
	Dispatcher   events.Dispatcher
	Clock        func() time.Time
}

// TicketCreateInput describes ticket creation payload.
type TicketCreateInput struct {
	Title       string
	Description string
	CategoryID  string
	Priority    domain.TicketPriority
}

// TicketUpdateInput carries optional field mutations; nil means "leave as is".
type TicketUpdateInput struct {
	Title       *string
	Description *string
	Priority    *domain.TicketPriority
	CategoryID  *string
	Status      *domain.TicketStatus
	AssigneeID  *string
}

// TicketListFilter describes listing filters. RequesterID is honored for
// staff only; plain users are always scoped to their own tickets.
type TicketListFilter struct {
	Statuses    []domain.TicketStatus
	Priorities  []domain.TicketPriority
	CategoryID  *string
	AssigneeID  *string
	RequesterID *string
	SearchTerm  *string
	CreatedFrom *time.Time
	CreatedTo   *time.Time
	Limit       int
	Offset      int
}

// NewTicketService constructs the service.
func NewTicketService(deps TicketDependencies) *TicketService {
	now := deps.Clock
	if now == nil {
		now = time.Now
	}
	return &TicketService{
		tickets:    deps.TicketRepo,
		comments:   deps.CommentRepo,
		categories: deps.CategoryRepo,
		users:      deps.UserRepo,
		history:    deps.HistoryRepo,
		dispatcher: deps.Dispatcher,
		now:        now,
	}
}

// CreateTicket opens a new ticket for the actor. Priority falls back to the
// category default and the due date is derived from the category SLA window.
func (s *TicketService) CreateTicket(ctx context.Context, actor *domain.User, input TicketCreateInput) (*domain.Ticket, error) {
	title := strings.TrimSpace(input.Title)
	description := strings.TrimSpace(input.Description)
	if title == "" || description == "" {
		return nil, apperrors.NewValidationError("title and description are required", nil)
	}
	if input.CategoryID == "" {
		return nil, apperrors.NewValidationError("category is required", nil)
	}

	category, err := s.categories.GetByID(ctx, input.CategoryID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("category", map[string]any{"category_id": input.CategoryID})
		}
		return nil, apperrors.MapError(err)
	}

	priority := input.Priority
	if priority == "" {
		priority = category.Priority
	}
	if !priority.Valid() {
		return nil, apperrors.NewValidationError("invalid priority", map[string]any{"priority": priority})
	}

	slaHours := category.SLAHours
	if slaHours <= 0 {
		slaHours = domain.DefaultSLAHours
	}

	createdAt := s.now()
	ticket := &domain.Ticket{
		Title:       title,
		Description: description,
		Status:      domain.TicketStatusNew,
		Priority:    priority,
		RequesterID: actor.ID,
		CategoryID:  category.ID,
		DueDate:     createdAt.Add(time.Duration(slaHours) * time.Hour),
	}

	if err := s.tickets.Create(ctx, ticket); err != nil {
		return nil, apperrors.MapError(err)
	}
	s.publishEvent(ctx, actor, events.Event{
		Type:     events.EventTicketCreated,
		TicketID: ticket.ID,
		Payload: events.TicketCreatedPayload{
			CategoryID: ticket.CategoryID,
			Priority:   ticket.Priority,
			Title:      ticket.Title,
			DueDate:    ticket.DueDate,
		},
	})
	return ticket, nil
}

// GetTicket fetches a ticket with its comment thread and history, hiding
// private comments from plain users.
func (s *TicketService) GetTicket(ctx context.Context, actor *domain.User, ticketID string) (*domain.Ticket, []domain.Comment, []domain.TicketHistory, error) {
	ticket, err := s.fetchTicket(ctx, ticketID)
	if err != nil {
		return nil, nil, nil, err
	}
	if !authz.Allowed(actor.Role, authz.ActionView, ticket.RequesterID == actor.ID, ticket.Status) {
		return nil, nil, nil, apperrors.NewForbidden("you cannot view this ticket")
	}

	comments, err := s.comments.ListByTicket(ctx, ticket.ID)
	if err != nil {
		return nil, nil, nil, apperrors.MapError(err)
	}
	if !actor.Role.IsStaff() {
		comments = publicComments(comments)
	}

	history, err := s.history.ListByTicket(ctx, ticket.ID)
	if err != nil {
		return nil, nil, nil, apperrors.MapError(err)
	}
	return ticket, comments, history, nil
}

// ListTickets returns a filtered page of tickets plus the total match count.
// Plain users are forcibly scoped to tickets they requested.
func (s *TicketService) ListTickets(ctx context.Context, actor *domain.User, filter TicketListFilter) ([]domain.Ticket, int, error) {
	repoFilter := repository.TicketFilter{
		AssigneeID:  filter.AssigneeID,
		CategoryID:  filter.CategoryID,
		Statuses:    filter.Statuses,
		Priorities:  filter.Priorities,
		SearchTerm:  filter.SearchTerm,
		CreatedFrom: filter.CreatedFrom,
		CreatedTo:   filter.CreatedTo,
		Limit:       filter.Limit,
		Offset:      filter.Offset,
	}
	if authz.AllowedForRole(actor.Role, authz.ActionListAll) {
		repoFilter.RequesterID = filter.RequesterID
	} else {
		requesterID := actor.ID
		repoFilter.RequesterID = &requesterID
	}
	tickets, total, err := s.tickets.ListWithFilter(ctx, repoFilter)
	if err != nil {
		return nil, 0, apperrors.MapError(err)
	}
	return tickets, total, nil
}

// UpdateTicket applies gated field mutations. Status is applied for staff
// and silently ignored for plain users; supplying an assignee as a plain
// user is rejected outright.
func (s *TicketService) UpdateTicket(ctx context.Context, actor *domain.User, ticketID string, input TicketUpdateInput) (*domain.Ticket, error) {
	ticket, err := s.fetchTicket(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	isRequester := ticket.RequesterID == actor.ID

	if !authz.Allowed(actor.Role, authz.ActionUpdate, isRequester, ticket.Status) {
		if isRequester {
			return nil, apperrors.NewForbidden("ticket can no longer be edited in its current status")
		}
		return nil, apperrors.NewForbidden("you cannot update this ticket")
	}
	if input.AssigneeID != nil && !authz.Allowed(actor.Role, authz.ActionAssign, isRequester, ticket.Status) {
		return nil, apperrors.NewForbidden("you cannot assign tickets")
	}

	var assignee *domain.User
	if input.AssigneeID != nil {
		assignee, err = s.users.GetByID(ctx, *input.AssigneeID)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return nil, apperrors.NewNotFound("assignee", map[string]any{"user_id": *input.AssigneeID})
			}
			return nil, apperrors.MapError(err)
		}
		if !assignee.Role.IsStaff() {
			return nil, apperrors.NewValidationError("only staff can be assigned", map[string]any{"user_id": assignee.ID})
		}
	}
	if input.CategoryID != nil {
		if _, err := s.categories.GetByID(ctx, *input.CategoryID); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return nil, apperrors.NewNotFound("category", map[string]any{"category_id": *input.CategoryID})
			}
			return nil, apperrors.MapError(err)
		}
	}

	oldPriority := ticket.Priority
	oldCategory := ticket.CategoryID

	if input.Title != nil {
		title := strings.TrimSpace(*input.Title)
		if title == "" {
			return nil, apperrors.NewValidationError("title cannot be empty", nil)
		}
		ticket.Title = title
	}
	if input.Description != nil {
		description := strings.TrimSpace(*input.Description)
		if description == "" {
			return nil, apperrors.NewValidationError("description cannot be empty", nil)
		}
		ticket.Description = description
	}
	if input.Priority != nil {
		if !input.Priority.Valid() {
			return nil, apperrors.NewValidationError("invalid priority", map[string]any{"priority": *input.Priority})
		}
		ticket.Priority = *input.Priority
	}
	if input.CategoryID != nil {
		ticket.CategoryID = *input.CategoryID
	}

	oldStatus := ticket.Status
	statusChanged := false
	if input.Status != nil && authz.Allowed(actor.Role, authz.ActionSetStatus, isRequester, ticket.Status) {
		if !input.Status.Valid() {
			return nil, apperrors.NewValidationError("invalid status", map[string]any{"status": *input.Status})
		}
		if *input.Status != ticket.Status {
			s.applyStatus(ticket, *input.Status)
			statusChanged = true
		}
	}

	oldAssignee := ticket.AssigneeID
	assigneeChanged := false
	if assignee != nil && (oldAssignee == nil || *oldAssignee != assignee.ID) {
		assigneeID := assignee.ID
		ticket.AssigneeID = &assigneeID
		assigneeChanged = true
	}

	if err := s.tickets.Update(ctx, ticket); err != nil {
		return nil, apperrors.MapError(err)
	}

	if ticket.Priority != oldPriority {
		s.recordChange(ctx, actor.ID, ticket.ID, domain.ChangeTypePriority, "priority", oldPriority, ticket.Priority)
	}
	if ticket.CategoryID != oldCategory {
		s.recordChange(ctx, actor.ID, ticket.ID, domain.ChangeTypeCategory, "category", oldCategory, ticket.CategoryID)
	}
	if statusChanged {
		s.recordStatusChange(ctx, actor.ID, ticket.ID, oldStatus, ticket.Status)
		s.publishEvent(ctx, actor, events.Event{
			Type:     events.EventTicketStatusChanged,
			TicketID: ticket.ID,
			Payload: events.TicketStatusChangedPayload{
				OldStatus: oldStatus,
				NewStatus: ticket.Status,
			},
		})
	}
	if assigneeChanged {
		s.recordAssigneeChange(ctx, actor.ID, ticket.ID, oldAssignee, ticket.AssigneeID)
		s.publishEvent(ctx, actor, events.Event{
			Type:     events.EventTicketAssigned,
			TicketID: ticket.ID,
			Payload: events.TicketAssignedPayload{
				AssigneeUserID: ticket.AssigneeID,
			},
		})
	}
	return ticket, nil
}

// CloseTicket transitions the ticket to fechado and stamps completedAt.
// Closing an already closed or resolved ticket is idempotent.
func (s *TicketService) CloseTicket(ctx context.Context, actor *domain.User, ticketID string) (*domain.Ticket, error) {
	ticket, err := s.fetchTicket(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if !authz.Allowed(actor.Role, authz.ActionClose, ticket.RequesterID == actor.ID, ticket.Status) {
		return nil, apperrors.NewForbidden("you cannot close this ticket")
	}

	oldStatus := ticket.Status
	s.applyStatus(ticket, domain.TicketStatusClosed)
	if err := s.tickets.Update(ctx, ticket); err != nil {
		return nil, apperrors.MapError(err)
	}
	if oldStatus != ticket.Status {
		s.recordStatusChange(ctx, actor.ID, ticket.ID, oldStatus, ticket.Status)
		s.publishEvent(ctx, actor, events.Event{
			Type:     events.EventTicketStatusChanged,
			TicketID: ticket.ID,
			Payload: events.TicketStatusChangedPayload{
				OldStatus: oldStatus,
				NewStatus: ticket.Status,
			},
		})
	}
	return ticket, nil
}

// ReopenTicket transitions a closed or resolved ticket back to aberto and
// clears completedAt. State legality is checked before authorization,
// matching the API's response ordering.
func (s *TicketService) ReopenTicket(ctx context.Context, actor *domain.User, ticketID string) (*domain.Ticket, error) {
	ticket, err := s.fetchTicket(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if !ticket.Status.IsComplete() {
		return nil, apperrors.NewInvalidState("only closed or resolved tickets can be reopened")
	}
	if !authz.Allowed(actor.Role, authz.ActionReopen, ticket.RequesterID == actor.ID, ticket.Status) {
		return nil, apperrors.NewForbidden("you cannot reopen this ticket")
	}

	oldStatus := ticket.Status
	s.applyStatus(ticket, domain.TicketStatusOpen)
	if err := s.tickets.Update(ctx, ticket); err != nil {
		return nil, apperrors.MapError(err)
	}
	s.recordStatusChange(ctx, actor.ID, ticket.ID, oldStatus, ticket.Status)
	s.publishEvent(ctx, actor, events.Event{
		Type:     events.EventTicketStatusChanged,
		TicketID: ticket.ID,
		Payload: events.TicketStatusChangedPayload{
			OldStatus: oldStatus,
			NewStatus: ticket.Status,
		},
	})
	return ticket, nil
}

// AddComment appends a comment to the ticket thread. Private comments are
// restricted to staff; ticket status is untouched.
func (s *TicketService) AddComment(ctx context.Context, actor *domain.User, ticketID, content string, isPrivate bool) (*domain.Comment, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, apperrors.NewValidationError("comment content is required", nil)
	}
	if isPrivate && !authz.AllowedForRole(actor.Role, authz.ActionPrivateComment) {
		return nil, apperrors.NewForbidden("you cannot add private comments")
	}

	ticket, err := s.fetchTicket(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if !authz.Allowed(actor.Role, authz.ActionComment, ticket.RequesterID == actor.ID, ticket.Status) {
		return nil, apperrors.NewForbidden("you cannot comment on this ticket")
	}

	comment := &domain.Comment{
		TicketID:  ticket.ID,
		AuthorID:  actor.ID,
		Content:   content,
		IsPrivate: isPrivate,
	}
	if err := s.comments.Create(ctx, comment); err != nil {
		return nil, apperrors.MapError(err)
	}
	s.publishEvent(ctx, actor, events.Event{
		Type:     events.EventTicketCommentAdded,
		TicketID: ticket.ID,
		Payload: events.TicketCommentAddedPayload{
			CommentID:      comment.ID,
			AuthorID:       comment.AuthorID,
			IsPrivate:      comment.IsPrivate,
			ContentPreview: contentPreview(comment.Content, 120),
		},
	})
	return comment, nil
}

// DeleteTicket removes a ticket entirely. Staff only.
func (s *TicketService) DeleteTicket(ctx context.Context, actor *domain.User, ticketID string) error {
	ticket, err := s.fetchTicket(ctx, ticketID)
	if err != nil {
		return err
	}
	if !authz.Allowed(actor.Role, authz.ActionDelete, ticket.RequesterID == actor.ID, ticket.Status) {
		return apperrors.NewForbidden("you cannot delete this ticket")
	}
	if err := s.tickets.Delete(ctx, ticketID); err != nil {
		return apperrors.MapError(err)
	}
	s.publishEvent(ctx, actor, events.Event{
		Type:     events.EventTicketDeleted,
		TicketID: ticket.ID,
	})
	return nil
}

func (s *TicketService) fetchTicket(ctx context.Context, ticketID string) (*domain.Ticket, error) {
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("ticket", map[string]any{"ticket_id": ticketID})
		}
		return nil, apperrors.MapError(err)
	}
	return ticket, nil
}

// applyStatus sets the status and keeps the completedAt invariant:
// entering resolvido/fechado stamps it, leaving that set clears it.
func (s *TicketService) applyStatus(ticket *domain.Ticket, newStatus domain.TicketStatus) {
	ticket.Status = newStatus
	if newStatus.IsComplete() {
		completedAt := s.now()
		ticket.CompletedAt = &completedAt
	} else if ticket.CompletedAt != nil {
		ticket.CompletedAt = nil
	}
}

func publicComments(comments []domain.Comment) []domain.Comment {
	filtered := make([]domain.Comment, 0, len(comments))
	for _, comment := range comments {
		if comment.IsPrivate {
			continue
		}
		filtered = append(filtered, comment)
	}
	return filtered
}

func contentPreview(content string, max int) string {
	content = strings.TrimSpace(content)
	if len(content) <= max {
		return content
	}
	if max <= 3 {
		return content[:max]
	}
	return content[:max-3] + "..."
}

func (s *TicketService) publishEvent(ctx context.Context, actor *domain.User, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = s.now()
	}
	event.Actor = events.Actor{UserID: actor.ID, Role: actor.Role}
	_ = s.dispatcher.Publish(ctx, event)
}

// recordChange appends an audit trail entry. History write failures never
// fail the operation that triggered them.
func (s *TicketService) recordChange(ctx context.Context, actorID, ticketID string, changeType domain.TicketChangeType, field string, oldValue, newValue any) {
	if s.history == nil {
		return
	}
	entry := &domain.TicketHistory{
		TicketID:    ticketID,
		ChangedByID: actorID,
		ChangeType:  changeType,
		OldValue:    map[string]any{field: oldValue},
		NewValue:    map[string]any{field: newValue},
	}
	_ = s.history.Create(ctx, entry)
}

func (s *TicketService) recordStatusChange(ctx context.Context, actorID, ticketID string, oldStatus, newStatus domain.TicketStatus) {
	s.recordChange(ctx, actorID, ticketID, domain.ChangeTypeStatus, "status", oldStatus, newStatus)
}

func (s *TicketService) recordAssigneeChange(ctx context.Context, actorID, ticketID string, oldAssignee, newAssignee *string) {
	s.recordChange(ctx, actorID, ticketID, domain.ChangeTypeAssignee, "assignee", oldAssignee, newAssignee)
}
