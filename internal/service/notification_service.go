package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/helpdesk-br/helpdesk-service/internal/events"
	"github.com/helpdesk-br/helpdesk-service/internal/repository"
	"github.com/helpdesk-br/helpdesk-service/internal/worker"
)

// NotificationService listens to ticket events and enqueues outbound
// messages for the affected parties. Delivery is best effort; failures are
// logged by the worker and never surface to the request path.
type NotificationService struct {
	tickets repository.TicketRepository
	users   repository.UserRepository
	queue   *worker.NotificationWorker
	logger  *zap.Logger
}

// NewNotificationService constructs the service.
func NewNotificationService(tickets repository.TicketRepository, users repository.UserRepository, queue *worker.NotificationWorker, logger *zap.Logger) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NotificationService{tickets: tickets, users: users, queue: queue, logger: logger}
}

// Register subscribes the service to the ticket event stream.
func (s *NotificationService) Register(dispatcher events.Dispatcher) {
	dispatcher.Subscribe(events.EventTicketCreated, s.onTicketCreated)
	dispatcher.Subscribe(events.EventTicketStatusChanged, s.onStatusChanged)
	dispatcher.Subscribe(events.EventTicketAssigned, s.onAssigned)
	dispatcher.Subscribe(events.EventTicketCommentAdded, s.onCommentAdded)
}

func (s *NotificationService) onTicketCreated(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.TicketCreatedPayload)
	if !ok {
		return nil
	}
	email, err := s.userEmail(ctx, event.Actor.UserID)
	if err != nil || email == "" {
		return nil
	}
	s.queue.Enqueue(worker.Notification{
		Recipient: email,
		Subject:   "Ticket received",
		Body:      fmt.Sprintf("Your ticket %q was created and is due by %s.", payload.Title, payload.DueDate.Format("2006-01-02 15:04")),
	})
	return nil
}

func (s *NotificationService) onStatusChanged(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.TicketStatusChangedPayload)
	if !ok {
		return nil
	}
	email, err := s.requesterEmail(ctx, event.TicketID)
	if err != nil || email == "" {
		return nil
	}
	s.queue.Enqueue(worker.Notification{
		Recipient: email,
		Subject:   "Ticket status updated",
		Body:      fmt.Sprintf("Your ticket moved from %s to %s.", payload.OldStatus, payload.NewStatus),
	})
	return nil
}

func (s *NotificationService) onAssigned(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.TicketAssignedPayload)
	if !ok || payload.AssigneeUserID == nil {
		return nil
	}
	email, err := s.userEmail(ctx, *payload.AssigneeUserID)
	if err != nil || email == "" {
		return nil
	}
	s.queue.Enqueue(worker.Notification{
		Recipient: email,
		Subject:   "Ticket assigned to you",
		Body:      fmt.Sprintf("Ticket %s was assigned to you.", event.TicketID),
	})
	return nil
}

func (s *NotificationService) onCommentAdded(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.TicketCommentAddedPayload)
	if !ok || payload.IsPrivate {
		return nil
	}
	email, err := s.requesterEmail(ctx, event.TicketID)
	if err != nil || email == "" {
		return nil
	}
	// The requester wrote the comment themselves, nothing to announce.
	if payload.AuthorID == event.Actor.UserID {
		ticket, err := s.tickets.GetByID(ctx, event.TicketID)
		if err == nil && ticket.RequesterID == payload.AuthorID {
			return nil
		}
	}
	s.queue.Enqueue(worker.Notification{
		Recipient: email,
		Subject:   "New comment on your ticket",
		Body:      payload.ContentPreview,
	})
	return nil
}

func (s *NotificationService) requesterEmail(ctx context.Context, ticketID string) (string, error) {
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		if !errors.Is(err, pgx.ErrNoRows) {
			s.logger.Warn("notification ticket lookup failed", zap.String("ticket_id", ticketID), zap.Error(err))
		}
		return "", err
	}
	return s.userEmail(ctx, ticket.RequesterID)
}

func (s *NotificationService) userEmail(ctx context.Context, userID string) (string, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if !errors.Is(err, pgx.ErrNoRows) {
			s.logger.Warn("notification user lookup failed", zap.String("user_id", userID), zap.Error(err))
		}
		return "", err
	}
	return user.Email, nil
}
