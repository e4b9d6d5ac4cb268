package service

import (
	"context"
	"testing"
	"time"

	"github.com/helpdesk-br/helpdesk-service/internal/domain"
	"github.com/helpdesk-br/helpdesk-service/internal/events"
)

var testNow = time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)

type ticketFixture struct {
	service    *TicketService
	tickets    *fakeTicketRepo
	comments   *fakeCommentRepo
	history    *fakeHistoryRepo
	dispatcher *fakeDispatcher

	admin     *domain.User
	support   *domain.User
	requester *domain.User
	other     *domain.User
}

func newTicketFixture() *ticketFixture {
	admin := domain.User{ID: "admin-1", Name: "Ana", Email: "ana@example.com", Role: domain.RoleAdmin}
	support := domain.User{ID: "support-1", Name: "Bruno", Email: "bruno@example.com", Role: domain.RoleSupport}
	requester := domain.User{ID: "user-1", Name: "Carla", Email: "carla@example.com", Role: domain.RoleUser}
	other := domain.User{ID: "user-2", Name: "Davi", Email: "davi@example.com", Role: domain.RoleUser}

	tickets := newFakeTicketRepo()
	comments := &fakeCommentRepo{}
	history := &fakeHistoryRepo{}
	dispatcher := &fakeDispatcher{}
	categories := newFakeCategoryRepo(
		domain.Category{ID: "cat-rede", Name: "Rede", Priority: domain.TicketPriorityHigh, SLAHours: 8, IsActive: true},
		domain.Category{ID: "cat-hw", Name: "Hardware", Priority: domain.TicketPriorityMedium, SLAHours: 24, IsActive: true},
	)
	users := newFakeUserRepo(admin, support, requester, other)

	svc := NewTicketService(TicketDependencies{
		TicketRepo:   tickets,
		CommentRepo:  comments,
		CategoryRepo: categories,
		UserRepo:     users,
		HistoryRepo:  history,
		Dispatcher:   dispatcher,
		Clock:        func() time.Time { return testNow },
	})
	return &ticketFixture{
		service:    svc,
		tickets:    tickets,
		comments:   comments,
		history:    history,
		dispatcher: dispatcher,
		admin:      &admin,
		support:    &support,
		requester:  &requester,
		other:      &other,
	}
}

func (f *ticketFixture) seedTicket(status domain.TicketStatus) *domain.Ticket {
	ticket := domain.Ticket{
		ID:          "ticket-seed",
		Title:       "VPN fora do ar",
		Description: "Sem acesso desde cedo",
		Status:      status,
		Priority:    domain.TicketPriorityHigh,
		RequesterID: f.requester.ID,
		CategoryID:  "cat-rede",
		DueDate:     testNow.Add(8 * time.Hour),
		CreatedAt:   testNow.Add(-2 * time.Hour),
		UpdatedAt:   testNow.Add(-2 * time.Hour),
	}
	if status.IsComplete() {
		completedAt := testNow.Add(-time.Hour)
		ticket.CompletedAt = &completedAt
	}
	f.tickets.put(ticket)
	return &ticket
}

func TestCreateTicketInheritsCategoryDefaults(t *testing.T) {
	f := newTicketFixture()

	ticket, err := f.service.CreateTicket(context.Background(), f.requester, TicketCreateInput{
		Title:       "Sem rede no terceiro andar",
		Description: "Switch parece desligado",
		CategoryID:  "cat-rede",
	})
	if err != nil {
		t.Fatalf("CreateTicket: %v", err)
	}
	if ticket.Status != domain.TicketStatusNew {
		t.Errorf("status = %q, want %q", ticket.Status, domain.TicketStatusNew)
	}
	if ticket.Priority != domain.TicketPriorityHigh {
		t.Errorf("priority = %q, want inherited %q", ticket.Priority, domain.TicketPriorityHigh)
	}
	if want := testNow.Add(8 * time.Hour); !ticket.DueDate.Equal(want) {
		t.Errorf("due date = %v, want %v", ticket.DueDate, want)
	}
	if ticket.CompletedAt != nil {
		t.Errorf("completedAt should be nil on creation")
	}
	if created := f.dispatcher.ofType(events.EventTicketCreated); len(created) != 1 {
		t.Errorf("expected one created event, got %d", len(created))
	}
}

func TestCreateTicketExplicitPriorityWins(t *testing.T) {
	f := newTicketFixture()

	ticket, err := f.service.CreateTicket(context.Background(), f.requester, TicketCreateInput{
		Title:       "Mouse quebrado",
		Description: "Botão esquerdo falhando",
		CategoryID:  "cat-hw",
		Priority:    domain.TicketPriorityLow,
	})
	if err != nil {
		t.Fatalf("CreateTicket: %v", err)
	}
	if ticket.Priority != domain.TicketPriorityLow {
		t.Errorf("priority = %q, want %q", ticket.Priority, domain.TicketPriorityLow)
	}
}

func TestCreateTicketUnknownCategory(t *testing.T) {
	f := newTicketFixture()

	_, err := f.service.CreateTicket(context.Background(), f.requester, TicketCreateInput{
		Title:       "Teste",
		Description: "Teste",
		CategoryID:  "missing",
	})
	if code := domainCode(err); code != "NOT_FOUND" {
		t.Fatalf("error code = %q, want NOT_FOUND", code)
	}
}

func TestUpdateTicketStatusIgnoredForRequester(t *testing.T) {
	f := newTicketFixture()
	seeded := f.seedTicket(domain.TicketStatusOpen)

	newTitle := "VPN fora do ar (atualizado)"
	resolved := domain.TicketStatusResolved
	ticket, err := f.service.UpdateTicket(context.Background(), f.requester, seeded.ID, TicketUpdateInput{
		Title:  &newTitle,
		Status: &resolved,
	})
	if err != nil {
		t.Fatalf("UpdateTicket: %v", err)
	}
	if ticket.Title != newTitle {
		t.Errorf("title not applied")
	}
	if ticket.Status != domain.TicketStatusOpen {
		t.Errorf("status = %q, requester status change must be ignored", ticket.Status)
	}
	if len(f.history.entries) != 0 {
		t.Errorf("no history should be recorded for an ignored status change")
	}
}

func TestUpdateTicketStatusLockedForRequester(t *testing.T) {
	f := newTicketFixture()

	for _, status := range []domain.TicketStatus{
		domain.TicketStatusInProgress,
		domain.TicketStatusResolved,
		domain.TicketStatusClosed,
		domain.TicketStatusCancelled,
	} {
		f.seedTicket(status)
		title := "tentativa"
		_, err := f.service.UpdateTicket(context.Background(), f.requester, "ticket-seed", TicketUpdateInput{Title: &title})
		if code := domainCode(err); code != "FORBIDDEN" {
			t.Errorf("status %q: error code = %q, want FORBIDDEN", status, code)
		}
	}
}

func TestUpdateTicketForeignTicketForbidden(t *testing.T) {
	f := newTicketFixture()
	seeded := f.seedTicket(domain.TicketStatusOpen)

	title := "invasao"
	_, err := f.service.UpdateTicket(context.Background(), f.other, seeded.ID, TicketUpdateInput{Title: &title})
	if code := domainCode(err); code != "FORBIDDEN" {
		t.Fatalf("error code = %q, want FORBIDDEN", code)
	}
}

func TestUpdateTicketAssignRules(t *testing.T) {
	f := newTicketFixture()
	seeded := f.seedTicket(domain.TicketStatusOpen)

	assignee := f.support.ID
	if _, err := f.service.UpdateTicket(context.Background(), f.requester, seeded.ID, TicketUpdateInput{AssigneeID: &assignee}); domainCode(err) != "FORBIDDEN" {
		t.Errorf("requester assigning: code = %q, want FORBIDDEN", domainCode(err))
	}

	missing := "ghost"
	if _, err := f.service.UpdateTicket(context.Background(), f.admin, seeded.ID, TicketUpdateInput{AssigneeID: &missing}); domainCode(err) != "NOT_FOUND" {
		t.Errorf("unknown assignee: code = %q, want NOT_FOUND", domainCode(err))
	}

	plainUser := f.other.ID
	if _, err := f.service.UpdateTicket(context.Background(), f.admin, seeded.ID, TicketUpdateInput{AssigneeID: &plainUser}); domainCode(err) != "VALIDATION_FAILED" {
		t.Errorf("non-staff assignee: code = %q, want VALIDATION_FAILED", domainCode(err))
	}

	ticket, err := f.service.UpdateTicket(context.Background(), f.admin, seeded.ID, TicketUpdateInput{AssigneeID: &assignee})
	if err != nil {
		t.Fatalf("assign to staff: %v", err)
	}
	if ticket.AssigneeID == nil || *ticket.AssigneeID != assignee {
		t.Fatalf("assignee not applied")
	}
	if assigned := f.dispatcher.ofType(events.EventTicketAssigned); len(assigned) != 1 {
		t.Errorf("expected one assigned event, got %d", len(assigned))
	}
	if len(f.history.entries) != 1 || f.history.entries[0].ChangeType != domain.ChangeTypeAssignee {
		t.Errorf("assignee history entry missing")
	}
}

func TestUpdateTicketStatusDerivesCompletedAt(t *testing.T) {
	f := newTicketFixture()
	seeded := f.seedTicket(domain.TicketStatusInProgress)

	resolved := domain.TicketStatusResolved
	ticket, err := f.service.UpdateTicket(context.Background(), f.support, seeded.ID, TicketUpdateInput{Status: &resolved})
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if ticket.CompletedAt == nil || !ticket.CompletedAt.Equal(testNow) {
		t.Fatalf("completedAt = %v, want %v", ticket.CompletedAt, testNow)
	}

	open := domain.TicketStatusOpen
	ticket, err = f.service.UpdateTicket(context.Background(), f.support, seeded.ID, TicketUpdateInput{Status: &open})
	if err != nil {
		t.Fatalf("back to open: %v", err)
	}
	if ticket.CompletedAt != nil {
		t.Fatalf("completedAt must be cleared when leaving a complete status")
	}

	statusEvents := f.dispatcher.ofType(events.EventTicketStatusChanged)
	if len(statusEvents) != 2 {
		t.Errorf("expected two status events, got %d", len(statusEvents))
	}
	if len(f.history.entries) != 2 {
		t.Errorf("expected two history entries, got %d", len(f.history.entries))
	}
}

func TestCloseTicket(t *testing.T) {
	f := newTicketFixture()
	seeded := f.seedTicket(domain.TicketStatusOpen)

	ticket, err := f.service.CloseTicket(context.Background(), f.requester, seeded.ID)
	if err != nil {
		t.Fatalf("CloseTicket: %v", err)
	}
	if ticket.Status != domain.TicketStatusClosed {
		t.Errorf("status = %q, want fechado", ticket.Status)
	}
	if ticket.CompletedAt == nil || !ticket.CompletedAt.Equal(testNow) {
		t.Errorf("completedAt = %v, want %v", ticket.CompletedAt, testNow)
	}

	// Closing again is a no-op, no duplicate history.
	if _, err := f.service.CloseTicket(context.Background(), f.requester, seeded.ID); err != nil {
		t.Fatalf("second close: %v", err)
	}
	if len(f.history.entries) != 1 {
		t.Errorf("history entries = %d, want 1", len(f.history.entries))
	}
}

func TestCloseTicketForeignUserForbidden(t *testing.T) {
	f := newTicketFixture()
	seeded := f.seedTicket(domain.TicketStatusOpen)

	if _, err := f.service.CloseTicket(context.Background(), f.other, seeded.ID); domainCode(err) != "FORBIDDEN" {
		t.Fatalf("code = %q, want FORBIDDEN", domainCode(err))
	}
}

func TestReopenTicket(t *testing.T) {
	f := newTicketFixture()
	seeded := f.seedTicket(domain.TicketStatusClosed)

	ticket, err := f.service.ReopenTicket(context.Background(), f.requester, seeded.ID)
	if err != nil {
		t.Fatalf("ReopenTicket: %v", err)
	}
	if ticket.Status != domain.TicketStatusOpen {
		t.Errorf("status = %q, want aberto", ticket.Status)
	}
	if ticket.CompletedAt != nil {
		t.Errorf("completedAt must be cleared on reopen")
	}
}

func TestReopenTicketInvalidState(t *testing.T) {
	f := newTicketFixture()
	f.seedTicket(domain.TicketStatusOpen)

	if _, err := f.service.ReopenTicket(context.Background(), f.requester, "ticket-seed"); domainCode(err) != "INVALID_STATE" {
		t.Fatalf("code = %q, want INVALID_STATE", domainCode(err))
	}
}

func TestReopenStateCheckedBeforePermission(t *testing.T) {
	f := newTicketFixture()
	f.seedTicket(domain.TicketStatusOpen)

	// A foreign user reopening a non-complete ticket hits the state error
	// first, mirroring the API's 400-before-403 ordering.
	if _, err := f.service.ReopenTicket(context.Background(), f.other, "ticket-seed"); domainCode(err) != "INVALID_STATE" {
		t.Fatalf("code = %q, want INVALID_STATE", domainCode(err))
	}
}

func TestAddCommentRules(t *testing.T) {
	f := newTicketFixture()
	seeded := f.seedTicket(domain.TicketStatusOpen)

	if _, err := f.service.AddComment(context.Background(), f.requester, seeded.ID, "   ", false); domainCode(err) != "VALIDATION_FAILED" {
		t.Errorf("blank content: code = %q, want VALIDATION_FAILED", domainCode(err))
	}
	if _, err := f.service.AddComment(context.Background(), f.requester, seeded.ID, "nota interna", true); domainCode(err) != "FORBIDDEN" {
		t.Errorf("user private comment: code = %q, want FORBIDDEN", domainCode(err))
	}
	if _, err := f.service.AddComment(context.Background(), f.other, seeded.ID, "oi", false); domainCode(err) != "FORBIDDEN" {
		t.Errorf("foreign user comment: code = %q, want FORBIDDEN", domainCode(err))
	}

	comment, err := f.service.AddComment(context.Background(), f.support, seeded.ID, "verificando o switch", true)
	if err != nil {
		t.Fatalf("staff private comment: %v", err)
	}
	if !comment.IsPrivate {
		t.Errorf("comment should be private")
	}
	if added := f.dispatcher.ofType(events.EventTicketCommentAdded); len(added) != 1 {
		t.Errorf("expected one comment event, got %d", len(added))
	}
}

func TestGetTicketFiltersPrivateComments(t *testing.T) {
	f := newTicketFixture()
	seeded := f.seedTicket(domain.TicketStatusOpen)

	if _, err := f.service.AddComment(context.Background(), f.requester, seeded.ID, "ainda sem rede", false); err != nil {
		t.Fatalf("public comment: %v", err)
	}
	if _, err := f.service.AddComment(context.Background(), f.support, seeded.ID, "cliente complicado", true); err != nil {
		t.Fatalf("private comment: %v", err)
	}

	_, comments, _, err := f.service.GetTicket(context.Background(), f.requester, seeded.ID)
	if err != nil {
		t.Fatalf("GetTicket as requester: %v", err)
	}
	if len(comments) != 1 || comments[0].IsPrivate {
		t.Errorf("requester sees %d comments, want only the public one", len(comments))
	}

	_, comments, _, err = f.service.GetTicket(context.Background(), f.support, seeded.ID)
	if err != nil {
		t.Fatalf("GetTicket as staff: %v", err)
	}
	if len(comments) != 2 {
		t.Errorf("staff sees %d comments, want 2", len(comments))
	}

	if _, _, _, err := f.service.GetTicket(context.Background(), f.other, seeded.ID); domainCode(err) != "FORBIDDEN" {
		t.Errorf("foreign user view: code = %q, want FORBIDDEN", domainCode(err))
	}
}

func TestListTicketsScopesPlainUsers(t *testing.T) {
	f := newTicketFixture()
	f.tickets.put(domain.Ticket{ID: "t1", RequesterID: f.requester.ID, Status: domain.TicketStatusOpen, CreatedAt: testNow})
	f.tickets.put(domain.Ticket{ID: "t2", RequesterID: f.other.ID, Status: domain.TicketStatusOpen, CreatedAt: testNow})

	// A plain user cannot widen the scope with a requester filter.
	otherID := f.other.ID
	tickets, total, err := f.service.ListTickets(context.Background(), f.requester, TicketListFilter{RequesterID: &otherID})
	if err != nil {
		t.Fatalf("ListTickets: %v", err)
	}
	if total != 1 || len(tickets) != 1 || tickets[0].RequesterID != f.requester.ID {
		t.Fatalf("plain user listing must be scoped to own tickets, got %d", total)
	}

	// Staff may filter by any requester.
	tickets, total, err = f.service.ListTickets(context.Background(), f.support, TicketListFilter{RequesterID: &otherID})
	if err != nil {
		t.Fatalf("ListTickets staff: %v", err)
	}
	if total != 1 || tickets[0].RequesterID != f.other.ID {
		t.Fatalf("staff requester filter not honored")
	}
}

func TestDeleteTicketStaffOnly(t *testing.T) {
	f := newTicketFixture()
	seeded := f.seedTicket(domain.TicketStatusOpen)

	if err := f.service.DeleteTicket(context.Background(), f.requester, seeded.ID); domainCode(err) != "FORBIDDEN" {
		t.Fatalf("requester delete: code = %q, want FORBIDDEN", domainCode(err))
	}
	if err := f.service.DeleteTicket(context.Background(), f.admin, seeded.ID); err != nil {
		t.Fatalf("admin delete: %v", err)
	}
	if _, err := f.tickets.GetByID(context.Background(), seeded.ID); err == nil {
		t.Fatalf("ticket should be gone")
	}
	if deleted := f.dispatcher.ofType(events.EventTicketDeleted); len(deleted) != 1 {
		t.Errorf("expected one deleted event, got %d", len(deleted))
	}
}

func TestUpdateTicketRecordsPriorityAndCategoryHistory(t *testing.T) {
	f := newTicketFixture()
	seeded := f.seedTicket(domain.TicketStatusOpen)

	priority := domain.TicketPriorityCritical
	categoryID := "cat-hw"
	if _, err := f.service.UpdateTicket(context.Background(), f.support, seeded.ID, TicketUpdateInput{
		Priority:   &priority,
		CategoryID: &categoryID,
	}); err != nil {
		t.Fatalf("UpdateTicket: %v", err)
	}

	byType := make(map[domain.TicketChangeType]domain.TicketHistory)
	for _, entry := range f.history.entries {
		byType[entry.ChangeType] = entry
	}
	entry, ok := byType[domain.ChangeTypePriority]
	if !ok {
		t.Fatalf("priority change not recorded in history")
	}
	if entry.OldValue["priority"] != domain.TicketPriorityHigh || entry.NewValue["priority"] != domain.TicketPriorityCritical {
		t.Errorf("priority entry = %+v", entry)
	}
	entry, ok = byType[domain.ChangeTypeCategory]
	if !ok {
		t.Fatalf("category change not recorded in history")
	}
	if entry.OldValue["category"] != "cat-rede" || entry.NewValue["category"] != "cat-hw" {
		t.Errorf("category entry = %+v", entry)
	}

	// Setting the same values again must not append new entries.
	if _, err := f.service.UpdateTicket(context.Background(), f.support, seeded.ID, TicketUpdateInput{
		Priority:   &priority,
		CategoryID: &categoryID,
	}); err != nil {
		t.Fatalf("second update: %v", err)
	}
	if len(f.history.entries) != 2 {
		t.Errorf("history entries = %d, want 2", len(f.history.entries))
	}
}
