package service

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/helpdesk-br/helpdesk-service/internal/auth"
	"github.com/helpdesk-br/helpdesk-service/internal/domain"
	"github.com/helpdesk-br/helpdesk-service/internal/repository"
	"github.com/helpdesk-br/helpdesk-service/internal/worker"
)

type fakeResetRepo struct {
	tokens map[string]repository.PasswordResetToken
}

func newFakeResetRepo() *fakeResetRepo {
	return &fakeResetRepo{tokens: make(map[string]repository.PasswordResetToken)}
}

func (r *fakeResetRepo) Create(_ context.Context, token *repository.PasswordResetToken) error {
	token.ID = fmt.Sprintf("reset-%d", len(r.tokens)+1)
	token.CreatedAt = time.Now()
	r.tokens[token.Token] = *token
	return nil
}

func (r *fakeResetRepo) GetByToken(_ context.Context, tokenStr string) (*repository.PasswordResetToken, error) {
	token, ok := r.tokens[tokenStr]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &token, nil
}

func (r *fakeResetRepo) MarkUsed(_ context.Context, id string) error {
	for key, token := range r.tokens {
		if token.ID == id {
			usedAt := time.Now()
			token.UsedAt = &usedAt
			r.tokens[key] = token
			return nil
		}
	}
	return pgx.ErrNoRows
}

func newUserService(users *fakeUserRepo, resets *fakeResetRepo) *UserService {
	return NewUserService(UserDependencies{
		UserRepo:          users,
		PasswordResetRepo: resets,
		Tokens:            auth.NewTokenManager("test-secret", 60),
		BcryptCost:        4,
		ResetTTL:          30 * time.Minute,
		Clock:             func() time.Time { return testNow },
	})
}

func TestRegisterForcesUserRole(t *testing.T) {
	users := newFakeUserRepo()
	svc := newUserService(users, newFakeResetRepo())

	result, err := svc.Register(context.Background(), RegisterInput{
		Name:     "Carla",
		Email:    "Carla@Example.com",
		Password: "s3nh4-f0rte",
	})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if result.User.Role != domain.RoleUser {
		t.Errorf("role = %q, signup must never grant staff roles", result.User.Role)
	}
	if result.User.Email != "carla@example.com" {
		t.Errorf("email = %q, want normalized lowercase", result.User.Email)
	}
	if result.Token == "" {
		t.Errorf("expected a session token")
	}
	if result.User.PasswordHash == "s3nh4-f0rte" {
		t.Errorf("password stored in plaintext")
	}
}

func TestRegisterDuplicateEmail(t *testing.T) {
	users := newFakeUserRepo(domain.User{ID: "u1", Email: "carla@example.com", Role: domain.RoleUser})
	svc := newUserService(users, newFakeResetRepo())

	_, err := svc.Register(context.Background(), RegisterInput{Name: "Carla", Email: "carla@example.com", Password: "x1y2z3"})
	if domainCode(err) != "CONFLICT" {
		t.Fatalf("code = %q, want CONFLICT", domainCode(err))
	}
}

func TestLogin(t *testing.T) {
	users := newFakeUserRepo()
	svc := newUserService(users, newFakeResetRepo())
	if _, err := svc.Register(context.Background(), RegisterInput{Name: "Carla", Email: "carla@example.com", Password: "segredo1"}); err != nil {
		t.Fatalf("seed register: %v", err)
	}

	if _, err := svc.Login(context.Background(), "carla@example.com", "segredo1"); err != nil {
		t.Fatalf("login with right password: %v", err)
	}
	if _, err := svc.Login(context.Background(), "carla@example.com", "errada"); domainCode(err) != "UNAUTHORIZED" {
		t.Errorf("wrong password: code = %q, want UNAUTHORIZED", domainCode(err))
	}
	if _, err := svc.Login(context.Background(), "ninguem@example.com", "segredo1"); domainCode(err) != "UNAUTHORIZED" {
		t.Errorf("unknown email: code = %q, want UNAUTHORIZED", domainCode(err))
	}
}

func TestCreateUserAdminOnly(t *testing.T) {
	admin := domain.User{ID: "a1", Email: "ana@example.com", Role: domain.RoleAdmin}
	support := domain.User{ID: "s1", Email: "bruno@example.com", Role: domain.RoleSupport}
	users := newFakeUserRepo(admin, support)
	svc := newUserService(users, newFakeResetRepo())

	input := AdminCreateUserInput{Name: "Novo", Email: "novo@example.com", Password: "abc123", Role: domain.RoleSupport}
	if _, err := svc.CreateUser(context.Background(), &support, input); domainCode(err) != "FORBIDDEN" {
		t.Errorf("support provisioning: code = %q, want FORBIDDEN", domainCode(err))
	}
	created, err := svc.CreateUser(context.Background(), &admin, input)
	if err != nil {
		t.Fatalf("admin provisioning: %v", err)
	}
	if created.Role != domain.RoleSupport {
		t.Errorf("role = %q, want support", created.Role)
	}
}

func TestUpdateUserRoleChangeAdminOnly(t *testing.T) {
	admin := domain.User{ID: "a1", Email: "ana@example.com", Role: domain.RoleAdmin}
	target := domain.User{ID: "u1", Name: "Carla", Email: "carla@example.com", Role: domain.RoleUser}
	users := newFakeUserRepo(admin, target)
	svc := newUserService(users, newFakeResetRepo())

	supportRole := domain.RoleSupport
	if _, err := svc.UpdateUser(context.Background(), &target, target.ID, UserUpdateInput{Role: &supportRole}); domainCode(err) != "FORBIDDEN" {
		t.Errorf("self promotion: code = %q, want FORBIDDEN", domainCode(err))
	}
	updated, err := svc.UpdateUser(context.Background(), &admin, target.ID, UserUpdateInput{Role: &supportRole})
	if err != nil {
		t.Fatalf("admin role change: %v", err)
	}
	if updated.Role != domain.RoleSupport {
		t.Errorf("role = %q, want support", updated.Role)
	}
}

func TestDeleteUserRules(t *testing.T) {
	admin := domain.User{ID: "a1", Email: "ana@example.com", Role: domain.RoleAdmin}
	support := domain.User{ID: "s1", Email: "bruno@example.com", Role: domain.RoleSupport}
	target := domain.User{ID: "u1", Email: "carla@example.com", Role: domain.RoleUser}
	users := newFakeUserRepo(admin, support, target)
	svc := newUserService(users, newFakeResetRepo())

	if err := svc.DeleteUser(context.Background(), &support, target.ID); domainCode(err) != "FORBIDDEN" {
		t.Errorf("support delete: code = %q, want FORBIDDEN", domainCode(err))
	}
	if err := svc.DeleteUser(context.Background(), &admin, admin.ID); domainCode(err) != "VALIDATION_FAILED" {
		t.Errorf("self delete: code = %q, want VALIDATION_FAILED", domainCode(err))
	}
	if err := svc.DeleteUser(context.Background(), &admin, target.ID); err != nil {
		t.Fatalf("admin delete: %v", err)
	}
	if err := svc.DeleteUser(context.Background(), &admin, target.ID); domainCode(err) != "NOT_FOUND" {
		t.Errorf("double delete: code = %q, want NOT_FOUND", domainCode(err))
	}
}

func TestPasswordResetFlow(t *testing.T) {
	users := newFakeUserRepo()
	resets := newFakeResetRepo()
	svc := newUserService(users, resets)
	if _, err := svc.Register(context.Background(), RegisterInput{Name: "Carla", Email: "carla@example.com", Password: "antiga1"}); err != nil {
		t.Fatalf("seed register: %v", err)
	}

	// Unknown emails are silently accepted.
	token, err := svc.RequestPasswordReset(context.Background(), "ninguem@example.com")
	if err != nil || token != "" {
		t.Fatalf("unknown email: token=%q err=%v, want empty and nil", token, err)
	}

	token, err = svc.RequestPasswordReset(context.Background(), "carla@example.com")
	if err != nil || token == "" {
		t.Fatalf("reset request: token=%q err=%v", token, err)
	}

	if err := svc.ResetPassword(context.Background(), "token-falso", "nova123"); domainCode(err) != "VALIDATION_FAILED" {
		t.Errorf("bogus token: code = %q, want VALIDATION_FAILED", domainCode(err))
	}
	if err := svc.ResetPassword(context.Background(), token, "nova123"); err != nil {
		t.Fatalf("reset: %v", err)
	}
	if _, err := svc.Login(context.Background(), "carla@example.com", "nova123"); err != nil {
		t.Fatalf("login with new password: %v", err)
	}
	if _, err := svc.Login(context.Background(), "carla@example.com", "antiga1"); domainCode(err) != "UNAUTHORIZED" {
		t.Errorf("old password must stop working")
	}
	// Tokens are single use.
	if err := svc.ResetPassword(context.Background(), token, "outra99"); domainCode(err) != "VALIDATION_FAILED" {
		t.Errorf("reused token: code = %q, want VALIDATION_FAILED", domainCode(err))
	}
}

func TestPasswordResetExpiredToken(t *testing.T) {
	users := newFakeUserRepo()
	resets := newFakeResetRepo()
	svc := newUserService(users, resets)
	if _, err := svc.Register(context.Background(), RegisterInput{Name: "Carla", Email: "carla@example.com", Password: "antiga1"}); err != nil {
		t.Fatalf("seed register: %v", err)
	}
	token, err := svc.RequestPasswordReset(context.Background(), "carla@example.com")
	if err != nil {
		t.Fatalf("reset request: %v", err)
	}

	// Age the token past its window.
	stored := resets.tokens[token]
	stored.ExpiresAt = testNow.Add(-time.Minute)
	resets.tokens[token] = stored

	if err := svc.ResetPassword(context.Background(), token, "nova123"); domainCode(err) != "VALIDATION_FAILED" {
		t.Fatalf("expired token: code = %q, want VALIDATION_FAILED", domainCode(err))
	}
}

func TestChangePassword(t *testing.T) {
	users := newFakeUserRepo()
	svc := newUserService(users, newFakeResetRepo())
	result, err := svc.Register(context.Background(), RegisterInput{Name: "Carla", Email: "carla@example.com", Password: "antiga1"})
	if err != nil {
		t.Fatalf("seed register: %v", err)
	}

	if err := svc.ChangePassword(context.Background(), result.User, "errada", "nova123"); domainCode(err) != "UNAUTHORIZED" {
		t.Errorf("wrong current password: code = %q, want UNAUTHORIZED", domainCode(err))
	}
	if err := svc.ChangePassword(context.Background(), result.User, "antiga1", "nova123"); err != nil {
		t.Fatalf("change password: %v", err)
	}
	if _, err := svc.Login(context.Background(), "carla@example.com", "nova123"); err != nil {
		t.Fatalf("login with new password: %v", err)
	}
}

func TestPasswordResetTokenDelivered(t *testing.T) {
	users := newFakeUserRepo()
	resets := newFakeResetRepo()
	outbox := make(chan worker.Notification, 1)
	queue := worker.NewNotificationWorker(4, 1, func(_ context.Context, n worker.Notification) error {
		outbox <- n
		return nil
	}, nil)
	queue.Start(context.Background())
	defer queue.Stop()

	svc := NewUserService(UserDependencies{
		UserRepo:          users,
		PasswordResetRepo: resets,
		Tokens:            auth.NewTokenManager("test-secret", 60),
		Notifications:     queue,
		BcryptCost:        4,
		ResetTTL:          30 * time.Minute,
		Clock:             func() time.Time { return testNow },
	})
	if _, err := svc.Register(context.Background(), RegisterInput{Name: "Carla", Email: "carla@example.com", Password: "antiga1"}); err != nil {
		t.Fatalf("seed register: %v", err)
	}

	token, err := svc.RequestPasswordReset(context.Background(), "carla@example.com")
	if err != nil || token == "" {
		t.Fatalf("reset request: token=%q err=%v", token, err)
	}

	var notification worker.Notification
	select {
	case notification = <-outbox:
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for the reset notification")
	}
	if notification.Recipient != "carla@example.com" {
		t.Errorf("recipient = %q, want the account email", notification.Recipient)
	}
	if !strings.Contains(notification.Body, token) {
		t.Errorf("notification body does not carry the reset token")
	}

	// The delivered token completes the flow.
	if err := svc.ResetPassword(context.Background(), token, "nova123"); err != nil {
		t.Fatalf("reset with delivered token: %v", err)
	}
	if _, err := svc.Login(context.Background(), "carla@example.com", "nova123"); err != nil {
		t.Fatalf("login with new password: %v", err)
	}
}
