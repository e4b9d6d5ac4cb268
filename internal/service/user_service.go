package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/helpdesk-br/helpdesk-service/internal/auth"
	"github.com/helpdesk-br/helpdesk-service/internal/domain"
	"github.com/helpdesk-br/helpdesk-service/internal/repository"
	"github.com/helpdesk-br/helpdesk-service/internal/worker"
	apperrors "github.com/helpdesk-br/helpdesk-service/pkg/util"
)

// UserService handles account registration, authentication and the admin
// user directory.
type UserService struct {
	users         repository.UserRepository
	resets        repository.PasswordResetRepository
	tokens        *auth.TokenManager
	notifications *worker.NotificationWorker
	bcryptCost    int
	resetTTL      time.Duration
	now           func() time.Time
}

// UserDependencies bundles collaborators for the user service.
type UserDependencies struct {
	UserRepo          repository.UserRepository
	PasswordResetRepo repository.PasswordResetRepository
	Tokens            *auth.TokenManager
	Notifications     *worker.NotificationWorker
	BcryptCost        int
	ResetTTL          time.Duration
	Clock             func() time.Time
}

// RegisterInput is the self-service signup payload. Role is always forced
// to plain user; staff accounts are provisioned by admins.
type RegisterInput struct {
	Name       string
	Email      string
	Password   string
	Department string
	Phone      string
}

// AdminCreateUserInput is the admin provisioning payload.
type AdminCreateUserInput struct {
	Name       string
	Email      string
	Password   string
	Role       domain.Role
	Department string
	Phone      string
}

// UserUpdateInput carries optional profile mutations; nil means "leave as is".
type UserUpdateInput struct {
	Name       *string
	Email      *string
	Role       *domain.Role
	Department *string
	Phone      *string
}

// AuthResult is the login/registration response payload.
type AuthResult struct {
	User      *domain.User
	Token     string
	ExpiresAt time.Time
}

// NewUserService constructs the service.
func NewUserService(deps UserDependencies) *UserService {
	now := deps.Clock
	if now == nil {
		now = time.Now
	}
	cost := deps.BcryptCost
	if cost <= 0 {
		cost = 12
	}
	resetTTL := deps.ResetTTL
	if resetTTL <= 0 {
		resetTTL = 30 * time.Minute
	}
	return &UserService{
		users:         deps.UserRepo,
		resets:        deps.PasswordResetRepo,
		tokens:        deps.Tokens,
		notifications: deps.Notifications,
		bcryptCost:    cost,
		resetTTL:      resetTTL,
		now:           now,
	}
}

// Register creates a plain user account and returns a fresh token.
func (s *UserService) Register(ctx context.Context, input RegisterInput) (*AuthResult, error) {
	name := strings.TrimSpace(input.Name)
	email := normalizeEmail(input.Email)
	if name == "" || email == "" || input.Password == "" {
		return nil, apperrors.NewValidationError("name, email and password are required", nil)
	}

	if _, err := s.users.GetByEmail(ctx, email); err == nil {
		return nil, apperrors.NewConflict("email already registered", map[string]any{"email": email})
	} else if !errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.MapError(err)
	}

	hash, err := auth.HashPassword(input.Password, s.bcryptCost)
	if err != nil {
		return nil, apperrors.MapError(err)
	}

	user := &domain.User{
		Name:         name,
		Email:        email,
		PasswordHash: hash,
		Role:         domain.RoleUser,
		Department:   strings.TrimSpace(input.Department),
		Phone:        strings.TrimSpace(input.Phone),
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, apperrors.MapError(err)
	}
	return s.issueToken(user)
}

// Login verifies credentials and returns a signed token. Unknown emails and
// wrong passwords produce the same error so the endpoint does not leak
// which accounts exist.
func (s *UserService) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	email = normalizeEmail(email)
	if email == "" || password == "" {
		return nil, apperrors.NewValidationError("email and password are required", nil)
	}

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewUnauthorized("invalid credentials")
		}
		return nil, apperrors.MapError(err)
	}
	if err := auth.ComparePassword(user.PasswordHash, password); err != nil {
		return nil, apperrors.NewUnauthorized("invalid credentials")
	}
	return s.issueToken(user)
}

// GetUser returns a single user. Plain users can only fetch themselves.
func (s *UserService) GetUser(ctx context.Context, actor *domain.User, userID string) (*domain.User, error) {
	if !actor.Role.IsStaff() && actor.ID != userID {
		return nil, apperrors.NewForbidden("you cannot view other users")
	}
	return s.fetchUser(ctx, userID)
}

// ListUsers returns a filtered page of the user directory. Staff only.
func (s *UserService) ListUsers(ctx context.Context, actor *domain.User, filter repository.UserFilter) ([]domain.User, int, error) {
	if !actor.Role.IsStaff() {
		return nil, 0, apperrors.NewForbidden("you cannot list users")
	}
	users, total, err := s.users.ListWithFilter(ctx, filter)
	if err != nil {
		return nil, 0, apperrors.MapError(err)
	}
	return users, total, nil
}

// CreateUser provisions an account with an explicit role. Admin only.
func (s *UserService) CreateUser(ctx context.Context, actor *domain.User, input AdminCreateUserInput) (*domain.User, error) {
	if actor.Role != domain.RoleAdmin {
		return nil, apperrors.NewForbidden("only admins can create users")
	}
	name := strings.TrimSpace(input.Name)
	email := normalizeEmail(input.Email)
	if name == "" || email == "" || input.Password == "" {
		return nil, apperrors.NewValidationError("name, email and password are required", nil)
	}
	if !input.Role.Valid() {
		return nil, apperrors.NewValidationError("invalid role", map[string]any{"role": input.Role})
	}

	if _, err := s.users.GetByEmail(ctx, email); err == nil {
		return nil, apperrors.NewConflict("email already registered", map[string]any{"email": email})
	} else if !errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.MapError(err)
	}

	hash, err := auth.HashPassword(input.Password, s.bcryptCost)
	if err != nil {
		return nil, apperrors.MapError(err)
	}

	user := &domain.User{
		Name:         name,
		Email:        email,
		PasswordHash: hash,
		Role:         input.Role,
		Department:   strings.TrimSpace(input.Department),
		Phone:        strings.TrimSpace(input.Phone),
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, apperrors.MapError(err)
	}
	return user, nil
}

// UpdateUser edits a profile. Plain users can edit their own contact
// fields; role changes are admin only.
func (s *UserService) UpdateUser(ctx context.Context, actor *domain.User, userID string, input UserUpdateInput) (*domain.User, error) {
	if !actor.Role.IsStaff() && actor.ID != userID {
		return nil, apperrors.NewForbidden("you cannot update other users")
	}
	if input.Role != nil && actor.Role != domain.RoleAdmin {
		return nil, apperrors.NewForbidden("only admins can change roles")
	}

	user, err := s.fetchUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" {
			return nil, apperrors.NewValidationError("name cannot be empty", nil)
		}
		user.Name = name
	}
	if input.Email != nil {
		email := normalizeEmail(*input.Email)
		if email == "" {
			return nil, apperrors.NewValidationError("email cannot be empty", nil)
		}
		if email != user.Email {
			if _, err := s.users.GetByEmail(ctx, email); err == nil {
				return nil, apperrors.NewConflict("email already registered", map[string]any{"email": email})
			} else if !errors.Is(err, pgx.ErrNoRows) {
				return nil, apperrors.MapError(err)
			}
			user.Email = email
		}
	}
	if input.Role != nil {
		if !input.Role.Valid() {
			return nil, apperrors.NewValidationError("invalid role", map[string]any{"role": *input.Role})
		}
		user.Role = *input.Role
	}
	if input.Department != nil {
		user.Department = strings.TrimSpace(*input.Department)
	}
	if input.Phone != nil {
		user.Phone = strings.TrimSpace(*input.Phone)
	}

	if err := s.users.Update(ctx, user); err != nil {
		return nil, apperrors.MapError(err)
	}
	return user, nil
}

// DeleteUser removes an account. Admin only, and never the admin's own.
func (s *UserService) DeleteUser(ctx context.Context, actor *domain.User, userID string) error {
	if actor.Role != domain.RoleAdmin {
		return apperrors.NewForbidden("only admins can delete users")
	}
	if actor.ID == userID {
		return apperrors.NewValidationError("you cannot delete your own account", nil)
	}
	if err := s.users.Delete(ctx, userID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.NewNotFound("user", map[string]any{"user_id": userID})
		}
		return apperrors.MapError(err)
	}
	return nil
}

// ChangePassword rotates the actor's own password after verifying the
// current one.
func (s *UserService) ChangePassword(ctx context.Context, actor *domain.User, currentPassword, newPassword string) error {
	if newPassword == "" {
		return apperrors.NewValidationError("new password is required", nil)
	}
	user, err := s.fetchUser(ctx, actor.ID)
	if err != nil {
		return err
	}
	if err := auth.ComparePassword(user.PasswordHash, currentPassword); err != nil {
		return apperrors.NewUnauthorized("current password is incorrect")
	}
	hash, err := auth.HashPassword(newPassword, s.bcryptCost)
	if err != nil {
		return apperrors.MapError(err)
	}
	user.PasswordHash = hash
	if err := s.users.Update(ctx, user); err != nil {
		return apperrors.MapError(err)
	}
	return nil
}

// RequestPasswordReset issues a reset token for the account and queues it
// for delivery to the account email. Unknown emails return an empty token
// without error so the endpoint does not leak which accounts exist.
func (s *UserService) RequestPasswordReset(ctx context.Context, email string) (string, error) {
	email = normalizeEmail(email)
	if email == "" {
		return "", apperrors.NewValidationError("email is required", nil)
	}
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", nil
		}
		return "", apperrors.MapError(err)
	}

	token := &repository.PasswordResetToken{
		UserID:    user.ID,
		Token:     uuid.NewString(),
		ExpiresAt: s.now().Add(s.resetTTL),
	}
	if err := s.resets.Create(ctx, token); err != nil {
		return "", apperrors.MapError(err)
	}
	if s.notifications != nil {
		s.notifications.Enqueue(worker.Notification{
			Recipient: user.Email,
			Subject:   "Redefinição de senha",
			Body:      "Use este token para redefinir sua senha: " + token.Token,
		})
	}
	return token.Token, nil
}

// ResetPassword consumes a reset token and sets the new password.
func (s *UserService) ResetPassword(ctx context.Context, tokenStr, newPassword string) error {
	if tokenStr == "" || newPassword == "" {
		return apperrors.NewValidationError("token and new password are required", nil)
	}

	token, err := s.resets.GetByToken(ctx, tokenStr)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.NewValidationError("invalid or expired reset token", nil)
		}
		return apperrors.MapError(err)
	}
	if token.UsedAt != nil || s.now().After(token.ExpiresAt) {
		return apperrors.NewValidationError("invalid or expired reset token", nil)
	}

	user, err := s.fetchUser(ctx, token.UserID)
	if err != nil {
		return err
	}
	hash, err := auth.HashPassword(newPassword, s.bcryptCost)
	if err != nil {
		return apperrors.MapError(err)
	}
	user.PasswordHash = hash
	if err := s.users.Update(ctx, user); err != nil {
		return apperrors.MapError(err)
	}
	return apperrors.MapError(s.resets.MarkUsed(ctx, token.ID))
}

func (s *UserService) fetchUser(ctx context.Context, userID string) (*domain.User, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("user", map[string]any{"user_id": userID})
		}
		return nil, apperrors.MapError(err)
	}
	return user, nil
}

func (s *UserService) issueToken(user *domain.User) (*AuthResult, error) {
	tokenStr, expiresAt, err := s.tokens.GenerateToken(user.ID, user.Role)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return &AuthResult{User: user, Token: tokenStr, ExpiresAt: expiresAt}, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
