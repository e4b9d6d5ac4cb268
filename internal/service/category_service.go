package service

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/helpdesk-br/helpdesk-service/internal/domain"
	"github.com/helpdesk-br/helpdesk-service/internal/repository"
	apperrors "github.com/helpdesk-br/helpdesk-service/pkg/util"
)

// CategoryService manages the ticket category registry. Reads are open to
// any authenticated user; writes are staff only.
type CategoryService struct {
	categories repository.CategoryRepository
}

// CategoryInput is the create/update payload.
type CategoryInput struct {
	Name        string
	Description string
	IsActive    *bool
	Priority    domain.TicketPriority
	SLAHours    int
}

// NewCategoryService constructs the service.
func NewCategoryService(categories repository.CategoryRepository) *CategoryService {
	return &CategoryService{categories: categories}
}

// ListCategories returns a filtered page plus the total match count.
func (s *CategoryService) ListCategories(ctx context.Context, filter repository.CategoryFilter) ([]domain.Category, int, error) {
	categories, total, err := s.categories.ListWithFilter(ctx, filter)
	if err != nil {
		return nil, 0, apperrors.MapError(err)
	}
	return categories, total, nil
}

// GetCategory fetches a single category.
func (s *CategoryService) GetCategory(ctx context.Context, categoryID string) (*domain.Category, error) {
	category, err := s.categories.GetByID(ctx, categoryID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("category", map[string]any{"category_id": categoryID})
		}
		return nil, apperrors.MapError(err)
	}
	return category, nil
}

// CreateCategory registers a category. Names are unique; the check here is
// advisory and the database constraint is the backstop.
func (s *CategoryService) CreateCategory(ctx context.Context, actor *domain.User, input CategoryInput) (*domain.Category, error) {
	if !actor.Role.IsStaff() {
		return nil, apperrors.NewForbidden("you cannot manage categories")
	}
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, apperrors.NewValidationError("category name is required", nil)
	}

	priority := input.Priority
	if priority == "" {
		priority = domain.TicketPriorityMedium
	}
	if !priority.Valid() {
		return nil, apperrors.NewValidationError("invalid priority", map[string]any{"priority": priority})
	}
	slaHours := input.SLAHours
	if slaHours <= 0 {
		slaHours = domain.DefaultSLAHours
	}

	if _, err := s.categories.GetByName(ctx, name); err == nil {
		return nil, apperrors.NewValidationError("category name already in use", map[string]any{"name": name})
	} else if !errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.MapError(err)
	}

	isActive := true
	if input.IsActive != nil {
		isActive = *input.IsActive
	}
	category := &domain.Category{
		Name:        name,
		Description: strings.TrimSpace(input.Description),
		IsActive:    isActive,
		Priority:    priority,
		SLAHours:    slaHours,
	}
	if err := s.categories.Create(ctx, category); err != nil {
		return nil, apperrors.MapError(err)
	}
	return category, nil
}

// UpdateCategory edits an existing category.
func (s *CategoryService) UpdateCategory(ctx context.Context, actor *domain.User, categoryID string, input CategoryInput) (*domain.Category, error) {
	if !actor.Role.IsStaff() {
		return nil, apperrors.NewForbidden("you cannot manage categories")
	}
	category, err := s.GetCategory(ctx, categoryID)
	if err != nil {
		return nil, err
	}

	if name := strings.TrimSpace(input.Name); name != "" && name != category.Name {
		if _, err := s.categories.GetByName(ctx, name); err == nil {
			return nil, apperrors.NewValidationError("category name already in use", map[string]any{"name": name})
		} else if !errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.MapError(err)
		}
		category.Name = name
	}
	if description := strings.TrimSpace(input.Description); description != "" {
		category.Description = description
	}
	if input.Priority != "" {
		if !input.Priority.Valid() {
			return nil, apperrors.NewValidationError("invalid priority", map[string]any{"priority": input.Priority})
		}
		category.Priority = input.Priority
	}
	if input.SLAHours > 0 {
		category.SLAHours = input.SLAHours
	}
	if input.IsActive != nil {
		category.IsActive = *input.IsActive
	}

	if err := s.categories.Update(ctx, category); err != nil {
		return nil, apperrors.MapError(err)
	}
	return category, nil
}

// DeleteCategory removes a category. Admin only; existing tickets keep
// their category reference.
func (s *CategoryService) DeleteCategory(ctx context.Context, actor *domain.User, categoryID string) error {
	if actor.Role != domain.RoleAdmin {
		return apperrors.NewForbidden("only admins can delete categories")
	}
	if err := s.categories.Delete(ctx, categoryID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.NewNotFound("category", map[string]any{"category_id": categoryID})
		}
		return apperrors.MapError(err)
	}
	return nil
}
