package service

import (
	"context"
	"testing"

	"github.com/helpdesk-br/helpdesk-service/internal/domain"
)

func TestCreateCategoryDefaults(t *testing.T) {
	staff := domain.User{ID: "s1", Role: domain.RoleSupport}
	svc := NewCategoryService(newFakeCategoryRepo())

	category, err := svc.CreateCategory(context.Background(), &staff, CategoryInput{Name: "Rede"})
	if err != nil {
		t.Fatalf("CreateCategory: %v", err)
	}
	if category.Priority != domain.TicketPriorityMedium {
		t.Errorf("priority = %q, want default média", category.Priority)
	}
	if category.SLAHours != domain.DefaultSLAHours {
		t.Errorf("sla = %d, want %d", category.SLAHours, domain.DefaultSLAHours)
	}
	if !category.IsActive {
		t.Errorf("new categories default to active")
	}
}

func TestCreateCategoryStaffOnly(t *testing.T) {
	user := domain.User{ID: "u1", Role: domain.RoleUser}
	svc := NewCategoryService(newFakeCategoryRepo())

	if _, err := svc.CreateCategory(context.Background(), &user, CategoryInput{Name: "Rede"}); domainCode(err) != "FORBIDDEN" {
		t.Fatalf("code = %q, want FORBIDDEN", domainCode(err))
	}
}

func TestCreateCategoryDuplicateName(t *testing.T) {
	staff := domain.User{ID: "s1", Role: domain.RoleSupport}
	svc := NewCategoryService(newFakeCategoryRepo(domain.Category{ID: "c1", Name: "Rede"}))

	if _, err := svc.CreateCategory(context.Background(), &staff, CategoryInput{Name: "Rede"}); domainCode(err) != "VALIDATION_FAILED" {
		t.Fatalf("code = %q, want VALIDATION_FAILED", domainCode(err))
	}
}

func TestUpdateCategoryRename(t *testing.T) {
	staff := domain.User{ID: "s1", Role: domain.RoleSupport}
	repo := newFakeCategoryRepo(
		domain.Category{ID: "c1", Name: "Rede", Priority: domain.TicketPriorityMedium, SLAHours: 24},
		domain.Category{ID: "c2", Name: "Hardware", Priority: domain.TicketPriorityMedium, SLAHours: 24},
	)
	svc := NewCategoryService(repo)

	if _, err := svc.UpdateCategory(context.Background(), &staff, "c1", CategoryInput{Name: "Hardware"}); domainCode(err) != "VALIDATION_FAILED" {
		t.Errorf("rename onto taken name: code = %q, want VALIDATION_FAILED", domainCode(err))
	}
	category, err := svc.UpdateCategory(context.Background(), &staff, "c1", CategoryInput{Name: "Infraestrutura", SLAHours: 4})
	if err != nil {
		t.Fatalf("rename: %v", err)
	}
	if category.Name != "Infraestrutura" || category.SLAHours != 4 {
		t.Errorf("update not applied: %+v", category)
	}
}

func TestDeleteCategoryAdminOnly(t *testing.T) {
	admin := domain.User{ID: "a1", Role: domain.RoleAdmin}
	support := domain.User{ID: "s1", Role: domain.RoleSupport}
	svc := NewCategoryService(newFakeCategoryRepo(domain.Category{ID: "c1", Name: "Rede"}))

	if err := svc.DeleteCategory(context.Background(), &support, "c1"); domainCode(err) != "FORBIDDEN" {
		t.Errorf("support delete: code = %q, want FORBIDDEN", domainCode(err))
	}
	if err := svc.DeleteCategory(context.Background(), &admin, "c1"); err != nil {
		t.Fatalf("admin delete: %v", err)
	}
	if err := svc.DeleteCategory(context.Background(), &admin, "missing"); domainCode(err) != "NOT_FOUND" {
		t.Fatalf("code = %q, want NOT_FOUND", domainCode(err))
	}
}
