package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/helpdesk-br/helpdesk-service/internal/domain"
	"github.com/helpdesk-br/helpdesk-service/internal/repository"
	apperrors "github.com/helpdesk-br/helpdesk-service/pkg/util"
)

// AssetService manages the inventory registry. All operations are staff
// only since the inventory tracks internal hardware and licenses.
type AssetService struct {
	assets repository.AssetRepository
	users  repository.UserRepository
}

// AssetInput is the create payload.
type AssetInput struct {
	Name           string
	Type           domain.AssetType
	AssetTag       string
	SerialNumber   string
	Status         domain.AssetStatus
	Location       string
	OwnerUserID    *string
	Department     string
	PurchaseDate   *time.Time
	WarrantyEndsAt *time.Time
	ExpirationDate *time.Time
	Vendor         string
	LicenseKey     string
	Notes          string
}

// AssetUpdateInput carries optional mutations; nil means "leave as is".
type AssetUpdateInput struct {
	Name           *string
	Type           *domain.AssetType
	AssetTag       *string
	SerialNumber   *string
	Status         *domain.AssetStatus
	Location       *string
	OwnerUserID    *string
	Department     *string
	PurchaseDate   *time.Time
	WarrantyEndsAt *time.Time
	ExpirationDate *time.Time
	Vendor         *string
	LicenseKey     *string
	Notes          *string
}

// NewAssetService constructs the service.
func NewAssetService(assets repository.AssetRepository, users repository.UserRepository) *AssetService {
	return &AssetService{assets: assets, users: users}
}

// ListAssets returns a filtered inventory page plus the total match count.
func (s *AssetService) ListAssets(ctx context.Context, actor *domain.User, filter repository.AssetFilter) ([]domain.Asset, int, error) {
	if !actor.Role.IsStaff() {
		return nil, 0, apperrors.NewForbidden("you cannot view the inventory")
	}
	assets, total, err := s.assets.ListWithFilter(ctx, filter)
	if err != nil {
		return nil, 0, apperrors.MapError(err)
	}
	return assets, total, nil
}

// GetAsset fetches a single asset.
func (s *AssetService) GetAsset(ctx context.Context, actor *domain.User, assetID string) (*domain.Asset, error) {
	if !actor.Role.IsStaff() {
		return nil, apperrors.NewForbidden("you cannot view the inventory")
	}
	return s.fetchAsset(ctx, assetID)
}

// CreateAsset registers a new inventory item.
func (s *AssetService) CreateAsset(ctx context.Context, actor *domain.User, input AssetInput) (*domain.Asset, error) {
	if !actor.Role.IsStaff() {
		return nil, apperrors.NewForbidden("you cannot manage the inventory")
	}
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, apperrors.NewValidationError("asset name is required", nil)
	}
	if !input.Type.Valid() {
		return nil, apperrors.NewValidationError("invalid asset type", map[string]any{"type": input.Type})
	}
	status := input.Status
	if status == "" {
		status = domain.AssetStatusActive
	}
	if !status.Valid() {
		return nil, apperrors.NewValidationError("invalid asset status", map[string]any{"status": status})
	}
	if err := s.checkOwner(ctx, input.OwnerUserID); err != nil {
		return nil, err
	}

	asset := &domain.Asset{
		Name:           name,
		Type:           input.Type,
		AssetTag:       strings.TrimSpace(input.AssetTag),
		SerialNumber:   strings.TrimSpace(input.SerialNumber),
		Status:         status,
		Location:       strings.TrimSpace(input.Location),
		OwnerUserID:    input.OwnerUserID,
		Department:     strings.TrimSpace(input.Department),
		PurchaseDate:   input.PurchaseDate,
		WarrantyEndsAt: input.WarrantyEndsAt,
		ExpirationDate: input.ExpirationDate,
		Vendor:         strings.TrimSpace(input.Vendor),
		LicenseKey:     strings.TrimSpace(input.LicenseKey),
		Notes:          strings.TrimSpace(input.Notes),
	}
	if err := s.assets.Create(ctx, asset); err != nil {
		return nil, apperrors.MapError(err)
	}
	return asset, nil
}

// UpdateAsset edits an inventory item.
func (s *AssetService) UpdateAsset(ctx context.Context, actor *domain.User, assetID string, input AssetUpdateInput) (*domain.Asset, error) {
	if !actor.Role.IsStaff() {
		return nil, apperrors.NewForbidden("you cannot manage the inventory")
	}
	asset, err := s.fetchAsset(ctx, assetID)
	if err != nil {
		return nil, err
	}

	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" {
			return nil, apperrors.NewValidationError("asset name cannot be empty", nil)
		}
		asset.Name = name
	}
	if input.Type != nil {
		if !input.Type.Valid() {
			return nil, apperrors.NewValidationError("invalid asset type", map[string]any{"type": *input.Type})
		}
		asset.Type = *input.Type
	}
	if input.Status != nil {
		if !input.Status.Valid() {
			return nil, apperrors.NewValidationError("invalid asset status", map[string]any{"status": *input.Status})
		}
		asset.Status = *input.Status
	}
	if input.OwnerUserID != nil {
		if err := s.checkOwner(ctx, input.OwnerUserID); err != nil {
			return nil, err
		}
		asset.OwnerUserID = input.OwnerUserID
	}
	if input.AssetTag != nil {
		asset.AssetTag = strings.TrimSpace(*input.AssetTag)
	}
	if input.SerialNumber != nil {
		asset.SerialNumber = strings.TrimSpace(*input.SerialNumber)
	}
	if input.Location != nil {
		asset.Location = strings.TrimSpace(*input.Location)
	}
	if input.Department != nil {
		asset.Department = strings.TrimSpace(*input.Department)
	}
	if input.PurchaseDate != nil {
		asset.PurchaseDate = input.PurchaseDate
	}
	if input.WarrantyEndsAt != nil {
		asset.WarrantyEndsAt = input.WarrantyEndsAt
	}
	if input.ExpirationDate != nil {
		asset.ExpirationDate = input.ExpirationDate
	}
	if input.Vendor != nil {
		asset.Vendor = strings.TrimSpace(*input.Vendor)
	}
	if input.LicenseKey != nil {
		asset.LicenseKey = strings.TrimSpace(*input.LicenseKey)
	}
	if input.Notes != nil {
		asset.Notes = strings.TrimSpace(*input.Notes)
	}

	if err := s.assets.Update(ctx, asset); err != nil {
		return nil, apperrors.MapError(err)
	}
	return asset, nil
}

// DeleteAsset removes an inventory item.
func (s *AssetService) DeleteAsset(ctx context.Context, actor *domain.User, assetID string) error {
	if !actor.Role.IsStaff() {
		return apperrors.NewForbidden("you cannot manage the inventory")
	}
	if err := s.assets.Delete(ctx, assetID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.NewNotFound("asset", map[string]any{"asset_id": assetID})
		}
		return apperrors.MapError(err)
	}
	return nil
}

func (s *AssetService) fetchAsset(ctx context.Context, assetID string) (*domain.Asset, error) {
	asset, err := s.assets.GetByID(ctx, assetID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("asset", map[string]any{"asset_id": assetID})
		}
		return nil, apperrors.MapError(err)
	}
	return asset, nil
}

func (s *AssetService) checkOwner(ctx context.Context, ownerID *string) error {
	if ownerID == nil || *ownerID == "" {
		return nil
	}
	if _, err := s.users.GetByID(ctx, *ownerID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.NewNotFound("owner", map[string]any{"user_id": *ownerID})
		}
		return apperrors.MapError(err)
	}
	return nil
}
