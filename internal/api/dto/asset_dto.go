package dto

import (
	"time"

	"github.com/helpdesk-br/helpdesk-service/internal/domain"
)

// CreateAssetRequest payload.
type CreateAssetRequest struct {
	Name           string             `json:"name"`
	Type           domain.AssetType   `json:"type"`
	AssetTag       string             `json:"asset_tag"`
	SerialNumber   string             `json:"serial_number"`
	Status         domain.AssetStatus `json:"status"`
	Location       string             `json:"location"`
	OwnerUserID    *string            `json:"owner_user_id"`
	Department     string             `json:"department"`
	PurchaseDate   *time.Time         `json:"purchase_date"`
	WarrantyEndsAt *time.Time         `json:"warranty_ends_at"`
	ExpirationDate *time.Time         `json:"expiration_date"`
	Vendor         string             `json:"vendor"`
	LicenseKey     string             `json:"license_key"`
	Notes          string             `json:"notes"`
}

// UpdateAssetRequest payload. Absent fields are left untouched.
type UpdateAssetRequest struct {
	Name           *string             `json:"name"`
	Type           *domain.AssetType   `json:"type"`
	AssetTag       *string             `json:"asset_tag"`
	SerialNumber   *string             `json:"serial_number"`
	Status         *domain.AssetStatus `json:"status"`
	Location       *string             `json:"location"`
	OwnerUserID    *string             `json:"owner_user_id"`
	Department     *string             `json:"department"`
	PurchaseDate   *time.Time          `json:"purchase_date"`
	WarrantyEndsAt *time.Time          `json:"warranty_ends_at"`
	ExpirationDate *time.Time          `json:"expiration_date"`
	Vendor         *string             `json:"vendor"`
	LicenseKey     *string             `json:"license_key"`
	Notes          *string             `json:"notes"`
}

// AssetResponse shape.
type AssetResponse struct {
	ID             string             `json:"id"`
	Name           string             `json:"name"`
	Type           domain.AssetType   `json:"type"`
	AssetTag       string             `json:"asset_tag,omitempty"`
	SerialNumber   string             `json:"serial_number,omitempty"`
	Status         domain.AssetStatus `json:"status"`
	Location       string             `json:"location,omitempty"`
	OwnerUserID    *string            `json:"owner_user_id"`
	Department     string             `json:"department,omitempty"`
	PurchaseDate   *time.Time         `json:"purchase_date"`
	WarrantyEndsAt *time.Time         `json:"warranty_ends_at"`
	ExpirationDate *time.Time         `json:"expiration_date"`
	Vendor         string             `json:"vendor,omitempty"`
	LicenseKey     string             `json:"license_key,omitempty"`
	Notes          string             `json:"notes,omitempty"`
	CreatedAt      time.Time          `json:"created_at"`
	UpdatedAt      time.Time          `json:"updated_at"`
}
