package domain

import "time"

// AssetType differentiates physical and licensed inventory.
type AssetType string

const (
	AssetTypeHardware AssetType = "hardware"
	AssetTypeSoftware AssetType = "software"
)

// Valid reports whether the type is a known inventory kind.
func (t AssetType) Valid() bool {
	return t == AssetTypeHardware || t == AssetTypeSoftware
}

// AssetStatus enumerates inventory states.
type AssetStatus string

const (
	AssetStatusActive      AssetStatus = "ativo"
	AssetStatusInUse       AssetStatus = "em_uso"
	AssetStatusMaintenance AssetStatus = "em_manutencao"
	AssetStatusRetired     AssetStatus = "baixado"
)

// Valid reports whether the status is a known inventory state.
func (s AssetStatus) Valid() bool {
	switch s {
	case AssetStatusActive, AssetStatusInUse, AssetStatusMaintenance, AssetStatusRetired:
		return true
	}
	return false
}

// Asset is an IT inventory item optionally owned by a user.
type Asset struct {
	ID             string
	Name           string
	Type           AssetType
	AssetTag       string
	SerialNumber   string
	Status         AssetStatus
	Location       string
	OwnerUserID    *string
	Department     string
	PurchaseDate   *time.Time
	WarrantyEndsAt *time.Time
	ExpirationDate *time.Time
	Vendor         string
	LicenseKey     string
	Notes          string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}
