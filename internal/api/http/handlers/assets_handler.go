package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/helpdesk-br/helpdesk-service/internal/api/dto"
	"github.com/helpdesk-br/helpdesk-service/internal/domain"
	"github.com/helpdesk-br/helpdesk-service/internal/repository"
	"github.com/helpdesk-br/helpdesk-service/internal/service"
	apperrors "github.com/helpdesk-br/helpdesk-service/pkg/util"
)

// AssetsHandler manages the inventory endpoints.
type AssetsHandler struct {
	service *service.AssetService
}

// NewAssetsHandler constructs handler.
func NewAssetsHandler(assetService *service.AssetService) *AssetsHandler {
	return &AssetsHandler{service: assetService}
}

// ListAssets GET /assets.
func (h *AssetsHandler) ListAssets(c *fiber.Ctx) error {
	actor, err := requireActor(c)
	if err != nil {
		return err
	}
	filter := repository.AssetFilter{}
	if typeStr := c.Query("type"); typeStr != "" {
		assetType := domain.AssetType(typeStr)
		filter.Type = &assetType
	}
	if statusStr := c.Query("status"); statusStr != "" {
		status := domain.AssetStatus(statusStr)
		filter.Status = &status
	}
	if ownerID := c.Query("owner_user_id"); ownerID != "" {
		filter.OwnerUserID = &ownerID
	}
	if search := c.Query("search"); search != "" {
		filter.SearchTerm = &search
	}
	page := parseInt(c.Query("page"), 1)
	limit := parseInt(c.Query("limit"), 10)
	filter.Offset = (page - 1) * limit
	filter.Limit = limit

	assets, total, err := h.service.ListAssets(c.Context(), actor, filter)
	if err != nil {
		return err
	}
	items := make([]dto.AssetResponse, 0, len(assets))
	for i := range assets {
		items = append(items, assetResponse(&assets[i]))
	}
	return c.JSON(fiber.Map{
		"data":       items,
		"pagination": dto.NewPagination(page, limit, total),
	})
}

// GetAsset GET /assets/:id.
func (h *AssetsHandler) GetAsset(c *fiber.Ctx) error {
	actor, err := requireActor(c)
	if err != nil {
		return err
	}
	asset, err := h.service.GetAsset(c.Context(), actor, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": assetResponse(asset)})
}

// CreateAsset POST /assets.
func (h *AssetsHandler) CreateAsset(c *fiber.Ctx) error {
	actor, err := requireActor(c)
	if err != nil {
		return err
	}
	var req dto.CreateAssetRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	asset, err := h.service.CreateAsset(c.Context(), actor, service.AssetInput{
		Name:           req.Name,
		Type:           req.Type,
		AssetTag:       req.AssetTag,
		SerialNumber:   req.SerialNumber,
		Status:         req.Status,
		Location:       req.Location,
		OwnerUserID:    req.OwnerUserID,
		Department:     req.Department,
		PurchaseDate:   req.PurchaseDate,
		WarrantyEndsAt: req.WarrantyEndsAt,
		ExpirationDate: req.ExpirationDate,
		Vendor:         req.Vendor,
		LicenseKey:     req.LicenseKey,
		Notes:          req.Notes,
	})
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": assetResponse(asset)})
}

// UpdateAsset PUT /assets/:id.
func (h *AssetsHandler) UpdateAsset(c *fiber.Ctx) error {
	actor, err := requireActor(c)
	if err != nil {
		return err
	}
	var req dto.UpdateAssetRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	asset, err := h.service.UpdateAsset(c.Context(), actor, c.Params("id"), service.AssetUpdateInput{
		Name:           req.Name,
		Type:           req.Type,
		AssetTag:       req.AssetTag,
		SerialNumber:   req.SerialNumber,
		Status:         req.Status,
		Location:       req.Location,
		OwnerUserID:    req.OwnerUserID,
		Department:     req.Department,
		PurchaseDate:   req.PurchaseDate,
		WarrantyEndsAt: req.WarrantyEndsAt,
		ExpirationDate: req.ExpirationDate,
		Vendor:         req.Vendor,
		LicenseKey:     req.LicenseKey,
		Notes:          req.Notes,
	})
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": assetResponse(asset)})
}

// DeleteAsset DELETE /assets/:id.
func (h *AssetsHandler) DeleteAsset(c *fiber.Ctx) error {
	actor, err := requireActor(c)
	if err != nil {
		return err
	}
	if err := h.service.DeleteAsset(c.Context(), actor, c.Params("id")); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func assetResponse(asset *domain.Asset) dto.AssetResponse {
	return dto.AssetResponse{
		ID:             asset.ID,
		Name:           asset.Name,
		Type:           asset.Type,
		AssetTag:       asset.AssetTag,
		SerialNumber:   asset.SerialNumber,
		Status:         asset.Status,
		Location:       asset.Location,
		OwnerUserID:    asset.OwnerUserID,
		Department:     asset.Department,
		PurchaseDate:   asset.PurchaseDate,
		WarrantyEndsAt: asset.WarrantyEndsAt,
		ExpirationDate: asset.ExpirationDate,
		Vendor:         asset.Vendor,
		LicenseKey:     asset.LicenseKey,
		Notes:          asset.Notes,
		CreatedAt:      asset.CreatedAt,
		UpdatedAt:      asset.UpdatedAt,
	}
}
