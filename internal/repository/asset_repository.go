package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/helpdesk-br/helpdesk-service/internal/domain"
)

// AssetFilter captures inventory listing parameters.
type AssetFilter struct {
	Type        *domain.AssetType
	Status      *domain.AssetStatus
	OwnerUserID *string
	SearchTerm  *string
	Limit       int
	Offset      int
}

// AssetRepository encapsulates asset persistence.
type AssetRepository interface {
	Create(ctx context.Context, asset *domain.Asset) error
	Update(ctx context.Context, asset *domain.Asset) error
	Delete(ctx context.Context, id string) error
	GetByID(ctx context.Context, id string) (*domain.Asset, error)
	ListWithFilter(ctx context.Context, filter AssetFilter) ([]domain.Asset, int, error)
}

type assetRepository struct {
	pool *pgxpool.Pool
}

// NewAssetRepository instantiates repository.
func NewAssetRepository(pool *pgxpool.Pool) AssetRepository {
	return &assetRepository{pool: pool}
}

const assetColumns = `id, name, type, asset_tag, serial_number, status, location, owner_user_id,
               department, purchase_date, warranty_ends_at, expiration_date, vendor, license_key, notes,
               created_at, updated_at`

func (r *assetRepository) Create(ctx context.Context, asset *domain.Asset) error {
	const query = `
        INSERT INTO assets (name, type, asset_tag, serial_number, status, location, owner_user_id,
            department, purchase_date, warranty_ends_at, expiration_date, vendor, license_key, notes)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)
        RETURNING id, created_at, updated_at`
	return r.pool.QueryRow(ctx, query,
		asset.Name,
		asset.Type,
		asset.AssetTag,
		asset.SerialNumber,
		asset.Status,
		asset.Location,
		asset.OwnerUserID,
		asset.Department,
		asset.PurchaseDate,
		asset.WarrantyEndsAt,
		asset.ExpirationDate,
		asset.Vendor,
		asset.LicenseKey,
		asset.Notes,
	).Scan(&asset.ID, &asset.CreatedAt, &asset.UpdatedAt)
}

func (r *assetRepository) Update(ctx context.Context, asset *domain.Asset) error {
	const query = `
        UPDATE assets SET name=$1, type=$2, asset_tag=$3, serial_number=$4, status=$5, location=$6,
            owner_user_id=$7, department=$8, purchase_date=$9, warranty_ends_at=$10, expiration_date=$11,
            vendor=$12, license_key=$13, notes=$14, updated_at=NOW()
        WHERE id=$15`
	cmd, err := r.pool.Exec(ctx, query,
		asset.Name,
		asset.Type,
		asset.AssetTag,
		asset.SerialNumber,
		asset.Status,
		asset.Location,
		asset.OwnerUserID,
		asset.Department,
		asset.PurchaseDate,
		asset.WarrantyEndsAt,
		asset.ExpirationDate,
		asset.Vendor,
		asset.LicenseKey,
		asset.Notes,
		asset.ID,
	)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *assetRepository) Delete(ctx context.Context, id string) error {
	cmd, err := r.pool.Exec(ctx, `DELETE FROM assets WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *assetRepository) GetByID(ctx context.Context, id string) (*domain.Asset, error) {
	query := fmt.Sprintf(`SELECT %s FROM assets WHERE id=$1`, assetColumns)
	var asset domain.Asset
	if err := r.pool.QueryRow(ctx, query, id).Scan(
		&asset.ID,
		&asset.Name,
		&asset.Type,
		&asset.AssetTag,
		&asset.SerialNumber,
		&asset.Status,
		&asset.Location,
		&asset.OwnerUserID,
		&asset.Department,
		&asset.PurchaseDate,
		&asset.WarrantyEndsAt,
		&asset.ExpirationDate,
		&asset.Vendor,
		&asset.LicenseKey,
		&asset.Notes,
		&asset.CreatedAt,
		&asset.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &asset, nil
}

func (r *assetRepository) ListWithFilter(ctx context.Context, filter AssetFilter) ([]domain.Asset, int, error) {
	clauses := []string{"1=1"}
	args := []any{}

	if filter.Type != nil {
		args = append(args, *filter.Type)
		clauses = append(clauses, fmt.Sprintf("type=$%d", len(args)))
	}
	if filter.Status != nil {
		args = append(args, *filter.Status)
		clauses = append(clauses, fmt.Sprintf("status=$%d", len(args)))
	}
	if filter.OwnerUserID != nil {
		args = append(args, *filter.OwnerUserID)
		clauses = append(clauses, fmt.Sprintf("owner_user_id=$%d", len(args)))
	}
	if filter.SearchTerm != nil && strings.TrimSpace(*filter.SearchTerm) != "" {
		search := "%" + strings.ToLower(strings.TrimSpace(*filter.SearchTerm)) + "%"
		args = append(args, search)
		placeholder := fmt.Sprintf("$%d", len(args))
		clauses = append(clauses, fmt.Sprintf("(LOWER(name) LIKE %s OR LOWER(serial_number) LIKE %s OR LOWER(asset_tag) LIKE %s)", placeholder, placeholder, placeholder))
	}

	where := strings.Join(clauses, " AND ")

	var total int
	countQuery := fmt.Sprintf(`SELECT COUNT(*) FROM assets WHERE %s`, where)
	if err := r.pool.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 10
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}

	query := fmt.Sprintf(`SELECT %s FROM assets WHERE %s ORDER BY created_at DESC LIMIT %d OFFSET %d`,
		assetColumns, where, limit, offset)
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var result []domain.Asset
	for rows.Next() {
		var asset domain.Asset
		if err := rows.Scan(
			&asset.ID,
			&asset.Name,
			&asset.Type,
			&asset.AssetTag,
			&asset.SerialNumber,
			&asset.Status,
			&asset.Location,
			&asset.OwnerUserID,
			&asset.Department,
			&asset.PurchaseDate,
			&asset.WarrantyEndsAt,
			&asset.ExpirationDate,
			&asset.Vendor,
			&asset.LicenseKey,
			&asset.Notes,
			&asset.CreatedAt,
			&asset.UpdatedAt,
		); err != nil {
			return nil, 0, err
		}
		result = append(result, asset)
	}
	return result, total, rows.Err()
}
