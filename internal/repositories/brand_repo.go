package repositories

import (
	"context"

	"furnistore/internal/common"
	"furnistore/internal/models"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

type BrandRepository interface {
	Create(ctx context.Context, brand *models.Brand) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Brand, error)
	GetBySlug(ctx context.Context, slug string) (*models.Brand, error)
	Update(ctx context.Context, brand *models.Brand) error
	Deactivate(ctx context.Context, id uuid.UUID) error
	ListActive(ctx context.Context) ([]*models.Brand, error)
}

type brandRepo struct {
	db DBTX
}

func NewBrandRepo(db DBTX) BrandRepository {
	return &brandRepo{db: db}
}

const brandColumns = `id, name, slug, description, logo_path, is_active, created_at, updated_at`

func scanBrand(row pgx.Row) (*models.Brand, error) {
	b := &models.Brand{}
	if err := row.Scan(&b.ID, &b.Name, &b.Slug, &b.Description, &b.LogoPath, &b.IsActive, &b.CreatedAt, &b.UpdatedAt); err != nil {
		return nil, err
	}
	return b, nil
}

func (r *brandRepo) Create(ctx context.Context, brand *models.Brand) error {
	query := `
		INSERT INTO brands (id, name, slug, description, logo_path, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, NOW(), NOW())
		RETURNING created_at, updated_at
	`
	err := r.db.QueryRow(ctx, query, brand.ID, brand.Name, brand.Slug, brand.Description, brand.LogoPath, brand.IsActive).
		Scan(&brand.CreatedAt, &brand.UpdatedAt)
	return translate("brands.Create", "brand", err)
}

func (r *brandRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Brand, error) {
	b, err := scanBrand(r.db.QueryRow(ctx, `SELECT `+brandColumns+` FROM brands WHERE id = $1`, id))
	if err != nil {
		return nil, translate("brands.GetByID", "brand", err)
	}
	return b, nil
}

func (r *brandRepo) GetBySlug(ctx context.Context, slug string) (*models.Brand, error) {
	b, err := scanBrand(r.db.QueryRow(ctx, `SELECT `+brandColumns+` FROM brands WHERE slug = $1 AND is_active`, slug))
	if err != nil {
		return nil, translate("brands.GetBySlug", "brand", err)
	}
	return b, nil
}

func (r *brandRepo) Update(ctx context.Context, brand *models.Brand) error {
	query := `
		UPDATE brands
		SET name = $1, slug = $2, description = $3, logo_path = $4, is_active = $5, updated_at = NOW()
		WHERE id = $6
		RETURNING updated_at
	`
	err := r.db.QueryRow(ctx, query, brand.Name, brand.Slug, brand.Description, brand.LogoPath, brand.IsActive, brand.ID).
		Scan(&brand.UpdatedAt)
	return translate("brands.Update", "brand", err)
}

func (r *brandRepo) Deactivate(ctx context.Context, id uuid.UUID) error {
	tag, err := r.db.Exec(ctx, `UPDATE brands SET is_active = FALSE, updated_at = NOW() WHERE id = $1 AND is_active`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return common.NotFound("brands.Deactivate", "brand")
	}
	return nil
}

func (r *brandRepo) ListActive(ctx context.Context) ([]*models.Brand, error) {
	rows, err := r.db.Query(ctx, `SELECT `+brandColumns+` FROM brands WHERE is_active ORDER BY name ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var brands []*models.Brand
	for rows.Next() {
		b, err := scanBrand(rows)
		if err != nil {
			return nil, err
		}
		brands = append(brands, b)
	}
	return brands, rows.Err()
}
