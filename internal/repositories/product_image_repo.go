package repositories

import (
	"context"

	"furnistore/internal/common"
	"furnistore/internal/models"

	"github.com/google/uuid"
)

type ProductImageRepository interface {
	Create(ctx context.Context, image *models.ProductImage) error
	GetByProductID(ctx context.Context, productID uuid.UUID) ([]*models.ProductImage, error)
	Delete(ctx context.Context, productID, id uuid.UUID) error
}

type productImageRepo struct {
	db DBTX
}

func NewProductImageRepo(db DBTX) ProductImageRepository {
	return &productImageRepo{db: db}
}

// Create appends the image after the existing ones. A primary image demotes
// the previous primary in the same transaction.
func (r *productImageRepo) Create(ctx context.Context, image *models.ProductImage) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return err
	}
	if image.IsPrimary {
		if _, err := tx.Exec(ctx, `UPDATE product_images SET is_primary = FALSE WHERE product_id = $1 AND is_primary`, image.ProductID); err != nil {
			_ = tx.Rollback(ctx)
			return err
		}
	}
	query := `
		INSERT INTO product_images (id, product_id, object_key, alt_text, sort_order, is_primary, created_at)
		VALUES ($1, $2, $3, $4,
		        (SELECT COALESCE(MAX(sort_order), 0) + 1 FROM product_images WHERE product_id = $2),
		        $5, NOW())
		RETURNING sort_order, created_at
	`
	err = tx.QueryRow(ctx, query, image.ID, image.ProductID, image.ObjectKey, image.AltText, image.IsPrimary).
		Scan(&image.SortOrder, &image.CreatedAt)
	if err != nil {
		_ = tx.Rollback(ctx)
		return translate("productImages.Create", "image", err)
	}
	return tx.Commit(ctx)
}

func (r *productImageRepo) GetByProductID(ctx context.Context, productID uuid.UUID) ([]*models.ProductImage, error) {
	query := `
		SELECT id, product_id, object_key, alt_text, sort_order, is_primary, created_at
		FROM product_images
		WHERE product_id = $1
		ORDER BY is_primary DESC, sort_order ASC
	`
	rows, err := r.db.Query(ctx, query, productID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var images []*models.ProductImage
	for rows.Next() {
		image := &models.ProductImage{}
		if err := rows.Scan(&image.ID, &image.ProductID, &image.ObjectKey, &image.AltText,
			&image.SortOrder, &image.IsPrimary, &image.CreatedAt); err != nil {
			return nil, err
		}
		images = append(images, image)
	}
	return images, rows.Err()
}

func (r *productImageRepo) Delete(ctx context.Context, productID, id uuid.UUID) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM product_images WHERE product_id = $1 AND id = $2`, productID, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return common.NotFound("productImages.Delete", "image")
	}
	return nil
}
