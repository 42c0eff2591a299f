package repositories

import (
	"context"
	"fmt"

	"furnistore/internal/common"
	"furnistore/internal/models"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

type CategoryRepository interface {
	Create(ctx context.Context, category *models.Category) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Category, error)
	GetBySlug(ctx context.Context, slug string) (*models.Category, error)
	Update(ctx context.Context, category *models.Category) error
	Deactivate(ctx context.Context, id uuid.UUID) error
	ListActive(ctx context.Context) ([]*models.Category, error)
	NextSortOrder(ctx context.Context, parentID *uuid.UUID) (int, error)
	ApplyHierarchy(ctx context.Context, changes []models.HierarchyChange) error
}

type categoryRepo struct {
	db DBTX
}

func NewCategoryRepo(db DBTX) CategoryRepository {
	return &categoryRepo{db: db}
}

const categoryColumns = `id, name, slug, description, image_path, parent_id, sort_order, is_active, created_at, updated_at`

func scanCategory(row pgx.Row) (*models.Category, error) {
	c := &models.Category{}
	err := row.Scan(&c.ID, &c.Name, &c.Slug, &c.Description, &c.ImagePath, &c.ParentID,
		&c.SortOrder, &c.IsActive, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return c, nil
}

func (r *categoryRepo) Create(ctx context.Context, category *models.Category) error {
	query := `
		INSERT INTO categories (id, name, slug, description, image_path, parent_id, sort_order, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW(), NOW())
		RETURNING created_at, updated_at
	`
	err := r.db.QueryRow(ctx, query, category.ID, category.Name, category.Slug, category.Description,
		category.ImagePath, category.ParentID, category.SortOrder, category.IsActive).
		Scan(&category.CreatedAt, &category.UpdatedAt)
	return translate("categories.Create", "category", err)
}

func (r *categoryRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Category, error) {
	query := `SELECT ` + categoryColumns + ` FROM categories WHERE id = $1`
	c, err := scanCategory(r.db.QueryRow(ctx, query, id))
	if err != nil {
		return nil, translate("categories.GetByID", "category", err)
	}
	return c, nil
}

func (r *categoryRepo) GetBySlug(ctx context.Context, slug string) (*models.Category, error) {
	query := `SELECT ` + categoryColumns + ` FROM categories WHERE slug = $1 AND is_active`
	c, err := scanCategory(r.db.QueryRow(ctx, query, slug))
	if err != nil {
		return nil, translate("categories.GetBySlug", "category", err)
	}
	return c, nil
}

func (r *categoryRepo) Update(ctx context.Context, category *models.Category) error {
	query := `
		UPDATE categories
		SET name = $1, slug = $2, description = $3, image_path = $4, parent_id = $5,
		    sort_order = $6, is_active = $7, updated_at = NOW()
		WHERE id = $8
		RETURNING updated_at
	`
	err := r.db.QueryRow(ctx, query, category.Name, category.Slug, category.Description, category.ImagePath,
		category.ParentID, category.SortOrder, category.IsActive, category.ID).Scan(&category.UpdatedAt)
	return translate("categories.Update", "category", err)
}

// Deactivate is the soft delete. Children keep their parent_id and drop out
// of the tree until they are moved or the parent is reactivated.
func (r *categoryRepo) Deactivate(ctx context.Context, id uuid.UUID) error {
	tag, err := r.db.Exec(ctx, `UPDATE categories SET is_active = FALSE, updated_at = NOW() WHERE id = $1 AND is_active`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return common.NotFound("categories.Deactivate", "category")
	}
	return nil
}

// ListActive returns the flat category list in sibling order, the input
// BuildTree expects.
func (r *categoryRepo) ListActive(ctx context.Context) ([]*models.Category, error) {
	query := `
		SELECT ` + categoryColumns + `
		FROM categories
		WHERE is_active
		ORDER BY sort_order ASC, name ASC
	`
	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var categories []*models.Category
	for rows.Next() {
		c, err := scanCategory(rows)
		if err != nil {
			return nil, err
		}
		categories = append(categories, c)
	}
	return categories, rows.Err()
}

func (r *categoryRepo) NextSortOrder(ctx context.Context, parentID *uuid.UUID) (int, error) {
	query := `
		SELECT COALESCE(MAX(sort_order), 0) + 1
		FROM categories
		WHERE parent_id IS NOT DISTINCT FROM $1 AND is_active
	`
	var next int
	if err := r.db.QueryRow(ctx, query, parentID).Scan(&next); err != nil {
		return 0, err
	}
	return next, nil
}

// ApplyHierarchy writes every change in one transaction. A change that
// matches no row aborts the whole batch.
func (r *categoryRepo) ApplyHierarchy(ctx context.Context, changes []models.HierarchyChange) error {
	if len(changes) == 0 {
		return nil
	}
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return err
	}

	query := `UPDATE categories SET parent_id = $1, sort_order = $2, updated_at = NOW() WHERE id = $3`
	for _, ch := range changes {
		tag, err := tx.Exec(ctx, query, ch.ParentID, ch.SortOrder, ch.ID)
		if err != nil {
			_ = tx.Rollback(ctx)
			return err
		}
		if tag.RowsAffected() != 1 {
			_ = tx.Rollback(ctx)
			return common.NotFound("categories.ApplyHierarchy", fmt.Sprintf("category %s", ch.ID))
		}
	}
	return tx.Commit(ctx)
}
