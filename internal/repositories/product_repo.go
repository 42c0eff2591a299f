package repositories

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"furnistore/internal/common"
	"furnistore/internal/listing"
	"furnistore/internal/models"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

type ProductRepository interface {
	Create(ctx context.Context, product *models.Product) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Product, error)
	Update(ctx context.Context, product *models.Product) error
	Deactivate(ctx context.Context, id uuid.UUID) error
	GetSummaryBySlug(ctx context.Context, slug string) (*models.ProductListItem, error)
	ListRows(ctx context.Context, q listing.RowQuery) ([]models.ProductListItem, error)
	CountRows(ctx context.Context, filter models.ProductTableFilter) (int64, error)
	BulkUpdate(ctx context.Context, ids []uuid.UUID, patch models.ProductPatch) (int64, error)
	BulkDeactivate(ctx context.Context, ids []uuid.UUID) (int64, error)
}

type productRepo struct {
	db DBTX
}

func NewProductRepo(db DBTX) ProductRepository {
	return &productRepo{db: db}
}

const productColumns = `id, name, slug, sku, description, price, sale_price, category_id, brand_id, image_path,
	is_active, is_featured, is_new, created_at, updated_at`

const summaryColumns = `id, name, slug, sku, price, sale_price, is_active, is_featured, is_new, on_sale,
	category_id, category_name, brand_id, brand_name, review_count, average_rating, primary_image_path,
	created_at, updated_at`

func scanProduct(row pgx.Row) (*models.Product, error) {
	p := &models.Product{}
	err := row.Scan(&p.ID, &p.Name, &p.Slug, &p.SKU, &p.Description, &p.Price, &p.SalePrice, &p.CategoryID,
		&p.BrandID, &p.ImagePath, &p.IsActive, &p.IsFeatured, &p.IsNew, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return p, nil
}

func scanSummary(row pgx.Row, it *models.ProductListItem) error {
	return row.Scan(&it.ID, &it.Name, &it.Slug, &it.SKU, &it.Price, &it.SalePrice, &it.IsActive, &it.IsFeatured,
		&it.IsNew, &it.OnSale, &it.CategoryID, &it.CategoryName, &it.BrandID, &it.BrandName, &it.ReviewCount,
		&it.AverageRating, &it.PrimaryImagePath, &it.CreatedAt, &it.UpdatedAt)
}

func (r *productRepo) Create(ctx context.Context, product *models.Product) error {
	query := `
		INSERT INTO products (id, name, slug, sku, description, price, sale_price, category_id, brand_id, image_path,
		                      is_active, is_featured, is_new, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, NOW(), NOW())
		RETURNING created_at, updated_at
	`
	err := r.db.QueryRow(ctx, query, product.ID, product.Name, product.Slug, product.SKU, product.Description,
		product.Price, product.SalePrice, product.CategoryID, product.BrandID, product.ImagePath,
		product.IsActive, product.IsFeatured, product.IsNew).Scan(&product.CreatedAt, &product.UpdatedAt)
	return translate("products.Create", "product", err)
}

func (r *productRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	p, err := scanProduct(r.db.QueryRow(ctx, `SELECT `+productColumns+` FROM products WHERE id = $1`, id))
	if err != nil {
		return nil, translate("products.GetByID", "product", err)
	}
	return p, nil
}

func (r *productRepo) Update(ctx context.Context, product *models.Product) error {
	query := `
		UPDATE products
		SET name = $1, slug = $2, sku = $3, description = $4, price = $5, sale_price = $6, category_id = $7,
		    brand_id = $8, image_path = $9, is_active = $10, is_featured = $11, is_new = $12, updated_at = NOW()
		WHERE id = $13
		RETURNING updated_at
	`
	err := r.db.QueryRow(ctx, query, product.Name, product.Slug, product.SKU, product.Description, product.Price,
		product.SalePrice, product.CategoryID, product.BrandID, product.ImagePath, product.IsActive,
		product.IsFeatured, product.IsNew, product.ID).Scan(&product.UpdatedAt)
	return translate("products.Update", "product", err)
}

func (r *productRepo) Deactivate(ctx context.Context, id uuid.UUID) error {
	tag, err := r.db.Exec(ctx, `UPDATE products SET is_active = FALSE, updated_at = NOW() WHERE id = $1 AND is_active`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return common.NotFound("products.Deactivate", "product")
	}
	return nil
}

func (r *productRepo) GetSummaryBySlug(ctx context.Context, slug string) (*models.ProductListItem, error) {
	it := &models.ProductListItem{}
	err := scanSummary(r.db.QueryRow(ctx, `SELECT `+summaryColumns+` FROM product_summary WHERE slug = $1 AND is_active`, slug), it)
	if err != nil {
		return nil, translate("products.GetSummaryBySlug", "product", err)
	}
	return it, nil
}

// ListRows reads one window of product_summary. Rows are ordered by
// (sort column, created_at, id) in the requested direction and the cursor is
// compared as a row value over the same tuple.
func (r *productRepo) ListRows(ctx context.Context, q listing.RowQuery) ([]models.ProductListItem, error) {
	query, args, err := buildListQuery(q)
	if err != nil {
		return nil, err
	}
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]models.ProductListItem, 0, q.Limit)
	for rows.Next() {
		var it models.ProductListItem
		if err := scanSummary(rows, &it); err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

// CountRows counts the product_summary rows matching filter.
func (r *productRepo) CountRows(ctx context.Context, filter models.ProductTableFilter) (int64, error) {
	var args []any
	query := `SELECT COUNT(*) FROM product_summary WHERE TRUE` + filterClause(filter, &args)
	var n int64
	if err := r.db.QueryRow(ctx, query, args...).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

func buildListQuery(q listing.RowQuery) (string, []any, error) {
	col, ok := listing.LookupSortColumn(q.Sorting.Column)
	if !ok {
		return "", nil, fmt.Errorf("unsupported sort column %q", q.Sorting.Column)
	}
	dir := "DESC"
	cmp := "<"
	if q.Sorting.Direction == models.SortAsc {
		dir = "ASC"
		cmp = ">"
	}

	var args []any
	var sb strings.Builder
	sb.WriteString(`SELECT ` + summaryColumns + ` FROM product_summary WHERE TRUE`)
	sb.WriteString(filterClause(q.Filter, &args))
	arg := placeholder(&args)

	if c := q.After; c != nil {
		if col.SQLType == "" {
			sb.WriteString(fmt.Sprintf(" AND (created_at, id) %s (%s, %s)", cmp, arg(c.CreatedAt), arg(c.ID)))
		} else {
			v := arg(c.Value)
			sb.WriteString(fmt.Sprintf(" AND (%s, created_at, id) %s (%s::%s, %s, %s)",
				col.Expr, cmp, v, col.SQLType, arg(c.CreatedAt), arg(c.ID)))
		}
	}

	order := []string{"created_at " + dir, "id " + dir}
	if col.SQLType != "" {
		order = slices.Insert(order, 0, col.Expr+" "+dir)
	}
	sb.WriteString(" ORDER BY " + strings.Join(order, ", "))
	sb.WriteString(" LIMIT " + arg(q.Limit))
	return sb.String(), args, nil
}

func placeholder(args *[]any) func(v any) string {
	return func(v any) string {
		*args = append(*args, v)
		return fmt.Sprintf("$%d", len(*args))
	}
}

// filterClause renders the AND conditions for f, appending their values to args.
func filterClause(f models.ProductTableFilter, args *[]any) string {
	arg := placeholder(args)
	var sb strings.Builder
	if len(f.CategoryIDs) > 0 {
		sb.WriteString(" AND category_id = ANY(" + arg(f.CategoryIDs) + ")")
	}
	if len(f.BrandIDs) > 0 {
		sb.WriteString(" AND brand_id = ANY(" + arg(f.BrandIDs) + ")")
	}
	if f.MinPrice != nil {
		sb.WriteString(" AND price >= " + arg(*f.MinPrice))
	}
	if f.MaxPrice != nil {
		sb.WriteString(" AND price <= " + arg(*f.MaxPrice))
	}
	flags := []struct {
		column string
		value  *bool
	}{
		{"is_active", f.IsActive},
		{"is_featured", f.IsFeatured},
		{"is_new", f.IsNew},
		{"on_sale", f.OnSale},
	}
	for _, flag := range flags {
		if flag.value != nil {
			sb.WriteString(" AND " + flag.column + " = " + arg(*flag.value))
		}
	}
	if term := common.SanitizeSearchQuery(f.Search); term != "" {
		p := arg("%" + term + "%")
		sb.WriteString(fmt.Sprintf(" AND (name ILIKE %s OR sku ILIKE %s OR COALESCE(brand_name, '') ILIKE %s)", p, p, p))
	}
	return sb.String()
}

// BulkUpdate applies patch to every id in one transaction. The batch is
// rolled back unless every id matched a row.
func (r *productRepo) BulkUpdate(ctx context.Context, ids []uuid.UUID, patch models.ProductPatch) (int64, error) {
	const op = "products.BulkUpdate"
	ids = uniqueIDs(ids)
	if len(ids) == 0 || patch.Empty() {
		return 0, common.Invalid(op, "nothing to update")
	}
	query := `
		UPDATE products
		SET is_active = COALESCE($1, is_active),
		    is_featured = COALESCE($2, is_featured),
		    is_new = COALESCE($3, is_new),
		    updated_at = NOW()
		WHERE id = ANY($4)
	`
	return r.execBatch(ctx, op, query, len(ids), patch.IsActive, patch.IsFeatured, patch.IsNew, ids)
}

// BulkDeactivate soft-deletes every id in one transaction.
func (r *productRepo) BulkDeactivate(ctx context.Context, ids []uuid.UUID) (int64, error) {
	const op = "products.BulkDeactivate"
	ids = uniqueIDs(ids)
	if len(ids) == 0 {
		return 0, common.Invalid(op, "nothing to delete")
	}
	query := `UPDATE products SET is_active = FALSE, updated_at = NOW() WHERE id = ANY($1)`
	return r.execBatch(ctx, op, query, len(ids), ids)
}

func (r *productRepo) execBatch(ctx context.Context, op, query string, want int, args ...any) (int64, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return 0, err
	}
	tag, err := tx.Exec(ctx, query, args...)
	if err != nil {
		_ = tx.Rollback(ctx)
		return 0, err
	}
	if n := tag.RowsAffected(); n != int64(want) {
		_ = tx.Rollback(ctx)
		return 0, common.NotFound(op, fmt.Sprintf("%d of %d products", int64(want)-n, want))
	}
	if err := tx.Commit(ctx); err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func uniqueIDs(ids []uuid.UUID) []uuid.UUID {
	seen := make(map[uuid.UUID]struct{}, len(ids))
	out := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
