package testhelpers

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"furnistore/internal/models"
	"furnistore/migrations"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// TestDB holds the database connection for testing
type TestDB struct {
	Pool    *pgxpool.Pool
	Cleanup func() error
}

// SetupTestDB connects to TEST_DATABASE_URL, applies migrations and empties
// the catalog tables. The test is skipped when the variable is unset or in
// short mode.
func SetupTestDB(t *testing.T) *TestDB {
	t.Helper()

	if testing.Short() {
		t.Skip("skipping database test in short mode")
	}
	connString := os.Getenv("TEST_DATABASE_URL")
	if connString == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pool, err := pgxpool.New(ctx, connString)
	if err != nil {
		t.Fatalf("Failed to connect to test database: %v", err)
	}
	if err := migrations.Apply(ctx, pool, zap.NewNop()); err != nil {
		pool.Close()
		t.Fatalf("Failed to apply migrations: %v", err)
	}
	if _, err := pool.Exec(ctx, `TRUNCATE audit_logs, product_reviews, product_images, products, brands, categories CASCADE`); err != nil {
		pool.Close()
		t.Fatalf("Failed to reset catalog tables: %v", err)
	}

	return &TestDB{
		Pool: pool,
		Cleanup: func() error {
			pool.Close()
			return nil
		},
	}
}

// SeedCategory inserts an active category under parentID.
func SeedCategory(t *testing.T, db *TestDB, name string, parentID *uuid.UUID, sortOrder int) uuid.UUID {
	t.Helper()

	id := uuid.New()
	_, err := db.Pool.Exec(context.Background(),
		`INSERT INTO categories (id, name, slug, parent_id, sort_order) VALUES ($1, $2, $3, $4, $5)`,
		id, name, fmt.Sprintf("%s-%s", name, id.String()[:8]), parentID, sortOrder)
	if err != nil {
		t.Fatalf("Failed to create test category: %v", err)
	}
	return id
}

// SeedProduct inserts an active product with an explicit created_at so tests
// control listing order.
func SeedProduct(t *testing.T, db *TestDB, name string, price string, categoryID *uuid.UUID, createdAt time.Time) *models.Product {
	t.Helper()

	id := uuid.New()
	product := &models.Product{
		ID:         id,
		Name:       name,
		Slug:       fmt.Sprintf("%s-%s", name, id.String()[:8]),
		SKU:        "SKU-" + id.String()[:8],
		Price:      decimal.RequireFromString(price),
		CategoryID: categoryID,
		IsActive:   true,
		CreatedAt:  createdAt,
		UpdatedAt:  createdAt,
	}
	_, err := db.Pool.Exec(context.Background(), `
		INSERT INTO products (id, name, slug, sku, price, category_id, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		product.ID, product.Name, product.Slug, product.SKU, product.Price,
		product.CategoryID, product.IsActive, product.CreatedAt, product.UpdatedAt)
	if err != nil {
		t.Fatalf("Failed to create test product: %v", err)
	}
	return product
}

// SeedReview inserts a review row. Call RefreshReviewStats before reading
// ratings.
func SeedReview(t *testing.T, db *TestDB, productID uuid.UUID, rating int) {
	t.Helper()

	if _, err := db.Pool.Exec(context.Background(),
		`INSERT INTO product_reviews (product_id, rating) VALUES ($1, $2)`, productID, rating); err != nil {
		t.Fatalf("Failed to create test review: %v", err)
	}
}
