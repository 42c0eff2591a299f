package repositories

import (
	"context"
	"testing"
	"time"

	"furnistore/internal/common"
	"furnistore/internal/listing"
	"furnistore/internal/models"

	"github.com/google/uuid"
	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

var summaryCols = []string{"id", "name", "slug", "sku", "price", "sale_price", "is_active", "is_featured", "is_new",
	"on_sale", "category_id", "category_name", "brand_id", "brand_name", "review_count", "average_rating",
	"primary_image_path", "created_at", "updated_at"}

type ProductRepoTestSuite struct {
	suite.Suite
	mock    pgxmock.PgxPoolIface
	repo    ProductRepository
	context context.Context
	now     time.Time
}

func (suite *ProductRepoTestSuite) SetupTest() {
	mock, err := pgxmock.NewPool()
	assert.NoError(suite.T(), err)
	suite.mock = mock
	suite.repo = NewProductRepo(mock)
	suite.context = context.Background()
	suite.now = time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
}

func (suite *ProductRepoTestSuite) TearDownTest() {
	assert.NoError(suite.T(), suite.mock.ExpectationsWereMet())
	suite.mock.Close()
}

func TestProductRepoTestSuite(t *testing.T) {
	suite.Run(t, new(ProductRepoTestSuite))
}

func (suite *ProductRepoTestSuite) TestListRows_ScansSummary() {
	id, cat := uuid.New(), uuid.New()
	sale := decimal.RequireFromString("149.00")
	suite.mock.ExpectQuery(`FROM product_summary WHERE TRUE AND is_active = \$1 ORDER BY created_at DESC, id DESC LIMIT \$2`).
		WithArgs(true, 51).
		WillReturnRows(pgxmock.NewRows(summaryCols).AddRow(
			id, "Oslo Sofa", "oslo-sofa", "SOF-1", decimal.RequireFromString("199.00"), &sale, true, false, true,
			true, &cat, ptr("Sofas"), nil, nil, 3, decimal.RequireFromString("4.33"), ptr("products/oslo.jpg"),
			suite.now, suite.now))

	items, err := suite.repo.ListRows(suite.context, listing.RowQuery{
		Limit:   51,
		Filter:  models.ProductTableFilter{IsActive: ptr(true)},
		Sorting: models.DefaultProductSorting(),
	})
	suite.Require().NoError(err)
	suite.Require().Len(items, 1)
	it := items[0]
	assert.Equal(suite.T(), "Oslo Sofa", it.Name)
	assert.True(suite.T(), it.OnSale)
	assert.Equal(suite.T(), "149", it.SalePrice.String())
	assert.Equal(suite.T(), "Sofas", *it.CategoryName)
	assert.Nil(suite.T(), it.BrandName)
	assert.Equal(suite.T(), 3, it.ReviewCount)
}

func (suite *ProductRepoTestSuite) TestCountRows_UsesListFilters() {
	suite.mock.ExpectQuery(`SELECT COUNT\(\*\) FROM product_summary WHERE TRUE AND is_active = \$1 AND \(name ILIKE \$2`).
		WithArgs(true, "%sofa%").
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(int64(12)))

	n, err := suite.repo.CountRows(suite.context, models.ProductTableFilter{IsActive: ptr(true), Search: " sofa "})
	suite.Require().NoError(err)
	assert.Equal(suite.T(), int64(12), n)
}

func (suite *ProductRepoTestSuite) TestBulkUpdate_CommitsWhenAllRowsMatch() {
	ids := []uuid.UUID{uuid.New(), uuid.New()}
	inactive := false
	patch := models.ProductPatch{IsActive: &inactive}

	suite.mock.ExpectBegin()
	suite.mock.ExpectExec(`UPDATE products\s+SET is_active = COALESCE\(\$1, is_active\)`).
		WithArgs(patch.IsActive, patch.IsFeatured, patch.IsNew, ids).
		WillReturnResult(pgxmock.NewResult("UPDATE", 2))
	suite.mock.ExpectCommit()

	n, err := suite.repo.BulkUpdate(suite.context, append(ids, ids[0]), patch)
	suite.Require().NoError(err)
	assert.Equal(suite.T(), int64(2), n)
}

func (suite *ProductRepoTestSuite) TestBulkDeactivate_RollsBackOnPartialMatch() {
	ids := []uuid.UUID{uuid.New(), uuid.New(), uuid.New()}

	suite.mock.ExpectBegin()
	suite.mock.ExpectExec(`UPDATE products SET is_active = FALSE`).WithArgs(ids).
		WillReturnResult(pgxmock.NewResult("UPDATE", 2))
	suite.mock.ExpectRollback()

	_, err := suite.repo.BulkDeactivate(suite.context, ids)
	assert.True(suite.T(), common.IsNotFound(err))
}

func (suite *ProductRepoTestSuite) TestBulkUpdate_RejectsEmptyPatch() {
	_, err := suite.repo.BulkUpdate(suite.context, []uuid.UUID{uuid.New()}, models.ProductPatch{})
	assert.True(suite.T(), common.IsValidation(err))
}

func TestBuildListQuery(t *testing.T) {
	catA, brandA := uuid.New(), uuid.New()
	minPrice := decimal.NewFromInt(100)
	after := &listing.Cursor{
		Column:    "price",
		Value:     "199.00",
		CreatedAt: time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC),
		ID:        uuid.New(),
	}

	t.Run("filters and compound cursor", func(t *testing.T) {
		query, args, err := buildListQuery(listing.RowQuery{
			Limit: 11,
			After: after,
			Filter: models.ProductTableFilter{
				CategoryIDs: []uuid.UUID{catA},
				BrandIDs:    []uuid.UUID{brandA},
				MinPrice:    &minPrice,
				OnSale:      ptr(true),
				Search:      "oak_50%",
			},
			Sorting: models.ProductTableSorting{Column: "price", Direction: models.SortAsc},
		})
		require.NoError(t, err)
		assert.Contains(t, query, "category_id = ANY($1)")
		assert.Contains(t, query, "brand_id = ANY($2)")
		assert.Contains(t, query, "price >= $3")
		assert.Contains(t, query, "on_sale = $4")
		assert.Contains(t, query, "name ILIKE $5 OR sku ILIKE $5")
		assert.Contains(t, query, "(price, created_at, id) > ($6::numeric, $7, $8)")
		assert.Contains(t, query, "ORDER BY price ASC, created_at ASC, id ASC LIMIT $9")
		require.Len(t, args, 9)
		assert.Equal(t, "%oak50%", args[4])
		assert.Equal(t, "199.00", args[5])
		assert.Equal(t, 11, args[8])
	})

	t.Run("created_at cursor uses the tiebreaker only", func(t *testing.T) {
		c := *after
		c.Column, c.Value = "created_at", ""
		query, args, err := buildListQuery(listing.RowQuery{
			Limit:   5,
			After:   &c,
			Sorting: models.DefaultProductSorting(),
		})
		require.NoError(t, err)
		assert.Contains(t, query, "(created_at, id) < ($1, $2)")
		assert.Contains(t, query, "ORDER BY created_at DESC, id DESC")
		assert.Len(t, args, 3)
	})

	t.Run("nullable columns are coalesced", func(t *testing.T) {
		c := *after
		c.Column, c.Value = "category_name", ""
		query, args, err := buildListQuery(listing.RowQuery{
			Limit:   5,
			After:   &c,
			Sorting: models.ProductTableSorting{Column: "category_name", Direction: models.SortAsc},
		})
		require.NoError(t, err)
		assert.Contains(t, query, "(COALESCE(category_name, ''), created_at, id) > ($1::text, $2, $3)")
		assert.Contains(t, query, "ORDER BY COALESCE(category_name, '') ASC, created_at ASC, id ASC")
		assert.Equal(t, "", args[0])

		query, _, err = buildListQuery(listing.RowQuery{
			Limit:   5,
			Sorting: models.ProductTableSorting{Column: "sale_price", Direction: models.SortDesc},
		})
		require.NoError(t, err)
		assert.Contains(t, query, "ORDER BY COALESCE(sale_price, 0) DESC, created_at DESC, id DESC")
	})

	t.Run("unknown column", func(t *testing.T) {
		_, _, err := buildListQuery(listing.RowQuery{Sorting: models.ProductTableSorting{Column: "cost"}})
		assert.Error(t, err)
	})
}
