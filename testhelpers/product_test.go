package testhelpers

import (
	"context"
	"testing"
	"time"

	"furnistore/internal/catalog"
	"furnistore/internal/listing"
	"furnistore/internal/models"
	"furnistore/internal/repositories"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProductListing(t *testing.T) {
	testDB := SetupTestDB(t)
	defer testDB.Cleanup()
	ctx := context.Background()

	chairs := SeedCategory(t, testDB, "chairs", nil, 0)
	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	var want []uuid.UUID
	for i := 0; i < 7; i++ {
		// Two products share a timestamp to exercise the id tiebreak.
		created := base.Add(time.Duration(i/2) * time.Hour)
		p := SeedProduct(t, testDB, "chair", "120.00", &chairs, created)
		want = append(want, p.ID)
	}
	SeedProduct(t, testDB, "lamp", "35.00", nil, base)

	repo := repositories.NewProductRepo(testDB.Pool)

	t.Run("cursor walk visits every row once", func(t *testing.T) {
		req := listing.PageRequest{
			PageSize: 3,
			Filter:   models.ProductTableFilter{CategoryIDs: []uuid.UUID{chairs}},
		}
		seen := make(map[uuid.UUID]bool)
		var order []models.ProductListItem
		for pages := 0; ; pages++ {
			require.Less(t, pages, 5, "listing did not terminate")
			page, err := listing.FetchPage(ctx, repo, req)
			require.NoError(t, err)
			if pages == 0 {
				require.NotNil(t, page.Total)
				assert.EqualValues(t, len(want), *page.Total)
			}
			for _, item := range page.Items {
				assert.False(t, seen[item.ID], "duplicate %s", item.ID)
				seen[item.ID] = true
				order = append(order, item)
			}
			if !page.HasMore {
				break
			}
			req.Cursor = page.NextCursor
		}

		assert.Len(t, seen, len(want))
		for i := 1; i < len(order); i++ {
			assert.False(t, order[i].CreatedAt.After(order[i-1].CreatedAt), "rows out of order at %d", i)
		}
	})

	t.Run("bulk deactivate hides rows from active filter", func(t *testing.T) {
		n, err := repo.BulkDeactivate(ctx, want[:2])
		require.NoError(t, err)
		assert.EqualValues(t, 2, n)

		active := true
		page, err := listing.FetchPage(ctx, repo, listing.PageRequest{
			PageSize: 50,
			Filter:   models.ProductTableFilter{CategoryIDs: []uuid.UUID{chairs}, IsActive: &active},
		})
		require.NoError(t, err)
		assert.Len(t, page.Items, len(want)-2)
	})

	t.Run("ratings come from the refreshed summary", func(t *testing.T) {
		SeedReview(t, testDB, want[3], 5)
		SeedReview(t, testDB, want[3], 4)
		require.NoError(t, repositories.NewSummaryRepo(testDB.Pool).RefreshReviewStats(ctx))

		page, err := listing.FetchPage(ctx, repo, listing.PageRequest{
			PageSize: 1,
			Sorting:  models.ProductTableSorting{Column: "average_rating", Direction: models.SortDesc},
		})
		require.NoError(t, err)
		require.Len(t, page.Items, 1)
		assert.Equal(t, want[3], page.Items[0].ID)
		assert.Equal(t, 2, page.Items[0].ReviewCount)
		assert.Equal(t, "4.5", page.Items[0].AverageRating.String())
	})
}

func TestCategoryHierarchy(t *testing.T) {
	testDB := SetupTestDB(t)
	defer testDB.Cleanup()
	ctx := context.Background()

	living := SeedCategory(t, testDB, "living", nil, 0)
	sofas := SeedCategory(t, testDB, "sofas", &living, 0)
	bedroom := SeedCategory(t, testDB, "bedroom", nil, 1)

	repo := repositories.NewCategoryRepo(testDB.Pool)
	require.NoError(t, repo.ApplyHierarchy(ctx, []models.HierarchyChange{
		{ID: sofas, ParentID: &bedroom, SortOrder: 0},
	}))

	records, err := repo.ListActive(ctx)
	require.NoError(t, err)
	tree := catalog.BuildTree(records)
	require.Len(t, tree, 2)
	assert.Equal(t, 3, catalog.CountNodes(tree))
	assert.Empty(t, catalog.DetectCycles(records))

	var parentOfSofas uuid.UUID
	catalog.Walk(tree, func(node, parent *models.CategoryTreeNode) bool {
		if node.ID == sofas && parent != nil {
			parentOfSofas = parent.ID
		}
		return true
	})
	assert.Equal(t, bedroom, parentOfSofas)
}
