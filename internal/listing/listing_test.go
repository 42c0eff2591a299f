package listing

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"testing"
	"time"

	"furnistore/internal/common"
	"furnistore/internal/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var baseTime = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func productID(n int) uuid.UUID {
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(fmt.Sprintf("product-%d", n)))
}

// catalogRows builds n rows where every third row shares a created_at
// timestamp and names repeat, so the tiebreakers matter.
func catalogRows(n int) []models.ProductListItem {
	rows := make([]models.ProductListItem, 0, n)
	categories := []*string{nil, strPtr("Sofas"), strPtr("Chairs")}
	brands := []*string{strPtr("Hay"), nil}
	for i := 0; i < n; i++ {
		var sale *decimal.Decimal
		if i%2 == 0 {
			v := decimal.NewFromInt(int64(80 + (i%3)*10))
			sale = &v
		}
		rows = append(rows, models.ProductListItem{
			ID:            productID(i),
			Name:          fmt.Sprintf("Chair %02d", i%7),
			SKU:           fmt.Sprintf("SKU-%03d", i),
			Price:         decimal.NewFromInt(int64(100 + (i%5)*25)),
			SalePrice:     sale,
			CategoryName:  categories[i%3],
			BrandName:     brands[i%2],
			AverageRating: decimal.NewFromFloat(float64(i%4) + 0.5),
			IsActive:      true,
			CreatedAt:     baseTime.Add(time.Duration(i/3) * time.Hour),
			UpdatedAt:     baseTime.Add(time.Duration(i%4) * time.Minute),
		})
	}
	return rows
}

func strPtr(s string) *string { return &s }

// memorySource orders and filters rows the same way the repository query does.
type memorySource struct {
	mu     sync.Mutex
	rows   []models.ProductListItem
	calls  []RowQuery
	counts int
	err    error
	gate   chan struct{}
}

func (m *memorySource) ListRows(ctx context.Context, q RowQuery) ([]models.ProductListItem, error) {
	m.mu.Lock()
	m.calls = append(m.calls, q)
	gate, err := m.gate, m.err
	m.mu.Unlock()
	if gate != nil {
		<-gate
	}
	if err != nil {
		return nil, err
	}

	out := m.matching(q.Filter)
	slices.SortFunc(out, func(a, b models.ProductListItem) int { return compareRows(a, b, q.Sorting) })
	if q.After != nil {
		idx := slices.IndexFunc(out, func(r models.ProductListItem) bool {
			return compareToCursor(r, *q.After, q.Sorting) > 0
		})
		if idx < 0 {
			return nil, nil
		}
		out = out[idx:]
	}
	if len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return out, nil
}

func (m *memorySource) CountRows(ctx context.Context, filter models.ProductTableFilter) (int64, error) {
	m.mu.Lock()
	m.counts++
	err := m.err
	m.mu.Unlock()
	if err != nil {
		return 0, err
	}
	return int64(len(m.matching(filter))), nil
}

func (m *memorySource) matching(f models.ProductTableFilter) []models.ProductListItem {
	m.mu.Lock()
	rows := slices.Clone(m.rows)
	m.mu.Unlock()

	var out []models.ProductListItem
	for _, r := range rows {
		if f.IsActive != nil && r.IsActive != *f.IsActive {
			continue
		}
		if f.Search != "" && !strings.Contains(strings.ToLower(r.Name), strings.ToLower(f.Search)) {
			continue
		}
		out = append(out, r)
	}
	return out
}

func (m *memorySource) FetchPage(ctx context.Context, req PageRequest) (models.Page, error) {
	return FetchPage(ctx, m, req)
}

func (m *memorySource) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}

func compareKey(colName, a, b string) int {
	switch colName {
	case "price", "sale_price", "average_rating":
		return decimal.RequireFromString(a).Cmp(decimal.RequireFromString(b))
	default:
		return strings.Compare(a, b)
	}
}

func directed(c int, s models.ProductTableSorting) int {
	if s.Direction == models.SortDesc {
		return -c
	}
	return c
}

func compareRows(a, b models.ProductListItem, s models.ProductTableSorting) int {
	return compareToCursor(a, CursorAfter(b, s), s)
}

func compareToCursor(r models.ProductListItem, c Cursor, s models.ProductTableSorting) int {
	rc := CursorAfter(r, s)
	if rc.Value != "" || c.Value != "" {
		if v := compareKey(s.Column, rc.Value, c.Value); v != 0 {
			return directed(v, s)
		}
	}
	if v := rc.CreatedAt.Compare(c.CreatedAt); v != 0 {
		return directed(v, s)
	}
	return directed(strings.Compare(rc.ID.String(), c.ID.String()), s)
}

func collectAll(t *testing.T, src *memorySource, size int, sorting models.ProductTableSorting) []models.ProductListItem {
	t.Helper()
	var all []models.ProductListItem
	cursor := ""
	for i := 0; i < 100; i++ {
		page, err := FetchPage(context.Background(), src, PageRequest{PageSize: size, Cursor: cursor, Sorting: sorting})
		require.NoError(t, err)
		all = append(all, page.Items...)
		if !page.HasMore {
			return all
		}
		cursor = page.NextCursor
	}
	t.Fatal("pagination did not terminate")
	return nil
}

func TestFetchPage_WalksEveryRowOnce(t *testing.T) {
	rows := catalogRows(47)
	sortings := []models.ProductTableSorting{
		{Column: "created_at", Direction: models.SortDesc},
		{Column: "created_at", Direction: models.SortAsc},
		{Column: "name", Direction: models.SortAsc},
		{Column: "price", Direction: models.SortDesc},
		{Column: "average_rating", Direction: models.SortAsc},
		{Column: "sku", Direction: models.SortDesc},
		{Column: "updated_at", Direction: models.SortAsc},
		{Column: "sale_price", Direction: models.SortDesc},
		{Column: "sale_price", Direction: models.SortAsc},
		{Column: "category_name", Direction: models.SortAsc},
		{Column: "brand_name", Direction: models.SortDesc},
	}
	for _, s := range sortings {
		for _, size := range []int{1, 5, 10, 47, 100} {
			t.Run(fmt.Sprintf("%s_%s_%d", s.Column, s.Direction, size), func(t *testing.T) {
				src := &memorySource{rows: rows}
				all := collectAll(t, src, size, s)

				require.Len(t, all, len(rows))
				seen := make(map[uuid.UUID]bool)
				for i, item := range all {
					assert.False(t, seen[item.ID], "duplicate %s", item.ID)
					seen[item.ID] = true
					if i > 0 {
						assert.Negative(t, compareRows(all[i-1], item, s), "rows out of order at %d", i)
					}
				}
			})
		}
	}
}

func TestFetchPage_TrimsSurplusRow(t *testing.T) {
	src := &memorySource{rows: catalogRows(3)}

	page, err := FetchPage(context.Background(), src, PageRequest{PageSize: 2})
	require.NoError(t, err)
	assert.Len(t, page.Items, 2)
	assert.True(t, page.HasMore)
	assert.NotEmpty(t, page.NextCursor)
	assert.Equal(t, 3, src.calls[0].Limit)

	page, err = FetchPage(context.Background(), src, PageRequest{PageSize: 2, Cursor: page.NextCursor})
	require.NoError(t, err)
	assert.Len(t, page.Items, 1)
	assert.False(t, page.HasMore)
}

func TestFetchPage_TotalOnFirstPageOnly(t *testing.T) {
	src := &memorySource{rows: catalogRows(12)}
	src.rows[3].IsActive = false
	active := true
	filter := models.ProductTableFilter{IsActive: &active}

	page, err := FetchPage(context.Background(), src, PageRequest{PageSize: 5, Filter: filter})
	require.NoError(t, err)
	require.NotNil(t, page.Total)
	assert.Equal(t, int64(11), *page.Total)

	page, err = FetchPage(context.Background(), src, PageRequest{PageSize: 5, Filter: filter, Cursor: page.NextCursor})
	require.NoError(t, err)
	assert.Nil(t, page.Total)
	assert.Equal(t, 1, src.counts)

	page, err = FetchPage(context.Background(), src, PageRequest{PageSize: 5, SkipTotal: true})
	require.NoError(t, err)
	assert.Nil(t, page.Total)
	assert.Equal(t, 1, src.counts)
}

func TestFetchPage_EmptyResult(t *testing.T) {
	page, err := FetchPage(context.Background(), &memorySource{}, PageRequest{})
	require.NoError(t, err)
	assert.NotNil(t, page.Items)
	assert.Empty(t, page.Items)
	assert.False(t, page.HasMore)
	assert.Empty(t, page.NextCursor)
}

func TestFetchPage_Errors(t *testing.T) {
	t.Run("cursor from another sort", func(t *testing.T) {
		src := &memorySource{rows: catalogRows(5)}
		page, err := FetchPage(context.Background(), src, PageRequest{PageSize: 2})
		require.NoError(t, err)

		_, err = FetchPage(context.Background(), src, PageRequest{
			PageSize: 2,
			Cursor:   page.NextCursor,
			Sorting:  models.ProductTableSorting{Column: "name", Direction: models.SortAsc},
		})
		assert.True(t, common.IsValidation(err))
	})

	t.Run("garbage cursor", func(t *testing.T) {
		_, err := FetchPage(context.Background(), &memorySource{}, PageRequest{Cursor: "%%%"})
		assert.True(t, common.IsValidation(err))
	})

	t.Run("unknown sort column", func(t *testing.T) {
		_, err := FetchPage(context.Background(), &memorySource{}, PageRequest{
			Sorting: models.ProductTableSorting{Column: "password"},
		})
		assert.True(t, common.IsValidation(err))
	})

	t.Run("source failure", func(t *testing.T) {
		boom := errors.New("connection reset")
		_, err := FetchPage(context.Background(), &memorySource{err: boom}, PageRequest{})
		assert.ErrorIs(t, err, boom)
		assert.Equal(t, "failed to fetch products", common.MessageOf(err))
	})
}

func TestCursor_RoundTrip(t *testing.T) {
	item := catalogRows(1)[0]
	sorting := models.ProductTableSorting{Column: "price", Direction: models.SortAsc}

	decoded, err := DecodeCursor(CursorAfter(item, sorting).Encode(), sorting)
	require.NoError(t, err)
	assert.Equal(t, item.ID, decoded.ID)
	assert.True(t, item.CreatedAt.Equal(decoded.CreatedAt))
	assert.Equal(t, "100", decoded.Value)

	empty, err := DecodeCursor("", sorting)
	assert.NoError(t, err)
	assert.Nil(t, empty)
}

func TestNormalizeSorting(t *testing.T) {
	s, err := NormalizeSorting(models.ProductTableSorting{})
	require.NoError(t, err)
	assert.Equal(t, models.DefaultProductSorting(), s)

	s, err = NormalizeSorting(models.ProductTableSorting{Column: "name", Direction: "ASC"})
	require.NoError(t, err)
	assert.Equal(t, models.SortAsc, s.Direction)

	_, err = NormalizeSorting(models.ProductTableSorting{Column: "name", Direction: "sideways"})
	assert.Error(t, err)
}

func TestClampPageSize(t *testing.T) {
	assert.Equal(t, DefaultPageSize, ClampPageSize(0))
	assert.Equal(t, DefaultPageSize, ClampPageSize(-3))
	assert.Equal(t, 20, ClampPageSize(20))
	assert.Equal(t, MaxPageSize, ClampPageSize(5000))
}

func TestQueryKey(t *testing.T) {
	a, b := productID(1), productID(2)
	sorting := models.DefaultProductSorting()

	k1 := QueryKey(models.ProductTableFilter{CategoryIDs: []uuid.UUID{a, b}}, sorting, 50)
	k2 := QueryKey(models.ProductTableFilter{CategoryIDs: []uuid.UUID{b, a, b}}, models.ProductTableSorting{}, 0)
	assert.Equal(t, k1, k2)

	k3 := QueryKey(models.ProductTableFilter{CategoryIDs: []uuid.UUID{a}}, sorting, 50)
	assert.NotEqual(t, k1, k3)
	k4 := QueryKey(models.ProductTableFilter{CategoryIDs: []uuid.UUID{a, b}}, sorting, 20)
	assert.NotEqual(t, k1, k4)
}

func TestPageCache(t *testing.T) {
	c := NewPageCache()
	c.Append("a", models.Page{HasMore: true})
	c.Append("a", models.Page{})
	c.Append("b", models.Page{})
	assert.Len(t, c.Get("a"), 2)
	assert.Equal(t, 2, c.Len())

	c.Invalidate("a")
	assert.Empty(t, c.Get("a"))
	assert.Len(t, c.Get("b"), 1)

	c.Clear()
	assert.Equal(t, 0, c.Len())
}
