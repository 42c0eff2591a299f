// Package listing implements cursor pagination over the product summary and
// the stateful listing engine that feeds the admin product table.
package listing

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"furnistore/internal/common"
	"furnistore/internal/models"

	"github.com/cespare/xxhash/v2"
	"github.com/google/uuid"
)

const (
	DefaultPageSize = 50
	MaxPageSize     = 100
)

// PageRequest asks for one page of the listing.
type PageRequest struct {
	PageSize int
	Cursor   string
	Filter   models.ProductTableFilter
	Sorting  models.ProductTableSorting
	// SkipTotal leaves Page.Total unset on the first page.
	SkipTotal bool
}

// RowQuery is what a RowSource receives: Limit rows strictly after After in
// the order given by Sorting.
type RowQuery struct {
	Limit   int
	After   *Cursor
	Filter  models.ProductTableFilter
	Sorting models.ProductTableSorting
}

// RowSource reads ordered rows of the product summary.
type RowSource interface {
	ListRows(ctx context.Context, q RowQuery) ([]models.ProductListItem, error)
	CountRows(ctx context.Context, filter models.ProductTableFilter) (int64, error)
}

// FetchPage reads pageSize+1 rows to learn whether another page exists and
// trims the surplus row. The first page also carries the number of rows
// matching the filter.
func FetchPage(ctx context.Context, src RowSource, req PageRequest) (models.Page, error) {
	const op = "listing.FetchPage"

	size := ClampPageSize(req.PageSize)
	sorting, err := NormalizeSorting(req.Sorting)
	if err != nil {
		return models.Page{}, common.Invalid(op, err.Error())
	}
	after, err := DecodeCursor(req.Cursor, sorting)
	if err != nil {
		return models.Page{}, common.Invalid(op, "cursor does not match the current sort")
	}

	rows, err := src.ListRows(ctx, RowQuery{
		Limit:   size + 1,
		After:   after,
		Filter:  req.Filter,
		Sorting: sorting,
	})
	if err != nil {
		return models.Page{}, common.Wrap(op, "failed to fetch products", err)
	}

	page := models.Page{Items: rows}
	if len(rows) > size {
		page.HasMore = true
		page.Items = rows[:size]
	}
	if page.Items == nil {
		page.Items = []models.ProductListItem{}
	}
	if n := len(page.Items); n > 0 {
		page.NextCursor = CursorAfter(page.Items[n-1], sorting).Encode()
	}
	if after == nil && !req.SkipTotal {
		total, err := src.CountRows(ctx, req.Filter)
		if err != nil {
			return models.Page{}, common.Wrap(op, "failed to count products", err)
		}
		page.Total = &total
	}
	return page, nil
}

// ClampPageSize bounds a requested page size to (0, MaxPageSize].
func ClampPageSize(size int) int {
	if size <= 0 {
		return DefaultPageSize
	}
	if size > MaxPageSize {
		return MaxPageSize
	}
	return size
}

// QueryKey identifies a filter+sort configuration. Equal configurations
// produce equal keys regardless of id order in the filter sets.
func QueryKey(filter models.ProductTableFilter, sorting models.ProductTableSorting, pageSize int) string {
	normalized := filter
	normalized.CategoryIDs = sortedIDs(filter.CategoryIDs)
	normalized.BrandIDs = sortedIDs(filter.BrandIDs)
	normalized.Search = strings.TrimSpace(filter.Search)
	if s, err := NormalizeSorting(sorting); err == nil {
		sorting = s
	}

	raw, _ := json.Marshal(struct {
		F models.ProductTableFilter  `json:"f"`
		S models.ProductTableSorting `json:"s"`
		N int                        `json:"n"`
	}{normalized, sorting, ClampPageSize(pageSize)})
	return strconv.FormatUint(xxhash.Sum64(raw), 16)
}

func sortedIDs(ids []uuid.UUID) []uuid.UUID {
	if len(ids) == 0 {
		return nil
	}
	out := slices.Clone(ids)
	slices.SortFunc(out, func(a, b uuid.UUID) int {
		return strings.Compare(a.String(), b.String())
	})
	return slices.Compact(out)
}

// Describe is a short human form of a configuration for logs.
func Describe(filter models.ProductTableFilter, sorting models.ProductTableSorting) string {
	return fmt.Sprintf("sort=%s:%s categories=%d brands=%d search=%q",
		sorting.Column, sorting.Direction, len(filter.CategoryIDs), len(filter.BrandIDs), filter.Search)
}
