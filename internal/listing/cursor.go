package listing

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"furnistore/internal/common"
	"furnistore/internal/models"

	"github.com/google/uuid"
)

var ErrInvalidCursor = errors.New("invalid cursor")

// Cursor marks the last row of a page. Rows are totally ordered by
// (sort column, created_at, id), so the cursor carries all three.
type Cursor struct {
	Column    string    `json:"c"`
	Value     string    `json:"v,omitempty"`
	CreatedAt time.Time `json:"t"`
	ID        uuid.UUID `json:"i"`
}

// SortColumn describes a sortable column of product_summary.
type SortColumn struct {
	Name string
	// Expr is the SQL expression ordered on. Nullable columns are coalesced
	// so the row-value cursor comparison never meets a NULL.
	Expr string
	// SQLType is the cast applied to the cursor value; empty for created_at,
	// which is compared through the tiebreaker.
	SQLType string
	value   func(models.ProductListItem) string
}

var sortColumns = map[string]SortColumn{
	"created_at": {Name: "created_at", Expr: "created_at"},
	"updated_at": {Name: "updated_at", Expr: "updated_at", SQLType: "timestamptz", value: func(it models.ProductListItem) string {
		return it.UpdatedAt.UTC().Format(time.RFC3339Nano)
	}},
	"name": {Name: "name", Expr: "name", SQLType: "text", value: func(it models.ProductListItem) string { return it.Name }},
	"sku":  {Name: "sku", Expr: "sku", SQLType: "text", value: func(it models.ProductListItem) string { return it.SKU }},
	"price": {Name: "price", Expr: "price", SQLType: "numeric", value: func(it models.ProductListItem) string {
		return it.Price.String()
	}},
	// Products without a sale price sort as zero.
	"sale_price": {Name: "sale_price", Expr: "COALESCE(sale_price, 0)", SQLType: "numeric", value: func(it models.ProductListItem) string {
		if it.SalePrice == nil {
			return "0"
		}
		return it.SalePrice.String()
	}},
	"category_name": {Name: "category_name", Expr: "COALESCE(category_name, '')", SQLType: "text", value: func(it models.ProductListItem) string {
		return common.SafeString(it.CategoryName)
	}},
	"brand_name": {Name: "brand_name", Expr: "COALESCE(brand_name, '')", SQLType: "text", value: func(it models.ProductListItem) string {
		return common.SafeString(it.BrandName)
	}},
	"average_rating": {Name: "average_rating", Expr: "average_rating", SQLType: "numeric", value: func(it models.ProductListItem) string {
		return it.AverageRating.String()
	}},
}

// LookupSortColumn returns the column definition for name.
func LookupSortColumn(name string) (SortColumn, bool) {
	col, ok := sortColumns[name]
	return col, ok
}

// NormalizeSorting fills defaults and rejects unknown columns.
func NormalizeSorting(s models.ProductTableSorting) (models.ProductTableSorting, error) {
	if s.Column == "" {
		s.Column = "created_at"
	}
	if _, ok := sortColumns[s.Column]; !ok {
		return s, errors.New("unsupported sort column: " + s.Column)
	}
	switch strings.ToLower(s.Direction) {
	case "", models.SortDesc:
		s.Direction = models.SortDesc
	case models.SortAsc:
		s.Direction = models.SortAsc
	default:
		return s, errors.New("unsupported sort direction: " + s.Direction)
	}
	return s, nil
}

// CursorAfter builds the cursor that resumes after item.
func CursorAfter(item models.ProductListItem, sorting models.ProductTableSorting) Cursor {
	c := Cursor{Column: sorting.Column, CreatedAt: item.CreatedAt, ID: item.ID}
	if col, ok := sortColumns[sorting.Column]; ok && col.value != nil {
		c.Value = col.value(item)
	}
	return c
}

// Encode returns the opaque form handed to clients.
func (c Cursor) Encode() string {
	raw, _ := json.Marshal(c)
	return base64.RawURLEncoding.EncodeToString(raw)
}

// DecodeCursor parses an opaque cursor and checks it belongs to sorting.
func DecodeCursor(s string, sorting models.ProductTableSorting) (*Cursor, error) {
	if s == "" {
		return nil, nil
	}
	raw, err := base64.RawURLEncoding.DecodeString(s)
	if err != nil {
		return nil, ErrInvalidCursor
	}
	var c Cursor
	if err := json.Unmarshal(raw, &c); err != nil {
		return nil, ErrInvalidCursor
	}
	if c.Column != sorting.Column || c.ID == uuid.Nil || c.CreatedAt.IsZero() {
		return nil, ErrInvalidCursor
	}
	return &c, nil
}
