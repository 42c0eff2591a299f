package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Product is a row of the normalized products table.
type Product struct {
	ID          uuid.UUID        `json:"id" db:"id"`
	Name        string           `json:"name" db:"name"`
	Slug        string           `json:"slug" db:"slug"`
	SKU         string           `json:"sku" db:"sku"`
	Description *string          `json:"description,omitempty" db:"description"`
	Price       decimal.Decimal  `json:"price" db:"price"`
	SalePrice   *decimal.Decimal `json:"sale_price,omitempty" db:"sale_price"`
	CategoryID  *uuid.UUID       `json:"category_id" db:"category_id"`
	BrandID     *uuid.UUID       `json:"brand_id" db:"brand_id"`
	ImagePath   *string          `json:"image_path,omitempty" db:"image_path"`
	IsActive    bool             `json:"is_active" db:"is_active"`
	IsFeatured  bool             `json:"is_featured" db:"is_featured"`
	IsNew       bool             `json:"is_new" db:"is_new"`
	CreatedAt   time.Time        `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time        `json:"updated_at" db:"updated_at"`
}

// ProductInput is the admin payload for creating or editing a product.
type ProductInput struct {
	Name        string           `json:"name" validate:"required,max=200"`
	Slug        string           `json:"slug" validate:"omitempty,max=220"`
	SKU         string           `json:"sku" validate:"required,max=64"`
	Description *string          `json:"description" validate:"omitempty,max=10000"`
	Price       decimal.Decimal  `json:"price"`
	SalePrice   *decimal.Decimal `json:"sale_price"`
	CategoryID  *string          `json:"category_id" validate:"omitempty,uuid"`
	BrandID     *string          `json:"brand_id" validate:"omitempty,uuid"`
	ImagePath   *string          `json:"image_path" validate:"omitempty,max=512"`
	IsActive    *bool            `json:"is_active"`
	IsFeatured  bool             `json:"is_featured"`
	IsNew       bool             `json:"is_new"`
}

// ProductListItem is the denormalized read model served from the
// product_summary view.
type ProductListItem struct {
	ID               uuid.UUID        `json:"id"`
	Name             string           `json:"name"`
	Slug             string           `json:"slug"`
	SKU              string           `json:"sku"`
	Price            decimal.Decimal  `json:"price"`
	SalePrice        *decimal.Decimal `json:"sale_price,omitempty"`
	IsActive         bool             `json:"is_active"`
	IsFeatured       bool             `json:"is_featured"`
	IsNew            bool             `json:"is_new"`
	OnSale           bool             `json:"on_sale"`
	CategoryID       *uuid.UUID       `json:"category_id"`
	CategoryName     *string          `json:"category_name"`
	BrandID          *uuid.UUID       `json:"brand_id"`
	BrandName        *string          `json:"brand_name"`
	ReviewCount      int              `json:"review_count"`
	AverageRating    decimal.Decimal  `json:"average_rating"`
	PrimaryImagePath *string          `json:"primary_image_path,omitempty"`
	ImageURL         string           `json:"image_url,omitempty"`
	CreatedAt        time.Time        `json:"created_at"`
	UpdatedAt        time.Time        `json:"updated_at"`
}

// ProductTableFilter holds the admin table filters. Nil / empty fields are
// not applied.
type ProductTableFilter struct {
	CategoryIDs []uuid.UUID      `json:"category_ids,omitempty"`
	BrandIDs    []uuid.UUID      `json:"brand_ids,omitempty"`
	MinPrice    *decimal.Decimal `json:"min_price,omitempty"`
	MaxPrice    *decimal.Decimal `json:"max_price,omitempty"`
	IsActive    *bool            `json:"is_active,omitempty"`
	IsFeatured  *bool            `json:"is_featured,omitempty"`
	IsNew       *bool            `json:"is_new,omitempty"`
	OnSale      *bool            `json:"on_sale,omitempty"`
	Search      string           `json:"search,omitempty"`
}

// Sort directions.
const (
	SortAsc  = "asc"
	SortDesc = "desc"
)

// ProductTableSorting is a single (column, direction) pair.
type ProductTableSorting struct {
	Column    string `json:"column"`
	Direction string `json:"direction"`
}

// DefaultProductSorting is newest first.
func DefaultProductSorting() ProductTableSorting {
	return ProductTableSorting{Column: "created_at", Direction: SortDesc}
}

// Page is one cursor-bounded slice of the product listing.
type Page struct {
	Items      []ProductListItem `json:"items"`
	HasMore    bool              `json:"has_more"`
	NextCursor string            `json:"next_cursor,omitempty"`
	// Total counts every row matching the filter. Only the first page has it.
	Total *int64 `json:"total,omitempty"`
}

// ProductPatch is the set of flags a bulk update may change.
type ProductPatch struct {
	IsActive   *bool `json:"is_active,omitempty"`
	IsFeatured *bool `json:"is_featured,omitempty"`
	IsNew      *bool `json:"is_new,omitempty"`
}

// Empty reports whether the patch changes nothing.
func (p ProductPatch) Empty() bool {
	return p.IsActive == nil && p.IsFeatured == nil && p.IsNew == nil
}
