package models

import (
	"time"

	"github.com/google/uuid"
)

// ProductImage references an object already stored in the image bucket.
type ProductImage struct {
	ID        uuid.UUID `json:"id" db:"id"`
	ProductID uuid.UUID `json:"product_id" db:"product_id"`
	ObjectKey string    `json:"object_key" db:"object_key"`
	URL       string    `json:"url,omitempty" db:"-"`
	AltText   *string   `json:"alt_text" db:"alt_text"`
	SortOrder int       `json:"sort_order" db:"sort_order"`
	IsPrimary bool      `json:"is_primary" db:"is_primary"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

type ProductImageInput struct {
	ObjectKey string  `json:"object_key" validate:"required,max=512"`
	AltText   *string `json:"alt_text" validate:"omitempty,max=300"`
	IsPrimary bool    `json:"is_primary"`
}
