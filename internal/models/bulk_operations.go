package models

import (
	"github.com/google/uuid"
)

// ProductBulkUpdate applies one patch to every listed product.
type ProductBulkUpdate struct {
	ProductIDs []uuid.UUID  `json:"product_ids" validate:"required,min=1,max=500"`
	Patch      ProductPatch `json:"patch"`
}

// ProductBulkDelete soft-deletes every listed product.
type ProductBulkDelete struct {
	ProductIDs []uuid.UUID `json:"product_ids" validate:"required,min=1,max=500"`
}

// BulkOperationResult is returned by bulk endpoints. Bulk operations either
// apply to every item or to none.
type BulkOperationResult struct {
	Status        string `json:"status"` // "completed"
	TotalItems    int    `json:"total_items"`
	AffectedItems int    `json:"affected_items"`
}
