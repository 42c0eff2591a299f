package models

import (
	"time"

	"github.com/google/uuid"
)

// Category is a row of the categories table.
type Category struct {
	ID          uuid.UUID  `json:"id" db:"id"`
	Name        string     `json:"name" db:"name"`
	Slug        string     `json:"slug" db:"slug"`
	Description *string    `json:"description,omitempty" db:"description"`
	ImagePath   *string    `json:"image_path,omitempty" db:"image_path"`
	ImageURL    string     `json:"image_url,omitempty" db:"-"` // Presigned, resolved on read
	ParentID    *uuid.UUID `json:"parent_id" db:"parent_id"`
	SortOrder   int        `json:"sort_order" db:"sort_order"`
	IsActive    bool       `json:"is_active" db:"is_active"`
	CreatedAt   time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at" db:"updated_at"`
}

// CategoryTreeNode is a category placed in the hierarchy. Depth is 0 for roots.
type CategoryTreeNode struct {
	Category
	Children []*CategoryTreeNode `json:"children"`
	Depth    int                 `json:"depth"`
}

// EditorRootID is the parent value of top-level nodes in the editor list.
const EditorRootID = "0"

// DraggableTreeNode is the flat projection consumed by the drag-and-drop
// category editor.
type DraggableTreeNode struct {
	ID        string            `json:"id" validate:"required"`
	Parent    string            `json:"parent" validate:"required"`
	Droppable bool              `json:"droppable"`
	Text      string            `json:"text"`
	Data      *CategoryTreeNode `json:"data,omitempty"`
}

// HierarchyChange moves a category under a new parent and/or position.
type HierarchyChange struct {
	ID        uuid.UUID  `json:"id"`
	ParentID  *uuid.UUID `json:"parent_id"`
	SortOrder int        `json:"sort_order"`
}

// CategoryInput is the admin payload for creating or editing a category.
type CategoryInput struct {
	Name        string  `json:"name" validate:"required,max=120"`
	Slug        string  `json:"slug" validate:"omitempty,max=140"`
	Description *string `json:"description" validate:"omitempty,max=2000"`
	ImagePath   *string `json:"image_path" validate:"omitempty,max=512"`
	ParentID    *string `json:"parent_id" validate:"omitempty,uuid"`
	SortOrder   *int    `json:"sort_order" validate:"omitempty,gte=0"`
	IsActive    *bool   `json:"is_active"`
}

// CategoryIntegrityReport lists active categories that cannot be placed in
// the tree.
type CategoryIntegrityReport struct {
	Total    int         `json:"total"`
	Placed   int         `json:"placed"`
	Orphaned []uuid.UUID `json:"orphaned"`
	Cyclic   []uuid.UUID `json:"cyclic"`
}
