package models

import (
	"time"

	"github.com/google/uuid"
)

type Brand struct {
	ID          uuid.UUID `json:"id" db:"id"`
	Name        string    `json:"name" db:"name"`
	Slug        string    `json:"slug" db:"slug"`
	Description *string   `json:"description,omitempty" db:"description"`
	LogoPath    *string   `json:"logo_path,omitempty" db:"logo_path"`
	LogoURL     string    `json:"logo_url,omitempty" db:"-"`
	IsActive    bool      `json:"is_active" db:"is_active"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time `json:"updated_at" db:"updated_at"`
}

type BrandInput struct {
	Name        string  `json:"name" validate:"required,max=120"`
	Slug        string  `json:"slug" validate:"omitempty,max=140"`
	Description *string `json:"description" validate:"omitempty,max=2000"`
	LogoPath    *string `json:"logo_path" validate:"omitempty,max=512"`
	IsActive    *bool   `json:"is_active"`
}
