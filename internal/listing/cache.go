package listing

import (
	"slices"

	"furnistore/internal/models"
)

// PageCache holds the accumulated pages per query key. It belongs to one
// engine and is not safe for concurrent use on its own.
type PageCache struct {
	pages map[string][]models.Page
}

func NewPageCache() *PageCache {
	return &PageCache{pages: make(map[string][]models.Page)}
}

// Get returns the pages stored for key, oldest first.
func (c *PageCache) Get(key string) []models.Page {
	return c.pages[key]
}

// Append adds page after the pages already stored for key.
func (c *PageCache) Append(key string, page models.Page) {
	c.pages[key] = append(slices.Clip(c.pages[key]), page)
}

// Invalidate forgets the pages of one key.
func (c *PageCache) Invalidate(key string) {
	delete(c.pages, key)
}

// Clear forgets everything.
func (c *PageCache) Clear() {
	clear(c.pages)
}

// Len returns the number of keys with pages.
func (c *PageCache) Len() int {
	return len(c.pages)
}
