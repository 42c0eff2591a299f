package caching

import (
	"context"
	"time"

	"furnistore/internal/models"
)

// nopCache is used when no redis address is configured. Every read misses.
type nopCache struct{}

func NewNopCache() CacheService { return nopCache{} }

func (nopCache) GetCategoryTree(context.Context) ([]*models.CategoryTreeNode, error) { return nil, nil }
func (nopCache) SetCategoryTree(context.Context, []*models.CategoryTreeNode, time.Duration) error {
	return nil
}
func (nopCache) DeleteCategoryTree(context.Context) error                     { return nil }
func (nopCache) GetListingPage(context.Context, string) (*models.Page, error) { return nil, nil }
func (nopCache) SetListingPage(context.Context, string, models.Page, time.Duration) error {
	return nil
}
func (nopCache) InvalidateListings(context.Context) error                                 { return nil }
func (nopCache) GetProduct(context.Context, string) (*models.ProductListItem, error)      { return nil, nil }
func (nopCache) SetProduct(context.Context, *models.ProductListItem, time.Duration) error { return nil }
func (nopCache) DeleteProduct(context.Context, string) error                              { return nil }
func (nopCache) InvalidateProducts(context.Context) error                                 { return nil }
func (nopCache) IsRateLimited(context.Context, string, int, time.Duration) (bool, error) {
	return false, nil
}
func (nopCache) Ping(context.Context) error { return nil }
