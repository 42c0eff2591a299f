package caching

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"furnistore/internal/models"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const keyPrefix = "furnistore"

type CacheService interface {
	// Category tree
	GetCategoryTree(ctx context.Context) ([]*models.CategoryTreeNode, error)
	SetCategoryTree(ctx context.Context, tree []*models.CategoryTreeNode, ttl time.Duration) error
	DeleteCategoryTree(ctx context.Context) error

	// Storefront listing pages, keyed by listing.QueryKey plus cursor
	GetListingPage(ctx context.Context, key string) (*models.Page, error)
	SetListingPage(ctx context.Context, key string, page models.Page, ttl time.Duration) error
	InvalidateListings(ctx context.Context) error

	// Product detail, keyed by slug
	GetProduct(ctx context.Context, slug string) (*models.ProductListItem, error)
	SetProduct(ctx context.Context, item *models.ProductListItem, ttl time.Duration) error
	DeleteProduct(ctx context.Context, slug string) error
	InvalidateProducts(ctx context.Context) error

	// Rate limiting
	IsRateLimited(ctx context.Context, key string, limit int, window time.Duration) (bool, error)

	Ping(ctx context.Context) error
}

func CategoryTreeKey() string        { return keyPrefix + ":categories:tree" }
func ListingKey(key string) string   { return keyPrefix + ":listing:" + key }
func ProductKey(slug string) string  { return keyPrefix + ":product:" + slug }
func RateLimitKey(key string) string { return keyPrefix + ":ratelimit:" + key }

type redisCacheService struct {
	client redis.UniversalClient
	logger *zap.Logger
}

// NewRedisClient parses addr, which may be a bare host:port or a redis://
// URL, and checks connectivity once. A failed ping is logged, not fatal.
func NewRedisClient(addr, password string, db int, logger *zap.Logger) (*redis.Client, error) {
	var opts *redis.Options
	if strings.HasPrefix(addr, "redis://") || strings.HasPrefix(addr, "rediss://") {
		parsed, err := redis.ParseURL(addr)
		if err != nil {
			return nil, fmt.Errorf("parse redis url: %w", err)
		}
		opts = parsed
	} else {
		opts = &redis.Options{Addr: addr, DB: db}
	}
	if password != "" {
		opts.Password = password
	}

	client := redis.NewClient(opts)
	if err := client.Ping(context.Background()).Err(); err != nil {
		logger.Warn("redis ping failed on initialization", zap.String("addr", opts.Addr), zap.Error(err))
	} else {
		logger.Debug("redis connection established", zap.String("addr", opts.Addr))
	}
	return client, nil
}

func NewRedisCacheService(client redis.UniversalClient, logger *zap.Logger) CacheService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &redisCacheService{client: client, logger: logger}
}

// getJSON decodes the value at key into dst. It reports false on a miss.
func (r *redisCacheService) getJSON(ctx context.Context, key string, dst any) (bool, error) {
	data, err := r.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return false, nil
		}
		return false, err
	}
	if err := json.Unmarshal(data, dst); err != nil {
		// Undecodable entries are treated as misses.
		r.logger.Warn("dropping undecodable cache entry", zap.String("key", key), zap.Error(err))
		_ = r.client.Del(ctx, key).Err()
		return false, nil
	}
	return true, nil
}

func (r *redisCacheService) setJSON(ctx context.Context, key string, v any, ttl time.Duration) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return r.client.Set(ctx, key, data, ttl).Err()
}

func (r *redisCacheService) GetCategoryTree(ctx context.Context) ([]*models.CategoryTreeNode, error) {
	var tree []*models.CategoryTreeNode
	ok, err := r.getJSON(ctx, CategoryTreeKey(), &tree)
	if err != nil || !ok {
		return nil, err
	}
	if tree == nil {
		tree = []*models.CategoryTreeNode{}
	}
	return tree, nil
}

func (r *redisCacheService) SetCategoryTree(ctx context.Context, tree []*models.CategoryTreeNode, ttl time.Duration) error {
	return r.setJSON(ctx, CategoryTreeKey(), tree, ttl)
}

func (r *redisCacheService) DeleteCategoryTree(ctx context.Context) error {
	return r.client.Del(ctx, CategoryTreeKey()).Err()
}

func (r *redisCacheService) GetListingPage(ctx context.Context, key string) (*models.Page, error) {
	var page models.Page
	ok, err := r.getJSON(ctx, ListingKey(key), &page)
	if err != nil || !ok {
		return nil, err
	}
	return &page, nil
}

func (r *redisCacheService) SetListingPage(ctx context.Context, key string, page models.Page, ttl time.Duration) error {
	return r.setJSON(ctx, ListingKey(key), page, ttl)
}

func (r *redisCacheService) InvalidateListings(ctx context.Context) error {
	return r.deletePattern(ctx, ListingKey("*"))
}

func (r *redisCacheService) GetProduct(ctx context.Context, slug string) (*models.ProductListItem, error) {
	var item models.ProductListItem
	ok, err := r.getJSON(ctx, ProductKey(slug), &item)
	if err != nil || !ok {
		return nil, err
	}
	return &item, nil
}

func (r *redisCacheService) SetProduct(ctx context.Context, item *models.ProductListItem, ttl time.Duration) error {
	return r.setJSON(ctx, ProductKey(item.Slug), item, ttl)
}

func (r *redisCacheService) DeleteProduct(ctx context.Context, slug string) error {
	return r.client.Del(ctx, ProductKey(slug)).Err()
}

func (r *redisCacheService) InvalidateProducts(ctx context.Context) error {
	return r.deletePattern(ctx, ProductKey("*"))
}

// deletePattern removes matching keys in SCAN batches.
func (r *redisCacheService) deletePattern(ctx context.Context, pattern string) error {
	iter := r.client.Scan(ctx, 0, pattern, 200).Iterator()
	var batch []string
	for iter.Next(ctx) {
		batch = append(batch, iter.Val())
		if len(batch) == 200 {
			if err := r.client.Del(ctx, batch...).Err(); err != nil {
				return err
			}
			batch = batch[:0]
		}
	}
	if err := iter.Err(); err != nil {
		return err
	}
	if len(batch) > 0 {
		return r.client.Del(ctx, batch...).Err()
	}
	return nil
}

func (r *redisCacheService) IsRateLimited(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	cacheKey := RateLimitKey(key)
	count, err := r.client.Incr(ctx, cacheKey).Result()
	if err != nil {
		return false, err
	}
	if count == 1 {
		r.client.Expire(ctx, cacheKey, window)
	}
	return count > int64(limit), nil
}

func (r *redisCacheService) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}
