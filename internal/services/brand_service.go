package services

import (
	"context"

	"furnistore/internal/caching"
	"furnistore/internal/common"
	"furnistore/internal/models"
	"furnistore/internal/repositories"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type BrandService interface {
	ListActive(ctx context.Context) ([]*models.Brand, error)
	GetBySlug(ctx context.Context, slug string) (*models.Brand, error)
	Create(ctx context.Context, input models.BrandInput) (*models.Brand, error)
	Update(ctx context.Context, id uuid.UUID, input models.BrandInput) (*models.Brand, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type brandService struct {
	repo    repositories.BrandRepository
	cache   caching.CacheService
	storage ImageStorage
	logger  *zap.Logger
}

func NewBrandService(repo repositories.BrandRepository, cache caching.CacheService, storage ImageStorage, logger *zap.Logger) BrandService {
	if cache == nil {
		cache = caching.NewNopCache()
	}
	return &brandService{repo: repo, cache: cache, storage: storage, logger: logger}
}

func (s *brandService) ListActive(ctx context.Context) ([]*models.Brand, error) {
	brands, err := s.repo.ListActive(ctx)
	if err != nil {
		return nil, common.Wrap("brands.ListActive", "failed to list brands", err)
	}
	for _, b := range brands {
		b.LogoURL = resolveImageURL(ctx, s.storage, s.logger, b.LogoPath)
	}
	if brands == nil {
		brands = []*models.Brand{}
	}
	return brands, nil
}

func (s *brandService) GetBySlug(ctx context.Context, slug string) (*models.Brand, error) {
	b, err := s.repo.GetBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}
	b.LogoURL = resolveImageURL(ctx, s.storage, s.logger, b.LogoPath)
	return b, nil
}

func (s *brandService) Create(ctx context.Context, input models.BrandInput) (*models.Brand, error) {
	const op = "brands.Create"
	slug, err := makeSlug(op, input.Slug, input.Name)
	if err != nil {
		return nil, err
	}
	b := &models.Brand{
		ID:          uuid.New(),
		Name:        input.Name,
		Slug:        slug,
		Description: input.Description,
		LogoPath:    input.LogoPath,
		IsActive:    input.IsActive == nil || *input.IsActive,
	}
	if err := s.repo.Create(ctx, b); err != nil {
		return nil, wrapWrite(op, "failed to create brand", err)
	}
	s.logger.Info("brand created", zap.String("id", b.ID.String()), zap.String("slug", b.Slug))
	return b, nil
}

func (s *brandService) Update(ctx context.Context, id uuid.UUID, input models.BrandInput) (*models.Brand, error) {
	const op = "brands.Update"
	b, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	slug, err := makeSlug(op, input.Slug, input.Name)
	if err != nil {
		return nil, err
	}
	b.Name = input.Name
	b.Slug = slug
	b.Description = input.Description
	b.LogoPath = input.LogoPath
	if input.IsActive != nil {
		b.IsActive = *input.IsActive
	}
	if err := s.repo.Update(ctx, b); err != nil {
		return nil, wrapWrite(op, "failed to update brand", err)
	}
	s.invalidateListings(ctx)
	return b, nil
}

func (s *brandService) Delete(ctx context.Context, id uuid.UUID) error {
	if err := s.repo.Deactivate(ctx, id); err != nil {
		return wrapWrite("brands.Delete", "failed to delete brand", err)
	}
	s.invalidateListings(ctx)
	return nil
}

// Listing rows carry the brand name.
func (s *brandService) invalidateListings(ctx context.Context) {
	if err := s.cache.InvalidateListings(ctx); err != nil {
		s.logger.Warn("failed to invalidate listing cache", zap.Error(err))
	}
	if err := s.cache.InvalidateProducts(ctx); err != nil {
		s.logger.Warn("failed to invalidate product cache", zap.Error(err))
	}
}
