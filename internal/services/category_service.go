package services

import (
	"context"
	"errors"
	"time"

	"furnistore/internal/caching"
	"furnistore/internal/catalog"
	"furnistore/internal/common"
	"furnistore/internal/models"
	"furnistore/internal/repositories"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type CategoryService interface {
	ListActive(ctx context.Context) ([]*models.Category, error)
	Tree(ctx context.Context) ([]*models.CategoryTreeNode, error)
	EditorNodes(ctx context.Context) ([]models.DraggableTreeNode, error)
	GetBySlug(ctx context.Context, slug string) (*models.Category, error)
	Create(ctx context.Context, input models.CategoryInput) (*models.Category, error)
	Update(ctx context.Context, id uuid.UUID, input models.CategoryInput) (*models.Category, error)
	Delete(ctx context.Context, id uuid.UUID) error
	ApplyHierarchy(ctx context.Context, next []models.DraggableTreeNode) ([]models.HierarchyChange, error)
	CheckIntegrity(ctx context.Context) (models.CategoryIntegrityReport, error)
}

type categoryService struct {
	repo    repositories.CategoryRepository
	cache   caching.CacheService
	storage ImageStorage
	logger  *zap.Logger
	treeTTL time.Duration
}

func NewCategoryService(repo repositories.CategoryRepository, cache caching.CacheService, storage ImageStorage,
	logger *zap.Logger, treeTTL time.Duration) CategoryService {
	if cache == nil {
		cache = caching.NewNopCache()
	}
	return &categoryService{repo: repo, cache: cache, storage: storage, logger: logger, treeTTL: treeTTL}
}

func (s *categoryService) ListActive(ctx context.Context) ([]*models.Category, error) {
	categories, err := s.repo.ListActive(ctx)
	if err != nil {
		return nil, common.Wrap("categories.ListActive", "failed to list categories", err)
	}
	for _, c := range categories {
		c.ImageURL = resolveImageURL(ctx, s.storage, s.logger, c.ImagePath)
	}
	if categories == nil {
		categories = []*models.Category{}
	}
	return categories, nil
}

// Tree serves the storefront tree from cache, rebuilding it on a miss.
func (s *categoryService) Tree(ctx context.Context) ([]*models.CategoryTreeNode, error) {
	if cached, err := s.cache.GetCategoryTree(ctx); err != nil {
		s.logger.Warn("category tree cache read failed", zap.Error(err))
	} else if cached != nil {
		return cached, nil
	}

	tree, err := s.buildTree(ctx)
	if err != nil {
		return nil, err
	}
	catalog.Walk(tree, func(node, _ *models.CategoryTreeNode) bool {
		node.ImageURL = resolveImageURL(ctx, s.storage, s.logger, node.ImagePath)
		return true
	})
	if err := s.cache.SetCategoryTree(ctx, tree, s.treeTTL); err != nil {
		s.logger.Warn("category tree cache write failed", zap.Error(err))
	}
	return tree, nil
}

func (s *categoryService) buildTree(ctx context.Context) ([]*models.CategoryTreeNode, error) {
	records, err := s.repo.ListActive(ctx)
	if err != nil {
		return nil, common.Wrap("categories.Tree", "failed to load categories", err)
	}
	tree := catalog.BuildTree(records)
	if dropped := catalog.DroppedRecords(records, tree); len(dropped) > 0 {
		ids := make([]string, 0, len(dropped))
		for _, c := range dropped {
			ids = append(ids, c.ID.String())
		}
		s.logger.Warn("categories left out of the tree",
			zap.Int("count", len(dropped)), zap.Strings("ids", ids))
	}
	if tree == nil {
		tree = []*models.CategoryTreeNode{}
	}
	return tree, nil
}

// EditorNodes always reads fresh data so a drop is diffed against the
// current database state.
func (s *categoryService) EditorNodes(ctx context.Context) ([]models.DraggableTreeNode, error) {
	tree, err := s.buildTree(ctx)
	if err != nil {
		return nil, err
	}
	return catalog.FlattenForEditor(tree), nil
}

func (s *categoryService) GetBySlug(ctx context.Context, slug string) (*models.Category, error) {
	c, err := s.repo.GetBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}
	c.ImageURL = resolveImageURL(ctx, s.storage, s.logger, c.ImagePath)
	return c, nil
}

func (s *categoryService) Create(ctx context.Context, input models.CategoryInput) (*models.Category, error) {
	const op = "categories.Create"
	slug, err := makeSlug(op, input.Slug, input.Name)
	if err != nil {
		return nil, err
	}
	parentID, err := common.ParseOptionalUUID(input.ParentID, "parent_id")
	if err != nil {
		return nil, common.Invalid(op, err.Error())
	}
	if parentID != nil {
		if err := s.requireActiveParent(ctx, op, *parentID); err != nil {
			return nil, err
		}
	}

	c := &models.Category{
		ID:          uuid.New(),
		Name:        input.Name,
		Slug:        slug,
		Description: input.Description,
		ImagePath:   input.ImagePath,
		ParentID:    parentID,
		IsActive:    true,
	}
	if input.IsActive != nil {
		c.IsActive = *input.IsActive
	}
	if input.SortOrder != nil {
		c.SortOrder = *input.SortOrder
	} else {
		next, err := s.repo.NextSortOrder(ctx, parentID)
		if err != nil {
			return nil, common.Wrap(op, "failed to create category", err)
		}
		c.SortOrder = next
	}

	if err := s.repo.Create(ctx, c); err != nil {
		return nil, wrapWrite(op, "failed to create category", err)
	}
	s.invalidate(ctx)
	s.logger.Info("category created", zap.String("id", c.ID.String()), zap.String("slug", c.Slug))
	return c, nil
}

func (s *categoryService) Update(ctx context.Context, id uuid.UUID, input models.CategoryInput) (*models.Category, error) {
	const op = "categories.Update"
	c, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	slug, err := makeSlug(op, input.Slug, input.Name)
	if err != nil {
		return nil, err
	}
	parentID, err := common.ParseOptionalUUID(input.ParentID, "parent_id")
	if err != nil {
		return nil, common.Invalid(op, err.Error())
	}
	if parentID != nil {
		if *parentID == id {
			return nil, common.Invalid(op, "a category cannot be its own parent")
		}
		if err := s.requireActiveParent(ctx, op, *parentID); err != nil {
			return nil, err
		}
		records, err := s.repo.ListActive(ctx)
		if err != nil {
			return nil, common.Wrap(op, "failed to update category", err)
		}
		if catalog.WouldCreateCycle(records, id, parentID) {
			return nil, common.Invalid(op, "moving the category there would create a cycle")
		}
	}

	c.Name = input.Name
	c.Slug = slug
	c.Description = input.Description
	c.ImagePath = input.ImagePath
	c.ParentID = parentID
	if input.SortOrder != nil {
		c.SortOrder = *input.SortOrder
	}
	if input.IsActive != nil {
		c.IsActive = *input.IsActive
	}
	if err := s.repo.Update(ctx, c); err != nil {
		return nil, wrapWrite(op, "failed to update category", err)
	}
	s.invalidate(ctx)
	return c, nil
}

func (s *categoryService) Delete(ctx context.Context, id uuid.UUID) error {
	if err := s.repo.Deactivate(ctx, id); err != nil {
		return wrapWrite("categories.Delete", "failed to delete category", err)
	}
	s.invalidate(ctx)
	s.logger.Info("category deactivated", zap.String("id", id.String()))
	return nil
}

// ApplyHierarchy persists a drop from the tree editor. The submitted list is
// diffed against the hierarchy as stored now; only the difference is written,
// in one transaction.
func (s *categoryService) ApplyHierarchy(ctx context.Context, next []models.DraggableTreeNode) ([]models.HierarchyChange, error) {
	const op = "categories.ApplyHierarchy"
	tree, err := s.buildTree(ctx)
	if err != nil {
		return nil, err
	}
	editor := catalog.NewTreeEditor(s.repo, s.logger)
	editor.Sync(tree)

	changes, err := editor.ApplyDrop(ctx, next)
	switch {
	case err == nil:
	case errors.Is(err, catalog.ErrUnknownNode), errors.Is(err, catalog.ErrMissingNode),
		errors.Is(err, catalog.ErrDuplicateNode), errors.Is(err, catalog.ErrHierarchyCycle):
		return nil, &common.ServiceError{Op: op, Message: err.Error(), Err: common.ErrValidation}
	default:
		return nil, wrapWrite(op, "failed to update category hierarchy", err)
	}
	if len(changes) > 0 {
		s.invalidate(ctx)
	}
	if changes == nil {
		changes = []models.HierarchyChange{}
	}
	return changes, nil
}

func (s *categoryService) CheckIntegrity(ctx context.Context) (models.CategoryIntegrityReport, error) {
	records, err := s.repo.ListActive(ctx)
	if err != nil {
		return models.CategoryIntegrityReport{}, common.Wrap("categories.CheckIntegrity", "failed to load categories", err)
	}
	return catalog.Inspect(records), nil
}

func (s *categoryService) requireActiveParent(ctx context.Context, op string, parentID uuid.UUID) error {
	parent, err := s.repo.GetByID(ctx, parentID)
	if err != nil {
		if common.IsNotFound(err) {
			return common.Invalid(op, "parent category does not exist")
		}
		return common.Wrap(op, "failed to load parent category", err)
	}
	if !parent.IsActive {
		return common.Invalid(op, "parent category is inactive")
	}
	return nil
}

// invalidate drops the cached tree and listing pages, which embed category
// names.
func (s *categoryService) invalidate(ctx context.Context) {
	if err := s.cache.DeleteCategoryTree(ctx); err != nil {
		s.logger.Warn("failed to invalidate category tree cache", zap.Error(err))
	}
	if err := s.cache.InvalidateListings(ctx); err != nil {
		s.logger.Warn("failed to invalidate listing cache", zap.Error(err))
	}
}
