package services

import (
	"context"
	"encoding/csv"
	"errors"
	"io"
	"strconv"
	"time"

	"furnistore/internal/caching"
	"furnistore/internal/common"
	"furnistore/internal/listing"
	"furnistore/internal/models"
	"furnistore/internal/repositories"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type ProductService interface {
	listing.Fetcher
	listing.Mutator

	StorefrontPage(ctx context.Context, req listing.PageRequest) (models.Page, error)
	GetBySlug(ctx context.Context, slug string) (*models.ProductListItem, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.Product, error)
	Create(ctx context.Context, input models.ProductInput) (*models.Product, error)
	Update(ctx context.Context, id uuid.UUID, input models.ProductInput) (*models.Product, error)
	Delete(ctx context.Context, id uuid.UUID) error
	Export(ctx context.Context, w io.Writer, filter models.ProductTableFilter, sorting models.ProductTableSorting) (int, error)

	ListImages(ctx context.Context, productID uuid.UUID) ([]*models.ProductImage, error)
	AddImage(ctx context.Context, productID uuid.UUID, input models.ProductImageInput) (*models.ProductImage, error)
	DeleteImage(ctx context.Context, productID, imageID uuid.UUID) error

	InvalidateListings(ctx context.Context) error
}

type ProductServiceDeps struct {
	Products   repositories.ProductRepository
	Images     repositories.ProductImageRepository
	Categories repositories.CategoryRepository
	Brands     repositories.BrandRepository
	Cache      caching.CacheService
	Storage    ImageStorage
	Logger     *zap.Logger
	ListingTTL time.Duration
	ProductTTL time.Duration
}

type productService struct {
	ProductServiceDeps
}

func NewProductService(deps ProductServiceDeps) ProductService {
	if deps.Cache == nil {
		deps.Cache = caching.NewNopCache()
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	return &productService{ProductServiceDeps: deps}
}

// FetchPage serves the admin table: any filter, no caching.
func (s *productService) FetchPage(ctx context.Context, req listing.PageRequest) (models.Page, error) {
	page, err := listing.FetchPage(ctx, s.Products, req)
	if err != nil {
		return models.Page{}, err
	}
	s.resolveImages(ctx, page.Items)
	return page, nil
}

// StorefrontPage only shows active products. First pages are cached per
// configuration; later pages are always read through.
func (s *productService) StorefrontPage(ctx context.Context, req listing.PageRequest) (models.Page, error) {
	active := true
	req.Filter.IsActive = &active

	var key string
	if req.Cursor == "" {
		key = listing.QueryKey(req.Filter, req.Sorting, req.PageSize)
		if cached, err := s.Cache.GetListingPage(ctx, key); err != nil {
			s.Logger.Warn("listing cache read failed", zap.Error(err))
		} else if cached != nil {
			return *cached, nil
		}
	}

	page, err := s.FetchPage(ctx, req)
	if err != nil {
		return models.Page{}, err
	}
	if key != "" {
		if err := s.Cache.SetListingPage(ctx, key, page, s.ListingTTL); err != nil {
			s.Logger.Warn("listing cache write failed", zap.Error(err))
		}
	}
	return page, nil
}

func (s *productService) GetBySlug(ctx context.Context, slug string) (*models.ProductListItem, error) {
	if cached, err := s.Cache.GetProduct(ctx, slug); err != nil {
		s.Logger.Warn("product cache read failed", zap.String("slug", slug), zap.Error(err))
	} else if cached != nil {
		return cached, nil
	}
	item, err := s.Products.GetSummaryBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}
	item.ImageURL = resolveImageURL(ctx, s.Storage, s.Logger, item.PrimaryImagePath)
	if err := s.Cache.SetProduct(ctx, item, s.ProductTTL); err != nil {
		s.Logger.Warn("product cache write failed", zap.String("slug", slug), zap.Error(err))
	}
	return item, nil
}

func (s *productService) GetByID(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	return s.Products.GetByID(ctx, id)
}

func (s *productService) Create(ctx context.Context, input models.ProductInput) (*models.Product, error) {
	const op = "products.Create"
	p := &models.Product{ID: uuid.New(), IsActive: true}
	if err := s.apply(ctx, op, p, input); err != nil {
		return nil, err
	}
	if err := s.Products.Create(ctx, p); err != nil {
		return nil, wrapWrite(op, "failed to create product", err)
	}
	s.invalidate(ctx, "")
	s.Logger.Info("product created", zap.String("id", p.ID.String()), zap.String("sku", p.SKU))
	return p, nil
}

func (s *productService) Update(ctx context.Context, id uuid.UUID, input models.ProductInput) (*models.Product, error) {
	const op = "products.Update"
	p, err := s.Products.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	oldSlug := p.Slug
	if err := s.apply(ctx, op, p, input); err != nil {
		return nil, err
	}
	if err := s.Products.Update(ctx, p); err != nil {
		return nil, wrapWrite(op, "failed to update product", err)
	}
	s.invalidate(ctx, oldSlug)
	return p, nil
}

// apply validates input against the catalog and copies it onto p.
func (s *productService) apply(ctx context.Context, op string, p *models.Product, input models.ProductInput) error {
	slug, err := makeSlug(op, input.Slug, input.Name)
	if err != nil {
		return err
	}
	if input.Price.IsNegative() {
		return common.Invalid(op, "price must not be negative")
	}
	if input.SalePrice != nil && input.SalePrice.IsNegative() {
		return common.Invalid(op, "sale_price must not be negative")
	}
	categoryID, err := common.ParseOptionalUUID(input.CategoryID, "category_id")
	if err != nil {
		return common.Invalid(op, err.Error())
	}
	brandID, err := common.ParseOptionalUUID(input.BrandID, "brand_id")
	if err != nil {
		return common.Invalid(op, err.Error())
	}
	if categoryID != nil {
		if _, err := s.Categories.GetByID(ctx, *categoryID); err != nil {
			if common.IsNotFound(err) {
				return common.Invalid(op, "category does not exist")
			}
			return common.Wrap(op, "failed to load category", err)
		}
	}
	if brandID != nil {
		if _, err := s.Brands.GetByID(ctx, *brandID); err != nil {
			if common.IsNotFound(err) {
				return common.Invalid(op, "brand does not exist")
			}
			return common.Wrap(op, "failed to load brand", err)
		}
	}

	p.Name = input.Name
	p.Slug = slug
	p.SKU = input.SKU
	p.Description = input.Description
	p.Price = input.Price
	p.SalePrice = input.SalePrice
	p.CategoryID = categoryID
	p.BrandID = brandID
	p.ImagePath = input.ImagePath
	p.IsFeatured = input.IsFeatured
	p.IsNew = input.IsNew
	if input.IsActive != nil {
		p.IsActive = *input.IsActive
	}
	return nil
}

func (s *productService) Delete(ctx context.Context, id uuid.UUID) error {
	if err := s.Products.Deactivate(ctx, id); err != nil {
		return wrapWrite("products.Delete", "failed to delete product", err)
	}
	s.invalidate(ctx, "")
	return nil
}

func (s *productService) BulkUpdate(ctx context.Context, ids []uuid.UUID, patch models.ProductPatch) error {
	n, err := s.Products.BulkUpdate(ctx, ids, patch)
	if err != nil {
		return wrapWrite("products.BulkUpdate", "bulk update failed", err)
	}
	s.Logger.Info("bulk product update", zap.Int64("affected", n))
	s.invalidate(ctx, "")
	return nil
}

func (s *productService) BulkDelete(ctx context.Context, ids []uuid.UUID) error {
	n, err := s.Products.BulkDeactivate(ctx, ids)
	if err != nil {
		return wrapWrite("products.BulkDelete", "bulk delete failed", err)
	}
	s.Logger.Info("bulk product delete", zap.Int64("affected", n))
	s.invalidate(ctx, "")
	return nil
}

var exportHeader = []string{"id", "sku", "name", "price", "sale_price", "category", "brand",
	"is_active", "is_featured", "is_new", "on_sale", "review_count", "average_rating", "created_at"}

// Export walks the listing page by page straight from the repository and
// writes one CSV row per product. Only the current page is held in memory.
// It returns the number of rows written.
func (s *productService) Export(ctx context.Context, w io.Writer, filter models.ProductTableFilter, sorting models.ProductTableSorting) (int, error) {
	const op = "products.Export"
	sorting, err := listing.NormalizeSorting(sorting)
	if err != nil {
		return 0, common.Invalid(op, err.Error())
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(exportHeader); err != nil {
		return 0, err
	}
	req := listing.PageRequest{
		PageSize:  listing.MaxPageSize,
		Filter:    filter,
		Sorting:   sorting,
		SkipTotal: true,
	}
	written := 0
	for {
		page, err := listing.FetchPage(ctx, s.Products, req)
		if err != nil {
			return written, err
		}
		for _, it := range page.Items {
			if err := cw.Write(exportRow(it)); err != nil {
				return written, err
			}
		}
		written += len(page.Items)
		cw.Flush()
		if err := cw.Error(); err != nil {
			return written, err
		}
		if !page.HasMore {
			return written, nil
		}
		if page.NextCursor == req.Cursor {
			return written, common.Wrap(op, "export stalled", errors.New("cursor did not advance"))
		}
		req.Cursor = page.NextCursor
	}
}

func exportRow(it models.ProductListItem) []string {
	sale := ""
	if it.SalePrice != nil {
		sale = it.SalePrice.StringFixed(2)
	}
	return []string{
		it.ID.String(),
		it.SKU,
		it.Name,
		it.Price.StringFixed(2),
		sale,
		common.SafeString(it.CategoryName),
		common.SafeString(it.BrandName),
		strconv.FormatBool(it.IsActive),
		strconv.FormatBool(it.IsFeatured),
		strconv.FormatBool(it.IsNew),
		strconv.FormatBool(it.OnSale),
		strconv.Itoa(it.ReviewCount),
		it.AverageRating.StringFixed(2),
		it.CreatedAt.UTC().Format(time.RFC3339),
	}
}

func (s *productService) ListImages(ctx context.Context, productID uuid.UUID) ([]*models.ProductImage, error) {
	if _, err := s.Products.GetByID(ctx, productID); err != nil {
		return nil, err
	}
	images, err := s.Images.GetByProductID(ctx, productID)
	if err != nil {
		return nil, common.Wrap("products.ListImages", "failed to list images", err)
	}
	for _, img := range images {
		img.URL = resolveImageURL(ctx, s.Storage, s.Logger, &img.ObjectKey)
	}
	if images == nil {
		images = []*models.ProductImage{}
	}
	return images, nil
}

func (s *productService) AddImage(ctx context.Context, productID uuid.UUID, input models.ProductImageInput) (*models.ProductImage, error) {
	if _, err := s.Products.GetByID(ctx, productID); err != nil {
		return nil, err
	}
	img := &models.ProductImage{
		ID:        uuid.New(),
		ProductID: productID,
		ObjectKey: input.ObjectKey,
		AltText:   input.AltText,
		IsPrimary: input.IsPrimary,
	}
	if err := s.Images.Create(ctx, img); err != nil {
		return nil, wrapWrite("products.AddImage", "failed to add image", err)
	}
	img.URL = resolveImageURL(ctx, s.Storage, s.Logger, &img.ObjectKey)
	if img.IsPrimary {
		s.invalidate(ctx, "")
	}
	return img, nil
}

// DeleteImage forgets the reference; the stored object is removed on a best
// effort basis.
func (s *productService) DeleteImage(ctx context.Context, productID, imageID uuid.UUID) error {
	images, err := s.Images.GetByProductID(ctx, productID)
	if err != nil {
		return common.Wrap("products.DeleteImage", "failed to load images", err)
	}
	var target *models.ProductImage
	for _, img := range images {
		if img.ID == imageID {
			target = img
			break
		}
	}
	if target == nil {
		return common.NotFound("products.DeleteImage", "image")
	}
	if err := s.Images.Delete(ctx, productID, imageID); err != nil {
		return wrapWrite("products.DeleteImage", "failed to delete image", err)
	}
	if s.Storage != nil {
		if err := s.Storage.DeleteImage(ctx, target.ObjectKey); err != nil {
			s.Logger.Warn("failed to remove image object", zap.String("key", target.ObjectKey), zap.Error(err))
		}
	}
	if target.IsPrimary {
		s.invalidate(ctx, "")
	}
	return nil
}

func (s *productService) InvalidateListings(ctx context.Context) error {
	if err := s.Cache.InvalidateListings(ctx); err != nil {
		return err
	}
	return s.Cache.InvalidateProducts(ctx)
}

// invalidate drops cached listing pages and product details. With a slug
// only that product is dropped.
func (s *productService) invalidate(ctx context.Context, slug string) {
	if err := s.Cache.InvalidateListings(ctx); err != nil {
		s.Logger.Warn("failed to invalidate listing cache", zap.Error(err))
	}
	var err error
	if slug != "" {
		err = s.Cache.DeleteProduct(ctx, slug)
	} else {
		err = s.Cache.InvalidateProducts(ctx)
	}
	if err != nil {
		s.Logger.Warn("failed to invalidate product cache", zap.Error(err))
	}
}

func (s *productService) resolveImages(ctx context.Context, items []models.ProductListItem) {
	for i := range items {
		items[i].ImageURL = resolveImageURL(ctx, s.Storage, s.Logger, items[i].PrimaryImagePath)
	}
}
