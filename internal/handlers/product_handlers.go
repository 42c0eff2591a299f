package handlers

import (
	"net/http"
	"time"

	"furnistore/internal/common"
	"furnistore/internal/models"
	"furnistore/internal/services"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// ProductHandlers serves the storefront listing and the admin product table.
type ProductHandlers struct {
	productService services.ProductService
	logger         *zap.Logger
}

func NewProductHandlers(productService services.ProductService, logger *zap.Logger) *ProductHandlers {
	return &ProductHandlers{productService: productService, logger: logger}
}

// ListProducts handles GET /v1/products. Only active products are listed.
func (h *ProductHandlers) ListProducts(c echo.Context) error {
	req, err := parseListingQuery(c.QueryParams())
	if err != nil {
		return sendListingError(c, err)
	}
	page, err := h.productService.StorefrontPage(c.Request().Context(), req)
	if err != nil {
		return common.SendServiceError(c, err)
	}
	return c.JSON(http.StatusOK, page)
}

// GetProduct handles GET /v1/products/:slug
func (h *ProductHandlers) GetProduct(c echo.Context) error {
	item, err := h.productService.GetBySlug(c.Request().Context(), c.Param("slug"))
	if err != nil {
		return common.SendServiceError(c, err)
	}
	return c.JSON(http.StatusOK, item)
}

// AdminListProducts handles GET /v1/admin/products
func (h *ProductHandlers) AdminListProducts(c echo.Context) error {
	req, err := parseListingQuery(c.QueryParams())
	if err != nil {
		return sendListingError(c, err)
	}
	page, err := h.productService.FetchPage(c.Request().Context(), req)
	if err != nil {
		return common.SendServiceError(c, err)
	}
	return c.JSON(http.StatusOK, page)
}

// AdminGetProduct handles GET /v1/admin/products/:id
func (h *ProductHandlers) AdminGetProduct(c echo.Context) error {
	id, err := common.ValidateUUID(c.Param("id"), "id")
	if err != nil {
		return common.SendValidationError(c, "id", err.Error())
	}
	product, err := h.productService.GetByID(c.Request().Context(), id)
	if err != nil {
		return common.SendServiceError(c, err)
	}
	return c.JSON(http.StatusOK, product)
}

// CreateProduct handles POST /v1/admin/products
func (h *ProductHandlers) CreateProduct(c echo.Context) error {
	var req models.ProductInput
	if handled, err := bindAndValidate(c, &req); handled {
		return err
	}
	product, err := h.productService.Create(c.Request().Context(), req)
	if err != nil {
		return common.SendServiceError(c, err)
	}
	return c.JSON(http.StatusCreated, product)
}

// UpdateProduct handles PUT /v1/admin/products/:id
func (h *ProductHandlers) UpdateProduct(c echo.Context) error {
	id, err := common.ValidateUUID(c.Param("id"), "id")
	if err != nil {
		return common.SendValidationError(c, "id", err.Error())
	}
	var req models.ProductInput
	if handled, err := bindAndValidate(c, &req); handled {
		return err
	}
	product, err := h.productService.Update(c.Request().Context(), id, req)
	if err != nil {
		return common.SendServiceError(c, err)
	}
	return c.JSON(http.StatusOK, product)
}

// DeleteProduct handles DELETE /v1/admin/products/:id
func (h *ProductHandlers) DeleteProduct(c echo.Context) error {
	id, err := common.ValidateUUID(c.Param("id"), "id")
	if err != nil {
		return common.SendValidationError(c, "id", err.Error())
	}
	if err := h.productService.Delete(c.Request().Context(), id); err != nil {
		return common.SendServiceError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// BulkUpdateProducts handles POST /v1/admin/products/bulk/update. The patch
// applies to every listed product or to none.
func (h *ProductHandlers) BulkUpdateProducts(c echo.Context) error {
	var req models.ProductBulkUpdate
	if handled, err := bindAndValidate(c, &req); handled {
		return err
	}
	if req.Patch.Empty() {
		return common.SendValidationError(c, "patch", "must change at least one flag")
	}
	if err := h.productService.BulkUpdate(c.Request().Context(), req.ProductIDs, req.Patch); err != nil {
		return common.SendServiceError(c, err)
	}
	return c.JSON(http.StatusOK, bulkResult(req.ProductIDs))
}

// BulkDeleteProducts handles POST /v1/admin/products/bulk/delete
func (h *ProductHandlers) BulkDeleteProducts(c echo.Context) error {
	var req models.ProductBulkDelete
	if handled, err := bindAndValidate(c, &req); handled {
		return err
	}
	if err := h.productService.BulkDelete(c.Request().Context(), req.ProductIDs); err != nil {
		return common.SendServiceError(c, err)
	}
	return c.JSON(http.StatusOK, bulkResult(req.ProductIDs))
}

func bulkResult(ids []uuid.UUID) models.BulkOperationResult {
	unique := make(map[uuid.UUID]struct{}, len(ids))
	for _, id := range ids {
		unique[id] = struct{}{}
	}
	return models.BulkOperationResult{
		Status:        "completed",
		TotalItems:    len(ids),
		AffectedItems: len(unique),
	}
}

// ExportProducts handles GET /v1/admin/products/export. It accepts the
// listing filters and sorting and streams every matching row as CSV.
func (h *ProductHandlers) ExportProducts(c echo.Context) error {
	req, err := parseListingQuery(c.QueryParams())
	if err != nil {
		return sendListingError(c, err)
	}

	filename := "products-" + time.Now().UTC().Format("20060102-150405") + ".csv"
	res := c.Response()
	res.Header().Set(echo.HeaderContentType, "text/csv; charset=utf-8")
	res.Header().Set(echo.HeaderContentDisposition, `attachment; filename="`+filename+`"`)
	res.WriteHeader(http.StatusOK)

	rows, err := h.productService.Export(c.Request().Context(), res, req.Filter, req.Sorting)
	if err != nil {
		// Headers are already sent; the truncated body is all the client gets.
		h.logger.Error("product export aborted", zap.Int("rows", rows), zap.Error(err))
		return nil
	}
	h.logger.Info("product export finished", zap.Int("rows", rows))
	return nil
}

// ListProductImages handles GET /v1/admin/products/:id/images
func (h *ProductHandlers) ListProductImages(c echo.Context) error {
	productID, err := common.ValidateUUID(c.Param("id"), "id")
	if err != nil {
		return common.SendValidationError(c, "id", err.Error())
	}
	images, err := h.productService.ListImages(c.Request().Context(), productID)
	if err != nil {
		return common.SendServiceError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"images":     images,
		"count":      len(images),
		"product_id": productID,
	})
}

// AddProductImage handles POST /v1/admin/products/:id/images. The object must
// already be in the bucket; only the reference is stored.
func (h *ProductHandlers) AddProductImage(c echo.Context) error {
	productID, err := common.ValidateUUID(c.Param("id"), "id")
	if err != nil {
		return common.SendValidationError(c, "id", err.Error())
	}
	var req models.ProductImageInput
	if handled, err := bindAndValidate(c, &req); handled {
		return err
	}
	image, err := h.productService.AddImage(c.Request().Context(), productID, req)
	if err != nil {
		return common.SendServiceError(c, err)
	}
	return c.JSON(http.StatusCreated, image)
}

// DeleteProductImage handles DELETE /v1/admin/products/:id/images/:imageId
func (h *ProductHandlers) DeleteProductImage(c echo.Context) error {
	productID, err := common.ValidateUUID(c.Param("id"), "id")
	if err != nil {
		return common.SendValidationError(c, "id", err.Error())
	}
	imageID, err := common.ValidateUUID(c.Param("imageId"), "imageId")
	if err != nil {
		return common.SendValidationError(c, "imageId", err.Error())
	}
	if err := h.productService.DeleteImage(c.Request().Context(), productID, imageID); err != nil {
		return common.SendServiceError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}
