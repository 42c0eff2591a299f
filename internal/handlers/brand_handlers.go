package handlers

import (
	"net/http"

	"furnistore/internal/common"
	"furnistore/internal/models"
	"furnistore/internal/services"

	"github.com/labstack/echo/v4"
)

type BrandHandlers struct {
	brandService services.BrandService
}

func NewBrandHandlers(brandService services.BrandService) *BrandHandlers {
	return &BrandHandlers{brandService: brandService}
}

func (h *BrandHandlers) ListBrands(c echo.Context) error {
	brands, err := h.brandService.ListActive(c.Request().Context())
	if err != nil {
		return common.SendServiceError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"brands": brands,
		"count":  len(brands),
	})
}

func (h *BrandHandlers) GetBrand(c echo.Context) error {
	brand, err := h.brandService.GetBySlug(c.Request().Context(), c.Param("slug"))
	if err != nil {
		return common.SendServiceError(c, err)
	}
	return c.JSON(http.StatusOK, brand)
}

func (h *BrandHandlers) CreateBrand(c echo.Context) error {
	var req models.BrandInput
	if handled, err := bindAndValidate(c, &req); handled {
		return err
	}
	brand, err := h.brandService.Create(c.Request().Context(), req)
	if err != nil {
		return common.SendServiceError(c, err)
	}
	return c.JSON(http.StatusCreated, brand)
}

func (h *BrandHandlers) UpdateBrand(c echo.Context) error {
	id, err := common.ValidateUUID(c.Param("id"), "id")
	if err != nil {
		return common.SendValidationError(c, "id", err.Error())
	}
	var req models.BrandInput
	if handled, err := bindAndValidate(c, &req); handled {
		return err
	}
	brand, err := h.brandService.Update(c.Request().Context(), id, req)
	if err != nil {
		return common.SendServiceError(c, err)
	}
	return c.JSON(http.StatusOK, brand)
}

func (h *BrandHandlers) DeleteBrand(c echo.Context) error {
	id, err := common.ValidateUUID(c.Param("id"), "id")
	if err != nil {
		return common.SendValidationError(c, "id", err.Error())
	}
	if err := h.brandService.Delete(c.Request().Context(), id); err != nil {
		return common.SendServiceError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}
