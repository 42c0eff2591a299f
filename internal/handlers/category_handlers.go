package handlers

import (
	"net/http"

	"furnistore/internal/common"
	"furnistore/internal/models"
	"furnistore/internal/services"

	"github.com/labstack/echo/v4"
)

// CategoryHandlers handles category-related HTTP requests
type CategoryHandlers struct {
	categoryService services.CategoryService
}

// NewCategoryHandlers creates a new category handlers instance
func NewCategoryHandlers(categoryService services.CategoryService) *CategoryHandlers {
	return &CategoryHandlers{categoryService: categoryService}
}

// HierarchyRequest is the complete editor list after a drop.
type HierarchyRequest struct {
	Nodes []models.DraggableTreeNode `json:"nodes" validate:"required,min=1,dive"`
}

// ListCategories returns active categories as a flat list
func (h *CategoryHandlers) ListCategories(c echo.Context) error {
	categories, err := h.categoryService.ListActive(c.Request().Context())
	if err != nil {
		return common.SendServiceError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"categories": categories,
		"count":      len(categories),
	})
}

// GetTree returns the storefront category tree
func (h *CategoryHandlers) GetTree(c echo.Context) error {
	tree, err := h.categoryService.Tree(c.Request().Context())
	if err != nil {
		return common.SendServiceError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"tree": tree})
}

// GetCategory returns one active category by slug
func (h *CategoryHandlers) GetCategory(c echo.Context) error {
	category, err := h.categoryService.GetBySlug(c.Request().Context(), c.Param("slug"))
	if err != nil {
		return common.SendServiceError(c, err)
	}
	return c.JSON(http.StatusOK, category)
}

// GetEditorNodes returns the flattened draggable list for the tree editor
func (h *CategoryHandlers) GetEditorNodes(c echo.Context) error {
	nodes, err := h.categoryService.EditorNodes(c.Request().Context())
	if err != nil {
		return common.SendServiceError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"nodes": nodes})
}

// CreateCategory handles creating a new category
func (h *CategoryHandlers) CreateCategory(c echo.Context) error {
	var req models.CategoryInput
	if handled, err := bindAndValidate(c, &req); handled {
		return err
	}
	category, err := h.categoryService.Create(c.Request().Context(), req)
	if err != nil {
		return common.SendServiceError(c, err)
	}
	return c.JSON(http.StatusCreated, category)
}

// UpdateCategory handles updating a category
func (h *CategoryHandlers) UpdateCategory(c echo.Context) error {
	id, err := common.ValidateUUID(c.Param("id"), "id")
	if err != nil {
		return common.SendValidationError(c, "id", err.Error())
	}
	var req models.CategoryInput
	if handled, err := bindAndValidate(c, &req); handled {
		return err
	}
	category, err := h.categoryService.Update(c.Request().Context(), id, req)
	if err != nil {
		return common.SendServiceError(c, err)
	}
	return c.JSON(http.StatusOK, category)
}

// DeleteCategory soft-deletes a category
func (h *CategoryHandlers) DeleteCategory(c echo.Context) error {
	id, err := common.ValidateUUID(c.Param("id"), "id")
	if err != nil {
		return common.SendValidationError(c, "id", err.Error())
	}
	if err := h.categoryService.Delete(c.Request().Context(), id); err != nil {
		return common.SendServiceError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// ApplyHierarchy persists a drag-and-drop reorder or reparent
func (h *CategoryHandlers) ApplyHierarchy(c echo.Context) error {
	var req HierarchyRequest
	if handled, err := bindAndValidate(c, &req); handled {
		return err
	}
	changes, err := h.categoryService.ApplyHierarchy(c.Request().Context(), req.Nodes)
	if err != nil {
		return common.SendServiceError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"changes": changes,
		"applied": len(changes),
	})
}

// CheckIntegrity reports categories that cannot be placed in the tree
func (h *CategoryHandlers) CheckIntegrity(c echo.Context) error {
	report, err := h.categoryService.CheckIntegrity(c.Request().Context())
	if err != nil {
		return common.SendServiceError(c, err)
	}
	return c.JSON(http.StatusOK, report)
}
