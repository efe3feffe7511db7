// Category HTTP handlers.
//
//   - POST   /categories       (create, admin)
//   - GET    /categories       (list)
//   - PUT    /categories/{id}  (rename, admin)
//   - DELETE /categories/{id}  (delete, admin)
package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/openshelf/go-library-backend/internal/services"
)

// CategoryRequest is the JSON payload for creating or renaming a category.
type CategoryRequest struct {
	// Name is the category's display name (1–100 chars).
	Name string `json:"name" binding:"required,min=1,max=100" example:"Science Fiction"`
}

// CreateCategory godoc
// @ID          createCategory
// @Summary     Create a category
// @Tags        Categories
// @Accept      json
// @Produce     json
//
// @Param       body  body  handlers.CategoryRequest  true  "Create category payload"
//
// @Success     201  {object}  domain.Category
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     409  {object}  handlers.ErrorResponse  "Duplicate name"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /categories [post]
func (h *Handlers) CreateCategory(c *gin.Context) {
	var req CategoryRequest
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Name) == "" {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "name required (1–100 chars)")
		return
	}

	cat, err := h.categorySvc.Create(c.Request.Context(), req.Name)
	if err != nil {
		if errors.Is(err, services.ErrDuplicateCategory) {
			fail(c, http.StatusConflict, ErrCodeConflict, "category already exists")
			return
		}
		fail(c, http.StatusInternalServerError, ErrCodeCreateFailed, err.Error())
		return
	}
	ok(c, http.StatusCreated, cat)
}

// ListCategories godoc
// @ID          listCategories
// @Summary     List categories
// @Tags        Categories
// @Produce     json
//
// @Success     200  {array}   domain.Category
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /categories [get]
func (h *Handlers) ListCategories(c *gin.Context) {
	cats, err := h.categorySvc.List(c.Request.Context())
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeListFailed, err.Error())
		return
	}
	ok(c, http.StatusOK, cats)
}

// RenameCategory godoc
// @ID          renameCategory
// @Summary     Rename a category
// @Tags        Categories
// @Accept      json
// @Produce     json
//
// @Param       id    path  int                       true  "Category ID"  example(3)
// @Param       body  body  handlers.CategoryRequest  true  "New name"
//
// @Success     200  {object}  domain.Category
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     404  {object}  handlers.ErrorResponse  "Category not found"
// @Failure     409  {object}  handlers.ErrorResponse  "Duplicate name"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /categories/{id} [put]
func (h *Handlers) RenameCategory(c *gin.Context) {
	id, okID := pathID(c, "id")
	if !okID {
		return
	}

	var req CategoryRequest
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Name) == "" {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "name required (1–100 chars)")
		return
	}

	cat, err := h.categorySvc.Rename(c.Request.Context(), id, req.Name)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrCategoryNotFound):
			fail(c, http.StatusNotFound, ErrCodeNotFound, "category not found")
		case errors.Is(err, services.ErrDuplicateCategory):
			fail(c, http.StatusConflict, ErrCodeConflict, "category already exists")
		default:
			fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		}
		return
	}
	ok(c, http.StatusOK, cat)
}

// ListCategoryBooks godoc
// @ID          listCategoryBooks
// @Summary     List books in a category
// @Tags        Categories
// @Produce     json
//
// @Param       id  path  int  true  "Category ID"  example(3)
//
// @Success     200  {array}   domain.Book
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     404  {object}  handlers.ErrorResponse  "Category not found"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /categories/{id}/books [get]
func (h *Handlers) ListCategoryBooks(c *gin.Context) {
	id, okID := pathID(c, "id")
	if !okID {
		return
	}

	items, err := h.catalogSvc.ListByCategory(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, services.ErrCategoryNotFound) {
			fail(c, http.StatusNotFound, ErrCodeNotFound, "category not found")
			return
		}
		fail(c, http.StatusInternalServerError, ErrCodeListFailed, err.Error())
		return
	}
	ok(c, http.StatusOK, items)
}

// DeleteCategory godoc
// @ID          deleteCategory
// @Summary     Delete a category
// @Description Removes a category that no book references.
// @Tags        Categories
// @Produce     json
//
// @Param       id  path  int  true  "Category ID"  example(3)
//
// @Success     204  {string}  string  "No Content"
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     404  {object}  handlers.ErrorResponse  "Category not found"
// @Failure     409  {object}  handlers.ErrorResponse  "Category still referenced by books"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /categories/{id} [delete]
func (h *Handlers) DeleteCategory(c *gin.Context) {
	id, okID := pathID(c, "id")
	if !okID {
		return
	}

	if err := h.categorySvc.Delete(c.Request.Context(), id); err != nil {
		switch {
		case errors.Is(err, services.ErrCategoryNotFound):
			fail(c, http.StatusNotFound, ErrCodeNotFound, "category not found")
		case errors.Is(err, services.ErrCategoryInUse):
			fail(c, http.StatusConflict, ErrCodeConflict, "category still referenced by books")
		default:
			fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		}
		return
	}
	noContent(c)
}
