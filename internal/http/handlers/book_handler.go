// Book catalog HTTP handlers.
//
// This file exposes REST endpoints for catalog resources:
//   - POST   /books          (create, admin)
//   - GET    /books          (list, paginated)
//   - GET    /books/search   (title/author search)
//   - GET    /books/{id}     (detail with average rating)
//   - PUT    /books/{id}     (update, admin)
//   - DELETE /books/{id}     (delete, admin)
package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/openshelf/go-library-backend/internal/domain"
	"github.com/openshelf/go-library-backend/internal/services"
	"github.com/openshelf/go-library-backend/internal/utils"
)

//
// DTOs
//

// BookRequest is the JSON payload for creating or updating a book.
type BookRequest struct {
	// Title is the book's display title (1–255 chars).
	Title string `json:"title" binding:"required,min=1,max=255" example:"The Pragmatic Programmer"`
	// Author is the book's author (1–255 chars).
	Author string `json:"author" binding:"required,min=1,max=255" example:"Andrew Hunt"`
	// CategoryID references an existing category.
	CategoryID uint `json:"category_id" binding:"required" example:"3"`
	// TotalCopies is the number of copies the library owns.
	TotalCopies int `json:"total_copies" example:"5"`
	// AvailableCopies is the number currently on the shelf.
	AvailableCopies int `json:"available_copies" example:"5"`
	// ISBN optionally fixes the 13-digit ISBN; one is generated when empty.
	ISBN string `json:"isbn" example:"9780135957059"`
	// CoverURL optionally points to cover art.
	CoverURL string `json:"cover_url" example:"https://covers.example.com/9780135957059.jpg"`
}

func (r BookRequest) toInput() services.BookInput {
	return services.BookInput{
		Title:           strings.TrimSpace(r.Title),
		Author:          strings.TrimSpace(r.Author),
		CategoryID:      r.CategoryID,
		TotalCopies:     r.TotalCopies,
		AvailableCopies: r.AvailableCopies,
		ISBN:            r.ISBN,
		CoverURL:        r.CoverURL,
	}
}

// BookResponse wraps a book together with its review aggregate.
type BookResponse struct {
	Book          domain.Book `json:"book"`
	AverageRating *float64    `json:"average_rating"`
}

// ListBooksResponse wraps a page of books and pagination information.
type ListBooksResponse struct {
	Books      []domain.Book `json:"books"`
	Pagination Pagination    `json:"pagination"`
}

//
// Handlers
//

// CreateBook godoc
// @ID          createBook
// @Summary     Add a book to the catalog
// @Description Creates a book; when no ISBN is supplied a unique 13-digit one is generated.
// @Tags        Books
// @Accept      json
// @Produce     json
//
// @Param       body  body  handlers.BookRequest  true  "Create book payload"
//
// @Success     201  {object}  domain.Book
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     404  {object}  handlers.ErrorResponse  "Category not found"
// @Failure     409  {object}  handlers.ErrorResponse  "Duplicate ISBN"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /books [post]
func (h *Handlers) CreateBook(c *gin.Context) {
	var req BookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}

	b, err := h.catalogSvc.CreateBook(c.Request.Context(), req.toInput())
	if err != nil {
		switch {
		case errors.Is(err, services.ErrCategoryNotFound):
			fail(c, http.StatusNotFound, ErrCodeNotFound, "category not found")
		case errors.Is(err, services.ErrInvalidCopies):
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, "available copies must be between 0 and total copies")
		case errors.Is(err, services.ErrInvalidISBN):
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, "isbn must be exactly 13 digits")
		case errors.Is(err, services.ErrDuplicateISBN):
			fail(c, http.StatusConflict, ErrCodeConflict, "a book with this isbn already exists")
		default:
			fail(c, http.StatusInternalServerError, ErrCodeCreateFailed, err.Error())
		}
		return
	}
	ok(c, http.StatusCreated, b)
}

// ListBooks godoc
// @ID          listBooks
// @Summary     List the catalog (paginated)
// @Description Returns a page of books ordered by title, with category preloaded.
// @Tags        Books
// @Produce     json
//
// @Param       page       query  int  false  "Page number"     minimum(1) default(1)
// @Param       page_size  query  int  false  "Items per page"  minimum(1) maximum(100) default(20)
//
// @Success     200  {object}  handlers.ListBooksResponse
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /books [get]
func (h *Handlers) ListBooks(c *gin.Context) {
	page, pageSize := clampPagination(c)

	items, total, err := h.catalogSvc.ListBooks(c.Request.Context(), page, pageSize)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeListFailed, err.Error())
		return
	}
	ok(c, http.StatusOK, ListBooksResponse{
		Books:      items,
		Pagination: paginate(page, pageSize, total),
	})
}

// SearchBooks godoc
// @ID          searchBooks
// @Summary     Search books by title or author
// @Description Case-insensitive substring match over title and author. An empty query returns an empty list.
// @Tags        Books
// @Produce     json
//
// @Param       q      query  string  true   "Search text"       example(pragmatic)
// @Param       limit  query  int     false  "Max results"       minimum(1) maximum(100) default(20)
//
// @Success     200  {array}   domain.Book
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /books/search [get]
func (h *Handlers) SearchBooks(c *gin.Context) {
	limit := utils.AtoiDefault(c.Query("limit"), 20)
	if limit < 1 {
		limit = 1
	}
	if limit > 100 {
		limit = 100
	}

	items, err := h.catalogSvc.SearchBooks(c.Request.Context(), c.Query("q"), limit)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeListFailed, err.Error())
		return
	}
	ok(c, http.StatusOK, items)
}

// GetBook godoc
// @ID          getBook
// @Summary     Get a book
// @Description Returns the book and its average review rating (null when unrated).
// @Tags        Books
// @Produce     json
//
// @Param       id  path  int  true  "Book ID"  example(42)
//
// @Success     200  {object}  handlers.BookResponse
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     404  {object}  handlers.ErrorResponse  "Book not found"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /books/{id} [get]
func (h *Handlers) GetBook(c *gin.Context) {
	id, okID := pathID(c, "id")
	if !okID {
		return
	}

	b, avg, err := h.catalogSvc.GetBook(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, services.ErrBookNotFound) {
			fail(c, http.StatusNotFound, ErrCodeNotFound, "book not found")
			return
		}
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		return
	}
	ok(c, http.StatusOK, BookResponse{Book: *b, AverageRating: avg})
}

// UpdateBook godoc
// @ID          updateBook
// @Summary     Update a book
// @Description Applies catalog edits; copy counts are validated against active borrowings.
// @Tags        Books
// @Accept      json
// @Produce     json
//
// @Param       id    path  int                   true  "Book ID"  example(42)
// @Param       body  body  handlers.BookRequest  true  "Update book payload"
//
// @Success     200  {object}  domain.Book
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     404  {object}  handlers.ErrorResponse  "Book or category not found"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /books/{id} [put]
func (h *Handlers) UpdateBook(c *gin.Context) {
	id, okID := pathID(c, "id")
	if !okID {
		return
	}

	var req BookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}

	b, err := h.catalogSvc.UpdateBook(c.Request.Context(), id, req.toInput())
	if err != nil {
		switch {
		case errors.Is(err, services.ErrBookNotFound):
			fail(c, http.StatusNotFound, ErrCodeNotFound, "book not found")
		case errors.Is(err, services.ErrCategoryNotFound):
			fail(c, http.StatusNotFound, ErrCodeNotFound, "category not found")
		case errors.Is(err, services.ErrInvalidCopies):
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, "copy counts conflict with active borrowings")
		default:
			fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		}
		return
	}
	ok(c, http.StatusOK, b)
}

// DeleteBook godoc
// @ID          deleteBook
// @Summary     Delete a book
// @Description Removes a book that has no active borrowings.
// @Tags        Books
// @Produce     json
//
// @Param       id  path  int  true  "Book ID"  example(42)
//
// @Success     204  {string}  string  "No Content"
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     404  {object}  handlers.ErrorResponse  "Book not found"
// @Failure     409  {object}  handlers.ErrorResponse  "Book has active borrowings"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /books/{id} [delete]
func (h *Handlers) DeleteBook(c *gin.Context) {
	id, okID := pathID(c, "id")
	if !okID {
		return
	}

	if err := h.catalogSvc.DeleteBook(c.Request.Context(), id); err != nil {
		switch {
		case errors.Is(err, services.ErrBookNotFound):
			fail(c, http.StatusNotFound, ErrCodeNotFound, "book not found")
		case errors.Is(err, services.ErrBookBorrowed):
			fail(c, http.StatusConflict, ErrCodeConflict, "book has active borrowings")
		default:
			fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		}
		return
	}
	noContent(c)
}
