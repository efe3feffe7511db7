// Review HTTP handlers.
//
//   - POST   /books/{id}/reviews  (leave a review)
//   - GET    /books/{id}/reviews  (list a book's reviews)
//   - DELETE /admin/reviews/{id}  (moderation)
package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/openshelf/go-library-backend/internal/services"
)

// CreateReviewRequest is the JSON payload for leaving a review.
type CreateReviewRequest struct {
	// Rating is a whole-star rating from 1 to 5.
	Rating int `json:"rating" binding:"required,min=1,max=5" example:"4"`
	// Content is an optional free-text comment.
	Content string `json:"content" example:"Great pacing, weak ending."`
}

// CreateReview godoc
// @ID          createReview
// @Summary     Review a book
// @Description Records one rating+comment per member per book.
// @Tags        Reviews
// @Accept      json
// @Produce     json
//
// @Param       X-User-ID  header  int                            true  "Member ID"  example(7)
// @Param       id         path    int                            true  "Book ID"    example(42)
// @Param       body       body    handlers.CreateReviewRequest  true  "Review payload"
//
// @Success     201  {object}  domain.Review
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     401  {object}  handlers.ErrorResponse  "Missing identity"
// @Failure     404  {object}  handlers.ErrorResponse  "Book not found"
// @Failure     409  {object}  handlers.ErrorResponse  "Already reviewed"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /books/{id}/reviews [post]
func (h *Handlers) CreateReview(c *gin.Context) {
	uid, okUID := requireUser(c)
	if !okUID {
		return
	}
	bookID, okID := pathID(c, "id")
	if !okID {
		return
	}

	var req CreateReviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "rating required (1–5)")
		return
	}

	rv, err := h.reviewSvc.Leave(c.Request.Context(), uid, bookID, req.Rating, req.Content)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrInvalidRating):
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, "rating must be between 1 and 5")
		case errors.Is(err, services.ErrBookNotFound):
			fail(c, http.StatusNotFound, ErrCodeNotFound, "book not found")
		case errors.Is(err, services.ErrDuplicateReview):
			fail(c, http.StatusConflict, ErrCodeConflict, "book already reviewed by this user")
		default:
			fail(c, http.StatusInternalServerError, ErrCodeCreateFailed, err.Error())
		}
		return
	}
	ok(c, http.StatusCreated, rv)
}

// ListReviews godoc
// @ID          listReviews
// @Summary     List a book's reviews
// @Tags        Reviews
// @Produce     json
//
// @Param       id  path  int  true  "Book ID"  example(42)
//
// @Success     200  {array}   domain.Review
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /books/{id}/reviews [get]
func (h *Handlers) ListReviews(c *gin.Context) {
	bookID, okID := pathID(c, "id")
	if !okID {
		return
	}

	items, err := h.reviewSvc.ListForBook(c.Request.Context(), bookID)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeListFailed, err.Error())
		return
	}
	ok(c, http.StatusOK, items)
}

// DeleteReview godoc
// @ID          deleteReview
// @Summary     Remove a review (moderation)
// @Tags        Admin
// @Produce     json
//
// @Param       id  path  int  true  "Review ID"  example(15)
//
// @Success     204  {string}  string  "No Content"
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     404  {object}  handlers.ErrorResponse  "Review not found"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /admin/reviews/{id} [delete]
func (h *Handlers) DeleteReview(c *gin.Context) {
	id, okID := pathID(c, "id")
	if !okID {
		return
	}

	if err := h.reviewSvc.Delete(c.Request.Context(), id); err != nil {
		if errors.Is(err, services.ErrReviewNotFound) {
			fail(c, http.StatusNotFound, ErrCodeNotFound, "review not found")
			return
		}
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		return
	}
	noContent(c)
}
