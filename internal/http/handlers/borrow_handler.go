// Borrowing-ledger HTTP handlers.
//
//   - POST /books/{id}/borrow    (check a copy out)
//   - POST /borrows/{id}/return  (check a copy back in, fine computed)
//   - GET  /borrows              (caller's ledger, ETag support)
//
// Admin overrides (fine, reminder, cross-user listing) live in
// admin_handler.go.
package handlers

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/openshelf/go-library-backend/internal/repo"
	"github.com/openshelf/go-library-backend/internal/services"
)

// BorrowBook godoc
// @ID          borrowBook
// @Summary     Borrow a book
// @Description Checks one copy out to the caller and opens a ledger entry with the due date applied.
// @Tags        Borrows
// @Produce     json
//
// @Param       X-User-ID  header  int  true  "Member ID"  example(7)
// @Param       id         path    int  true  "Book ID"    example(42)
//
// @Success     201  {object}  domain.BorrowRecord
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     401  {object}  handlers.ErrorResponse  "Missing identity"
// @Failure     404  {object}  handlers.ErrorResponse  "Book not found"
// @Failure     409  {object}  handlers.ErrorResponse  "Already borrowed or no copies available"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /books/{id}/borrow [post]
func (h *Handlers) BorrowBook(c *gin.Context) {
	uid, okUID := requireUser(c)
	if !okUID {
		return
	}
	bookID, okID := pathID(c, "id")
	if !okID {
		return
	}

	rec, err := h.borrowSvc.Borrow(c.Request.Context(), uid, bookID)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrBookNotFound):
			fail(c, http.StatusNotFound, ErrCodeNotFound, "book not found")
		case errors.Is(err, services.ErrAlreadyBorrowed):
			fail(c, http.StatusConflict, ErrCodeConflict, "book already borrowed by this user")
		case errors.Is(err, services.ErrNoCopiesAvailable):
			fail(c, http.StatusConflict, ErrCodeConflict, "no copies available")
		default:
			fail(c, http.StatusInternalServerError, ErrCodeBorrowFailed, err.Error())
		}
		return
	}
	ok(c, http.StatusCreated, rec)
}

// ReturnBook godoc
// @ID          returnBook
// @Summary     Return a borrowed book
// @Description Completes the loan exactly once, restores availability, and computes the overdue fine.
// @Tags        Borrows
// @Produce     json
//
// @Param       id  path  int  true  "Borrow record ID"  example(101)
//
// @Success     200  {object}  domain.BorrowRecord
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     404  {object}  handlers.ErrorResponse  "Record not found"
// @Failure     409  {object}  handlers.ErrorResponse  "Already returned"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /borrows/{id}/return [post]
func (h *Handlers) ReturnBook(c *gin.Context) {
	recordID, okID := pathID(c, "id")
	if !okID {
		return
	}

	rec, err := h.borrowSvc.Return(c.Request.Context(), recordID)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrRecordNotFound):
			fail(c, http.StatusNotFound, ErrCodeNotFound, "borrow record not found")
		case errors.Is(err, services.ErrAlreadyReturned):
			fail(c, http.StatusConflict, ErrCodeConflict, "book already returned")
		default:
			fail(c, http.StatusInternalServerError, ErrCodeReturnFailed, err.Error())
		}
		return
	}
	ok(c, http.StatusOK, rec)
}

// ListMyBorrows godoc
// @ID          listMyBorrows
// @Summary     List the caller's borrow records
// @Description Returns the caller's ledger, most recent first. Supports weak ETag via If-None-Match and may return 304.
// @Tags        Borrows
// @Produce     json
//
// @Param       X-User-ID      header  int     true   "Member ID"                   example(7)
// @Param       If-None-Match  header  string  false  "Return 304 if ETag matches"  example(W/\"abc123\")
//
// @Success     200  {array}   domain.BorrowRecord
// @Header      200  {string}  ETag  "Weak ETag for current result"
// @Success     304  {string}  string  "Not Modified"
// @Failure     401  {object}  handlers.ErrorResponse  "Missing identity"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /borrows [get]
func (h *Handlers) ListMyBorrows(c *gin.Context) {
	ctx := c.Request.Context()
	uid, okUID := requireUser(c)
	if !okUID {
		return
	}

	// ETag pre-check (best effort).
	var db *gorm.DB
	if svc, okSvc := h.borrowSvc.(*services.BorrowService); okSvc {
		db = svc.DB
	}
	if db != nil {
		count, lastTS, err := repo.BorrowsStats(ctx, db, uid)
		if err == nil {
			var ts int64
			if lastTS != nil {
				ts = lastTS.Unix()
			}
			etag := fmt.Sprintf(`W/"borrows:%d:%d:%d"`, uid, count, ts)
			c.Header("ETag", etag)
			if inm := c.GetHeader("If-None-Match"); inm != "" && inm == etag {
				c.Status(http.StatusNotModified)
				return
			}
		}
	}

	items, err := h.borrowSvc.ListMine(ctx, uid)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeListFailed, err.Error())
		return
	}
	ok(c, http.StatusOK, items)
}
