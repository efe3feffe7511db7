// Admin HTTP handlers: ledger overrides and replication maintenance.
//
//   - PUT  /admin/borrows/{id}/fine      (manual fine override)
//   - POST /admin/borrows/{id}/reminder  (due-date reminder notification)
//   - GET  /admin/borrows                (all ledger entries, status filter)
//   - POST /admin/sync                   (manual full re-sync to analytics)
//
// These routes carry no in-process authorization; the deployment fronts them
// with a gateway that restricts access to staff.
package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/openshelf/go-library-backend/internal/services"
)

// SetFineRequest is the JSON payload for overriding a record's fine.
type SetFineRequest struct {
	// Amount is the new fine, a non-negative decimal string.
	Amount string `json:"amount" binding:"required" example:"30.00"`
}

// SetFine godoc
// @ID          setFine
// @Summary     Override a record's fine
// @Description Replaces the fine on a ledger entry, independent of the automatic computation.
// @Tags        Admin
// @Accept      json
// @Produce     json
//
// @Param       id    path  int                       true  "Borrow record ID"  example(101)
// @Param       body  body  handlers.SetFineRequest  true  "New fine amount"
//
// @Success     204  {string}  string  "No Content"
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     404  {object}  handlers.ErrorResponse  "Record not found"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /admin/borrows/{id}/fine [put]
func (h *Handlers) SetFine(c *gin.Context) {
	recordID, okID := pathID(c, "id")
	if !okID {
		return
	}

	var req SetFineRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}
	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "amount must be a decimal string")
		return
	}

	if err := h.borrowSvc.SetFine(c.Request.Context(), recordID, amount); err != nil {
		switch {
		case errors.Is(err, services.ErrRecordNotFound):
			fail(c, http.StatusNotFound, ErrCodeNotFound, "borrow record not found")
		case errors.Is(err, services.ErrInvalidFineAmount):
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, "fine must not be negative")
		default:
			fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		}
		return
	}
	noContent(c)
}

// SendReminder godoc
// @ID          sendReminder
// @Summary     Send a due-date reminder
// @Description Creates a reminder notification for the record's borrower; ledger state is untouched.
// @Tags        Admin
// @Produce     json
//
// @Param       id  path  int  true  "Borrow record ID"  example(101)
//
// @Success     204  {string}  string  "No Content"
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     404  {object}  handlers.ErrorResponse  "Record not found"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /admin/borrows/{id}/reminder [post]
func (h *Handlers) SendReminder(c *gin.Context) {
	recordID, okID := pathID(c, "id")
	if !okID {
		return
	}

	if err := h.borrowSvc.SendReminder(c.Request.Context(), recordID); err != nil {
		if errors.Is(err, services.ErrRecordNotFound) {
			fail(c, http.StatusNotFound, ErrCodeNotFound, "borrow record not found")
			return
		}
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		return
	}
	noContent(c)
}

// ListAllBorrows godoc
// @ID          listAllBorrows
// @Summary     List borrow records across all members
// @Description Optional status filter: returned, unreturned, or overdue.
// @Tags        Admin
// @Produce     json
//
// @Param       status  query  string  false  "Status filter"  Enums(returned, unreturned, overdue)
//
// @Success     200  {array}   domain.BorrowRecord
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /admin/borrows [get]
func (h *Handlers) ListAllBorrows(c *gin.Context) {
	items, err := h.borrowSvc.ListAll(c.Request.Context(), c.Query("status"))
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeListFailed, err.Error())
		return
	}
	ok(c, http.StatusOK, items)
}

// FullSync godoc
// @ID          fullSync
// @Summary     Re-sync all entities to the analytics store
// @Description Walks every replicated table and upserts each row into the analytics store. Per-row failures are counted, not fatal.
// @Tags        Admin
// @Produce     json
//
// @Success     200  {object}  relay.Report
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Failure     503  {object}  handlers.ErrorResponse  "Replication disabled"
// @Router      /admin/sync [post]
func (h *Handlers) FullSync(c *gin.Context) {
	if h.fullSync == nil {
		fail(c, http.StatusServiceUnavailable, ErrCodeSyncFailed, "replication is disabled")
		return
	}

	report, err := h.fullSync(c.Request.Context())
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeSyncFailed, err.Error())
		return
	}
	ok(c, http.StatusOK, report)
}
