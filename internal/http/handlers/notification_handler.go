// Notification HTTP handlers.
//
//   - GET  /notifications            (caller's notifications, paginated, ETag support)
//   - GET  /notifications/unread     (unread count)
//   - PUT  /notifications/{id}/read  (mark one read)
//   - PUT  /notifications/read-all   (mark all read)
package handlers

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/openshelf/go-library-backend/internal/domain"
	"github.com/openshelf/go-library-backend/internal/services"
)

// ListNotificationsResponse wraps a page of notifications and pagination
// information.
type ListNotificationsResponse struct {
	Notifications []domain.Notification `json:"notifications"`
	Pagination    Pagination            `json:"pagination"`
}

// UnreadCountResponse reports how many unread notifications the caller has.
type UnreadCountResponse struct {
	Unread int64 `json:"unread"`
}

// MarkAllReadResponse reports how many notifications were flipped to read.
type MarkAllReadResponse struct {
	Updated int64 `json:"updated"`
}

// ListNotifications godoc
// @ID          listNotifications
// @Summary     List the caller's notifications (paginated)
// @Description Returns a page of notifications, newest first. Supports weak ETag via If-None-Match and may return 304.
// @Tags        Notifications
// @Produce     json
//
// @Param       X-User-ID      header  int     true   "Member ID"                   example(7)
// @Param       If-None-Match  header  string  false  "Return 304 if ETag matches"  example(W/\"abc123\")
// @Param       page           query   int     false  "Page number"                 minimum(1) default(1)
// @Param       page_size      query   int     false  "Items per page"              minimum(1) maximum(100) default(20)
//
// @Success     200  {object}  handlers.ListNotificationsResponse
// @Header      200  {string}  ETag  "Weak ETag for current result"
// @Success     304  {string}  string  "Not Modified"
// @Failure     401  {object}  handlers.ErrorResponse  "Missing identity"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /notifications [get]
func (h *Handlers) ListNotifications(c *gin.Context) {
	ctx := c.Request.Context()
	uid, okUID := requireUser(c)
	if !okUID {
		return
	}
	page, pageSize := clampPagination(c)

	// ETag pre-check (best effort).
	if svc, okSvc := h.notifSvc.(*services.NotificationService); okSvc {
		total, unread, newest, err := svc.Stats(ctx, uid)
		if err == nil {
			var ts int64
			if newest != nil {
				ts = newest.Unix()
			}
			etag := fmt.Sprintf(`W/"notifications:%d:%d:%d:%d"`, uid, total, unread, ts)
			c.Header("ETag", etag)
			if inm := c.GetHeader("If-None-Match"); inm != "" && inm == etag {
				c.Status(http.StatusNotModified)
				return
			}
		}
	}

	items, total, err := h.notifSvc.ListMine(ctx, uid, page, pageSize)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeListFailed, err.Error())
		return
	}
	ok(c, http.StatusOK, ListNotificationsResponse{
		Notifications: items,
		Pagination:    paginate(page, pageSize, total),
	})
}

// UnreadNotifications godoc
// @ID          unreadNotifications
// @Summary     Count unread notifications
// @Tags        Notifications
// @Produce     json
//
// @Param       X-User-ID  header  int  true  "Member ID"  example(7)
//
// @Success     200  {object}  handlers.UnreadCountResponse
// @Failure     401  {object}  handlers.ErrorResponse  "Missing identity"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /notifications/unread [get]
func (h *Handlers) UnreadNotifications(c *gin.Context) {
	uid, okUID := requireUser(c)
	if !okUID {
		return
	}

	n, err := h.notifSvc.UnreadCount(c.Request.Context(), uid)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		return
	}
	ok(c, http.StatusOK, UnreadCountResponse{Unread: n})
}

// MarkNotificationRead godoc
// @ID          markNotificationRead
// @Summary     Mark a notification read
// @Description Flips one of the caller's notifications to read. The flag never reverts.
// @Tags        Notifications
// @Produce     json
//
// @Param       X-User-ID  header  int  true  "Member ID"        example(7)
// @Param       id         path    int  true  "Notification ID"  example(55)
//
// @Success     204  {string}  string  "No Content"
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     401  {object}  handlers.ErrorResponse  "Missing identity"
// @Failure     404  {object}  handlers.ErrorResponse  "Notification not found or already read"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /notifications/{id}/read [put]
func (h *Handlers) MarkNotificationRead(c *gin.Context) {
	uid, okUID := requireUser(c)
	if !okUID {
		return
	}
	id, okID := pathID(c, "id")
	if !okID {
		return
	}

	if err := h.notifSvc.MarkRead(c.Request.Context(), uid, id); err != nil {
		if errors.Is(err, services.ErrNotificationNotFound) {
			fail(c, http.StatusNotFound, ErrCodeNotFound, "notification not found")
			return
		}
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		return
	}
	noContent(c)
}

// MarkAllNotificationsRead godoc
// @ID          markAllNotificationsRead
// @Summary     Mark all notifications read
// @Tags        Notifications
// @Produce     json
//
// @Param       X-User-ID  header  int  true  "Member ID"  example(7)
//
// @Success     200  {object}  handlers.MarkAllReadResponse
// @Failure     401  {object}  handlers.ErrorResponse  "Missing identity"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /notifications/read-all [put]
func (h *Handlers) MarkAllNotificationsRead(c *gin.Context) {
	uid, okUID := requireUser(c)
	if !okUID {
		return
	}

	n, err := h.notifSvc.MarkAllRead(c.Request.Context(), uid)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		return
	}
	ok(c, http.StatusOK, MarkAllReadResponse{Updated: n})
}
