// Package services – NotificationService
//
// Notifications are created by the borrowing lifecycle (overdue fines) and
// by admin actions (manual reminders); this service covers the read side:
// listing, unread counts, and the monotonic unread → read transition.
package services

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/openshelf/go-library-backend/internal/domain"
	"github.com/openshelf/go-library-backend/internal/repo"
)

// NotificationService implements the use-cases around user notifications.
// Notifications stay local to the primary store; they are not replicated.
type NotificationService struct {
	DB *gorm.DB
}

// ListMine returns a page of the user's notifications, newest first, plus
// the total count.
func (s *NotificationService) ListMine(ctx context.Context, userID uint, page, pageSize int) ([]domain.Notification, int64, error) {
	if page < 1 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 20
	}
	return repo.ListNotificationsPage(ctx, s.DB, userID, (page-1)*pageSize, pageSize)
}

// UnreadCount returns how many unread notifications the user has.
func (s *NotificationService) UnreadCount(ctx context.Context, userID uint) (int64, error) {
	return repo.CountUnreadNotifications(ctx, s.DB, userID)
}

// MarkRead flips one notification to read, scoped to its owner. The flag
// never reverts; re-marking an already-read notification reports
// ErrNotificationNotFound.
func (s *NotificationService) MarkRead(ctx context.Context, userID, id uint) error {
	if err := repo.MarkNotificationRead(ctx, s.DB, id, userID); err != nil {
		if isNotFound(err) {
			return ErrNotificationNotFound
		}
		return err
	}
	return nil
}

// MarkAllRead flips every unread notification for the user and returns how
// many changed.
func (s *NotificationService) MarkAllRead(ctx context.Context, userID uint) (int64, error) {
	return repo.MarkAllNotificationsRead(ctx, s.DB, userID)
}

// Stats returns totals used for conditional list responses.
func (s *NotificationService) Stats(ctx context.Context, userID uint) (total, unread int64, newest *time.Time, err error) {
	return repo.NotificationsStats(ctx, s.DB, userID)
}
