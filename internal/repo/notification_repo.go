// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the
// Notification model. Read state only ever moves from unread to read.
package repo

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/openshelf/go-library-backend/internal/domain"
)

// CreateNotification inserts a notification row with CreatedAt set to UTC now.
func CreateNotification(ctx context.Context, db *gorm.DB, userID uint, message string) (*domain.Notification, error) {
	n := &domain.Notification{
		UserID:    userID,
		Message:   message,
		CreatedAt: time.Now().UTC(),
	}
	if err := db.WithContext(ctx).Create(n).Error; err != nil {
		return nil, err
	}
	return n, nil
}

// ListNotificationsPage returns a user's notifications, newest first, plus
// the total row count for pagination metadata.
func ListNotificationsPage(ctx context.Context, db *gorm.DB, userID uint, offset, limit int) ([]domain.Notification, int64, error) {
	var total int64
	if err := db.WithContext(ctx).
		Model(&domain.Notification{}).
		Where("user_id = ?", userID).
		Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var out []domain.Notification
	err := db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC, id DESC").
		Offset(offset).
		Limit(limit).
		Find(&out).Error
	return out, total, err
}

// CountUnreadNotifications returns how many unread notifications a user has.
func CountUnreadNotifications(ctx context.Context, db *gorm.DB, userID uint) (int64, error) {
	var n int64
	err := db.WithContext(ctx).
		Model(&domain.Notification{}).
		Where("user_id = ? AND is_read = ?", userID, false).
		Count(&n).Error
	return n, err
}

// MarkNotificationRead flips a single notification to read, scoped to its
// owner. Returns ErrNotFound when the row is missing, not owned by the user,
// or already read (the flag never reverts, so re-marking is a no-op conflict).
func MarkNotificationRead(ctx context.Context, db *gorm.DB, id, userID uint) error {
	res := db.WithContext(ctx).
		Model(&domain.Notification{}).
		Where("id = ? AND user_id = ? AND is_read = ?", id, userID, false).
		Update("is_read", true)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// MarkAllNotificationsRead flips every unread notification for the user and
// returns how many rows changed.
func MarkAllNotificationsRead(ctx context.Context, db *gorm.DB, userID uint) (int64, error) {
	res := db.WithContext(ctx).
		Model(&domain.Notification{}).
		Where("user_id = ? AND is_read = ?", userID, false).
		Update("is_read", true)
	return res.RowsAffected, res.Error
}
