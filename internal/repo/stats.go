// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides small aggregate/statistics queries used
// primarily for conditional responses (e.g., ETag generation) in the HTTP
// layer. Each function is context-aware and safe to call from services or
// handlers.
package repo

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/openshelf/go-library-backend/internal/domain"
)

// BorrowsStats returns aggregate metadata for a user's ledger entries: the
// total number of rows and the latest activity timestamp among them (return
// date when present, borrow date otherwise).
//
// When the user has no borrow records, the returned count is 0 and
// lastActivity is nil.
func BorrowsStats(ctx context.Context, db *gorm.DB, userID uint) (count int64, lastActivity *time.Time, err error) {
	q := db.WithContext(ctx).Model(&domain.BorrowRecord{}).Where("user_id = ?", userID)

	if err = q.Count(&count).Error; err != nil {
		return 0, nil, err
	}
	if count == 0 {
		return 0, nil, nil
	}

	// COALESCE picks the return date once set; MAX() -> TEXT pitfalls in
	// SQLite are avoided by ordering instead of aggregating.
	var row struct {
		Activity time.Time
	}
	if err = q.Select("COALESCE(return_date, borrow_date) AS activity").
		Order("activity DESC").
		Limit(1).
		Scan(&row).Error; err != nil {
		return 0, nil, err
	}
	return count, &row.Activity, nil
}

// NotificationsStats returns aggregate metadata for a user's notifications:
// total rows, unread rows, and the newest creation timestamp. When the user
// has no notifications, newest is nil.
func NotificationsStats(ctx context.Context, db *gorm.DB, userID uint) (total, unread int64, newest *time.Time, err error) {
	q := db.WithContext(ctx).Model(&domain.Notification{}).Where("user_id = ?", userID)

	if err = q.Count(&total).Error; err != nil {
		return 0, 0, nil, err
	}
	if err = db.WithContext(ctx).
		Model(&domain.Notification{}).
		Where("user_id = ? AND is_read = ?", userID, false).
		Count(&unread).Error; err != nil {
		return 0, 0, nil, err
	}
	if total == 0 {
		return 0, 0, nil, nil
	}

	var row struct {
		CreatedAt time.Time
	}
	if err = q.Select("created_at").Order("created_at DESC").Limit(1).Scan(&row).Error; err != nil {
		return 0, 0, nil, err
	}
	return total, unread, &row.CreatedAt, nil
}
