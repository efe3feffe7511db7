// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the
// BorrowRecord (ledger) model.
//
// Concurrency notes:
//   - MarkReturned is a compare-and-set UPDATE; zero rows affected means the
//     record was already returned (or missing) and the caller must not apply
//     return-time side effects.
//   - Insertion of a second active record for the same (user, book) trips
//     the ux_active_borrow partial unique index created in AutoMigrate.
package repo

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/openshelf/go-library-backend/internal/domain"
)

// CreateBorrowRecord inserts a new ACTIVE ledger entry. BorrowDate defaults
// to now (UTC) when unset; DueDate must already be computed by the caller.
func CreateBorrowRecord(ctx context.Context, db *gorm.DB, r *domain.BorrowRecord) error {
	if r.BorrowDate.IsZero() {
		r.BorrowDate = time.Now().UTC()
	}
	return db.WithContext(ctx).Create(r).Error
}

// GetBorrowRecord fetches a ledger entry by ID, or ErrNotFound if missing.
func GetBorrowRecord(ctx context.Context, db *gorm.DB, id uint) (*domain.BorrowRecord, error) {
	var r domain.BorrowRecord
	if err := db.WithContext(ctx).First(&r, id).Error; err != nil {
		return nil, err
	}
	return &r, nil
}

// HasActiveBorrow reports whether the user currently holds an un-returned
// record for the book. Advisory only: the partial unique index is the
// authoritative guard under concurrency.
func HasActiveBorrow(ctx context.Context, db *gorm.DB, userID, bookID uint) (bool, error) {
	var n int64
	err := db.WithContext(ctx).
		Model(&domain.BorrowRecord{}).
		Where("user_id = ? AND book_id = ? AND is_returned = ?", userID, bookID, false).
		Count(&n).Error
	return n > 0, err
}

// CountActiveBorrowsForBook returns the number of open loans for a book.
func CountActiveBorrowsForBook(ctx context.Context, db *gorm.DB, bookID uint) (int64, error) {
	var n int64
	err := db.WithContext(ctx).
		Model(&domain.BorrowRecord{}).
		Where("book_id = ? AND is_returned = ?", bookID, false).
		Count(&n).Error
	return n, err
}

// MarkReturned flips is_returned exactly once. It reports whether this call
// performed the transition: false means the record was already returned or
// does not exist, and the caller must surface AlreadyReturned instead of
// touching fines or availability.
func MarkReturned(ctx context.Context, db *gorm.DB, id uint, returnedAt time.Time) (bool, error) {
	res := db.WithContext(ctx).
		Model(&domain.BorrowRecord{}).
		Where("id = ? AND is_returned = ?", id, false).
		Updates(map[string]interface{}{
			"is_returned": true,
			"return_date": returnedAt,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// SetFine overwrites the fine amount on a ledger entry. Returns ErrNotFound
// when the record does not exist. Validation of the amount happens in the
// service layer.
func SetFine(ctx context.Context, db *gorm.DB, id uint, amount decimal.Decimal) error {
	res := db.WithContext(ctx).
		Model(&domain.BorrowRecord{}).
		Where("id = ?", id).
		Update("fine", amount)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// ListBorrowsByUser returns a user's ledger entries, most recent first.
func ListBorrowsByUser(ctx context.Context, db *gorm.DB, userID uint) ([]domain.BorrowRecord, error) {
	var out []domain.BorrowRecord
	err := db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("borrow_date DESC, id DESC").
		Find(&out).Error
	return out, err
}

// BorrowStatus filters for ListAllBorrows.
type BorrowStatus string

const (
	BorrowStatusAll        BorrowStatus = ""
	BorrowStatusReturned   BorrowStatus = "returned"
	BorrowStatusUnreturned BorrowStatus = "unreturned"
	BorrowStatusOverdue    BorrowStatus = "overdue"
)

// ListAllBorrows returns ledger entries across all users, optionally filtered
// by status. "overdue" means un-returned with a due date strictly in the past
// relative to now.
func ListAllBorrows(ctx context.Context, db *gorm.DB, status BorrowStatus, now time.Time) ([]domain.BorrowRecord, error) {
	q := db.WithContext(ctx).Model(&domain.BorrowRecord{})
	switch status {
	case BorrowStatusReturned:
		q = q.Where("is_returned = ?", true)
	case BorrowStatusUnreturned:
		q = q.Where("is_returned = ?", false)
	case BorrowStatusOverdue:
		q = q.Where("is_returned = ? AND due_date IS NOT NULL AND due_date < ?", false, now)
	}
	var out []domain.BorrowRecord
	err := q.Order("borrow_date DESC, id DESC").Find(&out).Error
	return out, err
}
