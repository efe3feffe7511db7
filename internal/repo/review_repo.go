// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the Review
// model. The (user_id, book_id) unique index makes duplicate reviews a
// database-level conflict; the service layer maps that to a stable error.
package repo

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/openshelf/go-library-backend/internal/domain"
)

// CreateReview inserts a review row with CreatedAt set to UTC now.
func CreateReview(ctx context.Context, db *gorm.DB, r *domain.Review) error {
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now().UTC()
	}
	return db.WithContext(ctx).Create(r).Error
}

// GetReview fetches a review by ID, or ErrNotFound if missing.
func GetReview(ctx context.Context, db *gorm.DB, id uint) (*domain.Review, error) {
	var r domain.Review
	if err := db.WithContext(ctx).First(&r, id).Error; err != nil {
		return nil, err
	}
	return &r, nil
}

// ListReviewsForBook returns a book's reviews, newest first.
func ListReviewsForBook(ctx context.Context, db *gorm.DB, bookID uint) ([]domain.Review, error) {
	var out []domain.Review
	err := db.WithContext(ctx).
		Where("book_id = ?", bookID).
		Order("created_at DESC, id DESC").
		Find(&out).Error
	return out, err
}

// DeleteReview removes a review row (admin moderation). Returns ErrNotFound
// when missing.
func DeleteReview(ctx context.Context, db *gorm.DB, id uint) error {
	res := db.WithContext(ctx).Delete(&domain.Review{}, id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
