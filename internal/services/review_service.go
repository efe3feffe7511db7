// Package services – ReviewService
//
// One rating+comment per (user, book) pair, independent of borrowing
// history. Uniqueness is enforced by the database; this service maps the
// conflict to a stable error and mirrors successful writes into the
// analytics store.
package services

import (
	"context"

	"gorm.io/gorm"

	"github.com/openshelf/go-library-backend/internal/domain"
	"github.com/openshelf/go-library-backend/internal/relay"
	"github.com/openshelf/go-library-backend/internal/repo"
)

// ReviewService implements the use-cases around book reviews.
type ReviewService struct {
	DB    *gorm.DB
	Relay relay.Relay
}

// Leave records a rating (1..5) and optional comment for bookID on behalf of
// userID.
//
// Errors: ErrInvalidRating, ErrBookNotFound, ErrDuplicateReview.
func (s *ReviewService) Leave(ctx context.Context, userID, bookID uint, rating int, content string) (*domain.Review, error) {
	if rating < 1 || rating > 5 {
		return nil, ErrInvalidRating
	}

	var rv *domain.Review
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := repo.GetBook(ctx, tx, bookID); err != nil {
			if isNotFound(err) {
				return ErrBookNotFound
			}
			return err
		}
		rv = &domain.Review{
			UserID:  userID,
			BookID:  bookID,
			Rating:  rating,
			Content: content,
		}
		if err := repo.CreateReview(ctx, tx, rv); err != nil {
			if isDuplicate(err) {
				return ErrDuplicateReview
			}
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.replicateReview(ctx, rv.ID)
	return rv, nil
}

// ListForBook returns a book's reviews, newest first.
func (s *ReviewService) ListForBook(ctx context.Context, bookID uint) ([]domain.Review, error) {
	return repo.ListReviewsForBook(ctx, s.DB, bookID)
}

// Delete removes a review (admin moderation). Deletions are not replicated.
func (s *ReviewService) Delete(ctx context.Context, id uint) error {
	if err := repo.DeleteReview(ctx, s.DB, id); err != nil {
		if isNotFound(err) {
			return ErrReviewNotFound
		}
		return err
	}
	return nil
}

func (s *ReviewService) replicateReview(ctx context.Context, id uint) {
	var rv domain.Review
	if err := s.DB.WithContext(ctx).
		Preload("User").
		Preload("Book").
		Preload("Book.Category").
		First(&rv, id).Error; err != nil {
		return
	}
	_ = s.Relay.SyncReview(ctx, &rv)
}
