// Full re-sync of the analytics store from the primary store.
//
// Replication is best-effort with no retry queue, so the replica can drift.
// SyncAll is the manual repair path: it re-walks every table in FK order and
// upserts each row through the relay. Individual row failures are counted
// and logged but do not stop the walk.
package relay

import (
	"context"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/openshelf/go-library-backend/internal/domain"
)

// Report summarizes one full-sync run.
type Report struct {
	Users         int `json:"users"`
	Categories    int `json:"categories"`
	Books         int `json:"books"`
	BorrowRecords int `json:"borrow_records"`
	Reviews       int `json:"reviews"`
	Failed        int `json:"failed"`
}

// SyncAll mirrors every row of every replicated table into the analytics
// store, parents before children. It returns a per-table count of synced
// rows; a non-nil error means the walk itself failed (primary-store read
// error), not that individual upserts failed.
func SyncAll(ctx context.Context, db *gorm.DB, r Relay) (*Report, error) {
	rep := &Report{}

	var users []domain.User
	if err := db.WithContext(ctx).Find(&users).Error; err != nil {
		return rep, err
	}
	for i := range users {
		if err := r.SyncUser(ctx, &users[i]); err != nil {
			rep.Failed++
			continue
		}
		rep.Users++
	}

	var categories []domain.Category
	if err := db.WithContext(ctx).Find(&categories).Error; err != nil {
		return rep, err
	}
	for i := range categories {
		if err := r.SyncCategory(ctx, &categories[i]); err != nil {
			rep.Failed++
			continue
		}
		rep.Categories++
	}

	var books []domain.Book
	if err := db.WithContext(ctx).Preload("Category").Find(&books).Error; err != nil {
		return rep, err
	}
	for i := range books {
		if err := r.SyncBook(ctx, &books[i]); err != nil {
			rep.Failed++
			continue
		}
		rep.Books++
	}

	var records []domain.BorrowRecord
	if err := db.WithContext(ctx).Preload("User").Preload("Book").Find(&records).Error; err != nil {
		return rep, err
	}
	for i := range records {
		if err := r.SyncBorrowRecord(ctx, &records[i]); err != nil {
			rep.Failed++
			continue
		}
		rep.BorrowRecords++
	}

	var reviews []domain.Review
	if err := db.WithContext(ctx).Preload("User").Preload("Book").Find(&reviews).Error; err != nil {
		return rep, err
	}
	for i := range reviews {
		if err := r.SyncReview(ctx, &reviews[i]); err != nil {
			rep.Failed++
			continue
		}
		rep.Reviews++
	}

	log.Info().
		Int("users", rep.Users).
		Int("categories", rep.Categories).
		Int("books", rep.Books).
		Int("borrow_records", rep.BorrowRecords).
		Int("reviews", rep.Reviews).
		Int("failed", rep.Failed).
		Msg("analytics full sync finished")
	return rep, nil
}
