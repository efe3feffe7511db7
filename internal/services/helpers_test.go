package services

import (
	"context"
	"fmt"
	"sync"
	"testing"

	sqlite "github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/openshelf/go-library-backend/internal/domain"
	"github.com/openshelf/go-library-backend/internal/repo"
)

// ---------- test helpers ----------

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:svc_%s?mode=memory&cache=shared", uuid.NewString())

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	db.Exec("PRAGMA foreign_keys=ON;")
	if err := repo.AutoMigrate(db); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	return db
}

// seedLibrary inserts one member, one category, and one book with the given
// copy counts, returning all three.
func seedLibrary(t *testing.T, db *gorm.DB, totalCopies, availableCopies int) (*domain.User, *domain.Category, *domain.Book) {
	t.Helper()

	u := &domain.User{Username: "member_" + uuid.NewString()[:8], Email: "m@example.com", PasswordHash: "x"}
	if err := db.Create(u).Error; err != nil {
		t.Fatalf("seed user: %v", err)
	}
	c := &domain.Category{Name: "cat_" + uuid.NewString()[:8]}
	if err := db.Create(c).Error; err != nil {
		t.Fatalf("seed category: %v", err)
	}
	b := &domain.Book{
		Title:           "Dune",
		Author:          "Frank Herbert",
		CategoryID:      c.ID,
		TotalCopies:     totalCopies,
		AvailableCopies: availableCopies,
		ISBN:            uniqueISBN(),
	}
	if err := db.Create(b).Error; err != nil {
		t.Fatalf("seed book: %v", err)
	}
	return u, c, b
}

var isbnSeq uint64 = 9780000000000

var isbnMu sync.Mutex

func uniqueISBN() string {
	isbnMu.Lock()
	defer isbnMu.Unlock()
	isbnSeq++
	return fmt.Sprintf("%013d", isbnSeq)
}

// ----- Recording relay -----

// recordingRelay counts invocations per entity and optionally fails every
// call, standing in for an unreachable analytics store.
type recordingRelay struct {
	mu      sync.Mutex
	users   int
	cats    int
	books   int
	records int
	reviews int

	err error // returned from every call when non-nil
}

func (r *recordingRelay) SyncUser(context.Context, *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.users++
	return r.err
}

func (r *recordingRelay) SyncCategory(context.Context, *domain.Category) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cats++
	return r.err
}

func (r *recordingRelay) SyncBook(context.Context, *domain.Book) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.books++
	return r.err
}

func (r *recordingRelay) SyncBorrowRecord(context.Context, *domain.BorrowRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records++
	return r.err
}

func (r *recordingRelay) SyncReview(context.Context, *domain.Review) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.reviews++
	return r.err
}
