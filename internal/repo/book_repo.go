// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the Book model.
//
// All functions are context-aware and accept a *gorm.DB handle, making them
// safe for use within transactions or connection-scoped operations.
// They follow the "thin repository" approach: no business logic, only CRUD
// persistence and query composition.
//
// Error semantics:
//   - When a book is not found, functions return gorm.ErrRecordNotFound
//     (also exported here as ErrNotFound for convenience).
//   - The availability counter is only ever mutated through the guarded
//     conditional updates below; callers must treat zero rows affected as a
//     failed precondition, never retry blindly.
package repo

import (
	"context"

	"gorm.io/gorm"

	"github.com/openshelf/go-library-backend/internal/domain"
)

// ErrNotFound is returned when a requested record does not exist.
// It aliases gorm.ErrRecordNotFound for convenience and consistency
// across the service layer and handlers.
var ErrNotFound = gorm.ErrRecordNotFound

// CreateBook inserts a new book row. The caller is responsible for having
// assigned a unique 13-digit ISBN (see services.CatalogService).
func CreateBook(ctx context.Context, db *gorm.DB, b *domain.Book) error {
	return db.WithContext(ctx).Create(b).Error
}

// GetBook fetches a single book by ID, or ErrNotFound if missing.
func GetBook(ctx context.Context, db *gorm.DB, id uint) (*domain.Book, error) {
	var b domain.Book
	if err := db.WithContext(ctx).First(&b, id).Error; err != nil {
		return nil, err
	}
	return &b, nil
}

// BookExistsByISBN reports whether any book row carries the given ISBN.
func BookExistsByISBN(ctx context.Context, db *gorm.DB, isbn string) (bool, error) {
	var n int64
	err := db.WithContext(ctx).Model(&domain.Book{}).Where("isbn = ?", isbn).Count(&n).Error
	return n > 0, err
}

// ListBooksPage returns a paginated slice of books ordered by title, plus the
// total row count for pagination metadata.
func ListBooksPage(ctx context.Context, db *gorm.DB, offset, limit int) ([]domain.Book, int64, error) {
	var total int64
	if err := db.WithContext(ctx).Model(&domain.Book{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var out []domain.Book
	err := db.WithContext(ctx).
		Order("title ASC, id ASC").
		Offset(offset).
		Limit(limit).
		Find(&out).Error
	return out, total, err
}

// SearchBooks returns books whose title or author contains the query
// substring, case-insensitively. The caller should case-fold the query first.
func SearchBooks(ctx context.Context, db *gorm.DB, query string, limit int) ([]domain.Book, error) {
	var out []domain.Book
	like := "%" + query + "%"
	q := db.WithContext(ctx).
		Where("LOWER(title) LIKE ? OR LOWER(author) LIKE ?", like, like).
		Order("title ASC, id ASC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	err := q.Find(&out).Error
	return out, err
}

// ListBooksByCategory returns all books in the given category ordered by title.
func ListBooksByCategory(ctx context.Context, db *gorm.DB, categoryID uint) ([]domain.Book, error) {
	var out []domain.Book
	err := db.WithContext(ctx).
		Where("category_id = ?", categoryID).
		Order("title ASC, id ASC").
		Find(&out).Error
	return out, err
}

// UpdateBook persists mutable catalog fields (title, author, category,
// copies, cover). If no rows are affected it returns ErrNotFound.
func UpdateBook(ctx context.Context, db *gorm.DB, b *domain.Book) error {
	res := db.WithContext(ctx).
		Model(&domain.Book{}).
		Where("id = ?", b.ID).
		Updates(map[string]interface{}{
			"title":            b.Title,
			"author":           b.Author,
			"category_id":      b.CategoryID,
			"total_copies":     b.TotalCopies,
			"available_copies": b.AvailableCopies,
			"cover_url":        b.CoverURL,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// DeleteBook removes a book row. The service layer guards against deleting
// books with active borrow records before calling this.
func DeleteBook(ctx context.Context, db *gorm.DB, id uint) error {
	res := db.WithContext(ctx).Delete(&domain.Book{}, id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// TakeCopy atomically decrements a book's availability, refusing to go below
// zero. It reports whether a copy was actually taken: false means the book
// either does not exist or has no available copies.
func TakeCopy(ctx context.Context, db *gorm.DB, bookID uint) (bool, error) {
	res := db.WithContext(ctx).
		Model(&domain.Book{}).
		Where("id = ? AND available_copies > 0", bookID).
		UpdateColumn("available_copies", gorm.Expr("available_copies - 1"))
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// PutCopy atomically increments a book's availability, refusing to exceed
// total_copies. It reports whether the increment happened: false signals the
// counter would have exceeded the total, which callers treat as an invariant
// violation.
func PutCopy(ctx context.Context, db *gorm.DB, bookID uint) (bool, error) {
	res := db.WithContext(ctx).
		Model(&domain.Book{}).
		Where("id = ? AND available_copies < total_copies", bookID).
		UpdateColumn("available_copies", gorm.Expr("available_copies + 1"))
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// AverageRating returns the mean review rating for a book rounded to one
// decimal place, or nil when the book has no reviews.
func AverageRating(ctx context.Context, db *gorm.DB, bookID uint) (*float64, error) {
	var row struct {
		N   int64
		Avg float64
	}
	err := db.WithContext(ctx).
		Model(&domain.Review{}).
		Select("COUNT(*) AS n, COALESCE(AVG(rating), 0) AS avg").
		Where("book_id = ?", bookID).
		Scan(&row).Error
	if err != nil {
		return nil, err
	}
	if row.N == 0 {
		return nil, nil
	}
	avg := float64(int(row.Avg*10+0.5)) / 10
	return &avg, nil
}
