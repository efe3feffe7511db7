// Package services – CatalogService
//
// This file implements book catalog management: create (with ISBN
// generation), lookup with rating aggregation, search, update with copy-count
// validation, and guarded deletion. Every successful write is mirrored into
// the analytics store best-effort.
package services

import (
	"context"
	"math/rand/v2"
	"regexp"
	"strconv"
	"strings"

	"golang.org/x/text/cases"
	"gorm.io/gorm"

	"github.com/openshelf/go-library-backend/internal/domain"
	"github.com/openshelf/go-library-backend/internal/relay"
	"github.com/openshelf/go-library-backend/internal/repo"
)

// isbnPattern matches exactly 13 digits.
var isbnPattern = regexp.MustCompile(`^\d{13}$`)

// CatalogService provides book-level catalog operations.
type CatalogService struct {
	// DB is the primary-store handle.
	DB *gorm.DB
	// Relay mirrors post-write state into the analytics store.
	Relay relay.Relay
}

// BookInput carries the caller-supplied fields for creating or updating a book.
type BookInput struct {
	Title           string
	Author          string
	CategoryID      uint
	TotalCopies     int
	AvailableCopies int
	ISBN            string // optional on create; generated when empty
	CoverURL        string
}

// CreateBook validates the input, assigns a unique 13-digit ISBN when none
// is supplied, and inserts the book.
//
// Errors: ErrCategoryNotFound, ErrInvalidCopies, ErrInvalidISBN for a
// malformed explicit ISBN, or the underlying DB error.
func (s *CatalogService) CreateBook(ctx context.Context, in BookInput) (*domain.Book, error) {
	if in.TotalCopies < 0 || in.AvailableCopies < 0 || in.AvailableCopies > in.TotalCopies {
		return nil, ErrInvalidCopies
	}
	if _, err := repo.GetCategory(ctx, s.DB, in.CategoryID); err != nil {
		if isNotFound(err) {
			return nil, ErrCategoryNotFound
		}
		return nil, err
	}

	isbn := strings.TrimSpace(in.ISBN)
	if isbn == "" {
		var err error
		if isbn, err = s.generateISBN(ctx); err != nil {
			return nil, err
		}
	} else if !isbnPattern.MatchString(isbn) {
		return nil, ErrInvalidISBN
	}

	b := &domain.Book{
		Title:           in.Title,
		Author:          in.Author,
		CategoryID:      in.CategoryID,
		TotalCopies:     in.TotalCopies,
		AvailableCopies: in.AvailableCopies,
		ISBN:            isbn,
		CoverURL:        in.CoverURL,
	}
	if err := repo.CreateBook(ctx, s.DB, b); err != nil {
		if isDuplicate(err) {
			return nil, ErrDuplicateISBN
		}
		return nil, err
	}

	s.replicateBook(ctx, b.ID)
	return b, nil
}

// GetBook returns a book and its average review rating (nil when unrated).
func (s *CatalogService) GetBook(ctx context.Context, id uint) (*domain.Book, *float64, error) {
	b, err := repo.GetBook(ctx, s.DB, id)
	if err != nil {
		if isNotFound(err) {
			return nil, nil, ErrBookNotFound
		}
		return nil, nil, err
	}
	avg, err := repo.AverageRating(ctx, s.DB, id)
	if err != nil {
		return nil, nil, err
	}
	return b, avg, nil
}

// ListBooks returns a page of the catalog plus the total count.
func (s *CatalogService) ListBooks(ctx context.Context, page, pageSize int) ([]domain.Book, int64, error) {
	if page < 1 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 20
	}
	return repo.ListBooksPage(ctx, s.DB, (page-1)*pageSize, pageSize)
}

// ListByCategory returns every book filed under a category, ordered by title.
//
// Errors: ErrCategoryNotFound.
func (s *CatalogService) ListByCategory(ctx context.Context, categoryID uint) ([]domain.Book, error) {
	if _, err := repo.GetCategory(ctx, s.DB, categoryID); err != nil {
		if isNotFound(err) {
			return nil, ErrCategoryNotFound
		}
		return nil, err
	}
	return repo.ListBooksByCategory(ctx, s.DB, categoryID)
}

// SearchBooks returns books matching the query on title or author,
// case-insensitively. Queries are case-folded for Unicode-correct matching.
func (s *CatalogService) SearchBooks(ctx context.Context, query string, limit int) ([]domain.Book, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return []domain.Book{}, nil
	}
	folded := cases.Fold().String(query)
	return repo.SearchBooks(ctx, s.DB, folded, limit)
}

// UpdateBook applies catalog edits to an existing book. Copy counts are
// validated against the ledger: available may not exceed total, and total
// may not fall below active borrows + available (the original counter
// semantics preserved).
func (s *CatalogService) UpdateBook(ctx context.Context, id uint, in BookInput) (*domain.Book, error) {
	b, err := repo.GetBook(ctx, s.DB, id)
	if err != nil {
		if isNotFound(err) {
			return nil, ErrBookNotFound
		}
		return nil, err
	}
	if _, err := repo.GetCategory(ctx, s.DB, in.CategoryID); err != nil {
		if isNotFound(err) {
			return nil, ErrCategoryNotFound
		}
		return nil, err
	}

	if in.AvailableCopies > in.TotalCopies || in.AvailableCopies < 0 {
		return nil, ErrInvalidCopies
	}
	borrowed, err := repo.CountActiveBorrowsForBook(ctx, s.DB, id)
	if err != nil {
		return nil, err
	}
	if int64(in.TotalCopies) < borrowed+int64(in.AvailableCopies) {
		return nil, ErrInvalidCopies
	}

	b.Title = in.Title
	b.Author = in.Author
	b.CategoryID = in.CategoryID
	b.TotalCopies = in.TotalCopies
	b.AvailableCopies = in.AvailableCopies
	if in.CoverURL != "" {
		b.CoverURL = in.CoverURL
	}
	if err := repo.UpdateBook(ctx, s.DB, b); err != nil {
		if isNotFound(err) {
			return nil, ErrBookNotFound
		}
		return nil, err
	}

	s.replicateBook(ctx, b.ID)
	return b, nil
}

// DeleteBook removes a book that has no active borrowings.
// Deletions are not replicated; the replica keeps history.
func (s *CatalogService) DeleteBook(ctx context.Context, id uint) error {
	borrowed, err := repo.CountActiveBorrowsForBook(ctx, s.DB, id)
	if err != nil {
		return err
	}
	if borrowed > 0 {
		return ErrBookBorrowed
	}
	if err := repo.DeleteBook(ctx, s.DB, id); err != nil {
		if isNotFound(err) {
			return ErrBookNotFound
		}
		return err
	}
	return nil
}

// generateISBN draws random 13-digit numbers until one is free. The keyspace
// is large enough that a handful of attempts always suffices in practice.
func (s *CatalogService) generateISBN(ctx context.Context) (string, error) {
	for {
		n := rand.Int64N(9_000_000_000_000) + 1_000_000_000_000
		isbn := strconv.FormatInt(n, 10)
		exists, err := repo.BookExistsByISBN(ctx, s.DB, isbn)
		if err != nil {
			return "", err
		}
		if !exists {
			return isbn, nil
		}
	}
}

// replicateBook mirrors the book (with its category) into the analytics
// store, best-effort.
func (s *CatalogService) replicateBook(ctx context.Context, id uint) {
	var b domain.Book
	if err := s.DB.WithContext(ctx).Preload("Category").First(&b, id).Error; err != nil {
		return
	}
	_ = s.Relay.SyncBook(ctx, &b)
}
