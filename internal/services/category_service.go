// Package services – CategoryService
//
// Category management: create, rename, list, and deletion guarded against
// categories still referenced by books.
package services

import (
	"context"
	"strings"

	"gorm.io/gorm"

	"github.com/openshelf/go-library-backend/internal/domain"
	"github.com/openshelf/go-library-backend/internal/relay"
	"github.com/openshelf/go-library-backend/internal/repo"
)

// CategoryService provides category-level catalog operations.
type CategoryService struct {
	DB    *gorm.DB
	Relay relay.Relay
}

// Create inserts a new category. Blank names are rejected with
// ErrCategoryNotFound-adjacent validation at the handler layer; duplicates
// map to ErrDuplicateCategory.
func (s *CategoryService) Create(ctx context.Context, name string) (*domain.Category, error) {
	name = strings.TrimSpace(name)
	c, err := repo.CreateCategory(ctx, s.DB, name)
	if err != nil {
		if isDuplicate(err) {
			return nil, ErrDuplicateCategory
		}
		return nil, err
	}
	_ = s.Relay.SyncCategory(ctx, c)
	return c, nil
}

// List returns all categories ordered by name.
func (s *CategoryService) List(ctx context.Context) ([]domain.Category, error) {
	return repo.ListCategories(ctx, s.DB)
}

// Rename changes a category's name.
func (s *CategoryService) Rename(ctx context.Context, id uint, name string) (*domain.Category, error) {
	name = strings.TrimSpace(name)
	if err := repo.RenameCategory(ctx, s.DB, id, name); err != nil {
		if isNotFound(err) {
			return nil, ErrCategoryNotFound
		}
		if isDuplicate(err) {
			return nil, ErrDuplicateCategory
		}
		return nil, err
	}
	c := &domain.Category{ID: id, Name: name}
	_ = s.Relay.SyncCategory(ctx, c)
	return c, nil
}

// Delete removes a category that no book references; otherwise
// ErrCategoryInUse. Deletions are not replicated.
func (s *CategoryService) Delete(ctx context.Context, id uint) error {
	n, err := repo.CountBooksInCategory(ctx, s.DB, id)
	if err != nil {
		return err
	}
	if n > 0 {
		return ErrCategoryInUse
	}
	if err := repo.DeleteCategory(ctx, s.DB, id); err != nil {
		if isNotFound(err) {
			return ErrCategoryNotFound
		}
		return err
	}
	return nil
}
