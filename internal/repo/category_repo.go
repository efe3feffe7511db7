// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the Category
// model.
package repo

import (
	"context"

	"gorm.io/gorm"

	"github.com/openshelf/go-library-backend/internal/domain"
)

// CreateCategory inserts a new category row. Name uniqueness is enforced by
// the database; duplicate names surface as a unique-constraint error.
func CreateCategory(ctx context.Context, db *gorm.DB, name string) (*domain.Category, error) {
	c := &domain.Category{Name: name}
	if err := db.WithContext(ctx).Create(c).Error; err != nil {
		return nil, err
	}
	return c, nil
}

// GetCategory fetches a category by ID, or ErrNotFound if missing.
func GetCategory(ctx context.Context, db *gorm.DB, id uint) (*domain.Category, error) {
	var c domain.Category
	if err := db.WithContext(ctx).First(&c, id).Error; err != nil {
		return nil, err
	}
	return &c, nil
}

// ListCategories returns all categories ordered by name.
func ListCategories(ctx context.Context, db *gorm.DB) ([]domain.Category, error) {
	var out []domain.Category
	err := db.WithContext(ctx).Order("name ASC").Find(&out).Error
	return out, err
}

// RenameCategory updates a category's name. Returns ErrNotFound when the
// category does not exist.
func RenameCategory(ctx context.Context, db *gorm.DB, id uint, name string) error {
	res := db.WithContext(ctx).
		Model(&domain.Category{}).
		Where("id = ?", id).
		Update("name", name)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// CountBooksInCategory returns how many books reference the category. The
// service layer uses this to refuse deleting categories that are in use.
func CountBooksInCategory(ctx context.Context, db *gorm.DB, id uint) (int64, error) {
	var n int64
	err := db.WithContext(ctx).
		Model(&domain.Book{}).
		Where("category_id = ?", id).
		Count(&n).Error
	return n, err
}

// DeleteCategory removes a category row. Returns ErrNotFound when missing.
func DeleteCategory(ctx context.Context, db *gorm.DB, id uint) error {
	res := db.WithContext(ctx).Delete(&domain.Category{}, id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
