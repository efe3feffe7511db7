// Shared handler wiring: service contracts, the Handlers aggregate, the
// caller-identity helper, and pagination plumbing.
//
// Handlers are transport-thin: they validate input, call application
// services, and translate service-level sentinel errors into HTTP responses.
// Authentication/authorization policy lives outside this service; requests
// identify the caller with the X-User-ID header (numeric member ID), and
// admin routes are expected to be protected by the fronting gateway.
package handlers

import (
	"context"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/openshelf/go-library-backend/internal/domain"
	"github.com/openshelf/go-library-backend/internal/relay"
	"github.com/openshelf/go-library-backend/internal/services"
	"github.com/openshelf/go-library-backend/internal/utils"
)

//
// Service contracts (context-aware)
//

// CatalogService defines book catalog operations consumed by HTTP handlers.
type CatalogService interface {
	CreateBook(ctx context.Context, in services.BookInput) (*domain.Book, error)
	GetBook(ctx context.Context, id uint) (*domain.Book, *float64, error)
	ListBooks(ctx context.Context, page, pageSize int) ([]domain.Book, int64, error)
	ListByCategory(ctx context.Context, categoryID uint) ([]domain.Book, error)
	SearchBooks(ctx context.Context, query string, limit int) ([]domain.Book, error)
	UpdateBook(ctx context.Context, id uint, in services.BookInput) (*domain.Book, error)
	DeleteBook(ctx context.Context, id uint) error
}

// CategoryService defines category operations consumed by HTTP handlers.
type CategoryService interface {
	Create(ctx context.Context, name string) (*domain.Category, error)
	List(ctx context.Context) ([]domain.Category, error)
	Rename(ctx context.Context, id uint, name string) (*domain.Category, error)
	Delete(ctx context.Context, id uint) error
}

// BorrowService defines borrowing-ledger operations consumed by HTTP handlers.
type BorrowService interface {
	Borrow(ctx context.Context, userID, bookID uint) (*domain.BorrowRecord, error)
	Return(ctx context.Context, recordID uint) (*domain.BorrowRecord, error)
	SetFine(ctx context.Context, recordID uint, amount decimal.Decimal) error
	SendReminder(ctx context.Context, recordID uint) error
	ListMine(ctx context.Context, userID uint) ([]domain.BorrowRecord, error)
	ListAll(ctx context.Context, status string) ([]domain.BorrowRecord, error)
}

// ReviewService defines review operations consumed by HTTP handlers.
type ReviewService interface {
	Leave(ctx context.Context, userID, bookID uint, rating int, content string) (*domain.Review, error)
	ListForBook(ctx context.Context, bookID uint) ([]domain.Review, error)
	Delete(ctx context.Context, id uint) error
}

// NotificationService defines notification operations consumed by HTTP handlers.
type NotificationService interface {
	ListMine(ctx context.Context, userID uint, page, pageSize int) ([]domain.Notification, int64, error)
	UnreadCount(ctx context.Context, userID uint) (int64, error)
	MarkRead(ctx context.Context, userID, id uint) error
	MarkAllRead(ctx context.Context, userID uint) (int64, error)
}

// UserService defines member operations consumed by HTTP handlers.
type UserService interface {
	Register(ctx context.Context, in services.RegisterInput) (*domain.User, error)
	Get(ctx context.Context, id uint) (*domain.User, error)
}

//
// Handler wiring
//

// Handlers groups the HTTP endpoints for the catalog, the borrowing ledger,
// reviews, notifications, members, and the admin surface.
type Handlers struct {
	catalogSvc  CatalogService
	categorySvc CategoryService
	borrowSvc   BorrowService
	reviewSvc   ReviewService
	notifSvc    NotificationService
	userSvc     UserService

	// fullSync triggers a manual re-walk of every replicated table; wired by
	// the router from relay.SyncAll.
	fullSync func(ctx context.Context) (*relay.Report, error)
}

// New constructs and returns a Handlers instance bound to the given services.
func New(
	catalog CatalogService,
	categories CategoryService,
	borrows BorrowService,
	reviews ReviewService,
	notifications NotificationService,
	users UserService,
	fullSync func(ctx context.Context) (*relay.Report, error),
) *Handlers {
	return &Handlers{
		catalogSvc:  catalog,
		categorySvc: categories,
		borrowSvc:   borrows,
		reviewSvc:   reviews,
		notifSvc:    notifications,
		userSvc:     users,
		fullSync:    fullSync,
	}
}

//
// Helpers
//

// userID extracts the caller's member ID from context or the X-User-ID
// header. It reports false when the request carries no usable identity.
func userID(c *gin.Context) (uint, bool) {
	if v, ok := c.Get("userID"); ok {
		if id, ok := v.(uint); ok && id != 0 {
			return id, true
		}
	}
	if h := strings.TrimSpace(c.GetHeader("X-User-ID")); h != "" {
		if id, err := strconv.ParseUint(h, 10, 32); err == nil && id != 0 {
			return uint(id), true
		}
	}
	return 0, false
}

// requireUser is userID plus the 401 response when identity is missing.
func requireUser(c *gin.Context) (uint, bool) {
	uid, ok := userID(c)
	if !ok {
		fail(c, 401, ErrCodeUnauthorized, "X-User-ID header required")
	}
	return uid, ok
}

// pathID parses a positive integer path parameter.
func pathID(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 32)
	if err != nil || id == 0 {
		fail(c, 400, ErrCodeBadRequest, name+" must be a positive integer")
		return 0, false
	}
	return uint(id), true
}

// Pagination carries pagination metadata for list responses.
type Pagination struct {
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"total_pages"`
	HasNext    bool  `json:"has_next"`
}

// paginate computes the metadata block for a list response.
func paginate(page, pageSize int, total int64) Pagination {
	totalPages := int((total + int64(pageSize) - 1) / int64(pageSize))
	return Pagination{
		Page:       page,
		PageSize:   pageSize,
		Total:      total,
		TotalPages: totalPages,
		HasNext:    page < totalPages,
	}
}

// clampPagination parses and bounds page and page_size query params to sane
// defaults and limits, returning (page, pageSize).
func clampPagination(c *gin.Context) (page, pageSize int) {
	const (
		defaultPage     = 1
		defaultPageSize = 20
		maxPageSize     = 100
	)
	page = utils.AtoiDefault(c.Query("page"), defaultPage)
	if page < 1 {
		page = 1
	}
	pageSize = utils.AtoiDefault(c.Query("page_size"), defaultPageSize)
	if pageSize < 1 {
		pageSize = 1
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}
	return
}
