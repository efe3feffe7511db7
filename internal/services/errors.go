// Package services defines the business logic for the catalog, the borrowing
// ledger, reviews, and notifications. This file centralizes common
// service-level error values so that they can be consistently returned by
// service methods and checked by callers.
//
// These errors are intended for internal use by the service layer and
// translation into user-facing messages or HTTP status codes should be
// performed at the handler/controller layer. Every precondition violation
// below is terminal: callers must not retry automatically.
package services

import "errors"

// Lookup errors.
var (
	// ErrBookNotFound indicates that the requested book does not exist.
	ErrBookNotFound = errors.New("book not found")

	// ErrCategoryNotFound indicates that the requested category does not exist.
	ErrCategoryNotFound = errors.New("category not found")

	// ErrUserNotFound indicates that the requested user does not exist.
	ErrUserNotFound = errors.New("user not found")

	// ErrRecordNotFound indicates that the requested borrow record does not exist.
	ErrRecordNotFound = errors.New("borrow record not found")

	// ErrReviewNotFound indicates that the requested review does not exist.
	ErrReviewNotFound = errors.New("review not found")

	// ErrNotificationNotFound indicates that the requested notification does
	// not exist, is not owned by the caller, or was already read.
	ErrNotificationNotFound = errors.New("notification not found")
)

// Borrowing-lifecycle errors.
var (
	// ErrAlreadyBorrowed is returned when the user already holds an
	// un-returned record for the same book.
	ErrAlreadyBorrowed = errors.New("book already borrowed by this user")

	// ErrNoCopiesAvailable is returned when a borrow request finds
	// available_copies == 0.
	ErrNoCopiesAvailable = errors.New("no copies available")

	// ErrAlreadyReturned is returned when a return is attempted on a record
	// whose lifecycle already completed. Fine and return date are untouched.
	ErrAlreadyReturned = errors.New("already returned")

	// ErrInvalidFineAmount is returned when an admin fine override carries a
	// negative amount.
	ErrInvalidFineAmount = errors.New("fine cannot be negative")

	// ErrCopiesExceedTotal signals that incrementing availability would push
	// the counter past total_copies. This should never happen given the
	// borrow precondition; it indicates a bug or lost race and aborts the
	// operation.
	ErrCopiesExceedTotal = errors.New("all copies are already returned")
)

// Catalog errors.
var (
	// ErrCategoryInUse is returned when deleting a category that still has
	// books referencing it.
	ErrCategoryInUse = errors.New("category has associated books")

	// ErrBookBorrowed is returned when deleting a book that still has active
	// borrow records.
	ErrBookBorrowed = errors.New("book has active borrowings")

	// ErrDuplicateCategory is returned when a category name already exists.
	ErrDuplicateCategory = errors.New("category already exists")

	// ErrDuplicateUsername is returned when registering an already-taken username.
	ErrDuplicateUsername = errors.New("username already taken")

	// ErrInvalidCopies is returned when a book create/update violates the
	// 0 <= available <= total bound, or total < available + active borrows.
	ErrInvalidCopies = errors.New("invalid copy counts")

	// ErrInvalidISBN is returned when a supplied ISBN is not exactly 13 digits.
	ErrInvalidISBN = errors.New("ISBN must be exactly 13 digits")

	// ErrDuplicateISBN is returned when a supplied ISBN already exists.
	ErrDuplicateISBN = errors.New("ISBN already exists")
)

// Review errors.
var (
	// ErrDuplicateReview is returned when a user reviews the same book twice.
	ErrDuplicateReview = errors.New("review already exists")

	// ErrInvalidRating is returned when a rating is outside 1..5.
	ErrInvalidRating = errors.New("rating must be between 1 and 5")
)
