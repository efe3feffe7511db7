// Package services – BorrowService
//
// This file implements the borrowing ledger: the ACTIVE → RETURNED state
// machine of a loan, fine accrual on overdue returns, and the admin
// overrides (fine adjustment, manual reminder).
//
// Concurrency & atomicity:
//   - Borrow runs one transaction: a conditional decrement of the book's
//     availability counter followed by the ledger insert. The partial unique
//     index ux_active_borrow makes a concurrent duplicate borrow fail at the
//     insert, rolling the decrement back with the transaction.
//   - Return runs one transaction built around a compare-and-set UPDATE
//     (WHERE is_returned = 0); the loser of a concurrent double return sees
//     zero rows affected and gets ErrAlreadyReturned.
//
// Replication: after the primary transaction commits, the mutated book and
// ledger rows are mirrored into the analytics store best-effort. The relay
// logs and counts its own failures; they never surface to the caller.
package services

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/openshelf/go-library-backend/internal/domain"
	"github.com/openshelf/go-library-backend/internal/relay"
	"github.com/openshelf/go-library-backend/internal/repo"
)

// BorrowService implements the use-cases around the borrowing ledger.
type BorrowService struct {
	// DB is the primary-store handle used for all ledger operations.
	DB *gorm.DB
	// Relay mirrors post-write state into the analytics store.
	Relay relay.Relay

	// LoanPeriodDays sets the due date offset applied at borrow time.
	LoanPeriodDays int
	// FinePerDay is the amount charged per full day overdue.
	FinePerDay decimal.Decimal

	// Now is the clock; tests override it. Defaults to time.Now (UTC).
	Now func() time.Time
}

// NewBorrowService constructs a BorrowService with the given circulation policy.
func NewBorrowService(db *gorm.DB, rly relay.Relay, loanPeriodDays int, finePerDay decimal.Decimal) *BorrowService {
	return &BorrowService{
		DB:             db,
		Relay:          rly,
		LoanPeriodDays: loanPeriodDays,
		FinePerDay:     finePerDay,
	}
}

func (s *BorrowService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now().UTC()
}

// Borrow creates an ACTIVE ledger entry for (userID, bookID) and decrements
// the book's availability.
//
// Failure modes, all terminal (the caller must not retry automatically):
//   - ErrBookNotFound: the book does not exist.
//   - ErrAlreadyBorrowed: the user already holds an un-returned record for
//     this book (detected by the advisory check or the unique index).
//   - ErrNoCopiesAvailable: available_copies == 0.
func (s *BorrowService) Borrow(ctx context.Context, userID, bookID uint) (*domain.BorrowRecord, error) {
	var rec *domain.BorrowRecord

	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := repo.GetBook(ctx, tx, bookID); err != nil {
			if isNotFound(err) {
				return ErrBookNotFound
			}
			return err
		}

		// Advisory check for a friendlier error; the unique index below is
		// the authoritative guard under concurrency.
		active, err := repo.HasActiveBorrow(ctx, tx, userID, bookID)
		if err != nil {
			return err
		}
		if active {
			return ErrAlreadyBorrowed
		}

		taken, err := repo.TakeCopy(ctx, tx, bookID)
		if err != nil {
			return err
		}
		if !taken {
			return ErrNoCopiesAvailable
		}

		borrowedAt := s.now()
		due := borrowedAt.AddDate(0, 0, s.LoanPeriodDays)
		rec = &domain.BorrowRecord{
			UserID:     userID,
			BookID:     bookID,
			BorrowDate: borrowedAt,
			DueDate:    &due,
			Fine:       decimal.Zero,
		}
		if err := repo.CreateBorrowRecord(ctx, tx, rec); err != nil {
			if isDuplicate(err) {
				// Lost the race: another request inserted the active record
				// first. The rollback restores the availability counter.
				return ErrAlreadyBorrowed
			}
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.replicateLoan(ctx, rec.ID)
	return rec, nil
}

// Return completes a loan exactly once: flips is_returned, sets the return
// date, restores the book's availability, and computes the fine from the
// number of full days overdue (truncated toward zero). An overdue return
// also notifies the borrower with the days late and the fine amount.
//
// A second Return on the same record signals ErrAlreadyReturned and leaves
// fine and return date unchanged.
func (s *BorrowService) Return(ctx context.Context, recordID uint) (*domain.BorrowRecord, error) {
	var rec *domain.BorrowRecord

	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		rec, err = repo.GetBorrowRecord(ctx, tx, recordID)
		if err != nil {
			if isNotFound(err) {
				return ErrRecordNotFound
			}
			return err
		}

		returnedAt := s.now()
		flipped, err := repo.MarkReturned(ctx, tx, recordID, returnedAt)
		if err != nil {
			return err
		}
		if !flipped {
			return ErrAlreadyReturned
		}

		restored, err := repo.PutCopy(ctx, tx, rec.BookID)
		if err != nil {
			return err
		}
		if !restored {
			// available_copies would exceed total_copies: the counter and
			// the ledger disagree. Abort and roll the return back.
			log.Error().
				Uint("record_id", recordID).
				Uint("book_id", rec.BookID).
				Msg("availability counter exceeds total on return")
			return ErrCopiesExceedTotal
		}

		fine := decimal.Zero
		days := daysOverdue(rec.DueDate, returnedAt)
		if days > 0 {
			fine = s.FinePerDay.Mul(decimal.NewFromInt(int64(days)))

			book, err := repo.GetBook(ctx, tx, rec.BookID)
			if err != nil {
				return err
			}
			msg := fmt.Sprintf("You were %d days late returning '%s'. A fine of Rs.%s has been added.",
				days, book.Title, fine.StringFixed(2))
			if _, err := repo.CreateNotification(ctx, tx, rec.UserID, msg); err != nil {
				return err
			}
		}
		if err := repo.SetFine(ctx, tx, recordID, fine); err != nil {
			return err
		}

		rec.IsReturned = true
		rec.ReturnDate = &returnedAt
		rec.Fine = fine
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.replicateLoan(ctx, rec.ID)
	return rec, nil
}

// SetFine is the admin override for a record's fine, independent of the
// automatic computation. Negative amounts are rejected with
// ErrInvalidFineAmount. Works on active and returned records alike.
func (s *BorrowService) SetFine(ctx context.Context, recordID uint, amount decimal.Decimal) error {
	if amount.IsNegative() {
		return ErrInvalidFineAmount
	}
	if err := repo.SetFine(ctx, s.DB, recordID, amount); err != nil {
		if isNotFound(err) {
			return ErrRecordNotFound
		}
		return err
	}

	s.replicateLoan(ctx, recordID)
	return nil
}

// SendReminder notifies the borrower about the record's due date ("ASAP"
// when no due date is set). Ledger state is untouched.
func (s *BorrowService) SendReminder(ctx context.Context, recordID uint) error {
	rec, err := repo.GetBorrowRecord(ctx, s.DB, recordID)
	if err != nil {
		if isNotFound(err) {
			return ErrRecordNotFound
		}
		return err
	}
	book, err := repo.GetBook(ctx, s.DB, rec.BookID)
	if err != nil {
		return err
	}

	dueBy := "ASAP"
	if rec.DueDate != nil {
		dueBy = rec.DueDate.Format("Jan 02, 2006")
	}
	msg := fmt.Sprintf("Reminder: Please return '%s' by %s.", book.Title, dueBy)
	_, err = repo.CreateNotification(ctx, s.DB, rec.UserID, msg)
	return err
}

// ListMine returns a user's ledger entries, most recent first.
func (s *BorrowService) ListMine(ctx context.Context, userID uint) ([]domain.BorrowRecord, error) {
	return repo.ListBorrowsByUser(ctx, s.DB, userID)
}

// ListAll returns ledger entries across all users with an optional status
// filter (returned | unreturned | overdue).
func (s *BorrowService) ListAll(ctx context.Context, status string) ([]domain.BorrowRecord, error) {
	return repo.ListAllBorrows(ctx, s.DB, repo.BorrowStatus(status), s.now())
}

// daysOverdue returns the number of full days between due and returnedAt,
// truncated toward zero, never negative. A nil due date never accrues.
func daysOverdue(due *time.Time, returnedAt time.Time) int {
	if due == nil || !returnedAt.After(*due) {
		return 0
	}
	return int(returnedAt.Sub(*due).Hours() / 24)
}

// replicateLoan mirrors the ledger row and its book into the analytics
// store, best-effort. Associations are preloaded so the relay can satisfy
// foreign keys on the replica.
func (s *BorrowService) replicateLoan(ctx context.Context, recordID uint) {
	var rec domain.BorrowRecord
	if err := s.DB.WithContext(ctx).
		Preload("User").
		Preload("Book").
		Preload("Book.Category").
		First(&rec, recordID).Error; err != nil {
		log.Warn().Err(err).Uint("record_id", recordID).Msg("load for replication failed")
		return
	}
	// Best effort: the relay logs and counts its own failures.
	_ = s.Relay.SyncBook(ctx, &rec.Book)
	_ = s.Relay.SyncBorrowRecord(ctx, &rec)
}
