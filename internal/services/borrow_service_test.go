package services

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/openshelf/go-library-backend/internal/domain"
	"github.com/openshelf/go-library-backend/internal/relay"
	"github.com/openshelf/go-library-backend/internal/repo"
)

func newBorrowSvc(db *gorm.DB, rly relay.Relay) *BorrowService {
	return NewBorrowService(db, rly, 12, decimal.RequireFromString("10.00"))
}

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func TestBorrow_CreatesActiveRecordWithDueDate(t *testing.T) {
	db := newTestDB(t)
	u, _, b := seedLibrary(t, db, 2, 2)

	svc := newBorrowSvc(db, relay.NewNoop())
	borrowedAt := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	svc.Now = fixedClock(borrowedAt)

	rec, err := svc.Borrow(context.Background(), u.ID, b.ID)
	if err != nil {
		t.Fatalf("Borrow: %v", err)
	}
	if rec.IsReturned {
		t.Fatalf("new record must be active")
	}
	if !rec.BorrowDate.Equal(borrowedAt) {
		t.Fatalf("borrow date = %v, want %v", rec.BorrowDate, borrowedAt)
	}
	wantDue := borrowedAt.AddDate(0, 0, 12)
	if rec.DueDate == nil || !rec.DueDate.Equal(wantDue) {
		t.Fatalf("due date = %v, want %v", rec.DueDate, wantDue)
	}
	if !rec.Fine.IsZero() {
		t.Fatalf("fine on fresh record = %s, want 0", rec.Fine)
	}

	// Availability decremented.
	got, err := repo.GetBook(context.Background(), db, b.ID)
	if err != nil {
		t.Fatalf("GetBook: %v", err)
	}
	if got.AvailableCopies != 1 {
		t.Fatalf("available = %d, want 1", got.AvailableCopies)
	}
}

func TestBorrow_BookNotFound(t *testing.T) {
	db := newTestDB(t)
	u, _, _ := seedLibrary(t, db, 1, 1)

	svc := newBorrowSvc(db, relay.NewNoop())
	if _, err := svc.Borrow(context.Background(), u.ID, 9999); !errors.Is(err, ErrBookNotFound) {
		t.Fatalf("err = %v, want ErrBookNotFound", err)
	}
}

func TestBorrow_DuplicateActiveLoanRejected(t *testing.T) {
	db := newTestDB(t)
	u, _, b := seedLibrary(t, db, 3, 3)

	svc := newBorrowSvc(db, relay.NewNoop())
	if _, err := svc.Borrow(context.Background(), u.ID, b.ID); err != nil {
		t.Fatalf("first borrow: %v", err)
	}
	if _, err := svc.Borrow(context.Background(), u.ID, b.ID); !errors.Is(err, ErrAlreadyBorrowed) {
		t.Fatalf("second borrow err = %v, want ErrAlreadyBorrowed", err)
	}

	// Counter was not decremented twice.
	got, _ := repo.GetBook(context.Background(), db, b.ID)
	if got.AvailableCopies != 2 {
		t.Fatalf("available = %d, want 2", got.AvailableCopies)
	}
}

func TestBorrow_AfterReturn_AllowedAgain(t *testing.T) {
	db := newTestDB(t)
	u, _, b := seedLibrary(t, db, 1, 1)

	svc := newBorrowSvc(db, relay.NewNoop())
	rec, err := svc.Borrow(context.Background(), u.ID, b.ID)
	if err != nil {
		t.Fatalf("borrow: %v", err)
	}
	if _, err := svc.Return(context.Background(), rec.ID); err != nil {
		t.Fatalf("return: %v", err)
	}
	// History rows for the pair exist, but no active one: a new loan is fine.
	if _, err := svc.Borrow(context.Background(), u.ID, b.ID); err != nil {
		t.Fatalf("re-borrow after return: %v", err)
	}
}

func TestBorrow_NoCopiesAvailable(t *testing.T) {
	db := newTestDB(t)
	u, _, b := seedLibrary(t, db, 1, 0)

	svc := newBorrowSvc(db, relay.NewNoop())
	if _, err := svc.Borrow(context.Background(), u.ID, b.ID); !errors.Is(err, ErrNoCopiesAvailable) {
		t.Fatalf("err = %v, want ErrNoCopiesAvailable", err)
	}

	// No ledger row was left behind.
	var n int64
	db.Model(&domain.BorrowRecord{}).Count(&n)
	if n != 0 {
		t.Fatalf("ledger rows = %d, want 0", n)
	}
}

func TestReturn_OnTime_NoFineNoNotification(t *testing.T) {
	db := newTestDB(t)
	u, _, b := seedLibrary(t, db, 1, 1)

	svc := newBorrowSvc(db, relay.NewNoop())
	borrowedAt := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	svc.Now = fixedClock(borrowedAt)
	rec, err := svc.Borrow(context.Background(), u.ID, b.ID)
	if err != nil {
		t.Fatalf("borrow: %v", err)
	}

	// Returned on the due date itself: not strictly after, so no fine.
	svc.Now = fixedClock(borrowedAt.AddDate(0, 0, 12))
	got, err := svc.Return(context.Background(), rec.ID)
	if err != nil {
		t.Fatalf("return: %v", err)
	}
	if !got.IsReturned || got.ReturnDate == nil {
		t.Fatalf("record not closed: %+v", got)
	}
	if !got.Fine.IsZero() {
		t.Fatalf("fine = %s, want 0", got.Fine)
	}

	var n int64
	db.Model(&domain.Notification{}).Count(&n)
	if n != 0 {
		t.Fatalf("notifications = %d, want 0", n)
	}

	book, _ := repo.GetBook(context.Background(), db, b.ID)
	if book.AvailableCopies != 1 {
		t.Fatalf("available = %d, want 1", book.AvailableCopies)
	}
}

func TestReturn_Overdue_FinePerFullDay(t *testing.T) {
	db := newTestDB(t)
	u, _, b := seedLibrary(t, db, 1, 1)

	svc := newBorrowSvc(db, relay.NewNoop())
	borrowedAt := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	svc.Now = fixedClock(borrowedAt)
	rec, err := svc.Borrow(context.Background(), u.ID, b.ID)
	if err != nil {
		t.Fatalf("borrow: %v", err)
	}

	// 3 days and 20 hours late: partial day truncates, 3 full days accrue.
	svc.Now = fixedClock(borrowedAt.AddDate(0, 0, 15).Add(20 * time.Hour))
	got, err := svc.Return(context.Background(), rec.ID)
	if err != nil {
		t.Fatalf("return: %v", err)
	}
	if want := decimal.RequireFromString("30.00"); !got.Fine.Equal(want) {
		t.Fatalf("fine = %s, want %s", got.Fine, want)
	}

	// Overdue notification with days late and formatted amount.
	var notes []domain.Notification
	if err := db.Find(&notes).Error; err != nil {
		t.Fatalf("load notifications: %v", err)
	}
	if len(notes) != 1 {
		t.Fatalf("notifications = %d, want 1", len(notes))
	}
	want := "You were 3 days late returning 'Dune'. A fine of Rs.30.00 has been added."
	if notes[0].Message != want {
		t.Fatalf("message = %q, want %q", notes[0].Message, want)
	}
	if notes[0].UserID != u.ID {
		t.Fatalf("notification user = %d, want %d", notes[0].UserID, u.ID)
	}
}

func TestReturn_LessThanOneDayLate_NoFine(t *testing.T) {
	db := newTestDB(t)
	u, _, b := seedLibrary(t, db, 1, 1)

	svc := newBorrowSvc(db, relay.NewNoop())
	borrowedAt := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	svc.Now = fixedClock(borrowedAt)
	rec, _ := svc.Borrow(context.Background(), u.ID, b.ID)

	// 23 hours past due truncates to 0 full days.
	svc.Now = fixedClock(borrowedAt.AddDate(0, 0, 12).Add(23 * time.Hour))
	got, err := svc.Return(context.Background(), rec.ID)
	if err != nil {
		t.Fatalf("return: %v", err)
	}
	if !got.Fine.IsZero() {
		t.Fatalf("fine = %s, want 0", got.Fine)
	}
}

func TestReturn_SecondCallRejected_StateUnchanged(t *testing.T) {
	db := newTestDB(t)
	u, _, b := seedLibrary(t, db, 1, 1)

	svc := newBorrowSvc(db, relay.NewNoop())
	borrowedAt := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	svc.Now = fixedClock(borrowedAt)
	rec, _ := svc.Borrow(context.Background(), u.ID, b.ID)

	firstReturn := borrowedAt.AddDate(0, 0, 14)
	svc.Now = fixedClock(firstReturn)
	first, err := svc.Return(context.Background(), rec.ID)
	if err != nil {
		t.Fatalf("first return: %v", err)
	}

	// Much later second return must not recompute the fine or bump the counter.
	svc.Now = fixedClock(borrowedAt.AddDate(0, 0, 60))
	if _, err := svc.Return(context.Background(), rec.ID); !errors.Is(err, ErrAlreadyReturned) {
		t.Fatalf("second return err = %v, want ErrAlreadyReturned", err)
	}

	reloaded, _ := repo.GetBorrowRecord(context.Background(), db, rec.ID)
	if !reloaded.Fine.Equal(first.Fine) {
		t.Fatalf("fine changed on rejected return: %s -> %s", first.Fine, reloaded.Fine)
	}
	if !reloaded.ReturnDate.Equal(firstReturn) {
		t.Fatalf("return date changed: %v -> %v", firstReturn, reloaded.ReturnDate)
	}
	book, _ := repo.GetBook(context.Background(), db, b.ID)
	if book.AvailableCopies != 1 {
		t.Fatalf("available = %d, want 1 (not double-incremented)", book.AvailableCopies)
	}
}

func TestReturn_RecordNotFound(t *testing.T) {
	db := newTestDB(t)
	seedLibrary(t, db, 1, 1)

	svc := newBorrowSvc(db, relay.NewNoop())
	if _, err := svc.Return(context.Background(), 4242); !errors.Is(err, ErrRecordNotFound) {
		t.Fatalf("err = %v, want ErrRecordNotFound", err)
	}
}

func TestSetFine_OverrideAndValidation(t *testing.T) {
	db := newTestDB(t)
	u, _, b := seedLibrary(t, db, 1, 1)

	svc := newBorrowSvc(db, relay.NewNoop())
	rec, _ := svc.Borrow(context.Background(), u.ID, b.ID)

	if err := svc.SetFine(context.Background(), rec.ID, decimal.RequireFromString("-1")); !errors.Is(err, ErrInvalidFineAmount) {
		t.Fatalf("negative fine err = %v, want ErrInvalidFineAmount", err)
	}
	if err := svc.SetFine(context.Background(), 9999, decimal.RequireFromString("5")); !errors.Is(err, ErrRecordNotFound) {
		t.Fatalf("missing record err = %v, want ErrRecordNotFound", err)
	}

	want := decimal.RequireFromString("55.50")
	if err := svc.SetFine(context.Background(), rec.ID, want); err != nil {
		t.Fatalf("SetFine: %v", err)
	}
	got, _ := repo.GetBorrowRecord(context.Background(), db, rec.ID)
	if !got.Fine.Equal(want) {
		t.Fatalf("fine = %s, want %s", got.Fine, want)
	}
	if got.IsReturned {
		t.Fatalf("SetFine must not touch lifecycle state")
	}
}

func TestSendReminder_MessageFormats(t *testing.T) {
	db := newTestDB(t)
	u, _, b := seedLibrary(t, db, 2, 2)

	svc := newBorrowSvc(db, relay.NewNoop())
	borrowedAt := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	svc.Now = fixedClock(borrowedAt)
	rec, _ := svc.Borrow(context.Background(), u.ID, b.ID)

	if err := svc.SendReminder(context.Background(), rec.ID); err != nil {
		t.Fatalf("SendReminder: %v", err)
	}
	var notes []domain.Notification
	db.Order("id ASC").Find(&notes)
	if len(notes) != 1 {
		t.Fatalf("notifications = %d, want 1", len(notes))
	}
	want := "Reminder: Please return 'Dune' by Mar 13, 2025."
	if notes[0].Message != want {
		t.Fatalf("message = %q, want %q", notes[0].Message, want)
	}

	// A record without a due date falls back to ASAP.
	db.Model(&domain.BorrowRecord{}).Where("id = ?", rec.ID).Update("due_date", nil)
	if err := svc.SendReminder(context.Background(), rec.ID); err != nil {
		t.Fatalf("SendReminder (no due): %v", err)
	}
	db.Order("id ASC").Find(&notes)
	want = "Reminder: Please return 'Dune' by ASAP."
	if notes[1].Message != want {
		t.Fatalf("message = %q, want %q", notes[1].Message, want)
	}

	if err := svc.SendReminder(context.Background(), 9999); !errors.Is(err, ErrRecordNotFound) {
		t.Fatalf("missing record err = %v, want ErrRecordNotFound", err)
	}
}

func TestListAll_StatusFilters(t *testing.T) {
	db := newTestDB(t)
	u, c, _ := seedLibrary(t, db, 1, 1)

	mkBook := func(title string) *domain.Book {
		b := &domain.Book{Title: title, Author: "a", CategoryID: c.ID, TotalCopies: 1, AvailableCopies: 1, ISBN: uniqueISBN()}
		if err := db.Create(b).Error; err != nil {
			t.Fatalf("create book: %v", err)
		}
		return b
	}

	svc := newBorrowSvc(db, relay.NewNoop())
	base := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)

	// Loan 1: returned.
	svc.Now = fixedClock(base)
	r1, _ := svc.Borrow(context.Background(), u.ID, mkBook("b1").ID)
	svc.Now = fixedClock(base.AddDate(0, 0, 1))
	if _, err := svc.Return(context.Background(), r1.ID); err != nil {
		t.Fatalf("return r1: %v", err)
	}

	// Loan 2: active, not yet due.
	svc.Now = fixedClock(base)
	if _, err := svc.Borrow(context.Background(), u.ID, mkBook("b2").ID); err != nil {
		t.Fatalf("borrow b2: %v", err)
	}

	// Loan 3: active and overdue (borrowed long ago).
	svc.Now = fixedClock(base.AddDate(0, -2, 0))
	if _, err := svc.Borrow(context.Background(), u.ID, mkBook("b3").ID); err != nil {
		t.Fatalf("borrow b3: %v", err)
	}

	// Evaluate filters at base+1d.
	svc.Now = fixedClock(base.AddDate(0, 0, 1))

	cases := []struct {
		status string
		want   int
	}{
		{"", 3},
		{"returned", 1},
		{"unreturned", 2},
		{"overdue", 1},
	}
	for _, tc := range cases {
		got, err := svc.ListAll(context.Background(), tc.status)
		if err != nil {
			t.Fatalf("ListAll(%q): %v", tc.status, err)
		}
		if len(got) != tc.want {
			t.Fatalf("ListAll(%q) = %d rows, want %d", tc.status, len(got), tc.want)
		}
	}
}

func TestListMine_MostRecentFirst(t *testing.T) {
	db := newTestDB(t)
	u, c, _ := seedLibrary(t, db, 1, 1)

	svc := newBorrowSvc(db, relay.NewNoop())
	base := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		b := &domain.Book{Title: fmt.Sprintf("t%d", i), Author: "a", CategoryID: c.ID, TotalCopies: 1, AvailableCopies: 1, ISBN: uniqueISBN()}
		if err := db.Create(b).Error; err != nil {
			t.Fatalf("create book: %v", err)
		}
		svc.Now = fixedClock(base.AddDate(0, 0, i))
		if _, err := svc.Borrow(context.Background(), u.ID, b.ID); err != nil {
			t.Fatalf("borrow %d: %v", i, err)
		}
	}

	got, err := svc.ListMine(context.Background(), u.ID)
	if err != nil {
		t.Fatalf("ListMine: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("rows = %d, want 3", len(got))
	}
	for i := 1; i < len(got); i++ {
		if got[i].BorrowDate.After(got[i-1].BorrowDate) {
			t.Fatalf("not ordered most recent first: %v before %v", got[i-1].BorrowDate, got[i].BorrowDate)
		}
	}
}

func Test_daysOverdue(t *testing.T) {
	due := time.Date(2025, 3, 13, 10, 0, 0, 0, time.UTC)
	cases := []struct {
		name string
		due  *time.Time
		ret  time.Time
		want int
	}{
		{"nil due never accrues", nil, due.AddDate(0, 0, 100), 0},
		{"early return", &due, due.AddDate(0, 0, -1), 0},
		{"exactly on due", &due, due, 0},
		{"partial day truncates", &due, due.Add(23 * time.Hour), 0},
		{"one full day", &due, due.Add(24 * time.Hour), 1},
		{"three days and change", &due, due.Add(3*24*time.Hour + 20*time.Hour), 3},
	}
	for _, tc := range cases {
		if got := daysOverdue(tc.due, tc.ret); got != tc.want {
			t.Fatalf("%s: daysOverdue = %d, want %d", tc.name, got, tc.want)
		}
	}
}

// ----- Replication behavior -----

func TestBorrowAndReturn_MirrorThroughRelay(t *testing.T) {
	db := newTestDB(t)
	u, _, b := seedLibrary(t, db, 1, 1)

	rec := &recordingRelay{}
	svc := newBorrowSvc(db, rec)

	loan, err := svc.Borrow(context.Background(), u.ID, b.ID)
	if err != nil {
		t.Fatalf("borrow: %v", err)
	}
	if rec.books != 1 || rec.records != 1 {
		t.Fatalf("after borrow: books=%d records=%d, want 1/1", rec.books, rec.records)
	}

	if _, err := svc.Return(context.Background(), loan.ID); err != nil {
		t.Fatalf("return: %v", err)
	}
	if rec.books != 2 || rec.records != 2 {
		t.Fatalf("after return: books=%d records=%d, want 2/2", rec.books, rec.records)
	}
}

func TestBorrow_RelayFailureDoesNotFailOperation(t *testing.T) {
	db := newTestDB(t)
	u, _, b := seedLibrary(t, db, 1, 1)

	rec := &recordingRelay{err: errors.New("analytics down")}
	svc := newBorrowSvc(db, rec)

	loan, err := svc.Borrow(context.Background(), u.ID, b.ID)
	if err != nil {
		t.Fatalf("borrow must succeed despite relay failure: %v", err)
	}
	if _, err := svc.Return(context.Background(), loan.ID); err != nil {
		t.Fatalf("return must succeed despite relay failure: %v", err)
	}

	// Primary state is intact.
	got, _ := repo.GetBorrowRecord(context.Background(), db, loan.ID)
	if !got.IsReturned {
		t.Fatalf("record not closed on primary")
	}
}

func TestFailedBorrow_NeverReachesRelay(t *testing.T) {
	db := newTestDB(t)
	u, _, b := seedLibrary(t, db, 1, 0) // nothing on the shelf

	rec := &recordingRelay{}
	svc := newBorrowSvc(db, rec)

	if _, err := svc.Borrow(context.Background(), u.ID, b.ID); !errors.Is(err, ErrNoCopiesAvailable) {
		t.Fatalf("err = %v, want ErrNoCopiesAvailable", err)
	}
	if rec.books != 0 || rec.records != 0 {
		t.Fatalf("failed borrow must not replicate: books=%d records=%d", rec.books, rec.records)
	}
}
