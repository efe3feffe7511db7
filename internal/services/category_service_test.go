package services

import (
	"context"
	"errors"
	"testing"

	"github.com/openshelf/go-library-backend/internal/relay"
)

func TestCategoryCreate_TrimAndDuplicate(t *testing.T) {
	db := newTestDB(t)

	svc := &CategoryService{DB: db, Relay: relay.NewNoop()}
	c, err := svc.Create(context.Background(), "  Science Fiction  ")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if c.Name != "Science Fiction" {
		t.Fatalf("name = %q, want trimmed", c.Name)
	}

	if _, err := svc.Create(context.Background(), "Science Fiction"); !errors.Is(err, ErrDuplicateCategory) {
		t.Fatalf("err = %v, want ErrDuplicateCategory", err)
	}
}

func TestCategoryRename(t *testing.T) {
	db := newTestDB(t)

	svc := &CategoryService{DB: db, Relay: relay.NewNoop()}
	a, _ := svc.Create(context.Background(), "History")
	if _, err := svc.Create(context.Background(), "Poetry"); err != nil {
		t.Fatalf("create second: %v", err)
	}

	got, err := svc.Rename(context.Background(), a.ID, "Ancient History")
	if err != nil {
		t.Fatalf("Rename: %v", err)
	}
	if got.Name != "Ancient History" {
		t.Fatalf("name = %q", got.Name)
	}

	if _, err := svc.Rename(context.Background(), a.ID, "Poetry"); !errors.Is(err, ErrDuplicateCategory) {
		t.Fatalf("err = %v, want ErrDuplicateCategory", err)
	}
	if _, err := svc.Rename(context.Background(), 9999, "x"); !errors.Is(err, ErrCategoryNotFound) {
		t.Fatalf("err = %v, want ErrCategoryNotFound", err)
	}
}

func TestCategoryDelete_GuardedByBooks(t *testing.T) {
	db := newTestDB(t)
	_, c, _ := seedLibrary(t, db, 1, 1) // seeds one book in c

	svc := &CategoryService{DB: db, Relay: relay.NewNoop()}
	if err := svc.Delete(context.Background(), c.ID); !errors.Is(err, ErrCategoryInUse) {
		t.Fatalf("err = %v, want ErrCategoryInUse", err)
	}

	empty, _ := svc.Create(context.Background(), "Empty Shelf")
	if err := svc.Delete(context.Background(), empty.ID); err != nil {
		t.Fatalf("Delete empty: %v", err)
	}
	if err := svc.Delete(context.Background(), empty.ID); !errors.Is(err, ErrCategoryNotFound) {
		t.Fatalf("second delete err = %v, want ErrCategoryNotFound", err)
	}
}

func TestCategoryList_OrderedByName(t *testing.T) {
	db := newTestDB(t)

	svc := &CategoryService{DB: db, Relay: relay.NewNoop()}
	for _, n := range []string{"Zoology", "Art", "Music"} {
		if _, err := svc.Create(context.Background(), n); err != nil {
			t.Fatalf("create %q: %v", n, err)
		}
	}

	got, err := svc.List(context.Background())
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(got) != 3 || got[0].Name != "Art" || got[2].Name != "Zoology" {
		t.Fatalf("unexpected order: %+v", got)
	}
}

func TestCategoryWrites_MirrorThroughRelay(t *testing.T) {
	db := newTestDB(t)

	rec := &recordingRelay{}
	svc := &CategoryService{DB: db, Relay: rec}

	c, err := svc.Create(context.Background(), "Travel")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := svc.Rename(context.Background(), c.ID, "Travel Writing"); err != nil {
		t.Fatalf("Rename: %v", err)
	}
	if rec.cats != 2 {
		t.Fatalf("relay category syncs = %d, want 2", rec.cats)
	}
}
