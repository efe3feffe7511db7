// PostgreSQL implementation of the replication relay.
//
// Protocol per entity: check a connection out of the pool, open one
// transaction, insert FK prerequisites with ON CONFLICT DO NOTHING, upsert
// the entity with ON CONFLICT (id) DO UPDATE, commit, release. Every call is
// bounded by the configured timeout so a broken replica cannot stall the
// primary write path.
package relay

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"
	"github.com/rs/zerolog/log"

	"github.com/openshelf/go-library-backend/internal/config"
	"github.com/openshelf/go-library-backend/internal/domain"
)

// Postgres mirrors entities into the analytics database over lib/pq.
type Postgres struct {
	db      *sql.DB
	timeout time.Duration
}

// NewPostgres opens the analytics pool and verifies the schema exists.
// The pool is kept small: relay traffic is one short transaction per
// primary-store write.
func NewPostgres(cfg config.AnalyticsConfig) (*Postgres, error) {
	db, err := sql.Open("postgres", cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("open analytics db: %w", err)
	}
	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(2)
	db.SetConnMaxIdleTime(5 * time.Minute)

	p := &Postgres{db: db, timeout: cfg.Timeout}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Timeout)
	defer cancel()
	if err := p.EnsureSchema(ctx); err != nil {
		return nil, fmt.Errorf("ensure analytics schema: %w", err)
	}
	return p, nil
}

// Close releases the analytics pool.
func (p *Postgres) Close() error { return p.db.Close() }

// schema mirrors the primary store, keyed by the same integer primary keys.
// Statements are idempotent so startup can run them unconditionally.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id        BIGINT PRIMARY KEY,
		username  VARCHAR(64) NOT NULL,
		email     VARCHAR(254) NOT NULL,
		full_name VARCHAR(150) NOT NULL DEFAULT '',
		address   TEXT NOT NULL DEFAULT '',
		phone     VARCHAR(13) NOT NULL DEFAULT '',
		joined_at TIMESTAMPTZ
	)`,
	`CREATE TABLE IF NOT EXISTS categories (
		id   BIGINT PRIMARY KEY,
		name VARCHAR(100) NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS books (
		id               BIGINT PRIMARY KEY,
		title            VARCHAR(200) NOT NULL,
		author           VARCHAR(200) NOT NULL,
		isbn             CHAR(13) NOT NULL,
		total_copies     INTEGER NOT NULL,
		available_copies INTEGER NOT NULL,
		category_id      BIGINT REFERENCES categories(id),
		cover_url        VARCHAR(255)
	)`,
	`CREATE TABLE IF NOT EXISTS borrow_records (
		id          BIGINT PRIMARY KEY,
		user_id     BIGINT REFERENCES users(id),
		book_id     BIGINT REFERENCES books(id),
		borrow_date TIMESTAMPTZ NOT NULL,
		due_date    TIMESTAMPTZ,
		return_date TIMESTAMPTZ,
		is_returned BOOLEAN NOT NULL DEFAULT FALSE,
		fine        NUMERIC(6,2) NOT NULL DEFAULT 0
	)`,
	`CREATE TABLE IF NOT EXISTS reviews (
		id         BIGINT PRIMARY KEY,
		user_id    BIGINT REFERENCES users(id),
		book_id    BIGINT REFERENCES books(id),
		rating     INTEGER NOT NULL,
		content    TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ
	)`,
}

// EnsureSchema creates the mirror tables when they do not exist yet.
func (p *Postgres) EnsureSchema(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := p.db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

// withTx runs fn inside one bounded transaction on a checked-out connection.
// On any failure the transaction is rolled back and the error logged; the
// caller decides whether to surface it (services never do).
func (p *Postgres) withTx(ctx context.Context, entity string, fn func(tx *sql.Tx) error) error {
	start := time.Now()
	err := p.runTx(ctx, fn)
	observe(entity, start, err)
	if err != nil {
		log.Error().Err(err).Str("entity", entity).Msg("analytics sync failed")
	}
	return err
}

func (p *Postgres) runTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	conn, err := p.db.Conn(ctx)
	if err != nil {
		return err
	}
	defer conn.Close()

	tx, err := conn.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

// SyncUser upserts a user row, refreshing identity and profile columns.
func (p *Postgres) SyncUser(ctx context.Context, u *domain.User) error {
	return p.withTx(ctx, "user", func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO users (id, username, email, full_name, address, phone, joined_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
			ON CONFLICT (id) DO UPDATE SET
				username  = EXCLUDED.username,
				email     = EXCLUDED.email,
				full_name = EXCLUDED.full_name,
				address   = EXCLUDED.address,
				phone     = EXCLUDED.phone`,
			u.ID, u.Username, u.Email, u.FullName, u.Address, u.Phone, u.JoinedAt)
		return err
	})
}

// SyncCategory upserts a category row.
func (p *Postgres) SyncCategory(ctx context.Context, c *domain.Category) error {
	return p.withTx(ctx, "category", func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO categories (id, name)
			VALUES ($1, $2)
			ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name`,
			c.ID, c.Name)
		return err
	})
}

// SyncBook upserts a book row. The category prerequisite is inserted first
// with DO NOTHING semantics; when the association is not loaded a stub row
// is written so the FK holds until the category's own sync refreshes it.
func (p *Postgres) SyncBook(ctx context.Context, b *domain.Book) error {
	return p.withTx(ctx, "book", func(tx *sql.Tx) error {
		if err := insertCategoryStub(ctx, tx, b.CategoryID, b.Category.Name); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx, `
			INSERT INTO books (id, title, author, isbn, total_copies, available_copies, category_id, cover_url)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			ON CONFLICT (id) DO UPDATE SET
				title            = EXCLUDED.title,
				author           = EXCLUDED.author,
				isbn             = EXCLUDED.isbn,
				total_copies     = EXCLUDED.total_copies,
				available_copies = EXCLUDED.available_copies,
				category_id      = EXCLUDED.category_id,
				cover_url        = EXCLUDED.cover_url`,
			b.ID, b.Title, b.Author, b.ISBN, b.TotalCopies, b.AvailableCopies, b.CategoryID, b.CoverURL)
		return err
	})
}

// SyncBorrowRecord upserts a ledger row. Only the lifecycle columns are
// refreshed on conflict: borrow and due dates are immutable after creation.
func (p *Postgres) SyncBorrowRecord(ctx context.Context, r *domain.BorrowRecord) error {
	return p.withTx(ctx, "borrow_record", func(tx *sql.Tx) error {
		if err := insertLoanPrereqs(ctx, tx, &r.User, &r.Book, r.UserID, r.BookID); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx, `
			INSERT INTO borrow_records (id, user_id, book_id, borrow_date, due_date, return_date, is_returned, fine)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			ON CONFLICT (id) DO UPDATE SET
				return_date = EXCLUDED.return_date,
				is_returned = EXCLUDED.is_returned,
				fine        = EXCLUDED.fine`,
			r.ID, r.UserID, r.BookID, r.BorrowDate, r.DueDate, r.ReturnDate, r.IsReturned, r.Fine)
		return err
	})
}

// SyncReview upserts a review row, refreshing rating and content.
func (p *Postgres) SyncReview(ctx context.Context, r *domain.Review) error {
	return p.withTx(ctx, "review", func(tx *sql.Tx) error {
		if err := insertLoanPrereqs(ctx, tx, &r.User, &r.Book, r.UserID, r.BookID); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx, `
			INSERT INTO reviews (id, user_id, book_id, rating, content, created_at)
			VALUES ($1, $2, $3, $4, $5, $6)
			ON CONFLICT (id) DO UPDATE SET
				rating  = EXCLUDED.rating,
				content = EXCLUDED.content`,
			r.ID, r.UserID, r.BookID, r.Rating, r.Content, r.CreatedAt)
		return err
	})
}

func insertCategoryStub(ctx context.Context, tx *sql.Tx, id uint, name string) error {
	if id == 0 {
		return nil
	}
	_, err := tx.ExecContext(ctx, `
		INSERT INTO categories (id, name) VALUES ($1, $2)
		ON CONFLICT (id) DO NOTHING`, id, name)
	return err
}

// insertLoanPrereqs writes the user, category, and book rows a dependent
// ledger/review row needs. Association structs may be zero-valued when the
// caller did not preload them; stub rows still satisfy the FKs and are
// overwritten by the entities' own syncs.
func insertLoanPrereqs(ctx context.Context, tx *sql.Tx, u *domain.User, b *domain.Book, userID, bookID uint) error {
	if userID != 0 {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO users (id, username, email) VALUES ($1, $2, $3)
			ON CONFLICT (id) DO NOTHING`, userID, u.Username, u.Email); err != nil {
			return err
		}
	}
	if bookID != 0 {
		if err := insertCategoryStub(ctx, tx, b.CategoryID, b.Category.Name); err != nil {
			return err
		}
		var categoryID interface{}
		if b.CategoryID != 0 {
			categoryID = b.CategoryID
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO books (id, title, author, isbn, total_copies, available_copies, category_id)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
			ON CONFLICT (id) DO NOTHING`,
			bookID, b.Title, b.Author, b.ISBN, b.TotalCopies, b.AvailableCopies, categoryID); err != nil {
			return err
		}
	}
	return nil
}
