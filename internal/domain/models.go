// Package domain defines the persistence models for the library catalog,
// borrowing ledger, reviews, and notifications. These types are mapped with
// GORM and form the core data layer of the application. The analytics
// replica mirrors the same rows keyed by the same integer primary keys.
package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Category groups books by subject. Names are unique; a category cannot be
// deleted while any book references it (enforced in the service layer).
type Category struct {
	ID   uint   `json:"id"   gorm:"primaryKey"`
	Name string `json:"name" gorm:"type:varchar(100);not null;uniqueIndex"`
}

// TableName returns the database table name for Category.
func (Category) TableName() string { return "categories" }

// Book is a catalog entry with a denormalized availability counter.
//
// Invariants:
//   - 0 <= AvailableCopies <= TotalCopies (CHECK constraint plus guarded
//     conditional UPDATEs in the repo layer).
//   - ISBN is unique and exactly 13 digits; generated at create when absent.
type Book struct {
	ID              uint   `json:"id"               gorm:"primaryKey"`
	Title           string `json:"title"            gorm:"type:varchar(200);not null;index"`
	Author          string `json:"author"           gorm:"type:varchar(200);not null;index"`
	CategoryID      uint   `json:"category_id"      gorm:"not null;index"`
	TotalCopies     int    `json:"total_copies"     gorm:"not null;check:total_copies >= 0"`
	AvailableCopies int    `json:"available_copies" gorm:"not null;check:available_copies >= 0 AND available_copies <= total_copies"`
	ISBN            string `json:"isbn"             gorm:"type:char(13);not null;uniqueIndex"`
	CoverURL        string `json:"cover_url,omitempty" gorm:"type:varchar(255)"`

	// Category is the owning subject. Books block category deletion.
	Category Category `json:"-" gorm:"foreignKey:CategoryID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:RESTRICT"`
}

// TableName returns the database table name for Book.
func (Book) TableName() string { return "books" }

// User is a library member. Profile attributes are flattened onto the row,
// matching the shape replicated into the analytics store. Authentication
// policy lives outside this service; only the bcrypt hash is kept here.
type User struct {
	ID           uint      `json:"id"        gorm:"primaryKey"`
	Username     string    `json:"username"  gorm:"type:varchar(64);not null;uniqueIndex"`
	Email        string    `json:"email"     gorm:"type:varchar(254);not null"`
	PasswordHash string    `json:"-"         gorm:"type:varchar(128);not null"`
	FullName     string    `json:"full_name" gorm:"type:varchar(150)"`
	Address      string    `json:"address"   gorm:"type:text"`
	Phone        string    `json:"phone"     gorm:"type:varchar(13)"`
	JoinedAt     time.Time `json:"joined_at"`
}

// TableName returns the database table name for User.
func (User) TableName() string { return "users" }

// BorrowRecord is one loan transaction for one (user, book) pair.
//
// Lifecycle: created ACTIVE (IsReturned=false) when a borrow succeeds;
// flipped to returned exactly once by the return operation, which also sets
// ReturnDate and computes the fine; afterwards only the admin fine override
// may touch it. Rows are never deleted.
//
// A partial unique index on (user_id, book_id) WHERE is_returned = 0 closes
// the duplicate-active-borrow race at the storage layer; it is created in
// repo.AutoMigrate because GORM tags cannot express partial indexes.
type BorrowRecord struct {
	ID         uint            `json:"id"          gorm:"primaryKey"`
	UserID     uint            `json:"user_id"     gorm:"not null;index"`
	BookID     uint            `json:"book_id"     gorm:"not null;index"`
	BorrowDate time.Time       `json:"borrow_date" gorm:"not null;index"`
	DueDate    *time.Time      `json:"due_date"`
	ReturnDate *time.Time      `json:"return_date,omitempty"`
	IsReturned bool            `json:"is_returned" gorm:"not null;default:false;index"`
	Fine       decimal.Decimal `json:"fine"        gorm:"type:decimal(6,2);not null;default:0"`

	// Book rows are protected from deletion while loans reference them.
	User User `json:"-" gorm:"foreignKey:UserID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
	Book Book `json:"-" gorm:"foreignKey:BookID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:RESTRICT"`
}

// TableName returns the database table name for BorrowRecord.
func (BorrowRecord) TableName() string { return "borrow_records" }

// Active reports whether the loan is still open.
func (r *BorrowRecord) Active() bool { return !r.IsReturned }

// Review is a single rating+comment per (user, book) pair, independent of
// borrowing history. Uniqueness is enforced by a composite unique index.
type Review struct {
	ID        uint      `json:"id"         gorm:"primaryKey"`
	UserID    uint      `json:"user_id"    gorm:"not null;index;uniqueIndex:ux_review_user_book"`
	BookID    uint      `json:"book_id"    gorm:"not null;index;uniqueIndex:ux_review_user_book"`
	Rating    int       `json:"rating"     gorm:"not null;check:rating >= 1 AND rating <= 5"`
	Content   string    `json:"content"    gorm:"type:text"`
	CreatedAt time.Time `json:"created_at"`

	User User `json:"-" gorm:"foreignKey:UserID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
	Book Book `json:"-" gorm:"foreignKey:BookID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

// TableName returns the database table name for Review.
func (Review) TableName() string { return "reviews" }

// Notification is a free-text message for a user, created by the borrowing
// lifecycle (overdue fine) or by admin actions (manual reminder). The read
// flag flips only via an explicit mark-read action and never reverts.
type Notification struct {
	ID        uint      `json:"id"         gorm:"primaryKey"`
	UserID    uint      `json:"user_id"    gorm:"not null;index"`
	Message   string    `json:"message"    gorm:"type:text;not null"`
	CreatedAt time.Time `json:"created_at" gorm:"index"`
	IsRead    bool      `json:"is_read"    gorm:"not null;default:false"`

	User User `json:"-" gorm:"foreignKey:UserID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

// TableName returns the database table name for Notification.
func (Notification) TableName() string { return "notifications" }
