package stock

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// BookStock is the only writer of a book's TotalQuantity and AvailableCopies.
// Implementations apply the change and the invariant check atomically and fail with ErrInvariantViolation
// instead of persisting a book that leaves 0 <= AvailableCopies <= TotalQuantity.
type BookStock interface {
	// LockBook reads the book and holds it for the rest of the transaction.
	LockBook(ctx context.Context, bookID uuid.UUID) (Book, error)

	// AdjustAvailable applies AvailableCopies += delta.
	AdjustAvailable(ctx context.Context, bookID uuid.UUID, delta int) (Book, error)

	// AdjustTotal applies both deltas together, each counter floored at zero. Used by write-offs only.
	AdjustTotal(ctx context.Context, bookID uuid.UUID, deltaTotal, deltaAvailable int) (Book, error)
}

// Tx is the unit of work handed to the function passed to Store.WithinTx.
// Lock* methods read a row and hold it until the transaction ends; they fail with the matching NotFound error.
type Tx interface {
	BookStock

	ListBooks(ctx context.Context) ([]Book, error)

	// CountOpenLoans counts the active and overdue loans of one borrower, identified by type and id.
	CountOpenLoans(ctx context.Context, borrowerType BorrowerType, borrowerID string) (int, error)
	InsertLoan(ctx context.Context, loan Loan) error
	LockLoan(ctx context.Context, loanID uuid.UUID) (Loan, error)
	UpdateLoan(ctx context.Context, loan Loan) error
	DeleteLoan(ctx context.Context, loanID uuid.UUID) error
	// LastLoanForBook returns the most recently issued loan of the book, false if it was never lent.
	LastLoanForBook(ctx context.Context, bookID uuid.UUID) (Loan, bool, error)

	HasOpenSession(ctx context.Context) (bool, error)
	// InsertSession fails with ErrSessionAlreadyOpen if another session is in progress.
	InsertSession(ctx context.Context, session InventorySession, items []InventoryItem) error
	LockSession(ctx context.Context, sessionID uuid.UUID) (InventorySession, error)
	UpdateSession(ctx context.Context, session InventorySession) error
	LockItem(ctx context.Context, itemID uuid.UUID) (InventoryItem, error)
	UpdateItem(ctx context.Context, item InventoryItem) error
	// ListSessionItems returns the items of a session ordered by id; an empty status means every status.
	ListSessionItems(ctx context.Context, sessionID uuid.UUID, status ItemStatus) ([]InventoryItem, error)

	InsertIssue(ctx context.Context, issue BookIssue) error
	LockIssue(ctx context.Context, issueID uuid.UUID) (BookIssue, error)
	UpdateIssue(ctx context.Context, issue BookIssue) error
}

// Store is the single authoritative store behind the circulation, reconciliation, and issue services.
type Store interface {
	// WithinTx runs fn in one transaction. The transaction commits if fn returns nil and rolls back otherwise.
	// Serialization failures surface as ErrConcurrencyConflict so callers can retry the whole function.
	WithinTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error

	// Catalog notifications.
	AddBook(ctx context.Context, book Book) error
	RemoveBook(ctx context.Context, bookID uuid.UUID) error
	GetBook(ctx context.Context, bookID uuid.UUID) (Book, error)
	BookExists(ctx context.Context, bookID uuid.UUID) (bool, error)
	ListBooks(ctx context.Context) ([]Book, error)

	// SweepOverdueLoans flags every active loan due before today as overdue and returns how many were flagged.
	// It is idempotent and never touches stock.
	SweepOverdueLoans(ctx context.Context, today time.Time) (int64, error)
	GetLoan(ctx context.Context, loanID uuid.UUID) (Loan, error)
	// ListLoans returns matching loans, newest loan date first.
	ListLoans(ctx context.Context, filter LoanFilter) ([]Loan, error)

	GetSession(ctx context.Context, sessionID uuid.UUID) (InventorySession, error)
	ListSessionItems(ctx context.Context, sessionID uuid.UUID, status ItemStatus) ([]InventoryItem, error)
	SessionStats(ctx context.Context, sessionID uuid.UUID) (InventoryStats, error)

	GetIssue(ctx context.Context, issueID uuid.UUID) (BookIssue, error)
	// ListOpenIssues returns open issues, oldest first; uuid.Nil means every book.
	ListOpenIssues(ctx context.Context, bookID uuid.UUID) ([]BookIssue, error)
}
