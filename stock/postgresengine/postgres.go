package postgresengine

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jmoiron/sqlx"

	"github.com/AntonStoeckl/shelfstock/stock"
	"github.com/AntonStoeckl/shelfstock/stock/postgresengine/internal/adapters"
)

const (
	operationTx               = "tx"
	operationAddBook          = "add_book"
	operationRemoveBook       = "remove_book"
	operationGetBook          = "get_book"
	operationBookExists       = "book_exists"
	operationListBooks        = "list_books"
	operationSweepOverdue     = "sweep_overdue_loans"
	operationGetLoan          = "get_loan"
	operationListLoans        = "list_loans"
	operationGetSession       = "get_session"
	operationListSessionItems = "list_session_items"
	operationSessionStats     = "session_stats"
	operationGetIssue         = "get_issue"
	operationListOpenIssues   = "list_open_issues"
)

// Store is the PostgreSQL implementation of stock.Store.
// Every write happens in a SERIALIZABLE transaction; the tables carry CHECK constraints for the stock invariant
// and a partial unique index that allows one in-progress inventory session.
type Store struct {
	db               adapters.DBAdapter
	tables           tables
	sql              sqlBuilder
	logger           stock.Logger
	contextualLogger stock.ContextualLogger
	metricsCollector stock.MetricsCollector
	tracingCollector stock.TracingCollector
}

// NewStoreFromPGXPool creates a new Store using a pgx Pool with optional configuration.
func NewStoreFromPGXPool(db *pgxpool.Pool, options ...Option) (*Store, error) {
	if db == nil {
		return nil, stock.ErrNilDatabaseConnection
	}

	return newStore(adapters.NewPGXAdapter(db), options...)
}

// NewStoreFromPGXPoolWithReplica creates a new Store that sends reads made with stock.WithEventualConsistency
// to the replica pool. Transactions always run on the primary.
func NewStoreFromPGXPoolWithReplica(db *pgxpool.Pool, replica *pgxpool.Pool, options ...Option) (*Store, error) {
	if db == nil {
		return nil, stock.ErrNilDatabaseConnection
	}

	if replica == nil {
		return newStore(adapters.NewPGXAdapter(db), options...)
	}

	return newStore(adapters.NewPGXAdapterWithReplica(db, replica), options...)
}

// NewStoreFromSQLDB creates a new Store using a sql.DB with optional configuration.
func NewStoreFromSQLDB(db *sql.DB, options ...Option) (*Store, error) {
	if db == nil {
		return nil, stock.ErrNilDatabaseConnection
	}

	return newStore(adapters.NewSQLAdapter(db), options...)
}

// NewStoreFromSQLX creates a new Store using a sqlx.DB with optional configuration.
func NewStoreFromSQLX(db *sqlx.DB, options ...Option) (*Store, error) {
	if db == nil {
		return nil, stock.ErrNilDatabaseConnection
	}

	return newStore(adapters.NewSQLXAdapter(db), options...)
}

func newStore(db adapters.DBAdapter, options ...Option) (*Store, error) {
	s := &Store{db: db, tables: newTables("")}
	s.sql = sqlBuilder{t: s.tables}

	for _, option := range options {
		if err := option(s); err != nil {
			return nil, err
		}
	}

	return s, nil
}

// WithinTx runs fn in one SERIALIZABLE transaction.
func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context, tx stock.Tx) error) error {
	return s.observe(ctx, spanNameTx, metricTxDuration, operationTx, func(ctx context.Context) error {
		return s.withinTx(ctx, func(ctx context.Context, r runner) error {
			return fn(ctx, pgTx{r: r})
		})
	})
}

func (s *Store) withinTx(ctx context.Context, fn func(ctx context.Context, r runner) error) error {
	dbTx, err := s.db.BeginTx(ctx)
	if err != nil {
		return s.classify(err, stock.ErrBeginningTxFailed)
	}

	if err = fn(ctx, runner{s: s, q: dbTx}); err != nil {
		if rollbackErr := dbTx.Rollback(ctx); rollbackErr != nil {
			s.logWarn(ctx, logMsgRollbackFailed, rollbackErr)
		}

		return err
	}

	if err = dbTx.Commit(ctx); err != nil {
		return s.classify(err, stock.ErrCommittingTxFailed)
	}

	s.logInfo(ctx, logMsgTxCommitted)

	return nil
}

func (s *Store) read(ctx context.Context, operation string, fn func(ctx context.Context, r runner) error) error {
	return s.observe(ctx, spanNameRead, metricReadDuration, operation, func(ctx context.Context) error {
		return fn(ctx, runner{s: s, q: s.db})
	})
}

// AddBook registers a new catalog entry. A second book with the same id fails with stock.ErrBookAlreadyExists.
func (s *Store) AddBook(ctx context.Context, book stock.Book) error {
	if err := book.CheckInvariant(); err != nil {
		return err
	}

	return s.observe(ctx, spanNameTx, metricTxDuration, operationAddBook, func(ctx context.Context) error {
		return s.withinTx(ctx, func(ctx context.Context, r runner) error {
			return r.insertBook(ctx, book)
		})
	})
}

// RemoveBook deletes a book with its loan history and issues. Inventory items are kept.
// It is refused with stock.ErrBookHasOpenLoans while copies are lent out.
func (s *Store) RemoveBook(ctx context.Context, bookID uuid.UUID) error {
	return s.observe(ctx, spanNameTx, metricTxDuration, operationRemoveBook, func(ctx context.Context) error {
		return s.withinTx(ctx, func(ctx context.Context, r runner) error {
			if _, err := r.getBook(ctx, bookID, true); err != nil {
				return err
			}

			openLoans, err := r.countOpenLoansOfBook(ctx, bookID)
			if err != nil {
				return err
			}

			if openLoans > 0 {
				return stock.ErrBookHasOpenLoans
			}

			return r.deleteBook(ctx, bookID)
		})
	})
}

func (s *Store) GetBook(ctx context.Context, bookID uuid.UUID) (stock.Book, error) {
	var book stock.Book

	err := s.read(ctx, operationGetBook, func(ctx context.Context, r runner) error {
		var err error
		book, err = r.getBook(ctx, bookID, false)

		return err
	})

	return book, err
}

func (s *Store) BookExists(ctx context.Context, bookID uuid.UUID) (bool, error) {
	var exists bool

	err := s.read(ctx, operationBookExists, func(ctx context.Context, r runner) error {
		_, err := r.getBook(ctx, bookID, false)

		switch {
		case err == nil:
			exists = true
			return nil
		case errors.Is(err, stock.ErrBookNotFound):
			return nil
		default:
			return err
		}
	})

	return exists, err
}

func (s *Store) ListBooks(ctx context.Context) ([]stock.Book, error) {
	var books []stock.Book

	err := s.read(ctx, operationListBooks, func(ctx context.Context, r runner) error {
		var err error
		books, err = r.listBooks(ctx)

		return err
	})

	return books, err
}

// SweepOverdueLoans flags active loans due before today in a single idempotent UPDATE.
func (s *Store) SweepOverdueLoans(ctx context.Context, today time.Time) (int64, error) {
	var flagged int64

	err := s.observe(ctx, spanNameTx, metricTxDuration, operationSweepOverdue, func(ctx context.Context) error {
		var err error
		flagged, err = runner{s: s, q: s.db}.sweepOverdueLoans(ctx, stock.ToDate(today))

		return err
	})

	if err == nil && flagged > 0 {
		s.recordValue(ctx, metricLoansFlaggedOverdue, float64(flagged), map[string]string{spanAttrOperation: operationSweepOverdue})
		s.logInfo(ctx, logMsgLoansFlaggedOverdue, logAttrRowsAffected, flagged)
	}

	return flagged, err
}

func (s *Store) GetLoan(ctx context.Context, loanID uuid.UUID) (stock.Loan, error) {
	var loan stock.Loan

	err := s.read(ctx, operationGetLoan, func(ctx context.Context, r runner) error {
		var err error
		loan, err = r.getLoan(ctx, loanID, false)

		return err
	})

	return loan, err
}

func (s *Store) ListLoans(ctx context.Context, filter stock.LoanFilter) ([]stock.Loan, error) {
	var loans []stock.Loan

	err := s.read(ctx, operationListLoans, func(ctx context.Context, r runner) error {
		var err error
		loans, err = r.listLoans(ctx, filter)

		return err
	})

	return loans, err
}

func (s *Store) GetSession(ctx context.Context, sessionID uuid.UUID) (stock.InventorySession, error) {
	var session stock.InventorySession

	err := s.read(ctx, operationGetSession, func(ctx context.Context, r runner) error {
		var err error
		session, err = r.getSession(ctx, sessionID, false)

		return err
	})

	return session, err
}

// ListSessionItems fails with stock.ErrSessionNotFound for an unknown session instead of returning no items.
func (s *Store) ListSessionItems(ctx context.Context, sessionID uuid.UUID, status stock.ItemStatus) ([]stock.InventoryItem, error) {
	var items []stock.InventoryItem

	err := s.read(ctx, operationListSessionItems, func(ctx context.Context, r runner) error {
		if _, err := r.getSession(ctx, sessionID, false); err != nil {
			return err
		}

		var err error
		items, err = r.listItems(ctx, sessionID, status)

		return err
	})

	return items, err
}

func (s *Store) SessionStats(ctx context.Context, sessionID uuid.UUID) (stock.InventoryStats, error) {
	var stats stock.InventoryStats

	err := s.read(ctx, operationSessionStats, func(ctx context.Context, r runner) error {
		if _, err := r.getSession(ctx, sessionID, false); err != nil {
			return err
		}

		var err error
		stats, err = r.sessionStats(ctx, sessionID)

		return err
	})

	return stats, err
}

func (s *Store) GetIssue(ctx context.Context, issueID uuid.UUID) (stock.BookIssue, error) {
	var issue stock.BookIssue

	err := s.read(ctx, operationGetIssue, func(ctx context.Context, r runner) error {
		var err error
		issue, err = r.getIssue(ctx, issueID, false)

		return err
	})

	return issue, err
}

func (s *Store) ListOpenIssues(ctx context.Context, bookID uuid.UUID) ([]stock.BookIssue, error) {
	var issues []stock.BookIssue

	err := s.read(ctx, operationListOpenIssues, func(ctx context.Context, r runner) error {
		var err error
		issues, err = r.listOpenIssues(ctx, bookID)

		return err
	})

	return issues, err
}

var _ stock.Store = (*Store)(nil)
