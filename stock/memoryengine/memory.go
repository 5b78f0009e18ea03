package memoryengine

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"

	"github.com/AntonStoeckl/shelfstock/stock"
)

const fileLockRetryDelay = 5 * time.Millisecond

const (
	logMsgTxCommitted         = "transaction committed"
	logMsgSnapshotSaved       = "snapshot saved"
	logMsgSnapshotLoaded      = "snapshot loaded"
	logMsgLoansFlaggedOverdue = "loans flagged overdue"
	logAttrFile               = "file"
	logAttrBooks              = "books"
	logAttrRowsAffected       = "rows_affected"
	logAttrDurationMS         = "duration_ms"
)

// Store is the in-memory implementation of stock.Store.
type Store struct {
	mu               sync.RWMutex
	state            state
	snapshotFile     string
	fileLock         *flock.Flock
	logger           stock.Logger
	contextualLogger stock.ContextualLogger
}

// NewStore creates an empty Store, or one restored from the snapshot file if WithSnapshotFile is given.
func NewStore(options ...Option) (*Store, error) {
	s := &Store{state: newState()}

	for _, option := range options {
		if err := option(s); err != nil {
			return nil, err
		}
	}

	if s.snapshotFile != "" {
		s.fileLock = flock.New(s.snapshotFile + ".lock")

		err := s.view(context.Background(), func(st state) error {
			s.logDebug(context.Background(), logMsgSnapshotLoaded, logAttrFile, s.snapshotFile, logAttrBooks, len(st.Books))
			return nil
		})
		if err != nil {
			return nil, err
		}
	}

	return s, nil
}

// WithinTx runs fn on a private copy of the state and commits the copy if fn returns nil.
// Transactions are serialized, so ErrConcurrencyConflict never occurs. With a snapshot file they are
// serialized across processes too: each one holds an exclusive lock on the file while it reloads,
// applies, and saves the state.
func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context, tx stock.Tx) error) error {
	return s.mutate(ctx, func(st state) error {
		return fn(ctx, memTx{st: st})
	})
}

func (s *Store) mutate(ctx context.Context, fn func(st state) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	start := time.Now()

	s.mu.Lock()
	defer s.mu.Unlock()

	unlock, err := s.lockFile(ctx, true)
	if err != nil {
		return err
	}
	defer unlock()

	if err = s.reload(); err != nil {
		return err
	}

	working := s.state.clone()
	if err = fn(working); err != nil {
		return err
	}

	if s.snapshotFile != "" {
		if err = saveSnapshot(s.snapshotFile, working); err != nil {
			return errors.Join(stock.ErrSavingSnapshotFailed, err)
		}

		s.logDebug(ctx, logMsgSnapshotSaved, logAttrFile, s.snapshotFile)
	}

	s.state = working
	s.logDebug(ctx, logMsgTxCommitted, logAttrDurationMS, toMilliseconds(time.Since(start)))

	return nil
}

func (s *Store) view(ctx context.Context, fn func(st state) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if s.fileLock == nil {
		s.mu.RLock()
		defer s.mu.RUnlock()

		return fn(s.state)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	unlock, err := s.lockFile(ctx, false)
	if err != nil {
		return err
	}
	defer unlock()

	if err = s.reload(); err != nil {
		return err
	}

	return fn(s.state)
}

// lockFile takes the snapshot file lock, exclusive for writers and shared for readers.
func (s *Store) lockFile(ctx context.Context, exclusive bool) (func(), error) {
	if s.fileLock == nil {
		return func() {}, nil
	}

	tryLock := s.fileLock.TryRLockContext
	if exclusive {
		tryLock = s.fileLock.TryLockContext
	}

	if _, err := tryLock(ctx, fileLockRetryDelay); err != nil {
		return nil, errors.Join(stock.ErrLockingSnapshotFailed, err)
	}

	return func() { _ = s.fileLock.Unlock() }, nil
}

// reload replaces the cached state with the snapshot file, which another process may have changed.
func (s *Store) reload() error {
	if s.snapshotFile == "" {
		return nil
	}

	st, err := loadSnapshot(s.snapshotFile)
	if err != nil {
		return errors.Join(stock.ErrLoadingSnapshotFailed, err)
	}

	s.state = st

	return nil
}

// AddBook registers a new catalog entry.
func (s *Store) AddBook(ctx context.Context, book stock.Book) error {
	if err := book.CheckInvariant(); err != nil {
		return err
	}

	return s.mutate(ctx, func(st state) error {
		if _, ok := st.Books[book.ID]; ok {
			return stock.ErrBookAlreadyExists
		}

		st.Books[book.ID] = book

		return nil
	})
}

// RemoveBook deletes a catalog entry with its loans and issues; inventory items are kept.
// It is refused while copies are lent out.
func (s *Store) RemoveBook(ctx context.Context, bookID uuid.UUID) error {
	return s.mutate(ctx, func(st state) error {
		if _, ok := st.Books[bookID]; !ok {
			return stock.ErrBookNotFound
		}

		if st.countOpenLoans(func(loan stock.Loan) bool { return loan.BookID == bookID }) > 0 {
			return stock.ErrBookHasOpenLoans
		}

		st.removeBook(bookID)

		return nil
	})
}

func (s *Store) GetBook(ctx context.Context, bookID uuid.UUID) (stock.Book, error) {
	var book stock.Book

	err := s.view(ctx, func(st state) error {
		var ok bool
		if book, ok = st.Books[bookID]; !ok {
			return stock.ErrBookNotFound
		}

		return nil
	})

	return book, err
}

func (s *Store) BookExists(ctx context.Context, bookID uuid.UUID) (bool, error) {
	var exists bool

	err := s.view(ctx, func(st state) error {
		_, exists = st.Books[bookID]
		return nil
	})

	return exists, err
}

// ListBooks returns every book ordered by title.
func (s *Store) ListBooks(ctx context.Context) ([]stock.Book, error) {
	var books []stock.Book

	err := s.view(ctx, func(st state) error {
		books = st.books()
		return nil
	})

	return books, err
}

// SweepOverdueLoans flags every active loan due before today. Running it twice flags nothing the second time.
func (s *Store) SweepOverdueLoans(ctx context.Context, today time.Time) (int64, error) {
	day := stock.ToDate(today)

	// Skip the copy and the snapshot write when nothing is past due.
	var pending bool
	_ = s.view(ctx, func(st state) error {
		pending = hasPastDueLoans(st, day)
		return nil
	})

	if !pending {
		return 0, ctx.Err()
	}

	var flagged int64

	err := s.mutate(ctx, func(st state) error {
		for id, loan := range st.Loans {
			if loan.IsPastDue(day) {
				st.Loans[id] = loan.WithOverdueFlag(day)
				flagged++
			}
		}

		return nil
	})
	if err != nil {
		return 0, err
	}

	if flagged > 0 {
		s.logInfo(ctx, logMsgLoansFlaggedOverdue, logAttrRowsAffected, flagged)
	}

	return flagged, nil
}

func hasPastDueLoans(st state, day stock.Date) bool {
	for _, loan := range st.Loans {
		if loan.IsPastDue(day) {
			return true
		}
	}

	return false
}

func (s *Store) GetLoan(ctx context.Context, loanID uuid.UUID) (stock.Loan, error) {
	var loan stock.Loan

	err := s.view(ctx, func(st state) error {
		var ok bool
		if loan, ok = st.Loans[loanID]; !ok {
			return stock.ErrLoanNotFound
		}

		return nil
	})

	return loan, err
}

// ListLoans returns matching loans, newest loan date first.
func (s *Store) ListLoans(ctx context.Context, filter stock.LoanFilter) ([]stock.Loan, error) {
	var loans []stock.Loan

	err := s.view(ctx, func(st state) error {
		loans = st.loans(filter)
		return nil
	})

	return loans, err
}

func (s *Store) GetSession(ctx context.Context, sessionID uuid.UUID) (stock.InventorySession, error) {
	var session stock.InventorySession

	err := s.view(ctx, func(st state) error {
		var ok bool
		if session, ok = st.Sessions[sessionID]; !ok {
			return stock.ErrSessionNotFound
		}

		return nil
	})

	return session, err
}

func (s *Store) ListSessionItems(ctx context.Context, sessionID uuid.UUID, status stock.ItemStatus) ([]stock.InventoryItem, error) {
	var items []stock.InventoryItem

	err := s.view(ctx, func(st state) error {
		if _, ok := st.Sessions[sessionID]; !ok {
			return stock.ErrSessionNotFound
		}

		items = st.items(sessionID, status)

		return nil
	})

	return items, err
}

func (s *Store) SessionStats(ctx context.Context, sessionID uuid.UUID) (stock.InventoryStats, error) {
	var stats stock.InventoryStats

	err := s.view(ctx, func(st state) error {
		if _, ok := st.Sessions[sessionID]; !ok {
			return stock.ErrSessionNotFound
		}

		stats = stock.ComputeInventoryStats(st.items(sessionID, ""))

		return nil
	})

	return stats, err
}

func (s *Store) GetIssue(ctx context.Context, issueID uuid.UUID) (stock.BookIssue, error) {
	var issue stock.BookIssue

	err := s.view(ctx, func(st state) error {
		var ok bool
		if issue, ok = st.Issues[issueID]; !ok {
			return stock.ErrIssueNotFound
		}

		return nil
	})

	return issue, err
}

// ListOpenIssues returns open issues, oldest first. uuid.Nil lists the issues of every book.
func (s *Store) ListOpenIssues(ctx context.Context, bookID uuid.UUID) ([]stock.BookIssue, error) {
	var issues []stock.BookIssue

	err := s.view(ctx, func(st state) error {
		issues = st.openIssues(bookID)
		return nil
	})

	return issues, err
}

func toMilliseconds(d time.Duration) float64 {
	return float64(d.Nanoseconds()) / 1e6
}

func (s *Store) logDebug(ctx context.Context, msg string, args ...any) {
	if s.contextualLogger != nil {
		s.contextualLogger.DebugContext(ctx, msg, args...)
	} else if s.logger != nil {
		s.logger.Debug(msg, args...)
	}
}

func (s *Store) logInfo(ctx context.Context, msg string, args ...any) {
	if s.contextualLogger != nil {
		s.contextualLogger.InfoContext(ctx, msg, args...)
	} else if s.logger != nil {
		s.logger.Info(msg, args...)
	}
}

var _ stock.Store = (*Store)(nil)
