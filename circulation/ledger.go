package circulation

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/AntonStoeckl/shelfstock/shell"
	"github.com/AntonStoeckl/shelfstock/stock"
)

// Operation types used in logs, metrics, and spans.
const (
	OperationIssueLoan         = "IssueLoan"
	OperationReturnLoan        = "ReturnLoan"
	OperationRenewLoan         = "RenewLoan"
	OperationGetLoan           = "GetLoan"
	OperationListLoans         = "ListLoans"
	OperationPurgeReturnedLoan = "PurgeReturnedLoan"
	OperationSweepOverdueLoans = "SweepOverdueLoans"
)

// BorrowerDirectory is the roster of participants and other readers, owned outside the library core.
type BorrowerDirectory interface {
	BorrowerExists(ctx context.Context, borrowerType stock.BorrowerType, borrowerID string) (bool, error)
}

// Ledger owns the loan life cycle: active <-> overdue -> returned.
type Ledger struct {
	store        stock.Store
	directory    BorrowerDirectory
	clock        stock.Clock
	retryOptions []shell.RetryOption
	observer     shell.Observer
}

// Option configures a Ledger.
type Option func(*Ledger)

// WithBorrowerDirectory makes IssueLoan reject borrowers the directory does not know.
func WithBorrowerDirectory(directory BorrowerDirectory) Option {
	return func(l *Ledger) {
		l.directory = directory
	}
}

// WithClock sets the source of "today".
func WithClock(clock stock.Clock) Option {
	return func(l *Ledger) {
		l.clock = clock
	}
}

// WithRetryOptions sets a custom retry configuration for serialization conflicts.
func WithRetryOptions(opts ...shell.RetryOption) Option {
	return func(l *Ledger) {
		l.retryOptions = opts
	}
}

// WithObserver sets the logging, metrics, and tracing of every operation.
func WithObserver(observer shell.Observer) Option {
	return func(l *Ledger) {
		l.observer = observer
	}
}

// NewLedger creates a Ledger on top of store.
func NewLedger(store stock.Store, opts ...Option) Ledger {
	ledger := Ledger{
		store: store,
		clock: stock.SystemClock,
	}

	for _, opt := range opts {
		opt(&ledger)
	}

	return ledger
}

// IssueLoan lends one copy of the book. The rules are checked in this order:
// the book exists, a copy is available, the borrower holds fewer than stock.MaxOpenLoansPerBorrower open loans.
func (l Ledger) IssueLoan(ctx context.Context, request stock.LoanRequest) (stock.Loan, error) {
	var loan stock.Loan

	err := l.observer.Observe(ctx, OperationIssueLoan, func(ctx context.Context) (shell.RetryMetrics, error) {
		today := l.today()

		if err := request.Validate(today); err != nil {
			return shell.SingleAttempt(err)
		}

		if err := l.checkBorrower(ctx, request); err != nil {
			return shell.SingleAttempt(err)
		}

		loanID := shell.NewID()

		return shell.RunInTx(ctx, l.store, func(ctx context.Context, tx stock.Tx) error {
			book, err := tx.LockBook(ctx, request.BookID)
			if err != nil {
				return err
			}

			if book.AvailableCopies < 1 {
				return fmt.Errorf("%w: %q has %d of %d copies on the shelf",
					stock.ErrUnavailable, book.Title, book.AvailableCopies, book.TotalQuantity)
			}

			openLoans, err := tx.CountOpenLoans(ctx, request.BorrowerType, request.BorrowerID)
			if err != nil {
				return err
			}

			if openLoans >= stock.MaxOpenLoansPerBorrower {
				return fmt.Errorf("%w: %s %s holds %d loans",
					stock.ErrLoanLimitExceeded, request.BorrowerType, request.BorrowerID, openLoans)
			}

			if _, err = tx.AdjustAvailable(ctx, book.ID, -1); err != nil {
				return err
			}

			loan = stock.NewLoan(loanID, request, today)

			return tx.InsertLoan(ctx, loan)
		}, l.retryOptions...)
	})

	if err != nil {
		return stock.Loan{}, err
	}

	return loan, nil
}

// ReturnLoan closes the loan and puts the copy back on the shelf.
func (l Ledger) ReturnLoan(ctx context.Context, loanID uuid.UUID) (stock.Loan, error) {
	var loan stock.Loan

	err := l.observer.Observe(ctx, OperationReturnLoan, func(ctx context.Context) (shell.RetryMetrics, error) {
		today := l.today()

		return shell.RunInTx(ctx, l.store, func(ctx context.Context, tx stock.Tx) error {
			current, err := tx.LockLoan(ctx, loanID)
			if err != nil {
				return err
			}

			returned, err := current.Return(today)
			if err != nil {
				return err
			}

			if _, err = tx.AdjustAvailable(ctx, returned.BookID, 1); err != nil {
				return err
			}

			if err = tx.UpdateLoan(ctx, returned); err != nil {
				return err
			}

			loan = returned

			return nil
		}, l.retryOptions...)
	})

	if err != nil {
		return stock.Loan{}, err
	}

	return loan, nil
}

// RenewLoan moves the due date of an open loan. An overdue loan becomes active again. Stock is not touched.
func (l Ledger) RenewLoan(ctx context.Context, loanID uuid.UUID, newDueDate time.Time) (stock.Loan, error) {
	var loan stock.Loan

	err := l.observer.Observe(ctx, OperationRenewLoan, func(ctx context.Context) (shell.RetryMetrics, error) {
		today := l.today()

		if err := stock.ValidateDueDate(newDueDate, today); err != nil {
			return shell.SingleAttempt(err)
		}

		return shell.RunInTx(ctx, l.store, func(ctx context.Context, tx stock.Tx) error {
			current, err := tx.LockLoan(ctx, loanID)
			if err != nil {
				return err
			}

			renewed, err := current.Renew(newDueDate, today)
			if err != nil {
				return err
			}

			if err = tx.UpdateLoan(ctx, renewed); err != nil {
				return err
			}

			loan = renewed

			return nil
		}, l.retryOptions...)
	})

	if err != nil {
		return stock.Loan{}, err
	}

	return loan, nil
}

// PurgeReturnedLoan deletes the record of a returned loan. Open loans can't be purged.
func (l Ledger) PurgeReturnedLoan(ctx context.Context, loanID uuid.UUID) error {
	return l.observer.Observe(ctx, OperationPurgeReturnedLoan, func(ctx context.Context) (shell.RetryMetrics, error) {
		return shell.RunInTx(ctx, l.store, func(ctx context.Context, tx stock.Tx) error {
			loan, err := tx.LockLoan(ctx, loanID)
			if err != nil {
				return err
			}

			if loan.Status != stock.LoanReturned {
				return stock.ErrLoanNotReturned
			}

			return tx.DeleteLoan(ctx, loanID)
		}, l.retryOptions...)
	})
}

// GetLoan returns one loan with its overdue flag up to date.
func (l Ledger) GetLoan(ctx context.Context, loanID uuid.UUID) (stock.Loan, error) {
	var loan stock.Loan

	err := l.observer.Observe(ctx, OperationGetLoan, func(ctx context.Context) (shell.RetryMetrics, error) {
		if _, err := l.store.SweepOverdueLoans(ctx, l.today()); err != nil {
			return shell.SingleAttempt(err)
		}

		var err error
		loan, err = l.store.GetLoan(ctx, loanID)

		return shell.SingleAttempt(err)
	})

	return loan, err
}

// ListLoans returns the loans matching filter, newest first, with overdue flags up to date.
func (l Ledger) ListLoans(ctx context.Context, filter stock.LoanFilter) ([]stock.Loan, error) {
	var loans []stock.Loan

	err := l.observer.Observe(ctx, OperationListLoans, func(ctx context.Context) (shell.RetryMetrics, error) {
		if _, err := l.store.SweepOverdueLoans(ctx, l.today()); err != nil {
			return shell.SingleAttempt(err)
		}

		var err error
		loans, err = l.store.ListLoans(ctx, filter)

		return shell.SingleAttempt(err)
	})

	return loans, err
}

// SweepOverdueLoans flags overdue loans without reading them. It returns the number of loans flagged.
func (l Ledger) SweepOverdueLoans(ctx context.Context) (int64, error) {
	var flagged int64

	err := l.observer.Observe(ctx, OperationSweepOverdueLoans, func(ctx context.Context) (shell.RetryMetrics, error) {
		var err error
		flagged, err = l.store.SweepOverdueLoans(ctx, l.today())

		return shell.SingleAttempt(err)
	})

	return flagged, err
}

func (l Ledger) checkBorrower(ctx context.Context, request stock.LoanRequest) error {
	if l.directory == nil {
		return nil
	}

	exists, err := l.directory.BorrowerExists(ctx, request.BorrowerType, request.BorrowerID)
	if err != nil {
		return err
	}

	if !exists {
		return fmt.Errorf("%w: %s %s", stock.ErrBorrowerNotFound, request.BorrowerType, request.BorrowerID)
	}

	return nil
}

func (l Ledger) today() stock.Date {
	return stock.ToDate(l.clock())
}
