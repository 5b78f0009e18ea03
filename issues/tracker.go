package issues

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/AntonStoeckl/shelfstock/shell"
	"github.com/AntonStoeckl/shelfstock/stock"
)

// Operation types used in logs, metrics, and spans.
const (
	OperationReportIssue     = "ReportIssue"
	OperationReportShortfall = "ReportShortfall"
	OperationResolveIssue    = "ResolveIssue"
	OperationGetIssue        = "GetIssue"
	OperationListOpenIssues  = "ListOpenIssues"
)

// Tracker records book issues and applies write-offs to stock.
type Tracker struct {
	store        stock.Store
	clock        stock.Clock
	retryOptions []shell.RetryOption
	observer     shell.Observer
}

// Option configures a Tracker.
type Option func(*Tracker)

// WithClock sets the source of "now".
func WithClock(clock stock.Clock) Option {
	return func(t *Tracker) {
		t.clock = clock
	}
}

// WithRetryOptions sets a custom retry configuration for serialization conflicts.
func WithRetryOptions(opts ...shell.RetryOption) Option {
	return func(t *Tracker) {
		t.retryOptions = opts
	}
}

// WithObserver sets the logging, metrics, and tracing of every operation.
func WithObserver(observer shell.Observer) Option {
	return func(t *Tracker) {
		t.observer = observer
	}
}

// NewTracker creates a Tracker on top of store.
func NewTracker(store stock.Store, opts ...Option) Tracker {
	tracker := Tracker{
		store: store,
		clock: stock.SystemClock,
	}

	for _, opt := range opts {
		opt(&tracker)
	}

	return tracker
}

// ReportIssue opens an issue for the book.
//
// A referenced loan must belong to the same book and fills in the borrower name when none is given.
// A not_returned issue without loan and borrower is attributed to the book's most recent borrower,
// and to that loan while it is still open.
func (t Tracker) ReportIssue(ctx context.Context, report stock.IssueReport) (stock.BookIssue, error) {
	var issue stock.BookIssue

	err := t.observer.Observe(ctx, OperationReportIssue, func(ctx context.Context) (shell.RetryMetrics, error) {
		if err := report.Validate(); err != nil {
			return shell.SingleAttempt(err)
		}

		issueID := shell.NewID()

		return shell.RunInTx(ctx, t.store, func(ctx context.Context, tx stock.Tx) error {
			if _, err := tx.LockBook(ctx, report.BookID); err != nil {
				return err
			}

			enriched, err := attributeToBorrower(ctx, tx, report)
			if err != nil {
				return err
			}

			newIssue := stock.NewBookIssue(issueID, enriched, stock.ToDate(t.clock()))
			if err = tx.InsertIssue(ctx, newIssue); err != nil {
				return err
			}

			issue = newIssue

			return nil
		}, t.retryOptions...)
	})

	if err != nil {
		return stock.BookIssue{}, err
	}

	return issue, nil
}

// ReportShortfall opens an issue for the copies an inventory item was found short.
// The quantity is the item's expected minus found quantity.
func (t Tracker) ReportShortfall(ctx context.Context, itemID uuid.UUID, issueType stock.IssueType) (stock.BookIssue, error) {
	var issue stock.BookIssue

	err := t.observer.Observe(ctx, OperationReportShortfall, func(ctx context.Context) (shell.RetryMetrics, error) {
		if !issueType.Valid() {
			return shell.SingleAttempt(stock.ErrInvalidIssueType)
		}

		issueID := shell.NewID()

		return shell.RunInTx(ctx, t.store, func(ctx context.Context, tx stock.Tx) error {
			item, err := tx.LockItem(ctx, itemID)
			if err != nil {
				return err
			}

			session, err := tx.LockSession(ctx, item.SessionID)
			if err != nil {
				return err
			}

			report, err := stock.ShortfallReport(item, session, issueType)
			if err != nil {
				return err
			}

			newIssue := stock.NewBookIssue(issueID, report, stock.ToDate(t.clock()))
			if err = tx.InsertIssue(ctx, newIssue); err != nil {
				return err
			}

			issue = newIssue

			return nil
		}, t.retryOptions...)
	})

	if err != nil {
		return stock.BookIssue{}, err
	}

	return issue, nil
}

// ResolveIssue closes an open issue. A write-off with AdjustQuantity shrinks the book's stock by the
// issue's quantity in the same transaction and closes the referenced loan if it is still open.
// The closed loan gives no copy back, the write-off already accounts for it.
func (t Tracker) ResolveIssue(ctx context.Context, issueID uuid.UUID, resolution stock.Resolution) (stock.BookIssue, error) {
	var issue stock.BookIssue

	err := t.observer.Observe(ctx, OperationResolveIssue, func(ctx context.Context) (shell.RetryMetrics, error) {
		if err := resolution.Validate(); err != nil {
			return shell.SingleAttempt(err)
		}

		return shell.RunInTx(ctx, t.store, func(ctx context.Context, tx stock.Tx) error {
			current, err := tx.LockIssue(ctx, issueID)
			if err != nil {
				return err
			}

			resolved, err := current.Resolve(resolution, t.clock())
			if err != nil {
				return err
			}

			if resolution.WritesOff() {
				if _, err = tx.AdjustTotal(ctx, resolved.BookID, -resolved.Quantity, -resolved.Quantity); err != nil {
					return err
				}

				if err = closeWrittenOffLoan(ctx, tx, resolved, t.clock()); err != nil {
					return err
				}
			}

			if err = tx.UpdateIssue(ctx, resolved); err != nil {
				return err
			}

			issue = resolved

			return nil
		}, t.retryOptions...)
	})

	if err != nil {
		return stock.BookIssue{}, err
	}

	return issue, nil
}

// GetIssue returns one issue.
func (t Tracker) GetIssue(ctx context.Context, issueID uuid.UUID) (stock.BookIssue, error) {
	var issue stock.BookIssue

	err := t.observer.Observe(ctx, OperationGetIssue, func(ctx context.Context) (shell.RetryMetrics, error) {
		var err error
		issue, err = t.store.GetIssue(ctx, issueID)

		return shell.SingleAttempt(err)
	})

	return issue, err
}

// ListOpenIssues returns the open issues of one book, or of every book for uuid.Nil, oldest first.
func (t Tracker) ListOpenIssues(ctx context.Context, bookID uuid.UUID) ([]stock.BookIssue, error) {
	var issues []stock.BookIssue

	err := t.observer.Observe(ctx, OperationListOpenIssues, func(ctx context.Context) (shell.RetryMetrics, error) {
		var err error
		issues, err = t.store.ListOpenIssues(ctx, bookID)

		return shell.SingleAttempt(err)
	})

	return issues, err
}

func attributeToBorrower(ctx context.Context, tx stock.Tx, report stock.IssueReport) (stock.IssueReport, error) {
	if report.LoanID != nil {
		loan, err := tx.LockLoan(ctx, *report.LoanID)
		if err != nil {
			return report, err
		}

		if loan.BookID != report.BookID {
			return report, stock.ErrLoanOfOtherBook
		}

		if isBlank(report.BorrowerName) {
			report.BorrowerName = &loan.BorrowerName
		}

		return report, nil
	}

	if report.IssueType != stock.IssueNotReturned || !isBlank(report.BorrowerName) {
		return report, nil
	}

	last, found, err := tx.LastLoanForBook(ctx, report.BookID)
	if err != nil || !found {
		return report, err
	}

	report.BorrowerName = &last.BorrowerName
	if last.IsOpen() {
		report.LoanID = &last.ID
	}

	return report, nil
}

func closeWrittenOffLoan(ctx context.Context, tx stock.Tx, issue stock.BookIssue, now time.Time) error {
	if issue.LoanID == nil {
		return nil
	}

	loan, err := tx.LockLoan(ctx, *issue.LoanID)
	if errors.Is(err, stock.ErrLoanNotFound) {
		return nil
	}

	if err != nil {
		return err
	}

	if !loan.IsOpen() {
		return nil
	}

	closed, err := loan.Return(stock.ToDate(now))
	if err != nil {
		return err
	}

	return tx.UpdateLoan(ctx, closed)
}

func isBlank(s *string) bool {
	return s == nil || strings.TrimSpace(*s) == ""
}
