package reconciliation

import (
	"context"

	"github.com/google/uuid"

	"github.com/AntonStoeckl/shelfstock/shell"
	"github.com/AntonStoeckl/shelfstock/stock"
)

// Operation types used in logs, metrics, and spans.
const (
	OperationStartInventorySession    = "StartInventorySession"
	OperationCheckInventoryItem       = "CheckInventoryItem"
	OperationCompleteInventorySession = "CompleteInventorySession"
	OperationGetInventoryStats        = "GetInventoryStats"
	OperationGetInventorySession      = "GetInventorySession"
	OperationListInventoryItems       = "ListInventoryItems"
)

// Reconciler runs inventory sessions.
type Reconciler struct {
	store        stock.Store
	clock        stock.Clock
	retryOptions []shell.RetryOption
	observer     shell.Observer
}

// Option configures a Reconciler.
type Option func(*Reconciler)

// WithClock sets the source of "now".
func WithClock(clock stock.Clock) Option {
	return func(r *Reconciler) {
		r.clock = clock
	}
}

// WithRetryOptions sets a custom retry configuration for serialization conflicts.
func WithRetryOptions(opts ...shell.RetryOption) Option {
	return func(r *Reconciler) {
		r.retryOptions = opts
	}
}

// WithObserver sets the logging, metrics, and tracing of every operation.
func WithObserver(observer shell.Observer) Option {
	return func(r *Reconciler) {
		r.observer = observer
	}
}

// NewReconciler creates a Reconciler on top of store.
func NewReconciler(store stock.Store, opts ...Option) Reconciler {
	reconciler := Reconciler{
		store: store,
		clock: stock.SystemClock,
	}

	for _, opt := range opts {
		opt(&reconciler)
	}

	return reconciler
}

// Completion is the result of completing a session.
type Completion struct {
	Session stock.InventorySession
	Issues  []stock.BookIssue
}

type completeConfig struct {
	reportShortfalls bool
}

// CompleteOption configures CompleteInventorySession.
type CompleteOption func(*completeConfig)

// ReportShortfalls makes completion report one issue of type "other" for every item found short.
func ReportShortfalls() CompleteOption {
	return func(c *completeConfig) {
		c.reportShortfalls = true
	}
}

// StartInventorySession opens a session with one pending item per book, expecting each book's current total.
func (r Reconciler) StartInventorySession(
	ctx context.Context,
	request stock.SessionRequest,
) (stock.InventorySession, []stock.InventoryItem, error) {

	var session stock.InventorySession
	var items []stock.InventoryItem

	err := r.observer.Observe(ctx, OperationStartInventorySession, func(ctx context.Context) (shell.RetryMetrics, error) {
		if err := request.Validate(); err != nil {
			return shell.SingleAttempt(err)
		}

		sessionID := shell.NewID()

		return shell.RunInTx(ctx, r.store, func(ctx context.Context, tx stock.Tx) error {
			open, err := tx.HasOpenSession(ctx)
			if err != nil {
				return err
			}

			if open {
				return stock.ErrSessionAlreadyOpen
			}

			books, err := tx.ListBooks(ctx)
			if err != nil {
				return err
			}

			newSession, newItems := stock.NewInventorySession(sessionID, request, books, r.clock(), shell.NewID)
			if err = tx.InsertSession(ctx, newSession, newItems); err != nil {
				return err
			}

			session, items = newSession, newItems

			return nil
		}, r.retryOptions...)
	})

	if err != nil {
		return stock.InventorySession{}, nil, err
	}

	return session, items, nil
}

// CheckInventoryItem records the found quantity of one item. Stock is not touched.
func (r Reconciler) CheckInventoryItem(
	ctx context.Context,
	itemID uuid.UUID,
	foundQuantity int,
	notes string,
) (stock.InventoryItem, error) {

	var item stock.InventoryItem

	err := r.observer.Observe(ctx, OperationCheckInventoryItem, func(ctx context.Context) (shell.RetryMetrics, error) {
		if foundQuantity < 0 {
			return shell.SingleAttempt(stock.ErrNegativeFoundQuantity)
		}

		return shell.RunInTx(ctx, r.store, func(ctx context.Context, tx stock.Tx) error {
			current, err := tx.LockItem(ctx, itemID)
			if err != nil {
				return err
			}

			session, err := tx.LockSession(ctx, current.SessionID)
			if err != nil {
				return err
			}

			checked, err := current.Check(session, foundQuantity, notes)
			if err != nil {
				return err
			}

			if err = tx.UpdateItem(ctx, checked); err != nil {
				return err
			}

			item = checked

			return nil
		}, r.retryOptions...)
	})

	if err != nil {
		return stock.InventoryItem{}, err
	}

	return item, nil
}

// CompleteInventorySession closes the session. Its items can't be checked afterwards.
func (r Reconciler) CompleteInventorySession(
	ctx context.Context,
	sessionID uuid.UUID,
	opts ...CompleteOption,
) (Completion, error) {

	config := completeConfig{}
	for _, opt := range opts {
		opt(&config)
	}

	var completion Completion

	err := r.observer.Observe(ctx, OperationCompleteInventorySession, func(ctx context.Context) (shell.RetryMetrics, error) {
		return shell.RunInTx(ctx, r.store, func(ctx context.Context, tx stock.Tx) error {
			now := r.clock()

			current, err := tx.LockSession(ctx, sessionID)
			if err != nil {
				return err
			}

			completed, err := current.Complete(now)
			if err != nil {
				return err
			}

			if err = tx.UpdateSession(ctx, completed); err != nil {
				return err
			}

			var issues []stock.BookIssue
			if config.reportShortfalls {
				if issues, err = reportShortfalls(ctx, tx, completed, now); err != nil {
					return err
				}
			}

			completion = Completion{Session: completed, Issues: issues}

			return nil
		}, r.retryOptions...)
	})

	if err != nil {
		return Completion{}, err
	}

	return completion, nil
}

// GetInventoryStats counts the items of a session per status. Works for sessions in any status.
func (r Reconciler) GetInventoryStats(ctx context.Context, sessionID uuid.UUID) (stock.InventoryStats, error) {
	var stats stock.InventoryStats

	err := r.observer.Observe(ctx, OperationGetInventoryStats, func(ctx context.Context) (shell.RetryMetrics, error) {
		var err error
		stats, err = r.store.SessionStats(ctx, sessionID)

		return shell.SingleAttempt(err)
	})

	return stats, err
}

// GetInventorySession returns one session.
func (r Reconciler) GetInventorySession(ctx context.Context, sessionID uuid.UUID) (stock.InventorySession, error) {
	var session stock.InventorySession

	err := r.observer.Observe(ctx, OperationGetInventorySession, func(ctx context.Context) (shell.RetryMetrics, error) {
		var err error
		session, err = r.store.GetSession(ctx, sessionID)

		return shell.SingleAttempt(err)
	})

	return session, err
}

// ListInventoryItems returns the items of a session, optionally only those in one status.
func (r Reconciler) ListInventoryItems(
	ctx context.Context,
	sessionID uuid.UUID,
	status stock.ItemStatus,
) ([]stock.InventoryItem, error) {

	var items []stock.InventoryItem

	err := r.observer.Observe(ctx, OperationListInventoryItems, func(ctx context.Context) (shell.RetryMetrics, error) {
		if status != "" && !status.Valid() {
			return shell.SingleAttempt(stock.ErrInvalidItemStatus)
		}

		var err error
		items, err = r.store.ListSessionItems(ctx, sessionID, status)

		return shell.SingleAttempt(err)
	})

	return items, err
}

func reportShortfalls(
	ctx context.Context,
	tx stock.Tx,
	session stock.InventorySession,
	now stock.Timestamp,
) ([]stock.BookIssue, error) {

	discrepancies, err := tx.ListSessionItems(ctx, session.ID, stock.ItemDiscrepancy)
	if err != nil {
		return nil, err
	}

	issues := make([]stock.BookIssue, 0, len(discrepancies))

	for _, item := range discrepancies {
		if item.Shortfall() == 0 {
			continue // surplus
		}

		report, err := stock.ShortfallReport(item, session, stock.IssueOther)
		if err != nil {
			return nil, err
		}

		issue := stock.NewBookIssue(shell.NewID(), report, stock.ToDate(now))
		if err = tx.InsertIssue(ctx, issue); err != nil {
			return nil, err
		}

		issues = append(issues, issue)
	}

	return issues, nil
}
