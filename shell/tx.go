package shell

import (
	"context"

	"github.com/google/uuid"

	"github.com/AntonStoeckl/shelfstock/stock"
)

// TxFunc is the body of one store transaction. It may run more than once, so it must not keep state
// between calls other than assigning its results.
type TxFunc func(ctx context.Context, tx stock.Tx) error

// RunInTx runs fn in a store transaction and re-runs the whole transaction on serialization conflicts.
func RunInTx(ctx context.Context, store stock.Store, fn TxFunc, options ...RetryOption) (RetryMetrics, error) {
	return RetryWithExponentialBackoff(ctx, func(ctx context.Context) error {
		return store.WithinTx(ctx, func(ctx context.Context, tx stock.Tx) error {
			return fn(ctx, tx)
		})
	}, options...)
}

// NewID returns a time-ordered UUID (version 7), so ids sort by creation.
func NewID() uuid.UUID {
	return uuid.Must(uuid.NewV7())
}
