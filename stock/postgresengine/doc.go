// Package postgresengine provides a PostgreSQL implementation of the stock.Store interface.
//
// Every write runs in a SERIALIZABLE transaction. The stock invariant is enforced twice: a guarded UPDATE
// refuses to move available_copies outside 0..total_quantity, and a CHECK constraint rejects any row that
// slips past it. A partial unique index allows a single in-progress inventory session.
//
// Key features:
//   - Multiple database adapter support (PGX, SQL, SQLX)
//   - Read replica routing for reads made with stock.WithEventualConsistency
//   - SQLSTATE mapping to the domain errors of package stock
//   - Configurable table prefix, logging, metrics, and tracing
//
// Usage examples:
//
//	db, _ := pgxpool.New(context.Background(), dsn)
//	store, _ := postgresengine.NewStoreFromPGXPool(
//		db,
//		postgresengine.WithTablePrefix("library_"),
//		postgresengine.WithLogger(logger),
//	)
//	_ = store.Migrate(ctx)
//
//	err := store.WithinTx(ctx, func(ctx context.Context, tx stock.Tx) error {
//		_, err := tx.AdjustAvailable(ctx, bookID, -1)
//		return err
//	})
package postgresengine
