// Package adapters provide database adapter implementations for the PostgreSQL stock store.
//
// It supports pgxpool.Pool, sql.DB, and sqlx.DB behind one DBAdapter interface. Every adapter opens
// SERIALIZABLE transactions, so two transactions racing for the same rows fail with SQLSTATE 40001
// instead of silently interleaving.
package adapters
