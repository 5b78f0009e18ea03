// Package pgtesthelpers provides test utilities for the PostgreSQL stock store with multi-adapter support.
//
// Adapter selection is controlled via the ADAPTER_TYPE environment variable (pgx.pool, sql.db, sqlx.db).
// Every wrapper migrates its own set of tables under a unique prefix and drops them when the test ends,
// so integration tests can run in parallel against one database.
//
// Environment Variables:
//
//	ADAPTER_TYPE: selects adapter (pgx.pool, sql.db, sqlx.db)
//	TEST_DSN: PostgreSQL DSN, defaults to the local docker database
//
// When the database is unreachable the calling test is skipped.
package pgtesthelpers
