package postgresengine

import (
	"context"
	"fmt"
)

// schemaStatements returns the idempotent DDL for all five tables.
// available_copies is kept within 0..total_quantity by a CHECK constraint as the last line of defense,
// and a partial unique index admits at most one in_progress inventory session.
// inventory_items.book_id carries no foreign key: counted items outlive the removal of their book.
func (s *Store) schemaStatements() []string {
	t := s.tables

	return []string{
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %[1]s (
	id               uuid    PRIMARY KEY,
	title            text    NOT NULL,
	author           text    NOT NULL DEFAULT '',
	isbn             text    NOT NULL DEFAULT '',
	total_quantity   integer NOT NULL CHECK (total_quantity >= 0),
	available_copies integer NOT NULL,
	CONSTRAINT %[1]s_stock_invariant CHECK (available_copies >= 0 AND available_copies <= total_quantity)
)`, t.books),

		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %[1]s (
	id            uuid PRIMARY KEY,
	book_id       uuid NOT NULL REFERENCES %[2]s (id) ON DELETE CASCADE,
	borrower_type text NOT NULL CHECK (borrower_type IN ('participant', 'other_reader')),
	borrower_id   text NOT NULL,
	borrower_name text NOT NULL,
	loan_date     date NOT NULL,
	due_date      date NOT NULL,
	return_date   date,
	status        text NOT NULL CHECK (status IN ('active', 'overdue', 'returned'))
)`, t.loans, t.books),

		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %[1]s_open_by_borrower ON %[1]s (borrower_type, borrower_id) WHERE status <> 'returned'`, t.loans),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %[1]s_by_book ON %[1]s (book_id, loan_date DESC)`, t.loans),

		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %[1]s (
	id           uuid        PRIMARY KEY,
	name         text        NOT NULL,
	session_type text        NOT NULL CHECK (session_type IN ('annual', 'adhoc')),
	start_date   timestamptz NOT NULL,
	end_date     timestamptz,
	status       text        NOT NULL CHECK (status IN ('in_progress', 'completed')),
	notes        text        NOT NULL DEFAULT ''
)`, t.sessions),

		fmt.Sprintf(`CREATE UNIQUE INDEX IF NOT EXISTS %[1]s%[2]s ON %[1]s (status) WHERE status = 'in_progress'`,
			t.sessions, constraintOneOpenSession),

		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %[1]s (
	id                uuid    PRIMARY KEY,
	session_id        uuid    NOT NULL REFERENCES %[2]s (id) ON DELETE CASCADE,
	book_id           uuid    NOT NULL,
	expected_quantity integer NOT NULL CHECK (expected_quantity >= 0),
	found_quantity    integer CHECK (found_quantity >= 0),
	status            text    NOT NULL CHECK (status IN ('pending', 'checked', 'discrepancy')),
	notes             text    NOT NULL DEFAULT '',
	UNIQUE (session_id, book_id)
)`, t.items, t.sessions),
		fmt.Sprintf(`ALTER TABLE %[1]s DROP CONSTRAINT IF EXISTS %[1]s_book_id_fkey`, t.items),

		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %[1]s (
	id               uuid        PRIMARY KEY,
	book_id          uuid        NOT NULL REFERENCES %[2]s (id) ON DELETE CASCADE,
	issue_type       text        NOT NULL CHECK (issue_type IN ('not_returned', 'damaged', 'torn', 'lost', 'other')),
	quantity         integer     NOT NULL CHECK (quantity >= 1),
	borrower_name    text,
	loan_id          uuid        REFERENCES %[3]s (id) ON DELETE SET NULL,
	notes            text,
	report_date      date        NOT NULL,
	status           text        NOT NULL CHECK (status IN ('open', 'resolved', 'written_off')),
	resolution_notes text,
	resolved_at      timestamptz
)`, t.issues, t.books, t.loans),

		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %[1]s_open_by_book ON %[1]s (book_id, report_date) WHERE status = 'open'`, t.issues),
	}
}

// Migrate creates the tables, constraints, and indexes if they do not exist yet.
func (s *Store) Migrate(ctx context.Context) error {
	r := runner{s: s, q: s.db}

	for _, statement := range s.schemaStatements() {
		if _, err := r.exec(ctx, "schema", statement); err != nil {
			s.logError(ctx, logMsgOperationFailed, err, logAttrOperation, "migrate")
			return err
		}
	}

	s.logInfo(ctx, logMsgMigrationApplied, logAttrTable, s.tables.books)

	return nil
}
