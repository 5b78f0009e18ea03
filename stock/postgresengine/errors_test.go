package postgresengine

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"

	"github.com/AntonStoeckl/shelfstock/stock"
)

func Test_Classify_MapsSQLState(t *testing.T) {
	s := &Store{tables: newTables("lib_")}

	testCases := []struct {
		name     string
		err      error
		expected error
	}{
		{name: "pgx serialization failure", err: &pgconn.PgError{Code: "40001"}, expected: stock.ErrConcurrencyConflict},
		{name: "pgx deadlock", err: &pgconn.PgError{Code: "40P01"}, expected: stock.ErrConcurrencyConflict},
		{name: "pq serialization failure", err: &pq.Error{Code: "40001"}, expected: stock.ErrConcurrencyConflict},
		{name: "check violation", err: &pgconn.PgError{Code: "23514", ConstraintName: "lib_books_stock_invariant"}, expected: stock.ErrInvariantViolation},
		{name: "pq check violation", err: &pq.Error{Code: "23514"}, expected: stock.ErrInvariantViolation},
		{
			name:     "second open session",
			err:      &pgconn.PgError{Code: "23505", ConstraintName: "lib_inventory_sessions_one_in_progress"},
			expected: stock.ErrSessionAlreadyOpen,
		},
		{
			name:     "pq second open session",
			err:      &pq.Error{Code: "23505", Constraint: "lib_inventory_sessions_one_in_progress"},
			expected: stock.ErrSessionAlreadyOpen,
		},
		{name: "duplicate book", err: &pgconn.PgError{Code: "23505", ConstraintName: "lib_books_pkey"}, expected: stock.ErrBookAlreadyExists},
		{name: "unknown book", err: &pgconn.PgError{Code: "23503", ConstraintName: "lib_loans_book_id_fkey"}, expected: stock.ErrBookNotFound},
		{name: "wrapped", err: fmt.Errorf("exec: %w", &pgconn.PgError{Code: "40001"}), expected: stock.ErrConcurrencyConflict},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			// act
			err := s.classify(tc.err, stock.ErrQueryingFailed)

			// assert
			assert.ErrorIs(t, err, tc.expected)
			assert.NotErrorIs(t, err, stock.ErrQueryingFailed)
			assert.ErrorIs(t, err, tc.err)
		})
	}
}

func Test_Classify_FallsBack(t *testing.T) {
	s := &Store{tables: newTables("")}

	testCases := []error{
		errors.New("connection reset"),
		&pgconn.PgError{Code: "42P01"},
		&pgconn.PgError{Code: "23505", ConstraintName: "some_other_key"},
	}

	for _, cause := range testCases {
		err := s.classify(cause, stock.ErrExecutingFailed)

		assert.ErrorIs(t, err, stock.ErrExecutingFailed)
		assert.ErrorIs(t, err, cause)
		assert.Equal(t, "other", stock.ErrorType(err))
	}
}
