package postgresengine

import (
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"

	"github.com/AntonStoeckl/shelfstock/stock"
)

const (
	sqlStateSerializationFailure = "40001"
	sqlStateDeadlockDetected     = "40P01"
	sqlStateUniqueViolation      = "23505"
	sqlStateCheckViolation       = "23514"
	sqlStateForeignKeyViolation  = "23503"

	constraintOneOpenSession = "_one_in_progress"
	constraintPrimaryKey     = "_pkey"
	constraintBookForeignKey = "_book_id_fkey"
)

// sqlState extracts SQLSTATE and constraint name from a pgx or lib/pq error.
func sqlState(err error) (code, constraint string, ok bool) {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code, pgErr.ConstraintName, true
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return string(pqErr.Code), pqErr.Constraint, true
	}

	return "", "", false
}

// classify joins err with the domain sentinel its SQLSTATE stands for, or with fallback.
func (s *Store) classify(err error, fallback error) error {
	if mapped := s.mapSQLState(err); mapped != nil {
		return errors.Join(mapped, err)
	}

	return errors.Join(fallback, err)
}

func (s *Store) mapSQLState(err error) error {
	code, constraint, ok := sqlState(err)
	if !ok {
		return nil
	}

	switch code {
	case sqlStateSerializationFailure, sqlStateDeadlockDetected:
		return stock.ErrConcurrencyConflict

	case sqlStateCheckViolation:
		return stock.ErrInvariantViolation

	case sqlStateUniqueViolation:
		switch constraint {
		case s.tables.sessions + constraintOneOpenSession:
			return stock.ErrSessionAlreadyOpen
		case s.tables.books + constraintPrimaryKey:
			return stock.ErrBookAlreadyExists
		default:
			return nil
		}

	case sqlStateForeignKeyViolation:
		if strings.HasSuffix(constraint, constraintBookForeignKey) {
			return stock.ErrBookNotFound
		}

		return nil

	default:
		return nil
	}
}
