package stock

import (
	"errors"
	"fmt"
)

// Error categories. Every specific error below wraps exactly one of them, so callers can branch with errors.Is
// on the category (e.g. errors.Is(err, stock.ErrConflict)) or on the concrete reason.
var (
	ErrNotFound            = errors.New("not found")
	ErrValidation          = errors.New("validation failed")
	ErrConflict            = errors.New("conflict")
	ErrInvariantViolation  = errors.New("stock invariant violated")
	ErrConcurrencyConflict = errors.New("concurrency conflict, transaction could not be serialized")
)

// NotFound errors.
var (
	ErrBookNotFound     = fmt.Errorf("%w: book", ErrNotFound)
	ErrLoanNotFound     = fmt.Errorf("%w: loan", ErrNotFound)
	ErrSessionNotFound  = fmt.Errorf("%w: inventory session", ErrNotFound)
	ErrItemNotFound     = fmt.Errorf("%w: inventory item", ErrNotFound)
	ErrIssueNotFound    = fmt.Errorf("%w: book issue", ErrNotFound)
	ErrBorrowerNotFound = fmt.Errorf("%w: borrower", ErrNotFound)
)

// Validation errors, raised before any transaction is opened.
var (
	ErrEmptyBookTitle         = fmt.Errorf("%w: book title must not be empty", ErrValidation)
	ErrInvalidTotalQuantity   = fmt.Errorf("%w: total quantity must be at least 1", ErrValidation)
	ErrInvalidBorrowerType    = fmt.Errorf("%w: borrower type must be participant or other_reader", ErrValidation)
	ErrEmptyBorrowerID        = fmt.Errorf("%w: borrower id must not be empty", ErrValidation)
	ErrEmptyBorrowerName      = fmt.Errorf("%w: borrower name must not be empty", ErrValidation)
	ErrInvalidDueDate         = fmt.Errorf("%w: due date must not be before today", ErrValidation)
	ErrEmptySessionName       = fmt.Errorf("%w: session name must not be empty", ErrValidation)
	ErrInvalidSessionType     = fmt.Errorf("%w: session type must be annual or adhoc", ErrValidation)
	ErrNegativeFoundQuantity  = fmt.Errorf("%w: found quantity must not be negative", ErrValidation)
	ErrInvalidIssueType       = fmt.Errorf("%w: unknown issue type", ErrValidation)
	ErrInvalidIssueQuantity   = fmt.Errorf("%w: issue quantity must be at least 1", ErrValidation)
	ErrInvalidOutcome         = fmt.Errorf("%w: outcome must be resolved or written_off", ErrValidation)
	ErrInvalidLoanStatus      = fmt.Errorf("%w: unknown loan status", ErrValidation)
	ErrInvalidItemStatus      = fmt.Errorf("%w: unknown inventory item status", ErrValidation)
	ErrItemHasNoShortfall     = fmt.Errorf("%w: inventory item has no shortfall", ErrValidation)
	ErrNilID                  = fmt.Errorf("%w: id must not be nil", ErrValidation)
	ErrInvalidLoanFilterLimit = fmt.Errorf("%w: loan filter limit must not be negative", ErrValidation)
	ErrLoanOfOtherBook        = fmt.Errorf("%w: referenced loan belongs to another book", ErrValidation)
)

// Conflict errors, surfaced to the caller verbatim and never retried.
var (
	ErrUnavailable          = fmt.Errorf("%w: no copies available", ErrConflict)
	ErrLoanLimitExceeded    = fmt.Errorf("%w: borrower reached the open loan limit", ErrConflict)
	ErrAlreadyReturned      = fmt.Errorf("%w: loan is already returned", ErrConflict)
	ErrLoanNotReturned      = fmt.Errorf("%w: loan is not returned", ErrConflict)
	ErrSessionAlreadyOpen   = fmt.Errorf("%w: an inventory session is already in progress", ErrConflict)
	ErrSessionClosed        = fmt.Errorf("%w: inventory session is completed", ErrConflict)
	ErrSessionAlreadyClosed = fmt.Errorf("%w: inventory session is already completed", ErrConflict)
	ErrAlreadyResolved      = fmt.Errorf("%w: book issue is already resolved", ErrConflict)
	ErrBookHasOpenLoans     = fmt.Errorf("%w: book has open loans", ErrConflict)
	ErrBookAlreadyExists    = fmt.Errorf("%w: book already exists", ErrConflict)
)

// Infrastructure errors, joined with their cause via errors.Join.
var (
	ErrNilDatabaseConnection     = errors.New("database connection must not be nil")
	ErrEmptyTablePrefix          = errors.New("empty table prefix supplied")
	ErrBuildingQueryFailed       = errors.New("building query failed")
	ErrQueryingFailed            = errors.New("querying failed")
	ErrExecutingFailed           = errors.New("executing statement failed")
	ErrScanningDBRowFailed       = errors.New("scanning db row failed")
	ErrGettingRowsAffectedFailed = errors.New("getting rows affected failed")
	ErrBeginningTxFailed         = errors.New("beginning transaction failed")
	ErrCommittingTxFailed        = errors.New("committing transaction failed")
	ErrLoadingSnapshotFailed     = errors.New("loading snapshot failed")
	ErrSavingSnapshotFailed      = errors.New("saving snapshot failed")
	ErrLockingSnapshotFailed     = errors.New("locking snapshot file failed")
)

// ErrorType classifies an error for metric labels and log attributes.
func ErrorType(err error) string {
	switch {
	case err == nil:
		return "none"
	case errors.Is(err, ErrInvariantViolation):
		return "invariant_violation"
	case errors.Is(err, ErrConcurrencyConflict):
		return "concurrency_conflict"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrValidation):
		return "validation"
	case errors.Is(err, ErrConflict):
		return "conflict"
	default:
		return "other"
	}
}

// IsBusinessRejection reports whether err is an expected domain outcome rather than a system failure.
func IsBusinessRejection(err error) bool {
	return errors.Is(err, ErrNotFound) || errors.Is(err, ErrValidation) || errors.Is(err, ErrConflict)
}
