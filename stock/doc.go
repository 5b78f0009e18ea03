// Package stock provides the domain model and the storage contract for the physical stock of a lending library.
//
// A Book carries two counters, TotalQuantity and AvailableCopies, bound by 0 <= AvailableCopies <= TotalQuantity.
// Three services mutate them, always inside a single Store transaction and always through the BookStock methods
// of the Tx they are handed:
//   - circulation: issuing a loan takes one copy, returning it gives the copy back
//   - reconciliation: inventory sessions compare a frozen expected quantity with a physical count
//   - issues: writing off lost or damaged copies shrinks both counters
//
// The package also defines:
//   - the error taxonomy (ErrNotFound, ErrValidation, ErrConflict, ErrInvariantViolation) shared by all services
//   - LoanFilter, built with BuildLoanFilter
//   - the observability interfaces implemented by oteladapters and satisfied by *slog.Logger
//
// Engines live in sub-packages: postgresengine for PostgreSQL and memoryengine for tests and local use.
package stock
