package stock

import (
	"slices"
	"time"

	"github.com/google/uuid"
)

/***** LoanFilter *****/

// LoanFilter selects loans for listLoans. The zero value matches every loan.
type LoanFilter struct {
	bookID     uuid.UUID
	borrowerID string
	statuses   []LoanStatus
	dueBefore  Date
	limit      int
}

func (f LoanFilter) BookID() uuid.UUID {
	return f.bookID
}

func (f LoanFilter) BorrowerID() string {
	return f.borrowerID
}

// Statuses is sorted and free of duplicates. An empty slice means any status.
func (f LoanFilter) Statuses() []LoanStatus {
	return f.statuses
}

func (f LoanFilter) DueBefore() Date {
	return f.dueBefore
}

// Limit of zero means no limit.
func (f LoanFilter) Limit() int {
	return f.limit
}

// Matches applies the filter to a single loan, for engines that filter in memory.
func (f LoanFilter) Matches(loan Loan) bool {
	if f.bookID != uuid.Nil && loan.BookID != f.bookID {
		return false
	}

	if f.borrowerID != "" && loan.BorrowerID != f.borrowerID {
		return false
	}

	if len(f.statuses) > 0 && !slices.Contains(f.statuses, loan.Status) {
		return false
	}

	if !f.dueBefore.IsZero() && !loan.DueDate.Before(f.dueBefore) {
		return false
	}

	return true
}

/***** LoanFilterBuilder *****/

// LoanFilterBuilder builds a LoanFilter:
//
//	filter := stock.BuildLoanFilter().
//		ForBorrower("p-17").
//		WithStatusIn(stock.LoanActive, stock.LoanOverdue).
//		Finalize()
type LoanFilterBuilder struct {
	filter LoanFilter
	err    error
}

// BuildLoanFilter starts an empty LoanFilter.
func BuildLoanFilter() *LoanFilterBuilder {
	return &LoanFilterBuilder{}
}

// ForBook restricts the filter to loans of one book.
func (b *LoanFilterBuilder) ForBook(bookID uuid.UUID) *LoanFilterBuilder {
	b.filter.bookID = bookID
	return b
}

// ForBorrower restricts the filter to loans of one borrower.
func (b *LoanFilterBuilder) ForBorrower(borrowerID string) *LoanFilterBuilder {
	b.filter.borrowerID = borrowerID
	return b
}

// WithStatusIn restricts the filter to loans in any of the given statuses.
//
// It sanitizes the input:
//   - removing unknown statuses
//   - sorting the statuses
//   - removing duplicate statuses
func (b *LoanFilterBuilder) WithStatusIn(status LoanStatus, statuses ...LoanStatus) *LoanFilterBuilder {
	all := append([]LoanStatus{status}, statuses...)
	all = slices.DeleteFunc(all, func(s LoanStatus) bool { return !s.Valid() })
	all = append(b.filter.statuses, all...)
	slices.Sort(all)
	b.filter.statuses = slices.Compact(all)

	return b
}

// OnlyOpen is a shorthand for WithStatusIn(active, overdue).
func (b *LoanFilterBuilder) OnlyOpen() *LoanFilterBuilder {
	return b.WithStatusIn(LoanActive, LoanOverdue)
}

// DueBefore restricts the filter to loans due strictly before the given day.
func (b *LoanFilterBuilder) DueBefore(day time.Time) *LoanFilterBuilder {
	b.filter.dueBefore = ToDate(day)
	return b
}

// Limit caps the number of returned loans, newest first.
func (b *LoanFilterBuilder) Limit(limit int) *LoanFilterBuilder {
	if limit < 0 {
		b.err = ErrInvalidLoanFilterLimit
		return b
	}

	b.filter.limit = limit

	return b
}

// Finalize returns the filter or the first error recorded while building it.
func (b *LoanFilterBuilder) Finalize() (LoanFilter, error) {
	if b.err != nil {
		return LoanFilter{}, b.err
	}

	return b.filter, nil
}
