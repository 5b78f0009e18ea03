package stock

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// BorrowerType tells which directory a borrower id belongs to.
type BorrowerType string

const (
	BorrowerParticipant BorrowerType = "participant"
	BorrowerOtherReader BorrowerType = "other_reader"
)

// Valid reports whether bt is a known BorrowerType.
func (bt BorrowerType) Valid() bool {
	return bt == BorrowerParticipant || bt == BorrowerOtherReader
}

// LoanStatus is the state of a Loan: active <-> overdue -> returned.
type LoanStatus string

const (
	LoanActive   LoanStatus = "active"
	LoanOverdue  LoanStatus = "overdue"
	LoanReturned LoanStatus = "returned"
)

// Valid reports whether s is a known LoanStatus.
func (s LoanStatus) Valid() bool {
	return s == LoanActive || s == LoanOverdue || s == LoanReturned
}

// Loan is one copy of a book handed to one borrower. An open loan accounts for one missing unit of AvailableCopies.
type Loan struct {
	ID           uuid.UUID
	BookID       uuid.UUID
	BorrowerType BorrowerType
	BorrowerID   string
	BorrowerName string
	LoanDate     Date
	DueDate      Date
	ReturnDate   *Date
	Status       LoanStatus
}

// LoanRequest carries the caller's input for issuing a loan.
type LoanRequest struct {
	BookID       uuid.UUID
	BorrowerType BorrowerType
	BorrowerID   string
	BorrowerName string
	DueDate      time.Time
}

// Validate checks the request against today before any stock is touched.
func (r LoanRequest) Validate(today Date) error {
	if r.BookID == uuid.Nil {
		return ErrNilID
	}

	if !r.BorrowerType.Valid() {
		return ErrInvalidBorrowerType
	}

	if strings.TrimSpace(r.BorrowerID) == "" {
		return ErrEmptyBorrowerID
	}

	if strings.TrimSpace(r.BorrowerName) == "" {
		return ErrEmptyBorrowerName
	}

	return ValidateDueDate(r.DueDate, today)
}

// ValidateDueDate rejects zero due dates and due dates in the past.
func ValidateDueDate(dueDate time.Time, today Date) error {
	if dueDate.IsZero() || ToDate(dueDate).Before(ToDate(today)) {
		return ErrInvalidDueDate
	}

	return nil
}

// NewLoan builds an active loan that starts today.
func NewLoan(id uuid.UUID, request LoanRequest, today Date) Loan {
	return Loan{
		ID:           id,
		BookID:       request.BookID,
		BorrowerType: request.BorrowerType,
		BorrowerID:   strings.TrimSpace(request.BorrowerID),
		BorrowerName: strings.TrimSpace(request.BorrowerName),
		LoanDate:     ToDate(today),
		DueDate:      ToDate(request.DueDate),
		Status:       LoanActive,
	}
}

// IsOpen reports whether the loan still holds a copy.
func (l Loan) IsOpen() bool {
	return l.Status == LoanActive || l.Status == LoanOverdue
}

// IsPastDue reports whether an active loan should be flagged overdue on the given day.
func (l Loan) IsPastDue(today Date) bool {
	return l.Status == LoanActive && l.DueDate.Before(ToDate(today))
}

// WithOverdueFlag returns the loan with its status derived for today. Returned loans are left untouched.
func (l Loan) WithOverdueFlag(today Date) Loan {
	if l.IsPastDue(today) {
		l.Status = LoanOverdue
	}

	return l
}

// Return closes the loan. The caller is responsible for giving the copy back to BookStock.
func (l Loan) Return(today Date) (Loan, error) {
	if l.Status == LoanReturned {
		return l, ErrAlreadyReturned
	}

	returnDate := ToDate(today)
	l.Status = LoanReturned
	l.ReturnDate = &returnDate

	return l, nil
}

// Renew moves the due date and makes the loan active again.
func (l Loan) Renew(newDueDate time.Time, today Date) (Loan, error) {
	if l.Status == LoanReturned {
		return l, ErrAlreadyReturned
	}

	if err := ValidateDueDate(newDueDate, today); err != nil {
		return l, err
	}

	l.DueDate = ToDate(newDueDate)
	l.Status = LoanActive

	return l, nil
}
