package stock

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// IssueType names what went wrong with the copies.
type IssueType string

const (
	IssueNotReturned IssueType = "not_returned"
	IssueDamaged     IssueType = "damaged"
	IssueTorn        IssueType = "torn"
	IssueLost        IssueType = "lost"
	IssueOther       IssueType = "other"
)

// Valid reports whether t is a known IssueType.
func (t IssueType) Valid() bool {
	switch t {
	case IssueNotReturned, IssueDamaged, IssueTorn, IssueLost, IssueOther:
		return true
	default:
		return false
	}
}

// IssueStatus is open until the issue is resolved or written off, both terminal.
type IssueStatus string

const (
	IssueOpen       IssueStatus = "open"
	IssueResolved   IssueStatus = "resolved"
	IssueWrittenOff IssueStatus = "written_off"
)

// IsOutcome reports whether s may be used to close an issue.
func (s IssueStatus) IsOutcome() bool {
	return s == IssueResolved || s == IssueWrittenOff
}

// BookIssue is a reported problem with one or more copies of a book.
type BookIssue struct {
	ID              uuid.UUID
	BookID          uuid.UUID
	IssueType       IssueType
	Quantity        int
	BorrowerName    *string
	LoanID          *uuid.UUID
	Notes           *string
	ReportDate      Date
	Status          IssueStatus
	ResolutionNotes *string
	ResolvedAt      *Timestamp
}

// IssueReport carries the caller's input for reporting an issue. Optional fields are nil when absent.
type IssueReport struct {
	BookID       uuid.UUID
	IssueType    IssueType
	Quantity     int
	BorrowerName *string
	LoanID       *uuid.UUID
	Notes        *string
}

// Validate checks the report before any transaction is opened.
func (r IssueReport) Validate() error {
	if r.BookID == uuid.Nil {
		return ErrNilID
	}

	if !r.IssueType.Valid() {
		return ErrInvalidIssueType
	}

	if r.Quantity < 1 {
		return ErrInvalidIssueQuantity
	}

	return nil
}

// NewBookIssue builds an open issue reported today. Blank optional strings are stored as nil.
func NewBookIssue(id uuid.UUID, report IssueReport, today Date) BookIssue {
	return BookIssue{
		ID:           id,
		BookID:       report.BookID,
		IssueType:    report.IssueType,
		Quantity:     report.Quantity,
		BorrowerName: nonBlank(report.BorrowerName),
		LoanID:       report.LoanID,
		Notes:        nonBlank(report.Notes),
		ReportDate:   ToDate(today),
		Status:       IssueOpen,
	}
}

// ShortfallReport turns a counted shortfall into an issue report.
func ShortfallReport(item InventoryItem, session InventorySession, issueType IssueType) (IssueReport, error) {
	shortfall := item.Shortfall()
	if shortfall == 0 {
		return IssueReport{}, ErrItemHasNoShortfall
	}

	notes := fmt.Sprintf(
		"inventory %q: expected %d, found %d",
		session.Name, item.ExpectedQuantity, item.ExpectedQuantity-shortfall,
	)

	return IssueReport{
		BookID:    item.BookID,
		IssueType: issueType,
		Quantity:  shortfall,
		Notes:     &notes,
	}, nil
}

// Resolution carries the caller's input for closing an issue.
type Resolution struct {
	Outcome         IssueStatus
	ResolutionNotes string
	AdjustQuantity  bool
}

// Validate checks the resolution before any transaction is opened.
func (r Resolution) Validate() error {
	if !r.Outcome.IsOutcome() {
		return ErrInvalidOutcome
	}

	return nil
}

// WritesOff reports whether applying the resolution must shrink the stock.
func (r Resolution) WritesOff() bool {
	return r.Outcome == IssueWrittenOff && r.AdjustQuantity
}

// Resolve closes the issue with the given outcome.
func (i BookIssue) Resolve(resolution Resolution, now time.Time) (BookIssue, error) {
	if i.Status != IssueOpen {
		return i, ErrAlreadyResolved
	}

	if err := resolution.Validate(); err != nil {
		return i, err
	}

	i.Status = resolution.Outcome
	i.ResolutionNotes = nonBlank(&resolution.ResolutionNotes)
	i.ResolvedAt = ptr(ToTimestamp(now))

	return i, nil
}

func nonBlank(s *string) *string {
	if s == nil || strings.TrimSpace(*s) == "" {
		return nil
	}

	return ptr(strings.TrimSpace(*s))
}
