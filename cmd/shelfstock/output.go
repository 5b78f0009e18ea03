package main

import (
	"time"

	jsoniter "github.com/json-iterator/go"

	"github.com/AntonStoeckl/shelfstock/stock"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

func (c *cli) print(v any) error {
	encoder := json.NewEncoder(c.stdout)
	encoder.SetIndent("", "  ")

	return encoder.Encode(v)
}

type bookView struct {
	ID              string `json:"id"`
	Title           string `json:"title"`
	Author          string `json:"author,omitempty"`
	ISBN            string `json:"isbn,omitempty"`
	TotalQuantity   int    `json:"total_quantity"`
	AvailableCopies int    `json:"available_copies"`
}

func toBookView(book stock.Book) bookView {
	return bookView{
		ID:              book.ID.String(),
		Title:           book.Title,
		Author:          book.Author,
		ISBN:            book.ISBN,
		TotalQuantity:   book.TotalQuantity,
		AvailableCopies: book.AvailableCopies,
	}
}

type loanView struct {
	ID           string  `json:"id"`
	BookID       string  `json:"book_id"`
	BorrowerType string  `json:"borrower_type"`
	BorrowerID   string  `json:"borrower_id"`
	BorrowerName string  `json:"borrower_name"`
	LoanDate     string  `json:"loan_date"`
	DueDate      string  `json:"due_date"`
	ReturnDate   *string `json:"return_date"`
	Status       string  `json:"status"`
}

func toLoanView(loan stock.Loan) loanView {
	return loanView{
		ID:           loan.ID.String(),
		BookID:       loan.BookID.String(),
		BorrowerType: string(loan.BorrowerType),
		BorrowerID:   loan.BorrowerID,
		BorrowerName: loan.BorrowerName,
		LoanDate:     formatDate(loan.LoanDate),
		DueDate:      formatDate(loan.DueDate),
		ReturnDate:   formatOptional(loan.ReturnDate, time.DateOnly),
		Status:       string(loan.Status),
	}
}

type sessionView struct {
	ID        string  `json:"id"`
	Name      string  `json:"name"`
	Type      string  `json:"type"`
	StartDate string  `json:"start_date"`
	EndDate   *string `json:"end_date"`
	Status    string  `json:"status"`
	Notes     string  `json:"notes,omitempty"`
}

func toSessionView(session stock.InventorySession) sessionView {
	return sessionView{
		ID:        session.ID.String(),
		Name:      session.Name,
		Type:      string(session.Type),
		StartDate: session.StartDate.Format(time.RFC3339),
		EndDate:   formatOptional(session.EndDate, time.RFC3339),
		Status:    string(session.Status),
		Notes:     session.Notes,
	}
}

type itemView struct {
	ID               string `json:"id"`
	SessionID        string `json:"session_id"`
	BookID           string `json:"book_id"`
	ExpectedQuantity int    `json:"expected_quantity"`
	FoundQuantity    *int   `json:"found_quantity"`
	Status           string `json:"status"`
	Notes            string `json:"notes,omitempty"`
}

func toItemViews(items []stock.InventoryItem) []itemView {
	views := make([]itemView, 0, len(items))
	for _, item := range items {
		views = append(views, toItemView(item))
	}

	return views
}

func toItemView(item stock.InventoryItem) itemView {
	return itemView{
		ID:               item.ID.String(),
		SessionID:        item.SessionID.String(),
		BookID:           item.BookID.String(),
		ExpectedQuantity: item.ExpectedQuantity,
		FoundQuantity:    item.FoundQuantity,
		Status:           string(item.Status),
		Notes:            item.Notes,
	}
}

type statsView struct {
	Total       int `json:"total"`
	Checked     int `json:"checked"`
	Discrepancy int `json:"discrepancy"`
	Pending     int `json:"pending"`
}

type issueView struct {
	ID              string  `json:"id"`
	BookID          string  `json:"book_id"`
	IssueType       string  `json:"issue_type"`
	Quantity        int     `json:"quantity"`
	BorrowerName    *string `json:"borrower_name"`
	LoanID          *string `json:"loan_id"`
	Notes           *string `json:"notes"`
	ReportDate      string  `json:"report_date"`
	Status          string  `json:"status"`
	ResolutionNotes *string `json:"resolution_notes"`
	ResolvedAt      *string `json:"resolved_at"`
}

func toIssueViews(issues []stock.BookIssue) []issueView {
	views := make([]issueView, 0, len(issues))
	for _, issue := range issues {
		views = append(views, toIssueView(issue))
	}

	return views
}

func toIssueView(issue stock.BookIssue) issueView {
	view := issueView{
		ID:              issue.ID.String(),
		BookID:          issue.BookID.String(),
		IssueType:       string(issue.IssueType),
		Quantity:        issue.Quantity,
		BorrowerName:    issue.BorrowerName,
		Notes:           issue.Notes,
		ReportDate:      formatDate(issue.ReportDate),
		Status:          string(issue.Status),
		ResolutionNotes: issue.ResolutionNotes,
		ResolvedAt:      formatOptional(issue.ResolvedAt, time.RFC3339),
	}

	if issue.LoanID != nil {
		loanID := issue.LoanID.String()
		view.LoanID = &loanID
	}

	return view
}

func formatDate(day stock.Date) string {
	return day.Format(time.DateOnly)
}

func formatOptional(t *time.Time, layout string) *string {
	if t == nil {
		return nil
	}

	formatted := t.Format(layout)

	return &formatted
}
