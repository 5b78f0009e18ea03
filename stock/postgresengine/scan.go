package postgresengine

import (
	"time"

	"github.com/google/uuid"

	"github.com/AntonStoeckl/shelfstock/stock"
	"github.com/AntonStoeckl/shelfstock/stock/postgresengine/internal/adapters"
)

// scanFunc reads the current row. Column order matches the *Columns lists in queries.go.
type scanFunc[T any] func(rows adapters.DBRows) (T, error)

func scanBook(rows adapters.DBRows) (stock.Book, error) {
	var book stock.Book
	err := rows.Scan(&book.ID, &book.Title, &book.Author, &book.ISBN, &book.TotalQuantity, &book.AvailableCopies)

	return book, err
}

func scanLoan(rows adapters.DBRows) (stock.Loan, error) {
	var (
		loan                 stock.Loan
		borrowerType, status string
		loanDate, dueDate    time.Time
		returnDate           *time.Time
	)

	if err := rows.Scan(
		&loan.ID, &loan.BookID, &borrowerType, &loan.BorrowerID, &loan.BorrowerName,
		&loanDate, &dueDate, &returnDate, &status,
	); err != nil {
		return stock.Loan{}, err
	}

	loan.BorrowerType = stock.BorrowerType(borrowerType)
	loan.Status = stock.LoanStatus(status)
	loan.LoanDate = stock.ToDate(loanDate)
	loan.DueDate = stock.ToDate(dueDate)

	if returnDate != nil {
		day := stock.ToDate(*returnDate)
		loan.ReturnDate = &day
	}

	return loan, nil
}

func scanSession(rows adapters.DBRows) (stock.InventorySession, error) {
	var (
		session             stock.InventorySession
		sessionType, status string
		startDate           time.Time
		endDate             *time.Time
	)

	if err := rows.Scan(&session.ID, &session.Name, &sessionType, &startDate, &endDate, &status, &session.Notes); err != nil {
		return stock.InventorySession{}, err
	}

	session.Type = stock.SessionType(sessionType)
	session.Status = stock.SessionStatus(status)
	session.StartDate = stock.ToTimestamp(startDate)

	if endDate != nil {
		end := stock.ToTimestamp(*endDate)
		session.EndDate = &end
	}

	return session, nil
}

func scanItem(rows adapters.DBRows) (stock.InventoryItem, error) {
	var (
		item   stock.InventoryItem
		status string
	)

	if err := rows.Scan(
		&item.ID, &item.SessionID, &item.BookID, &item.ExpectedQuantity, &item.FoundQuantity, &status, &item.Notes,
	); err != nil {
		return stock.InventoryItem{}, err
	}

	item.Status = stock.ItemStatus(status)

	return item, nil
}

func scanIssue(rows adapters.DBRows) (stock.BookIssue, error) {
	var (
		issue             stock.BookIssue
		issueType, status string
		reportDate        time.Time
		loanID            *uuid.UUID
		resolvedAt        *time.Time
	)

	if err := rows.Scan(
		&issue.ID, &issue.BookID, &issueType, &issue.Quantity, &issue.BorrowerName, &loanID, &issue.Notes,
		&reportDate, &status, &issue.ResolutionNotes, &resolvedAt,
	); err != nil {
		return stock.BookIssue{}, err
	}

	issue.IssueType = stock.IssueType(issueType)
	issue.Status = stock.IssueStatus(status)
	issue.ReportDate = stock.ToDate(reportDate)
	issue.LoanID = loanID

	if resolvedAt != nil {
		at := stock.ToTimestamp(*resolvedAt)
		issue.ResolvedAt = &at
	}

	return issue, nil
}

func scanStats(rows adapters.DBRows) (stock.InventoryStats, error) {
	var stats stock.InventoryStats
	err := rows.Scan(&stats.Total, &stats.Checked, &stats.Discrepancy, &stats.Pending)

	return stats, err
}

func scanInt(rows adapters.DBRows) (int, error) {
	var n int
	err := rows.Scan(&n)

	return n, err
}

func scanID(rows adapters.DBRows) (uuid.UUID, error) {
	var id uuid.UUID
	err := rows.Scan(&id)

	return id, err
}
