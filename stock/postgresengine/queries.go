package postgresengine

import (
	"errors"
	"time"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres" // dialect registration
	"github.com/doug-martin/goqu/v9/exp"
	"github.com/google/uuid"

	"github.com/AntonStoeckl/shelfstock/stock"
)

const (
	dialectPostgres     = "postgres"
	colID               = "id"
	colTitle            = "title"
	colAuthor           = "author"
	colISBN             = "isbn"
	colTotalQuantity    = "total_quantity"
	colAvailableCopies  = "available_copies"
	colBookID           = "book_id"
	colBorrowerType     = "borrower_type"
	colBorrowerID       = "borrower_id"
	colBorrowerName     = "borrower_name"
	colLoanDate         = "loan_date"
	colDueDate          = "due_date"
	colReturnDate       = "return_date"
	colStatus           = "status"
	colName             = "name"
	colSessionType      = "session_type"
	colStartDate        = "start_date"
	colEndDate          = "end_date"
	colNotes            = "notes"
	colSessionID        = "session_id"
	colExpectedQuantity = "expected_quantity"
	colFoundQuantity    = "found_quantity"
	colIssueType        = "issue_type"
	colQuantity         = "quantity"
	colLoanID           = "loan_id"
	colReportDate       = "report_date"
	colResolutionNotes  = "resolution_notes"
	colResolvedAt       = "resolved_at"
)

var (
	dialect = goqu.Dialect(dialectPostgres)

	bookColumns    = []any{colID, colTitle, colAuthor, colISBN, colTotalQuantity, colAvailableCopies}
	loanColumns    = []any{colID, colBookID, colBorrowerType, colBorrowerID, colBorrowerName, colLoanDate, colDueDate, colReturnDate, colStatus}
	sessionColumns = []any{colID, colName, colSessionType, colStartDate, colEndDate, colStatus, colNotes}
	itemColumns    = []any{colID, colSessionID, colBookID, colExpectedQuantity, colFoundQuantity, colStatus, colNotes}
	issueColumns   = []any{colID, colBookID, colIssueType, colQuantity, colBorrowerName, colLoanID, colNotes, colReportDate, colStatus, colResolutionNotes, colResolvedAt}

	openLoanStatuses = []any{string(stock.LoanActive), string(stock.LoanOverdue)}
)

// tables holds the (optionally prefixed) table names.
type tables struct {
	books    string
	loans    string
	sessions string
	items    string
	issues   string
}

func newTables(prefix string) tables {
	return tables{
		books:    prefix + "books",
		loans:    prefix + "loans",
		sessions: prefix + "inventory_sessions",
		items:    prefix + "inventory_items",
		issues:   prefix + "book_issues",
	}
}

// sqlBuilder renders every statement of the store with goqu, values interpolated.
type sqlBuilder struct {
	t tables
}

func toSQL(ds interface{ ToSQL() (string, []any, error) }) (string, error) {
	sqlQuery, _, err := ds.ToSQL()
	if err != nil {
		return "", errors.Join(stock.ErrBuildingQueryFailed, err)
	}

	return sqlQuery, nil
}

func dateLiteral(d time.Time) string {
	return d.UTC().Format(time.DateOnly)
}

func forUpdate(ds *goqu.SelectDataset, lock bool) *goqu.SelectDataset {
	if lock {
		return ds.ForUpdate(exp.Wait)
	}

	return ds
}

/*** books ***/

func (b sqlBuilder) selectBook(bookID uuid.UUID, lock bool) (string, error) {
	ds := dialect.From(b.t.books).Select(bookColumns...).Where(goqu.C(colID).Eq(bookID.String()))

	return toSQL(forUpdate(ds, lock))
}

func (b sqlBuilder) selectBooks() (string, error) {
	return toSQL(dialect.From(b.t.books).Select(bookColumns...).Order(goqu.C(colTitle).Asc(), goqu.C(colID).Asc()))
}

func (b sqlBuilder) insertBook(book stock.Book) (string, error) {
	return toSQL(dialect.Insert(b.t.books).Rows(goqu.Record{
		colID:              book.ID.String(),
		colTitle:           book.Title,
		colAuthor:          book.Author,
		colISBN:            book.ISBN,
		colTotalQuantity:   book.TotalQuantity,
		colAvailableCopies: book.AvailableCopies,
	}))
}

func (b sqlBuilder) deleteBook(bookID uuid.UUID) (string, error) {
	return toSQL(dialect.Delete(b.t.books).Where(goqu.C(colID).Eq(bookID.String())))
}

// adjustAvailable only touches the row if the result stays within 0..total_quantity.
func (b sqlBuilder) adjustAvailable(bookID uuid.UUID, delta int) (string, error) {
	return toSQL(dialect.Update(b.t.books).
		Set(goqu.Record{colAvailableCopies: goqu.L("? + ?", goqu.C(colAvailableCopies), delta)}).
		Where(
			goqu.C(colID).Eq(bookID.String()),
			goqu.L("? + ? BETWEEN 0 AND ?", goqu.C(colAvailableCopies), delta, goqu.C(colTotalQuantity)),
		).
		Returning(bookColumns...))
}

// adjustTotal floors both counters at zero; the table's CHECK constraint rejects available > total.
func (b sqlBuilder) adjustTotal(bookID uuid.UUID, deltaTotal, deltaAvailable int) (string, error) {
	return toSQL(dialect.Update(b.t.books).
		Set(goqu.Record{
			colTotalQuantity:   goqu.Func("GREATEST", goqu.L("? + ?", goqu.C(colTotalQuantity), deltaTotal), 0),
			colAvailableCopies: goqu.Func("GREATEST", goqu.L("? + ?", goqu.C(colAvailableCopies), deltaAvailable), 0),
		}).
		Where(goqu.C(colID).Eq(bookID.String())).
		Returning(bookColumns...))
}

/*** loans ***/

func (b sqlBuilder) selectLoan(loanID uuid.UUID, lock bool) (string, error) {
	ds := dialect.From(b.t.loans).Select(loanColumns...).Where(goqu.C(colID).Eq(loanID.String()))

	return toSQL(forUpdate(ds, lock))
}

func (b sqlBuilder) selectLoans(filter stock.LoanFilter) (string, error) {
	ds := dialect.From(b.t.loans).Select(loanColumns...)

	if filter.BookID() != uuid.Nil {
		ds = ds.Where(goqu.C(colBookID).Eq(filter.BookID().String()))
	}

	if filter.BorrowerID() != "" {
		ds = ds.Where(goqu.C(colBorrowerID).Eq(filter.BorrowerID()))
	}

	if statuses := filter.Statuses(); len(statuses) > 0 {
		values := make([]any, 0, len(statuses))
		for _, status := range statuses {
			values = append(values, string(status))
		}
		ds = ds.Where(goqu.C(colStatus).In(values...))
	}

	if !filter.DueBefore().IsZero() {
		ds = ds.Where(goqu.C(colDueDate).Lt(dateLiteral(filter.DueBefore())))
	}

	ds = ds.Order(goqu.C(colLoanDate).Desc(), goqu.C(colID).Desc())

	if filter.Limit() > 0 {
		ds = ds.Limit(uint(filter.Limit()))
	}

	return toSQL(ds)
}

func (b sqlBuilder) selectLastLoanForBook(bookID uuid.UUID) (string, error) {
	return toSQL(dialect.From(b.t.loans).
		Select(loanColumns...).
		Where(goqu.C(colBookID).Eq(bookID.String())).
		Order(goqu.C(colLoanDate).Desc(), goqu.C(colID).Desc()).
		Limit(1))
}

func (b sqlBuilder) countOpenLoans(match goqu.Ex) (string, error) {
	return toSQL(dialect.From(b.t.loans).
		Select(goqu.COUNT(goqu.Star())).
		Where(match, goqu.C(colStatus).In(openLoanStatuses...)))
}

func loanRecord(loan stock.Loan) goqu.Record {
	var returnDate any
	if loan.ReturnDate != nil {
		returnDate = dateLiteral(*loan.ReturnDate)
	}

	return goqu.Record{
		colBookID:       loan.BookID.String(),
		colBorrowerType: string(loan.BorrowerType),
		colBorrowerID:   loan.BorrowerID,
		colBorrowerName: loan.BorrowerName,
		colLoanDate:     dateLiteral(loan.LoanDate),
		colDueDate:      dateLiteral(loan.DueDate),
		colReturnDate:   returnDate,
		colStatus:       string(loan.Status),
	}
}

func (b sqlBuilder) insertLoan(loan stock.Loan) (string, error) {
	record := loanRecord(loan)
	record[colID] = loan.ID.String()

	return toSQL(dialect.Insert(b.t.loans).Rows(record))
}

func (b sqlBuilder) updateLoan(loan stock.Loan) (string, error) {
	return toSQL(dialect.Update(b.t.loans).Set(loanRecord(loan)).Where(goqu.C(colID).Eq(loan.ID.String())))
}

func (b sqlBuilder) deleteLoan(loanID uuid.UUID) (string, error) {
	return toSQL(dialect.Delete(b.t.loans).Where(goqu.C(colID).Eq(loanID.String())))
}

func (b sqlBuilder) sweepOverdueLoans(today stock.Date) (string, error) {
	return toSQL(dialect.Update(b.t.loans).
		Set(goqu.Record{colStatus: string(stock.LoanOverdue)}).
		Where(
			goqu.C(colStatus).Eq(string(stock.LoanActive)),
			goqu.C(colDueDate).Lt(dateLiteral(today)),
		))
}

/*** inventory ***/

func (b sqlBuilder) selectOpenSession() (string, error) {
	return toSQL(dialect.From(b.t.sessions).
		Select(colID).
		Where(goqu.C(colStatus).Eq(string(stock.SessionInProgress))).
		Limit(1))
}

func (b sqlBuilder) selectSession(sessionID uuid.UUID, lock bool) (string, error) {
	ds := dialect.From(b.t.sessions).Select(sessionColumns...).Where(goqu.C(colID).Eq(sessionID.String()))

	return toSQL(forUpdate(ds, lock))
}

func sessionRecord(session stock.InventorySession) goqu.Record {
	var endDate any
	if session.EndDate != nil {
		endDate = stock.ToTimestamp(*session.EndDate)
	}

	return goqu.Record{
		colName:        session.Name,
		colSessionType: string(session.Type),
		colStartDate:   stock.ToTimestamp(session.StartDate),
		colEndDate:     endDate,
		colStatus:      string(session.Status),
		colNotes:       session.Notes,
	}
}

func (b sqlBuilder) insertSession(session stock.InventorySession) (string, error) {
	record := sessionRecord(session)
	record[colID] = session.ID.String()

	return toSQL(dialect.Insert(b.t.sessions).Rows(record))
}

func (b sqlBuilder) updateSession(session stock.InventorySession) (string, error) {
	return toSQL(dialect.Update(b.t.sessions).Set(sessionRecord(session)).Where(goqu.C(colID).Eq(session.ID.String())))
}

func itemRecord(item stock.InventoryItem) goqu.Record {
	var found any
	if item.FoundQuantity != nil {
		found = *item.FoundQuantity
	}

	return goqu.Record{
		colSessionID:        item.SessionID.String(),
		colBookID:           item.BookID.String(),
		colExpectedQuantity: item.ExpectedQuantity,
		colFoundQuantity:    found,
		colStatus:           string(item.Status),
		colNotes:            item.Notes,
	}
}

func (b sqlBuilder) insertItems(items []stock.InventoryItem) (string, error) {
	rows := make([]any, 0, len(items))
	for _, item := range items {
		record := itemRecord(item)
		record[colID] = item.ID.String()
		rows = append(rows, record)
	}

	return toSQL(dialect.Insert(b.t.items).Rows(rows...))
}

func (b sqlBuilder) selectItem(itemID uuid.UUID, lock bool) (string, error) {
	ds := dialect.From(b.t.items).Select(itemColumns...).Where(goqu.C(colID).Eq(itemID.String()))

	return toSQL(forUpdate(ds, lock))
}

func (b sqlBuilder) updateItem(item stock.InventoryItem) (string, error) {
	return toSQL(dialect.Update(b.t.items).Set(itemRecord(item)).Where(goqu.C(colID).Eq(item.ID.String())))
}

func (b sqlBuilder) selectItems(sessionID uuid.UUID, status stock.ItemStatus) (string, error) {
	ds := dialect.From(b.t.items).Select(itemColumns...).Where(goqu.C(colSessionID).Eq(sessionID.String()))

	if status != "" {
		ds = ds.Where(goqu.C(colStatus).Eq(string(status)))
	}

	return toSQL(ds.Order(goqu.C(colID).Asc()))
}

func countWhereStatus(status stock.ItemStatus) exp.LiteralExpression {
	return goqu.L("COUNT(*) FILTER (WHERE ? = ?)", goqu.C(colStatus), string(status))
}

func (b sqlBuilder) selectSessionStats(sessionID uuid.UUID) (string, error) {
	return toSQL(dialect.From(b.t.items).
		Select(
			goqu.COUNT(goqu.Star()),
			countWhereStatus(stock.ItemChecked),
			countWhereStatus(stock.ItemDiscrepancy),
			countWhereStatus(stock.ItemPending),
		).
		Where(goqu.C(colSessionID).Eq(sessionID.String())))
}

/*** issues ***/

func issueRecord(issue stock.BookIssue) goqu.Record {
	record := goqu.Record{
		colBookID:          issue.BookID.String(),
		colIssueType:       string(issue.IssueType),
		colQuantity:        issue.Quantity,
		colBorrowerName:    nil,
		colLoanID:          nil,
		colNotes:           nil,
		colReportDate:      dateLiteral(issue.ReportDate),
		colStatus:          string(issue.Status),
		colResolutionNotes: nil,
		colResolvedAt:      nil,
	}

	if issue.BorrowerName != nil {
		record[colBorrowerName] = *issue.BorrowerName
	}

	if issue.LoanID != nil {
		record[colLoanID] = issue.LoanID.String()
	}

	if issue.Notes != nil {
		record[colNotes] = *issue.Notes
	}

	if issue.ResolutionNotes != nil {
		record[colResolutionNotes] = *issue.ResolutionNotes
	}

	if issue.ResolvedAt != nil {
		record[colResolvedAt] = stock.ToTimestamp(*issue.ResolvedAt)
	}

	return record
}

func (b sqlBuilder) insertIssue(issue stock.BookIssue) (string, error) {
	record := issueRecord(issue)
	record[colID] = issue.ID.String()

	return toSQL(dialect.Insert(b.t.issues).Rows(record))
}

func (b sqlBuilder) updateIssue(issue stock.BookIssue) (string, error) {
	return toSQL(dialect.Update(b.t.issues).Set(issueRecord(issue)).Where(goqu.C(colID).Eq(issue.ID.String())))
}

func (b sqlBuilder) selectIssue(issueID uuid.UUID, lock bool) (string, error) {
	ds := dialect.From(b.t.issues).Select(issueColumns...).Where(goqu.C(colID).Eq(issueID.String()))

	return toSQL(forUpdate(ds, lock))
}

func (b sqlBuilder) selectOpenIssues(bookID uuid.UUID) (string, error) {
	ds := dialect.From(b.t.issues).Select(issueColumns...).Where(goqu.C(colStatus).Eq(string(stock.IssueOpen)))

	if bookID != uuid.Nil {
		ds = ds.Where(goqu.C(colBookID).Eq(bookID.String()))
	}

	return toSQL(ds.Order(goqu.C(colReportDate).Asc(), goqu.C(colID).Asc()))
}
