package postgresengine

import (
	"context"
	"errors"
	"time"

	"github.com/doug-martin/goqu/v9"
	"github.com/google/uuid"

	"github.com/AntonStoeckl/shelfstock/stock"
	"github.com/AntonStoeckl/shelfstock/stock/postgresengine/internal/adapters"
)

// runner executes the store's statements on either the pool or an open transaction.
type runner struct {
	s *Store
	q adapters.DBQuerier
}

func queryAll[T any](ctx context.Context, r runner, table, sqlQuery string, scan scanFunc[T]) ([]T, error) {
	start := time.Now()

	rows, err := r.q.Query(ctx, sqlQuery)
	if err != nil {
		return nil, r.s.classify(err, stock.ErrQueryingFailed)
	}

	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			r.s.logWarn(ctx, logMsgCloseRowsFailed, closeErr, logAttrTable, table)
		}
	}()

	result := make([]T, 0)
	for rows.Next() {
		item, scanErr := scan(rows)
		if scanErr != nil {
			return nil, errors.Join(stock.ErrScanningDBRowFailed, scanErr)
		}

		result = append(result, item)
	}

	if err = rows.Err(); err != nil {
		return nil, r.s.classify(err, stock.ErrQueryingFailed)
	}

	r.s.logQueryWithDuration(ctx, sqlQuery, table, time.Since(start))

	return result, nil
}

func queryOne[T any](ctx context.Context, r runner, table, sqlQuery string, scan scanFunc[T], notFound error) (T, error) {
	var empty T

	result, err := queryAll(ctx, r, table, sqlQuery, scan)
	if err != nil {
		return empty, err
	}

	if len(result) == 0 {
		return empty, notFound
	}

	return result[0], nil
}

func (r runner) exec(ctx context.Context, table, sqlQuery string) (int64, error) {
	start := time.Now()

	result, err := r.q.Exec(ctx, sqlQuery)
	if err != nil {
		return 0, r.s.classify(err, stock.ErrExecutingFailed)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, errors.Join(stock.ErrGettingRowsAffectedFailed, err)
	}

	r.s.logQueryWithDuration(ctx, sqlQuery, table, time.Since(start))

	return rowsAffected, nil
}

// execOne runs a statement that must hit exactly one row.
func (r runner) execOne(ctx context.Context, table, sqlQuery string, notFound error) error {
	rowsAffected, err := r.exec(ctx, table, sqlQuery)
	if err != nil {
		return err
	}

	if rowsAffected == 0 {
		return notFound
	}

	return nil
}

/*** books ***/

func (r runner) getBook(ctx context.Context, bookID uuid.UUID, lock bool) (stock.Book, error) {
	sqlQuery, err := r.s.sql.selectBook(bookID, lock)
	if err != nil {
		return stock.Book{}, err
	}

	return queryOne(ctx, r, r.s.tables.books, sqlQuery, scanBook, stock.ErrBookNotFound)
}

func (r runner) listBooks(ctx context.Context) ([]stock.Book, error) {
	sqlQuery, err := r.s.sql.selectBooks()
	if err != nil {
		return nil, err
	}

	return queryAll(ctx, r, r.s.tables.books, sqlQuery, scanBook)
}

func (r runner) insertBook(ctx context.Context, book stock.Book) error {
	sqlQuery, err := r.s.sql.insertBook(book)
	if err != nil {
		return err
	}

	_, err = r.exec(ctx, r.s.tables.books, sqlQuery)

	return err
}

func (r runner) deleteBook(ctx context.Context, bookID uuid.UUID) error {
	sqlQuery, err := r.s.sql.deleteBook(bookID)
	if err != nil {
		return err
	}

	return r.execOne(ctx, r.s.tables.books, sqlQuery, stock.ErrBookNotFound)
}

// adjustAvailable runs the guarded UPDATE. When it hits no row, the book is read again to tell
// a missing book from a change that would break the invariant.
func (r runner) adjustAvailable(ctx context.Context, bookID uuid.UUID, delta int) (stock.Book, error) {
	sqlQuery, err := r.s.sql.adjustAvailable(bookID, delta)
	if err != nil {
		return stock.Book{}, err
	}

	book, err := queryOne(ctx, r, r.s.tables.books, sqlQuery, scanBook, errNoRowAffected)
	if !errors.Is(err, errNoRowAffected) {
		return book, err
	}

	current, err := r.getBook(ctx, bookID, false)
	if err != nil {
		return stock.Book{}, err
	}

	if _, err = current.AdjustAvailable(delta); err != nil {
		return current, err
	}

	return current, stock.ErrExecutingFailed
}

func (r runner) adjustTotal(ctx context.Context, bookID uuid.UUID, deltaTotal, deltaAvailable int) (stock.Book, error) {
	sqlQuery, err := r.s.sql.adjustTotal(bookID, deltaTotal, deltaAvailable)
	if err != nil {
		return stock.Book{}, err
	}

	return queryOne(ctx, r, r.s.tables.books, sqlQuery, scanBook, stock.ErrBookNotFound)
}

/*** loans ***/

func (r runner) getLoan(ctx context.Context, loanID uuid.UUID, lock bool) (stock.Loan, error) {
	sqlQuery, err := r.s.sql.selectLoan(loanID, lock)
	if err != nil {
		return stock.Loan{}, err
	}

	return queryOne(ctx, r, r.s.tables.loans, sqlQuery, scanLoan, stock.ErrLoanNotFound)
}

func (r runner) listLoans(ctx context.Context, filter stock.LoanFilter) ([]stock.Loan, error) {
	sqlQuery, err := r.s.sql.selectLoans(filter)
	if err != nil {
		return nil, err
	}

	return queryAll(ctx, r, r.s.tables.loans, sqlQuery, scanLoan)
}

func (r runner) lastLoanForBook(ctx context.Context, bookID uuid.UUID) (stock.Loan, bool, error) {
	sqlQuery, err := r.s.sql.selectLastLoanForBook(bookID)
	if err != nil {
		return stock.Loan{}, false, err
	}

	loans, err := queryAll(ctx, r, r.s.tables.loans, sqlQuery, scanLoan)
	if err != nil || len(loans) == 0 {
		return stock.Loan{}, false, err
	}

	return loans[0], true, nil
}

func (r runner) countOpenLoansOfBorrower(ctx context.Context, borrowerType stock.BorrowerType, borrowerID string) (int, error) {
	return r.countOpenLoans(ctx, goqu.Ex{colBorrowerType: string(borrowerType), colBorrowerID: borrowerID})
}

func (r runner) countOpenLoansOfBook(ctx context.Context, bookID uuid.UUID) (int, error) {
	return r.countOpenLoans(ctx, goqu.Ex{colBookID: bookID.String()})
}

func (r runner) countOpenLoans(ctx context.Context, match goqu.Ex) (int, error) {
	sqlQuery, err := r.s.sql.countOpenLoans(match)
	if err != nil {
		return 0, err
	}

	return queryOne(ctx, r, r.s.tables.loans, sqlQuery, scanInt, stock.ErrQueryingFailed)
}

func (r runner) insertLoan(ctx context.Context, loan stock.Loan) error {
	sqlQuery, err := r.s.sql.insertLoan(loan)
	if err != nil {
		return err
	}

	_, err = r.exec(ctx, r.s.tables.loans, sqlQuery)

	return err
}

func (r runner) updateLoan(ctx context.Context, loan stock.Loan) error {
	sqlQuery, err := r.s.sql.updateLoan(loan)
	if err != nil {
		return err
	}

	return r.execOne(ctx, r.s.tables.loans, sqlQuery, stock.ErrLoanNotFound)
}

func (r runner) deleteLoan(ctx context.Context, loanID uuid.UUID) error {
	sqlQuery, err := r.s.sql.deleteLoan(loanID)
	if err != nil {
		return err
	}

	return r.execOne(ctx, r.s.tables.loans, sqlQuery, stock.ErrLoanNotFound)
}

func (r runner) sweepOverdueLoans(ctx context.Context, today stock.Date) (int64, error) {
	sqlQuery, err := r.s.sql.sweepOverdueLoans(today)
	if err != nil {
		return 0, err
	}

	return r.exec(ctx, r.s.tables.loans, sqlQuery)
}

/*** inventory ***/

func (r runner) hasOpenSession(ctx context.Context) (bool, error) {
	sqlQuery, err := r.s.sql.selectOpenSession()
	if err != nil {
		return false, err
	}

	ids, err := queryAll(ctx, r, r.s.tables.sessions, sqlQuery, scanID)

	return len(ids) > 0, err
}

func (r runner) insertSession(ctx context.Context, session stock.InventorySession, items []stock.InventoryItem) error {
	sqlQuery, err := r.s.sql.insertSession(session)
	if err != nil {
		return err
	}

	if _, err = r.exec(ctx, r.s.tables.sessions, sqlQuery); err != nil {
		return err
	}

	if len(items) == 0 {
		return nil
	}

	sqlQuery, err = r.s.sql.insertItems(items)
	if err != nil {
		return err
	}

	_, err = r.exec(ctx, r.s.tables.items, sqlQuery)

	return err
}

func (r runner) getSession(ctx context.Context, sessionID uuid.UUID, lock bool) (stock.InventorySession, error) {
	sqlQuery, err := r.s.sql.selectSession(sessionID, lock)
	if err != nil {
		return stock.InventorySession{}, err
	}

	return queryOne(ctx, r, r.s.tables.sessions, sqlQuery, scanSession, stock.ErrSessionNotFound)
}

func (r runner) updateSession(ctx context.Context, session stock.InventorySession) error {
	sqlQuery, err := r.s.sql.updateSession(session)
	if err != nil {
		return err
	}

	return r.execOne(ctx, r.s.tables.sessions, sqlQuery, stock.ErrSessionNotFound)
}

func (r runner) getItem(ctx context.Context, itemID uuid.UUID, lock bool) (stock.InventoryItem, error) {
	sqlQuery, err := r.s.sql.selectItem(itemID, lock)
	if err != nil {
		return stock.InventoryItem{}, err
	}

	return queryOne(ctx, r, r.s.tables.items, sqlQuery, scanItem, stock.ErrItemNotFound)
}

func (r runner) updateItem(ctx context.Context, item stock.InventoryItem) error {
	sqlQuery, err := r.s.sql.updateItem(item)
	if err != nil {
		return err
	}

	return r.execOne(ctx, r.s.tables.items, sqlQuery, stock.ErrItemNotFound)
}

func (r runner) listItems(ctx context.Context, sessionID uuid.UUID, status stock.ItemStatus) ([]stock.InventoryItem, error) {
	sqlQuery, err := r.s.sql.selectItems(sessionID, status)
	if err != nil {
		return nil, err
	}

	return queryAll(ctx, r, r.s.tables.items, sqlQuery, scanItem)
}

func (r runner) sessionStats(ctx context.Context, sessionID uuid.UUID) (stock.InventoryStats, error) {
	sqlQuery, err := r.s.sql.selectSessionStats(sessionID)
	if err != nil {
		return stock.InventoryStats{}, err
	}

	return queryOne(ctx, r, r.s.tables.items, sqlQuery, scanStats, stock.ErrQueryingFailed)
}

/*** issues ***/

func (r runner) insertIssue(ctx context.Context, issue stock.BookIssue) error {
	sqlQuery, err := r.s.sql.insertIssue(issue)
	if err != nil {
		return err
	}

	_, err = r.exec(ctx, r.s.tables.issues, sqlQuery)

	return err
}

func (r runner) getIssue(ctx context.Context, issueID uuid.UUID, lock bool) (stock.BookIssue, error) {
	sqlQuery, err := r.s.sql.selectIssue(issueID, lock)
	if err != nil {
		return stock.BookIssue{}, err
	}

	return queryOne(ctx, r, r.s.tables.issues, sqlQuery, scanIssue, stock.ErrIssueNotFound)
}

func (r runner) updateIssue(ctx context.Context, issue stock.BookIssue) error {
	sqlQuery, err := r.s.sql.updateIssue(issue)
	if err != nil {
		return err
	}

	return r.execOne(ctx, r.s.tables.issues, sqlQuery, stock.ErrIssueNotFound)
}

func (r runner) listOpenIssues(ctx context.Context, bookID uuid.UUID) ([]stock.BookIssue, error) {
	sqlQuery, err := r.s.sql.selectOpenIssues(bookID)
	if err != nil {
		return nil, err
	}

	return queryAll(ctx, r, r.s.tables.issues, sqlQuery, scanIssue)
}

var errNoRowAffected = errors.New("no row affected")
