package postgresengine

import (
	"context"

	"github.com/google/uuid"

	"github.com/AntonStoeckl/shelfstock/stock"
)

// pgTx is the stock.Tx handed to the function passed to Store.WithinTx. Lock* methods use SELECT ... FOR UPDATE.
type pgTx struct {
	r runner
}

func (t pgTx) LockBook(ctx context.Context, bookID uuid.UUID) (stock.Book, error) {
	return t.r.getBook(ctx, bookID, true)
}

func (t pgTx) AdjustAvailable(ctx context.Context, bookID uuid.UUID, delta int) (stock.Book, error) {
	return t.r.adjustAvailable(ctx, bookID, delta)
}

func (t pgTx) AdjustTotal(ctx context.Context, bookID uuid.UUID, deltaTotal, deltaAvailable int) (stock.Book, error) {
	return t.r.adjustTotal(ctx, bookID, deltaTotal, deltaAvailable)
}

func (t pgTx) ListBooks(ctx context.Context) ([]stock.Book, error) {
	return t.r.listBooks(ctx)
}

func (t pgTx) CountOpenLoans(ctx context.Context, borrowerType stock.BorrowerType, borrowerID string) (int, error) {
	return t.r.countOpenLoansOfBorrower(ctx, borrowerType, borrowerID)
}

func (t pgTx) InsertLoan(ctx context.Context, loan stock.Loan) error {
	return t.r.insertLoan(ctx, loan)
}

func (t pgTx) LockLoan(ctx context.Context, loanID uuid.UUID) (stock.Loan, error) {
	return t.r.getLoan(ctx, loanID, true)
}

func (t pgTx) UpdateLoan(ctx context.Context, loan stock.Loan) error {
	return t.r.updateLoan(ctx, loan)
}

func (t pgTx) DeleteLoan(ctx context.Context, loanID uuid.UUID) error {
	return t.r.deleteLoan(ctx, loanID)
}

func (t pgTx) LastLoanForBook(ctx context.Context, bookID uuid.UUID) (stock.Loan, bool, error) {
	return t.r.lastLoanForBook(ctx, bookID)
}

func (t pgTx) HasOpenSession(ctx context.Context) (bool, error) {
	return t.r.hasOpenSession(ctx)
}

func (t pgTx) InsertSession(ctx context.Context, session stock.InventorySession, items []stock.InventoryItem) error {
	return t.r.insertSession(ctx, session, items)
}

func (t pgTx) LockSession(ctx context.Context, sessionID uuid.UUID) (stock.InventorySession, error) {
	return t.r.getSession(ctx, sessionID, true)
}

func (t pgTx) UpdateSession(ctx context.Context, session stock.InventorySession) error {
	return t.r.updateSession(ctx, session)
}

func (t pgTx) LockItem(ctx context.Context, itemID uuid.UUID) (stock.InventoryItem, error) {
	return t.r.getItem(ctx, itemID, true)
}

func (t pgTx) UpdateItem(ctx context.Context, item stock.InventoryItem) error {
	return t.r.updateItem(ctx, item)
}

func (t pgTx) ListSessionItems(ctx context.Context, sessionID uuid.UUID, status stock.ItemStatus) ([]stock.InventoryItem, error) {
	return t.r.listItems(ctx, sessionID, status)
}

func (t pgTx) InsertIssue(ctx context.Context, issue stock.BookIssue) error {
	return t.r.insertIssue(ctx, issue)
}

func (t pgTx) LockIssue(ctx context.Context, issueID uuid.UUID) (stock.BookIssue, error) {
	return t.r.getIssue(ctx, issueID, true)
}

func (t pgTx) UpdateIssue(ctx context.Context, issue stock.BookIssue) error {
	return t.r.updateIssue(ctx, issue)
}

var _ stock.Tx = pgTx{}
