package memoryengine

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/AntonStoeckl/shelfstock/stock"
)

var errDuplicateID = errors.New("duplicate id")

// memTx is the stock.Tx handed out by Store.WithinTx. It writes to the working copy of the state.
type memTx struct {
	st state
}

func (t memTx) LockBook(_ context.Context, bookID uuid.UUID) (stock.Book, error) {
	book, ok := t.st.Books[bookID]
	if !ok {
		return stock.Book{}, stock.ErrBookNotFound
	}

	return book, nil
}

func (t memTx) AdjustAvailable(ctx context.Context, bookID uuid.UUID, delta int) (stock.Book, error) {
	book, err := t.LockBook(ctx, bookID)
	if err != nil {
		return stock.Book{}, err
	}

	adjusted, err := book.AdjustAvailable(delta)
	if err != nil {
		return book, err
	}

	t.st.Books[bookID] = adjusted

	return adjusted, nil
}

func (t memTx) AdjustTotal(ctx context.Context, bookID uuid.UUID, deltaTotal, deltaAvailable int) (stock.Book, error) {
	book, err := t.LockBook(ctx, bookID)
	if err != nil {
		return stock.Book{}, err
	}

	adjusted, err := book.AdjustTotal(deltaTotal, deltaAvailable)
	if err != nil {
		return book, err
	}

	t.st.Books[bookID] = adjusted

	return adjusted, nil
}

func (t memTx) ListBooks(_ context.Context) ([]stock.Book, error) {
	return t.st.books(), nil
}

func (t memTx) CountOpenLoans(_ context.Context, borrowerType stock.BorrowerType, borrowerID string) (int, error) {
	return t.st.countOpenLoans(func(loan stock.Loan) bool {
		return loan.BorrowerType == borrowerType && loan.BorrowerID == borrowerID
	}), nil
}

func (t memTx) InsertLoan(_ context.Context, loan stock.Loan) error {
	if _, ok := t.st.Books[loan.BookID]; !ok {
		return stock.ErrBookNotFound
	}

	if _, ok := t.st.Loans[loan.ID]; ok {
		return errors.Join(stock.ErrExecutingFailed, fmt.Errorf("%w: loan %s", errDuplicateID, loan.ID))
	}

	t.st.Loans[loan.ID] = loan

	return nil
}

func (t memTx) LockLoan(_ context.Context, loanID uuid.UUID) (stock.Loan, error) {
	loan, ok := t.st.Loans[loanID]
	if !ok {
		return stock.Loan{}, stock.ErrLoanNotFound
	}

	return loan, nil
}

func (t memTx) UpdateLoan(_ context.Context, loan stock.Loan) error {
	if _, ok := t.st.Loans[loan.ID]; !ok {
		return stock.ErrLoanNotFound
	}

	t.st.Loans[loan.ID] = loan

	return nil
}

// DeleteLoan removes the loan and clears references to it from issues.
func (t memTx) DeleteLoan(_ context.Context, loanID uuid.UUID) error {
	if _, ok := t.st.Loans[loanID]; !ok {
		return stock.ErrLoanNotFound
	}

	delete(t.st.Loans, loanID)

	for id, issue := range t.st.Issues {
		if issue.LoanID != nil && *issue.LoanID == loanID {
			issue.LoanID = nil
			t.st.Issues[id] = issue
		}
	}

	return nil
}

func (t memTx) LastLoanForBook(_ context.Context, bookID uuid.UUID) (stock.Loan, bool, error) {
	filter, err := stock.BuildLoanFilter().ForBook(bookID).Limit(1).Finalize()
	if err != nil {
		return stock.Loan{}, false, err
	}

	loans := t.st.loans(filter)
	if len(loans) == 0 {
		return stock.Loan{}, false, nil
	}

	return loans[0], true, nil
}

func (t memTx) HasOpenSession(_ context.Context) (bool, error) {
	_, ok := t.st.openSession()
	return ok, nil
}

func (t memTx) InsertSession(_ context.Context, session stock.InventorySession, items []stock.InventoryItem) error {
	if _, ok := t.st.Sessions[session.ID]; ok {
		return errors.Join(stock.ErrExecutingFailed, fmt.Errorf("%w: inventory session %s", errDuplicateID, session.ID))
	}

	if _, open := t.st.openSession(); open && session.IsOpen() {
		return stock.ErrSessionAlreadyOpen
	}

	for _, item := range items {
		if _, ok := t.st.Books[item.BookID]; !ok {
			return stock.ErrBookNotFound
		}
	}

	t.st.Sessions[session.ID] = session
	for _, item := range items {
		t.st.Items[item.ID] = item
	}

	return nil
}

func (t memTx) LockSession(_ context.Context, sessionID uuid.UUID) (stock.InventorySession, error) {
	session, ok := t.st.Sessions[sessionID]
	if !ok {
		return stock.InventorySession{}, stock.ErrSessionNotFound
	}

	return session, nil
}

func (t memTx) UpdateSession(_ context.Context, session stock.InventorySession) error {
	if _, ok := t.st.Sessions[session.ID]; !ok {
		return stock.ErrSessionNotFound
	}

	t.st.Sessions[session.ID] = session

	return nil
}

func (t memTx) LockItem(_ context.Context, itemID uuid.UUID) (stock.InventoryItem, error) {
	item, ok := t.st.Items[itemID]
	if !ok {
		return stock.InventoryItem{}, stock.ErrItemNotFound
	}

	return item, nil
}

func (t memTx) UpdateItem(_ context.Context, item stock.InventoryItem) error {
	if _, ok := t.st.Items[item.ID]; !ok {
		return stock.ErrItemNotFound
	}

	t.st.Items[item.ID] = item

	return nil
}

func (t memTx) ListSessionItems(_ context.Context, sessionID uuid.UUID, status stock.ItemStatus) ([]stock.InventoryItem, error) {
	if _, ok := t.st.Sessions[sessionID]; !ok {
		return nil, stock.ErrSessionNotFound
	}

	return t.st.items(sessionID, status), nil
}

func (t memTx) InsertIssue(_ context.Context, issue stock.BookIssue) error {
	if _, ok := t.st.Books[issue.BookID]; !ok {
		return stock.ErrBookNotFound
	}

	if _, ok := t.st.Issues[issue.ID]; ok {
		return errors.Join(stock.ErrExecutingFailed, fmt.Errorf("%w: book issue %s", errDuplicateID, issue.ID))
	}

	t.st.Issues[issue.ID] = issue

	return nil
}

func (t memTx) LockIssue(_ context.Context, issueID uuid.UUID) (stock.BookIssue, error) {
	issue, ok := t.st.Issues[issueID]
	if !ok {
		return stock.BookIssue{}, stock.ErrIssueNotFound
	}

	return issue, nil
}

func (t memTx) UpdateIssue(_ context.Context, issue stock.BookIssue) error {
	if _, ok := t.st.Issues[issue.ID]; !ok {
		return stock.ErrIssueNotFound
	}

	t.st.Issues[issue.ID] = issue

	return nil
}

var _ stock.Tx = memTx{}
