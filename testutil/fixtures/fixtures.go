package fixtures

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/AntonStoeckl/shelfstock/stock"
)

// FakeToday is the pinned "now" of the service tests.
var FakeToday = time.Date(2025, time.March, 10, 14, 30, 0, 0, time.UTC)

// FakeClock always returns FakeToday.
func FakeClock() time.Time {
	return FakeToday
}

// GivenUniqueID returns a fresh time-ordered id.
func GivenUniqueID(t testing.TB) uuid.UUID {
	t.Helper()

	id, err := uuid.NewV7()
	require.NoError(t, err, "error in arranging test data")

	return id
}

// GivenBookInStore adds a book with the given number of copies, all on the shelf.
func GivenBookInStore(t testing.TB, ctx context.Context, store stock.Store, total int) stock.Book {
	t.Helper()

	book, err := stock.NewBook(GivenUniqueID(t), "Learning Domain-Driven Design", "Vlad Khononov", "978-1-098-10013-1", total)
	require.NoError(t, err, "error in arranging test data")
	require.NoError(t, store.AddBook(ctx, book), "error in arranging test data")

	return book
}

// GivenLoan builds an active loan of book to borrowerID, issued on FakeToday.
func GivenLoan(t testing.TB, bookID uuid.UUID, borrowerID string, dueInDays int) stock.Loan {
	t.Helper()

	request := stock.LoanRequest{
		BookID:       bookID,
		BorrowerType: stock.BorrowerParticipant,
		BorrowerID:   borrowerID,
		BorrowerName: "Reader " + borrowerID,
		DueDate:      FakeToday.AddDate(0, 0, dueInDays),
	}
	require.NoError(t, request.Validate(stock.ToDate(FakeToday)), "error in arranging test data")

	return stock.NewLoan(GivenUniqueID(t), request, stock.ToDate(FakeToday))
}

// GivenLoanInStore lends one copy of book inside a transaction, the way the circulation ledger does.
func GivenLoanInStore(t testing.TB, ctx context.Context, store stock.Store, loan stock.Loan) {
	t.Helper()

	err := store.WithinTx(ctx, func(ctx context.Context, tx stock.Tx) error {
		if _, err := tx.AdjustAvailable(ctx, loan.BookID, -1); err != nil {
			return err
		}

		return tx.InsertLoan(ctx, loan)
	})
	require.NoError(t, err, "error in arranging test data")
}
