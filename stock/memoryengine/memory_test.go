package memoryengine_test

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AntonStoeckl/shelfstock/stock"
	"github.com/AntonStoeckl/shelfstock/stock/memoryengine"
	"github.com/AntonStoeckl/shelfstock/testutil/fixtures"
	"github.com/AntonStoeckl/shelfstock/testutil/observability/testdoubles"
)

func Test_AddBook_ThenGetBook(t *testing.T) {
	// arrange
	ctx := context.Background()
	store := givenStore(t)
	book := fixtures.GivenBookInStore(t, ctx, store, 2)

	// act
	loaded, err := store.GetBook(ctx, book.ID)

	// assert
	require.NoError(t, err)
	assert.Equal(t, book, loaded)
	assert.ErrorIs(t, store.AddBook(ctx, book), stock.ErrBookAlreadyExists)
}

func Test_AddBook_BrokenInvariant_ShouldFail(t *testing.T) {
	store := givenStore(t)

	err := store.AddBook(context.Background(), stock.Book{ID: uuid.New(), TotalQuantity: 1, AvailableCopies: 2})

	assert.ErrorIs(t, err, stock.ErrInvariantViolation)
}

func Test_WithinTx_RollsBackOnError(t *testing.T) {
	// arrange
	ctx := context.Background()
	store := givenStore(t)
	book := fixtures.GivenBookInStore(t, ctx, store, 2)
	loan := fixtures.GivenLoan(t, book.ID, "p-1", 14)
	boom := errors.New("boom")

	// act
	err := store.WithinTx(ctx, func(ctx context.Context, tx stock.Tx) error {
		if _, err := tx.AdjustAvailable(ctx, book.ID, -1); err != nil {
			return err
		}
		if err := tx.InsertLoan(ctx, loan); err != nil {
			return err
		}
		return boom
	})

	// assert
	assert.ErrorIs(t, err, boom)

	loaded, err := store.GetBook(ctx, book.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, loaded.AvailableCopies)

	_, err = store.GetLoan(ctx, loan.ID)
	assert.ErrorIs(t, err, stock.ErrLoanNotFound)
}

func Test_AdjustAvailable_KeepsStockInvariant(t *testing.T) {
	// arrange
	ctx := context.Background()
	store := givenStore(t)
	book := fixtures.GivenBookInStore(t, ctx, store, 1)

	// act
	err := store.WithinTx(ctx, func(ctx context.Context, tx stock.Tx) error {
		if _, err := tx.AdjustAvailable(ctx, book.ID, -1); err != nil {
			return err
		}
		_, err := tx.AdjustAvailable(ctx, book.ID, -1)
		return err
	})

	// assert
	assert.ErrorIs(t, err, stock.ErrInvariantViolation)

	loaded, err := store.GetBook(ctx, book.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, loaded.AvailableCopies)
}

func Test_AdjustTotal_FloorsAtZero(t *testing.T) {
	ctx := context.Background()
	store := givenStore(t)
	book := fixtures.GivenBookInStore(t, ctx, store, 2)

	var adjusted stock.Book
	err := store.WithinTx(ctx, func(ctx context.Context, tx stock.Tx) error {
		var err error
		adjusted, err = tx.AdjustTotal(ctx, book.ID, -5, -5)
		return err
	})

	require.NoError(t, err)
	assert.Equal(t, 0, adjusted.TotalQuantity)
	assert.Equal(t, 0, adjusted.AvailableCopies)
}

func Test_WithinTx_CanceledContext_ShouldFail(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	store := givenStore(t)
	called := false

	err := store.WithinTx(ctx, func(_ context.Context, _ stock.Tx) error {
		called = true
		return nil
	})

	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, called)
}

func Test_InsertSession_SecondOpenSession_ShouldFail(t *testing.T) {
	// arrange
	ctx := context.Background()
	store := givenStore(t)
	fixtures.GivenBookInStore(t, ctx, store, 1)
	first := givenSessionRecord(t, "first")
	second := givenSessionRecord(t, "second")
	require.NoError(t, store.WithinTx(ctx, func(ctx context.Context, tx stock.Tx) error {
		return tx.InsertSession(ctx, first, nil)
	}))

	// act
	err := store.WithinTx(ctx, func(ctx context.Context, tx stock.Tx) error {
		return tx.InsertSession(ctx, second, nil)
	})

	// assert
	assert.ErrorIs(t, err, stock.ErrSessionAlreadyOpen)
}

func Test_SweepOverdueLoans_IsIdempotent(t *testing.T) {
	// arrange
	ctx := context.Background()
	store := givenStore(t)
	book := fixtures.GivenBookInStore(t, ctx, store, 2)

	pastDue := fixtures.GivenLoan(t, book.ID, "p-1", 0)
	pastDue.DueDate = stock.ToDate(fixtures.FakeToday.AddDate(0, 0, -1))
	fixtures.GivenLoanInStore(t, ctx, store, pastDue)
	dueToday := fixtures.GivenLoan(t, book.ID, "p-2", 0)
	fixtures.GivenLoanInStore(t, ctx, store, dueToday)

	// act
	flagged, err := store.SweepOverdueLoans(ctx, fixtures.FakeToday)
	require.NoError(t, err)
	flaggedAgain, err := store.SweepOverdueLoans(ctx, fixtures.FakeToday)
	require.NoError(t, err)

	// assert
	assert.Equal(t, int64(1), flagged)
	assert.Equal(t, int64(0), flaggedAgain)

	loaded, err := store.GetLoan(ctx, pastDue.ID)
	require.NoError(t, err)
	assert.Equal(t, stock.LoanOverdue, loaded.Status)

	loaded, err = store.GetLoan(ctx, dueToday.ID)
	require.NoError(t, err)
	assert.Equal(t, stock.LoanActive, loaded.Status)

	reloaded, err := store.GetBook(ctx, book.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, reloaded.AvailableCopies)
}

func Test_ListLoans_NewestFirstWithLimit(t *testing.T) {
	// arrange
	ctx := context.Background()
	store := givenStore(t)
	book := fixtures.GivenBookInStore(t, ctx, store, 3)

	older := fixtures.GivenLoan(t, book.ID, "p-1", 7)
	older.LoanDate = stock.ToDate(fixtures.FakeToday.AddDate(0, 0, -3))
	newer := fixtures.GivenLoan(t, book.ID, "p-1", 7)
	other := fixtures.GivenLoan(t, book.ID, "p-2", 7)
	for _, loan := range []stock.Loan{older, newer, other} {
		fixtures.GivenLoanInStore(t, ctx, store, loan)
	}

	filter, err := stock.BuildLoanFilter().ForBorrower("p-1").Limit(1).Finalize()
	require.NoError(t, err)

	// act
	loans, err := store.ListLoans(ctx, filter)

	// assert
	require.NoError(t, err)
	require.Len(t, loans, 1)
	assert.Equal(t, newer.ID, loans[0].ID)
}

func Test_RemoveBook(t *testing.T) {
	// arrange
	ctx := context.Background()
	store := givenStore(t)
	book := fixtures.GivenBookInStore(t, ctx, store, 1)
	loan := fixtures.GivenLoan(t, book.ID, "p-1", 7)
	fixtures.GivenLoanInStore(t, ctx, store, loan)

	// act & assert
	assert.ErrorIs(t, store.RemoveBook(ctx, book.ID), stock.ErrBookHasOpenLoans)

	require.NoError(t, store.WithinTx(ctx, func(ctx context.Context, tx stock.Tx) error {
		returned, err := loan.Return(stock.ToDate(fixtures.FakeToday))
		if err != nil {
			return err
		}
		if _, err = tx.AdjustAvailable(ctx, book.ID, 1); err != nil {
			return err
		}
		return tx.UpdateLoan(ctx, returned)
	}))

	require.NoError(t, store.RemoveBook(ctx, book.ID))

	exists, err := store.BookExists(ctx, book.ID)
	require.NoError(t, err)
	assert.False(t, exists)

	_, err = store.GetLoan(ctx, loan.ID)
	assert.ErrorIs(t, err, stock.ErrLoanNotFound)
	assert.ErrorIs(t, store.RemoveBook(ctx, book.ID), stock.ErrBookNotFound)
}

func Test_DeleteLoan_UnlinksIssues(t *testing.T) {
	// arrange
	ctx := context.Background()
	store := givenStore(t)
	book := fixtures.GivenBookInStore(t, ctx, store, 1)
	loan := fixtures.GivenLoan(t, book.ID, "p-1", 7)
	fixtures.GivenLoanInStore(t, ctx, store, loan)
	issue := stock.NewBookIssue(uuid.New(), stock.IssueReport{
		BookID:    book.ID,
		IssueType: stock.IssueTorn,
		Quantity:  1,
		LoanID:    &loan.ID,
	}, stock.ToDate(fixtures.FakeToday))

	require.NoError(t, store.WithinTx(ctx, func(ctx context.Context, tx stock.Tx) error {
		return tx.InsertIssue(ctx, issue)
	}))

	// act
	err := store.WithinTx(ctx, func(ctx context.Context, tx stock.Tx) error {
		return tx.DeleteLoan(ctx, loan.ID)
	})

	// assert
	require.NoError(t, err)
	loaded, err := store.GetIssue(ctx, issue.ID)
	require.NoError(t, err)
	assert.Nil(t, loaded.LoanID)
}

func Test_InsertIssue_UnknownBook_ShouldFail(t *testing.T) {
	store := givenStore(t)
	issue := stock.NewBookIssue(uuid.New(), stock.IssueReport{
		BookID:    uuid.New(),
		IssueType: stock.IssueLost,
		Quantity:  1,
	}, stock.ToDate(fixtures.FakeToday))

	err := store.WithinTx(context.Background(), func(ctx context.Context, tx stock.Tx) error {
		return tx.InsertIssue(ctx, issue)
	})

	assert.ErrorIs(t, err, stock.ErrBookNotFound)
}

func Test_SessionStats_UnknownSession_ShouldFail(t *testing.T) {
	store := givenStore(t)

	_, err := store.SessionStats(context.Background(), uuid.New())

	assert.ErrorIs(t, err, stock.ErrSessionNotFound)
}

func Test_SweepOverdueLoans_LogsFlaggedCount(t *testing.T) {
	// arrange
	ctx := context.Background()
	logger := testdoubles.NewContextualLoggerSpy(true)
	store, err := memoryengine.NewStore(memoryengine.WithContextualLogger(logger))
	require.NoError(t, err)
	book := fixtures.GivenBookInStore(t, ctx, store, 1)
	loan := fixtures.GivenLoan(t, book.ID, "p-1", 0)
	loan.DueDate = stock.ToDate(fixtures.FakeToday.AddDate(0, 0, -1))
	fixtures.GivenLoanInStore(t, ctx, store, loan)

	// act
	_, err = store.SweepOverdueLoans(ctx, fixtures.FakeToday)

	// assert
	require.NoError(t, err)
	assert.True(t, logger.HasInfoLog("loans flagged overdue"))
}

func givenStore(t *testing.T) *memoryengine.Store {
	t.Helper()

	store, err := memoryengine.NewStore()
	require.NoError(t, err, "error in arranging test data")

	return store
}

func givenSessionRecord(t *testing.T, name string) stock.InventorySession {
	t.Helper()

	session, _ := stock.NewInventorySession(
		fixtures.GivenUniqueID(t),
		stock.SessionRequest{Name: name, Type: stock.SessionAdhoc},
		nil,
		fixtures.FakeToday,
		uuid.New,
	)

	return session
}
