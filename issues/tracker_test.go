package issues_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AntonStoeckl/shelfstock/issues"
	"github.com/AntonStoeckl/shelfstock/shell"
	"github.com/AntonStoeckl/shelfstock/stock"
	"github.com/AntonStoeckl/shelfstock/stock/memoryengine"
	"github.com/AntonStoeckl/shelfstock/testutil/fixtures"
	"github.com/AntonStoeckl/shelfstock/testutil/observability/testdoubles"
)

func Test_ResolveIssue_WriteOffLostLentCopy(t *testing.T) {
	// arrange
	ctx := context.Background()
	store := givenMemoryStore(t)
	tracker := issues.NewTracker(store, issues.WithClock(fixtures.FakeClock))
	book := fixtures.GivenBookInStore(t, ctx, store, 2)
	loan := fixtures.GivenLoan(t, book.ID, "p-1", 14)
	fixtures.GivenLoanInStore(t, ctx, store, loan)
	require.Equal(t, 1, givenStoredBook(t, ctx, store, book.ID).AvailableCopies)

	reported, err := tracker.ReportIssue(ctx, stock.IssueReport{BookID: book.ID, IssueType: stock.IssueLost, Quantity: 1})
	require.NoError(t, err)

	// act
	resolved, err := tracker.ResolveIssue(ctx, reported.ID, stock.Resolution{
		Outcome:         stock.IssueWrittenOff,
		ResolutionNotes: "gone for good",
		AdjustQuantity:  true,
	})

	// assert
	require.NoError(t, err)
	assert.Equal(t, stock.IssueWrittenOff, resolved.Status)
	require.NotNil(t, resolved.ResolutionNotes)
	assert.Equal(t, "gone for good", *resolved.ResolutionNotes)
	require.NotNil(t, resolved.ResolvedAt)
	assert.Equal(t, stock.ToTimestamp(fixtures.FakeToday), *resolved.ResolvedAt)

	written := givenStoredBook(t, ctx, store, book.ID)
	assert.Equal(t, 1, written.TotalQuantity)
	assert.Equal(t, 0, written.AvailableCopies)
}

func Test_ResolveIssue_WriteOffClosesReferencedLoan(t *testing.T) {
	// arrange
	ctx := context.Background()
	store := givenMemoryStore(t)
	tracker := issues.NewTracker(store, issues.WithClock(fixtures.FakeClock))
	book := fixtures.GivenBookInStore(t, ctx, store, 1)
	loan := fixtures.GivenLoan(t, book.ID, "p-1", 14)
	fixtures.GivenLoanInStore(t, ctx, store, loan)

	reported, err := tracker.ReportIssue(ctx, stock.IssueReport{BookID: book.ID, IssueType: stock.IssueLost, Quantity: 1, LoanID: &loan.ID})
	require.NoError(t, err)

	// act
	_, err = tracker.ResolveIssue(ctx, reported.ID, stock.Resolution{Outcome: stock.IssueWrittenOff, AdjustQuantity: true})

	// assert
	require.NoError(t, err)

	written := givenStoredBook(t, ctx, store, book.ID)
	assert.Equal(t, 0, written.TotalQuantity)
	assert.Equal(t, 0, written.AvailableCopies)

	closed, err := store.GetLoan(ctx, loan.ID)
	require.NoError(t, err)
	assert.Equal(t, stock.LoanReturned, closed.Status)
	require.NotNil(t, closed.ReturnDate)
	assert.Equal(t, stock.ToDate(fixtures.FakeToday), *closed.ReturnDate)
}

func Test_ResolveIssue_ResolvedKeepsReferencedLoanOpen(t *testing.T) {
	// arrange
	ctx := context.Background()
	store := givenMemoryStore(t)
	tracker := issues.NewTracker(store, issues.WithClock(fixtures.FakeClock))
	book := fixtures.GivenBookInStore(t, ctx, store, 1)
	loan := fixtures.GivenLoan(t, book.ID, "p-1", 14)
	fixtures.GivenLoanInStore(t, ctx, store, loan)

	reported, err := tracker.ReportIssue(ctx, stock.IssueReport{BookID: book.ID, IssueType: stock.IssueTorn, Quantity: 1, LoanID: &loan.ID})
	require.NoError(t, err)

	// act
	_, err = tracker.ResolveIssue(ctx, reported.ID, stock.Resolution{Outcome: stock.IssueResolved})

	// assert
	require.NoError(t, err)

	stillOpen, err := store.GetLoan(ctx, loan.ID)
	require.NoError(t, err)
	assert.True(t, stillOpen.IsOpen())
}

func Test_ResolveIssue_StockEffectPerOutcome(t *testing.T) {
	testCases := []struct {
		name              string
		total             int
		quantity          int
		resolution        stock.Resolution
		expectedTotal     int
		expectedAvailable int
	}{
		{
			name:              "resolved leaves stock alone",
			total:             3,
			quantity:          1,
			resolution:        stock.Resolution{Outcome: stock.IssueResolved, AdjustQuantity: true},
			expectedTotal:     3,
			expectedAvailable: 3,
		},
		{
			name:              "written off without adjusting",
			total:             3,
			quantity:          1,
			resolution:        stock.Resolution{Outcome: stock.IssueWrittenOff},
			expectedTotal:     3,
			expectedAvailable: 3,
		},
		{
			name:              "written off with adjusting",
			total:             3,
			quantity:          2,
			resolution:        stock.Resolution{Outcome: stock.IssueWrittenOff, AdjustQuantity: true},
			expectedTotal:     1,
			expectedAvailable: 1,
		},
		{
			name:              "written off more than owned",
			total:             2,
			quantity:          5,
			resolution:        stock.Resolution{Outcome: stock.IssueWrittenOff, AdjustQuantity: true},
			expectedTotal:     0,
			expectedAvailable: 0,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			// arrange
			ctx := context.Background()
			store := givenMemoryStore(t)
			tracker := issues.NewTracker(store, issues.WithClock(fixtures.FakeClock))
			book := fixtures.GivenBookInStore(t, ctx, store, tc.total)
			reported, err := tracker.ReportIssue(ctx, stock.IssueReport{BookID: book.ID, IssueType: stock.IssueDamaged, Quantity: tc.quantity})
			require.NoError(t, err)

			// act
			resolved, err := tracker.ResolveIssue(ctx, reported.ID, tc.resolution)

			// assert
			require.NoError(t, err)
			assert.Equal(t, tc.resolution.Outcome, resolved.Status)

			stored := givenStoredBook(t, ctx, store, book.ID)
			assert.Equal(t, tc.expectedTotal, stored.TotalQuantity)
			assert.Equal(t, tc.expectedAvailable, stored.AvailableCopies)
		})
	}
}

func Test_ResolveIssue_Rejections(t *testing.T) {
	// arrange
	ctx := context.Background()
	store := givenMemoryStore(t)
	tracker := issues.NewTracker(store, issues.WithClock(fixtures.FakeClock))
	book := fixtures.GivenBookInStore(t, ctx, store, 2)
	reported, err := tracker.ReportIssue(ctx, stock.IssueReport{BookID: book.ID, IssueType: stock.IssueTorn, Quantity: 1})
	require.NoError(t, err)
	writeOff := stock.Resolution{Outcome: stock.IssueWrittenOff, AdjustQuantity: true}

	// act
	_, invalidErr := tracker.ResolveIssue(ctx, reported.ID, stock.Resolution{Outcome: stock.IssueOpen})
	_, unknownErr := tracker.ResolveIssue(ctx, fixtures.GivenUniqueID(t), writeOff)
	_, err = tracker.ResolveIssue(ctx, reported.ID, writeOff)
	require.NoError(t, err)
	_, againErr := tracker.ResolveIssue(ctx, reported.ID, writeOff)

	// assert
	assert.ErrorIs(t, invalidErr, stock.ErrInvalidOutcome)
	assert.ErrorIs(t, unknownErr, stock.ErrIssueNotFound)
	assert.ErrorIs(t, againErr, stock.ErrAlreadyResolved)
	assert.Equal(t, 1, givenStoredBook(t, ctx, store, book.ID).TotalQuantity, "the second write-off must not apply")
}

func Test_ReportIssue_DoesNotTouchStock(t *testing.T) {
	// arrange
	ctx := context.Background()
	store := givenMemoryStore(t)
	tracker := issues.NewTracker(store, issues.WithClock(fixtures.FakeClock))
	book := fixtures.GivenBookInStore(t, ctx, store, 2)
	notes := "  water damage  "

	// act
	issue, err := tracker.ReportIssue(ctx, stock.IssueReport{
		BookID:    book.ID,
		IssueType: stock.IssueDamaged,
		Quantity:  2,
		Notes:     &notes,
	})

	// assert
	require.NoError(t, err)
	assert.Equal(t, stock.IssueOpen, issue.Status)
	assert.Equal(t, stock.ToDate(fixtures.FakeToday), issue.ReportDate)
	require.NotNil(t, issue.Notes)
	assert.Equal(t, "water damage", *issue.Notes)
	assert.Nil(t, issue.BorrowerName)
	assert.Nil(t, issue.LoanID)
	assert.Equal(t, book, givenStoredBook(t, ctx, store, book.ID))

	stored, err := tracker.GetIssue(ctx, issue.ID)
	require.NoError(t, err)
	assert.Equal(t, issue, stored)
}

func Test_ReportIssue_Rejections(t *testing.T) {
	ctx := context.Background()
	store := givenMemoryStore(t)
	tracker := issues.NewTracker(store, issues.WithClock(fixtures.FakeClock))
	book := fixtures.GivenBookInStore(t, ctx, store, 1)
	other := fixtures.GivenBookInStore(t, ctx, store, 1)
	loanOfOther := fixtures.GivenLoan(t, other.ID, "p-1", 14)
	fixtures.GivenLoanInStore(t, ctx, store, loanOfOther)
	unknownLoan := fixtures.GivenUniqueID(t)

	testCases := []struct {
		name        string
		report      stock.IssueReport
		expectedErr error
	}{
		{name: "zero quantity", report: stock.IssueReport{BookID: book.ID, IssueType: stock.IssueLost}, expectedErr: stock.ErrInvalidIssueQuantity},
		{name: "unknown type", report: stock.IssueReport{BookID: book.ID, IssueType: "stolen", Quantity: 1}, expectedErr: stock.ErrInvalidIssueType},
		{name: "unknown book", report: stock.IssueReport{BookID: fixtures.GivenUniqueID(t), IssueType: stock.IssueLost, Quantity: 1}, expectedErr: stock.ErrBookNotFound},
		{name: "unknown loan", report: stock.IssueReport{BookID: book.ID, IssueType: stock.IssueLost, Quantity: 1, LoanID: &unknownLoan}, expectedErr: stock.ErrLoanNotFound},
		{name: "loan of another book", report: stock.IssueReport{BookID: book.ID, IssueType: stock.IssueLost, Quantity: 1, LoanID: &loanOfOther.ID}, expectedErr: stock.ErrLoanOfOtherBook},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := tracker.ReportIssue(ctx, tc.report)

			assert.ErrorIs(t, err, tc.expectedErr)
		})
	}

	open, err := tracker.ListOpenIssues(ctx, uuid.Nil)
	require.NoError(t, err)
	assert.Empty(t, open)
}

func Test_ReportIssue_BorrowerFromReferencedLoan(t *testing.T) {
	// arrange
	ctx := context.Background()
	store := givenMemoryStore(t)
	tracker := issues.NewTracker(store, issues.WithClock(fixtures.FakeClock))
	book := fixtures.GivenBookInStore(t, ctx, store, 1)
	loan := fixtures.GivenLoan(t, book.ID, "p-7", 14)
	fixtures.GivenLoanInStore(t, ctx, store, loan)

	// act
	issue, err := tracker.ReportIssue(ctx, stock.IssueReport{BookID: book.ID, IssueType: stock.IssueTorn, Quantity: 1, LoanID: &loan.ID})

	// assert
	require.NoError(t, err)
	require.NotNil(t, issue.BorrowerName)
	assert.Equal(t, loan.BorrowerName, *issue.BorrowerName)
	require.NotNil(t, issue.LoanID)
	assert.Equal(t, loan.ID, *issue.LoanID)
}

func Test_ReportIssue_NotReturnedIsAttributedToLastBorrower(t *testing.T) {
	// arrange
	ctx := context.Background()
	store := givenMemoryStore(t)
	tracker := issues.NewTracker(store, issues.WithClock(fixtures.FakeClock))
	lent := fixtures.GivenBookInStore(t, ctx, store, 1)
	openLoan := fixtures.GivenLoan(t, lent.ID, "p-1", 14)
	fixtures.GivenLoanInStore(t, ctx, store, openLoan)
	neverLent := fixtures.GivenBookInStore(t, ctx, store, 1)
	explicitName := "Someone Else"

	// act
	attributed, attributedErr := tracker.ReportIssue(ctx, stock.IssueReport{BookID: lent.ID, IssueType: stock.IssueNotReturned, Quantity: 1})
	named, namedErr := tracker.ReportIssue(ctx, stock.IssueReport{BookID: lent.ID, IssueType: stock.IssueNotReturned, Quantity: 1, BorrowerName: &explicitName})
	anonymous, anonymousErr := tracker.ReportIssue(ctx, stock.IssueReport{BookID: neverLent.ID, IssueType: stock.IssueNotReturned, Quantity: 1})

	// assert
	require.NoError(t, attributedErr)
	require.NotNil(t, attributed.BorrowerName)
	assert.Equal(t, openLoan.BorrowerName, *attributed.BorrowerName)
	require.NotNil(t, attributed.LoanID)
	assert.Equal(t, openLoan.ID, *attributed.LoanID)

	require.NoError(t, namedErr)
	assert.Equal(t, explicitName, *named.BorrowerName)
	assert.Nil(t, named.LoanID)

	require.NoError(t, anonymousErr)
	assert.Nil(t, anonymous.BorrowerName)
	assert.Nil(t, anonymous.LoanID)
}

func Test_ReportIssue_NotReturnedAfterReturnKeepsNameOnly(t *testing.T) {
	// arrange
	ctx := context.Background()
	store := givenMemoryStore(t)
	tracker := issues.NewTracker(store, issues.WithClock(fixtures.FakeClock))
	book := fixtures.GivenBookInStore(t, ctx, store, 1)
	loan := fixtures.GivenLoan(t, book.ID, "p-1", 14)
	fixtures.GivenLoanInStore(t, ctx, store, loan)

	err := store.WithinTx(ctx, func(ctx context.Context, tx stock.Tx) error {
		returned, err := loan.Return(stock.ToDate(fixtures.FakeToday))
		if err != nil {
			return err
		}

		if _, err = tx.AdjustAvailable(ctx, book.ID, 1); err != nil {
			return err
		}

		return tx.UpdateLoan(ctx, returned)
	})
	require.NoError(t, err)

	// act
	issue, err := tracker.ReportIssue(ctx, stock.IssueReport{BookID: book.ID, IssueType: stock.IssueNotReturned, Quantity: 1})

	// assert
	require.NoError(t, err)
	require.NotNil(t, issue.BorrowerName)
	assert.Equal(t, loan.BorrowerName, *issue.BorrowerName)
	assert.Nil(t, issue.LoanID)
}

func Test_ReportShortfall(t *testing.T) {
	// arrange
	ctx := context.Background()
	store := givenMemoryStore(t)
	tracker := issues.NewTracker(store, issues.WithClock(fixtures.FakeClock))
	book := fixtures.GivenBookInStore(t, ctx, store, 3)
	item := givenCheckedItem(t, ctx, store, book, 1)

	// act
	issue, err := tracker.ReportShortfall(ctx, item.ID, stock.IssueLost)
	_, invalidTypeErr := tracker.ReportShortfall(ctx, item.ID, "stolen")
	_, unknownErr := tracker.ReportShortfall(ctx, fixtures.GivenUniqueID(t), stock.IssueLost)

	// assert
	require.NoError(t, err)
	assert.Equal(t, book.ID, issue.BookID)
	assert.Equal(t, stock.IssueLost, issue.IssueType)
	assert.Equal(t, 2, issue.Quantity)
	require.NotNil(t, issue.Notes)
	assert.Contains(t, *issue.Notes, "expected 3, found 1")
	assert.ErrorIs(t, invalidTypeErr, stock.ErrInvalidIssueType)
	assert.ErrorIs(t, unknownErr, stock.ErrItemNotFound)
}

func Test_ReportShortfall_NothingMissing(t *testing.T) {
	ctx := context.Background()
	store := givenMemoryStore(t)
	tracker := issues.NewTracker(store, issues.WithClock(fixtures.FakeClock))
	book := fixtures.GivenBookInStore(t, ctx, store, 2)
	item := givenCheckedItem(t, ctx, store, book, 2)

	_, err := tracker.ReportShortfall(ctx, item.ID, stock.IssueLost)

	assert.ErrorIs(t, err, stock.ErrItemHasNoShortfall)
}

func Test_ListOpenIssues(t *testing.T) {
	// arrange
	ctx := context.Background()
	store := givenMemoryStore(t)
	tracker := issues.NewTracker(store, issues.WithClock(fixtures.FakeClock))
	first := fixtures.GivenBookInStore(t, ctx, store, 2)
	second := fixtures.GivenBookInStore(t, ctx, store, 2)
	older := givenReportedIssue(t, ctx, tracker, first.ID)
	newer := givenReportedIssue(t, ctx, tracker, second.ID)
	resolved := givenReportedIssue(t, ctx, tracker, first.ID)
	_, err := tracker.ResolveIssue(ctx, resolved.ID, stock.Resolution{Outcome: stock.IssueResolved})
	require.NoError(t, err)

	// act
	all, allErr := tracker.ListOpenIssues(ctx, uuid.Nil)
	forFirst, forFirstErr := tracker.ListOpenIssues(ctx, first.ID)

	// assert
	require.NoError(t, allErr)
	require.NoError(t, forFirstErr)
	require.Len(t, all, 2)
	assert.Equal(t, older.ID, all[0].ID)
	assert.Equal(t, newer.ID, all[1].ID)
	require.Len(t, forFirst, 1)
	assert.Equal(t, older.ID, forFirst[0].ID)
}

func Test_Tracker_LogsWriteOff(t *testing.T) {
	// arrange
	ctx := context.Background()
	store := givenMemoryStore(t)
	logger := testdoubles.NewContextualLoggerSpy(true)
	tracker := issues.NewTracker(store,
		issues.WithClock(fixtures.FakeClock),
		issues.WithObserver(shell.NewObserver(shell.WithContextualLogger(logger))),
	)
	book := fixtures.GivenBookInStore(t, ctx, store, 1)
	issue := givenReportedIssue(t, ctx, tracker, book.ID)

	// act
	_, err := tracker.ResolveIssue(ctx, issue.ID, stock.Resolution{Outcome: stock.IssueWrittenOff, AdjustQuantity: true})

	// assert
	require.NoError(t, err)
	assert.True(t, logger.HasInfoLog(shell.LogMsgOperationStarted))
	assert.True(t, logger.HasInfoLog(shell.LogMsgOperationCompleted))
	assert.Empty(t, logger.GetRecords("error"))
}

func givenMemoryStore(t *testing.T) *memoryengine.Store {
	t.Helper()

	store, err := memoryengine.NewStore()
	require.NoError(t, err, "error in arranging test data")

	return store
}

func givenStoredBook(t *testing.T, ctx context.Context, store stock.Store, bookID uuid.UUID) stock.Book {
	t.Helper()

	book, err := store.GetBook(ctx, bookID)
	require.NoError(t, err)

	return book
}

func givenReportedIssue(t *testing.T, ctx context.Context, tracker issues.Tracker, bookID uuid.UUID) stock.BookIssue {
	t.Helper()

	issue, err := tracker.ReportIssue(ctx, stock.IssueReport{BookID: bookID, IssueType: stock.IssueDamaged, Quantity: 1})
	require.NoError(t, err, "error in arranging test data")

	return issue
}

// givenCheckedItem starts a session over the store's books and counts found copies of book.
func givenCheckedItem(t *testing.T, ctx context.Context, store stock.Store, book stock.Book, found int) stock.InventoryItem {
	t.Helper()

	session, items := stock.NewInventorySession(
		fixtures.GivenUniqueID(t),
		stock.SessionRequest{Name: "Spot check", Type: stock.SessionAdhoc},
		[]stock.Book{book},
		fixtures.FakeToday,
		shell.NewID,
	)

	checked, err := items[0].Check(session, found, "")
	require.NoError(t, err, "error in arranging test data")

	err = store.WithinTx(ctx, func(ctx context.Context, tx stock.Tx) error {
		if err := tx.InsertSession(ctx, session, items); err != nil {
			return err
		}

		return tx.UpdateItem(ctx, checked)
	})
	require.NoError(t, err, "error in arranging test data")

	return checked
}
