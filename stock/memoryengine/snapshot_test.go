package memoryengine_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AntonStoeckl/shelfstock/stock"
	"github.com/AntonStoeckl/shelfstock/stock/memoryengine"
	"github.com/AntonStoeckl/shelfstock/testutil/fixtures"
)

func Test_SnapshotFile_SurvivesRestart(t *testing.T) {
	// arrange
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "shelfstock.json")

	store, err := memoryengine.NewStore(memoryengine.WithSnapshotFile(path))
	require.NoError(t, err)
	book := fixtures.GivenBookInStore(t, ctx, store, 2)
	loan := fixtures.GivenLoan(t, book.ID, "p-1", 14)
	fixtures.GivenLoanInStore(t, ctx, store, loan)

	// act
	restarted, err := memoryengine.NewStore(memoryengine.WithSnapshotFile(path))

	// assert
	require.NoError(t, err)

	loadedBook, err := restarted.GetBook(ctx, book.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, loadedBook.AvailableCopies)
	assert.Equal(t, 2, loadedBook.TotalQuantity)

	loadedLoan, err := restarted.GetLoan(ctx, loan.ID)
	require.NoError(t, err)
	assert.Equal(t, loan, loadedLoan)
}

func Test_SnapshotFile_FailedTxLeavesFileUntouched(t *testing.T) {
	// arrange
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "shelfstock.json")
	store, err := memoryengine.NewStore(memoryengine.WithSnapshotFile(path))
	require.NoError(t, err)
	book := fixtures.GivenBookInStore(t, ctx, store, 1)
	before, err := os.ReadFile(path)
	require.NoError(t, err)

	// act
	err = store.WithinTx(ctx, func(ctx context.Context, tx stock.Tx) error {
		if _, err := tx.AdjustAvailable(ctx, book.ID, -1); err != nil {
			return err
		}
		return errors.New("boom")
	})

	// assert
	require.Error(t, err)
	after, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, before, after)

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "no temporary files must be left behind")
}

func Test_SnapshotFile_Corrupt_ShouldFail(t *testing.T) {
	path := filepath.Join(t.TempDir(), "shelfstock.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))

	store, err := memoryengine.NewStore(memoryengine.WithSnapshotFile(path))

	assert.ErrorIs(t, err, stock.ErrLoadingSnapshotFailed)
	assert.Nil(t, store)
}

func Test_SnapshotFile_Missing_StartsEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "does-not-exist.json")

	store, err := memoryengine.NewStore(memoryengine.WithSnapshotFile(path))
	require.NoError(t, err)

	books, err := store.ListBooks(context.Background())
	require.NoError(t, err)
	assert.Empty(t, books)
}

func Test_WithSnapshotFile_Empty_ShouldFail(t *testing.T) {
	store, err := memoryengine.NewStore(memoryengine.WithSnapshotFile("  "))

	assert.ErrorIs(t, err, memoryengine.ErrEmptySnapshotFile)
	assert.Nil(t, store)
}

func Test_SnapshotFile_MissingDirectory_ShouldFail(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing-dir", "shelfstock.json")

	store, err := memoryengine.NewStore(memoryengine.WithSnapshotFile(path))

	assert.ErrorIs(t, err, stock.ErrLockingSnapshotFailed)
	assert.Nil(t, store)
}

func Test_SnapshotFile_StoresSharingAFileSeeEachOthersCommits(t *testing.T) {
	// arrange
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "shelfstock.json")
	first, err := memoryengine.NewStore(memoryengine.WithSnapshotFile(path))
	require.NoError(t, err)
	second, err := memoryengine.NewStore(memoryengine.WithSnapshotFile(path))
	require.NoError(t, err)

	book := fixtures.GivenBookInStore(t, ctx, first, 1)
	loan := fixtures.GivenLoan(t, book.ID, "p-1", 14)
	fixtures.GivenLoanInStore(t, ctx, first, loan)

	// act
	err = second.WithinTx(ctx, func(ctx context.Context, tx stock.Tx) error {
		_, err := tx.AdjustAvailable(ctx, book.ID, -1)
		return err
	})

	// assert
	assert.ErrorIs(t, err, stock.ErrInvariantViolation)

	restarted, err := memoryengine.NewStore(memoryengine.WithSnapshotFile(path))
	require.NoError(t, err)

	loadedBook, err := restarted.GetBook(ctx, book.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, loadedBook.AvailableCopies)

	loadedLoan, err := second.GetLoan(ctx, loan.ID)
	require.NoError(t, err)
	assert.Equal(t, loan.ID, loadedLoan.ID)
}

func Test_SnapshotFile_ConcurrentStoresNeverOversell(t *testing.T) {
	// arrange
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "shelfstock.json")
	stores := make([]*memoryengine.Store, 4)
	for i := range stores {
		store, err := memoryengine.NewStore(memoryengine.WithSnapshotFile(path))
		require.NoError(t, err)
		stores[i] = store
	}

	book := fixtures.GivenBookInStore(t, ctx, stores[0], 1)
	loans := make([]stock.Loan, 8)
	for i := range loans {
		loans[i] = fixtures.GivenLoan(t, book.ID, "p-1", 14)
	}

	// act
	var wg sync.WaitGroup
	var succeeded atomic.Int32
	for i, loan := range loans {
		wg.Add(1)
		go func(store *memoryengine.Store) {
			defer wg.Done()

			err := store.WithinTx(ctx, func(ctx context.Context, tx stock.Tx) error {
				if _, err := tx.AdjustAvailable(ctx, book.ID, -1); err != nil {
					return err
				}
				return tx.InsertLoan(ctx, loan)
			})
			if err == nil {
				succeeded.Add(1)
			}
		}(stores[i%len(stores)])
	}
	wg.Wait()

	// assert
	assert.Equal(t, int32(1), succeeded.Load())

	restarted, err := memoryengine.NewStore(memoryengine.WithSnapshotFile(path))
	require.NoError(t, err)

	stored, err := restarted.ListLoans(ctx, stock.LoanFilter{})
	require.NoError(t, err)
	assert.Len(t, stored, 1)
}
