package postgresengine_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AntonStoeckl/shelfstock/stock"
	"github.com/AntonStoeckl/shelfstock/testutil/fixtures"
	"github.com/AntonStoeckl/shelfstock/testutil/postgresengine/pgtesthelpers"
)

func Benchmark_LendAndReturn_OneCopy(b *testing.B) {
	// setup
	ctx := context.Background()
	store := pgtesthelpers.CreateWrapperWithTestConfig(b).GetStore()

	// arrange
	book := fixtures.GivenBookInStore(b, ctx, store, 1)
	var txTime time.Duration

	// act
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		start := time.Now()

		err := store.WithinTx(ctx, func(ctx context.Context, tx stock.Tx) error {
			_, err := tx.AdjustAvailable(ctx, book.ID, -1)
			return err
		})
		assert.NoError(b, err)

		err = store.WithinTx(ctx, func(ctx context.Context, tx stock.Tx) error {
			_, err := tx.AdjustAvailable(ctx, book.ID, 1)
			return err
		})
		assert.NoError(b, err)

		txTime += time.Since(start)
	}

	// assert
	b.StopTimer()
	loaded, err := store.GetBook(ctx, book.ID)
	require.NoError(b, err)
	assert.Equal(b, 1, loaded.AvailableCopies)

	b.ReportMetric(float64(txTime.Microseconds())/float64(b.N)/2, "µs/tx")
}

func Benchmark_SweepOverdueLoans(b *testing.B) {
	ctx := context.Background()
	store := pgtesthelpers.CreateWrapperWithTestConfig(b).GetStore()
	book := fixtures.GivenBookInStore(b, ctx, store, 50)

	for i := 0; i < 50; i++ {
		fixtures.GivenLoanInStore(b, ctx, store, fixtures.GivenLoan(b, book.ID, "p-bench", 0))
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, err := store.SweepOverdueLoans(ctx, fixtures.FakeToday)
		assert.NoError(b, err)
	}
}
