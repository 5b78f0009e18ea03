package stock_test

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AntonStoeckl/shelfstock/stock"
)

func Test_NewBook_StartsWithAllCopiesAvailable(t *testing.T) {
	// arrange
	id := uuid.New()

	// act
	book, err := stock.NewBook(id, "  Momo ", "Michael Ende", "978-3-522-20210-6", 3)

	// assert
	require.NoError(t, err)
	assert.Equal(t, id, book.ID)
	assert.Equal(t, "Momo", book.Title)
	assert.Equal(t, 3, book.TotalQuantity)
	assert.Equal(t, 3, book.AvailableCopies)
}

func Test_NewBook_Validation(t *testing.T) {
	testCases := []struct {
		name          string
		id            uuid.UUID
		title         string
		totalQuantity int
		expectedErr   error
	}{
		{name: "nil id", id: uuid.Nil, title: "Momo", totalQuantity: 1, expectedErr: stock.ErrNilID},
		{name: "blank title", id: uuid.New(), title: "   ", totalQuantity: 1, expectedErr: stock.ErrEmptyBookTitle},
		{name: "zero copies", id: uuid.New(), title: "Momo", totalQuantity: 0, expectedErr: stock.ErrInvalidTotalQuantity},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			// act
			_, err := stock.NewBook(tc.id, tc.title, "", "", tc.totalQuantity)

			// assert
			assert.ErrorIs(t, err, tc.expectedErr)
			assert.ErrorIs(t, err, stock.ErrValidation)
		})
	}
}

func Test_Book_AdjustAvailable(t *testing.T) {
	testCases := []struct {
		name              string
		available         int
		delta             int
		expectedAvailable int
		expectViolation   bool
	}{
		{name: "take one copy", available: 2, delta: -1, expectedAvailable: 1},
		{name: "take last copy", available: 1, delta: -1, expectedAvailable: 0},
		{name: "give copy back", available: 0, delta: 1, expectedAvailable: 1},
		{name: "below zero", available: 0, delta: -1, expectedAvailable: 0, expectViolation: true},
		{name: "above total", available: 2, delta: 1, expectedAvailable: 2, expectViolation: true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			// arrange
			book := givenBook(t, 2, tc.available)

			// act
			adjusted, err := book.AdjustAvailable(tc.delta)

			// assert
			if tc.expectViolation {
				assert.ErrorIs(t, err, stock.ErrInvariantViolation)
			} else {
				assert.NoError(t, err)
			}

			assert.Equal(t, tc.expectedAvailable, adjusted.AvailableCopies)
			assert.Equal(t, 2, adjusted.TotalQuantity)
		})
	}
}

func Test_Book_AdjustTotal_WriteOffFlooredAtZero(t *testing.T) {
	testCases := []struct {
		name              string
		total             int
		available         int
		quantity          int
		expectedTotal     int
		expectedAvailable int
	}{
		{name: "one lent copy lost", total: 2, available: 1, quantity: 1, expectedTotal: 1, expectedAvailable: 0},
		{name: "shelf copy damaged", total: 3, available: 3, quantity: 1, expectedTotal: 2, expectedAvailable: 2},
		{name: "more than owned", total: 2, available: 2, quantity: 5, expectedTotal: 0, expectedAvailable: 0},
		{name: "all copies lent", total: 2, available: 0, quantity: 1, expectedTotal: 1, expectedAvailable: 0},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			// arrange
			book := givenBook(t, tc.total, tc.available)

			// act
			adjusted, err := book.AdjustTotal(-tc.quantity, -tc.quantity)

			// assert
			require.NoError(t, err)
			assert.Equal(t, tc.expectedTotal, adjusted.TotalQuantity)
			assert.Equal(t, tc.expectedAvailable, adjusted.AvailableCopies)
		})
	}
}

func Test_Book_AdjustTotal_RejectsMoreAvailableThanTotal(t *testing.T) {
	// arrange
	book := givenBook(t, 2, 2)

	// act
	adjusted, err := book.AdjustTotal(-1, 0)

	// assert
	assert.ErrorIs(t, err, stock.ErrInvariantViolation)
	assert.Equal(t, book, adjusted)
}

func Test_Book_CheckInvariant(t *testing.T) {
	assert.NoError(t, stock.Book{TotalQuantity: 0, AvailableCopies: 0}.CheckInvariant())
	assert.NoError(t, stock.Book{TotalQuantity: 3, AvailableCopies: 3}.CheckInvariant())
	assert.ErrorIs(t, stock.Book{TotalQuantity: 3, AvailableCopies: -1}.CheckInvariant(), stock.ErrInvariantViolation)
	assert.ErrorIs(t, stock.Book{TotalQuantity: 3, AvailableCopies: 4}.CheckInvariant(), stock.ErrInvariantViolation)
}

func givenBook(t *testing.T, total, available int) stock.Book {
	t.Helper()

	book, err := stock.NewBook(uuid.New(), "Die unendliche Geschichte", "Michael Ende", "", total)
	require.NoError(t, err)

	book.AvailableCopies = available

	return book
}
