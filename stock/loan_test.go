package stock_test

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AntonStoeckl/shelfstock/stock"
)

var today = time.Date(2025, 3, 10, 14, 30, 0, 0, time.UTC)

func Test_LoanRequest_Validate(t *testing.T) {
	valid := stock.LoanRequest{
		BookID:       uuid.New(),
		BorrowerType: stock.BorrowerParticipant,
		BorrowerID:   "p-1",
		BorrowerName: "Anna",
		DueDate:      today.AddDate(0, 0, 14),
	}

	testCases := []struct {
		name        string
		mutate      func(r *stock.LoanRequest)
		expectedErr error
	}{
		{name: "nil book", mutate: func(r *stock.LoanRequest) { r.BookID = uuid.Nil }, expectedErr: stock.ErrNilID},
		{name: "unknown borrower type", mutate: func(r *stock.LoanRequest) { r.BorrowerType = "staff" }, expectedErr: stock.ErrInvalidBorrowerType},
		{name: "blank borrower id", mutate: func(r *stock.LoanRequest) { r.BorrowerID = " " }, expectedErr: stock.ErrEmptyBorrowerID},
		{name: "blank borrower name", mutate: func(r *stock.LoanRequest) { r.BorrowerName = "" }, expectedErr: stock.ErrEmptyBorrowerName},
		{name: "zero due date", mutate: func(r *stock.LoanRequest) { r.DueDate = time.Time{} }, expectedErr: stock.ErrInvalidDueDate},
		{name: "due yesterday", mutate: func(r *stock.LoanRequest) { r.DueDate = today.AddDate(0, 0, -1) }, expectedErr: stock.ErrInvalidDueDate},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			// arrange
			request := valid
			tc.mutate(&request)

			// act
			err := request.Validate(today)

			// assert
			assert.ErrorIs(t, err, tc.expectedErr)
			assert.ErrorIs(t, err, stock.ErrValidation)
		})
	}

	t.Run("due today is accepted", func(t *testing.T) {
		request := valid
		request.DueDate = today.Add(-10 * time.Hour)

		assert.NoError(t, request.Validate(today))
	})
}

func Test_NewLoan_IsActiveFromToday(t *testing.T) {
	// arrange
	request := givenLoanRequest(today.AddDate(0, 0, 14))

	// act
	loan := stock.NewLoan(uuid.New(), request, today)

	// assert
	assert.Equal(t, stock.LoanActive, loan.Status)
	assert.Equal(t, stock.ToDate(today), loan.LoanDate)
	assert.Equal(t, time.Date(2025, 3, 24, 0, 0, 0, 0, time.UTC), loan.DueDate)
	assert.Nil(t, loan.ReturnDate)
	assert.True(t, loan.IsOpen())
}

func Test_Loan_WithOverdueFlag(t *testing.T) {
	// arrange
	loan := stock.NewLoan(uuid.New(), givenLoanRequest(today), today)

	// act & assert
	assert.Equal(t, stock.LoanActive, loan.WithOverdueFlag(today).Status, "due today is not overdue")
	assert.Equal(t, stock.LoanOverdue, loan.WithOverdueFlag(today.AddDate(0, 0, 1)).Status)

	overdue := loan.WithOverdueFlag(today.AddDate(0, 0, 1))
	assert.Equal(t, overdue, overdue.WithOverdueFlag(today.AddDate(0, 0, 2)), "sweep is idempotent")

	returned, err := loan.Return(today)
	require.NoError(t, err)
	assert.Equal(t, stock.LoanReturned, returned.WithOverdueFlag(today.AddDate(1, 0, 0)).Status)
}

func Test_Loan_Return(t *testing.T) {
	// arrange
	loan := stock.NewLoan(uuid.New(), givenLoanRequest(today), today).WithOverdueFlag(today.AddDate(0, 0, 3))
	returnDay := today.AddDate(0, 0, 3)

	// act
	returned, err := loan.Return(returnDay)

	// assert
	require.NoError(t, err)
	assert.Equal(t, stock.LoanReturned, returned.Status)
	require.NotNil(t, returned.ReturnDate)
	assert.Equal(t, stock.ToDate(returnDay), *returned.ReturnDate)
	assert.False(t, returned.IsOpen())

	_, err = returned.Return(returnDay)
	assert.ErrorIs(t, err, stock.ErrAlreadyReturned)
	assert.ErrorIs(t, err, stock.ErrConflict)
}

func Test_Loan_Renew(t *testing.T) {
	// arrange
	later := today.AddDate(0, 0, 5)
	overdue := stock.NewLoan(uuid.New(), givenLoanRequest(today), today).WithOverdueFlag(later)
	require.Equal(t, stock.LoanOverdue, overdue.Status)

	// act
	renewed, err := overdue.Renew(later.AddDate(0, 0, 14), later)

	// assert
	require.NoError(t, err)
	assert.Equal(t, stock.LoanActive, renewed.Status)
	assert.Equal(t, stock.ToDate(later.AddDate(0, 0, 14)), renewed.DueDate)
}

func Test_Loan_Renew_Rejections(t *testing.T) {
	loan := stock.NewLoan(uuid.New(), givenLoanRequest(today), today)

	_, err := loan.Renew(today.AddDate(0, 0, -1), today)
	assert.ErrorIs(t, err, stock.ErrInvalidDueDate)

	returned, err := loan.Return(today)
	require.NoError(t, err)

	_, err = returned.Renew(today.AddDate(0, 0, 7), today)
	assert.ErrorIs(t, err, stock.ErrAlreadyReturned)
}

func givenLoanRequest(dueDate time.Time) stock.LoanRequest {
	return stock.LoanRequest{
		BookID:       uuid.New(),
		BorrowerType: stock.BorrowerOtherReader,
		BorrowerID:   "r-7",
		BorrowerName: "Bastian",
		DueDate:      dueDate,
	}
}
