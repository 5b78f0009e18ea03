package main

import (
	"github.com/spf13/cobra"

	"github.com/AntonStoeckl/shelfstock/stock"
)

const defaultLoanDays = 14

func (c *cli) loanCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "loan",
		Short: "Issue, return, and renew loans",
	}

	cmd.AddCommand(
		c.loanIssueCommand(),
		c.loanReturnCommand(),
		c.loanRenewCommand(),
		c.loanGetCommand(),
		c.loanListCommand(),
		c.loanPurgeCommand(),
		c.loanSweepCommand(),
	)

	return cmd
}

func (c *cli) loanIssueCommand() *cobra.Command {
	var borrowerType, borrowerID, borrowerName, due string
	var dueInDays int

	cmd := &cobra.Command{
		Use:   "issue BOOK_ID",
		Short: "Lend one copy of a book",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			bookID, err := parseID("book id", args[0])
			if err != nil {
				return err
			}

			dueDate, err := dueDate(due, dueInDays, c.app.clock())
			if err != nil {
				return err
			}

			loan, err := c.app.ledger.IssueLoan(cmd.Context(), stock.LoanRequest{
				BookID:       bookID,
				BorrowerType: stock.BorrowerType(borrowerType),
				BorrowerID:   borrowerID,
				BorrowerName: borrowerName,
				DueDate:      dueDate,
			})
			if err != nil {
				return err
			}

			return c.print(toLoanView(loan))
		},
	}

	cmd.Flags().StringVar(&borrowerType, "borrower-type", string(stock.BorrowerParticipant), "participant or other_reader")
	cmd.Flags().StringVar(&borrowerID, "borrower-id", "", "id of the borrower in the borrower directory")
	cmd.Flags().StringVar(&borrowerName, "borrower-name", "", "display name of the borrower")
	cmd.Flags().StringVar(&due, "due", "", "due date as YYYY-MM-DD")
	cmd.Flags().IntVar(&dueInDays, "due-in-days", defaultLoanDays, "due date relative to today, used without --due")
	_ = cmd.MarkFlagRequired("borrower-id")
	_ = cmd.MarkFlagRequired("borrower-name")

	return cmd
}

func (c *cli) loanReturnCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "return LOAN_ID",
		Short: "Return a loan and put the copy back on the shelf",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			loanID, err := parseID("loan id", args[0])
			if err != nil {
				return err
			}

			loan, err := c.app.ledger.ReturnLoan(cmd.Context(), loanID)
			if err != nil {
				return err
			}

			return c.print(toLoanView(loan))
		},
	}
}

func (c *cli) loanRenewCommand() *cobra.Command {
	var due string
	var dueInDays int

	cmd := &cobra.Command{
		Use:   "renew LOAN_ID",
		Short: "Move the due date of an open loan",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			loanID, err := parseID("loan id", args[0])
			if err != nil {
				return err
			}

			newDueDate, err := dueDate(due, dueInDays, c.app.clock())
			if err != nil {
				return err
			}

			loan, err := c.app.ledger.RenewLoan(cmd.Context(), loanID, newDueDate)
			if err != nil {
				return err
			}

			return c.print(toLoanView(loan))
		},
	}

	cmd.Flags().StringVar(&due, "due", "", "new due date as YYYY-MM-DD")
	cmd.Flags().IntVar(&dueInDays, "due-in-days", defaultLoanDays, "new due date relative to today, used without --due")

	return cmd
}

func (c *cli) loanGetCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "get LOAN_ID",
		Short: "Show one loan",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			loanID, err := parseID("loan id", args[0])
			if err != nil {
				return err
			}

			loan, err := c.app.ledger.GetLoan(cmd.Context(), loanID)
			if err != nil {
				return err
			}

			return c.print(toLoanView(loan))
		},
	}
}

func (c *cli) loanListCommand() *cobra.Command {
	var book, borrower, dueBefore string
	var statuses []string
	var open bool
	var limit int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List loans, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			builder := stock.BuildLoanFilter().ForBorrower(borrower).Limit(limit)

			if book != "" {
				bookID, err := parseID("book id", book)
				if err != nil {
					return err
				}
				builder.ForBook(bookID)
			}

			if open {
				builder.OnlyOpen()
			}

			for _, status := range statuses {
				if !stock.LoanStatus(status).Valid() {
					return stock.ErrInvalidLoanStatus
				}
				builder.WithStatusIn(stock.LoanStatus(status))
			}

			if dueBefore != "" {
				day, err := parseDate("due before", dueBefore)
				if err != nil {
					return err
				}
				builder.DueBefore(day)
			}

			filter, err := builder.Finalize()
			if err != nil {
				return err
			}

			loans, err := c.app.ledger.ListLoans(cmd.Context(), filter)
			if err != nil {
				return err
			}

			views := make([]loanView, 0, len(loans))
			for _, loan := range loans {
				views = append(views, toLoanView(loan))
			}

			return c.print(views)
		},
	}

	cmd.Flags().StringVar(&book, "book", "", "only loans of this book id")
	cmd.Flags().StringVar(&borrower, "borrower", "", "only loans of this borrower id")
	cmd.Flags().StringSliceVar(&statuses, "status", nil, "only loans in these statuses (active, overdue, returned)")
	cmd.Flags().BoolVar(&open, "open", false, "only active and overdue loans")
	cmd.Flags().StringVar(&dueBefore, "due-before", "", "only loans due before YYYY-MM-DD")
	cmd.Flags().IntVar(&limit, "limit", 0, "maximum number of loans, 0 for all")

	return cmd
}

func (c *cli) loanPurgeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "purge LOAN_ID",
		Short: "Delete the record of a returned loan",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			loanID, err := parseID("loan id", args[0])
			if err != nil {
				return err
			}

			if err = c.app.ledger.PurgeReturnedLoan(cmd.Context(), loanID); err != nil {
				return err
			}

			return c.print(map[string]string{"purged": loanID.String()})
		},
	}
}

func (c *cli) loanSweepCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "sweep",
		Short: "Flag every active loan past its due date as overdue",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			flagged, err := c.app.ledger.SweepOverdueLoans(cmd.Context())
			if err != nil {
				return err
			}

			return c.print(map[string]int64{"flagged": flagged})
		},
	}
}
