package main

import (
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/AntonStoeckl/shelfstock/stock"
)

func (c *cli) issueCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "issue",
		Short: "Report and resolve damaged, lost, and unreturned copies",
	}

	cmd.AddCommand(
		c.issueReportCommand(),
		c.issueShortfallCommand(),
		c.issueResolveCommand(),
		c.issueGetCommand(),
		c.issueListCommand(),
	)

	return cmd
}

func (c *cli) issueReportCommand() *cobra.Command {
	var issueType, borrowerName, loan, notes string
	var quantity int

	cmd := &cobra.Command{
		Use:   "report BOOK_ID",
		Short: "Report an issue with copies of a book",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			bookID, err := parseID("book id", args[0])
			if err != nil {
				return err
			}

			report := stock.IssueReport{
				BookID:    bookID,
				IssueType: stock.IssueType(issueType),
				Quantity:  quantity,
			}

			if cmd.Flags().Changed("borrower-name") {
				report.BorrowerName = &borrowerName
			}

			if cmd.Flags().Changed("notes") {
				report.Notes = &notes
			}

			if loan != "" {
				loanID, err := parseID("loan id", loan)
				if err != nil {
					return err
				}
				report.LoanID = &loanID
			}

			issue, err := c.app.tracker.ReportIssue(cmd.Context(), report)
			if err != nil {
				return err
			}

			return c.print(toIssueView(issue))
		},
	}

	cmd.Flags().StringVar(&issueType, "type", "", "not_returned, damaged, torn, lost, or other")
	cmd.Flags().IntVar(&quantity, "quantity", 1, "number of affected copies")
	cmd.Flags().StringVar(&borrowerName, "borrower-name", "", "borrower responsible for the copies")
	cmd.Flags().StringVar(&loan, "loan", "", "id of the loan the copies were lent on")
	cmd.Flags().StringVar(&notes, "notes", "", "free text notes")
	_ = cmd.MarkFlagRequired("type")

	return cmd
}

func (c *cli) issueShortfallCommand() *cobra.Command {
	var issueType string

	cmd := &cobra.Command{
		Use:   "shortfall ITEM_ID",
		Short: "Report the copies an inventory item was found short",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			itemID, err := parseID("item id", args[0])
			if err != nil {
				return err
			}

			issue, err := c.app.tracker.ReportShortfall(cmd.Context(), itemID, stock.IssueType(issueType))
			if err != nil {
				return err
			}

			return c.print(toIssueView(issue))
		},
	}

	cmd.Flags().StringVar(&issueType, "type", string(stock.IssueLost), "issue type of the shortfall")

	return cmd
}

func (c *cli) issueResolveCommand() *cobra.Command {
	var outcome, notes string
	var adjustQuantity bool

	cmd := &cobra.Command{
		Use:   "resolve ISSUE_ID",
		Short: "Resolve an open issue, optionally writing the copies off",
		Long: "Resolve an open issue, optionally writing the copies off.\n\n" +
			"A write-off with --adjust-quantity also closes the loan the issue references, without giving the copy back.\n" +
			"Return an open loan the issue does not reference before writing its copy off.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			issueID, err := parseID("issue id", args[0])
			if err != nil {
				return err
			}

			issue, err := c.app.tracker.ResolveIssue(cmd.Context(), issueID, stock.Resolution{
				Outcome:         stock.IssueStatus(outcome),
				ResolutionNotes: notes,
				AdjustQuantity:  adjustQuantity,
			})
			if err != nil {
				return err
			}

			return c.print(toIssueView(issue))
		},
	}

	cmd.Flags().StringVar(&outcome, "outcome", string(stock.IssueResolved), "resolved or written_off")
	cmd.Flags().StringVar(&notes, "notes", "", "resolution notes")
	cmd.Flags().BoolVar(&adjustQuantity, "adjust-quantity", false, "remove written off copies from the stock")

	return cmd
}

func (c *cli) issueGetCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "get ISSUE_ID",
		Short: "Show one issue",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			issueID, err := parseID("issue id", args[0])
			if err != nil {
				return err
			}

			issue, err := c.app.tracker.GetIssue(c.readContext(cmd), issueID)
			if err != nil {
				return err
			}

			return c.print(toIssueView(issue))
		},
	}
}

func (c *cli) issueListCommand() *cobra.Command {
	var book string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List open issues, oldest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			bookID := uuid.Nil
			if book != "" {
				var err error
				if bookID, err = parseID("book id", book); err != nil {
					return err
				}
			}

			open, err := c.app.tracker.ListOpenIssues(c.readContext(cmd), bookID)
			if err != nil {
				return err
			}

			return c.print(toIssueViews(open))
		},
	}

	cmd.Flags().StringVar(&book, "book", "", "only issues of this book id")

	return cmd
}
