package main

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/AntonStoeckl/shelfstock/shell"
	"github.com/AntonStoeckl/shelfstock/stock"
)

func (c *cli) bookCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "book",
		Short: "Maintain the catalog rows the stock is kept for",
	}

	cmd.AddCommand(c.bookAddCommand(), c.bookRemoveCommand(), c.bookGetCommand(), c.bookListCommand())

	return cmd
}

func (c *cli) bookAddCommand() *cobra.Command {
	var title, author, isbn string
	var copies int

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add a book with all copies on the shelf",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			book, err := stock.NewBook(shell.NewID(), title, author, isbn, copies)
			if err != nil {
				return err
			}

			if err = c.app.store.AddBook(cmd.Context(), book); err != nil {
				return err
			}

			return c.print(toBookView(book))
		},
	}

	cmd.Flags().StringVar(&title, "title", "", "title of the book")
	cmd.Flags().StringVar(&author, "author", "", "author of the book")
	cmd.Flags().StringVar(&isbn, "isbn", "", "ISBN of the book")
	cmd.Flags().IntVar(&copies, "copies", 1, "number of copies owned")
	_ = cmd.MarkFlagRequired("title")

	return cmd
}

func (c *cli) bookRemoveCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "remove BOOK_ID",
		Short: "Remove a book without open loans, together with its history",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			bookID, err := parseID("book id", args[0])
			if err != nil {
				return err
			}

			if err = c.app.store.RemoveBook(cmd.Context(), bookID); err != nil {
				return err
			}

			return c.print(map[string]string{"removed": bookID.String()})
		},
	}
}

func (c *cli) bookGetCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "get BOOK_ID",
		Short: "Show the stock of one book",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			bookID, err := parseID("book id", args[0])
			if err != nil {
				return err
			}

			book, err := c.app.store.GetBook(c.readContext(cmd), bookID)
			if err != nil {
				return err
			}

			return c.print(toBookView(book))
		},
	}
}

func (c *cli) bookListCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all books ordered by title",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			books, err := c.app.store.ListBooks(c.readContext(cmd))
			if err != nil {
				return err
			}

			views := make([]bookView, 0, len(books))
			for _, book := range books {
				views = append(views, toBookView(book))
			}

			return c.print(views)
		},
	}
}

func parseID(name, arg string) (uuid.UUID, error) {
	id, err := uuid.Parse(arg)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: %s %q is not a uuid", stock.ErrValidation, name, arg)
	}

	return id, nil
}

func parseDate(name, arg string) (time.Time, error) {
	day, err := time.Parse(time.DateOnly, arg)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %s %q is not a YYYY-MM-DD date", stock.ErrValidation, name, arg)
	}

	return day, nil
}

// dueDate resolves the --due and --due-in-days flag pair. An explicit date wins.
func dueDate(due string, dueInDays int, now time.Time) (time.Time, error) {
	if due != "" {
		return parseDate("due date", due)
	}

	return stock.ToDate(now).AddDate(0, 0, dueInDays), nil
}
