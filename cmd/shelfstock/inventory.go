package main

import (
	"github.com/spf13/cobra"

	"github.com/AntonStoeckl/shelfstock/reconciliation"
	"github.com/AntonStoeckl/shelfstock/stock"
)

func (c *cli) inventoryCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "inventory",
		Short: "Run stock takes",
	}

	cmd.AddCommand(
		c.inventoryStartCommand(),
		c.inventoryCheckCommand(),
		c.inventoryCompleteCommand(),
		c.inventoryStatsCommand(),
		c.inventoryShowCommand(),
		c.inventoryItemsCommand(),
	)

	return cmd
}

func (c *cli) inventoryStartCommand() *cobra.Command {
	var name, sessionType, notes string

	cmd := &cobra.Command{
		Use:   "start",
		Short: "Open a session with one pending item per book",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			session, items, err := c.app.reconciler.StartInventorySession(cmd.Context(), stock.SessionRequest{
				Name:  name,
				Type:  stock.SessionType(sessionType),
				Notes: notes,
			})
			if err != nil {
				return err
			}

			return c.print(struct {
				Session sessionView `json:"session"`
				Items   []itemView  `json:"items"`
			}{toSessionView(session), toItemViews(items)})
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "name of the session")
	cmd.Flags().StringVar(&sessionType, "type", string(stock.SessionAdhoc), "annual or adhoc")
	cmd.Flags().StringVar(&notes, "notes", "", "free text notes")
	_ = cmd.MarkFlagRequired("name")

	return cmd
}

func (c *cli) inventoryCheckCommand() *cobra.Command {
	var found int
	var notes string

	cmd := &cobra.Command{
		Use:   "check ITEM_ID",
		Short: "Record the copies found on the shelf for one item",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			itemID, err := parseID("item id", args[0])
			if err != nil {
				return err
			}

			item, err := c.app.reconciler.CheckInventoryItem(cmd.Context(), itemID, found, notes)
			if err != nil {
				return err
			}

			return c.print(toItemView(item))
		},
	}

	cmd.Flags().IntVar(&found, "found", 0, "number of copies found")
	cmd.Flags().StringVar(&notes, "notes", "", "free text notes")
	_ = cmd.MarkFlagRequired("found")

	return cmd
}

func (c *cli) inventoryCompleteCommand() *cobra.Command {
	var reportShortfalls bool

	cmd := &cobra.Command{
		Use:   "complete SESSION_ID",
		Short: "Complete a session and freeze its items",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sessionID, err := parseID("session id", args[0])
			if err != nil {
				return err
			}

			var opts []reconciliation.CompleteOption
			if reportShortfalls {
				opts = append(opts, reconciliation.ReportShortfalls())
			}

			completion, err := c.app.reconciler.CompleteInventorySession(cmd.Context(), sessionID, opts...)
			if err != nil {
				return err
			}

			return c.print(struct {
				Session sessionView `json:"session"`
				Issues  []issueView `json:"issues"`
			}{toSessionView(completion.Session), toIssueViews(completion.Issues)})
		},
	}

	cmd.Flags().BoolVar(&reportShortfalls, "report-shortfalls", false, "open an issue for every item found short")

	return cmd
}

func (c *cli) inventoryStatsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "stats SESSION_ID",
		Short: "Count the items of a session per status",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sessionID, err := parseID("session id", args[0])
			if err != nil {
				return err
			}

			stats, err := c.app.reconciler.GetInventoryStats(c.readContext(cmd), sessionID)
			if err != nil {
				return err
			}

			return c.print(statsView(stats))
		},
	}
}

func (c *cli) inventoryShowCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "show SESSION_ID",
		Short: "Show one session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sessionID, err := parseID("session id", args[0])
			if err != nil {
				return err
			}

			session, err := c.app.reconciler.GetInventorySession(c.readContext(cmd), sessionID)
			if err != nil {
				return err
			}

			return c.print(toSessionView(session))
		},
	}
}

func (c *cli) inventoryItemsCommand() *cobra.Command {
	var status string

	cmd := &cobra.Command{
		Use:   "items SESSION_ID",
		Short: "List the items of a session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sessionID, err := parseID("session id", args[0])
			if err != nil {
				return err
			}

			items, err := c.app.reconciler.ListInventoryItems(c.readContext(cmd), sessionID, stock.ItemStatus(status))
			if err != nil {
				return err
			}

			return c.print(toItemViews(items))
		},
	}

	cmd.Flags().StringVar(&status, "status", "", "only items in this status (pending, checked, discrepancy)")

	return cmd
}
