package main

import (
	"context"
	"errors"
	"io"

	"github.com/spf13/cobra"

	"github.com/AntonStoeckl/shelfstock/config"
	"github.com/AntonStoeckl/shelfstock/stock"
)

// cli carries the writers and the lazily built app shared by all subcommands.
type cli struct {
	stdout   io.Writer
	stderr   io.Writer
	app      *app
	eventual bool
}

// execute runs one invocation and releases the app afterwards, also when the command failed.
func execute(ctx context.Context, stdout, stderr io.Writer, args []string) error {
	c := &cli{stdout: stdout, stderr: stderr}

	root := c.rootCommand()
	root.SetArgs(args)

	err := root.ExecuteContext(ctx)

	return errors.Join(err, c.close(ctx))
}

func (c *cli) rootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "shelfstock",
		Short:         "Lend, count, and write off the copies of a lending library",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}

			c.app, err = newApp(cmd.Context(), cfg, c.stderr)

			return err
		},
	}

	root.PersistentFlags().BoolVar(&c.eventual, "eventual", false,
		"serve plain reads from the replica in SHELFSTOCK_REPLICA_DSN when one is configured")

	root.SetOut(c.stdout)
	root.SetErr(c.stderr)

	root.AddCommand(
		c.migrateCommand(),
		c.bookCommand(),
		c.loanCommand(),
		c.inventoryCommand(),
		c.issueCommand(),
	)

	return root
}

func (c *cli) migrateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create the Postgres tables, constraints, and indexes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := c.app.migrate(cmd.Context()); err != nil {
				return err
			}

			return c.print(map[string]string{"status": "migrated"})
		},
	}
}

func (c *cli) close(ctx context.Context) error {
	if c.app == nil {
		return nil
	}

	return c.app.close(context.WithoutCancel(ctx))
}

// readContext marks the reads of cmd as replica-safe when --eventual is set.
func (c *cli) readContext(cmd *cobra.Command) context.Context {
	if c.eventual {
		return stock.WithEventualConsistency(cmd.Context())
	}

	return cmd.Context()
}
