// Command shelfstock runs the circulation, inventory, and issue operations of the library stock from the shell.
//
// Results are printed as JSON on stdout, logs as JSON on stderr. The store is selected with
// SHELFSTOCK_ADAPTER_TYPE: one of the Postgres adapters (pgx.pool, sql.db, sqlx.db) or memory,
// which keeps the state in SHELFSTOCK_SNAPSHOT_FILE between invocations. Calendar days are taken
// in SHELFSTOCK_TIMEZONE.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	_ "time/tzdata"

	"github.com/AntonStoeckl/shelfstock/stock"
)

const (
	exitFailure  = 1
	exitRejected = 2
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	err := execute(ctx, os.Stdout, os.Stderr, os.Args[1:])
	stop()

	if err != nil {
		_, _ = fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(exitCode(err))
	}
}

func exitCode(err error) int {
	if stock.IsBusinessRejection(err) && !errors.Is(err, stock.ErrInvariantViolation) {
		return exitRejected
	}

	return exitFailure
}
