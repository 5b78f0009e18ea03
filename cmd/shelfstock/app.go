package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/log/global"

	"github.com/AntonStoeckl/shelfstock/circulation"
	"github.com/AntonStoeckl/shelfstock/config"
	"github.com/AntonStoeckl/shelfstock/issues"
	"github.com/AntonStoeckl/shelfstock/reconciliation"
	"github.com/AntonStoeckl/shelfstock/shell"
	"github.com/AntonStoeckl/shelfstock/stock"
	"github.com/AntonStoeckl/shelfstock/stock/memoryengine"
	"github.com/AntonStoeckl/shelfstock/stock/oteladapters"
	"github.com/AntonStoeckl/shelfstock/stock/postgresengine"
)

const instrumentationName = "github.com/AntonStoeckl/shelfstock"

var errMigrationUnsupported = errors.New("the memory adapter has no schema to migrate")

type migrator interface {
	Migrate(ctx context.Context) error
}

// app is the wiring of one CLI invocation.
type app struct {
	store      stock.Store
	ledger     circulation.Ledger
	reconciler reconciliation.Reconciler
	tracker    issues.Tracker
	clock      stock.Clock
	closers    []func(ctx context.Context) error
}

func newApp(ctx context.Context, cfg config.Config, stderr io.Writer) (*app, error) {
	level, err := cfg.SlogLevel()
	if err != nil {
		return nil, err
	}

	clock, err := cfg.Clock()
	if err != nil {
		return nil, err
	}

	a := &app{clock: clock}
	logger, storeLogger := newLoggers(false, stderr, level)

	var metrics stock.MetricsCollector
	var tracing stock.TracingCollector

	if cfg.OTelEnabled {
		providers, err := config.NewObservabilityProviders(ctx, cfg)
		if err != nil {
			return nil, fmt.Errorf("set up opentelemetry: %w", err)
		}

		a.closers = append(a.closers, providers.Shutdown)
		logger, storeLogger = newLoggers(true, stderr, level)
		metrics = oteladapters.NewMetricsCollector(otel.Meter(instrumentationName))
		tracing = oteladapters.NewTracingCollector(otel.Tracer(instrumentationName))
	}

	observerOptions := []shell.ObserverOption{shell.WithContextualLogger(logger)}
	if metrics != nil {
		observerOptions = append(observerOptions, shell.WithMetrics(metrics), shell.WithTracing(tracing))
	}

	a.store, err = a.openStore(ctx, cfg, storeLogger, metrics, tracing)
	if err != nil {
		_ = a.close(ctx)
		return nil, err
	}

	observer := shell.NewObserver(observerOptions...)
	a.ledger = circulation.NewLedger(a.store, circulation.WithObserver(observer), circulation.WithClock(clock))
	a.reconciler = reconciliation.NewReconciler(a.store, reconciliation.WithObserver(observer), reconciliation.WithClock(clock))
	a.tracker = issues.NewTracker(a.store, issues.WithObserver(observer), issues.WithClock(clock))

	return a, nil
}

// newLoggers returns the service and store loggers. With OpenTelemetry on, services log through
// the slog bridge and stores emit through the log API, both on the global LoggerProvider.
// Otherwise both write JSON to stderr.
func newLoggers(otelEnabled bool, stderr io.Writer, level slog.Level) (service, store stock.ContextualLogger) {
	if otelEnabled {
		return oteladapters.NewSlogBridgeLogger(instrumentationName),
			oteladapters.NewOTelLogger(global.Logger(instrumentationName + "/store"))
	}

	logger := oteladapters.NewSlogBridgeLoggerWithHandler(slog.NewJSONHandler(stderr, &slog.HandlerOptions{Level: level}))

	return logger, logger
}

func (a *app) openStore(
	ctx context.Context,
	cfg config.Config,
	logger stock.ContextualLogger,
	metrics stock.MetricsCollector,
	tracing stock.TracingCollector,
) (stock.Store, error) {

	if cfg.AdapterType == config.AdapterMemory {
		return memoryengine.NewStore(
			memoryengine.WithSnapshotFile(cfg.SnapshotFile),
			memoryengine.WithContextualLogger(logger),
		)
	}

	options := []postgresengine.Option{postgresengine.WithContextualLogger(logger)}
	if cfg.TablePrefix != "" {
		options = append(options, postgresengine.WithTablePrefix(cfg.TablePrefix))
	}
	if metrics != nil {
		options = append(options, postgresengine.WithMetrics(metrics))
	}
	if tracing != nil {
		options = append(options, postgresengine.WithTracing(tracing))
	}

	switch cfg.AdapterType {
	case config.AdapterSQLDB:
		db, err := config.PostgresSQLDB(ctx, cfg)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, func(context.Context) error { return db.Close() })

		return postgresengine.NewStoreFromSQLDB(db, options...)

	case config.AdapterSQLXDB:
		db, err := config.PostgresSQLX(ctx, cfg)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, func(context.Context) error { return db.Close() })

		return postgresengine.NewStoreFromSQLX(db, options...)

	default:
		pool, err := config.PostgresPGXPool(ctx, cfg, cfg.DatabaseDSN)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, func(context.Context) error { pool.Close(); return nil })

		if cfg.ReplicaDSN == "" {
			return postgresengine.NewStoreFromPGXPool(pool, options...)
		}

		replica, err := config.PostgresPGXPool(ctx, cfg, cfg.ReplicaDSN)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, func(context.Context) error { replica.Close(); return nil })

		return postgresengine.NewStoreFromPGXPoolWithReplica(pool, replica, options...)
	}
}

func (a *app) migrate(ctx context.Context) error {
	m, ok := a.store.(migrator)
	if !ok {
		return errMigrationUnsupported
	}

	return m.Migrate(ctx)
}

// close releases resources in reverse order of acquisition.
func (a *app) close(ctx context.Context) error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i](ctx))
	}

	a.closers = nil

	return errors.Join(errs...)
}
