package postgresengine

import (
	"github.com/AntonStoeckl/shelfstock/stock"
)

// Option defines a functional option for configuring Store.
type Option func(*Store) error

// WithTablePrefix prefixes all five table names, e.g. to run several isolated stores in one schema.
func WithTablePrefix(prefix string) Option {
	return func(s *Store) error {
		if prefix == "" {
			return stock.ErrEmptyTablePrefix
		}

		s.tables = newTables(prefix)
		s.sql = sqlBuilder{t: s.tables}

		return nil
	}
}

// WithLogger sets the logger for the Store.
// The logger will receive messages at different levels based on the logger's configured level:
//
// Debug level: SQL statements with execution timing (development use)
// Info level: committed transactions, overdue sweeps, serialization conflicts (production-safe)
// Warn level: non-critical issues like rollback failures
// Error level: database failures that cause operation failures.
func WithLogger(logger stock.Logger) Option {
	return func(s *Store) error {
		s.logger = logger
		return nil
	}
}

// WithContextualLogger sets the contextual logger for the Store.
// When set, it is used instead of the basic logger, with trace correlation from the context.
func WithContextualLogger(logger stock.ContextualLogger) Option {
	return func(s *Store) error {
		s.contextualLogger = logger
		return nil
	}
}

// WithMetrics sets the metrics collector for the Store.
// It receives transaction and read durations, database errors, serialization conflicts, and sweep counts.
func WithMetrics(collector stock.MetricsCollector) Option {
	return func(s *Store) error {
		s.metricsCollector = collector
		return nil
	}
}

// WithTracing sets the tracing collector for the Store.
// Every transaction and every read outside a transaction gets its own span.
func WithTracing(collector stock.TracingCollector) Option {
	return func(s *Store) error {
		s.tracingCollector = collector
		return nil
	}
}
