package postgresengine

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/AntonStoeckl/shelfstock/stock"
)

const (
	metricTxDuration           = "stock_store_tx_duration_seconds"
	metricReadDuration         = "stock_store_read_duration_seconds"
	metricDatabaseErrors       = "stock_store_database_errors_total"
	metricConcurrencyConflicts = "stock_store_concurrency_conflicts_total"
	metricLoansFlaggedOverdue  = "stock_store_loans_flagged_overdue"

	spanNameTx   = "stock.store.tx"
	spanNameRead = "stock.store.read"

	spanAttrOperation    = "operation"
	spanAttrErrorType    = "error_type"
	spanAttrDurationMS   = "duration_ms"
	spanAttrRowsAffected = "rows_affected"

	statusSuccess  = "success"
	statusRejected = "rejected"
	statusConflict = "conflict"
	statusError    = "error"

	logMsgSQLExecuted         = "executed sql for: "
	logMsgTxCommitted         = "transaction committed"
	logMsgConcurrencyConflict = "concurrency conflict detected"
	logMsgRollbackFailed      = "failed to roll back transaction"
	logMsgCloseRowsFailed     = "failed to close database rows"
	logMsgOperationFailed     = "store operation failed"
	logMsgLoansFlaggedOverdue = "loans flagged overdue"
	logMsgMigrationApplied    = "schema migration applied"
	logAttrError              = "error"
	logAttrQuery              = "query"
	logAttrDurationMS         = "duration_ms"
	logAttrOperation          = "operation"
	logAttrRowsAffected       = "rows_affected"
	logAttrTable              = "table"
)

// toMilliseconds converts a time.Duration to float64 milliseconds with 3 decimal places.
func toMilliseconds(d time.Duration) float64 {
	return math.Round(float64(d.Nanoseconds())/1e6*1000) / 1000
}

func statusFor(err error) string {
	switch {
	case err == nil:
		return statusSuccess
	case errors.Is(err, stock.ErrConcurrencyConflict):
		return statusConflict
	case stock.IsBusinessRejection(err):
		return statusRejected
	default:
		return statusError
	}
}

// observe wraps one store operation with a span, duration and error metrics, and failure logging.
func (s *Store) observe(ctx context.Context, spanName, metricName, operation string, fn func(ctx context.Context) error) error {
	start := time.Now()
	ctx, span := s.startSpan(ctx, spanName, operation)

	err := fn(ctx)
	duration := time.Since(start)
	status := statusFor(err)

	s.recordDuration(ctx, metricName, duration, map[string]string{spanAttrOperation: operation, "status": status})
	s.finishSpan(span, status, duration, err)

	switch status {
	case statusConflict:
		s.incrementCounter(ctx, metricConcurrencyConflicts, map[string]string{spanAttrOperation: operation})
		s.logInfo(ctx, logMsgConcurrencyConflict, logAttrOperation, operation)

	case statusError:
		s.incrementCounter(ctx, metricDatabaseErrors, map[string]string{
			spanAttrOperation: operation,
			"status":          statusError,
			spanAttrErrorType: stock.ErrorType(err),
		})
		s.logError(ctx, logMsgOperationFailed, err, logAttrOperation, operation)
	}

	return err
}

func (s *Store) startSpan(ctx context.Context, name, operation string) (context.Context, stock.SpanContext) {
	if s.tracingCollector == nil {
		return ctx, nil
	}

	return s.tracingCollector.StartSpan(ctx, name, map[string]string{spanAttrOperation: operation})
}

func (s *Store) finishSpan(span stock.SpanContext, status string, duration time.Duration, err error) {
	if s.tracingCollector == nil || span == nil {
		return
	}

	attrs := map[string]string{spanAttrDurationMS: fmt.Sprintf("%.2f", toMilliseconds(duration))}
	if err != nil {
		attrs[spanAttrErrorType] = stock.ErrorType(err)
	}

	s.tracingCollector.FinishSpan(span, status, attrs)
}

func (s *Store) recordDuration(ctx context.Context, metric string, duration time.Duration, labels map[string]string) {
	if s.metricsCollector == nil {
		return
	}

	if contextualCollector, ok := s.metricsCollector.(stock.ContextualMetricsCollector); ok {
		contextualCollector.RecordDurationContext(ctx, metric, duration, labels)
	} else {
		s.metricsCollector.RecordDuration(metric, duration, labels)
	}
}

func (s *Store) incrementCounter(ctx context.Context, metric string, labels map[string]string) {
	if s.metricsCollector == nil {
		return
	}

	if contextualCollector, ok := s.metricsCollector.(stock.ContextualMetricsCollector); ok {
		contextualCollector.IncrementCounterContext(ctx, metric, labels)
	} else {
		s.metricsCollector.IncrementCounter(metric, labels)
	}
}

func (s *Store) recordValue(ctx context.Context, metric string, value float64, labels map[string]string) {
	if s.metricsCollector == nil {
		return
	}

	if contextualCollector, ok := s.metricsCollector.(stock.ContextualMetricsCollector); ok {
		contextualCollector.RecordValueContext(ctx, metric, value, labels)
	} else {
		s.metricsCollector.RecordValue(metric, value, labels)
	}
}

// logQueryWithDuration logs SQL with execution time at debug level.
func (s *Store) logQueryWithDuration(ctx context.Context, sqlQuery, table string, duration time.Duration) {
	args := []any{logAttrDurationMS, toMilliseconds(duration), logAttrQuery, sqlQuery}

	if s.contextualLogger != nil {
		s.contextualLogger.DebugContext(ctx, logMsgSQLExecuted+table, args...)
	} else if s.logger != nil {
		s.logger.Debug(logMsgSQLExecuted+table, args...)
	}
}

func (s *Store) logInfo(ctx context.Context, msg string, args ...any) {
	if s.contextualLogger != nil {
		s.contextualLogger.InfoContext(ctx, msg, args...)
	} else if s.logger != nil {
		s.logger.Info(msg, args...)
	}
}

func (s *Store) logWarn(ctx context.Context, msg string, err error, args ...any) {
	allArgs := append([]any{logAttrError, err.Error()}, args...)

	if s.contextualLogger != nil {
		s.contextualLogger.WarnContext(ctx, msg, allArgs...)
	} else if s.logger != nil {
		s.logger.Warn(msg, allArgs...)
	}
}

func (s *Store) logError(ctx context.Context, msg string, err error, args ...any) {
	allArgs := append([]any{logAttrError, err.Error()}, args...)

	if s.contextualLogger != nil {
		s.contextualLogger.ErrorContext(ctx, msg, allArgs...)
	} else if s.logger != nil {
		s.logger.Error(msg, allArgs...)
	}
}
