package shell

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/AntonStoeckl/shelfstock/stock"
)

const (
	// OperationDurationMetric tracks service operation duration (OpenTelemetry-compatible).
	OperationDurationMetric = "operation_handle_duration_seconds"

	// OperationCallsMetric tracks total service operation calls.
	OperationCallsMetric = "operation_handle_calls_total"

	// OperationRejectedMetric tracks operations refused by a business rule (not found, validation, conflict).
	OperationRejectedMetric = "operation_rejected_total"

	// OperationCanceledMetric tracks canceled operations.
	OperationCanceledMetric = "operation_canceled_total"

	// OperationTimeoutMetric tracks timed out operations.
	OperationTimeoutMetric = "operation_timeout_total"

	// OperationConcurrencyConflictMetric tracks operations that gave up after serialization conflicts.
	OperationConcurrencyConflictMetric = "operation_concurrency_conflicts_total"

	// OperationInvariantViolationMetric tracks stock invariant violations. Any non-zero value needs attention.
	OperationInvariantViolationMetric = "operation_invariant_violations_total"

	// OperationRetriesMetric tracks retry attempts.
	//
	// Labels:
	//   - operation_type: e.g. "IssueLoan"
	//   - attempt_number: how many retries were needed
	//   - error_type: category of the error causing the retry
	OperationRetriesMetric = "operation_retries_total"

	// OperationRetryDelayMetric tracks the total time an operation spent in backoff.
	OperationRetryDelayMetric = "operation_retry_delay_seconds"

	// OperationMaxRetriesReachedMetric tracks when retries are exhausted.
	OperationMaxRetriesReachedMetric = "operation_max_retries_reached_total"

	// StatusSuccess indicates successful completion.
	StatusSuccess = "success"

	// StatusRejected indicates the operation was refused by a business rule.
	StatusRejected = "rejected"

	// StatusError indicates an infrastructure failure.
	StatusError = "error"

	// StatusCanceled indicates the operation was canceled due to context cancellation.
	StatusCanceled = "canceled"

	// StatusTimeout indicates the operation timed out due to context deadline exceeded.
	StatusTimeout = "timeout"

	// StatusConcurrencyConflict indicates the operation failed after exhausting serialization retries.
	StatusConcurrencyConflict = "concurrency_conflict"

	// StatusInvariantViolation indicates the stock invariant would have been broken.
	StatusInvariantViolation = "invariant_violation"

	// LogMsgOperationStarted is logged when an operation begins.
	LogMsgOperationStarted = "operation started"

	// LogMsgOperationCompleted is logged when an operation succeeds.
	LogMsgOperationCompleted = "operation completed"

	// LogMsgOperationRejected is logged when a business rule refuses an operation.
	LogMsgOperationRejected = "operation rejected"

	// LogMsgOperationFailed is logged when an operation fails.
	LogMsgOperationFailed = "operation failed"

	// LogMsgInvariantViolated is logged when the stock invariant would have been broken.
	LogMsgInvariantViolated = "stock invariant violated, operation aborted"

	// LogAttrOperationType identifies the operation in logs, metric labels, and spans.
	LogAttrOperationType = "operation_type"

	// LogAttrStatus indicates the processing status.
	LogAttrStatus = "status"

	// LogAttrDurationMS indicates the processing duration in milliseconds.
	LogAttrDurationMS = "duration_ms"

	// LogAttrErrorType classifies the error.
	LogAttrErrorType = "error_type"

	// LogAttrError contains error details.
	LogAttrError = "error"

	// LogAttrAttempts is the number of attempts made.
	LogAttrAttempts = "attempts"

	// SpanNameOperation is the tracing span name for service operations.
	SpanNameOperation = "shelfstock.operation"
)

// MetricsCollector interface for collecting operation metrics.
type MetricsCollector = stock.MetricsCollector

// ContextualMetricsCollector extends MetricsCollector with context-aware methods.
type ContextualMetricsCollector = stock.ContextualMetricsCollector

// TracingCollector interface for distributed tracing of operations.
type TracingCollector = stock.TracingCollector

// SpanContext represents an active tracing span.
type SpanContext = stock.SpanContext

// ContextualLogger interface for context-aware logging.
type ContextualLogger = stock.ContextualLogger

// Logger interface for basic logging.
type Logger = stock.Logger

// ObservedFunc is the unit of work instrumented by Observer.Observe.
type ObservedFunc func(ctx context.Context) (RetryMetrics, error)

// Observer instruments service operations with logs, metrics, and spans. The zero value observes nothing.
type Observer struct {
	logger           Logger
	contextualLogger ContextualLogger
	metricsCollector MetricsCollector
	tracingCollector TracingCollector
}

// ObserverOption configures an Observer.
type ObserverOption func(*Observer)

// NewObserver creates an Observer with optional collectors.
func NewObserver(options ...ObserverOption) Observer {
	o := Observer{}
	for _, option := range options {
		option(&o)
	}

	return o
}

// WithLogger sets the basic logger.
func WithLogger(logger Logger) ObserverOption {
	return func(o *Observer) {
		o.logger = logger
	}
}

// WithContextualLogger sets the contextual logger. It takes precedence over the basic logger.
func WithContextualLogger(logger ContextualLogger) ObserverOption {
	return func(o *Observer) {
		o.contextualLogger = logger
	}
}

// WithMetrics sets the metrics collector.
func WithMetrics(collector MetricsCollector) ObserverOption {
	return func(o *Observer) {
		o.metricsCollector = collector
	}
}

// WithTracing sets the tracing collector.
func WithTracing(collector TracingCollector) ObserverOption {
	return func(o *Observer) {
		o.tracingCollector = collector
	}
}

// Observe runs fn inside a span, logs its start and outcome, and records duration, status, and retry metrics.
func (o Observer) Observe(ctx context.Context, operationType string, fn ObservedFunc) error {
	start := time.Now()
	ctx, span := o.startSpan(ctx, operationType)
	o.logInfo(ctx, LogMsgOperationStarted, LogAttrOperationType, operationType)

	retryMetrics, err := fn(ctx)
	duration := time.Since(start)
	status := StatusFor(err)

	o.recordRetryMetrics(ctx, operationType, retryMetrics)
	o.recordMetrics(ctx, operationType, status, duration)
	o.finishSpan(span, status, duration, err)

	switch status {
	case StatusSuccess:
		o.logInfo(ctx, LogMsgOperationCompleted,
			LogAttrOperationType, operationType,
			LogAttrDurationMS, ToMilliseconds(duration),
			LogAttrAttempts, retryMetrics.Attempts,
		)

	case StatusRejected:
		o.logInfo(ctx, LogMsgOperationRejected,
			LogAttrOperationType, operationType,
			LogAttrErrorType, stock.ErrorType(err),
			LogAttrError, err.Error(),
		)

	case StatusInvariantViolation:
		o.logError(ctx, LogMsgInvariantViolated,
			LogAttrOperationType, operationType,
			LogAttrError, err.Error(),
		)

	default:
		o.logError(ctx, LogMsgOperationFailed,
			LogAttrOperationType, operationType,
			LogAttrStatus, status,
			LogAttrError, err.Error(),
		)
	}

	return err
}

// SingleAttempt adapts a call that is not retried to ObservedFunc's result.
func SingleAttempt(err error) (RetryMetrics, error) {
	return RetryMetrics{Attempts: 1, LastErrorType: errorType(err)}, err
}

// StatusFor maps an operation error to its status label.
func StatusFor(err error) string {
	switch {
	case err == nil:
		return StatusSuccess
	case errors.Is(err, stock.ErrInvariantViolation):
		return StatusInvariantViolation
	case stock.IsBusinessRejection(err):
		return StatusRejected
	case errors.Is(err, context.Canceled):
		return StatusCanceled
	case errors.Is(err, context.DeadlineExceeded):
		return StatusTimeout
	case errors.Is(err, stock.ErrConcurrencyConflict):
		return StatusConcurrencyConflict
	default:
		return StatusError
	}
}

// BuildOperationLabels creates standard metric labels for service operations.
func BuildOperationLabels(operationType, status string) map[string]string {
	return map[string]string{
		LogAttrOperationType: operationType,
		LogAttrStatus:        status,
	}
}

// BuildRetryLabels creates standard metric labels for retries.
func BuildRetryLabels(operationType string, attemptNumber int, errorType string) map[string]string {
	return map[string]string{
		LogAttrOperationType: operationType,
		"attempt_number":     fmt.Sprintf("%d", attemptNumber),
		LogAttrErrorType:     errorType,
	}
}

// ToMilliseconds converts a time.Duration to float64 milliseconds.
func ToMilliseconds(d time.Duration) float64 {
	return float64(d.Nanoseconds()) / 1e6
}

var statusCounters = map[string]string{
	StatusRejected:            OperationRejectedMetric,
	StatusCanceled:            OperationCanceledMetric,
	StatusTimeout:             OperationTimeoutMetric,
	StatusConcurrencyConflict: OperationConcurrencyConflictMetric,
	StatusInvariantViolation:  OperationInvariantViolationMetric,
}

func (o Observer) recordMetrics(ctx context.Context, operationType, status string, duration time.Duration) {
	if o.metricsCollector == nil {
		return
	}

	labels := BuildOperationLabels(operationType, status)
	o.recordDuration(ctx, OperationDurationMetric, duration, labels)
	o.incrementCounter(ctx, OperationCallsMetric, labels)

	if metric, ok := statusCounters[status]; ok {
		o.incrementCounter(ctx, metric, labels)
	}
}

func (o Observer) recordRetryMetrics(ctx context.Context, operationType string, metrics RetryMetrics) {
	if o.metricsCollector == nil {
		return
	}

	if metrics.Attempts > 1 {
		o.incrementCounter(ctx, OperationRetriesMetric, BuildRetryLabels(operationType, metrics.Attempts-1, metrics.LastErrorType))
		o.recordDuration(ctx, OperationRetryDelayMetric, metrics.TotalDelay, map[string]string{LogAttrOperationType: operationType})
	}

	if metrics.RetriesExhausted {
		o.incrementCounter(ctx, OperationMaxRetriesReachedMetric, map[string]string{
			LogAttrOperationType: operationType,
			"final_error_type":   metrics.LastErrorType,
		})
	}
}

func (o Observer) recordDuration(ctx context.Context, metric string, duration time.Duration, labels map[string]string) {
	if contextualCollector, ok := o.metricsCollector.(ContextualMetricsCollector); ok {
		contextualCollector.RecordDurationContext(ctx, metric, duration, labels)
	} else {
		o.metricsCollector.RecordDuration(metric, duration, labels)
	}
}

func (o Observer) incrementCounter(ctx context.Context, metric string, labels map[string]string) {
	if contextualCollector, ok := o.metricsCollector.(ContextualMetricsCollector); ok {
		contextualCollector.IncrementCounterContext(ctx, metric, labels)
	} else {
		o.metricsCollector.IncrementCounter(metric, labels)
	}
}

func (o Observer) startSpan(ctx context.Context, operationType string) (context.Context, SpanContext) {
	if o.tracingCollector == nil {
		return ctx, nil
	}

	return o.tracingCollector.StartSpan(ctx, SpanNameOperation, map[string]string{
		LogAttrOperationType: operationType,
	})
}

func (o Observer) finishSpan(span SpanContext, status string, duration time.Duration, err error) {
	if o.tracingCollector == nil || span == nil {
		return
	}

	attrs := map[string]string{
		LogAttrStatus:     status,
		LogAttrDurationMS: fmt.Sprintf("%.2f", ToMilliseconds(duration)),
	}

	if err != nil {
		attrs[LogAttrError] = err.Error()
	}

	o.tracingCollector.FinishSpan(span, status, attrs)
}

func (o Observer) logInfo(ctx context.Context, msg string, args ...any) {
	if o.contextualLogger != nil {
		o.contextualLogger.InfoContext(ctx, msg, args...)
	} else if o.logger != nil {
		o.logger.Info(msg, args...)
	}
}

func (o Observer) logError(ctx context.Context, msg string, args ...any) {
	if o.contextualLogger != nil {
		o.contextualLogger.ErrorContext(ctx, msg, args...)
	} else if o.logger != nil {
		o.logger.Error(msg, args...)
	}
}
