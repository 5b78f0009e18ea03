package oteladapters_test

import (
	"bytes"
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/log"
	"go.opentelemetry.io/otel/log/noop"

	"github.com/AntonStoeckl/shelfstock/stock/oteladapters"
)

func Test_SlogBridgeLogger_WithHandler_AllLevels(t *testing.T) {
	// arrange
	var buf bytes.Buffer
	logger := oteladapters.NewSlogBridgeLoggerWithHandler(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	ctx := context.Background()

	// act
	logger.DebugContext(ctx, "executed sql for: books", "duration_ms", 1.5)
	logger.InfoContext(ctx, "operation completed", "operation_type", "IssueLoan")
	logger.WarnContext(ctx, "failed to roll back transaction")
	logger.ErrorContext(ctx, "stock invariant violated, operation aborted")

	// assert
	output := buf.String()
	assert.Contains(t, output, `"level":"DEBUG"`)
	assert.Contains(t, output, `"level":"INFO"`)
	assert.Contains(t, output, `"level":"WARN"`)
	assert.Contains(t, output, `"level":"ERROR"`)
	assert.Contains(t, output, `"operation_type":"IssueLoan"`)
	assert.Contains(t, output, `"duration_ms":1.5`)
}

func Test_SlogBridgeLogger_GlobalProvider(t *testing.T) {
	logger := oteladapters.NewSlogBridgeLogger("shelfstock-test")

	assert.NotPanics(t, func() {
		logger.InfoContext(context.Background(), "operation started", "operation_type", "ReturnLoan")
	})
}

func Test_OTelLogger_EmitsRecords(t *testing.T) {
	// arrange
	recorder := &recordingLogger{}
	logger := oteladapters.NewOTelLogger(recorder)
	ctx := context.Background()

	// act
	logger.DebugContext(ctx, "debug")
	logger.InfoContext(ctx, "operation completed", "operation_type", "IssueLoan", "attempts", 2, "duration_ms", 12*time.Millisecond)
	logger.WarnContext(ctx, "warn", "dangling")
	logger.ErrorContext(ctx, "error")

	// assert
	require.Len(t, recorder.records, 4)

	assert.Equal(t, log.SeverityDebug, recorder.records[0].severity)
	assert.Equal(t, log.SeverityInfo, recorder.records[1].severity)
	assert.Equal(t, log.SeverityWarn, recorder.records[2].severity)
	assert.Equal(t, log.SeverityError, recorder.records[3].severity)

	info := recorder.records[1]
	assert.Equal(t, "operation completed", info.body)
	assert.Equal(t, "INFO", info.severityText)
	assert.Equal(t, map[string]string{
		"operation_type": "IssueLoan",
		"attempts":       "2",
		"duration_ms":    "12ms",
	}, info.attributes)

	assert.Empty(t, recorder.records[2].attributes)
}

type capturedRecord struct {
	severity     log.Severity
	severityText string
	body         string
	attributes   map[string]string
}

// recordingLogger keeps what it was asked to emit. The embedded noop.Logger supplies the rest of log.Logger.
type recordingLogger struct {
	noop.Logger
	records []capturedRecord
}

func (l *recordingLogger) Emit(_ context.Context, record log.Record) {
	captured := capturedRecord{
		severity:     record.Severity(),
		severityText: record.SeverityText(),
		body:         record.Body().AsString(),
		attributes:   map[string]string{},
	}

	record.WalkAttributes(func(kv log.KeyValue) bool {
		captured.attributes[kv.Key] = kv.Value.AsString()
		return true
	})

	l.records = append(l.records, captured)
}
