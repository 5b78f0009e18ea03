package testdoubles

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"slices"
	"sync"
)

// LogHandlerSpy is a slog.Handler that keeps every record, for use with slog.New in tests.
type LogHandlerSpy struct {
	mu      sync.Mutex
	records []slog.Record
	echo    slog.Handler
}

// NewLogHandlerSpy creates a spy. With echo set, records are also written to stdout as text,
// which helps when debugging a test.
func NewLogHandlerSpy(echo bool) *LogHandlerSpy {
	spy := &LogHandlerSpy{}
	if echo {
		spy.echo = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug})
	}

	return spy
}

func (s *LogHandlerSpy) Handle(ctx context.Context, record slog.Record) error {
	s.mu.Lock()
	s.records = append(s.records, record.Clone())
	s.mu.Unlock()

	if s.echo != nil {
		return s.echo.Handle(ctx, record)
	}

	return nil
}

func (s *LogHandlerSpy) Enabled(context.Context, slog.Level) bool { return true }

func (s *LogHandlerSpy) WithAttrs([]slog.Attr) slog.Handler { return s }

func (s *LogHandlerSpy) WithGroup(string) slog.Handler { return s }

// GetRecords returns a copy of the captured records.
func (s *LogHandlerSpy) GetRecords() []slog.Record {
	s.mu.Lock()
	defer s.mu.Unlock()

	return slices.Clone(s.records)
}

func (s *LogHandlerSpy) GetRecordCount() int {
	return len(s.GetRecords())
}

func (s *LogHandlerSpy) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.records = nil
}

func (s *LogHandlerSpy) HasDebugLogWithMessage(message string) *LogRecordMatcher {
	return s.match(slog.LevelDebug, message)
}

func (s *LogHandlerSpy) HasInfoLogWithMessage(message string) *LogRecordMatcher {
	return s.match(slog.LevelInfo, message)
}

func (s *LogHandlerSpy) HasWarnLogWithMessage(message string) *LogRecordMatcher {
	return s.match(slog.LevelWarn, message)
}

func (s *LogHandlerSpy) HasErrorLogWithMessage(message string) *LogRecordMatcher {
	return s.match(slog.LevelError, message)
}

func (s *LogHandlerSpy) match(level slog.Level, message string) *LogRecordMatcher {
	candidates := slices.DeleteFunc(s.GetRecords(), func(r slog.Record) bool {
		return r.Level != level || r.Message != message
	})

	return &LogRecordMatcher{candidates: candidates}
}

// LogRecordMatcher narrows down the records with one level and message. Every With* call drops
// the records that don't satisfy it; Assert reports whether any record is left.
type LogRecordMatcher struct {
	candidates []slog.Record
}

// WithDurationMS keeps records with a non-negative numeric duration_ms attribute.
func (m *LogRecordMatcher) WithDurationMS() *LogRecordMatcher {
	return m.keep(func(attrs map[string]slog.Value) bool {
		v, ok := attrs["duration_ms"]
		switch {
		case !ok:
			return false
		case v.Kind() == slog.KindFloat64:
			return v.Float64() >= 0
		case v.Kind() == slog.KindInt64:
			return v.Int64() >= 0
		default:
			return false
		}
	})
}

// WithAttribute keeps records having key with a value that prints as value.
func (m *LogRecordMatcher) WithAttribute(key, value string) *LogRecordMatcher {
	return m.keep(func(attrs map[string]slog.Value) bool {
		v, ok := attrs[key]
		return ok && fmt.Sprint(v.Any()) == value
	})
}

// WithAttributeKey keeps records having key.
func (m *LogRecordMatcher) WithAttributeKey(key string) *LogRecordMatcher {
	return m.keep(func(attrs map[string]slog.Value) bool {
		_, ok := attrs[key]
		return ok
	})
}

func (m *LogRecordMatcher) Assert() bool {
	return len(m.candidates) > 0
}

func (m *LogRecordMatcher) keep(predicate func(attrs map[string]slog.Value) bool) *LogRecordMatcher {
	m.candidates = slices.DeleteFunc(m.candidates, func(r slog.Record) bool {
		return !predicate(attrsOf(r))
	})

	return m
}

func attrsOf(record slog.Record) map[string]slog.Value {
	attrs := make(map[string]slog.Value, record.NumAttrs())
	record.Attrs(func(attr slog.Attr) bool {
		attrs[attr.Key] = attr.Value.Resolve()
		return true
	})

	return attrs
}
