package testdoubles

import (
	"context"
	"maps"
	"slices"
	"sync"
	"time"
)

type metricKind int

const (
	durationMetric metricKind = iota
	counterMetric
	valueMetric
)

// MetricRecord is one call made to MetricsCollectorSpy. Duration is set for duration metrics,
// Value for value metrics.
type MetricRecord struct {
	Metric   string
	Duration time.Duration
	Value    float64
	Labels   map[string]string

	kind metricKind
}

// MetricsCollectorSpy is a stock.ContextualMetricsCollector that keeps every call.
// With recordCalls off it accepts calls and forgets them.
type MetricsCollectorSpy struct {
	mu          sync.Mutex
	records     []MetricRecord
	recordCalls bool
}

func NewMetricsCollectorSpy(recordCalls bool) *MetricsCollectorSpy {
	return &MetricsCollectorSpy{recordCalls: recordCalls}
}

func (s *MetricsCollectorSpy) RecordDuration(metric string, duration time.Duration, labels map[string]string) {
	s.add(MetricRecord{Metric: metric, Duration: duration, Labels: maps.Clone(labels), kind: durationMetric})
}

func (s *MetricsCollectorSpy) IncrementCounter(metric string, labels map[string]string) {
	s.add(MetricRecord{Metric: metric, Labels: maps.Clone(labels), kind: counterMetric})
}

func (s *MetricsCollectorSpy) RecordValue(metric string, value float64, labels map[string]string) {
	s.add(MetricRecord{Metric: metric, Value: value, Labels: maps.Clone(labels), kind: valueMetric})
}

func (s *MetricsCollectorSpy) RecordDurationContext(_ context.Context, metric string, duration time.Duration, labels map[string]string) {
	s.RecordDuration(metric, duration, labels)
}

func (s *MetricsCollectorSpy) IncrementCounterContext(_ context.Context, metric string, labels map[string]string) {
	s.IncrementCounter(metric, labels)
}

func (s *MetricsCollectorSpy) RecordValueContext(_ context.Context, metric string, value float64, labels map[string]string) {
	s.RecordValue(metric, value, labels)
}

// Records returns a copy of everything captured so far.
func (s *MetricsCollectorSpy) Records() []MetricRecord {
	s.mu.Lock()
	defer s.mu.Unlock()

	return slices.Clone(s.records)
}

func (s *MetricsCollectorSpy) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.records = nil
}

func (s *MetricsCollectorSpy) HasDurationRecordForMetric(metric string) *MetricRecordMatcher {
	return &MetricRecordMatcher{candidates: s.recordsOf(durationMetric, metric)}
}

func (s *MetricsCollectorSpy) HasCounterRecordForMetric(metric string) *MetricRecordMatcher {
	return &MetricRecordMatcher{candidates: s.recordsOf(counterMetric, metric)}
}

func (s *MetricsCollectorSpy) HasValueRecordForMetric(metric string) *MetricRecordMatcher {
	return &MetricRecordMatcher{candidates: s.recordsOf(valueMetric, metric)}
}

func (s *MetricsCollectorSpy) CountDurationRecordsForMetric(metric string) int {
	return len(s.recordsOf(durationMetric, metric))
}

func (s *MetricsCollectorSpy) CountCounterRecordsForMetric(metric string) int {
	return len(s.recordsOf(counterMetric, metric))
}

func (s *MetricsCollectorSpy) CountValueRecordsForMetric(metric string) int {
	return len(s.recordsOf(valueMetric, metric))
}

func (s *MetricsCollectorSpy) add(record MetricRecord) {
	if !s.recordCalls {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.records = append(s.records, record)
}

func (s *MetricsCollectorSpy) recordsOf(kind metricKind, metric string) []MetricRecord {
	return slices.DeleteFunc(s.Records(), func(r MetricRecord) bool {
		return r.kind != kind || r.Metric != metric
	})
}

// MetricRecordMatcher narrows down the records of one metric by label.
type MetricRecordMatcher struct {
	candidates []MetricRecord
}

func (m *MetricRecordMatcher) WithOperationType(operationType string) *MetricRecordMatcher {
	return m.WithLabel("operation_type", operationType)
}

// WithOperation checks the operation label used by the store metrics.
func (m *MetricRecordMatcher) WithOperation(operation string) *MetricRecordMatcher {
	return m.WithLabel("operation", operation)
}

func (m *MetricRecordMatcher) WithStatus(status string) *MetricRecordMatcher {
	return m.WithLabel("status", status)
}

func (m *MetricRecordMatcher) WithErrorType(errorType string) *MetricRecordMatcher {
	return m.WithLabel("error_type", errorType)
}

func (m *MetricRecordMatcher) WithLabel(key, value string) *MetricRecordMatcher {
	m.candidates = slices.DeleteFunc(m.candidates, func(r MetricRecord) bool {
		v, ok := r.Labels[key]
		return !ok || v != value
	})

	return m
}

// Assert reports whether at least one record matched every condition.
func (m *MetricRecordMatcher) Assert() bool {
	return len(m.candidates) > 0
}
