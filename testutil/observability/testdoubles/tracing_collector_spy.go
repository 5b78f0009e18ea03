package testdoubles

import (
	"context"
	"maps"
	"slices"
	"sync"

	"github.com/AntonStoeckl/shelfstock/stock"
)

// SpySpanContext is the stock.SpanContext handed out by TracingCollectorSpy.
type SpySpanContext struct {
	mu         sync.Mutex
	status     string
	attributes map[string]string
}

func (c *SpySpanContext) SetStatus(status string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.status = status
}

func (c *SpySpanContext) AddAttribute(key, value string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.attributes == nil {
		c.attributes = map[string]string{}
	}
	c.attributes[key] = value
}

func (c *SpySpanContext) GetStatus() string {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.status
}

// SpanRecord is one span started on TracingCollectorSpy. Status and EndAttributes stay empty
// until the span is finished.
type SpanRecord struct {
	Name            string
	StartAttributes map[string]string
	Status          string
	EndAttributes   map[string]string

	span *SpySpanContext
}

// TracingCollectorSpy is a stock.TracingCollector that keeps every span.
// With recordCalls off it hands out nil spans.
type TracingCollectorSpy struct {
	mu          sync.Mutex
	spans       []SpanRecord
	recordCalls bool
}

func NewTracingCollectorSpy(recordCalls bool) *TracingCollectorSpy {
	return &TracingCollectorSpy{recordCalls: recordCalls}
}

func (s *TracingCollectorSpy) StartSpan(ctx context.Context, name string, attrs map[string]string) (context.Context, stock.SpanContext) {
	if !s.recordCalls {
		return ctx, nil
	}

	span := &SpySpanContext{}

	s.mu.Lock()
	s.spans = append(s.spans, SpanRecord{Name: name, StartAttributes: maps.Clone(attrs), span: span})
	s.mu.Unlock()

	return ctx, span
}

func (s *TracingCollectorSpy) FinishSpan(spanCtx stock.SpanContext, status string, attrs map[string]string) {
	span, ok := spanCtx.(*SpySpanContext)
	if !s.recordCalls || !ok {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if i := slices.IndexFunc(s.spans, func(r SpanRecord) bool { return r.span == span }); i >= 0 {
		s.spans[i].Status = status
		s.spans[i].EndAttributes = maps.Clone(attrs)
	}
}

// Spans returns a copy of the captured spans.
func (s *TracingCollectorSpy) Spans() []SpanRecord {
	s.mu.Lock()
	defer s.mu.Unlock()

	return slices.Clone(s.spans)
}

func (s *TracingCollectorSpy) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.spans = nil
}

func (s *TracingCollectorSpy) HasSpanRecordForName(name string) *SpanRecordMatcher {
	m := &SpanRecordMatcher{candidates: s.Spans()}

	return m.keep(func(r SpanRecord) bool { return r.Name == name })
}

// SpanRecordMatcher narrows down the spans of one name. Assert reports whether any span is left.
type SpanRecordMatcher struct {
	candidates []SpanRecord
}

func (m *SpanRecordMatcher) WithStatus(status string) *SpanRecordMatcher {
	return m.keep(func(r SpanRecord) bool { return r.Status == status })
}

func (m *SpanRecordMatcher) WithStartAttribute(key, value string) *SpanRecordMatcher {
	return m.keep(func(r SpanRecord) bool {
		v, ok := r.StartAttributes[key]
		return ok && v == value
	})
}

func (m *SpanRecordMatcher) WithEndAttributeKey(key string) *SpanRecordMatcher {
	return m.keep(func(r SpanRecord) bool {
		_, ok := r.EndAttributes[key]
		return ok
	})
}

func (m *SpanRecordMatcher) Assert() bool {
	return len(m.candidates) > 0
}

func (m *SpanRecordMatcher) keep(predicate func(SpanRecord) bool) *SpanRecordMatcher {
	m.candidates = slices.DeleteFunc(m.candidates, func(r SpanRecord) bool { return !predicate(r) })

	return m
}
