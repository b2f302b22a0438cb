package helper

import (
	"context"
	"maps"
	"sync"

	"github.com/AntonStoeckl/dbstate-harness-go/dbstate"
)

// SpanRecord is one span opened through the spy.
type SpanRecord struct {
	Name            string
	StartAttributes map[string]string
	EndAttributes   map[string]string
	Status          string
	Finished        bool

	// set through the SpanContext while the span was open
	SpanAttributes map[string]string
	SpanStatus     string
}

// TracingCollectorSpy records the spans a Store opens and finishes.
type TracingCollectorSpy struct {
	mu          sync.Mutex
	spans       []*SpanRecord
	recordCalls bool
}

// NewTracingCollectorSpy creates a spy. With recordCalls false StartSpan hands out no span at all.
func NewTracingCollectorSpy(recordCalls bool) *TracingCollectorSpy {
	return &TracingCollectorSpy{recordCalls: recordCalls}
}

type spySpan struct {
	spy    *TracingCollectorSpy
	record *SpanRecord
}

func (s *spySpan) SetStatus(status string) {
	s.spy.mu.Lock()
	defer s.spy.mu.Unlock()

	s.record.SpanStatus = status
}

func (s *spySpan) AddAttribute(key, value string) {
	s.spy.mu.Lock()
	defer s.spy.mu.Unlock()

	s.record.SpanAttributes[key] = value
}

func (s *TracingCollectorSpy) StartSpan(ctx context.Context, name string, attrs map[string]string) (context.Context, dbstate.SpanContext) {
	if !s.recordCalls {
		return ctx, nil
	}

	record := &SpanRecord{
		Name:            name,
		StartAttributes: maps.Clone(attrs),
		SpanAttributes:  map[string]string{},
	}

	s.mu.Lock()
	s.spans = append(s.spans, record)
	s.mu.Unlock()

	return ctx, &spySpan{spy: s, record: record}
}

func (s *TracingCollectorSpy) FinishSpan(spanCtx dbstate.SpanContext, status string, attrs map[string]string) {
	span, ok := spanCtx.(*spySpan)
	if !ok || span.spy != s {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	span.record.Status = status
	span.record.EndAttributes = maps.Clone(attrs)
	span.record.Finished = true
}

// Spans returns copies of all recorded spans in start order.
func (s *TracingCollectorSpy) Spans() []SpanRecord {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]SpanRecord, 0, len(s.spans))
	for _, r := range s.spans {
		c := *r
		c.StartAttributes = maps.Clone(r.StartAttributes)
		c.EndAttributes = maps.Clone(r.EndAttributes)
		c.SpanAttributes = maps.Clone(r.SpanAttributes)
		out = append(out, c)
	}

	return out
}

// CountSpanRecordsForName counts the spans started with name.
func (s *TracingCollectorSpy) CountSpanRecordsForName(name string) int {
	return len(s.HasSpanRecordForName(name).candidates)
}

// HasSpanRecordForName starts a match on the spans started with name.
func (s *TracingCollectorSpy) HasSpanRecordForName(name string) *SpanRecordMatcher {
	m := &SpanRecordMatcher{}
	for _, r := range s.Spans() {
		if r.Name == name {
			m.candidates = append(m.candidates, r)
		}
	}

	return m
}

// SpanRecordMatcher narrows the recorded spans step by step; Assert reports whether any are left.
type SpanRecordMatcher struct {
	candidates []SpanRecord
}

// WithStatus matches the status passed to FinishSpan.
func (m *SpanRecordMatcher) WithStatus(status string) *SpanRecordMatcher {
	return m.filter(func(r SpanRecord) bool { return r.Finished && r.Status == status })
}

func (m *SpanRecordMatcher) WithStartAttribute(key, value string) *SpanRecordMatcher {
	return m.filter(func(r SpanRecord) bool { return hasEntry(r.StartAttributes, key, value) })
}

func (m *SpanRecordMatcher) WithEndAttribute(key, value string) *SpanRecordMatcher {
	return m.filter(func(r SpanRecord) bool { return hasEntry(r.EndAttributes, key, value) })
}

// WithSpanAttribute matches attributes added on the open span.
func (m *SpanRecordMatcher) WithSpanAttribute(key, value string) *SpanRecordMatcher {
	return m.filter(func(r SpanRecord) bool { return hasEntry(r.SpanAttributes, key, value) })
}

// WithAttributeKey matches spans that got key on the open span, whatever its value.
func (m *SpanRecordMatcher) WithAttributeKey(key string) *SpanRecordMatcher {
	return m.filter(func(r SpanRecord) bool {
		_, ok := r.SpanAttributes[key]
		return ok
	})
}

func (m *SpanRecordMatcher) filter(keep func(SpanRecord) bool) *SpanRecordMatcher {
	kept := m.candidates[:0:0]
	for _, r := range m.candidates {
		if keep(r) {
			kept = append(kept, r)
		}
	}

	m.candidates = kept

	return m
}

func (m *SpanRecordMatcher) Assert() bool {
	return len(m.candidates) > 0
}

func hasEntry(attrs map[string]string, key, value string) bool {
	v, ok := attrs[key]
	return ok && v == value
}

var _ dbstate.TracingCollector = (*TracingCollectorSpy)(nil)
