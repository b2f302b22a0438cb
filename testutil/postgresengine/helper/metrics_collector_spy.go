package helper

import (
	"context"
	"maps"
	"sync"
	"time"

	"github.com/AntonStoeckl/dbstate-harness-go/dbstate"
)

// MetricKind tells which collector method produced a MetricRecord.
type MetricKind int

const (
	MetricKindDuration MetricKind = iota
	MetricKindCounter
	MetricKindValue
)

const (
	labelOperation = "operation"
	labelStatus    = "status"
	labelErrorType = "error_type"
)

// MetricRecord is one captured collector call. Duration is set for durations, Value for values.
type MetricRecord struct {
	Kind       MetricKind
	Metric     string
	Duration   time.Duration
	Value      float64
	Labels     map[string]string
	HadContext bool
}

// MetricsCollectorSpy records every call of a dbstate.ContextualMetricsCollector.
type MetricsCollectorSpy struct {
	mu          sync.Mutex
	records     []MetricRecord
	recordCalls bool
}

// NewMetricsCollectorSpy creates a spy. With recordCalls false it accepts and drops everything.
func NewMetricsCollectorSpy(recordCalls bool) *MetricsCollectorSpy {
	return &MetricsCollectorSpy{recordCalls: recordCalls}
}

func (s *MetricsCollectorSpy) RecordDuration(metric string, duration time.Duration, labels map[string]string) {
	s.record(MetricRecord{Kind: MetricKindDuration, Metric: metric, Duration: duration, Labels: labels})
}

func (s *MetricsCollectorSpy) IncrementCounter(metric string, labels map[string]string) {
	s.record(MetricRecord{Kind: MetricKindCounter, Metric: metric, Value: 1, Labels: labels})
}

func (s *MetricsCollectorSpy) RecordValue(metric string, value float64, labels map[string]string) {
	s.record(MetricRecord{Kind: MetricKindValue, Metric: metric, Value: value, Labels: labels})
}

func (s *MetricsCollectorSpy) RecordDurationContext(_ context.Context, metric string, duration time.Duration, labels map[string]string) {
	s.record(MetricRecord{Kind: MetricKindDuration, Metric: metric, Duration: duration, Labels: labels, HadContext: true})
}

func (s *MetricsCollectorSpy) IncrementCounterContext(_ context.Context, metric string, labels map[string]string) {
	s.record(MetricRecord{Kind: MetricKindCounter, Metric: metric, Value: 1, Labels: labels, HadContext: true})
}

func (s *MetricsCollectorSpy) RecordValueContext(_ context.Context, metric string, value float64, labels map[string]string) {
	s.record(MetricRecord{Kind: MetricKindValue, Metric: metric, Value: value, Labels: labels, HadContext: true})
}

func (s *MetricsCollectorSpy) record(r MetricRecord) {
	if !s.recordCalls {
		return
	}

	r.Labels = maps.Clone(r.Labels)

	s.mu.Lock()
	defer s.mu.Unlock()

	s.records = append(s.records, r)
}

// Records returns a copy of everything captured so far.
func (s *MetricsCollectorSpy) Records() []MetricRecord {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]MetricRecord, len(s.records))
	copy(out, s.records)

	return out
}

// Reset drops all captured records.
func (s *MetricsCollectorSpy) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.records = nil
}

// CountDurationRecordsForMetric counts the durations recorded for metric.
func (s *MetricsCollectorSpy) CountDurationRecordsForMetric(metric string) int {
	return s.count(MetricKindDuration, metric)
}

// CountCounterRecordsForMetric counts the increments of metric.
func (s *MetricsCollectorSpy) CountCounterRecordsForMetric(metric string) int {
	return s.count(MetricKindCounter, metric)
}

// CountValueRecordsForMetric counts the values recorded for metric.
func (s *MetricsCollectorSpy) CountValueRecordsForMetric(metric string) int {
	return s.count(MetricKindValue, metric)
}

func (s *MetricsCollectorSpy) count(kind MetricKind, metric string) int {
	n := 0
	for _, r := range s.Records() {
		if r.Kind == kind && r.Metric == metric {
			n++
		}
	}

	return n
}

// HasDurationRecordForMetric starts a match on the durations recorded for metric.
func (s *MetricsCollectorSpy) HasDurationRecordForMetric(metric string) *MetricRecordMatcher {
	return s.match(MetricKindDuration, metric)
}

// HasCounterRecordForMetric starts a match on the increments of metric.
func (s *MetricsCollectorSpy) HasCounterRecordForMetric(metric string) *MetricRecordMatcher {
	return s.match(MetricKindCounter, metric)
}

// HasValueRecordForMetric starts a match on the values recorded for metric.
func (s *MetricsCollectorSpy) HasValueRecordForMetric(metric string) *MetricRecordMatcher {
	return s.match(MetricKindValue, metric)
}

func (s *MetricsCollectorSpy) match(kind MetricKind, metric string) *MetricRecordMatcher {
	m := &MetricRecordMatcher{}
	for _, r := range s.Records() {
		if r.Kind == kind && r.Metric == metric {
			m.candidates = append(m.candidates, r)
		}
	}

	return m
}

// MetricRecordMatcher narrows the captured records step by step; Assert reports whether any are left.
type MetricRecordMatcher struct {
	candidates []MetricRecord
}

func (m *MetricRecordMatcher) WithOperation(operation string) *MetricRecordMatcher {
	return m.WithLabel(labelOperation, operation)
}

func (m *MetricRecordMatcher) WithStatus(status string) *MetricRecordMatcher {
	return m.WithLabel(labelStatus, status)
}

func (m *MetricRecordMatcher) WithErrorType(errorType string) *MetricRecordMatcher {
	return m.WithLabel(labelErrorType, errorType)
}

// WithLabel keeps records carrying key with exactly value.
func (m *MetricRecordMatcher) WithLabel(key, value string) *MetricRecordMatcher {
	return m.filter(func(r MetricRecord) bool { return r.Labels[key] == value })
}

// WithValue keeps records whose value is exactly value.
func (m *MetricRecordMatcher) WithValue(value float64) *MetricRecordMatcher {
	return m.filter(func(r MetricRecord) bool { return r.Value == value })
}

// WithContext keeps records that went through the context aware methods.
func (m *MetricRecordMatcher) WithContext() *MetricRecordMatcher {
	return m.filter(func(r MetricRecord) bool { return r.HadContext })
}

func (m *MetricRecordMatcher) filter(keep func(MetricRecord) bool) *MetricRecordMatcher {
	kept := m.candidates[:0:0]
	for _, r := range m.candidates {
		if keep(r) {
			kept = append(kept, r)
		}
	}

	m.candidates = kept

	return m
}

func (m *MetricRecordMatcher) Assert() bool {
	return len(m.candidates) > 0
}

var _ dbstate.ContextualMetricsCollector = (*MetricsCollectorSpy)(nil)
