package helper

import (
	"context"
	"log/slog"
	"os"
	"slices"
	"sync"
)

// LogHandlerSpy is a slog.Handler that keeps every record it receives.
// Attributes bound through WithAttrs are folded into the records of the derived handler.
type LogHandlerSpy struct {
	store *logStore
	bound []slog.Attr
	echo  slog.Handler
}

type logStore struct {
	mu      sync.Mutex
	records []slog.Record
}

// NewLogHandlerSpy creates a spy. With echoToStdout set, records are also written as JSON to stdout.
func NewLogHandlerSpy(echoToStdout bool) *LogHandlerSpy {
	spy := &LogHandlerSpy{store: &logStore{}}
	if echoToStdout {
		spy.echo = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug})
	}

	return spy
}

func (s *LogHandlerSpy) Handle(ctx context.Context, record slog.Record) error {
	captured := record.Clone()
	captured.AddAttrs(s.bound...)

	s.store.mu.Lock()
	s.store.records = append(s.store.records, captured)
	s.store.mu.Unlock()

	if s.echo != nil {
		return s.echo.Handle(ctx, captured)
	}

	return nil
}

func (s *LogHandlerSpy) Enabled(context.Context, slog.Level) bool {
	return true
}

func (s *LogHandlerSpy) WithAttrs(attrs []slog.Attr) slog.Handler {
	derived := *s
	derived.bound = append(slices.Clone(s.bound), attrs...)

	return &derived
}

// WithGroup is ignored; the harness never logs grouped attributes.
func (s *LogHandlerSpy) WithGroup(string) slog.Handler {
	return s
}

// Records returns a snapshot of the captured records.
func (s *LogHandlerSpy) Records() []slog.Record {
	s.store.mu.Lock()
	defer s.store.mu.Unlock()

	return slices.Clone(s.store.records)
}

// Reset drops the captured records.
func (s *LogHandlerSpy) Reset() {
	s.store.mu.Lock()
	defer s.store.mu.Unlock()

	s.store.records = nil
}

// CountLogsWithMessage counts the records of the given level and message.
func (s *LogHandlerSpy) CountLogsWithMessage(level slog.Level, message string) int {
	count := 0
	for _, record := range s.Records() {
		if record.Level == level && record.Message == message {
			count++
		}
	}

	return count
}

// SpyLogRecordMatcher provides a fluent interface for checking log record attributes.
type SpyLogRecordMatcher struct {
	record *slog.Record
	found  bool
}

// HasDebugLogWithMessage starts a fluent chain to check a debug-level log record.
func (s *LogHandlerSpy) HasDebugLogWithMessage(message string) *SpyLogRecordMatcher {
	return s.hasLogWithMessage(slog.LevelDebug, message)
}

// HasInfoLogWithMessage starts a fluent chain to check an info-level log record.
func (s *LogHandlerSpy) HasInfoLogWithMessage(message string) *SpyLogRecordMatcher {
	return s.hasLogWithMessage(slog.LevelInfo, message)
}

// HasWarnLogWithMessage starts a fluent chain to check a warn-level log record.
func (s *LogHandlerSpy) HasWarnLogWithMessage(message string) *SpyLogRecordMatcher {
	return s.hasLogWithMessage(slog.LevelWarn, message)
}

// HasErrorLogWithMessage starts a fluent chain to check an error-level log record.
func (s *LogHandlerSpy) HasErrorLogWithMessage(message string) *SpyLogRecordMatcher {
	return s.hasLogWithMessage(slog.LevelError, message)
}

func (s *LogHandlerSpy) hasLogWithMessage(level slog.Level, message string) *SpyLogRecordMatcher {
	records := s.Records()
	for i := len(records) - 1; i >= 0; i-- {
		if records[i].Level == level && records[i].Message == message {
			record := records[i]
			return &SpyLogRecordMatcher{record: &record, found: true}
		}
	}

	return &SpyLogRecordMatcher{found: false}
}

// WithDurationMS checks if the log record has a duration_ms attribute with a non-negative value.
func (m *SpyLogRecordMatcher) WithDurationMS() *SpyLogRecordMatcher {
	return m.withAttr("duration_ms", func(value slog.Value) bool {
		switch value.Kind() {
		case slog.KindInt64:
			return value.Int64() >= 0
		case slog.KindFloat64:
			return value.Float64() >= 0
		default:
			return false
		}
	})
}

// WithIntAttr checks if the log record has an integer attribute with the given value.
func (m *SpyLogRecordMatcher) WithIntAttr(key string, expected int64) *SpyLogRecordMatcher {
	return m.withAttr(key, func(value slog.Value) bool {
		return value.Kind() == slog.KindInt64 && value.Int64() == expected
	})
}

// WithStringAttr checks if the log record has a string attribute with the given value.
func (m *SpyLogRecordMatcher) WithStringAttr(key string, expected string) *SpyLogRecordMatcher {
	return m.withAttr(key, func(value slog.Value) bool {
		return value.Kind() == slog.KindString && value.String() == expected
	})
}

// WithAttr checks if the log record has an attribute with the given key.
func (m *SpyLogRecordMatcher) WithAttr(key string) *SpyLogRecordMatcher {
	return m.withAttr(key, func(slog.Value) bool { return true })
}

func (m *SpyLogRecordMatcher) withAttr(key string, accept func(slog.Value) bool) *SpyLogRecordMatcher {
	if !m.found {
		return m
	}

	matched := false
	m.record.Attrs(func(attr slog.Attr) bool {
		if attr.Key == key && accept(attr.Value) {
			matched = true
			return false
		}

		return true
	})

	if !matched {
		m.found = false
	}

	return m
}

// Assert returns true if all conditions in the fluent chain were met.
func (m *SpyLogRecordMatcher) Assert() bool {
	return m.found
}
