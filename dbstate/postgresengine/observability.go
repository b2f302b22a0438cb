package postgresengine

import (
	"context"
	"math"
	"strconv"
	"time"

	"github.com/AntonStoeckl/dbstate-harness-go/dbstate"
)

const (
	metricOperationDuration = "dbstate_operation_duration_seconds"
	metricErrors            = "dbstate_errors_total"
	metricSafetyViolations  = "dbstate_safety_violations_total"
	metricRowsLoaded        = "dbstate_rows_loaded"
	metricRowsDumped        = "dbstate_rows_dumped"
	metricTablesTruncated   = "dbstate_tables_truncated"

	spanNamePrefix    = "dbstate."
	spanAttrOperation = "operation"
	spanAttrSchema    = "schema"
	spanAttrErrorType = "error_type"
	spanAttrDuration  = "duration_ms"

	labelOperation = "operation"
	labelStatus    = "status"
	labelErrorType = "error_type"

	statusSuccess = "success"
	statusError   = "error"
)

// operationObserver ties the span, the metrics and the summary log line of one Store operation together.
type operationObserver struct {
	store     *Store
	ctx       context.Context
	operation string
	span      dbstate.SpanContext
	start     time.Time
}

// startOperation opens a span for the operation and starts its clock.
func (s *Store) startOperation(ctx context.Context, operation string) (*operationObserver, context.Context) {
	spanCtx := ctx
	var span dbstate.SpanContext

	if s.tracingCollector != nil {
		spanCtx, span = s.tracingCollector.StartSpan(ctx, spanNamePrefix+operation, map[string]string{
			spanAttrOperation: operation,
			spanAttrSchema:    s.schema,
		})
	}

	return &operationObserver{
		store:     s,
		ctx:       spanCtx,
		operation: operation,
		span:      span,
		start:     time.Now(),
	}, spanCtx
}

// succeed records a successful operation; attrs go to the span, logArgs to the info log line.
func (o *operationObserver) succeed(attrs map[string]string, logArgs ...any) {
	duration := time.Since(o.start)

	o.store.recordDuration(o.ctx, o.operation, statusSuccess, duration)

	if o.span != nil {
		o.span.SetStatus(statusSuccess)
		o.span.AddAttribute(spanAttrDuration, strconv.FormatFloat(toMilliseconds(duration), 'f', 3, 64))
	}

	if o.store.tracingCollector != nil && o.span != nil {
		o.store.tracingCollector.FinishSpan(o.span, statusSuccess, attrs)
	}

	args := append([]any{logAttrDurationMS, toMilliseconds(duration)}, logArgs...)
	o.store.logInfo(o.ctx, logMsgOperation+o.operation, args...)
}

// fail records a failed operation and hands the error back for returning.
func (o *operationObserver) fail(message string, errorType string, err error, logArgs ...any) error {
	duration := time.Since(o.start)

	o.store.recordDuration(o.ctx, o.operation, statusError, duration)
	o.store.incrementCounter(o.ctx, metricErrors, map[string]string{
		labelOperation: o.operation,
		labelStatus:    statusError,
		labelErrorType: errorType,
	})

	if o.span != nil {
		o.span.SetStatus(statusError)
		o.span.AddAttribute(spanAttrErrorType, errorType)
	}

	if o.store.tracingCollector != nil && o.span != nil {
		o.store.tracingCollector.FinishSpan(o.span, statusError, map[string]string{spanAttrErrorType: errorType})
	}

	o.store.logError(o.ctx, message, err, logArgs...)

	return err
}

func (s *Store) recordDuration(ctx context.Context, operation, status string, duration time.Duration) {
	if s.metricsCollector == nil {
		return
	}

	labels := map[string]string{labelOperation: operation, labelStatus: status}

	if contextualCollector, ok := s.metricsCollector.(dbstate.ContextualMetricsCollector); ok {
		contextualCollector.RecordDurationContext(ctx, metricOperationDuration, duration, labels)
		return
	}

	s.metricsCollector.RecordDuration(metricOperationDuration, duration, labels)
}

func (s *Store) recordValue(ctx context.Context, metric, operation string, value float64) {
	if s.metricsCollector == nil {
		return
	}

	labels := map[string]string{labelOperation: operation, labelStatus: statusSuccess}

	if contextualCollector, ok := s.metricsCollector.(dbstate.ContextualMetricsCollector); ok {
		contextualCollector.RecordValueContext(ctx, metric, value, labels)
		return
	}

	s.metricsCollector.RecordValue(metric, value, labels)
}

func (s *Store) incrementCounter(ctx context.Context, metric string, labels map[string]string) {
	if s.metricsCollector == nil {
		return
	}

	if contextualCollector, ok := s.metricsCollector.(dbstate.ContextualMetricsCollector); ok {
		contextualCollector.IncrementCounterContext(ctx, metric, labels)
		return
	}

	s.metricsCollector.IncrementCounter(metric, labels)
}

// logStatement logs a SQL statement with its execution time at debug level.
func (s *Store) logStatement(ctx context.Context, statement string, action string, duration time.Duration) {
	args := []any{logAttrDurationMS, toMilliseconds(duration), logAttrQuery, statement}

	if s.logger != nil {
		s.logger.Debug(logMsgSQLExecuted+action, args...)
	}

	if s.contextualLogger != nil {
		s.contextualLogger.DebugContext(ctx, logMsgSQLExecuted+action, args...)
	}
}

func (s *Store) logInfo(ctx context.Context, message string, args ...any) {
	if s.logger != nil {
		s.logger.Info(message, args...)
	}

	if s.contextualLogger != nil {
		s.contextualLogger.InfoContext(ctx, message, args...)
	}
}

func (s *Store) logWarn(ctx context.Context, message string, args ...any) {
	if s.logger != nil {
		s.logger.Warn(message, args...)
	}

	if s.contextualLogger != nil {
		s.contextualLogger.WarnContext(ctx, message, args...)
	}
}

func (s *Store) logError(ctx context.Context, message string, err error, args ...any) {
	allArgs := []any{logAttrError, err.Error()}
	allArgs = append(allArgs, args...)

	if s.logger != nil {
		s.logger.Error(message, allArgs...)
	}

	if s.contextualLogger != nil {
		s.contextualLogger.ErrorContext(ctx, message, allArgs...)
	}
}

// toMilliseconds converts a time.Duration to float64 milliseconds with 3 decimal places.
func toMilliseconds(d time.Duration) float64 {
	return math.Round(float64(d.Nanoseconds())/1e6*1000) / 1000
}
