package oteladapters

import (
	"context"
	"sort"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/AntonStoeckl/dbstate-harness-go/dbstate"
)

const (
	statusDescriptionFailed          = "dbstate operation failed"
	statusDescriptionSafetyViolation = "reset refused by safety guard"
	statusDescriptionCanceled        = "dbstate operation canceled"
	statusAttrKey                    = "dbstate.status"
)

// TracingCollector implements dbstate.TracingCollector with an OpenTelemetry tracer.
type TracingCollector struct {
	tracer trace.Tracer
}

// NewTracingCollector creates a collector starting spans on tracer.
func NewTracingCollector(tracer trace.Tracer) *TracingCollector {
	return &TracingCollector{tracer: tracer}
}

// StartSpan starts an internal span carrying attrs and returns the context holding it.
func (t *TracingCollector) StartSpan(
	ctx context.Context,
	name string,
	attrs map[string]string,
) (context.Context, dbstate.SpanContext) {
	spanCtx, span := t.tracer.Start(
		ctx,
		name,
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(toAttributes(attrs)...),
	)

	return spanCtx, &OTelSpanContext{span: span}
}

// FinishSpan adds attrs, maps status onto the span and ends it.
// Spans not created by this collector are ignored.
func (t *TracingCollector) FinishSpan(spanCtx dbstate.SpanContext, status string, attrs map[string]string) {
	otelSpanCtx, ok := spanCtx.(*OTelSpanContext)
	if !ok {
		return
	}

	otelSpanCtx.span.SetAttributes(toAttributes(attrs)...)
	otelSpanCtx.SetStatus(status)
	otelSpanCtx.span.End()
}

var _ dbstate.TracingCollector = (*TracingCollector)(nil)

// OTelSpanContext wraps an OpenTelemetry span as a dbstate.SpanContext.
type OTelSpanContext struct {
	span trace.Span
}

// SetStatus maps the store's status strings onto OpenTelemetry status codes.
// Unknown statuses leave the code unset and are kept as an attribute.
func (s *OTelSpanContext) SetStatus(status string) {
	switch status {
	case "success", "ok":
		s.span.SetStatus(codes.Ok, "")
	case "error", "failed":
		s.span.SetStatus(codes.Error, statusDescriptionFailed)
	case "safety_violation":
		s.span.SetStatus(codes.Error, statusDescriptionSafetyViolation)
	case "canceled", "cancelled":
		s.span.SetStatus(codes.Error, statusDescriptionCanceled)
	default:
		s.span.SetAttributes(attribute.String(statusAttrKey, status))
	}
}

func (s *OTelSpanContext) AddAttribute(key, value string) {
	s.span.SetAttributes(attribute.String(key, value))
}

var _ dbstate.SpanContext = (*OTelSpanContext)(nil)

// toAttributes converts string labels to attributes in key order.
func toAttributes(labels map[string]string) []attribute.KeyValue {
	keys := make([]string, 0, len(labels))
	for key := range labels {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	attrs := make([]attribute.KeyValue, 0, len(labels))
	for _, key := range keys {
		attrs = append(attrs, attribute.String(key, labels[key]))
	}

	return attrs
}
