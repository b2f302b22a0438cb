package oteladapters_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	oteltrace "go.opentelemetry.io/otel/trace"

	"github.com/AntonStoeckl/dbstate-harness-go/dbstate/oteladapters"
)

func givenTracingCollector(t *testing.T) (*oteladapters.TracingCollector, *tracetest.InMemoryExporter) {
	t.Helper()

	exporter := tracetest.NewInMemoryExporter()
	provider := trace.NewTracerProvider(trace.WithSyncer(exporter))
	t.Cleanup(func() { _ = provider.Shutdown(context.Background()) })

	return oteladapters.NewTracingCollector(provider.Tracer("test")), exporter
}

func Test_TracingCollector_StartAndFinishSpan(t *testing.T) {
	// setup
	collector, exporter := givenTracingCollector(t)

	// act
	ctx, spanCtx := collector.StartSpan(context.Background(), "dbstate.load", map[string]string{
		"operation": "load",
		"schema":    "public",
	})
	spanCtx.AddAttribute("duration_ms", "1.250")
	collector.FinishSpan(spanCtx, "success", map[string]string{"row_count": "3"})

	// assert
	assert.True(t, oteltrace.SpanContextFromContext(ctx).IsValid())

	spans := exporter.GetSpans()
	require.Len(t, spans, 1)
	span := spans[0]
	assert.Equal(t, "dbstate.load", span.Name)
	assert.Equal(t, oteltrace.SpanKindInternal, span.SpanKind)
	assert.Equal(t, codes.Ok, span.Status.Code)
	assertSpanHasAttribute(t, span, "operation", "load")
	assertSpanHasAttribute(t, span, "schema", "public")
	assertSpanHasAttribute(t, span, "duration_ms", "1.250")
	assertSpanHasAttribute(t, span, "row_count", "3")
}

func Test_TracingCollector_StatusMapping(t *testing.T) {
	testCases := []struct {
		status      string
		code        codes.Code
		description string
	}{
		{status: "success", code: codes.Ok},
		{status: "error", code: codes.Error, description: "dbstate operation failed"},
		{status: "safety_violation", code: codes.Error, description: "reset refused by safety guard"},
		{status: "canceled", code: codes.Error, description: "dbstate operation canceled"},
		{status: "skipped", code: codes.Unset},
	}

	for _, tc := range testCases {
		t.Run(tc.status, func(t *testing.T) {
			// setup
			collector, exporter := givenTracingCollector(t)

			// act
			_, spanCtx := collector.StartSpan(context.Background(), "dbstate.reset", nil)
			collector.FinishSpan(spanCtx, tc.status, nil)

			// assert
			spans := exporter.GetSpans()
			require.Len(t, spans, 1)
			assert.Equal(t, tc.code, spans[0].Status.Code)
			assert.Equal(t, tc.description, spans[0].Status.Description)
		})
	}
}

func Test_TracingCollector_UnknownStatusBecomesAttribute(t *testing.T) {
	// setup
	collector, exporter := givenTracingCollector(t)

	// act
	_, spanCtx := collector.StartSpan(context.Background(), "dbstate.dump", nil)
	collector.FinishSpan(spanCtx, "partial", nil)

	// assert
	spans := exporter.GetSpans()
	require.Len(t, spans, 1)
	assertSpanHasAttribute(t, spans[0], "dbstate.status", "partial")
}

func Test_TracingCollector_ChildSpansShareTrace(t *testing.T) {
	// setup
	collector, exporter := givenTracingCollector(t)

	// act
	parentCtx, parent := collector.StartSpan(context.Background(), "dbstate.diff", nil)
	_, child := collector.StartSpan(parentCtx, "dbstate.dump", nil)
	collector.FinishSpan(child, "success", nil)
	collector.FinishSpan(parent, "success", nil)

	// assert
	spans := exporter.GetSpans()
	require.Len(t, spans, 2)
	assert.Equal(t, spans[1].SpanContext.TraceID(), spans[0].SpanContext.TraceID())
	assert.Equal(t, spans[1].SpanContext.SpanID(), spans[0].Parent.SpanID())
}

type foreignSpan struct{}

func (foreignSpan) SetStatus(string)            {}
func (foreignSpan) AddAttribute(string, string) {}

func Test_TracingCollector_IgnoresForeignSpanContexts(t *testing.T) {
	// setup
	collector, exporter := givenTracingCollector(t)

	// act & assert
	assert.NotPanics(t, func() {
		collector.FinishSpan(foreignSpan{}, "success", map[string]string{"k": "v"})
	})
	assert.Empty(t, exporter.GetSpans())
}

func assertSpanHasAttribute(t *testing.T, span tracetest.SpanStub, key, expectedValue string) {
	t.Helper()

	for _, attr := range span.Attributes {
		if attr.Key == attribute.Key(key) && attr.Value.AsString() == expectedValue {
			return
		}
	}

	assert.Fail(t, "span attribute missing", "expected %s=%s on span %s", key, expectedValue, span.Name)
}
