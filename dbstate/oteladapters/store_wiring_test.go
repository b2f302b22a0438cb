package oteladapters_test

import (
	"bytes"
	"context"
	"database/sql"
	"log/slog"
	"testing"

	_ "github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/codes"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/AntonStoeckl/dbstate-harness-go/dbstate"
	"github.com/AntonStoeckl/dbstate-harness-go/dbstate/oteladapters"
	"github.com/AntonStoeckl/dbstate-harness-go/dbstate/postgresengine"
)

// The refused reset never touches the database, so an unopened lib/pq handle is enough here.
func Test_Store_RefusedReset_ReportsThroughOTelAdapters(t *testing.T) {
	// setup
	db, err := sql.Open("postgres", "postgres://nobody@127.0.0.1:1/none?sslmode=disable")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	spanExporter := tracetest.NewInMemoryExporter()
	tracerProvider := trace.NewTracerProvider(trace.WithSyncer(spanExporter))
	reader := sdkmetric.NewManualReader()
	meterProvider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))

	var logs bytes.Buffer
	logger := oteladapters.NewSlogBridgeLoggerWithHandler(slog.NewJSONHandler(&logs, nil))

	// arrange
	store, err := postgresengine.NewStoreFromSQLDB(db,
		postgresengine.WithEnvLookup(func(string) (string, bool) { return "", false }),
		postgresengine.WithContextualLogger(logger),
		postgresengine.WithMetrics(oteladapters.NewMetricsCollector(meterProvider.Meter("dbstate"))),
		postgresengine.WithTracing(oteladapters.NewTracingCollector(tracerProvider.Tracer("dbstate"))),
	)
	require.NoError(t, err)

	// act
	err = store.ResetAll(context.Background())

	// assert
	require.ErrorIs(t, err, dbstate.ErrSafetyViolation)

	spans := spanExporter.GetSpans()
	require.Len(t, spans, 1)
	assert.Equal(t, "dbstate.reset", spans[0].Name)
	assert.Equal(t, codes.Error, spans[0].Status.Code)
	assertSpanHasAttribute(t, spans[0], "error_type", "safety_violation")

	resourceMetrics := collect(t, reader)
	violations := findCounterMetric(t, resourceMetrics, "dbstate_safety_violations_total")
	require.Len(t, violations.DataPoints, 1)
	assert.Equal(t, int64(1), violations.DataPoints[0].Value)
	assert.Len(t, findHistogramMetric(t, resourceMetrics, "dbstate_operation_duration_seconds").DataPoints, 1)

	assert.Contains(t, logs.String(), `"level":"ERROR"`)
	assert.Contains(t, logs.String(), "YES_PLEASE_DELETE_ALL_MY_DATA_VERY_OFTEN")
}
