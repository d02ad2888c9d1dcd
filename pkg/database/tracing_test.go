package database

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

const (
	getSlotSQL = "SELECT payload FROM cart_slots WHERE slot_key = $1"
	putSlotSQL = "INSERT INTO cart_slots (slot_key, payload) VALUES ($1, $2)"
)

func setupTestTracer(t *testing.T) *tracetest.InMemoryExporter {
	t.Helper()

	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithSyncer(exporter),
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
	)
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)

	t.Cleanup(func() {
		_ = tp.Shutdown(context.Background())
		otel.SetTracerProvider(prev)
	})
	return exporter
}

func captureSlowQueries(t *testing.T, threshold time.Duration) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	SetSlowQueryLogging(threshold, slog.New(slog.NewJSONHandler(&buf, nil)))
	t.Cleanup(func() { SetSlowQueryLogging(0, nil) })
	return &buf
}

func TestTraceQuery_RecordsSpan(t *testing.T) {
	exporter := setupTestTracer(t)

	_, end := TraceQuery(context.Background(), "GetSlot", getSlotSQL)
	end(nil)

	spans := exporter.GetSpans()
	require.Len(t, spans, 1)
	span := spans[0]
	assert.Equal(t, "db.GetSlot", span.Name)
	assert.Equal(t, codes.Unset, span.Status.Code)

	attrs := make(map[string]string)
	for _, a := range span.Attributes {
		attrs[string(a.Key)] = a.Value.Emit()
	}
	assert.Equal(t, "postgresql", attrs["db.system"])
	assert.Equal(t, "GetSlot", attrs["db.operation"])
	assert.Equal(t, getSlotSQL, attrs["db.statement"])
}

func TestTraceQuery_RecordsError(t *testing.T) {
	exporter := setupTestTracer(t)

	_, end := TraceQuery(context.Background(), "PutSlot", putSlotSQL)
	end(errors.New("connection refused"))

	spans := exporter.GetSpans()
	require.Len(t, spans, 1)
	assert.Equal(t, codes.Error, spans[0].Status.Code)
	assert.NotEmpty(t, spans[0].Events)
}

func TestTraceQuery_ChildOfCallerSpan(t *testing.T) {
	exporter := setupTestTracer(t)

	ctx, parent := otel.Tracer("test").Start(context.Background(), "AddItem")
	_, end := TraceQuery(ctx, "PutSlot", putSlotSQL)
	end(nil)
	parent.End()

	spans := exporter.GetSpans()
	require.Len(t, spans, 2)
	assert.Equal(t, spans[1].SpanContext.SpanID(), spans[0].Parent.SpanID())
}

func TestSlowQueryLogging(t *testing.T) {
	tests := []struct {
		name      string
		threshold time.Duration
		err       error
		want      []string
		wantNone  bool
	}{
		{name: "slow", threshold: time.Nanosecond, want: []string{"slow query detected", "GetSlot", getSlotSQL}},
		{name: "slow with error", threshold: time.Nanosecond, err: errors.New("deadlock detected"), want: []string{"slow query detected", "deadlock detected"}},
		{name: "fast", threshold: time.Hour, wantNone: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setupTestTracer(t)
			buf := captureSlowQueries(t, tt.threshold)

			_, end := TraceQuery(context.Background(), "GetSlot", getSlotSQL)
			end(tt.err)

			if tt.wantNone {
				assert.Empty(t, buf.String())
				return
			}
			for _, s := range tt.want {
				assert.Contains(t, buf.String(), s)
			}
		})
	}
}

func TestSlowQueryLogging_DisabledWithNilLogger(t *testing.T) {
	setupTestTracer(t)
	SetSlowQueryLogging(0, nil)

	_, end := TraceQuery(context.Background(), "DeleteSlot", "DELETE FROM cart_slots WHERE slot_key = $1")
	assert.NotPanics(t, func() { end(nil) })
}

func TestSetSlowQueryLogging_Concurrent(t *testing.T) {
	t.Cleanup(func() { SetSlowQueryLogging(0, nil) })
	logger := slog.New(slog.NewJSONHandler(&bytes.Buffer{}, nil))

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 100; i++ {
			SetSlowQueryLogging(time.Duration(i)*time.Millisecond, logger)
		}
	}()
	for i := 0; i < 100; i++ {
		loadSlowQueryLog()
	}
	<-done
}

func TestSetSlowQueryLogging_ZeroThresholdDisables(t *testing.T) {
	SetSlowQueryLogging(0, slog.Default())
	assert.Nil(t, loadSlowQueryLog())

	SetSlowQueryLogging(time.Second, nil)
	assert.Nil(t, loadSlowQueryLog())
}
