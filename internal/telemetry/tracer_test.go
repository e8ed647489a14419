// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package telemetry

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestNewProvider_Disabled(t *testing.T) {
	provider, err := NewProvider(context.Background(), Config{Enabled: false, ExporterType: "grpc"})
	require.NoError(t, err)
	assert.Nil(t, provider.tp)

	_, span := otel.Tracer("test").Start(context.Background(), "noop-check")
	assert.False(t, span.IsRecording())
	span.End()

	require.NoError(t, provider.Shutdown(context.Background()))
}

func TestNewProvider_InvalidExporter(t *testing.T) {
	_, err := NewProvider(context.Background(), Config{Enabled: true, ExporterType: "invalid"})
	require.EqualError(t, err, "unsupported exporter type: invalid (supported: grpc, http)")
}

func TestSamplerFor(t *testing.T) {
	assert.Equal(t, "AlwaysOnSampler", samplerFor(1).Description())
	assert.Equal(t, "AlwaysOffSampler", samplerFor(0).Description())
	assert.Contains(t, samplerFor(0.5).Description(), "TraceIDRatioBased")
}

func TestProviderRecordsSpansWithEventAttributes(t *testing.T) {
	exp := tracetest.NewInMemoryExporter()
	provider, err := NewProviderWithExporter(context.Background(), Config{
		Enabled:      true,
		ServiceName:  "nerve-test",
		SamplingRate: 1,
	}, sdktrace.WithSyncer(exp))
	require.NoError(t, err)
	t.Cleanup(func() {
		_, _ = NewProvider(context.Background(), Config{})
	})

	_, span := Tracer("test").Start(context.Background(), "arbitrator.accept")
	span.SetAttributes(EventAttributes("BUMPER_PORT", 10, true)...)
	span.SetAttributes(MessageAttributes("abc", 7)...)
	span.End()

	spans := exp.GetSpans()
	t.Cleanup(func() { _ = provider.Shutdown(context.Background()) })
	require.Len(t, spans, 1)
	assert.Equal(t, "arbitrator.accept", spans[0].Name)
	assert.Contains(t, spans[0].Attributes, attribute.String(EventKindKey, "BUMPER_PORT"))
	assert.Contains(t, spans[0].Attributes, attribute.Int64(MessageSequenceKey, 7))
}

func TestMessageAttributes_OmitsZeroValues(t *testing.T) {
	assert.Empty(t, MessageAttributes("", 0))
	assert.Len(t, MessageAttributes("id", 0), 1)
}

func TestErrorAttributes(t *testing.T) {
	assert.Nil(t, ErrorAttributes(nil, "x"))
	attrs := ErrorAttributes(errors.New("boom"), "save")
	assert.Len(t, attrs, 3)
}
