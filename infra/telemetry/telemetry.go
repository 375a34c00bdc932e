// Package telemetry wires OpenTelemetry tracing around the dispatcher's
// hot path (handshake, per-message handling). The teacher pulls in the
// OTel SDK for its gRPC interceptors; Fireline has no gRPC surface, so the
// spans live directly around dispatcher.Session.HandleFrame instead.
package telemetry

import (
	"context"

	"go.opentelemetry.io/otel/sdk/trace"
)

// NewTracerProvider returns a TracerProvider with no exporter attached.
// Spans are still created (so code paths instrumented with
// tracer.Start/span.End behave identically whether or not an operator has
// wired a collector), they are simply dropped at Shutdown. Wiring a real
// OTLP exporter is an infra-level decision for a production deployment,
// not part of this edge coordinator's protocol surface.
func NewTracerProvider() *trace.TracerProvider {
	return trace.NewTracerProvider()
}

// Shutdown flushes and stops tp. It gives up and returns ctx's error if
// ctx is done before the provider has finished shutting down.
func Shutdown(ctx context.Context, tp *trace.TracerProvider) error {
	return tp.Shutdown(ctx)
}
