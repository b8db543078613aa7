// Package telemetry wires OpenTelemetry tracing for the CLI. Spans are
// written as JSON to a writer (stderr by default) by the stdout exporter.
package telemetry

import (
	"context"
	"fmt"
	"io"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
)

// TracerName is the instrumentation name for sweep-level spans.
const TracerName = "github.com/roach88/sweep"

// Provider owns a tracer provider and its exporter.
type Provider struct {
	tp *sdktrace.TracerProvider
}

// New creates a provider that samples every span and exports batches to w.
func New(w io.Writer, pretty bool) (*Provider, error) {
	opts := []stdouttrace.Option{stdouttrace.WithWriter(w)}
	if pretty {
		opts = append(opts, stdouttrace.WithPrettyPrint())
	}
	exporter, err := stdouttrace.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("create trace exporter: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
		sdktrace.WithBatcher(exporter),
	)
	return &Provider{tp: tp}, nil
}

// Install makes p the global tracer provider.
func (p *Provider) Install() {
	otel.SetTracerProvider(p.tp)
}

// Tracer returns a tracer from this provider.
func (p *Provider) Tracer(name string) trace.Tracer {
	return p.tp.Tracer(name)
}

// Shutdown flushes pending spans and stops the exporter.
func (p *Provider) Shutdown(ctx context.Context) error {
	return p.tp.Shutdown(ctx)
}
