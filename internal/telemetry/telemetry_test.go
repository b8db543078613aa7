package telemetry

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

func TestProvider_ExportsOnShutdown(t *testing.T) {
	var buf bytes.Buffer
	p, err := New(&buf, false)
	require.NoError(t, err)

	ctx, root := p.Tracer(TracerName).Start(context.Background(), "sweep")
	_, child := p.Tracer(TracerName).Start(ctx, "trial", trace.WithAttributes(attribute.Int64("trial.id", 3)))
	child.End()
	root.End()

	require.NoError(t, p.Shutdown(context.Background()))

	out := buf.String()
	assert.Contains(t, out, `"Name":"sweep"`)
	assert.Contains(t, out, `"Name":"trial"`)
	assert.Contains(t, out, `"trial.id"`)
}

func TestProvider_PrettyPrint(t *testing.T) {
	var buf bytes.Buffer
	p, err := New(&buf, true)
	require.NoError(t, err)

	_, span := p.Tracer(TracerName).Start(context.Background(), "sweep")
	span.End()
	require.NoError(t, p.Shutdown(context.Background()))

	assert.Contains(t, buf.String(), "\n\t\"Name\": \"sweep\"")
}
