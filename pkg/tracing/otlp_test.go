package tracing

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace/noop"
)

func TestBootstrap_NoEndpoint_InstallsNothing(t *testing.T) {
	otel.SetTracerProvider(noop.NewTracerProvider())

	shutdown, err := Bootstrap(context.Background(), Config{})
	require.NoError(t, err)
	require.NotNil(t, shutdown)

	assert.Equal(t, noop.NewTracerProvider(), otel.GetTracerProvider(),
		"an empty endpoint must leave whatever tracer provider was already registered in place")

	assert.NoError(t, shutdown(context.Background()))
}

func TestBootstrap_WithEndpoint_InstallsBatchingProvider(t *testing.T) {
	shutdown, err := Bootstrap(context.Background(), Config{
		Endpoint:    "127.0.0.1:4317",
		Insecure:    true,
		ServiceName: "csms-test",
	})
	require.NoError(t, err)
	require.NotNil(t, shutdown)

	provider := otel.GetTracerProvider()
	assert.NotEqual(t, noop.NewTracerProvider(), provider,
		"a configured endpoint must install a real tracer provider, not the no-op default")

	assert.NoError(t, shutdown(context.Background()))
}
