package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"csms/internal/infrastructure/log"
)

func TestTracing_StoresLoggerInContext(t *testing.T) {
	core, _ := observer.New(zapcore.InfoLevel)
	base := zap.New(core)

	var gotLogger *zap.Logger
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotLogger = log.FromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	})

	handler := Tracing(base)(next)

	req := httptest.NewRequest(http.MethodGet, "/charging/start", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.NotNil(t, gotLogger)
	assert.Equal(t, http.StatusOK, rec.Code)
}

// With a real tracer provider recording spans, the logger stashed in the
// request context must carry the span's trace_id.
func TestTracing_AnnotatesLoggerWithTraceIDWhenSpanRecording(t *testing.T) {
	exporter := tracetest.NewInMemoryExporter()
	provider := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(provider)
	defer otel.SetTracerProvider(prev)

	// tracer was bound to the package-level otel.Tracer("csms") at package
	// init against whatever provider was registered first; re-point it so
	// this test observes spans from the provider just installed.
	tracer = otel.Tracer("csms")

	core, recorded := observer.New(zapcore.InfoLevel)
	base := zap.New(core)

	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		log.FromContext(r.Context()).Info("probe")
		w.WriteHeader(http.StatusOK)
	})

	handler := Tracing(base)(next)
	req := httptest.NewRequest(http.MethodGet, "/charging/start", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)

	entries := recorded.All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.NotEmpty(t, fields["trace_id"], "logger in context should carry the span's trace_id once a real provider is recording")

	spans := exporter.GetSpans()
	require.Len(t, spans, 1)
	assert.Equal(t, "GET /charging/start", spans[0].Name)
}
