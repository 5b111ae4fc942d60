package telemetry

import (
	"net/http"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

// TracerProvider returns the process-wide trace provider. No exporter is
// wired by default: the core never decides where spans should be sent,
// it only guarantees that every request through a handler wrapped by
// WrapHTTP carries a span a host application's own tracer provider can
// pick up by calling
// otel.SetTracerProvider before this package is used.
func TracerProvider() trace.TracerProvider {
	if tp := otel.GetTracerProvider(); tp != nil {
		return tp
	}
	return noop.NewTracerProvider()
}

// WrapHTTP instruments an HTTP handler with otelhttp, tagging spans with
// operation for readability in whatever backend the host wires up.
func WrapHTTP(operation string, handler http.Handler) http.Handler {
	return otelhttp.NewHandler(handler, operation, otelhttp.WithTracerProvider(TracerProvider()))
}
