package httpapi

import (
	"context"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

var (
	apiTracer = otel.Tracer("livescore/internal/interfaces/httpapi")
	noopSpan  = trace.SpanFromContext(context.Background())
)

// spanPrefixes lists the span names worth exporting. Middleware and response
// helpers run on every request and only add noise.
var spanPrefixes = []string{
	"httpapi.Handler.",
	"httpapi.stream.",
}

func startSpan(ctx context.Context, name string) (context.Context, trace.Span) {
	if !trace.SpanFromContext(ctx).SpanContext().IsValid() {
		// Untraced routes such as /healthz must not produce root spans.
		return ctx, noopSpan
	}
	if !shouldCreateHTTPAPISpan(name) {
		return ctx, noopSpan
	}
	return apiTracer.Start(ctx, name)
}

func shouldCreateHTTPAPISpan(name string) bool {
	for _, prefix := range spanPrefixes {
		if strings.HasPrefix(name, prefix) {
			return true
		}
	}
	return false
}
