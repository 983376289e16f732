package observability

import (
	"context"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/honeynil/BizPromptService/internal/infrastructure/observability"
)

// Setup initialises logging and tracing and returns the tracer shutdown
// together with the Prometheus scrape handler.
func Setup(ctx context.Context, serviceName, logLevel, otlpEndpoint string) (func(context.Context) error, http.Handler) {
	observability.InitLogger(logLevel)
	tracerShutdown := observability.InitTracing(ctx, serviceName, otlpEndpoint)
	return tracerShutdown, promhttp.Handler()
}
