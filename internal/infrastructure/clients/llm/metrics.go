package llm

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

type vendorMetrics struct {
	requestCount    metric.Int64Counter
	requestDuration metric.Float64Histogram
	requestErrors   metric.Int64Counter
	rateLimitWait   metric.Float64Histogram
	streamedTokens  metric.Int64Counter
}

var metricsInit = false
var metrics vendorMetrics

func ensureMetrics() {
	if metricsInit {
		return
	}
	meter := otel.Meter("github.com/carebridge/clinconsult/llm")

	requestCount, err := meter.Int64Counter(
		"ai.request.count",
		metric.WithDescription("Number of upstream model requests"),
	)
	if err != nil {
		return
	}
	requestDuration, err := meter.Float64Histogram(
		"ai.request.duration",
		metric.WithDescription("Upstream model request duration in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return
	}
	requestErrors, err := meter.Int64Counter(
		"ai.request.errors",
		metric.WithDescription("Number of upstream model request errors"),
	)
	if err != nil {
		return
	}
	rateLimitWait, err := meter.Float64Histogram(
		"ai.rate_limit.wait",
		metric.WithDescription("Time spent waiting for the vendor rate limiter in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return
	}
	streamedTokens, err := meter.Int64Counter(
		"ai.stream.chunks",
		metric.WithDescription("Number of streamed chunks relayed"),
	)
	if err != nil {
		return
	}

	metrics = vendorMetrics{
		requestCount:    requestCount,
		requestDuration: requestDuration,
		requestErrors:   requestErrors,
		rateLimitWait:   rateLimitWait,
		streamedTokens:  streamedTokens,
	}
	metricsInit = true
}

func vendorAttrs(vendor, model string, statusCode int) []attribute.KeyValue {
	attrs := []attribute.KeyValue{
		attribute.String("ai.provider", vendor),
		attribute.String("ai.model", model),
	}
	if statusCode > 0 {
		attrs = append(attrs, attribute.Int("http.status_code", statusCode))
	}
	return attrs
}

// RecordRequest records one upstream request outcome.
func RecordRequest(ctx context.Context, vendor, model string, statusCode int, duration time.Duration, err error) {
	ensureMetrics()
	if !metricsInit {
		return
	}

	attrs := vendorAttrs(vendor, model, statusCode)
	metrics.requestCount.Add(ctx, 1, metric.WithAttributes(attrs...))
	metrics.requestDuration.Record(ctx, float64(duration.Milliseconds()), metric.WithAttributes(attrs...))
	if err != nil {
		metrics.requestErrors.Add(ctx, 1, metric.WithAttributes(attrs...))
	}
}

// RecordRateLimitWait records time spent blocked on the vendor limiter.
func RecordRateLimitWait(ctx context.Context, vendor, model string, wait time.Duration) {
	ensureMetrics()
	if !metricsInit {
		return
	}
	metrics.rateLimitWait.Record(ctx, float64(wait.Milliseconds()), metric.WithAttributes(vendorAttrs(vendor, model, 0)...))
}

// RecordStreamChunks counts chunks relayed for a streamed request.
func RecordStreamChunks(ctx context.Context, vendor, model string, n int64) {
	ensureMetrics()
	if !metricsInit {
		return
	}
	metrics.streamedTokens.Add(ctx, n, metric.WithAttributes(vendorAttrs(vendor, model, 0)...))
}
