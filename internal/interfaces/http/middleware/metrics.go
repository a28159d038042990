package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Request metric names
const (
	MetricRequests        = "http.server.requests"
	MetricRequestDuration = "http.server.request.duration"
	MetricActiveRequests  = "http.server.active_requests"
)

// durationBuckets are in seconds. Ledger writes hold row locks, so the
// upper buckets matter more than for plain reads.
var durationBuckets = []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10}

type httpInstruments struct {
	requests metric.Int64Counter
	duration metric.Float64Histogram
	active   metric.Int64UpDownCounter
}

func newHTTPInstruments(meter metric.Meter) (*httpInstruments, error) {
	requests, err := meter.Int64Counter(MetricRequests,
		metric.WithDescription("HTTP requests served"),
		metric.WithUnit("{request}"))
	if err != nil {
		return nil, err
	}
	duration, err := meter.Float64Histogram(MetricRequestDuration,
		metric.WithDescription("HTTP request latency"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(durationBuckets...))
	if err != nil {
		return nil, err
	}
	active, err := meter.Int64UpDownCounter(MetricActiveRequests,
		metric.WithDescription("HTTP requests in progress"),
		metric.WithUnit("{request}"))
	if err != nil {
		return nil, err
	}
	return &httpInstruments{requests: requests, duration: duration, active: active}, nil
}

// HTTPMetrics records request count, latency and concurrency on meter.
// Requests are labelled with the route pattern, never the raw path, so
// project IDs do not become label values.
func HTTPMetrics(meter metric.Meter) (gin.HandlerFunc, error) {
	inst, err := newHTTPInstruments(meter)
	if err != nil {
		return nil, err
	}

	return func(c *gin.Context) {
		ctx := c.Request.Context()
		start := time.Now()
		inst.active.Add(ctx, 1)

		c.Next()

		inst.active.Add(ctx, -1)
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		base := metric.WithAttributes(
			attribute.String("http.request.method", c.Request.Method),
			attribute.String("http.route", route),
		)
		inst.duration.Record(ctx, time.Since(start).Seconds(), base)
		inst.requests.Add(ctx, 1, base,
			metric.WithAttributes(attribute.String("http.status_class", statusClass(c.Writer.Status()))))
	}, nil
}

// statusClass buckets a status code as 2xx, 4xx and so on
func statusClass(status int) string {
	switch {
	case status >= 500:
		return "5xx"
	case status >= 400:
		return "4xx"
	case status >= 300:
		return "3xx"
	case status >= 200:
		return "2xx"
	}
	return "other"
}
