// Package middleware provides the gin middleware chain of the stock ledger API.
package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/mfgorder/backend/internal/infrastructure/telemetry"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// routeResources maps the resource segment of a /:id route to the span
// attribute carrying that ID
var routeResources = map[string]attribute.Key{
	"projects":      telemetry.SpanAttrProjectID,
	"entries":       "ledger.entry_id",
	"packing-lines": "ledger.packing_line_id",
}

// Tracing starts one server span per request, named "METHOD route". While
// disabled it only passes the request on.
func Tracing(serviceName string, enabled bool) gin.HandlerFunc {
	if !enabled {
		return func(c *gin.Context) { c.Next() }
	}
	return otelgin.Middleware(serviceName)
}

// SpanEnricher tags the request span after the handlers ran: the request ID,
// the ledger ID of :id routes, and an error status for 4xx and 5xx answers.
func SpanEnricher() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		span := trace.SpanFromContext(c.Request.Context())
		if !span.IsRecording() {
			return
		}
		if id := c.GetString(RequestIDContextKey); id != "" {
			span.SetAttributes(attribute.String("request_id", id))
		}
		if key, ok := routeIDKey(c.FullPath()); ok {
			if id, err := uuid.Parse(c.Param("id")); err == nil {
				span.SetAttributes(key.String(id.String()))
			}
		}
		markStatus(span, c.Writer.Status())
	}
}

// routeIDKey finds the resource right before the first :id segment
func routeIDKey(route string) (attribute.Key, bool) {
	before, _, found := strings.Cut(route, "/:id")
	if !found {
		return "", false
	}
	key, ok := routeResources[before[strings.LastIndexByte(before, '/')+1:]]
	return key, ok
}

func markStatus(span trace.Span, status int) {
	switch {
	case status >= http.StatusInternalServerError:
		span.SetStatus(codes.Error, "Internal Server Error")
	case status >= http.StatusBadRequest:
		span.SetStatus(codes.Error, "Client Error")
	default:
		return
	}
	span.SetAttributes(attribute.Int("http.status_code", status))
}
