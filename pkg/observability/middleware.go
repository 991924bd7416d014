package observability

import (
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// GinMiddleware creates a Gin middleware for automatic tracing.
func GinMiddleware(serviceName string) gin.HandlerFunc {
	return otelgin.Middleware(serviceName)
}

// TraceHandler wraps a handler in a named span. It runs after the request id
// middleware, so the id echoed on the response is recorded too.
func TraceHandler(obs ObservabilityIface, handlerName string, handler gin.HandlerFunc) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, span := obs.StartSpan(c.Request.Context(), handlerName,
			trace.WithAttributes(
				AttrHTTPMethod.String(c.Request.Method),
				AttrHTTPRoute.String(c.FullPath()),
			),
		)
		defer span.End()

		if id := c.Writer.Header().Get("X-Request-ID"); id != "" {
			span.SetAttributes(AttrRequestID.String(id))
		}

		c.Request = c.Request.WithContext(ctx)
		handler(c)

		status := c.Writer.Status()
		span.SetAttributes(attribute.Int(string(AttrHTTPStatusCode), status))
		if status >= 400 {
			span.SetStatus(codes.Error, "HTTP error")
		}
	}
}
