package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/milan604/buffer-go/pkg/logger"
)

const loggerKey = "buffer_logger"

// AppLoggerMiddleware stores a request-scoped logger carrying the route and
// request id in the gin context.
func AppLoggerMiddleware(l logger.LogManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		fields := []any{"log_type", "application", "route", c.FullPath()}
		if rid := c.GetString(string(logger.RequestIDKey)); rid != "" {
			fields = append(fields, "request_id", rid)
		}
		c.Set(loggerKey, l.With(fields...))
		c.Next()
	}
}

// GetLogger returns the request-scoped logger, or a no-op logger outside
// AppLoggerMiddleware.
func GetLogger(c *gin.Context) logger.LogManager {
	if val, ok := c.Get(loggerKey); ok {
		if lm, yes := val.(logger.LogManager); yes {
			return lm
		}
	}
	return logger.NewNop()
}

// AccessLoggerMiddleware logs one line per request once it completes. Query
// strings are left out since OAuth callbacks carry codes in them.
func AccessLoggerMiddleware(l logger.LogManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		fields := []any{
			"log_type", "access",
			"ip", c.ClientIP(),
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", status,
			"duration_ms", time.Since(start).Milliseconds(),
			"size", c.Writer.Size(),
		}
		if rid := c.GetString(string(logger.RequestIDKey)); rid != "" {
			fields = append(fields, "request_id", rid)
		}

		entry := l.With(fields...)
		switch {
		case status >= 500:
			entry.ErrorF("request failed")
		case status >= 400:
			entry.WarnF("request rejected")
		default:
			entry.InfoF("request served")
		}
	}
}
