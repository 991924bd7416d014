package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/milan604/buffer-go/pkg/logger"
)

// HeaderRequestID carries the request id in both directions.
const HeaderRequestID = "X-Request-ID"

// maxIncomingRequestID bounds ids accepted from callers.
const maxIncomingRequestID = 128

type RequestIDConfig struct {
	HeaderName string
	// AllowIncoming keeps a caller-supplied id instead of generating one.
	AllowIncoming bool
}

func defaultRequestIDConfig() RequestIDConfig {
	return RequestIDConfig{
		HeaderName:    HeaderRequestID,
		AllowIncoming: true,
	}
}

// RequestIDMiddleware tags each request with an id. The id is echoed in the
// response header and stored in the request context, so *FCtx log calls and
// outgoing Buffer calls made for the request carry it.
func RequestIDMiddleware(opts ...RequestIDConfig) gin.HandlerFunc {
	cfg := defaultRequestIDConfig()
	if len(opts) > 0 {
		cfg = opts[0]
	}
	if cfg.HeaderName == "" {
		cfg.HeaderName = HeaderRequestID
	}

	return func(c *gin.Context) {
		var reqID string
		if cfg.AllowIncoming {
			reqID = c.GetHeader(cfg.HeaderName)
		}
		if reqID == "" || len(reqID) > maxIncomingRequestID {
			reqID = uuid.NewString()
		}
		c.Set(string(logger.RequestIDKey), reqID)
		c.Request = c.Request.WithContext(logger.WithRequestID(c.Request.Context(), reqID))
		c.Writer.Header().Set(cfg.HeaderName, reqID)
		c.Next()
	}
}
