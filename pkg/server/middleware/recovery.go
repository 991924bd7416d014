package middleware

import (
	"runtime/debug"

	"github.com/gin-gonic/gin"
	"github.com/milan604/buffer-go/pkg/apperr"
	"github.com/milan604/buffer-go/pkg/logger"
	"github.com/milan604/buffer-go/pkg/response"
)

// RecoveryMiddleware turns a handler panic into a 500 error envelope and logs
// the stack.
func RecoveryMiddleware(l logger.LogManager) gin.HandlerFunc {
	if l == nil {
		l = logger.NewNop()
	}
	return func(c *gin.Context) {
		defer func() {
			r := recover()
			if r == nil {
				return
			}
			l.With("log_type", "panic", "path", c.Request.URL.Path).
				ErrorFCtx(c.Request.Context(), "panic recovered: %v\n%s", r, debug.Stack())

			if c.Writer.Written() {
				c.Abort()
				return
			}
			response.JSONError(c, apperr.New(apperr.ErrorCodeInternal))
			c.Abort()
		}()
		c.Next()
	}
}
