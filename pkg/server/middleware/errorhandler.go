package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/milan604/buffer-go/pkg/response"
)

// ErrorHandlerMiddleware renders the last error a handler attached with c.Error
// as an error envelope, unless the handler already wrote a body.
func ErrorHandlerMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		last := c.Errors.Last()
		if last == nil || last.Err == nil || c.Writer.Written() {
			return
		}
		response.Error(c, last.Err)
		c.Abort()
	}
}
