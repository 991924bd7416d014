package middleware

import (
	"net/http"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
)

// CorsConfig defines Cross-Origin Resource Sharing settings for the server.
type CorsConfig struct {
	Enabled          bool
	AllowOrigins     []string
	AllowMethods     []string
	AllowHeaders     []string
	ExposeHeaders    []string
	AllowCredentials bool
	MaxAge           time.Duration
}

// DefaultCorsConfig allows any origin to call the read-only proxy routes.
func DefaultCorsConfig() CorsConfig {
	return CorsConfig{
		Enabled:       true,
		AllowOrigins:  []string{"*"},
		AllowMethods:  []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowHeaders:  []string{"Origin", "Content-Type", "Accept", HeaderRequestID},
		ExposeHeaders: []string{HeaderRequestID},
		MaxAge:        12 * time.Hour,
	}
}

// allowedOrigin returns the value for Access-Control-Allow-Origin, or "" when
// origin is not allowed. A wildcard is echoed back as the caller's origin when
// credentials are allowed, since browsers reject "*" in that case.
func (cfg CorsConfig) allowedOrigin(origin string) string {
	if slices.Contains(cfg.AllowOrigins, "*") {
		if cfg.AllowCredentials && origin != "" {
			return origin
		}
		return "*"
	}
	if origin != "" && slices.Contains(cfg.AllowOrigins, origin) {
		return origin
	}
	return ""
}

// CORSMiddleware returns a gin.HandlerFunc that applies CORS rules.
func CORSMiddleware(cfg CorsConfig) gin.HandlerFunc {
	if !cfg.Enabled {
		return func(c *gin.Context) { c.Next() }
	}

	allowMethods := strings.Join(cfg.AllowMethods, ", ")
	allowHeaders := strings.Join(cfg.AllowHeaders, ", ")
	exposeHeaders := strings.Join(cfg.ExposeHeaders, ", ")
	maxAge := strconv.Itoa(int(cfg.MaxAge / time.Second))

	return func(c *gin.Context) {
		origin := cfg.allowedOrigin(c.GetHeader("Origin"))
		if origin == "" {
			c.Next()
			return
		}

		h := c.Writer.Header()
		h.Set("Access-Control-Allow-Origin", origin)
		if origin != "*" {
			h.Add("Vary", "Origin")
		}
		h.Set("Access-Control-Allow-Methods", allowMethods)
		h.Set("Access-Control-Allow-Headers", allowHeaders)
		if exposeHeaders != "" {
			h.Set("Access-Control-Expose-Headers", exposeHeaders)
		}
		if cfg.AllowCredentials {
			h.Set("Access-Control-Allow-Credentials", "true")
		}
		h.Set("Access-Control-Max-Age", maxAge)

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}
