package middleware

import (
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/milan604/buffer-go/pkg/apperr"
	"github.com/milan604/buffer-go/pkg/response"
	"golang.org/x/time/rate"
)

// RateLimitConfig is per-client-IP rate limiting. It protects the shared Buffer
// quota of the proxy from a single noisy caller.
type RateLimitConfig struct {
	Enabled         bool
	RPS             float64
	Burst           int
	CleanupInterval time.Duration

	mu      sync.Mutex
	clients map[string]*visitor
	stop    chan struct{}
	once    sync.Once
}

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewRateLimitConfig creates a limiter set. With a positive cleanupInterval,
// clients idle for longer than the interval are forgotten.
func NewRateLimitConfig(enabled bool, rps float64, burst int, cleanupInterval time.Duration) *RateLimitConfig {
	if burst <= 0 {
		burst = 1
	}
	rl := &RateLimitConfig{
		Enabled:         enabled,
		RPS:             rps,
		Burst:           burst,
		CleanupInterval: cleanupInterval,
		clients:         map[string]*visitor{},
		stop:            make(chan struct{}),
	}
	if enabled && cleanupInterval > 0 {
		go rl.cleanupLoop()
	}
	return rl
}

func (rl *RateLimitConfig) allow(ip string, now time.Time) bool {
	rl.mu.Lock()
	v, ok := rl.clients[ip]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(rate.Limit(rl.RPS), rl.Burst)}
		rl.clients[ip] = v
	}
	v.lastSeen = now
	rl.mu.Unlock()
	return v.limiter.AllowN(now, 1)
}

func (rl *RateLimitConfig) cleanupLoop() {
	t := time.NewTicker(rl.CleanupInterval)
	defer t.Stop()
	for {
		select {
		case <-rl.stop:
			return
		case now := <-t.C:
			rl.evict(now.Add(-rl.CleanupInterval))
		}
	}
}

// evict drops clients not seen since cutoff.
func (rl *RateLimitConfig) evict(cutoff time.Time) {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	for ip, v := range rl.clients {
		if v.lastSeen.Before(cutoff) {
			delete(rl.clients, ip)
		}
	}
}

// Stop ends the cleanup goroutine.
func (rl *RateLimitConfig) Stop() {
	rl.once.Do(func() { close(rl.stop) })
}

func remoteIP(c *gin.Context) string {
	if xff := c.GetHeader("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}
	return c.ClientIP()
}

// Middleware answers 429 with an error envelope once a client exceeds its rate.
func (rl *RateLimitConfig) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !rl.Enabled {
			c.Next()
			return
		}
		if !rl.allow(remoteIP(c), time.Now()) {
			response.JSONError(c, apperr.New(apperr.ErrorCodeRateLimited))
			c.Abort()
			return
		}
		c.Next()
	}
}
