package middleware

import (
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
	"golang.org/x/time/rate"
)

// RateLimiter keeps one token bucket per client key. Buckets idle for
// longer than ttl are dropped.
type RateLimiter struct {
	mutex   sync.Mutex
	clients map[string]*client
	rate    rate.Limit
	burst   int
	ttl     time.Duration
	now     func() time.Time
	keyFunc func(echo.Context) string
}

type client struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

func NewRateLimiter(r rate.Limit, burst int, ttl time.Duration) *RateLimiter {
	return &RateLimiter{
		clients: make(map[string]*client),
		rate:    r,
		burst:   burst,
		ttl:     ttl,
		now:     time.Now,
		keyFunc: func(c echo.Context) string { return c.RealIP() },
	}
}

func (l *RateLimiter) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			now := l.now()
			limiter := l.limiter(l.keyFunc(c), now)
			if !limiter.AllowN(now, 1) {
				c.Response().Header().Set("Retry-After", strconv.Itoa(l.retryAfter()))
				return echo.NewHTTPError(http.StatusTooManyRequests, "too many requests")
			}
			return next(c)
		}
	}
}

// retryAfter is the whole number of seconds until one token refills.
func (l *RateLimiter) retryAfter() int {
	if l.rate <= 0 || l.rate >= 1 {
		return 1
	}
	return int(math.Ceil(1 / float64(l.rate)))
}

func (l *RateLimiter) limiter(key string, now time.Time) *rate.Limiter {
	l.mutex.Lock()
	defer l.mutex.Unlock()

	if existing, ok := l.clients[key]; ok {
		existing.lastSeen = now
		return existing.limiter
	}
	l.sweep(now)
	entry := &client{limiter: rate.NewLimiter(l.rate, l.burst), lastSeen: now}
	l.clients[key] = entry
	return entry.limiter
}

func (l *RateLimiter) sweep(now time.Time) {
	if l.ttl == 0 {
		return
	}
	cutoff := now.Add(-l.ttl)
	for key, entry := range l.clients {
		if entry.lastSeen.Before(cutoff) {
			delete(l.clients, key)
		}
	}
}

func (l *RateLimiter) size() int {
	l.mutex.Lock()
	defer l.mutex.Unlock()
	return len(l.clients)
}
