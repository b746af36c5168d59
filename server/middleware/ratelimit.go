package middleware

import (
	"context"
	"math"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	apperrors "github.com/kbukum/mywebapi/errors"
)

// RateLimitConfig configures per-client token-bucket rate limiting.
type RateLimitConfig struct {
	Enabled           bool    `yaml:"enabled" mapstructure:"enabled"`
	RequestsPerSecond float64 `yaml:"requests_per_second" mapstructure:"requests_per_second"`
	Burst             int     `yaml:"burst" mapstructure:"burst"`
}

const (
	defaultIdleTTL       = 3 * time.Minute
	defaultSweepInterval = time.Minute
)

// KeyFunc extracts the rate limit key from a request.
type KeyFunc func(*http.Request) string

// RateLimiter keeps one x/time/rate limiter per client key. Limiters idle
// for longer than the TTL are evicted by a background sweep that runs
// between Start and Stop.
type RateLimiter struct {
	limit   rate.Limit
	burst   int
	keyFunc KeyFunc
	idleTTL time.Duration
	now     func() time.Time

	mu      sync.Mutex
	clients map[string]*client

	runMu  sync.Mutex
	cancel context.CancelFunc
}

type client struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewRateLimiter creates a limiter. No goroutine runs until Start. keyFunc
// defaults to ClientIPKey(false).
func NewRateLimiter(cfg RateLimitConfig, keyFunc KeyFunc) *RateLimiter {
	if keyFunc == nil {
		keyFunc = ClientIPKey(false)
	}
	return &RateLimiter{
		limit:   rate.Limit(cfg.RequestsPerSecond),
		burst:   cfg.Burst,
		keyFunc: keyFunc,
		idleTTL: defaultIdleTTL,
		now:     time.Now,
		clients: make(map[string]*client),
	}
}

// Start begins the eviction sweep. Calling it while the sweep runs is a
// no-op.
func (rl *RateLimiter) Start() {
	rl.runMu.Lock()
	defer rl.runMu.Unlock()
	if rl.cancel != nil {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	rl.cancel = cancel
	go rl.sweepLoop(ctx, defaultSweepInterval)
}

// Middleware rejects requests over the limit with 429 and Retry-After.
func (rl *RateLimiter) Middleware() Middleware {
	retryAfter := strconv.Itoa(rl.retryAfterSeconds())
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !rl.Allow(rl.keyFunc(r)) {
				w.Header().Set("Retry-After", retryAfter)
				apperrors.WriteJSON(w, apperrors.RateLimited())
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// Allow consumes one token for key.
func (rl *RateLimiter) Allow(key string) bool {
	now := rl.now()
	rl.mu.Lock()
	c, ok := rl.clients[key]
	if !ok {
		c = &client{limiter: rate.NewLimiter(rl.limit, rl.burst)}
		rl.clients[key] = c
	}
	c.lastSeen = now
	rl.mu.Unlock()
	return c.limiter.AllowN(now, 1)
}

// Len returns the number of tracked clients.
func (rl *RateLimiter) Len() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return len(rl.clients)
}

// Stop ends the eviction sweep. It is safe to call more than once and
// before Start.
func (rl *RateLimiter) Stop() {
	rl.runMu.Lock()
	defer rl.runMu.Unlock()
	if rl.cancel != nil {
		rl.cancel()
		rl.cancel = nil
	}
}

func (rl *RateLimiter) sweeping() bool {
	rl.runMu.Lock()
	defer rl.runMu.Unlock()
	return rl.cancel != nil
}

func (rl *RateLimiter) sweepLoop(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			rl.evictIdle()
		}
	}
}

// evictIdle drops clients not seen within the idle TTL.
func (rl *RateLimiter) evictIdle() {
	cutoff := rl.now().Add(-rl.idleTTL)
	rl.mu.Lock()
	defer rl.mu.Unlock()
	for key, c := range rl.clients {
		if c.lastSeen.Before(cutoff) {
			delete(rl.clients, key)
		}
	}
}

func (rl *RateLimiter) retryAfterSeconds() int {
	if rl.limit <= 0 {
		return 1
	}
	return max(1, int(math.Ceil(1/float64(rl.limit))))
}

// ClientIPKey keys requests by client IP. With trustForwarded the last
// X-Forwarded-For entry, the one appended by the trusted proxy, wins over
// the socket address. Earlier entries are client-supplied and ignored.
func ClientIPKey(trustForwarded bool) KeyFunc {
	return func(r *http.Request) string {
		if trustForwarded {
			if ip := lastForwardedFor(r.Header.Values("X-Forwarded-For")); ip != "" {
				return ip
			}
		}
		if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
			return host
		}
		return r.RemoteAddr
	}
}

func lastForwardedFor(values []string) string {
	for i := len(values) - 1; i >= 0; i-- {
		entries := strings.Split(values[i], ",")
		for j := len(entries) - 1; j >= 0; j-- {
			if ip := strings.TrimSpace(entries[j]); ip != "" {
				return ip
			}
		}
	}
	return ""
}
