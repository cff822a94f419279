// Package middleware holds HTTP middleware shared by the API server.
package middleware

import (
	"net"
	"net/http"
	"sync"
	"time"
)

// RateLimiter enforces a per-client token bucket. Buckets refill
// continuously at the configured rate and idle clients are evicted in
// the background.
type RateLimiter struct {
	mu                sync.Mutex
	buckets           map[string]*bucket
	requestsPerMinute int
	now               func() time.Time

	stopOnce sync.Once
	stop     chan struct{}
}

type bucket struct {
	tokens     float64
	lastRefill time.Time
}

func NewRateLimiter(requestsPerMinute int) *RateLimiter {
	if requestsPerMinute < 1 {
		requestsPerMinute = 60
	}
	rl := &RateLimiter{
		buckets:           make(map[string]*bucket),
		requestsPerMinute: requestsPerMinute,
		now:               time.Now,
		stop:              make(chan struct{}),
	}
	go rl.evictIdle()
	return rl
}

// Wrap returns a handler that rejects over-limit clients with 429.
func (rl *RateLimiter) Wrap(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !rl.Allow(clientKey(r)) {
			w.Header().Set("Retry-After", "60")
			http.Error(w, "rate limit exceeded", http.StatusTooManyRequests)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// Allow consumes one token for the client, reporting whether the
// request may proceed.
func (rl *RateLimiter) Allow(client string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	b, ok := rl.buckets[client]
	if !ok {
		rl.buckets[client] = &bucket{
			tokens:     float64(rl.requestsPerMinute) - 1,
			lastRefill: now,
		}
		return true
	}

	refill := now.Sub(b.lastRefill).Minutes() * float64(rl.requestsPerMinute)
	if refill > 0 {
		b.tokens = min(float64(rl.requestsPerMinute), b.tokens+refill)
		b.lastRefill = now
	}
	if b.tokens >= 1 {
		b.tokens--
		return true
	}
	return false
}

func (rl *RateLimiter) evictIdle() {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-rl.stop:
			return
		case <-ticker.C:
			rl.mu.Lock()
			cutoff := rl.now().Add(-10 * time.Minute)
			for client, b := range rl.buckets {
				if b.lastRefill.Before(cutoff) {
					delete(rl.buckets, client)
				}
			}
			rl.mu.Unlock()
		}
	}
}

// Stop terminates the background eviction goroutine.
func (rl *RateLimiter) Stop() {
	rl.stopOnce.Do(func() { close(rl.stop) })
}

// clientKey identifies a client by IP, ignoring the ephemeral port so
// reconnecting clients share one bucket.
func clientKey(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
