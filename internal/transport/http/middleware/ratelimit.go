package middleware

import (
	"math"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const (
	limiterIdleTTL   = 10 * time.Minute
	limiterSweepEach = 5 * time.Minute
)

type bucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter is a token bucket per client IP and path. Each limited route
// gets its own budget, so a burst of logins does not eat into signups.
type RateLimiter struct {
	mu         sync.Mutex
	buckets    map[string]*bucket
	r          rate.Limit
	burst      int
	retryAfter string
	done       chan struct{}
	closeOnce  sync.Once
}

// NewRateLimiter allows r requests/second with bursts up to burst. Idle
// buckets are swept in the background until Close.
func NewRateLimiter(r rate.Limit, burst int) *RateLimiter {
	rl := &RateLimiter{
		buckets:    make(map[string]*bucket),
		r:          r,
		burst:      burst,
		retryAfter: retryAfterSeconds(r),
		done:       make(chan struct{}),
	}
	go rl.sweep()
	return rl
}

func (rl *RateLimiter) Close() {
	rl.closeOnce.Do(func() { close(rl.done) })
}

// Limit rejects requests over budget with 429 and a Retry-After hint.
func (rl *RateLimiter) Limit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !rl.allow(clientIP(r) + " " + r.URL.Path) {
			w.Header().Set("Retry-After", rl.retryAfter)
			reject(w, http.StatusTooManyRequests, "too many requests")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (rl *RateLimiter) allow(key string) bool {
	now := time.Now()
	rl.mu.Lock()
	b, ok := rl.buckets[key]
	if !ok {
		b = &bucket{limiter: rate.NewLimiter(rl.r, rl.burst)}
		rl.buckets[key] = b
	}
	b.lastSeen = now
	rl.mu.Unlock()
	return b.limiter.AllowN(now, 1)
}

func (rl *RateLimiter) sweep() {
	t := time.NewTicker(limiterSweepEach)
	defer t.Stop()
	for {
		select {
		case <-rl.done:
			return
		case now := <-t.C:
			rl.evictIdle(now)
		}
	}
}

func (rl *RateLimiter) evictIdle(now time.Time) {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	for key, b := range rl.buckets {
		if now.Sub(b.lastSeen) > limiterIdleTTL {
			delete(rl.buckets, key)
		}
	}
}

func (rl *RateLimiter) size() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return len(rl.buckets)
}

// retryAfterSeconds is the time to earn one token, rounded up to a second.
func retryAfterSeconds(r rate.Limit) string {
	if r <= 0 || r == rate.Inf {
		return "1"
	}
	return strconv.Itoa(int(math.Max(1, math.Ceil(1/float64(r)))))
}

// clientIP is the host part of RemoteAddr. Forwarded headers are ignored
// here; behind a trusted proxy the router rewrites RemoteAddr first.
func clientIP(r *http.Request) string {
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
