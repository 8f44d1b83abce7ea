// internal/httpserver/ratelimit.go
//
// Per-client request throttling.
// Each client IP gets its own token bucket (rate.Limiter). Buckets not used
// for a while are dropped when the table grows, so the map stays bounded
// without a background goroutine.
//
// Rejected requests get 429 with a JSON error body and a Retry-After hint
// taken from the bucket's refill rate.

package httpserver

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
	pruneAbove = 500              // table size that triggers a prune pass
	bucketTTL  = 10 * time.Minute // idle time before a bucket may be dropped
)

type bucket struct {
	lim  *rate.Limiter
	seen time.Time
}

// clientLimiter maps client IPs to token buckets.
type clientLimiter struct {
	mu      sync.Mutex
	buckets map[string]*bucket
	every   rate.Limit
	burst   int
}

func newClientLimiter(every rate.Limit, burst int) *clientLimiter {
	return &clientLimiter{
		buckets: make(map[string]*bucket),
		every:   every,
		burst:   burst,
	}
}

// allow takes a token from ip's bucket.
func (l *clientLimiter) allow(ip string, now time.Time) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	if len(l.buckets) > pruneAbove {
		l.pruneLocked(now)
	}
	b, ok := l.buckets[ip]
	if !ok {
		b = &bucket{lim: rate.NewLimiter(l.every, l.burst)}
		l.buckets[ip] = b
	}
	b.seen = now
	return b.lim.AllowN(now, 1)
}

func (l *clientLimiter) pruneLocked(now time.Time) {
	for ip, b := range l.buckets {
		if now.Sub(b.seen) > bucketTTL {
			delete(l.buckets, ip)
		}
	}
}

// retryAfter is the whole number of seconds until one token refills.
func (l *clientLimiter) retryAfter() string {
	if l.every <= 0 || l.every == rate.Inf {
		return "1"
	}
	return strconv.Itoa(int(math.Ceil(1 / float64(l.every))))
}

// clientIP is the host part of RemoteAddr (already rewritten by RealIP).
func clientIP(r *http.Request) string {
	if ip, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return ip
	}
	return r.RemoteAddr
}

// rateLimit rejects requests from a client that has exhausted its bucket.
func rateLimit(l *clientLimiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !l.allow(clientIP(r), time.Now()) {
				w.Header().Set("Retry-After", l.retryAfter())
				writeError(w, http.StatusTooManyRequests, "rate_limited", "too many requests, slow down")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
