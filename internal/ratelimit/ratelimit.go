package ratelimit

import (
	"math"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Clock abstracts time for testing.
type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

// Result contains rate limit status for a request.
type Result struct {
	Limit     int // requests per minute
	Remaining int
	ResetAt   time.Time // when the bucket is full again
	RetryIn   time.Duration
}

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// Limiter implements a token bucket per client IP.
type Limiter struct {
	mu        sync.Mutex
	visitors  map[string]*visitor
	perMinute int
	limit     rate.Limit
	burst     int
	idleTTL   time.Duration
	clock     Clock
}

// NewLimiter creates a Limiter refilling requestsPerMinute tokens per minute
// up to burst. Visitors idle for longer than idleTTL are dropped by Cleanup.
func NewLimiter(requestsPerMinute, burst int, idleTTL time.Duration) *Limiter {
	return &Limiter{
		visitors:  make(map[string]*visitor),
		perMinute: requestsPerMinute,
		limit:     rate.Limit(float64(requestsPerMinute) / 60.0),
		burst:     burst,
		idleTTL:   idleTTL,
		clock:     realClock{},
	}
}

// Allow takes one token from ip's bucket.
func (l *Limiter) Allow(ip string) (Result, bool) {
	now := l.clock.Now()

	l.mu.Lock()
	defer l.mu.Unlock()

	v, ok := l.visitors[ip]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.visitors[ip] = v
	}
	v.lastSeen = now

	allowed := v.limiter.AllowN(now, 1)
	tokens := v.limiter.TokensAt(now)

	res := Result{
		Limit:     l.perMinute,
		Remaining: max(int(math.Floor(tokens)), 0),
		ResetAt:   now.Add(l.durationFor(float64(l.burst) - tokens)),
	}
	if !allowed {
		res.RetryIn = l.durationFor(1 - tokens)
	}
	return res, allowed
}

// durationFor is how long the bucket takes to refill n tokens.
func (l *Limiter) durationFor(n float64) time.Duration {
	if n <= 0 || l.limit <= 0 {
		return 0
	}
	return time.Duration(n / float64(l.limit) * float64(time.Second))
}

// Cleanup removes idle visitors. Call periodically to prevent unbounded growth.
func (l *Limiter) Cleanup() {
	now := l.clock.Now()

	l.mu.Lock()
	defer l.mu.Unlock()

	for ip, v := range l.visitors {
		if now.Sub(v.lastSeen) >= l.idleTTL {
			delete(l.visitors, ip)
		}
	}
}

// Len returns the number of tracked visitors.
func (l *Limiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.visitors)
}
