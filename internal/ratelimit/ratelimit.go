package ratelimit

import (
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"golang.org/x/time/rate"
)

// Limiter defines the interface for rate limiting
type Limiter interface {
	Allow(key string) bool
}

type client struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// InMemoryLimiter keeps one token bucket per key (client IP) in memory
type InMemoryLimiter struct {
	clients map[string]*client
	mu      sync.Mutex
	r       rate.Limit // tokens added per second
	b       int        // bucket size
	clock   clockwork.Clock
}

// NewInMemoryLimiter creates a new rate limiter. Buckets refill and idle keys
// age by clock; nil means the real clock.
// Example: NewInMemoryLimiter(5, 20, nil) -> 5 requests per second per key, bursts of 20
func NewInMemoryLimiter(perSecond float64, burst int, clock clockwork.Clock) *InMemoryLimiter {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &InMemoryLimiter{
		clients: make(map[string]*client),
		r:       rate.Limit(perSecond),
		b:       burst,
		clock:   clock,
	}
}

// Allow checks if a key is allowed to perform a request now
func (l *InMemoryLimiter) Allow(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.clock.Now()
	c, exists := l.clients[key]
	if !exists {
		c = &client{limiter: rate.NewLimiter(l.r, l.b)}
		l.clients[key] = c
	}
	c.lastSeen = now

	return c.limiter.AllowN(now, 1)
}

// Cleanup forgets keys idle for at least maxIdle and returns how many were removed
func (l *InMemoryLimiter) Cleanup(maxIdle time.Duration) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.clock.Now()
	removed := 0
	for key, c := range l.clients {
		if now.Sub(c.lastSeen) >= maxIdle {
			delete(l.clients, key)
			removed++
		}
	}
	return removed
}

// Len returns the number of tracked keys
func (l *InMemoryLimiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.clients)
}
