package security

import (
	"net/http"
	"strings"
	"sync"
	"time"
)

// RateLimiter is a fixed-window per-client request limiter. Entries for idle
// clients are pruned opportunistically during Allow, so no background
// goroutine is needed.
type RateLimiter struct {
	mu        sync.Mutex
	clients   map[string]*clientWindow
	rate      int
	window    time.Duration
	lastPrune time.Time
}

type clientWindow struct {
	remaining   int
	windowStart time.Time
}

// NewRateLimiter creates a limiter allowing rate requests per window per client
func NewRateLimiter(rate int, window time.Duration) *RateLimiter {
	return &RateLimiter{
		clients:   make(map[string]*clientWindow),
		rate:      rate,
		window:    window,
		lastPrune: time.Now(),
	}
}

// Allow reports whether a request from the given client fits its budget
func (rl *RateLimiter) Allow(client string) bool {
	now := time.Now()

	rl.mu.Lock()
	defer rl.mu.Unlock()

	if now.Sub(rl.lastPrune) > rl.window*10 {
		rl.prune(now)
	}

	c, ok := rl.clients[client]
	if !ok || now.Sub(c.windowStart) >= rl.window {
		c = &clientWindow{remaining: rl.rate, windowStart: now}
		rl.clients[client] = c
	}

	if c.remaining > 0 {
		c.remaining--
		return true
	}
	return false
}

// prune drops clients whose window lapsed long ago. Caller holds mu.
func (rl *RateLimiter) prune(now time.Time) {
	for client, c := range rl.clients {
		if now.Sub(c.windowStart) > rl.window*2 {
			delete(rl.clients, client)
		}
	}
	rl.lastPrune = now
}

// GetClientIP extracts the client IP from the request, preferring the
// first hop of X-Forwarded-For when behind a proxy.
func GetClientIP(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		if i := strings.IndexByte(forwarded, ','); i >= 0 {
			forwarded = forwarded[:i]
		}
		return strings.TrimSpace(forwarded)
	}
	if realIP := r.Header.Get("X-Real-IP"); realIP != "" {
		return realIP
	}
	return r.RemoteAddr
}
