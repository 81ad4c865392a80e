// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package middleware

import (
	"net"
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// IPRateLimiter applies a per-client token bucket to a handler chain. The
// callback ingress uses it so one misbehaving provider endpoint cannot flood
// the status endpoints or starve another provider's callbacks.
type IPRateLimiter struct {
	mu      sync.Mutex
	clients map[string]*rateClient
	rps     rate.Limit
	burst   int
	maxIdle time.Duration
}

type rateClient struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewIPRateLimiter creates a limiter allowing rps requests per second with
// the given burst size, tracked per client IP.
func NewIPRateLimiter(rps float64, burst int) *IPRateLimiter {
	return &IPRateLimiter{
		clients: make(map[string]*rateClient),
		rps:     rate.Limit(rps),
		burst:   burst,
		maxIdle: 3 * time.Minute,
	}
}

// Middleware rejects requests above the configured rate with 429.
func (l *IPRateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !l.allow(clientIP(r)) {
			w.Header().Set("Retry-After", "1")
			WriteAPIError(w, http.StatusTooManyRequests, "rate limit exceeded")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (l *IPRateLimiter) allow(ip string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	c, ok := l.clients[ip]
	if !ok {
		// New clients are rare; piggyback the stale-bucket sweep on them.
		l.prune(now)
		c = &rateClient{limiter: rate.NewLimiter(l.rps, l.burst)}
		l.clients[ip] = c
	}
	c.lastSeen = now
	return c.limiter.Allow()
}

// prune drops buckets idle long enough to have fully refilled.
func (l *IPRateLimiter) prune(now time.Time) {
	for ip, c := range l.clients {
		if now.Sub(c.lastSeen) > l.maxIdle {
			delete(l.clients, ip)
		}
	}
}

// clientIP keys the bucket map. The RealIP middleware upstream has already
// resolved proxy headers into RemoteAddr.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
