// Package ratelimit throttles callers of the local HTTP server, one token
// bucket per client address.
package ratelimit

import (
	"log/slog"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const (
	defaultBurst         = 10
	defaultTTL           = 10 * time.Minute
	defaultCleanupPeriod = time.Minute
)

type limiterEntry struct {
	l        *rate.Limiter
	lastSeen time.Time
}

// Pool keeps one limiter per client. Entries idle for longer than the TTL
// are dropped by a background sweep started on first use.
type Pool struct {
	mu    sync.Mutex
	m     map[string]*limiterEntry
	rps   float64
	burst int

	trustProxy    bool
	ttl           time.Duration
	cleanupPeriod time.Duration
	startCleanup  sync.Once
	now           func() time.Time
}

type Option func(*Pool)

// WithTrustedProxy keys clients on the first X-Forwarded-For entry instead of
// the peer address. Enable it only behind a proxy that overwrites the header.
func WithTrustedProxy(trust bool) Option {
	return func(p *Pool) {
		p.trustProxy = trust
	}
}

// WithTTL sets how long an idle client keeps its bucket. Non-positive values
// keep the default.
func WithTTL(ttl time.Duration) Option {
	return func(p *Pool) {
		if ttl > 0 {
			p.ttl = ttl
		}
	}
}

// NewPool returns nil when rps is not positive; a nil pool allows everything.
func NewPool(rps float64, burst int, opts ...Option) *Pool {
	if rps <= 0 {
		return nil
	}
	if burst <= 0 {
		burst = defaultBurst
	}
	p := &Pool{
		m:             make(map[string]*limiterEntry),
		rps:           rps,
		burst:         burst,
		ttl:           defaultTTL,
		cleanupPeriod: defaultCleanupPeriod,
		now:           time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *Pool) get(key string) *rate.Limiter {
	p.startCleanup.Do(func() {
		go p.cleanupLoop()
	})

	p.mu.Lock()
	defer p.mu.Unlock()
	now := p.now()
	if e, ok := p.m[key]; ok {
		e.lastSeen = now
		return e.l
	}
	l := rate.NewLimiter(rate.Limit(p.rps), p.burst)
	p.m[key] = &limiterEntry{l: l, lastSeen: now}
	return l
}

func (p *Pool) Allow(key string) bool {
	if p == nil {
		return true
	}
	return p.get(key).Allow()
}

// Len reports how many clients currently hold a bucket.
func (p *Pool) Len() int {
	if p == nil {
		return 0
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.m)
}

func (p *Pool) cleanupLoop() {
	ticker := time.NewTicker(p.cleanupPeriod)
	defer ticker.Stop()
	for range ticker.C {
		p.evictIdle()
	}
}

// evictIdle removes entries not seen within the TTL.
func (p *Pool) evictIdle() {
	p.mu.Lock()
	defer p.mu.Unlock()
	cutoff := p.now().Add(-p.ttl)
	for k, e := range p.m {
		if e.lastSeen.Before(cutoff) {
			delete(p.m, k)
		}
	}
}

// Middleware rejects requests over the limit with 429 and the same JSON error
// shape the chat endpoint uses.
func (p *Pool) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if p == nil {
			next.ServeHTTP(w, r)
			return
		}
		key := p.clientKey(r)
		if !p.Allow(key) {
			slog.Warn("rate limit exceeded", "client", key, "path", r.URL.Path)
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusTooManyRequests)
			_, _ = w.Write([]byte(`{"error":"Too many requests"}`))
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (p *Pool) clientKey(r *http.Request) string {
	if p.trustProxy {
		if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
			first, _, _ := strings.Cut(fwd, ",")
			if first = strings.TrimSpace(first); first != "" {
				return first
			}
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
