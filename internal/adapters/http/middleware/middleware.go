package middleware

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// rejectBody is written for requests refused before reaching a handler.
const rejectBody = `{"success":false}`

// RateLimiter keeps one token bucket per client.
type RateLimiter struct {
	mu         sync.Mutex
	visitors   map[string]*visitor
	limit      rate.Limit    // sustained refill rate
	burst      int           // bucket size; requests allowed at once
	interval   time.Duration // window the burst is spread over
	trustProxy bool          // key on X-Forwarded-For instead of RemoteAddr
	now        func() time.Time
}

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewRateLimiter creates a rate limiter allowing n requests per interval.
// Tokens refill continuously at n per interval.
// PRE: n > 0; interval > 0
// POST: Returns a limiter; call StartCleanup to evict idle clients
func NewRateLimiter(n int, interval time.Duration, trustProxy bool) *RateLimiter {
	return &RateLimiter{
		visitors:   make(map[string]*visitor),
		limit:      rate.Every(interval / time.Duration(n)),
		burst:      n,
		interval:   interval,
		trustProxy: trustProxy,
		now:        time.Now,
	}
}

// StartCleanup evicts clients idle for more than five intervals until ctx is done.
func (rl *RateLimiter) StartCleanup(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(rl.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				rl.evict(5 * rl.interval)
			}
		}
	}()
}

func (rl *RateLimiter) evict(idle time.Duration) {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	for key, v := range rl.visitors {
		if rl.now().Sub(v.lastSeen) > idle {
			delete(rl.visitors, key)
		}
	}
}

// Allow checks if a request from the given client is allowed.
// PRE: key is non-empty
// POST: Returns true if within rate limit, false if exceeded
func (rl *RateLimiter) Allow(key string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	v, exists := rl.visitors[key]
	if !exists {
		v = &visitor{limiter: rate.NewLimiter(rl.limit, rl.burst)}
		rl.visitors[key] = v
	}
	v.lastSeen = now
	return v.limiter.AllowN(now, 1)
}

// ClientKey returns the identity used for rate limiting.
func (rl *RateLimiter) ClientKey(r *http.Request) string {
	if rl.trustProxy {
		if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
			first, _, _ := strings.Cut(fwd, ",")
			if ip := strings.TrimSpace(first); ip != "" {
				return ip
			}
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// RateLimit returns middleware that limits requests per client.
// CORS preflights are not counted.
func RateLimit(limiter *RateLimiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method == http.MethodOptions {
				next.ServeHTTP(w, r)
				return
			}
			key := limiter.ClientKey(r)
			if !limiter.Allow(key) {
				slog.Warn("rate_limit_exceeded", "client", key, "path", r.URL.Path)
				writeReject(w, http.StatusTooManyRequests)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// SecurityHeaders adds headers suited to a JSON-only API.
func SecurityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("Content-Security-Policy", "default-src 'none'; frame-ancestors 'none'")
		h.Set("X-Frame-Options", "DENY")
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("Referrer-Policy", "no-referrer")
		h.Set("Cache-Control", "no-store")
		next.ServeHTTP(w, r)
	})
}

// OriginPolicy decides which browser origins may call the API.
type OriginPolicy struct {
	anyOrigin bool
	allowed   map[string]bool
}

// NewOriginPolicy builds a policy from configured origins.
// A single "*" entry allows any origin; trailing slashes are ignored.
func NewOriginPolicy(allowed []string) OriginPolicy {
	p := OriginPolicy{allowed: make(map[string]bool, len(allowed))}
	for _, o := range allowed {
		o = strings.TrimRight(strings.TrimSpace(o), "/")
		if o == "*" {
			p.anyOrigin = true
		}
		if o != "" {
			p.allowed[o] = true
		}
	}
	return p
}

// Headers returns the CORS response headers for origin, or nil when the
// origin is absent or not allowed.
func (p OriginPolicy) Headers(origin string) map[string]string {
	if origin == "" || !(p.anyOrigin || p.allowed[origin]) {
		return nil
	}
	allow := origin
	if p.anyOrigin {
		allow = "*"
	}
	return map[string]string{
		"Access-Control-Allow-Origin":  allow,
		"Access-Control-Allow-Methods": "POST, OPTIONS",
		"Access-Control-Allow-Headers": "Content-Type",
		"Access-Control-Max-Age":       "600",
	}
}

// CORS allows browsers on the listed origins to post to the API.
// Preflight requests are answered here.
func CORS(allowed []string) func(http.Handler) http.Handler {
	policy := NewOriginPolicy(allowed)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := w.Header()
			h.Add("Vary", "Origin")
			for k, v := range policy.Headers(r.Header.Get("Origin")) {
				h.Set(k, v)
			}

			if r.Method == http.MethodOptions && r.Header.Get("Access-Control-Request-Method") != "" {
				w.WriteHeader(http.StatusNoContent)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// Recover turns a handler panic into a logged 500 with the opaque body.
func Recover(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				if rec == http.ErrAbortHandler {
					panic(rec)
				}
				slog.Error("handler_panic", "path", r.URL.Path, "panic", rec)
				writeReject(w, http.StatusInternalServerError)
			}
		}()
		next.ServeHTTP(w, r)
	})
}

// Chain applies middlewares in order; the last one listed is outermost.
func Chain(h http.Handler, middlewares ...func(http.Handler) http.Handler) http.Handler {
	for _, m := range middlewares {
		h = m(h)
	}
	return h
}

func writeReject(w http.ResponseWriter, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write([]byte(rejectBody))
}
