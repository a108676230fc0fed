package middleware

import (
	"encoding/json"
	"net/http"
	"strconv"
	"sync"
	"time"
)

// sweepThreshold is the number of tracked clients above which expired
// windows are dropped.
const sweepThreshold = 1024

type window struct {
	count int
	until time.Time
}

// rateLimiter counts requests per client in fixed windows.
type rateLimiter struct {
	mu      sync.Mutex
	limit   int
	per     time.Duration
	now     func() time.Time
	windows map[string]*window
}

func newRateLimiter(limit int, per time.Duration, now func() time.Time) *rateLimiter {
	if now == nil {
		now = time.Now
	}
	return &rateLimiter{limit: limit, per: per, now: now, windows: make(map[string]*window)}
}

// RateLimit allows limit requests per client IP in each fixed window of per.
// A non-positive limit disables the check.
func RateLimit(limit int, per time.Duration) func(http.Handler) http.Handler {
	if limit <= 0 {
		return func(next http.Handler) http.Handler { return next }
	}
	return newRateLimiter(limit, per, nil).middleware
}

func (rl *rateLimiter) middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if ok, retry := rl.allow(ClientIP(r)); !ok {
			tooManyRequests(w, retry)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// allow counts one request for key. When the window is exhausted it reports
// how long until the next one opens.
func (rl *rateLimiter) allow(key string) (bool, time.Duration) {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	now := rl.now()
	w, ok := rl.windows[key]
	if !ok || now.After(w.until) {
		w = &window{until: now.Add(rl.per)}
		rl.windows[key] = w
		rl.sweep(now)
	}
	if w.count >= rl.limit {
		return false, w.until.Sub(now)
	}
	w.count++
	return true, 0
}

func (rl *rateLimiter) sweep(now time.Time) {
	if len(rl.windows) < sweepThreshold {
		return
	}
	for key, w := range rl.windows {
		if now.After(w.until) {
			delete(rl.windows, key)
		}
	}
}

func tooManyRequests(w http.ResponseWriter, retry time.Duration) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Retry-After", strconv.Itoa(int(retry.Seconds())+1))
	w.WriteHeader(http.StatusTooManyRequests)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"error": map[string]string{"code": "rate_limited", "message": "too many requests"},
	})
}
