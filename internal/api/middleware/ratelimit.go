package middleware

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const (
	maxTrackedClients = 10000
	clientIdleTTL     = 10 * time.Minute
)

type client struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter applies a per-user token bucket. The key is the authenticated
// user id, or the remote address for anonymous requests.
type RateLimiter struct {
	mu      sync.Mutex
	clients map[string]*client
	limit   rate.Limit
	burst   int
	period  time.Duration
	now     func() time.Time
}

// NewRateLimiter allows perMinute requests per user per minute. perMinute <= 0
// disables limiting.
func NewRateLimiter(perMinute int) *RateLimiter {
	l := &RateLimiter{
		clients: make(map[string]*client),
		burst:   perMinute,
		now:     time.Now,
	}
	if perMinute > 0 {
		l.period = time.Minute / time.Duration(perMinute)
		l.limit = rate.Every(l.period)
	}
	return l
}

// Allow reports whether one more request for key fits the budget.
func (l *RateLimiter) Allow(key string) bool {
	if l.burst <= 0 {
		return true
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	c, ok := l.clients[key]
	if !ok {
		if len(l.clients) >= maxTrackedClients {
			l.prune(now)
		}
		c = &client{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.clients[key] = c
	}
	c.lastSeen = now
	return c.limiter.AllowN(now, 1)
}

func (l *RateLimiter) prune(now time.Time) {
	for key, c := range l.clients {
		if now.Sub(c.lastSeen) > clientIdleTTL {
			delete(l.clients, key)
		}
	}
}

// Middleware answers 429 once a user exceeds the budget.
func (l *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key, ok := UserIDFromContext(r.Context())
		if !ok {
			key = r.RemoteAddr
		}

		if !l.Allow(key) {
			w.Header().Set("Retry-After", strconv.Itoa(int(l.period.Seconds())+1))
			WriteError(w, http.StatusTooManyRequests, "Too many requests")
			return
		}

		next.ServeHTTP(w, r)
	})
}
