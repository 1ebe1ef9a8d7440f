package middleware

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
)

// Limiter counts requests per client in fixed windows.
type Limiter struct {
	mu       sync.Mutex
	clients  map[string]*window
	limit    int
	period   time.Duration
	now      func() time.Time
	stop     chan struct{}
	stopOnce sync.Once
}

type window struct {
	start time.Time
	count int
}

// NewLimiter allows limit requests per period for each client and prunes
// idle clients in the background until Stop is called.
func NewLimiter(limit int, period time.Duration) *Limiter {
	if limit <= 0 {
		limit = 60
	}
	if period <= 0 {
		period = time.Minute
	}
	l := &Limiter{
		clients: make(map[string]*window),
		limit:   limit,
		period:  period,
		now:     time.Now,
		stop:    make(chan struct{}),
	}
	go l.cleanup()
	return l
}

// Allow records a request and reports whether it fits in the current
// window. When it does not, retry is the time until the window resets.
func (l *Limiter) Allow(client string) (ok bool, retry time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	w, exists := l.clients[client]
	if !exists || now.Sub(w.start) >= l.period {
		l.clients[client] = &window{start: now, count: 1}
		return true, 0
	}
	if w.count >= l.limit {
		return false, w.start.Add(l.period).Sub(now)
	}
	w.count++
	return true, 0
}

func (l *Limiter) cleanup() {
	ticker := time.NewTicker(5 * l.period)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			l.prune()
		case <-l.stop:
			return
		}
	}
}

func (l *Limiter) prune() {
	l.mu.Lock()
	defer l.mu.Unlock()
	cutoff := l.now().Add(-2 * l.period)
	for k, w := range l.clients {
		if w.start.Before(cutoff) {
			delete(l.clients, k)
		}
	}
}

// ActiveClients returns the number of tracked clients.
func (l *Limiter) ActiveClients() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.clients)
}

func (l *Limiter) Stop() {
	l.stopOnce.Do(func() { close(l.stop) })
}

// RateLimit rejects clients over the limit with 429 and a Retry-After header.
func RateLimit(l *Limiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		ok, retry := l.Allow(c.ClientIP())
		if !ok {
			secs := int(retry.Round(time.Second) / time.Second)
			if secs < 1 {
				secs = 1
			}
			c.Header("Retry-After", strconv.Itoa(secs))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "Too many requests, please try again later."})
			return
		}
		c.Next()
	}
}
