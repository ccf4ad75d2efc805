package ratelimit

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// pruneEvery controls how often idle clients are dropped
const pruneEvery = 1024

// RateLimiter tracks and enforces per-client request rate limits
type RateLimiter struct {
	requestsPerMinute int
	requestsPerHour   int
	requestsPerDay    int
	enabled           bool

	clients map[string]*windows
	calls   int
	now     func() time.Time
	mu      sync.Mutex
}

// windows holds the request times of one client
type windows struct {
	minute []time.Time
	hour   []time.Time
	day    []time.Time
}

// NewRateLimiter creates a new rate limiter with the given limits. A limit of 0 is unlimited
func NewRateLimiter(requestsPerMinute, requestsPerHour, requestsPerDay int, enabled bool) *RateLimiter {
	return &RateLimiter{
		requestsPerMinute: requestsPerMinute,
		requestsPerHour:   requestsPerHour,
		requestsPerDay:    requestsPerDay,
		enabled:           enabled,
		clients:           make(map[string]*windows),
		now:               time.Now,
	}
}

// AllowRequest checks if a request from client is allowed and records it when it is
func (rl *RateLimiter) AllowRequest(client string) bool {
	if !rl.enabled {
		return true
	}

	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	rl.calls++
	if rl.calls%pruneEvery == 0 {
		rl.prune(now)
	}

	w, ok := rl.clients[client]
	if !ok {
		w = &windows{}
		rl.clients[client] = w
	}
	w.cleanup(now)

	if exceeded(w.minute, rl.requestsPerMinute) ||
		exceeded(w.hour, rl.requestsPerHour) ||
		exceeded(w.day, rl.requestsPerDay) {
		return false
	}

	w.minute = append(w.minute, now)
	w.hour = append(w.hour, now)
	w.day = append(w.day, now)
	return true
}

func exceeded(window []time.Time, limit int) bool {
	return limit > 0 && len(window) >= limit
}

// cleanup removes expired entries from the time windows
func (w *windows) cleanup(now time.Time) {
	w.minute = filterTimes(w.minute, now.Add(-1*time.Minute))
	w.hour = filterTimes(w.hour, now.Add(-1*time.Hour))
	w.day = filterTimes(w.day, now.Add(-24*time.Hour))
}

func (w *windows) idle() bool {
	return len(w.day) == 0
}

// prune drops clients with no request in the last day
func (rl *RateLimiter) prune(now time.Time) {
	for client, w := range rl.clients {
		w.cleanup(now)
		if w.idle() {
			delete(rl.clients, client)
		}
	}
}

// filterTimes keeps only times after the cutoff
func filterTimes(times []time.Time, cutoff time.Time) []time.Time {
	result := times[:0]
	for _, t := range times {
		if t.After(cutoff) {
			result = append(result, t)
		}
	}
	return result
}

// GetStats returns current rate limiter statistics for client
func (rl *RateLimiter) GetStats(client string) Stats {
	if !rl.enabled {
		return Stats{Enabled: false}
	}

	rl.mu.Lock()
	defer rl.mu.Unlock()

	w, ok := rl.clients[client]
	if !ok {
		w = &windows{}
	}
	w.cleanup(rl.now())

	return Stats{
		Enabled:             true,
		TrackedClients:      len(rl.clients),
		RequestsLastMinute:  len(w.minute),
		RequestsLastHour:    len(w.hour),
		RequestsLastDay:     len(w.day),
		LimitPerMinute:      rl.requestsPerMinute,
		LimitPerHour:        rl.requestsPerHour,
		LimitPerDay:         rl.requestsPerDay,
		RemainingThisMinute: remaining(rl.requestsPerMinute, len(w.minute)),
		RemainingThisHour:   remaining(rl.requestsPerHour, len(w.hour)),
		RemainingThisDay:    remaining(rl.requestsPerDay, len(w.day)),
	}
}

// remaining reports -1 for unlimited windows
func remaining(limit, used int) int {
	if limit <= 0 {
		return -1
	}
	return max(0, limit-used)
}

// Stats contains rate limiter statistics
type Stats struct {
	Enabled             bool `json:"enabled"`
	TrackedClients      int  `json:"tracked_clients"`
	RequestsLastMinute  int  `json:"requests_last_minute"`
	RequestsLastHour    int  `json:"requests_last_hour"`
	RequestsLastDay     int  `json:"requests_last_day"`
	LimitPerMinute      int  `json:"limit_per_minute"`
	LimitPerHour        int  `json:"limit_per_hour"`
	LimitPerDay         int  `json:"limit_per_day"`
	RemainingThisMinute int  `json:"remaining_this_minute"`
	RemainingThisHour   int  `json:"remaining_this_hour"`
	RemainingThisDay    int  `json:"remaining_this_day"`
}

// Reset clears all tracked requests (useful for testing)
func (rl *RateLimiter) Reset() {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	rl.clients = make(map[string]*windows)
	rl.calls = 0
}

// Middleware rejects requests over the limit with 429, keyed by client IP
func (rl *RateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		client := c.ClientIP()
		if !rl.AllowRequest(client) {
			zap.L().Warn("rate limit exceeded",
				zap.String("client", client),
				zap.String("path", c.FullPath()),
			)
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error":   "Rate limit exceeded",
				"message": "Too many requests. Please try again later.",
				"stats":   rl.GetStats(client),
			})
			return
		}
		c.Next()
	}
}

// StatsHandler serves the calling client's limiter statistics
func (rl *RateLimiter) StatsHandler(c *gin.Context) {
	c.JSON(http.StatusOK, rl.GetStats(c.ClientIP()))
}
