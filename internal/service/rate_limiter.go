package service

import (
	"context"
	"time"

	"github.com/GTDGit/muni_commerce/internal/models"
)

// Endpoints throttled by the rate limiter.
const (
	EndpointAdminLogin     = "admin_login"
	EndpointInvestissement = "investissement"
	EndpointRecrutement    = "recrutement"
)

// RateLimitStore persists counters. Apply must load the record for
// (ip, endpoint), pass it to fn (nil when absent) and store fn's result
// (unless nil) as one unit. window is the length of the window fn decides
// with; stores that expire keys must keep them at least that long. It is
// implemented by the SQL repository and the Redis cache.
type RateLimitStore interface {
	Apply(ctx context.Context, ip, endpoint string, window time.Duration, fn func(cur *models.RateLimitRecord) *models.RateLimitRecord) error
}

// RateLimiter is a fixed-window counter per (client IP, endpoint).
type RateLimiter struct {
	store  RateLimitStore
	limit  int
	window time.Duration
	now    func() time.Time
}

// NewRateLimiter constructs a RateLimiter with the default limit and window.
func NewRateLimiter(store RateLimitStore, limit int, window time.Duration) *RateLimiter {
	return &RateLimiter{store: store, limit: limit, window: window, now: time.Now}
}

// SetClock replaces the time source.
func (r *RateLimiter) SetClock(now func() time.Time) {
	r.now = now
}

// Allow applies the default limit and window.
func (r *RateLimiter) Allow(ctx context.Context, ip, endpoint string) (bool, error) {
	return r.AllowWith(ctx, ip, endpoint, r.limit, r.window)
}

// AllowWith counts one attempt for (ip, endpoint) and reports whether it is
// within limit for the current window.
func (r *RateLimiter) AllowWith(ctx context.Context, ip, endpoint string, limit int, window time.Duration) (bool, error) {
	now := r.now()
	var allowed bool
	err := r.store.Apply(ctx, ip, endpoint, window, func(cur *models.RateLimitRecord) *models.RateLimitRecord {
		var next *models.RateLimitRecord
		next, allowed = NextWindow(cur, limit, window, now)
		if next != nil {
			next.IP, next.Endpoint = ip, endpoint
		}
		return next
	})
	if err != nil {
		return false, err
	}
	return allowed, nil
}

// NextWindow implements the fixed-window rule. It returns the record to store
// (nil when nothing changes) and whether the attempt is allowed.
//
//   - no record: start a window with count 1
//   - now - window_start > window: restart the window with count 1
//   - count >= limit: reject, count unchanged
//   - otherwise: count + 1
//
// Windows are not sliding: a client may spend its full quota at the end of
// one window and again at the start of the next.
func NextWindow(cur *models.RateLimitRecord, limit int, window time.Duration, now time.Time) (*models.RateLimitRecord, bool) {
	if cur == nil || now.Sub(cur.WindowStart) > window {
		return &models.RateLimitRecord{Count: 1, WindowStart: now}, true
	}
	if cur.Count >= limit {
		return nil, false
	}
	next := *cur
	next.Count++
	return &next, true
}
