// Package ratelimit provides fixed-window request admission control.
//
// Admission is keyed by (credential, operation class) where the class is
// one of create, read, update, delete. Each class carries its own ceiling
// and window. Counters are process-local and reset on restart; they are
// global per credential, not tenant-scoped. A denied request is rejected
// before validation or storage is touched.
package ratelimit

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// Class is the operation class a request is admitted under.
type Class string

const (
	ClassCreate Class = "create"
	ClassRead   Class = "read"
	ClassUpdate Class = "update"
	ClassDelete Class = "delete"
)

// Limit is a per-class ceiling over a fixed window.
type Limit struct {
	Ceiling int
	Window  time.Duration
}

// Error is returned when a request exceeds its class ceiling.
type Error struct {
	Class      Class
	RetryAfter time.Duration
	Remaining  int
}

func (e *Error) Error() string {
	return fmt.Sprintf("rate limit exceeded for %s requests, retry after %v", e.Class, e.RetryAfter)
}

// IsRateLimited checks if an error is a rate limit rejection.
func IsRateLimited(err error) bool {
	_, ok := err.(*Error)
	return ok
}

// Limiter defines the interface for rate limiting implementations.
type Limiter interface {
	// Allow checks if the request should be allowed based on the key and
	// limit. remaining indicates how many requests are left in the
	// current window.
	Allow(ctx context.Context, key string, limit int, window time.Duration) (allowed bool, remaining int, err error)

	// Reset clears the rate limit counter for the given key.
	Reset(ctx context.Context, key string) error
}

type fixedWindowEntry struct {
	count     int
	expiresAt time.Time
}

// FixedWindow implements rate limiting using fixed time windows in memory.
type FixedWindow struct {
	mu      sync.Mutex
	entries map[string]*fixedWindowEntry
}

// NewFixedWindow creates a new fixed window rate limiter.
func NewFixedWindow() *FixedWindow {
	return &FixedWindow{entries: make(map[string]*fixedWindowEntry)}
}

func (r *FixedWindow) Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	entry, exists := r.entries[key]

	if !exists || now.After(entry.expiresAt) {
		r.entries[key] = &fixedWindowEntry{
			count:     1,
			expiresAt: now.Add(window),
		}
		return true, limit - 1, nil
	}

	if entry.count >= limit {
		return false, 0, nil
	}

	entry.count++
	return true, limit - entry.count, nil
}

func (r *FixedWindow) Reset(ctx context.Context, key string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.entries, key)
	return nil
}

// Gate admits requests per credential and operation class against
// configured ceilings.
type Gate struct {
	limiter Limiter
	limits  map[Class]Limit
}

// NewGate creates a gate over the given limiter with per-class limits.
func NewGate(limiter Limiter, limits map[Class]Limit) *Gate {
	return &Gate{limiter: limiter, limits: limits}
}

// Admit checks the request against the class ceiling. ceilingOverride
// replaces the configured ceiling when positive (tenant documents may
// carry per-class overrides). Denial returns *Error.
func (g *Gate) Admit(ctx context.Context, credential string, class Class, ceilingOverride int) error {
	limit, ok := g.limits[class]
	if !ok {
		return nil
	}
	ceiling := limit.Ceiling
	if ceilingOverride > 0 {
		ceiling = ceilingOverride
	}
	if ceiling <= 0 {
		return nil
	}

	key := credential + ":" + string(class)
	allowed, remaining, err := g.limiter.Allow(ctx, key, ceiling, limit.Window)
	if err != nil {
		return fmt.Errorf("rate limit check failed: %w", err)
	}
	if !allowed {
		return &Error{Class: class, RetryAfter: limit.Window, Remaining: remaining}
	}
	return nil
}
