// Package throttle limits unlock and recovery attempts per user.
package throttle

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/dmitrijs2005/gophvault/internal/common"
	"golang.org/x/time/rate"
)

// Limiter admits or rejects an attempt for key. A rejected attempt yields an
// error wrapping common.ErrCapacity.
type Limiter interface {
	Allow(ctx context.Context, key string) error
	// Reset forgets the attempts recorded for key, e.g. after a success.
	Reset(ctx context.Context, key string) error
}

func errLimited(key string) error {
	return fmt.Errorf("%w: too many attempts for %s, try again later", common.ErrCapacity, key)
}

// Unlimited admits everything.
type Unlimited struct{}

func (Unlimited) Allow(context.Context, string) error { return nil }
func (Unlimited) Reset(context.Context, string) error { return nil }

// sweepThreshold is the bucket count at which refilled buckets are evicted.
const sweepThreshold = 1024

// MemoryLimiter is a token bucket per key: attempts tokens, refilled evenly
// over window. A bucket that has refilled completely is indistinguishable
// from a new one, so it is dropped once the map reaches sweepAt entries.
type MemoryLimiter struct {
	mu       sync.Mutex
	buckets  map[string]*rate.Limiter
	limit    rate.Limit
	attempts int
	sweepAt  int
	now      func() time.Time
}

func NewMemoryLimiter(attempts int, window time.Duration) *MemoryLimiter {
	if attempts < 1 {
		attempts = 1
	}
	return &MemoryLimiter{
		buckets:  make(map[string]*rate.Limiter),
		limit:    rate.Every(window / time.Duration(attempts)),
		attempts: attempts,
		sweepAt:  sweepThreshold,
		now:      time.Now,
	}
}

func (l *MemoryLimiter) Allow(_ context.Context, key string) error {
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	b, ok := l.buckets[key]
	if !ok {
		if len(l.buckets) >= l.sweepAt {
			l.sweep(now)
		}
		b = rate.NewLimiter(l.limit, l.attempts)
		l.buckets[key] = b
	}

	if !b.AllowN(now, 1) {
		return errLimited(key)
	}
	return nil
}

// sweep drops every bucket that is full again. Callers hold l.mu.
func (l *MemoryLimiter) sweep(now time.Time) {
	for k, b := range l.buckets {
		if b.TokensAt(now) >= float64(l.attempts) {
			delete(l.buckets, k)
		}
	}
}

func (l *MemoryLimiter) Reset(_ context.Context, key string) error {
	l.mu.Lock()
	delete(l.buckets, key)
	l.mu.Unlock()
	return nil
}
