package bridge

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Throttle applies a token bucket per outbound method and evicts buckets
// that have been idle for a while. A nil *Throttle allows everything.
type Throttle struct {
	limit   rate.Limit
	burst   int
	idleTTL time.Duration

	mu       sync.Mutex
	byMethod map[string]*bucket
	hits     uint64
}

type bucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewThrottle returns nil when rps or burst is not positive.
func NewThrottle(rps float64, burst int) *Throttle {
	if rps <= 0 || burst <= 0 {
		return nil
	}
	return &Throttle{
		limit:    rate.Limit(rps),
		burst:    burst,
		idleTTL:  5 * time.Minute,
		byMethod: make(map[string]*bucket),
	}
}

// Allow reports whether one more call to method may be sent at now.
func (t *Throttle) Allow(method string, now time.Time) bool {
	if t == nil || method == "" {
		return true
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	b, ok := t.byMethod[method]
	if !ok {
		b = &bucket{limiter: rate.NewLimiter(t.limit, t.burst)}
		t.byMethod[method] = b
	}
	b.lastSeen = now
	allowed := b.limiter.AllowN(now, 1)

	t.hits++
	if t.hits%256 == 0 {
		cutoff := now.Add(-t.idleTTL)
		for k, v := range t.byMethod {
			if v.lastSeen.Before(cutoff) {
				delete(t.byMethod, k)
			}
		}
	}
	return allowed
}
