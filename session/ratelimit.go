package session

import (
	"sync"
	"time"

	"github.com/chanlink/chanlink/wire"
)

// kindLimit bounds how many envelopes of one Kind may be accepted within
// RefillInterval before the bucket runs dry.
type kindLimit struct {
	MaxBurst       int
	RefillInterval time.Duration
}

// defaultKindLimits mirrors the shape of a Socket.IO event rate table from
// the reference heartbeat client, retargeted from named client events onto
// the five wire.Kind envelope discriminators.
func defaultKindLimits() map[wire.Kind]kindLimit {
	return map[wire.Kind]kindLimit{
		wire.KindMsg:      {MaxBurst: 256, RefillInterval: time.Second},
		wire.KindRequest:  {MaxBurst: 64, RefillInterval: time.Second},
		wire.KindResponse: {MaxBurst: 64, RefillInterval: time.Second},
		wire.KindAck:      {MaxBurst: 64, RefillInterval: time.Second},
		wire.KindReject:   {MaxBurst: 64, RefillInterval: time.Second},
	}
}

type tokenBucket struct {
	tokens     float64
	maxTokens  float64
	refillRate float64 // tokens per second
	lastRefill time.Time
}

// kindRateLimiter is a per-envelope-kind token bucket guarding a single
// session's inbound dispatch loop. Unlike the reference implementation it
// is grounded on (which silently drops over-limit events), exceeding a
// bucket here is a TransportError that closes the session: this protocol's
// per-request delivery guarantees require every envelope to either be
// delivered or terminate the session, never vanish silently.
type kindRateLimiter struct {
	mu      sync.Mutex
	limits  map[wire.Kind]kindLimit
	buckets map[wire.Kind]*tokenBucket
}

func newKindRateLimiter() *kindRateLimiter {
	return &kindRateLimiter{
		limits:  defaultKindLimits(),
		buckets: make(map[wire.Kind]*tokenBucket),
	}
}

func (r *kindRateLimiter) Allow(kind wire.Kind) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	limit, ok := r.limits[kind]
	if !ok {
		limit = kindLimit{MaxBurst: 32, RefillInterval: 5 * time.Second}
	}

	b, ok := r.buckets[kind]
	now := time.Now()
	if !ok {
		b = &tokenBucket{
			tokens:     float64(limit.MaxBurst),
			maxTokens:  float64(limit.MaxBurst),
			refillRate: float64(limit.MaxBurst) / limit.RefillInterval.Seconds(),
			lastRefill: now,
		}
		r.buckets[kind] = b
	}

	elapsed := now.Sub(b.lastRefill).Seconds()
	b.tokens += elapsed * b.refillRate
	if b.tokens > b.maxTokens {
		b.tokens = b.maxTokens
	}
	b.lastRefill = now

	if b.tokens < 1 {
		return false
	}
	b.tokens--
	return true
}
