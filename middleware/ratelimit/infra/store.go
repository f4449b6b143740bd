package infra

import (
	"sync"
	"time"

	"ambilab-gateway/middleware/ratelimit/domain"

	"golang.org/x/time/rate"
)

// TokenBuckets é o throttle por cliente das páginas do site: um
// rate.Limiter por chave, descartado após idleTTL sem uso.
type TokenBuckets struct {
	mu           sync.Mutex
	entries      map[string]*bucketEntry
	rps          rate.Limit
	burst        int
	idleTTL      time.Duration
	cleanupEvery time.Duration
	now          func() time.Time
}

type bucketEntry struct {
	lim      *rate.Limiter
	lastSeen time.Time
}

type BucketOption func(*TokenBuckets)

func WithIdleTTL(d time.Duration) BucketOption {
	return func(s *TokenBuckets) { s.idleTTL = d }
}

func WithCleanupEvery(d time.Duration) BucketOption {
	return func(s *TokenBuckets) { s.cleanupEvery = d }
}

// WithClock troca o relógio usado para lastSeen/limpeza (testes).
func WithClock(now func() time.Time) BucketOption {
	return func(s *TokenBuckets) { s.now = now }
}

func NewTokenBuckets(rps float64, burst int, opts ...BucketOption) *TokenBuckets {
	s := &TokenBuckets{
		entries:      make(map[string]*bucketEntry),
		rps:          rate.Limit(rps),
		burst:        burst,
		idleTTL:      15 * time.Minute,
		cleanupEvery: 2 * time.Minute,
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *TokenBuckets) RPS() float64 { return float64(s.rps) }
func (s *TokenBuckets) Burst() int   { return s.burst }

// Get implementa domain.LimiterStore.
func (s *TokenBuckets) Get(key domain.Key) domain.Limiter {
	now := s.now()
	k := string(key)

	s.mu.Lock()
	defer s.mu.Unlock()

	if ent, ok := s.entries[k]; ok {
		ent.lastSeen = now
		return ent.lim
	}

	lim := rate.NewLimiter(s.rps, s.burst)
	s.entries[k] = &bucketEntry{lim: lim, lastSeen: now}
	return lim
}

// Cleanup descarta buckets ociosos há mais de idleTTL.
func (s *TokenBuckets) Cleanup() int {
	cutoff := s.now().Add(-s.idleTTL)

	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for k, ent := range s.entries {
		if ent.lastSeen.Before(cutoff) {
			delete(s.entries, k)
			removed++
		}
	}
	return removed
}

// StartJanitor chama Cleanup periodicamente até o ctx encerrar.
func (s *TokenBuckets) StartJanitor(ctx DoneContext) {
	if s.cleanupEvery <= 0 {
		return
	}

	t := time.NewTicker(s.cleanupEvery)
	go func() {
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				s.Cleanup()
			}
		}
	}()
}

// DoneContext é o mínimo de context.Context que os janitors precisam.
type DoneContext interface {
	Done() <-chan struct{}
}
