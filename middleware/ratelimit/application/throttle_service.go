package application

import (
	"time"

	"ambilab-gateway/middleware/ratelimit/domain"
)

const defaultThrottleRetry = time.Second

// ThrottleService decide o throttle de páginas (token bucket por chave).
type ThrottleService struct {
	Store      domain.LimiterStore
	RetryAfter time.Duration
}

func (s ThrottleService) Decide(key domain.Key) domain.Decision {
	if s.Store == nil {
		return domain.Decision{Allowed: true}
	}

	lim := s.Store.Get(key)
	if lim == nil || lim.Allow() {
		return domain.Decision{Allowed: true}
	}

	retry := s.RetryAfter
	if retry <= 0 {
		retry = defaultThrottleRetry
	}
	return domain.Decision{Allowed: false, RetryAfter: retry}
}
