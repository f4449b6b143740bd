package application

import (
	"context"
	"log/slog"
	"time"

	"ambilab-gateway/middleware/ratelimit/domain"
)

// WindowService aplica a janela deslizante (check-and-record) sem saber de HTTP.
//
// Se o backing store falhar (ex: Redis fora), libera a requisição e loga:
// o limite protege contra abuso, não é requisito de corretude do envio.
type WindowService struct {
	Limiter domain.WindowLimiter
	Log     *slog.Logger
}

func (s WindowService) Allow(ctx context.Context, key domain.Key, now time.Time) domain.Decision {
	if s.Limiter == nil {
		return domain.Decision{Allowed: true}
	}

	dec, err := s.Limiter.CheckAndRecord(ctx, key, now)
	if err != nil {
		s.logger().Error("rate limit store unavailable, allowing request", "error", err)
		return domain.Decision{Allowed: true}
	}
	if !dec.Allowed && dec.RetryAfter < 0 {
		dec.RetryAfter = 0
	}
	return dec
}

func (s WindowService) logger() *slog.Logger {
	if s.Log != nil {
		return s.Log
	}
	return slog.Default()
}
