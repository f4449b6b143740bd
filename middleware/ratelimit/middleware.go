package ratelimit

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"ambilab-gateway/middleware/ratelimit/application"
	"ambilab-gateway/middleware/ratelimit/domain"
)

// Options configura o throttle das páginas (token bucket por cliente).
type Options struct {
	Store               domain.LimiterStore
	Stats               domain.StatsStore
	KeyFn               KeyFunc
	Key                 KeyOptions
	RejectStatus        int
	RetryAfter          time.Duration
	AddRateLimitHeaders bool
}

type rateInfo interface {
	RPS() float64
	Burst() int
}

func Middleware(opts Options) func(next http.Handler) http.Handler {
	if opts.RejectStatus == 0 {
		opts.RejectStatus = http.StatusTooManyRequests
	}
	if opts.RetryAfter == 0 {
		opts.RetryAfter = 1 * time.Second
	}
	if opts.KeyFn == nil {
		opts.KeyFn = DefaultKeyFunc(opts.Key)
	}

	svc := application.ThrottleService{
		Store:      opts.Store,
		RetryAfter: opts.RetryAfter,
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := opts.KeyFn(r)

			if opts.AddRateLimitHeaders {
				if ri, ok := opts.Store.(rateInfo); ok {
					w.Header().Set("X-RateLimit-RPS", strconv.FormatFloat(ri.RPS(), 'f', -1, 64))
					w.Header().Set("X-RateLimit-Burst", strconv.Itoa(ri.Burst()))
				}
			}

			dec := svc.Decide(domain.Key(key))
			RecordStats(r, opts.Stats, domain.StatsEvent{
				Key:     domain.Key(key),
				Allowed: dec.Allowed,
				Method:  r.Method,
				Path:    r.URL.Path,
				At:      time.Now(),
			})
			if !dec.Allowed {
				SetRetryAfter(w, dec.RetryAfter)
				http.Error(w, http.StatusText(opts.RejectStatus), opts.RejectStatus)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// StatsTimeout é o prazo de uma gravação de estatística em segundo plano.
const StatsTimeout = 2 * time.Second

// RecordStats grava o evento em segundo plano, fire-and-forget: não bloqueia
// a resposta, e erro ou panic do store são descartados. O ctx é desligado do
// request (sobrevive ao fim da resposta) e expira em StatsTimeout.
// O canal retornado fecha quando a gravação termina.
func RecordStats(r *http.Request, stats domain.StatsStore, ev domain.StatsEvent) <-chan struct{} {
	done := make(chan struct{})
	if stats == nil {
		close(done)
		return done
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(r.Context()), StatsTimeout)
	go func() {
		defer close(done)
		defer cancel()
		defer func() { _ = recover() }()
		_ = stats.Record(ctx, ev)
	}()
	return done
}

// SetRetryAfter escreve Retry-After em segundos inteiros, arredondando
// para cima (nunca 0 quando há espera).
func SetRetryAfter(w http.ResponseWriter, d time.Duration) {
	if d <= 0 {
		return
	}
	secs := int((d + time.Second - 1) / time.Second)
	w.Header().Set("Retry-After", strconv.Itoa(secs))
}
