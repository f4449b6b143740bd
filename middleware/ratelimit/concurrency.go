package ratelimit

import (
	"log/slog"
	"net/http"
	"time"

	"ambilab-gateway/middleware/ratelimit/application"
	"ambilab-gateway/middleware/ratelimit/domain"
	"ambilab-gateway/middleware/ratelimit/infra"
)

// OutcomeOverloaded marca nas estatísticas as requisições recusadas por
// falta de vaga.
const OutcomeOverloaded = "overloaded"

type ConcurrencyOptions struct {
	Max            int
	RejectStatus   int
	AcquireTimeout time.Duration
	// RetryAfter vai no header da recusa; 0 usa 1s.
	RetryAfter time.Duration
	Stats      domain.StatsStore
	KeyFn      KeyFunc
	Log        *slog.Logger
}

// ConcurrencyMiddleware limita requisições simultâneas; Max <= 0 desliga.
func ConcurrencyMiddleware(opts ConcurrencyOptions) func(next http.Handler) http.Handler {
	if opts.Max <= 0 {
		return func(next http.Handler) http.Handler { return next }
	}
	if opts.RejectStatus == 0 {
		opts.RejectStatus = http.StatusServiceUnavailable
	}
	if opts.RetryAfter == 0 {
		opts.RetryAfter = time.Second
	}
	if opts.KeyFn == nil {
		opts.KeyFn = DefaultKeyFunc(NewsletterKeyOptions())
	}
	if opts.Log == nil {
		opts.Log = slog.Default()
	}

	svc := application.ConcurrencyService{
		Pool:           infra.NewChanPool(opts.Max),
		AcquireTimeout: opts.AcquireTimeout,
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			release, ok := svc.Acquire(r.Context())
			if !ok {
				inUse, capacity := svc.Load()
				opts.Log.Debug("concurrency limit reached", "path", r.URL.Path, "inUse", inUse, "cap", capacity)
				RecordStats(r, opts.Stats, domain.StatsEvent{
					Key:     domain.Key(opts.KeyFn(r)),
					Method:  r.Method,
					Path:    r.URL.Path,
					Outcome: OutcomeOverloaded,
					At:      time.Now(),
				})
				SetRetryAfter(w, opts.RetryAfter)
				http.Error(w, http.StatusText(opts.RejectStatus), opts.RejectStatus)
				return
			}
			defer release()

			next.ServeHTTP(w, r)
		})
	}
}
