package infra

import (
	"context"
	"sync"
	"time"

	"ambilab-gateway/middleware/ratelimit/domain"
)

const (
	DefaultWindow     = time.Hour
	DefaultWindowMax  = 3
	DefaultSweepEvery = 15 * time.Minute
)

// SlidingWindow é a janela deslizante em memória, por processo.
//
// Para cada chave guarda os instantes (epoch ms) aceitos, em ordem de
// inserção. O filtro por requisição é autoritativo; Sweep só limita memória.
type SlidingWindow struct {
	mu         sync.Mutex
	hits       map[string][]int64
	window     time.Duration
	max        int
	sweepEvery time.Duration
}

type WindowOption func(*SlidingWindow)

func WithWindow(d time.Duration) WindowOption {
	return func(w *SlidingWindow) { w.window = d }
}

func WithWindowMax(n int) WindowOption {
	return func(w *SlidingWindow) { w.max = n }
}

func WithSweepEvery(d time.Duration) WindowOption {
	return func(w *SlidingWindow) { w.sweepEvery = d }
}

func NewSlidingWindow(opts ...WindowOption) *SlidingWindow {
	w := &SlidingWindow{
		hits:       make(map[string][]int64),
		window:     DefaultWindow,
		max:        DefaultWindowMax,
		sweepEvery: DefaultSweepEvery,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

func (w *SlidingWindow) Window() time.Duration { return w.window }
func (w *SlidingWindow) Max() int              { return w.max }

// CheckAndRecord implementa domain.WindowLimiter. Nunca retorna erro.
//
// Tudo acontece sob o mesmo lock: duas requisições concorrentes da mesma
// chave não passam juntas quando só resta uma vaga.
func (w *SlidingWindow) CheckAndRecord(_ context.Context, key domain.Key, now time.Time) (domain.Decision, error) {
	nowMs := now.UnixMilli()
	cutoff := nowMs - w.window.Milliseconds()
	k := string(key)

	w.mu.Lock()
	defer w.mu.Unlock()

	kept := filterSince(w.hits[k], cutoff)
	if len(kept) >= w.max {
		w.hits[k] = kept
		return domain.Decision{Allowed: false, RetryAfter: w.retryAfter(kept, nowMs)}, nil
	}

	w.hits[k] = append(kept, nowMs)
	return domain.Decision{Allowed: true}, nil
}

// retryAfter: quando o registro mais antigo sai da janela.
func (w *SlidingWindow) retryAfter(kept []int64, nowMs int64) time.Duration {
	if len(kept) == 0 {
		return 0
	}
	d := time.Duration(kept[0]+w.window.Milliseconds()-nowMs) * time.Millisecond
	if d < 0 {
		return 0
	}
	return d
}

// Sweep remove chaves sem registros na janela e encolhe as que perderam
// registros antigos. Retorna quantas chaves foram removidas.
func (w *SlidingWindow) Sweep(now time.Time) int {
	cutoff := now.UnixMilli() - w.window.Milliseconds()

	w.mu.Lock()
	defer w.mu.Unlock()

	removed := 0
	for k, hits := range w.hits {
		kept := filterSince(hits, cutoff)
		switch {
		case len(kept) == 0:
			delete(w.hits, k)
			removed++
		case len(kept) < len(hits):
			w.hits[k] = append([]int64(nil), kept...)
		}
	}
	return removed
}

// Len retorna quantas chaves estão sendo rastreadas.
func (w *SlidingWindow) Len() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.hits)
}

// StartJanitor roda Sweep a cada sweepEvery até o ctx encerrar
// (no binário, o ctx é cancelado por SIGINT/SIGTERM).
func (w *SlidingWindow) StartJanitor(ctx DoneContext) {
	if w.sweepEvery <= 0 {
		return
	}

	t := time.NewTicker(w.sweepEvery)
	go func() {
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case now := <-t.C:
				w.Sweep(now)
			}
		}
	}()
}

// filterSince mantém a ordem e reaproveita o array.
func filterSince(hits []int64, cutoff int64) []int64 {
	kept := hits[:0]
	for _, ts := range hits {
		if ts >= cutoff {
			kept = append(kept, ts)
		}
	}
	return kept
}
