package application

import (
	"context"
	"time"

	"ambilab-gateway/middleware/ratelimit/domain"
)

// ConcurrencyService limita requisições simultâneas repassadas ao renderizador.
type ConcurrencyService struct {
	Pool           domain.SlotPool
	AcquireTimeout time.Duration
}

// Acquire tenta obter uma vaga. AcquireTimeout <= 0 espera até o ctx
// encerrar. Com ok=false nenhuma vaga foi adquirida e release é nil.
func (s ConcurrencyService) Acquire(ctx context.Context) (release func(), ok bool) {
	if s.Pool == nil {
		return func() {}, true
	}
	if s.AcquireTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.AcquireTimeout)
		defer cancel()
	}
	return s.Pool.Acquire(ctx)
}

// Load devolve vagas em uso e capacidade; (0, 0) sem pool.
func (s ConcurrencyService) Load() (inUse, capacity int) {
	if s.Pool == nil {
		return 0, 0
	}
	return s.Pool.InUse(), s.Pool.Cap()
}
