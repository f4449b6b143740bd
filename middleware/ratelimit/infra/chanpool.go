package infra

import (
	"context"
	"sync"
)

// ChanPool é um semáforo de canal com capacidade fixa.
type ChanPool struct {
	sem chan struct{}
}

func NewChanPool(max int) *ChanPool {
	if max < 1 {
		max = 1
	}
	return &ChanPool{sem: make(chan struct{}, max)}
}

func (p *ChanPool) Acquire(ctx context.Context) (func(), bool) {
	// vaga livre é concedida mesmo com ctx já encerrado; select com as duas
	// prontas escolheria ao acaso
	select {
	case p.sem <- struct{}{}:
		return p.releaser(), true
	default:
	}

	select {
	case p.sem <- struct{}{}:
		return p.releaser(), true
	case <-ctx.Done():
		return nil, false
	}
}

func (p *ChanPool) releaser() func() {
	var once sync.Once
	return func() { once.Do(func() { <-p.sem }) }
}

func (p *ChanPool) InUse() int { return len(p.sem) }
func (p *ChanPool) Cap() int   { return cap(p.sem) }
