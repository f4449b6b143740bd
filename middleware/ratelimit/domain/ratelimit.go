package domain

// Camada de domínio do rate limit.
//
// Regras e contratos (interfaces/tipos) sem dependência de net/http.

import (
	"context"
	"time"
)

type Key string

// Limiter representa algo que pode decidir se uma ação é permitida agora.
//
// Observação: a implementação pode ser token-bucket, leaky-bucket, etc.
// A camada de infra usa golang.org/x/time/rate.
type Limiter interface {
	Allow() bool
}

// LimiterStore obtém um limiter por chave (ex: IP, API key, usuário).
// A implementação pode manter cache, TTL, etc.
type LimiterStore interface {
	Get(Key) Limiter
}

// WindowLimiter é o contrato da janela deslizante (check-and-record).
//
// CheckAndRecord conta os registros da chave em [now-window, now]; se a
// contagem já atingiu o máximo, nega sem registrar. Caso contrário registra
// now e permite. A verificação e o registro são atômicos por chave.
//
// O backing store é trocável (memória, Redis) sem mexer no pipeline.
type WindowLimiter interface {
	CheckAndRecord(ctx context.Context, key Key, now time.Time) (Decision, error)
}

type Decision struct {
	Allowed bool
	// RetryAfter é o valor a ser retornado em Retry-After quando bloquear.
	// Se 0, não há recomendação.
	RetryAfter time.Duration
}
