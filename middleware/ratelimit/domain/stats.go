package domain

import (
	"context"
	"time"
)

// StatsEvent é um registro de decisão (throttle do site ou envio da newsletter).
//
// Method/Path/Outcome são strings livres para não acoplar a net/http.
// Key (IP do cliente) só deve ser persistida quando explicitamente pedido:
// cardinalidade alta e dado pessoal.
type StatsEvent struct {
	Key     Key
	Allowed bool

	Method string
	Path   string

	// Outcome é o código curto do resultado (ex: "rate_limit", "ok").
	// Vazio quando o evento vem do middleware de throttle.
	Outcome string

	At time.Time
}

// Route retorna "METHOD /path" (ou só o que estiver preenchido).
func (ev StatsEvent) Route() string {
	switch {
	case ev.Method == "":
		return ev.Path
	case ev.Path == "":
		return ev.Method
	}
	return ev.Method + " " + ev.Path
}

// Field é o nome do contador incrementado pelo evento.
func (ev StatsEvent) Field() string {
	if ev.Allowed {
		return "allowed"
	}
	return "denied"
}

// StatsStore persiste estatísticas (memória, Redis, SQLite).
//
// Quem chama trata erro como best-effort: estatística nunca derruba request.
type StatsStore interface {
	Record(ctx context.Context, ev StatsEvent) error
}
