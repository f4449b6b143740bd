package newsletter

import (
	"net/http"
	"time"
)

// Request é uma tentativa de inscrição. Honeypot vem do campo oculto "website".
type Request struct {
	Email    string
	Honeypot string
}

type ErrorCode string

const (
	CodeInvalidRequest ErrorCode = "invalid_request"
	CodeRateLimit      ErrorCode = "rate_limit"
	CodeInvalidEmail   ErrorCode = "invalid_email"
	CodeConfig         ErrorCode = "config_error"
	CodeUpstream       ErrorCode = "upstream_error"
	CodeInternal       ErrorCode = "internal_error"
)

var messages = map[ErrorCode]string{
	CodeInvalidRequest: "Invalid request.",
	CodeRateLimit:      "Too many subscription attempts. Please try again later.",
	CodeInvalidEmail:   "Invalid email format.",
	CodeConfig:         "Newsletter is temporarily unavailable.",
	CodeUpstream:       "Failed to subscribe. Please try again later.",
	CodeInternal:       "An unexpected error occurred.",
}

const successMessage = "Successfully subscribed!"

// Message é o texto fixo exibido ao visitante para o código.
func (c ErrorCode) Message() string {
	if m, ok := messages[c]; ok {
		return m
	}
	return messages[CodeInternal]
}

// Outcome é o contrato estável devolvido ao chamador.
type Outcome struct {
	Success bool
	Status  int
	Code    ErrorCode
	// Duplicate marca o sucesso idempotente (upstream disse "já inscrito").
	Duplicate bool
	// RetryAfter só vem preenchido em rate_limit.
	RetryAfter time.Duration
}

func success(duplicate bool) Outcome {
	return Outcome{Success: true, Status: http.StatusOK, Duplicate: duplicate}
}

func failure(status int, code ErrorCode) Outcome {
	return Outcome{Status: status, Code: code}
}

// StatsOutcome é o rótulo usado nas estatísticas.
func (o Outcome) StatsOutcome() string {
	switch {
	case o.Duplicate:
		return "already_subscribed"
	case o.Success:
		return "ok"
	}
	return string(o.Code)
}
