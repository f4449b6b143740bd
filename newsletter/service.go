package newsletter

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"ambilab-gateway/middleware/ratelimit/application"
	"ambilab-gateway/middleware/ratelimit/domain"
)

// Service executa o pipeline de inscrição. Sem estado próprio: o estado da
// janela deslizante fica no Limiter injetado.
type Service struct {
	limiter application.WindowService
	relay   Subscriber
	secret  SecretSource
	log     *slog.Logger
}

type Config struct {
	Limiter domain.WindowLimiter
	Relay   Subscriber
	Secret  SecretSource
	Log     *slog.Logger
}

func NewService(cfg Config) *Service {
	log := cfg.Log
	if log == nil {
		log = slog.Default()
	}
	secret := cfg.Secret
	if secret == nil {
		secret = StaticSecret("")
	}
	return &Service{
		limiter: application.WindowService{Limiter: cfg.Limiter, Log: log},
		relay:   cfg.Relay,
		secret:  secret,
		log:     log,
	}
}

// Submit processa uma tentativa. Nunca entra em panic: qualquer falha
// inesperada vira 500 internal_error.
func (s *Service) Submit(ctx context.Context, req Request, clientIP string, now time.Time) (out Outcome) {
	defer func() {
		if r := recover(); r != nil {
			s.log.Error("newsletter pipeline panic", "panic", r)
			out = failure(http.StatusInternalServerError, CodeInternal)
		}
	}()

	// honeypot antes da janela: bot não gasta a cota de quem divide o IP
	if strings.TrimSpace(req.Honeypot) != "" {
		return failure(http.StatusBadRequest, CodeInvalidRequest)
	}

	// sem I/O entre checar e registrar: tudo dentro do CheckAndRecord
	dec := s.limiter.Allow(ctx, domain.Key(clientIP), now)
	if !dec.Allowed {
		out = failure(http.StatusTooManyRequests, CodeRateLimit)
		out.RetryAfter = dec.RetryAfter
		return out
	}

	email := normalizeEmail(req.Email)
	if !ValidEmail(email) {
		return failure(http.StatusBadRequest, CodeInvalidEmail)
	}

	apiKey, ok := s.secret()
	if !ok {
		s.log.Error("newsletter relay disabled", "error", ErrMissingSecret)
		return failure(http.StatusInternalServerError, CodeConfig)
	}
	if s.relay == nil {
		s.log.Error("newsletter relay disabled", "error", "no subscriber client")
		return failure(http.StatusInternalServerError, CodeConfig)
	}

	return s.relayOutcome(s.relay.Subscribe(ctx, apiKey, email))
}

func (s *Service) relayOutcome(err error) Outcome {
	if err == nil {
		return success(false)
	}

	var ue *UpstreamError
	if !errors.As(err, &ue) {
		s.log.Error("newsletter upstream request failed", "error", err)
		return failure(http.StatusInternalServerError, CodeUpstream)
	}

	if ue.AlreadySubscribed() {
		s.log.Info("newsletter address already subscribed", "status", ue.Status, "code", ue.Code)
		return success(true)
	}

	if ue.Parsed {
		s.log.Error("newsletter upstream error",
			"status", ue.Status, "code", ue.Code, "detail", ue.Detail)
	} else {
		s.log.Error("newsletter upstream error (unparseable body)",
			"status", ue.Status, "body", ue.Raw)
	}
	return failure(upstreamStatus(ue.Status), CodeUpstream)
}

// upstreamStatus repassa 4xx/5xx do upstream; qualquer outra coisa vira 502.
func upstreamStatus(status int) int {
	if status >= 400 && status <= 599 {
		return status
	}
	return http.StatusBadGateway
}
