package newsletter

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"time"

	"ambilab-gateway/middleware/ratelimit"
	"ambilab-gateway/middleware/ratelimit/domain"
)

const (
	Path = "/api/newsletter"

	maxRequestBody = 16 * 1024
)

type HandlerOptions struct {
	// KeyFn extrai o IP do cliente; padrão: CF-Connecting-IP -> XFF -> "unknown".
	KeyFn ratelimit.KeyFunc
	Stats domain.StatsStore
	Now   func() time.Time
	Log   *slog.Logger
}

type submitBody struct {
	Email   string `json:"email"`
	Website string `json:"website"`
}

type successBody struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

type errorBody struct {
	Error   ErrorCode `json:"error"`
	Message string    `json:"message"`
}

type handler struct {
	svc   *Service
	keyFn ratelimit.KeyFunc
	stats domain.StatsStore
	now   func() time.Time
	log   *slog.Logger
}

// NewHandler expõe o Service em POST /api/newsletter.
func NewHandler(svc *Service, opts HandlerOptions) http.Handler {
	h := &handler{svc: svc, keyFn: opts.KeyFn, stats: opts.Stats, now: opts.Now, log: opts.Log}
	if h.keyFn == nil {
		h.keyFn = ratelimit.DefaultKeyFunc(ratelimit.NewsletterKeyOptions())
	}
	if h.now == nil {
		h.now = time.Now
	}
	if h.log == nil {
		h.log = slog.Default()
	}
	return h
}

func (h *handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Cache-Control", "no-store")

	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		writeJSON(w, http.StatusMethodNotAllowed, errorBody{Error: CodeInvalidRequest, Message: CodeInvalidRequest.Message()})
		return
	}

	clientIP := h.keyFn(r)
	out := h.handle(r, clientIP)
	h.respond(w, out)

	// depois da resposta e em segundo plano: o sink nunca atrasa o cliente
	ratelimit.RecordStats(r, h.stats, domain.StatsEvent{
		Key:     domain.Key(clientIP),
		Allowed: out.Success,
		Method:  r.Method,
		Path:    Path,
		Outcome: out.StatsOutcome(),
		At:      h.now(),
	})
}

func (h *handler) respond(w http.ResponseWriter, out Outcome) {
	if out.Success {
		writeJSON(w, out.Status, successBody{Success: true, Message: successMessage})
		return
	}
	if out.Code == CodeRateLimit {
		ratelimit.SetRetryAfter(w, out.RetryAfter)
	}
	writeJSON(w, out.Status, errorBody{Error: out.Code, Message: out.Code.Message()})
}

func (h *handler) handle(r *http.Request, clientIP string) (out Outcome) {
	defer func() {
		if rec := recover(); rec != nil {
			h.log.Error("newsletter handler panic", "panic", rec)
			out = failure(http.StatusInternalServerError, CodeInternal)
		}
	}()

	var body submitBody
	dec := json.NewDecoder(io.LimitReader(r.Body, maxRequestBody))
	if err := dec.Decode(&body); err != nil {
		// ruído de cliente: só debug
		h.log.Debug("newsletter body rejected", "error", err)
		return failure(http.StatusBadRequest, CodeInvalidRequest)
	}

	return h.svc.Submit(r.Context(), Request{Email: body.Email, Honeypot: body.Website}, clientIP, h.now())
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
