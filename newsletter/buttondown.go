package newsletter

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	DefaultButtondownURL = "https://api.buttondown.email/v1"
	DefaultRelayTimeout  = 10 * time.Second

	maxErrorBody = 64 * 1024
)

// Códigos do Buttondown que significam "este e-mail já está na lista".
var alreadySubscribedCodes = map[string]struct{}{
	"email_already_exists":      {},
	"subscriber_already_exists": {},
	"email_already_subscribed":  {},
}

// HTTPClient é o mínimo de *http.Client que o relay usa.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Subscriber registra um e-mail no serviço externo.
type Subscriber interface {
	Subscribe(ctx context.Context, apiKey, email string) error
}

// UpstreamError é a resposta não-2xx do serviço externo.
type UpstreamError struct {
	Status int
	Code   string
	Detail string
	// Raw é o corpo (truncado) quando não foi possível interpretar como JSON.
	Raw    string
	Parsed bool
}

func (e *UpstreamError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("upstream status %d: %s", e.Status, e.Code)
	}
	return fmt.Sprintf("upstream status %d", e.Status)
}

// AlreadySubscribed indica o caso idempotente.
func (e *UpstreamError) AlreadySubscribed() bool {
	_, ok := alreadySubscribedCodes[e.Code]
	return ok
}

// Buttondown é o cliente da API de assinantes. Não faz retry: um POST
// repetido pode duplicar efeitos no serviço externo.
type Buttondown struct {
	client  HTTPClient
	baseURL string
	timeout time.Duration
}

type ButtondownOption func(*Buttondown)

func WithBaseURL(u string) ButtondownOption {
	return func(b *Buttondown) { b.baseURL = strings.TrimRight(u, "/") }
}

func WithRelayTimeout(d time.Duration) ButtondownOption {
	return func(b *Buttondown) { b.timeout = d }
}

func NewButtondown(client HTTPClient, opts ...ButtondownOption) *Buttondown {
	if client == nil {
		client = http.DefaultClient
	}
	b := &Buttondown{
		client:  client,
		baseURL: DefaultButtondownURL,
		timeout: DefaultRelayTimeout,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

type subscriberPayload struct {
	EmailAddress string `json:"email_address"`
}

// Subscribe faz POST /subscribers. Retorna *UpstreamError para respostas
// não-2xx e um erro comum para falhas de transporte.
func (b *Buttondown) Subscribe(ctx context.Context, apiKey, email string) error {
	if b.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, b.timeout)
		defer cancel()
	}

	payload, err := json.Marshal(subscriberPayload{EmailAddress: email})
	if err != nil {
		return fmt.Errorf("encode payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.baseURL+"/subscribers", bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Token "+apiKey)

	resp, err := b.client.Do(req)
	if err != nil {
		return fmt.Errorf("post subscriber: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxErrorBody))
		return nil
	}

	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	return parseUpstreamError(resp.StatusCode, body)
}

func parseUpstreamError(status int, body []byte) *UpstreamError {
	ue := &UpstreamError{Status: status}

	var fields map[string]any
	if err := json.Unmarshal(body, &fields); err != nil || fields == nil {
		ue.Raw = truncate(strings.TrimSpace(string(body)), 512)
		return ue
	}

	ue.Parsed = true
	ue.Code = stringField(fields, "code")
	for _, k := range []string{"detail", "message", "error"} {
		if v := stringField(fields, k); v != "" {
			ue.Detail = v
			break
		}
	}
	return ue
}

func stringField(m map[string]any, key string) string {
	if v, ok := m[key].(string); ok {
		return strings.TrimSpace(v)
	}
	return ""
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
