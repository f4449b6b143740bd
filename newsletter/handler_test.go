package newsletter

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"ambilab-gateway/middleware/ratelimit/domain"
	"ambilab-gateway/middleware/ratelimit/infra"
)

func newTestHandler(relay Subscriber, secret SecretSource, stats *infra.MemoryStatsStore) http.Handler {
	svc := newTestService(relay, secret)
	return NewHandler(svc, HandlerOptions{
		Stats: stats,
		Now:   func() time.Time { return t0 },
		Log:   discardLogger(),
	})
}

func post(h http.Handler, body string, headers map[string]string) *httptest.ResponseRecorder {
	r := httptest.NewRequest(http.MethodPost, "http://ambilab.cz"+Path, strings.NewReader(body))
	r.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		r.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var m map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &m); err != nil {
		t.Fatalf("decode body %q: %v", w.Body.String(), err)
	}
	return m
}

// eventually espera cond valer; as estatísticas são gravadas em segundo plano.
func eventually(cond func() bool) bool {
	deadline := time.Now().Add(time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			return false
		}
		time.Sleep(5 * time.Millisecond)
	}
	return true
}

func TestHandler_Success(t *testing.T) {
	relay := &fakeRelay{}
	stats := infra.NewMemoryStatsStore()
	h := newTestHandler(relay, StaticSecret("k"), stats)

	w := post(h, `{"email":"reader@ambilab.cz"}`, map[string]string{"CF-Connecting-IP": "1.2.3.4"})
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body)
	}
	if got := w.Header().Get("Cache-Control"); got != "no-store" {
		t.Fatalf("expected Cache-Control no-store, got %q", got)
	}
	if got := w.Header().Get("Content-Type"); got != "application/json" {
		t.Fatalf("expected JSON content type, got %q", got)
	}
	body := decode(t, w)
	if body["success"] != true || body["message"] != "Successfully subscribed!" {
		t.Fatalf("unexpected body %v", body)
	}
	if !eventually(func() bool { return stats.Outcomes()["ok"] == 1 }) {
		t.Fatalf("expected ok outcome recorded, got %v", stats.Outcomes())
	}
}

func TestHandler_RateLimitUsesClientIP(t *testing.T) {
	h := newTestHandler(&fakeRelay{}, StaticSecret("k"), nil)
	xff := map[string]string{"X-Forwarded-For": "5.6.7.8, 10.0.0.1"}

	for i := 0; i < 3; i++ {
		if w := post(h, `{"email":"a@b.cz"}`, xff); w.Code != http.StatusOK {
			t.Fatalf("attempt %d: expected 200, got %d", i+1, w.Code)
		}
	}

	w := post(h, `{"email":"a@b.cz"}`, xff)
	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", w.Code)
	}
	if decode(t, w)["error"] != "rate_limit" {
		t.Fatalf("expected rate_limit code, got %s", w.Body)
	}
	if w.Header().Get("Retry-After") != "3600" {
		t.Fatalf("expected Retry-After=3600, got %q", w.Header().Get("Retry-After"))
	}

	// outro IP não é afetado
	if w := post(h, `{"email":"a@b.cz"}`, map[string]string{"X-Forwarded-For": "9.9.9.9"}); w.Code != http.StatusOK {
		t.Fatalf("expected 200 for another client, got %d", w.Code)
	}
}

func TestHandler_Rejections(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		secret     SecretSource
		relayErr   error
		wantStatus int
		wantCode   string
	}{
		{name: "malformed json", body: `{"email":`, secret: StaticSecret("k"), wantStatus: 400, wantCode: "invalid_request"},
		{name: "email not a string", body: `{"email":123}`, secret: StaticSecret("k"), wantStatus: 400, wantCode: "invalid_request"},
		{name: "honeypot", body: `{"email":"a@b.cz","website":"x"}`, secret: StaticSecret("k"), wantStatus: 400, wantCode: "invalid_request"},
		{name: "missing email", body: `{}`, secret: StaticSecret("k"), wantStatus: 400, wantCode: "invalid_email"},
		{name: "bad email", body: `{"email":"not-an-email"}`, secret: StaticSecret("k"), wantStatus: 400, wantCode: "invalid_email"},
		{name: "no api key", body: `{"email":"a@b.cz"}`, secret: StaticSecret(""), wantStatus: 500, wantCode: "config_error"},
		{
			name:       "upstream failure",
			body:       `{"email":"a@b.cz"}`,
			secret:     StaticSecret("k"),
			relayErr:   &UpstreamError{Status: 422, Code: "server_error", Detail: "internal detail", Parsed: true},
			wantStatus: 422,
			wantCode:   "upstream_error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newTestHandler(&fakeRelay{err: tt.relayErr}, tt.secret, nil)
			w := post(h, tt.body, nil)

			if w.Code != tt.wantStatus {
				t.Fatalf("expected %d, got %d: %s", tt.wantStatus, w.Code, w.Body)
			}
			body := decode(t, w)
			if body["error"] != tt.wantCode {
				t.Fatalf("expected error %q, got %v", tt.wantCode, body)
			}
			if _, ok := body["success"]; ok {
				t.Fatalf("failure body must not carry success")
			}
			if s := w.Body.String(); strings.Contains(s, "internal detail") || strings.Contains(s, "website") {
				t.Fatalf("response leaks detail: %s", s)
			}
		})
	}
}

func TestHandler_DuplicateIsSuccess(t *testing.T) {
	stats := infra.NewMemoryStatsStore()
	relay := &fakeRelay{err: &UpstreamError{Status: 400, Code: "email_already_exists", Parsed: true}}
	h := newTestHandler(relay, StaticSecret("k"), stats)

	w := post(h, `{"email":"a@b.cz"}`, nil)
	if w.Code != http.StatusOK || decode(t, w)["success"] != true {
		t.Fatalf("expected idempotent success, got %d %s", w.Code, w.Body)
	}
	if !eventually(func() bool { return stats.Outcomes()["already_subscribed"] == 1 }) {
		t.Fatalf("expected already_subscribed outcome, got %v", stats.Outcomes())
	}
}

func TestHandler_MethodNotAllowed(t *testing.T) {
	h := newTestHandler(&fakeRelay{}, StaticSecret("k"), nil)
	r := httptest.NewRequest(http.MethodGet, "http://ambilab.com"+Path, nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)

	if w.Code != http.StatusMethodNotAllowed || w.Header().Get("Allow") != "POST" {
		t.Fatalf("expected 405 with Allow: POST, got %d %q", w.Code, w.Header().Get("Allow"))
	}
}

type slowStats struct {
	release  chan struct{}
	recorded chan domain.StatsEvent
}

func (s slowStats) Record(ctx context.Context, ev domain.StatsEvent) error {
	select {
	case <-s.release:
	case <-ctx.Done():
		return ctx.Err()
	}
	s.recorded <- ev
	return nil
}

func TestHandler_SlowStatsDoNotDelayResponse(t *testing.T) {
	stats := slowStats{release: make(chan struct{}), recorded: make(chan domain.StatsEvent, 1)}
	h := NewHandler(newTestService(&fakeRelay{}, StaticSecret("k")), HandlerOptions{
		Stats: stats,
		Now:   func() time.Time { return t0 },
		Log:   discardLogger(),
	})

	start := time.Now()
	w := post(h, `{"email":"bad"}`, map[string]string{"CF-Connecting-IP": "1.2.3.4"})
	elapsed := time.Since(start)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
	if elapsed > 500*time.Millisecond {
		t.Fatalf("response waited %s on the stats sink", elapsed)
	}

	// o evento continua chegando ao sink depois da resposta
	close(stats.release)
	select {
	case ev := <-stats.recorded:
		if ev.Outcome != string(CodeInvalidEmail) || ev.Key != "1.2.3.4" {
			t.Fatalf("unexpected event %+v", ev)
		}
	case <-time.After(time.Second):
		t.Fatalf("stats event never recorded")
	}
}
