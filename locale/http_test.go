package locale

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestProxyHeader_OverwritesClientValue(t *testing.T) {
	var got string
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Get(HeaderName)
	})

	r := httptest.NewRequest(http.MethodGet, "http://ambilab.cz/", nil)
	r.Header.Set(HeaderName, "de")
	ProxyHeader(next).ServeHTTP(httptest.NewRecorder(), r)

	if got != "cs" {
		t.Fatalf("expected X-Locale=cs, got %q", got)
	}
}

func TestHandle_PassesLocaleExplicitly(t *testing.T) {
	var arg, fromCtx Locale
	h := Handle(HandlerFunc(func(w http.ResponseWriter, r *http.Request, l Locale) {
		arg = l
		fromCtx = FromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))

	r := httptest.NewRequest(http.MethodGet, "http://ambilab.com/", nil)
	r.Header.Set("Cookie", "locale=cs")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)

	if arg != CS || fromCtx != CS {
		t.Fatalf("expected cs as argument and in context, got %q / %q", arg, fromCtx)
	}
	if w.Header().Get("Vary") != "Cookie" {
		t.Fatalf("expected Vary: Cookie")
	}
}

func TestFromContext_DefaultsWhenUnset(t *testing.T) {
	if got := FromContext(context.Background()); got != Default {
		t.Fatalf("expected default, got %q", got)
	}
}

func TestSwitchHandler(t *testing.T) {
	mux := http.NewServeMux()
	mux.Handle("GET /locale/{code}", SwitchHandler(true))

	tests := []struct {
		url      string
		wantCode int
		wantLoc  string
		wantCook string
	}{
		{url: "/locale/cs?next=/novinky", wantCode: http.StatusSeeOther, wantLoc: "/novinky", wantCook: "cs"},
		{url: "/locale/en", wantCode: http.StatusSeeOther, wantLoc: "/", wantCook: "en"},
		{url: "/locale/en?next=//evil.example", wantCode: http.StatusSeeOther, wantLoc: "/", wantCook: "en"},
		{url: "/locale/en?next=https://evil.example", wantCode: http.StatusSeeOther, wantLoc: "/", wantCook: "en"},
		{url: "/locale/fr", wantCode: http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			w := httptest.NewRecorder()
			mux.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "http://ambilab.com"+tt.url, nil))

			if w.Code != tt.wantCode {
				t.Fatalf("expected %d, got %d", tt.wantCode, w.Code)
			}
			if tt.wantCode != http.StatusSeeOther {
				if len(w.Result().Cookies()) != 0 {
					t.Fatalf("unknown locale must not set a cookie")
				}
				return
			}
			if got := w.Header().Get("Location"); got != tt.wantLoc {
				t.Fatalf("expected Location %q, got %q", tt.wantLoc, got)
			}
			cookies := w.Result().Cookies()
			if len(cookies) != 1 || cookies[0].Value != tt.wantCook || !cookies[0].Secure {
				t.Fatalf("unexpected cookies %+v", cookies)
			}
		})
	}
}
