package main

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"ambilab-gateway/locale"
)

func TestPageRendersResolvedLocale(t *testing.T) {
	h := locale.Handle(locale.HandlerFunc(page))

	req := httptest.NewRequest(http.MethodGet, "http://ambilab.cz/blog", nil)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	body := rr.Body.String()
	if !strings.Contains(body, `<html lang="cs">`) {
		t.Fatalf("expected cs page, got:\n%s", body)
	}
	if !strings.Contains(body, `href="https://ambilab.com/blog"`) {
		t.Fatalf("expected alternate link to the en domain, got:\n%s", body)
	}
	if rr.Header().Get("Content-Language") != "cs" {
		t.Fatalf("Content-Language = %q", rr.Header().Get("Content-Language"))
	}
}

func TestPageCookieOverridesHost(t *testing.T) {
	h := locale.Handle(locale.HandlerFunc(page))

	req := httptest.NewRequest(http.MethodGet, "http://ambilab.cz/", nil)
	req.Header.Set("Cookie", "locale=en")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if !strings.Contains(rr.Body.String(), greetings[locale.EN]) {
		t.Fatalf("expected en greeting, got:\n%s", rr.Body.String())
	}
}
