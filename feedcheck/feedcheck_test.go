package feedcheck

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"strings"
	"testing"

	"ambilab-gateway/locale"
)

type mockTransport struct {
	bodies     map[string]string
	statusCode int
	lastURL    string
}

func (m *mockTransport) Do(req *http.Request) (*http.Response, error) {
	m.lastURL = req.URL.String()
	status := m.statusCode
	if status == 0 {
		status = http.StatusOK
	}
	return &http.Response{
		StatusCode: status,
		Body:       io.NopCloser(bytes.NewBufferString(m.bodies[req.URL.Host])),
	}, nil
}

func rss(lang string) string {
	return `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0"><channel>
<title>Ambilab</title><link>https://ambilab.cz/</link><description>Novinky</description>
<language>` + lang + `</language>
<item><title>Ahoj světe</title><link>https://ambilab.cz/novinky/ahoj-svete</link></item>
<item><title>Druhý</title><link>https://ambilab.cz/novinky/druhy</link></item>
</channel></rss>`
}

func TestCheck(t *testing.T) {
	tr := &mockTransport{bodies: map[string]string{
		"ambilab.cz":      rss("cs-CZ"),
		"ambilab.com":     rss("cs"),
		"www.ambilab.com": rss("en"),
	}}
	c := New(tr)

	tests := []struct {
		site     string
		wantOK   bool
		expected locale.Locale
	}{
		{site: "https://ambilab.cz/", wantOK: true, expected: locale.CS},
		{site: "https://ambilab.com", wantOK: false, expected: locale.EN},
		{site: "https://www.ambilab.com", wantOK: true, expected: locale.EN},
	}

	for _, tt := range tests {
		t.Run(tt.site, func(t *testing.T) {
			res := c.Check(context.Background(), tt.site)
			if res.OK() != tt.wantOK {
				t.Fatalf("OK() = %v, want %v (%s)", res.OK(), tt.wantOK, res)
			}
			if res.Expected != tt.expected {
				t.Fatalf("expected locale %q, got %q", tt.expected, res.Expected)
			}
			if !strings.HasSuffix(tr.lastURL, "/rss.xml") {
				t.Fatalf("expected /rss.xml to be fetched, got %q", tr.lastURL)
			}
		})
	}
}

func TestCheck_Errors(t *testing.T) {
	c := New(&mockTransport{statusCode: http.StatusNotFound})
	if res := c.Check(context.Background(), "https://ambilab.cz"); res.Err == nil || res.OK() {
		t.Fatalf("expected error for 404, got %s", res)
	}

	c = New(&mockTransport{bodies: map[string]string{"ambilab.cz": "not xml at all"}})
	if res := c.Check(context.Background(), "https://ambilab.cz"); res.Err == nil {
		t.Fatalf("expected parse error")
	}

	if res := c.Check(context.Background(), "not a url"); res.Err == nil {
		t.Fatalf("expected invalid url error")
	}
}

func TestResult_String(t *testing.T) {
	ok := Result{URL: "https://ambilab.cz/rss.xml", Expected: locale.CS, Language: "cs", Items: 2}
	if !strings.HasPrefix(ok.String(), "[PASS]") {
		t.Fatalf("unexpected %q", ok.String())
	}
	bad := Result{URL: "https://ambilab.com/rss.xml", Expected: locale.EN, Language: "cs"}
	if !strings.HasPrefix(bad.String(), "[FAIL]") {
		t.Fatalf("unexpected %q", bad.String())
	}
}
