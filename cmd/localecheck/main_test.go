package main

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"strings"
	"testing"

	"ambilab-gateway/feedcheck"
)

func TestRunCasesAllPass(t *testing.T) {
	var buf bytes.Buffer
	if failed := runCases(&buf); failed != 0 {
		t.Fatalf("expected no failures, got %d:\n%s", failed, buf.String())
	}
	if got := strings.Count(buf.String(), "[PASS]"); got != len(cases) {
		t.Fatalf("expected %d PASS lines, got %d", len(cases), got)
	}
}

type rssTransport map[string]string

func (m rssTransport) RoundTrip(r *http.Request) (*http.Response, error) {
	body, ok := m[r.URL.Host]
	if !ok {
		return &http.Response{StatusCode: http.StatusNotFound, Body: io.NopCloser(strings.NewReader("")), Request: r}, nil
	}
	return &http.Response{StatusCode: http.StatusOK, Body: io.NopCloser(strings.NewReader(body)), Request: r}, nil
}

func rss(lang string) string {
	return `<?xml version="1.0"?><rss version="2.0"><channel><title>t</title><language>` + lang + `</language><item><title>a</title></item></channel></rss>`
}

func TestRunFeeds(t *testing.T) {
	client := &http.Client{Transport: rssTransport{
		"ambilab.com": rss("en"),
		"ambilab.cz":  rss("en"),
	}}
	checker := feedcheck.New(client)

	var buf bytes.Buffer
	failed := runFeeds(context.Background(), &buf, checker, []string{"https://ambilab.com", " https://ambilab.cz ", ""})
	if failed != 1 {
		t.Fatalf("expected 1 failure, got %d:\n%s", failed, buf.String())
	}
	if !strings.Contains(buf.String(), "[FAIL] https://ambilab.cz/rss.xml") {
		t.Fatalf("missing FAIL line for .cz feed:\n%s", buf.String())
	}
}
