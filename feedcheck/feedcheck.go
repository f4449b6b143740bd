// Package feedcheck confere os feeds RSS publicados contra a tabela de
// domínios do pacote locale: o <language> do canal precisa bater com o
// locale que o gateway resolve para o host do feed.
package feedcheck

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"

	"ambilab-gateway/locale"
)

const maxFeedSize = 5 * 1024 * 1024

// HTTPClient é o mínimo de *http.Client usado para baixar os feeds.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Result é o veredito de um feed.
type Result struct {
	URL      string
	Expected locale.Locale
	Language string
	Items    int
	Err      error
}

func (r Result) OK() bool {
	return r.Err == nil && languageMatches(r.Language, r.Expected)
}

func (r Result) String() string {
	switch {
	case r.Err != nil:
		return fmt.Sprintf("[FAIL] %s: %v", r.URL, r.Err)
	case !r.OK():
		return fmt.Sprintf("[FAIL] %s: language %q, expected %q", r.URL, r.Language, r.Expected)
	}
	return fmt.Sprintf("[PASS] %s: language %q (%d items)", r.URL, r.Language, r.Items)
}

// Checker baixa e interpreta feeds.
type Checker struct {
	client  HTTPClient
	timeout time.Duration
}

func New(client HTTPClient) *Checker {
	if client == nil {
		client = http.DefaultClient
	}
	return &Checker{client: client, timeout: 30 * time.Second}
}

// FeedURL monta <site>/rss.xml.
func FeedURL(siteURL string) string {
	return strings.TrimRight(siteURL, "/") + "/rss.xml"
}

// Check baixa <siteURL>/rss.xml e compara o idioma do canal com o locale
// do host do site.
func (c *Checker) Check(ctx context.Context, siteURL string) Result {
	res := Result{URL: FeedURL(siteURL)}

	u, err := url.Parse(siteURL)
	if err != nil || u.Host == "" {
		res.Err = fmt.Errorf("invalid site url %q", siteURL)
		return res
	}
	res.Expected = locale.FromHostname(u.Host)

	feed, err := c.fetch(ctx, res.URL)
	if err != nil {
		res.Err = err
		return res
	}
	res.Language = strings.TrimSpace(feed.Language)
	res.Items = len(feed.Items)
	return res
}

func (c *Checker) fetch(ctx context.Context, feedURL string) (*gofeed.Feed, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, feedURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", "ambilab-localecheck/1.0")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http get: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxFeedSize))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}

	feed, err := gofeed.NewParser().ParseString(string(body))
	if err != nil {
		return nil, fmt.Errorf("parse feed: %w", err)
	}
	return feed, nil
}

// languageMatches aceita "cs" e variantes regionais como "cs-CZ".
func languageMatches(lang string, want locale.Locale) bool {
	base, _, _ := strings.Cut(strings.ToLower(strings.TrimSpace(lang)), "-")
	return base != "" && base == string(want)
}
