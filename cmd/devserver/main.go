package main

import (
	"context"
	"errors"
	"fmt"
	"html"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"ambilab-gateway/locale"
	"ambilab-gateway/middleware/ratelimit"
	"ambilab-gateway/middleware/ratelimit/infra"
	"ambilab-gateway/newsletter"
)

// Servidor de desenvolvimento: sem upstream, o locale chega ao handler como
// argumento (adaptador em processo) em vez de header.

var greetings = map[locale.Locale]string{
	locale.EN: "Hello from ambilab",
	locale.CS: "Ahoj z ambilabu",
}

var switchLabels = map[locale.Locale]string{
	locale.EN: "Česky",
	locale.CS: "English",
}

func page(w http.ResponseWriter, r *http.Request, l locale.Locale) {
	alt := locale.Alternate(l)
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Content-Language", l.String())
	fmt.Fprintf(w, `<!doctype html>
<html lang="%s">
<head><link rel="alternate" hreflang="%s" href="%s"></head>
<body>
<h1>%s</h1>
<p><a href="/locale/%s?next=%s">%s</a></p>
</body>
</html>
`,
		l, alt, html.EscapeString(locale.URL(alt, r.URL.Path)),
		greetings[l],
		alt, html.EscapeString(r.URL.Path), switchLabels[l],
	)
}

func main() {
	log := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	window := infra.NewSlidingWindow()
	window.StartJanitor(ctx)
	stats := infra.NewMemoryStatsStore()

	svc := newsletter.NewService(newsletter.Config{
		Limiter: window,
		Relay:   newsletter.NewButtondown(&http.Client{Timeout: 15 * time.Second}),
		Secret:  newsletter.EnvSecret("BUTTONDOWN_API_KEY"),
		Log:     log,
	})

	mux := http.NewServeMux()
	mux.Handle(newsletter.Path, newsletter.NewHandler(svc, newsletter.HandlerOptions{Stats: stats, Log: log}))
	mux.Handle("GET /locale/{code}", locale.SwitchHandler(false))
	mux.HandleFunc("GET /_stats", func(w http.ResponseWriter, r *http.Request) {
		t := stats.Total()
		fmt.Fprintf(w, "allowed=%d denied=%d outcomes=%v keys=%d\n", t.Allowed, t.Denied, stats.Outcomes(), window.Len())
	})
	mux.Handle("/", locale.Handle(locale.HandlerFunc(page)))

	h := ratelimit.ConcurrencyMiddleware(ratelimit.ConcurrencyOptions{Max: 50})(mux)

	addr := ":8081"
	if v := os.Getenv("LISTEN_ADDR"); v != "" {
		addr = v
	}

	srv := &http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       90 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	log.Info("dev server listening", "addr", addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Error("server error", "error", err)
		os.Exit(1)
	}
}
