package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httputil"
	"net/url"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"ambilab-gateway/locale"
	"ambilab-gateway/middleware/ratelimit"
	"ambilab-gateway/middleware/ratelimit/domain"
	"ambilab-gateway/middleware/ratelimit/infra"
	"ambilab-gateway/newsletter"

	"github.com/redis/go-redis/v9"
)

func main() {
	cfg, err := readConfig()
	if err != nil {
		slog.Error("config error", "error", err)
		os.Exit(1)
	}
	log := newLogger(cfg.logLevel)
	slog.SetDefault(log)

	target, err := url.Parse(cfg.upstreamURL)
	if err != nil {
		fatal(log, "invalid UPSTREAM_URL", err)
	}

	secret := newsletter.EnvSecret("BUTTONDOWN_API_KEY")
	if err := newsletter.RequireSecret(secret); err != nil {
		if cfg.newsletterRequireKey {
			fatal(log, "newsletter key check", err)
		}
		log.Warn("BUTTONDOWN_API_KEY is not set; newsletter submissions will fail with config_error")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	statsStore, closeStats, err := openStats(ctx, cfg)
	if err != nil {
		fatal(log, "stats backend", err)
	}
	defer closeStats()

	window, closeWindow, err := openWindow(ctx, cfg)
	if err != nil {
		fatal(log, "newsletter rate backend", err)
	}
	defer closeWindow()

	proxy := httputil.NewSingleHostReverseProxy(target)
	proxy.ErrorHandler = func(w http.ResponseWriter, r *http.Request, err error) {
		log.Error("proxy error", "path", r.URL.Path, "error", err)
		http.Error(w, "bad gateway", http.StatusBadGateway)
	}

	relay := newsletter.NewButtondown(
		&http.Client{Timeout: cfg.newsletterTimeout + 2*time.Second},
		newsletter.WithBaseURL(cfg.newsletterAPIURL),
		newsletter.WithRelayTimeout(cfg.newsletterTimeout),
	)
	svc := newsletter.NewService(newsletter.Config{
		Limiter: window,
		Relay:   relay,
		Secret:  secret,
		Log:     log.With("component", "newsletter"),
	})

	mux := http.NewServeMux()
	mux.Handle(newsletter.Path, newsletter.NewHandler(svc, newsletter.HandlerOptions{
		Stats: statsStore,
		Log:   log.With("component", "newsletter"),
	}))
	mux.Handle("GET /locale/{code}", locale.SwitchHandler(cfg.cookieSecure))
	mux.Handle("/", locale.ProxyHeader(proxy))

	buckets := infra.NewTokenBuckets(cfg.rateRPS, cfg.rateBurst)
	buckets.StartJanitor(ctx)

	keyFn := ratelimit.DefaultKeyFunc(ratelimit.KeyOptions{
		TrustedHeader:      cfg.rateKeyHeader,
		TrustXForwardedFor: cfg.trustXFF,
		UseRemoteAddr:      true,
	})

	h := http.Handler(mux)
	h = ratelimit.ConcurrencyMiddleware(ratelimit.ConcurrencyOptions{
		Max:            cfg.concurrencyMax,
		RejectStatus:   http.StatusServiceUnavailable,
		AcquireTimeout: cfg.concurrencyTimeout,
		RetryAfter:     cfg.retryAfter,
		Stats:          statsStore,
		KeyFn:          keyFn,
		Log:            log,
	})(h)
	if cfg.rateEnabled {
		h = ratelimit.Middleware(ratelimit.Options{
			Store:               buckets,
			Stats:               statsStore,
			KeyFn:               keyFn,
			RejectStatus:        http.StatusTooManyRequests,
			RetryAfter:          cfg.retryAfter,
			AddRateLimitHeaders: cfg.addHeaders,
		})(h)
	}

	srv := &http.Server{
		Addr:              cfg.listenAddr,
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       90 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	log.Info("gateway listening", "addr", cfg.listenAddr, "upstream", target.String())
	log.Info("page throttle", "enabled", cfg.rateEnabled, "rps", cfg.rateRPS, "burst", cfg.rateBurst,
		"keyHeader", cfg.rateKeyHeader, "trustXFF", cfg.trustXFF)
	log.Info("newsletter", "backend", cfg.newsletterBackend, "window", cfg.newsletterWindow,
		"max", cfg.newsletterMax, "sweep", cfg.newsletterSweep)
	log.Info("stats", "backend", cfg.statsBackend, "bucket", cfg.statsBucket, "trackKeys", cfg.statsTrackKeys)
	log.Info("concurrency", "max", cfg.concurrencyMax, "acquireTimeout", cfg.concurrencyTimeout)

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		fatal(log, "server error", err)
	}
	log.Info("gateway stopped")
}

func fatal(log *slog.Logger, msg string, err error) {
	log.Error(msg, "error", err)
	os.Exit(1)
}

// openWindow monta a janela deslizante da newsletter. Em memória, o janitor
// vive até o ctx (sinal de término) ser cancelado.
func openWindow(ctx context.Context, cfg config) (domain.WindowLimiter, func(), error) {
	if cfg.newsletterBackend == "redis" {
		rdb, err := dialRedis(ctx, cfg.newsletterRedisAddr, cfg.newsletterRedisPassword, cfg.newsletterRedisDB)
		if err != nil {
			return nil, nil, err
		}
		w := infra.NewRedisWindow(rdb,
			infra.WithRedisWindowPrefix(cfg.newsletterRedisPrefix),
			infra.WithRedisWindow(cfg.newsletterWindow),
			infra.WithRedisWindowMax(cfg.newsletterMax),
		)
		return w, func() { _ = rdb.Close() }, nil
	}

	w := infra.NewSlidingWindow(
		infra.WithWindow(cfg.newsletterWindow),
		infra.WithWindowMax(cfg.newsletterMax),
		infra.WithSweepEvery(cfg.newsletterSweep),
	)
	w.StartJanitor(ctx)
	return w, func() {}, nil
}

func openStats(ctx context.Context, cfg config) (domain.StatsStore, func(), error) {
	switch cfg.statsBackend {
	case "memory":
		return infra.NewMemoryStatsStore(infra.WithTrackKeys(cfg.statsTrackKeys)), func() {}, nil
	case "redis":
		rdb, err := dialRedis(ctx, cfg.statsRedisAddr, cfg.statsRedisPassword, cfg.statsRedisDB)
		if err != nil {
			return nil, nil, err
		}
		s := infra.NewRedisStatsStore(
			rdb,
			infra.WithStatsPrefix(cfg.statsPrefix),
			infra.WithStatsTTL(cfg.statsTTL),
			infra.WithStatsBucket(cfg.statsBucket),
			infra.WithStatsTrackKeys(cfg.statsTrackKeys),
		)
		return s, func() { _ = rdb.Close() }, nil
	case "sqlite":
		if dir := filepath.Dir(cfg.statsSQLitePath); dir != "." {
			if err := os.MkdirAll(dir, 0o750); err != nil {
				return nil, nil, err
			}
		}
		s, err := infra.NewSQLiteStatsStore(cfg.statsSQLitePath,
			infra.WithSQLiteBucket(cfg.statsBucket),
			infra.WithSQLiteTrackKeys(cfg.statsTrackKeys),
		)
		if err != nil {
			return nil, nil, err
		}
		go pruneLoop(ctx, s, cfg.statsTTL)
		return s, func() { _ = s.Close() }, nil
	}
	return nil, func() {}, nil
}

// pruneLoop apaga buckets por minuto mais velhos que ttl, de hora em hora.
func pruneLoop(ctx context.Context, s *infra.SQLiteStatsStore, ttl time.Duration) {
	if ttl <= 0 {
		return
	}
	t := time.NewTicker(time.Hour)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-t.C:
			if _, err := s.Prune(ctx, now.Add(-ttl)); err != nil && ctx.Err() == nil {
				slog.Error("prune stats", "error", err)
			}
		}
	}
}

func dialRedis(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, err
	}
	return rdb, nil
}
