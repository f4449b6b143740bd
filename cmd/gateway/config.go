package main

import (
	"errors"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

type config struct {
	listenAddr         string
	upstreamURL        string
	logLevel           string
	cookieSecure       bool
	rateEnabled        bool
	rateRPS            float64
	rateBurst          int
	rateKeyHeader      string
	trustXFF           bool
	retryAfter         time.Duration
	addHeaders         bool
	concurrencyMax     int
	concurrencyTimeout time.Duration

	statsBackend       string // none | memory | redis | sqlite
	statsRedisAddr     string
	statsRedisPassword string
	statsRedisDB       int
	statsPrefix        string
	statsTTL           time.Duration
	statsBucket        string
	statsTrackKeys     bool
	statsSQLitePath    string

	newsletterWindow        time.Duration
	newsletterMax           int
	newsletterSweep         time.Duration
	newsletterBackend       string // memory | redis
	newsletterRedisAddr     string
	newsletterRedisPassword string
	newsletterRedisDB       int
	newsletterRedisPrefix   string
	newsletterAPIURL        string
	newsletterTimeout       time.Duration
	newsletterRequireKey    bool
}

func readConfig() (config, error) {
	cfg := config{}
	cfg.listenAddr = getenvDefault("LISTEN_ADDR", ":8080")
	cfg.upstreamURL = os.Getenv("UPSTREAM_URL")
	cfg.logLevel = getenvDefault("LOG_LEVEL", "info")
	cfg.cookieSecure = getenvBoolDefault("COOKIE_SECURE", true)

	cfg.rateEnabled = getenvBoolDefault("RATE_ENABLED", true)
	cfg.rateRPS = getenvFloatDefault("RATE_RPS", 10)
	// burst alto com RPS < 1 deixa passar uma rajada grande antes de limitar
	if burst, ok := getenvInt("RATE_BURST"); ok {
		cfg.rateBurst = burst
	} else {
		cfg.rateBurst = 20
		if getenvIsSet("RATE_RPS") && cfg.rateRPS > 0 && cfg.rateRPS < 1 {
			cfg.rateBurst = 1
		}
	}
	cfg.rateKeyHeader = getenvDefault("RATE_KEY_HEADER", "CF-Connecting-IP")
	cfg.trustXFF = getenvBoolDefault("TRUST_XFF", true)
	cfg.retryAfter = getenvDurationDefault("RETRY_AFTER", 1*time.Second)
	cfg.addHeaders = getenvBoolDefault("ADD_RATELIMIT_HEADERS", false)
	cfg.concurrencyMax = getenvIntDefault("CONCURRENCY_MAX", 100)
	cfg.concurrencyTimeout = getenvDurationDefault("CONCURRENCY_TIMEOUT", 0)

	cfg.statsBackend = strings.ToLower(getenvDefault("RATE_STATS_BACKEND", "none"))
	cfg.statsRedisAddr = os.Getenv("RATE_STATS_REDIS_ADDR")
	cfg.statsRedisPassword = os.Getenv("RATE_STATS_REDIS_PASSWORD")
	cfg.statsRedisDB = getenvIntDefault("RATE_STATS_REDIS_DB", 0)
	cfg.statsPrefix = getenvDefault("RATE_STATS_PREFIX", "gateway:stats")
	cfg.statsTTL = getenvDurationDefault("RATE_STATS_TTL", 24*time.Hour)
	cfg.statsBucket = getenvDefault("RATE_STATS_BUCKET", "minute")
	cfg.statsTrackKeys = getenvBoolDefault("RATE_STATS_TRACK_KEYS", false)
	cfg.statsSQLitePath = getenvDefault("RATE_STATS_SQLITE_PATH", "./data/stats.db")

	cfg.newsletterWindow = getenvDurationDefault("NEWSLETTER_WINDOW", time.Hour)
	cfg.newsletterMax = getenvIntDefault("NEWSLETTER_MAX", 3)
	cfg.newsletterSweep = getenvDurationDefault("NEWSLETTER_SWEEP_EVERY", 15*time.Minute)
	cfg.newsletterBackend = strings.ToLower(getenvDefault("NEWSLETTER_RATE_BACKEND", "memory"))
	cfg.newsletterRedisAddr = os.Getenv("NEWSLETTER_REDIS_ADDR")
	cfg.newsletterRedisPassword = os.Getenv("NEWSLETTER_REDIS_PASSWORD")
	cfg.newsletterRedisDB = getenvIntDefault("NEWSLETTER_REDIS_DB", 0)
	cfg.newsletterRedisPrefix = getenvDefault("NEWSLETTER_REDIS_PREFIX", "newsletter:window")
	cfg.newsletterAPIURL = getenvDefault("BUTTONDOWN_API_URL", "https://api.buttondown.email/v1")
	cfg.newsletterTimeout = getenvDurationDefault("NEWSLETTER_TIMEOUT", 10*time.Second)
	cfg.newsletterRequireKey = getenvBoolDefault("REQUIRE_NEWSLETTER_KEY", false)

	if cfg.upstreamURL == "" {
		return config{}, errors.New("UPSTREAM_URL is required")
	}
	if cfg.rateRPS <= 0 {
		return config{}, errors.New("RATE_RPS must be > 0")
	}
	if cfg.rateBurst <= 0 {
		return config{}, errors.New("RATE_BURST must be > 0")
	}
	if cfg.concurrencyMax < 0 {
		return config{}, errors.New("CONCURRENCY_MAX must be >= 0")
	}
	switch cfg.statsBackend {
	case "none", "memory", "sqlite":
	case "redis":
		if strings.TrimSpace(cfg.statsRedisAddr) == "" {
			return config{}, errors.New("RATE_STATS_REDIS_ADDR is required when RATE_STATS_BACKEND=redis")
		}
	default:
		return config{}, errors.New("RATE_STATS_BACKEND must be none, memory, redis or sqlite")
	}
	switch cfg.newsletterBackend {
	case "memory":
	case "redis":
		if strings.TrimSpace(cfg.newsletterRedisAddr) == "" {
			return config{}, errors.New("NEWSLETTER_REDIS_ADDR is required when NEWSLETTER_RATE_BACKEND=redis")
		}
	default:
		return config{}, errors.New("NEWSLETTER_RATE_BACKEND must be memory or redis")
	}
	if cfg.newsletterWindow <= 0 || cfg.newsletterMax <= 0 {
		return config{}, errors.New("NEWSLETTER_WINDOW and NEWSLETTER_MAX must be > 0")
	}
	return cfg, nil
}

func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}

func getenvDefault(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func getenvIntDefault(k string, def int) int {
	if i, ok := getenvInt(k); ok {
		return i
	}
	return def
}

func getenvInt(k string) (int, bool) {
	v, ok := os.LookupEnv(k)
	if !ok || v == "" {
		return 0, false
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return 0, false
	}
	return i, true
}

func getenvIsSet(k string) bool {
	v, ok := os.LookupEnv(k)
	return ok && v != ""
}

func getenvFloatDefault(k string, def float64) float64 {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return def
	}
	return f
}

func getenvBoolDefault(k string, def bool) bool {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

func getenvDurationDefault(k string, def time.Duration) time.Duration {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return def
	}
	return d
}
