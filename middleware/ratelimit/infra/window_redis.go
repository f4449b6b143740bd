package infra

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"ambilab-gateway/middleware/ratelimit/domain"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// slidingWindowScript faz filtro + contagem + registro numa única operação
// atômica no Redis (sorted set, score = epoch ms).
//
// KEYS[1] = chave; ARGV = now_ms, window_ms, max, member.
// Retorna {1, 0} quando permite ou {0, score_mais_antigo} quando nega.
var slidingWindowScript = redis.NewScript(`
local key = KEYS[1]
local now = tonumber(ARGV[1])
local window = tonumber(ARGV[2])
local max = tonumber(ARGV[3])

redis.call('ZREMRANGEBYSCORE', key, '-inf', '(' .. (now - window))

local count = redis.call('ZCARD', key)
if count >= max then
	local oldest = redis.call('ZRANGE', key, 0, 0, 'WITHSCORES')
	return {0, tonumber(oldest[2])}
end

redis.call('ZADD', key, now, ARGV[4])
redis.call('PEXPIRE', key, window)
return {1, 0}
`)

// RedisWindow é a janela deslizante compartilhada entre processos.
//
// Mesmo contrato do SlidingWindow; não precisa de janitor porque cada chave
// expira (PEXPIRE) junto com a janela.
type RedisWindow struct {
	rdb    redis.Scripter
	prefix string
	window time.Duration
	max    int
}

type RedisWindowOption func(*RedisWindow)

func WithRedisWindowPrefix(prefix string) RedisWindowOption {
	return func(w *RedisWindow) { w.prefix = strings.Trim(prefix, ":") }
}

func WithRedisWindow(d time.Duration) RedisWindowOption {
	return func(w *RedisWindow) { w.window = d }
}

func WithRedisWindowMax(n int) RedisWindowOption {
	return func(w *RedisWindow) { w.max = n }
}

func NewRedisWindow(rdb redis.Scripter, opts ...RedisWindowOption) *RedisWindow {
	w := &RedisWindow{
		rdb:    rdb,
		prefix: "newsletter:window",
		window: DefaultWindow,
		max:    DefaultWindowMax,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// CheckAndRecord implementa domain.WindowLimiter.
func (w *RedisWindow) CheckAndRecord(ctx context.Context, key domain.Key, now time.Time) (domain.Decision, error) {
	if w == nil || w.rdb == nil {
		return domain.Decision{}, fmt.Errorf("redis window: no client")
	}

	nowMs := now.UnixMilli()
	windowMs := w.window.Milliseconds()
	// member único: dois registros no mesmo ms não podem colapsar
	member := strconv.FormatInt(nowMs, 10) + "-" + uuid.NewString()

	res, err := slidingWindowScript.Run(ctx, w.rdb,
		[]string{w.prefix + ":" + string(key)},
		nowMs, windowMs, w.max, member,
	).Int64Slice()
	if err != nil {
		return domain.Decision{}, fmt.Errorf("redis window: %w", err)
	}
	if len(res) != 2 {
		return domain.Decision{}, fmt.Errorf("redis window: unexpected reply %v", res)
	}

	if res[0] == 1 {
		return domain.Decision{Allowed: true}, nil
	}

	retry := time.Duration(res[1]+windowMs-nowMs) * time.Millisecond
	if retry < 0 {
		retry = 0
	}
	return domain.Decision{Allowed: false, RetryAfter: retry}, nil
}
