// Package infra implementa os contratos de domain:
//
//   - SlidingWindow / RedisWindow: janela deslizante do envio da newsletter
//   - TokenBuckets: throttle por cliente das páginas (golang.org/x/time/rate)
//   - chanPool: semáforo de concorrência
//   - Memory/Redis/SQLite StatsStore: contadores de decisões
package infra
