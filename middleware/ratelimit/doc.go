// Package ratelimit traz os adapters HTTP (net/http) de controle de abuso
// do gateway.
//
// Camadas:
//
//   - domain: contratos (Key, Decision, WindowLimiter, StatsStore, ...)
//   - application: casos de uso (throttle, janela deslizante, concorrência)
//   - infra: implementações (x/time/rate, memória, Redis, SQLite)
//   - ratelimit (este pacote): extração da chave do cliente e middlewares
//
// A chave do cliente vem, nesta ordem, de um header injetado por proxy
// confiável (CF-Connecting-IP), do primeiro item do X-Forwarded-For, do
// RemoteAddr (opcional) e por fim do sentinela "unknown".
package ratelimit
