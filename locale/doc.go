// Package locale resolve o idioma (en/cs) de uma requisição.
//
// É a única fonte das tabelas de locale (conjunto fechado, default, mapa
// domínio -> locale, nome do cookie). Todos os pontos de entrada chamam este
// pacote:
//
//   - gateway de borda: ProxyHeader (seta X-Locale antes do proxy)
//   - handlers in-process: Handle (passa o Locale como argumento explícito)
//   - ferramentas offline: cmd/localecheck
//
// Ordem de resolução: cookie "locale" válido -> hostname -> Default.
// Resolve nunca falha: qualquer entrada produz um Locale do conjunto.
package locale
