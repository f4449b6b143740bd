package locale

import (
	"net"
	"net/http"
	"strings"
	"time"
)

// Resolve aplica cookie -> hostname -> Default.
//
// Valor de cookie desconhecido é ignorado (cai para o hostname), nunca erro.
func Resolve(cookieHeader, hostname string) Locale {
	if l, ok := FromCookie(cookieHeader); ok {
		return l
	}
	return FromHostname(hostname)
}

// FromCookie procura o primeiro par "locale=" do header Cookie.
// Ocorrências seguintes são ignoradas, mesmo quando a primeira é inválida.
func FromCookie(cookieHeader string) (Locale, bool) {
	if cookieHeader == "" {
		return "", false
	}

	for _, part := range strings.Split(cookieHeader, ";") {
		name, value, found := strings.Cut(strings.TrimSpace(part), "=")
		if !found || strings.TrimSpace(name) != CookieName {
			continue
		}
		return Parse(strings.TrimSpace(value))
	}
	return "", false
}

// FromHostname normaliza (minúsculo, sem porta, sem "www.") e consulta o mapa.
func FromHostname(hostname string) Locale {
	if l, ok := domainLocales[normalizeHost(hostname)]; ok {
		return l
	}
	return Default
}

// FromRequest usa o header Cookie e o Host da requisição.
func FromRequest(r *http.Request) Locale {
	if r == nil {
		return Default
	}
	host := r.Host
	if host == "" && r.URL != nil {
		host = r.URL.Host
	}
	return Resolve(r.Header.Get("Cookie"), host)
}

func normalizeHost(hostname string) string {
	h := strings.ToLower(strings.TrimSpace(hostname))
	if host, _, err := net.SplitHostPort(h); err == nil {
		h = host
	}
	h = strings.TrimSuffix(h, ".")
	return strings.TrimPrefix(h, "www.")
}

// URL monta a URL absoluta do path no domínio do locale.
func URL(l Locale, path string) string {
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return "https://" + DomainFor(l) + path
}

const cookieMaxAge = 365 * 24 * time.Hour

// SetCookie monta o cookie persistente de escolha de idioma.
func SetCookie(l Locale, secure bool) *http.Cookie {
	if !IsValid(string(l)) {
		l = Default
	}
	return &http.Cookie{
		Name:     CookieName,
		Value:    string(l),
		Path:     "/",
		MaxAge:   int(cookieMaxAge.Seconds()),
		SameSite: http.SameSiteLaxMode,
		Secure:   secure,
	}
}
