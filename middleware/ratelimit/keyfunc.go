package ratelimit

import (
	"net"
	"net/http"
	"strings"
)

const (
	// CloudflareIPHeader é injetado pela borda e não pode ser forjado pelo cliente.
	CloudflareIPHeader = "CF-Connecting-IP"
	UnknownKey         = "unknown"
)

type KeyFunc func(r *http.Request) string

type KeyOptions struct {
	// TrustedHeader é lido primeiro (ex: CF-Connecting-IP). Vazio desliga.
	TrustedHeader string
	// TrustXForwardedFor usa o primeiro IP do X-Forwarded-For.
	TrustXForwardedFor bool
	// UseRemoteAddr cai para o host do RemoteAddr antes do "unknown".
	UseRemoteAddr bool
}

// NewsletterKeyOptions: header confiável -> XFF -> "unknown" (sem RemoteAddr).
func NewsletterKeyOptions() KeyOptions {
	return KeyOptions{TrustedHeader: CloudflareIPHeader, TrustXForwardedFor: true}
}

func DefaultKeyFunc(opts KeyOptions) KeyFunc {
	return func(r *http.Request) string {
		if opts.TrustedHeader != "" {
			if v := strings.TrimSpace(r.Header.Get(opts.TrustedHeader)); v != "" {
				return v
			}
		}

		if opts.TrustXForwardedFor {
			if ip := firstForwarded(r.Header.Get("X-Forwarded-For")); ip != "" {
				return ip
			}
		}

		if opts.UseRemoteAddr {
			addr := strings.TrimSpace(r.RemoteAddr)
			if host, _, err := net.SplitHostPort(addr); err == nil && host != "" {
				return host
			}
			if addr != "" {
				return addr
			}
		}
		return UnknownKey
	}
}

// firstForwarded pega o cliente original (primeiro item) do X-Forwarded-For.
func firstForwarded(xff string) string {
	first, _, _ := strings.Cut(xff, ",")
	return strings.TrimSpace(first)
}
