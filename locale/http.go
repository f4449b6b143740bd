package locale

import (
	"context"
	"net/http"
	"strings"
)

// HeaderName é o header repassado ao renderizador pelo gateway.
const HeaderName = "X-Locale"

// ProxyHeader resolve o locale e sobrescreve X-Locale antes de repassar a
// requisição (valor enviado pelo cliente nunca é confiado).
func ProxyHeader(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		r.Header.Set(HeaderName, string(FromRequest(r)))
		next.ServeHTTP(w, r)
	})
}

// Handler recebe o locale já resolvido como argumento.
type Handler interface {
	ServeLocalized(w http.ResponseWriter, r *http.Request, l Locale)
}

type HandlerFunc func(w http.ResponseWriter, r *http.Request, l Locale)

func (f HandlerFunc) ServeLocalized(w http.ResponseWriter, r *http.Request, l Locale) {
	f(w, r, l)
}

// Handle adapta um Handler para net/http. O locale também vai para o
// contexto, para código que só recebe ctx.
func Handle(h Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		l := FromRequest(r)
		w.Header().Add("Vary", "Cookie")
		h.ServeLocalized(w, r.WithContext(WithLocale(r.Context(), l)), l)
	})
}

type ctxKey struct{}

func WithLocale(ctx context.Context, l Locale) context.Context {
	return context.WithValue(ctx, ctxKey{}, l)
}

// FromContext nunca retorna vazio: sem valor no ctx, retorna Default.
func FromContext(ctx context.Context) Locale {
	if l, ok := ctx.Value(ctxKey{}).(Locale); ok && IsValid(string(l)) {
		return l
	}
	return Default
}

// SwitchHandler atende GET /locale/{code}: grava o cookie e redireciona para
// ?next= (apenas paths locais; qualquer outra coisa vai para "/").
// Código desconhecido responde 404 sem tocar no cookie.
func SwitchHandler(secureCookie bool) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		l, ok := Parse(r.PathValue("code"))
		if !ok {
			http.NotFound(w, r)
			return
		}

		http.SetCookie(w, SetCookie(l, secureCookie))
		w.Header().Set("Cache-Control", "no-store")
		http.Redirect(w, r, localPath(r.URL.Query().Get("next")), http.StatusSeeOther)
	})
}

func localPath(next string) string {
	if next == "" || next[0] != '/' || strings.HasPrefix(next, "//") || strings.HasPrefix(next, "/\\") {
		return "/"
	}
	return next
}
