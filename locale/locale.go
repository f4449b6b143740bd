package locale

type Locale string

const (
	EN Locale = "en"
	CS Locale = "cs"

	Default = EN

	CookieName = "locale"
)

var supported = []Locale{EN, CS}

// domainLocales usa hostname minúsculo e sem "www.".
var domainLocales = map[string]Locale{
	"ambilab.com": EN,
	"ambilab.cz":  CS,
	"localhost":   EN,
	"127.0.0.1":   EN,
}

// canonicalDomains é o domínio público de cada locale (hreflang, feeds).
var canonicalDomains = map[Locale]string{
	EN: "ambilab.com",
	CS: "ambilab.cz",
}

// Supported retorna o conjunto fechado de locales em ordem estável.
func Supported() []Locale {
	out := make([]Locale, len(supported))
	copy(out, supported)
	return out
}

func IsValid(s string) bool {
	_, ok := Parse(s)
	return ok
}

// Parse aceita apenas o valor exato (ex: "cs"), sem normalizar caixa.
func Parse(s string) (Locale, bool) {
	for _, l := range supported {
		if string(l) == s {
			return l, true
		}
	}
	return "", false
}

func (l Locale) String() string { return string(l) }

// Alternate retorna o outro idioma do site (link "ler em ...").
func Alternate(l Locale) Locale {
	if l == EN {
		return CS
	}
	return EN
}

// DomainFor retorna o domínio canônico do locale.
func DomainFor(l Locale) string {
	if d, ok := canonicalDomains[l]; ok {
		return d
	}
	return canonicalDomains[Default]
}

// Domains retorna uma cópia do mapa domínio -> locale.
func Domains() map[string]Locale {
	out := make(map[string]Locale, len(domainLocales))
	for k, v := range domainLocales {
		out[k] = v
	}
	return out
}
