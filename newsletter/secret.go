package newsletter

import (
	"errors"
	"os"
	"strings"
)

// ErrMissingSecret indica que a chave da API do Buttondown não está configurada.
var ErrMissingSecret = errors.New("newsletter: api key not configured")

// SecretSource devolve a chave da API a cada requisição; ok=false quando ausente.
type SecretSource func() (string, bool)

// EnvSecret lê a variável de ambiente a cada chamada, então a ausência é
// tratada por requisição e não impede o processo de subir.
func EnvSecret(name string) SecretSource {
	return func() (string, bool) {
		v, ok := os.LookupEnv(name)
		v = strings.TrimSpace(v)
		return v, ok && v != ""
	}
}

// StaticSecret é útil para testes e para chaves lidas uma vez no boot.
func StaticSecret(v string) SecretSource {
	v = strings.TrimSpace(v)
	return func() (string, bool) { return v, v != "" }
}

// RequireSecret é a opção fail-fast do boot.
func RequireSecret(src SecretSource) error {
	if src == nil {
		return ErrMissingSecret
	}
	if _, ok := src(); !ok {
		return ErrMissingSecret
	}
	return nil
}
