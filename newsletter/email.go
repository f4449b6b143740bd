package newsletter

import (
	"regexp"
	"strings"
)

// Checagem sintática grosseira (não é RFC 5322): algo@algo.algo, sem espaços
// e com um único "@".
var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

func ValidEmail(email string) bool {
	return emailPattern.MatchString(email)
}

func normalizeEmail(email string) string {
	return strings.TrimSpace(email)
}
