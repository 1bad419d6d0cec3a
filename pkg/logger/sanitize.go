package logger

import (
	"log/slog"
	"strings"
	"unicode"
)

// SafeFilename reduces a username to characters safe for a local file name.
// Alphanumerics plus space, underscore, dash, and '#' survive; everything
// else is dropped and trailing whitespace trimmed.
func SafeFilename(username string) string {
	var b strings.Builder
	for _, r := range username {
		switch {
		case unicode.IsLetter(r), unicode.IsDigit(r):
			b.WriteRune(r)
		case r == ' ', r == '_', r == '-', r == '#':
			b.WriteRune(r)
		}
	}

	name := strings.TrimRight(b.String(), " ")
	if name == "" {
		return "unknown-user"
	}
	return name
}

// RedactedAttr returns a redacted slog attribute for sensitive values.
// In production the value is hidden; elsewhere it is logged as-is.
func RedactedAttr(key, value, env string) slog.Attr {
	if env == "production" {
		return slog.String(key, "[REDACTED]")
	}
	return slog.String(key, value)
}

// SanitizeQueryString reports whether a raw query string carries parameters
// that should not reach the request log.
func SanitizeQueryString(rawQuery string) bool {
	sensitive := []string{"token", "secret", "auth", "api_key", "apikey"}

	query := strings.ToLower(rawQuery)
	for _, param := range sensitive {
		if strings.Contains(query, param) {
			return true
		}
	}
	return false
}
