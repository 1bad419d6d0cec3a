package logger_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	pkglogger "github.com/verdantchat/gatekeeper/pkg/logger"
)

func TestSafeFilename(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain handle", "sunny_comrade#1234", "sunny_comrade#1234"},
		{"path separators dropped", "../../etc/passwd", "etcpasswd"},
		{"unicode letters kept", "Žofia#42", "Žofia#42"},
		{"trailing spaces trimmed", "name!!!   ", "name"},
		{"everything stripped", "///***", "unknown-user"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, pkglogger.SafeFilename(tt.in))
		})
	}
}

func TestSanitizeQueryString(t *testing.T) {
	assert.True(t, pkglogger.SanitizeQueryString("token=abc123"))
	assert.True(t, pkglogger.SanitizeQueryString("API_KEY=xyz"))
	assert.False(t, pkglogger.SanitizeQueryString("user_id=42"))
	assert.False(t, pkglogger.SanitizeQueryString(""))
}
