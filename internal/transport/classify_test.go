package transport_test

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/verdantchat/gatekeeper/internal/transport"
)

// cloudflareBlockPage is a trimmed literal of the HTML body the provider
// serves when it blocks traffic instead of returning an API error.
const cloudflareBlockPage = `<!DOCTYPE html>
<html>
<head><title>Access denied | gateway.example.com used Cloudflare to restrict access</title></head>
<body>
<h1>Error 1015</h1>
<p>You are being rate limited.</p>
<p>The owner of this website (gateway.example.com) has banned you temporarily from accessing this website.</p>
</body>
</html>`

func TestClassify(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   transport.Kind
	}{
		{"forbidden is permission", http.StatusForbidden, `{"error":"cannot message user"}`, transport.KindPermission},
		{"not found is permission", http.StatusNotFound, `{"error":"unknown user"}`, transport.KindPermission},
		{"429 is rate limited", http.StatusTooManyRequests, `{"retry_after":12.5}`, transport.KindRateLimited},
		{"cloudflare block page is rate limited", http.StatusServiceUnavailable, cloudflareBlockPage, transport.KindRateLimited},
		{"block marker in 500 body is rate limited", http.StatusInternalServerError, "<h1>Error 1015</h1>", transport.KindRateLimited},
		{"plain 500 is transient", http.StatusInternalServerError, `{"error":"internal"}`, transport.KindTransient},
		{"502 is transient", http.StatusBadGateway, "bad gateway", transport.KindTransient},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, transport.Classify(tt.status, tt.body))
		})
	}
}

func TestIsBlockPage(t *testing.T) {
	assert.True(t, transport.IsBlockPage(cloudflareBlockPage))
	assert.True(t, transport.IsBlockPage("site used Cloudflare to restrict access today"))
	assert.False(t, transport.IsBlockPage(`{"error":"too many requests"}`))
	assert.False(t, transport.IsBlockPage(""))
}

func TestKindOf_UnclassifiedErrorsAreTransient(t *testing.T) {
	assert.Equal(t, transport.KindTransient, transport.KindOf(assert.AnError))
}

func TestKindOf_WrappedDeliveryError(t *testing.T) {
	err := &transport.DeliveryError{Kind: transport.KindRateLimited, StatusCode: 429}
	assert.Equal(t, transport.KindRateLimited, transport.KindOf(err))
}
