package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"

	pkghttp "github.com/verdantchat/gatekeeper/pkg/http"
)

// GatewayAuth requires the shared bearer token the chat gateway presents on
// every forwarded request. An empty configured token disables the check,
// which is only sensible in development.
func GatewayAuth(token string) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if token == "" {
				next.ServeHTTP(w, r)
				return
			}

			header := r.Header.Get("Authorization")
			presented, ok := strings.CutPrefix(header, "Bearer ")
			if !ok || subtle.ConstantTimeCompare([]byte(presented), []byte(token)) != 1 {
				pkghttp.WriteUnauthorized(w, "invalid gateway token")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
