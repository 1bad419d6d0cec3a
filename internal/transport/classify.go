package transport

import (
	"net/http"
	"strings"
)

// blockPageMarkers are substrings that identify a provider-side block page
// returned in place of an API error. Matching on body text is inherently
// fuzzy, so the markers live here with their own tests.
var blockPageMarkers = []string{
	"Error 1015",
	"used Cloudflare to restrict access",
}

// Classify maps an HTTP response from the gateway to a failure Kind.
func Classify(statusCode int, body string) Kind {
	switch statusCode {
	case http.StatusForbidden, http.StatusNotFound:
		return KindPermission
	case http.StatusTooManyRequests:
		return KindRateLimited
	}
	if IsBlockPage(body) {
		return KindRateLimited
	}
	return KindTransient
}

// IsBlockPage reports whether a response body looks like a rate-limit block
// page rather than a structured API error.
func IsBlockPage(body string) bool {
	for _, marker := range blockPageMarkers {
		if strings.Contains(body, marker) {
			return true
		}
	}
	return false
}
