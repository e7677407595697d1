package web

import (
	"net/http"
	"strings"
)

// HTTPProtocolMiddleware prevents HTTP/3 QUIC protocol issues in cloud
// environments; browsers falling back to QUIC through some proxy setups
// break long-lived SSE connections.
func HTTPProtocolMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Disable HTTP/3 QUIC protocol advertising globally
		w.Header().Set("Alt-Svc", "clear")

		// For SSE endpoints, add additional headers to ensure stable connections
		if strings.HasPrefix(r.URL.Path, "/events") {
			w.Header().Set("Connection", "keep-alive")
		}

		next.ServeHTTP(w, r)
	})
}
