package auth

import (
	"crypto/subtle"
	"net/http"
	"os"
	"strings"
)

// Middleware rejects requests that don't carry a bearer token matching
// XFER_API_TOKEN, except for /healthz and /metrics, which stay open for
// orchestrator probes and scrapers.
func Middleware(next http.Handler) http.Handler {
	token := os.Getenv("XFER_API_TOKEN")

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/healthz" || r.URL.Path == "/metrics" {
			next.ServeHTTP(w, r)
			return
		}

		authz := r.Header.Get("Authorization")
		if !strings.HasPrefix(authz, "Bearer ") {
			http.Error(w, "missing API token", http.StatusUnauthorized)
			return
		}

		got := strings.TrimSpace(strings.TrimPrefix(authz, "Bearer "))
		if token == "" || subtle.ConstantTimeCompare([]byte(got), []byte(token)) != 1 {
			http.Error(w, "invalid API token", http.StatusForbidden)
			return
		}

		next.ServeHTTP(w, r)
	})
}
