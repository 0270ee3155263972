package middleware

import (
	"crypto/subtle"
	"encoding/json"
	"log/slog"
	"net/http"
)

// APIKeyHeader carries the shared client secret.
const APIKeyHeader = "x-api-key"

// APIKey rejects requests without the configured key: 401 when the header is
// missing and 403 when it does not match. The websocket upgrade may pass the
// key as the api_key query parameter instead.
func APIKey(key string) func(http.Handler) http.Handler {
	want := []byte(key)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			got := r.Header.Get(APIKeyHeader)
			if got == "" {
				got = r.URL.Query().Get("api_key")
			}
			if got == "" {
				slog.Warn("Missing API key", "path", r.URL.Path, "remote", r.RemoteAddr)
				deny(w, http.StatusUnauthorized, "Missing x-api-key header")
				return
			}
			if subtle.ConstantTimeCompare([]byte(got), want) != 1 {
				slog.Warn("Invalid API key", "path", r.URL.Path, "remote", r.RemoteAddr)
				deny(w, http.StatusForbidden, "Invalid API key")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func deny(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "error", "message": message})
}
