package middleware

import (
	"crypto/subtle"
	"encoding/json"
	"net/http"

	"github.com/JonMunkholm/fleetdata/internal/config"
	"github.com/JonMunkholm/fleetdata/internal/logging"
)

// APIKeyHeader carries the client's API key.
const APIKeyHeader = "X-API-Key"

type authError struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Action  string `json:"action,omitempty"`
	Code    string `json:"code"`
}

// APIKeyAuth returns middleware that validates the X-API-Key header against
// cfg.APIKeys when cfg.RequireAPIKey is set. A missing key is rejected with
// 401 and an unknown key with 403.
func APIKeyAuth(cfg *config.SecurityConfig) func(http.Handler) http.Handler {
	keys := make([][]byte, len(cfg.APIKeys))
	for i, k := range cfg.APIKeys {
		keys[i] = []byte(k)
	}

	return func(next http.Handler) http.Handler {
		if !cfg.RequireAPIKey {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := r.Header.Get(APIKeyHeader)
			switch {
			case key == "":
				logging.FromContext(r.Context()).Warn("auth: missing API key", "path", r.URL.Path, "ip", r.RemoteAddr)
				writeAuthError(w, http.StatusUnauthorized, authError{
					Message: "API key required",
					Action:  "Send a valid key in the X-API-Key header",
					Code:    "AUTH_MISSING_KEY",
				})
			case !validAPIKey([]byte(key), keys):
				logging.FromContext(r.Context()).Warn("auth: invalid API key", "path", r.URL.Path, "ip", r.RemoteAddr)
				writeAuthError(w, http.StatusForbidden, authError{
					Message: "Invalid API key",
					Code:    "AUTH_INVALID_KEY",
				})
			default:
				next.ServeHTTP(w, r)
			}
		})
	}
}

// validAPIKey compares key against every configured key in constant time.
func validAPIKey(key []byte, keys [][]byte) bool {
	match := 0
	for _, k := range keys {
		match |= subtle.ConstantTimeCompare(key, k)
	}
	return match == 1
}

func writeAuthError(w http.ResponseWriter, status int, body authError) {
	body.Error = body.Message
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
