package auth

import (
	"crypto/subtle"
	"log/slog"
	"net/http"
	"strings"

	"plantops/http-server/httperr"
	"plantops/internal/apperr"
)

// TelemetryToken guards the equipment webhook with a shared secret sent as
// "Authorization: Bearer <token>", "Authorization: Token <token>" or "X-IDS-Token".
// An empty secret rejects every request.
func TelemetryToken(log *slog.Logger, secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			const op = "middleware.auth.TelemetryToken"

			token := requestToken(r)
			if secret == "" || token == "" || subtle.ConstantTimeCompare([]byte(token), []byte(secret)) != 1 {
				httperr.Write(w, r, log, op, apperr.ErrUnauthorized)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func requestToken(r *http.Request) string {
	authHeader := strings.TrimSpace(r.Header.Get("Authorization"))
	for _, prefix := range []string{"Bearer ", "Token "} {
		if len(authHeader) > len(prefix) && strings.EqualFold(authHeader[:len(prefix)], prefix) {
			return strings.TrimSpace(authHeader[len(prefix):])
		}
	}
	return strings.TrimSpace(r.Header.Get("X-IDS-Token"))
}
