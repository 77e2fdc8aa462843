package auth

import (
	"net/http"
	"strings"
)

// BearerToken extracts the credential from "Authorization: Bearer <token>",
// falling back to the "token" query parameter for browser WebSocket clients
// that cannot set custom headers.
func BearerToken(r *http.Request) string {
	if authHeader := r.Header.Get("Authorization"); authHeader != "" {
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
			if token := strings.TrimSpace(parts[1]); token != "" {
				return token
			}
		}
	}
	return r.URL.Query().Get("token")
}
