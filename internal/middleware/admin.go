package middleware

import (
	"net/http"

	"github.com/bmbroch/ceylonstay/internal/transport"
)

// AdminAuth guards operator routes. A static API key header is accepted for
// server-to-server use; browsers authenticate with the access cookie, checked
// by the injected verifier so this package stays decoupled from token details.
func AdminAuth(adminKey, cookieName string, verifyToken func(string) bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if adminKey == "" && verifyToken == nil {
				transport.WriteError(w, http.StatusServiceUnavailable, "admin auth not configured", nil)
				return
			}

			if adminKey != "" && r.Header.Get("X-Admin-Key") == adminKey {
				next.ServeHTTP(w, r)
				return
			}

			if verifyToken != nil {
				cookie, err := r.Cookie(cookieName)
				if err == nil && cookie.Value != "" && verifyToken(cookie.Value) {
					next.ServeHTTP(w, r)
					return
				}
			}

			transport.WriteError(w, http.StatusUnauthorized, "unauthorized", nil)
		})
	}
}
