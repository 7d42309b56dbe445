package middleware

import (
	"crypto/subtle"
	"net/http"
)

// TokenMiddleware requires the preview token either as ?token= or as the
// "preview_token" cookie. An empty token disables the check.
func TokenMiddleware(token string, next http.Handler) http.Handler {
	if token == "" {
		return next
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		given := r.URL.Query().Get("token")
		if given == "" {
			if cookie, err := r.Cookie("preview_token"); err == nil {
				given = cookie.Value
			}
		}

		if subtle.ConstantTimeCompare([]byte(given), []byte(token)) != 1 {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}
