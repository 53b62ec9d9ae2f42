package middleware

import "net/http"

// RequireTOTP allows the request through only when the access token was
// issued after a successful second-factor check.
func RequireTOTP(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, ok := ClaimsFromContext(r.Context())
		if !ok {
			reject(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		if !claims.TOTPVerified {
			reject(w, http.StatusForbidden, "two-factor verification required")
			return
		}
		next.ServeHTTP(w, r)
	})
}
