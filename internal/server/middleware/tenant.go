package middleware

import (
	"net/http"
)

// RequireTenant rejects requests whose context lacks a complete principal.
// Every repository call is filtered by tenant, so handlers behind this
// middleware can rely on ScopeFromContext succeeding.
func RequireTenant() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, ok := ScopeFromContext(r.Context()); !ok {
				http.Error(w, `{"title":"Forbidden","status":403,"detail":"valid tenant required"}`, http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
