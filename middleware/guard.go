package middleware

import (
	"net/http"

	"github.com/MrEthical07/qmsauth"
)

// SessionSource yields the current session snapshot. *qmsauth.Client
// satisfies it.
type SessionSource interface {
	Session() qmsauth.Session
}

// Rule decides whether an authenticated session may reach a route.
type Rule func(qmsauth.Session) bool

// Guard rejects unauthenticated requests with 401 and requests failing rule
// with 403. A nil rule only requires authentication.
func Guard(src SessionSource, rule Rule) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if src == nil {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			s := src.Session()
			if !s.IsAuthenticated {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}
			if rule != nil && !rule(s) {
				http.Error(w, "forbidden", http.StatusForbidden)
				return
			}

			next.ServeHTTP(w, r.WithContext(qmsauth.WithSession(r.Context(), s)))
		})
	}
}

// RequireAuthenticated lets any signed-in session through.
func RequireAuthenticated(src SessionSource) func(http.Handler) http.Handler {
	return Guard(src, nil)
}
