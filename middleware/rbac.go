package middleware

import (
	"net/http"

	"github.com/MrEthical07/qmsauth"
)

// RequirePermission requires every one of codes.
func RequirePermission(src SessionSource, codes ...string) func(http.Handler) http.Handler {
	return Guard(src, func(s qmsauth.Session) bool {
		return s.HasAllPermissions(codes...)
	})
}

// RequireAnyPermission requires at least one of codes.
func RequireAnyPermission(src SessionSource, codes ...string) func(http.Handler) http.Handler {
	return Guard(src, func(s qmsauth.Session) bool {
		return s.HasAnyPermission(codes...)
	})
}

// RequireRole requires at least one of roles.
func RequireRole(src SessionSource, roles ...string) func(http.Handler) http.Handler {
	return Guard(src, func(s qmsauth.Session) bool {
		return s.HasAnyRole(roles...)
	})
}
