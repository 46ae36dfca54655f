package auth

import (
	"fmt"
	"net/http"

	"ms-attractions/internal/logger"
	"ms-attractions/internal/utils"
)

// Middleware verifies the bearer token and stores the Identity in the request context.
// Requests without a valid token are rejected with 401.
func Middleware(gw Gateway, log *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			rawToken, err := ExtractTokenFromRequest(r)
			if err != nil {
				utils.WriteError(w, err)
				return
			}

			id, err := gw.Authenticate(r.Context(), rawToken)
			if err != nil {
				log.LogSecurity("AUTH_FAILED", fmt.Sprintf("%s %s: %v", r.Method, r.URL.Path, err))
				utils.WriteError(w, err)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), id)))
		})
	}
}

// RequireRole must run after Middleware. Callers without role get 403.
func RequireRole(role string, log *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, ok := FromContext(r.Context())
			if !ok {
				utils.WriteError(w, ErrMissingToken)
				return
			}
			if !id.HasRole(role) {
				log.LogSecurity("FORBIDDEN", fmt.Sprintf("%s %s by %s (role %q)", r.Method, r.URL.Path, id.UserID, id.Role))
				utils.WriteError(w, ErrForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
