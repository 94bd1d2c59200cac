package auth

import (
	"net/http"
	"strings"

	"github.com/bigblink-erp/bigblink-erp/internal/platform/httpx"
	"github.com/bigblink-erp/bigblink-erp/internal/shared"
)

// Middleware extracts and verifies the bearer token, placing the actor on the
// request context. Requests without a valid token are rejected.
func (s *Service) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			httpx.RespondError(w, httpx.ErrUnauthorized)
			return
		}
		actor, err := s.ParseToken(strings.TrimPrefix(header, "Bearer "))
		if err != nil {
			httpx.RespondError(w, httpx.ErrUnauthorized)
			return
		}
		next.ServeHTTP(w, r.WithContext(shared.ContextWithActor(r.Context(), actor)))
	})
}

// RequireRole guards a route subtree to the listed roles. ADMIN always
// passes.
func RequireRole(roles ...string) func(http.Handler) http.Handler {
	allowed := map[string]bool{RoleAdmin: true}
	for _, role := range roles {
		allowed[role] = true
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			actor, ok := shared.ActorFromContext(r.Context())
			if !ok {
				httpx.RespondError(w, httpx.ErrUnauthorized)
				return
			}
			if !allowed[actor.Role] {
				httpx.RespondError(w, httpx.ErrForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
