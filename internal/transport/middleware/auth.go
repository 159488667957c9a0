package middleware

import (
	"net/http"

	"github.com/frahmantamala/taskdesk/internal"
	"github.com/frahmantamala/taskdesk/internal/auth"
	"github.com/frahmantamala/taskdesk/internal/core/datamodel/user"
	"github.com/frahmantamala/taskdesk/internal/transport"
	"github.com/frahmantamala/taskdesk/pkg/logger"
)

type TokenVerifier interface {
	Verify(token string) (*auth.Claims, error)
}

// Authenticate resolves the Bearer token into an identity stored in the request context.
func Authenticate(verifier TokenVerifier, h *transport.BaseHandler) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := transport.ExtractTokenFromHeader(r)
			if token == "" {
				h.WriteError(w, http.StatusUnauthorized, "No token, authorization denied")
				return
			}
			claims, err := verifier.Verify(token)
			if err != nil {
				h.WriteError(w, http.StatusUnauthorized, "Token is not valid")
				return
			}

			identity := claims.Identity()
			ctx := internal.ContextWithIdentity(r.Context(), identity)
			ctx = logger.With(ctx, "identity_id", identity.ID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireRole lets through only identities holding role.
func RequireRole(role user.Role, h *transport.BaseHandler) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identity, ok := internal.IdentityFromContext(r.Context())
			if !ok {
				h.WriteError(w, http.StatusUnauthorized, "No token, authorization denied")
				return
			}
			if identity.Role != role {
				logger.From(r.Context()).Warn("access denied: role mismatch",
					"required_role", role,
					"role", identity.Role)
				h.WriteError(w, http.StatusForbidden, "Access denied")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
