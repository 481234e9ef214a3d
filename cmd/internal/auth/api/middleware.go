package authapi

import (
	"context"
	"net/http"
	"time"

	"pazar/cmd/identity"
)

// Identity is the authenticated principal attached to the request context.
type Identity struct {
	UserID string
	Roles  []identity.Role
}

type identityCtxKey struct{}

// IdentityFromContext returns the authenticated principal, if any.
func IdentityFromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(identityCtxKey{}).(Identity)
	return id, ok
}

// RequireAuth authenticates the request (access cookie, then bearer header)
// and enforces the role gate: an empty required set admits any
// authenticated principal, otherwise at least one required role must be
// present. Authentication failures are a uniform 401; a valid principal
// lacking the role gets 403.
func (h *Handler) RequireAuth(next http.Handler, required ...identity.Role) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw := h.accessTokenFromRequest(r)
		if raw == "" {
			writeUnauthorized(w)
			return
		}

		claims, err := h.tokens.VerifyAccess(raw, time.Now().UTC())
		if err != nil {
			writeUnauthorized(w)
			return
		}

		id := Identity{UserID: claims.Subject, Roles: claims.Roles}
		if !identity.Authorized(id.Roles, required) {
			writeError(w, http.StatusForbidden, "forbidden", "insufficient role")
			return
		}

		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), identityCtxKey{}, id)))
	})
}

// RequireCSRF enforces the double-submit check on unsafe methods.
// GET/HEAD/OPTIONS pass through untouched.
func (h *Handler) RequireCSRF(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
			if !h.csrfDoubleSubmitValid(r) {
				writeError(w, http.StatusForbidden, "csrf_invalid", "missing or invalid csrf token")
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}
