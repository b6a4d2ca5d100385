package guard

import (
	"net/http"
	"strings"

	"github.com/jobdesk/jobdesk/internal/httpx"
	"github.com/jobdesk/jobdesk/internal/role"
	"github.com/jobdesk/jobdesk/internal/token"
	"github.com/jobdesk/jobdesk/internal/user"
	"go.uber.org/zap"
)

// authNamespace is exempt from the permission match: these endpoints must stay
// reachable to obtain and refresh credentials in the first place.
const authNamespace = "/api/v1/auth"

// Guard is the per-request authorizer. For every matched route it decides
// public/authenticated, validates the access token, re-resolves the caller's
// permissions from the live role, and checks them against the request's
// (method, route pattern) pair.
type Guard struct {
	table  *Table
	tokens token.Service
	roles  role.RoleRepo
	logger *zap.Logger
}

func New(table *Table, tokens token.Service, roles role.RoleRepo, logger *zap.Logger) *Guard {
	return &Guard{
		table:  table,
		tokens: tokens,
		roles:  roles,
		logger: logger,
	}
}

func (g *Guard) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		pattern, meta, ok := g.table.Resolve(r.Method, r.URL.Path)
		if !ok {
			// unregistered path: let the router produce its 404/405
			next.ServeHTTP(w, r)
			return
		}

		if meta.Public {
			next.ServeHTTP(w, r)
			return
		}

		claims, err := g.tokens.VerifyAccess(bearerToken(r))
		if err != nil {
			g.logger.Debug("access token rejected", zap.String("pattern", pattern), zap.Error(err))
			httpx.WriteError(w, http.StatusUnauthorized, httpx.ErrorResponse[any]{
				Code:    httpx.ErrUnauthorized,
				Message: "Invalid token",
			})
			return
		}

		// Deliberate re-resolution: the token only carries a role reference,
		// so a permission revoked after issuance takes effect immediately.
		identity := g.resolveIdentity(r, claims)

		if !meta.SkipPermission && !strings.HasPrefix(pattern, authNamespace) && !hasPermission(identity, r.Method, pattern) {
			g.logger.Debug("permission denied",
				zap.String("user_id", identity.ID),
				zap.String("method", r.Method),
				zap.String("pattern", pattern),
			)
			httpx.WriteError(w, http.StatusForbidden, httpx.ErrorResponse[any]{
				Code:    httpx.ErrForbidden,
				Message: "You do not have permission to access this endpoint",
			})
			return
		}

		next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), identity)))
	})
}

// resolveIdentity expands the token's role reference into the live permission
// set. A role that no longer resolves yields an empty set: the caller stays
// authenticated but can only reach exempted routes.
func (g *Guard) resolveIdentity(r *http.Request, claims *token.Claims) *user.Identity {
	identity := &user.Identity{
		ID:          claims.UserID,
		Email:       claims.Email,
		Name:        claims.Name,
		Role:        claims.Role,
		Permissions: []role.Permission{},
	}

	rec, err := g.roles.GetByID(r.Context(), claims.Role.ID)
	if err != nil {
		g.logger.Warn("failed to resolve role for request",
			zap.Int64("role_id", claims.Role.ID),
			zap.Error(err),
		)
		return identity
	}

	identity.Role = user.RoleRef{ID: rec.ID, Name: rec.Name}
	identity.Permissions = rec.Permissions
	return identity
}

// hasPermission checks the identity's permission set for an exact
// (method, route pattern) entry via a precomputed lookup.
func hasPermission(identity *user.Identity, method, pattern string) bool {
	lookup := make(map[string]struct{}, len(identity.Permissions))
	for _, p := range identity.Permissions {
		lookup[routeKey(p.Method, p.APIPath)] = struct{}{}
	}
	_, ok := lookup[routeKey(method, pattern)]
	return ok
}

func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if !strings.HasPrefix(header, prefix) {
		return ""
	}
	return strings.TrimPrefix(header, prefix)
}
