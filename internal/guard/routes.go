package guard

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// Meta carries the per-route authorization flags that the original system
// attached via route decorators.
type Meta struct {
	// Public routes allow anonymous access: no token, no permission check.
	Public bool
	// SkipPermission routes require a valid token but bypass the
	// permission-set match.
	SkipPermission bool
}

// Table is the explicit route-metadata record the authorizer consults. It
// resolves a concrete request path back to its declared pattern with a chi
// routing tree, so "/api/v1/jobs/123" maps to "/api/v1/jobs/{id}", the same
// string permission records are seeded with.
type Table struct {
	mux  *chi.Mux
	meta map[string]Meta
}

func NewTable() *Table {
	return &Table{
		mux:  chi.NewRouter(),
		meta: make(map[string]Meta),
	}
}

// Register records a route pattern with its flags. Patterns use chi syntax
// and must match the mounted routes one-to-one.
func (t *Table) Register(method, pattern string, meta Meta) {
	t.mux.Method(method, pattern, http.NotFoundHandler())
	t.meta[routeKey(method, pattern)] = meta
}

// Resolve maps (method, request path) to the declared pattern and its flags.
// ok is false for paths no registered route matches.
func (t *Table) Resolve(method, path string) (pattern string, meta Meta, ok bool) {
	rctx := chi.NewRouteContext()
	if !t.mux.Match(rctx, method, path) {
		return "", Meta{}, false
	}
	pattern = rctx.RoutePattern()
	meta, ok = t.meta[routeKey(method, pattern)]
	if !ok {
		return "", Meta{}, false
	}
	return pattern, meta, true
}

func routeKey(method, pattern string) string {
	return method + " " + pattern
}
