package guard

import (
	"net/http"
	"testing"
)

func TestTableResolvesParamPatterns(t *testing.T) {
	table := NewTable()
	table.Register(http.MethodGet, "/api/v1/jobs/{id}", Meta{})

	pattern, meta, ok := table.Resolve(http.MethodGet, "/api/v1/jobs/42")
	if !ok {
		t.Fatal("Resolve() should match a registered pattern")
	}
	if pattern != "/api/v1/jobs/{id}" {
		t.Errorf("pattern = %q, want %q", pattern, "/api/v1/jobs/{id}")
	}
	if meta.Public || meta.SkipPermission {
		t.Errorf("meta = %+v, want zero flags", meta)
	}
}

func TestTableDistinguishesMethods(t *testing.T) {
	table := NewTable()
	table.Register(http.MethodGet, "/api/v1/jobs", Meta{Public: true})

	if _, _, ok := table.Resolve(http.MethodDelete, "/api/v1/jobs"); ok {
		t.Error("Resolve() should not match a different method")
	}

	_, meta, ok := table.Resolve(http.MethodGet, "/api/v1/jobs")
	if !ok || !meta.Public {
		t.Errorf("Resolve() = (%+v, %v), want public match", meta, ok)
	}
}

func TestTableUnknownPath(t *testing.T) {
	table := NewTable()
	table.Register(http.MethodGet, "/api/v1/jobs", Meta{})

	if _, _, ok := table.Resolve(http.MethodGet, "/api/v1/companies"); ok {
		t.Error("Resolve() should not match an unregistered path")
	}
}

func TestTableFlagsPerRoute(t *testing.T) {
	table := NewTable()
	table.Register(http.MethodGet, "/api/v1/healthz", Meta{Public: true})
	table.Register(http.MethodPost, "/api/v1/files/upload", Meta{SkipPermission: true})

	_, meta, ok := table.Resolve(http.MethodGet, "/api/v1/healthz")
	if !ok || !meta.Public {
		t.Errorf("healthz meta = (%+v, %v), want public", meta, ok)
	}

	_, meta, ok = table.Resolve(http.MethodPost, "/api/v1/files/upload")
	if !ok || !meta.SkipPermission || meta.Public {
		t.Errorf("upload meta = (%+v, %v), want skip-permission only", meta, ok)
	}
}
