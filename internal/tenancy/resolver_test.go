package tenancy_test

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/jhoicas/zentral/internal/tenancy"
)

// ──────────────────────────────────────────────────────────────────────────────
// Resolver
// ──────────────────────────────────────────────────────────────────────────────

func TestResolveSlug_PrefijoGanaAQueryYHost(t *testing.T) {
	rw := tenancy.RewritePrefix("/c/acme/x")
	slug := tenancy.ResolveSlug(tenancy.Signals{
		ScriptRoot: rw.ScriptRoot,
		Company:    "other",
		Host:       "other.example.com",
	})
	assert.Equal(t, "acme", slug, "el prefijo de ruta tiene prioridad")
}

func TestResolveSlug_QueryGanaAHost(t *testing.T) {
	slug := tenancy.ResolveSlug(tenancy.Signals{Company: "  Other ", Host: "acme.example.com"})
	assert.Equal(t, "other", slug)
}

func TestResolveSlug_SinSenales(t *testing.T) {
	assert.Equal(t, "", tenancy.ResolveSlug(tenancy.Signals{}))
}

func TestHostSubdomain(t *testing.T) {
	cases := map[string]string{
		"acme.example.com":      "acme",
		"ACME.example.com:8080": "acme",
		"www.example.com":       "",
		"example.com":           "",
		"localhost":             "",
		"localhost:5000":        "",
		"127.0.0.1":             "",
		"127.0.0.1:5000":        "",
		"[::1]:8080":            "",
		"":                      "",
		"a.b.c.d":               "a",
	}
	for host, want := range cases {
		t.Run(host, func(t *testing.T) {
			assert.Equal(t, want, tenancy.HostSubdomain(host))
		})
	}
}

func TestSlugFromScriptRoot(t *testing.T) {
	assert.Equal(t, "acme", tenancy.SlugFromScriptRoot("/c/ACME"))
	assert.Equal(t, "", tenancy.SlugFromScriptRoot("/c/"))
	assert.Equal(t, "", tenancy.SlugFromScriptRoot("/c/acme/x"))
	assert.Equal(t, "", tenancy.SlugFromScriptRoot(""))
}

// ──────────────────────────────────────────────────────────────────────────────
// Router de prefijo
// ──────────────────────────────────────────────────────────────────────────────

func TestRewritePrefix_IdaYVuelta(t *testing.T) {
	rw := tenancy.RewritePrefix("/c/ACME/products/5")
	assert.Equal(t, "/products/5", rw.Path)
	assert.Equal(t, "/c/acme", rw.ScriptRoot)
	assert.Equal(t, "acme", rw.Slug)

	_, _, redirect := tenancy.CanonicalRedirect(tenancy.Placement{
		Method:        http.MethodGet,
		Path:          rw.Path,
		ScriptRoot:    rw.ScriptRoot,
		Authenticated: true,
		SessionSlug:   "acme",
	}, tenancy.DefaultExempt)
	assert.False(t, redirect, "el usuario ya está en el prefijo de su empresa")
}

func TestRewritePrefix_Casos(t *testing.T) {
	cases := []struct {
		in   string
		want tenancy.Rewrite
	}{
		{"/c/acme", tenancy.Rewrite{Path: "/", ScriptRoot: "/c/acme", Slug: "acme"}},
		{"/c/acme/", tenancy.Rewrite{Path: "/", ScriptRoot: "/c/acme", Slug: "acme"}},
		{"/c/", tenancy.Rewrite{Path: "/c/"}},
		{"/c", tenancy.Rewrite{Path: "/c"}},
		{"/cx/acme", tenancy.Rewrite{Path: "/cx/acme"}},
		{"/products", tenancy.Rewrite{Path: "/products"}},
	}
	for _, tc := range cases {
		t.Run(tc.in, func(t *testing.T) {
			assert.Equal(t, tc.want, tenancy.RewritePrefix(tc.in))
		})
	}
}

func TestCanonicalRedirect(t *testing.T) {
	base := tenancy.Placement{
		Method:        http.MethodGet,
		Path:          "/products",
		RawQuery:      "page=2",
		Authenticated: true,
		SessionSlug:   "acme",
	}

	t.Run("sin prefijo redirige conservando query", func(t *testing.T) {
		target, status, ok := tenancy.CanonicalRedirect(base, tenancy.DefaultExempt)
		assert.True(t, ok)
		assert.Equal(t, "/c/acme/products?page=2", target)
		assert.Equal(t, http.StatusFound, status)
	})

	t.Run("prefijo ajeno redirige", func(t *testing.T) {
		p := base
		p.ScriptRoot = "/c/other"
		target, _, ok := tenancy.CanonicalRedirect(p, tenancy.DefaultExempt)
		assert.True(t, ok)
		assert.Equal(t, "/c/acme/products?page=2", target)
	})

	t.Run("POST conserva el método con 307", func(t *testing.T) {
		p := base
		p.Method = http.MethodPost
		_, status, ok := tenancy.CanonicalRedirect(p, tenancy.DefaultExempt)
		assert.True(t, ok)
		assert.Equal(t, http.StatusTemporaryRedirect, status)
	})

	t.Run("super-admin exento", func(t *testing.T) {
		p := base
		p.SuperAdmin = true
		_, _, ok := tenancy.CanonicalRedirect(p, tenancy.DefaultExempt)
		assert.False(t, ok)
	})

	t.Run("rutas exentas", func(t *testing.T) {
		for _, path := range []string{"/static/app.css", "/superadmin/companies", "/health"} {
			p := base
			p.Path = path
			_, _, ok := tenancy.CanonicalRedirect(p, tenancy.DefaultExempt)
			assert.False(t, ok, path)
		}
	})

	t.Run("anónimo no se redirige", func(t *testing.T) {
		p := base
		p.Authenticated = false
		_, _, ok := tenancy.CanonicalRedirect(p, tenancy.DefaultExempt)
		assert.False(t, ok)
	})

	t.Run("raíz", func(t *testing.T) {
		p := base
		p.Path, p.RawQuery = "/", ""
		target, _, ok := tenancy.CanonicalRedirect(p, tenancy.DefaultExempt)
		assert.True(t, ok)
		assert.Equal(t, "/c/acme/", target)
	})
}
