package tenancy

import (
	"net/http"
	"strings"
)

// Rewrite es el resultado de reescribir una ruta con prefijo de empresa.
type Rewrite struct {
	Path       string // ruta interna que ve el resto del sistema
	ScriptRoot string // /c/<slug> en minúsculas, o "" si la ruta no tenía prefijo
	Slug       string
}

// RewritePrefix transforma /c/<slug> y /c/<slug>/<resto> en la ruta interna <resto> (o "/")
// registrando /c/<slug> como script root. Cualquier otra ruta pasa sin cambios.
func RewritePrefix(path string) Rewrite {
	if !strings.HasPrefix(path, PrefixSegment) {
		return Rewrite{Path: path}
	}
	rest := path[len(PrefixSegment):]
	slug, inner, _ := strings.Cut(rest, "/")
	if slug == "" {
		return Rewrite{Path: path}
	}
	slug = strings.ToLower(slug)
	return Rewrite{
		Path:       "/" + inner,
		ScriptRoot: PrefixSegment + slug,
		Slug:       slug,
	}
}

// Placement describe la solicitud para el control de ubicación canónica.
type Placement struct {
	Method        string
	Path          string // ruta interna (ya reescrita)
	RawQuery      string
	ScriptRoot    string
	Authenticated bool
	SuperAdmin    bool
	SessionSlug   string // slug de la empresa registrado en la sesión
}

// ExemptFunc informa si una ruta interna queda fuera del control de ubicación.
type ExemptFunc func(path string) bool

// DefaultExempt exime recursos estáticos, endpoints operativos y la consola de super-admin.
func DefaultExempt(path string) bool {
	for _, p := range []string{"/static", "/health", "/metrics", "/docs", "/superadmin", "/auth/logout", "/favicon.ico"} {
		if path == p || strings.HasPrefix(path, p+"/") {
			return true
		}
	}
	return false
}

// CanonicalRedirect decide si un usuario autenticado que no es super-admin debe ser
// redirigido al prefijo de su propia empresa. Devuelve la URL destino y el código HTTP.
func CanonicalRedirect(p Placement, exempt ExemptFunc) (target string, status int, redirect bool) {
	if !p.Authenticated || p.SuperAdmin || p.SessionSlug == "" {
		return "", 0, false
	}
	if exempt != nil && exempt(p.Path) {
		return "", 0, false
	}
	want := strings.ToLower(p.SessionSlug)
	if SlugFromScriptRoot(p.ScriptRoot) == want {
		return "", 0, false
	}
	target = PrefixSegment + want
	if p.Path != "" && p.Path != "/" {
		target += p.Path
	} else {
		target += "/"
	}
	if p.RawQuery != "" {
		target += "?" + p.RawQuery
	}
	status = http.StatusFound
	if p.Method != http.MethodGet && p.Method != http.MethodHead {
		status = http.StatusTemporaryRedirect
	}
	return target, status, true
}
