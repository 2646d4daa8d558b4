// Package tenancy resuelve la empresa efectiva de cada solicitud y mantiene el contexto
// por solicitud que consultan los mecanismos de aislamiento.
package tenancy

import (
	"net"
	"strings"
)

// PrefixSegment es el segmento que introduce el slug de empresa en la ruta: /c/<slug>.
const PrefixSegment = "/c/"

// Signals son los metadatos de la solicitud que permiten deducir un slug candidato.
type Signals struct {
	ScriptRoot string // /c/<slug> registrado por el router de prefijo
	Company    string // parámetro de query "company"
	Host       string // cabecera Host
}

// ResolveSlug devuelve el slug candidato de la solicitud o "" si no hay señal.
// Orden: prefijo de ruta, parámetro company, subdominio. No toca almacenamiento.
func ResolveSlug(s Signals) string {
	if slug := SlugFromScriptRoot(s.ScriptRoot); slug != "" {
		return slug
	}
	if q := strings.ToLower(strings.TrimSpace(s.Company)); q != "" {
		return q
	}
	return HostSubdomain(s.Host)
}

// SlugFromScriptRoot extrae el slug de un script root con forma exacta /c/<slug>.
func SlugFromScriptRoot(root string) string {
	if !strings.HasPrefix(root, PrefixSegment) {
		return ""
	}
	slug := root[len(PrefixSegment):]
	if slug == "" || strings.Contains(slug, "/") {
		return ""
	}
	return strings.ToLower(slug)
}

// HostSubdomain devuelve la primera etiqueta del host cuando hay al menos tres etiquetas
// y no se trata de www, localhost ni una IP.
func HostSubdomain(host string) string {
	host = strings.ToLower(strings.TrimSpace(host))
	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	}
	if host == "" || host == "localhost" || net.ParseIP(host) != nil {
		return ""
	}
	parts := strings.Split(host, ".")
	if len(parts) < 3 {
		return ""
	}
	first := parts[0]
	if first == "" || first == "www" || first == "localhost" {
		return ""
	}
	return first
}
