// Package persistence implementa los puertos de repositorio sobre la canalización de datastore.
// Ningún repositorio filtra por empresa: el alcance lo aplica el enforcer activo.
package persistence

import (
	"encoding/json"
	"fmt"
)

// nullable convierte "" en NULL.
func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func deref(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}

func encodePermissions(m map[string]bool) (string, error) {
	if len(m) == 0 {
		return "{}", nil
	}
	b, err := json.Marshal(m)
	if err != nil {
		return "", fmt.Errorf("encode permissions: %w", err)
	}
	return string(b), nil
}

func decodePermissions(raw string) (map[string]bool, error) {
	m := map[string]bool{}
	if raw == "" {
		return m, nil
	}
	if err := json.Unmarshal([]byte(raw), &m); err != nil {
		return nil, fmt.Errorf("decode permissions: %w", err)
	}
	return m, nil
}
