package main

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/zentral/internal/domain"
	"github.com/jhoicas/zentral/pkg/config"
)

// ─────────────────────────────────────────────────────────────────────────────
// Helpers
// ─────────────────────────────────────────────────────────────────────────────

func sqliteConfig(path string, confirmed bool) loadFunc {
	return func() (*config.Config, error) {
		v := viper.New()
		v.Set("APP_ENV", "test")
		v.Set("LOG_LEVEL", "error")
		v.Set("DB_BACKEND", "sqlite")
		v.Set("SQLITE_PATH", path)
		v.Set("SESSION_STORE", "memory")
		if confirmed {
			v.Set("RESET_DB", "1")
			v.Set("RESET_DB_CONFIRM", "YES")
		}
		return config.FromViper(v)
	}
}

func run(t *testing.T, load loadFunc, args ...string) (string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	cmd := newRootCmd(load)
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

// ─────────────────────────────────────────────────────────────────────────────
// bootstrap / reset
// ─────────────────────────────────────────────────────────────────────────────

func TestBootstrapCmd_Idempotente(t *testing.T) {
	load := sqliteConfig(filepath.Join(t.TempDir(), "zentral.db"), false)

	out, err := run(t, load, "bootstrap")
	require.NoError(t, err)
	assert.Contains(t, out, "super-admin creado: zentra")
	assert.Contains(t, out, "empresa demo: demo")

	out, err = run(t, load, "bootstrap")
	require.NoError(t, err)
	assert.Contains(t, out, "bootstrap sqlite")
	assert.NotContains(t, out, "super-admin creado", "la segunda ejecución no crea nada nuevo")
	assert.NotContains(t, out, "empresa demo")
}

func TestResetCmd_SinConfirmacionFalla(t *testing.T) {
	path := filepath.Join(t.TempDir(), "zentral.db")
	_, err := run(t, sqliteConfig(path, false), "bootstrap")
	require.NoError(t, err)

	_, err = run(t, sqliteConfig(path, false), "reset")
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrResetNotConfirmed)

	out, err := run(t, sqliteConfig(path, false), "bootstrap")
	require.NoError(t, err)
	assert.NotContains(t, out, "super-admin creado", "los datos siguen intactos")
}

func TestResetCmd_ConfirmadoYReconstruye(t *testing.T) {
	path := filepath.Join(t.TempDir(), "zentral.db")
	_, err := run(t, sqliteConfig(path, false), "bootstrap")
	require.NoError(t, err)

	out, err := run(t, sqliteConfig(path, true), "reset", "--bootstrap")
	require.NoError(t, err)
	assert.Contains(t, out, "reset sqlite completado")
	assert.Contains(t, out, "bootstrap sqlite")

	out, err = run(t, sqliteConfig(path, false), "bootstrap")
	require.NoError(t, err)
	assert.NotContains(t, out, "super-admin creado", "el reset con --bootstrap ya sembró el super-admin")
}

func TestSweepCmd_SinEmpresasVencidas(t *testing.T) {
	path := filepath.Join(t.TempDir(), "zentral.db")
	_, err := run(t, sqliteConfig(path, false), "bootstrap")
	require.NoError(t, err)

	out, err := run(t, sqliteConfig(path, false), "sweep-pauses")
	require.NoError(t, err)
	assert.Contains(t, out, "empresas pausadas: 0")
}

func TestRootCmd_ConfiguracionInvalida(t *testing.T) {
	load := func() (*config.Config, error) {
		v := viper.New()
		v.Set("DB_BACKEND", "mysql")
		return config.FromViper(v)
	}
	_, err := run(t, load, "bootstrap")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cargar configuración")
}
