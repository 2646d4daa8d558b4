package config_test

import (
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/zentral/pkg/config"
)

func load(t *testing.T, env map[string]any) (*config.Config, error) {
	t.Helper()
	v := viper.New()
	for k, val := range env {
		v.Set(k, val)
	}
	return config.FromViper(v)
}

func TestFromViper_ValoresPorDefecto(t *testing.T) {
	cfg, err := load(t, nil)
	require.NoError(t, err)
	assert.Equal(t, config.BackendPostgres, cfg.DB.Backend)
	assert.Equal(t, "memory", cfg.Session.Store)
	assert.Equal(t, "zentra", cfg.Seed.AdminUsername)
	assert.Equal(t, "admin@demo.local", cfg.Seed.DemoAdminEmail)
	assert.Equal(t, "@every 5m", cfg.Scheduler.Spec)
	assert.False(t, cfg.Reset.Enabled)
}

func TestFromViper_BackendDesdeDatabaseURL(t *testing.T) {
	cfg, err := load(t, map[string]any{"DATABASE_URL": "sqlite:///tmp/z.db"})
	require.NoError(t, err)
	assert.Equal(t, config.BackendSQLite, cfg.DB.Backend)
	assert.Equal(t, "/tmp/z.db", cfg.DB.SQLitePath)

	cfg, err = load(t, map[string]any{"DATABASE_URL": "postgresql://u:p@h:5432/db"})
	require.NoError(t, err)
	assert.Equal(t, config.BackendPostgres, cfg.DB.Backend)
}

func TestFromViper_BackendExplicitoTienePrioridad(t *testing.T) {
	cfg, err := load(t, map[string]any{"DB_BACKEND": "SQLite", "DATABASE_URL": "postgres://x"})
	require.NoError(t, err)
	assert.Equal(t, config.BackendSQLite, cfg.DB.Backend)
}

func TestFromViper_ValoresInvalidos(t *testing.T) {
	_, err := load(t, map[string]any{"DB_BACKEND": "mysql"})
	assert.Error(t, err)
	_, err = load(t, map[string]any{"DATABASE_URL": "mysql://x"})
	assert.Error(t, err)
	_, err = load(t, map[string]any{"SESSION_STORE": "memcached"})
	assert.Error(t, err)
}

func TestFromViper_ResetRequiereAmbosCampos(t *testing.T) {
	cfg, err := load(t, map[string]any{"RESET_DB": "1", "RESET_DB_CONFIRM": "YES"})
	require.NoError(t, err)
	assert.True(t, cfg.Reset.Enabled)
	assert.Equal(t, "YES", cfg.Reset.Confirm)
}

func TestFromViper_ResetSoloConUnoLiteral(t *testing.T) {
	for _, val := range []string{"true", "yes", "y", "on", "YES", " 1", "01"} {
		cfg, err := load(t, map[string]any{"RESET_DB": val, "RESET_DB_CONFIRM": "YES"})
		require.NoError(t, err)
		assert.False(t, cfg.Reset.Enabled, "RESET_DB=%q no debe habilitar el reset", val)
	}
	cfg, err := load(t, map[string]any{"RESET_DB_CONFIRM": "YES"})
	require.NoError(t, err)
	assert.False(t, cfg.Reset.Enabled, "sin RESET_DB el reset queda deshabilitado")
}

func TestDBConfig_DSNEscapaPassword(t *testing.T) {
	c := config.DBConfig{Host: "h", Port: 5432, User: "u", Password: "p@ss/word", DBName: "z", SSLMode: "disable"}
	assert.Equal(t, "postgres://u:p%40ss%2Fword@h:5432/z?sslmode=disable", c.DSN())
	c.DatabaseURL = "postgres://otro"
	assert.Equal(t, "postgres://otro", c.ConnectionString())
}
