package app_test

import (
	"context"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/zentral/internal/app"
	"github.com/jhoicas/zentral/internal/application/dto"
	"github.com/jhoicas/zentral/internal/tenancy"
	"github.com/jhoicas/zentral/pkg/config"
)

func TestNew_SQLiteBootstrapYLogin(t *testing.T) {
	cfg := &config.Config{
		DB:   config.DBConfig{Backend: config.BackendSQLite, SQLitePath: ":memory:"},
		JWT:  config.JWTConfig{Secret: "s", Issuer: "zentral", RememberDays: 1},
		Seed: config.SeedConfig{AdminUsername: "zentra", AdminEmail: "zentra@zentral.local", AdminPassword: "zentra", DemoSlug: "demo", DemoName: "Demo", DemoAdminEmail: "admin@demo.local", DemoAdminPassword: "admin"},
	}
	c, err := app.New(context.Background(), cfg, prometheus.NewRegistry(), nil)
	require.NoError(t, err)
	defer c.Close()

	res, err := c.Bootstrap.Bootstrap(context.Background())
	require.NoError(t, err)
	assert.True(t, res.AdminCreated)
	require.NotEmpty(t, res.DemoCompanyID)

	ctx := tenancy.WithRequestContext(context.Background(),
		tenancy.NewRequestContext(nil, tenancy.Signals{ScriptRoot: "/c/demo"}, c.Companies))
	out, err := c.AuthUC.Login(ctx, dto.LoginRequest{Identifier: "admin", Password: "admin"})
	require.NoError(t, err)
	assert.Equal(t, res.DemoCompanyID, out.User.CompanyID, "el admin demo pertenece a la empresa demo")
}

func TestNew_BackendNoSoportado(t *testing.T) {
	_, err := app.New(context.Background(), &config.Config{DB: config.DBConfig{Backend: "mysql"}}, nil, nil)
	require.Error(t, err)
}
