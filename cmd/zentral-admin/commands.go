package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jhoicas/zentral/internal/app"
	"github.com/jhoicas/zentral/internal/application/scheduler"
	"github.com/jhoicas/zentral/pkg/config"
	"github.com/jhoicas/zentral/pkg/logger"
)

type loadFunc func() (*config.Config, error)

func newRootCmd(load loadFunc) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "zentral-admin",
		Short:         "Administración del almacenamiento de Zentral",
		Long:          "Prepara, reinicia y mantiene el almacenamiento configurado (Postgres o SQLite)",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.AddCommand(bootstrapCmd(load), resetCmd(load), sweepCmd(load))
	return rootCmd
}

// withContainer carga la configuración, arma las dependencias y ejecuta fn.
func withContainer(cmd *cobra.Command, load loadFunc, fn func(ctx context.Context, cfg *config.Config, c *app.Container) error) error {
	cfg, err := load()
	if err != nil {
		return fmt.Errorf("cargar configuración: %w", err)
	}
	log := logger.New(logger.Config{Env: cfg.App.Env, Level: cfg.Log.Level, Output: cmd.ErrOrStderr()})
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	c, err := app.New(ctx, cfg, nil, log)
	if err != nil {
		return err
	}
	defer c.Close()
	return fn(ctx, cfg, c)
}

func bootstrapCmd(load loadFunc) *cobra.Command {
	return &cobra.Command{
		Use:   "bootstrap",
		Short: "Crea esquema, políticas, super-admin y empresa demo",
		Long:  "Ejecuta el bootstrap idempotente: crea lo que falte y nunca borra datos",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withContainer(cmd, load, func(ctx context.Context, cfg *config.Config, c *app.Container) error {
				res, err := c.Bootstrap.Bootstrap(ctx)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "bootstrap %s: %d sentencias\n", cfg.DB.Backend, res.Statements)
				if res.AdminCreated {
					fmt.Fprintf(out, "super-admin creado: %s\n", cfg.Seed.AdminUsername)
				}
				if res.ConflictMoved != "" {
					fmt.Fprintf(out, "email del super-admin liberado del usuario %s\n", res.ConflictMoved)
				}
				if res.DemoCompanyID != "" {
					fmt.Fprintf(out, "empresa demo: %s (%s)\n", cfg.Seed.DemoSlug, res.DemoCompanyID)
				}
				return nil
			})
		},
	}
}

func resetCmd(load loadFunc) *cobra.Command {
	var rebuild bool
	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Elimina todo el almacenamiento",
		Long:  "Borra todas las tablas y datos. Requiere RESET_DB=1 y RESET_DB_CONFIRM=YES en el entorno",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withContainer(cmd, load, func(ctx context.Context, cfg *config.Config, c *app.Container) error {
				if err := c.Bootstrap.Reset(ctx, cfg.Reset); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "reset %s completado\n", cfg.DB.Backend)
				if !rebuild {
					return nil
				}
				res, err := c.Bootstrap.Bootstrap(ctx)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "bootstrap %s: %d sentencias\n", cfg.DB.Backend, res.Statements)
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&rebuild, "bootstrap", false, "Ejecutar el bootstrap después del reset")
	return cmd
}

func sweepCmd(load loadFunc) *cobra.Command {
	return &cobra.Command{
		Use:   "sweep-pauses",
		Short: "Pausa las empresas con pausa programada o suscripción vencida",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withContainer(cmd, load, func(ctx context.Context, cfg *config.Config, c *app.Container) error {
				s, err := scheduler.New(cfg.Scheduler.Spec, c.CompanyUC, nil)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "empresas pausadas: %d\n", s.RunOnce(ctx))
				return nil
			})
		},
	}
}
