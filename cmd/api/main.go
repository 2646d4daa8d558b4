package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/jhoicas/zentral/internal/app"
	"github.com/jhoicas/zentral/internal/application/scheduler"
	"github.com/jhoicas/zentral/internal/infrastructure/redis"
	httpRouter "github.com/jhoicas/zentral/internal/interfaces/http"
	"github.com/jhoicas/zentral/pkg/config"
	"github.com/jhoicas/zentral/pkg/logger"
)

// @title        Zentral API
// @version      1.0
// @description  API multi-empresa de Zentral: sesión, consola de super-admin y negocio por empresa.
// @BasePath     /
func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("cargar configuración: " + err.Error())
	}

	log := logger.New(logger.Config{
		Env:   cfg.App.Env,
		Level: cfg.Log.Level,
	})
	log.Info().
		Str("env", cfg.App.Env).
		Str("app", cfg.App.Name).
		Str("backend", cfg.DB.Backend).
		Msg("iniciando aplicación")
	if cfg.JWT.Secret == "" {
		log.Warn().Msg("JWT_SECRET vacío: la cookie de recordarme queda deshabilitada")
	}

	ctx := context.Background()
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	c, err := app.New(ctx, cfg, registry, log)
	if err != nil {
		log.Fatal().Err(err).Msg("inicializar dependencias")
	}
	defer c.Close()

	if cfg.App.AutoBootstrap {
		res, err := c.Bootstrap.Bootstrap(ctx)
		if err != nil {
			log.Fatal().Err(err).Msg("bootstrap")
		}
		log.Info().Bool("admin_created", res.AdminCreated).Str("demo_company", res.DemoCompanyID).Msg("bootstrap completado")
	}

	var sched *scheduler.Scheduler
	if cfg.Scheduler.Enabled {
		sched, err = scheduler.New(cfg.Scheduler.Spec, c.CompanyUC, log)
		if err != nil {
			log.Fatal().Err(err).Msg("scheduler")
		}
		sched.Start()
	}

	var sessionStorage fiber.Storage
	if cfg.Session.Store == "redis" {
		rs, err := redis.New(ctx, cfg.Session.RedisAddr, cfg.Session.RedisPassword, cfg.Session.RedisDB)
		if err != nil {
			log.Fatal().Err(err).Msg("conexión a Redis para sesiones")
		}
		defer rs.Close()
		sessionStorage = rs
	}

	server := fiber.New(fiber.Config{
		AppName:      cfg.App.Name,
		ReadTimeout:  time.Second * 10,
		WriteTimeout: time.Second * 10,
		IdleTimeout:  time.Second * 60,
		ErrorHandler: httpRouter.ErrorHandler(log.Component("http")),
	})
	server.Use(recover.New())

	httpRouter.Router(server, httpRouter.RouterDeps{
		AppName:      cfg.App.Name,
		Sessions:     httpRouter.NewSessionStore(cfg.Session, sessionStorage),
		SessionCfg:   cfg.Session,
		RememberDays: cfg.JWT.RememberDays,
		Companies:    c.Companies,
		Users:        c.Users,
		Metrics:      c.Metrics,
		Gatherer:     registry,
		Log:          log,
		AuthUC:       c.AuthUC,
		CompanyUC:    c.CompanyUC,
		ProductUC:    c.ProductUC,
		CustomerUC:   c.CustomerUC,
		SaleUC:       c.SaleUC,
		UserUC:       c.UserUC,
		Permissions:  c.Permissions,
		DisableDocs:  cfg.App.Env == "production",
	})

	go func() {
		if err := server.Listen(cfg.HTTP.Addr()); err != nil {
			log.Error().Err(err).Msg("servidor HTTP finalizado")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("señal de apagado recibida, cerrando servidor...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if sched != nil {
		<-sched.Stop().Done()
	}
	if err := server.ShutdownWithContext(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("apagado del servidor")
	}

	log.Info().Msg("aplicación detenida")
}
