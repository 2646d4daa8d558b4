package http

import (
	"github.com/gofiber/contrib/swagger"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/session"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/jhoicas/zentral/docs"
	"github.com/jhoicas/zentral/internal/application/auth"
	"github.com/jhoicas/zentral/internal/application/usecase"
	"github.com/jhoicas/zentral/internal/domain/entity"
	"github.com/jhoicas/zentral/internal/infrastructure/isolation"
	"github.com/jhoicas/zentral/internal/tenancy"
	"github.com/jhoicas/zentral/pkg/config"
	"github.com/jhoicas/zentral/pkg/logger"
)

// RouterDeps dependencias para el router.
type RouterDeps struct {
	AppName      string
	Sessions     *session.Store
	SessionCfg   config.SessionConfig
	RememberDays int
	Companies    tenancy.TenantLookup
	Users        userLookup
	Metrics      *isolation.Metrics
	Gatherer     prometheus.Gatherer // nil: prometheus.DefaultGatherer
	Log          *logger.Logger

	AuthUC      *auth.AuthUseCase
	CompanyUC   *usecase.CompanyUseCase
	ProductUC   *usecase.ProductUseCase
	CustomerUC  *usecase.CustomerUseCase
	SaleUC      *usecase.SaleUseCase
	UserUC      *usecase.UserUseCase
	Permissions *usecase.PermissionService
	DisableDocs bool
}

// Router registra middleware y rutas. Orden: prefijo de empresa, rutas operativas sin sesión,
// contexto de tenant, guards de principal, ubicación y pausa; luego auth, consola y API.
func Router(app *fiber.App, deps RouterDeps) {
	log := deps.Log
	if log == nil {
		log = logger.Nop()
	}
	app.Use(RequestLogger(log.Component("http")))
	app.Use(TenantPrefix())

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok", "service": deps.AppName})
	})
	gatherer := deps.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))
	if !deps.DisableDocs {
		app.Use(swagger.New(swagger.Config{
			BasePath:    "/",
			FileContent: []byte(docs.SwaggerInfo.ReadDoc()),
			Path:        "docs",
			Title:       "Zentral API",
		}))
	}

	var restorer PrincipalRestorer
	if deps.AuthUC != nil {
		restorer = deps.AuthUC
	}
	app.Use(RequestContext(RequestContextConfig{
		Sessions: deps.Sessions,
		Lookup:   deps.Companies,
		Restorer: restorer,
		Metrics:  deps.Metrics,
		Log:      log.Component("tenancy"),
	}))
	app.Use(PrincipalGuard(deps.Users, log.Component("tenancy")))
	app.Use(CanonicalPlacement(DefaultExempt))
	app.Use(PausedGuard(DefaultExempt))

	// Auth
	authHandler := NewAuthHandler(deps.AuthUC, deps.SessionCfg, deps.RememberDays)
	authGroup := app.Group("/auth")
	authGroup.Post("/login", authHandler.Login)
	authGroup.Post("/logout", authHandler.Logout)
	authGroup.Get("/me", RequireAuth(), authHandler.Me)

	// Consola de super-admin
	companyHandler := NewCompanyHandler(deps.CompanyUC)
	sa := app.Group("/superadmin", RequireSuperAdmin())
	sa.Get("/companies", companyHandler.List)
	sa.Post("/companies", companyHandler.Create)
	sa.Get("/companies/:id", companyHandler.GetByID)
	sa.Delete("/companies/:id", companyHandler.Delete)
	sa.Post("/companies/:id/pause", companyHandler.Pause)
	sa.Post("/companies/:id/reactivate", companyHandler.Reactivate)
	sa.Post("/companies/:id/impersonate", companyHandler.Impersonate)
	sa.Delete("/impersonation", companyHandler.ClearImpersonation)

	// API de negocio: empresa efectiva desde el contexto de tenant
	api := app.Group("/api", RequireAuth())

	products := api.Group("/products", RequirePermission(entity.ModuleInventory, deps.Permissions))
	productHandler := NewProductHandler(deps.ProductUC)
	products.Get("/", productHandler.List)
	products.Post("/", productHandler.Create)
	products.Get("/:id", productHandler.GetByID)
	products.Put("/:id", productHandler.Update)
	products.Delete("/:id", productHandler.Delete)

	customers := api.Group("/customers", RequirePermission(entity.ModuleCustomers, deps.Permissions))
	customerHandler := NewCustomerHandler(deps.CustomerUC)
	customers.Get("/", customerHandler.List)
	customers.Post("/", customerHandler.Create)

	sales := api.Group("/sales", RequirePermission(entity.ModuleSales, deps.Permissions))
	saleHandler := NewSaleHandler(deps.SaleUC)
	sales.Get("/", saleHandler.List)
	sales.Post("/", saleHandler.Create)
	sales.Get("/:id", saleHandler.GetByID)
	sales.Put("/:id", saleHandler.Update)
	sales.Get("/:id/ticket.pdf", saleHandler.Ticket)

	users := api.Group("/users", RequireRole(entity.RoleCompanyAdmin, entity.RoleAdmin))
	userHandler := NewUserHandler(deps.UserUC)
	users.Get("/", userHandler.List)
	users.Post("/", userHandler.Create)
	users.Get("/:id", userHandler.GetByID)
}
