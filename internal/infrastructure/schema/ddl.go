// Package schema contiene el DDL de la aplicación y las diferencias por backend:
// tipos de columna, políticas RLS (solo Postgres) y reset destructivo.
package schema

import (
	"context"
	"strings"

	"github.com/jhoicas/zentral/internal/infrastructure/datastore"
)

// Definition es el esquema de un backend concreto.
type Definition interface {
	Name() string
	// CreateStatements crea tablas e índices si no existen.
	CreateStatements() []string
	// PolicyStatements (re)aplica las políticas de seguridad por filas. Vacío sin soporte nativo.
	PolicyStatements() []string
	// MarkerStatement registra el marcador de inicialización sin duplicarlo.
	MarkerStatement() string
	// Reset elimina todo el almacenamiento.
	Reset(ctx context.Context, exec datastore.Executor) error
}

// tables es el DDL en orden de dependencias. "user" va citado por ser palabra reservada.
var tables = []string{
	`CREATE TABLE IF NOT EXISTS "system_meta" (
		"key" TEXT PRIMARY KEY,
		"value" TEXT NOT NULL,
		"created_at" {{ts}} NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS "company" (
		"id" TEXT PRIMARY KEY,
		"name" TEXT NOT NULL,
		"slug" TEXT NOT NULL UNIQUE,
		"plan" TEXT NOT NULL DEFAULT 'basic',
		"status" TEXT NOT NULL DEFAULT 'active',
		"paused_at" {{ts}},
		"pause_reason" TEXT NOT NULL DEFAULT '',
		"pause_scheduled_for" {{ts}},
		"subscription_ends_at" {{ts}},
		"created_at" {{ts}} NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS "user" (
		"id" TEXT PRIMARY KEY,
		"company_id" TEXT REFERENCES "company"("id") ON DELETE CASCADE,
		"username" TEXT NOT NULL,
		"display_name" TEXT NOT NULL DEFAULT '',
		"email" TEXT UNIQUE,
		"password_hash" TEXT NOT NULL,
		"role" TEXT NOT NULL,
		"active" {{bool}} NOT NULL DEFAULT TRUE,
		"permissions" TEXT NOT NULL DEFAULT '{}',
		"created_at" {{ts}} NOT NULL,
		UNIQUE ("company_id", "username")
	)`,
	`CREATE TABLE IF NOT EXISTS "company_role" (
		"id" TEXT PRIMARY KEY,
		"company_id" TEXT NOT NULL REFERENCES "company"("id") ON DELETE CASCADE,
		"name" TEXT NOT NULL,
		"permissions" TEXT NOT NULL DEFAULT '{}',
		"created_at" {{ts}} NOT NULL,
		UNIQUE ("company_id", "name")
	)`,
	`CREATE TABLE IF NOT EXISTS "product" (
		"id" TEXT PRIMARY KEY,
		"company_id" TEXT NOT NULL REFERENCES "company"("id") ON DELETE CASCADE,
		"sku" TEXT NOT NULL,
		"name" TEXT NOT NULL,
		"price" {{money}} NOT NULL DEFAULT 0,
		"stock" {{money}} NOT NULL DEFAULT 0,
		"active" {{bool}} NOT NULL DEFAULT TRUE,
		"created_at" {{ts}} NOT NULL,
		UNIQUE ("company_id", "sku")
	)`,
	`CREATE TABLE IF NOT EXISTS "customer" (
		"id" TEXT PRIMARY KEY,
		"company_id" TEXT NOT NULL REFERENCES "company"("id") ON DELETE CASCADE,
		"name" TEXT NOT NULL,
		"tax_id" TEXT NOT NULL DEFAULT '',
		"email" TEXT NOT NULL DEFAULT '',
		"phone" TEXT NOT NULL DEFAULT '',
		"created_at" {{ts}} NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS "sale" (
		"id" TEXT PRIMARY KEY,
		"company_id" TEXT NOT NULL REFERENCES "company"("id") ON DELETE CASCADE,
		"customer_id" TEXT REFERENCES "customer"("id") ON DELETE SET NULL,
		"ticket_number" {{bigint}} NOT NULL,
		"date" {{ts}} NOT NULL,
		"total" {{money}} NOT NULL DEFAULT 0,
		"notes" TEXT NOT NULL DEFAULT '',
		"created_at" {{ts}} NOT NULL,
		UNIQUE ("company_id", "ticket_number")
	)`,
	`CREATE TABLE IF NOT EXISTS "sale_item" (
		"id" TEXT PRIMARY KEY,
		"company_id" TEXT NOT NULL REFERENCES "company"("id") ON DELETE CASCADE,
		"sale_id" TEXT NOT NULL REFERENCES "sale"("id") ON DELETE CASCADE,
		"product_id" TEXT NOT NULL REFERENCES "product"("id"),
		"quantity" {{money}} NOT NULL,
		"unit_price" {{money}} NOT NULL,
		"subtotal" {{money}} NOT NULL
	)`,
}

// genericTables son tablas con alcance de empresa que este servicio solo crea y protege.
var genericTables = []string{
	datastore.TableBusinessSettings,
	datastore.TableCalendarEvent,
	datastore.TableCategory,
	datastore.TableInventoryLot,
	datastore.TableInventoryMovement,
	datastore.TableCalendarUserConfig,
	datastore.TableCashCount,
	datastore.TableEmployee,
	datastore.TableExpense,
	datastore.TableSupplier,
	datastore.TableExpenseCategory,
	datastore.TableFileAsset,
}

func genericTable(name string) string {
	q := datastore.QuoteIdent(name)
	return `CREATE TABLE IF NOT EXISTS ` + q + ` (
		"id" TEXT PRIMARY KEY,
		"company_id" TEXT NOT NULL REFERENCES "company"("id") ON DELETE CASCADE,
		"name" TEXT NOT NULL DEFAULT '',
		"data" TEXT NOT NULL DEFAULT '{}',
		"created_at" {{ts}} NOT NULL
	)`
}

var indexes = []string{
	`CREATE INDEX IF NOT EXISTS "ix_user_company" ON "user" ("company_id")`,
	`CREATE INDEX IF NOT EXISTS "ix_product_company" ON "product" ("company_id")`,
	`CREATE INDEX IF NOT EXISTS "ix_customer_company" ON "customer" ("company_id")`,
	`CREATE INDEX IF NOT EXISTS "ix_sale_company" ON "sale" ("company_id")`,
	`CREATE INDEX IF NOT EXISTS "ix_sale_item_sale" ON "sale_item" ("sale_id")`,
}

// render produce el DDL completo con los tipos del backend.
func render(types *strings.Replacer) []string {
	out := make([]string, 0, len(tables)+len(genericTables)+len(indexes))
	for _, t := range tables {
		out = append(out, types.Replace(t))
	}
	for _, name := range genericTables {
		out = append(out, types.Replace(genericTable(name)))
	}
	return append(out, indexes...)
}

// TableNames devuelve las tablas con alcance de empresa en orden inverso de dependencias,
// apto para borrados en cascada manuales.
func TableNames() []string {
	names := append([]string(nil), genericTables...)
	return append(names,
		datastore.TableSaleItem,
		datastore.TableSale,
		datastore.TableCustomer,
		datastore.TableProduct,
		datastore.TableCompanyRole,
		datastore.TableUser,
	)
}
