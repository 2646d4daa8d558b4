package datastore

import "github.com/jhoicas/zentral/internal/domain/entity"

// TenantColumn es la columna de empresa de todas las tablas con alcance de tenant.
const TenantColumn = "company_id"

// Entity describe una tabla con alcance de empresa.
type Entity struct {
	Table        string
	TenantColumn string
	// Principal marca la tabla de usuarios (columnas email, username y role),
	// la única afectada por la ampliación de login.
	Principal bool
	// Tenant devuelve un puntero al campo de empresa de una fila tipada, o nil si la fila
	// no es del tipo de la entidad. Es nil para tablas sin tipo Go.
	Tenant func(row any) *string
}

// TenantOf lee el valor de empresa de una fila tipada.
func (e Entity) TenantOf(row any) (*string, bool) {
	if e.Tenant == nil || row == nil {
		return nil, false
	}
	p := e.Tenant(row)
	return p, p != nil
}

// Registry es la tabla estática entidad → columna de empresa que consultan las etapas
// de lectura y escritura.
type Registry struct {
	byTable map[string]Entity
	order   []string
}

// NewRegistry construye el registro. Una entidad sin TenantColumn usa TenantColumn.
func NewRegistry(entities ...Entity) *Registry {
	r := &Registry{byTable: make(map[string]Entity, len(entities))}
	for _, e := range entities {
		if e.TenantColumn == "" {
			e.TenantColumn = TenantColumn
		}
		if _, dup := r.byTable[e.Table]; !dup {
			r.order = append(r.order, e.Table)
		}
		r.byTable[e.Table] = e
	}
	return r
}

// Lookup devuelve la entidad registrada para la tabla.
func (r *Registry) Lookup(table string) (Entity, bool) {
	e, ok := r.byTable[table]
	return e, ok
}

// Tables devuelve las tablas registradas en orden de registro.
func (r *Registry) Tables() []string {
	return append([]string(nil), r.order...)
}

func typed[T any](field func(*T) *string) func(any) *string {
	return func(row any) *string {
		if v, ok := row.(*T); ok && v != nil {
			return field(v)
		}
		return nil
	}
}

// Tablas con alcance de empresa.
const (
	TableBusinessSettings   = "business_settings"
	TableCalendarEvent      = "calendar_event"
	TableCategory           = "category"
	TableProduct            = "product"
	TableInventoryLot       = "inventory_lot"
	TableInventoryMovement  = "inventory_movement"
	TableSale               = "sale"
	TableSaleItem           = "sale_item"
	TableCalendarUserConfig = "calendar_user_config"
	TableCashCount          = "cash_count"
	TableCustomer           = "customer"
	TableEmployee           = "employee"
	TableExpense            = "expense"
	TableSupplier           = "supplier"
	TableExpenseCategory    = "expense_category"
	TableFileAsset          = "file_asset"
	TableCompanyRole        = "company_role"
	TableUser               = "user"
)

// Tablas globales.
const (
	TableCompany    = "company"
	TableSystemMeta = "system_meta"
)

// DefaultRegistry registra todas las tablas con alcance de empresa de la aplicación.
func DefaultRegistry() *Registry {
	return NewRegistry(
		Entity{Table: TableBusinessSettings},
		Entity{Table: TableCalendarEvent},
		Entity{Table: TableCategory},
		Entity{Table: TableProduct, Tenant: typed(func(p *entity.Product) *string { return &p.CompanyID })},
		Entity{Table: TableInventoryLot},
		Entity{Table: TableInventoryMovement},
		Entity{Table: TableSale, Tenant: typed(func(s *entity.Sale) *string { return &s.CompanyID })},
		Entity{Table: TableSaleItem, Tenant: typed(func(i *entity.SaleItem) *string { return &i.CompanyID })},
		Entity{Table: TableCalendarUserConfig},
		Entity{Table: TableCashCount},
		Entity{Table: TableCustomer, Tenant: typed(func(c *entity.Customer) *string { return &c.CompanyID })},
		Entity{Table: TableEmployee},
		Entity{Table: TableExpense},
		Entity{Table: TableSupplier},
		Entity{Table: TableExpenseCategory},
		Entity{Table: TableFileAsset},
		Entity{Table: TableCompanyRole, Tenant: typed(func(r *entity.CompanyRole) *string { return &r.CompanyID })},
		Entity{Table: TableUser, Principal: true, Tenant: typed(func(u *entity.User) *string { return &u.CompanyID })},
	)
}
