package entity

import "time"

// Roles conocidos. RoleSuperAdmin no pertenece a ninguna empresa.
const (
	RoleSuperAdmin   = "zentral_admin"
	RoleCompanyAdmin = "company_admin"
	RoleAdmin        = "admin"
	RoleVendedor     = "vendedor"
	RoleContador     = "contador"
)

// Módulos funcionales sobre los que se otorgan permisos.
const (
	ModuleDashboard    = "dashboard"
	ModuleCalendar     = "calendar"
	ModuleSales        = "sales"
	ModuleExpenses     = "expenses"
	ModuleInventory    = "inventory"
	ModuleCustomers    = "customers"
	ModuleSuppliers    = "suppliers"
	ModuleEmployees    = "employees"
	ModuleMovements    = "movements"
	ModuleReports      = "reports"
	ModuleSettings     = "settings"
	ModuleUserSettings = "user_settings"
)

// ModuleKeys lista todos los módulos en orden estable.
var ModuleKeys = []string{
	ModuleDashboard, ModuleCalendar, ModuleSales, ModuleExpenses, ModuleInventory, ModuleCustomers,
	ModuleSuppliers, ModuleEmployees, ModuleMovements, ModuleReports, ModuleSettings, ModuleUserSettings,
}

// User representa un usuario. CompanyID vacío solo es válido para super-admins.
// Username es único por empresa; Email es opcional y único global.
type User struct {
	ID           string
	CompanyID    string
	Username     string
	DisplayName  string
	Email        string
	PasswordHash string // bcrypt
	Role         string
	Active       bool
	Permissions  map[string]bool // vacío: hereda del rol de la empresa
	CreatedAt    time.Time
}

// IsSuperAdmin informa si el usuario es administrador de la plataforma.
func (u *User) IsSuperAdmin() bool {
	return u != nil && u.Role == RoleSuperAdmin
}

// CompanyRole es un rol definido por una empresa con su mapa de permisos.
type CompanyRole struct {
	ID          string
	CompanyID   string
	Name        string
	Permissions map[string]bool
	CreatedAt   time.Time
}

// DefaultRolePermissions devuelve los permisos de los roles creados con cada empresa nueva.
func DefaultRolePermissions() map[string]map[string]bool {
	all := make(map[string]bool, len(ModuleKeys))
	for _, k := range ModuleKeys {
		all[k] = true
	}
	subset := func(keys ...string) map[string]bool {
		m := make(map[string]bool, len(ModuleKeys))
		for _, k := range ModuleKeys {
			m[k] = false
		}
		for _, k := range keys {
			m[k] = true
		}
		return m
	}
	clone := func(src map[string]bool) map[string]bool {
		m := make(map[string]bool, len(src))
		for k, v := range src {
			m[k] = v
		}
		return m
	}
	return map[string]map[string]bool{
		RoleCompanyAdmin: clone(all),
		RoleAdmin:        clone(all),
		RoleVendedor:     subset(ModuleDashboard, ModuleCalendar, ModuleSales, ModuleCustomers, ModuleInventory, ModuleUserSettings),
		RoleContador:     subset(ModuleDashboard, ModuleCalendar, ModuleExpenses, ModuleReports, ModuleUserSettings),
	}
}
