package domain

// TableDescriptor declares how a table is exported. Tenant scoped tables are
// filtered by the tenant column; the rest are exported in full. TenantColumn
// overrides the engine wide column for this table.
type TableDescriptor struct {
	Name         string `mapstructure:"name" json:"name" validate:"required"`
	TenantScoped bool   `mapstructure:"tenant_scoped" json:"tenant_scoped"`
	TenantColumn string `mapstructure:"tenant_column" json:"tenant_column,omitempty"`
}

// DefaultTablesVersion identifies the built-in table list below.
const DefaultTablesVersion = "2024-07"

// DefaultTables is used when neither the tenant settings nor the engine
// configuration name any tables.
var DefaultTables = []TableDescriptor{
	{Name: "organizations", TenantScoped: true, TenantColumn: "id"},
	{Name: "organization_members", TenantScoped: true},
	{Name: "contacts", TenantScoped: true},
	{Name: "conversations", TenantScoped: true},
	{Name: "messages", TenantScoped: true},
	{Name: "tasks", TenantScoped: true},
	{Name: "documents", TenantScoped: true},
	{Name: "ai_agents", TenantScoped: true},
	{Name: "integrations", TenantScoped: true},
	{Name: "plans", TenantScoped: false},
}
