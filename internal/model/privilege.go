package model

// Privilege represents a permission that can be assigned to users
type Privilege struct {
	ID   uint   `gorm:"primaryKey" json:"id"`
	Code string `gorm:"type:varchar(50);uniqueIndex;not null" json:"code"` // e.g., "stock:update"
	Name string `gorm:"type:varchar(100)" json:"name"`
}

const (
	PrivCatalogView       = "catalog:view"
	PrivCatalogManage     = "catalog:manage"
	PrivStockUpdate       = "stock:update"
	PrivTransactionView   = "transaction:view"
	PrivTransactionExport = "transaction:export"
	PrivMemoManage        = "memo:manage"
	PrivDashboardView     = "dashboard:view"
)

// Default privileges for the system
var DefaultPrivileges = []Privilege{
	{Code: PrivCatalogView, Name: "View Catalog"},
	{Code: PrivCatalogManage, Name: "Manage Catalog"},
	{Code: PrivStockUpdate, Name: "Update Stock"},
	{Code: PrivTransactionView, Name: "View Transactions"},
	{Code: PrivTransactionExport, Name: "Export Transactions"},
	{Code: PrivMemoManage, Name: "Manage Memos"},
	{Code: PrivDashboardView, Name: "View Dashboard"},
}

// StaffPrivileges is what the STAFF role receives: counter work, no catalog edits.
var StaffPrivileges = []string{
	PrivCatalogView,
	PrivStockUpdate,
	PrivTransactionView,
	PrivDashboardView,
}
