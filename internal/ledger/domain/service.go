package domain

import (
	"context"

	"github.com/smallbiznis/pizzaledger/pkg/db/pagination"
)

type Service interface {
	RecordSale(ctx context.Context, req SaleRequest) (*SaleResult, error)
	RecordExpense(ctx context.Context, req ExpenseRequest) (*Transaction, error)
	RecordInventoryPurchase(ctx context.Context, req InventoryRequest) (*InventoryItem, error)
	RecordPayroll(ctx context.Context, req PayrollRequest) (*PayrollEntry, error)

	UpdateInventoryItem(ctx context.Context, id string, req InventoryRequest) (*InventoryItem, error)
	UpdatePayrollEntry(ctx context.Context, id string, req PayrollRequest) (*PayrollEntry, error)
	UpdateTransaction(ctx context.Context, id string, req ExpenseRequest) (*Transaction, error)

	DeleteTransaction(ctx context.Context, id string) (*CascadeResult, error)
	DeleteInventoryItem(ctx context.Context, id string) (*CascadeResult, error)
	DeletePayrollEntry(ctx context.Context, id string) (*CascadeResult, error)
	ResetAllData(ctx context.Context) error

	GetTransaction(ctx context.Context, id string) (*TransactionView, error)
	ListTransactions(ctx context.Context, req ListTransactionsRequest) ([]TransactionView, pagination.PageInfo, error)
	ListInventory(ctx context.Context) ([]InventoryItem, error)
	ListPayroll(ctx context.Context) ([]PayrollEntry, error)

	ListMenuItems(ctx context.Context) ([]MenuItem, error)
	CreateMenuItem(ctx context.Context, req MenuItemRequest) (*MenuItem, error)
	UpdateMenuItem(ctx context.Context, id string, req MenuItemRequest) (*MenuItem, error)
	DeleteMenuItem(ctx context.Context, id string) error

	ListCustomizations(ctx context.Context) ([]Customization, error)
	CreateCustomization(ctx context.Context, req CustomizationRequest) (*Customization, error)
	UpdateCustomization(ctx context.Context, id string, req CustomizationRequest) (*Customization, error)
	DeleteCustomization(ctx context.Context, id string) error

	CheckIntegrity(ctx context.Context) (*IntegrityReport, error)
}

type SaleRequest struct {
	MenuItemID       string   `json:"menuItemId"`
	Quantity         int      `json:"quantity"`
	Date             string   `json:"date"`
	IncludesTax      bool     `json:"includesTax"`
	CustomizationIDs []string `json:"customizationIds"`
}

// SaleResult is the sale group written for one sale.
type SaleResult struct {
	SaleID  string       `json:"saleId"`
	Revenue Transaction  `json:"revenue"`
	COGS    Transaction  `json:"cogs"`
	Tax     *Transaction `json:"tax,omitempty"`
}

type ExpenseRequest struct {
	Amount      float64 `json:"amount"`
	Description string  `json:"description"`
	Category    string  `json:"category"`
	Date        string  `json:"date"`
}

type InventoryRequest struct {
	Name         string  `json:"name"`
	Quantity     float64 `json:"quantity"`
	Unit         string  `json:"unit"`
	TotalCost    float64 `json:"totalCost"`
	PurchaseDate string  `json:"purchaseDate"`
	ExpiryDate   string  `json:"expiryDate"`
}

type PayrollRequest struct {
	EmployeeName string  `json:"employeeName"`
	GrossPay     float64 `json:"grossPay"`
	Deductions   float64 `json:"deductions"`
	PayDate      string  `json:"payDate"`
}

type MenuItemRequest struct {
	Name     string  `json:"name"`
	Price    float64 `json:"price"`
	Cost     float64 `json:"cost"`
	Category string  `json:"category"`
}

type CustomizationRequest struct {
	Name  string  `json:"name"`
	Price float64 `json:"price"`
	Cost  float64 `json:"cost"`
}

type ListTransactionsRequest struct {
	pagination.Pagination
	Type     string `form:"type"`
	Category string `form:"category"`
}

// TransactionView is a transaction as listed, with its editability resolved.
type TransactionView struct {
	Transaction
	Editable bool `json:"editable"`
}

// CascadeResult lists every record removed by a cascading delete.
type CascadeResult struct {
	Transactions []string `json:"transactions"`
	Inventory    []string `json:"inventory"`
	Payroll      []string `json:"payroll"`
}

type ViolationKind string

const (
	ViolationSaleGroup       ViolationKind = "sale_group"
	ViolationDanglingLink    ViolationKind = "dangling_link"
	ViolationSharedLink      ViolationKind = "shared_link"
	ViolationLinkMismatch    ViolationKind = "link_mismatch"
	ViolationOrphanedExpense ViolationKind = "orphaned_expense"
)

type Violation struct {
	Kind       ViolationKind `json:"kind"`
	Collection string        `json:"collection"`
	ID         string        `json:"id"`
	Message    string        `json:"message"`
}

type IntegrityReport struct {
	Healthy    bool        `json:"healthy"`
	Checked    int         `json:"checked"`
	Violations []Violation `json:"violations"`
}
