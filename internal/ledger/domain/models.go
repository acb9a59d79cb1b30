package domain

import (
	"fmt"
	"strings"
	"time"
)

// TransactionType separates money coming in from money going out.
type TransactionType string

const (
	TransactionTypeRevenue TransactionType = "revenue"
	TransactionTypeExpense TransactionType = "expense"
)

// Reserved categories are written only by compound operations and carry cascade semantics.
const (
	CategorySales             = "Sales"
	CategoryCOGS              = "Cost of Goods Sold"
	CategoryTaxes             = "Taxes"
	CategoryInventoryPurchase = "Inventory Purchase"
	CategoryPayroll           = "Payroll"
)

func ReservedCategories() []string {
	return []string{CategorySales, CategoryCOGS, CategoryTaxes, CategoryInventoryPurchase, CategoryPayroll}
}

func IsReservedCategory(category string) bool {
	category = strings.TrimSpace(category)
	for _, reserved := range ReservedCategories() {
		if strings.EqualFold(category, reserved) {
			return true
		}
	}
	return false
}

// Transaction is one ledger entry.
type Transaction struct {
	ID          string          `json:"id"`
	Type        TransactionType `json:"type"`
	Date        string          `json:"date"`
	Amount      float64         `json:"amount"`
	Description string          `json:"description"`
	Category    string          `json:"category"`
	MenuItemID  string          `json:"menuItemId,omitempty"`
	Quantity    int             `json:"quantity,omitempty"`
	SaleID      string          `json:"saleId,omitempty"`
}

// CanEditTransaction reports whether a transaction may be edited on its own. Revenue and the
// lines generated for sales, purchases and payroll change only through their owner.
func CanEditTransaction(t Transaction) bool {
	if t.Type == TransactionTypeRevenue {
		return false
	}
	switch t.Category {
	case CategoryCOGS, CategoryTaxes, CategoryPayroll, CategoryInventoryPurchase:
		return false
	}
	return true
}

type MenuItemCategory string

const (
	MenuItemCategoryPizza    MenuItemCategory = "pizza"
	MenuItemCategoryBeverage MenuItemCategory = "beverage"
	MenuItemCategoryOther    MenuItemCategory = "other"
)

func ParseMenuItemCategory(raw string) (MenuItemCategory, bool) {
	switch MenuItemCategory(strings.ToLower(strings.TrimSpace(raw))) {
	case MenuItemCategoryPizza:
		return MenuItemCategoryPizza, true
	case MenuItemCategoryBeverage:
		return MenuItemCategoryBeverage, true
	case MenuItemCategoryOther:
		return MenuItemCategoryOther, true
	}
	return "", false
}

type MenuItem struct {
	ID       string           `json:"id"`
	Name     string           `json:"name"`
	Price    float64          `json:"price"`
	Cost     float64          `json:"cost"`
	Category MenuItemCategory `json:"category"`
}

type Customization struct {
	ID    string  `json:"id"`
	Name  string  `json:"name"`
	Price float64 `json:"price"`
	Cost  float64 `json:"cost"`
}

type InventoryItem struct {
	ID            string  `json:"id"`
	Name          string  `json:"name"`
	Quantity      float64 `json:"quantity"`
	Unit          string  `json:"unit"`
	TotalCost     float64 `json:"totalCost"`
	PurchaseDate  string  `json:"purchaseDate"`
	ExpiryDate    string  `json:"expiryDate"`
	TransactionID string  `json:"transactionId,omitempty"`
}

type PayrollEntry struct {
	ID            string  `json:"id"`
	EmployeeName  string  `json:"employeeName"`
	GrossPay      float64 `json:"grossPay"`
	Deductions    float64 `json:"deductions"`
	NetPay        float64 `json:"netPay"`
	PayDate       string  `json:"payDate"`
	TransactionID string  `json:"transactionId,omitempty"`
}

// DateLayout is the calendar date format used for every stored date.
const DateLayout = "2006-01-02"

// ParseDate accepts a calendar date or an RFC 3339 timestamp and returns the calendar day in UTC.
func ParseDate(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, fmt.Errorf("empty date")
	}
	if t, err := time.Parse(DateLayout, raw); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("date %q is not YYYY-MM-DD", raw)
	}
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC), nil
}

// FormatDate renders the calendar day of t.
func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}
