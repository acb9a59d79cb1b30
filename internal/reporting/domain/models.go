package domain

import (
	"context"

	ledgerdomain "github.com/smallbiznis/pizzaledger/internal/ledger/domain"
)

type Service interface {
	ProfitAndLoss(ctx context.Context, req PeriodRequest) (*ProfitAndLoss, error)
	Profitability(ctx context.Context, req PeriodRequest) ([]ItemProfitability, error)
	InventoryStatus(ctx context.Context) ([]InventoryLine, error)
}

// PeriodRequest limits a report to transactions dated within [From, To]. Empty bounds are open.
type PeriodRequest struct {
	From string `form:"from"`
	To   string `form:"to"`
}

type CategoryTotal struct {
	Category string  `json:"category"`
	Total    float64 `json:"total"`
}

type ProfitAndLoss struct {
	From               string          `json:"from,omitempty"`
	To                 string          `json:"to,omitempty"`
	TotalRevenue       float64         `json:"totalRevenue"`
	TotalExpenses      float64         `json:"totalExpenses"`
	NetProfit          float64         `json:"netProfit"`
	Transactions       int             `json:"transactions"`
	RevenueByCategory  []CategoryTotal `json:"revenueByCategory"`
	ExpensesByCategory []CategoryTotal `json:"expensesByCategory"`
}

type ItemProfitability struct {
	MenuItemID   string                        `json:"menuItemId"`
	Name         string                        `json:"name"`
	Category     ledgerdomain.MenuItemCategory `json:"category"`
	UnitsSold    int                           `json:"unitsSold"`
	TotalRevenue float64                       `json:"totalRevenue"`
	TotalCost    float64                       `json:"totalCost"`
	NetProfit    float64                       `json:"netProfit"`
	Margin       float64                       `json:"margin"`
}

type InventoryStatus string

const (
	InventoryStatusExpired      InventoryStatus = "expired"
	InventoryStatusExpiringSoon InventoryStatus = "expiring_soon"
	InventoryStatusLowStock     InventoryStatus = "low_stock"
	InventoryStatusNone         InventoryStatus = "none"
)

type InventoryLine struct {
	ledgerdomain.InventoryItem
	// DaysToExpiry is nil when the stored expiry date cannot be read.
	DaysToExpiry *int            `json:"daysToExpiry"`
	Status       InventoryStatus `json:"status"`
}
