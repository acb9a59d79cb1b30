package service

import (
	"testing"
	"time"

	ledgerdomain "github.com/smallbiznis/pizzaledger/internal/ledger/domain"
	reportingdomain "github.com/smallbiznis/pizzaledger/internal/reporting/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleTransactions() []ledgerdomain.Transaction {
	return []ledgerdomain.Transaction{
		{ID: "r1", Type: ledgerdomain.TransactionTypeRevenue, Date: "2026-03-01", Amount: 46.43, Category: ledgerdomain.CategorySales, MenuItemID: "m1", Quantity: 2, SaleID: "s1"},
		{ID: "c1", Type: ledgerdomain.TransactionTypeExpense, Date: "2026-03-01", Amount: 15.6, Category: ledgerdomain.CategoryCOGS, MenuItemID: "m1", SaleID: "s1", Description: "COGS for 2 x Margherita"},
		{ID: "t1", Type: ledgerdomain.TransactionTypeExpense, Date: "2026-03-01", Amount: 5.57, Category: ledgerdomain.CategoryTaxes, SaleID: "s1"},
		{ID: "r2", Type: ledgerdomain.TransactionTypeRevenue, Date: "2026-03-04", Amount: 29, Category: ledgerdomain.CategorySales, MenuItemID: "m2", Quantity: 1, SaleID: "s2"},
		{ID: "c2", Type: ledgerdomain.TransactionTypeExpense, Date: "2026-03-04", Amount: 9.1, Category: ledgerdomain.CategoryCOGS, SaleID: "s2", Description: "COGS for 1 x Pepperoni"},
		{ID: "e1", Type: ledgerdomain.TransactionTypeExpense, Date: "2026-03-10", Amount: 120, Category: "Rent"},
	}
}

func TestProfitAndLossIsPure(t *testing.T) {
	txns := sampleTransactions()
	first := profitAndLoss(txns, reportingdomain.PeriodRequest{})
	second := profitAndLoss(txns, reportingdomain.PeriodRequest{})

	assert.Equal(t, first, second)
	assert.InDelta(t, 75.43, first.TotalRevenue, 1e-9)
	assert.InDelta(t, 150.27, first.TotalExpenses, 1e-9)
	assert.Equal(t, first.TotalRevenue-first.TotalExpenses, first.NetProfit)
	assert.Equal(t, 6, first.Transactions)
	require.NotEmpty(t, first.ExpensesByCategory)
	assert.Equal(t, "Rent", first.ExpensesByCategory[0].Category)

	march1 := profitAndLoss(txns, reportingdomain.PeriodRequest{From: "2026-03-01", To: "2026-03-01"})
	assert.Equal(t, 3, march1.Transactions)
	assert.InDelta(t, 46.43, march1.TotalRevenue, 1e-9)
}

func TestProfitabilityJoinsByIDWithNameFallback(t *testing.T) {
	items := []ledgerdomain.MenuItem{
		{ID: "m1", Name: "Margherita", Category: ledgerdomain.MenuItemCategoryPizza},
		{ID: "m2", Name: "Pepperoni", Category: ledgerdomain.MenuItemCategoryPizza},
		{ID: "m3", Name: "Soda", Category: ledgerdomain.MenuItemCategoryBeverage},
	}
	rows := profitability(items, sampleTransactions(), reportingdomain.PeriodRequest{})
	require.Len(t, rows, 3)

	byID := map[string]reportingdomain.ItemProfitability{}
	for _, r := range rows {
		byID[r.MenuItemID] = r
	}

	assert.Equal(t, 2, byID["m1"].UnitsSold)
	assert.InDelta(t, 15.6, byID["m1"].TotalCost, 1e-9)
	assert.InDelta(t, 30.83, byID["m1"].NetProfit, 1e-9)
	assert.InDelta(t, 30.83/46.43, byID["m1"].Margin, 1e-9)

	assert.InDelta(t, 9.1, byID["m2"].TotalCost, 1e-9)
	assert.Equal(t, 0.0, byID["m3"].Margin)
	assert.Equal(t, "m1", rows[0].MenuItemID)
}

func TestInventoryStatusPriority(t *testing.T) {
	today := time.Date(2026, 3, 14, 18, 30, 0, 0, time.UTC)
	items := []ledgerdomain.InventoryItem{
		{ID: "a", Name: "Basil", Quantity: 2, ExpiryDate: "2026-03-10"},
		{ID: "b", Name: "Mozzarella", Quantity: 50, ExpiryDate: "2026-03-21"},
		{ID: "c", Name: "Flour", Quantity: 4, ExpiryDate: "2026-09-01"},
		{ID: "d", Name: "Oil", Quantity: 40, ExpiryDate: "2027-01-01"},
		{ID: "e", Name: "Mystery", Quantity: 1, ExpiryDate: "soon"},
		{ID: "f", Name: "Tomatoes", Quantity: 30, ExpiryDate: "2026-03-22"},
	}
	lines := inventoryStatus(items, today, inventoryThresholds{ExpiringSoonDays: 7, LowStock: 10})
	require.Len(t, lines, 6)

	got := map[string]reportingdomain.InventoryStatus{}
	for _, l := range lines {
		got[l.ID] = l.Status
	}
	assert.Equal(t, reportingdomain.InventoryStatusExpired, got["a"])
	assert.Equal(t, reportingdomain.InventoryStatusExpiringSoon, got["b"])
	assert.Equal(t, reportingdomain.InventoryStatusLowStock, got["c"])
	assert.Equal(t, reportingdomain.InventoryStatusNone, got["d"])
	assert.Equal(t, reportingdomain.InventoryStatusLowStock, got["e"])
	assert.Equal(t, reportingdomain.InventoryStatusNone, got["f"])

	assert.Equal(t, []string{"a", "b", "f", "c", "d", "e"}, []string{lines[0].ID, lines[1].ID, lines[2].ID, lines[3].ID, lines[4].ID, lines[5].ID})
	assert.Equal(t, -4, *lines[0].DaysToExpiry)
	assert.Equal(t, 7, *lines[1].DaysToExpiry)
	assert.Nil(t, lines[5].DaysToExpiry)
}
