package service

import (
	"sort"
	"strings"
	"time"

	ledgerdomain "github.com/smallbiznis/pizzaledger/internal/ledger/domain"
	reportingdomain "github.com/smallbiznis/pizzaledger/internal/reporting/domain"
)

func inPeriod(date string, period reportingdomain.PeriodRequest) bool {
	if period.From != "" && date < period.From {
		return false
	}
	if period.To != "" && date > period.To {
		return false
	}
	return true
}

// profitAndLoss folds transactions into totals. netProfit is always revenue minus expenses.
func profitAndLoss(transactions []ledgerdomain.Transaction, period reportingdomain.PeriodRequest) *reportingdomain.ProfitAndLoss {
	report := &reportingdomain.ProfitAndLoss{From: period.From, To: period.To}
	revenue := make(map[string]float64)
	expenses := make(map[string]float64)

	for _, t := range transactions {
		if !inPeriod(t.Date, period) {
			continue
		}
		report.Transactions++
		switch t.Type {
		case ledgerdomain.TransactionTypeRevenue:
			report.TotalRevenue += t.Amount
			revenue[t.Category] += t.Amount
		case ledgerdomain.TransactionTypeExpense:
			report.TotalExpenses += t.Amount
			expenses[t.Category] += t.Amount
		}
	}
	report.NetProfit = report.TotalRevenue - report.TotalExpenses
	report.RevenueByCategory = categoryTotals(revenue)
	report.ExpensesByCategory = categoryTotals(expenses)
	return report
}

func categoryTotals(m map[string]float64) []reportingdomain.CategoryTotal {
	out := make([]reportingdomain.CategoryTotal, 0, len(m))
	for category, total := range m {
		out = append(out, reportingdomain.CategoryTotal{Category: category, Total: total})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Total != out[j].Total {
			return out[i].Total > out[j].Total
		}
		return out[i].Category < out[j].Category
	})
	return out
}

// profitability attributes sales and COGS to menu items. COGS lines without a menu item id
// fall back to matching the item name inside the description.
func profitability(
	items []ledgerdomain.MenuItem,
	transactions []ledgerdomain.Transaction,
	period reportingdomain.PeriodRequest,
) []reportingdomain.ItemProfitability {
	out := make([]reportingdomain.ItemProfitability, 0, len(items))
	for _, item := range items {
		row := reportingdomain.ItemProfitability{
			MenuItemID: item.ID,
			Name:       item.Name,
			Category:   item.Category,
		}
		for _, t := range transactions {
			if !inPeriod(t.Date, period) {
				continue
			}
			switch {
			case t.Type == ledgerdomain.TransactionTypeRevenue && t.MenuItemID == item.ID:
				row.UnitsSold += t.Quantity
				row.TotalRevenue += t.Amount
			case t.Type == ledgerdomain.TransactionTypeExpense && t.Category == ledgerdomain.CategoryCOGS:
				if cogsBelongsTo(t, item) {
					row.TotalCost += t.Amount
				}
			}
		}
		row.NetProfit = row.TotalRevenue - row.TotalCost
		if row.TotalRevenue != 0 {
			row.Margin = row.NetProfit / row.TotalRevenue
		}
		out = append(out, row)
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].NetProfit != out[j].NetProfit {
			return out[i].NetProfit > out[j].NetProfit
		}
		return out[i].Name < out[j].Name
	})
	return out
}

func cogsBelongsTo(t ledgerdomain.Transaction, item ledgerdomain.MenuItem) bool {
	if t.MenuItemID != "" {
		return t.MenuItemID == item.ID
	}
	return item.Name != "" && strings.Contains(t.Description, item.Name)
}

type inventoryThresholds struct {
	ExpiringSoonDays int
	LowStock         float64
}

// inventoryStatus classifies every item against today. Expired outranks expiring soon, which
// outranks low stock.
func inventoryStatus(items []ledgerdomain.InventoryItem, today time.Time, limits inventoryThresholds) []reportingdomain.InventoryLine {
	y, m, d := today.Date()
	day := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)

	lines := make([]reportingdomain.InventoryLine, 0, len(items))
	for _, item := range items {
		line := reportingdomain.InventoryLine{InventoryItem: item, Status: reportingdomain.InventoryStatusNone}
		if expiry, err := ledgerdomain.ParseDate(item.ExpiryDate); err == nil {
			days := int(expiry.Sub(day).Hours() / 24)
			line.DaysToExpiry = &days
		}

		switch {
		case line.DaysToExpiry != nil && *line.DaysToExpiry < 0:
			line.Status = reportingdomain.InventoryStatusExpired
		case line.DaysToExpiry != nil && *line.DaysToExpiry <= limits.ExpiringSoonDays:
			line.Status = reportingdomain.InventoryStatusExpiringSoon
		case item.Quantity < limits.LowStock:
			line.Status = reportingdomain.InventoryStatusLowStock
		}
		lines = append(lines, line)
	}

	sort.SliceStable(lines, func(i, j int) bool {
		a, b := lines[i].DaysToExpiry, lines[j].DaysToExpiry
		switch {
		case a == nil && b == nil:
			return lines[i].Name < lines[j].Name
		case a == nil:
			return false
		case b == nil:
			return true
		case *a != *b:
			return *a < *b
		default:
			return lines[i].Name < lines[j].Name
		}
	})
	return lines
}
