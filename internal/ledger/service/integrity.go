package service

import (
	"fmt"
	"math"
	"sort"

	ledgerdomain "github.com/smallbiznis/pizzaledger/internal/ledger/domain"
	"github.com/smallbiznis/pizzaledger/internal/ledgerstore"
)

const amountTolerance = 1e-9

// checkIntegrity verifies that every derived record has exactly one owner and one linked
// transaction.
func checkIntegrity(
	transactions []ledgerdomain.Transaction,
	inventory []ledgerdomain.InventoryItem,
	payroll []ledgerdomain.PayrollEntry,
) *ledgerdomain.IntegrityReport {
	report := &ledgerdomain.IntegrityReport{
		Checked:    len(transactions) + len(inventory) + len(payroll),
		Violations: []ledgerdomain.Violation{},
	}
	add := func(kind ledgerdomain.ViolationKind, c ledgerstore.Collection, id, format string, args ...any) {
		report.Violations = append(report.Violations, ledgerdomain.Violation{
			Kind:       kind,
			Collection: string(c),
			ID:         id,
			Message:    fmt.Sprintf(format, args...),
		})
	}

	byID := make(map[string]ledgerdomain.Transaction, len(transactions))
	groups := make(map[string][]ledgerdomain.Transaction)
	for _, t := range transactions {
		byID[t.ID] = t
		if t.SaleID != "" {
			groups[t.SaleID] = append(groups[t.SaleID], t)
		}
	}

	saleIDs := make([]string, 0, len(groups))
	for id := range groups {
		saleIDs = append(saleIDs, id)
	}
	sort.Strings(saleIDs)
	for _, saleID := range saleIDs {
		var revenue, cogs, taxes, other int
		for _, t := range groups[saleID] {
			switch {
			case t.Type == ledgerdomain.TransactionTypeRevenue:
				revenue++
			case t.Category == ledgerdomain.CategoryCOGS:
				cogs++
			case t.Category == ledgerdomain.CategoryTaxes:
				taxes++
			default:
				other++
			}
		}
		if revenue != 1 || cogs != 1 || taxes > 1 || other > 0 {
			add(ledgerdomain.ViolationSaleGroup, ledgerstore.CollectionTransactions, saleID,
				"sale group has %d revenue, %d COGS, %d tax and %d other entries", revenue, cogs, taxes, other)
		}
	}

	owners := make(map[string]int)
	checkLink := func(c ledgerstore.Collection, ownerID, txID, category string, amount float64) {
		if txID == "" {
			add(ledgerdomain.ViolationDanglingLink, c, ownerID, "record has no linked transaction")
			return
		}
		owners[txID]++
		if owners[txID] == 2 {
			add(ledgerdomain.ViolationSharedLink, ledgerstore.CollectionTransactions, txID, "transaction is linked from more than one record")
		}
		t, ok := byID[txID]
		if !ok {
			add(ledgerdomain.ViolationDanglingLink, c, ownerID, "linked transaction %s does not exist", txID)
			return
		}
		if t.Category != category || t.Type != ledgerdomain.TransactionTypeExpense {
			add(ledgerdomain.ViolationLinkMismatch, c, ownerID, "linked transaction %s is %s %q, want expense %q", txID, t.Type, t.Category, category)
		}
		if math.Abs(t.Amount-amount) > amountTolerance {
			add(ledgerdomain.ViolationLinkMismatch, c, ownerID, "linked transaction %s amount %v, want %v", txID, t.Amount, amount)
		}
	}

	for _, item := range inventory {
		checkLink(ledgerstore.CollectionInventory, item.ID, item.TransactionID, ledgerdomain.CategoryInventoryPurchase, item.TotalCost)
	}
	for _, entry := range payroll {
		checkLink(ledgerstore.CollectionPayroll, entry.ID, entry.TransactionID, ledgerdomain.CategoryPayroll, entry.GrossPay)
	}

	for _, t := range transactions {
		if t.Category != ledgerdomain.CategoryInventoryPurchase && t.Category != ledgerdomain.CategoryPayroll {
			continue
		}
		if owners[t.ID] == 0 {
			add(ledgerdomain.ViolationOrphanedExpense, ledgerstore.CollectionTransactions, t.ID, "%s expense has no owning record", t.Category)
		}
	}

	report.Healthy = len(report.Violations) == 0
	return report
}
