package service

import (
	"sort"

	ledgerdomain "github.com/smallbiznis/pizzaledger/internal/ledger/domain"
	"github.com/smallbiznis/pizzaledger/internal/ledgerstore"
)

// cascade collects every record that goes away together with a primary record.
type cascade struct {
	transactions map[string]struct{}
	inventory    map[string]struct{}
	payroll      map[string]struct{}
}

func newCascade() *cascade {
	return &cascade{
		transactions: make(map[string]struct{}),
		inventory:    make(map[string]struct{}),
		payroll:      make(map[string]struct{}),
	}
}

// transactionCascade removes target, its whole sale group and the inventory or payroll record
// that owns it.
func transactionCascade(
	target ledgerdomain.Transaction,
	transactions []ledgerdomain.Transaction,
	inventory []ledgerdomain.InventoryItem,
	payroll []ledgerdomain.PayrollEntry,
) *cascade {
	c := newCascade()
	c.transactions[target.ID] = struct{}{}

	if target.SaleID != "" {
		for _, t := range transactions {
			if t.SaleID == target.SaleID {
				c.transactions[t.ID] = struct{}{}
			}
		}
	}

	switch target.Category {
	case ledgerdomain.CategoryInventoryPurchase:
		for _, item := range inventory {
			if item.TransactionID == target.ID {
				c.inventory[item.ID] = struct{}{}
			}
		}
	case ledgerdomain.CategoryPayroll:
		for _, entry := range payroll {
			if entry.TransactionID == target.ID {
				c.payroll[entry.ID] = struct{}{}
			}
		}
	}
	return c
}

func inventoryCascade(item ledgerdomain.InventoryItem) *cascade {
	c := newCascade()
	c.inventory[item.ID] = struct{}{}
	if item.TransactionID != "" {
		c.transactions[item.TransactionID] = struct{}{}
	}
	return c
}

func payrollCascade(entry ledgerdomain.PayrollEntry) *cascade {
	c := newCascade()
	c.payroll[entry.ID] = struct{}{}
	if entry.TransactionID != "" {
		c.transactions[entry.TransactionID] = struct{}{}
	}
	return c
}

// updates is one atomic multi-path delete.
func (c *cascade) updates() ledgerstore.Updates {
	updates := make(ledgerstore.Updates, len(c.transactions)+len(c.inventory)+len(c.payroll))
	for id := range c.transactions {
		updates[txPath(id)] = nil
	}
	for id := range c.inventory {
		updates[ledgerstore.DocPath(ledgerstore.CollectionInventory, id)] = nil
	}
	for id := range c.payroll {
		updates[ledgerstore.DocPath(ledgerstore.CollectionPayroll, id)] = nil
	}
	return updates
}

func (c *cascade) result() *ledgerdomain.CascadeResult {
	return &ledgerdomain.CascadeResult{
		Transactions: sortedKeys(c.transactions),
		Inventory:    sortedKeys(c.inventory),
		Payroll:      sortedKeys(c.payroll),
	}
}

func sortedKeys(m map[string]struct{}) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
