package service

import (
	"fmt"
	"strconv"
	"strings"

	ledgerdomain "github.com/smallbiznis/pizzaledger/internal/ledger/domain"
	"github.com/smallbiznis/pizzaledger/internal/ledgerstore"
)

// idSource hands out fresh record ids.
type idSource func() string

// saleInput is a validated sale with every reference resolved.
type saleInput struct {
	MenuItem       ledgerdomain.MenuItem
	Customizations []ledgerdomain.Customization
	Quantity       int
	Date           string
	IncludesTax    bool
	TaxRate        float64
}

// expandSale computes the sale group for one sale. Amounts are kept at full precision.
func expandSale(in saleInput, newID idSource) ledgerdomain.SaleResult {
	unitPrice := in.MenuItem.Price
	unitCost := in.MenuItem.Cost
	names := make([]string, 0, len(in.Customizations))
	for _, c := range in.Customizations {
		unitPrice += c.Price
		unitCost += c.Cost
		names = append(names, c.Name)
	}

	qty := float64(in.Quantity)
	baseRevenue := unitPrice * qty
	revenue := baseRevenue
	var tax float64
	if in.IncludesTax {
		revenue = baseRevenue / (1 + in.TaxRate)
		tax = baseRevenue - revenue
	}
	cogs := unitCost * qty

	label := fmt.Sprintf("%d x %s", in.Quantity, in.MenuItem.Name)
	saleDescription := "Sale: " + label
	if len(names) > 0 {
		saleDescription += " (" + strings.Join(names, ", ") + ")"
	}

	saleID := newID()
	result := ledgerdomain.SaleResult{
		SaleID: saleID,
		Revenue: ledgerdomain.Transaction{
			ID:          newID(),
			Type:        ledgerdomain.TransactionTypeRevenue,
			Date:        in.Date,
			Amount:      revenue,
			Description: saleDescription,
			Category:    ledgerdomain.CategorySales,
			MenuItemID:  in.MenuItem.ID,
			Quantity:    in.Quantity,
			SaleID:      saleID,
		},
		COGS: ledgerdomain.Transaction{
			ID:          newID(),
			Type:        ledgerdomain.TransactionTypeExpense,
			Date:        in.Date,
			Amount:      cogs,
			Description: "COGS for " + label,
			Category:    ledgerdomain.CategoryCOGS,
			MenuItemID:  in.MenuItem.ID,
			SaleID:      saleID,
		},
	}
	if in.IncludesTax {
		result.Tax = &ledgerdomain.Transaction{
			ID:          newID(),
			Type:        ledgerdomain.TransactionTypeExpense,
			Date:        in.Date,
			Amount:      tax,
			Description: "Sales Tax for " + label,
			Category:    ledgerdomain.CategoryTaxes,
			SaleID:      saleID,
		}
	}
	return result
}

func saleUpdates(sale ledgerdomain.SaleResult) ledgerstore.Updates {
	updates := ledgerstore.Updates{
		txPath(sale.Revenue.ID): sale.Revenue,
		txPath(sale.COGS.ID):    sale.COGS,
	}
	if sale.Tax != nil {
		updates[txPath(sale.Tax.ID)] = *sale.Tax
	}
	return updates
}

// inventoryTransaction derives the purchase expense owned by item.
func inventoryTransaction(item ledgerdomain.InventoryItem) ledgerdomain.Transaction {
	return ledgerdomain.Transaction{
		ID:          item.TransactionID,
		Type:        ledgerdomain.TransactionTypeExpense,
		Date:        item.PurchaseDate,
		Amount:      item.TotalCost,
		Description: fmt.Sprintf("Purchase: %s %s of %s", formatQuantity(item.Quantity), item.Unit, item.Name),
		Category:    ledgerdomain.CategoryInventoryPurchase,
	}
}

// payrollTransaction derives the payroll expense owned by entry.
func payrollTransaction(entry ledgerdomain.PayrollEntry) ledgerdomain.Transaction {
	return ledgerdomain.Transaction{
		ID:          entry.TransactionID,
		Type:        ledgerdomain.TransactionTypeExpense,
		Date:        entry.PayDate,
		Amount:      entry.GrossPay,
		Description: "Payroll for " + entry.EmployeeName,
		Category:    ledgerdomain.CategoryPayroll,
	}
}

// inventoryUpdates writes an item together with its linked expense.
func inventoryUpdates(item ledgerdomain.InventoryItem) ledgerstore.Updates {
	tx := inventoryTransaction(item)
	return ledgerstore.Updates{
		ledgerstore.DocPath(ledgerstore.CollectionInventory, item.ID): item,
		txPath(tx.ID): tx,
	}
}

func payrollUpdates(entry ledgerdomain.PayrollEntry) ledgerstore.Updates {
	tx := payrollTransaction(entry)
	return ledgerstore.Updates{
		ledgerstore.DocPath(ledgerstore.CollectionPayroll, entry.ID): entry,
		txPath(tx.ID): tx,
	}
}

func txPath(id string) ledgerstore.Path {
	return ledgerstore.DocPath(ledgerstore.CollectionTransactions, id)
}

func formatQuantity(q float64) string {
	return strconv.FormatFloat(q, 'f', -1, 64)
}
