package service

import (
	"fmt"
	"testing"

	ledgerdomain "github.com/smallbiznis/pizzaledger/internal/ledger/domain"
	"github.com/smallbiznis/pizzaledger/internal/ledgerstore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sequentialIDs() idSource {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("id%d", n)
	}
}

func TestExpandSaleReconstructsGrossValue(t *testing.T) {
	customs := []ledgerdomain.Customization{
		{ID: "c1", Name: "Extra Cheese", Price: 3, Cost: 1.1},
		{ID: "c2", Name: "Gluten-Free Crust", Price: 4, Cost: 1.6},
	}
	cases := []struct {
		name     string
		price    float64
		cost     float64
		quantity int
		customs  []ledgerdomain.Customization
		taxed    bool
		rate     float64
	}{
		{name: "plain", price: 26, cost: 7.8, quantity: 1},
		{name: "taxed", price: 26, cost: 7.8, quantity: 2, taxed: true, rate: 0.12},
		{name: "custom taxed", price: 3.5, cost: 0.9, quantity: 7, customs: customs, taxed: true, rate: 0.12},
		{name: "zero rate", price: 9, cost: 2.1, quantity: 3, taxed: true, rate: 0},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			sale := expandSale(saleInput{
				MenuItem:       ledgerdomain.MenuItem{ID: "m1", Name: "Item", Price: tc.price, Cost: tc.cost},
				Customizations: tc.customs,
				Quantity:       tc.quantity,
				Date:           "2026-03-14",
				IncludesTax:    tc.taxed,
				TaxRate:        tc.rate,
			}, sequentialIDs())

			unitPrice, unitCost := tc.price, tc.cost
			for _, c := range tc.customs {
				unitPrice += c.Price
				unitCost += c.Cost
			}
			gross := unitPrice * float64(tc.quantity)

			charged := sale.Revenue.Amount
			if sale.Tax != nil {
				charged += sale.Tax.Amount
			}
			assert.InDelta(t, gross, charged, 1e-9)
			assert.InDelta(t, unitCost*float64(tc.quantity), sale.COGS.Amount, 1e-9)
			assert.Equal(t, tc.taxed, sale.Tax != nil)

			updates := saleUpdates(sale)
			if tc.taxed {
				assert.Len(t, updates, 3)
			} else {
				assert.Len(t, updates, 2)
			}
			assert.Equal(t, sale.SaleID, sale.Revenue.SaleID)
			assert.Equal(t, sale.SaleID, sale.COGS.SaleID)
			assert.Equal(t, ledgerdomain.TransactionTypeRevenue, sale.Revenue.Type)
			assert.Equal(t, ledgerdomain.CategoryCOGS, sale.COGS.Category)
		})
	}
}

func TestTransactionCascadeScopesToOwnGroup(t *testing.T) {
	txns := []ledgerdomain.Transaction{
		{ID: "r1", SaleID: "s1", Type: ledgerdomain.TransactionTypeRevenue},
		{ID: "c1", SaleID: "s1", Category: ledgerdomain.CategoryCOGS},
		{ID: "r2", SaleID: "s2", Type: ledgerdomain.TransactionTypeRevenue},
		{ID: "p1", Category: ledgerdomain.CategoryInventoryPurchase},
	}
	inventory := []ledgerdomain.InventoryItem{{ID: "i1", TransactionID: "p1"}, {ID: "i2", TransactionID: "p9"}}

	plan := transactionCascade(txns[1], txns, inventory, nil)
	assert.Equal(t, []string{"c1", "r1"}, plan.result().Transactions)
	assert.Empty(t, plan.result().Inventory)

	plan = transactionCascade(txns[3], txns, inventory, nil)
	result := plan.result()
	assert.Equal(t, []string{"p1"}, result.Transactions)
	assert.Equal(t, []string{"i1"}, result.Inventory)

	updates := plan.updates()
	require.Len(t, updates, 2)
	for _, v := range updates {
		assert.Nil(t, v)
	}
	assert.Contains(t, updates, ledgerstore.DocPath(ledgerstore.CollectionInventory, "i1"))
}

func TestCanEditTransaction(t *testing.T) {
	cases := map[string]struct {
		tx   ledgerdomain.Transaction
		want bool
	}{
		"manual expense": {ledgerdomain.Transaction{Type: ledgerdomain.TransactionTypeExpense, Category: "Utilities"}, true},
		"revenue":        {ledgerdomain.Transaction{Type: ledgerdomain.TransactionTypeRevenue, Category: "Catering"}, false},
		"cogs":           {ledgerdomain.Transaction{Type: ledgerdomain.TransactionTypeExpense, Category: ledgerdomain.CategoryCOGS}, false},
		"taxes":          {ledgerdomain.Transaction{Type: ledgerdomain.TransactionTypeExpense, Category: ledgerdomain.CategoryTaxes}, false},
		"payroll":        {ledgerdomain.Transaction{Type: ledgerdomain.TransactionTypeExpense, Category: ledgerdomain.CategoryPayroll}, false},
		"purchase":       {ledgerdomain.Transaction{Type: ledgerdomain.TransactionTypeExpense, Category: ledgerdomain.CategoryInventoryPurchase}, false},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, tc.want, ledgerdomain.CanEditTransaction(tc.tx))
		})
	}
}
