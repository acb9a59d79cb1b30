package pdf

import (
	"bytes"
	"context"
	"io"
	"testing"
	"time"

	reportingdomain "github.com/smallbiznis/pizzaledger/internal/reporting/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewProfitAndLossDataFormatsAmounts(t *testing.T) {
	report := &reportingdomain.ProfitAndLoss{
		From:               "2026-03-01",
		To:                 "2026-03-31",
		TotalRevenue:       46.428571428571,
		TotalExpenses:      21.171428571429,
		NetProfit:          25.257142857142,
		RevenueByCategory:  []reportingdomain.CategoryTotal{{Category: "Sales", Total: 46.428571428571}},
		ExpensesByCategory: []reportingdomain.CategoryTotal{{Category: "Cost of Goods Sold", Total: 15.6}, {Category: "Taxes", Total: 5.571428571429}},
	}

	data := NewProfitAndLossData("Slice of Life", report, time.Date(2026, 4, 1, 9, 30, 0, 0, time.UTC))
	assert.Equal(t, "2026-03-01 to 2026-03-31", data.Period)
	assert.Equal(t, "46.43", data.TotalRevenue)
	assert.Equal(t, "25.26", data.NetProfit)
	require.Len(t, data.Expenses, 2)
	assert.Equal(t, Line{Label: "Cost of Goods Sold", Amount: "15.60"}, data.Expenses[0])
	assert.Equal(t, "5.57", data.Expenses[1].Amount)
}

func TestGenerateProfitAndLossProducesPDF(t *testing.T) {
	data := NewProfitAndLossData("Slice of Life", &reportingdomain.ProfitAndLoss{}, time.Now())
	r, err := New().GenerateProfitAndLoss(context.Background(), data)
	require.NoError(t, err)

	body, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(body, []byte("%PDF")))
}
