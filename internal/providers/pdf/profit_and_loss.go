package pdf

import (
	"bytes"
	"context"
	"io"
	"time"

	"github.com/johnfercher/maroto/v2"
	"github.com/johnfercher/maroto/v2/pkg/components/col"
	"github.com/johnfercher/maroto/v2/pkg/components/text"
	"github.com/johnfercher/maroto/v2/pkg/config"
	"github.com/johnfercher/maroto/v2/pkg/consts/align"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontstyle"
	"github.com/johnfercher/maroto/v2/pkg/props"
	"github.com/shopspring/decimal"
	reportingdomain "github.com/smallbiznis/pizzaledger/internal/reporting/domain"
)

type ProfitAndLossData struct {
	BusinessName string
	Period       string
	GeneratedAt  string

	Revenue  []Line
	Expenses []Line

	TotalRevenue  string
	TotalExpenses string
	NetProfit     string
}

type Line struct {
	Label  string
	Amount string
}

// NewProfitAndLossData formats a P&L report for print. Amounts are rounded to cents here only.
func NewProfitAndLossData(businessName string, report *reportingdomain.ProfitAndLoss, generatedAt time.Time) ProfitAndLossData {
	period := "All time"
	switch {
	case report.From != "" && report.To != "":
		period = report.From + " to " + report.To
	case report.From != "":
		period = "From " + report.From
	case report.To != "":
		period = "Through " + report.To
	}

	data := ProfitAndLossData{
		BusinessName:  businessName,
		Period:        period,
		GeneratedAt:   generatedAt.UTC().Format("2006-01-02 15:04 MST"),
		TotalRevenue:  money(report.TotalRevenue),
		TotalExpenses: money(report.TotalExpenses),
		NetProfit:     money(report.NetProfit),
	}
	for _, c := range report.RevenueByCategory {
		data.Revenue = append(data.Revenue, Line{Label: c.Category, Amount: money(c.Total)})
	}
	for _, c := range report.ExpensesByCategory {
		data.Expenses = append(data.Expenses, Line{Label: c.Category, Amount: money(c.Total)})
	}
	return data
}

func money(v float64) string {
	return decimal.NewFromFloat(v).StringFixed(2)
}

func (p *PDFProvider) GenerateProfitAndLoss(ctx context.Context, data ProfitAndLossData) (io.Reader, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	cfg := config.NewBuilder().
		WithPageNumber(props.PageNumber{
			Pattern: "Page {current} of {total}",
			Place:   props.RightBottom,
		}).
		Build()

	m := maroto.New(cfg)

	m.AddRow(20,
		text.NewCol(8, "Profit and Loss", props.Text{
			Size:  20,
			Style: fontstyle.Bold,
			Align: align.Left,
		}),
		text.NewCol(4, data.BusinessName, props.Text{
			Size:  12,
			Style: fontstyle.Bold,
			Align: align.Right,
		}),
	)
	m.AddRow(14,
		col.New(8).Add(
			text.New("Period: "+data.Period, props.Text{Top: 0}),
			text.New("Generated: "+data.GeneratedAt, props.Text{Top: 5}),
		),
		col.New(4),
	)

	section := func(title string, lines []Line, totalLabel, total string) {
		m.AddRow(10,
			text.NewCol(8, title, props.Text{Style: fontstyle.Bold, Size: 11, Top: 2}),
			text.NewCol(4, "Amount", props.Text{Style: fontstyle.Bold, Size: 9, Align: align.Right, Top: 3}),
		)
		if len(lines) == 0 {
			m.AddRow(7, text.NewCol(12, "No entries", props.Text{Size: 9}))
		}
		for _, line := range lines {
			m.AddRow(7,
				text.NewCol(8, line.Label, props.Text{Size: 9}),
				text.NewCol(4, line.Amount, props.Text{Size: 9, Align: align.Right}),
			)
		}
		m.AddRow(9,
			text.NewCol(8, totalLabel, props.Text{Size: 9, Style: fontstyle.Bold}),
			text.NewCol(4, total, props.Text{Size: 9, Style: fontstyle.Bold, Align: align.Right}),
		)
	}

	section("Revenue", data.Revenue, "Total revenue", data.TotalRevenue)
	section("Expenses", data.Expenses, "Total expenses", data.TotalExpenses)

	m.AddRow(14,
		text.NewCol(8, "Net profit", props.Text{Size: 12, Style: fontstyle.Bold, Top: 4}),
		text.NewCol(4, data.NetProfit, props.Text{Size: 12, Style: fontstyle.Bold, Align: align.Right, Top: 4}),
	)

	doc, err := m.Generate()
	if err != nil {
		return nil, err
	}

	return bytes.NewReader(doc.GetBytes()), nil
}
