package transfer

import (
	"context"
	"encoding/csv"
	"io"

	"github.com/shopspring/decimal"
	"github.com/smallbiznis/pizzaledger/internal/ledgerstore"
)

var csvHeader = []string{"ID", "Type", "Date", "Description", "Category", "Amount"}

// WriteTransactionsCSV writes every transaction, newest first, with amounts at two decimals.
func (s *Service) WriteTransactionsCSV(ctx context.Context, w io.Writer) error {
	snapshot, err := s.store.ReadOnce(ctx, ledgerstore.CollectionTransactions)
	if err != nil {
		return err
	}
	txns, err := sortedTransactions(snapshot)
	if err != nil {
		return err
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return err
	}
	for _, t := range txns {
		row := []string{
			t.ID,
			string(t.Type),
			t.Date,
			t.Description,
			t.Category,
			decimal.NewFromFloat(t.Amount).StringFixed(2),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
