package pdf

import (
	"context"
	"io"
)

type Provider interface {
	GenerateProfitAndLoss(ctx context.Context, data ProfitAndLossData) (io.Reader, error)
}

type PDFProvider struct{}

func New() Provider {
	return &PDFProvider{}
}
