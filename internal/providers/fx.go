package providers

import (
	"github.com/smallbiznis/pizzaledger/internal/providers/pdf"
	"go.uber.org/fx"
)

var Module = fx.Module("providers",
	pdf.Module,
)
