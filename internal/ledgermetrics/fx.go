package ledgermetrics

import "go.uber.org/fx"

var Module = fx.Module("ledger.metrics",
	fx.Provide(NewPusher),
	fx.Provide(NewReporter),
)
