package ledgerstore

import (
	"context"

	"github.com/smallbiznis/pizzaledger/internal/ledgerstore/liveevents"
	"go.uber.org/fx"
)

var Module = fx.Module("ledger.store",
	fx.Provide(liveevents.NewHub),
	fx.Provide(NewNotifier),
	fx.Provide(New),
	fx.Invoke(registerLifecycle),
)

func registerLifecycle(lc fx.Lifecycle, store *Store) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			return store.Start(ctx)
		},
		OnStop: func(ctx context.Context) error {
			return store.Stop(ctx)
		},
	})
}
