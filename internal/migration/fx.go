package migration

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/pizzaledger/internal/config"
	"github.com/smallbiznis/pizzaledger/internal/ledgerstore"
	"github.com/smallbiznis/pizzaledger/internal/seed"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type params struct {
	fx.In

	DB        *gorm.DB
	Cfg       config.Config
	Store     *ledgerstore.Store
	LedgerCfg *config.LedgerConfigHolder
	GenID     *snowflake.Node
	Log       *zap.Logger
}

var Module = fx.Module("migrations",
	fx.Invoke(func(p params) error {
		if err := Migrate(p.DB, p.Cfg.DBType, p.Log); err != nil {
			return err
		}
		return seed.EnsureCatalog(context.Background(), p.Store, p.LedgerCfg.Get().Catalog, p.GenID, p.Log)
	}),
)
