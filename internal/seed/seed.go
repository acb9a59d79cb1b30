package seed

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/pizzaledger/internal/config"
	ledgerservice "github.com/smallbiznis/pizzaledger/internal/ledger/service"
	"github.com/smallbiznis/pizzaledger/internal/ledgerstore"
	"go.uber.org/zap"
)

// EnsureCatalog seeds the configured menu and customizations when both collections are
// empty. An existing catalog is never touched.
func EnsureCatalog(ctx context.Context, store *ledgerstore.Store, catalog config.Catalog, genID *snowflake.Node, log *zap.Logger) error {
	if store == nil {
		return errors.New("seed store is required")
	}
	if genID == nil {
		return errors.New("seed id generator is required")
	}
	if log == nil {
		log = zap.NewNop()
	}

	menu, err := store.ReadOnce(ctx, ledgerstore.CollectionMenuItems)
	if err != nil {
		return err
	}
	customizations, err := store.ReadOnce(ctx, ledgerstore.CollectionCustomizations)
	if err != nil {
		return err
	}
	if len(menu) > 0 || len(customizations) > 0 {
		return nil
	}

	updates := ledgerservice.CatalogUpdates(catalog, func() string { return genID.Generate().String() })
	if err := store.AtomicWrite(ctx, updates); err != nil {
		return err
	}
	log.Named("seed").Info("seeded catalog",
		zap.Int("menu_items", len(catalog.MenuItems)),
		zap.Int("customizations", len(catalog.Customizations)),
	)
	return nil
}
