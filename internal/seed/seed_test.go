package seed

import (
	"context"
	"testing"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/pizzaledger/internal/config"
	"github.com/smallbiznis/pizzaledger/internal/ledgerstore"
	"github.com/smallbiznis/pizzaledger/internal/ledgerstore/storetest"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestEnsureCatalogSeedsEmptyStore(t *testing.T) {
	store, _ := storetest.New(t)
	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	ctx := context.Background()

	catalog := config.DefaultCatalog()
	require.NoError(t, EnsureCatalog(ctx, store, catalog, node, zap.NewNop()))

	menu, err := store.ReadOnce(ctx, ledgerstore.CollectionMenuItems)
	require.NoError(t, err)
	require.Len(t, menu, len(catalog.MenuItems))

	customizations, err := store.ReadOnce(ctx, ledgerstore.CollectionCustomizations)
	require.NoError(t, err)
	require.Len(t, customizations, len(catalog.Customizations))
}

func TestEnsureCatalogKeepsExistingCatalog(t *testing.T) {
	store, _ := storetest.New(t)
	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, store.AtomicWrite(ctx, ledgerstore.Updates{
		ledgerstore.DocPath(ledgerstore.CollectionMenuItems, "house"): map[string]any{
			"id": "house", "name": "House Special", "price": 30, "cost": 10, "category": "pizza",
		},
	}))

	require.NoError(t, EnsureCatalog(ctx, store, config.DefaultCatalog(), node, zap.NewNop()))

	menu, err := store.ReadOnce(ctx, ledgerstore.CollectionMenuItems)
	require.NoError(t, err)
	require.Len(t, menu, 1)
	require.Contains(t, menu, "house")

	customizations, err := store.ReadOnce(ctx, ledgerstore.CollectionCustomizations)
	require.NoError(t, err)
	require.Empty(t, customizations)
}

func TestEnsureCatalogDisconnected(t *testing.T) {
	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	err = EnsureCatalog(context.Background(), storetest.Disconnected(), config.DefaultCatalog(), node, nil)
	require.ErrorIs(t, err, ledgerstore.ErrNotConnected)
}
