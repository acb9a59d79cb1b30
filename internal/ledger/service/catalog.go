package service

import (
	"github.com/smallbiznis/pizzaledger/internal/config"
	ledgerdomain "github.com/smallbiznis/pizzaledger/internal/ledger/domain"
	"github.com/smallbiznis/pizzaledger/internal/ledgerstore"
)

// CatalogUpdates replaces the menu and customization collections with catalog, under fresh ids.
func CatalogUpdates(catalog config.Catalog, newID func() string) ledgerstore.Updates {
	menu := make(map[string]ledgerdomain.MenuItem, len(catalog.MenuItems))
	for _, entry := range catalog.MenuItems {
		category, ok := ledgerdomain.ParseMenuItemCategory(entry.Category)
		if !ok {
			category = ledgerdomain.MenuItemCategoryOther
		}
		id := newID()
		menu[id] = ledgerdomain.MenuItem{
			ID:       id,
			Name:     entry.Name,
			Price:    entry.Price,
			Cost:     entry.Cost,
			Category: category,
		}
	}

	customizations := make(map[string]ledgerdomain.Customization, len(catalog.Customizations))
	for _, entry := range catalog.Customizations {
		id := newID()
		customizations[id] = ledgerdomain.Customization{
			ID:    id,
			Name:  entry.Name,
			Price: entry.Price,
			Cost:  entry.Cost,
		}
	}

	return ledgerstore.Updates{
		ledgerstore.CollectionPath(ledgerstore.CollectionMenuItems):      menu,
		ledgerstore.CollectionPath(ledgerstore.CollectionCustomizations): customizations,
	}
}
