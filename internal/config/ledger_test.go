package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestDefaultLedgerConfigIsValid(t *testing.T) {
	cfg := DefaultLedgerConfig()
	require.NoError(t, ValidateLedgerConfig(cfg))
	assert.Equal(t, 0.12, cfg.TaxRate)
	assert.Equal(t, 7, cfg.ExpiringSoonDays)
	assert.Equal(t, float64(10), cfg.LowStockThreshold)
	assert.NotEmpty(t, cfg.Catalog.MenuItems)
	assert.NotEmpty(t, cfg.Catalog.Customizations)
}

func TestValidateLedgerConfigRejectsBadValues(t *testing.T) {
	cases := map[string]func(*LedgerConfig){
		"tax rate at one":      func(c *LedgerConfig) { c.TaxRate = 1 },
		"negative tax rate":    func(c *LedgerConfig) { c.TaxRate = -0.1 },
		"negative expiry days": func(c *LedgerConfig) { c.ExpiringSoonDays = -1 },
		"negative low stock":   func(c *LedgerConfig) { c.LowStockThreshold = -1 },
		"blank menu name":      func(c *LedgerConfig) { c.Catalog.MenuItems[0].Name = " " },
		"free menu item":       func(c *LedgerConfig) { c.Catalog.MenuItems[0].Price = 0 },
		"unknown category":     func(c *LedgerConfig) { c.Catalog.MenuItems[0].Category = "dessert" },
		"negative add-on cost": func(c *LedgerConfig) { c.Catalog.Customizations[0].Cost = -1 },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := DefaultLedgerConfig()
			mutate(&cfg)
			assert.Error(t, ValidateLedgerConfig(cfg))
		})
	}
}

func TestNewLedgerConfigHolderUsesDefaultsWithoutFile(t *testing.T) {
	t.Chdir(t.TempDir())

	holder, err := NewLedgerConfigHolder(zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, DefaultLedgerConfig(), holder.Get())
}

func TestNewLedgerConfigHolderReadsFile(t *testing.T) {
	dir := t.TempDir()
	content := []byte(`ledger:
  taxRate: 0.05
  expiringSoonDays: 3
  catalog:
    menuItems:
      - name: Calzone
        price: 18
        cost: 6
        category: pizza
    customizations:
      - name: Olives
        price: 1.5
        cost: 0.4
`)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "ledger.yml"), content, 0o600))
	t.Chdir(dir)

	holder, err := NewLedgerConfigHolder(zap.NewNop())
	require.NoError(t, err)

	cfg := holder.Get()
	assert.Equal(t, 0.05, cfg.TaxRate)
	assert.Equal(t, 3, cfg.ExpiringSoonDays)
	assert.Equal(t, float64(DefaultLowStockThreshold), cfg.LowStockThreshold)
	require.Len(t, cfg.Catalog.MenuItems, 1)
	assert.Equal(t, "Calzone", cfg.Catalog.MenuItems[0].Name)
	require.Len(t, cfg.Catalog.Customizations, 1)
	assert.Equal(t, 0.4, cfg.Catalog.Customizations[0].Cost)
}

func TestNewLedgerConfigHolderKeepsDefaultsForOmittedKeys(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "ledger.yml"), []byte("ledger:\n  taxRate: 0.08\n"), 0o600))
	t.Chdir(dir)

	holder, err := NewLedgerConfigHolder(zap.NewNop())
	require.NoError(t, err)

	cfg := holder.Get()
	defaults := DefaultLedgerConfig()
	assert.Equal(t, 0.08, cfg.TaxRate)
	assert.Equal(t, defaults.ExpiringSoonDays, cfg.ExpiringSoonDays)
	assert.Equal(t, defaults.LowStockThreshold, cfg.LowStockThreshold)
	assert.Equal(t, defaults.Catalog, cfg.Catalog)
}

func TestDecodeLedgerConfigCatalogOnlyKeepsRates(t *testing.T) {
	v := viper.New()
	v.SetConfigType("yml")
	require.NoError(t, v.ReadConfig(strings.NewReader(`ledger:
  catalog:
    menuItems:
      - name: Calzone
        price: 18
        cost: 6
        category: pizza
`)))

	cfg, err := decodeLedgerConfig(v)
	require.NoError(t, err)
	assert.Equal(t, 0.12, cfg.TaxRate)
	assert.Equal(t, 7, cfg.ExpiringSoonDays)
	assert.Equal(t, float64(10), cfg.LowStockThreshold)
	require.Len(t, cfg.Catalog.MenuItems, 1)
}

func TestNewLedgerConfigHolderRejectsInvalidFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "ledger.yml"), []byte("ledger:\n  taxRate: 2\n"), 0o600))
	t.Chdir(dir)

	_, err := NewLedgerConfigHolder(zap.NewNop())
	assert.Error(t, err)
}
