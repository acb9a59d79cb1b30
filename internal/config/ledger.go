package config

import (
	"errors"
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

const (
	DefaultTaxRate           = 0.12
	DefaultExpiringSoonDays  = 7
	DefaultLowStockThreshold = 10
)

// LedgerConfig carries the bookkeeping rules that operators may tune without a redeploy.
type LedgerConfig struct {
	TaxRate           float64 `mapstructure:"taxRate"`
	ExpiringSoonDays  int     `mapstructure:"expiringSoonDays"`
	LowStockThreshold float64 `mapstructure:"lowStockThreshold"`
	Catalog           Catalog `mapstructure:"catalog"`
}

// Catalog is the menu seeded on first start and on reset.
type Catalog struct {
	MenuItems      []CatalogMenuItem      `mapstructure:"menuItems"`
	Customizations []CatalogCustomization `mapstructure:"customizations"`
}

type CatalogMenuItem struct {
	Name     string  `mapstructure:"name"`
	Price    float64 `mapstructure:"price"`
	Cost     float64 `mapstructure:"cost"`
	Category string  `mapstructure:"category"`
}

type CatalogCustomization struct {
	Name  string  `mapstructure:"name"`
	Price float64 `mapstructure:"price"`
	Cost  float64 `mapstructure:"cost"`
}

func DefaultCatalog() Catalog {
	return Catalog{
		MenuItems: []CatalogMenuItem{
			{Name: "Margherita", Price: 26, Cost: 7.8, Category: "pizza"},
			{Name: "Pepperoni", Price: 29, Cost: 9.1, Category: "pizza"},
			{Name: "Hawaiian", Price: 28, Cost: 8.6, Category: "pizza"},
			{Name: "Veggie Supreme", Price: 27, Cost: 8.2, Category: "pizza"},
			{Name: "Garlic Knots", Price: 9, Cost: 2.1, Category: "other"},
			{Name: "Soda", Price: 3.5, Cost: 0.9, Category: "beverage"},
			{Name: "Sparkling Water", Price: 4, Cost: 1.2, Category: "beverage"},
		},
		Customizations: []CatalogCustomization{
			{Name: "Extra Cheese", Price: 3, Cost: 1.1},
			{Name: "Gluten-Free Crust", Price: 4, Cost: 1.6},
			{Name: "Extra Pepperoni", Price: 3.5, Cost: 1.3},
			{Name: "Mushrooms", Price: 2, Cost: 0.6},
		},
	}
}

func DefaultLedgerConfig() LedgerConfig {
	return LedgerConfig{
		TaxRate:           DefaultTaxRate,
		ExpiringSoonDays:  DefaultExpiringSoonDays,
		LowStockThreshold: DefaultLowStockThreshold,
		Catalog:           DefaultCatalog(),
	}
}

// LedgerConfigHolder serves the current LedgerConfig and swaps it on file changes.
type LedgerConfigHolder struct {
	current atomic.Value // holds LedgerConfig
}

// NewStaticLedgerConfig returns a holder that never reloads.
func NewStaticLedgerConfig(cfg LedgerConfig) *LedgerConfigHolder {
	holder := &LedgerConfigHolder{}
	holder.current.Store(cfg)
	return holder
}

func NewLedgerConfigHolder(log *zap.Logger) (*LedgerConfigHolder, error) {
	if log == nil {
		log = zap.NewNop()
	}
	log = log.Named("config.ledger")

	v := viper.New()
	v.SetConfigName("ledger")
	v.SetConfigType("yml")
	v.AddConfigPath("/var/lib/pizzaledger/config")
	v.AddConfigPath("/etc/pizzaledger")
	v.AddConfigPath(".")

	v.SetEnvPrefix("PIZZALEDGER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	defaults := DefaultLedgerConfig()
	v.SetDefault("ledger.taxRate", defaults.TaxRate)
	v.SetDefault("ledger.expiringSoonDays", defaults.ExpiringSoonDays)
	v.SetDefault("ledger.lowStockThreshold", defaults.LowStockThreshold)

	found := true
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
		found = false
	}

	cfg, err := decodeLedgerConfig(v)
	if err != nil {
		return nil, err
	}

	holder := NewStaticLedgerConfig(cfg)
	if !found {
		log.Info("ledger config file not found, using defaults")
		return holder, nil
	}

	v.WatchConfig()
	v.OnConfigChange(func(e fsnotify.Event) {
		updated, err := decodeLedgerConfig(v)
		if err != nil {
			log.Warn("ledger config reload ignored", zap.String("file", e.Name), zap.Error(err))
			return
		}
		holder.current.Store(updated)
		log.Info("ledger config reloaded", zap.String("file", e.Name))
	})

	return holder, nil
}

func (h *LedgerConfigHolder) Get() LedgerConfig {
	return h.current.Load().(LedgerConfig)
}

func decodeLedgerConfig(v *viper.Viper) (LedgerConfig, error) {
	// UnmarshalKey does not merge nested defaults into a partial file; keys left out stay as set here
	defaults := DefaultLedgerConfig()
	cfg := LedgerConfig{
		TaxRate:           defaults.TaxRate,
		ExpiringSoonDays:  defaults.ExpiringSoonDays,
		LowStockThreshold: defaults.LowStockThreshold,
	}
	if err := v.UnmarshalKey("ledger", &cfg); err != nil {
		return LedgerConfig{}, err
	}
	if len(cfg.Catalog.MenuItems) == 0 && len(cfg.Catalog.Customizations) == 0 {
		cfg.Catalog = DefaultCatalog()
	}
	if err := ValidateLedgerConfig(cfg); err != nil {
		return LedgerConfig{}, err
	}
	return cfg, nil
}

func ValidateLedgerConfig(cfg LedgerConfig) error {
	if cfg.TaxRate < 0 || cfg.TaxRate >= 1 {
		return errors.New("ledger.taxRate must be in [0, 1)")
	}
	if cfg.ExpiringSoonDays < 0 {
		return errors.New("ledger.expiringSoonDays cannot be negative")
	}
	if cfg.LowStockThreshold < 0 {
		return errors.New("ledger.lowStockThreshold cannot be negative")
	}
	for i, item := range cfg.Catalog.MenuItems {
		if strings.TrimSpace(item.Name) == "" {
			return fmt.Errorf("ledger.catalog.menuItems[%d].name is required", i)
		}
		if item.Price <= 0 || item.Cost < 0 {
			return fmt.Errorf("ledger.catalog.menuItems[%d] has invalid price or cost", i)
		}
		switch item.Category {
		case "pizza", "beverage", "other":
		default:
			return fmt.Errorf("ledger.catalog.menuItems[%d].category %q is not supported", i, item.Category)
		}
	}
	for i, item := range cfg.Catalog.Customizations {
		if strings.TrimSpace(item.Name) == "" {
			return fmt.Errorf("ledger.catalog.customizations[%d].name is required", i)
		}
		if item.Price < 0 || item.Cost < 0 {
			return fmt.Errorf("ledger.catalog.customizations[%d] has invalid price or cost", i)
		}
	}
	return nil
}
