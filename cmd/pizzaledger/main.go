package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/pizzaledger/internal/archive"
	"github.com/smallbiznis/pizzaledger/internal/clock"
	"github.com/smallbiznis/pizzaledger/internal/config"
	"github.com/smallbiznis/pizzaledger/internal/ledger"
	"github.com/smallbiznis/pizzaledger/internal/ledgermetrics"
	"github.com/smallbiznis/pizzaledger/internal/ledgerstore"
	"github.com/smallbiznis/pizzaledger/internal/migration"
	"github.com/smallbiznis/pizzaledger/internal/observability"
	"github.com/smallbiznis/pizzaledger/internal/providers"
	"github.com/smallbiznis/pizzaledger/internal/ratelimit"
	"github.com/smallbiznis/pizzaledger/internal/reporting"
	"github.com/smallbiznis/pizzaledger/internal/scheduler"
	"github.com/smallbiznis/pizzaledger/internal/server"
	"github.com/smallbiznis/pizzaledger/internal/transfer"
	"github.com/smallbiznis/pizzaledger/pkg/db"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		// Core Infrastructure
		config.Module,
		observability.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		clock.Module,
		ledgerstore.Module,
		migration.Module,

		// Functional Domains
		ledger.Module,
		reporting.Module,
		archive.Module,
		transfer.Module,
		providers.Module,
		ratelimit.Module,
		ledgermetrics.Module,
		scheduler.Module,

		server.Module,
	)
	app.Run()
}

func RegisterSnowflake(cfg config.Config) (*snowflake.Node, error) {
	return snowflake.NewNode(cfg.NodeID)
}
