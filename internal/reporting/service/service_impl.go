package service

import (
	"context"
	"strings"
	"time"

	"github.com/smallbiznis/pizzaledger/internal/clock"
	"github.com/smallbiznis/pizzaledger/internal/config"
	ledgerdomain "github.com/smallbiznis/pizzaledger/internal/ledger/domain"
	"github.com/smallbiznis/pizzaledger/internal/ledgerstore"
	reportingdomain "github.com/smallbiznis/pizzaledger/internal/reporting/domain"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type Params struct {
	fx.In

	Store        *ledgerstore.Store
	Log          *zap.Logger
	Clock        clock.Clock                `optional:"true"`
	Location     *time.Location             `optional:"true"`
	LedgerConfig *config.LedgerConfigHolder `optional:"true"`
}

type Service struct {
	store     *ledgerstore.Store
	log       *zap.Logger
	clock     clock.Clock
	location  *time.Location
	ledgerCfg *config.LedgerConfigHolder
	tracer    trace.Tracer
}

func NewService(p Params) reportingdomain.Service {
	clk := p.Clock
	if clk == nil {
		clk = clock.NewSystemClock()
	}
	location := p.Location
	if location == nil {
		location = time.UTC
	}
	ledgerCfg := p.LedgerConfig
	if ledgerCfg == nil {
		ledgerCfg = config.NewStaticLedgerConfig(config.DefaultLedgerConfig())
	}
	return &Service{
		store:     p.Store,
		log:       p.Log.Named("reporting.service"),
		clock:     clk,
		location:  location,
		ledgerCfg: ledgerCfg,
		tracer:    otel.Tracer("pizzaledger/reporting"),
	}
}

func (s *Service) ProfitAndLoss(ctx context.Context, req reportingdomain.PeriodRequest) (*reportingdomain.ProfitAndLoss, error) {
	ctx, span := s.tracer.Start(ctx, "reporting.ProfitAndLoss")
	defer span.End()

	period, err := normalizePeriod(req)
	if err != nil {
		return nil, err
	}
	transactions, err := s.transactions(ctx)
	if err != nil {
		return nil, err
	}
	return profitAndLoss(transactions, period), nil
}

func (s *Service) Profitability(ctx context.Context, req reportingdomain.PeriodRequest) ([]reportingdomain.ItemProfitability, error) {
	ctx, span := s.tracer.Start(ctx, "reporting.Profitability")
	defer span.End()

	period, err := normalizePeriod(req)
	if err != nil {
		return nil, err
	}
	snapshot, err := s.store.ReadOnce(ctx, ledgerstore.CollectionMenuItems)
	if err != nil {
		return nil, err
	}
	items, err := ledgerdomain.DecodeMenuItems(snapshot)
	if err != nil {
		return nil, err
	}
	transactions, err := s.transactions(ctx)
	if err != nil {
		return nil, err
	}
	return profitability(items, transactions, period), nil
}

func (s *Service) InventoryStatus(ctx context.Context) ([]reportingdomain.InventoryLine, error) {
	ctx, span := s.tracer.Start(ctx, "reporting.InventoryStatus")
	defer span.End()

	snapshot, err := s.store.ReadOnce(ctx, ledgerstore.CollectionInventory)
	if err != nil {
		return nil, err
	}
	items, err := ledgerdomain.DecodeInventory(snapshot)
	if err != nil {
		return nil, err
	}

	rules := s.ledgerCfg.Get()
	lines := inventoryStatus(items, s.clock.Now().In(s.location), inventoryThresholds{
		ExpiringSoonDays: rules.ExpiringSoonDays,
		LowStock:         rules.LowStockThreshold,
	})
	for _, line := range lines {
		if line.DaysToExpiry == nil {
			s.log.Warn("inventory item has unreadable expiry date", zap.String("inventory_id", line.ID), zap.String("expiry_date", line.ExpiryDate))
		}
	}
	return lines, nil
}

func (s *Service) transactions(ctx context.Context) ([]ledgerdomain.Transaction, error) {
	snapshot, err := s.store.ReadOnce(ctx, ledgerstore.CollectionTransactions)
	if err != nil {
		return nil, err
	}
	return ledgerdomain.DecodeTransactions(snapshot)
}

func normalizePeriod(req reportingdomain.PeriodRequest) (reportingdomain.PeriodRequest, error) {
	var out reportingdomain.PeriodRequest
	if from := strings.TrimSpace(req.From); from != "" {
		t, err := ledgerdomain.ParseDate(from)
		if err != nil {
			return out, ledgerdomain.Invalid("from", err.Error())
		}
		out.From = ledgerdomain.FormatDate(t)
	}
	if to := strings.TrimSpace(req.To); to != "" {
		t, err := ledgerdomain.ParseDate(to)
		if err != nil {
			return out, ledgerdomain.Invalid("to", err.Error())
		}
		out.To = ledgerdomain.FormatDate(t)
	}
	if out.From != "" && out.To != "" && out.From > out.To {
		return out, ledgerdomain.Invalid("from", "must not be after to")
	}
	return out, nil
}
