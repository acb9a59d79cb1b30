package service

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/pizzaledger/internal/clock"
	"github.com/smallbiznis/pizzaledger/internal/config"
	ledgerdomain "github.com/smallbiznis/pizzaledger/internal/ledger/domain"
	"github.com/smallbiznis/pizzaledger/internal/ledgerstore"
	obsmetrics "github.com/smallbiznis/pizzaledger/internal/observability/metrics"
	"github.com/smallbiznis/pizzaledger/pkg/db/pagination"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type Params struct {
	fx.In

	Store        *ledgerstore.Store
	Log          *zap.Logger
	GenID        *snowflake.Node
	Clock        clock.Clock                `optional:"true"`
	Location     *time.Location             `optional:"true"`
	LedgerConfig *config.LedgerConfigHolder `optional:"true"`
	ObsMetrics   *obsmetrics.Metrics        `optional:"true"`
}

type Service struct {
	store      *ledgerstore.Store
	log        *zap.Logger
	genID      *snowflake.Node
	clock      clock.Clock
	location   *time.Location
	ledgerCfg  *config.LedgerConfigHolder
	obsMetrics *obsmetrics.Metrics
	tracer     trace.Tracer
}

func NewService(p Params) ledgerdomain.Service {
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
		store:      p.Store,
		log:        p.Log.Named("ledger.service"),
		genID:      p.GenID,
		clock:      clk,
		location:   location,
		ledgerCfg:  ledgerCfg,
		obsMetrics: p.ObsMetrics,
		tracer:     otel.Tracer("pizzaledger/ledger"),
	}
}

func (s *Service) newID() string {
	return s.genID.Generate().String()
}

// now is the wall clock in the pizzeria's zone, so a blank date defaults to the local day.
func (s *Service) now() time.Time {
	return s.clock.Now().In(s.location)
}

// begin opens the span and metric window of one operation.
func (s *Service) begin(ctx context.Context, op string) (context.Context, func(error)) {
	started := time.Now()
	ctx, span := s.tracer.Start(ctx, "ledger."+op)
	return ctx, func(err error) {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, op+" failed")
		}
		span.End()
		s.obsMetrics.RecordOperation(ctx, op, started, err)
	}
}

func (s *Service) RecordSale(ctx context.Context, req ledgerdomain.SaleRequest) (_ *ledgerdomain.SaleResult, err error) {
	ctx, finish := s.begin(ctx, "record_sale")
	defer func() { finish(err) }()

	if err = s.store.Ping(ctx); err != nil {
		return nil, err
	}

	menuItemID, err := requireText("menuItemId", req.MenuItemID)
	if err != nil {
		return nil, err
	}
	if req.Quantity <= 0 {
		return nil, ledgerdomain.Invalid("quantity", "must be greater than zero")
	}
	date, err := eventDate("date", req.Date, s.now())
	if err != nil {
		return nil, err
	}

	item, err := s.getMenuItem(ctx, menuItemID)
	if err != nil {
		return nil, err
	}
	customizations := make([]ledgerdomain.Customization, 0, len(req.CustomizationIDs))
	for _, id := range req.CustomizationIDs {
		custom, err := s.getCustomization(ctx, strings.TrimSpace(id))
		if err != nil {
			return nil, err
		}
		customizations = append(customizations, *custom)
	}

	sale := expandSale(saleInput{
		MenuItem:       *item,
		Customizations: customizations,
		Quantity:       req.Quantity,
		Date:           date,
		IncludesTax:    req.IncludesTax,
		TaxRate:        s.ledgerCfg.Get().TaxRate,
	}, s.newID)

	if err = s.store.AtomicWrite(ctx, saleUpdates(sale)); err != nil {
		return nil, err
	}

	s.log.Info("sale recorded",
		zap.String("sale_id", sale.SaleID),
		zap.String("menu_item_id", item.ID),
		zap.Int("quantity", req.Quantity),
		zap.Bool("includes_tax", req.IncludesTax),
	)
	return &sale, nil
}

func (s *Service) RecordExpense(ctx context.Context, req ledgerdomain.ExpenseRequest) (_ *ledgerdomain.Transaction, err error) {
	ctx, finish := s.begin(ctx, "record_expense")
	defer func() { finish(err) }()

	if err = s.store.Ping(ctx); err != nil {
		return nil, err
	}
	tx, err := validateExpense(req, s.now())
	if err != nil {
		return nil, err
	}
	tx.ID = s.newID()

	if err = s.store.AtomicWrite(ctx, ledgerstore.Updates{txPath(tx.ID): tx}); err != nil {
		return nil, err
	}
	return &tx, nil
}

func (s *Service) RecordInventoryPurchase(ctx context.Context, req ledgerdomain.InventoryRequest) (_ *ledgerdomain.InventoryItem, err error) {
	ctx, finish := s.begin(ctx, "record_inventory_purchase")
	defer func() { finish(err) }()

	if err = s.store.Ping(ctx); err != nil {
		return nil, err
	}
	item, err := validateInventory(req, s.now())
	if err != nil {
		return nil, err
	}
	item.ID = s.newID()
	item.TransactionID = s.newID()

	if err = s.store.AtomicWrite(ctx, inventoryUpdates(item)); err != nil {
		return nil, err
	}

	s.log.Info("inventory purchase recorded",
		zap.String("inventory_id", item.ID),
		zap.String("transaction_id", item.TransactionID),
	)
	return &item, nil
}

func (s *Service) RecordPayroll(ctx context.Context, req ledgerdomain.PayrollRequest) (_ *ledgerdomain.PayrollEntry, err error) {
	ctx, finish := s.begin(ctx, "record_payroll")
	defer func() { finish(err) }()

	if err = s.store.Ping(ctx); err != nil {
		return nil, err
	}
	entry, err := validatePayroll(req, s.now())
	if err != nil {
		return nil, err
	}
	entry.ID = s.newID()
	entry.TransactionID = s.newID()

	if err = s.store.AtomicWrite(ctx, payrollUpdates(entry)); err != nil {
		return nil, err
	}

	s.log.Info("payroll recorded",
		zap.String("payroll_id", entry.ID),
		zap.String("transaction_id", entry.TransactionID),
	)
	return &entry, nil
}

func (s *Service) UpdateInventoryItem(ctx context.Context, id string, req ledgerdomain.InventoryRequest) (_ *ledgerdomain.InventoryItem, err error) {
	ctx, finish := s.begin(ctx, "update_inventory_item")
	defer func() { finish(err) }()

	if err = s.store.Ping(ctx); err != nil {
		return nil, err
	}
	next, err := validateInventory(req, s.now())
	if err != nil {
		return nil, err
	}
	current, err := s.getInventoryItem(ctx, id)
	if err != nil {
		return nil, err
	}
	if current.TransactionID == "" {
		return nil, ledgerdomain.NotFound("inventory item", current.ID)
	}
	next.ID = current.ID
	next.TransactionID = current.TransactionID

	if err = s.store.AtomicWrite(ctx, inventoryUpdates(next)); err != nil {
		return nil, err
	}
	return &next, nil
}

func (s *Service) UpdatePayrollEntry(ctx context.Context, id string, req ledgerdomain.PayrollRequest) (_ *ledgerdomain.PayrollEntry, err error) {
	ctx, finish := s.begin(ctx, "update_payroll_entry")
	defer func() { finish(err) }()

	if err = s.store.Ping(ctx); err != nil {
		return nil, err
	}
	next, err := validatePayroll(req, s.now())
	if err != nil {
		return nil, err
	}
	current, err := s.getPayrollEntry(ctx, id)
	if err != nil {
		return nil, err
	}
	if current.TransactionID == "" {
		return nil, ledgerdomain.NotFound("payroll entry", current.ID)
	}
	next.ID = current.ID
	next.TransactionID = current.TransactionID

	if err = s.store.AtomicWrite(ctx, payrollUpdates(next)); err != nil {
		return nil, err
	}
	return &next, nil
}

func (s *Service) UpdateTransaction(ctx context.Context, id string, req ledgerdomain.ExpenseRequest) (_ *ledgerdomain.Transaction, err error) {
	ctx, finish := s.begin(ctx, "update_transaction")
	defer func() { finish(err) }()

	if err = s.store.Ping(ctx); err != nil {
		return nil, err
	}
	next, err := validateExpense(req, s.now())
	if err != nil {
		return nil, err
	}
	current, err := s.getTransaction(ctx, id)
	if err != nil {
		return nil, err
	}
	if !ledgerdomain.CanEditTransaction(*current) {
		return nil, ledgerdomain.Invalid("transaction", "is managed by the record that generated it and cannot be edited directly")
	}

	current.Amount = next.Amount
	current.Description = next.Description
	current.Category = next.Category
	current.Date = next.Date

	if err = s.store.AtomicWrite(ctx, ledgerstore.Updates{txPath(current.ID): *current}); err != nil {
		return nil, err
	}
	return current, nil
}

func (s *Service) DeleteTransaction(ctx context.Context, id string) (_ *ledgerdomain.CascadeResult, err error) {
	ctx, finish := s.begin(ctx, "delete_transaction")
	defer func() { finish(err) }()

	if err = s.store.Ping(ctx); err != nil {
		return nil, err
	}
	target, err := s.getTransaction(ctx, id)
	if err != nil {
		return nil, err
	}

	var (
		transactions []ledgerdomain.Transaction
		inventory    []ledgerdomain.InventoryItem
		payroll      []ledgerdomain.PayrollEntry
	)
	if target.SaleID != "" {
		if transactions, err = s.readTransactions(ctx); err != nil {
			return nil, err
		}
	}
	switch target.Category {
	case ledgerdomain.CategoryInventoryPurchase:
		if inventory, err = s.readInventory(ctx); err != nil {
			return nil, err
		}
	case ledgerdomain.CategoryPayroll:
		if payroll, err = s.readPayroll(ctx); err != nil {
			return nil, err
		}
	}

	plan := transactionCascade(*target, transactions, inventory, payroll)
	if err = s.store.AtomicWrite(ctx, plan.updates()); err != nil {
		return nil, err
	}

	result := plan.result()
	s.log.Info("transaction deleted",
		zap.String("transaction_id", target.ID),
		zap.Int("transactions", len(result.Transactions)),
		zap.Int("inventory", len(result.Inventory)),
		zap.Int("payroll", len(result.Payroll)),
	)
	return result, nil
}

func (s *Service) DeleteInventoryItem(ctx context.Context, id string) (_ *ledgerdomain.CascadeResult, err error) {
	ctx, finish := s.begin(ctx, "delete_inventory_item")
	defer func() { finish(err) }()

	if err = s.store.Ping(ctx); err != nil {
		return nil, err
	}
	item, err := s.getInventoryItem(ctx, id)
	if err != nil {
		return nil, err
	}
	plan := inventoryCascade(*item)
	if err = s.store.AtomicWrite(ctx, plan.updates()); err != nil {
		return nil, err
	}
	return plan.result(), nil
}

func (s *Service) DeletePayrollEntry(ctx context.Context, id string) (_ *ledgerdomain.CascadeResult, err error) {
	ctx, finish := s.begin(ctx, "delete_payroll_entry")
	defer func() { finish(err) }()

	if err = s.store.Ping(ctx); err != nil {
		return nil, err
	}
	entry, err := s.getPayrollEntry(ctx, id)
	if err != nil {
		return nil, err
	}
	plan := payrollCascade(*entry)
	if err = s.store.AtomicWrite(ctx, plan.updates()); err != nil {
		return nil, err
	}
	return plan.result(), nil
}

func (s *Service) ResetAllData(ctx context.Context) (err error) {
	ctx, finish := s.begin(ctx, "reset_all_data")
	defer func() { finish(err) }()

	if err = s.store.Ping(ctx); err != nil {
		return err
	}

	catalog := s.ledgerCfg.Get().Catalog
	updates := CatalogUpdates(catalog, s.newID)
	updates[ledgerstore.CollectionPath(ledgerstore.CollectionTransactions)] = nil
	updates[ledgerstore.CollectionPath(ledgerstore.CollectionInventory)] = nil
	updates[ledgerstore.CollectionPath(ledgerstore.CollectionPayroll)] = nil

	if err = s.store.AtomicWrite(ctx, updates); err != nil {
		return err
	}

	s.log.Warn("ledger reset",
		zap.Int("menu_items", len(catalog.MenuItems)),
		zap.Int("customizations", len(catalog.Customizations)),
	)
	return nil
}

func (s *Service) GetTransaction(ctx context.Context, id string) (*ledgerdomain.TransactionView, error) {
	tx, err := s.getTransaction(ctx, id)
	if err != nil {
		return nil, err
	}
	return &ledgerdomain.TransactionView{Transaction: *tx, Editable: ledgerdomain.CanEditTransaction(*tx)}, nil
}

func (s *Service) ListTransactions(ctx context.Context, req ledgerdomain.ListTransactionsRequest) ([]ledgerdomain.TransactionView, pagination.PageInfo, error) {
	transactions, err := s.readTransactions(ctx)
	if err != nil {
		return nil, pagination.PageInfo{}, err
	}

	txType := strings.ToLower(strings.TrimSpace(req.Type))
	category := strings.TrimSpace(req.Category)
	views := make([]ledgerdomain.TransactionView, 0, len(transactions))
	for _, t := range transactions {
		if txType != "" && string(t.Type) != txType {
			continue
		}
		if category != "" && !strings.EqualFold(t.Category, category) {
			continue
		}
		views = append(views, ledgerdomain.TransactionView{Transaction: t, Editable: ledgerdomain.CanEditTransaction(t)})
	}
	sort.SliceStable(views, func(i, j int) bool {
		if views[i].Date != views[j].Date {
			return views[i].Date > views[j].Date
		}
		return views[i].ID > views[j].ID
	})

	page, info, err := pagination.Page(views, req.Pagination, func(v ledgerdomain.TransactionView) pagination.Cursor {
		return pagination.Cursor{ID: v.ID, Date: v.Date}
	})
	if err != nil {
		return nil, pagination.PageInfo{}, ledgerdomain.Invalid("page_token", "is not valid")
	}
	return page, info, nil
}

func (s *Service) ListInventory(ctx context.Context) ([]ledgerdomain.InventoryItem, error) {
	items, err := s.readInventory(ctx)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(items, func(i, j int) bool {
		if items[i].PurchaseDate != items[j].PurchaseDate {
			return items[i].PurchaseDate > items[j].PurchaseDate
		}
		return items[i].ID > items[j].ID
	})
	return items, nil
}

func (s *Service) ListPayroll(ctx context.Context) ([]ledgerdomain.PayrollEntry, error) {
	entries, err := s.readPayroll(ctx)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].PayDate != entries[j].PayDate {
			return entries[i].PayDate > entries[j].PayDate
		}
		return entries[i].ID > entries[j].ID
	})
	return entries, nil
}

func (s *Service) ListMenuItems(ctx context.Context) ([]ledgerdomain.MenuItem, error) {
	snapshot, err := s.store.ReadOnce(ctx, ledgerstore.CollectionMenuItems)
	if err != nil {
		return nil, err
	}
	items, err := ledgerdomain.DecodeMenuItems(snapshot)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(items, func(i, j int) bool {
		if items[i].Category != items[j].Category {
			return items[i].Category < items[j].Category
		}
		return items[i].Name < items[j].Name
	})
	return items, nil
}

func (s *Service) CreateMenuItem(ctx context.Context, req ledgerdomain.MenuItemRequest) (_ *ledgerdomain.MenuItem, err error) {
	ctx, finish := s.begin(ctx, "create_menu_item")
	defer func() { finish(err) }()

	if err = s.store.Ping(ctx); err != nil {
		return nil, err
	}
	item, err := validateMenuItem(req)
	if err != nil {
		return nil, err
	}
	item.ID = s.newID()
	if err = s.store.AtomicWrite(ctx, ledgerstore.Updates{menuItemPath(item.ID): item}); err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *Service) UpdateMenuItem(ctx context.Context, id string, req ledgerdomain.MenuItemRequest) (_ *ledgerdomain.MenuItem, err error) {
	ctx, finish := s.begin(ctx, "update_menu_item")
	defer func() { finish(err) }()

	if err = s.store.Ping(ctx); err != nil {
		return nil, err
	}
	item, err := validateMenuItem(req)
	if err != nil {
		return nil, err
	}
	current, err := s.getMenuItem(ctx, id)
	if err != nil {
		return nil, err
	}
	item.ID = current.ID
	if err = s.store.AtomicWrite(ctx, ledgerstore.Updates{menuItemPath(item.ID): item}); err != nil {
		return nil, err
	}
	return &item, nil
}

// DeleteMenuItem leaves recorded sales untouched; they captured their own amounts.
func (s *Service) DeleteMenuItem(ctx context.Context, id string) (err error) {
	ctx, finish := s.begin(ctx, "delete_menu_item")
	defer func() { finish(err) }()

	if err = s.store.Ping(ctx); err != nil {
		return err
	}
	current, err := s.getMenuItem(ctx, id)
	if err != nil {
		return err
	}
	return s.store.AtomicWrite(ctx, ledgerstore.Updates{menuItemPath(current.ID): nil})
}

func (s *Service) ListCustomizations(ctx context.Context) ([]ledgerdomain.Customization, error) {
	snapshot, err := s.store.ReadOnce(ctx, ledgerstore.CollectionCustomizations)
	if err != nil {
		return nil, err
	}
	items, err := ledgerdomain.DecodeCustomizations(snapshot)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(items, func(i, j int) bool { return items[i].Name < items[j].Name })
	return items, nil
}

func (s *Service) CreateCustomization(ctx context.Context, req ledgerdomain.CustomizationRequest) (_ *ledgerdomain.Customization, err error) {
	ctx, finish := s.begin(ctx, "create_customization")
	defer func() { finish(err) }()

	if err = s.store.Ping(ctx); err != nil {
		return nil, err
	}
	custom, err := validateCustomization(req)
	if err != nil {
		return nil, err
	}
	custom.ID = s.newID()
	if err = s.store.AtomicWrite(ctx, ledgerstore.Updates{customizationPath(custom.ID): custom}); err != nil {
		return nil, err
	}
	return &custom, nil
}

func (s *Service) UpdateCustomization(ctx context.Context, id string, req ledgerdomain.CustomizationRequest) (_ *ledgerdomain.Customization, err error) {
	ctx, finish := s.begin(ctx, "update_customization")
	defer func() { finish(err) }()

	if err = s.store.Ping(ctx); err != nil {
		return nil, err
	}
	custom, err := validateCustomization(req)
	if err != nil {
		return nil, err
	}
	current, err := s.getCustomization(ctx, id)
	if err != nil {
		return nil, err
	}
	custom.ID = current.ID
	if err = s.store.AtomicWrite(ctx, ledgerstore.Updates{customizationPath(custom.ID): custom}); err != nil {
		return nil, err
	}
	return &custom, nil
}

func (s *Service) DeleteCustomization(ctx context.Context, id string) (err error) {
	ctx, finish := s.begin(ctx, "delete_customization")
	defer func() { finish(err) }()

	if err = s.store.Ping(ctx); err != nil {
		return err
	}
	current, err := s.getCustomization(ctx, id)
	if err != nil {
		return err
	}
	return s.store.AtomicWrite(ctx, ledgerstore.Updates{customizationPath(current.ID): nil})
}

func (s *Service) CheckIntegrity(ctx context.Context) (_ *ledgerdomain.IntegrityReport, err error) {
	ctx, finish := s.begin(ctx, "check_integrity")
	defer func() { finish(err) }()

	transactions, err := s.readTransactions(ctx)
	if err != nil {
		return nil, err
	}
	inventory, err := s.readInventory(ctx)
	if err != nil {
		return nil, err
	}
	payroll, err := s.readPayroll(ctx)
	if err != nil {
		return nil, err
	}

	report := checkIntegrity(transactions, inventory, payroll)
	if !report.Healthy {
		s.log.Warn("ledger integrity violations found", zap.Int("violations", len(report.Violations)))
	}
	return report, nil
}

func (s *Service) readTransactions(ctx context.Context) ([]ledgerdomain.Transaction, error) {
	snapshot, err := s.store.ReadOnce(ctx, ledgerstore.CollectionTransactions)
	if err != nil {
		return nil, err
	}
	return ledgerdomain.DecodeTransactions(snapshot)
}

func (s *Service) readInventory(ctx context.Context) ([]ledgerdomain.InventoryItem, error) {
	snapshot, err := s.store.ReadOnce(ctx, ledgerstore.CollectionInventory)
	if err != nil {
		return nil, err
	}
	return ledgerdomain.DecodeInventory(snapshot)
}

func (s *Service) readPayroll(ctx context.Context) ([]ledgerdomain.PayrollEntry, error) {
	snapshot, err := s.store.ReadOnce(ctx, ledgerstore.CollectionPayroll)
	if err != nil {
		return nil, err
	}
	return ledgerdomain.DecodePayroll(snapshot)
}

func (s *Service) getTransaction(ctx context.Context, id string) (*ledgerdomain.Transaction, error) {
	var tx ledgerdomain.Transaction
	id, err := s.readRecord(ctx, ledgerstore.CollectionTransactions, "transaction", id, &tx)
	if err != nil {
		return nil, err
	}
	tx.ID = id
	return &tx, nil
}

func (s *Service) getMenuItem(ctx context.Context, id string) (*ledgerdomain.MenuItem, error) {
	var item ledgerdomain.MenuItem
	id, err := s.readRecord(ctx, ledgerstore.CollectionMenuItems, "menu item", id, &item)
	if err != nil {
		return nil, err
	}
	item.ID = id
	return &item, nil
}

func (s *Service) getCustomization(ctx context.Context, id string) (*ledgerdomain.Customization, error) {
	var custom ledgerdomain.Customization
	id, err := s.readRecord(ctx, ledgerstore.CollectionCustomizations, "customization", id, &custom)
	if err != nil {
		return nil, err
	}
	custom.ID = id
	return &custom, nil
}

func (s *Service) getInventoryItem(ctx context.Context, id string) (*ledgerdomain.InventoryItem, error) {
	var item ledgerdomain.InventoryItem
	id, err := s.readRecord(ctx, ledgerstore.CollectionInventory, "inventory item", id, &item)
	if err != nil {
		return nil, err
	}
	item.ID = id
	return &item, nil
}

func (s *Service) getPayrollEntry(ctx context.Context, id string) (*ledgerdomain.PayrollEntry, error) {
	var entry ledgerdomain.PayrollEntry
	id, err := s.readRecord(ctx, ledgerstore.CollectionPayroll, "payroll entry", id, &entry)
	if err != nil {
		return nil, err
	}
	entry.ID = id
	return &entry, nil
}

// readRecord resolves one record. Ids that can never be stored resolve to NotFound.
func (s *Service) readRecord(ctx context.Context, c ledgerstore.Collection, entity, id string, out any) (string, error) {
	id = strings.TrimSpace(id)
	if err := ledgerstore.ValidateID(id); err != nil {
		return "", ledgerdomain.NotFound(entity, id)
	}
	raw, err := s.store.ReadDocument(ctx, c, id)
	if errors.Is(err, ledgerstore.ErrDocumentNotFound) {
		return "", ledgerdomain.NotFound(entity, id)
	}
	if err != nil {
		return "", err
	}
	if err := ledgerdomain.DecodeRecord(raw, id, out); err != nil {
		return "", err
	}
	return id, nil
}

func menuItemPath(id string) ledgerstore.Path {
	return ledgerstore.DocPath(ledgerstore.CollectionMenuItems, id)
}

func customizationPath(id string) ledgerstore.Path {
	return ledgerstore.DocPath(ledgerstore.CollectionCustomizations, id)
}
