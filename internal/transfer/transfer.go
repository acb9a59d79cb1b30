package transfer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/smallbiznis/pizzaledger/internal/archive"
	"github.com/smallbiznis/pizzaledger/internal/clock"
	ledgerdomain "github.com/smallbiznis/pizzaledger/internal/ledger/domain"
	"github.com/smallbiznis/pizzaledger/internal/ledgerstore"
	"go.opentelemetry.io/otel"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const FormatVersion = 1

// Collections lists the collections carried by an export, in document order.
func Collections() []ledgerstore.Collection {
	return []ledgerstore.Collection{
		ledgerstore.CollectionTransactions,
		ledgerstore.CollectionInventory,
		ledgerstore.CollectionMenuItems,
		ledgerstore.CollectionPayroll,
	}
}

// Document is the portable form of the ledger. Records are kept exactly as stored.
type Document struct {
	ExportedAt   time.Time                  `json:"exportedAt"`
	Version      int                        `json:"version"`
	Transactions map[string]json.RawMessage `json:"transactions"`
	Inventory    map[string]json.RawMessage `json:"inventory"`
	MenuItems    map[string]json.RawMessage `json:"menuItems"`
	Payroll      map[string]json.RawMessage `json:"payroll"`
}

type ImportResult struct {
	Replaced map[string]int `json:"replaced"`
}

type ArchiveResult struct {
	Key      string `json:"key"`
	Location string `json:"location"`
	Driver   string `json:"driver"`
}

type Params struct {
	fx.In

	Store *ledgerstore.Store
	Log   *zap.Logger
	Clock clock.Clock  `optional:"true"`
	Sink  archive.Sink `optional:"true"`
}

type Service struct {
	store *ledgerstore.Store
	log   *zap.Logger
	clock clock.Clock
	sink  archive.Sink
}

func NewService(p Params) *Service {
	clk := p.Clock
	if clk == nil {
		clk = clock.NewSystemClock()
	}
	return &Service{
		store: p.Store,
		log:   p.Log.Named("transfer"),
		clock: clk,
		sink:  p.Sink,
	}
}

func (s *Service) Export(ctx context.Context) (*Document, error) {
	ctx, span := otel.Tracer("pizzaledger/transfer").Start(ctx, "transfer.Export")
	defer span.End()

	doc := &Document{ExportedAt: s.clock.Now().UTC(), Version: FormatVersion}
	for _, c := range Collections() {
		snapshot, err := s.store.ReadOnce(ctx, c)
		if err != nil {
			return nil, err
		}
		*doc.slot(c) = map[string]json.RawMessage(snapshot)
	}
	return doc, nil
}

func (d *Document) slot(c ledgerstore.Collection) *map[string]json.RawMessage {
	switch c {
	case ledgerstore.CollectionTransactions:
		return &d.Transactions
	case ledgerstore.CollectionInventory:
		return &d.Inventory
	case ledgerstore.CollectionMenuItems:
		return &d.MenuItems
	default:
		return &d.Payroll
	}
}

// Import replaces every collection present in body with its contents in one atomic write.
// Collections may be given as an object keyed by id or as an array of records carrying "id".
// Collections absent from body are left as they are.
func (s *Service) Import(ctx context.Context, body []byte) (_ *ImportResult, err error) {
	ctx, span := otel.Tracer("pizzaledger/transfer").Start(ctx, "transfer.Import")
	defer span.End()

	if err = s.store.Ping(ctx); err != nil {
		return nil, err
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, ledgerdomain.Invalid("body", "must be a JSON object")
	}

	updates := make(ledgerstore.Updates)
	result := &ImportResult{Replaced: make(map[string]int)}
	for _, c := range Collections() {
		value, ok := raw[string(c)]
		if !ok || isNull(value) {
			continue
		}
		records, err := parseCollection(c, value)
		if err != nil {
			return nil, err
		}
		updates[ledgerstore.CollectionPath(c)] = records
		result.Replaced[string(c)] = len(records)
	}
	if len(updates) == 0 {
		return nil, ledgerdomain.Invalid("body", "contains no ledger collections")
	}

	if err = s.store.AtomicWrite(ctx, updates); err != nil {
		return nil, err
	}
	s.log.Info("ledger imported", zap.Any("replaced", result.Replaced))
	return result, nil
}

func parseCollection(c ledgerstore.Collection, value json.RawMessage) (map[string]json.RawMessage, error) {
	field := string(c)
	records := make(map[string]json.RawMessage)

	trimmed := bytes.TrimSpace(value)
	switch {
	case len(trimmed) > 0 && trimmed[0] == '{':
		if err := json.Unmarshal(trimmed, &records); err != nil {
			return nil, ledgerdomain.Invalid(field, "must map ids to records")
		}
	case len(trimmed) > 0 && trimmed[0] == '[':
		var list []json.RawMessage
		if err := json.Unmarshal(trimmed, &list); err != nil {
			return nil, ledgerdomain.Invalid(field, "must be a list of records")
		}
		for i, record := range list {
			var head struct {
				ID string `json:"id"`
			}
			if err := json.Unmarshal(record, &head); err != nil || strings.TrimSpace(head.ID) == "" {
				return nil, ledgerdomain.Invalid(fmt.Sprintf("%s[%d]", field, i), "record needs an id")
			}
			if _, dup := records[head.ID]; dup {
				return nil, ledgerdomain.Invalid(fmt.Sprintf("%s[%d]", field, i), "duplicate id "+head.ID)
			}
			records[head.ID] = record
		}
	default:
		return nil, ledgerdomain.Invalid(field, "must be an object or a list")
	}

	for id, record := range records {
		if err := ledgerstore.ValidateID(id); err != nil {
			return nil, ledgerdomain.Invalid(field, err.Error())
		}
		if isNull(record) {
			delete(records, id)
			continue
		}
		if err := checkRecord(c, id, record); err != nil {
			return nil, ledgerdomain.Invalid(field+"."+id, err.Error())
		}
	}
	return records, nil
}

// checkRecord makes sure a record decodes into its collection's type.
func checkRecord(c ledgerstore.Collection, id string, record json.RawMessage) error {
	var target any
	switch c {
	case ledgerstore.CollectionTransactions:
		target = &ledgerdomain.Transaction{}
	case ledgerstore.CollectionInventory:
		target = &ledgerdomain.InventoryItem{}
	case ledgerstore.CollectionMenuItems:
		target = &ledgerdomain.MenuItem{}
	default:
		target = &ledgerdomain.PayrollEntry{}
	}
	return ledgerdomain.DecodeRecord(record, id, target)
}

func isNull(raw json.RawMessage) bool {
	return string(bytes.TrimSpace(raw)) == "null"
}

// Archive writes the current export to the configured sink.
func (s *Service) Archive(ctx context.Context) (*ArchiveResult, error) {
	if s.sink == nil {
		return nil, archive.ErrDisabled
	}
	doc, err := s.Export(ctx)
	if err != nil {
		return nil, err
	}
	body, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, err
	}

	key := fmt.Sprintf("%s/ledger-export-%s.json", doc.ExportedAt.Format("2006/01"), doc.ExportedAt.Format("20060102T150405Z"))
	location, err := s.sink.Put(ctx, key, "application/json", body)
	if err != nil {
		return nil, err
	}
	s.log.Info("ledger export archived", zap.String("driver", s.sink.Driver()), zap.String("location", location))
	return &ArchiveResult{Key: key, Location: location, Driver: s.sink.Driver()}, nil
}

func sortedTransactions(snapshot map[string]json.RawMessage) ([]ledgerdomain.Transaction, error) {
	txns, err := ledgerdomain.DecodeTransactions(snapshot)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(txns, func(i, j int) bool {
		if txns[i].Date != txns[j].Date {
			return txns[i].Date > txns[j].Date
		}
		return txns[i].ID > txns[j].ID
	})
	return txns, nil
}
