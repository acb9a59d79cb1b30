package ledgerstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/smallbiznis/pizzaledger/internal/config"
	"github.com/smallbiznis/pizzaledger/internal/ledgerstore/liveevents"
	obsmetrics "github.com/smallbiznis/pizzaledger/internal/observability/metrics"
	"github.com/smallbiznis/pizzaledger/pkg/db"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const defaultWriteTimeout = 10 * time.Second

// Updates is one atomic multi-path write. A nil value deletes the path. A collection path
// replaces the whole collection with the given id-to-record map (nil empties it).
type Updates map[Path]any

type Params struct {
	fx.In

	DB         *gorm.DB `optional:"true"`
	Cfg        config.Config
	Log        *zap.Logger
	Hub        *liveevents.Hub
	Notifier   Notifier
	ObsMetrics *obsmetrics.Metrics `optional:"true"`
}

type Store struct {
	db           *gorm.DB
	log          *zap.Logger
	hub          *liveevents.Hub
	notifier     Notifier
	obsMetrics   *obsmetrics.Metrics
	writeTimeout time.Duration
	refreshMu    map[Collection]*sync.Mutex
}

func New(p Params) *Store {
	log := p.Log
	if log == nil {
		log = zap.NewNop()
	}
	hub := p.Hub
	if hub == nil {
		hub = liveevents.NewHub()
	}
	notifier := p.Notifier
	if notifier == nil {
		notifier = NewLocalNotifier()
	}
	timeout := p.Cfg.Store.WriteTimeout
	if timeout <= 0 {
		timeout = defaultWriteTimeout
	}

	refreshMu := make(map[Collection]*sync.Mutex, len(Collections()))
	for _, c := range Collections() {
		refreshMu[c] = &sync.Mutex{}
	}

	return &Store{
		db:           p.DB,
		log:          log.Named("ledgerstore"),
		hub:          hub,
		notifier:     notifier,
		obsMetrics:   p.ObsMetrics,
		writeTimeout: timeout,
		refreshMu:    refreshMu,
	}
}

// Start begins relaying committed changes to live subscribers.
func (s *Store) Start(ctx context.Context) error {
	return s.notifier.Start(ctx, s.refresh)
}

// Stop ends all live subscriptions.
func (s *Store) Stop(context.Context) error {
	err := s.notifier.Close()
	s.hub.Close()
	return err
}

// Ping fails with ErrNotConnected when the database is missing or unreachable.
func (s *Store) Ping(ctx context.Context) error {
	if s == nil || s.db == nil {
		return ErrNotConnected
	}
	sqlDB, err := s.db.DB()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrNotConnected, err)
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		return fmt.Errorf("%w: %v", ErrNotConnected, err)
	}
	return nil
}

func (s *Store) ReadOnce(ctx context.Context, c Collection) (Snapshot, error) {
	if err := s.Ping(ctx); err != nil {
		return nil, err
	}
	if _, err := ParseCollection(string(c)); err != nil {
		return nil, err
	}

	var docs []Document
	if err := s.db.WithContext(ctx).Where("collection = ?", string(c)).Order("id").Find(&docs).Error; err != nil {
		return nil, readError(fmt.Sprintf("read %s", c), err)
	}
	snapshot := make(Snapshot, len(docs))
	for _, doc := range docs {
		snapshot[doc.ID] = json.RawMessage(doc.Payload)
	}
	return snapshot, nil
}

func (s *Store) ReadDocument(ctx context.Context, c Collection, id string) (json.RawMessage, error) {
	if err := s.Ping(ctx); err != nil {
		return nil, err
	}
	if _, _, err := DocPath(c, id).Split(); err != nil {
		return nil, err
	}

	var docs []Document
	err := s.db.WithContext(ctx).
		Where("collection = ? AND id = ?", string(c), id).
		Limit(1).
		Find(&docs).Error
	if err != nil {
		return nil, readError(fmt.Sprintf("read %s/%s", c, id), err)
	}
	if len(docs) == 0 {
		return nil, ErrDocumentNotFound
	}
	return json.RawMessage(docs[0].Payload), nil
}

type writePlan struct {
	replaced map[Collection][]Document
	upserts  []Document
	deletes  []Document
	touched  map[Collection]int
}

// AtomicWrite applies every path in one database transaction. Either all paths are written
// or none are.
func (s *Store) AtomicWrite(ctx context.Context, updates Updates) error {
	if len(updates) == 0 {
		return nil
	}
	if err := s.Ping(ctx); err != nil {
		return err
	}

	plan, err := planWrite(updates, time.Now().UTC())
	if err != nil {
		return err
	}

	ctx, span := otel.Tracer("pizzaledger/ledgerstore").Start(ctx, "ledgerstore.AtomicWrite")
	defer span.End()
	span.SetAttributes(attribute.Int("ledger.paths", len(updates)))

	writeCtx, cancel := context.WithTimeout(ctx, s.writeTimeout)
	defer cancel()

	err = s.db.WithContext(writeCtx).Transaction(func(tx *gorm.DB) error {
		for _, c := range sortedCollections(plan.replaced) {
			if err := tx.Where("collection = ?", string(c)).Delete(&Document{}).Error; err != nil {
				return err
			}
			if docs := plan.replaced[c]; len(docs) > 0 {
				if err := tx.CreateInBatches(&docs, 200).Error; err != nil {
					return err
				}
			}
		}
		for _, doc := range plan.deletes {
			if err := tx.Where("collection = ? AND id = ?", doc.Collection, doc.ID).Delete(&Document{}).Error; err != nil {
				return err
			}
		}
		if len(plan.upserts) > 0 {
			err := tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "collection"}, {Name: "id"}},
				DoUpdates: clause.AssignmentColumns([]string{"payload", "updated_at"}),
			}).Create(&plan.upserts).Error
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "write rejected")
		s.log.Warn("atomic write rejected",
			zap.Int("paths", len(updates)),
			zap.Bool("timeout", db.IsTimeoutErr(err)),
			zap.Error(err),
		)
		if db.IsUnavailableErr(err) {
			return fmt.Errorf("%w: %v", ErrNotConnected, err)
		}
		return fmt.Errorf("%w: %v", ErrWriteFailure, err)
	}

	changed := make([]Collection, 0, len(plan.touched))
	for _, c := range Collections() {
		if n, ok := plan.touched[c]; ok {
			changed = append(changed, c)
			s.obsMetrics.RecordWrite(ctx, string(c), n)
		}
	}
	if err := s.notifier.Notify(ctx, changed); err != nil {
		s.log.Warn("change notification failed", zap.Error(err))
	}
	return nil
}

func readError(op string, err error) error {
	if db.IsUnavailableErr(err) {
		return fmt.Errorf("%w: %s: %v", ErrNotConnected, op, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}

func planWrite(updates Updates, now time.Time) (*writePlan, error) {
	plan := &writePlan{
		replaced: make(map[Collection][]Document),
		touched:  make(map[Collection]int),
	}
	seen := make(map[Path]struct{}, len(updates))
	docCollections := make(map[Collection]struct{})

	paths := make([]Path, 0, len(updates))
	for p := range updates {
		paths = append(paths, p)
	}
	sort.Slice(paths, func(i, j int) bool { return paths[i] < paths[j] })

	for _, p := range paths {
		c, id, err := p.Split()
		if err != nil {
			return nil, err
		}
		normalized := DocPath(c, id)
		if id == "" {
			normalized = CollectionPath(c)
		}
		if _, dup := seen[normalized]; dup {
			return nil, fmt.Errorf("%w: %s given twice", ErrOverlappingPaths, normalized)
		}
		seen[normalized] = struct{}{}

		value := updates[p]
		if id == "" {
			docs, err := collectionDocuments(c, value, now)
			if err != nil {
				return nil, err
			}
			plan.replaced[c] = docs
			plan.touched[c] += len(docs) + 1
			continue
		}

		docCollections[c] = struct{}{}
		plan.touched[c]++
		if value == nil {
			plan.deletes = append(plan.deletes, Document{Collection: string(c), ID: id})
			continue
		}
		payload, err := json.Marshal(value)
		if err != nil {
			return nil, fmt.Errorf("%w: encode %s: %v", ErrInvalidPath, p, err)
		}
		if string(payload) == "null" {
			plan.deletes = append(plan.deletes, Document{Collection: string(c), ID: id})
			continue
		}
		plan.upserts = append(plan.upserts, Document{Collection: string(c), ID: id, Payload: payload, UpdatedAt: now})
	}

	for c := range plan.replaced {
		if _, ok := docCollections[c]; ok {
			return nil, fmt.Errorf("%w: %s is replaced and written in the same update", ErrOverlappingPaths, c)
		}
	}
	return plan, nil
}

func collectionDocuments(c Collection, value any, now time.Time) ([]Document, error) {
	if value == nil {
		return nil, nil
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return nil, fmt.Errorf("%w: encode %s: %v", ErrInvalidPath, c, err)
	}
	var records map[string]json.RawMessage
	if err := json.Unmarshal(raw, &records); err != nil {
		return nil, fmt.Errorf("%w: %s must be an object keyed by id", ErrInvalidPath, c)
	}

	ids := make([]string, 0, len(records))
	for id := range records {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	docs := make([]Document, 0, len(ids))
	for _, id := range ids {
		if err := ValidateID(id); err != nil {
			return nil, err
		}
		payload := records[id]
		if string(payload) == "null" {
			continue
		}
		docs = append(docs, Document{Collection: string(c), ID: id, Payload: []byte(payload), UpdatedAt: now})
	}
	return docs, nil
}

func sortedCollections(m map[Collection][]Document) []Collection {
	out := make([]Collection, 0, len(m))
	for _, c := range Collections() {
		if _, ok := m[c]; ok {
			out = append(out, c)
		}
	}
	return out
}

// Subscription streams full snapshots of one collection, starting with the current one.
type Subscription struct {
	inner   *liveevents.Subscription
	onClose func()
	once    sync.Once
}

func (s *Subscription) Events() <-chan liveevents.Event {
	return s.inner.Events()
}

func (s *Subscription) Close() {
	s.once.Do(func() {
		s.inner.Close()
		if s.onClose != nil {
			s.onClose()
		}
	})
}

func (s *Store) Subscribe(ctx context.Context, c Collection) (*Subscription, error) {
	if _, err := ParseCollection(string(c)); err != nil {
		return nil, err
	}
	if err := s.Ping(ctx); err != nil {
		return nil, err
	}

	mu := s.refreshMu[c]
	mu.Lock()
	defer mu.Unlock()

	inner, err := s.hub.Subscribe(string(c))
	if err != nil {
		return nil, err
	}
	snapshot, err := s.ReadOnce(ctx, c)
	if err != nil {
		inner.Close()
		return nil, err
	}
	inner.Offer(liveevents.Event{Collection: string(c), Snapshot: snapshot, PublishedAt: time.Now().UTC()})

	s.obsMetrics.AddLiveSubscribers(ctx, string(c), 1)
	return &Subscription{
		inner: inner,
		onClose: func() {
			s.obsMetrics.AddLiveSubscribers(context.Background(), string(c), -1)
		},
	}, nil
}

// refresh publishes the collection's current snapshot. Refreshes of one collection are
// serialized so subscribers never observe an older snapshot after a newer one.
func (s *Store) refresh(ctx context.Context, c Collection) {
	mu, ok := s.refreshMu[c]
	if !ok || !s.hub.HasSubscribers(string(c)) {
		return
	}
	mu.Lock()
	defer mu.Unlock()

	snapshot, err := s.ReadOnce(ctx, c)
	if err != nil {
		if !errors.Is(err, context.Canceled) {
			s.log.Warn("snapshot refresh failed", zap.String("collection", string(c)), zap.Error(err))
		}
		return
	}
	s.hub.Publish(string(c), liveevents.Event{Collection: string(c), Snapshot: snapshot, PublishedAt: time.Now().UTC()})
}
