package ledgermetrics

import (
	"context"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/smallbiznis/pizzaledger/internal/config"
	ledgerdomain "github.com/smallbiznis/pizzaledger/internal/ledger/domain"
	"github.com/smallbiznis/pizzaledger/internal/ledgerstore"
	"go.uber.org/zap"
)

// Reporter keeps a private registry of ledger gauges and pushes it on demand.
type Reporter struct {
	store    *ledgerstore.Store
	pusher   Pusher
	registry *prometheus.Registry
	log      *zap.Logger

	documents    *prometheus.GaugeVec
	transactions *prometheus.GaugeVec
	amounts      *prometheus.GaugeVec
	pushes       *prometheus.CounterVec
}

func NewReporter(store *ledgerstore.Store, pusher Pusher, cfg config.Config, log *zap.Logger) *Reporter {
	if log == nil {
		log = zap.NewNop()
	}
	constLabels := prometheus.Labels{
		"service": labelOrDefault(cfg.AppName, "pizzaledger"),
		"env":     labelOrDefault(cfg.Environment, "unknown"),
		"version": labelOrDefault(cfg.AppVersion, "unknown"),
	}

	r := &Reporter{
		store:    store,
		pusher:   pusher,
		registry: prometheus.NewRegistry(),
		log:      log.Named("ledgermetrics"),
		documents: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name:        "pizzaledger_ledger_documents",
			Help:        "Records stored per ledger collection.",
			ConstLabels: constLabels,
		}, []string{"collection"}),
		transactions: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name:        "pizzaledger_ledger_transactions",
			Help:        "Transactions by type and category.",
			ConstLabels: constLabels,
		}, []string{"type", "category"}),
		amounts: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name:        "pizzaledger_ledger_amount_total",
			Help:        "Sum of transaction amounts by type.",
			ConstLabels: constLabels,
		}, []string{"type"}),
		pushes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "pizzaledger_metrics_pushes_total",
			Help:        "Metric pushes by result.",
			ConstLabels: constLabels,
		}, []string{"result"}),
	}
	r.registry.MustRegister(r.documents, r.transactions, r.amounts, r.pushes)
	return r
}

// Enabled reports whether an exporter is configured.
func (r *Reporter) Enabled() bool {
	return r != nil && r.pusher != nil
}

func (r *Reporter) Registry() *prometheus.Registry {
	return r.registry
}

// Collect refreshes the gauges from the current ledger contents.
func (r *Reporter) Collect(ctx context.Context) error {
	for _, c := range ledgerstore.Collections() {
		snapshot, err := r.store.ReadOnce(ctx, c)
		if err != nil {
			return err
		}
		r.documents.WithLabelValues(string(c)).Set(float64(len(snapshot)))

		if c != ledgerstore.CollectionTransactions {
			continue
		}
		txns, err := ledgerdomain.DecodeTransactions(snapshot)
		if err != nil {
			return err
		}
		r.transactions.Reset()
		r.amounts.Reset()
		r.amounts.WithLabelValues(string(ledgerdomain.TransactionTypeRevenue)).Set(0)
		r.amounts.WithLabelValues(string(ledgerdomain.TransactionTypeExpense)).Set(0)
		for _, t := range txns {
			r.transactions.WithLabelValues(string(t.Type), labelOrDefault(t.Category, "uncategorized")).Inc()
			r.amounts.WithLabelValues(string(t.Type)).Add(t.Amount)
		}
	}
	return nil
}

// Push refreshes the gauges and ships them through the configured exporter.
func (r *Reporter) Push(ctx context.Context) error {
	if !r.Enabled() {
		return nil
	}
	if err := r.Collect(ctx); err != nil {
		return err
	}
	if err := r.pusher.Push(ctx, r.registry); err != nil {
		r.pushes.WithLabelValues("error").Inc()
		return err
	}
	r.pushes.WithLabelValues("ok").Inc()
	r.log.Debug("ledger metrics pushed")
	return nil
}

func labelOrDefault(value, def string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return def
	}
	return value
}
