package ledgermetrics

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang/snappy"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/prometheus/prometheus/prompb"
	"github.com/smallbiznis/pizzaledger/internal/config"
	ledgerdomain "github.com/smallbiznis/pizzaledger/internal/ledger/domain"
	"github.com/smallbiznis/pizzaledger/internal/ledgerstore"
	"github.com/smallbiznis/pizzaledger/internal/ledgerstore/storetest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/protoadapt"
)

func seedLedger(t *testing.T, store *ledgerstore.Store) {
	t.Helper()
	require.NoError(t, store.AtomicWrite(context.Background(), ledgerstore.Updates{
		ledgerstore.DocPath(ledgerstore.CollectionTransactions, "t1"): ledgerdomain.Transaction{
			ID: "t1", Type: ledgerdomain.TransactionTypeRevenue, Date: "2024-03-01", Amount: 46.43, Description: "Sale", Category: "Sales",
		},
		ledgerstore.DocPath(ledgerstore.CollectionTransactions, "t2"): ledgerdomain.Transaction{
			ID: "t2", Type: ledgerdomain.TransactionTypeExpense, Date: "2024-03-01", Amount: 12.5, Description: "Napkins", Category: "Supplies",
		},
		ledgerstore.DocPath(ledgerstore.CollectionMenuItems, "m1"): ledgerdomain.MenuItem{ID: "m1", Name: "Margherita", Price: 26},
	}))
}

func TestNewPusherSelectsExporter(t *testing.T) {
	log := zap.NewNop()

	assert.Nil(t, NewPusher(config.Config{}, log))
	assert.Nil(t, NewPusher(config.Config{Metrics: config.MetricsPushConfig{Exporter: ExporterRemoteWrite}}, log))
	assert.Nil(t, NewPusher(config.Config{Metrics: config.MetricsPushConfig{Exporter: ExporterRemoteWrite, Endpoint: "not a url"}}, log))
	assert.Nil(t, NewPusher(config.Config{Metrics: config.MetricsPushConfig{Exporter: "statsd", Endpoint: "http://x"}}, log))

	p := NewPusher(config.Config{Metrics: config.MetricsPushConfig{Exporter: ExporterRemoteWrite, Endpoint: "http://collector/api/v1/write"}}, log)
	assert.IsType(t, &RemoteWritePusher{}, p)

	p = NewPusher(config.Config{AppName: "pizzaledger", Metrics: config.MetricsPushConfig{Exporter: ExporterPushgateway, Endpoint: "http://pushgateway:9091"}}, log)
	assert.IsType(t, &PushgatewayPusher{}, p)
}

func TestReporterCollectsLedgerGauges(t *testing.T) {
	store, _ := storetest.New(t)
	seedLedger(t, store)

	r := NewReporter(store, nil, config.Config{AppName: "pizzaledger"}, zap.NewNop())
	require.NoError(t, r.Collect(context.Background()))

	assert.Equal(t, float64(2), testutil.ToFloat64(r.documents.WithLabelValues("transactions")))
	assert.Equal(t, float64(1), testutil.ToFloat64(r.documents.WithLabelValues("menuItems")))
	assert.Equal(t, float64(0), testutil.ToFloat64(r.documents.WithLabelValues("payroll")))
	assert.Equal(t, float64(1), testutil.ToFloat64(r.transactions.WithLabelValues("expense", "Supplies")))
	assert.InDelta(t, 46.43, testutil.ToFloat64(r.amounts.WithLabelValues("revenue")), 1e-9)
	assert.InDelta(t, 12.5, testutil.ToFloat64(r.amounts.WithLabelValues("expense")), 1e-9)
}

func TestReporterWithoutPusherIsDisabled(t *testing.T) {
	r := NewReporter(storetest.Disconnected(), nil, config.Config{}, zap.NewNop())
	assert.False(t, r.Enabled())
	assert.NoError(t, r.Push(context.Background()))
}

func TestReporterCollectFailsWhenDisconnected(t *testing.T) {
	r := NewReporter(storetest.Disconnected(), nil, config.Config{}, zap.NewNop())
	assert.ErrorIs(t, r.Collect(context.Background()), ledgerstore.ErrNotConnected)
}

func TestRemoteWritePushSendsSnappyProtobuf(t *testing.T) {
	var (
		received prompb.WriteRequest
		headers  http.Header
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		headers = r.Header.Clone()
		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		payload, err := snappy.Decode(nil, body)
		require.NoError(t, err)
		require.NoError(t, proto.Unmarshal(payload, protoadapt.MessageV2Of(&received)))
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	store, _ := storetest.New(t)
	seedLedger(t, store)

	pusher := NewRemoteWritePusher(srv.URL, "secret")
	pusher.now = func() time.Time { return time.UnixMilli(1710504000000) }
	r := NewReporter(store, pusher, config.Config{AppName: "pizzaledger", Environment: "test"}, zap.NewNop())

	require.NoError(t, r.Push(context.Background()))
	assert.Equal(t, "snappy", headers.Get("Content-Encoding"))
	assert.Equal(t, "Bearer secret", headers.Get("Authorization"))

	var found bool
	for _, ts := range received.Timeseries {
		labels := map[string]string{}
		for _, l := range ts.Labels {
			labels[l.Name] = l.Value
		}
		if labels["__name__"] == "pizzaledger_ledger_documents" && labels["collection"] == "transactions" {
			found = true
			require.Len(t, ts.Samples, 1)
			assert.Equal(t, float64(2), ts.Samples[0].Value)
			assert.Equal(t, int64(1710504000000), ts.Samples[0].Timestamp)
			assert.Equal(t, "test", labels["env"])
		}
	}
	assert.True(t, found)
	assert.Equal(t, float64(1), testutil.ToFloat64(r.pushes.WithLabelValues("ok")))
}

func TestRemoteWritePushReportsCollectorErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	store, _ := storetest.New(t)
	r := NewReporter(store, NewRemoteWritePusher(srv.URL, ""), config.Config{}, zap.NewNop())

	err := r.Push(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "502")
	assert.Equal(t, float64(1), testutil.ToFloat64(r.pushes.WithLabelValues("error")))
}
