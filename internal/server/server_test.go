package server

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/pizzaledger/internal/clock"
	"github.com/smallbiznis/pizzaledger/internal/config"
	ledgerservice "github.com/smallbiznis/pizzaledger/internal/ledger/service"
	"github.com/smallbiznis/pizzaledger/internal/ledgerstore"
	"github.com/smallbiznis/pizzaledger/internal/ledgerstore/storetest"
	"github.com/smallbiznis/pizzaledger/internal/observability"
	"github.com/smallbiznis/pizzaledger/internal/ratelimit"
	reportingservice "github.com/smallbiznis/pizzaledger/internal/reporting/service"
	"github.com/smallbiznis/pizzaledger/internal/transfer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var testNow = time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)

func newTestServer(t *testing.T, store *ledgerstore.Store) *gin.Engine {
	t.Helper()
	return newGuardedTestServer(t, store, nil)
}

func newGuardedTestServer(t *testing.T, store *ledgerstore.Store, guard *ratelimit.Guard) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	clk := clock.NewFakeClock(testNow)
	ledgerCfg := config.NewStaticLedgerConfig(config.DefaultLedgerConfig())
	log := zap.NewNop()

	engine := NewEngine(observability.Config{Environment: "production", LogLevel: "info"}, nil)
	srv := NewServer(ServerParams{
		Gin:   engine,
		Cfg:   config.Config{AppName: "pizzaledger"},
		Log:   log,
		Clock: clk,
		Store: store,
		LedgerSvc: ledgerservice.NewService(ledgerservice.Params{
			Store:        store,
			Log:          log,
			GenID:        node,
			Clock:        clk,
			LedgerConfig: ledgerCfg,
		}),
		ReportingSvc: reportingservice.NewService(reportingservice.Params{
			Store:        store,
			Log:          log,
			Clock:        clk,
			LedgerConfig: ledgerCfg,
		}),
		TransferSvc: transfer.NewService(transfer.Params{Store: store, Log: log, Clock: clk}),
		Guard:       guard,
	})
	srv.RegisterRoutes()
	return engine
}

type envelope struct {
	Data  json.RawMessage `json:"data"`
	Error *errorPayload   `json:"error"`
}

func do(t *testing.T, engine http.Handler, method, path string, body any) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)

	var env envelope
	if strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json") && rec.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	}
	return rec, env
}

func createMenuItem(t *testing.T, engine http.Handler) string {
	t.Helper()
	rec, env := do(t, engine, http.MethodPost, "/api/menu-items", map[string]any{
		"name": "Margherita", "price": 26, "cost": 7.8, "category": "pizza",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var item struct {
		ID string `json:"id"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &item))
	require.NotEmpty(t, item.ID)
	return item.ID
}

func TestRecordSaleAndCascadeOverHTTP(t *testing.T) {
	store, _ := storetest.New(t)
	engine := newTestServer(t, store)
	menuItemID := createMenuItem(t, engine)

	rec, env := do(t, engine, http.MethodPost, "/api/sales", map[string]any{
		"menuItemId": menuItemID, "quantity": 2, "includesTax": true,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var sale struct {
		SaleID  string `json:"saleId"`
		Revenue struct {
			Amount float64 `json:"amount"`
			Date   string  `json:"date"`
		} `json:"revenue"`
		COGS struct {
			ID     string  `json:"id"`
			Amount float64 `json:"amount"`
		} `json:"cogs"`
		Tax *struct {
			Amount float64 `json:"amount"`
		} `json:"tax"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &sale))
	assert.InDelta(t, 46.43, sale.Revenue.Amount, 0.005)
	assert.InDelta(t, 15.60, sale.COGS.Amount, 0.005)
	require.NotNil(t, sale.Tax)
	assert.InDelta(t, 5.57, sale.Tax.Amount, 0.005)
	assert.Equal(t, "2024-03-15", sale.Revenue.Date)

	rec, env = do(t, engine, http.MethodGet, "/api/transactions", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var listed []struct {
		ID       string `json:"id"`
		Editable bool   `json:"editable"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &listed))
	require.Len(t, listed, 3)
	for _, tx := range listed {
		assert.False(t, tx.Editable)
	}

	rec, env = do(t, engine, http.MethodDelete, "/api/transactions/"+sale.COGS.ID, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var removed struct {
		Transactions []string `json:"transactions"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &removed))
	assert.Len(t, removed.Transactions, 3)

	rec, env = do(t, engine, http.MethodGet, "/api/transactions", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(env.Data, &listed))
	assert.Empty(t, listed)
}

func TestValidationErrorsMapTo400(t *testing.T) {
	store, _ := storetest.New(t)
	engine := newTestServer(t, store)
	menuItemID := createMenuItem(t, engine)

	rec, env := do(t, engine, http.MethodPost, "/api/sales", map[string]any{
		"menuItemId": menuItemID, "quantity": 0,
	})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.NotNil(t, env.Error)
	assert.Equal(t, "validation_error", env.Error.Type)
	require.Len(t, env.Error.Errors, 1)
	assert.Equal(t, "quantity", env.Error.Errors[0].Field)

	req := httptest.NewRequest(http.MethodPost, "/api/expenses", strings.NewReader("{not json"))
	req.Header.Set("Content-Type", "application/json")
	raw := httptest.NewRecorder()
	engine.ServeHTTP(raw, req)
	assert.Equal(t, http.StatusBadRequest, raw.Code)
}

func TestUnknownReferencesMapTo404(t *testing.T) {
	store, _ := storetest.New(t)
	engine := newTestServer(t, store)

	rec, env := do(t, engine, http.MethodPost, "/api/sales", map[string]any{"menuItemId": "missing", "quantity": 1})
	require.Equal(t, http.StatusNotFound, rec.Code)
	require.NotNil(t, env.Error)
	assert.Equal(t, "not_found", env.Error.Type)

	rec, _ = do(t, engine, http.MethodDelete, "/api/inventory/missing", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec, _ = do(t, engine, http.MethodGet, "/api/transactions/missing", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestInventoryPurchaseOverHTTP(t *testing.T) {
	store, _ := storetest.New(t)
	engine := newTestServer(t, store)

	rec, env := do(t, engine, http.MethodPost, "/api/inventory", map[string]any{
		"name": "Mozzarella", "quantity": 10, "unit": "kg", "totalCost": 80,
		"purchaseDate": "2024-03-10", "expiryDate": "2024-03-20",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var item struct {
		ID            string `json:"id"`
		TransactionID string `json:"transactionId"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &item))
	require.NotEmpty(t, item.TransactionID)

	rec, env = do(t, engine, http.MethodGet, "/api/reports/inventory", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var lines []struct {
		ID     string `json:"id"`
		Status string `json:"status"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &lines))
	require.Len(t, lines, 1)
	assert.Equal(t, "expiring_soon", lines[0].Status)

	rec, env = do(t, engine, http.MethodDelete, "/api/inventory/"+item.ID, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var removed struct {
		Transactions []string `json:"transactions"`
		Inventory    []string `json:"inventory"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &removed))
	assert.Equal(t, []string{item.TransactionID}, removed.Transactions)
	assert.Equal(t, []string{item.ID}, removed.Inventory)
}

func TestResetRequiresConfirmation(t *testing.T) {
	store, _ := storetest.New(t)
	engine := newTestServer(t, store)
	createMenuItem(t, engine)

	rec, env := do(t, engine, http.MethodPost, "/api/reset", map[string]any{"confirm": "yes"})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.NotNil(t, env.Error)
	assert.Equal(t, "confirm", env.Error.Errors[0].Field)

	rec, _ = do(t, engine, http.MethodPost, "/api/reset", map[string]any{"confirm": "DELETE"})
	require.Equal(t, http.StatusOK, rec.Code)

	rec, env = do(t, engine, http.MethodGet, "/api/menu-items", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var items []json.RawMessage
	require.NoError(t, json.Unmarshal(env.Data, &items))
	assert.Len(t, items, len(config.DefaultCatalog().MenuItems))
}

func TestDisconnectedStoreMapsTo503(t *testing.T) {
	engine := newTestServer(t, storetest.Disconnected())

	rec, _ := do(t, engine, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	rec, env := do(t, engine, http.MethodPost, "/api/expenses", map[string]any{
		"amount": 10, "description": "Napkins", "category": "Supplies",
	})
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	require.NotNil(t, env.Error)
	assert.Equal(t, "not_connected", env.Error.Type)
}

func TestWriteFailureMapsTo502(t *testing.T) {
	store, db := storetest.New(t)
	engine := newTestServer(t, store)
	storetest.FailWrites(t, db, assert.AnError)

	rec, env := do(t, engine, http.MethodPost, "/api/expenses", map[string]any{
		"amount": 10, "description": "Napkins", "category": "Supplies",
	})
	require.Equal(t, http.StatusBadGateway, rec.Code)
	require.NotNil(t, env.Error)
	assert.Equal(t, "write_failure", env.Error.Type)
}

func TestHealthReportsConnectedStore(t *testing.T) {
	store, _ := storetest.New(t)
	engine := newTestServer(t, store)

	rec, _ := do(t, engine, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"connected"`)
}

func TestExportFormats(t *testing.T) {
	store, _ := storetest.New(t)
	engine := newTestServer(t, store)

	rec, _ := do(t, engine, http.MethodPost, "/api/expenses", map[string]any{
		"amount": 12.5, "description": "Napkins", "category": "Supplies", "date": "2024-03-01",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec, _ = do(t, engine, http.MethodGet, "/api/export/transactions.csv", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/csv; charset=utf-8", rec.Header().Get("Content-Type"))
	rows := strings.Split(strings.TrimSpace(rec.Body.String()), "\n")
	require.Len(t, rows, 2)
	assert.Equal(t, "ID,Type,Date,Description,Category,Amount", rows[0])
	assert.True(t, strings.HasSuffix(rows[1], ",expense,2024-03-01,Napkins,Supplies,12.50"), rows[1])

	rec, _ = do(t, engine, http.MethodGet, "/api/export", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var doc transfer.Document
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &doc))
	assert.Len(t, doc.Transactions, 1)

	rec, _ = do(t, engine, http.MethodGet, "/api/reports/pnl.pdf", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/pdf", rec.Header().Get("Content-Type"))
	assert.True(t, bytes.HasPrefix(rec.Body.Bytes(), []byte("%PDF")))
}

func TestArchiveWithoutSinkIsUnavailable(t *testing.T) {
	store, _ := storetest.New(t)
	engine := newTestServer(t, store)

	rec, env := do(t, engine, http.MethodPost, "/api/export/archive", nil)
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	require.NotNil(t, env.Error)
	assert.Equal(t, "archive_disabled", env.Error.Type)
}

func TestLiveStreamRejectsUnknownCollection(t *testing.T) {
	store, _ := storetest.New(t)
	engine := newTestServer(t, store)

	rec, env := do(t, engine, http.MethodGet, "/api/live/customers", nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.NotNil(t, env.Error)
	assert.Equal(t, "collection", env.Error.Errors[0].Field)
}

func TestLiveStreamSendsSnapshots(t *testing.T) {
	store, _ := storetest.New(t)
	engine := newTestServer(t, store)
	ts := httptest.NewServer(engine)
	defer ts.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ts.URL+"/api/live/menuItems", nil)
	require.NoError(t, err)
	resp, err := ts.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	reader := bufio.NewReader(resp.Body)
	next := func() map[string]json.RawMessage {
		for {
			line, err := reader.ReadString('\n')
			require.NoError(t, err)
			if !strings.HasPrefix(line, "data: ") {
				continue
			}
			var event struct {
				Collection string                     `json:"collection"`
				Snapshot   map[string]json.RawMessage `json:"snapshot"`
			}
			require.NoError(t, json.Unmarshal([]byte(strings.TrimPrefix(line, "data: ")), &event))
			require.Equal(t, "menuItems", event.Collection)
			return event.Snapshot
		}
	}

	assert.Empty(t, next())

	menuItemID := createMenuItem(t, engine)
	snapshot := next()
	assert.Contains(t, snapshot, menuItemID)
}

func TestGuardFailureBlocksMutationsOnly(t *testing.T) {
	store, _ := storetest.New(t)
	guard, err := ratelimit.NewGuard(config.Config{RateLimit: config.RateLimitConfig{
		Enabled:       true,
		RedisAddr:     "127.0.0.1:1",
		MutationRate:  1,
		MutationBurst: 1,
		BulkLockTTL:   time.Second,
	}}, zap.NewNop())
	require.NoError(t, err)
	engine := newGuardedTestServer(t, store, guard)

	rec, _ := do(t, engine, http.MethodGet, "/api/menu-items", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec, env := do(t, engine, http.MethodPost, "/api/expenses", map[string]any{
		"amount": 10, "description": "Napkins", "category": "Supplies",
	})
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	require.NotNil(t, env.Error)
	assert.Equal(t, "service_unavailable", env.Error.Type)
}
