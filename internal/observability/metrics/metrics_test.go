package metrics

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric/noop"
)

func TestFilterAttributesDropsForbiddenLabels(t *testing.T) {
	attrs := FilterAttributes(
		attribute.String("operation", "record_sale"),
		attribute.String("transaction_id", "456"),
		attribute.String("collection", "transactions"),
	)
	if len(attrs) != 2 {
		t.Fatalf("expected 2 attributes, got %d", len(attrs))
	}
	if attrs[0].Key != "operation" {
		t.Fatalf("expected operation to be retained")
	}
	if attrs[1].Key != "collection" {
		t.Fatalf("expected collection to be retained")
	}
}

func TestMetricsRecordOnNoopProvider(t *testing.T) {
	m, err := New(Config{ServiceName: "test"}, noop.NewMeterProvider())
	require.NoError(t, err)

	ctx := context.Background()
	m.RecordOperation(ctx, "record_sale", time.Now(), nil)
	m.RecordOperation(ctx, "record_sale", time.Now(), errors.New("boom"))
	m.RecordWrite(ctx, "transactions", 3)
	m.AddLiveSubscribers(ctx, "inventory", 1)

	var nilMetrics *Metrics
	nilMetrics.RecordOperation(ctx, "record_sale", time.Now(), nil)
}

func TestHTTPMiddlewareCountsRequests(t *testing.T) {
	gin.SetMode(gin.TestMode)
	registry := prometheus.NewRegistry()
	m := newHTTPMetrics(registry, Config{ServiceName: "test", Environment: "test"})

	r := gin.New()
	r.Use(GinMiddleware(m))
	r.GET("/health", func(c *gin.Context) { c.Status(http.StatusOK) })

	for i := 0; i < 2; i++ {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/health", nil))
	}

	assert.Equal(t, float64(2), testutil.ToFloat64(m.requests.WithLabelValues("/health", http.MethodGet, "200")))
}
