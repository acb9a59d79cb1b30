package metrics

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const (
	OutcomeSuccess = "success"
	OutcomeError   = "error"
)

// Config configures the metrics provider.
type Config struct {
	Enabled          bool
	ExporterEndpoint string
	ExporterProtocol string
	ServiceName      string
	Environment      string
}

// Metrics exposes ledger instruments.
type Metrics struct {
	operations      metric.Int64Counter
	operationTime   metric.Float64Histogram
	writtenPaths    metric.Int64Counter
	liveSubscribers metric.Int64UpDownCounter
}

// NewProvider configures and registers the meter provider.
func NewProvider(lc fx.Lifecycle, cfg Config, log *zap.Logger) (metric.MeterProvider, error) {
	if !cfg.Enabled {
		provider := noop.NewMeterProvider()
		otel.SetMeterProvider(provider)
		return provider, nil
	}

	exporter, err := newExporter(cfg.ExporterProtocol, cfg.ExporterEndpoint)
	if err != nil {
		return nil, err
	}

	reader := sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(10*time.Second))
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	otel.SetMeterProvider(provider)

	if lc != nil {
		lc.Append(fx.Hook{
			OnStop: func(ctx context.Context) error {
				if log != nil {
					log.Info("shutting down meter provider")
				}
				return provider.Shutdown(ctx)
			},
		})
	}

	if log != nil {
		log.Info("metrics initialized",
			zap.String("endpoint", cfg.ExporterEndpoint),
			zap.String("protocol", cfg.ExporterProtocol),
		)
	}

	return provider, nil
}

// New configures the ledger instruments.
func New(cfg Config, provider metric.MeterProvider) (*Metrics, error) {
	name := strings.TrimSpace(cfg.ServiceName)
	if name == "" {
		name = "pizzaledger"
	}
	meter := provider.Meter(name)

	operations, err := meter.Int64Counter("pizzaledger_ledger_operations_total")
	if err != nil {
		return nil, err
	}
	operationTime, err := meter.Float64Histogram("pizzaledger_ledger_operation_duration_seconds", metric.WithUnit("s"))
	if err != nil {
		return nil, err
	}
	writtenPaths, err := meter.Int64Counter("pizzaledger_store_written_paths_total")
	if err != nil {
		return nil, err
	}
	liveSubscribers, err := meter.Int64UpDownCounter("pizzaledger_store_live_subscribers")
	if err != nil {
		return nil, err
	}

	return &Metrics{
		operations:      operations,
		operationTime:   operationTime,
		writtenPaths:    writtenPaths,
		liveSubscribers: liveSubscribers,
	}, nil
}

// RecordOperation counts one compound ledger operation and its latency.
func (m *Metrics) RecordOperation(ctx context.Context, operation string, started time.Time, err error) {
	if m == nil {
		return
	}
	outcome := OutcomeSuccess
	if err != nil {
		outcome = OutcomeError
	}
	attrs := FilterAttributes(
		attribute.String("operation", strings.TrimSpace(operation)),
		attribute.String("outcome", outcome),
	)
	m.operations.Add(ctx, 1, metric.WithAttributes(attrs...))
	m.operationTime.Record(ctx, time.Since(started).Seconds(), metric.WithAttributes(attrs...))
}

// RecordWrite counts the paths an atomic write touched in one collection.
func (m *Metrics) RecordWrite(ctx context.Context, collection string, paths int) {
	if m == nil || paths <= 0 {
		return
	}
	attrs := FilterAttributes(attribute.String("collection", strings.TrimSpace(collection)))
	m.writtenPaths.Add(ctx, int64(paths), metric.WithAttributes(attrs...))
}

// AddLiveSubscribers tracks open live subscriptions per collection.
func (m *Metrics) AddLiveSubscribers(ctx context.Context, collection string, delta int64) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(attribute.String("collection", strings.TrimSpace(collection)))
	m.liveSubscribers.Add(ctx, delta, metric.WithAttributes(attrs...))
}

func newExporter(protocol, endpoint string) (sdkmetric.Exporter, error) {
	protocol = strings.ToLower(strings.TrimSpace(protocol))
	switch protocol {
	case "http", "http/protobuf":
		opts := []otlpmetrichttp.Option{}
		if endpoint != "" {
			opts = append(opts, otlpmetrichttp.WithEndpoint(endpoint))
		}
		return otlpmetrichttp.New(context.Background(), opts...)
	case "grpc", "grpc/protobuf", "":
		opts := []otlpmetricgrpc.Option{otlpmetricgrpc.WithInsecure()}
		if endpoint != "" {
			opts = append(opts, otlpmetricgrpc.WithEndpoint(endpoint))
		}
		return otlpmetricgrpc.New(context.Background(), opts...)
	default:
		return nil, fmt.Errorf("unsupported OTLP protocol %q", protocol)
	}
}

var allowedLabelKeys = map[attribute.Key]struct{}{
	"operation":   {},
	"outcome":     {},
	"collection":  {},
	"endpoint":    {},
	"status_code": {},
	"method":      {},
}

// FilterAttributes strips disallowed labels to keep metrics low-cardinality.
func FilterAttributes(attrs ...attribute.KeyValue) []attribute.KeyValue {
	filtered := make([]attribute.KeyValue, 0, len(attrs))
	for _, attr := range attrs {
		if _, ok := allowedLabelKeys[attr.Key]; !ok {
			continue
		}
		filtered = append(filtered, attr)
	}
	return filtered
}
