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

// Config configures the metrics provider.
type Config struct {
	Enabled          bool
	ExporterEndpoint string
	ExporterProtocol string
	ServiceName      string
	Environment      string
}

// Metrics exposes application-level instruments.
type Metrics struct {
	inboxMessages   metric.Int64Counter
	settlements     metric.Int64Counter
	issues          metric.Int64Counter
	outboxDispatch  metric.Int64Counter
	spotPricePoints metric.Int64Counter
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

// New configures the domain metrics instruments.
func New(cfg Config, provider metric.MeterProvider) (*Metrics, error) {
	name := strings.TrimSpace(cfg.ServiceName)
	if name == "" {
		name = "voltra"
	}
	meter := provider.Meter(name)

	inboxMessages, err := meter.Int64Counter("voltra_inbox_messages_total")
	if err != nil {
		return nil, err
	}
	settlements, err := meter.Int64Counter("voltra_settlements_total")
	if err != nil {
		return nil, err
	}
	issues, err := meter.Int64Counter("voltra_settlement_issues_total")
	if err != nil {
		return nil, err
	}
	outboxDispatch, err := meter.Int64Counter("voltra_outbox_dispatch_total")
	if err != nil {
		return nil, err
	}
	spotPricePoints, err := meter.Int64Counter("voltra_spot_price_points_total")
	if err != nil {
		return nil, err
	}

	return &Metrics{
		inboxMessages:   inboxMessages,
		settlements:     settlements,
		issues:          issues,
		outboxDispatch:  outboxDispatch,
		spotPricePoints: spotPricePoints,
	}, nil
}

// RecordInboxMessage counts a processed inbound market message.
func (m *Metrics) RecordInboxMessage(ctx context.Context, process, result string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(
		attribute.String("process", strings.TrimSpace(process)),
		attribute.String("result", strings.TrimSpace(result)),
	)
	m.inboxMessages.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordSettlement counts a produced settlement by trigger and status.
func (m *Metrics) RecordSettlement(ctx context.Context, trigger, status string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(
		attribute.String("trigger", strings.TrimSpace(trigger)),
		attribute.String("status", strings.TrimSpace(status)),
	)
	m.settlements.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordIssue counts a raised settlement issue.
func (m *Metrics) RecordIssue(ctx context.Context, issueType string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(attribute.String("issue_type", strings.TrimSpace(issueType)))
	m.issues.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordOutboxDispatch counts an outbound dispatch attempt by result.
func (m *Metrics) RecordOutboxDispatch(ctx context.Context, result string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(attribute.String("result", strings.TrimSpace(result)))
	m.outboxDispatch.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordSpotPricePoints counts ingested day-ahead price points per area.
func (m *Metrics) RecordSpotPricePoints(ctx context.Context, priceArea string, count int) {
	if m == nil || count <= 0 {
		return
	}
	attrs := FilterAttributes(attribute.String("price_area", strings.TrimSpace(priceArea)))
	m.spotPricePoints.Add(ctx, int64(count), metric.WithAttributes(attrs...))
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
	"process":     {},
	"result":      {},
	"trigger":     {},
	"status":      {},
	"issue_type":  {},
	"price_area":  {},
	"endpoint":    {},
	"status_code": {},
	"reason":      {},
	"job":         {},
}

// FilterAttributes strips disallowed labels to keep metrics low-cardinality.
// GSRNs, message IDs and customer identifiers never become label values.
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
