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

// Metrics counts ledger traffic and settlement output through otel.
type Metrics struct {
	ledgerEntries   metric.Int64Counter
	ledgerAmount    metric.Int64Counter
	presales        metric.Int64Counter
	slotCompletions metric.Int64Counter
	motivationFund  metric.Int64Counter
	payoutsIssued   metric.Int64Counter
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

// New registers the domain instruments on provider's meter.
func New(cfg Config, provider metric.MeterProvider) (*Metrics, error) {
	name := strings.TrimSpace(cfg.ServiceName)
	if name == "" {
		name = "shiftledger"
	}
	meter := provider.Meter(name)

	m := &Metrics{}
	counters := []struct {
		target *metric.Int64Counter
		name   string
		unit   string
		desc   string
	}{
		{&m.ledgerEntries, "shiftledger_ledger_entries_total", "{entry}", "Posted ledger entries"},
		{&m.ledgerAmount, "shiftledger_ledger_amount_total", "{minor_unit}", "Absolute amount of posted ledger entries"},
		{&m.presales, "shiftledger_presales_total", "{presale}", "Recorded presales"},
		{&m.slotCompletions, "shiftledger_slot_completions_total", "{slot}", "Slot completion reports"},
		{&m.motivationFund, "shiftledger_motivation_fund_amount_total", "{minor_unit}", "Motivation fund of closed days"},
		{&m.payoutsIssued, "shiftledger_payouts_total", "{payout}", "Payout rows of closed days"},
	}
	for _, c := range counters {
		counter, err := meter.Int64Counter(c.name, metric.WithUnit(c.unit), metric.WithDescription(c.desc))
		if err != nil {
			return nil, fmt.Errorf("create %s: %w", c.name, err)
		}
		*c.target = counter
	}
	return m, nil
}

// RecordLedgerEntry counts one posted entry and its absolute amount.
func (m *Metrics) RecordLedgerEntry(ctx context.Context, entryType, method string, amount int64) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(FilterAttributes(
		attribute.String("entry_type", strings.TrimSpace(entryType)),
		attribute.String("method", strings.TrimSpace(method)),
	)...)
	m.ledgerEntries.Add(ctx, 1, attrs)
	if amount < 0 {
		amount = -amount
	}
	if amount > 0 {
		m.ledgerAmount.Add(ctx, amount, attrs)
	}
}

// RecordPresale increments presale counts.
func (m *Metrics) RecordPresale(ctx context.Context, method string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(attribute.String("method", strings.TrimSpace(method)))
	m.presales.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordSlotCompletion counts completion markers; duplicate reports only add to "duplicate".
func (m *Metrics) RecordSlotCompletion(ctx context.Context, duplicate bool) {
	if m == nil {
		return
	}
	result := "recorded"
	if duplicate {
		result = "duplicate"
	}
	m.slotCompletions.Add(ctx, 1, metric.WithAttributes(FilterAttributes(attribute.String("result", result))...))
}

// RecordSettlement adds the day's fund and the number of paid participants.
func (m *Metrics) RecordSettlement(ctx context.Context, mode string, fund int64, payouts int) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(attribute.String("mode", strings.TrimSpace(mode)))
	if fund > 0 {
		m.motivationFund.Add(ctx, fund, metric.WithAttributes(attrs...))
	}
	if payouts > 0 {
		m.payoutsIssued.Add(ctx, int64(payouts), metric.WithAttributes(attrs...))
	}
}

func newExporter(protocol, endpoint string) (sdkmetric.Exporter, error) {
	protocol = strings.ToLower(strings.TrimSpace(protocol))
	switch protocol {
	case "http", "http/protobuf":
		opts := []otlpmetrichttp.Option{otlpmetrichttp.WithInsecure()}
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
	"entry_type": {},
	"method":     {},
	"mode":       {},
	"result":     {},
	"job":        {},
	"reason":     {},
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
