package metrics

import (
	"context"
	"testing"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func TestFilterAttributesDropsForbiddenLabels(t *testing.T) {
	attrs := FilterAttributes(
		attribute.String("entry_type", "SALE_ACCEPTED_CASH"),
		attribute.String("seller_id", "456"),
		attribute.String("method", "CASH"),
	)
	if len(attrs) != 2 {
		t.Fatalf("expected 2 attributes, got %d", len(attrs))
	}
	if attrs[0].Key != "entry_type" && attrs[1].Key != "entry_type" {
		t.Fatalf("expected entry_type to be retained")
	}
	if attrs[0].Key != "method" && attrs[1].Key != "method" {
		t.Fatalf("expected method to be retained")
	}
}

func TestNilMetricsAreSafe(t *testing.T) {
	var m *Metrics
	m.RecordLedgerEntry(context.Background(), "SALE_ACCEPTED_CASH", "CASH", 1500)
	m.RecordSettlement(context.Background(), "adaptive", 1000, 2)
}

func TestNewWithNoopProvider(t *testing.T) {
	m, err := New(Config{ServiceName: "shiftledger"}, noop.NewMeterProvider())
	if err != nil {
		t.Fatalf("new metrics: %v", err)
	}
	m.RecordPresale(context.Background(), "MIXED")
	m.RecordSlotCompletion(context.Background(), true)
}

func TestRecordLedgerEntryCountsAbsoluteAmount(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	m, err := New(Config{ServiceName: "shiftledger"}, provider)
	if err != nil {
		t.Fatalf("new metrics: %v", err)
	}

	ctx := context.Background()
	m.RecordLedgerEntry(ctx, "SALE_ACCEPTED_CASH", "CASH", 60000)
	m.RecordLedgerEntry(ctx, "SALE_CANCEL_REVERSE", "CASH", -5000)

	var rm metricdata.ResourceMetrics
	if err := reader.Collect(ctx, &rm); err != nil {
		t.Fatalf("collect: %v", err)
	}
	totals := map[string]int64{}
	for _, scope := range rm.ScopeMetrics {
		for _, mm := range scope.Metrics {
			sum, ok := mm.Data.(metricdata.Sum[int64])
			if !ok {
				continue
			}
			for _, dp := range sum.DataPoints {
				totals[mm.Name] += dp.Value
			}
		}
	}
	if totals["shiftledger_ledger_entries_total"] != 2 {
		t.Fatalf("expected 2 entries, got %d", totals["shiftledger_ledger_entries_total"])
	}
	if totals["shiftledger_ledger_amount_total"] != 65000 {
		t.Fatalf("expected amount 65000, got %d", totals["shiftledger_ledger_amount_total"])
	}
}
