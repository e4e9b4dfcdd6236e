package metrics

import (
	"fmt"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func TestInventoryMetricsExportsCountersAndHistogram(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := NewInventoryMetrics(reg)

	metrics.ObservePurchase(OutcomeSuccess, 30)
	metrics.ObservePurchase(OutcomeInsufficient, 1000)
	metrics.ObserveStockWrite("create")
	metrics.ObserveCatalogCall("check_availability", "available", 250*time.Millisecond)

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}

	if got, err := fetchCounterValue(mfs, "inventory_purchases_total", "outcome", OutcomeSuccess); err != nil {
		t.Fatalf("fetch success: %v", err)
	} else if got != 1 {
		t.Fatalf("expected success=1, got %f", got)
	}

	if got, err := fetchCounterValue(mfs, "inventory_purchases_total", "outcome", OutcomeInsufficient); err != nil {
		t.Fatalf("fetch insufficient: %v", err)
	} else if got != 1 {
		t.Fatalf("expected insufficient=1, got %f", got)
	}

	units := findMetricFamily(mfs, "inventory_purchased_units_total")
	if units == nil || len(units.GetMetric()) != 1 {
		t.Fatalf("purchased units metric missing")
	}
	if got := units.GetMetric()[0].GetCounter().GetValue(); got != 30 {
		t.Fatalf("expected 30 purchased units, got %f", got)
	}

	if got, err := fetchCounterValue(mfs, "inventory_stock_writes_total", "operation", "create"); err != nil {
		t.Fatalf("fetch stock writes: %v", err)
	} else if got != 1 {
		t.Fatalf("expected create=1, got %f", got)
	}

	if got, err := fetchHistogramSum(mfs, "catalog_request_duration_seconds", "operation", "check_availability"); err != nil {
		t.Fatalf("fetch duration: %v", err)
	} else if got <= 0 {
		t.Fatalf("expected duration sum > 0, got %f", got)
	}
}

func TestInventoryMetricsNilSafe(t *testing.T) {
	var nilMetrics *InventoryMetrics
	nilMetrics.ObservePurchase(OutcomeSuccess, 1)
	nilMetrics.ObserveStockWrite("update")
	nilMetrics.ObserveCatalogCall("resolve_name", "fallback", time.Millisecond)

	noop := NewInventoryMetrics(nil)
	noop.ObservePurchase(OutcomeError, 0)
}

func fetchCounterValue(mfs []*dto.MetricFamily, name, label, value string) (float64, error) {
	mf := findMetricFamily(mfs, name)
	if mf == nil {
		return 0, fmt.Errorf("metric %q not found", name)
	}
	for _, metric := range mf.GetMetric() {
		if matchesLabel(metric.GetLabel(), label, value) {
			return metric.GetCounter().GetValue(), nil
		}
	}
	return 0, fmt.Errorf("metric %q missing label %s=%s", name, label, value)
}

func fetchHistogramSum(mfs []*dto.MetricFamily, name, label, value string) (float64, error) {
	mf := findMetricFamily(mfs, name)
	if mf == nil {
		return 0, fmt.Errorf("metric %q not found", name)
	}
	for _, metric := range mf.GetMetric() {
		if matchesLabel(metric.GetLabel(), label, value) {
			return metric.GetHistogram().GetSampleSum(), nil
		}
	}
	return 0, fmt.Errorf("histogram %q missing label %s=%s", name, label, value)
}

func findMetricFamily(mfs []*dto.MetricFamily, name string) *dto.MetricFamily {
	for _, mf := range mfs {
		if mf.GetName() == name {
			return mf
		}
	}
	return nil
}

func matchesLabel(labels []*dto.LabelPair, name, value string) bool {
	for _, label := range labels {
		if label.GetName() == name && label.GetValue() == value {
			return true
		}
	}
	return false
}
