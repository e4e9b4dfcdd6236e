package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Purchase outcomes.
const (
	OutcomeSuccess      = "success"
	OutcomeInsufficient = "insufficient_stock"
	OutcomeNotFound     = "not_found"
	OutcomeError        = "error"
)

// InventoryMetrics records stock writes, purchases and catalog calls.
type InventoryMetrics struct {
	purchases       *prometheus.CounterVec
	purchasedUnits  prometheus.Counter
	stockWrites     *prometheus.CounterVec
	catalogDuration *prometheus.HistogramVec
}

// NewInventoryMetrics registers the inventory metrics on the provided registerer.
// A nil registerer yields a no-op recorder.
func NewInventoryMetrics(reg prometheus.Registerer) *InventoryMetrics {
	if reg == nil {
		return &InventoryMetrics{}
	}
	purchases := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "inventory_purchases_total",
		Help: "Purchase attempts by outcome.",
	}, []string{"outcome"})
	purchasedUnits := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "inventory_purchased_units_total",
		Help: "Units decremented by successful purchases.",
	})
	stockWrites := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "inventory_stock_writes_total",
		Help: "Stock records created or replaced.",
	}, []string{"operation"})
	catalogDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "catalog_request_duration_seconds",
		Help:    "Duration of product catalog calls in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation", "outcome"})
	reg.MustRegister(purchases, purchasedUnits, stockWrites, catalogDuration)
	return &InventoryMetrics{
		purchases:       purchases,
		purchasedUnits:  purchasedUnits,
		stockWrites:     stockWrites,
		catalogDuration: catalogDuration,
	}
}

// ObservePurchase counts a purchase attempt; units only count on success.
func (m *InventoryMetrics) ObservePurchase(outcome string, units int) {
	if m == nil || m.purchases == nil {
		return
	}
	m.purchases.WithLabelValues(normalizeLabel(outcome)).Inc()
	if outcome == OutcomeSuccess && units > 0 {
		m.purchasedUnits.Add(float64(units))
	}
}

// ObserveStockWrite counts a create or update of a stock record.
func (m *InventoryMetrics) ObserveStockWrite(operation string) {
	if m == nil || m.stockWrites == nil {
		return
	}
	m.stockWrites.WithLabelValues(normalizeLabel(operation)).Inc()
}

// ObserveCatalogCall records the latency of a catalog call.
func (m *InventoryMetrics) ObserveCatalogCall(operation, outcome string, duration time.Duration) {
	if m == nil || m.catalogDuration == nil {
		return
	}
	m.catalogDuration.WithLabelValues(normalizeLabel(operation), normalizeLabel(outcome)).Observe(duration.Seconds())
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
