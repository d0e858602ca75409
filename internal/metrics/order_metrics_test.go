package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func gatherCounterValue(t *testing.T, registry *prometheus.Registry, name string, labels map[string]string) float64 {
	t.Helper()

	families, err := registry.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}

	for _, family := range families {
		if family.GetName() != name {
			continue
		}
	nextMetric:
		for _, metric := range family.GetMetric() {
			for key, want := range labels {
				if !hasLabel(metric, key, want) {
					continue nextMetric
				}
			}
			return metric.GetCounter().GetValue()
		}
	}
	return 0
}

func hasLabel(metric *dto.Metric, key, value string) bool {
	for _, label := range metric.GetLabel() {
		if label.GetName() == key && label.GetValue() == value {
			return true
		}
	}
	return false
}

func TestNewOrderMetrics(t *testing.T) {
	registry := prometheus.NewRegistry()
	metrics := newOrderMetricsWithRegisterer(registry)

	if metrics == nil {
		t.Fatal("newOrderMetricsWithRegisterer should not return nil")
	}
	if metrics.ordersCreated == nil {
		t.Error("ordersCreated counter should not be nil")
	}
	if metrics.ordersDeleted == nil {
		t.Error("ordersDeleted counter should not be nil")
	}
	if metrics.createFailures == nil {
		t.Error("createFailures counter vec should not be nil")
	}
	if metrics.statusTransitions == nil {
		t.Error("statusTransitions counter vec should not be nil")
	}
	if metrics.shippingUpdates == nil {
		t.Error("shippingUpdates counter should not be nil")
	}
	if metrics.createDuration == nil {
		t.Error("createDuration histogram should not be nil")
	}
}

func TestNewOrderMetrics_RepeatedRegistrationReusesCollectors(t *testing.T) {
	registry := prometheus.NewRegistry()

	first := newOrderMetricsWithRegisterer(registry)
	second := newOrderMetricsWithRegisterer(registry)

	first.RecordOrderCreated()
	second.RecordOrderCreated()

	value := gatherCounterValue(t, registry, "orders_created_total", nil)
	if value != 2 {
		t.Errorf("expected shared counter value 2, got %v", value)
	}
}

func TestRecordCounters(t *testing.T) {
	registry := prometheus.NewRegistry()
	metrics := newOrderMetricsWithRegisterer(registry)

	metrics.RecordOrderCreated()
	metrics.RecordOrderDeleted()
	metrics.RecordCreateFailure(CreateFailureProductUnavailable)
	metrics.RecordStatusTransition("pending", "processing")
	metrics.RecordShippingUpdate()
	metrics.RecordCreateDuration(50 * time.Millisecond)

	if v := gatherCounterValue(t, registry, "orders_created_total", nil); v != 1 {
		t.Errorf("orders_created_total = %v, want 1", v)
	}
	if v := gatherCounterValue(t, registry, "orders_deleted_total", nil); v != 1 {
		t.Errorf("orders_deleted_total = %v, want 1", v)
	}
	if v := gatherCounterValue(t, registry, "orders_create_failures_total", map[string]string{"reason": CreateFailureProductUnavailable}); v != 1 {
		t.Errorf("orders_create_failures_total{reason=product_unavailable} = %v, want 1", v)
	}
	if v := gatherCounterValue(t, registry, "orders_status_transitions_total", map[string]string{"from": "pending", "to": "processing"}); v != 1 {
		t.Errorf("orders_status_transitions_total{pending->processing} = %v, want 1", v)
	}
	if v := gatherCounterValue(t, registry, "orders_shipping_updates_total", nil); v != 1 {
		t.Errorf("orders_shipping_updates_total = %v, want 1", v)
	}
}
