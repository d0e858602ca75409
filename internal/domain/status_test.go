package domain_test

import (
	"testing"

	"github.com/vladislavdragonenkov/orders/internal/domain"
)

// Полная таблица допустимых переходов. Любая пара вне этой таблицы запрещена,
// включая переходы в тот же статус.
var allowedPairs = map[[2]domain.OrderStatus]bool{
	{domain.OrderStatusPending, domain.OrderStatusProcessing}:  true,
	{domain.OrderStatusPending, domain.OrderStatusCanceled}:    true,
	{domain.OrderStatusProcessing, domain.OrderStatusShipped}:  true,
	{domain.OrderStatusProcessing, domain.OrderStatusCanceled}: true,
	{domain.OrderStatusShipped, domain.OrderStatusDelivered}:   true,
}

func TestCanTransition_AllPairs(t *testing.T) {
	statuses := domain.OrderStatuses()

	for _, from := range statuses {
		for _, to := range statuses {
			want := allowedPairs[[2]domain.OrderStatus{from, to}]
			if got := domain.CanTransition(from, to); got != want {
				t.Errorf("CanTransition(%s, %s) = %v, want %v", from, to, got, want)
			}
		}
	}
}

func TestCanTransition_UnknownStatus(t *testing.T) {
	if domain.CanTransition("bogus", domain.OrderStatusPending) {
		t.Fatal("transition from unknown status must be rejected")
	}
	if domain.CanTransition(domain.OrderStatusPending, "bogus") {
		t.Fatal("transition to unknown status must be rejected")
	}
}

func TestOrderStatus_IsTerminal(t *testing.T) {
	terminal := map[domain.OrderStatus]bool{
		domain.OrderStatusDelivered: true,
		domain.OrderStatusCanceled:  true,
	}

	for _, status := range domain.OrderStatuses() {
		if got := status.IsTerminal(); got != terminal[status] {
			t.Errorf("IsTerminal(%s) = %v, want %v", status, got, terminal[status])
		}
	}

	if domain.OrderStatus("bogus").IsTerminal() {
		t.Fatal("unknown status must not be terminal")
	}
}

func TestOrderStatus_IsValid(t *testing.T) {
	for _, status := range domain.OrderStatuses() {
		if !status.IsValid() {
			t.Errorf("expected %s to be valid", status)
		}
	}
	if domain.OrderStatus("refunded").IsValid() {
		t.Fatal("unexpected status must be invalid")
	}
}
