package order_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"github.com/vladislavdragonenkov/orders/internal/domain"
	"github.com/vladislavdragonenkov/orders/internal/service/customer"
	"github.com/vladislavdragonenkov/orders/internal/service/inventory"
	"github.com/vladislavdragonenkov/orders/internal/service/order"
	"github.com/vladislavdragonenkov/orders/internal/storage/memory"
)

func loggerForTests() *logrus.Entry {
	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{DisableTimestamp: true})
	logger.SetLevel(logrus.DebugLevel)
	return logger.WithField("component", "test")
}

// capturingPublisher собирает опубликованные события для проверок.
type capturingPublisher struct {
	mu     sync.Mutex
	events []domain.OrderEvent
	err    error
}

func (p *capturingPublisher) PublishOrderEvent(event domain.OrderEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, event)
	return nil
}

func (p *capturingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	result := make([]string, 0, len(p.events))
	for _, event := range p.events {
		result = append(result, event.Type)
	}
	return result
}

type fixture struct {
	service   *order.Service
	repo      domain.OrderRepository
	customers *customer.MockService
	inventory *inventory.MockService
	publisher *capturingPublisher
}

func newFixture() *fixture {
	repo := memory.NewOrderRepository()
	customers := customer.NewMockService()
	stock := inventory.NewMockService()
	publisher := &capturingPublisher{}

	service := order.NewService(repo, customers, stock, publisher, nil, loggerForTests())

	return &fixture{
		service:   service,
		repo:      repo,
		customers: customers,
		inventory: stock,
		publisher: publisher,
	}
}

func testAddress() domain.Address {
	return domain.Address{
		Street:     "123 Main St",
		City:       "San Francisco",
		State:      "CA",
		Country:    "USA",
		PostalCode: "94105",
	}
}

func createInput() order.CreateOrderInput {
	return order.CreateOrderInput{
		CustomerID: "1",
		Items: []order.CreateOrderItem{
			{ProductID: "prod1", VariantID: "v1", Qty: 2},
		},
		ShippingAddress: testAddress(),
	}
}

func TestCreateOrder_Success(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	created, err := f.service.CreateOrder(ctx, createInput())
	require.NoError(t, err)

	require.NotEmpty(t, created.ID)
	require.Equal(t, "1", created.CustomerID)
	require.Equal(t, domain.OrderStatusPending, created.Status)
	require.Equal(t, "USD", created.Currency)

	// Демонстрационный товар: 2 x 99.99 при ставке налога 10%.
	require.InDelta(t, 199.98, created.Subtotal, 1e-9)
	require.InDelta(t, 19.998, created.Tax, 1e-9)
	require.InDelta(t, 219.978, created.Total, 1e-9)
	require.InDelta(t, created.Subtotal+created.Tax, created.Total, 1e-9)

	require.Len(t, created.Items, 1)
	require.Equal(t, "prod1", created.Items[0].ProductID)
	require.Equal(t, "v1", created.Items[0].VariantID)
	require.InDelta(t, 99.99, created.Items[0].Price, 1e-9)

	require.NotNil(t, created.ShippingInfo)
	require.Equal(t, testAddress(), created.ShippingInfo.ShippingAddress)
	require.Empty(t, created.ShippingInfo.TrackingCompany)
	require.Empty(t, created.ShippingInfo.TrackingNumber)
	require.Nil(t, created.ShippingInfo.EstimatedDeliveryDate)

	require.False(t, created.CreatedAt.IsZero())
	require.Equal(t, created.CreatedAt, created.UpdatedAt)
	require.Empty(t, created.ValidateInvariants())

	// Заказ лежит в хранилище, резерв учтён.
	stored, err := f.repo.Get(created.ID)
	require.NoError(t, err)
	require.Equal(t, created.ID, stored.ID)
	require.Equal(t, int32(2), f.inventory.Reserved("prod1"))

	require.Equal(t, []string{"order.created"}, f.publisher.types())
}

func TestCreateOrder_CustomerNotFound(t *testing.T) {
	f := newFixture()

	input := createInput()
	input.CustomerID = "missing"

	_, err := f.service.CreateOrder(context.Background(), input)
	require.True(t, domain.IsNotFound(err), "expected not found, got %v", err)

	// Операция прервана до резервирования, хранилище пустое.
	require.Equal(t, int32(0), f.inventory.Reserved("prod1"))
	orders, err := f.repo.ListByCustomer("missing", 0)
	require.NoError(t, err)
	require.Empty(t, orders)
	require.Empty(t, f.publisher.types())
}

func TestCreateOrder_ProductNotFound(t *testing.T) {
	f := newFixture()

	input := createInput()
	input.Items[0].ProductID = "missing"

	_, err := f.service.CreateOrder(context.Background(), input)
	require.True(t, domain.IsNotFound(err), "expected not found, got %v", err)
}

func TestCreateOrder_ProductUnavailable(t *testing.T) {
	f := newFixture()

	input := createInput()
	input.Items[0].Qty = 1000

	_, err := f.service.CreateOrder(context.Background(), input)
	require.True(t, domain.IsInvalidRequest(err), "expected invalid request, got %v", err)
	require.Contains(t, err.Error(), "prod1")

	// Заказ не создан.
	orders, listErr := f.repo.ListByCustomer("1", 0)
	require.NoError(t, listErr)
	require.Empty(t, orders)
}

func TestCreateOrder_LaterItemUnavailableKeepsEarlierReservations(t *testing.T) {
	f := newFixture()
	f.inventory.Add(domain.ProductDetails{
		ID: "prod2", Name: "Scarce Widget", Price: 5, Currency: "USD", StockLevel: 1,
	})

	input := createInput()
	input.Items = []order.CreateOrderItem{
		{ProductID: "prod1", VariantID: "v1", Qty: 2},
		{ProductID: "prod2", VariantID: "v1", Qty: 5},
	}

	_, err := f.service.CreateOrder(context.Background(), input)
	require.True(t, domain.IsInvalidRequest(err))
	require.Contains(t, err.Error(), "prod2")

	// Резерв первой позиции остаётся: компенсация намеренно не выполняется.
	require.Equal(t, int32(2), f.inventory.Reserved("prod1"))
	require.Equal(t, int32(0), f.inventory.Reserved("prod2"))

	orders, listErr := f.repo.ListByCustomer("1", 0)
	require.NoError(t, listErr)
	require.Empty(t, orders)
}

func TestCreateOrder_MixedCurrencies(t *testing.T) {
	f := newFixture()
	f.inventory.Add(domain.ProductDetails{
		ID: "prod-eur", Name: "Euro Widget", Price: 10, Currency: "EUR", StockLevel: 50,
	})

	input := createInput()
	input.Items = []order.CreateOrderItem{
		{ProductID: "prod1", VariantID: "v1", Qty: 1},
		{ProductID: "prod-eur", VariantID: "v1", Qty: 1},
	}

	_, err := f.service.CreateOrder(context.Background(), input)
	require.True(t, domain.IsInvalidRequest(err))
	require.Contains(t, err.Error(), "same currency")

	// Обе позиции уже были зарезервированы до проверки валют.
	require.Equal(t, int32(1), f.inventory.Reserved("prod1"))
	require.Equal(t, int32(1), f.inventory.Reserved("prod-eur"))

	orders, listErr := f.repo.ListByCustomer("1", 0)
	require.NoError(t, listErr)
	require.Empty(t, orders)
}

func TestGetOrder(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	created, err := f.service.CreateOrder(ctx, createInput())
	require.NoError(t, err)

	got, err := f.service.GetOrder(ctx, created.ID)
	require.NoError(t, err)
	require.Equal(t, created.ID, got.ID)

	_, err = f.service.GetOrder(ctx, "missing")
	require.True(t, domain.IsNotFound(err))
}

func TestListOrders(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	first, err := f.service.CreateOrder(ctx, createInput())
	require.NoError(t, err)
	second, err := f.service.CreateOrder(ctx, createInput())
	require.NoError(t, err)

	orders, err := f.service.ListOrders(ctx, "1", 0)
	require.NoError(t, err)
	require.Len(t, orders, 2)

	ids := []string{orders[0].ID, orders[1].ID}
	require.Contains(t, ids, first.ID)
	require.Contains(t, ids, second.ID)
}

// seedOrder кладёт заказ с нужным статусом напрямую в хранилище.
func seedOrder(t *testing.T, repo domain.OrderRepository, id string, status domain.OrderStatus) {
	t.Helper()

	now := time.Now().UTC()
	err := repo.Create(domain.Order{
		ID:         id,
		CustomerID: "1",
		Status:     status,
		Currency:   "USD",
		Items: []domain.OrderItem{
			{ProductID: "prod1", VariantID: "v1", Qty: 1, Price: 99.99, Currency: "USD"},
		},
		ShippingInfo: &domain.ShippingInfo{ShippingAddress: testAddress()},
		Subtotal:     99.99,
		Tax:          9.999,
		Total:        109.989,
		CreatedAt:    now,
		UpdatedAt:    now,
	})
	require.NoError(t, err)
}

func TestUpdateOrderStatus_AllPairs(t *testing.T) {
	allowed := map[[2]domain.OrderStatus]bool{
		{domain.OrderStatusPending, domain.OrderStatusProcessing}:  true,
		{domain.OrderStatusPending, domain.OrderStatusCanceled}:    true,
		{domain.OrderStatusProcessing, domain.OrderStatusShipped}:  true,
		{domain.OrderStatusProcessing, domain.OrderStatusCanceled}: true,
		{domain.OrderStatusShipped, domain.OrderStatusDelivered}:   true,
	}

	ctx := context.Background()
	for _, from := range domain.OrderStatuses() {
		for _, to := range domain.OrderStatuses() {
			f := newFixture()
			seedOrder(t, f.repo, "order-1", from)

			updated, err := f.service.UpdateOrderStatus(ctx, "order-1", to)
			if allowed[[2]domain.OrderStatus{from, to}] {
				require.NoError(t, err, "transition %s -> %s must be allowed", from, to)
				require.Equal(t, to, updated.Status)

				stored, getErr := f.repo.Get("order-1")
				require.NoError(t, getErr)
				require.Equal(t, to, stored.Status)
			} else {
				require.True(t, domain.IsInvalidRequest(err), "transition %s -> %s must be rejected, got %v", from, to, err)
				require.Contains(t, err.Error(), string(from))
				require.Contains(t, err.Error(), string(to))

				stored, getErr := f.repo.Get("order-1")
				require.NoError(t, getErr)
				require.Equal(t, from, stored.Status)
			}
		}
	}
}

func TestUpdateOrderStatus_RefreshesUpdatedAt(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	created, err := f.service.CreateOrder(ctx, createInput())
	require.NoError(t, err)

	updated, err := f.service.UpdateOrderStatus(ctx, created.ID, domain.OrderStatusProcessing)
	require.NoError(t, err)
	require.False(t, updated.UpdatedAt.Before(created.UpdatedAt))
	require.Equal(t, created.CreatedAt, updated.CreatedAt)
	require.Equal(t, []string{"order.created", "order.status_changed"}, f.publisher.types())
}

func TestUpdateOrderStatus_NotFound(t *testing.T) {
	f := newFixture()

	_, err := f.service.UpdateOrderStatus(context.Background(), "missing", domain.OrderStatusProcessing)
	require.True(t, domain.IsNotFound(err))
}

func TestUpdateShippingInfo_Success(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	created, err := f.service.CreateOrder(ctx, createInput())
	require.NoError(t, err)

	estimate := time.Now().UTC().Add(72 * time.Hour)
	updated, err := f.service.UpdateShippingInfo(ctx, created.ID, order.UpdateShippingInput{
		TrackingCompany:       "UPS",
		TrackingNumber:        "1Z999",
		EstimatedDeliveryDate: &estimate,
	})
	require.NoError(t, err)

	require.Equal(t, "UPS", updated.ShippingInfo.TrackingCompany)
	require.Equal(t, "1Z999", updated.ShippingInfo.TrackingNumber)
	require.NotNil(t, updated.ShippingInfo.EstimatedDeliveryDate)
	require.Equal(t, estimate, *updated.ShippingInfo.EstimatedDeliveryDate)
	// Адрес сохраняется без изменений.
	require.Equal(t, testAddress(), updated.ShippingInfo.ShippingAddress)

	// Повторное обновление без срока доставки сбрасывает его, а не наследует.
	updated, err = f.service.UpdateShippingInfo(ctx, created.ID, order.UpdateShippingInput{
		TrackingCompany: "FedEx",
		TrackingNumber:  "FX123",
	})
	require.NoError(t, err)
	require.Equal(t, "FedEx", updated.ShippingInfo.TrackingCompany)
	require.Nil(t, updated.ShippingInfo.EstimatedDeliveryDate)
}

func TestUpdateShippingInfo_NoAddress(t *testing.T) {
	f := newFixture()

	// Заказ без адреса появляется только в обход обычного пути создания.
	now := time.Now().UTC()
	require.NoError(t, f.repo.Create(domain.Order{
		ID:         "order-no-address",
		CustomerID: "1",
		Status:     domain.OrderStatusPending,
		Currency:   "USD",
		Items: []domain.OrderItem{
			{ProductID: "prod1", VariantID: "v1", Qty: 1, Price: 99.99, Currency: "USD"},
		},
		CreatedAt: now,
		UpdatedAt: now,
	}))

	_, err := f.service.UpdateShippingInfo(context.Background(), "order-no-address", order.UpdateShippingInput{
		TrackingCompany: "UPS",
		TrackingNumber:  "1Z999",
	})
	require.True(t, domain.IsInvalidRequest(err))
	require.Contains(t, err.Error(), "shipping address")
}

func TestUpdateShippingInfo_NotGatedByStatus(t *testing.T) {
	f := newFixture()
	seedOrder(t, f.repo, "order-done", domain.OrderStatusDelivered)

	updated, err := f.service.UpdateShippingInfo(context.Background(), "order-done", order.UpdateShippingInput{
		TrackingCompany: "UPS",
		TrackingNumber:  "1Z999",
	})
	require.NoError(t, err)
	require.Equal(t, domain.OrderStatusDelivered, updated.Status)
	require.Equal(t, "1Z999", updated.ShippingInfo.TrackingNumber)
}

func TestUpdateShippingInfo_NotFound(t *testing.T) {
	f := newFixture()

	_, err := f.service.UpdateShippingInfo(context.Background(), "missing", order.UpdateShippingInput{})
	require.True(t, domain.IsNotFound(err))
}

func TestDeleteOrder(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	created, err := f.service.CreateOrder(ctx, createInput())
	require.NoError(t, err)

	require.NoError(t, f.service.DeleteOrder(ctx, created.ID))

	_, err = f.service.GetOrder(ctx, created.ID)
	require.True(t, domain.IsNotFound(err))

	// Резервы склада при удалении не снимаются.
	require.Equal(t, int32(2), f.inventory.Reserved("prod1"))
	require.Equal(t, []string{"order.created", "order.deleted"}, f.publisher.types())
}

func TestDeleteOrder_NotFound(t *testing.T) {
	f := newFixture()

	err := f.service.DeleteOrder(context.Background(), "missing")
	require.True(t, domain.IsNotFound(err))
}

func TestPublisherFailureDoesNotFailOperation(t *testing.T) {
	f := newFixture()
	f.publisher.err = errors.New("broker down")

	created, err := f.service.CreateOrder(context.Background(), createInput())
	require.NoError(t, err)
	require.NotEmpty(t, created.ID)
}

func TestConcurrentStatusAndShippingUpdates(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	created, err := f.service.CreateOrder(ctx, createInput())
	require.NoError(t, err)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		_, _ = f.service.UpdateOrderStatus(ctx, created.ID, domain.OrderStatusProcessing)
	}()
	go func() {
		defer wg.Done()
		_, _ = f.service.UpdateShippingInfo(ctx, created.ID, order.UpdateShippingInput{
			TrackingCompany: "UPS",
			TrackingNumber:  "1Z999",
		})
	}()
	wg.Wait()

	// Мутации сериализуются по идентификатору: оба обновления должны примениться.
	stored, err := f.repo.Get(created.ID)
	require.NoError(t, err)
	require.Equal(t, domain.OrderStatusProcessing, stored.Status)
	require.Equal(t, "1Z999", stored.ShippingInfo.TrackingNumber)
}
