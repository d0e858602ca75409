package order

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/orders/internal/domain"
	"github.com/vladislavdragonenkov/orders/internal/metrics"
)

// Типы публикуемых событий жизненного цикла заказа.
const (
	eventOrderCreated         = "order.created"
	eventOrderStatusChanged   = "order.status_changed"
	eventOrderShippingUpdated = "order.shipping_updated"
	eventOrderDeleted         = "order.deleted"
)

const defaultListOrdersLimit = 100

// Service управляет жизненным циклом заказа: создание, переходы статусов,
// обновление данных доставки, чтение и удаление. Справочник клиентов и склад —
// внешние сервисы, доступные только через интерфейсы.
type Service struct {
	repo      domain.OrderRepository
	customers domain.CustomerService
	inventory domain.InventoryService
	publisher domain.EventPublisher
	metrics   *metrics.OrderMetrics
	logger    *log.Entry

	// Мутации одного заказа сериализуются по его идентификатору,
	// чтобы конкурентные обновления не теряли изменения друг друга.
	locks keyedMutex
}

// NewService конструирует сервис с зависимостями.
// publisher и orderMetrics могут быть nil — события и метрики тогда пропускаются.
func NewService(
	repo domain.OrderRepository,
	customers domain.CustomerService,
	inventory domain.InventoryService,
	publisher domain.EventPublisher,
	orderMetrics *metrics.OrderMetrics,
	logger *log.Entry,
) *Service {
	if logger == nil {
		logger = log.WithField("component", "order-service")
	}
	return &Service{
		repo:      repo,
		customers: customers,
		inventory: inventory,
		publisher: publisher,
		metrics:   orderMetrics,
		logger:    logger,
	}
}

// CreateOrderItem — запрошенная позиция заказа до обогащения данными каталога.
type CreateOrderItem struct {
	ProductID string
	VariantID string
	Qty       int32
}

// CreateOrderInput — проверенный на структурном уровне запрос создания заказа.
type CreateOrderInput struct {
	CustomerID      string
	Items           []CreateOrderItem
	ShippingAddress domain.Address
}

// UpdateShippingInput — трекинг-данные для обновления доставки.
type UpdateShippingInput struct {
	TrackingCompany       string
	TrackingNumber        string
	EstimatedDeliveryDate *time.Time
}

// CreateOrder создаёт заказ: проверяет клиента, резервирует товары, фиксирует
// цены и валюту, считает суммы и кладёт заказ в хранилище в статусе pending.
// Любая ошибка прерывает операцию целиком; заказ в хранилище не появляется.
// Резервы, сделанные до отказавшей позиции, при этом не снимаются.
func (s *Service) CreateOrder(ctx context.Context, input CreateOrderInput) (domain.Order, error) {
	started := time.Now()

	customerDetails, err := s.customers.GetCustomerByID(ctx, input.CustomerID)
	if err != nil {
		s.recordCreateFailure(metrics.CreateFailureCustomerNotFound)
		s.logger.WithError(err).WithField("customer_id", input.CustomerID).Warn("customer lookup failed")
		return domain.Order{}, err
	}

	// Позиции обрабатываются строго в порядке запроса: fetch -> check -> reserve,
	// первый отказ определяет итоговую ошибку.
	items := make([]domain.OrderItem, 0, len(input.Items))
	for _, requested := range input.Items {
		product, err := s.inventory.GetProductByID(ctx, requested.ProductID)
		if err != nil {
			s.recordCreateFailure(metrics.CreateFailureProductNotFound)
			return domain.Order{}, err
		}

		available, err := s.inventory.CheckAvailability(ctx, requested.ProductID, requested.Qty)
		if err != nil {
			s.recordCreateFailure(metrics.CreateFailureProductNotFound)
			return domain.Order{}, err
		}
		if !available {
			s.recordCreateFailure(metrics.CreateFailureProductUnavailable)
			return domain.Order{}, fmt.Errorf("%w: product %s is not available in requested quantity",
				domain.ErrInvalidRequest, requested.ProductID)
		}

		reserved, err := s.inventory.Reserve(ctx, requested.ProductID, requested.Qty)
		if err != nil {
			s.recordCreateFailure(metrics.CreateFailureProductUnavailable)
			return domain.Order{}, err
		}
		if !reserved {
			s.recordCreateFailure(metrics.CreateFailureProductUnavailable)
			return domain.Order{}, fmt.Errorf("%w: product %s is not available in requested quantity",
				domain.ErrInvalidRequest, requested.ProductID)
		}

		items = append(items, domain.OrderItem{
			ProductID: requested.ProductID,
			VariantID: requested.VariantID,
			Qty:       requested.Qty,
			Price:     product.Price,
			Currency:  product.Currency,
		})
	}

	// Валюта заказа едина для всех позиций; проверяется после резервирования,
	// поэтому сделанные резервы при смешанных валютах остаются висеть.
	currency := items[0].Currency
	for _, item := range items {
		if item.Currency != currency {
			s.recordCreateFailure(metrics.CreateFailureCurrencyMixed)
			return domain.Order{}, fmt.Errorf("%w: all items must be in the same currency", domain.ErrInvalidRequest)
		}
	}

	var subtotal float64
	for _, item := range items {
		subtotal += item.Price * float64(item.Qty)
	}
	tax := subtotal * domain.TaxRate

	now := time.Now().UTC()
	order := domain.Order{
		ID:         uuid.NewString(),
		CustomerID: customerDetails.ID,
		Items:      items,
		Status:     domain.OrderStatusPending,
		ShippingInfo: &domain.ShippingInfo{
			ShippingAddress: input.ShippingAddress,
			TrackingCompany: "",
			TrackingNumber:  "",
		},
		Subtotal:  subtotal,
		Tax:       tax,
		Total:     subtotal + tax,
		Currency:  currency,
		Version:   0,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.repo.Create(order); err != nil {
		s.recordCreateFailure(metrics.CreateFailureStorage)
		s.logger.WithError(err).WithField("order_id", order.ID).Error("failed to persist order")
		return domain.Order{}, fmt.Errorf("create order: %w", err)
	}

	if s.metrics != nil {
		s.metrics.RecordOrderCreated()
		s.metrics.RecordCreateDuration(time.Since(started))
	}
	s.publishEvent(eventOrderCreated, order)

	s.logger.WithFields(log.Fields{
		"order_id":    order.ID,
		"customer_id": order.CustomerID,
		"total":       order.Total,
		"currency":    order.Currency,
	}).Info("order created")

	return order, nil
}

// GetOrder возвращает заказ по идентификатору. Чтение без побочных эффектов.
func (s *Service) GetOrder(_ context.Context, orderID string) (domain.Order, error) {
	order, err := s.repo.Get(orderID)
	if err != nil {
		return domain.Order{}, fmt.Errorf("get order %s: %w", orderID, err)
	}
	return order, nil
}

// ListOrders возвращает заказы клиента, новые первыми.
func (s *Service) ListOrders(_ context.Context, customerID string, limit int) ([]domain.Order, error) {
	if limit <= 0 {
		limit = defaultListOrdersLimit
	}
	orders, err := s.repo.ListByCustomer(customerID, limit)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	return orders, nil
}

// UpdateOrderStatus переводит заказ в новый статус согласно таблице переходов.
func (s *Service) UpdateOrderStatus(_ context.Context, orderID string, newStatus domain.OrderStatus) (domain.Order, error) {
	unlock := s.locks.lock(orderID)
	defer unlock()

	order, err := s.repo.Get(orderID)
	if err != nil {
		return domain.Order{}, fmt.Errorf("get order %s: %w", orderID, err)
	}

	if !domain.CanTransition(order.Status, newStatus) {
		return domain.Order{}, fmt.Errorf("%w: invalid status transition from %s to %s",
			domain.ErrInvalidRequest, order.Status, newStatus)
	}

	previous := order.Status
	order.Status = newStatus
	order.UpdatedAt = time.Now().UTC()

	if err := s.saveOrder(order); err != nil {
		return domain.Order{}, err
	}
	order.Version++

	if s.metrics != nil {
		s.metrics.RecordStatusTransition(string(previous), string(newStatus))
	}
	s.publishEvent(eventOrderStatusChanged, order)

	s.logger.WithFields(log.Fields{
		"order_id": order.ID,
		"from":     previous,
		"to":       newStatus,
	}).Info("order status updated")

	return order, nil
}

// UpdateShippingInfo заменяет трекинг-данные доставки, сохраняя адрес.
// Статус заказа намеренно не проверяется: трекинг можно менять и у терминальных заказов.
func (s *Service) UpdateShippingInfo(_ context.Context, orderID string, input UpdateShippingInput) (domain.Order, error) {
	unlock := s.locks.lock(orderID)
	defer unlock()

	order, err := s.repo.Get(orderID)
	if err != nil {
		return domain.Order{}, fmt.Errorf("get order %s: %w", orderID, err)
	}

	if !order.HasShippingAddress() {
		return domain.Order{}, fmt.Errorf("%w: cannot update shipping info without a shipping address",
			domain.ErrInvalidRequest)
	}

	// Полная замена: незаданный срок доставки остаётся пустым, а не наследуется.
	order.ShippingInfo = &domain.ShippingInfo{
		ShippingAddress:       order.ShippingInfo.ShippingAddress,
		TrackingCompany:       input.TrackingCompany,
		TrackingNumber:        input.TrackingNumber,
		EstimatedDeliveryDate: input.EstimatedDeliveryDate,
	}
	order.UpdatedAt = time.Now().UTC()

	if err := s.saveOrder(order); err != nil {
		return domain.Order{}, err
	}
	order.Version++

	if s.metrics != nil {
		s.metrics.RecordShippingUpdate()
	}
	s.publishEvent(eventOrderShippingUpdated, order)

	return order, nil
}

// DeleteOrder удаляет заказ из хранилища. Резервы склада при этом не снимаются.
func (s *Service) DeleteOrder(_ context.Context, orderID string) error {
	unlock := s.locks.lock(orderID)
	defer unlock()

	order, err := s.repo.Get(orderID)
	if err != nil {
		return fmt.Errorf("get order %s: %w", orderID, err)
	}

	if err := s.repo.Delete(orderID); err != nil {
		return fmt.Errorf("delete order %s: %w", orderID, err)
	}

	if s.metrics != nil {
		s.metrics.RecordOrderDeleted()
	}
	s.publishEvent(eventOrderDeleted, order)

	s.logger.WithField("order_id", orderID).Info("order deleted")
	return nil
}

func (s *Service) saveOrder(order domain.Order) error {
	if err := s.repo.Save(order); err != nil {
		s.logger.WithError(err).WithField("order_id", order.ID).Error("failed to save order")
		return fmt.Errorf("save order %s: %w", order.ID, err)
	}
	return nil
}

// publishEvent отправляет событие best-effort: сбой публикации логируется,
// но не влияет на результат операции.
func (s *Service) publishEvent(eventType string, order domain.Order) {
	if s.publisher == nil {
		return
	}

	event := domain.OrderEvent{
		Type:       eventType,
		OrderID:    order.ID,
		CustomerID: order.CustomerID,
		Status:     string(order.Status),
		Occurred:   time.Now().UTC(),
	}
	if err := s.publisher.PublishOrderEvent(event); err != nil {
		s.logger.WithError(err).WithFields(log.Fields{
			"order_id": order.ID,
			"event":    eventType,
		}).Warn("failed to publish order event")
	}
}

func (s *Service) recordCreateFailure(reason string) {
	if s.metrics != nil {
		s.metrics.RecordCreateFailure(reason)
	}
}
