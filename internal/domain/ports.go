package domain

import (
	"context"
	"time"
)

// CustomerDetails — карточка клиента из внешнего справочника.
type CustomerDetails struct {
	ID                     string
	Email                  string
	Name                   string
	DefaultShippingAddress *Address
}

// ProductDetails — карточка товара из складского сервиса.
type ProductDetails struct {
	ID         string
	Name       string
	Price      float64
	Currency   string
	StockLevel int32
}

// CustomerService описывает взаимодействие со справочником клиентов.
type CustomerService interface {
	// GetCustomerByID возвращает карточку клиента или ErrCustomerNotFound.
	GetCustomerByID(ctx context.Context, customerID string) (CustomerDetails, error)
}

// InventoryService описывает взаимодействие со складским сервисом и резервами.
type InventoryService interface {
	// GetProductByID возвращает карточку товара или ErrProductNotFound.
	GetProductByID(ctx context.Context, productID string) (ProductDetails, error)
	// CheckAvailability сообщает, хватает ли свободного остатка (stock - reserved) на qty единиц.
	CheckAvailability(ctx context.Context, productID string, qty int32) (bool, error)
	// Reserve повторно проверяет доступность и при успехе увеличивает счётчик резерва.
	// Возвращает false без побочных эффектов, если остатка не хватает.
	Reserve(ctx context.Context, productID string, qty int32) (bool, error)
	// Release снимает резерв (компенсация). Жизненный цикл заказа его не вызывает:
	// резервы при отмене и удалении заказа намеренно не освобождаются.
	Release(ctx context.Context, productID string, qty int32) error
}

// OrderEvent — событие жизненного цикла заказа для публикации наружу.
type OrderEvent struct {
	Type       string    `json:"event_type"`
	OrderID    string    `json:"order_id"`
	CustomerID string    `json:"customer_id"`
	Status     string    `json:"status"`
	Occurred   time.Time `json:"timestamp"`
}

// EventPublisher публикует события жизненного цикла заказа.
type EventPublisher interface {
	// PublishOrderEvent передаёт событие наружу; сбой публикации не должен
	// влиять на результат операции с заказом.
	PublishOrderEvent(event OrderEvent) error
}
