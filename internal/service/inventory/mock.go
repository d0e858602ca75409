package inventory

import (
	"context"
	"fmt"
	"sync"

	"github.com/vladislavdragonenkov/orders/internal/domain"
)

// MockService — in-memory реализация InventoryService.
// Владеет каталогом товаров и счётчиками резервов; доступ только через методы интерфейса.
type MockService struct {
	mu           sync.Mutex
	products     map[string]domain.ProductDetails
	reservations map[string]int32
}

// NewMockService возвращает склад с демонстрационным товаром prod1.
func NewMockService() *MockService {
	return &MockService{
		products: map[string]domain.ProductDetails{
			"prod1": {
				ID:         "prod1",
				Name:       "Premium Widget",
				Price:      99.99,
				Currency:   "USD",
				StockLevel: 100,
			},
		},
		reservations: make(map[string]int32),
	}
}

// GetProductByID возвращает карточку товара или ErrProductNotFound.
func (m *MockService) GetProductByID(_ context.Context, productID string) (domain.ProductDetails, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.productLocked(productID)
}

// CheckAvailability сообщает, хватает ли свободного остатка на qty единиц.
func (m *MockService) CheckAvailability(_ context.Context, productID string, qty int32) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.availableLocked(productID, qty)
}

// Reserve повторно проверяет доступность и при успехе увеличивает счётчик резерва.
// Проверка и инкремент выполняются под одной блокировкой, поэтому два
// конкурентных Reserve не могут зарезервировать один остаток дважды.
func (m *MockService) Reserve(_ context.Context, productID string, qty int32) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	ok, err := m.availableLocked(productID, qty)
	if err != nil || !ok {
		return false, err
	}

	m.reservations[productID] += qty
	return true, nil
}

// Release снимает резерв, не опускаясь ниже нуля.
func (m *MockService) Release(_ context.Context, productID string, qty int32) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, err := m.productLocked(productID); err != nil {
		return err
	}

	reserved := m.reservations[productID]
	if qty >= reserved {
		delete(m.reservations, productID)
		return nil
	}
	m.reservations[productID] = reserved - qty
	return nil
}

// Add регистрирует товар в каталоге (для настройки сценариев в тестах).
func (m *MockService) Add(details domain.ProductDetails) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.products[details.ID] = details
}

// Reserved возвращает текущий резерв по товару.
func (m *MockService) Reserved(productID string) int32 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.reservations[productID]
}

func (m *MockService) productLocked(productID string) (domain.ProductDetails, error) {
	product, ok := m.products[productID]
	if !ok {
		return domain.ProductDetails{}, fmt.Errorf("%w: %s", domain.ErrProductNotFound, productID)
	}
	return product, nil
}

func (m *MockService) availableLocked(productID string, qty int32) (bool, error) {
	product, err := m.productLocked(productID)
	if err != nil {
		return false, err
	}
	return product.StockLevel-m.reservations[productID] >= qty, nil
}

var _ domain.InventoryService = (*MockService)(nil)
