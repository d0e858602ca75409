package customer

import (
	"context"
	"fmt"
	"sync"

	"github.com/vladislavdragonenkov/orders/internal/domain"
)

// MockService — in-memory реализация CustomerService.
// Заменяет сетевой справочник клиентов в локальной разработке и тестах.
type MockService struct {
	mu        sync.RWMutex
	customers map[string]domain.CustomerDetails
}

// NewMockService возвращает справочник с демонстрационным клиентом "1".
func NewMockService() *MockService {
	return &MockService{
		customers: map[string]domain.CustomerDetails{
			"1": {
				ID:    "1",
				Email: "john.doe@example.com",
				Name:  "John Doe",
				DefaultShippingAddress: &domain.Address{
					Street:     "123 Main St",
					City:       "San Francisco",
					State:      "CA",
					Country:    "USA",
					PostalCode: "94105",
				},
			},
		},
	}
}

// GetCustomerByID возвращает карточку клиента или ErrCustomerNotFound.
func (m *MockService) GetCustomerByID(_ context.Context, customerID string) (domain.CustomerDetails, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	details, ok := m.customers[customerID]
	if !ok {
		return domain.CustomerDetails{}, fmt.Errorf("%w: %s", domain.ErrCustomerNotFound, customerID)
	}
	return details, nil
}

// Add регистрирует клиента (для настройки сценариев в тестах).
func (m *MockService) Add(details domain.CustomerDetails) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.customers[details.ID] = details
}

var _ domain.CustomerService = (*MockService)(nil)
