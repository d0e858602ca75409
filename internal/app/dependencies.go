package app

import (
	"context"
	"fmt"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/orders/internal/domain"
	"github.com/vladislavdragonenkov/orders/internal/service/customer"
	"github.com/vladislavdragonenkov/orders/internal/service/inventory"
	"github.com/vladislavdragonenkov/orders/internal/storage/memory"
	"github.com/vladislavdragonenkov/orders/internal/storage/postgres"
)

// Dependencies содержит зависимости приложения.
type Dependencies struct {
	Repo         domain.OrderRepository
	CustomerSvc  domain.CustomerService
	InventorySvc domain.InventoryService
	Logger       *log.Entry

	// store != nil только для postgres-драйвера.
	store *postgres.Store
}

// NewDependencies создаёт зависимости приложения согласно конфигурации.
// NOTE: customer и inventory сервисы — mock-реализации; в production окружении
// их заменяют клиенты реальных внешних сервисов.
func NewDependencies(ctx context.Context, cfg Config, logger *log.Entry) (*Dependencies, error) {
	if logger == nil {
		logger = log.WithField("component", "app")
	}

	deps := &Dependencies{
		CustomerSvc:  customer.NewMockService(),
		InventorySvc: inventory.NewMockService(),
		Logger:       logger,
	}

	switch cfg.StorageDriver {
	case StorageDriverMemory, "":
		deps.Repo = memory.NewOrderRepository()
		logger.Info("using in-memory order storage")
	case StorageDriverPostgres:
		store, err := postgres.Open(ctx, cfg.PostgresDSN)
		if err != nil {
			return nil, fmt.Errorf("open postgres storage: %w", err)
		}
		if err := store.EnsureSchema(ctx); err != nil {
			_ = store.Close()
			return nil, fmt.Errorf("apply postgres migrations: %w", err)
		}
		deps.store = store
		deps.Repo = postgres.NewOrderRepository(store)
		logger.Info("using postgres order storage")
	default:
		return nil, fmt.Errorf("unsupported storage driver: %s", cfg.StorageDriver)
	}

	return deps, nil
}

// StorageCheck возвращает health-проверку хранилища.
func (d *Dependencies) StorageCheck() func(ctx context.Context) error {
	if d.store != nil {
		return d.store.Ping
	}
	return func(context.Context) error { return nil }
}

// Close освобождает ресурсы зависимостей.
func (d *Dependencies) Close() {
	if d.store != nil {
		if err := d.store.Close(); err != nil {
			d.Logger.WithError(err).Warn("failed to close postgres store")
		}
	}
}
