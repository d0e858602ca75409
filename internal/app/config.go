package app

// StorageDriver определяет используемую реализацию хранилища заказов.
type StorageDriver string

const (
	StorageDriverMemory   StorageDriver = "memory"
	StorageDriverPostgres StorageDriver = "postgres"
)

// Config описывает настройки запуска приложения.
type Config struct {
	HTTPAddr    string
	MetricsAddr string

	StorageDriver StorageDriver
	PostgresDSN   string

	// KafkaBrokers — список брокеров через запятую. Пустая строка отключает публикацию событий.
	KafkaBrokers string
}

// DefaultConfig возвращает конфигурацию для локального запуска: API на 8080,
// метрики на 9090, in-memory хранилище и без Kafka.
func DefaultConfig() Config {
	return Config{
		HTTPAddr:      ":8080",
		MetricsAddr:   ":9090",
		StorageDriver: StorageDriverMemory,
	}
}

// Valid сообщает, поддерживается ли драйвер хранилища.
func (d StorageDriver) Valid() bool {
	return d == StorageDriverMemory || d == StorageDriverPostgres
}
