package domain

import "errors"

var (
	// Ошибка отсутствующего идентификатора клиента.
	ErrCustomerRequired = errors.New("customer_id is required")
	// Ошибка отсутствующего кода валюты.
	ErrCurrencyRequired = errors.New("currency is required")
	// Ошибка отсутствия хотя бы одного товара в заказе.
	ErrItemsRequired = errors.New("order must contain at least one item")
	// Ошибка при некорректном количестве товара (<= 0).
	ErrItemQtyInvalid = errors.New("item quantity must be greater than zero")
	// Ошибка, если цена позиции отрицательная.
	ErrItemPriceInvalid = errors.New("item price must be non-negative")
	// Ошибка позиции в валюте, отличной от валюты заказа.
	ErrCurrencyMixed = errors.New("all items must be in the same currency")
	// Ошибка несоответствия зафиксированных сумм заказа и сумм позиций.
	ErrAmountMismatch = errors.New("order totals do not match items sum")
	// Ошибка отсутствующего адреса доставки.
	ErrShippingAddressRequired = errors.New("shipping address is required")

	// ErrOrderNotFound возвращается, если заказ не найден в репозитории.
	ErrOrderNotFound = errors.New("order not found")
	// ErrCustomerNotFound возвращается справочником клиентов для неизвестного клиента.
	ErrCustomerNotFound = errors.New("customer not found")
	// ErrProductNotFound возвращается складским сервисом для неизвестного товара.
	ErrProductNotFound = errors.New("product not found")

	// ErrInvalidRequest — базовая бизнес-ошибка: запрос нарушает правило предметной области.
	// Оборачивается с деталями (id товара, пара статусов и т.п.) через fmt.Errorf("%w: ...").
	ErrInvalidRequest = errors.New("invalid request")

	// ErrOrderVersionConflict сигнализирует о конфликте версий при сохранении.
	ErrOrderVersionConflict = errors.New("order version conflict")
)

// IsNotFound проверяет, относится ли ошибка к классу "сущность не найдена".
func IsNotFound(err error) bool {
	return errors.Is(err, ErrOrderNotFound) ||
		errors.Is(err, ErrCustomerNotFound) ||
		errors.Is(err, ErrProductNotFound)
}

// IsInvalidRequest проверяет, является ли ошибка нарушением бизнес-правила.
func IsInvalidRequest(err error) bool {
	return errors.Is(err, ErrInvalidRequest)
}

// IsVersionConflict проверяет, является ли ошибка конфликтом версий.
func IsVersionConflict(err error) bool {
	return errors.Is(err, ErrOrderVersionConflict)
}
