package domain

import (
	"math"
	"time"
)

// TaxRate — фиксированная ставка налога, применяемая при создании заказа.
// Сумма налога рассчитывается один раз и после создания не пересчитывается.
const TaxRate = 0.10

// Address — почтовый адрес доставки. Самостоятельного жизненного цикла не имеет.
type Address struct {
	Street     string
	City       string
	State      string
	Country    string
	PostalCode string
}

// Complete сообщает, заполнены ли все обязательные поля адреса.
func (a Address) Complete() bool {
	return a.Street != "" && a.City != "" && a.State != "" && a.Country != "" && a.PostalCode != ""
}

// ShippingInfo хранит данные доставки заказа.
// Адрес задаётся при создании и далее не меняется; трекинг-поля заполняются позже.
type ShippingInfo struct {
	ShippingAddress       Address
	TrackingCompany       string
	TrackingNumber        string
	EstimatedDeliveryDate *time.Time
}

// OrderItem представляет одну позицию заказа.
// Цена и валюта фиксируются из каталога в момент создания заказа и не перечитываются.
type OrderItem struct {
	ProductID string
	VariantID string
	Qty       int32
	Price     float64
	Currency  string
}

// Order агрегирует состояние заказа, его позиции и данные доставки.
type Order struct {
	ID           string
	CustomerID   string
	Items        []OrderItem
	Status       OrderStatus
	ShippingInfo *ShippingInfo
	Subtotal     float64
	Tax          float64
	Total        float64
	Currency     string
	Version      int64
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Допустимая погрешность при сравнении денежных сумм с плавающей точкой.
const moneyEpsilon = 1e-9

// ValidateInvariants проверяет базовые инварианты заказа и возвращает список замечаний.
func (o *Order) ValidateInvariants() []error {
	var errs []error

	if o.CustomerID == "" {
		errs = append(errs, ErrCustomerRequired)
	}
	if o.Currency == "" {
		errs = append(errs, ErrCurrencyRequired)
	}
	if len(o.Items) == 0 {
		errs = append(errs, ErrItemsRequired)
	}
	if !o.HasShippingAddress() || !o.ShippingInfo.ShippingAddress.Complete() {
		errs = append(errs, ErrShippingAddressRequired)
	}

	// Все позиции обязаны быть в валюте заказа.
	var subtotal float64
	for _, item := range o.Items {
		if item.Qty <= 0 {
			errs = append(errs, ErrItemQtyInvalid)
		}
		if item.Price < 0 {
			errs = append(errs, ErrItemPriceInvalid)
		}
		if item.Currency != o.Currency {
			errs = append(errs, ErrCurrencyMixed)
		}
		subtotal += item.Price * float64(item.Qty)
	}

	// Сверяем зафиксированные суммы: tax = subtotal*TaxRate, total = subtotal+tax.
	if math.Abs(o.Subtotal-subtotal) > moneyEpsilon {
		errs = append(errs, ErrAmountMismatch)
	}
	if math.Abs(o.Tax-o.Subtotal*TaxRate) > moneyEpsilon {
		errs = append(errs, ErrAmountMismatch)
	}
	if math.Abs(o.Total-(o.Subtotal+o.Tax)) > moneyEpsilon {
		errs = append(errs, ErrAmountMismatch)
	}

	return errs
}

// HasShippingAddress сообщает, задан ли у заказа адрес доставки.
func (o *Order) HasShippingAddress() bool {
	return o.ShippingInfo != nil && o.ShippingInfo.ShippingAddress != (Address{})
}
