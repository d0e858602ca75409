package httpx

import (
	"time"

	"github.com/vladislavdragonenkov/orders/internal/domain"
)

type CreateOrderRequest struct {
	CustomerID      string               `json:"customer_id"`
	Items           []CreateOrderItemDTO `json:"items"`
	ShippingAddress AddressDTO           `json:"shipping_address"`
}

type CreateOrderItemDTO struct {
	ProductID string `json:"product_id"`
	VariantID string `json:"variant_id,omitempty"`
	Qty       int32  `json:"qty"`
}

type AddressDTO struct {
	Street     string `json:"street"`
	City       string `json:"city"`
	State      string `json:"state"`
	Country    string `json:"country"`
	PostalCode string `json:"postal_code"`
}

type UpdateStatusRequest struct {
	Status string `json:"status"`
}

type UpdateShippingRequest struct {
	TrackingCompany       string     `json:"tracking_company"`
	TrackingNumber        string     `json:"tracking_number"`
	EstimatedDeliveryDate *time.Time `json:"estimated_delivery_date,omitempty"`
}

type OrderResponse struct {
	ID           string              `json:"id"`
	CustomerID   string              `json:"customer_id"`
	Status       string              `json:"status"`
	Items        []OrderItemResponse `json:"items"`
	ShippingInfo *ShippingInfoDTO    `json:"shipping_info,omitempty"`
	Subtotal     float64             `json:"subtotal"`
	Tax          float64             `json:"tax"`
	Total        float64             `json:"total"`
	Currency     string              `json:"currency"`
	Version      int64               `json:"version"`
	CreatedAt    string              `json:"created_at"`
	UpdatedAt    string              `json:"updated_at"`
}

type OrderItemResponse struct {
	ProductID string  `json:"product_id"`
	VariantID string  `json:"variant_id,omitempty"`
	Qty       int32   `json:"qty"`
	Price     float64 `json:"price"`
	Currency  string  `json:"currency"`
}

type ShippingInfoDTO struct {
	ShippingAddress       AddressDTO `json:"shipping_address"`
	TrackingCompany       string     `json:"tracking_company,omitempty"`
	TrackingNumber        string     `json:"tracking_number,omitempty"`
	EstimatedDeliveryDate *string    `json:"estimated_delivery_date,omitempty"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

func mapOrderToResponse(order domain.Order) OrderResponse {
	items := make([]OrderItemResponse, 0, len(order.Items))
	for _, item := range order.Items {
		items = append(items, OrderItemResponse{
			ProductID: item.ProductID,
			VariantID: item.VariantID,
			Qty:       item.Qty,
			Price:     item.Price,
			Currency:  item.Currency,
		})
	}

	response := OrderResponse{
		ID:         order.ID,
		CustomerID: order.CustomerID,
		Status:     string(order.Status),
		Items:      items,
		Subtotal:   order.Subtotal,
		Tax:        order.Tax,
		Total:      order.Total,
		Currency:   order.Currency,
		Version:    order.Version,
		CreatedAt:  order.CreatedAt.UTC().Format(time.RFC3339Nano),
		UpdatedAt:  order.UpdatedAt.UTC().Format(time.RFC3339Nano),
	}

	if order.ShippingInfo != nil {
		info := &ShippingInfoDTO{
			ShippingAddress: AddressDTO{
				Street:     order.ShippingInfo.ShippingAddress.Street,
				City:       order.ShippingInfo.ShippingAddress.City,
				State:      order.ShippingInfo.ShippingAddress.State,
				Country:    order.ShippingInfo.ShippingAddress.Country,
				PostalCode: order.ShippingInfo.ShippingAddress.PostalCode,
			},
			TrackingCompany: order.ShippingInfo.TrackingCompany,
			TrackingNumber:  order.ShippingInfo.TrackingNumber,
		}
		if order.ShippingInfo.EstimatedDeliveryDate != nil {
			formatted := order.ShippingInfo.EstimatedDeliveryDate.UTC().Format(time.RFC3339Nano)
			info.EstimatedDeliveryDate = &formatted
		}
		response.ShippingInfo = info
	}

	return response
}
