package httpx

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/orders/internal/domain"
	"github.com/vladislavdragonenkov/orders/internal/service/order"
)

// Handler обрабатывает HTTP-запросы к API заказов.
type Handler struct {
	orders *order.Service
	logger *log.Entry
}

// NewHandler создаёт handler поверх сервиса заказов.
func NewHandler(orders *order.Service, logger *log.Entry) *Handler {
	if logger == nil {
		logger = log.WithField("component", "http-handler")
	}
	return &Handler{
		orders: orders,
		logger: logger,
	}
}

// CreateOrder обрабатывает POST /orders.
func (h *Handler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	var req CreateOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", err.Error())
		return
	}

	if req.CustomerID == "" || len(req.Items) == 0 {
		writeError(w, http.StatusBadRequest, "invalid_request", "customer_id and items are required")
		return
	}

	items := make([]order.CreateOrderItem, 0, len(req.Items))
	for _, item := range req.Items {
		if item.ProductID == "" || item.Qty <= 0 {
			writeError(w, http.StatusBadRequest, "invalid_item", "product_id and positive qty are required")
			return
		}
		items = append(items, order.CreateOrderItem{
			ProductID: item.ProductID,
			VariantID: item.VariantID,
			Qty:       item.Qty,
		})
	}

	created, err := h.orders.CreateOrder(r.Context(), order.CreateOrderInput{
		CustomerID: req.CustomerID,
		Items:      items,
		ShippingAddress: domain.Address{
			Street:     req.ShippingAddress.Street,
			City:       req.ShippingAddress.City,
			State:      req.ShippingAddress.State,
			Country:    req.ShippingAddress.Country,
			PostalCode: req.ShippingAddress.PostalCode,
		},
	})
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, mapOrderToResponse(created))
}

// GetOrder обрабатывает GET /orders/{id}.
func (h *Handler) GetOrder(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "id")
	if orderID == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "order id is required")
		return
	}

	found, err := h.orders.GetOrder(r.Context(), orderID)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, mapOrderToResponse(found))
}

// ListOrders обрабатывает GET /orders?customer_id=...&limit=...
func (h *Handler) ListOrders(w http.ResponseWriter, r *http.Request) {
	customerID := r.URL.Query().Get("customer_id")
	if customerID == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "customer_id query parameter is required")
		return
	}

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			writeError(w, http.StatusBadRequest, "invalid_request", "limit must be a non-negative integer")
			return
		}
		limit = parsed
	}

	orders, err := h.orders.ListOrders(r.Context(), customerID, limit)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}

	responses := make([]OrderResponse, 0, len(orders))
	for _, o := range orders {
		responses = append(responses, mapOrderToResponse(o))
	}

	writeJSON(w, http.StatusOK, responses)
}

// UpdateOrderStatus обрабатывает PUT /orders/{id}/status.
func (h *Handler) UpdateOrderStatus(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "id")

	var req UpdateStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", err.Error())
		return
	}

	status := domain.OrderStatus(req.Status)
	if !status.IsValid() {
		writeError(w, http.StatusBadRequest, "invalid_request", "unknown order status: "+req.Status)
		return
	}

	updated, err := h.orders.UpdateOrderStatus(r.Context(), orderID, status)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, mapOrderToResponse(updated))
}

// UpdateShippingInfo обрабатывает PUT /orders/{id}/shipping.
func (h *Handler) UpdateShippingInfo(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "id")

	var req UpdateShippingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", err.Error())
		return
	}

	updated, err := h.orders.UpdateShippingInfo(r.Context(), orderID, order.UpdateShippingInput{
		TrackingCompany:       req.TrackingCompany,
		TrackingNumber:        req.TrackingNumber,
		EstimatedDeliveryDate: req.EstimatedDeliveryDate,
	})
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, mapOrderToResponse(updated))
}

// DeleteOrder обрабатывает DELETE /orders/{id}.
func (h *Handler) DeleteOrder(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "id")

	if err := h.orders.DeleteOrder(r.Context(), orderID); err != nil {
		h.writeDomainError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// writeDomainError переводит ошибки домена в HTTP-статусы.
func (h *Handler) writeDomainError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case domain.IsNotFound(err):
		writeError(w, http.StatusNotFound, "not_found", err.Error())
	case domain.IsInvalidRequest(err):
		writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
	case domain.IsVersionConflict(err):
		writeError(w, http.StatusConflict, "conflict", err.Error())
	default:
		h.logger.WithError(err).WithFields(log.Fields{
			"method": r.Method,
			"path":   r.URL.Path,
		}).Error("request failed")
		writeError(w, http.StatusInternalServerError, "internal_error", "internal server error")
	}
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, ErrorResponse{Error: code, Message: message})
}
