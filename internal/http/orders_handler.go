package http

import (
	"context"
	"net/http"
	"time"

	"github.com/fjod/go_cart/storefront/internal/domain"
)

type Orders interface {
	ListUserOrders(ctx context.Context, userID int64) ([]domain.Order, error)
	GetOrder(ctx context.Context, id int64) (*domain.Order, error)
}

type OrdersHandler struct {
	orders  Orders
	userID  int64
	timeout time.Duration
}

func NewOrdersHandler(orders Orders, userID int64, timeout time.Duration) *OrdersHandler {
	return &OrdersHandler{
		orders:  orders,
		userID:  userID,
		timeout: timeout,
	}
}

type OrderItemDTO struct {
	ProductID   int64   `json:"product_id"`
	ProductName string  `json:"product_name"`
	Quantity    int     `json:"quantity"`
	Price       float64 `json:"price"`
}

type OrderResponseDTO struct {
	ID              int64          `json:"id"`
	TotalAmount     float64        `json:"total_amount"`
	Status          string         `json:"status"`
	StatusColor     string         `json:"status_color"`
	PaymentIntentID string         `json:"payment_intent_id,omitempty"`
	Items           []OrderItemDTO `json:"items"`
	CreatedAt       string         `json:"created_at"`
}

// GET /api/v1/orders
func (h *OrdersHandler) ListOrders(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	orders, err := h.orders.ListUserOrders(ctx, h.userID)
	if err != nil {
		handleAPIError(w, err)
		return
	}

	dtos := make([]OrderResponseDTO, 0, len(orders))
	for _, o := range orders {
		dtos = append(dtos, convertOrder(o))
	}

	respondJSON(w, http.StatusOK, dtos)
}

func convertOrder(o domain.Order) OrderResponseDTO {
	dtoItems := make([]OrderItemDTO, 0, len(o.Items))
	for _, item := range o.Items {
		productID := item.ProductID
		if productID == 0 && item.Product != nil {
			productID = item.Product.ID
		}
		dtoItems = append(dtoItems, OrderItemDTO{
			ProductID:   productID,
			ProductName: item.DisplayName(),
			Quantity:    item.Quantity,
			Price:       item.Price,
		})
	}

	dto := OrderResponseDTO{
		ID:              o.ID,
		TotalAmount:     o.TotalAmount,
		Status:          o.Status.String(),
		StatusColor:     o.Status.Color(),
		PaymentIntentID: o.StripePaymentIntentID,
		Items:           dtoItems,
	}
	if !o.CreatedAt.IsZero() {
		dto.CreatedAt = o.CreatedAt.Format(time.RFC3339)
	}
	return dto
}

// GET /api/v1/orders/{order_id}
func (h *OrdersHandler) GetOrder(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	orderID, ok := parseIDParam(w, r, "order_id")
	if !ok {
		return
	}

	order, err := h.orders.GetOrder(ctx, orderID)
	if err != nil {
		handleAPIError(w, err)
		return
	}
	if order == nil {
		respondError(w, http.StatusNotFound, "not_found", "order not found")
		return
	}

	respondJSON(w, http.StatusOK, convertOrder(*order))
}
