package apiclient

import (
	"context"
	"fmt"
	"net/http"

	"github.com/fjod/go_cart/storefront/internal/domain"
)

// CreateOrder posts a new order. A non-empty idempotencyKey is sent as the
// Idempotency-Key header so a retried submission can be recognised.
func (c *Client) CreateOrder(ctx context.Context, req domain.CreateOrderRequest, idempotencyKey string) (*domain.Order, error) {
	var headers map[string]string
	if idempotencyKey != "" {
		headers = map[string]string{"Idempotency-Key": idempotencyKey}
	}

	var order *domain.Order
	err := c.do(ctx, request{
		op:      "create_order",
		method:  http.MethodPost,
		path:    "/orders",
		body:    req,
		headers: headers,
	}, &order)
	if err != nil {
		return nil, err
	}
	return order, nil
}

func (c *Client) GetOrder(ctx context.Context, id int64) (*domain.Order, error) {
	var order *domain.Order
	err := c.do(ctx, request{
		op:     "get_order",
		method: http.MethodGet,
		path:   fmt.Sprintf("/orders/%d", id),
	}, &order)
	if err != nil {
		return nil, err
	}
	return order, nil
}

func (c *Client) ListUserOrders(ctx context.Context, userID int64) ([]domain.Order, error) {
	var orders []domain.Order
	err := c.do(ctx, request{
		op:     "list_user_orders",
		method: http.MethodGet,
		path:   fmt.Sprintf("/orders/user/%d", userID),
	}, &orders)
	if err != nil {
		return nil, err
	}
	return orders, nil
}
