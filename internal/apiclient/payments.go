package apiclient

import (
	"context"
	"fmt"
	"net/http"

	"github.com/fjod/go_cart/storefront/internal/domain"
)

func (c *Client) CreatePaymentIntent(ctx context.Context, orderID int64) (*domain.PaymentIntent, error) {
	var intent *domain.PaymentIntent
	err := c.do(ctx, request{
		op:     "create_payment_intent",
		method: http.MethodPost,
		path:   fmt.Sprintf("/payments/create-payment-intent?orderId=%d", orderID),
	}, &intent)
	if err != nil {
		return nil, err
	}
	return intent, nil
}

// ConfirmPayment asks the backend to confirm intentID with a tokenised
// payment method.
func (c *Client) ConfirmPayment(ctx context.Context, intentID, paymentMethodID string) (*domain.PaymentConfirmation, error) {
	var confirmation *domain.PaymentConfirmation
	err := c.do(ctx, request{
		op:     "confirm_payment",
		method: http.MethodPost,
		path: fmt.Sprintf("/payments/confirm-payment?paymentIntentId=%s&paymentMethodId=%s",
			escapeQuery(intentID), escapeQuery(paymentMethodID)),
	}, &confirmation)
	if err != nil {
		return nil, err
	}
	return confirmation, nil
}

func (c *Client) CancelPaymentIntent(ctx context.Context, intentID string) (*domain.PaymentIntent, error) {
	var intent *domain.PaymentIntent
	err := c.do(ctx, request{
		op:     "cancel_payment_intent",
		method: http.MethodPost,
		path:   "/payments/cancel-payment-intent?paymentIntentId=" + escapeQuery(intentID),
	}, &intent)
	if err != nil {
		return nil, err
	}
	return intent, nil
}

func (c *Client) GetPaymentIntent(ctx context.Context, intentID string) (*domain.PaymentIntent, error) {
	var intent *domain.PaymentIntent
	err := c.do(ctx, request{
		op:     "get_payment_intent",
		method: http.MethodGet,
		path:   "/payments/payment-intent/" + escapeQuery(intentID),
	}, &intent)
	if err != nil {
		return nil, err
	}
	return intent, nil
}
