package checkout

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/fjod/go_cart/storefront/internal/apiclient"
	"github.com/fjod/go_cart/storefront/internal/config"
	"github.com/fjod/go_cart/storefront/internal/domain"
)

// Test payment method ids understood by MockProcessor.
const (
	MockCardDeclined          = "pm_card_chargeDeclined"
	MockCardInsufficientFunds = "pm_card_insufficientFunds"
	MockCardVisa              = "pm_card_visa"
)

// PaymentProcessor confirms a payment intent with a tokenised payment
// method. A decline is returned as *PaymentError; any other error means the
// processor could not be reached.
type PaymentProcessor interface {
	Confirm(ctx context.Context, intent domain.PaymentIntent, paymentMethodID string, billing domain.BillingDetails) (*domain.PaymentConfirmation, error)
}

// PaymentConfirmer is the part of the remote API BackendProcessor uses.
type PaymentConfirmer interface {
	ConfirmPayment(ctx context.Context, intentID, paymentMethodID string) (*domain.PaymentConfirmation, error)
}

// NewProcessor picks the processor named by kind.
func NewProcessor(kind string, confirmer PaymentConfirmer) (PaymentProcessor, error) {
	switch kind {
	case config.ProcessorBackend, "":
		return &BackendProcessor{confirmer: confirmer}, nil
	case config.ProcessorMock:
		return MockProcessor{}, nil
	default:
		return nil, fmt.Errorf("unknown payment processor %q", kind)
	}
}

// BackendProcessor confirms payments through the backend's payment endpoint.
type BackendProcessor struct {
	confirmer PaymentConfirmer
}

func NewBackendProcessor(confirmer PaymentConfirmer) *BackendProcessor {
	return &BackendProcessor{confirmer: confirmer}
}

func (p *BackendProcessor) Confirm(ctx context.Context, intent domain.PaymentIntent, paymentMethodID string, _ domain.BillingDetails) (*domain.PaymentConfirmation, error) {
	if strings.TrimSpace(paymentMethodID) == "" {
		return nil, &PaymentError{Message: "Your card number is incomplete."}
	}

	confirmation, err := p.confirmer.ConfirmPayment(ctx, intent.IntentID(), paymentMethodID)
	if err != nil {
		var statusErr *apiclient.HTTPStatusError
		if errors.As(err, &statusErr) && statusErr.StatusCode >= http.StatusBadRequest && statusErr.StatusCode < http.StatusInternalServerError {
			return nil, &PaymentError{Message: declineMessage(statusErr.Message, "")}
		}
		return nil, err
	}
	if confirmation == nil {
		return nil, errors.New("confirm payment: empty response")
	}
	if !confirmation.Succeeded() {
		return nil, &PaymentError{Message: declineMessage(confirmation.Message, confirmation.Status)}
	}
	return confirmation, nil
}

func declineMessage(message, status string) string {
	if message != "" {
		return message
	}
	if status != "" {
		return fmt.Sprintf("Payment failed: %v", status)
	}
	return "Your payment was declined."
}

// MockProcessor settles payments locally, keyed by payment method id.
type MockProcessor struct{}

func (MockProcessor) Confirm(_ context.Context, intent domain.PaymentIntent, paymentMethodID string, _ domain.BillingDetails) (*domain.PaymentConfirmation, error) {
	switch strings.TrimSpace(paymentMethodID) {
	case "":
		return nil, &PaymentError{Message: "Your card number is incomplete."}
	case MockCardDeclined:
		return nil, &PaymentError{Message: "Your card was declined."}
	case MockCardInsufficientFunds:
		return nil, &PaymentError{Message: "Your card has insufficient funds."}
	}
	return &domain.PaymentConfirmation{
		PaymentIntentID: intent.IntentID(),
		Status:          domain.PaymentStatusSucceeded,
	}, nil
}
