package domain

import "strings"

// Payment intent statuses reported by the processor.
const (
	PaymentStatusSucceeded             = "succeeded"
	PaymentStatusProcessing            = "processing"
	PaymentStatusRequiresPaymentMethod = "requires_payment_method"
	PaymentStatusRequiresAction        = "requires_action"
	PaymentStatusCanceled              = "canceled"
)

type PaymentIntent struct {
	ID           string `json:"paymentIntentId"`
	ClientSecret string `json:"clientSecret"`
	Status       string `json:"status"`
	Amount       int64  `json:"amount,omitempty"`
	Currency     string `json:"currency,omitempty"`
}

// IntentID returns the intent id, deriving it from the client secret
// (pi_xxx_secret_yyy) when the backend omitted it.
func (p PaymentIntent) IntentID() string {
	if p.ID != "" {
		return p.ID
	}
	if idx := strings.Index(p.ClientSecret, "_secret_"); idx > 0 {
		return p.ClientSecret[:idx]
	}
	return ""
}

type PaymentConfirmation struct {
	PaymentIntentID string `json:"paymentIntentId"`
	Status          string `json:"status"`
	Message         string `json:"message,omitempty"`
}

func (c PaymentConfirmation) Succeeded() bool {
	return c.Status == PaymentStatusSucceeded || c.Status == PaymentStatusProcessing
}

// BillingDetails is the shape the processor expects for the card holder.
type BillingDetails struct {
	Name    string         `json:"name"`
	Email   string         `json:"email"`
	Address BillingAddress `json:"address"`
}

type BillingAddress struct {
	Line1      string `json:"line1"`
	City       string `json:"city"`
	PostalCode string `json:"postal_code"`
}
