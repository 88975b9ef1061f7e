package checkout

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrEmptyCart         = errors.New("cart is empty, nothing to checkout")
	ErrIllegalTransition = errors.New("illegal transition of checkout step")
	ErrPaymentInProgress = errors.New("payment is already in progress")
)

// ProcessingMessage is what the shopper sees when a checkout call fails
// before the processor could answer.
const ProcessingMessage = "An error occurred while processing your payment."

// ValidationError lists the customer form fields that are blank.
type ValidationError struct {
	Fields []string
}

func (e *ValidationError) Error() string {
	return "missing required fields: " + strings.Join(e.Fields, ", ")
}

// PaymentError is a decline or rejected input reported by the processor.
// Message is shown to the shopper as is.
type PaymentError struct {
	Message string
}

func (e *PaymentError) Error() string {
	return e.Message
}

// ProcessingError wraps a network or backend failure in one of the checkout
// calls. The cart is left untouched when it is returned.
type ProcessingError struct {
	Op  string
	Err error
}

func (e *ProcessingError) Error() string {
	return fmt.Sprintf("checkout %s: %v", e.Op, e.Err)
}

func (e *ProcessingError) Unwrap() error {
	return e.Err
}

// UserMessage is the text shown to the shopper instead of the cause.
func (e *ProcessingError) UserMessage() string {
	return ProcessingMessage
}
