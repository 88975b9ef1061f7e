package domain

type CheckoutStep string

const (
	CheckoutStepCustomerInfo    CheckoutStep = "COLLECTING_CUSTOMER_INFO"
	CheckoutStepAwaitingPayment CheckoutStep = "AWAITING_PAYMENT"
	CheckoutStepCompleted       CheckoutStep = "COMPLETED"
)

var checkoutTransitions = map[CheckoutStep][]CheckoutStep{
	CheckoutStepCustomerInfo:    {CheckoutStepAwaitingPayment},
	CheckoutStepAwaitingPayment: {CheckoutStepCustomerInfo, CheckoutStepAwaitingPayment, CheckoutStepCompleted},
}

// CanTransitionTo reports whether the checkout flow may move from one step
// to the next. Completed has no outgoing edges.
func CanTransitionTo(from, to CheckoutStep) bool {
	for _, next := range checkoutTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

func (s CheckoutStep) IsTerminal() bool {
	return s == CheckoutStepCompleted
}

// String representation (for logging)
func (s CheckoutStep) String() string {
	return string(s)
}
