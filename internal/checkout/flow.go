package checkout

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/fjod/go_cart/storefront/internal/domain"
	"github.com/fjod/go_cart/storefront/internal/logger"
	"github.com/fjod/go_cart/storefront/internal/metrics"
	"github.com/fjod/go_cart/storefront/internal/publisher"
	"github.com/google/uuid"
)

// OrderAPI is the part of the remote API the checkout calls.
type OrderAPI interface {
	CreateOrder(ctx context.Context, req domain.CreateOrderRequest, idempotencyKey string) (*domain.Order, error)
	CreatePaymentIntent(ctx context.Context, orderID int64) (*domain.PaymentIntent, error)
	CancelPaymentIntent(ctx context.Context, intentID string) (*domain.PaymentIntent, error)
}

type CartSource interface {
	Snapshot() domain.CartSnapshot
}

type Receipt struct {
	OrderID         int64             `json:"order_id"`
	PaymentIntentID string            `json:"payment_intent_id"`
	Status          string            `json:"status"`
	Total           float64           `json:"total"`
	ItemCount       int               `json:"item_count"`
	Lines           []domain.CartLine `json:"lines"`
	Email           string            `json:"email"`
}

// State is a read-only view of the flow.
type State struct {
	Step       domain.CheckoutStep `json:"step"`
	Customer   domain.CustomerInfo `json:"customer"`
	LastError  string              `json:"last_error,omitempty"`
	Processing bool                `json:"processing"`
	OrderID    int64               `json:"order_id,omitempty"`
	Receipt    *Receipt            `json:"receipt,omitempty"`
}

// attempt remembers the order and intent created for one cart content so a
// retried payment does not create them twice.
type attempt struct {
	fingerprint    string
	idempotencyKey string
	order          *domain.Order
	intent         *domain.PaymentIntent
}

type Flow struct {
	api       OrderAPI
	cart      CartSource
	processor PaymentProcessor
	publisher publisher.Publisher
	onSuccess func(ctx context.Context)
	userID    int64
	log       *slog.Logger
	metrics   *metrics.AppMetrics

	mu       sync.Mutex
	step     domain.CheckoutStep
	customer domain.CustomerInfo
	lastErr  string
	busy     bool
	closed   bool
	attempt  *attempt
	receipt  *Receipt
	// bumped by Reset and Cancel so results of older payments are dropped
	generation uint64
}

type Option func(*Flow)

func WithLogger(l *slog.Logger) Option {
	return func(f *Flow) { f.log = l }
}

func WithMetrics(m *metrics.AppMetrics) Option {
	return func(f *Flow) { f.metrics = m }
}

func WithPublisher(p publisher.Publisher) Option {
	return func(f *Flow) { f.publisher = p }
}

// WithOnSuccess sets the callback run after a payment succeeds, typically
// clearing the cart.
func WithOnSuccess(fn func(ctx context.Context)) Option {
	return func(f *Flow) { f.onSuccess = fn }
}

func WithUserID(id int64) Option {
	return func(f *Flow) { f.userID = id }
}

func NewFlow(api OrderAPI, cart CartSource, processor PaymentProcessor, opts ...Option) *Flow {
	f := &Flow{
		api:       api,
		cart:      cart,
		processor: processor,
		publisher: publisher.NoopPublisher{},
		onSuccess: func(context.Context) {},
		userID:    1,
		log:       logger.Discard(),
		step:      domain.CheckoutStepCustomerInfo,
	}
	for _, opt := range opts {
		opt(f)
	}
	f.log = f.log.With("component", "checkout")
	return f
}

func (f *Flow) State() State {
	f.mu.Lock()
	defer f.mu.Unlock()

	s := State{
		Step:       f.step,
		Customer:   f.customer,
		LastError:  f.lastErr,
		Processing: f.busy,
		Receipt:    f.receipt,
	}
	if f.attempt != nil && f.attempt.order != nil {
		s.OrderID = f.attempt.order.ID
	}
	return s
}

// SubmitCustomerInfo stores the shopper's details and moves on to payment.
func (f *Flow) SubmitCustomerInfo(info domain.CustomerInfo) error {
	if missing := info.MissingFields(); len(missing) > 0 {
		return &ValidationError{Fields: missing}
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if f.busy {
		return ErrPaymentInProgress
	}
	if !domain.CanTransitionTo(f.step, domain.CheckoutStepAwaitingPayment) {
		return ErrIllegalTransition
	}
	f.customer = info
	f.step = domain.CheckoutStepAwaitingPayment
	f.lastErr = ""
	return nil
}

// Back returns to the customer form, keeping what was entered.
func (f *Flow) Back() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.busy {
		return ErrPaymentInProgress
	}
	if !domain.CanTransitionTo(f.step, domain.CheckoutStepCustomerInfo) {
		return ErrIllegalTransition
	}
	f.step = domain.CheckoutStepCustomerInfo
	return nil
}

// Pay places the order for the current cart and charges paymentMethodID.
//
// A decline keeps the flow in AwaitingPayment and returns *PaymentError.
// Failures talking to the backend return *ProcessingError and leave the cart
// alone. If the flow was closed or ctx was cancelled while the payment was
// running, the result is dropped and Pay returns (nil, nil).
func (f *Flow) Pay(ctx context.Context, paymentMethodID string) (*Receipt, error) {
	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return nil, nil
	}
	if f.busy {
		f.mu.Unlock()
		return nil, ErrPaymentInProgress
	}
	if f.step != domain.CheckoutStepAwaitingPayment {
		f.mu.Unlock()
		return nil, ErrIllegalTransition
	}
	snap := f.cart.Snapshot()
	if snap.IsEmpty() {
		f.mu.Unlock()
		return nil, ErrEmptyCart
	}

	fp := fingerprint(snap)
	if f.attempt == nil || f.attempt.fingerprint != fp {
		f.attempt = &attempt{fingerprint: fp, idempotencyKey: uuid.NewString()}
	}
	a := f.attempt
	gen := f.generation
	customer := f.customer
	f.busy = true
	f.lastErr = ""
	f.mu.Unlock()

	req := domain.NewCreateOrderRequest(f.userID, snap)
	order, intent, confirmation, err := f.pay(ctx, a, req, paymentMethodID, customer)

	f.mu.Lock()
	f.busy = false
	if f.closed || ctx.Err() != nil || gen != f.generation {
		f.mu.Unlock()
		f.log.InfoContext(ctx, "payment result discarded", "fingerprint", fp)
		return nil, nil
	}

	if err != nil {
		var payErr *PaymentError
		outcome := metrics.OutcomeFailed
		if errors.As(err, &payErr) {
			f.lastErr = payErr.Message
			outcome = metrics.OutcomeDeclined
		} else {
			f.lastErr = ProcessingMessage
		}
		f.mu.Unlock()

		f.metrics.RecordCheckout(ctx, outcome, 0)
		f.log.WarnContext(ctx, "payment failed", "outcome", outcome, "error", err)
		return nil, err
	}

	receipt := &Receipt{
		OrderID:         order.ID,
		PaymentIntentID: intent.IntentID(),
		Status:          confirmation.Status,
		Total:           snap.Total,
		ItemCount:       snap.ItemCount,
		Lines:           snap.Lines,
		Email:           customer.Email,
	}
	f.step = domain.CheckoutStepCompleted
	f.receipt = receipt
	f.mu.Unlock()

	f.onSuccess(context.WithoutCancel(ctx))
	f.metrics.RecordCheckout(ctx, metrics.OutcomeSucceeded, receipt.Total)
	f.log.InfoContext(ctx, "order placed", "order_id", receipt.OrderID, "total", receipt.Total)

	event := publisher.OrderPlaced{
		OrderID:         receipt.OrderID,
		UserID:          f.userID,
		PaymentIntentID: receipt.PaymentIntentID,
		TotalAmount:     receipt.Total,
		Items:           req.Items,
		PlacedAt:        time.Now().UTC(),
	}
	if err := f.publisher.PublishOrderPlaced(ctx, event); err != nil {
		f.log.ErrorContext(ctx, "failed to publish order placed event", "order_id", receipt.OrderID, "error", err)
	}
	return receipt, nil
}

func (f *Flow) pay(ctx context.Context, a *attempt, req domain.CreateOrderRequest, paymentMethodID string, customer domain.CustomerInfo) (*domain.Order, *domain.PaymentIntent, *domain.PaymentConfirmation, error) {
	order, intent := f.attemptState(a)

	if order == nil {
		created, err := f.api.CreateOrder(ctx, req, a.idempotencyKey)
		if err != nil {
			return nil, nil, nil, &ProcessingError{Op: "create order", Err: err}
		}
		if created == nil {
			return nil, nil, nil, &ProcessingError{Op: "create order", Err: errors.New("empty response")}
		}
		order = created
		f.setAttempt(a, order, nil)
		f.log.InfoContext(ctx, "order created", "order_id", order.ID)
	}

	if intent == nil {
		created, err := f.api.CreatePaymentIntent(ctx, order.ID)
		if err != nil {
			return nil, nil, nil, &ProcessingError{Op: "create payment intent", Err: err}
		}
		if created == nil {
			return nil, nil, nil, &ProcessingError{Op: "create payment intent", Err: errors.New("empty response")}
		}
		intent = created
		f.setAttempt(a, order, intent)
	}

	confirmation, err := f.processor.Confirm(ctx, *intent, paymentMethodID, customer.BillingDetails())
	if err != nil {
		var payErr *PaymentError
		if errors.As(err, &payErr) {
			return nil, nil, nil, payErr
		}
		return nil, nil, nil, &ProcessingError{Op: "confirm payment", Err: err}
	}
	return order, intent, confirmation, nil
}

func (f *Flow) attemptState(a *attempt) (*domain.Order, *domain.PaymentIntent) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return a.order, a.intent
}

func (f *Flow) setAttempt(a *attempt, order *domain.Order, intent *domain.PaymentIntent) {
	f.mu.Lock()
	defer f.mu.Unlock()
	a.order = order
	a.intent = intent
}

// Cancel abandons the checkout. A payment intent created for the pending
// order is cancelled on the backend; the flow goes back to the customer form
// even when that call fails.
func (f *Flow) Cancel(ctx context.Context) error {
	f.mu.Lock()
	if f.busy {
		f.mu.Unlock()
		return ErrPaymentInProgress
	}
	if f.step.IsTerminal() {
		f.mu.Unlock()
		return ErrIllegalTransition
	}
	a := f.attempt
	f.attempt = nil
	f.step = domain.CheckoutStepCustomerInfo
	f.lastErr = ""
	f.generation++
	f.mu.Unlock()

	if a == nil || a.intent == nil {
		return nil
	}
	intentID := a.intent.IntentID()
	if _, err := f.api.CancelPaymentIntent(ctx, intentID); err != nil {
		f.log.WarnContext(ctx, "failed to cancel payment intent", "intent_id", intentID, "error", err)
		return &ProcessingError{Op: "cancel payment intent", Err: err}
	}
	f.log.InfoContext(ctx, "payment intent cancelled", "intent_id", intentID)
	return nil
}

// Reset starts over with an empty customer form. It is refused while a
// payment is running so the pending order cannot be placed twice.
func (f *Flow) Reset() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.busy {
		return ErrPaymentInProgress
	}

	f.step = domain.CheckoutStepCustomerInfo
	f.customer = domain.CustomerInfo{}
	f.lastErr = ""
	f.attempt = nil
	f.receipt = nil
	f.generation++
	return nil
}

// Close detaches the flow; payments resolving afterwards change nothing.
func (f *Flow) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
}

// fingerprint identifies the cart content an order was created for.
func fingerprint(snap domain.CartSnapshot) string {
	parts := make([]string, 0, len(snap.Lines))
	for _, line := range snap.Lines {
		parts = append(parts, fmt.Sprintf("%d:%d:%.2f", line.ID, line.Quantity, line.Price))
	}
	slices.Sort(parts)
	return strings.Join(parts, ",")
}
