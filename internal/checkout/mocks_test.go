package checkout

import (
	"context"
	"errors"
	"sync"

	"github.com/fjod/go_cart/storefront/internal/domain"
	"github.com/fjod/go_cart/storefront/internal/publisher"
)

// MockOrderAPI implements OrderAPI for testing
type MockOrderAPI struct {
	mu sync.Mutex

	Order           *domain.Order
	CreateErr       error
	CreateRequests  []domain.CreateOrderRequest
	IdempotencyKeys []string
	// Entered receives once CreateOrder is running; Block holds it until closed
	Entered chan struct{}
	Block   chan struct{}

	Intent         *domain.PaymentIntent
	IntentErr      error
	IntentOrderIDs []int64

	CancelErr        error
	CancelledIntents []string
}

func (m *MockOrderAPI) CreateOrder(_ context.Context, req domain.CreateOrderRequest, key string) (*domain.Order, error) {
	if m.Entered != nil {
		m.Entered <- struct{}{}
	}
	if m.Block != nil {
		<-m.Block
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.CreateRequests = append(m.CreateRequests, req)
	m.IdempotencyKeys = append(m.IdempotencyKeys, key)
	if m.CreateErr != nil {
		return nil, m.CreateErr
	}
	order := *m.Order
	order.ID += int64(len(m.CreateRequests) - 1)
	return &order, nil
}

func (m *MockOrderAPI) CreatePaymentIntent(_ context.Context, orderID int64) (*domain.PaymentIntent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.IntentOrderIDs = append(m.IntentOrderIDs, orderID)
	if m.IntentErr != nil {
		return nil, m.IntentErr
	}
	return m.Intent, nil
}

func (m *MockOrderAPI) CancelPaymentIntent(_ context.Context, intentID string) (*domain.PaymentIntent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.CancelledIntents = append(m.CancelledIntents, intentID)
	if m.CancelErr != nil {
		return nil, m.CancelErr
	}
	return &domain.PaymentIntent{ID: intentID, Status: domain.PaymentStatusCanceled}, nil
}

func (m *MockOrderAPI) createCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.CreateRequests)
}

// MockCart implements CartSource for testing
type MockCart struct {
	Snap domain.CartSnapshot
}

func (m *MockCart) Snapshot() domain.CartSnapshot {
	return m.Snap
}

// RecordingProcessor implements PaymentProcessor for testing; Errs are returned
// in order, then nil
type RecordingProcessor struct {
	Errs        []error
	Calls       int
	Methods     []string
	LastIntent  domain.PaymentIntent
	LastBilling domain.BillingDetails
}

func (m *RecordingProcessor) Confirm(_ context.Context, intent domain.PaymentIntent, paymentMethodID string, billing domain.BillingDetails) (*domain.PaymentConfirmation, error) {
	m.Calls++
	m.Methods = append(m.Methods, paymentMethodID)
	m.LastIntent = intent
	m.LastBilling = billing
	if len(m.Errs) > 0 {
		err := m.Errs[0]
		m.Errs = m.Errs[1:]
		if err != nil {
			return nil, err
		}
	}
	return &domain.PaymentConfirmation{PaymentIntentID: intent.IntentID(), Status: domain.PaymentStatusSucceeded}, nil
}

// MockPublisher implements publisher.Publisher for testing
type MockPublisher struct {
	Events []publisher.OrderPlaced
	Err    error
}

func (m *MockPublisher) PublishOrderPlaced(_ context.Context, event publisher.OrderPlaced) error {
	m.Events = append(m.Events, event)
	return m.Err
}

func (m *MockPublisher) Close() error {
	return nil
}

// MockConfirmer implements PaymentConfirmer for testing
type MockConfirmer struct {
	Confirmation *domain.PaymentConfirmation
	Err          error
	IntentID     string
	MethodID     string
}

func (m *MockConfirmer) ConfirmPayment(_ context.Context, intentID, paymentMethodID string) (*domain.PaymentConfirmation, error) {
	m.IntentID = intentID
	m.MethodID = paymentMethodID
	return m.Confirmation, m.Err
}

var errBackendDown = errors.New("connection refused")
