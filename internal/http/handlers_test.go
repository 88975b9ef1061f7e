package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/fjod/go_cart/storefront/internal/apiclient"
	"github.com/fjod/go_cart/storefront/internal/catalog"
	"github.com/fjod/go_cart/storefront/internal/checkout"
	"github.com/fjod/go_cart/storefront/internal/domain"
	"github.com/fjod/go_cart/storefront/internal/session"
	"github.com/fjod/go_cart/storefront/internal/store"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// MockCatalog implements Catalog for testing
type MockCatalog struct {
	Products   []domain.Product
	ByID       map[int64]domain.Product
	Err        error
	LastFilter catalog.Filter
	LastQuery  string
}

func (m *MockCatalog) View(_ context.Context, f catalog.Filter) ([]domain.Product, error) {
	m.LastFilter = f
	return m.Products, m.Err
}

func (m *MockCatalog) Refresh(context.Context) ([]domain.Product, error) {
	return m.Products, m.Err
}

func (m *MockCatalog) Search(_ context.Context, query string, f catalog.Filter) ([]domain.Product, error) {
	m.LastQuery = query
	m.LastFilter = f
	return m.Products, m.Err
}

func (m *MockCatalog) Product(_ context.Context, id int64) (*domain.Product, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	p, ok := m.ByID[id]
	if !ok {
		return nil, catalog.ErrProductNotFound
	}
	return &p, nil
}

// MockCheckout implements Checkout for testing
type MockCheckout struct {
	StateValue checkout.State
	SubmitErr  error
	Submitted  domain.CustomerInfo
	PayReceipt *checkout.Receipt
	PayErr     error
	PayMethod  string
	CancelErr  error
	ResetCalls int
	ResetErr   error
}

func (m *MockCheckout) State() checkout.State { return m.StateValue }

func (m *MockCheckout) SubmitCustomerInfo(info domain.CustomerInfo) error {
	m.Submitted = info
	return m.SubmitErr
}

func (m *MockCheckout) Back() error { return nil }

func (m *MockCheckout) Pay(_ context.Context, paymentMethodID string) (*checkout.Receipt, error) {
	m.PayMethod = paymentMethodID
	return m.PayReceipt, m.PayErr
}

func (m *MockCheckout) Cancel(context.Context) error { return m.CancelErr }

func (m *MockCheckout) Reset() error {
	m.ResetCalls++
	return m.ResetErr
}

// MockOrders implements Orders for testing
type MockOrders struct {
	Orders []domain.Order
	Order  *domain.Order
	Err    error
	UserID int64
}

func (m *MockOrders) ListUserOrders(_ context.Context, userID int64) ([]domain.Order, error) {
	m.UserID = userID
	return m.Orders, m.Err
}

func (m *MockOrders) GetOrder(context.Context, int64) (*domain.Order, error) {
	return m.Order, m.Err
}

type testServer struct {
	catalog  *MockCatalog
	cart     *session.CartSession
	checkout *MockCheckout
	orders   *MockOrders
	router   http.Handler
}

func setupServer(t *testing.T) *testServer {
	t.Helper()
	ts := &testServer{
		catalog: &MockCatalog{
			Products: []domain.Product{{ID: 1, Name: "Laptop", Price: 999.99, Stock: 5}},
			ByID: map[int64]domain.Product{
				1: {ID: 1, Name: "Laptop", Price: 999.99, Stock: 5},
				2: {ID: 2, Name: "Sold out", Price: 10, Stock: 0},
			},
		},
		cart:     session.NewCartSession(context.Background(), store.NewAdapter(store.NewMemoryStore(), nil, nil), "cart"),
		checkout: &MockCheckout{StateValue: checkout.State{Step: domain.CheckoutStepCustomerInfo}},
		orders:   &MockOrders{},
	}
	ts.router = NewRouter(Handlers{
		Products: NewProductHandler(ts.catalog, 5*time.Second),
		Cart:     NewCartHandler(ts.cart, ts.catalog, 5*time.Second),
		Checkout: NewCheckoutHandler(ts.checkout, 5*time.Second, nil),
		Orders:   NewOrdersHandler(ts.orders, 7, 5*time.Second),
		Store:    store.NewMemoryStore(),
	}, RouterConfig{RequestTimeout: 5 * time.Second, MaxRequestBodySize: 1 << 10})
	return ts
}

func (ts *testServer) do(method, path, body string) *httptest.ResponseRecorder {
	recorder := httptest.NewRecorder()
	ts.router.ServeHTTP(recorder, httptest.NewRequest(method, path, strings.NewReader(body)))
	return recorder
}

func decodeError(t *testing.T, recorder *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var response ErrorResponse
	require.NoError(t, json.NewDecoder(recorder.Body).Decode(&response))
	return response
}

func TestHealth(t *testing.T) {
	ts := setupServer(t)

	recorder := ts.do("GET", "/health", "")

	assert.Equal(t, http.StatusOK, recorder.Code)
	assert.JSONEq(t, `{"status":"ok"}`, recorder.Body.String())
	assert.NotEmpty(t, recorder.Header().Get("X-Request-ID"))
}

func TestRequestIDIsEchoed(t *testing.T) {
	ts := setupServer(t)
	recorder := httptest.NewRecorder()
	request := httptest.NewRequest("GET", "/health", nil)
	request.Header.Set("X-Request-ID", "req-123")

	ts.router.ServeHTTP(recorder, request)

	assert.Equal(t, "req-123", recorder.Header().Get("X-Request-ID"))
}

func TestRequestIDMiddleware_SingleID(t *testing.T) {
	var seen, chiSeen string
	handler := RequestIDMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = getRequestID(r.Context())
		chiSeen = middleware.GetReqID(r.Context())
	}))

	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, httptest.NewRequest("GET", "/", nil))

	require.NotEmpty(t, seen)
	assert.Equal(t, seen, chiSeen)
	assert.Equal(t, seen, recorder.Header().Get("X-Request-ID"))
}

func TestListProducts_ParsesFilter(t *testing.T) {
	ts := setupServer(t)

	recorder := ts.do("GET", "/api/v1/products?search=lap&min=10&max=1000&sort=price-desc", "")

	require.Equal(t, http.StatusOK, recorder.Code)
	assert.Equal(t, catalog.Filter{Search: "lap", MinPrice: 10, MaxPrice: 1000, Sort: catalog.SortByPriceDesc}, ts.catalog.LastFilter)

	var response ProductsResponse
	require.NoError(t, json.NewDecoder(recorder.Body).Decode(&response))
	assert.Equal(t, 1, response.Count)
	assert.True(t, response.Products[0].InStock)
	assert.Nil(t, response.Products[0].CreatedAt)
}

func TestListProducts_DefaultFilter(t *testing.T) {
	ts := setupServer(t)

	recorder := ts.do("GET", "/api/v1/products?sort=rating", "")

	require.Equal(t, http.StatusOK, recorder.Code)
	assert.Equal(t, catalog.SortByName, ts.catalog.LastFilter.Sort)
	assert.True(t, math.IsInf(ts.catalog.LastFilter.MaxPrice, 1))
}

func TestListProducts_InvalidPrice(t *testing.T) {
	tests := []struct {
		name  string
		query string
	}{
		{"not a number", "min=abc"},
		{"negative", "max=-1"},
		{"NaN min", "min=NaN"},
		{"NaN max", "max=nan"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := setupServer(t)

			recorder := ts.do("GET", "/api/v1/products?"+tt.query, "")

			assert.Equal(t, http.StatusBadRequest, recorder.Code)
			assert.Equal(t, "invalid_price", decodeError(t, recorder).Code)
		})
	}
}

func TestSearchProducts(t *testing.T) {
	ts := setupServer(t)

	recorder := ts.do("GET", "/api/v1/products/search?q=iPhone%20%26%20iPad&max=500", "")

	require.Equal(t, http.StatusOK, recorder.Code)
	assert.Equal(t, "iPhone & iPad", ts.catalog.LastQuery)
	assert.Equal(t, 500.0, ts.catalog.LastFilter.MaxPrice)
}

func TestListProducts_BackendDown(t *testing.T) {
	ts := setupServer(t)
	ts.catalog.Err = &apiclient.TransportError{Op: "list_products", Err: errors.New("connection refused")}

	recorder := ts.do("GET", "/api/v1/products", "")

	assert.Equal(t, http.StatusServiceUnavailable, recorder.Code)
	assert.Equal(t, "service_unavailable", decodeError(t, recorder).Code)
}

func TestGetProduct(t *testing.T) {
	ts := setupServer(t)

	recorder := ts.do("GET", "/api/v1/products/1", "")

	require.Equal(t, http.StatusOK, recorder.Code)
	var response ProductResponse
	require.NoError(t, json.NewDecoder(recorder.Body).Decode(&response))
	assert.Equal(t, "Laptop", response.Name)
}

func TestGetProduct_NotFound(t *testing.T) {
	ts := setupServer(t)

	recorder := ts.do("GET", "/api/v1/products/99", "")

	assert.Equal(t, http.StatusNotFound, recorder.Code)
	assert.Equal(t, "not_found", decodeError(t, recorder).Code)
}

func TestGetProduct_InvalidID(t *testing.T) {
	handler := NewProductHandler(&MockCatalog{}, 5*time.Second)
	recorder := httptest.NewRecorder()
	request := httptest.NewRequest("GET", "/", nil)

	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("product_id", "abc")
	request = request.WithContext(context.WithValue(request.Context(), chi.RouteCtxKey, rctx))

	handler.Get(recorder, request)

	assert.Equal(t, http.StatusBadRequest, recorder.Code)
	assert.Equal(t, "invalid_product_id", decodeError(t, recorder).Code)
}

func TestAddItem_Success(t *testing.T) {
	ts := setupServer(t)

	recorder := ts.do("POST", "/api/v1/cart/items", `{"product_id":1,"quantity":2}`)

	require.Equal(t, http.StatusCreated, recorder.Code)
	var response CartResponseDTO
	require.NoError(t, json.NewDecoder(recorder.Body).Decode(&response))
	assert.Equal(t, 2, response.ItemCount)
	assert.Equal(t, 1999.98, response.Total)
	require.Len(t, response.Items, 1)
	assert.Equal(t, 1999.98, response.Items[0].Subtotal)

	assert.Equal(t, 2, ts.cart.Snapshot().ItemCount)
}

func TestAddItem_Validation(t *testing.T) {
	ts := setupServer(t)

	tests := []struct {
		name string
		body string
		code string
	}{
		{"invalid json", `{`, "invalid_request"},
		{"missing product", `{"quantity":1}`, "invalid_product_id"},
		{"zero quantity", `{"product_id":1,"quantity":0}`, "invalid_quantity"},
		{"too many", `{"product_id":1,"quantity":100}`, "invalid_quantity"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			recorder := ts.do("POST", "/api/v1/cart/items", tt.body)

			assert.Equal(t, http.StatusBadRequest, recorder.Code)
			assert.Equal(t, tt.code, decodeError(t, recorder).Code)
		})
	}
}

func TestAddItem_StockRules(t *testing.T) {
	ts := setupServer(t)

	recorder := ts.do("POST", "/api/v1/cart/items", `{"product_id":2,"quantity":1}`)
	assert.Equal(t, http.StatusConflict, recorder.Code)
	assert.Equal(t, "out_of_stock", decodeError(t, recorder).Code)

	recorder = ts.do("POST", "/api/v1/cart/items", `{"product_id":1,"quantity":6}`)
	assert.Equal(t, http.StatusConflict, recorder.Code)
	assert.Equal(t, "insufficient_stock", decodeError(t, recorder).Code)

	assert.True(t, ts.cart.Snapshot().IsEmpty())
}

func TestAddItem_BodyTooLarge(t *testing.T) {
	ts := setupServer(t)
	body := `{"product_id":1,"quantity":1,"padding":"` + strings.Repeat("x", 2048) + `"}`

	recorder := ts.do("POST", "/api/v1/cart/items", body)

	assert.Equal(t, http.StatusRequestEntityTooLarge, recorder.Code)
}

func TestUpdateQuantity(t *testing.T) {
	ts := setupServer(t)
	_, err := ts.cart.Add(context.Background(), domain.Product{ID: 1, Name: "Laptop", Price: 999.99, Stock: 5}, 1)
	require.NoError(t, err)

	recorder := ts.do("PUT", "/api/v1/cart/items/1", `{"quantity":3}`)
	require.Equal(t, http.StatusOK, recorder.Code)
	assert.Equal(t, 3, ts.cart.Snapshot().ItemCount)

	recorder = ts.do("PUT", "/api/v1/cart/items/1", `{"quantity":0}`)
	require.Equal(t, http.StatusOK, recorder.Code)
	assert.True(t, ts.cart.Snapshot().IsEmpty())
}

func TestUpdateQuantity_NegativeRemovesLine(t *testing.T) {
	ts := setupServer(t)
	_, err := ts.cart.Add(context.Background(), domain.Product{ID: 1, Name: "Laptop", Price: 999.99, Stock: 5}, 2)
	require.NoError(t, err)

	recorder := ts.do("PUT", "/api/v1/cart/items/1", `{"quantity":-3}`)

	require.Equal(t, http.StatusOK, recorder.Code)
	assert.True(t, ts.cart.Snapshot().IsEmpty())
}

func TestUpdateQuantity_TooMany(t *testing.T) {
	ts := setupServer(t)
	_, err := ts.cart.Add(context.Background(), domain.Product{ID: 1, Name: "Laptop", Price: 999.99, Stock: 5}, 1)
	require.NoError(t, err)

	recorder := ts.do("PUT", "/api/v1/cart/items/1", `{"quantity":100}`)

	assert.Equal(t, http.StatusBadRequest, recorder.Code)
	assert.Equal(t, "invalid_quantity", decodeError(t, recorder).Code)
	assert.Equal(t, 1, ts.cart.Snapshot().ItemCount)
}

func TestUpdateQuantity_NotInCart(t *testing.T) {
	ts := setupServer(t)

	recorder := ts.do("PUT", "/api/v1/cart/items/1", `{"quantity":3}`)

	assert.Equal(t, http.StatusNotFound, recorder.Code)
	assert.Equal(t, "not_in_cart", decodeError(t, recorder).Code)
}

func TestRemoveAndClear(t *testing.T) {
	ts := setupServer(t)
	ctx := context.Background()
	_, err := ts.cart.Add(ctx, domain.Product{ID: 1, Price: 10, Stock: 5}, 1)
	require.NoError(t, err)
	_, err = ts.cart.Add(ctx, domain.Product{ID: 2, Price: 5, Stock: 5}, 1)
	require.NoError(t, err)

	recorder := ts.do("DELETE", "/api/v1/cart/items/1", "")
	require.Equal(t, http.StatusOK, recorder.Code)
	assert.Equal(t, 1, ts.cart.Snapshot().ItemCount)

	recorder = ts.do("DELETE", "/api/v1/cart", "")
	require.Equal(t, http.StatusOK, recorder.Code)
	assert.True(t, ts.cart.Snapshot().IsEmpty())

	recorder = ts.do("GET", "/api/v1/cart", "")
	require.Equal(t, http.StatusOK, recorder.Code)
	assert.JSONEq(t, `{"items":[],"total":0,"item_count":0}`, recorder.Body.String())
}

func TestSubmitCustomer_Validation(t *testing.T) {
	ts := setupServer(t)
	ts.checkout.SubmitErr = &checkout.ValidationError{Fields: []string{"email", "zipCode"}}

	recorder := ts.do("POST", "/api/v1/checkout/customer", `{"name":"Jane"}`)

	assert.Equal(t, http.StatusBadRequest, recorder.Code)
	response := decodeError(t, recorder)
	assert.Equal(t, "validation_failed", response.Code)
	assert.Equal(t, "email,zipCode", response.Details)
	assert.Equal(t, "Jane", ts.checkout.Submitted.Name)
}

func TestPay_Success(t *testing.T) {
	ts := setupServer(t)
	ts.checkout.PayReceipt = &checkout.Receipt{OrderID: 42, Status: domain.PaymentStatusSucceeded, Total: 59.97}

	recorder := ts.do("POST", "/api/v1/checkout/pay", `{"payment_method_id":"pm_card_visa"}`)

	require.Equal(t, http.StatusCreated, recorder.Code)
	assert.Equal(t, "pm_card_visa", ts.checkout.PayMethod)
	var receipt checkout.Receipt
	require.NoError(t, json.NewDecoder(recorder.Body).Decode(&receipt))
	assert.Equal(t, int64(42), receipt.OrderID)
}

func TestPay_Errors(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
		wantMsg    string
	}{
		{"declined", &checkout.PaymentError{Message: "Your card was declined."}, http.StatusPaymentRequired, "payment_declined", "Your card was declined."},
		{"backend rejected order", &checkout.ProcessingError{Op: "create order", Err: &apiclient.HTTPStatusError{StatusCode: 400}}, http.StatusBadGateway, "payment_processing_failed", checkout.ProcessingMessage},
		{"backend unreachable", &checkout.ProcessingError{Op: "create order", Err: &apiclient.TransportError{Op: "create_order", Err: errors.New("refused")}}, http.StatusServiceUnavailable, "payment_processing_failed", checkout.ProcessingMessage},
		{"empty cart", checkout.ErrEmptyCart, http.StatusBadRequest, "empty_cart", checkout.ErrEmptyCart.Error()},
		{"in flight", checkout.ErrPaymentInProgress, http.StatusConflict, "payment_in_progress", checkout.ErrPaymentInProgress.Error()},
		{"wrong step", checkout.ErrIllegalTransition, http.StatusConflict, "illegal_transition", checkout.ErrIllegalTransition.Error()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := setupServer(t)
			ts.checkout.PayErr = tt.err

			recorder := ts.do("POST", "/api/v1/checkout/pay", `{"payment_method_id":"pm_card_visa"}`)

			assert.Equal(t, tt.wantStatus, recorder.Code)
			response := decodeError(t, recorder)
			assert.Equal(t, tt.wantCode, response.Code)
			assert.Equal(t, tt.wantMsg, response.Error)
		})
	}
}

func TestPay_AbandonedReturnsNoContent(t *testing.T) {
	ts := setupServer(t)

	recorder := ts.do("POST", "/api/v1/checkout/pay", `{"payment_method_id":"pm_card_visa"}`)

	assert.Equal(t, http.StatusNoContent, recorder.Code)
}

func TestCheckoutResetAndState(t *testing.T) {
	ts := setupServer(t)

	recorder := ts.do("POST", "/api/v1/checkout/reset", "")
	require.Equal(t, http.StatusOK, recorder.Code)
	assert.Equal(t, 1, ts.checkout.ResetCalls)

	recorder = ts.do("GET", "/api/v1/checkout", "")
	require.Equal(t, http.StatusOK, recorder.Code)
	var state checkout.State
	require.NoError(t, json.NewDecoder(recorder.Body).Decode(&state))
	assert.Equal(t, domain.CheckoutStepCustomerInfo, state.Step)
}

func TestCheckoutReset_PaymentInProgress(t *testing.T) {
	ts := setupServer(t)
	ts.checkout.ResetErr = checkout.ErrPaymentInProgress

	recorder := ts.do("POST", "/api/v1/checkout/reset", "")

	assert.Equal(t, http.StatusConflict, recorder.Code)
	assert.Equal(t, 1, ts.checkout.ResetCalls)
}

func TestListOrders(t *testing.T) {
	ts := setupServer(t)
	ts.orders.Orders = []domain.Order{{
		ID:          5,
		TotalAmount: 59.97,
		Status:      domain.OrderStatusShipped,
		CreatedAt:   domain.Timestamp{Time: time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC)},
		Items: []domain.OrderItem{
			{ProductID: 7, ProductName: "Mouse", Quantity: 3, Price: 19.99},
			{Quantity: 1, Price: 0, Product: &domain.Product{ID: 8, Name: "Pad"}},
		},
	}}

	recorder := ts.do("GET", "/api/v1/orders", "")

	require.Equal(t, http.StatusOK, recorder.Code)
	assert.Equal(t, int64(7), ts.orders.UserID)

	var response []OrderResponseDTO
	require.NoError(t, json.NewDecoder(recorder.Body).Decode(&response))
	require.Len(t, response, 1)
	assert.Equal(t, "SHIPPED", response[0].Status)
	assert.Equal(t, "#007bff", response[0].StatusColor)
	assert.Equal(t, "2024-01-15T10:30:00Z", response[0].CreatedAt)
	assert.Equal(t, "Mouse", response[0].Items[0].ProductName)
	assert.Equal(t, int64(8), response[0].Items[1].ProductID)
	assert.Equal(t, "Pad", response[0].Items[1].ProductName)
}

func TestListOrders_Empty(t *testing.T) {
	ts := setupServer(t)

	recorder := ts.do("GET", "/api/v1/orders", "")

	require.Equal(t, http.StatusOK, recorder.Code)
	assert.JSONEq(t, `[]`, recorder.Body.String())
}

func TestGetOrder_NotFound(t *testing.T) {
	ts := setupServer(t)
	ts.orders.Err = &apiclient.HTTPStatusError{StatusCode: 404, Message: "Order not found"}

	recorder := ts.do("GET", "/api/v1/orders/12", "")

	assert.Equal(t, http.StatusNotFound, recorder.Code)
	assert.Equal(t, "HTTP error! status: 404: Order not found", decodeError(t, recorder).Error)
}

func TestHandleAPIError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"not found", &apiclient.HTTPStatusError{StatusCode: 404}, http.StatusNotFound, "not_found"},
		{"bad request", &apiclient.HTTPStatusError{StatusCode: 400, Message: "bad"}, http.StatusBadGateway, "upstream_rejected"},
		{"server error", &apiclient.HTTPStatusError{StatusCode: 500}, http.StatusBadGateway, "upstream_error"},
		{"transport", &apiclient.TransportError{Op: "x", Err: errors.New("refused")}, http.StatusServiceUnavailable, "service_unavailable"},
		{"parse", &apiclient.ParseError{Op: "x", Err: errors.New("bad json")}, http.StatusBadGateway, "bad_upstream_response"},
		{"deadline", &apiclient.TransportError{Op: "x", Err: context.DeadlineExceeded}, http.StatusGatewayTimeout, "timeout"},
		{"unknown", errors.New("boom"), http.StatusInternalServerError, "internal_error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			recorder := httptest.NewRecorder()

			handleAPIError(recorder, tt.err)

			assert.Equal(t, tt.wantStatus, recorder.Code)
			assert.Equal(t, tt.wantCode, decodeError(t, recorder).Code)
		})
	}
}

func TestHealth_StoreDown(t *testing.T) {
	router := NewRouter(Handlers{
		Products: NewProductHandler(&MockCatalog{}, time.Second),
		Cart:     NewCartHandler(nil, nil, time.Second),
		Checkout: NewCheckoutHandler(&MockCheckout{}, time.Second, nil),
		Orders:   NewOrdersHandler(&MockOrders{}, 1, time.Second),
		Store:    downStore{},
	}, RouterConfig{RequestTimeout: time.Second, MaxRequestBodySize: 1 << 20})
	recorder := httptest.NewRecorder()

	router.ServeHTTP(recorder, httptest.NewRequest("GET", "/health", bytes.NewReader(nil)))

	assert.Equal(t, http.StatusServiceUnavailable, recorder.Code)
}

type downStore struct{}

func (downStore) Ping(context.Context) error { return errors.New("dial tcp: connection refused") }
