package http

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/fjod/go_cart/storefront/internal/checkout"
	"github.com/fjod/go_cart/storefront/internal/domain"
	"github.com/fjod/go_cart/storefront/internal/logger"
)

type Checkout interface {
	State() checkout.State
	SubmitCustomerInfo(info domain.CustomerInfo) error
	Back() error
	Pay(ctx context.Context, paymentMethodID string) (*checkout.Receipt, error)
	Cancel(ctx context.Context) error
	Reset() error
}

type CheckoutHandler struct {
	flow    Checkout
	timeout time.Duration
	log     *slog.Logger
}

func NewCheckoutHandler(flow Checkout, timeout time.Duration, log *slog.Logger) *CheckoutHandler {
	if log == nil {
		log = logger.Discard()
	}
	return &CheckoutHandler{
		flow:    flow,
		timeout: timeout,
		log:     log.With("component", "checkout_handler"),
	}
}

type PayRequestDTO struct {
	PaymentMethodID string `json:"payment_method_id"`
}

// GET /api/v1/checkout
func (h *CheckoutHandler) GetState(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, h.flow.State())
}

// POST /api/v1/checkout/customer
func (h *CheckoutHandler) SubmitCustomer(w http.ResponseWriter, r *http.Request) {
	var info domain.CustomerInfo
	if !decodeJSON(w, r, &info) {
		return
	}

	if err := h.flow.SubmitCustomerInfo(info); err != nil {
		handleError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, h.flow.State())
}

// POST /api/v1/checkout/back
func (h *CheckoutHandler) Back(w http.ResponseWriter, _ *http.Request) {
	if err := h.flow.Back(); err != nil {
		handleError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, h.flow.State())
}

// POST /api/v1/checkout/pay
func (h *CheckoutHandler) Pay(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var req PayRequestDTO
	if !decodeJSON(w, r, &req) {
		return
	}

	receipt, err := h.flow.Pay(ctx, req.PaymentMethodID)
	if err != nil {
		h.log.WarnContext(ctx, "payment did not complete", "request_id", getRequestID(r.Context()), "error", err)
		handleError(w, err)
		return
	}
	if receipt == nil {
		// the request was abandoned while the payment ran
		w.WriteHeader(http.StatusNoContent)
		return
	}

	h.log.InfoContext(ctx, "payment completed", "request_id", getRequestID(r.Context()), "order_id", receipt.OrderID)
	respondJSON(w, http.StatusCreated, receipt)
}

// POST /api/v1/checkout/cancel
func (h *CheckoutHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	if err := h.flow.Cancel(ctx); err != nil {
		handleError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, h.flow.State())
}

// POST /api/v1/checkout/reset
func (h *CheckoutHandler) Reset(w http.ResponseWriter, _ *http.Request) {
	if err := h.flow.Reset(); err != nil {
		handleError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, h.flow.State())
}
