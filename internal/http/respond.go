package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/fjod/go_cart/storefront/internal/apiclient"
	"github.com/fjod/go_cart/storefront/internal/catalog"
	"github.com/fjod/go_cart/storefront/internal/checkout"
	"github.com/fjod/go_cart/storefront/internal/session"
)

type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details string `json:"details,omitempty"`
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	respondErrorDetails(w, status, code, message, "")
}

func respondErrorDetails(w http.ResponseWriter, status int, code, message, details string) {
	respondJSON(w, status, ErrorResponse{
		Error:   message,
		Code:    code,
		Details: details,
	})
}

// decodeJSON reads the request body into dst and writes a 400 on failure.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			respondError(w, http.StatusRequestEntityTooLarge, "request_too_large", "request body too large")
			return false
		}
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return false
	}
	return true
}

// handleError converts errors from the storefront components into HTTP
// responses.
func handleError(w http.ResponseWriter, err error) {
	var validationErr *checkout.ValidationError
	var paymentErr *checkout.PaymentError
	var processingErr *checkout.ProcessingError

	switch {
	case errors.As(err, &validationErr):
		respondErrorDetails(w, http.StatusBadRequest, "validation_failed",
			"please fill in all required fields", strings.Join(validationErr.Fields, ","))
	case errors.As(err, &paymentErr):
		respondError(w, http.StatusPaymentRequired, "payment_declined", paymentErr.Message)
	case errors.As(err, &processingErr):
		status, _ := upstreamStatus(processingErr.Err)
		respondErrorDetails(w, status, "payment_processing_failed", processingErr.UserMessage(), processingErr.Err.Error())
	case errors.Is(err, checkout.ErrEmptyCart):
		respondError(w, http.StatusBadRequest, "empty_cart", err.Error())
	case errors.Is(err, checkout.ErrIllegalTransition):
		respondError(w, http.StatusConflict, "illegal_transition", err.Error())
	case errors.Is(err, checkout.ErrPaymentInProgress):
		respondError(w, http.StatusConflict, "payment_in_progress", err.Error())
	case errors.Is(err, session.ErrInvalidQuantity):
		respondError(w, http.StatusBadRequest, "invalid_quantity", err.Error())
	case errors.Is(err, session.ErrOutOfStock):
		respondError(w, http.StatusConflict, "out_of_stock", err.Error())
	case errors.Is(err, session.ErrInsufficientStock):
		respondError(w, http.StatusConflict, "insufficient_stock", err.Error())
	case errors.Is(err, session.ErrLineNotFound):
		respondError(w, http.StatusNotFound, "not_in_cart", err.Error())
	case errors.Is(err, catalog.ErrProductNotFound):
		respondError(w, http.StatusNotFound, "not_found", err.Error())
	default:
		handleAPIError(w, err)
	}
}

// handleAPIError maps remote API failures to gateway status codes.
func handleAPIError(w http.ResponseWriter, err error) {
	status, code := upstreamStatus(err)
	respondError(w, status, code, errorMessage(err))
}

func upstreamStatus(err error) (int, string) {
	var statusErr *apiclient.HTTPStatusError
	var parseErr *apiclient.ParseError

	switch {
	case errors.As(err, &statusErr):
		switch {
		case statusErr.StatusCode == http.StatusNotFound:
			return http.StatusNotFound, "not_found"
		case statusErr.StatusCode >= http.StatusInternalServerError:
			return http.StatusBadGateway, "upstream_error"
		default:
			return http.StatusBadGateway, "upstream_rejected"
		}
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, "timeout"
	case apiclient.IsTransport(err):
		return http.StatusServiceUnavailable, "service_unavailable"
	case errors.As(err, &parseErr):
		return http.StatusBadGateway, "bad_upstream_response"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}

func errorMessage(err error) string {
	var statusErr *apiclient.HTTPStatusError
	if errors.As(err, &statusErr) {
		return statusErr.Error()
	}
	if _, code := upstreamStatus(err); code == "internal_error" {
		return "internal server error"
	}
	return err.Error()
}
