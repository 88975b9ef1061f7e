package http

import (
	"context"
	"net/http"
	"time"

	"github.com/fjod/go_cart/storefront/internal/domain"
)

type Cart interface {
	Snapshot() domain.CartSnapshot
	Add(ctx context.Context, product domain.Product, qty int) (domain.CartSnapshot, error)
	SetQuantity(ctx context.Context, productID int64, qty int) (domain.CartSnapshot, error)
	Remove(ctx context.Context, productID int64) domain.CartSnapshot
	Clear(ctx context.Context) domain.CartSnapshot
}

// ProductLookup fetches the current product so stock is checked against the
// backend's value.
type ProductLookup interface {
	Product(ctx context.Context, id int64) (*domain.Product, error)
}

type CartHandler struct {
	cart     Cart
	products ProductLookup
	timeout  time.Duration
}

func NewCartHandler(cart Cart, products ProductLookup, timeout time.Duration) *CartHandler {
	return &CartHandler{
		cart:     cart,
		products: products,
		timeout:  timeout,
	}
}

type AddItemRequestDTO struct {
	ProductID int64 `json:"product_id"`
	Quantity  int   `json:"quantity"`
}

type UpdateQuantityRequestDTO struct {
	Quantity int `json:"quantity"`
}

type CartItemDTO struct {
	ProductID int64   `json:"product_id"`
	Name      string  `json:"name"`
	Price     float64 `json:"price"`
	Quantity  int     `json:"quantity"`
	Subtotal  float64 `json:"subtotal"`
	ImageURL  string  `json:"image_url"`
}

type CartResponseDTO struct {
	Items     []CartItemDTO `json:"items"`
	Total     float64       `json:"total"`
	ItemCount int           `json:"item_count"`
}

func convertSnapshot(snap domain.CartSnapshot) CartResponseDTO {
	items := make([]CartItemDTO, 0, len(snap.Lines))
	for _, line := range snap.Lines {
		items = append(items, CartItemDTO{
			ProductID: line.ID,
			Name:      line.Name,
			Price:     line.Price,
			Quantity:  line.Quantity,
			Subtotal:  line.Subtotal().InexactFloat64(),
			ImageURL:  line.ImageURL,
		})
	}
	return CartResponseDTO{
		Items:     items,
		Total:     snap.Total,
		ItemCount: snap.ItemCount,
	}
}

// GET /api/v1/cart
func (h *CartHandler) GetCart(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, convertSnapshot(h.cart.Snapshot()))
}

// POST /api/v1/cart/items
func (h *CartHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var req AddItemRequestDTO
	if !decodeJSON(w, r, &req) {
		return
	}

	if req.ProductID <= 0 {
		respondError(w, http.StatusBadRequest, "invalid_product_id", "product_id must be positive")
		return
	}
	if req.Quantity <= 0 || req.Quantity > 99 {
		respondError(w, http.StatusBadRequest, "invalid_quantity", "quantity must be between 1 and 99")
		return
	}

	product, err := h.products.Product(ctx, req.ProductID)
	if err != nil {
		handleError(w, err)
		return
	}

	snap, err := h.cart.Add(ctx, *product, req.Quantity)
	if err != nil {
		handleError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, convertSnapshot(snap))
}

// PUT /api/v1/cart/items/{product_id}
func (h *CartHandler) UpdateQuantity(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	productID, ok := parseIDParam(w, r, "product_id")
	if !ok {
		return
	}

	var req UpdateQuantityRequestDTO
	if !decodeJSON(w, r, &req) {
		return
	}

	// zero or less removes the line
	if req.Quantity > 99 {
		respondError(w, http.StatusBadRequest, "invalid_quantity", "quantity must be at most 99")
		return
	}

	snap, err := h.cart.SetQuantity(ctx, productID, req.Quantity)
	if err != nil {
		handleError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, convertSnapshot(snap))
}

// DELETE /api/v1/cart/items/{product_id}
func (h *CartHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	productID, ok := parseIDParam(w, r, "product_id")
	if !ok {
		return
	}

	respondJSON(w, http.StatusOK, convertSnapshot(h.cart.Remove(r.Context(), productID)))
}

// DELETE /api/v1/cart
func (h *CartHandler) ClearCart(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, convertSnapshot(h.cart.Clear(r.Context())))
}
