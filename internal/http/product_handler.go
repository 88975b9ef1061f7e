package http

import (
	"context"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/fjod/go_cart/storefront/internal/catalog"
	"github.com/fjod/go_cart/storefront/internal/domain"
	"github.com/go-chi/chi/v5"
)

type Catalog interface {
	View(ctx context.Context, f catalog.Filter) ([]domain.Product, error)
	Refresh(ctx context.Context) ([]domain.Product, error)
	Search(ctx context.Context, query string, f catalog.Filter) ([]domain.Product, error)
	Product(ctx context.Context, id int64) (*domain.Product, error)
}

type ProductHandler struct {
	catalog Catalog
	timeout time.Duration
}

func NewProductHandler(c Catalog, timeout time.Duration) *ProductHandler {
	return &ProductHandler{
		catalog: c,
		timeout: timeout,
	}
}

type ProductResponse struct {
	ID          int64   `json:"id"`
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Price       float64 `json:"price"`
	Stock       int     `json:"stock"`
	InStock     bool    `json:"in_stock"`
	ImageURL    string  `json:"image_url"`
	CreatedAt   *string `json:"created_at"`
}

type ProductsResponse struct {
	Products []ProductResponse `json:"products"`
	Count    int               `json:"count"`
}

func toProductResponse(p domain.Product) ProductResponse {
	resp := ProductResponse{
		ID:          p.ID,
		Name:        p.Name,
		Description: p.Description,
		Price:       p.Price,
		Stock:       p.Stock,
		InStock:     p.InStock(),
		ImageURL:    p.ImageURL,
	}
	if !p.CreatedAt.IsZero() {
		created := p.CreatedAt.Format(time.RFC3339)
		resp.CreatedAt = &created
	}
	return resp
}

func respondProducts(w http.ResponseWriter, products []domain.Product) {
	out := make([]ProductResponse, len(products))
	for i, p := range products {
		out[i] = toProductResponse(p)
	}
	respondJSON(w, http.StatusOK, &ProductsResponse{Products: out, Count: len(out)})
}

// parseFilter reads min, max and sort from the query. Missing bounds keep
// the default range.
func parseFilter(r *http.Request) (catalog.Filter, bool) {
	q := r.URL.Query()
	f := catalog.DefaultFilter()
	f.Search = q.Get("search")
	f.Sort = catalog.ParseSortKey(q.Get("sort"))

	if raw := q.Get("min"); raw != "" {
		v, ok := parsePrice(raw)
		if !ok {
			return f, false
		}
		f.MinPrice = v
	}
	if raw := q.Get("max"); raw != "" {
		v, ok := parsePrice(raw)
		if !ok {
			return f, false
		}
		f.MaxPrice = v
	}
	return f, true
}

func parsePrice(raw string) (float64, bool) {
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(v) || v < 0 {
		return 0, false
	}
	return v, true
}

// GET /api/v1/products
func (h *ProductHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	f, ok := parseFilter(r)
	if !ok {
		respondError(w, http.StatusBadRequest, "invalid_price", "min and max must be non-negative numbers")
		return
	}

	products, err := h.catalog.View(ctx, f)
	if err != nil {
		handleError(w, err)
		return
	}
	respondProducts(w, products)
}

// POST /api/v1/products/refresh
func (h *ProductHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	products, err := h.catalog.Refresh(ctx)
	if err != nil {
		handleError(w, err)
		return
	}
	respondProducts(w, products)
}

// GET /api/v1/products/search?q=
func (h *ProductHandler) Search(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	f, ok := parseFilter(r)
	if !ok {
		respondError(w, http.StatusBadRequest, "invalid_price", "min and max must be non-negative numbers")
		return
	}

	products, err := h.catalog.Search(ctx, r.URL.Query().Get("q"), f)
	if err != nil {
		handleError(w, err)
		return
	}
	respondProducts(w, products)
}

// GET /api/v1/products/{product_id}
func (h *ProductHandler) Get(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	productID, ok := parseIDParam(w, r, "product_id")
	if !ok {
		return
	}

	product, err := h.catalog.Product(ctx, productID)
	if err != nil {
		handleError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, toProductResponse(*product))
}

func parseIDParam(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		respondError(w, http.StatusBadRequest, "invalid_"+name, name+" must be a positive integer")
		return 0, false
	}
	return id, true
}
