package apiclient

import (
	"context"
	"fmt"
	"net/http"

	"github.com/fjod/go_cart/storefront/internal/domain"
)

func (c *Client) ListProducts(ctx context.Context) ([]domain.Product, error) {
	var products []domain.Product
	err := c.do(ctx, request{op: "list_products", method: http.MethodGet, path: "/products"}, &products)
	if err != nil {
		return nil, err
	}
	return products, nil
}

// GetProduct returns nil without error when the backend answers with null.
func (c *Client) GetProduct(ctx context.Context, id int64) (*domain.Product, error) {
	var product *domain.Product
	err := c.do(ctx, request{
		op:     "get_product",
		method: http.MethodGet,
		path:   fmt.Sprintf("/products/%d", id),
	}, &product)
	if err != nil {
		return nil, err
	}
	return product, nil
}

func (c *Client) SearchProducts(ctx context.Context, query string) ([]domain.Product, error) {
	var products []domain.Product
	err := c.do(ctx, request{
		op:     "search_products",
		method: http.MethodGet,
		path:   "/products/search?q=" + escapeQuery(query),
	}, &products)
	if err != nil {
		return nil, err
	}
	return products, nil
}
