package catalog

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/fjod/go_cart/storefront/internal/domain"
	"github.com/fjod/go_cart/storefront/internal/logger"
	"golang.org/x/sync/singleflight"
)

var ErrProductNotFound = errors.New("product not found")

// loads shared between callers run detached from any one request
const sharedLoadTimeout = 15 * time.Second

// ProductSource is the part of the remote API the catalog reads from.
type ProductSource interface {
	ListProducts(ctx context.Context) ([]domain.Product, error)
	GetProduct(ctx context.Context, id int64) (*domain.Product, error)
	SearchProducts(ctx context.Context, query string) ([]domain.Product, error)
}

// Service holds the last loaded product list and serves filtered views of it.
type Service struct {
	source ProductSource
	log    *slog.Logger
	sfg    singleflight.Group // collapses concurrent loads of the same data

	mu       sync.RWMutex
	products []domain.Product
	loaded   bool
}

func NewService(source ProductSource, log *slog.Logger) *Service {
	if log == nil {
		log = logger.Discard()
	}
	return &Service{source: source, log: log.With("component", "catalog")}
}

// Products returns the cached list, loading it on first use.
func (s *Service) Products(ctx context.Context) ([]domain.Product, error) {
	s.mu.RLock()
	if s.loaded {
		products := s.products
		s.mu.RUnlock()
		return products, nil
	}
	s.mu.RUnlock()

	return s.Refresh(ctx)
}

// Refresh reloads the product list from the backend. A failed load keeps
// the previous list.
func (s *Service) Refresh(ctx context.Context) ([]domain.Product, error) {
	v, err := s.shared(ctx, "products", func(ctx context.Context) (interface{}, error) {
		products, err := s.source.ListProducts(ctx)
		if err != nil {
			return nil, err
		}
		if products == nil {
			products = []domain.Product{}
		}

		s.mu.Lock()
		s.products = products
		s.loaded = true
		s.mu.Unlock()

		s.log.InfoContext(ctx, "catalog loaded", "products", len(products))
		return products, nil
	})
	if err != nil {
		return nil, fmt.Errorf("load catalog: %w", err)
	}
	return v.([]domain.Product), nil
}

func (s *Service) View(ctx context.Context, f Filter) ([]domain.Product, error) {
	products, err := s.Products(ctx)
	if err != nil {
		return nil, err
	}
	return View(products, f), nil
}

// Search runs the backend's search and then applies the same price filter
// and ordering as View. The text filter is not applied again; the backend
// already matched on query. A blank query is a plain View.
func (s *Service) Search(ctx context.Context, query string, f Filter) ([]domain.Product, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		f.Search = ""
		return s.View(ctx, f)
	}

	v, err := s.shared(ctx, "search:"+query, func(ctx context.Context) (interface{}, error) {
		return s.source.SearchProducts(ctx, query)
	})
	if err != nil {
		return nil, fmt.Errorf("search catalog: %w", err)
	}

	f.Search = ""
	return View(v.([]domain.Product), f), nil
}

// Product fetches a fresh copy so stock checks see the backend's current
// value.
func (s *Service) Product(ctx context.Context, id int64) (*domain.Product, error) {
	v, err := s.shared(ctx, fmt.Sprintf("product:%d", id), func(ctx context.Context) (interface{}, error) {
		return s.source.GetProduct(ctx, id)
	})
	if err != nil {
		return nil, fmt.Errorf("get product %d: %w", id, err)
	}
	product := v.(*domain.Product)
	if product == nil {
		return nil, ErrProductNotFound
	}
	return product, nil
}

// shared runs fn once per key for all concurrent callers. The load itself
// does not stop when one caller gives up; each caller waits on its own ctx.
func (s *Service) shared(ctx context.Context, key string, fn func(ctx context.Context) (interface{}, error)) (interface{}, error) {
	ch := s.sfg.DoChan(key, func() (interface{}, error) {
		loadCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), sharedLoadTimeout)
		defer cancel()
		return fn(loadCtx)
	})
	select {
	case res := <-ch:
		return res.Val, res.Err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
