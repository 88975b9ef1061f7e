package session

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/fjod/go_cart/storefront/internal/domain"
	"github.com/fjod/go_cart/storefront/internal/logger"
	"github.com/fjod/go_cart/storefront/internal/metrics"
	"github.com/fjod/go_cart/storefront/internal/store"
)

var (
	ErrInvalidQuantity   = errors.New("quantity must be at least 1")
	ErrOutOfStock        = errors.New("product is out of stock")
	ErrInsufficientStock = errors.New("quantity exceeds available stock")
	ErrLineNotFound      = errors.New("product is not in the cart")
)

// Observer receives the cart state after each mutation has been persisted.
type Observer func(domain.CartSnapshot)

// CartSession owns the shopper's cart: it hydrates it from the store once,
// writes it back after every mutation and then notifies observers.
type CartSession struct {
	store   *store.Adapter
	key     string
	log     *slog.Logger
	metrics *metrics.AppMetrics

	mu        sync.Mutex
	cart      *domain.Cart
	observers map[int]Observer
	nextID    int
}

type Option func(*CartSession)

func WithLogger(l *slog.Logger) Option {
	return func(s *CartSession) { s.log = l }
}

func WithMetrics(m *metrics.AppMetrics) Option {
	return func(s *CartSession) { s.metrics = m }
}

// NewCartSession restores the cart saved under key, or starts empty when
// nothing usable is stored.
func NewCartSession(ctx context.Context, adapter *store.Adapter, key string, opts ...Option) *CartSession {
	s := &CartSession{
		store:     adapter,
		key:       key,
		log:       logger.Discard(),
		observers: make(map[int]Observer),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.log = s.log.With("component", "cart_session")

	cart := domain.NewCart()
	if adapter.Load(ctx, key, cart) {
		s.log.InfoContext(ctx, "cart hydrated", "lines", cart.Len(), "items", cart.ItemCount())
	} else {
		cart = domain.NewCart()
	}
	s.cart = cart
	return s
}

func (s *CartSession) Snapshot() domain.CartSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cart.Snapshot()
}

// Add puts qty units of product in the cart. Out-of-stock products and
// quantities above the product's stock are rejected.
func (s *CartSession) Add(ctx context.Context, product domain.Product, qty int) (domain.CartSnapshot, error) {
	if qty < 1 {
		return domain.CartSnapshot{}, ErrInvalidQuantity
	}
	if !product.InStock() {
		return domain.CartSnapshot{}, ErrOutOfStock
	}
	if qty > product.Stock {
		return domain.CartSnapshot{}, ErrInsufficientStock
	}
	return s.mutate(ctx, "add", func(c *domain.Cart) error {
		c.Add(product, qty)
		return nil
	})
}

// SetQuantity replaces a line's quantity; qty <= 0 removes the line.
func (s *CartSession) SetQuantity(ctx context.Context, productID int64, qty int) (domain.CartSnapshot, error) {
	return s.mutate(ctx, "set_quantity", func(c *domain.Cart) error {
		if _, ok := c.Line(productID); !ok {
			return ErrLineNotFound
		}
		c.SetQuantity(productID, qty)
		return nil
	})
}

// Remove is a no-op for products that are not in the cart.
func (s *CartSession) Remove(ctx context.Context, productID int64) domain.CartSnapshot {
	snap, _ := s.mutate(ctx, "remove", func(c *domain.Cart) error {
		c.Remove(productID)
		return nil
	})
	return snap
}

func (s *CartSession) Clear(ctx context.Context) domain.CartSnapshot {
	snap, _ := s.mutate(ctx, "clear", func(c *domain.Cart) error {
		c.Reset()
		return nil
	})
	return snap
}

// Subscribe registers fn for future changes and returns a function that
// removes it.
func (s *CartSession) Subscribe(fn Observer) func() {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextID
	s.nextID++
	s.observers[id] = fn

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.observers, id)
	}
}

// mutate applies fn, persists the result and only then notifies observers.
// An empty cart is persisted by deleting its key. Observers run after the
// lock is released.
func (s *CartSession) mutate(ctx context.Context, op string, fn func(c *domain.Cart) error) (domain.CartSnapshot, error) {
	s.mu.Lock()
	if err := fn(s.cart); err != nil {
		snap := s.cart.Snapshot()
		s.mu.Unlock()
		return snap, err
	}
	if s.cart.IsEmpty() {
		s.store.Clear(ctx, s.key)
	} else {
		s.store.Save(ctx, s.key, s.cart)
	}
	snap := s.cart.Snapshot()

	observers := make([]Observer, 0, len(s.observers))
	for _, o := range s.observers {
		observers = append(observers, o)
	}
	s.mu.Unlock()

	s.metrics.RecordCartMutation(ctx, op, snap.ItemCount)
	s.log.DebugContext(ctx, "cart updated", "op", op, "lines", len(snap.Lines), "items", snap.ItemCount)

	for _, o := range observers {
		o(snap)
	}
	return snap, nil
}
