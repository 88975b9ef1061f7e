package domain

import (
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"
	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// CartLine is a product snapshot plus the quantity the shopper wants.
type CartLine struct {
	Product
	Quantity int `json:"quantity"`
}

func (l CartLine) Subtotal() decimal.Decimal {
	return decimal.NewFromFloat(l.Price).Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// Cart keeps one line per product id, iterated in order of first addition.
// The zero value is not usable; use NewCart.
type Cart struct {
	lines *orderedmap.OrderedMap[int64, CartLine]
}

func NewCart(lines ...CartLine) *Cart {
	c := &Cart{lines: orderedmap.New[int64, CartLine]()}
	for _, line := range lines {
		c.merge(line)
	}
	return c
}

// Clone returns an independent copy.
func (c *Cart) Clone() *Cart {
	out := &Cart{lines: orderedmap.New[int64, CartLine]()}
	for pair := c.lines.Oldest(); pair != nil; pair = pair.Next() {
		out.lines.Set(pair.Key, pair.Value)
	}
	return out
}

// Add merges qty into the line for product, appending a new line when the
// product is not in the cart yet. An existing line keeps its original
// product snapshot.
func (c *Cart) Add(product Product, qty int) {
	if qty < 1 {
		qty = 1
	}
	c.merge(CartLine{Product: product, Quantity: qty})
}

func (c *Cart) merge(line CartLine) {
	if line.Quantity <= 0 {
		return
	}
	if existing, ok := c.lines.Get(line.ID); ok {
		existing.Quantity += line.Quantity
		c.lines.Set(line.ID, existing)
		return
	}
	c.lines.Set(line.ID, line)
}

// Remove is a no-op when productID is not in the cart.
func (c *Cart) Remove(productID int64) {
	c.lines.Delete(productID)
}

// SetQuantity replaces the line quantity; qty <= 0 removes the line.
func (c *Cart) SetQuantity(productID int64, qty int) {
	if qty <= 0 {
		c.Remove(productID)
		return
	}
	line, ok := c.lines.Get(productID)
	if !ok {
		return
	}
	line.Quantity = qty
	c.lines.Set(productID, line)
}

func (c *Cart) Reset() {
	c.lines = orderedmap.New[int64, CartLine]()
}

func (c *Cart) Line(productID int64) (CartLine, bool) {
	return c.lines.Get(productID)
}

func (c *Cart) Lines() []CartLine {
	out := make([]CartLine, 0, c.lines.Len())
	for pair := c.lines.Oldest(); pair != nil; pair = pair.Next() {
		out = append(out, pair.Value)
	}
	return out
}

func (c *Cart) Len() int {
	return c.lines.Len()
}

func (c *Cart) IsEmpty() bool {
	return c.lines.Len() == 0
}

// Total is the sum of price*quantity rounded to cents.
func (c *Cart) Total() decimal.Decimal {
	sum := decimal.Zero
	for pair := c.lines.Oldest(); pair != nil; pair = pair.Next() {
		sum = sum.Add(pair.Value.Subtotal())
	}
	return sum.Round(2)
}

func (c *Cart) ItemCount() int {
	count := 0
	for pair := c.lines.Oldest(); pair != nil; pair = pair.Next() {
		count += pair.Value.Quantity
	}
	return count
}

func (c *Cart) Snapshot() CartSnapshot {
	return CartSnapshot{
		Lines:     c.Lines(),
		Total:     c.Total().InexactFloat64(),
		ItemCount: c.ItemCount(),
	}
}

// MarshalJSON writes the cart as an array of lines in insertion order.
func (c *Cart) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.Lines())
}

func (c *Cart) UnmarshalJSON(data []byte) error {
	var lines []CartLine
	if err := json.Unmarshal(data, &lines); err != nil {
		return fmt.Errorf("decode cart lines: %w", err)
	}
	*c = *NewCart(lines...)
	return nil
}

// CartSnapshot is a read-only copy of the cart handed to observers and
// checkout.
type CartSnapshot struct {
	Lines     []CartLine `json:"lines"`
	Total     float64    `json:"total"`
	ItemCount int        `json:"itemCount"`
}

func (s CartSnapshot) IsEmpty() bool {
	return len(s.Lines) == 0
}

// Pure transformations. Each returns a new cart and leaves the input alone.

func AddItem(cart *Cart, product Product, qty int) *Cart {
	next := cart.Clone()
	next.Add(product, qty)
	return next
}

func RemoveItem(cart *Cart, productID int64) *Cart {
	next := cart.Clone()
	next.Remove(productID)
	return next
}

func SetQuantity(cart *Cart, productID int64, qty int) *Cart {
	next := cart.Clone()
	next.SetQuantity(productID, qty)
	return next
}

func Clear(_ *Cart) *Cart {
	return NewCart()
}

func Total(cart *Cart) float64 {
	return cart.Total().InexactFloat64()
}

func TotalString(cart *Cart) string {
	return cart.Total().StringFixed(2)
}

func ItemCount(cart *Cart) int {
	return cart.ItemCount()
}
