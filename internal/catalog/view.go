package catalog

import (
	"math"
	"slices"
	"strings"

	"github.com/fjod/go_cart/storefront/internal/domain"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

type SortKey string

const (
	SortByName      SortKey = "name"
	SortByPriceAsc  SortKey = "price-asc"
	SortByPriceDesc SortKey = "price-desc"
)

// ParseSortKey maps unknown or empty keys to SortByName.
func ParseSortKey(s string) SortKey {
	switch SortKey(s) {
	case SortByPriceAsc, SortByPriceDesc:
		return SortKey(s)
	default:
		return SortByName
	}
}

// Filter selects and orders a catalog view. MinPrice and MaxPrice are
// inclusive.
type Filter struct {
	Search   string
	MinPrice float64
	MaxPrice float64
	Sort     SortKey
}

func DefaultFilter() Filter {
	return Filter{MinPrice: 0, MaxPrice: math.Inf(1), Sort: SortByName}
}

func (f Filter) matches(p domain.Product, needle string) bool {
	if p.Price < f.MinPrice || p.Price > f.MaxPrice {
		return false
	}
	if needle == "" {
		return true
	}
	return strings.Contains(strings.ToLower(p.Name), needle) ||
		strings.Contains(strings.ToLower(p.Description), needle)
}

// View returns the products matching f, sorted by f.Sort. Ties keep their
// input order and products is never modified.
func View(products []domain.Product, f Filter) []domain.Product {
	needle := strings.ToLower(f.Search)

	out := make([]domain.Product, 0, len(products))
	for _, p := range products {
		if f.matches(p, needle) {
			out = append(out, p)
		}
	}

	switch f.Sort {
	case SortByPriceAsc:
		slices.SortStableFunc(out, func(a, b domain.Product) int {
			return cmpFloat(a.Price, b.Price)
		})
	case SortByPriceDesc:
		slices.SortStableFunc(out, func(a, b domain.Product) int {
			return cmpFloat(b.Price, a.Price)
		})
	default:
		// collators keep internal buffers, so each view gets its own
		c := collate.New(language.English)
		slices.SortStableFunc(out, func(a, b domain.Product) int {
			return c.CompareString(a.Name, b.Name)
		})
	}
	return out
}

func cmpFloat(a, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}
