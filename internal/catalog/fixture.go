package catalog

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// DefaultFeaturedLimit is the size of the featured prefix.
const DefaultFeaturedLimit = 8

//go:embed products.json
var defaultProducts []byte

// Fixture serves a fixed product collection from memory. It never mutates its
// data after construction and is safe for concurrent use.
type Fixture struct {
	products      []Product
	byID          map[int]int
	featuredLimit int
}

// LoadFixture builds a Fixture from the embedded product dataset.
func LoadFixture(featuredLimit int) (*Fixture, error) {
	products, err := DecodeProducts(defaultProducts)
	if err != nil {
		return nil, err
	}
	return NewFixture(products, featuredLimit)
}

// DecodeProducts parses a JSON array of products.
func DecodeProducts(data []byte) ([]Product, error) {
	var products []Product
	if err := json.Unmarshal(data, &products); err != nil {
		return nil, fmt.Errorf("catalog: decode products: %w", err)
	}
	return products, nil
}

// NewFixture validates products and returns a Fixture over a private copy.
func NewFixture(products []Product, featuredLimit int) (*Fixture, error) {
	if featuredLimit <= 0 {
		featuredLimit = DefaultFeaturedLimit
	}
	f := &Fixture{
		products:      make([]Product, 0, len(products)),
		byID:          make(map[int]int, len(products)),
		featuredLimit: featuredLimit,
	}
	for _, p := range products {
		if err := p.Validate(); err != nil {
			return nil, fmt.Errorf("catalog: %w", err)
		}
		if _, dup := f.byID[p.ID]; dup {
			return nil, fmt.Errorf("catalog: duplicate product id %d", p.ID)
		}
		f.byID[p.ID] = len(f.products)
		f.products = append(f.products, p.Clone())
	}
	return f, nil
}

// GetAll returns every product in fixture order.
func (f *Fixture) GetAll(_ context.Context) ([]Product, error) {
	return f.collect(func(Product) bool { return true }), nil
}

// GetByID returns the product with the given id or ErrNotFound.
func (f *Fixture) GetByID(_ context.Context, id int) (Product, error) {
	idx, ok := f.byID[id]
	if !ok {
		return Product{}, fmt.Errorf("product %d: %w", id, ErrNotFound)
	}
	return f.products[idx].Clone(), nil
}

// Search matches query against name, description and category ignoring case.
func (f *Fixture) Search(_ context.Context, query string) ([]Product, error) {
	term := strings.ToLower(strings.TrimSpace(query))
	if term == "" {
		return f.collect(func(Product) bool { return true }), nil
	}
	return f.collect(func(p Product) bool {
		return containsFold(p.Name, term) || containsFold(p.Description, term) || containsFold(p.Category, term)
	}), nil
}

// Filter applies category, price range and text criteria together.
func (f *Fixture) Filter(_ context.Context, filter Filter) ([]Product, error) {
	categories := make(map[string]struct{}, len(filter.Categories))
	for _, c := range filter.Categories {
		categories[c] = struct{}{}
	}
	term := strings.ToLower(strings.TrimSpace(filter.Search))
	return f.collect(func(p Product) bool {
		if len(categories) > 0 {
			if _, ok := categories[p.Category]; !ok {
				return false
			}
		}
		if filter.PriceRange != nil && !filter.PriceRange.Contains(p.Price) {
			return false
		}
		if term != "" && !containsFold(p.Name, term) && !containsFold(p.Description, term) {
			return false
		}
		return true
	}), nil
}

// Featured returns the first featuredLimit products.
func (f *Fixture) Featured(_ context.Context) ([]Product, error) {
	n := f.featuredLimit
	if n > len(f.products) {
		n = len(f.products)
	}
	out := make([]Product, 0, n)
	for _, p := range f.products[:n] {
		out = append(out, p.Clone())
	}
	return out, nil
}

// Categories returns the distinct categories sorted lexicographically.
func (f *Fixture) Categories(_ context.Context) ([]string, error) {
	seen := make(map[string]struct{})
	out := make([]string, 0)
	for _, p := range f.products {
		if _, ok := seen[p.Category]; ok {
			continue
		}
		seen[p.Category] = struct{}{}
		out = append(out, p.Category)
	}
	sort.Strings(out)
	return out, nil
}

func (f *Fixture) collect(keep func(Product) bool) []Product {
	out := make([]Product, 0, len(f.products))
	for _, p := range f.products {
		if keep(p) {
			out = append(out, p.Clone())
		}
	}
	return out
}

// containsFold reports whether lowerTerm occurs in s ignoring case. lowerTerm
// must already be lower-cased.
func containsFold(s, lowerTerm string) bool {
	return strings.Contains(strings.ToLower(s), lowerTerm)
}

var _ Provider = (*Fixture)(nil)
