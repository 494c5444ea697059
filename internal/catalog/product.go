package catalog

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// ErrNotFound is returned when a product lookup misses.
var ErrNotFound = errors.New("catalog: product not found")

// Product is an immutable catalog entry.
type Product struct {
	ID             int                  `json:"id"`
	Name           string               `json:"name"`
	Description    string               `json:"description"`
	Price          decimal.Decimal      `json:"price"`
	Category       string               `json:"category"`
	Images         []string             `json:"images"`
	InStock        bool                 `json:"inStock"`
	Specifications map[string]SpecValue `json:"specifications,omitempty"`
}

// Clone returns a deep copy so callers cannot mutate shared fixture data.
func (p Product) Clone() Product {
	out := p
	out.Images = append([]string(nil), p.Images...)
	if p.Specifications != nil {
		out.Specifications = make(map[string]SpecValue, len(p.Specifications))
		for k, v := range p.Specifications {
			out.Specifications[k] = SpecValue{Values: append([]string(nil), v.Values...), List: v.List}
		}
	}
	return out
}

// Validate checks the structural invariants of a product record.
func (p Product) Validate() error {
	if p.Price.IsNegative() {
		return fmt.Errorf("product %d: negative price", p.ID)
	}
	if len(p.Images) == 0 {
		return fmt.Errorf("product %d: at least one image is required", p.ID)
	}
	if strings.TrimSpace(p.Name) == "" {
		return fmt.Errorf("product %d: name is required", p.ID)
	}
	return nil
}

// SpecValue is a specification value that is either a single string or a list.
type SpecValue struct {
	Values []string
	List   bool
}

// String renders the value for display, joining lists with commas.
func (v SpecValue) String() string {
	return strings.Join(v.Values, ", ")
}

// MarshalJSON keeps the single/list shape the value was loaded with.
func (v SpecValue) MarshalJSON() ([]byte, error) {
	if v.List {
		if v.Values == nil {
			return []byte("[]"), nil
		}
		return json.Marshal(v.Values)
	}
	if len(v.Values) == 0 {
		return json.Marshal("")
	}
	return json.Marshal(v.Values[0])
}

// UnmarshalJSON accepts a string, a number, a bool or a list of strings.
func (v *SpecValue) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '[' {
		var list []string
		if err := json.Unmarshal(data, &list); err != nil {
			return err
		}
		*v = SpecValue{Values: list, List: true}
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*v = SpecValue{Values: []string{s}}
		return nil
	}
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*v = SpecValue{Values: []string{fmt.Sprint(raw)}}
	return nil
}

// PriceRange is an inclusive price bound.
type PriceRange struct {
	Min decimal.Decimal `json:"min"`
	Max decimal.Decimal `json:"max"`
}

// Contains reports whether price lies within [Min, Max].
func (r PriceRange) Contains(price decimal.Decimal) bool {
	return price.GreaterThanOrEqual(r.Min) && price.LessThanOrEqual(r.Max)
}

// Filter composes optional criteria with logical AND.
type Filter struct {
	Categories []string
	PriceRange *PriceRange
	Search     string
}

// Provider is the read-only product query surface.
type Provider interface {
	GetAll(ctx context.Context) ([]Product, error)
	GetByID(ctx context.Context, id int) (Product, error)
	Search(ctx context.Context, query string) ([]Product, error)
	Filter(ctx context.Context, f Filter) ([]Product, error)
	Featured(ctx context.Context) ([]Product, error)
	Categories(ctx context.Context) ([]string, error)
}

// ByCategory returns products whose category equals category ignoring case.
// An empty category or "all" returns the whole collection.
func ByCategory(ctx context.Context, p Provider, category string) ([]Product, error) {
	all, err := p.GetAll(ctx)
	if err != nil {
		return nil, err
	}
	category = strings.TrimSpace(category)
	if category == "" || strings.EqualFold(category, "all") {
		return all, nil
	}
	out := make([]Product, 0, len(all))
	for _, prod := range all {
		if strings.EqualFold(prod.Category, category) {
			out = append(out, prod)
		}
	}
	return out, nil
}

// Related lists up to limit other products from the same category as id.
func Related(ctx context.Context, p Provider, id int, limit int) ([]Product, error) {
	product, err := p.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	siblings, err := ByCategory(ctx, p, product.Category)
	if err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 4
	}
	out := make([]Product, 0, limit)
	for _, s := range siblings {
		if s.ID == id {
			continue
		}
		out = append(out, s)
		if len(out) == limit {
			break
		}
	}
	return out, nil
}
