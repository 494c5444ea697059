package cart

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/noah-isme/storefront/internal/catalog"
)

// ErrCorrupt marks stored cart data that could not be used as-is.
var ErrCorrupt = errors.New("cart: persisted state corrupt")

// Line is a product snapshot plus the quantity in the cart. It serialises
// flat, product fields alongside "quantity".
type Line struct {
	catalog.Product
	Quantity int `json:"quantity"`
}

// LineTotal returns price × quantity.
func (l Line) LineTotal() decimal.Decimal {
	return l.Price.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

func cloneLines(lines []Line) []Line {
	out := make([]Line, 0, len(lines))
	for _, l := range lines {
		out = append(out, Line{Product: l.Product.Clone(), Quantity: l.Quantity})
	}
	return out
}

// EncodeLines serialises lines for storage.
func EncodeLines(lines []Line) ([]byte, error) {
	if lines == nil {
		lines = []Line{}
	}
	return json.Marshal(lines)
}

// DecodeLines parses stored cart data. Undecodable input yields an empty cart
// and ErrCorrupt. Lines that break the cart invariants are repaired: quantities
// below one and negative prices are dropped, duplicate product ids are merged
// into the first occurrence. Repairs also report ErrCorrupt alongside the
// usable lines.
func DecodeLines(data []byte) ([]Line, error) {
	if len(data) == 0 {
		return []Line{}, nil
	}
	var raw []Line
	if err := json.Unmarshal(data, &raw); err != nil {
		return []Line{}, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	out := make([]Line, 0, len(raw))
	index := make(map[int]int, len(raw))
	repaired := 0
	for _, l := range raw {
		if l.Quantity < 1 || l.Price.IsNegative() {
			repaired++
			continue
		}
		if i, ok := index[l.ID]; ok {
			out[i].Quantity += l.Quantity
			repaired++
			continue
		}
		index[l.ID] = len(out)
		out = append(out, l)
	}
	if repaired > 0 {
		return out, fmt.Errorf("%w: repaired %d line(s)", ErrCorrupt, repaired)
	}
	return out, nil
}
