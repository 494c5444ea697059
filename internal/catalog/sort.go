package catalog

import (
	"slices"
	"strings"

	"github.com/noah-isme/storefront/internal/common"
)

// SortKey orders a product listing.
type SortKey string

const (
	// SortNone keeps catalog order.
	SortNone      SortKey = ""
	SortName      SortKey = "name"
	SortPriceLow  SortKey = "price-low"
	SortPriceHigh SortKey = "price-high"
)

// ParseSort validates a ?sort= value.
func ParseSort(raw string) (SortKey, error) {
	switch key := SortKey(strings.TrimSpace(raw)); key {
	case SortNone, SortName, SortPriceLow, SortPriceHigh:
		return key, nil
	}
	return SortNone, common.BadRequest("sort", "sort must be one of name, price-low, price-high", nil)
}

// SortProducts orders items in place. Ties keep their catalog order.
func SortProducts(items []Product, key SortKey) {
	var cmp func(a, b Product) int
	switch key {
	case SortName:
		cmp = func(a, b Product) int { return strings.Compare(strings.ToLower(a.Name), strings.ToLower(b.Name)) }
	case SortPriceLow:
		cmp = func(a, b Product) int { return a.Price.Cmp(b.Price) }
	case SortPriceHigh:
		cmp = func(a, b Product) int { return b.Price.Cmp(a.Price) }
	default:
		return
	}
	slices.SortStableFunc(items, cmp)
}
