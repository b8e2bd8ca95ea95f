package menu

import (
	"cmp"
	"slices"
	"strings"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// PriceRange buckets items by unit price. Bounds of Price20To40 are
// inclusive on both ends.
type PriceRange string

const (
	PriceAll     PriceRange = "all"
	PriceUnder20 PriceRange = "under-20"
	Price20To40  PriceRange = "20-40"
	PriceAbove40 PriceRange = "above-40"
)

var (
	twenty = decimal.NewFromInt(20)
	forty  = decimal.NewFromInt(40)
)

// ParsePriceRange parses a price range; the empty string means PriceAll.
func ParsePriceRange(s string) (PriceRange, error) {
	switch r := PriceRange(s); r {
	case "":
		return PriceAll, nil
	case PriceAll, PriceUnder20, Price20To40, PriceAbove40:
		return r, nil
	default:
		return "", errors.Errorf("unknown price range %q", s)
	}
}

func (r PriceRange) contains(p decimal.Decimal) bool {
	switch r {
	case PriceUnder20:
		return p.LessThan(twenty)
	case Price20To40:
		return p.GreaterThanOrEqual(twenty) && p.LessThanOrEqual(forty)
	case PriceAbove40:
		return p.GreaterThan(forty)
	default:
		return true
	}
}

// SortKey selects the ordering of filtered items.
type SortKey string

const (
	// SortName orders by name ascending.
	SortName SortKey = "name"
	// SortPrice orders by unit price ascending.
	SortPrice SortKey = "price"
	// SortRating orders by rating descending, missing ratings count as 0.
	SortRating SortKey = "rating"
)

// ParseSortKey parses a sort key; the empty string means SortName.
func ParseSortKey(s string) (SortKey, error) {
	switch k := SortKey(s); k {
	case "":
		return SortName, nil
	case SortName, SortPrice, SortRating:
		return k, nil
	default:
		return "", errors.Errorf("unknown sort key %q", s)
	}
}

// Query is the filter and sort configuration of the menu screen. The zero
// value matches every item and sorts by name.
type Query struct {
	Category Category
	Search   string
	Price    PriceRange
	VegOnly  bool
	Sort     SortKey
}

// Filter returns a new slice with the items matching every active
// criterion of q, ordered by q.Sort. The input slice is never modified and
// an empty result is a non-nil empty slice.
func Filter(items []Item, q Query) []Item {
	needle := strings.ToLower(q.Search)

	out := make([]Item, 0, len(items))
	for _, it := range items {
		if q.matches(it, needle) {
			out = append(out, it)
		}
	}

	sortItems(out, q.Sort)
	return out
}

func (q Query) matches(it Item, needle string) bool {
	if q.Category != "" && q.Category != CategoryAll && it.Category != q.Category {
		return false
	}
	if needle != "" &&
		!strings.Contains(strings.ToLower(it.Name), needle) &&
		!strings.Contains(strings.ToLower(it.Description), needle) {
		return false
	}
	if !q.Price.contains(it.Price) {
		return false
	}
	if q.VegOnly && !it.Veg {
		return false
	}
	return true
}

// sortItems sorts in place. The sort is stable so equal keys keep catalog
// order, which makes repeated sorts produce identical output.
func sortItems(items []Item, key SortKey) {
	switch key {
	case SortPrice:
		slices.SortStableFunc(items, func(a, b Item) int {
			return a.Price.Cmp(b.Price)
		})
	case SortRating:
		slices.SortStableFunc(items, func(a, b Item) int {
			return cmp.Compare(b.RatingOrZero(), a.RatingOrZero())
		})
	default:
		// Collator is not safe for concurrent use.
		cl := collate.New(language.English)
		slices.SortStableFunc(items, func(a, b Item) int {
			return cl.CompareString(a.Name, b.Name)
		})
	}
}
