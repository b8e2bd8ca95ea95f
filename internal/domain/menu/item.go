package menu

import (
	"strconv"
	"strings"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// ErrItemNotFound is returned when a requested menu item does not exist.
var ErrItemNotFound = errors.New("menu item not found")

// Category groups menu items on the menu screen.
type Category string

const (
	// CategoryAll is the "no restriction" pseudo-category.
	CategoryAll        Category = "all"
	CategoryAppetizers Category = "appetizers"
	CategoryBeverages  Category = "beverages"
	CategorySnacks     Category = "snacks"
)

// Categories lists the real categories in display order.
var Categories = []Category{CategoryAppetizers, CategoryBeverages, CategorySnacks}

// Known reports whether c is one of the fixed categories.
func (c Category) Known() bool {
	for _, k := range Categories {
		if c == k {
			return true
		}
	}
	return false
}

// Title returns the display name of the category.
func (c Category) Title() string {
	switch c {
	case CategoryAll, "":
		return "All Items"
	case CategoryAppetizers:
		return "Appetizers"
	case CategoryBeverages:
		return "Beverages"
	case CategorySnacks:
		return "Snacks"
	default:
		return string(c)
	}
}

// Item is a single orderable catalog entry. Items are created once at
// startup and never mutated.
type Item struct {
	ID          string
	Name        string
	Price       decimal.Decimal
	Category    Category
	Image       string
	Description string
	Veg         bool
	Rating      *float64
	ReviewCount int
	Available   bool
	// PrepTime is the textual preparation range, e.g. "10-15 min".
	PrepTime string
}

// RatingOrZero returns the item rating, treating a missing rating as 0.
func (i Item) RatingOrZero() float64 {
	if i.Rating == nil {
		return 0
	}
	return *i.Rating
}

// PrepUpperBound parses the upper bound in minutes of the preparation
// range. It reports false when PrepTime has no parsable upper bound.
func (i Item) PrepUpperBound() (int, bool) {
	_, upper, ok := strings.Cut(i.PrepTime, "-")
	if !ok {
		return 0, false
	}
	upper = strings.TrimSpace(upper)
	end := 0
	for end < len(upper) && upper[end] >= '0' && upper[end] <= '9' {
		end++
	}
	if end == 0 {
		return 0, false
	}
	n, err := strconv.Atoi(upper[:end])
	if err != nil {
		return 0, false
	}
	return n, true
}

func (i Item) validate() error {
	switch {
	case i.ID == "":
		return errors.New("empty id")
	case i.Name == "":
		return errors.Errorf("item %s: empty name", i.ID)
	case !i.Price.IsPositive():
		return errors.Errorf("item %s: price must be positive", i.ID)
	case !i.Category.Known():
		return errors.Errorf("item %s: unknown category %q", i.ID, i.Category)
	case i.ReviewCount < 0:
		return errors.Errorf("item %s: negative review count", i.ID)
	}
	if i.Rating != nil && (*i.Rating < 0 || *i.Rating > 5) {
		return errors.Errorf("item %s: rating %v out of range", i.ID, *i.Rating)
	}
	return nil
}
