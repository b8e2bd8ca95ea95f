package menu

import (
	"github.com/go-faster/errors"
)

// CategoryCount is a category together with the number of items in it.
type CategoryCount struct {
	Category Category
	Count    int
}

// Catalog is the static, read-only set of orderable items. It is safe for
// concurrent use because nothing mutates it after NewCatalog returns.
type Catalog struct {
	items []Item
	byID  map[string]int
}

// NewCatalog validates items and builds a Catalog preserving their order.
func NewCatalog(items []Item) (*Catalog, error) {
	c := &Catalog{
		items: make([]Item, len(items)),
		byID:  make(map[string]int, len(items)),
	}
	copy(c.items, items)

	for i, it := range c.items {
		if err := it.validate(); err != nil {
			return nil, errors.Wrap(err, "invalid catalog")
		}
		if _, dup := c.byID[it.ID]; dup {
			return nil, errors.Errorf("invalid catalog: duplicate item id %q", it.ID)
		}
		c.byID[it.ID] = i
	}
	return c, nil
}

// Items returns a copy of every item in catalog order.
func (c *Catalog) Items() []Item {
	out := make([]Item, len(c.items))
	copy(out, c.items)
	return out
}

// Len returns the number of items.
func (c *Catalog) Len() int {
	return len(c.items)
}

// Get returns the item with the given id or ErrItemNotFound.
func (c *Catalog) Get(id string) (Item, error) {
	i, ok := c.byID[id]
	if !ok {
		return Item{}, ErrItemNotFound
	}
	return c.items[i], nil
}

// CategoryCounts returns the "all" pseudo-category followed by every real
// category with its item count.
func (c *Catalog) CategoryCounts() []CategoryCount {
	counts := make(map[Category]int, len(Categories))
	for _, it := range c.items {
		counts[it.Category]++
	}

	out := make([]CategoryCount, 0, len(Categories)+1)
	out = append(out, CategoryCount{Category: CategoryAll, Count: len(c.items)})
	for _, cat := range Categories {
		out = append(out, CategoryCount{Category: cat, Count: counts[cat]})
	}
	return out
}

// Popular returns up to limit items with more than minReviews reviews, in
// catalog order.
func (c *Catalog) Popular(minReviews, limit int) []Item {
	out := make([]Item, 0, limit)
	for _, it := range c.items {
		if len(out) == limit {
			break
		}
		if it.ReviewCount > minReviews {
			out = append(out, it)
		}
	}
	return out
}
