package menu

import (
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/orderly-bite/db"
)

func rating(v float64) *float64 { return &v }

func newItem(id, name string, price int64, cat Category) Item {
	return Item{
		ID:          id,
		Name:        name,
		Price:       decimal.NewFromInt(price),
		Category:    cat,
		Description: name + " description",
		Veg:         true,
		Available:   true,
		PrepTime:    "5-10 min",
	}
}

func testItems() []Item {
	burger := newItem("app-2", "Veg Burger", 60, CategoryAppetizers)
	burger.Rating = rating(4.5)

	chicken := newItem("app-9", "Chicken Roll", 45, CategoryAppetizers)
	chicken.Veg = false
	chicken.Description = "Spicy grilled chicken wrap"
	chicken.Rating = rating(4.7)

	tea := newItem("bev-1", "Half Tea", 7, CategoryBeverages)
	tea.Description = "Fresh brewed Indian chai"
	tea.Rating = rating(4.4)

	coffee := newItem("bev-3", "Coffee", 15, CategoryBeverages)

	samosa := newItem("snk-1", "Samosa", 30, CategorySnacks)
	samosa.Description = "Crispy fried pastry with spiced potato filling"
	samosa.Rating = rating(4.6)

	poha := newItem("snk-10", "Poha Full", 20, CategorySnacks)
	poha.Rating = rating(4.2)

	pav := newItem("snk-5", "Vada Pav", 40, CategorySnacks)
	pav.Rating = rating(4.5)

	return []Item{burger, chicken, tea, coffee, samosa, poha, pav}
}

func ids(items []Item) []string {
	out := make([]string, len(items))
	for i, it := range items {
		out[i] = it.ID
	}
	return out
}

func TestFilter(t *testing.T) {
	tests := []struct {
		name  string
		query Query
		want  []string
	}{
		{
			name:  "zero query sorts everything by name",
			query: Query{},
			want:  []string{"app-9", "bev-3", "bev-1", "snk-10", "snk-1", "snk-5", "app-2"},
		},
		{
			name:  "category restricts",
			query: Query{Category: CategoryBeverages},
			want:  []string{"bev-3", "bev-1"},
		},
		{
			name:  "all category is no restriction",
			query: Query{Category: CategoryAll, Sort: SortPrice},
			want:  []string{"bev-1", "bev-3", "snk-10", "snk-1", "snk-5", "app-9", "app-2"},
		},
		{
			name:  "search matches name case-insensitively",
			query: Query{Search: "SAMO"},
			want:  []string{"snk-1"},
		},
		{
			name:  "search matches description",
			query: Query{Search: "chai"},
			want:  []string{"bev-1"},
		},
		{
			name:  "under-20 is exclusive",
			query: Query{Price: PriceUnder20, Sort: SortPrice},
			want:  []string{"bev-1", "bev-3"},
		},
		{
			name:  "20-40 is inclusive on both ends",
			query: Query{Price: Price20To40, Sort: SortPrice},
			want:  []string{"snk-10", "snk-1", "snk-5"},
		},
		{
			name:  "above-40 is exclusive",
			query: Query{Price: PriceAbove40, Sort: SortPrice},
			want:  []string{"app-9", "app-2"},
		},
		{
			name:  "veg only drops non-veg",
			query: Query{Category: CategoryAppetizers, VegOnly: true},
			want:  []string{"app-2"},
		},
		{
			name:  "rating descending with missing as zero",
			query: Query{Category: CategoryBeverages, Sort: SortRating},
			want:  []string{"bev-1", "bev-3"},
		},
		{
			name:  "rating ties keep catalog order",
			query: Query{Sort: SortRating},
			want:  []string{"app-9", "snk-1", "app-2", "snk-5", "bev-1", "snk-10", "bev-3"},
		},
		{
			name:  "filters are a conjunction",
			query: Query{Category: CategorySnacks, Price: Price20To40, Search: "pav"},
			want:  []string{"snk-5"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Filter(testItems(), tt.query)
			assert.Equal(t, tt.want, ids(got))
		})
	}
}

func TestFilter_EmptyResults(t *testing.T) {
	tests := []struct {
		name  string
		items []Item
		query Query
	}{
		{
			name:  "no search match",
			items: testItems(),
			query: Query{Search: "pizza"},
		},
		{
			name:  "category absent from catalog",
			items: []Item{newItem("snk-1", "Samosa", 30, CategorySnacks)},
			query: Query{Category: CategoryBeverages},
		},
		{
			name:  "unknown category string",
			items: testItems(),
			query: Query{Category: Category("desserts")},
		},
		{
			name: "veg only in a category without veg items",
			items: func() []Item {
				it := newItem("app-9", "Chicken Roll", 45, CategoryAppetizers)
				it.Veg = false
				return []Item{it, newItem("bev-1", "Half Tea", 7, CategoryBeverages)}
			}(),
			query: Query{Category: CategoryAppetizers, VegOnly: true},
		},
		{
			name:  "empty catalog",
			items: nil,
			query: Query{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Filter(tt.items, tt.query)
			require.NotNil(t, got)
			assert.Empty(t, got)
		})
	}
}

func TestFilter_DoesNotMutateInput(t *testing.T) {
	items := testItems()
	before := ids(items)

	_ = Filter(items, Query{Sort: SortPrice})
	_ = Filter(items, Query{Sort: SortRating, VegOnly: true})

	assert.Equal(t, before, ids(items))
}

func TestFilter_Properties(t *testing.T) {
	catalog, err := DecodeCatalog(db.Menu)
	require.NoError(t, err)
	items := catalog.Items()

	queries := []Query{
		{},
		{Sort: SortPrice},
		{Sort: SortRating},
		{Category: CategorySnacks, Sort: SortPrice},
		{Search: "tea", Sort: SortRating},
		{Price: Price20To40, VegOnly: true},
		{Price: PriceUnder20, Category: CategoryBeverages, Sort: SortName},
		{Search: "crispy", Price: PriceAbove40},
	}

	for _, q := range queries {
		got := Filter(items, q)

		// Subset of the catalog and every predicate holds.
		for _, it := range got {
			orig, err := catalog.Get(it.ID)
			require.NoError(t, err)
			assert.Equal(t, orig.Name, it.Name)
			assert.True(t, q.matches(it, strings.ToLower(q.Search)), "item %s violates %+v", it.ID, q)
		}

		// Idempotent.
		assert.Equal(t, ids(got), ids(Filter(got, q)))

		// Ordering.
		for i := 1; i < len(got); i++ {
			switch q.Sort {
			case SortPrice:
				assert.True(t, got[i-1].Price.LessThanOrEqual(got[i].Price))
			case SortRating:
				assert.GreaterOrEqual(t, got[i-1].RatingOrZero(), got[i].RatingOrZero())
			}
		}
	}
}

func TestParsePriceRange(t *testing.T) {
	r, err := ParsePriceRange("")
	require.NoError(t, err)
	assert.Equal(t, PriceAll, r)

	r, err = ParsePriceRange("20-40")
	require.NoError(t, err)
	assert.Equal(t, Price20To40, r)

	_, err = ParsePriceRange("cheap")
	require.Error(t, err)
}

func TestParseSortKey(t *testing.T) {
	k, err := ParseSortKey("")
	require.NoError(t, err)
	assert.Equal(t, SortName, k)

	k, err = ParseSortKey("rating")
	require.NoError(t, err)
	assert.Equal(t, SortRating, k)

	_, err = ParseSortKey("popularity")
	require.Error(t, err)
}
