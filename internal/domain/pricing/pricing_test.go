package pricing

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/orderly-bite/internal/domain/menu"
	"github.com/xenking/orderly-bite/internal/domain/promo"
)

func item(id, name string, price int64, prep string) menu.Item {
	return menu.Item{
		ID:        id,
		Name:      name,
		Price:     decimal.NewFromInt(price),
		Category:  menu.CategorySnacks,
		Available: true,
		PrepTime:  prep,
	}
}

var (
	samosa    = item("snk-1", "Samosa", 30, "8-12 min")
	halfTea   = item("bev-1", "Half Tea", 7, "3-5 min")
	vegBurger = item("app-2", "Veg Burger", 60, "12-18 min")
	poha      = item("snk-10", "Poha Full", 25, "8-12 min")
)

func dec(v string) decimal.Decimal {
	return decimal.RequireFromString(v)
}

func TestPricer_Quote(t *testing.T) {
	p := New(promo.Defaults())

	tests := []struct {
		name         string
		lines        []Line
		code         string
		wantSubtotal string
		wantDiscount string
		wantTotal    string
		wantPromo    string
		wantQty      int
		wantETA      time.Duration
	}{
		{
			name:         "no promo",
			lines:        []Line{{Item: samosa, Quantity: 2}, {Item: halfTea, Quantity: 1}},
			wantSubtotal: "67",
			wantDiscount: "0",
			wantTotal:    "67",
			wantQty:      3,
			wantETA:      17 * time.Minute,
		},
		{
			name:         "SAVE20 on 120",
			lines:        []Line{{Item: vegBurger, Quantity: 2}},
			code:         "SAVE20",
			wantSubtotal: "120",
			wantDiscount: "20",
			wantTotal:    "100",
			wantPromo:    "SAVE20",
			wantQty:      2,
			wantETA:      23 * time.Minute,
		},
		{
			name:         "STUDENT10 at 60",
			lines:        []Line{{Item: samosa, Quantity: 2}},
			code:         "student10",
			wantSubtotal: "60",
			wantDiscount: "10",
			wantTotal:    "50",
			wantPromo:    "STUDENT10",
			wantQty:      2,
			wantETA:      17 * time.Minute,
		},
		{
			name:         "FIRST25 capped at 30 percent",
			lines:        []Line{{Item: poha, Quantity: 3}},
			code:         "FIRST25",
			wantSubtotal: "75",
			wantDiscount: "22.5",
			wantTotal:    "52.5",
			wantPromo:    "FIRST25",
			wantQty:      3,
			wantETA:      17 * time.Minute,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := p.Quote(tt.lines, tt.code)
			require.NoError(t, err)

			assert.True(t, dec(tt.wantSubtotal).Equal(got.Subtotal), "subtotal %s", got.Subtotal)
			assert.True(t, dec(tt.wantDiscount).Equal(got.Discount), "discount %s", got.Discount)
			assert.True(t, dec(tt.wantTotal).Equal(got.Total), "total %s", got.Total)
			assert.True(t, got.DeliveryFee.IsZero())
			assert.Equal(t, tt.wantPromo, got.PromoCode)
			assert.Equal(t, tt.wantQty, got.Quantity)
			assert.Equal(t, tt.wantETA, got.ETA)
		})
	}
}

func TestPricer_Quote_PromoRejected(t *testing.T) {
	p := New(promo.Defaults())
	lines := []Line{{Item: samosa, Quantity: 2}, {Item: halfTea, Quantity: 1}}

	_, err := p.Quote(lines, "SAVE20")
	var perr *promo.Error
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, promo.KindMinimumNotMet, perr.Kind)
	assert.Equal(t, "minimum order of ₹100 required", perr.Error())

	_, err = p.Quote([]Line{{Item: samosa, Quantity: 1}}, "STUDENT10")
	require.ErrorIs(t, err, promo.ErrMinimumNotMet)

	_, err = p.Quote(lines, "NOPE")
	require.ErrorIs(t, err, promo.ErrInvalidCode)

	// Without a promo the same cart still prices normally.
	got, err := p.Quote(lines, "")
	require.NoError(t, err)
	assert.True(t, dec("67").Equal(got.Total))
}

func TestPricer_Quote_NoPromoTable(t *testing.T) {
	p := &Pricer{PrepBuffer: DefaultPrepBuffer}

	_, err := p.Quote([]Line{{Item: vegBurger, Quantity: 2}}, "SAVE20")
	require.ErrorIs(t, err, promo.ErrInvalidCode)
}

func TestPricer_Quote_DeliveryFee(t *testing.T) {
	p := New(promo.Defaults())
	p.DeliveryFee = dec("15")

	got, err := p.Quote([]Line{{Item: vegBurger, Quantity: 2}}, "SAVE20")
	require.NoError(t, err)
	assert.True(t, dec("115").Equal(got.Total))
	assert.True(t, dec("15").Equal(got.DeliveryFee))
}

func TestPricer_Quote_InvalidInput(t *testing.T) {
	p := New(promo.Defaults())

	_, err := p.Quote(nil, "")
	require.ErrorIs(t, err, ErrEmptyCart)

	_, err = p.Quote([]Line{{Item: samosa, Quantity: 0}}, "")
	var qerr *InvalidQuantityError
	require.ErrorAs(t, err, &qerr)
	assert.Equal(t, "snk-1", qerr.ItemID)
	assert.Equal(t, 0, qerr.Quantity)
}

func TestCapDiscount(t *testing.T) {
	tests := []struct {
		discount string
		subtotal string
		want     string
	}{
		{discount: "20", subtotal: "120", want: "20"},
		{discount: "20", subtotal: "50", want: "15"},
		{discount: "25", subtotal: "75", want: "22.5"},
		{discount: "10", subtotal: "0", want: "0"},
	}

	for _, tt := range tests {
		t.Run(tt.discount+"/"+tt.subtotal, func(t *testing.T) {
			got := CapDiscount(dec(tt.discount), dec(tt.subtotal))
			assert.True(t, dec(tt.want).Equal(got), "got %s", got)
		})
	}
}

func TestEstimateTime(t *testing.T) {
	odd := item("x", "Mystery", 10, "whenever")

	got, err := EstimateTime([]Line{{Item: halfTea, Quantity: 4}}, DefaultPrepBuffer)
	require.NoError(t, err)
	assert.Equal(t, 10*time.Minute, got)

	got, err = EstimateTime([]Line{{Item: halfTea, Quantity: 1}, {Item: odd, Quantity: 1}}, DefaultPrepBuffer)
	require.NoError(t, err)
	assert.Equal(t, FallbackPrepTime+DefaultPrepBuffer, got)

	_, err = EstimateTime(nil, DefaultPrepBuffer)
	require.ErrorIs(t, err, ErrEmptyCart)
}
