// Package pricing computes order totals, promo discounts and the
// preparation-time estimate for a set of cart lines.
package pricing

import (
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/xenking/orderly-bite/internal/domain/menu"
	"github.com/xenking/orderly-bite/internal/domain/promo"
)

const (
	// DefaultPrepBuffer is added on top of the slowest item's preparation time.
	DefaultPrepBuffer = 5 * time.Minute
	// FallbackPrepTime is used for items whose preparation range cannot be parsed.
	FallbackPrepTime = 10 * time.Minute
)

var (
	// ErrEmptyCart is returned when pricing is requested for no lines.
	ErrEmptyCart = errors.New("cart is empty")

	// MaxDiscountRatio caps a promo discount at this share of the subtotal.
	MaxDiscountRatio = decimal.RequireFromString("0.3")
)

// InvalidQuantityError indicates a line with a non-positive quantity.
type InvalidQuantityError struct {
	ItemID   string
	Quantity int
}

func (e *InvalidQuantityError) Error() string {
	return fmt.Sprintf("quantity must be greater than 0 for item %s, got %d", e.ItemID, e.Quantity)
}

// Line is a catalog item with the requested quantity.
type Line struct {
	Item     menu.Item
	Quantity int
}

// Amount returns unit price times quantity.
func (l Line) Amount() decimal.Decimal {
	return l.Item.Price.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// Result is the priced view of a set of lines. It is a plain value; copies
// are independent of the cart they were computed from.
type Result struct {
	Subtotal    decimal.Decimal
	Discount    decimal.Decimal
	DeliveryFee decimal.Decimal
	Total       decimal.Decimal
	ETA         time.Duration
	// PromoCode is the applied code, empty when no discount applies.
	PromoCode string
	// Quantity is the total number of units across lines.
	Quantity int
}

// Promos validates a promo code for a subtotal.
type Promos interface {
	Validate(code string, subtotal decimal.Decimal) (promo.Code, error)
}

// Pricer prices cart lines. DeliveryFee is zero for the pickup-only model
// but stays a separate quantity in the total.
type Pricer struct {
	Promos      Promos
	DeliveryFee decimal.Decimal
	PrepBuffer  time.Duration
}

// New returns a Pricer with no delivery fee and the default prep buffer.
func New(promos Promos) *Pricer {
	return &Pricer{
		Promos:      promos,
		DeliveryFee: decimal.Zero,
		PrepBuffer:  DefaultPrepBuffer,
	}
}

// Quote prices lines, applying code when it is non-empty. A rejected code
// yields a *promo.Error and a zero Result; the caller keeps its state.
func (p *Pricer) Quote(lines []Line, code string) (Result, error) {
	if len(lines) == 0 {
		return Result{}, ErrEmptyCart
	}

	qty := 0
	for _, l := range lines {
		if l.Quantity <= 0 {
			return Result{}, &InvalidQuantityError{ItemID: l.Item.ID, Quantity: l.Quantity}
		}
		qty += l.Quantity
	}

	subtotal := Subtotal(lines)

	discount := decimal.Zero
	applied := ""
	if code != "" {
		c, err := p.validate(code, subtotal)
		if err != nil {
			return Result{}, err
		}
		discount = CapDiscount(c.Discount, subtotal)
		applied = c.Code
	}

	eta, err := EstimateTime(lines, p.PrepBuffer)
	if err != nil {
		return Result{}, err
	}

	return Result{
		Subtotal:    subtotal,
		Discount:    discount,
		DeliveryFee: p.DeliveryFee,
		Total:       subtotal.Sub(discount).Add(p.DeliveryFee).Round(2),
		ETA:         eta,
		PromoCode:   applied,
		Quantity:    qty,
	}, nil
}

func (p *Pricer) validate(code string, subtotal decimal.Decimal) (promo.Code, error) {
	if p.Promos == nil {
		return promo.Code{}, &promo.Error{Kind: promo.KindInvalidCode, Code: promo.Normalize(code)}
	}
	return p.Promos.Validate(code, subtotal)
}

// Subtotal returns the sum of line amounts.
func Subtotal(lines []Line) decimal.Decimal {
	sum := decimal.Zero
	for _, l := range lines {
		sum = sum.Add(l.Amount())
	}
	return sum
}

// CapDiscount clamps a flat discount to MaxDiscountRatio of subtotal.
func CapDiscount(discount, subtotal decimal.Decimal) decimal.Decimal {
	limit := subtotal.Mul(MaxDiscountRatio)
	return decimal.Min(discount, limit).Round(2)
}

// EstimateTime returns the slowest item's upper preparation bound plus
// buffer. It is undefined for no lines and returns ErrEmptyCart.
func EstimateTime(lines []Line, buffer time.Duration) (time.Duration, error) {
	if len(lines) == 0 {
		return 0, ErrEmptyCart
	}

	var slowest time.Duration
	for _, l := range lines {
		d := FallbackPrepTime
		if m, ok := l.Item.PrepUpperBound(); ok {
			d = time.Duration(m) * time.Minute
		}
		slowest = max(slowest, d)
	}
	return slowest + buffer, nil
}
