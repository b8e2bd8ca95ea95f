// Package promo holds the promo code table and its validation rules.
package promo

import (
	"fmt"
	"slices"
	"strings"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// Kind classifies a promo validation failure.
type Kind string

const (
	// KindInvalidCode means the code is not in the table.
	KindInvalidCode Kind = "invalid-code"
	// KindMinimumNotMet means the order subtotal is below the code's minimum.
	KindMinimumNotMet Kind = "minimum-not-met"
)

// Error is a recoverable, user-correctable promo failure. Callers render
// it inline and keep the cart untouched.
type Error struct {
	Kind Kind
	Code string
	// Threshold is the unmet minimum order, set for KindMinimumNotMet.
	Threshold decimal.Decimal
}

// Sentinels for errors.Is matching on the failure kind.
var (
	ErrInvalidCode   = &Error{Kind: KindInvalidCode}
	ErrMinimumNotMet = &Error{Kind: KindMinimumNotMet}
)

func (e *Error) Error() string {
	if e.Kind == KindMinimumNotMet {
		return fmt.Sprintf("minimum order of ₹%s required", e.Threshold.String())
	}
	return "invalid promo code"
}

// Is reports whether target is an *Error of the same kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

// Code is a redeemable flat discount with a minimum order threshold.
type Code struct {
	Code        string
	Discount    decimal.Decimal
	MinOrder    decimal.Decimal
	Description string
}

// Normalize canonicalizes user input before lookup.
func Normalize(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// Table is an immutable set of promo codes keyed by normalized code.
type Table struct {
	codes map[string]Code
}

// Defaults returns the built-in promo table.
func Defaults() *Table {
	t, err := NewTable(
		Code{Code: "SAVE20", Discount: decimal.NewFromInt(20), MinOrder: decimal.NewFromInt(100), Description: "₹20 off orders of ₹100+"},
		Code{Code: "STUDENT10", Discount: decimal.NewFromInt(10), MinOrder: decimal.NewFromInt(50), Description: "₹10 off for students on ₹50+"},
		Code{Code: "FIRST25", Discount: decimal.NewFromInt(25), MinOrder: decimal.NewFromInt(75), Description: "₹25 off your first order of ₹75+"},
	)
	if err != nil {
		panic(err)
	}
	return t
}

// NewTable validates codes and builds a Table. Later duplicates replace
// earlier ones.
func NewTable(codes ...Code) (*Table, error) {
	t := &Table{codes: make(map[string]Code, len(codes))}
	for _, c := range codes {
		c.Code = Normalize(c.Code)
		if c.Code == "" {
			return nil, errors.New("invalid promo table: empty code")
		}
		if !c.Discount.IsPositive() {
			return nil, errors.Errorf("invalid promo %s: discount must be positive", c.Code)
		}
		if c.MinOrder.IsNegative() {
			return nil, errors.Errorf("invalid promo %s: negative minimum order", c.Code)
		}
		t.codes[c.Code] = c
	}
	return t, nil
}

// Lookup returns the code entry for the (normalized) code.
func (t *Table) Lookup(code string) (Code, bool) {
	c, ok := t.codes[Normalize(code)]
	return c, ok
}

// Codes returns every entry sorted by code.
func (t *Table) Codes() []Code {
	out := make([]Code, 0, len(t.codes))
	for _, c := range t.codes {
		out = append(out, c)
	}
	slices.SortFunc(out, func(a, b Code) int { return strings.Compare(a.Code, b.Code) })
	return out
}

// Len returns the number of codes.
func (t *Table) Len() int {
	return len(t.codes)
}

// Validate checks code against the table for an order with the given
// subtotal. It never panics; failures are returned as *Error.
func (t *Table) Validate(code string, subtotal decimal.Decimal) (Code, error) {
	c, ok := t.Lookup(code)
	if !ok {
		return Code{}, &Error{Kind: KindInvalidCode, Code: Normalize(code)}
	}
	if subtotal.LessThan(c.MinOrder) {
		return Code{}, &Error{Kind: KindMinimumNotMet, Code: c.Code, Threshold: c.MinOrder}
	}
	return c, nil
}
