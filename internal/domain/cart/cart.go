// Package cart implements the shopping cart as an immutable value with
// reducer-style updates. Every method returns a new State; the receiver is
// never modified, so a State may be shared or kept as history freely.
package cart

import (
	"slices"

	"github.com/go-faster/errors"

	"github.com/xenking/orderly-bite/internal/domain/menu"
	"github.com/xenking/orderly-bite/internal/domain/pricing"
	"github.com/xenking/orderly-bite/internal/domain/promo"
)

var (
	// ErrUnknownItem is returned when an item is not in the catalog.
	ErrUnknownItem = errors.New("unknown menu item")
	// ErrItemUnavailable is returned when adding an item that is sold out.
	ErrItemUnavailable = errors.New("menu item is currently unavailable")
)

// Catalog resolves item IDs.
type Catalog interface {
	Get(id string) (menu.Item, error)
}

// Entry is one cart row.
type Entry struct {
	ItemID   string
	Quantity int
}

// State is the cart: selected quantities in insertion order plus the
// applied promo code. The zero value is an empty cart.
type State struct {
	entries []Entry
	promo   string
}

// Selection returns item ID to quantity. Absent items have no key.
func (s State) Selection() map[string]int {
	out := make(map[string]int, len(s.entries))
	for _, e := range s.entries {
		out[e.ItemID] = e.Quantity
	}
	return out
}

// Entries returns the rows in the order they were added.
func (s State) Entries() []Entry {
	return slices.Clone(s.entries)
}

// Quantity returns the selected quantity of id, 0 if absent.
func (s State) Quantity(id string) int {
	if i := s.index(id); i >= 0 {
		return s.entries[i].Quantity
	}
	return 0
}

// Count returns the total number of units in the cart.
func (s State) Count() int {
	n := 0
	for _, e := range s.entries {
		n += e.Quantity
	}
	return n
}

// Empty reports whether the cart has no items.
func (s State) Empty() bool { return len(s.entries) == 0 }

// PromoCode returns the applied promo code, empty if none.
func (s State) PromoCode() string { return s.promo }

func (s State) index(id string) int {
	return slices.IndexFunc(s.entries, func(e Entry) bool { return e.ItemID == id })
}

// SetQuantity sets the quantity of id. Zero removes the row; adding or
// increasing requires a known, available item.
func (s State) SetQuantity(cat Catalog, id string, qty int) (State, error) {
	if qty < 0 {
		return s, &pricing.InvalidQuantityError{ItemID: id, Quantity: qty}
	}

	i := s.index(id)
	next := State{entries: slices.Clone(s.entries), promo: s.promo}

	if qty == 0 {
		if i >= 0 {
			next.entries = slices.Delete(next.entries, i, i+1)
		}
		return next, nil
	}

	it, err := cat.Get(id)
	if err != nil {
		if errors.Is(err, menu.ErrItemNotFound) {
			return s, errors.Wrapf(ErrUnknownItem, "item %s", id)
		}
		return s, errors.Wrap(err, "get item")
	}
	if !it.Available && qty > s.Quantity(id) {
		return s, errors.Wrapf(ErrItemUnavailable, "item %s", id)
	}

	if i >= 0 {
		next.entries[i].Quantity = qty
	} else {
		next.entries = append(next.entries, Entry{ItemID: id, Quantity: qty})
	}
	return next, nil
}

// Add increments the quantity of id by one.
func (s State) Add(cat Catalog, id string) (State, error) {
	return s.SetQuantity(cat, id, s.Quantity(id)+1)
}

// ApplyPromo validates code against the current cart and attaches it.
// On failure the returned State is s and the error is a *promo.Error.
func (s State) ApplyPromo(p *pricing.Pricer, cat Catalog, code string) (State, pricing.Result, error) {
	lines, err := s.Lines(cat)
	if err != nil {
		return s, pricing.Result{}, err
	}
	res, err := p.Quote(lines, code)
	if err != nil {
		return s, pricing.Result{}, err
	}
	return State{entries: slices.Clone(s.entries), promo: res.PromoCode}, res, nil
}

// RemovePromo detaches any promo; the discount is always 0 afterwards.
func (s State) RemovePromo() State {
	return State{entries: slices.Clone(s.entries)}
}

// Clear empties the cart and drops the promo.
func (s State) Clear() State {
	return State{}
}

// Deduct removes what snap paid for. Units added after the snapshot was
// taken stay in the cart; the promo is dropped once an order used it.
func (s State) Deduct(snap Snapshot) State {
	next := State{entries: make([]Entry, 0, len(s.entries)), promo: s.promo}
	for _, e := range s.entries {
		for _, l := range snap.Lines {
			if l.Item.ID == e.ItemID {
				e.Quantity -= l.Quantity
			}
		}
		if e.Quantity > 0 {
			next.entries = append(next.entries, e)
		}
	}
	if snap.PromoCode != "" && snap.PromoCode == s.promo {
		next.promo = ""
	}
	return next
}

// Lines resolves the rows against cat.
func (s State) Lines(cat Catalog) ([]pricing.Line, error) {
	lines := make([]pricing.Line, 0, len(s.entries))
	for _, e := range s.entries {
		it, err := cat.Get(e.ItemID)
		if err != nil {
			if errors.Is(err, menu.ErrItemNotFound) {
				return nil, errors.Wrapf(ErrUnknownItem, "item %s", e.ItemID)
			}
			return nil, errors.Wrap(err, "get item")
		}
		lines = append(lines, pricing.Line{Item: it, Quantity: e.Quantity})
	}
	return lines, nil
}

// Summary is the live priced view of a cart.
type Summary struct {
	Lines  []pricing.Line
	Result pricing.Result
	// PromoSuspended is set when an attached promo no longer applies to
	// the current subtotal. The code stays attached and resumes once the
	// cart qualifies again.
	PromoSuspended bool
	// PromoError explains why the promo is suspended.
	PromoError *promo.Error
}

// Summary prices the cart as it is now. An empty cart has a zero Result.
func (s State) Summary(p *pricing.Pricer, cat Catalog) (Summary, error) {
	lines, err := s.Lines(cat)
	if err != nil {
		return Summary{}, err
	}
	if len(lines) == 0 {
		return Summary{Lines: lines}, nil
	}

	res, err := p.Quote(lines, s.promo)
	var perr *promo.Error
	switch {
	case err == nil:
		return Summary{Lines: lines, Result: res}, nil
	case s.promo != "" && errors.As(err, &perr):
		res, err = p.Quote(lines, "")
		if err != nil {
			return Summary{}, err
		}
		return Summary{Lines: lines, Result: res, PromoSuspended: true, PromoError: perr}, nil
	default:
		return Summary{}, err
	}
}

// Snapshot is an independent copy of the priced cart taken at checkout.
type Snapshot struct {
	Lines     []pricing.Line
	Result    pricing.Result
	PromoCode string
}

// Snapshot captures the cart for order placement. A suspended promo is not
// carried into the snapshot.
func (s State) Snapshot(p *pricing.Pricer, cat Catalog) (Snapshot, error) {
	if s.Empty() {
		return Snapshot{}, pricing.ErrEmptyCart
	}
	sum, err := s.Summary(p, cat)
	if err != nil {
		return Snapshot{}, err
	}
	return Snapshot{
		Lines:     slices.Clone(sum.Lines),
		Result:    sum.Result,
		PromoCode: sum.Result.PromoCode,
	}, nil
}
