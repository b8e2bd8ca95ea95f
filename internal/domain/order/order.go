package order

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// ErrNotFound is returned when an order does not exist or is not visible
// to the caller.
var ErrNotFound = errors.New("order not found")

// Status is the lifecycle state of an order.
type Status string

const (
	StatusPending   Status = "pending"
	StatusPreparing Status = "preparing"
	StatusReady     Status = "ready"
	StatusDelivered Status = "delivered"
	StatusCancelled Status = "cancelled"
)

// Statuses lists every status in lifecycle order.
var Statuses = []Status{StatusPending, StatusPreparing, StatusReady, StatusDelivered, StatusCancelled}

var transitions = map[Status][]Status{
	StatusPending:   {StatusPreparing, StatusCancelled},
	StatusPreparing: {StatusReady},
	StatusReady:     {StatusDelivered},
}

// ParseStatus converts s into a known Status.
func ParseStatus(s string) (Status, error) {
	st := Status(s)
	if !slices.Contains(Statuses, st) {
		return "", errors.Errorf("unknown order status %q", s)
	}
	return st, nil
}

// Terminal reports whether no further transitions are possible.
func (s Status) Terminal() bool {
	return len(transitions[s]) == 0
}

// Next returns the statuses reachable from s.
func (s Status) Next() []Status {
	return slices.Clone(transitions[s])
}

// CanTransition reports whether from -> to is a lifecycle edge.
func CanTransition(from, to Status) bool {
	return slices.Contains(transitions[from], to)
}

// InvalidTransitionError is returned for a status change the lifecycle
// does not allow.
type InvalidTransitionError struct {
	From Status
	To   Status
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("cannot change order status from %s to %s", e.From, e.To)
}

// PaymentMethod is how the customer pays at checkout.
type PaymentMethod string

const (
	PaymentUPI    PaymentMethod = "upi"
	PaymentCard   PaymentMethod = "card"
	PaymentWallet PaymentMethod = "wallet"
	PaymentCash   PaymentMethod = "cash"
)

// PaymentMethods lists the accepted methods in display order.
var PaymentMethods = []PaymentMethod{PaymentUPI, PaymentCard, PaymentWallet, PaymentCash}

// ParsePaymentMethod converts s into a PaymentMethod. Empty means UPI.
func ParsePaymentMethod(s string) (PaymentMethod, error) {
	if s == "" {
		return PaymentUPI, nil
	}
	m := PaymentMethod(strings.ToLower(s))
	if !slices.Contains(PaymentMethods, m) {
		return "", errors.Errorf("unknown payment method %q", s)
	}
	return m, nil
}

// Item is an order line frozen at checkout.
type Item struct {
	ItemID   string          `json:"item_id"`
	Name     string          `json:"name"`
	Price    decimal.Decimal `json:"price"`
	Quantity int             `json:"quantity"`
}

// Order is a placed customer order.
type Order struct {
	ID            string
	UserID        string
	Customer      string
	Items         []Item
	Subtotal      decimal.Decimal
	Discount      decimal.Decimal
	DeliveryFee   decimal.Decimal
	Total         decimal.Decimal
	PromoCode     string
	Status        Status
	PaymentMethod PaymentMethod
	ETA           time.Duration
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// CanCancel reports whether the customer may still cancel.
func (o *Order) CanCancel() bool {
	return o.Status == StatusPending
}

// EstimatedTime renders the ETA as shown to customers, e.g. "17 min".
func (o *Order) EstimatedTime() string {
	return fmt.Sprintf("%d min", int(o.ETA.Minutes()))
}

// Quantity returns the number of units ordered.
func (o *Order) Quantity() int {
	n := 0
	for _, it := range o.Items {
		n += it.Quantity
	}
	return n
}

// Clone returns a deep copy of o.
func (o *Order) Clone() *Order {
	c := *o
	c.Items = slices.Clone(o.Items)
	return &c
}

// Filter narrows order listings. Zero fields match everything.
type Filter struct {
	UserID string
	Status Status
	// Search matches the order ID or customer name, case-insensitively.
	Search string
}

// Match reports whether o satisfies f.
func (f Filter) Match(o *Order) bool {
	if f.UserID != "" && o.UserID != f.UserID {
		return false
	}
	if f.Status != "" && o.Status != f.Status {
		return false
	}
	if q := strings.ToLower(strings.TrimSpace(f.Search)); q != "" {
		return strings.Contains(strings.ToLower(o.ID), q) ||
			strings.Contains(strings.ToLower(o.Customer), q)
	}
	return true
}

// Repository defines persistence operations for orders.
type Repository interface {
	Create(ctx context.Context, o *Order) error
	Get(ctx context.Context, id string) (*Order, error)
	// List returns matching orders, newest first.
	List(ctx context.Context, f Filter) ([]Order, error)
	// Update applies fn to the stored order atomically. If fn returns an
	// error nothing is written.
	Update(ctx context.Context, id string, fn func(o *Order) error) (*Order, error)
}
