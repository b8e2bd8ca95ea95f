// Package memory provides in-process storage used when no database is
// configured.
package memory

import (
	"context"
	"sync"

	"github.com/go-faster/errors"

	"github.com/xenking/orderly-bite/internal/domain/order"
)

var _ order.Repository = (*OrderRepository)(nil)

// OrderRepository implements order.Repository in memory. Stored orders are
// copied on the way in and out.
type OrderRepository struct {
	mu     sync.RWMutex
	orders map[string]*order.Order
	// seq preserves insertion order for newest-first listings.
	seq []string
}

// NewOrderRepository returns an empty OrderRepository.
func NewOrderRepository() *OrderRepository {
	return &OrderRepository{orders: make(map[string]*order.Order)}
}

// Create stores o. IDs must be unique.
func (r *OrderRepository) Create(_ context.Context, o *order.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.orders[o.ID]; ok {
		return errors.Errorf("order %q already exists", o.ID)
	}
	r.orders[o.ID] = o.Clone()
	r.seq = append(r.seq, o.ID)
	return nil
}

// Get returns a copy of the order with id.
func (r *OrderRepository) Get(_ context.Context, id string) (*order.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	o, ok := r.orders[id]
	if !ok {
		return nil, order.ErrNotFound
	}
	return o.Clone(), nil
}

// List returns matching orders, newest first.
func (r *OrderRepository) List(_ context.Context, f order.Filter) ([]order.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]order.Order, 0, len(r.seq))
	for i := len(r.seq) - 1; i >= 0; i-- {
		o := r.orders[r.seq[i]]
		if f.Match(o) {
			out = append(out, *o.Clone())
		}
	}
	return out, nil
}

// Update applies fn to a copy of the order and stores it when fn succeeds.
func (r *OrderRepository) Update(_ context.Context, id string, fn func(o *order.Order) error) (*order.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	cur, ok := r.orders[id]
	if !ok {
		return nil, order.ErrNotFound
	}
	next := cur.Clone()
	if err := fn(next); err != nil {
		return nil, err
	}
	r.orders[id] = next
	return next.Clone(), nil
}
