package memory

import (
	"context"
	"sync"
	"testing"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/orderly-bite/internal/domain/order"
)

func newOrder(id, user string) *order.Order {
	return &order.Order{
		ID:       id,
		UserID:   user,
		Customer: "Customer " + user,
		Items:    []order.Item{{ItemID: "snk-1", Name: "Samosa", Price: decimal.NewFromInt(30), Quantity: 2}},
		Total:    decimal.NewFromInt(60),
		Status:   order.StatusPending,
	}
}

func TestOrderRepository_CreateGet(t *testing.T) {
	ctx := context.Background()
	r := NewOrderRepository()

	o := newOrder("ORD1", "u1")
	require.NoError(t, r.Create(ctx, o))
	require.Error(t, r.Create(ctx, o), "duplicate id")

	// Mutating the caller's copy does not leak into storage.
	o.Items[0].Quantity = 99

	got, err := r.Get(ctx, "ORD1")
	require.NoError(t, err)
	assert.Equal(t, 2, got.Items[0].Quantity)

	_, err = r.Get(ctx, "missing")
	require.ErrorIs(t, err, order.ErrNotFound)
}

func TestOrderRepository_List(t *testing.T) {
	ctx := context.Background()
	r := NewOrderRepository()

	require.NoError(t, r.Create(ctx, newOrder("ORD1", "u1")))
	require.NoError(t, r.Create(ctx, newOrder("ORD2", "u2")))
	require.NoError(t, r.Create(ctx, newOrder("ORD3", "u1")))

	all, err := r.List(ctx, order.Filter{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "ORD3", all[0].ID, "newest first")
	assert.Equal(t, "ORD1", all[2].ID)

	mine, err := r.List(ctx, order.Filter{UserID: "u1"})
	require.NoError(t, err)
	require.Len(t, mine, 2)

	found, err := r.List(ctx, order.Filter{Search: "customer u2"})
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "ORD2", found[0].ID)

	none, err := r.List(ctx, order.Filter{Status: order.StatusDelivered})
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestOrderRepository_Update(t *testing.T) {
	ctx := context.Background()
	r := NewOrderRepository()
	require.NoError(t, r.Create(ctx, newOrder("ORD1", "u1")))

	got, err := r.Update(ctx, "ORD1", func(o *order.Order) error {
		o.Status = order.StatusPreparing
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, order.StatusPreparing, got.Status)

	boom := errors.New("boom")
	_, err = r.Update(ctx, "ORD1", func(o *order.Order) error {
		o.Status = order.StatusCancelled
		return boom
	})
	require.ErrorIs(t, err, boom)

	stored, err := r.Get(ctx, "ORD1")
	require.NoError(t, err)
	assert.Equal(t, order.StatusPreparing, stored.Status, "failed update is not written")

	_, err = r.Update(ctx, "missing", func(*order.Order) error { return nil })
	require.ErrorIs(t, err, order.ErrNotFound)
}

func TestOrderRepository_Concurrent(t *testing.T) {
	ctx := context.Background()
	r := NewOrderRepository()

	var wg sync.WaitGroup
	for i := range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			id := "ORD" + string(rune('A'+i%26)) + string(rune('a'+i/26))
			assert.NoError(t, r.Create(ctx, newOrder(id, "u1")))
			_, err := r.List(ctx, order.Filter{UserID: "u1"})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	all, err := r.List(ctx, order.Filter{})
	require.NoError(t, err)
	assert.Len(t, all, 50)
}
