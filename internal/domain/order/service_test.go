package order

import (
	"context"
	"regexp"
	"sync"
	"testing"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/orderly-bite/internal/domain/cart"
	"github.com/xenking/orderly-bite/internal/domain/menu"
	"github.com/xenking/orderly-bite/internal/domain/pricing"
)

// --- Mock implementations ---

type mockOrderRepo struct {
	mu        sync.Mutex
	orders    map[string]*Order
	createErr error
}

func newMockRepo() *mockOrderRepo {
	return &mockOrderRepo{orders: make(map[string]*Order)}
}

func (m *mockOrderRepo) Create(_ context.Context, o *Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createErr != nil {
		return m.createErr
	}
	m.orders[o.ID] = o.Clone()
	return nil
}

func (m *mockOrderRepo) Get(_ context.Context, id string) (*Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[id]
	if !ok {
		return nil, ErrNotFound
	}
	return o.Clone(), nil
}

func (m *mockOrderRepo) List(_ context.Context, f Filter) ([]Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Order
	for _, o := range m.orders {
		if f.Match(o) {
			out = append(out, *o.Clone())
		}
	}
	return out, nil
}

func (m *mockOrderRepo) Update(_ context.Context, id string, fn func(o *Order) error) (*Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[id]
	if !ok {
		return nil, ErrNotFound
	}
	next := o.Clone()
	if err := fn(next); err != nil {
		return nil, err
	}
	m.orders[id] = next
	return next.Clone(), nil
}

// --- Helpers ---

var fixedNow = time.Date(2026, 3, 14, 12, 30, 0, 0, time.UTC)

func newTestService(t *testing.T, repo Repository, opts Options) *Service {
	t.Helper()
	if opts.Now == nil {
		opts.Now = func() time.Time { return fixedNow }
	}
	svc, err := NewService(repo, opts)
	require.NoError(t, err)
	return svc
}

func testSnapshot() cart.Snapshot {
	samosa := menu.Item{ID: "snk-1", Name: "Samosa", Price: decimal.NewFromInt(30), Category: menu.CategorySnacks, PrepTime: "8-12 min"}
	tea := menu.Item{ID: "bev-1", Name: "Half Tea", Price: decimal.NewFromInt(7), Category: menu.CategoryBeverages, PrepTime: "3-5 min"}
	return cart.Snapshot{
		Lines: []pricing.Line{{Item: samosa, Quantity: 2}, {Item: tea, Quantity: 1}},
		Result: pricing.Result{
			Subtotal:    decimal.NewFromInt(67),
			Discount:    decimal.NewFromInt(10),
			DeliveryFee: decimal.Zero,
			Total:       decimal.NewFromInt(57),
			ETA:         17 * time.Minute,
			PromoCode:   "STUDENT10",
			Quantity:    3,
		},
		PromoCode: "STUDENT10",
	}
}

func placeOrder(t *testing.T, svc *Service, user string) *Order {
	t.Helper()
	o, err := svc.Checkout(context.Background(), CheckoutRequest{
		UserID:        user,
		Customer:      "Rahul",
		Snapshot:      testSnapshot(),
		PaymentMethod: PaymentCard,
	})
	require.NoError(t, err)
	return o
}

// --- Tests ---

func TestStatus_Transitions(t *testing.T) {
	tests := []struct {
		from, to Status
		want     bool
	}{
		{StatusPending, StatusPreparing, true},
		{StatusPending, StatusCancelled, true},
		{StatusPreparing, StatusReady, true},
		{StatusReady, StatusDelivered, true},
		{StatusPending, StatusReady, false},
		{StatusPreparing, StatusCancelled, false},
		{StatusReady, StatusPending, false},
		{StatusDelivered, StatusPending, false},
		{StatusCancelled, StatusPending, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			assert.Equal(t, tt.want, CanTransition(tt.from, tt.to))
		})
	}

	assert.True(t, StatusDelivered.Terminal())
	assert.True(t, StatusCancelled.Terminal())
	assert.False(t, StatusReady.Terminal())
}

func TestParsePaymentMethod(t *testing.T) {
	m, err := ParsePaymentMethod("")
	require.NoError(t, err)
	assert.Equal(t, PaymentUPI, m)

	m, err = ParsePaymentMethod("Cash")
	require.NoError(t, err)
	assert.Equal(t, PaymentCash, m)

	_, err = ParsePaymentMethod("crypto")
	require.Error(t, err)
}

func TestNewID(t *testing.T) {
	re := regexp.MustCompile(`^ORD[0-9A-F]{8}$`)
	seen := make(map[string]struct{})
	for range 100 {
		id := NewID()
		assert.Regexp(t, re, id)
		seen[id] = struct{}{}
	}
	assert.Len(t, seen, 100)
}

func TestCheckout(t *testing.T) {
	repo := newMockRepo()
	svc := newTestService(t, repo, Options{NewID: func() string { return "ORD0000TEST" }})

	o := placeOrder(t, svc, "u1")

	assert.Equal(t, "ORD0000TEST", o.ID)
	assert.Equal(t, StatusPending, o.Status)
	assert.True(t, o.CanCancel())
	assert.Equal(t, "17 min", o.EstimatedTime())
	assert.Equal(t, PaymentCard, o.PaymentMethod)
	assert.Equal(t, "STUDENT10", o.PromoCode)
	assert.True(t, decimal.NewFromInt(57).Equal(o.Total))
	assert.True(t, decimal.NewFromInt(10).Equal(o.Discount))
	assert.Equal(t, 3, o.Quantity())
	assert.Equal(t, fixedNow, o.CreatedAt)
	require.Len(t, o.Items, 2)
	assert.Equal(t, "snk-1", o.Items[0].ItemID)
	assert.Equal(t, "Samosa", o.Items[0].Name)
	assert.True(t, decimal.NewFromInt(30).Equal(o.Items[0].Price))
	assert.Equal(t, 2, o.Items[0].Quantity)

	stored, err := repo.Get(context.Background(), o.ID)
	require.NoError(t, err)
	assert.Equal(t, "u1", stored.UserID)
}

func TestCheckout_EmptySnapshot(t *testing.T) {
	svc := newTestService(t, newMockRepo(), Options{})

	_, err := svc.Checkout(context.Background(), CheckoutRequest{UserID: "u1"})
	require.ErrorIs(t, err, ErrEmptyOrder)
}

func TestCheckout_PaymentTimeout(t *testing.T) {
	repo := newMockRepo()
	svc := newTestService(t, repo, Options{
		PaymentDelay:   time.Hour,
		PaymentTimeout: 10 * time.Millisecond,
	})

	_, err := svc.Checkout(context.Background(), CheckoutRequest{UserID: "u1", Snapshot: testSnapshot()})
	require.ErrorIs(t, err, ErrPaymentTimeout)
	assert.Empty(t, repo.orders, "no order is placed when payment fails")
}

func TestCheckout_Cancelled(t *testing.T) {
	svc := newTestService(t, newMockRepo(), Options{PaymentDelay: time.Hour})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := svc.Checkout(ctx, CheckoutRequest{UserID: "u1", Snapshot: testSnapshot()})
	require.ErrorIs(t, err, context.Canceled)
	assert.NotErrorIs(t, err, ErrPaymentTimeout)
}

func TestCheckout_RepositoryError(t *testing.T) {
	repo := newMockRepo()
	repo.createErr = errors.New("db down")
	svc := newTestService(t, repo, Options{})

	_, err := svc.Checkout(context.Background(), CheckoutRequest{UserID: "u1", Snapshot: testSnapshot()})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "create order")
}

func TestCancel(t *testing.T) {
	svc := newTestService(t, newMockRepo(), Options{})
	ctx := context.Background()

	o := placeOrder(t, svc, "u1")

	_, err := svc.Cancel(ctx, "u2", o.ID)
	require.ErrorIs(t, err, ErrNotFound, "other users cannot see the order")

	got, err := svc.Cancel(ctx, "u1", o.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusCancelled, got.Status)
	assert.False(t, got.CanCancel())

	_, err = svc.Cancel(ctx, "u1", o.ID)
	var terr *InvalidTransitionError
	require.ErrorAs(t, err, &terr)
	assert.Equal(t, StatusCancelled, terr.From)
}

func TestCancel_AfterPreparing(t *testing.T) {
	svc := newTestService(t, newMockRepo(), Options{})
	ctx := context.Background()

	o := placeOrder(t, svc, "u1")
	_, err := svc.UpdateStatus(ctx, o.ID, StatusPreparing)
	require.NoError(t, err)

	_, err = svc.Cancel(ctx, "u1", o.ID)
	var terr *InvalidTransitionError
	require.ErrorAs(t, err, &terr)
	assert.Equal(t, StatusPreparing, terr.From)
	assert.Equal(t, StatusCancelled, terr.To)
}

func TestAdvance(t *testing.T) {
	svc := newTestService(t, newMockRepo(), Options{})
	ctx := context.Background()

	o := placeOrder(t, svc, "u1")
	for _, want := range []Status{StatusPreparing, StatusReady, StatusDelivered} {
		got, err := svc.Advance(ctx, o.ID)
		require.NoError(t, err)
		assert.Equal(t, want, got.Status)
	}

	_, err := svc.Advance(ctx, o.ID)
	var terr *InvalidTransitionError
	require.ErrorAs(t, err, &terr)

	_, err = svc.Advance(ctx, "missing")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestUpdateStatus_Invalid(t *testing.T) {
	svc := newTestService(t, newMockRepo(), Options{})

	o := placeOrder(t, svc, "u1")
	_, err := svc.UpdateStatus(context.Background(), o.ID, StatusDelivered)
	var terr *InvalidTransitionError
	require.ErrorAs(t, err, &terr)
	assert.Equal(t, "cannot change order status from pending to delivered", terr.Error())
}

func TestStats(t *testing.T) {
	repo := newMockRepo()
	ctx := context.Background()

	yesterday := newTestService(t, repo, Options{Now: func() time.Time { return fixedNow.Add(-24 * time.Hour) }})
	placeOrder(t, yesterday, "u1")

	svc := newTestService(t, repo, Options{})
	a := placeOrder(t, svc, "u1")
	b := placeOrder(t, svc, "u2")
	c := placeOrder(t, svc, "u2")

	_, err := svc.UpdateStatus(ctx, a.ID, StatusPreparing)
	require.NoError(t, err)
	_, err = svc.Cancel(ctx, "u2", b.ID)
	require.NoError(t, err)
	_ = c

	st, err := svc.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, st.TodayOrders)
	assert.True(t, decimal.NewFromInt(114).Equal(st.TodayRevenue), "revenue %s", st.TodayRevenue)
	assert.Equal(t, 2, st.PendingOrders, "yesterday's pending order still counts")
	assert.True(t, decimal.NewFromInt(57).Equal(st.AvgOrderValue))
}

func TestStats_Empty(t *testing.T) {
	svc := newTestService(t, newMockRepo(), Options{})

	st, err := svc.Stats(context.Background())
	require.NoError(t, err)
	assert.Zero(t, st.TodayOrders)
	assert.True(t, st.AvgOrderValue.IsZero())
}

func TestFilter_Match(t *testing.T) {
	o := &Order{ID: "ORDABC12345", UserID: "u1", Customer: "Rahul Kumar", Status: StatusReady}

	assert.True(t, Filter{}.Match(o))
	assert.True(t, Filter{Search: "abc12"}.Match(o))
	assert.True(t, Filter{Search: "rahul"}.Match(o))
	assert.False(t, Filter{Search: "priya"}.Match(o))
	assert.False(t, Filter{Status: StatusPending}.Match(o))
	assert.False(t, Filter{UserID: "u2"}.Match(o))
}
