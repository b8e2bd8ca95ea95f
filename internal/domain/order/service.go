package order

import (
	"context"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"

	"github.com/xenking/orderly-bite/internal/domain/cart"
	"github.com/xenking/orderly-bite/internal/simulate"
)

const instrumentationName = "github.com/xenking/orderly-bite/internal/domain/order"

var (
	// ErrEmptyOrder is returned when checking out a snapshot without lines.
	ErrEmptyOrder = errors.New("order has no items")
	// ErrPaymentTimeout is returned when the simulated payment does not
	// complete within the configured timeout.
	ErrPaymentTimeout = errors.New("payment timed out")
)

// CheckoutRequest is the input for placing an order.
type CheckoutRequest struct {
	UserID        string
	Customer      string
	Snapshot      cart.Snapshot
	PaymentMethod PaymentMethod
}

// Options configures a Service. Zero values select defaults.
type Options struct {
	PaymentDelay   time.Duration
	PaymentTimeout time.Duration

	MeterProvider  metric.MeterProvider
	TracerProvider trace.TracerProvider

	// Now and NewID are overridable for tests.
	Now   func() time.Time
	NewID func() string
}

func (o *Options) setDefaults() {
	if o.MeterProvider == nil {
		o.MeterProvider = metricnoop.NewMeterProvider()
	}
	if o.TracerProvider == nil {
		o.TracerProvider = tracenoop.NewTracerProvider()
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	if o.NewID == nil {
		o.NewID = NewID
	}
}

// NewID returns an order ID of the form ORD followed by 8 hex characters.
func NewID() string {
	id := uuid.New()
	return "ORD" + strings.ToUpper(strings.ReplaceAll(id.String(), "-", "")[:8])
}

// Service owns order placement and the order lifecycle.
type Service struct {
	orders Repository
	opts   Options
	tracer trace.Tracer

	placed      metric.Int64Counter
	transitions metric.Int64Counter
}

// NewService creates an order Service.
func NewService(orders Repository, opts Options) (*Service, error) {
	opts.setDefaults()

	meter := opts.MeterProvider.Meter(instrumentationName)
	placed, err := meter.Int64Counter("bite.orders.placed",
		metric.WithDescription("Orders placed at checkout"),
	)
	if err != nil {
		return nil, errors.Wrap(err, "orders placed counter")
	}
	transitions, err := meter.Int64Counter("bite.orders.transitions",
		metric.WithDescription("Order status changes"),
	)
	if err != nil {
		return nil, errors.Wrap(err, "order transitions counter")
	}

	return &Service{
		orders:      orders,
		opts:        opts,
		tracer:      opts.TracerProvider.Tracer(instrumentationName),
		placed:      placed,
		transitions: transitions,
	}, nil
}

// Checkout runs the simulated payment and stores a new pending order
// built from the snapshot.
func (s *Service) Checkout(ctx context.Context, req CheckoutRequest) (_ *Order, rerr error) {
	ctx, span := s.tracer.Start(ctx, "order.Checkout",
		trace.WithAttributes(attribute.String("payment.method", string(req.PaymentMethod))),
	)
	defer func() {
		if rerr != nil {
			span.RecordError(rerr)
			span.SetStatus(codes.Error, rerr.Error())
		}
		span.End()
	}()

	if len(req.Snapshot.Lines) == 0 {
		return nil, ErrEmptyOrder
	}
	if req.PaymentMethod == "" {
		req.PaymentMethod = PaymentUPI
	}

	if err := s.pay(ctx, req.PaymentMethod); err != nil {
		return nil, err
	}

	now := s.opts.Now()
	res := req.Snapshot.Result
	o := &Order{
		ID:            s.opts.NewID(),
		UserID:        req.UserID,
		Customer:      req.Customer,
		Items:         make([]Item, 0, len(req.Snapshot.Lines)),
		Subtotal:      res.Subtotal,
		Discount:      res.Discount,
		DeliveryFee:   res.DeliveryFee,
		Total:         res.Total,
		PromoCode:     req.Snapshot.PromoCode,
		Status:        StatusPending,
		PaymentMethod: req.PaymentMethod,
		ETA:           res.ETA,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	for _, l := range req.Snapshot.Lines {
		o.Items = append(o.Items, Item{
			ItemID:   l.Item.ID,
			Name:     l.Item.Name,
			Price:    l.Item.Price,
			Quantity: l.Quantity,
		})
	}

	if err := s.orders.Create(ctx, o); err != nil {
		return nil, errors.Wrap(err, "create order")
	}

	span.SetAttributes(attribute.String("order.id", o.ID))
	s.placed.Add(ctx, 1, metric.WithAttributes(
		attribute.String("payment.method", string(o.PaymentMethod)),
		attribute.Bool("promo", o.PromoCode != ""),
	))
	return o, nil
}

func (s *Service) pay(ctx context.Context, method PaymentMethod) error {
	ctx, span := s.tracer.Start(ctx, "order.Payment")
	defer span.End()

	payCtx := ctx
	if s.opts.PaymentTimeout > 0 {
		var cancel context.CancelFunc
		payCtx, cancel = context.WithTimeout(ctx, s.opts.PaymentTimeout)
		defer cancel()
	}

	if err := simulate.Delay(payCtx, s.opts.PaymentDelay); err != nil {
		if ctx.Err() == nil && errors.Is(err, context.DeadlineExceeded) {
			return errors.Wrapf(ErrPaymentTimeout, "%s payment", method)
		}
		return errors.Wrap(err, "payment")
	}
	return nil
}

// Get returns an order visible to userID. An empty userID sees every order.
func (s *Service) Get(ctx context.Context, userID, id string) (*Order, error) {
	o, err := s.orders.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if userID != "" && o.UserID != userID {
		return nil, ErrNotFound
	}
	return o, nil
}

// List returns the user's orders, newest first.
func (s *Service) List(ctx context.Context, userID string) ([]Order, error) {
	return s.orders.List(ctx, Filter{UserID: userID})
}

// ListAll returns orders matching f, newest first.
func (s *Service) ListAll(ctx context.Context, f Filter) ([]Order, error) {
	return s.orders.List(ctx, f)
}

// Cancel cancels the user's order while it is still pending.
func (s *Service) Cancel(ctx context.Context, userID, id string) (*Order, error) {
	return s.transition(ctx, id, StatusCancelled, func(o *Order) error {
		if o.UserID != userID {
			return ErrNotFound
		}
		return nil
	})
}

// UpdateStatus moves an order along its lifecycle.
func (s *Service) UpdateStatus(ctx context.Context, id string, to Status) (*Order, error) {
	return s.transition(ctx, id, to, nil)
}

// Advance moves an order to the next non-cancelled status.
func (s *Service) Advance(ctx context.Context, id string) (*Order, error) {
	o, err := s.orders.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	for _, next := range o.Status.Next() {
		if next != StatusCancelled {
			return s.transition(ctx, id, next, nil)
		}
	}
	return nil, &InvalidTransitionError{From: o.Status, To: o.Status}
}

func (s *Service) transition(ctx context.Context, id string, to Status, check func(o *Order) error) (*Order, error) {
	var from Status
	o, err := s.orders.Update(ctx, id, func(o *Order) error {
		if check != nil {
			if err := check(o); err != nil {
				return err
			}
		}
		from = o.Status
		if !CanTransition(o.Status, to) {
			return &InvalidTransitionError{From: o.Status, To: to}
		}
		o.Status = to
		o.UpdatedAt = s.opts.Now()
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.transitions.Add(ctx, 1, metric.WithAttributes(
		attribute.String("from", string(from)),
		attribute.String("to", string(to)),
	))
	return o, nil
}

// Stats summarizes today's orders for the admin dashboard.
type Stats struct {
	TodayOrders   int
	TodayRevenue  decimal.Decimal
	PendingOrders int
	AvgOrderValue decimal.Decimal
}

// Stats computes dashboard figures from stored orders. Cancelled orders
// count toward TodayOrders but not toward revenue.
func (s *Service) Stats(ctx context.Context) (Stats, error) {
	all, err := s.orders.List(ctx, Filter{})
	if err != nil {
		return Stats{}, errors.Wrap(err, "list orders")
	}

	now := s.opts.Now()
	y, m, d := now.Date()
	start := time.Date(y, m, d, 0, 0, 0, 0, now.Location())

	st := Stats{TodayRevenue: decimal.Zero, AvgOrderValue: decimal.Zero}
	paid := 0
	for i := range all {
		o := &all[i]
		if o.Status == StatusPending {
			st.PendingOrders++
		}
		if o.CreatedAt.Before(start) {
			continue
		}
		st.TodayOrders++
		if o.Status != StatusCancelled {
			st.TodayRevenue = st.TodayRevenue.Add(o.Total)
			paid++
		}
	}
	if paid > 0 {
		st.AvgOrderValue = st.TodayRevenue.Div(decimal.NewFromInt(int64(paid))).Round(2)
	}
	return st, nil
}
