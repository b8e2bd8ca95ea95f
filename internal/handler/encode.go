package handler

import (
	"fmt"
	"time"

	"github.com/go-faster/jx"

	"github.com/xenking/orderly-bite/internal/domain/cart"
	"github.com/xenking/orderly-bite/internal/domain/menu"
	"github.com/xenking/orderly-bite/internal/domain/order"
	"github.com/xenking/orderly-bite/internal/domain/promo"
	"github.com/xenking/orderly-bite/internal/domain/session"
)

func (h *Handler) encodeItem(e *jx.Encoder, it menu.Item) {
	e.ObjStart()
	e.FieldStart("id")
	e.Str(it.ID)
	e.FieldStart("name")
	e.Str(it.Name)
	e.FieldStart("price")
	encodeAmount(e, it.Price)
	e.FieldStart("category")
	e.Str(string(it.Category))
	e.FieldStart("image")
	e.Str(h.imageURL(it.Image))
	e.FieldStart("description")
	e.Str(it.Description)
	e.FieldStart("veg")
	e.Bool(it.Veg)
	if it.Rating != nil {
		e.FieldStart("rating")
		e.Float64(*it.Rating)
	}
	e.FieldStart("reviewCount")
	e.Int(it.ReviewCount)
	e.FieldStart("available")
	e.Bool(it.Available)
	e.FieldStart("prepTime")
	e.Str(it.PrepTime)
	e.ObjEnd()
}

func (h *Handler) encodeItems(e *jx.Encoder, items []menu.Item) {
	e.ArrStart()
	for _, it := range items {
		h.encodeItem(e, it)
	}
	e.ArrEnd()
}

func encodeQuery(e *jx.Encoder, q menu.Query) {
	category := q.Category
	if category == "" {
		category = menu.CategoryAll
	}
	price := q.Price
	if price == "" {
		price = menu.PriceAll
	}
	sort := q.Sort
	if sort == "" {
		sort = menu.SortName
	}

	e.ObjStart()
	e.FieldStart("category")
	e.Str(string(category))
	e.FieldStart("q")
	e.Str(q.Search)
	e.FieldStart("price")
	e.Str(string(price))
	e.FieldStart("veg")
	e.Bool(q.VegOnly)
	e.FieldStart("sort")
	e.Str(string(sort))
	e.ObjEnd()
}

func encodeUser(e *jx.Encoder, u session.User) {
	e.ObjStart()
	e.FieldStart("id")
	e.Str(u.ID)
	e.FieldStart("name")
	e.Str(u.Name)
	e.FieldStart("email")
	e.Str(u.Email)
	if u.Phone != "" {
		e.FieldStart("phone")
		e.Str(u.Phone)
	}
	e.FieldStart("college")
	e.Str(u.College)
	e.FieldStart("role")
	e.Str(string(u.Role))
	e.FieldStart("avatar")
	e.Str(u.Avatar)
	e.ObjEnd()
}

func encodeSession(e *jx.Encoder, s session.Session) {
	e.ObjStart()
	e.FieldStart("user")
	encodeUser(e, s.User)
	e.FieldStart("screen")
	e.Str(string(s.Screen))
	e.FieldStart("cartCount")
	e.Int(s.Cart.Count())
	if code := s.Cart.PromoCode(); code != "" {
		e.FieldStart("promoCode")
		e.Str(code)
	}
	e.FieldStart("query")
	encodeQuery(e, s.Query)
	e.ObjEnd()
}

// encodeLogin writes the response of a successful login or verification.
func encodeLogin(e *jx.Encoder, token string, s session.Session) {
	e.ObjStart()
	e.FieldStart("token")
	e.Str(token)
	e.FieldStart("session")
	encodeSession(e, s)
	e.ObjEnd()
}

func minutes(d time.Duration) string {
	return fmt.Sprintf("%d min", int(d.Minutes()))
}

func (h *Handler) encodeCart(e *jx.Encoder, sum cart.Summary) {
	res := sum.Result

	e.ObjStart()
	e.FieldStart("items")
	e.ArrStart()
	for _, l := range sum.Lines {
		e.ObjStart()
		e.FieldStart("item")
		h.encodeItem(e, l.Item)
		e.FieldStart("quantity")
		e.Int(l.Quantity)
		e.FieldStart("amount")
		encodeAmount(e, l.Amount())
		e.ObjEnd()
	}
	e.ArrEnd()

	e.FieldStart("itemCount")
	e.Int(res.Quantity)
	e.FieldStart("subtotal")
	encodeAmount(e, res.Subtotal)
	e.FieldStart("discount")
	encodeAmount(e, res.Discount)
	e.FieldStart("deliveryFee")
	encodeAmount(e, res.DeliveryFee)
	e.FieldStart("total")
	encodeAmount(e, res.Total)
	if len(sum.Lines) > 0 {
		e.FieldStart("estimatedTime")
		e.Str(minutes(res.ETA))
	}

	code := res.PromoCode
	if sum.PromoSuspended {
		code = sum.PromoError.Code
	}
	if code != "" {
		e.FieldStart("promoCode")
		e.Str(code)
	}
	e.FieldStart("promoSuspended")
	e.Bool(sum.PromoSuspended)
	if perr := sum.PromoError; perr != nil {
		e.FieldStart("promoError")
		e.ObjStart()
		e.FieldStart("kind")
		e.Str(string(perr.Kind))
		e.FieldStart("message")
		e.Str(perr.Error())
		if perr.Kind == promo.KindMinimumNotMet {
			e.FieldStart("threshold")
			encodeAmount(e, perr.Threshold)
		}
		e.ObjEnd()
	}
	e.ObjEnd()
}

func encodeOrder(e *jx.Encoder, o *order.Order) {
	e.ObjStart()
	e.FieldStart("id")
	e.Str(o.ID)
	e.FieldStart("customer")
	e.Str(o.Customer)
	e.FieldStart("items")
	e.ArrStart()
	for _, it := range o.Items {
		e.ObjStart()
		e.FieldStart("itemId")
		e.Str(it.ItemID)
		e.FieldStart("name")
		e.Str(it.Name)
		e.FieldStart("price")
		encodeAmount(e, it.Price)
		e.FieldStart("quantity")
		e.Int(it.Quantity)
		e.ObjEnd()
	}
	e.ArrEnd()
	e.FieldStart("subtotal")
	encodeAmount(e, o.Subtotal)
	e.FieldStart("discount")
	encodeAmount(e, o.Discount)
	e.FieldStart("deliveryFee")
	encodeAmount(e, o.DeliveryFee)
	e.FieldStart("total")
	encodeAmount(e, o.Total)
	if o.PromoCode != "" {
		e.FieldStart("promoCode")
		e.Str(o.PromoCode)
	}
	e.FieldStart("status")
	e.Str(string(o.Status))
	e.FieldStart("paymentMethod")
	e.Str(string(o.PaymentMethod))
	e.FieldStart("estimatedTime")
	e.Str(o.EstimatedTime())
	e.FieldStart("canCancel")
	e.Bool(o.CanCancel())
	e.FieldStart("createdAt")
	e.Str(o.CreatedAt.UTC().Format(time.RFC3339))
	e.FieldStart("updatedAt")
	e.Str(o.UpdatedAt.UTC().Format(time.RFC3339))
	e.ObjEnd()
}

func encodeOrders(e *jx.Encoder, orders []order.Order) {
	e.ObjStart()
	e.FieldStart("orders")
	e.ArrStart()
	for i := range orders {
		encodeOrder(e, &orders[i])
	}
	e.ArrEnd()
	e.FieldStart("count")
	e.Int(len(orders))
	e.ObjEnd()
}

func encodeStats(e *jx.Encoder, st order.Stats) {
	e.ObjStart()
	e.FieldStart("todayOrders")
	e.Int(st.TodayOrders)
	e.FieldStart("todayRevenue")
	encodeAmount(e, st.TodayRevenue)
	e.FieldStart("pendingOrders")
	e.Int(st.PendingOrders)
	e.FieldStart("avgOrderValue")
	encodeAmount(e, st.AvgOrderValue)
	e.ObjEnd()
}
