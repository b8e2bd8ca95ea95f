// Package session keeps per-client app state: the signed-in user, the
// current screen, the cart and the menu filters.
package session

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"sync"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"

	"github.com/xenking/orderly-bite/internal/domain/cart"
	"github.com/xenking/orderly-bite/internal/domain/menu"
	"github.com/xenking/orderly-bite/internal/domain/navigation"
	"github.com/xenking/orderly-bite/internal/domain/pricing"
)

var (
	// ErrUnauthorized is returned for a missing, unknown or expired token.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrForbidden is returned when the session role may not perform an action.
	ErrForbidden = errors.New("forbidden")
	// ErrCheckoutInProgress is returned when a second checkout starts while
	// a payment for the same session is still running.
	ErrCheckoutInProgress = errors.New("checkout already in progress")
)

// Role is the kind of account a session belongs to.
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// ParseRole converts s into a Role.
func ParseRole(s string) (Role, error) {
	switch r := Role(s); r {
	case RoleUser, RoleAdmin:
		return r, nil
	default:
		return "", errors.Errorf("unknown role %q", s)
	}
}

// User is the mock account attached to a session.
type User struct {
	ID      string
	Name    string
	Email   string
	Phone   string
	College string
	Role    Role
	Avatar  string
}

// Session is a snapshot of one client's state. Values returned by Store
// are copies; change them through Store.Update.
type Session struct {
	User   User
	Screen navigation.Screen
	Cart   cart.State
	Query  menu.Query
	// CheckingOut is set while a payment for this cart is running.
	CheckingOut bool

	CreatedAt time.Time
	SeenAt    time.Time
}

// Require returns ErrForbidden unless the session has role r.
func (s *Session) Require(r Role) error {
	if s.User.Role != r {
		return errors.Wrapf(ErrForbidden, "%s role required", r)
	}
	return nil
}

// Navigate moves to screen to. Customer screens are closed to admins and
// the admin screen to customers. Checkout needs a non-empty cart.
func (s *Session) Navigate(to navigation.Screen) error {
	switch {
	case to == navigation.ScreenAdmin && s.User.Role != RoleAdmin,
		(to.Tab() || to == navigation.ScreenCheckout) && s.User.Role != RoleUser:
		return errors.Wrapf(ErrForbidden, "screen %s", to)
	case to == navigation.ScreenCheckout && s.Cart.Empty():
		return &navigation.InvalidMoveError{From: s.Screen, To: to}
	}

	next, err := navigation.Move(s.Screen, to)
	if err != nil {
		return err
	}
	s.Screen = next
	return nil
}

// BeginCheckout snapshots the cart and marks the session as paying. Only
// one checkout may run per session; EndCheckout releases it.
func (s *Session) BeginCheckout(p *pricing.Pricer, cat cart.Catalog) (cart.Snapshot, error) {
	if s.CheckingOut {
		return cart.Snapshot{}, ErrCheckoutInProgress
	}
	snap, err := s.Cart.Snapshot(p, cat)
	if err != nil {
		return cart.Snapshot{}, err
	}
	s.CheckingOut = true
	return snap, nil
}

// EndCheckout releases the checkout started by BeginCheckout. When placed
// is set the paid lines leave the cart and a session still on the
// checkout screen moves on to orders.
func (s *Session) EndCheckout(snap cart.Snapshot, placed bool) {
	s.CheckingOut = false
	if !placed {
		return
	}
	s.Cart = s.Cart.Deduct(snap)
	if s.Screen == navigation.ScreenCheckout {
		if next, err := navigation.Move(s.Screen, navigation.ScreenOrders); err == nil {
			s.Screen = next
		}
	}
}

// Back applies the back action to the current screen.
func (s *Session) Back() {
	if s.User.Role == RoleAdmin {
		// The admin dashboard has no back target.
		return
	}
	s.Screen, _ = navigation.Back(s.Screen)
}

// Store holds live sessions keyed by a peppered hash of their token, so
// a dump of the store does not reveal usable tokens.
type Store struct {
	mu       sync.RWMutex
	pepper   []byte
	ttl      time.Duration
	now      func() time.Time
	sessions map[string]*Session
}

// NewStore creates a Store. A zero ttl keeps sessions until logout.
func NewStore(pepper []byte, ttl time.Duration) *Store {
	return &Store{
		pepper:   pepper,
		ttl:      ttl,
		now:      time.Now,
		sessions: make(map[string]*Session),
	}
}

func (st *Store) hash(token string) string {
	mac := hmac.New(sha256.New, st.pepper)
	mac.Write([]byte(token))
	return hex.EncodeToString(mac.Sum(nil))
}

// Create starts a session for u on the screen its role lands on after
// authentication, and returns the bearer token.
func (st *Store) Create(u User) (string, Session) {
	landing := navigation.ScreenHome
	if u.Role == RoleAdmin {
		landing = navigation.ScreenAdmin
	}
	screen, err := navigation.Move(navigation.ScreenAuth, landing)
	if err != nil {
		panic(err) // auth -> home/admin is always in the table
	}

	now := st.now()
	s := &Session{
		User:      u,
		Screen:    screen,
		CreatedAt: now,
		SeenAt:    now,
	}
	token := uuid.NewString()

	st.mu.Lock()
	st.sessions[st.hash(token)] = s
	st.mu.Unlock()

	return token, *s
}

// Get returns the session for token.
func (st *Store) Get(token string) (Session, error) {
	return st.Update(token, func(*Session) error { return nil })
}

// Update applies fn to the session atomically. When fn fails the stored
// session is left unchanged and returned alongside the error.
func (st *Store) Update(token string, fn func(s *Session) error) (Session, error) {
	if token == "" {
		return Session{}, ErrUnauthorized
	}
	key := st.hash(token)

	st.mu.Lock()
	defer st.mu.Unlock()

	cur, ok := st.sessions[key]
	if !ok {
		return Session{}, ErrUnauthorized
	}
	now := st.now()
	if st.ttl > 0 && now.Sub(cur.SeenAt) > st.ttl {
		delete(st.sessions, key)
		return Session{}, errors.Wrap(ErrUnauthorized, "session expired")
	}

	next := *cur
	if err := fn(&next); err != nil {
		return *cur, err
	}
	next.SeenAt = now
	*cur = next
	return next, nil
}

// Delete ends the session. It reports whether the token was live.
func (st *Store) Delete(token string) bool {
	key := st.hash(token)

	st.mu.Lock()
	defer st.mu.Unlock()

	_, ok := st.sessions[key]
	delete(st.sessions, key)
	return ok
}

// Prune drops idle sessions past the TTL and returns how many were
// removed. Expired sessions are also dropped lazily on access.
func (st *Store) Prune() int {
	if st.ttl <= 0 {
		return 0
	}
	now := st.now()

	st.mu.Lock()
	defer st.mu.Unlock()

	n := 0
	for key, s := range st.sessions {
		if now.Sub(s.SeenAt) > st.ttl {
			delete(st.sessions, key)
			n++
		}
	}
	return n
}

// Len returns the number of live sessions.
func (st *Store) Len() int {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return len(st.sessions)
}
