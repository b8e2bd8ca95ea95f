// Package navigation defines the app screens and the allowed moves
// between them.
package navigation

import (
	"fmt"
	"slices"

	"github.com/go-faster/errors"
)

// Screen identifies a top-level app screen.
type Screen string

const (
	ScreenSplash   Screen = "splash"
	ScreenAuth     Screen = "auth"
	ScreenHome     Screen = "home"
	ScreenMenu     Screen = "menu"
	ScreenCart     Screen = "cart"
	ScreenCheckout Screen = "checkout"
	ScreenOrders   Screen = "orders"
	ScreenProfile  Screen = "profile"
	ScreenAdmin    Screen = "admin"
)

// Screens lists every known screen.
var Screens = []Screen{
	ScreenSplash, ScreenAuth, ScreenHome, ScreenMenu, ScreenCart,
	ScreenCheckout, ScreenOrders, ScreenProfile, ScreenAdmin,
}

// Tabs are the screens reachable from the bottom navigation bar.
var Tabs = []Screen{ScreenHome, ScreenMenu, ScreenCart, ScreenOrders, ScreenProfile}

// Parse converts s into a known Screen.
func Parse(s string) (Screen, error) {
	sc := Screen(s)
	if !slices.Contains(Screens, sc) {
		return "", errors.Errorf("unknown screen %q", s)
	}
	return sc, nil
}

// Tab reports whether s shows the bottom navigation bar.
func (s Screen) Tab() bool {
	return slices.Contains(Tabs, s)
}

// InvalidMoveError is returned for a move the transition table forbids.
type InvalidMoveError struct {
	From Screen
	To   Screen
}

func (e *InvalidMoveError) Error() string {
	return fmt.Sprintf("cannot navigate from %s to %s", e.From, e.To)
}

var moves = map[Screen][]Screen{
	ScreenSplash:   {ScreenAuth},
	ScreenAuth:     {ScreenSplash, ScreenHome, ScreenAdmin},
	ScreenCheckout: {ScreenCart, ScreenOrders},
	ScreenAdmin:    {ScreenSplash},
}

func init() {
	// Tabs reach each other, the splash screen on logout, and checkout
	// from the cart.
	for _, tab := range Tabs {
		next := []Screen{ScreenSplash}
		for _, other := range Tabs {
			if other != tab {
				next = append(next, other)
			}
		}
		if tab == ScreenCart {
			next = append(next, ScreenCheckout)
		}
		moves[tab] = next
	}
}

// CanMove reports whether from -> to is allowed. Staying on the same
// screen is always allowed.
func CanMove(from, to Screen) bool {
	return from == to || slices.Contains(moves[from], to)
}

// Move validates from -> to and returns the destination.
func Move(from, to Screen) (Screen, error) {
	if !CanMove(from, to) {
		return from, &InvalidMoveError{From: from, To: to}
	}
	return to, nil
}

// Back returns the screen reached by the back action from s. resetRole
// is set when leaving authentication, which clears the selected role.
func Back(s Screen) (to Screen, resetRole bool) {
	switch s {
	case ScreenAuth:
		return ScreenSplash, true
	case ScreenMenu, ScreenCart, ScreenOrders, ScreenProfile:
		return ScreenHome, false
	case ScreenCheckout:
		return ScreenCart, false
	default:
		return ScreenHome, false
	}
}
