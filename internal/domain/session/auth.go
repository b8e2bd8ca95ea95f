package session

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"

	"github.com/xenking/orderly-bite/internal/simulate"
)

var (
	// ErrInvalidCredentials is returned for a login or sign-up form that is
	// missing required fields.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrInvalidOTP is returned for a malformed code or an unknown or
	// expired challenge.
	ErrInvalidOTP = errors.New("invalid or expired OTP")
)

const defaultAvatar = "https://images.unsplash.com/photo-1472099645785-5658abf4ff4e?w=150&h=150&fit=crop&crop=face"

var userNamespace = uuid.MustParse("6f1c1f0e-3b7a-4e0f-9a51-0c6d3d9b2a44")

// Credentials is the login form.
type Credentials struct {
	Role     Role
	Email    string
	Password string
	Name     string
	College  string
}

// Signup is the customer registration form.
type Signup struct {
	Name     string
	Email    string
	Phone    string
	College  string
	Password string
}

// Challenge is a pending OTP verification created by sign-up.
type Challenge struct {
	ID        string
	Phone     string
	ExpiresAt time.Time
}

// AuthOptions configures the simulated latency of the mock flows.
type AuthOptions struct {
	AuthDelay    time.Duration
	OTPDelay     time.Duration
	ChallengeTTL time.Duration
}

// Authenticator is the mock authentication service. Any well-formed
// credentials are accepted after a simulated delay.
type Authenticator struct {
	store *Store
	opts  AuthOptions
	now   func() time.Time

	mu         sync.Mutex
	challenges map[string]pendingSignup
}

type pendingSignup struct {
	form      Signup
	expiresAt time.Time
}

// NewAuthenticator creates an Authenticator issuing sessions from store.
func NewAuthenticator(store *Store, opts AuthOptions) *Authenticator {
	if opts.ChallengeTTL <= 0 {
		opts.ChallengeTTL = 5 * time.Minute
	}
	return &Authenticator{
		store:      store,
		opts:       opts,
		now:        time.Now,
		challenges: make(map[string]pendingSignup),
	}
}

// UserID derives a stable user ID from an email so repeated logins see
// the same order history.
func UserID(email string) string {
	return uuid.NewSHA1(userNamespace, []byte(strings.ToLower(strings.TrimSpace(email)))).String()
}

// Login signs in as role and returns a bearer token.
func (a *Authenticator) Login(ctx context.Context, c Credentials) (string, Session, error) {
	if c.Role != RoleUser && c.Role != RoleAdmin {
		return "", Session{}, errors.Wrapf(ErrInvalidCredentials, "role %q", c.Role)
	}
	if err := validateEmail(c.Email); err != nil {
		return "", Session{}, err
	}
	if c.Password == "" {
		return "", Session{}, errors.Wrap(ErrInvalidCredentials, "password required")
	}

	if err := simulate.Delay(ctx, a.opts.AuthDelay); err != nil {
		return "", Session{}, err
	}

	u := User{
		ID:      UserID(c.Email),
		Email:   strings.TrimSpace(c.Email),
		Role:    c.Role,
		Avatar:  defaultAvatar,
		Name:    orDefault(c.Name, "Student User"),
		College: orDefault(c.College, "College Name"),
	}
	if c.Role == RoleAdmin {
		u.Name = "Admin User"
		u.College = "System Administrator"
	}

	token, s := a.store.Create(u)
	return token, s, nil
}

// Signup validates the form and opens an OTP challenge. No session is
// created until Verify succeeds.
func (a *Authenticator) Signup(ctx context.Context, f Signup) (Challenge, error) {
	if err := validateEmail(f.Email); err != nil {
		return Challenge{}, err
	}
	switch {
	case strings.TrimSpace(f.Name) == "":
		return Challenge{}, errors.Wrap(ErrInvalidCredentials, "name required")
	case strings.TrimSpace(f.Phone) == "":
		return Challenge{}, errors.Wrap(ErrInvalidCredentials, "phone required")
	case f.Password == "":
		return Challenge{}, errors.Wrap(ErrInvalidCredentials, "password required")
	}

	if err := simulate.Delay(ctx, a.opts.AuthDelay); err != nil {
		return Challenge{}, err
	}

	ch := Challenge{
		ID:        uuid.NewString(),
		Phone:     f.Phone,
		ExpiresAt: a.now().Add(a.opts.ChallengeTTL),
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	a.gcLocked()
	a.challenges[ch.ID] = pendingSignup{form: f, expiresAt: ch.ExpiresAt}
	return ch, nil
}

// Verify completes sign-up. Any 6-digit code is accepted.
func (a *Authenticator) Verify(ctx context.Context, challengeID, code string) (string, Session, error) {
	if !validOTP(code) {
		return "", Session{}, errors.Wrap(ErrInvalidOTP, "code must be 6 digits")
	}

	a.mu.Lock()
	p, ok := a.challenges[challengeID]
	if ok && a.now().After(p.expiresAt) {
		delete(a.challenges, challengeID)
		ok = false
	}
	a.mu.Unlock()
	if !ok {
		return "", Session{}, ErrInvalidOTP
	}

	if err := simulate.Delay(ctx, a.opts.OTPDelay); err != nil {
		return "", Session{}, err
	}

	a.mu.Lock()
	_, still := a.challenges[challengeID]
	delete(a.challenges, challengeID)
	a.mu.Unlock()
	if !still {
		// Verified concurrently.
		return "", Session{}, ErrInvalidOTP
	}

	token, s := a.store.Create(User{
		ID:      UserID(p.form.Email),
		Name:    strings.TrimSpace(p.form.Name),
		Email:   strings.TrimSpace(p.form.Email),
		Phone:   p.form.Phone,
		College: p.form.College,
		Role:    RoleUser,
		Avatar:  defaultAvatar,
	})
	return token, s, nil
}

// Logout ends the session for token.
func (a *Authenticator) Logout(token string) error {
	if !a.store.Delete(token) {
		return ErrUnauthorized
	}
	return nil
}

func (a *Authenticator) gcLocked() {
	now := a.now()
	for id, p := range a.challenges {
		if now.After(p.expiresAt) {
			delete(a.challenges, id)
		}
	}
}

func validateEmail(email string) error {
	email = strings.TrimSpace(email)
	at := strings.IndexByte(email, '@')
	if at <= 0 || at == len(email)-1 {
		return errors.Wrap(ErrInvalidCredentials, "valid email required")
	}
	return nil
}

func validOTP(code string) bool {
	if len(code) != 6 {
		return false
	}
	for _, r := range code {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func orDefault(s, def string) string {
	if s = strings.TrimSpace(s); s != "" {
		return s
	}
	return def
}
