package storefront

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"snapshop/database"
	"snapshop/models"
	"snapshop/notify"
	"snapshop/session"
)

var (
	ErrEmailTaken    = errors.New("email already in use")
	ErrUnknownEmail  = errors.New("email does not exist")
	ErrWrongPassword = errors.New("incorrect password")
	ErrNotLoggedIn   = errors.New("not logged in")
	ErrNotInCart     = errors.New("product not in cart")
	ErrCartEmpty     = errors.New("cart is empty")
	ErrNoSession     = errors.New("no stored session")
)

const (
	msgEmailTaken      = "Email address already in use !!"
	msgSignedUp        = "New user created, please log in to continue!!"
	msgUnknownEmail    = "Email does not exist, try again or sign up instead!!!"
	msgWrongPassword   = "Incorrect username or password, try again"
	msgSignedIn        = "Sign-in successful!!!"
	msgSignedOut       = "Signed out successfully!!!!"
	msgLoginFirst      = "Please log in first!!!"
	msgQuantityUp      = "Product quantity increased!!"
	msgAdded           = "Added to your cart!!"
	msgRemoved         = "Removed from cart!!"
	msgNotInCart       = "Product is not in your cart!!"
	msgNothingToRemove = "Nothing to remove in the cart!!"
	msgCartEmptied     = "Cart emptied!!"
	msgNothingToBuy    = "Your cart is empty!!"
)

// Client is the storefront state of one browser session: the known users,
// the signed-in user and that user's cart and orders.
//
// Operations are serialized. Subscriptions feed the same dispatch path as
// operations, so they never race with a half-applied change.
type Client struct {
	store         database.Store
	storage       session.Storage
	notifier      notify.Notifier
	tokens        *session.Tokens
	hashPasswords bool
	timeout       time.Duration
	now           func() time.Time

	ops   sync.Mutex
	mu    sync.RWMutex
	state State

	watchMu      sync.Mutex
	stopDocument context.CancelFunc
}

type Option func(*Client)

func WithStorage(s session.Storage) Option {
	return func(c *Client) { c.storage = s }
}

func WithNotifier(n notify.Notifier) Option {
	return func(c *Client) { c.notifier = n }
}

func WithTokens(t *session.Tokens) Option {
	return func(c *Client) { c.tokens = t }
}

// WithPlainPasswords stores new passwords as given instead of bcrypt hashes.
func WithPlainPasswords() Option {
	return func(c *Client) { c.hashPasswords = false }
}

// WithTimeout bounds every remote write.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.timeout = d }
}

func WithClock(now func() time.Time) Option {
	return func(c *Client) { c.now = now }
}

func NewClient(store database.Store, opts ...Option) *Client {
	c := &Client{
		store:         store,
		storage:       session.NewMemoryStorage(),
		notifier:      notify.Logger{},
		hashPasswords: true,
		timeout:       5 * time.Second,
		now:           time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.tokens == nil {
		c.tokens = session.NewTokens(uuid.NewString(), 24*time.Hour)
	}
	return c
}

// State returns a copy of the current state.
func (c *Client) State() State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state.clone()
}

func (c *Client) dispatch(a action) {
	c.mu.Lock()
	defer c.mu.Unlock()

	a.apply(&c.state)
	c.state.Total, c.state.ItemCount = RecomputeTotals(c.state.Cart)
}

func (c *Client) remote(ctx context.Context, call func(ctx context.Context) error) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	return call(ctx)
}

// LoadUserList subscribes to the user collection. It returns once the first
// snapshot is applied; the subscription lives until ctx is done.
func (c *Client) LoadUserList(ctx context.Context) error {
	return c.subscribe(ctx, "user list", func(ctx context.Context, ready func()) error {
		return c.store.WatchUsers(ctx, func(users []models.User) {
			c.dispatch(usersReceived{users: users})
			ready()
		})
	})
}

// LoadCartAndOrders subscribes to the signed-in user's document. A previous
// document subscription of this client is stopped first; SignOut stops it too.
func (c *Client) LoadCartAndOrders(ctx context.Context) error {
	st := c.State()
	if !st.IsLoggedIn {
		return ErrNotLoggedIn
	}
	userID := st.User.ID

	ctx, cancel := context.WithCancel(ctx)
	c.watchMu.Lock()
	if c.stopDocument != nil {
		c.stopDocument()
	}
	// SignOut ends the session before stopping the watch, so a sign-out
	// that slipped in since the check above is visible here.
	if st := c.State(); !st.IsLoggedIn || st.User.ID != userID {
		c.stopDocument = nil
		c.watchMu.Unlock()
		cancel()
		return ErrNotLoggedIn
	}
	c.stopDocument = cancel
	c.watchMu.Unlock()

	err := c.subscribe(ctx, "cart", func(ctx context.Context, ready func()) error {
		return c.store.WatchUser(ctx, userID, func(user models.User) {
			c.dispatch(documentReceived{user: user})
			ready()
		})
	})
	if err != nil {
		cancel()
	}
	return err
}

func (c *Client) stopDocumentWatch() {
	c.watchMu.Lock()
	defer c.watchMu.Unlock()
	if c.stopDocument != nil {
		c.stopDocument()
		c.stopDocument = nil
	}
}

func (c *Client) subscribe(ctx context.Context, name string, watch func(ctx context.Context, ready func()) error) error {
	ready := make(chan struct{})
	done := make(chan error, 1)
	var once sync.Once

	go func() {
		err := watch(ctx, func() { once.Do(func() { close(ready) }) })
		if err != nil {
			log.Printf("⚠️ %s subscription stopped: %v", name, err)
		}
		done <- err
	}()

	select {
	case <-ready:
		return nil
	case err := <-done:
		if err == nil {
			err = ctx.Err()
		}
		if err == nil {
			err = fmt.Errorf("%s subscription ended before the first snapshot", name)
		}
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}
