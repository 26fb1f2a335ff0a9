package storefront

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"snapshop/database"
	"snapshop/models"
	"snapshop/notify"
	"snapshop/session"
)

var (
	mug    = models.Product{ID: "p1", Name: "Mug", Price: 4.5, Category: "kitchen", Image: "mug.png"}
	poster = models.Product{ID: "p2", Name: "Poster", Price: 12.25, Category: "decor"}
)

type fixture struct {
	client  *Client
	store   *database.MemoryStore
	toasts  *notify.Queue
	storage *session.MemoryStorage
	tokens  *session.Tokens
}

func newFixture(t *testing.T, opts ...Option) *fixture {
	t.Helper()

	f := &fixture{
		store:   database.NewMemoryStore(),
		toasts:  notify.NewQueue(),
		storage: session.NewMemoryStorage(),
		tokens:  session.NewTokens("test-secret", time.Hour),
	}
	base := []Option{
		WithNotifier(f.toasts),
		WithStorage(f.storage),
		WithTokens(f.tokens),
		WithPlainPasswords(),
		WithClock(func() time.Time { return time.Date(2024, time.March, 7, 10, 0, 0, 0, time.Local) }),
	}
	f.client = NewClient(f.store, append(base, opts...)...)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	require.NoError(t, f.client.LoadUserList(ctx))
	return f
}

// signUp creates a user and waits until the user list subscription shows it.
func (f *fixture) signUp(t *testing.T, name, email, password string) models.User {
	t.Helper()

	require.NoError(t, f.client.SignUp(context.Background(), name, email, password))
	var user models.User
	require.Eventually(t, func() bool {
		u, ok := f.client.findUser(func(u models.User) bool { return u.Email == email })
		user = u
		return ok
	}, time.Second, 5*time.Millisecond)
	return user
}

func (f *fixture) signedIn(t *testing.T) models.User {
	t.Helper()

	user := f.signUp(t, "Ada", "ada@example.com", "pw")
	require.NoError(t, f.client.SignIn("ada@example.com", "pw"))
	f.toasts.Drain()
	return user
}

func messages(toasts []notify.Toast) []string {
	out := make([]string, 0, len(toasts))
	for _, t := range toasts {
		out = append(out, t.Message)
	}
	return out
}

func TestSignUp_CreatesUserWithEmptyCartAndOrders(t *testing.T) {
	f := newFixture(t)

	f.signUp(t, "Ada", "ada@example.com", "pw")

	users := f.store.List()
	require.Len(t, users, 1)
	assert.Equal(t, "Ada", users[0].Name)
	assert.Equal(t, []models.CartItem{}, users[0].Cart)
	assert.Equal(t, []models.Order{}, users[0].Orders)
	assert.False(t, f.client.State().IsLoggedIn)
	assert.Equal(t, []string{msgSignedUp}, messages(f.toasts.Drain()))
}

func TestSignUp_DuplicateEmailIsRejected(t *testing.T) {
	f := newFixture(t)
	f.signUp(t, "Ada", "ada@example.com", "pw")
	f.toasts.Drain()

	err := f.client.SignUp(context.Background(), "Other", "ada@example.com", "x")

	assert.ErrorIs(t, err, ErrEmailTaken)
	assert.Len(t, f.store.List(), 1)
	assert.Len(t, f.client.State().Users, 1)
	assert.Equal(t, []string{msgEmailTaken}, messages(f.toasts.Drain()))
}

func TestSignUp_EmailMatchIsCaseSensitive(t *testing.T) {
	f := newFixture(t)
	f.signUp(t, "Ada", "ada@example.com", "pw")

	f.signUp(t, "Ada", "ADA@example.com", "pw")

	assert.Len(t, f.store.List(), 2)
}

func TestSignUp_BackendDuplicateIsReportedAsTaken(t *testing.T) {
	f := newFixture(t)
	_, err := f.store.CreateUser(context.Background(), models.User{Email: "ada@example.com"})
	require.NoError(t, err)

	// The cached list may not have caught up yet; the store still refuses.
	err = f.client.SignUp(context.Background(), "Ada", "ada@example.com", "pw")

	assert.ErrorIs(t, err, ErrEmailTaken)
	assert.Len(t, f.store.List(), 1)
}

func TestSignIn_Outcomes(t *testing.T) {
	f := newFixture(t)
	user := f.signUp(t, "Ada", "ada@example.com", "pw")
	f.toasts.Drain()

	err := f.client.SignIn("nobody@example.com", "pw")
	assert.ErrorIs(t, err, ErrUnknownEmail)
	assert.Equal(t, []string{msgUnknownEmail}, messages(f.toasts.Drain()))
	assert.False(t, f.client.State().IsLoggedIn)

	err = f.client.SignIn("ada@example.com", "wrong")
	assert.ErrorIs(t, err, ErrWrongPassword)
	assert.Equal(t, []string{msgWrongPassword}, messages(f.toasts.Drain()))
	assert.False(t, f.client.State().IsLoggedIn)
	_, ok, _ := f.storage.Get(session.TokenKey)
	assert.False(t, ok)

	require.NoError(t, f.client.SignIn("ada@example.com", "pw"))
	assert.Equal(t, []string{msgSignedIn}, messages(f.toasts.Drain()))

	st := f.client.State()
	assert.True(t, st.IsLoggedIn)
	require.NotNil(t, st.User)
	assert.Equal(t, user.ID, st.User.ID)

	token, ok, err := f.storage.Get(session.TokenKey)
	require.NoError(t, err)
	require.True(t, ok)
	subject, err := f.tokens.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, user.ID, subject)

	record, ok, _ := f.storage.Get(session.UserKey)
	require.True(t, ok)
	assert.Contains(t, record, `"email":"ada@example.com"`)
	assert.NotContains(t, record, "password")
}

func TestSignUp_HashesPasswords(t *testing.T) {
	store := database.NewMemoryStore()
	client := NewClient(store, WithNotifier(notify.NewQueue()))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, client.LoadUserList(ctx))

	require.NoError(t, client.SignUp(ctx, "Ada", "ada@example.com", "pw"))
	users := store.List()
	require.Len(t, users, 1)
	assert.NotEqual(t, "pw", users[0].Password)
	assert.True(t, isBcryptHash(users[0].Password))

	require.Eventually(t, func() bool { return len(client.State().Users) == 1 }, time.Second, 5*time.Millisecond)
	assert.ErrorIs(t, client.SignIn("ada@example.com", "nope"), ErrWrongPassword)
	assert.NoError(t, client.SignIn("ada@example.com", "pw"))
}

func TestSignUp_LongPassword(t *testing.T) {
	store := database.NewMemoryStore()
	toasts := notify.NewQueue()
	client := NewClient(store, WithNotifier(toasts))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, client.LoadUserList(ctx))

	long := strings.Repeat("p", 80)
	require.NoError(t, client.SignUp(ctx, "Ada", "ada@example.com", long))
	require.Len(t, store.List(), 1)
	assert.Equal(t, []string{msgSignedUp}, messages(toasts.Drain()))

	require.Eventually(t, func() bool { return len(client.State().Users) == 1 }, time.Second, 5*time.Millisecond)
	// Passwords sharing the first 72 bytes are still told apart.
	assert.ErrorIs(t, client.SignIn("ada@example.com", long+"x"), ErrWrongPassword)
	assert.NoError(t, client.SignIn("ada@example.com", long))
}

func TestSignIn_PlainPasswordLookingLikeHash(t *testing.T) {
	f := newFixture(t)
	password := "$2a$10$" + strings.Repeat("a", 53)
	require.True(t, isBcryptHash(password))
	f.signUp(t, "Ada", "ada@example.com", password)

	assert.NoError(t, f.client.SignIn("ada@example.com", password))
}

func TestSignOut_ClearsSession(t *testing.T) {
	f := newFixture(t)
	f.signedIn(t)
	require.NoError(t, f.client.AddToCart(context.Background(), mug))

	require.NoError(t, f.client.SignOut())

	st := f.client.State()
	assert.False(t, st.IsLoggedIn)
	assert.Nil(t, st.User)
	assert.Empty(t, st.Cart)
	assert.Zero(t, st.Total)
	assert.Zero(t, st.ItemCount)
	_, ok, _ := f.storage.Get(session.TokenKey)
	assert.False(t, ok)
	_, ok, _ = f.storage.Get(session.UserKey)
	assert.False(t, ok)
	assert.Contains(t, messages(f.toasts.Drain()), msgSignedOut)
}

func TestRestoreSession(t *testing.T) {
	f := newFixture(t)
	user := f.signedIn(t)

	// A fresh client for the same browser picks the session back up.
	restored := NewClient(f.store, WithStorage(f.storage), WithTokens(f.tokens), WithNotifier(notify.NewQueue()))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, restored.LoadUserList(ctx))

	require.NoError(t, restored.RestoreSession())
	st := restored.State()
	assert.True(t, st.IsLoggedIn)
	require.NotNil(t, st.User)
	assert.Equal(t, user.ID, st.User.ID)
}

func TestRestoreSession_RejectsForeignToken(t *testing.T) {
	f := newFixture(t)
	f.signedIn(t)

	other := NewClient(f.store, WithStorage(f.storage), WithTokens(session.NewTokens("other-secret", time.Hour)))

	assert.ErrorIs(t, other.RestoreSession(), ErrNoSession)
	assert.False(t, other.State().IsLoggedIn)
	_, ok, _ := f.storage.Get(session.TokenKey)
	assert.False(t, ok)
}

func TestRestoreSession_NothingStored(t *testing.T) {
	f := newFixture(t)
	assert.ErrorIs(t, f.client.RestoreSession(), ErrNoSession)
}

func TestAddToCart_RequiresLogin(t *testing.T) {
	f := newFixture(t)

	err := f.client.AddToCart(context.Background(), mug)

	assert.ErrorIs(t, err, ErrNotLoggedIn)
	assert.Equal(t, []string{msgLoginFirst}, messages(f.toasts.Drain()))
	assert.Empty(t, f.client.State().Cart)
}

func TestCartOperations_RequireLogin(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	assert.ErrorIs(t, f.client.IncreaseQuantity(ctx, "Mug"), ErrNotLoggedIn)
	assert.ErrorIs(t, f.client.DecreaseQuantity(ctx, "Mug"), ErrNotLoggedIn)
	assert.ErrorIs(t, f.client.RemoveFromCart(ctx, "Mug"), ErrNotLoggedIn)
	assert.ErrorIs(t, f.client.ClearCart(ctx), ErrNotLoggedIn)
	_, err := f.client.PurchaseAll(ctx)
	assert.ErrorIs(t, err, ErrNotLoggedIn)
	assert.ErrorIs(t, f.client.LoadCartAndOrders(ctx), ErrNotLoggedIn)
}

func TestAddToCart_EmptyCart(t *testing.T) {
	f := newFixture(t)
	user := f.signedIn(t)

	require.NoError(t, f.client.AddToCart(context.Background(), mug))

	st := f.client.State()
	assert.Equal(t, []models.CartItem{models.NewCartItem(mug)}, st.Cart)
	assert.Equal(t, 1, st.ItemCount)
	assert.Equal(t, mug.Price, st.Total)
	assert.Equal(t, []string{msgAdded}, messages(f.toasts.Drain()))

	stored, err := f.store.Get(user.ID)
	require.NoError(t, err)
	assert.Equal(t, st.Cart, stored.Cart)
}

func TestAddToCart_SameNameIncreasesQuantity(t *testing.T) {
	f := newFixture(t)
	user := f.signedIn(t)
	ctx := context.Background()

	require.NoError(t, f.client.AddToCart(ctx, mug))
	require.NoError(t, f.client.AddToCart(ctx, mug))

	st := f.client.State()
	require.Len(t, st.Cart, 1)
	assert.Equal(t, 2, st.Cart[0].Quantity)
	assert.Equal(t, 2, st.ItemCount)
	assert.Equal(t, 9.0, st.Total)
	assert.Equal(t, []string{msgAdded, msgQuantityUp}, messages(f.toasts.Drain()))

	stored, err := f.store.Get(user.ID)
	require.NoError(t, err)
	require.Len(t, stored.Cart, 1)
	assert.Equal(t, 2, stored.Cart[0].Quantity)
}

func TestDecreaseQuantity(t *testing.T) {
	f := newFixture(t)
	user := f.signedIn(t)
	ctx := context.Background()
	require.NoError(t, f.client.AddToCart(ctx, mug))
	require.NoError(t, f.client.IncreaseQuantity(ctx, "Mug"))
	require.NoError(t, f.client.AddToCart(ctx, poster))

	require.NoError(t, f.client.DecreaseQuantity(ctx, "Mug"))
	st := f.client.State()
	assert.Equal(t, 1, st.Cart[0].Quantity)
	assert.Equal(t, 2, st.ItemCount)
	assert.Equal(t, 16.75, st.Total)

	require.NoError(t, f.client.DecreaseQuantity(ctx, "Mug"))
	st = f.client.State()
	require.Len(t, st.Cart, 1)
	assert.Equal(t, "Poster", st.Cart[0].Name)
	assert.Equal(t, 1, st.ItemCount)

	stored, err := f.store.Get(user.ID)
	require.NoError(t, err)
	assert.Equal(t, st.Cart, stored.Cart)
}

func TestDecreaseQuantity_LastItemEmptiesCount(t *testing.T) {
	f := newFixture(t)
	f.signedIn(t)
	ctx := context.Background()
	require.NoError(t, f.client.AddToCart(ctx, mug))

	require.NoError(t, f.client.DecreaseQuantity(ctx, "Mug"))

	st := f.client.State()
	assert.Empty(t, st.Cart)
	assert.Zero(t, st.ItemCount)
	assert.Zero(t, st.Total)
}

func TestRemoveFromCart_MatchesByName(t *testing.T) {
	f := newFixture(t)
	user := f.signedIn(t)
	ctx := context.Background()
	require.NoError(t, f.client.AddToCart(ctx, mug))
	require.NoError(t, f.client.IncreaseQuantity(ctx, "Mug"))
	f.toasts.Drain()

	require.NoError(t, f.client.RemoveFromCart(ctx, "Mug"))

	assert.Empty(t, f.client.State().Cart)
	assert.Equal(t, []string{msgRemoved}, messages(f.toasts.Drain()))
	stored, err := f.store.Get(user.ID)
	require.NoError(t, err)
	assert.Empty(t, stored.Cart)

	assert.ErrorIs(t, f.client.RemoveFromCart(ctx, "Mug"), ErrNotInCart)
	assert.Equal(t, []string{msgNotInCart}, messages(f.toasts.Drain()))
}

func TestClearCart_EmptyDoesNotWrite(t *testing.T) {
	f := newFixture(t)
	f.signedIn(t)
	before := f.client.State()

	// Any write would fail; the empty check must come first.
	f.store.SetFailure(errors.New("write not expected"))
	err := f.client.ClearCart(context.Background())

	assert.ErrorIs(t, err, ErrCartEmpty)
	after := f.client.State()
	assert.Equal(t, before.Cart, after.Cart)
	assert.Equal(t, before.ItemCount, after.ItemCount)
	assert.Equal(t, []string{msgNothingToRemove}, messages(f.toasts.Drain()))
}

func TestClearCart(t *testing.T) {
	f := newFixture(t)
	user := f.signedIn(t)
	ctx := context.Background()
	require.NoError(t, f.client.AddToCart(ctx, mug))
	require.NoError(t, f.client.AddToCart(ctx, poster))
	f.toasts.Drain()

	require.NoError(t, f.client.ClearCart(ctx))

	st := f.client.State()
	assert.Empty(t, st.Cart)
	assert.Zero(t, st.Total)
	assert.Zero(t, st.ItemCount)
	assert.Equal(t, []string{msgCartEmptied}, messages(f.toasts.Drain()))
	stored, err := f.store.Get(user.ID)
	require.NoError(t, err)
	assert.Empty(t, stored.Cart)
}

func TestPurchaseAll(t *testing.T) {
	f := newFixture(t)
	user := f.signedIn(t)
	ctx := context.Background()
	require.NoError(t, f.client.AddToCart(ctx, mug))
	require.NoError(t, f.client.AddToCart(ctx, mug))
	require.NoError(t, f.client.AddToCart(ctx, poster))
	before := f.client.State()

	order, err := f.client.PurchaseAll(ctx)
	require.NoError(t, err)

	st := f.client.State()
	require.Len(t, st.Orders, 1)
	assert.Equal(t, order, st.Orders[0])
	assert.Equal(t, before.Cart, order.List)
	assert.Equal(t, before.Total, order.Amount)
	assert.Equal(t, 21.25, order.Amount)
	assert.Equal(t, "2024-3-7", order.Date)
	assert.NotEmpty(t, order.ID)
	assert.Empty(t, st.Cart)
	assert.Zero(t, st.Total)
	assert.Zero(t, st.ItemCount)

	stored, err := f.store.Get(user.ID)
	require.NoError(t, err)
	assert.Equal(t, []models.Order{order}, stored.Orders)
	assert.Empty(t, stored.Cart)
}

func TestPurchaseAll_IdenticalOrdersAreKept(t *testing.T) {
	f := newFixture(t)
	user := f.signedIn(t)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		require.NoError(t, f.client.AddToCart(ctx, mug))
		_, err := f.client.PurchaseAll(ctx)
		require.NoError(t, err)
	}

	stored, err := f.store.Get(user.ID)
	require.NoError(t, err)
	assert.Len(t, stored.Orders, 2)
	assert.Len(t, f.client.State().Orders, 2)
}

func TestPurchaseAll_EmptyCart(t *testing.T) {
	f := newFixture(t)
	f.signedIn(t)

	_, err := f.client.PurchaseAll(context.Background())

	assert.ErrorIs(t, err, ErrCartEmpty)
	assert.Empty(t, f.client.State().Orders)
	assert.Equal(t, []string{msgNothingToBuy}, messages(f.toasts.Drain()))
}

func TestRemoteFailureLeavesStateUnchanged(t *testing.T) {
	f := newFixture(t)
	f.signedIn(t)
	ctx := context.Background()
	require.NoError(t, f.client.AddToCart(ctx, mug))
	f.toasts.Drain()
	before := f.client.State()

	boom := errors.New("boom")
	f.store.SetFailure(boom)

	assert.ErrorIs(t, f.client.AddToCart(ctx, poster), boom)
	assert.ErrorIs(t, f.client.IncreaseQuantity(ctx, "Mug"), boom)
	assert.ErrorIs(t, f.client.RemoveFromCart(ctx, "Mug"), boom)
	assert.ErrorIs(t, f.client.ClearCart(ctx), boom)
	_, err := f.client.PurchaseAll(ctx)
	assert.ErrorIs(t, err, boom)

	after := f.client.State()
	assert.Equal(t, before.Cart, after.Cart)
	assert.Equal(t, before.Orders, after.Orders)
	assert.Equal(t, before.Total, after.Total)
	assert.Equal(t, before.ItemCount, after.ItemCount)
	assert.True(t, after.IsLoggedIn)
	assert.Empty(t, f.toasts.Drain())
}

func TestLoadCartAndOrders_FollowsRemoteChanges(t *testing.T) {
	f := newFixture(t)
	user := f.signedIn(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	require.NoError(t, f.client.LoadCartAndOrders(ctx))

	// Another tab of the same user writes the cart.
	other := []models.CartItem{{Name: "Lamp", Price: 30, Quantity: 2}}
	require.NoError(t, f.store.SetCart(ctx, user.ID, other))

	require.Eventually(t, func() bool {
		st := f.client.State()
		return len(st.Cart) == 1 && st.Cart[0].Name == "Lamp"
	}, time.Second, 5*time.Millisecond)
	st := f.client.State()
	assert.Equal(t, 60.0, st.Total)
	assert.Equal(t, 2, st.ItemCount)
}

func TestSignOut_StopsCartSubscription(t *testing.T) {
	f := newFixture(t)
	user := f.signedIn(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, f.client.LoadCartAndOrders(ctx))

	require.NoError(t, f.client.SignOut())
	require.NoError(t, f.store.SetCart(ctx, user.ID, []models.CartItem{{Name: "Lamp", Price: 30, Quantity: 1}}))

	assert.Never(t, func() bool { return len(f.client.State().Cart) > 0 }, 100*time.Millisecond, 5*time.Millisecond)
}

func TestLoadCartAndOrders_AfterSignOut(t *testing.T) {
	f := newFixture(t)
	f.signedIn(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Hold the watch lock so the load and the sign-out overlap.
	f.client.watchMu.Lock()
	done := make(chan error, 1)
	go func() { done <- f.client.LoadCartAndOrders(ctx) }()
	time.Sleep(10 * time.Millisecond)
	f.client.dispatch(sessionEnded{})
	f.client.watchMu.Unlock()

	assert.ErrorIs(t, <-done, ErrNotLoggedIn)
	f.client.watchMu.Lock()
	defer f.client.watchMu.Unlock()
	assert.Nil(t, f.client.stopDocument)
}

func TestDocumentReceived_IgnoresOtherUsers(t *testing.T) {
	st := State{IsLoggedIn: true, User: &models.User{ID: "a"}, Cart: []models.CartItem{}}

	documentReceived{user: models.User{ID: "b", Cart: []models.CartItem{{Name: "Lamp"}}}}.apply(&st)

	assert.Empty(t, st.Cart)
}

func TestRecomputeTotals(t *testing.T) {
	total, count := RecomputeTotals([]models.CartItem{
		{Name: "a", Price: 0.1, Quantity: 3},
		{Name: "b", Price: 0.2, Quantity: 1},
	})
	assert.Equal(t, 0.5, total)
	assert.Equal(t, 4, count)

	total, count = RecomputeTotals(nil)
	assert.Zero(t, total)
	assert.Zero(t, count)
}

func TestCheckPassword(t *testing.T) {
	hashed, err := HashPassword("pw")
	require.NoError(t, err)

	assert.True(t, CheckPassword(hashed, "pw"))
	assert.False(t, CheckPassword(hashed, "other"))
	assert.True(t, CheckPassword("plain", "plain"))
	assert.False(t, CheckPassword("plain", "Plain"))

	long, err := HashPassword(strings.Repeat("x", 100))
	require.NoError(t, err)
	assert.True(t, CheckPassword(long, strings.Repeat("x", 100)))
	assert.False(t, CheckPassword(long, strings.Repeat("x", 99)))
}
