package storefront

import (
	"github.com/shopspring/decimal"

	"snapshop/models"
)

// State is everything one browser session knows. It only changes through
// actions passed to Client.dispatch.
type State struct {
	Users      []models.User
	IsLoggedIn bool
	User       *models.User
	Cart       []models.CartItem
	Orders     []models.Order
	Total      float64
	ItemCount  int
}

func (s State) clone() State {
	out := s
	out.Users = make([]models.User, len(s.Users))
	for i, u := range s.Users {
		out.Users[i] = cloneUser(u)
	}
	if s.User != nil {
		u := cloneUser(*s.User)
		out.User = &u
	}
	out.Cart = cloneCart(s.Cart)
	out.Orders = cloneOrders(s.Orders)
	return out
}

// RecomputeTotals derives the cart total and item count from the cart lines.
func RecomputeTotals(cart []models.CartItem) (float64, int) {
	sum := decimal.Zero
	count := 0
	for _, item := range cart {
		line := decimal.NewFromFloat(item.Price).Mul(decimal.NewFromInt(int64(item.Quantity)))
		sum = sum.Add(line)
		count += item.Quantity
	}
	total, _ := sum.Float64()
	return total, count
}

type action interface {
	apply(s *State)
}

type usersReceived struct {
	users []models.User
}

func (a usersReceived) apply(s *State) {
	s.Users = a.users
	if s.User == nil {
		return
	}
	for _, u := range a.users {
		if u.ID == s.User.ID {
			u := cloneUser(u)
			s.User = &u
			return
		}
	}
}

type sessionStarted struct {
	user models.User
}

func (a sessionStarted) apply(s *State) {
	u := cloneUser(a.user)
	s.IsLoggedIn = true
	s.User = &u
	s.Cart = cloneCart(u.Cart)
	s.Orders = cloneOrders(u.Orders)
}

type sessionEnded struct{}

func (sessionEnded) apply(s *State) {
	s.IsLoggedIn = false
	s.User = nil
	s.Cart = nil
	s.Orders = nil
}

// documentReceived carries the logged-in user's document from the
// subscription. Documents of anyone else are stale and dropped.
type documentReceived struct {
	user models.User
}

func (a documentReceived) apply(s *State) {
	if !ownedBy(s, a.user.ID) {
		return
	}
	s.Cart = cloneCart(a.user.Cart)
	s.Orders = cloneOrders(a.user.Orders)
}

type itemAdded struct {
	userID string
	item   models.CartItem
}

func (a itemAdded) apply(s *State) {
	if !ownedBy(s, a.userID) {
		return
	}
	if indexOf(s.Cart, a.item.Name) >= 0 {
		return
	}
	s.Cart = append(s.Cart, a.item)
}

type quantityChanged struct {
	userID   string
	name     string
	quantity int
}

func (a quantityChanged) apply(s *State) {
	if !ownedBy(s, a.userID) {
		return
	}
	if i := indexOf(s.Cart, a.name); i >= 0 {
		s.Cart[i].Quantity = a.quantity
	}
}

type itemRemoved struct {
	userID string
	name   string
}

func (a itemRemoved) apply(s *State) {
	if !ownedBy(s, a.userID) {
		return
	}
	if i := indexOf(s.Cart, a.name); i >= 0 {
		s.Cart = append(s.Cart[:i:i], s.Cart[i+1:]...)
	}
}

type cartCleared struct {
	userID string
}

func (a cartCleared) apply(s *State) {
	if ownedBy(s, a.userID) {
		s.Cart = []models.CartItem{}
	}
}

type orderPlaced struct {
	userID string
	order  models.Order
}

func (a orderPlaced) apply(s *State) {
	if !ownedBy(s, a.userID) {
		return
	}
	for _, o := range s.Orders {
		if o.ID == a.order.ID {
			return
		}
	}
	s.Orders = append(s.Orders, a.order)
}

func ownedBy(s *State, userID string) bool {
	return s.IsLoggedIn && s.User != nil && s.User.ID == userID
}

func indexOf(cart []models.CartItem, name string) int {
	for i, item := range cart {
		if item.Name == name {
			return i
		}
	}
	return -1
}

func cloneCart(cart []models.CartItem) []models.CartItem {
	if cart == nil {
		return nil
	}
	return append([]models.CartItem{}, cart...)
}

func cloneOrders(orders []models.Order) []models.Order {
	if orders == nil {
		return nil
	}
	out := make([]models.Order, len(orders))
	for i, o := range orders {
		o.List = cloneCart(o.List)
		out[i] = o
	}
	return out
}

func cloneUser(u models.User) models.User {
	u.Cart = cloneCart(u.Cart)
	u.Orders = cloneOrders(u.Orders)
	return u
}
