package database

import (
	"context"
	"errors"

	"snapshop/models"
)

var (
	ErrDuplicateEmail = errors.New("email already registered")
	ErrUserNotFound   = errors.New("user not found")
)

// Store is the document database behind the storefront. Every user is one
// document; cart and orders live inside it.
//
// Watch methods call fn with the current data and again after every change.
// They block until ctx is done (returning nil) or the subscription fails.
type Store interface {
	WatchUsers(ctx context.Context, fn func([]models.User)) error
	WatchUser(ctx context.Context, id string, fn func(models.User)) error

	CreateUser(ctx context.Context, user models.User) (string, error)
	SetCart(ctx context.Context, userID string, cart []models.CartItem) error

	// AddToCart and AddOrder append the value unless an equal one is present.
	AddToCart(ctx context.Context, userID string, item models.CartItem) error
	// RemoveFromCart removes every element equal to item.
	RemoveFromCart(ctx context.Context, userID string, item models.CartItem) error
	AddOrder(ctx context.Context, userID string, order models.Order) error

	Close(ctx context.Context) error
}

func emptyIfNil(cart []models.CartItem) []models.CartItem {
	if cart == nil {
		return []models.CartItem{}
	}
	return cart
}

func normalize(u models.User) models.User {
	u.Cart = emptyIfNil(u.Cart)
	if u.Orders == nil {
		u.Orders = []models.Order{}
	}
	return u
}
