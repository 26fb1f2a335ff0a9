package storefront

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"snapshop/models"
)

// AddToCart puts one unit of product in the cart. A product already in the
// cart (same name) has its quantity increased instead.
func (c *Client) AddToCart(ctx context.Context, product models.Product) error {
	c.ops.Lock()
	defer c.ops.Unlock()

	st := c.State()
	if !st.IsLoggedIn {
		c.notifier.Error(msgLoginFirst)
		return ErrNotLoggedIn
	}

	if indexOf(st.Cart, product.Name) >= 0 {
		if err := c.increase(ctx, st, product.Name); err != nil {
			return err
		}
		c.notifier.Success(msgQuantityUp)
		return nil
	}

	userID := st.User.ID
	item := models.NewCartItem(product)
	err := c.remote(ctx, func(ctx context.Context) error {
		return c.store.AddToCart(ctx, userID, item)
	})
	if err != nil {
		return fmt.Errorf("add %q to cart: %w", product.Name, err)
	}

	c.dispatch(itemAdded{userID: userID, item: item})
	c.notifier.Success(msgAdded)
	return nil
}

func (c *Client) IncreaseQuantity(ctx context.Context, name string) error {
	c.ops.Lock()
	defer c.ops.Unlock()

	st := c.State()
	if !st.IsLoggedIn {
		return ErrNotLoggedIn
	}
	return c.increase(ctx, st, name)
}

// DecreaseQuantity takes one unit off a cart line. The last unit removes the
// line.
func (c *Client) DecreaseQuantity(ctx context.Context, name string) error {
	c.ops.Lock()
	defer c.ops.Unlock()

	st := c.State()
	if !st.IsLoggedIn {
		return ErrNotLoggedIn
	}

	i := indexOf(st.Cart, name)
	if i < 0 {
		c.notifier.Error(msgNotInCart)
		return ErrNotInCart
	}
	if st.Cart[i].Quantity <= 1 {
		return c.remove(ctx, st, name)
	}
	return c.setQuantity(ctx, st, i, st.Cart[i].Quantity-1)
}

func (c *Client) RemoveFromCart(ctx context.Context, name string) error {
	c.ops.Lock()
	defer c.ops.Unlock()

	st := c.State()
	if !st.IsLoggedIn {
		return ErrNotLoggedIn
	}
	return c.remove(ctx, st, name)
}

// ClearCart empties the cart. An empty cart is reported and left alone.
func (c *Client) ClearCart(ctx context.Context) error {
	c.ops.Lock()
	defer c.ops.Unlock()

	st := c.State()
	if !st.IsLoggedIn {
		return ErrNotLoggedIn
	}
	return c.clear(ctx, st)
}

// PurchaseAll records the whole cart as a new order dated today and then
// clears the cart.
func (c *Client) PurchaseAll(ctx context.Context) (models.Order, error) {
	c.ops.Lock()
	defer c.ops.Unlock()

	st := c.State()
	if !st.IsLoggedIn {
		return models.Order{}, ErrNotLoggedIn
	}
	if len(st.Cart) == 0 {
		c.notifier.Error(msgNothingToBuy)
		return models.Order{}, ErrCartEmpty
	}

	userID := st.User.ID
	order := models.Order{
		ID:     uuid.NewString(),
		Date:   models.OrderDate(c.now()),
		List:   cloneCart(st.Cart),
		Amount: st.Total,
	}
	err := c.remote(ctx, func(ctx context.Context) error {
		return c.store.AddOrder(ctx, userID, order)
	})
	if err != nil {
		return models.Order{}, fmt.Errorf("place order: %w", err)
	}
	c.dispatch(orderPlaced{userID: userID, order: order})

	if err := c.clear(ctx, c.State()); err != nil {
		return order, err
	}
	return order, nil
}

func (c *Client) increase(ctx context.Context, st State, name string) error {
	i := indexOf(st.Cart, name)
	if i < 0 {
		c.notifier.Error(msgNotInCart)
		return ErrNotInCart
	}
	return c.setQuantity(ctx, st, i, st.Cart[i].Quantity+1)
}

// setQuantity writes the whole cart with line i changed. Quantity updates
// are read-modify-write against the local cart.
func (c *Client) setQuantity(ctx context.Context, st State, i, quantity int) error {
	userID := st.User.ID
	cart := cloneCart(st.Cart)
	cart[i].Quantity = quantity

	err := c.remote(ctx, func(ctx context.Context) error {
		return c.store.SetCart(ctx, userID, cart)
	})
	if err != nil {
		return fmt.Errorf("update quantity of %q: %w", cart[i].Name, err)
	}

	c.dispatch(quantityChanged{userID: userID, name: cart[i].Name, quantity: quantity})
	return nil
}

func (c *Client) remove(ctx context.Context, st State, name string) error {
	i := indexOf(st.Cart, name)
	if i < 0 {
		c.notifier.Error(msgNotInCart)
		return ErrNotInCart
	}

	userID := st.User.ID
	stored := st.Cart[i]
	err := c.remote(ctx, func(ctx context.Context) error {
		return c.store.RemoveFromCart(ctx, userID, stored)
	})
	if err != nil {
		return fmt.Errorf("remove %q from cart: %w", name, err)
	}

	c.dispatch(itemRemoved{userID: userID, name: name})
	c.notifier.Success(msgRemoved)
	return nil
}

func (c *Client) clear(ctx context.Context, st State) error {
	if st.ItemCount == 0 {
		c.notifier.Error(msgNothingToRemove)
		return ErrCartEmpty
	}

	userID := st.User.ID
	err := c.remote(ctx, func(ctx context.Context) error {
		return c.store.SetCart(ctx, userID, []models.CartItem{})
	})
	if err != nil {
		return fmt.Errorf("clear cart: %w", err)
	}

	c.dispatch(cartCleared{userID: userID})
	c.notifier.Success(msgCartEmptied)
	return nil
}
