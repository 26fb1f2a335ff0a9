package controllers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"snapshop/catalog"
)

func (h *Controller) AddToCart(c *gin.Context) {
	s := currentSession(c)

	var body struct {
		Name string `json:"name" binding:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		respond(c, s, http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	ctx := c.Request.Context()
	product, err := catalog.Find(ctx, h.catalog, body.Name)
	if err != nil {
		fail(c, s, err)
		return
	}
	if err := s.Client.AddToCart(ctx, product); err != nil {
		fail(c, s, err)
		return
	}
	h.cart(c, "Added to cart")
}

func (h *Controller) GetCart(c *gin.Context) {
	h.cart(c, "Fetch success")
}

func (h *Controller) IncreaseQuantity(c *gin.Context) {
	h.update(c, "Cart updated", func(ctx context.Context, name string) error {
		return currentSession(c).Client.IncreaseQuantity(ctx, name)
	})
}

func (h *Controller) DecreaseQuantity(c *gin.Context) {
	h.update(c, "Cart updated", func(ctx context.Context, name string) error {
		return currentSession(c).Client.DecreaseQuantity(ctx, name)
	})
}

func (h *Controller) RemoveFromCart(c *gin.Context) {
	h.update(c, "Product removed from cart", func(ctx context.Context, name string) error {
		return currentSession(c).Client.RemoveFromCart(ctx, name)
	})
}

func (h *Controller) ClearCart(c *gin.Context) {
	s := currentSession(c)
	if err := s.Client.ClearCart(c.Request.Context()); err != nil {
		fail(c, s, err)
		return
	}
	h.cart(c, "Cart emptied")
}

func (h *Controller) update(c *gin.Context, message string, op func(ctx context.Context, name string) error) {
	if err := op(c.Request.Context(), c.Param("name")); err != nil {
		fail(c, currentSession(c), err)
		return
	}
	h.cart(c, message)
}

func (h *Controller) cart(c *gin.Context, message string) {
	s := currentSession(c)
	st := s.Client.State()
	respond(c, s, http.StatusOK, gin.H{
		"message": message,
		"data": gin.H{
			"cart":       st.Cart,
			"total":      st.Total,
			"itemInCart": st.ItemCount,
		},
	})
}
