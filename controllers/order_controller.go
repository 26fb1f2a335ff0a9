package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"snapshop/models"
)

// Checkout buys everything in the cart as one order.
func (h *Controller) Checkout(c *gin.Context) {
	s := currentSession(c)

	order, err := s.Client.PurchaseAll(c.Request.Context())
	if err != nil {
		fail(c, s, err)
		return
	}

	respond(c, s, http.StatusCreated, gin.H{"message": "Order placed", "data": order})
}

func (h *Controller) GetOrders(c *gin.Context) {
	s := currentSession(c)

	orders := s.Client.State().Orders
	if orders == nil {
		orders = []models.Order{}
	}
	respond(c, s, http.StatusOK, gin.H{"message": "Fetch success", "data": orders})
}
