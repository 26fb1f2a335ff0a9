package controllers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"snapshop/catalog"
)

func (h *Controller) GetProducts(c *gin.Context) {
	q := catalog.Query{
		Search:   c.Query("q"),
		Category: c.Query("category"),
	}
	if raw := c.Query("maxPrice"); raw != "" {
		maxPrice, err := strconv.ParseFloat(raw, 64)
		if err != nil || maxPrice < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid maxPrice"})
			return
		}
		q.MaxPrice = maxPrice
	}

	products, err := h.catalog.Products(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Fetch success", "data": catalog.Filter(products, q)})
}
