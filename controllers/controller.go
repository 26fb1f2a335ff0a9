package controllers

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"snapshop/catalog"
	"snapshop/middleware"
	"snapshop/storefront"
)

type Controller struct {
	registry *storefront.Registry
	catalog  catalog.Source
}

func NewController(registry *storefront.Registry, source catalog.Source) *Controller {
	return &Controller{registry: registry, catalog: source}
}

func currentSession(c *gin.Context) *storefront.Session {
	return c.MustGet(middleware.SessionKey).(*storefront.Session)
}

// respond writes body with the toasts the request raised.
func respond(c *gin.Context, s *storefront.Session, status int, body gin.H) {
	body["toasts"] = s.Toasts.Drain()
	c.JSON(status, body)
}

func fail(c *gin.Context, s *storefront.Session, err error) {
	status := statusFor(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		log.Printf("❌ %s %s: %v", c.Request.Method, c.FullPath(), err)
		msg = "Internal server error"
	}
	respond(c, s, status, gin.H{"error": msg})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, storefront.ErrEmailTaken):
		return http.StatusConflict
	case errors.Is(err, storefront.ErrUnknownEmail),
		errors.Is(err, storefront.ErrWrongPassword),
		errors.Is(err, storefront.ErrNotLoggedIn):
		return http.StatusUnauthorized
	case errors.Is(err, storefront.ErrNotInCart),
		errors.Is(err, catalog.ErrProductNotFound):
		return http.StatusNotFound
	case errors.Is(err, storefront.ErrCartEmpty):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func (h *Controller) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "sessions": h.registry.Len()})
}
