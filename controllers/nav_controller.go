package controllers

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"snapshop/views"
)

func (h *Controller) GetNav(c *gin.Context) {
	s := currentSession(c)
	respond(c, s, http.StatusOK, gin.H{"links": views.Navbar(s.Client.State().IsLoggedIn)})
}

// NavHTML renders the navigation bar fragment.
func (h *Controller) NavHTML(c *gin.Context) {
	s := currentSession(c)

	c.Header("Content-Type", "text/html; charset=utf-8")
	c.Status(http.StatusOK)
	if err := views.RenderNavbar(c.Writer, s.Client.State().IsLoggedIn); err != nil {
		log.Printf("❌ render navbar: %v", err)
	}
}
