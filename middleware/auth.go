package middleware

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"snapshop/storefront"
)

const (
	SessionCookie = "sid"
	SessionKey    = "session"
)

// SessionMiddleware attaches the browser session's storefront client to the
// request, issuing a new session cookie when the browser has none.
func SessionMiddleware(registry *storefront.Registry, timeout time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		sid, err := c.Cookie(SessionCookie)
		if err != nil || uuid.Validate(sid) != nil {
			sid = uuid.NewString()
			c.SetSameSite(http.SameSiteLaxMode)
			c.SetCookie(SessionCookie, sid, 0, "/", "", false, true)
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), timeout)
		defer cancel()

		s, err := registry.Get(ctx, sid)
		if err != nil {
			log.Printf("❌ Session %s unavailable: %v", sid, err)
			c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"error": "Session unavailable, try again"})
			return
		}

		c.Set(SessionKey, s)
		c.Next()
	}
}

// AuthMiddleware rejects requests of sessions without a signed-in user.
func AuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		s, ok := c.Get(SessionKey)
		if !ok || !s.(*storefront.Session).Client.State().IsLoggedIn {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Please log in first!!!"})
			return
		}
		c.Next()
	}
}
