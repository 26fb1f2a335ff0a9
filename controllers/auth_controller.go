package controllers

import (
	"log"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

func (h *Controller) GetSession(c *gin.Context) {
	s := currentSession(c)
	st := s.Client.State()

	body := gin.H{
		"isLoggedIn": st.IsLoggedIn,
		"user":       nil,
		"itemInCart": st.ItemCount,
		"total":      st.Total,
	}
	if st.User != nil {
		body["user"] = st.User.Public()
	}
	respond(c, s, http.StatusOK, body)
}

func (h *Controller) SignUp(c *gin.Context) {
	s := currentSession(c)

	var input struct {
		Name     string `json:"name" binding:"required"`
		Email    string `json:"email" binding:"required,email"`
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		respond(c, s, http.StatusBadRequest, gin.H{"error": "Invalid input"})
		return
	}

	if err := s.Client.SignUp(c.Request.Context(), input.Name, input.Email, input.Password); err != nil {
		fail(c, s, err)
		return
	}
	respond(c, s, http.StatusCreated, gin.H{"message": "User registered successfully"})
}

// SignIn starts the session and subscribes to the user's cart.
func (h *Controller) SignIn(c *gin.Context) {
	s := currentSession(c)

	var input struct {
		Email    string `json:"email" binding:"required"`
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		respond(c, s, http.StatusBadRequest, gin.H{"error": "Invalid input"})
		return
	}

	if err := s.Client.SignIn(input.Email, input.Password); err != nil {
		fail(c, s, err)
		return
	}
	// The sign-in already stands; the cart just won't follow remote changes.
	if err := s.WatchCart(); err != nil {
		log.Printf("⚠️ cart subscription for session %s: %v", s.ID, err)
	}

	st := s.Client.State()
	respond(c, s, http.StatusOK, gin.H{
		"message": "Signed in",
		"user":    st.User.Public(),
	})
}

// SignOut ends the session. Form posts from the navigation bar are
// redirected to their redirect field; their toasts wait for the next request.
func (h *Controller) SignOut(c *gin.Context) {
	s := currentSession(c)

	if err := s.Client.SignOut(); err != nil {
		fail(c, s, err)
		return
	}

	if to := c.PostForm("redirect"); isLocalPath(to) {
		c.Redirect(http.StatusSeeOther, to)
		return
	}
	respond(c, s, http.StatusOK, gin.H{"message": "Signed out"})
}

func isLocalPath(p string) bool {
	return strings.HasPrefix(p, "/") && !strings.HasPrefix(p, "//") && !strings.Contains(p, `\`)
}
