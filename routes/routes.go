package routes

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"snapshop/controllers"
	"snapshop/middleware"
	"snapshop/storefront"
)

type Options struct {
	// AllowOrigins lists browser origins allowed to call the API with
	// credentials. Empty disables CORS.
	AllowOrigins   []string
	SessionTimeout time.Duration
}

func RegisterRoutes(r *gin.Engine, h *controllers.Controller, registry *storefront.Registry, opts Options) {
	if len(opts.AllowOrigins) > 0 {
		r.Use(cors.New(cors.Config{
			AllowOrigins:     opts.AllowOrigins,
			AllowMethods:     []string{"GET", "POST", "DELETE", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type"},
			AllowCredentials: true,
			MaxAge:           12 * time.Hour,
		}))
	}
	if opts.SessionTimeout == 0 {
		opts.SessionTimeout = 10 * time.Second
	}

	r.GET("/api/health", h.Health)
	r.GET("/api/products", h.GetProducts)

	sessioned := r.Group("/")
	sessioned.Use(middleware.SessionMiddleware(registry, opts.SessionTimeout))
	{
		sessioned.GET("/nav", h.NavHTML)

		api := sessioned.Group("/api")
		api.GET("/session", h.GetSession)
		api.GET("/nav", h.GetNav)
		api.POST("/signup", h.SignUp)
		api.POST("/signin", h.SignIn)
		api.POST("/signout", h.SignOut)

		api.POST("/cart", h.AddToCart)
		api.POST("/cart/:name/increase", h.IncreaseQuantity)
		api.POST("/cart/:name/decrease", h.DecreaseQuantity)
		api.DELETE("/cart/:name", h.RemoveFromCart)
		api.DELETE("/cart", h.ClearCart)
		api.POST("/cart/purchase", h.Checkout)

		protected := api.Group("/")
		protected.Use(middleware.AuthMiddleware())
		{
			protected.GET("/cart", h.GetCart)
			protected.GET("/orders", h.GetOrders)
		}
	}
}
