// internal/interfaces/http/routes/routes.go
package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/your-org/marketplace-backend/internal/config"
	"github.com/your-org/marketplace-backend/internal/domain/order"
	"github.com/your-org/marketplace-backend/internal/domain/payment"
	"github.com/your-org/marketplace-backend/internal/interfaces/http/handlers"
	"github.com/your-org/marketplace-backend/internal/interfaces/http/middleware"
	"gorm.io/gorm"
)

// Deps carries the shared services the route handlers are built from.
// Orders and Stripe are constructed once in main so the publisher and
// mailer wiring is shared by every handler.
type Deps struct {
	DB     *gorm.DB
	Config *config.Config
	Logger *logrus.Logger
	Orders *order.Service
	Stripe *payment.StripeService
}

// SetupRoutes wires every API route under the given group
func SetupRoutes(rg *gin.RouterGroup, deps Deps) {
	cfg := deps.Config

	authHandler := handlers.NewAuthHandler(deps.DB, cfg)
	productHandler := handlers.NewProductHandler(deps.DB, cfg, deps.Logger)
	cartHandler := handlers.NewCartHandler(deps.DB, cfg, deps.Logger)
	orderHandler := handlers.NewOrderHandler(deps.Orders, cfg)
	paymentHandler := handlers.NewPaymentHandler(deps.Stripe, cfg)
	invoiceHandler := handlers.NewInvoiceHandler(deps.Orders, cfg)

	auth := rg.Group("/auth")
	{
		auth.POST("/register", authHandler.Register)
		auth.POST("/login", authHandler.Login)
		auth.POST("/refresh", authHandler.RefreshToken)

		protected := auth.Group("")
		protected.Use(middleware.AuthMiddleware(cfg))
		{
			protected.POST("/logout", authHandler.Logout)
			protected.GET("/profile", authHandler.GetProfile)
		}
	}

	products := rg.Group("/products")
	products.Use(middleware.OptionalAuthMiddleware(cfg))
	{
		products.GET("", productHandler.GetProducts)
		products.GET("/categories", productHandler.GetCategories)
		products.GET("/:pid", productHandler.GetProduct)

		reviews := products.Group("")
		reviews.Use(middleware.AuthMiddleware(cfg))
		{
			reviews.POST("/:pid/reviews", productHandler.AddReview)
		}
	}

	// Cart and checkout work for guests; the cart cookie is the identity
	cart := rg.Group("/cart")
	cart.Use(middleware.OptionalAuthMiddleware(cfg))
	{
		cart.GET("", cartHandler.GetCart)
		cart.GET("/count", cartHandler.Count)
		cart.POST("/items", cartHandler.AddItem)
		cart.PUT("/items/:id", cartHandler.UpdateItem)
		cart.DELETE("/items/:id", cartHandler.RemoveItem)
		cart.DELETE("", cartHandler.ClearCart)
	}

	orders := rg.Group("/orders")
	orders.Use(middleware.OptionalAuthMiddleware(cfg))
	{
		orders.POST("", orderHandler.CreateOrder)
		orders.GET("/:oid", orderHandler.GetOrder)
		orders.PUT("/:oid/payment-method", orderHandler.SetPaymentMethod)
		orders.POST("/:oid/coupons", orderHandler.ApplyCoupon)

		authed := orders.Group("")
		authed.Use(middleware.AuthMiddleware(cfg))
		{
			authed.GET("", orderHandler.ListOrders)
			authed.GET("/:oid/invoice", invoiceHandler.GenerateInvoice)
		}
	}

	pay := rg.Group("/payment")
	pay.Use(middleware.OptionalAuthMiddleware(cfg))
	{
		pay.POST("/stripe/:oid", paymentHandler.CreateCheckoutSession)
		pay.GET("/success", paymentHandler.PaymentSuccess)
	}

	admin := rg.Group("/admin")
	admin.Use(middleware.AuthMiddleware(cfg))
	admin.Use(middleware.AdminMiddleware())
	{
		admin.PUT("/products/:id/stock", productHandler.AdminSetStock)
		admin.POST("/orders/:oid/mark-paid", orderHandler.AdminMarkPaid)
		admin.POST("/orders/:oid/settle", orderHandler.AdminSettle)
	}
}
