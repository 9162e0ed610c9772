// internal/interfaces/http/handlers/cart.go
package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/your-org/marketplace-backend/internal/config"
	"github.com/your-org/marketplace-backend/internal/domain/cart"
	"github.com/your-org/marketplace-backend/internal/domain/tax"
	"github.com/your-org/marketplace-backend/internal/interfaces/http/middleware"
	"gorm.io/gorm"
)

const cartCookieName = "cart_id"
const cartCookieMaxAge = 30 * 24 * 60 * 60

// CartHandler handles cart endpoints. Carts are identified by a cookie so
// guests and logged-in users share the same flow.
type CartHandler struct {
	cartService *cart.Service
	config      *config.Config
}

// NewCartHandler creates a new cart handler
func NewCartHandler(db *gorm.DB, cfg *config.Config, logger *logrus.Logger) *CartHandler {
	return &CartHandler{
		cartService: cart.NewService(db, tax.NewService(db), logger),
		config:      cfg,
	}
}

// cartID returns the cart id cookie, minting one when absent
func (h *CartHandler) cartID(c *gin.Context) string {
	id, err := c.Cookie(cartCookieName)
	if err != nil || id == "" {
		id = uuid.New().String()
		c.SetCookie(cartCookieName, id, cartCookieMaxAge, "/", "", false, true)
	}
	return id
}

// GetCart handles GET /cart
func (h *CartHandler) GetCart(c *gin.Context) {
	summary, err := h.cartService.GetCart(h.cartID(c))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to load cart",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Cart retrieved successfully",
		"data":    summary,
	})
}

// AddItem handles POST /cart/items
func (h *CartHandler) AddItem(c *gin.Context) {
	var req cart.AddToCartRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request data",
			"details": err.Error(),
		})
		return
	}

	var userID *uint
	if id, ok := middleware.GetUserIDFromContext(c); ok {
		userID = &id
	}

	item, err := h.cartService.AddToCart(h.cartID(c), userID, &req)
	if err != nil {
		respondCartError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": "Item added to cart",
		"data":    item,
	})
}

// UpdateItem handles PUT /cart/items/:id
func (h *CartHandler) UpdateItem(c *gin.Context) {
	itemID, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid cart item id",
		})
		return
	}

	var req cart.UpdateCartRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request data",
			"details": err.Error(),
		})
		return
	}

	item, err := h.cartService.UpdateQuantity(h.cartID(c), uint(itemID), &req)
	if err != nil {
		respondCartError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Cart item updated",
		"data":    item,
	})
}

// RemoveItem handles DELETE /cart/items/:id
func (h *CartHandler) RemoveItem(c *gin.Context) {
	itemID, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid cart item id",
		})
		return
	}

	if err := h.cartService.RemoveItem(h.cartID(c), uint(itemID)); err != nil {
		respondCartError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Cart item removed",
	})
}

// ClearCart handles DELETE /cart
func (h *CartHandler) ClearCart(c *gin.Context) {
	if err := h.cartService.ClearCart(h.cartID(c)); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to clear cart",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Cart cleared",
	})
}

// Count handles GET /cart/count
func (h *CartHandler) Count(c *gin.Context) {
	count, err := h.cartService.Count(h.cartID(c))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to count cart items",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data": gin.H{"count": count},
	})
}

// respondCartError maps cart validation failures to a 400 carrying the
// remaining availability, everything else to a 500.
func respondCartError(c *gin.Context, err error) {
	var verr *cart.ValidationError
	if errors.As(err, &verr) {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":     verr.Message,
			"available": verr.Available,
		})
		return
	}
	c.JSON(http.StatusInternalServerError, gin.H{
		"error": "Cart operation failed",
	})
}
