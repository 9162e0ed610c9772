// internal/interfaces/http/handlers/order.go
package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/your-org/marketplace-backend/internal/config"
	"github.com/your-org/marketplace-backend/internal/domain/order"
	"github.com/your-org/marketplace-backend/internal/interfaces/http/middleware"
)

// OrderHandler handles checkout and order endpoints
type OrderHandler struct {
	orderService *order.Service
	config       *config.Config
}

// NewOrderHandler creates a new order handler
func NewOrderHandler(orderService *order.Service, cfg *config.Config) *OrderHandler {
	return &OrderHandler{
		orderService: orderService,
		config:       cfg,
	}
}

// CreateOrder handles POST /orders. The cart identified by the cart cookie
// is converted into an order; on success the cookie's cart is empty.
func (h *OrderHandler) CreateOrder(c *gin.Context) {
	cartID, err := c.Cookie(cartCookieName)
	if err != nil || cartID == "" {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": order.ErrEmptyCart.Error(),
		})
		return
	}

	var req order.CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request data",
			"details": err.Error(),
		})
		return
	}

	var buyerID *uint
	if id, ok := middleware.GetUserIDFromContext(c); ok {
		buyerID = &id
	}

	ord, err := h.orderService.CreateOrder(cartID, buyerID, &req)
	if err != nil {
		respondOrderError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": "Order created successfully",
		"data":    ord,
	})
}

// ListOrders handles GET /orders
func (h *OrderHandler) ListOrders(c *gin.Context) {
	userID, exists := middleware.GetUserIDFromContext(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{
			"error": "User not authenticated",
		})
		return
	}

	orders, err := h.orderService.ListForBuyer(userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to list orders",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Orders retrieved successfully",
		"data":    orders,
	})
}

// GetOrder handles GET /orders/:oid
func (h *OrderHandler) GetOrder(c *gin.Context) {
	ord, err := h.orderService.GetByOID(c.Param("oid"))
	if err != nil {
		respondOrderError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Order retrieved successfully",
		"data":    ord,
	})
}

// SetPaymentMethod handles PUT /orders/:oid/payment-method
func (h *OrderHandler) SetPaymentMethod(c *gin.Context) {
	var req struct {
		PaymentMethod string `json:"payment_method" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request data",
			"details": err.Error(),
		})
		return
	}

	ord, err := h.orderService.SetPaymentMethod(c.Param("oid"), req.PaymentMethod)
	if err != nil {
		respondOrderError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Payment method updated",
		"data":    ord,
	})
}

// ApplyCoupon handles POST /orders/:oid/coupons
func (h *OrderHandler) ApplyCoupon(c *gin.Context) {
	var req struct {
		Code string `json:"code" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request data",
			"details": err.Error(),
		})
		return
	}

	ord, err := h.orderService.ApplyCoupon(c.Param("oid"), req.Code)
	if err != nil {
		respondOrderError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Coupon applied successfully",
		"data":    ord,
	})
}

// AdminMarkPaid handles POST /admin/orders/:oid/mark-paid. Used for
// deferred payment methods settled outside the platform; payment is
// recorded first and the stock settlement follows.
func (h *OrderHandler) AdminMarkPaid(c *gin.Context) {
	ord, err := h.orderService.MarkDeferredPaid(c.Param("oid"))
	if err != nil {
		respondOrderError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Order marked paid and stock settled",
		"data":    ord,
	})
}

// AdminSettle handles POST /admin/orders/:oid/settle
func (h *OrderHandler) AdminSettle(c *gin.Context) {
	if err := h.orderService.Settle(c.Param("oid")); err != nil {
		respondOrderError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Order stock settled",
	})
}

// respondOrderError maps order service errors onto HTTP statuses: caller
// mistakes are 400s, missing orders 404, settlement and payment guard
// violations 409, stock races 409 with availability attached.
func respondOrderError(c *gin.Context, err error) {
	var stockErr *order.StockError
	switch {
	case errors.As(err, &stockErr):
		c.JSON(http.StatusConflict, gin.H{
			"error":      stockErr.Message,
			"product_id": stockErr.ProductID,
			"available":  stockErr.Available,
		})
	case errors.Is(err, order.ErrEmptyCart),
		errors.Is(err, order.ErrMissingContact),
		errors.Is(err, order.ErrInvalidPaymentMethod),
		errors.Is(err, order.ErrCouponNotFound),
		errors.Is(err, order.ErrCouponNotApplicable):
		c.JSON(http.StatusBadRequest, gin.H{
			"error": err.Error(),
		})
	case errors.Is(err, order.ErrOrderNotFound):
		c.JSON(http.StatusNotFound, gin.H{
			"error": err.Error(),
		})
	case errors.Is(err, order.ErrNotDeferred),
		errors.Is(err, order.ErrNotPaid),
		errors.Is(err, order.ErrAlreadySettled),
		errors.Is(err, order.ErrAlreadyPaid):
		c.JSON(http.StatusConflict, gin.H{
			"error": err.Error(),
		})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Order operation failed",
		})
	}
}
