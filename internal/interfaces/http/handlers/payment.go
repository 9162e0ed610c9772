// internal/interfaces/http/handlers/payment.go
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/your-org/marketplace-backend/internal/config"
	"github.com/your-org/marketplace-backend/internal/domain/payment"
)

// PaymentHandler handles Stripe checkout endpoints
type PaymentHandler struct {
	stripeService *payment.StripeService
	config        *config.Config
}

// NewPaymentHandler creates a new payment handler
func NewPaymentHandler(stripeService *payment.StripeService, cfg *config.Config) *PaymentHandler {
	return &PaymentHandler{
		stripeService: stripeService,
		config:        cfg,
	}
}

// CreateCheckoutSession handles POST /payment/stripe/:oid
func (h *PaymentHandler) CreateCheckoutSession(c *gin.Context) {
	session, err := h.stripeService.CreateCheckoutSession(c.Request.Context(), c.Param("oid"))
	if err != nil {
		respondOrderError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": "Checkout session created",
		"data": gin.H{
			"session_id":   session.ID,
			"checkout_url": session.URL,
			"expires_at":   session.ExpiresAt,
		},
	})
}

// PaymentSuccess handles GET /payment/success. Stripe redirects here with
// the session id; the session is verified against the API before the order
// is marked paid, a forged redirect cannot flip payment status.
func (h *PaymentHandler) PaymentSuccess(c *gin.Context) {
	sessionID := c.Query("session_id")
	oid := c.Query("order_oid")
	if sessionID == "" || oid == "" {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "session_id and order_oid are required",
		})
		return
	}

	ord, err := h.stripeService.ConfirmPayment(c.Request.Context(), sessionID, oid)
	if err != nil {
		respondOrderError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Payment status confirmed",
		"data": gin.H{
			"oid":            ord.OID,
			"payment_status": ord.PaymentStatus,
		},
	})
}
