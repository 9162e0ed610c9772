// internal/interfaces/http/handlers/invoice.go
package handlers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/your-org/marketplace-backend/internal/config"
	"github.com/your-org/marketplace-backend/internal/domain/order"
	"github.com/your-org/marketplace-backend/internal/interfaces/http/middleware"
	"github.com/your-org/marketplace-backend/internal/pkg/pdf"
)

// InvoiceHandler handles invoice endpoints
type InvoiceHandler struct {
	orderService *order.Service
	pdfService   *pdf.Service
	config       *config.Config
}

// NewInvoiceHandler creates a new invoice handler
func NewInvoiceHandler(orderService *order.Service, cfg *config.Config) *InvoiceHandler {
	return &InvoiceHandler{
		orderService: orderService,
		pdfService:   pdf.NewService(cfg),
		config:       cfg,
	}
}

// GenerateInvoice handles GET /orders/:oid/invoice. Buyers can only pull
// invoices for their own orders; admins can pull any.
func (h *InvoiceHandler) GenerateInvoice(c *gin.Context) {
	ord, err := h.orderService.GetByOID(c.Param("oid"))
	if err != nil {
		respondOrderError(c, err)
		return
	}

	userID, _ := middleware.GetUserIDFromContext(c)
	if !middleware.IsAdminFromContext(c) {
		if ord.BuyerID == nil || *ord.BuyerID != userID {
			c.JSON(http.StatusForbidden, gin.H{
				"error": "You do not have access to this invoice",
			})
			return
		}
	}

	buf, err := h.pdfService.GenerateInvoice(ord)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to generate invoice",
		})
		return
	}

	filename := fmt.Sprintf("invoice-%s.pdf", ord.OID)
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, "application/pdf", buf.Bytes())
}
