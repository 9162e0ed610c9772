// internal/domain/order/service.go
package order

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/your-org/marketplace-backend/internal/domain/cart"
	"github.com/your-org/marketplace-backend/internal/domain/coupon"
	"github.com/your-org/marketplace-backend/internal/domain/notification"
	"github.com/your-org/marketplace-backend/internal/domain/product"
	"github.com/your-org/marketplace-backend/internal/domain/tax"
	"github.com/your-org/marketplace-backend/internal/domain/vendor"
	"gorm.io/gorm"
)

// EventPublisher pushes order lifecycle events to the message broker.
// Implementations must be safe to skip; a nil publisher disables eventing.
type EventPublisher interface {
	PublishOrderCreated(o *Order) error
	PublishOrderPaid(o *Order) error
}

// Mailer sends the customer-facing emails triggered by payment events
type Mailer interface {
	SendOrderConfirmation(o *Order) error
	SendVendorSaleAlert(o *Order, item *OrderItem, vendorEmail string) error
}

// Service handles order business logic
type Service struct {
	db        *gorm.DB
	taxes     *tax.Service
	logger    *logrus.Logger
	publisher EventPublisher
	mailer    Mailer
}

// NewService creates a new order service. publisher and mailer may be nil.
func NewService(db *gorm.DB, taxes *tax.Service, logger *logrus.Logger, publisher EventPublisher, mailer Mailer) *Service {
	return &Service{
		db:        db,
		taxes:     taxes,
		logger:    logger,
		publisher: publisher,
		mailer:    mailer,
	}
}

// CreateOrderRequest represents checkout contact and payment data
type CreateOrderRequest struct {
	FullName      string `json:"full_name" binding:"required"`
	Email         string `json:"email" binding:"required,email"`
	Mobile        string `json:"mobile" binding:"required"`
	Address       string `json:"address"`
	City          string `json:"city"`
	State         string `json:"state"`
	Country       string `json:"country"`
	PaymentMethod string `json:"payment_method" binding:"required"`
}

// CreateOrder turns a cart into an order inside a single transaction.
// Every line is re-validated against locked product rows; stock for
// immediate payment methods is decremented here, deferred methods leave
// stock untouched until Settle runs. Any failure rolls everything back.
func (s *Service) CreateOrder(cartID string, buyerID *uint, req *CreateOrderRequest) (*Order, error) {
	if strings.TrimSpace(req.FullName) == "" ||
		strings.TrimSpace(req.Email) == "" ||
		strings.TrimSpace(req.Mobile) == "" {
		return nil, ErrMissingContact
	}

	class, ok := MethodClass(req.PaymentMethod)
	if !ok {
		return nil, ErrInvalidPaymentMethod
	}

	taxRate, err := s.taxes.RateForCountry(req.Country)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve tax rate: %w", err)
	}

	tx := s.db.Begin()
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
			panic(r)
		}
	}()

	var cartItems []cart.CartItem
	if err := tx.Where("cart_id = ?", cartID).Order("id ASC").Find(&cartItems).Error; err != nil {
		tx.Rollback()
		return nil, fmt.Errorf("failed to load cart: %w", err)
	}
	if len(cartItems) == 0 {
		tx.Rollback()
		return nil, ErrEmptyCart
	}

	ord := Order{
		BuyerID:       buyerID,
		FullName:      req.FullName,
		Email:         strings.ToLower(req.Email),
		Mobile:        req.Mobile,
		Address:       req.Address,
		City:          req.City,
		State:         req.State,
		Country:       req.Country,
		PaymentMethod: req.PaymentMethod,
		PaymentStatus: PaymentStatusPending,
		OrderStatus:   OrderStatusPending,
	}
	if err := tx.Create(&ord).Error; err != nil {
		tx.Rollback()
		return nil, fmt.Errorf("failed to create order: %w", err)
	}

	vendorIDs := make(map[uint]struct{})

	for i := range cartItems {
		line := &cartItems[i]

		// Lock the product row for the rest of the transaction, then
		// re-run the same validation the cart ran earlier.
		var p product.Product
		err := product.ForUpdate(tx).
			Preload("Colors").
			Preload("Sizes").
			Where("id = ?", line.ProductID).
			First(&p).Error
		if err != nil {
			tx.Rollback()
			if errors.Is(err, gorm.ErrRecordNotFound) {
				stockConflictsTotal.Inc()
				return nil, &StockError{ProductID: line.ProductID, Message: "this product is no longer available"}
			}
			return nil, fmt.Errorf("failed to lock product %d: %w", line.ProductID, err)
		}

		avail := product.CheckAvailability(&p, line.Qty, line.ColorName, line.SizeName)
		if !avail.OK {
			tx.Rollback()
			stockConflictsTotal.Inc()
			s.logger.WithFields(logrus.Fields{
				"cart_id":    cartID,
				"product_id": p.ID,
				"qty":        line.Qty,
				"available":  avail.Available,
			}).Info("checkout lost the race for stock")
			return nil, &StockError{ProductID: p.ID, Message: avail.Reason, Available: avail.Available}
		}

		breakdown := cart.ComputeBreakdown(line.UnitPrice, line.ShippingUnit, line.Qty, taxRate)
		item := OrderItem{
			OrderID:       ord.ID,
			ProductID:     p.ID,
			ProductTitle:  p.Title,
			VendorID:      p.VendorID,
			ColorID:       line.ColorID,
			ColorName:     line.ColorName,
			SizeID:        line.SizeID,
			SizeName:      line.SizeName,
			Qty:           line.Qty,
			UnitPrice:     line.UnitPrice,
			SubTotal:      breakdown.SubTotal,
			ShippingTotal: breakdown.ShippingTotal,
			TaxFee:        breakdown.TaxFee,
			ServiceFee:    breakdown.ServiceFee,
			Total:         breakdown.Total,
		}
		if err := tx.Create(&item).Error; err != nil {
			tx.Rollback()
			return nil, fmt.Errorf("failed to create order item: %w", err)
		}
		ord.Items = append(ord.Items, item)

		if class == SettleImmediate {
			missing, err := product.DecrementStock(tx, &p, line.Qty, line.ColorName, line.SizeName)
			if err != nil {
				tx.Rollback()
				return nil, fmt.Errorf("failed to commit stock for product %d: %w", p.ID, err)
			}
			for _, name := range missing {
				s.logger.WithFields(logrus.Fields{
					"order_id":   ord.ID,
					"product_id": p.ID,
					"variant":    name,
				}).Warn("variant missing during stock commit")
			}
			if err := tx.Model(&cart.CartItem{}).Where("id = ?", line.ID).
				Update("stock_committed", true).Error; err != nil {
				tx.Rollback()
				return nil, fmt.Errorf("failed to flag cart line: %w", err)
			}
		}

		ord.SubTotal += breakdown.SubTotal
		ord.ShippingTotal += breakdown.ShippingTotal
		ord.TaxFee += breakdown.TaxFee
		ord.ServiceFee += breakdown.ServiceFee
		ord.Total += breakdown.Total

		vendorIDs[p.VendorID] = struct{}{}
	}

	updates := map[string]interface{}{
		"sub_total":      ord.SubTotal,
		"shipping_total": ord.ShippingTotal,
		"tax_fee":        ord.TaxFee,
		"service_fee":    ord.ServiceFee,
		"total":          ord.Total,
	}
	if class == SettleImmediate {
		now := time.Now().UTC()
		ord.StockCommittedAt = &now
		updates["stock_committed_at"] = now
	}
	if err := tx.Model(&Order{}).Where("id = ?", ord.ID).Updates(updates).Error; err != nil {
		tx.Rollback()
		return nil, fmt.Errorf("failed to update order totals: %w", err)
	}

	ids := make([]uint, 0, len(vendorIDs))
	for id := range vendorIDs {
		ids = append(ids, id)
	}
	var vendors []vendor.Vendor
	if err := tx.Where("id IN ?", ids).Find(&vendors).Error; err != nil {
		tx.Rollback()
		return nil, fmt.Errorf("failed to load vendors: %w", err)
	}
	if err := tx.Model(&ord).Association("Vendors").Append(&vendors); err != nil {
		tx.Rollback()
		return nil, fmt.Errorf("failed to link vendors: %w", err)
	}

	if err := tx.Where("cart_id = ?", cartID).Delete(&cart.CartItem{}).Error; err != nil {
		tx.Rollback()
		return nil, fmt.Errorf("failed to clear cart: %w", err)
	}

	if err := tx.Commit().Error; err != nil {
		return nil, fmt.Errorf("failed to commit order: %w", err)
	}

	ordersCreatedTotal.WithLabelValues(ord.PaymentMethod).Inc()
	s.logger.WithFields(logrus.Fields{
		"oid":            ord.OID,
		"payment_method": ord.PaymentMethod,
		"total":          ord.Total,
		"items":          len(ord.Items),
	}).Info("order created")

	if s.publisher != nil {
		if err := s.publisher.PublishOrderCreated(&ord); err != nil {
			s.logger.WithError(err).WithField("oid", ord.OID).Warn("failed to publish order.created")
		}
	}

	return &ord, nil
}

// GetByOID loads an order with its items and vendors
func (s *Service) GetByOID(oid string) (*Order, error) {
	var ord Order
	err := s.db.Preload("Items").Preload("Items.Coupons").Preload("Vendors").
		Where("oid = ?", oid).
		First(&ord).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("failed to load order: %w", err)
	}
	return &ord, nil
}

// ListForBuyer returns a buyer's orders, newest first
func (s *Service) ListForBuyer(buyerID uint) ([]Order, error) {
	var orders []Order
	err := s.db.Preload("Items").
		Where("buyer_id = ?", buyerID).
		Order("created_at DESC").
		Find(&orders).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}
	return orders, nil
}

// SetPaymentMethod patches the payment method of a pending order. Switching
// to an immediate-class method commits the order's stock in the same
// transaction, after a locked re-validation, so the order can never reach
// "paid" with its inventory still on the shelf.
func (s *Service) SetPaymentMethod(oid, method string) (*Order, error) {
	class, ok := MethodClass(method)
	if !ok {
		return nil, ErrInvalidPaymentMethod
	}

	var ord Order
	err := s.db.Transaction(func(tx *gorm.DB) error {
		err := product.ForUpdate(tx).Where("oid = ?", oid).First(&ord).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrOrderNotFound
			}
			return fmt.Errorf("failed to lock order: %w", err)
		}
		if ord.PaymentStatus == PaymentStatusPaid {
			return ErrAlreadyPaid
		}
		if ord.StockCommitted() {
			// Stock already left the shelf under the old method's rules;
			// switching settlement class now would corrupt the ledger.
			return ErrAlreadySettled
		}

		if class == SettleImmediate {
			if err := s.commitStock(tx, &ord, true); err != nil {
				return err
			}
		}

		if err := tx.Model(&Order{}).Where("id = ?", ord.ID).
			Update("payment_method", method).Error; err != nil {
			return fmt.Errorf("failed to update payment method: %w", err)
		}
		ord.PaymentMethod = method
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &ord, nil
}

// SetStripeSession records the checkout session created for an order
func (s *Service) SetStripeSession(oid, sessionID string) (*Order, error) {
	ord, err := s.GetByOID(oid)
	if err != nil {
		return nil, err
	}
	if err := s.db.Model(&Order{}).Where("id = ?", ord.ID).
		Update("stripe_session_id", sessionID).Error; err != nil {
		return nil, fmt.Errorf("failed to record stripe session: %w", err)
	}
	ord.StripeSessionID = sessionID
	return ord, nil
}

// MarkPaid flips the payment status to paid exactly once and dispatches
// buyer and vendor notifications. Calling it on an already-paid order is a
// no-op returning the order unchanged.
func (s *Service) MarkPaid(oid string) (*Order, bool, error) {
	var ord *Order
	flipped := false

	err := s.db.Transaction(func(tx *gorm.DB) error {
		var o Order
		err := product.ForUpdate(tx).Where("oid = ?", oid).First(&o).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrOrderNotFound
			}
			return fmt.Errorf("failed to lock order: %w", err)
		}

		if o.PaymentStatus == PaymentStatusPaid {
			ord = &o
			return nil
		}

		if err := tx.Model(&Order{}).Where("id = ?", o.ID).
			Update("payment_status", PaymentStatusPaid).Error; err != nil {
			return fmt.Errorf("failed to update payment status: %w", err)
		}
		o.PaymentStatus = PaymentStatusPaid
		ord = &o
		flipped = true
		return nil
	})
	if err != nil {
		return nil, false, err
	}

	if flipped {
		ordersPaidTotal.WithLabelValues(ord.PaymentMethod).Inc()
		s.logger.WithField("oid", ord.OID).Info("order marked paid")
		s.dispatchPaidNotifications(ord)
		if s.publisher != nil {
			if err := s.publisher.PublishOrderPaid(ord); err != nil {
				s.logger.WithError(err).WithField("oid", ord.OID).Warn("failed to publish order.paid")
			}
		}
	}

	return ord, flipped, nil
}

// MarkDeferredPaid records an out-of-band payment for a deferred order and
// settles its stock. The payment flip survives even if settlement fails;
// inventory problems never un-pay an order.
func (s *Service) MarkDeferredPaid(oid string) (*Order, error) {
	ord, err := s.GetByOID(oid)
	if err != nil {
		return nil, err
	}
	if !ord.IsDeferred() {
		return nil, ErrNotDeferred
	}

	ord, _, err = s.MarkPaid(oid)
	if err != nil {
		return nil, err
	}

	if err := s.Settle(oid); err != nil {
		return nil, err
	}

	return s.GetByOID(oid)
}

// ApplyCoupon applies a vendor-scoped percentage coupon to every matching
// item of an order, once per coupon per item.
func (s *Service) ApplyCoupon(oid, code string) (*Order, error) {
	ord, err := s.GetByOID(oid)
	if err != nil {
		return nil, err
	}

	var c coupon.Coupon
	err = s.db.Where("LOWER(code) = LOWER(?) AND active = ?", strings.TrimSpace(code), true).First(&c).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCouponNotFound
		}
		return nil, fmt.Errorf("failed to load coupon: %w", err)
	}

	applied := 0
	err = s.db.Transaction(func(tx *gorm.DB) error {
		for i := range ord.Items {
			item := &ord.Items[i]
			if item.VendorID != c.VendorID {
				continue
			}

			var count int64
			err := tx.Table("order_item_coupons").
				Where("order_item_id = ? AND coupon_id = ?", item.ID, c.ID).
				Count(&count).Error
			if err != nil {
				return fmt.Errorf("failed to check coupon usage: %w", err)
			}
			if count > 0 {
				continue
			}

			discount := item.Total * c.Discount / 100
			itemUpdates := map[string]interface{}{
				"total":     item.Total - discount,
				"sub_total": item.SubTotal - discount,
				"saved":     item.Saved + discount,
			}
			if err := tx.Model(&OrderItem{}).Where("id = ?", item.ID).Updates(itemUpdates).Error; err != nil {
				return fmt.Errorf("failed to discount order item: %w", err)
			}
			if err := tx.Model(item).Association("Coupons").Append(&c); err != nil {
				return fmt.Errorf("failed to link coupon: %w", err)
			}

			orderUpdates := map[string]interface{}{
				"total":     gorm.Expr("total - ?", discount),
				"sub_total": gorm.Expr("sub_total - ?", discount),
				"saved":     gorm.Expr("saved + ?", discount),
			}
			if err := tx.Model(&Order{}).Where("id = ?", ord.ID).Updates(orderUpdates).Error; err != nil {
				return fmt.Errorf("failed to discount order: %w", err)
			}

			applied++
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if applied == 0 {
		return nil, ErrCouponNotApplicable
	}

	couponsAppliedTotal.Inc()
	s.logger.WithFields(logrus.Fields{
		"oid":    ord.OID,
		"coupon": c.Code,
		"items":  applied,
	}).Info("coupon applied")

	return s.GetByOID(oid)
}

// dispatchPaidNotifications persists in-app notices and sends the buyer and
// vendor emails. Failures are logged and swallowed; the payment record is
// already committed and must not be disturbed.
func (s *Service) dispatchPaidNotifications(ord *Order) {
	full, err := s.GetByOID(ord.OID)
	if err != nil {
		s.logger.WithError(err).WithField("oid", ord.OID).Error("failed to reload order for notifications")
		return
	}

	buyerNote := notification.Notification{
		UserID:  full.BuyerID,
		OrderID: &full.ID,
	}
	if err := s.db.Create(&buyerNote).Error; err != nil {
		s.logger.WithError(err).WithField("oid", full.OID).Error("failed to create buyer notification")
	}

	if s.mailer != nil {
		if err := s.mailer.SendOrderConfirmation(full); err != nil {
			s.logger.WithError(err).WithField("oid", full.OID).Error("failed to send order confirmation email")
		}
	}

	for i := range full.Items {
		item := &full.Items[i]

		vendorNote := notification.Notification{
			VendorID:    &item.VendorID,
			OrderID:     &full.ID,
			OrderItemID: &item.ID,
		}
		if err := s.db.Create(&vendorNote).Error; err != nil {
			s.logger.WithError(err).WithField("oid", full.OID).Error("failed to create vendor notification")
			continue
		}

		if s.mailer != nil {
			var v vendor.Vendor
			if err := s.db.Where("id = ?", item.VendorID).First(&v).Error; err != nil {
				s.logger.WithError(err).WithField("vendor_id", item.VendorID).Warn("vendor missing for sale alert")
				continue
			}
			if v.Email == "" {
				continue
			}
			if err := s.mailer.SendVendorSaleAlert(full, item, v.Email); err != nil {
				s.logger.WithError(err).WithField("oid", full.OID).Error("failed to send vendor sale alert")
			}
		}
	}
}
