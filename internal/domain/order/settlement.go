// internal/domain/order/settlement.go
package order

import (
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/your-org/marketplace-backend/internal/domain/product"
	"gorm.io/gorm"
)

// Settle commits inventory for a deferred-payment order. It runs in its own
// transaction: the order row is locked, the guards are re-checked under the
// lock, and every item's stock is decremented with product rows locked. The
// StockCommittedAt marker makes the operation idempotent; a second call
// fails with ErrAlreadySettled instead of double-decrementing.
//
// Variants that have been deleted since checkout are logged and skipped;
// the product counter is the source of truth. A missing product row aborts
// the settlement.
func (s *Service) Settle(oid string) error {
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var ord Order
		err := product.ForUpdate(tx).Where("oid = ?", oid).First(&ord).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrOrderNotFound
			}
			return fmt.Errorf("failed to lock order: %w", err)
		}

		if !ord.IsDeferred() {
			return ErrNotDeferred
		}
		if ord.PaymentStatus != PaymentStatusPaid {
			return ErrNotPaid
		}
		if ord.StockCommitted() {
			return ErrAlreadySettled
		}

		return s.commitStock(tx, &ord, false)
	})

	if err != nil {
		switch {
		case errors.Is(err, ErrNotDeferred), errors.Is(err, ErrNotPaid), errors.Is(err, ErrAlreadySettled):
			settlementsTotal.WithLabelValues("rejected").Inc()
			s.logger.WithError(err).WithField("oid", oid).Error("settlement rejected")
		case errors.Is(err, ErrOrderNotFound):
			settlementsTotal.WithLabelValues("rejected").Inc()
		default:
			settlementsTotal.WithLabelValues("failed").Inc()
			s.logger.WithError(err).WithField("oid", oid).Error("settlement failed")
		}
		return err
	}

	settlementsTotal.WithLabelValues("committed").Inc()
	s.logger.WithField("oid", oid).Info("deferred order stock settled")
	return nil
}

// commitStock decrements inventory for every item of the order, with product
// rows locked, and stamps the settlement marker. When revalidate is set each
// item is re-checked against current stock first and a conflict aborts with a
// StockError. The caller owns the transaction and the order row lock.
func (s *Service) commitStock(tx *gorm.DB, ord *Order, revalidate bool) error {
	var items []OrderItem
	if err := tx.Where("order_id = ?", ord.ID).Order("id ASC").Find(&items).Error; err != nil {
		return fmt.Errorf("failed to load order items: %w", err)
	}

	for i := range items {
		item := &items[i]

		query := product.ForUpdate(tx)
		if revalidate {
			query = query.Preload("Colors").Preload("Sizes")
		}
		var p product.Product
		err := query.Where("id = ?", item.ProductID).First(&p).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("product %d missing during stock commit for order %s", item.ProductID, ord.OID)
			}
			return fmt.Errorf("failed to lock product %d: %w", item.ProductID, err)
		}

		if revalidate {
			avail := product.CheckAvailability(&p, item.Qty, item.ColorName, item.SizeName)
			if !avail.OK {
				stockConflictsTotal.Inc()
				return &StockError{ProductID: p.ID, Message: avail.Reason, Available: avail.Available}
			}
		}

		missing, err := product.DecrementStock(tx, &p, item.Qty, item.ColorName, item.SizeName)
		if err != nil {
			return fmt.Errorf("failed to decrement stock for product %d: %w", item.ProductID, err)
		}
		for _, name := range missing {
			s.logger.WithFields(logrus.Fields{
				"oid":        ord.OID,
				"product_id": item.ProductID,
				"variant":    name,
			}).Warn("variant missing during stock commit")
		}
	}

	now := time.Now().UTC()
	if err := tx.Model(&Order{}).Where("id = ?", ord.ID).
		Update("stock_committed_at", now).Error; err != nil {
		return fmt.Errorf("failed to mark stock committed: %w", err)
	}
	ord.StockCommittedAt = &now
	return nil
}
