// internal/domain/cart/service.go
package cart

import (
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/your-org/marketplace-backend/internal/domain/product"
	"github.com/your-org/marketplace-backend/internal/domain/tax"
	"gorm.io/gorm"
)

// ValidationError is a rejected cart mutation. It is a user problem, not a
// system failure; handlers map it to a 400 and services never log it as an
// error. Available carries how many units could still be added.
type ValidationError struct {
	Message   string
	Available int
}

func (e *ValidationError) Error() string {
	return e.Message
}

// Service handles cart business logic
type Service struct {
	db     *gorm.DB
	taxes  *tax.Service
	logger *logrus.Logger
}

// NewService creates a new cart service
func NewService(db *gorm.DB, taxes *tax.Service, logger *logrus.Logger) *Service {
	return &Service{
		db:     db,
		taxes:  taxes,
		logger: logger,
	}
}

// AddToCartRequest represents add to cart data
type AddToCartRequest struct {
	ProductPID string `json:"product_pid" binding:"required"`
	Qty        int    `json:"qty" binding:"required,min=1"`
	Color      string `json:"color"`
	Size       string `json:"size"`
	Country    string `json:"country"`
}

// UpdateCartRequest carries an absolute replacement quantity
type UpdateCartRequest struct {
	Qty int `json:"qty" binding:"required,min=1"`
}

// AddToCart adds a product to the cart, accumulating quantity when the same
// product and variant combination is already present. The combined quantity
// is re-validated against current stock before anything is written.
func (s *Service) AddToCart(cartID string, userID *uint, req *AddToCartRequest) (*CartItem, error) {
	p, err := s.loadProduct(req.ProductPID)
	if err != nil {
		return nil, err
	}

	colorName := product.NormalizeColor(req.Color)
	sizeName := product.NormalizeSize(req.Size)

	// A product without variants stores the sentinel no matter what the
	// client selected
	if len(p.Colors) == 0 {
		colorName = product.NoColor
	}
	if len(p.Sizes) == 0 {
		sizeName = product.NoSize
	}

	// Resolve canonical variant rows up front so names are stored in their
	// canonical casing.
	color := p.FindColor(colorName)
	if color != nil {
		colorName = color.Name
	}
	size := p.FindSize(sizeName)
	if size != nil {
		sizeName = size.Name
	}

	var existing CartItem
	err = s.db.Where(
		"cart_id = ? AND product_id = ? AND LOWER(color_name) = LOWER(?) AND LOWER(size_name) = LOWER(?)",
		cartID, p.ID, colorName, sizeName,
	).First(&existing).Error
	hasExisting := err == nil
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("failed to load cart item: %w", err)
	}

	requested := req.Qty
	if hasExisting {
		requested = existing.Qty + req.Qty
	}

	avail := product.CheckAvailability(p, requested, colorName, sizeName)
	if !avail.OK {
		if hasExisting && avail.Available > 0 {
			// The line already holds part of the stock; report how much
			// more can still be added.
			more := avail.Available - existing.Qty
			if more < 0 {
				more = 0
			}
			return nil, &ValidationError{
				Message:   fmt.Sprintf("only %d more items can be added", more),
				Available: more,
			}
		}
		return nil, &ValidationError{Message: avail.Reason, Available: avail.Available}
	}

	taxRate, err := s.taxes.RateForCountry(req.Country)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve tax rate: %w", err)
	}

	unitPrice := p.EffectivePrice(color, size)
	breakdown := ComputeBreakdown(unitPrice, p.ShippingAmount, requested, taxRate)

	if hasExisting {
		existing.Qty = requested
		existing.UnitPrice = unitPrice
		existing.ShippingUnit = p.ShippingAmount
		existing.Country = req.Country
		existing.Apply(breakdown)
		if err := s.db.Save(&existing).Error; err != nil {
			return nil, fmt.Errorf("failed to update cart item: %w", err)
		}
		existing.Product = *p
		return &existing, nil
	}

	item := CartItem{
		CartID:       cartID,
		UserID:       userID,
		ProductID:    p.ID,
		ColorName:    colorName,
		SizeName:     sizeName,
		Qty:          requested,
		UnitPrice:    unitPrice,
		ShippingUnit: p.ShippingAmount,
		Country:      req.Country,
	}
	if color != nil {
		item.ColorID = &color.ID
	}
	if size != nil {
		item.SizeID = &size.ID
	}
	item.Apply(breakdown)

	if err := s.db.Create(&item).Error; err != nil {
		return nil, fmt.Errorf("failed to create cart item: %w", err)
	}
	item.Product = *p
	return &item, nil
}

// UpdateQuantity replaces a line's quantity and recomputes its totals with
// the same formula used at add time.
func (s *Service) UpdateQuantity(cartID string, itemID uint, req *UpdateCartRequest) (*CartItem, error) {
	var item CartItem
	err := s.db.Preload("Product.Colors").Preload("Product.Sizes").
		Where("id = ? AND cart_id = ?", itemID, cartID).
		First(&item).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &ValidationError{Message: "cart item not found"}
		}
		return nil, fmt.Errorf("failed to load cart item: %w", err)
	}

	avail := product.CheckAvailability(&item.Product, req.Qty, item.ColorName, item.SizeName)
	if !avail.OK {
		return nil, &ValidationError{Message: avail.Reason, Available: avail.Available}
	}

	taxRate, err := s.taxes.RateForCountry(item.Country)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve tax rate: %w", err)
	}

	item.Qty = req.Qty
	item.Apply(ComputeBreakdown(item.UnitPrice, item.ShippingUnit, req.Qty, taxRate))

	if err := s.db.Save(&item).Error; err != nil {
		return nil, fmt.Errorf("failed to update cart item: %w", err)
	}
	return &item, nil
}

// RemoveItem deletes a cart line. Stock is restored only for lines whose
// stock was actually decremented by an order transaction.
func (s *Service) RemoveItem(cartID string, itemID uint) error {
	var item CartItem
	err := s.db.Where("id = ? AND cart_id = ?", itemID, cartID).First(&item).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return &ValidationError{Message: "cart item not found"}
		}
		return fmt.Errorf("failed to load cart item: %w", err)
	}

	return s.db.Transaction(func(tx *gorm.DB) error {
		if item.StockCommitted {
			if err := s.restoreStock(tx, &item); err != nil {
				return err
			}
		}
		return tx.Delete(&CartItem{}, item.ID).Error
	})
}

// GetCart returns all lines of a cart with their aggregate totals. Lines
// whose product has gone away or out of stock are dropped, and quantities
// above the current stock are clamped and persisted, so the summary always
// reflects what could actually be ordered.
func (s *Service) GetCart(cartID string) (*CartSummary, error) {
	var items []CartItem
	err := s.db.Preload("Product.Colors").Preload("Product.Sizes").Preload("Product.Vendor").
		Where("cart_id = ?", cartID).
		Order("created_at ASC").
		Find(&items).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load cart: %w", err)
	}

	summary := &CartSummary{Items: make([]CartItem, 0, len(items))}
	for i := range items {
		item := &items[i]

		keep, err := s.reconcileLine(item)
		if err != nil {
			return nil, err
		}
		if !keep {
			continue
		}

		summary.Items = append(summary.Items, *item)
		summary.ItemCount++
		summary.TotalQty += item.Qty
		summary.SubTotal += item.SubTotal
		summary.ShippingTotal += item.ShippingTotal
		summary.TaxFee += item.TaxFee
		summary.ServiceFee += item.ServiceFee
		summary.Total += item.Total
	}

	return summary, nil
}

// ClearCart removes every line of a cart
func (s *Service) ClearCart(cartID string) error {
	return s.db.Where("cart_id = ?", cartID).Delete(&CartItem{}).Error
}

// Count returns the number of lines in a cart
func (s *Service) Count(cartID string) (int64, error) {
	var count int64
	err := s.db.Model(&CartItem{}).Where("cart_id = ?", cartID).Count(&count).Error
	return count, err
}

// reconcileLine brings one line back in sync with current stock. Returns
// false when the line was deleted.
func (s *Service) reconcileLine(item *CartItem) (bool, error) {
	p := &item.Product
	if p.ID == 0 || !p.IsPublished() || p.StockQty <= 0 {
		s.logger.WithFields(logrus.Fields{
			"cart_id":    item.CartID,
			"product_id": item.ProductID,
		}).Info("dropping unavailable cart line")
		if err := s.db.Delete(&CartItem{}, item.ID).Error; err != nil {
			return false, fmt.Errorf("failed to drop cart line: %w", err)
		}
		return false, nil
	}

	avail := product.CheckAvailability(p, item.Qty, item.ColorName, item.SizeName)
	if avail.OK {
		return true, nil
	}

	if avail.Available <= 0 {
		if err := s.db.Delete(&CartItem{}, item.ID).Error; err != nil {
			return false, fmt.Errorf("failed to drop cart line: %w", err)
		}
		return false, nil
	}

	// Clamp to what is left and persist the corrected totals
	taxRate, err := s.taxes.RateForCountry(item.Country)
	if err != nil {
		return false, fmt.Errorf("failed to resolve tax rate: %w", err)
	}
	item.Qty = avail.Available
	item.Apply(ComputeBreakdown(item.UnitPrice, item.ShippingUnit, item.Qty, taxRate))
	if err := s.db.Save(item).Error; err != nil {
		return false, fmt.Errorf("failed to clamp cart line: %w", err)
	}
	s.logger.WithFields(logrus.Fields{
		"cart_id":    item.CartID,
		"product_id": item.ProductID,
		"qty":        item.Qty,
	}).Info("clamped cart line to available stock")

	return true, nil
}

func (s *Service) restoreStock(tx *gorm.DB, item *CartItem) error {
	var p product.Product
	err := product.ForUpdate(tx).Where("id = ?", item.ProductID).First(&p).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		return fmt.Errorf("failed to lock product: %w", err)
	}

	missing, err := product.DecrementStock(tx, &p, -item.Qty, item.ColorName, item.SizeName)
	if err != nil {
		return fmt.Errorf("failed to restore stock: %w", err)
	}
	for _, name := range missing {
		s.logger.WithFields(logrus.Fields{
			"product_id": item.ProductID,
			"variant":    name,
		}).Warn("variant missing during stock restore")
	}
	return nil
}

func (s *Service) loadProduct(pid string) (*product.Product, error) {
	var p product.Product
	err := s.db.Preload("Colors").Preload("Sizes").Preload("Vendor").
		Where("pid = ?", pid).
		First(&p).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &ValidationError{Message: "product not found"}
		}
		return nil, fmt.Errorf("failed to load product: %w", err)
	}
	return &p, nil
}
