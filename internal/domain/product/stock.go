// internal/domain/product/stock.go
package product

import (
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Sentinel variant names for products sold without color or size options.
// They are stored on cart and order lines so every line carries a value.
const (
	NoColor = "No Color"
	NoSize  = "No Size"
)

// Availability is the outcome of a stock check. Available carries the
// narrowed quantity so callers can tell "out of stock" apart from
// "only N left".
type Availability struct {
	OK        bool
	Reason    string
	Available int
}

// NormalizeColor maps empty and placeholder selections to the NoColor
// sentinel. Browser clients send the literal "undefined" for an untouched
// selector.
func NormalizeColor(name string) string {
	name = strings.TrimSpace(name)
	if name == "" || strings.EqualFold(name, "undefined") {
		return NoColor
	}
	return name
}

// NormalizeSize maps empty and placeholder selections to the NoSize sentinel
func NormalizeSize(name string) string {
	name = strings.TrimSpace(name)
	if name == "" || strings.EqualFold(name, "undefined") {
		return NoSize
	}
	return name
}

// FindColor matches a color variant by name, case-insensitively.
// Returns nil for the NoColor sentinel.
func (p *Product) FindColor(name string) *Color {
	if strings.EqualFold(name, NoColor) {
		return nil
	}
	for i := range p.Colors {
		if strings.EqualFold(p.Colors[i].Name, name) {
			return &p.Colors[i]
		}
	}
	return nil
}

// FindSize matches a size variant by name, case-insensitively.
// Returns nil for the NoSize sentinel.
func (p *Product) FindSize(name string) *Size {
	if strings.EqualFold(name, NoSize) {
		return nil
	}
	for i := range p.Sizes {
		if strings.EqualFold(p.Sizes[i].Name, name) {
			return &p.Sizes[i]
		}
	}
	return nil
}

// CheckAvailability decides whether qty units of the product, narrowed to
// the selected variants, can be sold. Variants must be preloaded on p.
// colorName and sizeName are expected to be normalized.
func CheckAvailability(p *Product, qty int, colorName, sizeName string) Availability {
	if !p.IsPublished() {
		return Availability{Reason: "this product is not available"}
	}
	if p.StockQty <= 0 {
		return Availability{Reason: "this product is out of stock"}
	}

	available := p.StockQty

	// A product without variants ignores whatever selector the client sent
	if len(p.Colors) == 0 {
		colorName = NoColor
	}
	if len(p.Sizes) == 0 {
		sizeName = NoSize
	}

	// Names the scarcest variant when one narrows the quantity
	limiter := ""

	if len(p.Colors) > 0 && strings.EqualFold(colorName, NoColor) {
		return Availability{Reason: fmt.Sprintf("please select a color for %q", p.Title), Available: available}
	}
	if !strings.EqualFold(colorName, NoColor) {
		color := p.FindColor(colorName)
		if color == nil {
			return Availability{Reason: fmt.Sprintf("color %q is not available for %q", colorName, p.Title)}
		}
		if color.StockQty <= 0 {
			return Availability{Reason: fmt.Sprintf("color %q of %q is out of stock", color.Name, p.Title)}
		}
		if color.StockQty < available {
			available = color.StockQty
			limiter = fmt.Sprintf("color %q", color.Name)
		}
	}

	if len(p.Sizes) > 0 && strings.EqualFold(sizeName, NoSize) {
		return Availability{Reason: fmt.Sprintf("please select a size for %q", p.Title), Available: available}
	}
	if !strings.EqualFold(sizeName, NoSize) {
		size := p.FindSize(sizeName)
		if size == nil {
			return Availability{Reason: fmt.Sprintf("size %q is not available for %q", sizeName, p.Title)}
		}
		if size.StockQty <= 0 {
			return Availability{Reason: fmt.Sprintf("size %q of %q is out of stock", size.Name, p.Title)}
		}
		if size.StockQty < available {
			available = size.StockQty
			limiter = fmt.Sprintf("size %q", size.Name)
		}
	}

	if qty > available {
		reason := fmt.Sprintf("only %d available in stock for %q", available, p.Title)
		if limiter != "" {
			reason = fmt.Sprintf("only %d available in stock for %s of %q", available, limiter, p.Title)
		}
		return Availability{
			Reason:    reason,
			Available: available,
		}
	}

	if p.MaxCartLimit > 0 && qty > p.MaxCartLimit {
		return Availability{
			Reason:    fmt.Sprintf("you cannot order more than %d of this product", p.MaxCartLimit),
			Available: available,
		}
	}

	return Availability{OK: true, Available: available}
}

// ForUpdate adds a row lock to the query on databases that support it.
// SQLite (used in tests) serializes writes on its own.
func ForUpdate(tx *gorm.DB) *gorm.DB {
	if tx.Dialector.Name() == "postgres" {
		return tx.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	return tx
}

// DecrementStock subtracts qty from the product counter and mirrors the
// decrement on the variants matching the given names. The caller owns the
// transaction and any row locks. Variant names that no longer match a row
// are returned in missing rather than treated as an error.
func DecrementStock(tx *gorm.DB, p *Product, qty int, colorName, sizeName string) (missing []string, err error) {
	newQty := p.StockQty - qty
	err = tx.Model(&Product{}).Where("id = ?", p.ID).Updates(map[string]interface{}{
		"stock_qty": newQty,
		"in_stock":  newQty > 0,
	}).Error
	if err != nil {
		return nil, fmt.Errorf("failed to update product stock: %w", err)
	}
	p.StockQty = newQty
	p.InStock = newQty > 0

	if !strings.EqualFold(colorName, NoColor) {
		if err := decrementColor(tx, p.ID, colorName, qty); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				missing = append(missing, colorName)
			} else {
				return missing, err
			}
		}
	}
	if !strings.EqualFold(sizeName, NoSize) {
		if err := decrementSize(tx, p.ID, sizeName, qty); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				missing = append(missing, sizeName)
			} else {
				return missing, err
			}
		}
	}

	return missing, nil
}

func decrementColor(tx *gorm.DB, productID uint, name string, qty int) error {
	var color Color
	err := ForUpdate(tx).
		Where("product_id = ? AND LOWER(name) = LOWER(?)", productID, name).
		First(&color).Error
	if err != nil {
		return err
	}

	newQty := color.StockQty - qty
	return tx.Model(&Color{}).Where("id = ?", color.ID).Updates(map[string]interface{}{
		"stock_qty": newQty,
		"in_stock":  newQty > 0,
	}).Error
}

func decrementSize(tx *gorm.DB, productID uint, name string, qty int) error {
	var size Size
	err := ForUpdate(tx).
		Where("product_id = ? AND LOWER(name) = LOWER(?)", productID, name).
		First(&size).Error
	if err != nil {
		return err
	}

	newQty := size.StockQty - qty
	return tx.Model(&Size{}).Where("id = ?", size.ID).Updates(map[string]interface{}{
		"stock_qty": newQty,
		"in_stock":  newQty > 0,
	}).Error
}
