// internal/domain/cart/entity.go
package cart

import (
	"time"

	"github.com/your-org/marketplace-backend/internal/domain/product"
)

// CartItem is one cart line, keyed by (cart_id, product, color, size).
// Variant references keep both the foreign key and a name snapshot so a
// deleted variant cannot orphan the line. ShippingUnit is per unit; line
// totals are recomputed from the unit values on every quantity change.
type CartItem struct {
	ID        uint   `gorm:"primaryKey" json:"id"`
	CartID    string `gorm:"not null;size:36;index:idx_cart_line,unique" json:"cart_id"`
	UserID    *uint  `gorm:"index" json:"user_id"`
	ProductID uint   `gorm:"not null;index:idx_cart_line,unique" json:"product_id"`

	ColorID   *uint  `json:"color_id"`
	ColorName string `gorm:"size:100;default:'No Color';index:idx_cart_line,unique" json:"color_name"`
	SizeID    *uint  `json:"size_id"`
	SizeName  string `gorm:"size:100;default:'No Size';index:idx_cart_line,unique" json:"size_name"`

	Qty          int    `gorm:"not null;default:1" json:"qty"`
	UnitPrice    int64  `gorm:"not null" json:"unit_price"` // Price in cents at time of adding
	ShippingUnit int64  `json:"shipping_unit"`              // Per-unit shipping in cents
	Country      string `gorm:"size:100" json:"country"`    // Destination used for the tax rate

	SubTotal      int64 `json:"sub_total"`
	ShippingTotal int64 `json:"shipping_total"`
	TaxFee        int64 `json:"tax_fee"`
	ServiceFee    int64 `json:"service_fee"`
	Total         int64 `json:"total"`

	// Set only when an order transaction has decremented stock for this
	// line; removal restores stock if and only if this is true.
	StockCommitted bool `gorm:"default:false" json:"stock_committed"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Relationships
	Product product.Product `gorm:"foreignKey:ProductID" json:"product"`
}

// TableName overrides the table name
func (CartItem) TableName() string {
	return "cart_items"
}

// CartSummary aggregates the fee components across all lines of a cart
type CartSummary struct {
	Items         []CartItem `json:"items"`
	ItemCount     int        `json:"item_count"`
	TotalQty      int        `json:"total_qty"`
	SubTotal      int64      `json:"sub_total"`
	ShippingTotal int64      `json:"shipping_total"`
	TaxFee        int64      `json:"tax_fee"`
	ServiceFee    int64      `json:"service_fee"`
	Total         int64      `json:"total"`
}
