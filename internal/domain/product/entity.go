// internal/domain/product/entity.go
package product

import (
	"time"

	"github.com/google/uuid"
	"github.com/your-org/marketplace-backend/internal/domain/vendor"
	"gorm.io/gorm"
)

// Product status values
const (
	StatusDraft     = "draft"
	StatusDisabled  = "disabled"
	StatusInReview  = "in_review"
	StatusPublished = "published"
)

// Product represents the product entity. StockQty is the source of truth
// for availability; InStock is derived from it on every save.
type Product struct {
	ID             uint           `gorm:"primaryKey" json:"id"`
	PID            string         `gorm:"column:pid;uniqueIndex;not null;size:36" json:"pid"`
	SKU            string         `gorm:"size:100;index" json:"sku"`
	Title          string         `gorm:"not null;size:255" json:"title"`
	Slug           string         `gorm:"uniqueIndex;not null;size:255" json:"slug"`
	Description    string         `gorm:"type:text" json:"description"`
	VendorID       uint           `gorm:"not null;index" json:"vendor_id"`
	CategoryID     *uint          `gorm:"index" json:"category_id"`
	Price          int64          `gorm:"not null" json:"price"` // Price in cents
	OldPrice       int64          `json:"old_price"`
	ShippingAmount int64          `json:"shipping_amount"` // Per-unit shipping in cents
	StockQty       int            `gorm:"default:0" json:"stock_qty"`
	InStock        bool           `gorm:"default:false" json:"in_stock"`
	Status         string         `gorm:"size:20;default:'draft';index" json:"status"`
	Featured       bool           `gorm:"default:false" json:"featured"`
	MaxCartLimit   int            `gorm:"default:10" json:"max_cart_limit"`
	Views          int64          `gorm:"default:0" json:"views"`
	Rating         float64        `gorm:"default:0" json:"rating"`
	Image          string         `gorm:"size:500" json:"image"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
	DeletedAt      gorm.DeletedAt `gorm:"index" json:"-"`

	// Relationships
	Vendor   vendor.Vendor `gorm:"foreignKey:VendorID;constraint:OnUpdate:CASCADE,OnDelete:RESTRICT;" json:"vendor"`
	Category *Category     `gorm:"foreignKey:CategoryID;constraint:OnUpdate:CASCADE,OnDelete:SET NULL;" json:"category,omitempty"`
	Colors   []Color       `gorm:"foreignKey:ProductID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"colors,omitempty"`
	Sizes    []Size        `gorm:"foreignKey:ProductID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"sizes,omitempty"`
	Reviews  []Review      `gorm:"foreignKey:ProductID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"reviews,omitempty"`
}

// Category represents product categories
type Category struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	Title     string         `gorm:"not null;size:255" json:"title"`
	Slug      string         `gorm:"uniqueIndex;not null;size:255" json:"slug"`
	Image     string         `gorm:"size:500" json:"image"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// Color is a product color variant with its own stock counter.
// Variant stock moves in lockstep with the parent product's stock.
type Color struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	ProductID uint      `gorm:"not null;index" json:"product_id"`
	Name      string    `gorm:"not null;size:100" json:"name"`
	ColorCode string    `gorm:"size:20" json:"color_code"`
	Price     int64     `json:"price"` // Override product price if set
	StockQty  int       `gorm:"default:0" json:"stock_qty"`
	InStock   bool      `gorm:"default:false" json:"in_stock"`
	Image     string    `gorm:"size:500" json:"image"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Size is a product size variant with its own stock counter
type Size struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	ProductID uint      `gorm:"not null;index" json:"product_id"`
	Name      string    `gorm:"not null;size:100" json:"name"`
	Price     int64     `json:"price"` // Override product price if set
	StockQty  int       `gorm:"default:0" json:"stock_qty"`
	InStock   bool      `gorm:"default:false" json:"in_stock"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Review represents a customer review; the product rating is recomputed
// from approved reviews after every save.
type Review struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	ProductID uint           `gorm:"not null;index" json:"product_id"`
	UserID    uint           `gorm:"not null;index" json:"user_id"`
	Rating    int            `gorm:"not null;check:rating >= 1 AND rating <= 5" json:"rating"`
	Comment   string         `gorm:"type:text" json:"comment"`
	Active    bool           `gorm:"not null" json:"active"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// TableName overrides
func (Product) TableName() string  { return "products" }
func (Category) TableName() string { return "categories" }
func (Color) TableName() string    { return "colors" }
func (Size) TableName() string     { return "sizes" }
func (Review) TableName() string   { return "reviews" }

// BeforeCreate assigns a public product id
func (p *Product) BeforeCreate(tx *gorm.DB) error {
	if p.PID == "" {
		p.PID = uuid.New().String()
	}
	return nil
}

// BeforeSave keeps the derived availability flag consistent with the counter
func (p *Product) BeforeSave(tx *gorm.DB) error {
	p.InStock = p.StockQty > 0
	return nil
}

// BeforeSave keeps the derived availability flag consistent with the counter
func (c *Color) BeforeSave(tx *gorm.DB) error {
	c.InStock = c.StockQty > 0
	return nil
}

// BeforeSave keeps the derived availability flag consistent with the counter
func (s *Size) BeforeSave(tx *gorm.DB) error {
	s.InStock = s.StockQty > 0
	return nil
}

// AfterSave recomputes the parent product's average rating
func (r *Review) AfterSave(tx *gorm.DB) error {
	return recomputeRating(tx, r.ProductID)
}

// AfterDelete recomputes the parent product's average rating
func (r *Review) AfterDelete(tx *gorm.DB) error {
	return recomputeRating(tx, r.ProductID)
}

func recomputeRating(tx *gorm.DB, productID uint) error {
	var avg float64
	err := tx.Model(&Review{}).
		Where("product_id = ? AND active = ?", productID, true).
		Select("COALESCE(AVG(rating), 0)").
		Scan(&avg).Error
	if err != nil {
		return err
	}
	return tx.Model(&Product{}).Where("id = ?", productID).Update("rating", avg).Error
}

// IsPublished reports whether the product can be sold
func (p *Product) IsPublished() bool {
	return p.Status == StatusPublished
}

// EffectivePrice returns the variant price when a variant overrides it
func (p *Product) EffectivePrice(color *Color, size *Size) int64 {
	if color != nil && color.Price > 0 {
		return color.Price
	}
	if size != nil && size.Price > 0 {
		return size.Price
	}
	return p.Price
}

// GetDiscountPercentage returns the discount against the old price
func (p *Product) GetDiscountPercentage() int {
	if p.OldPrice > 0 && p.Price < p.OldPrice {
		return int(((p.OldPrice - p.Price) * 100) / p.OldPrice)
	}
	return 0
}
