// internal/domain/coupon/entity.go
package coupon

import (
	"time"

	"gorm.io/gorm"
)

// Coupon is a vendor-scoped percentage discount code.
// Discount is a whole percentage, e.g. 10 means 10% off.
type Coupon struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	VendorID  uint           `gorm:"not null;index" json:"vendor_id"`
	Code      string         `gorm:"not null;size:50;index" json:"code"`
	Discount  int64          `gorm:"not null;default:1" json:"discount"`
	Active    bool           `gorm:"not null" json:"active"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// TableName overrides the table name for Coupon
func (Coupon) TableName() string {
	return "coupons"
}
