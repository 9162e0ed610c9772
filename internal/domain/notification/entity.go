// internal/domain/notification/entity.go
package notification

import (
	"time"
)

// Notification is an in-app notice for a buyer or a vendor.
// Plain foreign keys keep this package free of domain imports.
type Notification struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	UserID      *uint     `gorm:"index" json:"user_id"`
	VendorID    *uint     `gorm:"index" json:"vendor_id"`
	OrderID     *uint     `gorm:"index" json:"order_id"`
	OrderItemID *uint     `gorm:"index" json:"order_item_id"`
	Seen        bool      `gorm:"default:false" json:"seen"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// TableName overrides the table name for Notification
func (Notification) TableName() string {
	return "notifications"
}
