// internal/domain/order/entity.go
package order

import (
	"time"

	"github.com/google/uuid"
	"github.com/your-org/marketplace-backend/internal/domain/coupon"
	"github.com/your-org/marketplace-backend/internal/domain/vendor"
	"gorm.io/gorm"
)

// OrderStatus represents the order fulfilment status
type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusFulfilled OrderStatus = "fulfilled"
	OrderStatusCancelled OrderStatus = "cancelled"
)

// PaymentStatus represents payment status
type PaymentStatus string

const (
	PaymentStatusPending    PaymentStatus = "pending"
	PaymentStatusProcessing PaymentStatus = "processing"
	PaymentStatusPaid       PaymentStatus = "paid"
	PaymentStatusFailed     PaymentStatus = "failed"
	PaymentStatusCancelled  PaymentStatus = "cancelled"
)

// Payment methods accepted at checkout
const (
	PaymentMethodStripe   = "stripe"
	PaymentMethodWhatsapp = "whatsapp"
)

// SettlementClass decides when an order's stock leaves the shelf
type SettlementClass int

const (
	// SettleImmediate commits stock inside the order creation transaction
	SettleImmediate SettlementClass = iota
	// SettleDeferred commits stock later, once payment is confirmed
	SettleDeferred
)

// MethodClass is the single registry mapping payment methods to their
// settlement behaviour. New payment methods must be added here.
func MethodClass(method string) (SettlementClass, bool) {
	switch method {
	case PaymentMethodStripe:
		return SettleImmediate, true
	case PaymentMethodWhatsapp:
		return SettleDeferred, true
	default:
		return 0, false
	}
}

// Order represents a checkout across one or more vendors. Contact fields
// are snapshots taken at checkout time. StockCommittedAt is the settlement
// marker: nil until stock has been decremented for this order.
type Order struct {
	ID      uint   `gorm:"primaryKey" json:"id"`
	OID     string `gorm:"column:oid;uniqueIndex;not null;size:36" json:"oid"`
	BuyerID *uint  `gorm:"index" json:"buyer_id"` // Nullable for guest orders

	// Contact snapshot
	FullName string `gorm:"not null;size:255" json:"full_name"`
	Email    string `gorm:"not null;size:255" json:"email"`
	Mobile   string `gorm:"not null;size:20" json:"mobile"`
	Address  string `gorm:"size:500" json:"address"`
	City     string `gorm:"size:100" json:"city"`
	State    string `gorm:"size:100" json:"state"`
	Country  string `gorm:"size:100" json:"country"`

	PaymentMethod string        `gorm:"not null;size:50;index" json:"payment_method"`
	PaymentStatus PaymentStatus `gorm:"not null;default:'pending';index" json:"payment_status"`
	OrderStatus   OrderStatus   `gorm:"not null;default:'pending';index" json:"order_status"`

	// Financial information, in cents
	SubTotal      int64 `gorm:"not null;default:0" json:"sub_total"`
	ShippingTotal int64 `gorm:"not null;default:0" json:"shipping_total"`
	TaxFee        int64 `gorm:"not null;default:0" json:"tax_fee"`
	ServiceFee    int64 `gorm:"not null;default:0" json:"service_fee"`
	Total         int64 `gorm:"not null;default:0" json:"total"`
	Saved         int64 `gorm:"not null;default:0" json:"saved"`

	StripeSessionID  string     `gorm:"size:255" json:"stripe_session_id"`
	StockCommittedAt *time.Time `json:"stock_committed_at"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	// Relationships
	Items   []OrderItem     `gorm:"foreignKey:OrderID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"items"`
	Vendors []vendor.Vendor `gorm:"many2many:order_vendors;" json:"vendors,omitempty"`
}

// OrderItem is one product line of an order. Variant names are denormalized
// snapshots so the line survives variant deletion; the foreign keys are kept
// for as long as the variants exist.
type OrderItem struct {
	ID      uint   `gorm:"primaryKey" json:"id"`
	OrderID uint   `gorm:"not null;index" json:"order_id"`
	OID     string `gorm:"column:oid;uniqueIndex;not null;size:36" json:"oid"`

	ProductID    uint   `gorm:"not null;index" json:"product_id"`
	ProductTitle string `gorm:"not null;size:255" json:"product_title"`
	VendorID     uint   `gorm:"not null;index" json:"vendor_id"`

	ColorID   *uint  `json:"color_id"`
	ColorName string `gorm:"size:100;default:'No Color'" json:"color_name"`
	SizeID    *uint  `json:"size_id"`
	SizeName  string `gorm:"size:100;default:'No Size'" json:"size_name"`

	Qty       int   `gorm:"not null" json:"qty"`
	UnitPrice int64 `gorm:"not null" json:"unit_price"` // Price per unit in cents

	SubTotal      int64 `gorm:"not null;default:0" json:"sub_total"`
	ShippingTotal int64 `gorm:"not null;default:0" json:"shipping_total"`
	TaxFee        int64 `gorm:"not null;default:0" json:"tax_fee"`
	ServiceFee    int64 `gorm:"not null;default:0" json:"service_fee"`
	Total         int64 `gorm:"not null;default:0" json:"total"`
	Saved         int64 `gorm:"not null;default:0" json:"saved"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Relationships
	Coupons []coupon.Coupon `gorm:"many2many:order_item_coupons;" json:"coupons,omitempty"`
}

// TableName overrides
func (Order) TableName() string     { return "orders" }
func (OrderItem) TableName() string { return "order_items" }

// BeforeCreate assigns the public order id
func (o *Order) BeforeCreate(tx *gorm.DB) error {
	if o.OID == "" {
		o.OID = uuid.New().String()
	}
	return nil
}

// BeforeCreate assigns the public order item id
func (i *OrderItem) BeforeCreate(tx *gorm.DB) error {
	if i.OID == "" {
		i.OID = uuid.New().String()
	}
	return nil
}

// IsDeferred reports whether the order's payment method defers stock commit
func (o *Order) IsDeferred() bool {
	class, ok := MethodClass(o.PaymentMethod)
	return ok && class == SettleDeferred
}

// StockCommitted reports whether inventory has been decremented for this order
func (o *Order) StockCommitted() bool {
	return o.StockCommittedAt != nil
}
