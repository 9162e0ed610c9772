package order

import (
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/your-org/marketplace-backend/internal/domain/cart"
	"github.com/your-org/marketplace-backend/internal/domain/coupon"
	"github.com/your-org/marketplace-backend/internal/domain/notification"
	"github.com/your-org/marketplace-backend/internal/domain/product"
	"github.com/your-org/marketplace-backend/internal/domain/tax"
	"github.com/your-org/marketplace-backend/internal/domain/vendor"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type testEnv struct {
	svc    *Service
	db     *gorm.DB
	vendor *vendor.Vendor
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&vendor.Vendor{},
		&product.Category{}, &product.Product{}, &product.Color{}, &product.Size{}, &product.Review{},
		&tax.Tax{},
		&cart.CartItem{},
		&coupon.Coupon{},
		&notification.Notification{},
		&Order{}, &OrderItem{},
	))

	v := vendor.Vendor{Title: "Acme Supplies", Slug: "acme-supplies", Email: "sales@acme.test", IsActive: true}
	require.NoError(t, db.Create(&v).Error)

	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)

	return &testEnv{
		svc:    NewService(db, tax.NewService(db), log, nil, nil),
		db:     db,
		vendor: &v,
	}
}

func (e *testEnv) seedProduct(t *testing.T, title string, price int64, stock int) *product.Product {
	t.Helper()
	p := product.Product{
		Title:        title,
		Slug:         title,
		VendorID:     e.vendor.ID,
		Price:        price,
		StockQty:     stock,
		Status:       product.StatusPublished,
		MaxCartLimit: 10,
	}
	require.NoError(t, e.db.Create(&p).Error)
	return &p
}

func (e *testEnv) seedCartLine(t *testing.T, cartID string, p *product.Product, qty int) *cart.CartItem {
	t.Helper()
	item := cart.CartItem{
		CartID:    cartID,
		ProductID: p.ID,
		ColorName: product.NoColor,
		SizeName:  product.NoSize,
		Qty:       qty,
		UnitPrice: p.Price,
	}
	require.NoError(t, e.db.Create(&item).Error)
	return &item
}

func checkoutRequest(method string) *CreateOrderRequest {
	return &CreateOrderRequest{
		FullName:      "Jordan Smith",
		Email:         "Jordan@Example.com",
		Mobile:        "+15550001",
		Address:       "1 Main St",
		City:          "Springfield",
		Country:       "US",
		PaymentMethod: method,
	}
}

func TestMethodClass(t *testing.T) {
	class, ok := MethodClass(PaymentMethodStripe)
	require.True(t, ok)
	assert.Equal(t, SettleImmediate, class)

	class, ok = MethodClass(PaymentMethodWhatsapp)
	require.True(t, ok)
	assert.Equal(t, SettleDeferred, class)

	_, ok = MethodClass("cheque")
	assert.False(t, ok)
}

func TestCreateOrderImmediateCommitsStock(t *testing.T) {
	env := newTestEnv(t)
	p := env.seedProduct(t, "jacket", 1000, 10)
	env.seedCartLine(t, "cart-1", p, 4)

	ord, err := env.svc.CreateOrder("cart-1", nil, checkoutRequest(PaymentMethodStripe))
	require.NoError(t, err)

	assert.NotEmpty(t, ord.OID)
	assert.Equal(t, "jordan@example.com", ord.Email)
	assert.Equal(t, PaymentStatusPending, ord.PaymentStatus)
	assert.True(t, ord.StockCommitted(), "immediate class commits stock at checkout")
	assert.Equal(t, int64(4000), ord.SubTotal)
	assert.Equal(t, int64(40), ord.ServiceFee)
	assert.Equal(t, int64(4040), ord.Total)

	var stored product.Product
	require.NoError(t, env.db.First(&stored, p.ID).Error)
	assert.Equal(t, 6, stored.StockQty)

	// The cart is consumed in the same transaction
	var cartCount int64
	require.NoError(t, env.db.Model(&cart.CartItem{}).Where("cart_id = ?", "cart-1").Count(&cartCount).Error)
	assert.Zero(t, cartCount)

	// The vendor is linked for the multi-vendor views
	full, err := env.svc.GetByOID(ord.OID)
	require.NoError(t, err)
	require.Len(t, full.Vendors, 1)
	assert.Equal(t, env.vendor.ID, full.Vendors[0].ID)
	require.Len(t, full.Items, 1)
	assert.Equal(t, "jacket", full.Items[0].ProductTitle)
}

func TestCreateOrderDeferredLeavesStock(t *testing.T) {
	env := newTestEnv(t)
	p := env.seedProduct(t, "jacket", 1000, 10)
	env.seedCartLine(t, "cart-1", p, 4)

	ord, err := env.svc.CreateOrder("cart-1", nil, checkoutRequest(PaymentMethodWhatsapp))
	require.NoError(t, err)

	assert.False(t, ord.StockCommitted(), "deferred class leaves stock until settlement")

	var stored product.Product
	require.NoError(t, env.db.First(&stored, p.ID).Error)
	assert.Equal(t, 10, stored.StockQty)
}

func TestCreateOrderTaxedCountry(t *testing.T) {
	env := newTestEnv(t)
	require.NoError(t, env.db.Create(&tax.Tax{Country: "UK", Rate: 20, Active: true}).Error)
	p := env.seedProduct(t, "jacket", 1000, 10)
	env.seedCartLine(t, "cart-1", p, 2)

	req := checkoutRequest(PaymentMethodStripe)
	req.Country = "UK"

	ord, err := env.svc.CreateOrder("cart-1", nil, req)
	require.NoError(t, err)
	assert.Equal(t, int64(2000), ord.SubTotal)
	assert.Equal(t, int64(400), ord.TaxFee)
	assert.Equal(t, int64(20), ord.ServiceFee)
	assert.Equal(t, int64(2420), ord.Total)
}

func TestCreateOrderValidation(t *testing.T) {
	env := newTestEnv(t)
	p := env.seedProduct(t, "jacket", 1000, 10)

	_, err := env.svc.CreateOrder("empty-cart", nil, checkoutRequest(PaymentMethodStripe))
	assert.ErrorIs(t, err, ErrEmptyCart)

	env.seedCartLine(t, "cart-1", p, 1)

	req := checkoutRequest(PaymentMethodStripe)
	req.Mobile = "  "
	_, err = env.svc.CreateOrder("cart-1", nil, req)
	assert.ErrorIs(t, err, ErrMissingContact)

	_, err = env.svc.CreateOrder("cart-1", nil, checkoutRequest("cheque"))
	assert.ErrorIs(t, err, ErrInvalidPaymentMethod)
}

func TestCreateOrderStockConflictRollsBack(t *testing.T) {
	env := newTestEnv(t)
	p := env.seedProduct(t, "jacket", 1000, 10)
	env.seedCartLine(t, "cart-1", p, 5)

	// Stock shrank between cart time and checkout
	require.NoError(t, env.db.Model(&product.Product{}).Where("id = ?", p.ID).
		Update("stock_qty", 2).Error)

	_, err := env.svc.CreateOrder("cart-1", nil, checkoutRequest(PaymentMethodStripe))
	require.Error(t, err)

	var stockErr *StockError
	require.ErrorAs(t, err, &stockErr)
	assert.Equal(t, p.ID, stockErr.ProductID)
	assert.Equal(t, `only 2 available in stock for "jacket"`, stockErr.Message)
	assert.Equal(t, 2, stockErr.Available)

	// Nothing survives the rollback
	var orderCount, itemCount, cartCount int64
	require.NoError(t, env.db.Model(&Order{}).Count(&orderCount).Error)
	require.NoError(t, env.db.Model(&OrderItem{}).Count(&itemCount).Error)
	require.NoError(t, env.db.Model(&cart.CartItem{}).Count(&cartCount).Error)
	assert.Zero(t, orderCount)
	assert.Zero(t, itemCount)
	assert.Equal(t, int64(1), cartCount, "cart must survive a failed checkout")

	var stored product.Product
	require.NoError(t, env.db.First(&stored, p.ID).Error)
	assert.Equal(t, 2, stored.StockQty)
}

func TestCreateOrderMultiVendor(t *testing.T) {
	env := newTestEnv(t)
	v2 := vendor.Vendor{Title: "Globex", Slug: "globex", Email: "sales@globex.test", IsActive: true}
	require.NoError(t, env.db.Create(&v2).Error)

	p1 := env.seedProduct(t, "jacket", 1000, 10)
	p2 := product.Product{
		Title: "boots", Slug: "boots", VendorID: v2.ID,
		Price: 3000, StockQty: 5, Status: product.StatusPublished, MaxCartLimit: 10,
	}
	require.NoError(t, env.db.Create(&p2).Error)

	env.seedCartLine(t, "cart-1", p1, 1)
	env.seedCartLine(t, "cart-1", &p2, 2)

	ord, err := env.svc.CreateOrder("cart-1", nil, checkoutRequest(PaymentMethodStripe))
	require.NoError(t, err)

	full, err := env.svc.GetByOID(ord.OID)
	require.NoError(t, err)
	assert.Len(t, full.Items, 2)
	assert.Len(t, full.Vendors, 2)
	assert.Equal(t, int64(7000), full.SubTotal)
}

func TestMarkPaidIsIdempotent(t *testing.T) {
	env := newTestEnv(t)
	p := env.seedProduct(t, "jacket", 1000, 10)
	env.seedCartLine(t, "cart-1", p, 1)

	ord, err := env.svc.CreateOrder("cart-1", nil, checkoutRequest(PaymentMethodStripe))
	require.NoError(t, err)

	paid, flipped, err := env.svc.MarkPaid(ord.OID)
	require.NoError(t, err)
	assert.True(t, flipped)
	assert.Equal(t, PaymentStatusPaid, paid.PaymentStatus)

	// A replay must not dispatch anything again
	paid, flipped, err = env.svc.MarkPaid(ord.OID)
	require.NoError(t, err)
	assert.False(t, flipped)
	assert.Equal(t, PaymentStatusPaid, paid.PaymentStatus)

	var noteCount int64
	require.NoError(t, env.db.Model(&notification.Notification{}).Count(&noteCount).Error)
	assert.Equal(t, int64(2), noteCount, "one buyer note and one vendor note, dispatched once")

	_, _, err = env.svc.MarkPaid("no-such-order")
	assert.ErrorIs(t, err, ErrOrderNotFound)
}

func TestSetPaymentMethodGuards(t *testing.T) {
	env := newTestEnv(t)
	p := env.seedProduct(t, "jacket", 1000, 10)
	env.seedCartLine(t, "cart-1", p, 1)
	env.seedCartLine(t, "cart-2", p, 1)

	deferred, err := env.svc.CreateOrder("cart-1", nil, checkoutRequest(PaymentMethodWhatsapp))
	require.NoError(t, err)

	_, err = env.svc.SetPaymentMethod(deferred.OID, "cheque")
	assert.ErrorIs(t, err, ErrInvalidPaymentMethod)

	_, err = env.svc.SetPaymentMethod("no-such-order", PaymentMethodStripe)
	assert.ErrorIs(t, err, ErrOrderNotFound)

	// An immediate order has already committed stock; its class is fixed
	immediate, err := env.svc.CreateOrder("cart-2", nil, checkoutRequest(PaymentMethodStripe))
	require.NoError(t, err)
	_, err = env.svc.SetPaymentMethod(immediate.OID, PaymentMethodWhatsapp)
	assert.ErrorIs(t, err, ErrAlreadySettled)

	// A paid order is immutable
	_, _, err = env.svc.MarkPaid(deferred.OID)
	require.NoError(t, err)
	_, err = env.svc.SetPaymentMethod(deferred.OID, PaymentMethodStripe)
	assert.ErrorIs(t, err, ErrAlreadyPaid)
}

func TestSetPaymentMethodSwitchToImmediateCommitsStock(t *testing.T) {
	env := newTestEnv(t)
	p := env.seedProduct(t, "jacket", 1000, 10)
	env.seedCartLine(t, "cart-1", p, 4)

	ord, err := env.svc.CreateOrder("cart-1", nil, checkoutRequest(PaymentMethodWhatsapp))
	require.NoError(t, err)

	switched, err := env.svc.SetPaymentMethod(ord.OID, PaymentMethodStripe)
	require.NoError(t, err)
	assert.Equal(t, PaymentMethodStripe, switched.PaymentMethod)
	assert.True(t, switched.StockCommitted(), "an immediate method must never reach paid with stock on the shelf")

	var stored product.Product
	require.NoError(t, env.db.First(&stored, p.ID).Error)
	assert.Equal(t, 6, stored.StockQty)

	// The paid path needs no settlement and must not decrement again
	_, _, err = env.svc.MarkPaid(ord.OID)
	require.NoError(t, err)
	err = env.svc.Settle(ord.OID)
	assert.ErrorIs(t, err, ErrNotDeferred)

	require.NoError(t, env.db.First(&stored, p.ID).Error)
	assert.Equal(t, 6, stored.StockQty)
}

func TestSetPaymentMethodSwitchLosesStockRace(t *testing.T) {
	env := newTestEnv(t)
	p := env.seedProduct(t, "jacket", 1000, 10)
	env.seedCartLine(t, "cart-1", p, 5)

	ord, err := env.svc.CreateOrder("cart-1", nil, checkoutRequest(PaymentMethodWhatsapp))
	require.NoError(t, err)

	// The deferred order held no stock; someone else bought most of it
	require.NoError(t, env.db.Model(&product.Product{}).Where("id = ?", p.ID).
		Update("stock_qty", 2).Error)

	_, err = env.svc.SetPaymentMethod(ord.OID, PaymentMethodStripe)
	var stockErr *StockError
	require.ErrorAs(t, err, &stockErr)
	assert.Equal(t, 2, stockErr.Available)

	// The switch rolled back whole
	again, err := env.svc.GetByOID(ord.OID)
	require.NoError(t, err)
	assert.Equal(t, PaymentMethodWhatsapp, again.PaymentMethod)
	assert.False(t, again.StockCommitted())

	var stored product.Product
	require.NoError(t, env.db.First(&stored, p.ID).Error)
	assert.Equal(t, 2, stored.StockQty)
}

func TestApplyCoupon(t *testing.T) {
	env := newTestEnv(t)
	p := env.seedProduct(t, "jacket", 1000, 10)
	env.seedCartLine(t, "cart-1", p, 2)

	ord, err := env.svc.CreateOrder("cart-1", nil, checkoutRequest(PaymentMethodStripe))
	require.NoError(t, err)
	require.Equal(t, int64(2020), ord.Total)

	c := coupon.Coupon{VendorID: env.vendor.ID, Code: "SAVE10", Discount: 10, Active: true}
	require.NoError(t, env.db.Create(&c).Error)

	discounted, err := env.svc.ApplyCoupon(ord.OID, "save10")
	require.NoError(t, err)
	// 10% of the item total (2020) comes off
	assert.Equal(t, int64(1818), discounted.Total)
	assert.Equal(t, int64(202), discounted.Saved)
	require.Len(t, discounted.Items, 1)
	assert.Equal(t, int64(202), discounted.Items[0].Saved)
	require.Len(t, discounted.Items[0].Coupons, 1)

	// Applying the same coupon twice changes nothing
	_, err = env.svc.ApplyCoupon(ord.OID, "SAVE10")
	assert.ErrorIs(t, err, ErrCouponNotApplicable)

	again, err := env.svc.GetByOID(ord.OID)
	require.NoError(t, err)
	assert.Equal(t, int64(1818), again.Total)

	_, err = env.svc.ApplyCoupon(ord.OID, "NOPE")
	assert.ErrorIs(t, err, ErrCouponNotFound)

	// A disabled coupon must stay disabled after the round trip through
	// the database and read as nonexistent
	disabled := coupon.Coupon{VendorID: env.vendor.ID, Code: "EXPIRED", Discount: 10, Active: false}
	require.NoError(t, env.db.Create(&disabled).Error)

	var stored coupon.Coupon
	require.NoError(t, env.db.First(&stored, disabled.ID).Error)
	assert.False(t, stored.Active)

	_, err = env.svc.ApplyCoupon(ord.OID, "EXPIRED")
	assert.ErrorIs(t, err, ErrCouponNotFound)
}

func TestApplyCouponWrongVendor(t *testing.T) {
	env := newTestEnv(t)
	p := env.seedProduct(t, "jacket", 1000, 10)
	env.seedCartLine(t, "cart-1", p, 1)

	ord, err := env.svc.CreateOrder("cart-1", nil, checkoutRequest(PaymentMethodStripe))
	require.NoError(t, err)

	other := vendor.Vendor{Title: "Globex", Slug: "globex", IsActive: true}
	require.NoError(t, env.db.Create(&other).Error)
	c := coupon.Coupon{VendorID: other.ID, Code: "OTHER", Discount: 50, Active: true}
	require.NoError(t, env.db.Create(&c).Error)

	_, err = env.svc.ApplyCoupon(ord.OID, "OTHER")
	assert.ErrorIs(t, err, ErrCouponNotApplicable)
}

func TestListForBuyer(t *testing.T) {
	env := newTestEnv(t)
	p := env.seedProduct(t, "jacket", 1000, 10)
	buyerID := uint(7)

	env.seedCartLine(t, "cart-1", p, 1)
	_, err := env.svc.CreateOrder("cart-1", &buyerID, checkoutRequest(PaymentMethodStripe))
	require.NoError(t, err)

	env.seedCartLine(t, "cart-2", p, 1)
	_, err = env.svc.CreateOrder("cart-2", nil, checkoutRequest(PaymentMethodStripe))
	require.NoError(t, err)

	orders, err := env.svc.ListForBuyer(buyerID)
	require.NoError(t, err)
	assert.Len(t, orders, 1)
}
