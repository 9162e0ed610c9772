package cart

import (
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/your-org/marketplace-backend/internal/domain/product"
	"github.com/your-org/marketplace-backend/internal/domain/tax"
	"github.com/your-org/marketplace-backend/internal/domain/vendor"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestService(t *testing.T) (*Service, *gorm.DB) {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&vendor.Vendor{},
		&product.Category{}, &product.Product{}, &product.Color{}, &product.Size{}, &product.Review{},
		&tax.Tax{},
		&CartItem{},
	))
	require.NoError(t, db.Create(&tax.Tax{Country: "US", Rate: 5, Active: true}).Error)

	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)

	return NewService(db, tax.NewService(db), log), db
}

func seedProduct(t *testing.T, db *gorm.DB, p *product.Product) *product.Product {
	t.Helper()
	if p.Status == "" {
		p.Status = product.StatusPublished
	}
	if p.MaxCartLimit == 0 {
		p.MaxCartLimit = 10
	}
	if p.VendorID == 0 {
		p.VendorID = 1
	}
	require.NoError(t, db.Create(p).Error)
	return p
}

func TestAddToCartComputesTotals(t *testing.T) {
	svc, db := newTestService(t)
	p := seedProduct(t, db, &product.Product{
		Title: "Jacket", Slug: "jacket", Price: 1000, ShippingAmount: 100, StockQty: 10,
	})

	item, err := svc.AddToCart("cart-1", nil, &AddToCartRequest{
		ProductPID: p.PID, Qty: 2, Country: "US",
	})
	require.NoError(t, err)

	assert.Equal(t, 2, item.Qty)
	assert.Equal(t, int64(2000), item.SubTotal)
	assert.Equal(t, int64(200), item.ShippingTotal)
	assert.Equal(t, int64(100), item.TaxFee)
	assert.Equal(t, int64(20), item.ServiceFee)
	assert.Equal(t, int64(2320), item.Total)
	assert.Equal(t, product.NoColor, item.ColorName)
	assert.Equal(t, product.NoSize, item.SizeName)
}

func TestAddToCartAccumulatesSameLine(t *testing.T) {
	svc, db := newTestService(t)
	p := seedProduct(t, db, &product.Product{
		Title: "Jacket", Slug: "jacket", Price: 1000, StockQty: 5,
	})

	_, err := svc.AddToCart("cart-1", nil, &AddToCartRequest{ProductPID: p.PID, Qty: 3})
	require.NoError(t, err)

	item, err := svc.AddToCart("cart-1", nil, &AddToCartRequest{ProductPID: p.PID, Qty: 2})
	require.NoError(t, err)
	assert.Equal(t, 5, item.Qty)
	assert.Equal(t, int64(5000), item.SubTotal)

	var count int64
	require.NoError(t, db.Model(&CartItem{}).Where("cart_id = ?", "cart-1").Count(&count).Error)
	assert.Equal(t, int64(1), count, "accumulation must not create a second line")
}

func TestAddToCartReportsRemainingCapacity(t *testing.T) {
	svc, db := newTestService(t)
	p := seedProduct(t, db, &product.Product{
		Title: "Jacket", Slug: "jacket", Price: 1000, StockQty: 5,
	})

	_, err := svc.AddToCart("cart-1", nil, &AddToCartRequest{ProductPID: p.PID, Qty: 3})
	require.NoError(t, err)

	_, err = svc.AddToCart("cart-1", nil, &AddToCartRequest{ProductPID: p.PID, Qty: 3})
	require.Error(t, err)

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "only 2 more items can be added", verr.Message)
	assert.Equal(t, 2, verr.Available)
}

func TestAddToCartVariantSelection(t *testing.T) {
	svc, db := newTestService(t)
	p := seedProduct(t, db, &product.Product{
		Title: "Shirt", Slug: "shirt", Price: 2000, StockQty: 10,
		Colors: []product.Color{{Name: "Red", StockQty: 4}},
		Sizes:  []product.Size{{Name: "XL", StockQty: 6}},
	})

	// Variant products cannot be added without a selection
	_, err := svc.AddToCart("cart-1", nil, &AddToCartRequest{ProductPID: p.PID, Qty: 1})
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, `please select a color for "Shirt"`, verr.Message)

	// Names are stored in canonical casing; availability narrows to the
	// scarcest selected variant.
	item, err := svc.AddToCart("cart-1", nil, &AddToCartRequest{
		ProductPID: p.PID, Qty: 4, Color: "rEd", Size: "xl",
	})
	require.NoError(t, err)
	assert.Equal(t, "Red", item.ColorName)
	assert.Equal(t, "XL", item.SizeName)
	require.NotNil(t, item.ColorID)
	require.NotNil(t, item.SizeID)

	_, err = svc.AddToCart("cart-1", nil, &AddToCartRequest{
		ProductPID: p.PID, Qty: 1, Color: "Red", Size: "XL",
	})
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "only 0 more items can be added", verr.Message)
}

func TestAddToCartIgnoresSelectorOnSimpleProduct(t *testing.T) {
	svc, db := newTestService(t)
	p := seedProduct(t, db, &product.Product{
		Title: "Mug", Slug: "mug", Price: 900, StockQty: 5,
	})

	// Clients send "undefined" or stale selectors; a product without
	// variants stores the sentinels regardless.
	item, err := svc.AddToCart("cart-1", nil, &AddToCartRequest{
		ProductPID: p.PID, Qty: 1, Color: "undefined", Size: "Large",
	})
	require.NoError(t, err)
	assert.Equal(t, product.NoColor, item.ColorName)
	assert.Equal(t, product.NoSize, item.SizeName)

	// A different junk selector still lands on the same line
	item, err = svc.AddToCart("cart-1", nil, &AddToCartRequest{
		ProductPID: p.PID, Qty: 1, Color: "Blue",
	})
	require.NoError(t, err)
	assert.Equal(t, 2, item.Qty)

	var count int64
	require.NoError(t, db.Model(&CartItem{}).Where("cart_id = ?", "cart-1").Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestAddToCartVariantPriceOverride(t *testing.T) {
	svc, db := newTestService(t)
	p := seedProduct(t, db, &product.Product{
		Title: "Shirt", Slug: "shirt", Price: 2000, StockQty: 10,
		Colors: []product.Color{{Name: "Gold", Price: 3000, StockQty: 5}},
	})

	item, err := svc.AddToCart("cart-1", nil, &AddToCartRequest{
		ProductPID: p.PID, Qty: 1, Color: "Gold",
	})
	require.NoError(t, err)
	assert.Equal(t, int64(3000), item.UnitPrice)
	assert.Equal(t, int64(3000), item.SubTotal)
}

func TestUpdateQuantityIsAbsolute(t *testing.T) {
	svc, db := newTestService(t)
	p := seedProduct(t, db, &product.Product{
		Title: "Jacket", Slug: "jacket", Price: 1000, StockQty: 10,
	})

	item, err := svc.AddToCart("cart-1", nil, &AddToCartRequest{ProductPID: p.PID, Qty: 5})
	require.NoError(t, err)

	updated, err := svc.UpdateQuantity("cart-1", item.ID, &UpdateCartRequest{Qty: 2})
	require.NoError(t, err)
	assert.Equal(t, 2, updated.Qty)
	assert.Equal(t, int64(2000), updated.SubTotal)

	_, err = svc.UpdateQuantity("cart-1", item.ID, &UpdateCartRequest{Qty: 11})
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, `only 10 available in stock for "Jacket"`, verr.Message)
}

func TestUpdateQuantityWrongCart(t *testing.T) {
	svc, db := newTestService(t)
	p := seedProduct(t, db, &product.Product{
		Title: "Jacket", Slug: "jacket", Price: 1000, StockQty: 10,
	})

	item, err := svc.AddToCart("cart-1", nil, &AddToCartRequest{ProductPID: p.PID, Qty: 1})
	require.NoError(t, err)

	_, err = svc.UpdateQuantity("cart-2", item.ID, &UpdateCartRequest{Qty: 2})
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "cart item not found", verr.Message)
}

func TestGetCartClampsToAvailableStock(t *testing.T) {
	svc, db := newTestService(t)
	p := seedProduct(t, db, &product.Product{
		Title: "Jacket", Slug: "jacket", Price: 1000, StockQty: 10,
	})

	_, err := svc.AddToCart("cart-1", nil, &AddToCartRequest{ProductPID: p.PID, Qty: 5})
	require.NoError(t, err)

	// Someone else bought most of the stock
	require.NoError(t, db.Model(&product.Product{}).Where("id = ?", p.ID).
		Update("stock_qty", 2).Error)

	summary, err := svc.GetCart("cart-1")
	require.NoError(t, err)
	require.Len(t, summary.Items, 1)
	assert.Equal(t, 2, summary.Items[0].Qty)
	assert.Equal(t, int64(2000), summary.SubTotal)

	// The clamp is persisted
	var stored CartItem
	require.NoError(t, db.Where("cart_id = ?", "cart-1").First(&stored).Error)
	assert.Equal(t, 2, stored.Qty)
}

func TestGetCartDropsUnavailableLines(t *testing.T) {
	svc, db := newTestService(t)
	p := seedProduct(t, db, &product.Product{
		Title: "Jacket", Slug: "jacket", Price: 1000, StockQty: 10,
	})

	_, err := svc.AddToCart("cart-1", nil, &AddToCartRequest{ProductPID: p.PID, Qty: 2})
	require.NoError(t, err)

	require.NoError(t, db.Model(&product.Product{}).Where("id = ?", p.ID).
		Update("status", product.StatusDisabled).Error)

	summary, err := svc.GetCart("cart-1")
	require.NoError(t, err)
	assert.Empty(t, summary.Items)
	assert.Zero(t, summary.Total)

	var count int64
	require.NoError(t, db.Model(&CartItem{}).Where("cart_id = ?", "cart-1").Count(&count).Error)
	assert.Zero(t, count)
}

func TestRemoveItemRestoresCommittedStock(t *testing.T) {
	svc, db := newTestService(t)
	p := seedProduct(t, db, &product.Product{
		Title: "Jacket", Slug: "jacket", Price: 1000, StockQty: 3,
	})

	item, err := svc.AddToCart("cart-1", nil, &AddToCartRequest{ProductPID: p.PID, Qty: 3})
	require.NoError(t, err)

	// Simulate an order transaction having committed this line's stock
	require.NoError(t, db.Model(&CartItem{}).Where("id = ?", item.ID).
		Update("stock_committed", true).Error)
	require.NoError(t, db.Model(&product.Product{}).Where("id = ?", p.ID).
		Updates(map[string]interface{}{"stock_qty": 0, "in_stock": false}).Error)

	require.NoError(t, svc.RemoveItem("cart-1", item.ID))

	var stored product.Product
	require.NoError(t, db.First(&stored, p.ID).Error)
	assert.Equal(t, 3, stored.StockQty)
	assert.True(t, stored.InStock)
}

func TestRemoveItemLeavesUncommittedStockAlone(t *testing.T) {
	svc, db := newTestService(t)
	p := seedProduct(t, db, &product.Product{
		Title: "Jacket", Slug: "jacket", Price: 1000, StockQty: 3,
	})

	item, err := svc.AddToCart("cart-1", nil, &AddToCartRequest{ProductPID: p.PID, Qty: 2})
	require.NoError(t, err)

	require.NoError(t, svc.RemoveItem("cart-1", item.ID))

	var stored product.Product
	require.NoError(t, db.First(&stored, p.ID).Error)
	assert.Equal(t, 3, stored.StockQty, "cart lines do not hold stock before checkout")
}

func TestClearCartAndCount(t *testing.T) {
	svc, db := newTestService(t)
	p1 := seedProduct(t, db, &product.Product{Title: "A", Slug: "a", Price: 100, StockQty: 5})
	p2 := seedProduct(t, db, &product.Product{Title: "B", Slug: "b", Price: 200, StockQty: 5})

	_, err := svc.AddToCart("cart-1", nil, &AddToCartRequest{ProductPID: p1.PID, Qty: 1})
	require.NoError(t, err)
	_, err = svc.AddToCart("cart-1", nil, &AddToCartRequest{ProductPID: p2.PID, Qty: 1})
	require.NoError(t, err)

	count, err := svc.Count("cart-1")
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)

	require.NoError(t, svc.ClearCart("cart-1"))

	count, err = svc.Count("cart-1")
	require.NoError(t, err)
	assert.Zero(t, count)
}
