package product

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&Product{}, &Color{}, &Size{}, &Review{}))
	return db
}

func publishedProduct() *Product {
	return &Product{
		ID:           1,
		Title:        "Leather Jacket",
		Price:        12000,
		StockQty:     10,
		Status:       StatusPublished,
		MaxCartLimit: 10,
	}
}

func TestCheckAvailability(t *testing.T) {
	tests := []struct {
		name      string
		setup     func(p *Product)
		qty       int
		color     string
		size      string
		wantOK    bool
		reason    string
		available int
	}{
		{
			name:   "simple product in stock",
			qty:    3,
			color:  NoColor,
			size:   NoSize,
			wantOK: true, available: 10,
		},
		{
			name:   "unpublished product",
			setup:  func(p *Product) { p.Status = StatusDraft },
			qty:    1,
			color:  NoColor,
			size:   NoSize,
			reason: "this product is not available",
		},
		{
			name:   "product out of stock",
			setup:  func(p *Product) { p.StockQty = 0 },
			qty:    1,
			color:  NoColor,
			size:   NoSize,
			reason: "this product is out of stock",
		},
		{
			name:   "selector ignored when product has no variants",
			qty:    2,
			color:  "Red",
			size:   "undefined",
			wantOK: true, available: 10,
		},
		{
			name:   "quantity above base stock",
			qty:    12,
			color:  NoColor,
			size:   NoSize,
			reason: `only 10 available in stock for "Leather Jacket"`, available: 10,
		},
		{
			name: "color required but not selected",
			setup: func(p *Product) {
				p.Colors = []Color{{Name: "Red", StockQty: 5}}
			},
			qty:    1,
			color:  NoColor,
			size:   NoSize,
			reason: `please select a color for "Leather Jacket"`, available: 10,
		},
		{
			name: "size required but not selected",
			setup: func(p *Product) {
				p.Sizes = []Size{{Name: "XL", StockQty: 5}}
			},
			qty:    1,
			color:  NoColor,
			size:   NoSize,
			reason: `please select a size for "Leather Jacket"`, available: 10,
		},
		{
			name:   "unknown color",
			setup:  func(p *Product) { p.Colors = []Color{{Name: "Red", StockQty: 5}} },
			qty:    1,
			color:  "Green",
			size:   NoSize,
			reason: `color "Green" is not available for "Leather Jacket"`,
		},
		{
			name:   "color out of stock",
			setup:  func(p *Product) { p.Colors = []Color{{Name: "Red", StockQty: 0}} },
			qty:    1,
			color:  "Red",
			size:   NoSize,
			reason: `color "Red" of "Leather Jacket" is out of stock`,
		},
		{
			name: "color match is case insensitive",
			setup: func(p *Product) {
				p.Colors = []Color{{Name: "Red", StockQty: 5}}
			},
			qty:    2,
			color:  "rEd",
			size:   NoSize,
			wantOK: true, available: 5,
		},
		{
			name: "availability narrows to the scarcest variant",
			setup: func(p *Product) {
				p.Colors = []Color{{Name: "Red", StockQty: 7}}
				p.Sizes = []Size{{Name: "XL", StockQty: 3}}
			},
			qty:    2,
			color:  "Red",
			size:   "XL",
			wantOK: true, available: 3,
		},
		{
			name: "quantity above narrowed stock",
			setup: func(p *Product) {
				p.Colors = []Color{{Name: "Red", StockQty: 4}}
			},
			qty:    5,
			color:  "Red",
			size:   NoSize,
			reason: `only 4 available in stock for color "Red" of "Leather Jacket"`, available: 4,
		},
		{
			name:   "quantity above max cart limit",
			setup:  func(p *Product) { p.StockQty = 50; p.MaxCartLimit = 10 },
			qty:    12,
			color:  NoColor,
			size:   NoSize,
			reason: "you cannot order more than 10 of this product", available: 50,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := publishedProduct()
			if tt.setup != nil {
				tt.setup(p)
			}

			got := CheckAvailability(p, tt.qty, tt.color, tt.size)

			assert.Equal(t, tt.wantOK, got.OK)
			assert.Equal(t, tt.available, got.Available)
			if !tt.wantOK {
				assert.Equal(t, tt.reason, got.Reason)
			}
		})
	}
}

func TestNormalize(t *testing.T) {
	assert.Equal(t, NoColor, NormalizeColor(""))
	assert.Equal(t, NoColor, NormalizeColor("   "))
	assert.Equal(t, NoColor, NormalizeColor("undefined"))
	assert.Equal(t, "Red", NormalizeColor("Red"))
	assert.Equal(t, NoSize, NormalizeSize(""))
	assert.Equal(t, NoSize, NormalizeSize("UNDEFINED"))
	assert.Equal(t, "XL", NormalizeSize("XL"))
}

func TestEffectivePrice(t *testing.T) {
	p := &Product{Price: 1000}
	color := &Color{Price: 1200}
	size := &Size{Price: 900}

	assert.Equal(t, int64(1000), p.EffectivePrice(nil, nil))
	assert.Equal(t, int64(1200), p.EffectivePrice(color, size), "color override wins over size")
	assert.Equal(t, int64(900), p.EffectivePrice(nil, size))
	assert.Equal(t, int64(1000), p.EffectivePrice(&Color{}, nil), "zero price means no override")
}

func TestDecrementStock(t *testing.T) {
	db := newTestDB(t)

	p := Product{
		Title:    "Sneaker",
		Slug:     "sneaker",
		VendorID: 1,
		Price:    5000,
		StockQty: 10,
		Status:   StatusPublished,
		Colors:   []Color{{Name: "White", StockQty: 6}},
		Sizes:    []Size{{Name: "42", StockQty: 8}},
	}
	require.NoError(t, db.Create(&p).Error)

	missing, err := DecrementStock(db, &p, 4, "white", "42")
	require.NoError(t, err)
	assert.Empty(t, missing)
	assert.Equal(t, 6, p.StockQty)
	assert.True(t, p.InStock)

	var stored Product
	require.NoError(t, db.Preload("Colors").Preload("Sizes").First(&stored, p.ID).Error)
	assert.Equal(t, 6, stored.StockQty)
	assert.Equal(t, 2, stored.Colors[0].StockQty)
	assert.Equal(t, 4, stored.Sizes[0].StockQty)

	// Draining the counter flips the derived flag
	missing, err = DecrementStock(db, &p, 6, NoColor, NoSize)
	require.NoError(t, err)
	assert.Empty(t, missing)

	require.NoError(t, db.First(&stored, p.ID).Error)
	assert.Equal(t, 0, stored.StockQty)
	assert.False(t, stored.InStock)
}

func TestDecrementStockMissingVariant(t *testing.T) {
	db := newTestDB(t)

	p := Product{
		Title:    "Hat",
		Slug:     "hat",
		VendorID: 1,
		Price:    2000,
		StockQty: 5,
		Status:   StatusPublished,
	}
	require.NoError(t, db.Create(&p).Error)

	missing, err := DecrementStock(db, &p, 2, "Blue", NoSize)
	require.NoError(t, err)
	assert.Equal(t, []string{"Blue"}, missing)
	assert.Equal(t, 3, p.StockQty)
}

func TestDecrementStockNegativeRestores(t *testing.T) {
	db := newTestDB(t)

	p := Product{
		Title:    "Scarf",
		Slug:     "scarf",
		VendorID: 1,
		Price:    1500,
		StockQty: 0,
		Status:   StatusPublished,
	}
	require.NoError(t, db.Create(&p).Error)

	missing, err := DecrementStock(db, &p, -3, NoColor, NoSize)
	require.NoError(t, err)
	assert.Empty(t, missing)

	var stored Product
	require.NoError(t, db.First(&stored, p.ID).Error)
	assert.Equal(t, 3, stored.StockQty)
	assert.True(t, stored.InStock)
}

func TestReviewRecomputesRating(t *testing.T) {
	db := newTestDB(t)

	p := Product{Title: "Mug", Slug: "mug", VendorID: 1, Price: 900, StockQty: 3, Status: StatusPublished}
	require.NoError(t, db.Create(&p).Error)

	require.NoError(t, db.Create(&Review{ProductID: p.ID, UserID: 1, Rating: 5, Active: true}).Error)
	require.NoError(t, db.Create(&Review{ProductID: p.ID, UserID: 2, Rating: 2, Active: true}).Error)

	var stored Product
	require.NoError(t, db.First(&stored, p.ID).Error)
	assert.InDelta(t, 3.5, stored.Rating, 0.001)
}
