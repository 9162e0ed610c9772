// internal/infrastructure/database/postgres/migration.go
package postgres

import (
	"fmt"
	"log"

	"github.com/your-org/marketplace-backend/internal/domain/cart"
	"github.com/your-org/marketplace-backend/internal/domain/coupon"
	"github.com/your-org/marketplace-backend/internal/domain/notification"
	"github.com/your-org/marketplace-backend/internal/domain/order"
	"github.com/your-org/marketplace-backend/internal/domain/product"
	"github.com/your-org/marketplace-backend/internal/domain/tax"
	"github.com/your-org/marketplace-backend/internal/domain/user"
	"github.com/your-org/marketplace-backend/internal/domain/vendor"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// Migration handles database migrations
type Migration struct {
	db *gorm.DB
}

// NewMigration creates a new migration instance
func NewMigration(db *gorm.DB) *Migration {
	return &Migration{
		db: db,
	}
}

// RunAutoMigrations runs GORM auto-migrations for all models
func (m *Migration) RunAutoMigrations() error {
	log.Println("🔄 Running database auto-migrations...")

	// Define all models that need migration in dependency order
	models := []interface{}{
		// User domain - Base tables
		&user.User{},

		// Vendor domain
		&vendor.Vendor{},

		// Product domain
		&product.Category{},
		&product.Product{},
		&product.Color{},
		&product.Size{},
		&product.Review{},

		// Tax rates
		&tax.Tax{},

		// Cart domain
		&cart.CartItem{},

		// Order domain - Dependent tables
		&order.Order{},
		&order.OrderItem{},

		// Coupons
		&coupon.Coupon{},

		// Notifications
		&notification.Notification{},
	}

	// Run auto-migration for each model
	for _, model := range models {
		log.Printf("Migrating model: %T", model)
		if err := m.db.AutoMigrate(model); err != nil {
			return fmt.Errorf("failed to migrate model %T: %w", model, err)
		}
	}

	log.Println("✅ Database auto-migrations completed successfully")
	return nil
}

// CreateIndexes creates additional indexes for better performance
func (m *Migration) CreateIndexes() error {
	log.Println("🔄 Creating additional database indexes...")

	indexes := []string{
		// User indexes
		"CREATE INDEX IF NOT EXISTS idx_users_email_active ON users(email, is_active)",
		"CREATE INDEX IF NOT EXISTS idx_users_created_at ON users(created_at DESC)",

		// Product indexes
		"CREATE INDEX IF NOT EXISTS idx_products_status ON products(status)",
		"CREATE INDEX IF NOT EXISTS idx_products_vendor_status ON products(vendor_id, status)",
		"CREATE INDEX IF NOT EXISTS idx_products_category ON products(category_id)",
		"CREATE INDEX IF NOT EXISTS idx_products_pid ON products(pid)",
		"CREATE INDEX IF NOT EXISTS idx_products_in_stock ON products(in_stock)",

		// Variant indexes
		"CREATE INDEX IF NOT EXISTS idx_colors_product ON colors(product_id)",
		"CREATE INDEX IF NOT EXISTS idx_sizes_product ON sizes(product_id)",

		// Cart indexes
		"CREATE INDEX IF NOT EXISTS idx_cart_items_cart_id ON cart_items(cart_id)",
		"CREATE UNIQUE INDEX IF NOT EXISTS idx_cart_items_line ON cart_items(cart_id, product_id, color_name, size_name)",

		// Order indexes
		"CREATE INDEX IF NOT EXISTS idx_orders_oid ON orders(oid)",
		"CREATE INDEX IF NOT EXISTS idx_orders_buyer_status ON orders(buyer_id, order_status)",
		"CREATE INDEX IF NOT EXISTS idx_orders_payment_status ON orders(payment_status)",
		"CREATE INDEX IF NOT EXISTS idx_orders_payment_method ON orders(payment_method)",
		"CREATE INDEX IF NOT EXISTS idx_orders_created_at ON orders(created_at DESC)",

		// Order items indexes
		"CREATE INDEX IF NOT EXISTS idx_order_items_order ON order_items(order_id)",
		"CREATE INDEX IF NOT EXISTS idx_order_items_product ON order_items(product_id)",
		"CREATE INDEX IF NOT EXISTS idx_order_items_vendor ON order_items(vendor_id)",

		// Tax indexes
		"CREATE INDEX IF NOT EXISTS idx_taxes_country_active ON taxes(country, active)",

		// Coupon indexes
		"CREATE INDEX IF NOT EXISTS idx_coupons_code_active ON coupons(code, active)",
		"CREATE INDEX IF NOT EXISTS idx_coupons_vendor ON coupons(vendor_id)",

		// Notification indexes
		"CREATE INDEX IF NOT EXISTS idx_notifications_user_seen ON notifications(user_id, seen)",
		"CREATE INDEX IF NOT EXISTS idx_notifications_vendor_seen ON notifications(vendor_id, seen)",
	}

	successCount := 0
	failCount := 0

	for _, indexSQL := range indexes {
		if err := m.db.Exec(indexSQL).Error; err != nil {
			log.Printf("⚠️ Failed to create index: %v", err)
			failCount++
		} else {
			successCount++
		}
	}

	log.Printf("✅ Created %d indexes successfully (%d failed)", successCount, failCount)
	return nil
}

// SeedInitialData inserts initial data into the database
func (m *Migration) SeedInitialData() error {
	log.Println("🌱 Seeding initial data...")

	if err := m.seedCategories(); err != nil {
		return fmt.Errorf("failed to seed categories: %w", err)
	}

	if err := m.seedTaxes(); err != nil {
		return fmt.Errorf("failed to seed taxes: %w", err)
	}

	if err := m.seedAdminUser(); err != nil {
		return fmt.Errorf("failed to seed admin user: %w", err)
	}

	log.Println("✅ Initial data seeded successfully")
	return nil
}

// seedCategories creates default product categories
func (m *Migration) seedCategories() error {
	log.Println("🏷️ Seeding categories...")

	categories := []product.Category{
		{Title: "Electronics", Slug: "electronics"},
		{Title: "Clothing", Slug: "clothing"},
		{Title: "Books", Slug: "books"},
		{Title: "Home & Garden", Slug: "home-garden"},
		{Title: "Sports & Outdoors", Slug: "sports-outdoors"},
	}

	for _, category := range categories {
		var existing product.Category
		result := m.db.Where("slug = ?", category.Slug).First(&existing)
		if result.Error != nil {
			if err := m.db.Create(&category).Error; err != nil {
				return err
			}
			log.Printf("✅ Created category: %s", category.Title)
		} else {
			log.Printf("⏭️ Category already exists: %s", category.Title)
		}
	}

	return nil
}

// seedTaxes creates default country tax rates
func (m *Migration) seedTaxes() error {
	log.Println("🧾 Seeding tax rates...")

	taxes := []tax.Tax{
		{Country: "United States", Rate: 5, Active: true},
		{Country: "United Kingdom", Rate: 20, Active: true},
		{Country: "India", Rate: 18, Active: true},
	}

	for _, t := range taxes {
		var existing tax.Tax
		result := m.db.Where("country = ?", t.Country).First(&existing)
		if result.Error != nil {
			if err := m.db.Create(&t).Error; err != nil {
				return err
			}
			log.Printf("✅ Created tax rate: %s (%d%%)", t.Country, t.Rate)
		} else {
			log.Printf("⏭️ Tax rate already exists: %s", t.Country)
		}
	}

	return nil
}

func (m *Migration) seedAdminUser() error {
	log.Println("👤 Seeding admin user...")

	var existing user.User
	result := m.db.Where("email = ?", "admin@example.com").First(&existing)
	if result.Error != nil {
		hashedPassword, err := bcrypt.GenerateFromPassword([]byte("admin123"), 10)
		if err != nil {
			return fmt.Errorf("failed to hash password: %w", err)
		}

		adminUser := user.User{
			Email:     "admin@example.com",
			Password:  string(hashedPassword),
			FirstName: "Admin",
			LastName:  "User",
			IsActive:  true,
			IsAdmin:   true,
		}

		if err := m.db.Create(&adminUser).Error; err != nil {
			return fmt.Errorf("failed to create admin user: %w", err)
		}

		log.Println("✅ Created admin user: admin@example.com (password: admin123)")
	} else {
		log.Printf("⏭️ Admin user already exists with ID: %d", existing.ID)
	}

	return nil
}

// DropAllTables drops all tables (use with extreme caution)
func (m *Migration) DropAllTables() error {
	log.Println("⚠️ WARNING: Dropping all database tables...")

	// Reverse dependency order
	tables := []string{
		"notifications",
		"order_item_coupons",
		"order_vendors",
		"coupons",
		"order_items",
		"orders",
		"cart_items",
		"reviews",
		"sizes",
		"colors",
		"products",
		"taxes",
		"categories",
		"vendors",
		"users",
	}

	for _, table := range tables {
		if err := m.db.Exec(fmt.Sprintf("DROP TABLE IF EXISTS %s CASCADE", table)).Error; err != nil {
			log.Printf("⚠️ Failed to drop table %s: %v", table, err)
		} else {
			log.Printf("🗑️ Dropped table: %s", table)
		}
	}

	log.Println("✅ All tables dropped successfully")
	return nil
}
