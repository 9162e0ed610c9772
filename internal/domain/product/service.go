// internal/domain/product/service.go
package product

import (
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// Service handles catalog queries and stock administration
type Service struct {
	db     *gorm.DB
	logger *logrus.Logger
}

// NewService creates a new product service
func NewService(db *gorm.DB, logger *logrus.Logger) *Service {
	return &Service{db: db, logger: logger}
}

// ListFilter narrows the published-product listing
type ListFilter struct {
	CategorySlug string `form:"category"`
	VendorID     uint   `form:"vendor_id"`
	Featured     bool   `form:"featured"`
	Page         int    `form:"page,default=1"`
	PerPage      int    `form:"per_page,default=20"`
}

// ListPublished returns published products with variants preloaded
func (s *Service) ListPublished(filter ListFilter) ([]Product, int64, error) {
	query := s.db.Model(&Product{}).Where("products.status = ?", StatusPublished)

	if filter.CategorySlug != "" {
		query = query.Joins("JOIN categories ON categories.id = products.category_id").
			Where("categories.slug = ?", filter.CategorySlug)
	}
	if filter.VendorID != 0 {
		query = query.Where("products.vendor_id = ?", filter.VendorID)
	}
	if filter.Featured {
		query = query.Where("products.featured = ?", true)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count products: %w", err)
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	perPage := filter.PerPage
	if perPage < 1 || perPage > 100 {
		perPage = 20
	}

	var products []Product
	err := query.
		Preload("Colors").
		Preload("Sizes").
		Preload("Category").
		Preload("Vendor").
		Order("products.created_at DESC").
		Offset((page - 1) * perPage).
		Limit(perPage).
		Find(&products).Error
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list products: %w", err)
	}

	return products, total, nil
}

// GetByPID loads one published product and bumps its view counter
func (s *Service) GetByPID(pid string) (*Product, error) {
	var p Product
	err := s.db.
		Preload("Colors").
		Preload("Sizes").
		Preload("Category").
		Preload("Vendor").
		Preload("Reviews", "active = ?", true).
		Where("pid = ? AND status = ?", pid, StatusPublished).
		First(&p).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("product not found")
		}
		return nil, fmt.Errorf("failed to get product: %w", err)
	}

	// Counter only, not worth failing the request over
	if err := s.db.Model(&Product{}).Where("id = ?", p.ID).
		UpdateColumn("views", gorm.Expr("views + 1")).Error; err != nil {
		s.logger.WithError(err).WithField("pid", pid).Warn("failed to bump product views")
	}
	p.Views++

	return &p, nil
}

// ListCategories returns all product categories
func (s *Service) ListCategories() ([]Category, error) {
	var categories []Category
	if err := s.db.Order("title ASC").Find(&categories).Error; err != nil {
		return nil, fmt.Errorf("failed to list categories: %w", err)
	}
	return categories, nil
}

// CreateReviewRequest represents review submission data
type CreateReviewRequest struct {
	Rating  int    `json:"rating" binding:"required,min=1,max=5"`
	Comment string `json:"comment"`
}

// AddReview stores a review; the rating hook keeps the product average current
func (s *Service) AddReview(pid string, userID uint, req *CreateReviewRequest) (*Review, error) {
	var p Product
	err := s.db.Where("pid = ? AND status = ?", pid, StatusPublished).First(&p).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("product not found")
		}
		return nil, fmt.Errorf("failed to get product: %w", err)
	}

	review := Review{
		ProductID: p.ID,
		UserID:    userID,
		Rating:    req.Rating,
		Comment:   req.Comment,
		Active:    true,
	}
	if err := s.db.Create(&review).Error; err != nil {
		return nil, fmt.Errorf("failed to create review: %w", err)
	}

	return &review, nil
}

// SetStock replaces the stock counter of a product or one of its variants.
// Variant counters above the parent counter are accepted but flagged; the
// checkout validator narrows to the minimum anyway.
func (s *Service) SetStock(productID uint, colorName, sizeName string, qty int) error {
	var p Product
	err := s.db.Preload("Colors").Preload("Sizes").Where("id = ?", productID).First(&p).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("product not found")
		}
		return fmt.Errorf("failed to get product: %w", err)
	}

	colorName = NormalizeColor(colorName)
	sizeName = NormalizeSize(sizeName)

	if colorName != NoColor {
		color := p.FindColor(colorName)
		if color == nil {
			return fmt.Errorf("color %q is not available for this product", colorName)
		}
		if qty > p.StockQty {
			s.logger.WithFields(logrus.Fields{
				"product_id": p.ID,
				"color":      color.Name,
				"qty":        qty,
				"parent_qty": p.StockQty,
			}).Warn("variant stock set above parent product stock")
		}
		color.StockQty = qty
		return s.db.Save(color).Error
	}

	if sizeName != NoSize {
		size := p.FindSize(sizeName)
		if size == nil {
			return fmt.Errorf("size %q is not available for this product", sizeName)
		}
		if qty > p.StockQty {
			s.logger.WithFields(logrus.Fields{
				"product_id": p.ID,
				"size":       size.Name,
				"qty":        qty,
				"parent_qty": p.StockQty,
			}).Warn("variant stock set above parent product stock")
		}
		size.StockQty = qty
		return s.db.Save(size).Error
	}

	p.StockQty = qty
	return s.db.Save(&p).Error
}
