// internal/domain/tax/service.go
package tax

import (
	"errors"

	"gorm.io/gorm"
)

// Service resolves tax rates by destination country
type Service struct {
	db *gorm.DB
}

// NewService creates a new tax service
func NewService(db *gorm.DB) *Service {
	return &Service{db: db}
}

// RateForCountry returns the active tax rate for a country as a whole
// percentage. Countries without a configured rate are taxed at 0%.
func (s *Service) RateForCountry(country string) (int64, error) {
	if country == "" {
		return 0, nil
	}

	var t Tax
	err := s.db.Where("country = ? AND active = ?", country, true).First(&t).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, nil
		}
		return 0, err
	}
	return t.Rate, nil
}
